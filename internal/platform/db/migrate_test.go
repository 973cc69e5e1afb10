package db

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMigrateURL(t *testing.T) {
	require.Equal(t, "pgx5://u:p@localhost:5432/shop?sslmode=disable", MigrateURL("postgres://u:p@localhost:5432/shop?sslmode=disable"))
	require.Equal(t, "pgx5://localhost/shop", MigrateURL("postgresql://localhost/shop"))
	require.Equal(t, "pgx5://already", MigrateURL("pgx5://already"))
}
