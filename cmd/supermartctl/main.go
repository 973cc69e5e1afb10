package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	ucli "github.com/urfave/cli/v2"

	"github.com/supermart/supermart/cmd/supermartctl/cli"
	"github.com/supermart/supermart/internal/app"
	"github.com/supermart/supermart/internal/platform/db"
	"github.com/supermart/supermart/internal/shared"
	"github.com/supermart/supermart/migrations"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	dsn := func(c *ucli.Context) string {
		if v := c.String("dsn"); v != "" {
			return v
		}
		return cfg.PGDSN
	}
	openPool := func(c *ucli.Context) (*pgxpool.Pool, error) {
		poolCfg := cfg.Pool("ctl")
		poolCfg.DSN = dsn(c)
		pool, err := db.New(c.Context, poolCfg)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		return pool, nil
	}
	openCore := func(c *ucli.Context) (*app.Core, func(), error) {
		pool, err := openPool(c)
		if err != nil {
			return nil, nil, err
		}
		core := app.NewCore(app.CoreParams{Pool: pool, Config: cfg, Logger: logger})
		return core, pool.Close, nil
	}

	application := cli.NewApp(cli.Env{
		Out: os.Stdout,
		OpenMigrations: func(c *ucli.Context) (cli.Migrations, error) {
			return db.NewMigrator(migrations.FS, dsn(c))
		},
		OpenJobs: func(c *ucli.Context) (cli.Jobs, error) {
			opts := cfg.Asynq()
			if addr := c.String("redis"); addr != "" {
				opts.Addr = addr
			}
			return cli.NewJobsCLI(opts)
		},
		OpenLedger: func(c *ucli.Context) (cli.Ledger, func(), error) {
			core, closeFn, err := openCore(c)
			if err != nil {
				return nil, nil, err
			}
			return core.Inventory, closeFn, nil
		},
		OpenAccounts: func(c *ucli.Context) (cli.Accounts, func(), error) {
			core, closeFn, err := openCore(c)
			if err != nil {
				return nil, nil, err
			}
			return core.Users, closeFn, nil
		},
		OpenKeys: func(c *ucli.Context) (cli.KeyPurger, func(), error) {
			pool, err := openPool(c)
			if err != nil {
				return nil, nil, err
			}
			return shared.NewIdempotencyStore(pool), pool.Close, nil
		},
	})

	if err := application.RunContext(ctx, os.Args); err != nil {
		logger.Error("supermartctl", slog.Any("error", err))
		if coder, ok := err.(ucli.ExitCoder); ok {
			os.Exit(coder.ExitCode())
		}
		os.Exit(1)
	}
}
