package users

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/supermart/supermart/internal/rbac"
)

func newTestRouter(svc *Service) http.Handler {
	mw := rbac.Middleware{Loader: svc}
	r := chi.NewRouter()
	r.Use(mw.Identify)
	r.Route("/api/users", NewHandler(slog.Default(), svc, mw).MountRoutes)
	return r
}

func call(h http.Handler, method, path string, user int64, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if user != 0 {
		req.Header.Set(rbac.HeaderUserID, strconv.FormatInt(user, 10))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerOwnProfile(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryRepo(), nil, nil)
	staff, err := svc.Create(ctx, 0, CreateInput{Email: "cashier@supermart.com", Username: "cashier"})
	require.NoError(t, err)
	router := newTestRouter(svc)

	require.Equal(t, http.StatusUnauthorized, call(router, http.MethodGet, "/api/users/me", 0, "").Code)

	rec := call(router, http.MethodPatch, "/api/users/me", staff.ID, `{"phone":"0812345","address":"5 Depot Lane"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = call(router, http.MethodGet, "/api/users/me", staff.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "0812345", got.Phone)
	require.Equal(t, "5 Depot Lane", got.Address)
	require.Equal(t, rbac.RoleStaff, got.Role)

	rec = call(router, http.MethodPatch, "/api/users/me", staff.ID, `{"phone":"0123456789012345"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	require.Equal(t, http.StatusForbidden, call(router, http.MethodGet, "/api/users/", staff.ID, "").Code)
}
