package app

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/supermart/supermart/internal/observability"
	"github.com/supermart/supermart/internal/rbac"
	"github.com/supermart/supermart/internal/shared"
	"github.com/supermart/supermart/jobs"
)

type actorTable map[int64]shared.Actor

func (a actorTable) LoadActor(_ context.Context, id int64) (shared.Actor, error) {
	actor, ok := a[id]
	if !ok {
		return shared.Actor{}, shared.ErrNotFound
	}
	return actor, nil
}

func newTestRouter(cfg *Config) http.Handler {
	mw := rbac.Middleware{Loader: actorTable{1: {ID: 1, Role: string(rbac.RoleManager)}}, Logger: slog.Default()}
	return NewRouter(RouterParams{
		Logger:             slog.Default(),
		Config:             cfg,
		RBACMiddleware:     mw,
		PermissionsHandler: rbac.NewPermissionsHandler(mw),
		JobHandler:         jobs.NewHandler(nil, nil),
		Metrics:            observability.NewMetrics(),
	})
}

func get(h http.Handler, path, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "10.0.0.1:1234"
	if user != "" {
		req.Header.Set(rbac.HeaderUserID, user)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouterHealthAndMetrics(t *testing.T) {
	router := newTestRouter(&Config{RateLimitPerMinute: 100})

	rec := get(router, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	require.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	require.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))

	require.Equal(t, http.StatusOK, get(router, "/jobs/health", "").Code)

	rec = get(router, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `supermart_http_requests_total{code="200",route="/healthz"}`)
}

func TestRouterIdentity(t *testing.T) {
	router := newTestRouter(&Config{RateLimitPerMinute: 100})

	require.Equal(t, http.StatusUnauthorized, get(router, "/api/permissions", "").Code)
	require.Equal(t, http.StatusUnauthorized, get(router, "/api/permissions", "99").Code)
	require.Equal(t, http.StatusUnauthorized, get(router, "/api/permissions", "abc").Code)

	rec := get(router, "/api/permissions", "1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"dashboard":"manager"`)
}

func TestRouterRateLimit(t *testing.T) {
	router := newTestRouter(&Config{RateLimitPerMinute: 2})
	require.Equal(t, http.StatusOK, get(router, "/healthz", "").Code)
	require.Equal(t, http.StatusOK, get(router, "/healthz", "").Code)
	require.Equal(t, http.StatusTooManyRequests, get(router, "/healthz", "").Code)
}
