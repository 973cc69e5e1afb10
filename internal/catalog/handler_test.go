package catalog

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/supermart/supermart/internal/rbac"
	"github.com/supermart/supermart/internal/shared"
)

type actorTable map[int64]shared.Actor

func (a actorTable) LoadActor(_ context.Context, id int64) (shared.Actor, error) {
	actor, ok := a[id]
	if !ok {
		return shared.Actor{}, shared.ErrNotFound
	}
	return actor, nil
}

func newTestRouter(repo *memoryRepo) http.Handler {
	mw := rbac.Middleware{Loader: actorTable{
		1: {ID: 1, Role: string(rbac.RoleCustomer)},
		2: {ID: 2, Role: string(rbac.RoleStaff)},
		3: {ID: 3, Role: string(rbac.RoleManager)},
	}}
	h := NewHandler(slog.Default(), NewService(repo, nil, nil, nil), mw)
	r := chi.NewRouter()
	r.Use(mw.Identify)
	r.Route("/api/products", h.MountRoutes)
	r.Route("/api/categories", h.MountCategoryRoutes)
	r.Route("/api/inventory", h.MountStockRoutes)
	return r
}

func call(h http.Handler, method, path, user, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if user != "" {
		req.Header.Set(rbac.HeaderUserID, user)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerProductLifecycle(t *testing.T) {
	repo := newMemoryRepo()
	router := newTestRouter(repo)

	body := `{"sku":"tea-50","name":"Green Tea","category_id":1,"price":"4.20","quantity":3}`
	rec := call(router, http.MethodPost, "/api/products", "1", body)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = call(router, http.MethodPost, "/api/products", "3", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = call(router, http.MethodGet, "/api/products/TEA-50", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var p Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	require.Equal(t, 3, p.Quantity)
	require.True(t, p.IsLowStock())

	rec = call(router, http.MethodPatch, "/api/products/TEA-50/price", "3", `{"price":"3.99"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	require.Equal(t, "3.99", p.Price.StringFixed(2))

	rec = call(router, http.MethodGet, "/api/products/missing", "", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerStockQueriesNeedStaff(t *testing.T) {
	router := newTestRouter(newMemoryRepo())

	require.Equal(t, http.StatusForbidden, call(router, http.MethodGet, "/api/inventory/low-stock", "1", "").Code)
	rec := call(router, http.MethodGet, "/api/inventory/low-stock", "2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"products":[],"count":0}`, rec.Body.String())

	rec = call(router, http.MethodGet, "/api/categories", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Dairy")
}
