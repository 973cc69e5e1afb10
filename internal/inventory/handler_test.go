package inventory

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
	h := NewHandler(slog.Default(), NewService(repo, nil, nil, nil, nil), mw)
	r := chi.NewRouter()
	r.Use(mw.Identify)
	r.Route("/api/inventory", h.MountRoutes)
	return r
}

func doRequest(h http.Handler, method, path, user, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(rbac.HeaderUserID, user)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerRecordEntry(t *testing.T) {
	repo := newMemoryRepo(milk(10))
	router := newTestRouter(repo)

	rec := doRequest(router, http.MethodPost, "/api/inventory/entries", "2", `{"product_id":1,"entry_type":"in","quantity":5,"note":"delivery"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var entry StockEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	require.Equal(t, 15, entry.BalanceAfter)
	require.Equal(t, int64(2), entry.CreatedBy)

	rec = doRequest(router, http.MethodPost, "/api/inventory/entries", "1", `{"product_id":1,"entry_type":"IN","quantity":5}`)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(router, http.MethodPost, "/api/inventory/entries", "", `{"product_id":1,"entry_type":"IN","quantity":5}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(router, http.MethodPost, "/api/inventory/entries", "2", `{"product_id":1,"entry_type":"IN","quantity":0}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	require.Equal(t, 15, repo.products[1].Quantity)
}

func TestHandlerListAndReconcile(t *testing.T) {
	repo := newMemoryRepo(milk(0))
	router := newTestRouter(repo)

	rec := doRequest(router, http.MethodPost, "/api/inventory/entries", "2", `{"product_id":1,"entry_type":"IN","quantity":4}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(router, http.MethodGet, "/api/inventory/entries?product_id=1", "2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Entries []StockEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Entries, 1)

	rec = doRequest(router, http.MethodGet, "/api/inventory/reconcile", "2", "")
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(router, http.MethodGet, "/api/inventory/reconcile", "3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"consistent":true`)
}
