package dashboard

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/supermart/supermart/internal/rbac"
	"github.com/supermart/supermart/internal/shared"
)

type mockRepo struct {
	counts      Counts
	lowStock    []StockItem
	orders      []OrderLine
	cart        Customer
	countsCalls atomic.Int32
	gate        chan struct{}
}

func (m *mockRepo) CustomerOrders(ctx context.Context, userID int64, limit int) ([]OrderLine, error) {
	return m.orders, nil
}

func (m *mockRepo) CartSummary(ctx context.Context, userID int64) (Customer, error) {
	return m.cart, nil
}

func (m *mockRepo) LowStock(ctx context.Context, limit int) ([]StockItem, error) {
	return m.lowStock, nil
}

func (m *mockRepo) Counts(ctx context.Context) (Counts, error) {
	m.countsCalls.Add(1)
	if m.gate != nil {
		<-m.gate
	}
	return m.counts, nil
}

func newTestService(t *testing.T, repo Repository) (*Service, *Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewCache(client, time.Minute)
	return NewService(repo, cache, slog.Default()), cache, mr
}

func TestManagerSummaryCachedUntilBump(t *testing.T) {
	repo := &mockRepo{counts: Counts{Products: 12, LowStock: 3, PendingOrders: 2, Revenue: decimal.RequireFromString("99.50")}}
	svc, cache, _ := newTestService(t, repo)
	ctx := context.Background()

	first, err := svc.Manager(ctx)
	require.NoError(t, err)
	require.Equal(t, 12, first.TotalProducts)
	require.Equal(t, "99.5", first.TotalRevenue.String())

	repo.counts.Products = 13
	second, err := svc.Manager(ctx)
	require.NoError(t, err)
	require.Equal(t, 12, second.TotalProducts)
	require.EqualValues(t, 1, repo.countsCalls.Load())

	require.NoError(t, cache.Bump(ctx))
	third, err := svc.Manager(ctx)
	require.NoError(t, err)
	require.Equal(t, 13, third.TotalProducts)
	require.EqualValues(t, 2, repo.countsCalls.Load())
}

func TestBumpPublishesVersion(t *testing.T) {
	_, cache, mr := newTestService(t, &mockRepo{})
	ctx := context.Background()

	ver, err := cache.Version(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, ver)

	require.NoError(t, cache.Bump(ctx))
	ver, err = cache.Version(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, ver)

	key, err := cache.BuildKey(ctx, "dashboard", "admin")
	require.NoError(t, err)
	require.Equal(t, "dashboard:admin:v2", key)
	got, err := mr.Get(cacheVersionKey)
	require.NoError(t, err)
	require.Equal(t, "2", got)
}

func TestConcurrentMissesShareOneBuild(t *testing.T) {
	repo := &mockRepo{counts: Counts{Users: 4, Orders: 9}, gate: make(chan struct{})}
	svc, _, _ := newTestService(t, repo)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]Admin, 8)
	errs := make([]error, len(results))
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Admin(ctx)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(repo.gate)
	wg.Wait()

	require.EqualValues(t, 1, repo.countsCalls.Load())
	for i, res := range results {
		require.NoError(t, errs[i])
		require.Equal(t, 4, res.TotalUsers)
		require.Equal(t, 9, res.TotalOrders)
	}
}

func TestStaffAndCustomerViews(t *testing.T) {
	repo := &mockRepo{
		counts:   Counts{LowStock: 1, OutOfStock: 1},
		lowStock: []StockItem{{ProductID: 1, SKU: "MILK-1L", Quantity: 0, LowStockThreshold: 10}},
		cart:     Customer{CartItems: 2, CartTotal: decimal.RequireFromString("5.00")},
	}
	svc, _, _ := newTestService(t, repo)
	ctx := context.Background()

	staff, err := svc.Staff(ctx)
	require.NoError(t, err)
	require.Len(t, staff.LowStock, 1)
	require.Equal(t, "MILK-1L", staff.LowStock[0].SKU)
	require.Equal(t, 1, staff.OutOfStockCount)

	cust, err := svc.Customer(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, int64(7), cust.UserID)
	require.Equal(t, 2, cust.CartItems)
	require.NotNil(t, cust.Orders)
}

func TestNilCacheBuildsEveryTime(t *testing.T) {
	repo := &mockRepo{counts: Counts{Products: 1}}
	svc := NewService(repo, nil, nil)
	for range 2 {
		out, err := svc.Manager(context.Background())
		require.NoError(t, err)
		require.Equal(t, 1, out.TotalProducts)
	}
	require.EqualValues(t, 2, repo.countsCalls.Load())
}

type actorTable map[int64]shared.Actor

func (a actorTable) LoadActor(_ context.Context, id int64) (shared.Actor, error) {
	actor, ok := a[id]
	if !ok {
		return shared.Actor{}, shared.ErrNotFound
	}
	return actor, nil
}

func TestHandlerRoleGates(t *testing.T) {
	svc, _, _ := newTestService(t, &mockRepo{})
	mw := rbac.Middleware{Loader: actorTable{
		1: {ID: 1, Role: string(rbac.RoleCustomer)},
		2: {ID: 2, Role: string(rbac.RoleStaff)},
		3: {ID: 3, Role: string(rbac.RoleManager)},
		4: {ID: 4, Role: string(rbac.RoleAdmin)},
	}}
	r := chi.NewRouter()
	r.Use(mw.Identify)
	r.Route("/api/dashboard", NewHandler(slog.Default(), svc, mw).MountRoutes)

	cases := []struct {
		path string
		user string
		want int
	}{
		{"/api/dashboard/customer", "1", http.StatusOK},
		{"/api/dashboard/customer", "", http.StatusUnauthorized},
		{"/api/dashboard/staff", "1", http.StatusForbidden},
		{"/api/dashboard/staff", "2", http.StatusOK},
		{"/api/dashboard/manager", "2", http.StatusForbidden},
		{"/api/dashboard/manager", "3", http.StatusOK},
		{"/api/dashboard/admin", "3", http.StatusForbidden},
		{"/api/dashboard/admin", "4", http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		if tc.user != "" {
			req.Header.Set(rbac.HeaderUserID, tc.user)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		require.Equal(t, tc.want, rec.Code, "%s as %q", tc.path, tc.user)
	}
}
