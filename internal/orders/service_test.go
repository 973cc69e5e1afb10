package orders

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/supermart/supermart/internal/inventory"
	"github.com/supermart/supermart/internal/shared"
)

type memProduct struct {
	sku       string
	price     decimal.Decimal
	quantity  int
	threshold int
}

type memState struct {
	products map[int64]memProduct
	carts    map[int64]CartSnapshot // keyed by user
	orders   []Order
	entries  []inventory.StockEntry
}

func (s memState) clone() memState {
	out := memState{
		products: make(map[int64]memProduct, len(s.products)),
		carts:    make(map[int64]CartSnapshot, len(s.carts)),
		orders:   make([]Order, len(s.orders)),
		entries:  append([]inventory.StockEntry(nil), s.entries...),
	}
	for k, v := range s.products {
		out.products[k] = v
	}
	for k, v := range s.carts {
		v.Lines = append([]CartLine(nil), v.Lines...)
		out.carts[k] = v
	}
	for i, o := range s.orders {
		o.Items = append([]Item(nil), o.Items...)
		out.orders[i] = o
	}
	return out
}

type memoryRepo struct {
	mu        sync.Mutex
	state     memState
	failItems bool
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{state: memState{
		products: map[int64]memProduct{
			1: {sku: "MILK-1L", price: decimal.RequireFromString("1.20"), quantity: 20, threshold: 10},
			2: {sku: "BREAD", price: decimal.RequireFromString("2.35"), quantity: 3, threshold: 2},
			3: {sku: "SAFFRON", price: decimal.RequireFromString("9.99"), quantity: 1, threshold: 0},
		},
		carts: map[int64]CartSnapshot{},
	}}
}

func (r *memoryRepo) fillCart(userID int64, lines ...CartLine) {
	r.state.carts[userID] = CartSnapshot{ID: userID + 1000, Lines: lines}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	before := r.state.clone()
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.state = before
		return err
	}
	return nil
}

func (r *memoryRepo) GetByOrderID(ctx context.Context, orderID string) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.state.orders {
		if o.OrderID == orderID {
			return o, nil
		}
	}
	return Order{}, shared.ErrNotFound
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Order
	for i := len(r.state.orders) - 1; i >= 0; i-- {
		o := r.state.orders[i]
		if filter.UserID != 0 && o.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (r *memoryRepo) Revenue(ctx context.Context) (Revenue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rev := Revenue{Total: decimal.Zero}
	for _, o := range r.state.orders {
		if o.PaymentStatus == PaymentSuccess {
			rev.Total = rev.Total.Add(o.TotalAmount)
			rev.Orders++
		}
	}
	return rev, nil
}

func (tx *memoryTx) GetProductForUpdate(ctx context.Context, id int64) (inventory.StockProduct, error) {
	p, ok := tx.repo.state.products[id]
	if !ok {
		return inventory.StockProduct{}, shared.ErrNotFound
	}
	return inventory.StockProduct{ID: id, SKU: p.sku, Quantity: p.quantity, LowStockThreshold: p.threshold}, nil
}

func (tx *memoryTx) AddProductQuantity(ctx context.Context, id int64, delta int) (int, error) {
	p := tx.repo.state.products[id]
	if p.quantity+delta < 0 {
		return 0, shared.ErrInsufficientStock
	}
	p.quantity += delta
	tx.repo.state.products[id] = p
	return p.quantity, nil
}

func (tx *memoryTx) InsertEntry(ctx context.Context, e inventory.StockEntry) (inventory.StockEntry, error) {
	e.ID = int64(len(tx.repo.state.entries) + 1)
	tx.repo.state.entries = append(tx.repo.state.entries, e)
	return e, nil
}

func (tx *memoryTx) LoadCart(ctx context.Context, userID int64) (CartSnapshot, error) {
	c, ok := tx.repo.state.carts[userID]
	if !ok {
		return CartSnapshot{}, shared.ErrNotFound
	}
	return c, nil
}

func (tx *memoryTx) LockProducts(ctx context.Context, ids []int64) (map[int64]LockedProduct, error) {
	out := make(map[int64]LockedProduct, len(ids))
	for _, id := range ids {
		if p, ok := tx.repo.state.products[id]; ok {
			out[id] = LockedProduct{ID: id, SKU: p.sku, Name: p.sku, Price: p.price, Quantity: p.quantity}
		}
	}
	return out, nil
}

func (tx *memoryTx) InsertOrder(ctx context.Context, o Order) (Order, bool, error) {
	for _, existing := range tx.repo.state.orders {
		if existing.OrderID == o.OrderID {
			return Order{}, false, nil
		}
	}
	o.ID = int64(len(tx.repo.state.orders) + 1)
	o.CreatedAt = time.Now()
	tx.repo.state.orders = append(tx.repo.state.orders, o)
	return o, true, nil
}

func (tx *memoryTx) InsertItems(ctx context.Context, orderPK int64, items []Item) ([]Item, error) {
	if tx.repo.failItems {
		return nil, errors.New("disk full")
	}
	out := make([]Item, len(items))
	for i, it := range items {
		it.ID = int64(i + 1)
		it.OrderID = orderPK
		out[i] = it
	}
	tx.repo.state.orders[orderPK-1].Items = out
	return out, nil
}

func (tx *memoryTx) DeleteCart(ctx context.Context, cartID int64) error {
	for user, c := range tx.repo.state.carts {
		if c.ID == cartID {
			delete(tx.repo.state.carts, user)
		}
	}
	return nil
}

func (tx *memoryTx) GetOrderForUpdate(ctx context.Context, orderID string) (Order, error) {
	for _, o := range tx.repo.state.orders {
		if o.OrderID == orderID {
			return o, nil
		}
	}
	return Order{}, shared.ErrNotFound
}

func (tx *memoryTx) UpdateStatus(ctx context.Context, orderPK int64, status Status, payment PaymentStatus) error {
	o := &tx.repo.state.orders[orderPK-1]
	o.Status = status
	o.PaymentStatus = payment
	return nil
}

var validInput = CheckoutInput{ShippingAddress: "12 Market Street", Phone: "+62 812-3456"}

func TestCheckoutCommitsOrder(t *testing.T) {
	repo := newMemoryRepo()
	repo.fillCart(7, CartLine{ProductID: 2, Quantity: 2}, CartLine{ProductID: 1, Quantity: 3})
	svc := NewService(repo, nil, nil, nil, nil, nil)

	order, err := svc.Checkout(context.Background(), 7, validInput)
	require.NoError(t, err)
	require.Regexp(t, `^ORD[0-9A-F]{8}$`, order.OrderID)
	require.Equal(t, StatusConfirmed, order.Status)
	require.Equal(t, PaymentSuccess, order.PaymentStatus)
	require.Equal(t, "8.30", order.TotalAmount.StringFixed(2))
	require.Len(t, order.Items, 2)
	require.Equal(t, int64(1), order.Items[0].ProductID)

	require.Equal(t, 17, repo.state.products[1].quantity)
	require.Equal(t, 1, repo.state.products[2].quantity)
	require.NotContains(t, repo.state.carts, int64(7))

	require.Len(t, repo.state.entries, 2)
	for _, e := range repo.state.entries {
		require.Equal(t, inventory.EntrySale, e.Type)
		require.Equal(t, order.OrderID, e.OrderID)
		require.Less(t, e.Applied, 0)
	}
}

func TestCheckoutIsAtomic(t *testing.T) {
	repo := newMemoryRepo()
	repo.fillCart(7, CartLine{ProductID: 1, Quantity: 5}, CartLine{ProductID: 2, Quantity: 4})
	svc := NewService(repo, nil, nil, nil, nil, nil)

	_, err := svc.Checkout(context.Background(), 7, validInput)
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
	require.Contains(t, err.Error(), "BREAD")
	require.NotContains(t, err.Error(), "MILK-1L")

	require.Equal(t, 20, repo.state.products[1].quantity)
	require.Equal(t, 3, repo.state.products[2].quantity)
	require.Empty(t, repo.state.orders)
	require.Empty(t, repo.state.entries)
	require.Len(t, repo.state.carts[7].Lines, 2)
}

func TestCheckoutRollsBackOnWriteFailure(t *testing.T) {
	repo := newMemoryRepo()
	repo.fillCart(7, CartLine{ProductID: 1, Quantity: 5})
	repo.failItems = true
	svc := NewService(repo, nil, nil, nil, nil, nil)

	_, err := svc.Checkout(context.Background(), 7, validInput)
	require.Error(t, err)
	require.Equal(t, 20, repo.state.products[1].quantity)
	require.Empty(t, repo.state.orders)
	require.Contains(t, repo.state.carts, int64(7))
}

func TestCheckoutValidation(t *testing.T) {
	repo := newMemoryRepo()
	repo.fillCart(7, CartLine{ProductID: 1, Quantity: 1})
	svc := NewService(repo, nil, nil, nil, nil, nil)
	ctx := context.Background()

	for _, in := range []CheckoutInput{
		{ShippingAddress: "abc", Phone: "0812"},
		{ShippingAddress: "12 Market Street"},
		{ShippingAddress: "12 Market Street", Phone: "0812345678901234"},
		{ShippingAddress: "12 Market Street", Phone: "call me"},
		{ShippingAddress: strings.Repeat("x", 501), Phone: "0812"},
	} {
		_, err := svc.Checkout(ctx, 7, in)
		require.ErrorIs(t, err, shared.ErrValidation)
	}
	require.Equal(t, 20, repo.state.products[1].quantity)

	_, err := svc.Checkout(ctx, 8, validInput)
	require.ErrorIs(t, err, shared.ErrEmptyCart)

	repo.fillCart(9)
	_, err = svc.Checkout(ctx, 9, validInput)
	require.ErrorIs(t, err, shared.ErrEmptyCart)
}

func TestOrderItemKeepsPriceSnapshot(t *testing.T) {
	repo := newMemoryRepo()
	repo.fillCart(7, CartLine{ProductID: 1, Quantity: 2})
	svc := NewService(repo, nil, nil, nil, nil, nil)
	ctx := context.Background()

	order, err := svc.Checkout(ctx, 7, validInput)
	require.NoError(t, err)

	p := repo.state.products[1]
	p.price = decimal.RequireFromString("5.00")
	repo.state.products[1] = p

	stored, err := svc.Get(ctx, shared.Actor{ID: 7, Role: "CUSTOMER"}, order.OrderID)
	require.NoError(t, err)
	require.Equal(t, "1.20", stored.Items[0].Price.StringFixed(2))
	require.Equal(t, "2.40", stored.TotalAmount.StringFixed(2))
}

func TestConcurrentCheckoutOfLastUnit(t *testing.T) {
	repo := newMemoryRepo()
	repo.fillCart(7, CartLine{ProductID: 3, Quantity: 1})
	repo.fillCart(8, CartLine{ProductID: 3, Quantity: 1})
	svc := NewService(repo, nil, nil, nil, nil, nil)

	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	for i, user := range []int64{7, 8} {
		wg.Add(1)
		go func(i int, user int64) {
			defer wg.Done()
			_, errs[i] = svc.Checkout(context.Background(), user, validInput)
		}(i, user)
	}
	wg.Wait()

	var ok, short int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, shared.ErrInsufficientStock):
			short++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, ok)
	require.Equal(t, 1, short)
	require.Equal(t, 0, repo.state.products[3].quantity)
	require.Len(t, repo.state.orders, 1)
}

func TestCheckoutRetriesOrderIDCollision(t *testing.T) {
	repo := newMemoryRepo()
	repo.fillCart(7, CartLine{ProductID: 1, Quantity: 1})
	repo.fillCart(8, CartLine{ProductID: 1, Quantity: 1})
	svc := NewService(repo, nil, nil, nil, nil, nil)
	ids := []string{"ORDAAAAAAAA", "ORDAAAAAAAA", "ORDBBBBBBBB"}
	svc.newOrderID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}
	ctx := context.Background()

	first, err := svc.Checkout(ctx, 7, validInput)
	require.NoError(t, err)
	second, err := svc.Checkout(ctx, 8, validInput)
	require.NoError(t, err)
	require.Equal(t, "ORDAAAAAAAA", first.OrderID)
	require.Equal(t, "ORDBBBBBBBB", second.OrderID)

	repo.fillCart(9, CartLine{ProductID: 1, Quantity: 1})
	svc.newOrderID = func() string { return "ORDAAAAAAAA" }
	_, err = svc.Checkout(ctx, 9, validInput)
	require.ErrorIs(t, err, ErrOrderIDExhausted)
}

type memoryIdempotency struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (m *memoryIdempotency) Reserve(ctx context.Context, scope, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[scope+"/"+key] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[scope+"/"+key] = true
	return nil
}

func (m *memoryIdempotency) Release(ctx context.Context, scope, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, scope+"/"+key)
	return nil
}

func TestCheckoutIdempotencyKey(t *testing.T) {
	repo := newMemoryRepo()
	repo.fillCart(7, CartLine{ProductID: 1, Quantity: 1})
	idem := &memoryIdempotency{keys: map[string]bool{}}
	svc := NewService(repo, nil, idem, nil, nil, nil)
	ctx := context.Background()

	in := validInput
	in.IdempotencyKey = "abc"
	_, err := svc.Checkout(ctx, 7, in)
	require.NoError(t, err)

	repo.fillCart(7, CartLine{ProductID: 1, Quantity: 1})
	_, err = svc.Checkout(ctx, 7, in)
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)
	require.Len(t, repo.state.orders, 1)
}

type outcomeRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (o *outcomeRecorder) ObserveCheckout(outcome string, amount float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func TestCheckoutMetricsAndAlerts(t *testing.T) {
	repo := newMemoryRepo()
	repo.fillCart(7, CartLine{ProductID: 1, Quantity: 12})
	metrics := &outcomeRecorder{}
	alerts := &lowStockRecorder{}
	svc := NewService(repo, nil, nil, inventory.NewDispatcher(alerts, nil, nil, nil), metrics, nil)
	ctx := context.Background()

	_, err := svc.Checkout(ctx, 7, validInput)
	require.NoError(t, err)
	_, err = svc.Checkout(ctx, 7, validInput)
	require.ErrorIs(t, err, shared.ErrEmptyCart)

	require.Equal(t, []string{"success", "empty_cart"}, metrics.outcomes)
	require.Len(t, alerts.events, 1)
	require.Equal(t, 8, alerts.events[0].Quantity)
}

type lowStockRecorder struct {
	events []inventory.LowStockEvent
}

func (l *lowStockRecorder) HandleLowStock(ctx context.Context, evt inventory.LowStockEvent) error {
	l.events = append(l.events, evt)
	return nil
}
