package orders

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/supermart/supermart/internal/inventory"
	"github.com/supermart/supermart/internal/rbac"
	"github.com/supermart/supermart/internal/shared"
)

const (
	maxOrderIDAttempts = 5
	idempotencyScope   = "checkout"
)

// ErrOrderIDExhausted is returned when no free order id was found.
var ErrOrderIDExhausted = errors.New("orders: could not allocate order id")

var phonePattern = regexp.MustCompile(`^[0-9+\-() ]+$`)

// RepositoryPort abstracts order persistence.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetByOrderID(ctx context.Context, orderID string) (Order, error)
	List(ctx context.Context, filter ListFilter) ([]Order, error)
	Revenue(ctx context.Context) (Revenue, error)
}

// TxRepository exposes the writes made inside checkout and status changes.
type TxRepository interface {
	inventory.TxRepository
	LoadCart(ctx context.Context, userID int64) (CartSnapshot, error)
	// LockProducts locks the rows in ascending id order.
	LockProducts(ctx context.Context, ids []int64) (map[int64]LockedProduct, error)
	// InsertOrder returns inserted=false when the order id is taken.
	InsertOrder(ctx context.Context, order Order) (Order, bool, error)
	InsertItems(ctx context.Context, orderPK int64, items []Item) ([]Item, error)
	DeleteCart(ctx context.Context, cartID int64) error
	GetOrderForUpdate(ctx context.Context, orderID string) (Order, error)
	UpdateStatus(ctx context.Context, orderPK int64, status Status, payment PaymentStatus) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort guards checkout against double submission.
type IdempotencyPort interface {
	Reserve(ctx context.Context, scope, key string) error
	Release(ctx context.Context, scope, key string) error
}

// CheckoutRecorder observes checkout outcomes.
type CheckoutRecorder interface {
	ObserveCheckout(outcome string, amount float64)
}

// Service coordinates checkout and order lifecycle.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency IdempotencyPort
	dispatcher  *inventory.Dispatcher
	metrics     CheckoutRecorder
	validate    *validator.Validate
	logger      *slog.Logger
	newOrderID  func() string
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, idem IdempotencyPort, dispatcher *inventory.Dispatcher, metrics CheckoutRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	v := validator.New()
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return &Service{
		repo:        repo,
		audit:       audit,
		idempotency: idem,
		dispatcher:  dispatcher,
		metrics:     metrics,
		validate:    v,
		logger:      logger,
		newOrderID:  NewOrderID,
	}
}

// NewOrderID returns "ORD" followed by eight upper-case hex characters.
func NewOrderID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "ORD" + strings.ToUpper(raw[:8])
}

// Checkout converts the user's cart into a confirmed order. Stock is checked
// and decremented under row locks in the same transaction that creates the
// order and deletes the cart; any failure leaves everything untouched.
func (s *Service) Checkout(ctx context.Context, userID int64, input CheckoutInput) (Order, error) {
	input.ShippingAddress = strings.TrimSpace(input.ShippingAddress)
	input.Phone = strings.TrimSpace(input.Phone)
	if err := s.validate.Struct(input); err != nil {
		s.observe("invalid", decimal.Zero)
		return Order{}, shared.FromValidator(err)
	}
	if userID == 0 {
		return Order{}, shared.ErrUnauthorized
	}

	key := ""
	if input.IdempotencyKey != "" && s.idempotency != nil {
		key = fmt.Sprintf("%d:%s", userID, input.IdempotencyKey)
		if err := s.idempotency.Reserve(ctx, idempotencyScope, key); err != nil {
			return Order{}, err
		}
	}

	var (
		order   Order
		results []inventory.MovementResult
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		order, results, err = s.commitCheckout(ctx, tx, userID, input)
		return err
	})
	if err != nil {
		if key != "" {
			_ = s.idempotency.Release(ctx, idempotencyScope, key)
		}
		s.observe(checkoutOutcome(err), decimal.Zero)
		return Order{}, err
	}

	s.record(ctx, userID, "orders:checkout", order.OrderID, map[string]any{
		"total": order.TotalAmount.StringFixed(shared.MoneyPlaces),
		"items": len(order.Items),
	})
	s.observe("success", order.TotalAmount)
	s.dispatcher.Dispatch(ctx, results...)
	s.logger.Info("checkout committed", slog.String("order_id", order.OrderID), slog.Int64("user_id", userID))
	return order, nil
}

func (s *Service) commitCheckout(ctx context.Context, tx TxRepository, userID int64, input CheckoutInput) (Order, []inventory.MovementResult, error) {
	cart, err := tx.LoadCart(ctx, userID)
	if errors.Is(err, shared.ErrNotFound) || (err == nil && len(cart.Lines) == 0) {
		return Order{}, nil, shared.ErrEmptyCart
	}
	if err != nil {
		return Order{}, nil, err
	}
	lines := slices.Clone(cart.Lines)
	slices.SortFunc(lines, func(a, b CartLine) int { return cmp.Compare(a.ProductID, b.ProductID) })

	ids := make([]int64, len(lines))
	for i, l := range lines {
		ids[i] = l.ProductID
	}
	locked, err := tx.LockProducts(ctx, ids)
	if err != nil {
		return Order{}, nil, err
	}

	var (
		short []string
		items = make([]Item, 0, len(lines))
		total = decimal.Zero
	)
	for _, l := range lines {
		p, ok := locked[l.ProductID]
		if !ok {
			return Order{}, nil, fmt.Errorf("product %d: %w", l.ProductID, shared.ErrNotFound)
		}
		if p.Quantity < l.Quantity {
			short = append(short, fmt.Sprintf("%s (available %d, requested %d)", p.SKU, p.Quantity, l.Quantity))
			continue
		}
		item := Item{ProductID: p.ID, SKU: p.SKU, Name: p.Name, Quantity: l.Quantity, Price: p.Price}
		total = total.Add(item.Subtotal())
		items = append(items, item)
	}
	if len(short) > 0 {
		return Order{}, nil, fmt.Errorf("%w: %s", shared.ErrInsufficientStock, strings.Join(short, ", "))
	}

	order, err := s.insertOrder(ctx, tx, Order{
		UserID:          userID,
		TotalAmount:     shared.Money(total),
		ShippingAddress: input.ShippingAddress,
		Phone:           input.Phone,
		Status:          StatusPending,
		PaymentStatus:   PaymentPending,
	})
	if err != nil {
		return Order{}, nil, err
	}
	order.Items, err = tx.InsertItems(ctx, order.ID, items)
	if err != nil {
		return Order{}, nil, err
	}

	results := make([]inventory.MovementResult, 0, len(items))
	for _, it := range order.Items {
		res, err := inventory.ApplyMovement(ctx, tx, inventory.Movement{
			ProductID: it.ProductID,
			Type:      inventory.EntrySale,
			Quantity:  it.Quantity,
			Note:      "checkout",
			ActorID:   userID,
			OrderID:   order.OrderID,
		})
		if err != nil {
			return Order{}, nil, err
		}
		results = append(results, res)
	}

	// Payment always settles synchronously.
	if err := settle(&order); err != nil {
		return Order{}, nil, err
	}
	if err := tx.UpdateStatus(ctx, order.ID, order.Status, order.PaymentStatus); err != nil {
		return Order{}, nil, err
	}
	if err := tx.DeleteCart(ctx, cart.ID); err != nil {
		return Order{}, nil, err
	}
	return order, results, nil
}

func (s *Service) insertOrder(ctx context.Context, tx TxRepository, order Order) (Order, error) {
	for attempt := 0; attempt < maxOrderIDAttempts; attempt++ {
		order.OrderID = s.newOrderID()
		inserted, ok, err := tx.InsertOrder(ctx, order)
		if err != nil {
			return Order{}, err
		}
		if ok {
			return inserted, nil
		}
		s.logger.Warn("order id collision", slog.String("order_id", order.OrderID))
	}
	return Order{}, ErrOrderIDExhausted
}

// settle walks the order through PENDING -> CONFIRMED and the payment through
// PENDING -> PROCESSING -> SUCCESS.
func settle(o *Order) error {
	for _, next := range []PaymentStatus{PaymentProcessing, PaymentSuccess} {
		if !CanTransitionPayment(o.PaymentStatus, next) {
			return fmt.Errorf("%w: payment %s -> %s", shared.ErrInvalidTransition, o.PaymentStatus, next)
		}
		o.PaymentStatus = next
	}
	if !CanTransition(o.Status, StatusConfirmed) {
		return fmt.Errorf("%w: %s -> %s", shared.ErrInvalidTransition, o.Status, StatusConfirmed)
	}
	o.Status = StatusConfirmed
	return nil
}

// UpdateStatus moves an order along its lifecycle. Cancelling returns every
// item to stock with a RETURN ledger entry in the same transaction.
func (s *Service) UpdateStatus(ctx context.Context, actor shared.Actor, orderID string, next Status) (Order, error) {
	if !next.Valid() {
		return Order{}, shared.NewValidationError("status", "unknown status")
	}
	var (
		order   Order
		results []inventory.MovementResult
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		order, err = tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !CanTransition(order.Status, next) {
			return fmt.Errorf("%w: %s -> %s", shared.ErrInvalidTransition, order.Status, next)
		}
		if next == StatusCancelled {
			for _, it := range order.Items {
				res, err := inventory.ApplyMovement(ctx, tx, inventory.Movement{
					ProductID: it.ProductID,
					Type:      inventory.EntryReturn,
					Quantity:  it.Quantity,
					Note:      "order cancelled",
					ActorID:   actor.ID,
					OrderID:   order.OrderID,
				})
				if err != nil {
					return err
				}
				results = append(results, res)
			}
		}
		order.Status = next
		return tx.UpdateStatus(ctx, order.ID, order.Status, order.PaymentStatus)
	})
	if err != nil {
		return Order{}, err
	}
	s.record(ctx, actor.ID, "orders:status", order.OrderID, map[string]any{"status": string(next)})
	if len(results) > 0 {
		s.dispatcher.Dispatch(ctx, results...)
	} else {
		s.dispatcher.Invalidate(ctx)
	}
	return order, nil
}

// UpdatePaymentStatus moves the payment along PENDING -> PROCESSING -> {SUCCESS, FAILED}.
func (s *Service) UpdatePaymentStatus(ctx context.Context, actor shared.Actor, orderID string, next PaymentStatus) (Order, error) {
	if !next.Valid() {
		return Order{}, shared.NewValidationError("payment_status", "unknown payment status")
	}
	var order Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		order, err = tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !CanTransitionPayment(order.PaymentStatus, next) {
			return fmt.Errorf("%w: payment %s -> %s", shared.ErrInvalidTransition, order.PaymentStatus, next)
		}
		order.PaymentStatus = next
		return tx.UpdateStatus(ctx, order.ID, order.Status, order.PaymentStatus)
	})
	if err != nil {
		return Order{}, err
	}
	s.record(ctx, actor.ID, "orders:payment", order.OrderID, map[string]any{"payment_status": string(next)})
	s.dispatcher.Invalidate(ctx)
	return order, nil
}

// Get returns an order visible to the actor: its owner or an order manager.
func (s *Service) Get(ctx context.Context, actor shared.Actor, orderID string) (Order, error) {
	order, err := s.repo.GetByOrderID(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if order.UserID != actor.ID && !rbac.Allowed(rbac.Role(actor.Role), rbac.OrderManage) {
		return Order{}, fmt.Errorf("order %s: %w", orderID, shared.ErrNotFound)
	}
	return order, nil
}

// List returns the actor's orders, newest first. Order managers may list
// every order by passing all.
func (s *Service) List(ctx context.Context, actor shared.Actor, all bool, status Status) ([]Order, error) {
	filter := ListFilter{UserID: actor.ID, Status: status, Limit: 100}
	if status != "" && !status.Valid() {
		return nil, shared.NewValidationError("status", "unknown status")
	}
	if all {
		if !rbac.Allowed(rbac.Role(actor.Role), rbac.OrderManage) {
			return nil, shared.ErrForbidden
		}
		filter.UserID = 0
	}
	return s.repo.List(ctx, filter)
}

// Revenue sums the totals of orders whose payment succeeded.
func (s *Service) Revenue(ctx context.Context) (Revenue, error) {
	return s.repo.Revenue(ctx)
}

func (s *Service) observe(outcome string, amount decimal.Decimal) {
	if s.metrics == nil {
		return
	}
	f, _ := amount.Float64()
	s.metrics.ObserveCheckout(outcome, f)
}

func (s *Service) record(ctx context.Context, actorID int64, action, orderID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "order",
		EntityID: orderID,
		Meta:     meta,
	}); err != nil {
		s.logger.Warn("audit order", slog.String("action", action), slog.Any("error", err))
	}
}

func checkoutOutcome(err error) string {
	switch {
	case errors.Is(err, shared.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, shared.ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, shared.ErrLockTimeout):
		return "lock_timeout"
	default:
		return "error"
	}
}
