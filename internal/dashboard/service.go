package dashboard

import (
	"context"
	"encoding/json"
	"log/slog"

	"golang.org/x/sync/singleflight"
)

// Repository exposes the aggregate queries behind dashboards.
type Repository interface {
	CustomerOrders(ctx context.Context, userID int64, limit int) ([]OrderLine, error)
	CartSummary(ctx context.Context, userID int64) (Customer, error)
	LowStock(ctx context.Context, limit int) ([]StockItem, error)
	Counts(ctx context.Context) (Counts, error)
}

// Service builds role dashboards, caching store-wide summaries.
type Service struct {
	repo   Repository
	cache  *Cache
	group  singleflight.Group
	logger *slog.Logger
}

// NewService wires a Repository with a Cache helper.
func NewService(repo Repository, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger}
}

// Customer returns the shopper's orders and cart. It is never cached.
func (s *Service) Customer(ctx context.Context, userID int64) (Customer, error) {
	summary, err := s.repo.CartSummary(ctx, userID)
	if err != nil {
		return Customer{}, err
	}
	orders, err := s.repo.CustomerOrders(ctx, userID, recentOrdersLimit)
	if err != nil {
		return Customer{}, err
	}
	if orders == nil {
		orders = []OrderLine{}
	}
	summary.UserID = userID
	summary.Orders = orders
	return summary, nil
}

// Staff returns the restocking view.
func (s *Service) Staff(ctx context.Context) (Staff, error) {
	var out Staff
	err := s.cached(ctx, "staff", &out, func(ctx context.Context) (any, error) {
		items, err := s.repo.LowStock(ctx, lowStockLimit)
		if err != nil {
			return nil, err
		}
		counts, err := s.repo.Counts(ctx)
		if err != nil {
			return nil, err
		}
		if items == nil {
			items = []StockItem{}
		}
		return Staff{LowStock: items, LowStockCount: counts.LowStock, OutOfStockCount: counts.OutOfStock}, nil
	})
	return out, err
}

// Manager returns the store overview.
func (s *Service) Manager(ctx context.Context) (Manager, error) {
	var out Manager
	err := s.cached(ctx, "manager", &out, func(ctx context.Context) (any, error) {
		counts, err := s.repo.Counts(ctx)
		if err != nil {
			return nil, err
		}
		return managerFrom(counts), nil
	})
	return out, err
}

// Admin returns the overview plus account and order totals.
func (s *Service) Admin(ctx context.Context) (Admin, error) {
	var out Admin
	err := s.cached(ctx, "admin", &out, func(ctx context.Context) (any, error) {
		counts, err := s.repo.Counts(ctx)
		if err != nil {
			return nil, err
		}
		return Admin{Manager: managerFrom(counts), TotalUsers: counts.Users, TotalOrders: counts.Orders}, nil
	})
	return out, err
}

func managerFrom(c Counts) Manager {
	return Manager{
		TotalProducts:   c.Products,
		LowStockCount:   c.LowStock,
		OutOfStockCount: c.OutOfStock,
		PendingOrders:   c.PendingOrders,
		TotalRevenue:    c.Revenue,
	}
}

// cached serves name from Redis. Concurrent misses for the same key share
// one build.
func (s *Service) cached(ctx context.Context, name string, dest any, build func(context.Context) (any, error)) error {
	key, err := s.cache.BuildKey(ctx, "dashboard", name)
	if err != nil {
		s.logger.Warn("dashboard cache unavailable", slog.String("dashboard", name), slog.Any("error", err))
		value, err := build(ctx)
		if err != nil {
			return err
		}
		return remarshal(value, dest)
	}
	ch := s.group.DoChan(key, func() (any, error) {
		var raw json.RawMessage
		err := s.cache.FetchJSON(ctx, key, &raw, build)
		return raw, err
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		return json.Unmarshal(res.Val.(json.RawMessage), dest)
	}
}

func remarshal(value, dest any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}
