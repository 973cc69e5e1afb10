package inventory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/supermart/supermart/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListEntries(ctx context.Context, filter ListFilter) ([]StockEntry, error)
	LedgerTotals(ctx context.Context) ([]Drift, error)
}

const idempotencyScope = "stock_entry"

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort guards client-supplied request codes.
type IdempotencyPort interface {
	Reserve(ctx context.Context, scope, key string) error
	Release(ctx context.Context, scope, key string) error
}

// Service coordinates stock ledger operations.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency IdempotencyPort
	dispatcher  *Dispatcher
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, idem IdempotencyPort, dispatcher *Dispatcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:        repo,
		audit:       audit,
		idempotency: idem,
		dispatcher:  dispatcher,
		validate:    validator.New(),
		logger:      logger,
	}
}

// RecordEntry appends a manual ledger entry and adjusts the product quantity atomically.
func (s *Service) RecordEntry(ctx context.Context, input RecordInput) (StockEntry, error) {
	if err := s.validate.Struct(input); err != nil {
		return StockEntry{}, shared.FromValidator(err)
	}
	if !input.Type.Manual() {
		return StockEntry{}, shared.NewValidationError("entry_type", "must be IN, OUT or ADJUSTMENT")
	}
	if input.ActorID == 0 {
		return StockEntry{}, fmt.Errorf("inventory: record entry: %w", shared.ErrUnauthorized)
	}

	key := ""
	if input.Code != "" && s.idempotency != nil {
		key = input.Code
		if err := s.idempotency.Reserve(ctx, idempotencyScope, key); err != nil {
			return StockEntry{}, err
		}
	}

	var result MovementResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		result, err = ApplyMovement(ctx, tx, Movement{
			ProductID: input.ProductID,
			Type:      input.Type,
			Quantity:  input.Quantity,
			Note:      input.Note,
			ActorID:   input.ActorID,
		})
		return err
	})
	if err != nil {
		if key != "" {
			_ = s.idempotency.Release(ctx, idempotencyScope, key)
		}
		return StockEntry{}, err
	}

	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   fmt.Sprintf("inventory:%s", input.Type),
			Entity:   "stock_entry",
			EntityID: fmt.Sprintf("%d", result.Entry.ID),
			Meta: map[string]any{
				"product_id":    input.ProductID,
				"quantity":      input.Quantity,
				"applied":       result.Entry.Applied,
				"balance_after": result.Entry.BalanceAfter,
				"note":          input.Note,
			},
		}); err != nil {
			s.logger.Warn("audit stock entry", slog.Any("error", err))
		}
	}
	s.dispatcher.Dispatch(ctx, result)
	return result.Entry, nil
}

// ListEntries returns ledger rows newest first.
func (s *Service) ListEntries(ctx context.Context, filter ListFilter) ([]StockEntry, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, shared.NewValidationError("type", "unknown entry type")
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	return s.repo.ListEntries(ctx, filter)
}

// Reconcile compares every product quantity with the sum of its applied ledger
// deltas and returns the products that disagree. Nothing is corrected.
func (s *Service) Reconcile(ctx context.Context) ([]Drift, error) {
	totals, err := s.repo.LedgerTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("inventory: reconcile: %w", err)
	}
	drifts := make([]Drift, 0)
	for _, t := range totals {
		t.Difference = t.Quantity - t.LedgerSum
		if t.Difference != 0 {
			drifts = append(drifts, t)
		}
	}
	if len(drifts) > 0 {
		s.logger.Warn("ledger drift detected", slog.Int("products", len(drifts)))
	}
	return drifts, nil
}
