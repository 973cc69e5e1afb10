package users

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/supermart/supermart/internal/rbac"
	"github.com/supermart/supermart/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context, limit, offset int) ([]User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	CreateUser(ctx context.Context, u User) (User, error)
	UpdateRole(ctx context.Context, id int64, role rbac.Role) (User, error)
	UpdateProfile(ctx context.Context, u User) (User, error)
	DeleteUser(ctx context.Context, id int64) error
	CountUsers(ctx context.Context) (int, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles user business logic.
type Service struct {
	repo     RepositoryPort
	audit    AuditPort
	validate *validator.Validate
	logger   *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, validate: validator.New(), logger: logger}
}

// ListUsers returns the requested page of users with its pagination metadata.
func (s *Service) ListUsers(ctx context.Context, page, perPage int) ([]User, shared.Pagination, error) {
	total, err := s.repo.CountUsers(ctx)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	p := shared.NewPagination(page, perPage, total)
	list, err := s.repo.ListUsers(ctx, p.PerPage, (p.Page-1)*p.PerPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, p, nil
}

// CountUsers returns the number of accounts.
func (s *Service) CountUsers(ctx context.Context) (int, error) {
	return s.repo.CountUsers(ctx)
}

// LoadActor resolves the actor for a request.
func (s *Service) LoadActor(ctx context.Context, id int64) (shared.Actor, error) {
	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return shared.Actor{}, err
	}
	return shared.Actor{ID: u.ID, Email: u.Email, Role: string(u.Role)}, nil
}

// Create registers an account, deriving its role from the email unless given.
func (s *Service) Create(ctx context.Context, actorID int64, input CreateInput) (User, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Username = strings.TrimSpace(input.Username)
	input.Role = strings.ToUpper(strings.TrimSpace(input.Role))
	if err := s.validate.Struct(input); err != nil {
		return User{}, shared.FromValidator(err)
	}
	role := RoleForEmail(input.Email)
	if input.Role != "" {
		role = rbac.Role(input.Role)
	}
	u, err := s.repo.CreateUser(ctx, User{
		Email:    input.Email,
		Username: input.Username,
		Role:     role,
		Phone:    input.Phone,
		Address:  input.Address,
	})
	if err != nil {
		return User{}, err
	}
	s.record(ctx, actorID, "users:create", u.ID, map[string]any{"email": u.Email, "role": string(u.Role)})
	return u, nil
}

// Profile returns the account of the acting user.
func (s *Service) Profile(ctx context.Context, actor shared.Actor) (User, error) {
	if actor.ID == 0 {
		return User{}, shared.ErrUnauthorized
	}
	return s.repo.GetUser(ctx, actor.ID)
}

// UpdateProfile lets the acting user change their own username, phone and address.
func (s *Service) UpdateProfile(ctx context.Context, actor shared.Actor, input ProfileInput) (User, error) {
	if actor.ID == 0 {
		return User{}, shared.ErrUnauthorized
	}
	for _, f := range []*string{input.Username, input.Phone, input.Address} {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}
	if err := s.validate.Struct(input); err != nil {
		return User{}, shared.FromValidator(err)
	}
	u, err := s.repo.GetUser(ctx, actor.ID)
	if err != nil {
		return User{}, err
	}
	if input.Username != nil {
		u.Username = *input.Username
	}
	if input.Phone != nil {
		u.Phone = *input.Phone
	}
	if input.Address != nil {
		u.Address = *input.Address
	}
	u, err = s.repo.UpdateProfile(ctx, u)
	if err != nil {
		return User{}, err
	}
	s.record(ctx, actor.ID, "users:profile", u.ID, nil)
	return u, nil
}

// ChangeRole assigns a new role. Admins cannot demote themselves.
func (s *Service) ChangeRole(ctx context.Context, actor shared.Actor, id int64, raw string) (User, error) {
	role, ok := rbac.ParseRole(raw)
	if !ok {
		return User{}, shared.NewValidationError("role", "must be one of ADMIN MANAGER STAFF CUSTOMER")
	}
	if actor.ID == id && role != rbac.Role(actor.Role) {
		return User{}, fmt.Errorf("%w: cannot change own role", shared.ErrForbidden)
	}
	u, err := s.repo.UpdateRole(ctx, id, role)
	if err != nil {
		return User{}, err
	}
	s.record(ctx, actor.ID, "users:role", id, map[string]any{"role": string(role)})
	return u, nil
}

// Delete removes an account together with its cart and orders.
func (s *Service) Delete(ctx context.Context, actor shared.Actor, id int64) error {
	if actor.ID == id {
		return fmt.Errorf("%w: cannot delete own account", shared.ErrForbidden)
	}
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actor.ID, "users:delete", id, nil)
	return nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, userID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user",
		EntityID: fmt.Sprintf("%d", userID),
		Meta:     meta,
	}); err != nil {
		s.logger.Warn("audit user", slog.String("action", action), slog.Any("error", err))
	}
}
