package rbac

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"log/slog"

	"github.com/supermart/supermart/internal/platform/httpx"
	"github.com/supermart/supermart/internal/shared"
)

// HeaderUserID carries the id of the user authenticated upstream.
const HeaderUserID = "X-User-ID"

// ActorLoader resolves a user id into an actor.
type ActorLoader interface {
	LoadActor(ctx context.Context, id int64) (shared.Actor, error)
}

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Loader ActorLoader
	Logger *slog.Logger
}

// Identify attaches the actor named by X-User-ID to the request context.
// Requests without the header continue anonymously; an unknown id is rejected.
func (m Middleware) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if raw == "" || m.Loader == nil {
			next.ServeHTTP(w, r)
			return
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			httpx.RespondError(w, fmt.Errorf("%w: bad %s header", shared.ErrUnauthorized, HeaderUserID))
			return
		}
		actor, err := m.Loader.LoadActor(r.Context(), id)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				httpx.RespondError(w, fmt.Errorf("%w: unknown user", shared.ErrUnauthorized))
				return
			}
			m.logError("rbac load actor", err)
			httpx.RespondError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithActor(r.Context(), actor)))
	})
}

// RequireAny ensures the current actor holds at least one of the capabilities.
func (m Middleware) RequireAny(actions ...string) func(http.Handler) http.Handler {
	return m.require(actions, false)
}

// RequireAll ensures the current actor holds every capability.
func (m Middleware) RequireAll(actions ...string) func(http.Handler) http.Handler {
	return m.require(actions, true)
}

// RequireActor rejects anonymous requests without checking capabilities.
func (m Middleware) RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := shared.ActorFromContext(r.Context()); !ok {
			httpx.RespondError(w, shared.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m Middleware) require(actions []string, all bool) func(http.Handler) http.Handler {
	normalized := normalizeActions(actions)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := shared.ActorFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, shared.ErrUnauthorized)
				return
			}
			if len(normalized) == 0 || permitted(Role(actor.Role), normalized, all) {
				next.ServeHTTP(w, r)
				return
			}
			if m.Logger != nil {
				m.Logger.Info("rbac denied", slog.Int64("user_id", actor.ID), slog.String("role", actor.Role), slog.Any("actions", normalized))
			}
			httpx.RespondError(w, shared.ErrForbidden)
		})
	}
}

func (m Middleware) logError(msg string, err error) {
	if m.Logger != nil {
		m.Logger.Error(msg, slog.Any("error", err))
	}
}

func permitted(role Role, actions []string, all bool) bool {
	for _, a := range actions {
		ok := Allowed(role, a)
		if all && !ok {
			return false
		}
		if !all && ok {
			return true
		}
	}
	return all
}

func normalizeActions(actions []string) []string {
	seen := make(map[string]struct{}, len(actions))
	normalized := make([]string, 0, len(actions))
	for _, a := range actions {
		a = strings.TrimSpace(strings.ToLower(a))
		if a == "" {
			continue
		}
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		normalized = append(normalized, a)
	}
	return normalized
}
