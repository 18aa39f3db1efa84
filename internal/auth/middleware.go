package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/joao-fontenele/chopflow/internal/domain"
	"github.com/joao-fontenele/chopflow/internal/httpjson"
)

type UserLookup interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

type contextKey struct{}

func WithUser(ctx context.Context, u *domain.User) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

// UserFrom returns the authenticated user stored by Middleware.Authenticate.
func UserFrom(ctx context.Context) (*domain.User, bool) {
	u, ok := ctx.Value(contextKey{}).(*domain.User)
	return u, ok && u != nil
}

type Middleware struct {
	tokens     *TokenManager
	users      UserLookup
	authorizer *Authorizer
	logger     *slog.Logger
}

func NewMiddleware(tokens *TokenManager, users UserLookup, authorizer *Authorizer, logger *slog.Logger) *Middleware {
	return &Middleware{
		tokens:     tokens,
		users:      users,
		authorizer: authorizer,
		logger:     logger,
	}
}

// Authenticate requires a valid bearer token whose user still exists.
func (m *Middleware) Authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			httpjson.WriteError(w, m.logger, http.StatusUnauthorized, "missing bearer token")
			return
		}

		userID, err := m.tokens.Parse(token)
		if err != nil {
			m.logger.Debug("rejected token", "error", err)
			httpjson.WriteError(w, m.logger, http.StatusUnauthorized, "invalid token")
			return
		}

		user, err := m.users.GetByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				httpjson.WriteError(w, m.logger, http.StatusUnauthorized, "user not found")
				return
			}
			m.logger.Error("failed to load user", "error", err, "user_id", userID)
			httpjson.WriteError(w, m.logger, http.StatusInternalServerError, "internal server error")
			return
		}

		next(w, r.WithContext(WithUser(r.Context(), user)))
	}
}

// Require authenticates the caller and then checks the policy for obj/act.
func (m *Middleware) Require(obj, act string, next http.HandlerFunc) http.HandlerFunc {
	return m.Authenticate(func(w http.ResponseWriter, r *http.Request) {
		user, _ := UserFrom(r.Context())

		allowed, err := m.authorizer.Allowed(user, obj, act)
		if err != nil {
			m.logger.Error("authorization check failed", "error", err, "user_id", user.ID)
			httpjson.WriteError(w, m.logger, http.StatusInternalServerError, "internal server error")
			return
		}
		if !allowed {
			m.logger.Warn("access denied", "user_id", user.ID, "object", obj, "action", act)
			httpjson.WriteError(w, m.logger, http.StatusForbidden, "access denied")
			return
		}

		next(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
