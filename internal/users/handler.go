package users

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/joao-fontenele/chopflow/internal/auth"
	"github.com/joao-fontenele/chopflow/internal/domain"
	"github.com/joao-fontenele/chopflow/internal/httpjson"
)

type Store interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	AddFavorite(ctx context.Context, userID, restaurantID string) error
	RemoveFavorite(ctx context.Context, userID, restaurantID string) error
}

type RestaurantLookup interface {
	Get(ctx context.Context, id string) (*domain.Restaurant, error)
	ListByIDs(ctx context.Context, ids []string) ([]domain.Restaurant, error)
}

type Handler struct {
	store       Store
	restaurants RestaurantLookup
	tokens      *auth.TokenManager
	logger      *slog.Logger
}

func NewHandler(store Store, restaurants RestaurantLookup, tokens *auth.TokenManager, logger *slog.Logger) *Handler {
	return &Handler{
		store:       store,
		restaurants: restaurants,
		tokens:      tokens,
		logger:      logger,
	}
}

type registerRequest struct {
	Name     string  `json:"name" validate:"required,max=200"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=6,max=72"`
	Phone    *string `json:"phone" validate:"omitempty,max=32"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpjson.Decode(w, r, &req); err != nil {
		httpjson.WriteDomainError(w, h.logger, err, "failed to decode register request")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("failed to hash password", "error", err)
		httpjson.WriteError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	user := &domain.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:        req.Phone,
		PasswordHash: hash,
	}
	if err := h.store.Create(r.Context(), user); err != nil {
		httpjson.WriteDomainError(w, h.logger, err, "failed to create user")
		return
	}

	h.respondWithToken(w, http.StatusOK, user)
	h.logger.Info("user registered", "user_id", user.ID)
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpjson.Decode(w, r, &req); err != nil {
		httpjson.WriteDomainError(w, h.logger, err, "failed to decode login request")
		return
	}

	user, err := h.store.GetByEmail(r.Context(), req.Email)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		h.logger.Error("failed to look up user", "error", err)
		httpjson.WriteError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}
	if !auth.CheckLogin(user, req.Password) {
		httpjson.WriteError(w, h.logger, http.StatusUnauthorized, "invalid email or password")
		return
	}

	h.respondWithToken(w, http.StatusOK, user)
	h.logger.Info("user logged in", "user_id", user.ID)
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())
	httpjson.Write(w, h.logger, http.StatusOK, user)
}

func (h *Handler) HandleAddFavorite(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())
	restaurantID := r.PathValue("restaurant_id")

	if _, err := h.restaurants.Get(r.Context(), restaurantID); err != nil {
		httpjson.WriteDomainError(w, h.logger, err, "failed to get restaurant")
		return
	}

	if err := h.store.AddFavorite(r.Context(), user.ID, restaurantID); err != nil {
		httpjson.WriteDomainError(w, h.logger, err, "failed to add favorite")
		return
	}

	h.logger.Info("favorite added", "user_id", user.ID, "restaurant_id", restaurantID)
	httpjson.Write(w, h.logger, http.StatusOK, map[string]any{"success": true, "message": "Added to favorites"})
}

func (h *Handler) HandleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())
	restaurantID := r.PathValue("restaurant_id")

	if err := h.store.RemoveFavorite(r.Context(), user.ID, restaurantID); err != nil {
		httpjson.WriteDomainError(w, h.logger, err, "failed to remove favorite")
		return
	}

	h.logger.Info("favorite removed", "user_id", user.ID, "restaurant_id", restaurantID)
	httpjson.Write(w, h.logger, http.StatusOK, map[string]any{"success": true, "message": "Removed from favorites"})
}

func (h *Handler) HandleListFavorites(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	restaurants := []domain.Restaurant{}
	if len(user.Favorites) > 0 {
		var err error
		restaurants, err = h.restaurants.ListByIDs(r.Context(), user.Favorites)
		if err != nil {
			httpjson.WriteDomainError(w, h.logger, err, "failed to list favorite restaurants")
			return
		}
	}

	httpjson.Write(w, h.logger, http.StatusOK, restaurants)
}

func (h *Handler) respondWithToken(w http.ResponseWriter, status int, user *domain.User) {
	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.logger.Error("failed to issue token", "error", err, "user_id", user.ID)
		httpjson.WriteError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}
	httpjson.Write(w, h.logger, status, authResponse{Token: token, User: user})
}
