package payments

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/chopflow/internal/auth"
	"github.com/joao-fontenele/chopflow/internal/httpjson"
)

const maxWebhookBytes = 1 << 20

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

type initializeRequest struct {
	OrderID     string `json:"order_id" validate:"required"`
	CallbackURL string `json:"callback_url" validate:"required,url"`
}

func (h *Handler) HandleInitialize(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	var req initializeRequest
	if err := httpjson.Decode(w, r, &req); err != nil {
		httpjson.WriteDomainError(w, h.logger, err, "failed to decode payment initialization")
		return
	}

	result, err := h.service.Initialize(r.Context(), user, req.OrderID, req.CallbackURL)
	if err != nil {
		httpjson.WriteDomainError(w, h.logger, err, "failed to initialize payment")
		return
	}

	httpjson.Write(w, h.logger, http.StatusOK, result)
}

func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Verify(r.Context(), r.PathValue("reference"))
	if err != nil {
		httpjson.WriteDomainError(w, h.logger, err, "failed to verify payment")
		return
	}

	httpjson.Write(w, h.logger, http.StatusOK, result)
}

// HandleWebhook needs the raw body: the signature covers the exact bytes
// the gateway sent.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpjson.WriteError(w, h.logger, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		httpjson.WriteError(w, h.logger, http.StatusBadRequest, "failed to read body")
		return
	}

	if err := h.service.HandleWebhook(r.Context(), body, r.Header.Get(SignatureHeader)); err != nil {
		httpjson.WriteDomainError(w, h.logger, err, "failed to process webhook")
		return
	}

	httpjson.Write(w, h.logger, http.StatusOK, map[string]string{"status": "ok"})
}
