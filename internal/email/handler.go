// Package email is a development mail sink: it accepts messages over HTTP,
// logs them and keeps the most recent ones for inspection.
package email

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/joao-fontenele/chopflow/internal/httpjson"
)

const defaultOutboxSize = 100

type Handler struct {
	logger *slog.Logger

	mu     sync.Mutex
	outbox []SentMessage
	size   int
}

func NewHandler(logger *slog.Logger) *Handler {
	return &Handler{
		logger: logger,
		size:   defaultOutboxSize,
	}
}

type sendRequest struct {
	To      string `json:"to" validate:"required,email"`
	Subject string `json:"subject" validate:"required"`
	Body    string `json:"body"`
}

type SentMessage struct {
	To      string    `json:"to"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	SentAt  time.Time `json:"sent_at"`
}

func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := httpjson.Decode(w, r, &req); err != nil {
		httpjson.WriteDomainError(w, h.logger, err, "failed to decode email")
		return
	}

	h.mu.Lock()
	h.outbox = append(h.outbox, SentMessage{To: req.To, Subject: req.Subject, Body: req.Body, SentAt: time.Now().UTC()})
	if len(h.outbox) > h.size {
		h.outbox = h.outbox[len(h.outbox)-h.size:]
	}
	h.mu.Unlock()

	h.logger.Info("email sent", "to", req.To, "subject", req.Subject)
	httpjson.Write(w, h.logger, http.StatusOK, map[string]string{"status": "sent"})
}

// HandleList returns the retained messages, oldest first.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	messages := make([]SentMessage, len(h.outbox))
	copy(messages, h.outbox)
	h.mu.Unlock()

	httpjson.Write(w, h.logger, http.StatusOK, messages)
}
