// Package notify turns payment events into customer notifications.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/joao-fontenele/chopflow/internal/domain"
)

// Message is the body accepted by the email service's /send endpoint.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// ReceiptSender emails a payment receipt for every payment.confirmed event.
type ReceiptSender struct {
	emailServiceURL string
	httpClient      *http.Client
	logger          *slog.Logger
}

func NewReceiptSender(emailServiceURL string, client *http.Client, logger *slog.Logger) *ReceiptSender {
	return &ReceiptSender{
		emailServiceURL: strings.TrimRight(emailServiceURL, "/"),
		httpClient:      client,
		logger:          logger,
	}
}

// Handle is a messaging.HandlerFunc. Events that cannot be delivered to
// anyone are dropped; a failing email service is returned as an error so the
// message is retried.
func (s *ReceiptSender) Handle(ctx context.Context, payload []byte) error {
	var event domain.PaymentConfirmedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		s.logger.Error("dropping malformed payment event", "error", err)
		return nil
	}

	if event.UserEmail == "" {
		s.logger.Warn("payment event without recipient", "order_id", event.OrderID)
		return nil
	}

	s.logger.Info("sending payment receipt", "order_id", event.OrderID, "source", event.Source)

	if err := s.send(ctx, Receipt(event)); err != nil {
		return fmt.Errorf("send receipt for order %s: %w", event.OrderID, err)
	}
	return nil
}

// Receipt renders the email for a confirmed payment.
func Receipt(event domain.PaymentConfirmedEvent) Message {
	return Message{
		To:      event.UserEmail,
		Subject: "Payment received for order " + event.OrderID,
		Body: fmt.Sprintf("We received your payment of %s for order %s (reference %s). Your order is confirmed.",
			event.Total.StringFixed(2), event.OrderID, event.Reference),
	}
}

func (s *ReceiptSender) send(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.emailServiceURL+"/send", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("email service returned status %d", resp.StatusCode)
	}
	return nil
}
