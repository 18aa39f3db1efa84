package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/joao-fontenele/chopflow/internal/config"
	"github.com/joao-fontenele/chopflow/internal/domain"
	"github.com/joao-fontenele/chopflow/internal/telemetry"
)

const (
	MockPrefix         = "mock_"
	EventChargeSuccess = "charge.success"

	SourceVerify  = "verify"
	SourceWebhook = "webhook"
	SourceMock    = "mock"
)

var tracer = otel.Tracer("chopflow/payments")

type OrderStore interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetForUser(ctx context.Context, id, userID string) (*domain.Order, error)
	SetPaymentReference(ctx context.Context, id, reference string) error
	MarkPaid(ctx context.Context, id string) (alreadyPaid bool, err error)
}

type UserLookup interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// Gateway is implemented by Client.
type Gateway interface {
	Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error)
	Verify(ctx context.Context, reference string) (*Transaction, error)
}

type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

type Initialization struct {
	AuthorizationURL string `json:"authorization_url"`
	Reference        string `json:"reference"`
	Mock             bool   `json:"mock,omitempty"`
}

type Verification struct {
	Status      string       `json:"status"`
	Mock        bool         `json:"mock,omitempty"`
	Transaction *Transaction `json:"data,omitempty"`
}

// WebhookEvent is the envelope the gateway POSTs to the webhook endpoint.
type WebhookEvent struct {
	Event string      `json:"event"`
	Data  Transaction `json:"data"`
}

// Service reconciles orders with the payment gateway. Three paths can mark an
// order paid: a client-triggered verify, a signed webhook, and mock
// references when no secret key is configured. All of them go through
// confirm, which is safe to repeat.
type Service struct {
	cfg       config.PaymentConfig
	orders    OrderStore
	users     UserLookup
	gateway   Gateway
	publisher Publisher
	metrics   *telemetry.PaymentMetrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewService wires the reconciliation flow. publisher may be nil.
func NewService(cfg config.PaymentConfig, orders OrderStore, users UserLookup, gateway Gateway,
	publisher Publisher, metrics *telemetry.PaymentMetrics, logger *slog.Logger) *Service {
	return &Service{
		cfg:       cfg,
		orders:    orders,
		users:     users,
		gateway:   gateway,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Initialize starts a payment for one of the user's orders and stores the
// reference on it, replacing any earlier reference.
func (s *Service) Initialize(ctx context.Context, user *domain.User, orderID, callbackURL string) (*Initialization, error) {
	ctx, span := tracer.Start(ctx, "payments.Initialize", trace.WithAttributes(
		attribute.String("order.id", orderID),
		attribute.Bool("payment.mock", s.cfg.MockMode()),
	))
	defer span.End()

	order, err := s.orders.GetForUser(ctx, orderID, user.ID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus == domain.PaymentStatusPaid {
		return nil, fmt.Errorf("%w: order already paid", domain.ErrConflict)
	}

	if s.cfg.MockMode() {
		reference := MockPrefix + order.ID
		redirect, err := mockRedirect(callbackURL, reference)
		if err != nil {
			return nil, err
		}
		if err := s.orders.SetPaymentReference(ctx, order.ID, reference); err != nil {
			return nil, fmt.Errorf("store mock reference: %w", err)
		}
		s.metrics.Initialized(ctx, SourceMock)
		s.logger.Info("mock payment initialized", "order_id", order.ID, "reference", reference)
		return &Initialization{AuthorizationURL: redirect, Reference: reference, Mock: true}, nil
	}

	reference := s.newReference(order.ID)
	result, err := s.gateway.Initialize(ctx, InitializeRequest{
		Email:       user.Email,
		Amount:      MinorUnits(order.Total),
		Reference:   reference,
		CallbackURL: callbackURL,
		Metadata:    Metadata{OrderID: order.ID, UserID: user.ID},
	})
	if err != nil {
		s.recordGatewayError(ctx, span, "initialize", err)
		return nil, gatewayError(err, "payment initialization failed")
	}

	if err := s.orders.SetPaymentReference(ctx, order.ID, reference); err != nil {
		return nil, fmt.Errorf("store payment reference: %w", err)
	}

	returned := result.Reference
	if returned == "" {
		returned = reference
	}

	s.metrics.Initialized(ctx, "live")
	s.logger.Info("payment initialized", "order_id", order.ID, "reference", reference)
	return &Initialization{AuthorizationURL: result.AuthorizationURL, Reference: returned}, nil
}

// Verify asks the gateway about reference and marks the order paid on
// success. The order is taken from the gateway's metadata, never from the
// caller, except for mock_ references, which confirm their order directly
// unless payment.verify_mock_references is set in live mode.
func (s *Service) Verify(ctx context.Context, reference string) (*Verification, error) {
	ctx, span := tracer.Start(ctx, "payments.Verify", trace.WithAttributes(
		attribute.String("payment.reference", reference),
	))
	defer span.End()

	if orderID, ok := strings.CutPrefix(reference, MockPrefix); ok && s.cfg.TrustsMockReferences() {
		if orderID == "" {
			return nil, fmt.Errorf("%w: order not found", domain.ErrNotFound)
		}
		if _, err := s.confirm(ctx, orderID, reference, SourceMock); err != nil {
			return nil, err
		}
		return &Verification{Status: "success", Mock: true}, nil
	}
	if s.cfg.MockMode() {
		return nil, fmt.Errorf("%w: payment gateway not configured", domain.ErrInvalid)
	}

	tx, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		var rejected *RejectedError
		if errors.As(err, &rejected) {
			s.logger.Info("gateway rejected verification", "reference", reference, "message", rejected.Message)
			return &Verification{Status: "failed"}, nil
		}
		s.recordGatewayError(ctx, span, "verify", err)
		return nil, gatewayError(err, "payment verification failed")
	}

	if !tx.Succeeded() || tx.Metadata.OrderID == "" {
		s.logger.Info("payment not successful", "reference", reference, "gateway_status", tx.Status)
		return &Verification{Status: "failed"}, nil
	}

	span.SetAttributes(attribute.String("order.id", tx.Metadata.OrderID))
	if _, err := s.confirm(ctx, tx.Metadata.OrderID, reference, SourceVerify); err != nil {
		return nil, err
	}
	return &Verification{Status: "success", Transaction: tx}, nil
}

// HandleWebhook authenticates and applies one gateway push. Replays are
// harmless: a repeated charge.success leaves the order as it is.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	ctx, span := tracer.Start(ctx, "payments.HandleWebhook")
	defer span.End()

	if !s.cfg.MockMode() && !ValidSignature(s.cfg.SecretKey, body, signature) {
		s.metrics.Webhook(ctx, "invalid_signature")
		span.SetStatus(codes.Error, "invalid signature")
		return fmt.Errorf("%w: invalid signature", domain.ErrUnauthorized)
	}

	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		s.metrics.Webhook(ctx, "malformed")
		return fmt.Errorf("%w: invalid webhook payload", domain.ErrInvalid)
	}
	span.SetAttributes(attribute.String("payment.event", event.Event))

	orderID := event.Data.Metadata.OrderID
	if event.Event != EventChargeSuccess || orderID == "" {
		s.metrics.Webhook(ctx, "ignored")
		s.logger.Debug("webhook ignored", "event", event.Event, "reference", event.Data.Reference)
		return nil
	}

	span.SetAttributes(attribute.String("order.id", orderID))
	if _, err := s.confirm(ctx, orderID, event.Data.Reference, SourceWebhook); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.metrics.Webhook(ctx, "unknown_order")
			s.logger.Warn("webhook for unknown order", "order_id", orderID, "reference", event.Data.Reference)
			return nil
		}
		s.metrics.Webhook(ctx, "error")
		return err
	}

	s.metrics.Webhook(ctx, "applied")
	return nil
}

// confirm applies the paid transition and, the first time only, publishes
// payment.confirmed.
func (s *Service) confirm(ctx context.Context, orderID, reference, source string) (changed bool, err error) {
	alreadyPaid, err := s.orders.MarkPaid(ctx, orderID)
	if err != nil {
		return false, fmt.Errorf("mark order %s paid: %w", orderID, err)
	}
	changed = !alreadyPaid
	s.metrics.Confirmed(ctx, source, changed)

	if !changed {
		s.logger.Info("payment already confirmed", "order_id", orderID, "source", source)
		return false, nil
	}
	s.logger.Info("payment confirmed", "order_id", orderID, "reference", reference, "source", source)

	if s.publisher != nil {
		s.publishConfirmed(ctx, orderID, reference, source)
	}
	return true, nil
}

func (s *Service) publishConfirmed(ctx context.Context, orderID, reference, source string) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		s.logger.Error("failed to load paid order for event", "error", err, "order_id", orderID)
		return
	}

	event := domain.PaymentConfirmedEvent{
		OrderID:   order.ID,
		UserID:    order.UserID,
		Reference: reference,
		Total:     order.Total,
		Source:    source,
		Timestamp: s.now(),
	}
	if user, err := s.users.GetByID(ctx, order.UserID); err != nil {
		s.logger.Warn("failed to load order owner for event", "error", err, "order_id", orderID)
	} else {
		event.UserEmail = user.Email
	}

	if err := s.publisher.Publish(ctx, order.ID, event); err != nil {
		s.logger.Error("failed to publish payment confirmed event", "error", err, "order_id", orderID)
	}
}

func (s *Service) newReference(orderID string) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s_%s_%s", s.cfg.ReferencePrefix, orderID, random)
}

func (s *Service) recordGatewayError(ctx context.Context, span trace.Span, operation string, err error) {
	s.metrics.GatewayError(ctx, operation)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.logger.Error("payment gateway call failed", "operation", operation, "error", err)
}

// gatewayError turns a client failure into a 400-class domain error. A
// gateway rejection keeps the gateway's message.
func gatewayError(err error, fallback string) error {
	var rejected *RejectedError
	if errors.As(err, &rejected) && rejected.Message != "" {
		return fmt.Errorf("%w: %s", domain.ErrGateway, rejected.Message)
	}
	return fmt.Errorf("%w: %s", domain.ErrGateway, fallback)
}

// MinorUnits converts a decimal amount to the gateway's smallest currency
// unit, truncating anything below it.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).IntPart()
}

func mockRedirect(callbackURL, reference string) (string, error) {
	u, err := url.Parse(callbackURL)
	if err != nil {
		return "", fmt.Errorf("%w: callback_url is not a valid URL", domain.ErrInvalid)
	}
	q := u.Query()
	q.Set("reference", reference)
	q.Set("status", "success")
	u.RawQuery = q.Encode()
	return u.String(), nil
}
