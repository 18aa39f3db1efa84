package payments

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/joao-fontenele/chopflow/internal/config"
)

const maxGatewayResponseBytes = 1 << 20

// ErrBreakerOpen is returned while the circuit breaker rejects gateway calls.
var ErrBreakerOpen = errors.New("payment gateway circuit open")

// RejectedError is a well-formed gateway answer with status=false, such as
// an invalid amount or an unknown reference.
type RejectedError struct {
	StatusCode int
	Message    string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("gateway rejected request (%d): %s", e.StatusCode, e.Message)
}

// Metadata is the correlation data attached at initialization and echoed
// back on verify and in webhooks.
type Metadata struct {
	OrderID string `json:"order_id"`
	UserID  string `json:"user_id"`
}

// UnmarshalJSON tolerates the gateway sending metadata as an empty string or
// null when none was attached.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		*m = Metadata{}
		return nil
	}
	type plain Metadata
	var p plain
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return err
	}
	*m = Metadata(p)
	return nil
}

type InitializeRequest struct {
	Email       string   `json:"email"`
	Amount      int64    `json:"amount"`
	Reference   string   `json:"reference"`
	CallbackURL string   `json:"callback_url"`
	Metadata    Metadata `json:"metadata"`
}

type InitializeResult struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// Transaction is the subset of the gateway's transaction record the
// reconciliation flow reads.
type Transaction struct {
	Status    string   `json:"status"`
	Reference string   `json:"reference"`
	Amount    int64    `json:"amount"`
	Currency  string   `json:"currency"`
	Channel   string   `json:"channel"`
	PaidAt    string   `json:"paid_at"`
	Metadata  Metadata `json:"metadata"`
}

func (t *Transaction) Succeeded() bool {
	return t != nil && t.Status == "success"
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// response is what crosses the breaker: a decoded envelope plus the HTTP
// status it came with.
type response struct {
	statusCode int
	body       envelope
}

// Client talks to a Paystack-compatible transaction API. Calls go through a
// circuit breaker; a gateway that answers with status=false does not count
// as a breaker failure, only transport errors and 5xx responses do.
type Client struct {
	baseURL    string
	secretKey  string
	timeout    time.Duration
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*response]
	logger     *slog.Logger
}

func NewClient(cfg config.PaymentConfig, logger *slog.Logger) *Client {
	name := "payment-gateway"
	breaker := gobreaker.NewCircuitBreaker[*response](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		secretKey: cfg.SecretKey,
		timeout:   cfg.Timeout,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: breaker,
		logger:  logger,
	}
}

// Initialize registers a transaction and returns the hosted checkout URL.
func (c *Client) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal initialize request: %w", err)
	}

	data, err := c.call(ctx, http.MethodPost, "/transaction/initialize", payload)
	if err != nil {
		return nil, err
	}

	var result InitializeResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode initialize data: %w", err)
	}
	return &result, nil
}

// Verify fetches the current state of the transaction named by reference.
func (c *Client) Verify(ctx context.Context, reference string) (*Transaction, error) {
	data, err := c.call(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		return nil, err
	}

	var tx Transaction
	if err := json.Unmarshal(data, &tx); err != nil {
		return nil, fmt.Errorf("decode verify data: %w", err)
	}
	return &tx, nil
}

func (c *Client) call(ctx context.Context, method, path string, payload []byte) (json.RawMessage, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.breaker.Execute(func() (*response, error) {
		return c.do(ctx, method, path, payload)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %w", ErrBreakerOpen, err)
		}
		return nil, err
	}

	if !resp.body.Status {
		message := resp.body.Message
		if message == "" {
			message = http.StatusText(resp.statusCode)
		}
		return nil, &RejectedError{StatusCode: resp.statusCode, Message: message}
	}
	return resp.body.Data, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) (*response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create gateway request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxGatewayResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read gateway response: %w", err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%s %s: gateway returned status %d", method, path, resp.StatusCode)
	}

	out := &response{statusCode: resp.StatusCode}
	if err := json.Unmarshal(raw, &out.body); err != nil {
		return nil, fmt.Errorf("decode gateway response (status %d): %w", resp.StatusCode, err)
	}
	return out, nil
}
