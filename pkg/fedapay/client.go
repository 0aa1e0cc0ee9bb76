package fedapay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/AmielDylan/sendbox-sub002/pkg/config"
	"github.com/AmielDylan/sendbox-sub002/pkg/logger"
)

const (
	sandboxEnv = "sandbox"
	liveEnv    = "live"

	sandboxBaseURL = "https://sandbox-api.fedapay.com/v1"
	liveBaseURL    = "https://api.fedapay.com/v1"

	idempotencyHeader = "X-Idempotency-Key"
)

var (
	errAPIKeyRequired = errors.New("fedapay api key is required")
	errInvalidEnv     = fmt.Errorf("fedapay environment must be %q or %q", sandboxEnv, liveEnv)
)

// Client is a thin HTTP client for the FedaPay payout API, the provider
// behind the mobile-money rail. FedaPay publishes no Go SDK, so the wire
// calls are made directly.
type Client struct {
	http        *http.Client
	baseURL     string
	apiKey      string
	environment string
}

// PayoutRequest describes a mobile-money payout to create and start.
type PayoutRequest struct {
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Operator       string `json:"mode"`
	PhoneNumber    string `json:"phone_number"`
	Reference      string `json:"reference"`
	IdempotencyKey string `json:"-"`
}

// Payout mirrors the provider response fields the rail consumes.
type Payout struct {
	ID        int64  `json:"id"`
	Status    string `json:"status"`
	Reference string `json:"reference"`
}

type payoutEnvelope struct {
	Payout *Payout `json:"v1/payout"`
}

type apiError struct {
	Message string `json:"message"`
}

// NewClient builds a FedaPay client for the configured environment.
func NewClient(ctx context.Context, cfg config.FedaPayConfig, logg *logger.Logger) (*Client, error) {
	env := cfg.Environment()
	var baseURL string
	switch env {
	case sandboxEnv:
		baseURL = sandboxBaseURL
	case liveEnv:
		baseURL = liveBaseURL
	default:
		return nil, errInvalidEnv
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("fedapay client initialized (%s)", env))
	}

	return &Client{
		http:        &http.Client{Timeout: cfg.Timeout},
		baseURL:     baseURL,
		apiKey:      apiKey,
		environment: env,
	}, nil
}

// Environment reports the normalized FedaPay environment in use.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// CreatePayout creates and starts a payout in one call. The idempotency key
// makes network retries of the same booking's payout safe.
func (c *Client) CreatePayout(ctx context.Context, req PayoutRequest) (*Payout, error) {
	if req.Amount <= 0 {
		return nil, errors.New("payout amount must be positive")
	}
	if req.PhoneNumber == "" || req.Operator == "" {
		return nil, errors.New("payout operator and phone number are required")
	}

	payout, err := c.do(ctx, http.MethodPost, "/payouts", req, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}

	started, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/payouts/%d/start", payout.ID), nil, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	return started, nil
}

// GetPayout retrieves the provider-reported state of a payout.
func (c *Client) GetPayout(ctx context.Context, id int64) (*Payout, error) {
	return c.do(ctx, http.MethodGet, fmt.Sprintf("/payouts/%d", id), nil, "")
}

func (c *Client) do(ctx context.Context, method, path string, body any, idempotencyKey string) (*Payout, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding fedapay request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("building fedapay request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set(idempotencyHeader, idempotencyKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fedapay %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading fedapay response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr apiError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("fedapay %s %s: %s (status %d)", method, path, apiErr.Message, resp.StatusCode)
		}
		return nil, fmt.Errorf("fedapay %s %s: status %d", method, path, resp.StatusCode)
	}

	var envelope payoutEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decoding fedapay response: %w", err)
	}
	if envelope.Payout == nil {
		return nil, errors.New("fedapay response missing payout")
	}
	return envelope.Payout, nil
}
