package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrUnavailable is a transient transport or server failure; the step
	// that hit it may be retried with the same idempotency key.
	ErrUnavailable = errors.New("payment gateway unavailable")
	// ErrRejected means the gateway refused the request outright; the
	// attempt is over.
	ErrRejected = errors.New("payment gateway rejected request")
	// ErrOutcomeUnknown means a confirmation call timed out or broke
	// mid-flight. The charge may or may not have happened; the caller must
	// reconcile, never guess.
	ErrOutcomeUnknown = errors.New("payment outcome unknown")
)

const (
	OutcomeSucceeded = "succeeded"
	OutcomeDeclined  = "declined"
)

// Intent states reported by the gateway status endpoint.
const (
	IntentRequiresConfirmation = "requires_confirmation"
	IntentSucceeded            = "succeeded"
	IntentDeclined             = "declined"
)

type Config struct {
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	ConfirmTimeout time.Duration
}

// Client is a thin wrapper over the payment processor's HTTP API. Every
// call carries an explicit deadline; intent creation carries the caller's
// idempotency key so a retried request cannot create two live intents.
type Client struct {
	cfg     Config
	http    *http.Client
	loggerf func(format string, args ...interface{})
}

func New(cfg Config, loggerf func(format string, args ...interface{})) *Client {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = 20 * time.Second
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{},
		loggerf: loggerf,
	}
}

type Intent struct {
	ID string `json:"intent_id"`
}

type ConfirmResult struct {
	Outcome      string `json:"outcome"`
	GatewayTxnID string `json:"gateway_txn_id"`
}

type IntentStatus struct {
	ID           string `json:"intent_id"`
	State        string `json:"state"`
	GatewayTxnID string `json:"gateway_txn_id,omitempty"`
}

func (c *Client) CreateIntent(ctx context.Context, amount float64, currency, idempotencyKey string) (*Intent, error) {
	body := map[string]interface{}{"amount": amount, "currency": currency}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.post(ctx, "/v1/intents", body, idempotencyKey)
	if err != nil {
		c.loggerf("level=error msg=gateway create intent transport failure key=%s err=%v", idempotencyKey, err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		var out Intent
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, fmt.Errorf("%w: decode intent: %v", ErrUnavailable, err)
		}
		return &out, nil
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	default:
		return nil, fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	}
}

// Confirm submits the payment method against an existing intent. Transport
// failures map to ErrOutcomeUnknown because the gateway may have processed
// the charge before the connection died.
func (c *Client) Confirm(ctx context.Context, intentID, paymentMethod string) (*ConfirmResult, error) {
	body := map[string]interface{}{"payment_method": paymentMethod}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.ConfirmTimeout)
	defer cancel()

	resp, err := c.post(ctx, "/v1/intents/"+intentID+"/confirm", body, "")
	if err != nil {
		c.loggerf("level=warn msg=gateway confirm transport failure intent_id=%s err=%v", intentID, err)
		return nil, fmt.Errorf("%w: %v", ErrOutcomeUnknown, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		// The gateway answered but we cannot tell whether the charge
		// committed before it failed.
		return nil, fmt.Errorf("%w: status %d", ErrOutcomeUnknown, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	}

	var out ConfirmResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode confirm result: %v", ErrOutcomeUnknown, err)
	}
	if out.Outcome != OutcomeSucceeded && out.Outcome != OutcomeDeclined {
		return nil, fmt.Errorf("%w: unexpected outcome %q", ErrOutcomeUnknown, out.Outcome)
	}
	return &out, nil
}

// GetIntent asks for an intent's current state. The reconciliation sweep
// uses it to resolve confirmations whose outcome was lost in transit.
func (c *Client) GetIntent(ctx context.Context, intentID string) (*IntentStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/v1/intents/"+intentID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var out IntentStatus
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode intent status: %v", ErrUnavailable, err)
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, body interface{}, idempotencyKey string) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	return c.http.Do(req)
}
