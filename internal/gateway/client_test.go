package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestClient(baseURL string) *Client {
	return New(Config{
		BaseURL:        baseURL,
		APIKey:         "sk_test_key",
		Timeout:        2 * time.Second,
		ConfirmTimeout: 2 * time.Second,
	}, nil)
}

func TestCreateIntent_SendsIdempotencyKey(t *testing.T) {
	var gotKey, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Idempotency-Key")
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/v1/intents", r.URL.Path)

		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 2400.0, body["amount"])
		assert.Equal(t, "USD", body["currency"])

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"intent_id": "pi_123"})
	}))
	defer srv.Close()

	intent, err := newTestClient(srv.URL).CreateIntent(context.Background(), 2400, "USD", "reservation-12")

	assert.NoError(t, err)
	assert.Equal(t, "pi_123", intent.ID)
	assert.Equal(t, "reservation-12", gotKey)
	assert.Equal(t, "Bearer sk_test_key", gotAuth)
}

func TestCreateIntent_ServerErrorIsRetriable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CreateIntent(context.Background(), 2400, "USD", "reservation-12")

	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestCreateIntent_ClientErrorIsRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CreateIntent(context.Background(), -1, "USD", "reservation-12")

	assert.ErrorIs(t, err, ErrRejected)
}

func TestCreateIntent_ConnectionRefusedIsRetriable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listens anymore

	_, err := newTestClient(srv.URL).CreateIntent(context.Background(), 2400, "USD", "reservation-12")

	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestConfirm_Succeeded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/intents/pi_123/confirm", r.URL.Path)
		assert.Empty(t, r.Header.Get("Idempotency-Key"))
		json.NewEncoder(w).Encode(map[string]string{"outcome": "succeeded", "gateway_txn_id": "txn_9"})
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL).Confirm(context.Background(), "pi_123", "pm_tok")

	assert.NoError(t, err)
	assert.Equal(t, OutcomeSucceeded, res.Outcome)
	assert.Equal(t, "txn_9", res.GatewayTxnID)
}

func TestConfirm_Declined(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"outcome": "declined", "gateway_txn_id": "txn_d"})
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL).Confirm(context.Background(), "pi_123", "pm_tok")

	assert.NoError(t, err)
	assert.Equal(t, OutcomeDeclined, res.Outcome)
}

func TestConfirm_TimeoutIsUnknownOutcome(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, ConfirmTimeout: 30 * time.Millisecond, Timeout: time.Second}, nil)
	_, err := c.Confirm(context.Background(), "pi_123", "pm_tok")

	assert.ErrorIs(t, err, ErrOutcomeUnknown)
}

func TestConfirm_ServerErrorIsUnknownOutcome(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Confirm(context.Background(), "pi_123", "pm_tok")

	assert.ErrorIs(t, err, ErrOutcomeUnknown)
}

func TestConfirm_ClientErrorIsRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Confirm(context.Background(), "pi_123", "pm_bad")

	assert.ErrorIs(t, err, ErrRejected)
}

func TestConfirm_GarbledBodyIsUnknownOutcome(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Confirm(context.Background(), "pi_123", "pm_tok")

	assert.ErrorIs(t, err, ErrOutcomeUnknown)
}

func TestGetIntent_ReturnsState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/intents/pi_123", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"intent_id": "pi_123", "state": "succeeded", "gateway_txn_id": "txn_late"})
	}))
	defer srv.Close()

	st, err := newTestClient(srv.URL).GetIntent(context.Background(), "pi_123")

	assert.NoError(t, err)
	assert.Equal(t, IntentSucceeded, st.State)
	assert.Equal(t, "txn_late", st.GatewayTxnID)
}
