package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAdminKey   = "A"
	testInvoiceKey = "B"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := NewClient(Config{
		AdminKey:       testAdminKey,
		InvoiceReadKey: testInvoiceKey,
		Endpoint:       server.URL,
	})
	require.NoError(t, err)
	return c
}

func decodeBody(t *testing.T, r *http.Request) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestNewClient_DefaultEndpoint(t *testing.T) {
	c, err := NewClient(Config{AdminKey: "A", InvoiceReadKey: "B"})
	require.NoError(t, err)
	assert.Equal(t, "https://lnbits.com/api/v1", c.BaseURL())
}

func TestNewClient_TrimsTrailingSlash(t *testing.T) {
	c, err := NewClient(Config{AdminKey: "A", InvoiceReadKey: "B", Endpoint: "https://legend.lnbits.com/"})
	require.NoError(t, err)
	assert.Equal(t, "https://legend.lnbits.com/api/v1", c.BaseURL())
}

func TestNewClient_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"missing admin key", Config{InvoiceReadKey: "B"}, "admin key is required"},
		{"missing invoice key", Config{AdminKey: "A"}, "invoice read key is required"},
		{"relative endpoint", Config{AdminKey: "A", InvoiceReadKey: "B", Endpoint: "lnbits.com"}, "invalid endpoint"},
		{"unsupported scheme", Config{AdminKey: "A", InvoiceReadKey: "B", Endpoint: "ftp://lnbits.com"}, "invalid endpoint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(tt.cfg)
			require.Error(t, err)
			assert.Nil(t, c)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMustNewClient_Panics(t *testing.T) {
	assert.Panics(t, func() { MustNewClient(Config{}) })
}

func TestWalletDetails_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/wallet", r.URL.Path)
		assert.Equal(t, testAdminKey, r.Header.Get("X-Api-Key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"id":      "w1",
			"name":    "main",
			"balance": 21000,
		})
	})

	wallet, err := c.WalletDetails(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &WalletDetails{ID: "w1", Name: "main", Balance: 21000}, wallet)
}

func TestCreateInvoice_Scenario(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/payments", r.URL.Path)
		assert.Equal(t, testInvoiceKey, r.Header.Get("X-Api-Key"))

		body := decodeBody(t, r)
		assert.Equal(t, map[string]interface{}{
			"amount": float64(1000),
			"memo":   "coffee",
			"out":    false,
		}, body)

		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"checking_id":     "chk1",
			"payment_hash":    "deadbeef",
			"payment_request": "lnbc10u1...",
		})
	})

	inv, err := c.CreateInvoice(context.Background(), &CreateInvoiceParams{Amount: 1000, Memo: "coffee"})
	require.NoError(t, err)
	assert.Equal(t, "chk1", inv.CheckingID)
	assert.Equal(t, "deadbeef", inv.PaymentHash)
	assert.Equal(t, "lnbc10u1...", inv.PaymentRequest)
	assert.Nil(t, inv.LNURLResponse)
}

func TestCreateInvoice_Defaults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		assert.Equal(t, map[string]interface{}{
			"amount": float64(0),
			"memo":   "memo",
			"out":    false,
		}, body)
		writeJSON(w, http.StatusCreated, map[string]interface{}{"payment_hash": "h"})
	})

	_, err := c.CreateInvoice(context.Background(), nil)
	require.NoError(t, err)
}

func TestCreateInvoice_OptionalFields(t *testing.T) {
	expiry := int64(600)

	tests := []struct {
		name        string
		params      CreateInvoiceParams
		wantWebhook interface{}
		hasWebhook  bool
		wantExpiry  interface{}
		hasExpiry   bool
	}{
		{
			name:   "empty webhook omitted",
			params: CreateInvoiceParams{Amount: 1, Memo: "m", Webhook: ""},
		},
		{
			name:        "webhook sent unchanged",
			params:      CreateInvoiceParams{Amount: 1, Memo: "m", Webhook: "https://example.com/hook?x=1"},
			wantWebhook: "https://example.com/hook?x=1",
			hasWebhook:  true,
		},
		{
			name:       "expiry sent when set",
			params:     CreateInvoiceParams{Amount: 1, Memo: "m", Expiry: &expiry},
			wantExpiry: float64(600),
			hasExpiry:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				body := decodeBody(t, r)

				webhook, ok := body["webhook"]
				assert.Equal(t, tt.hasWebhook, ok)
				assert.Equal(t, tt.wantWebhook, webhook)

				exp, ok := body["expiry"]
				assert.Equal(t, tt.hasExpiry, ok)
				assert.Equal(t, tt.wantExpiry, exp)

				writeJSON(w, http.StatusCreated, map[string]interface{}{"payment_hash": "h"})
			})

			params := tt.params
			_, err := c.CreateInvoice(context.Background(), &params)
			require.NoError(t, err)
		})
	}
}

func TestPayInvoice_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/payments", r.URL.Path)
		assert.Equal(t, testAdminKey, r.Header.Get("X-Api-Key"))

		body := decodeBody(t, r)
		assert.Equal(t, map[string]interface{}{"bolt11": "lnbc1abc", "out": true}, body)

		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"payment_hash": "cafe",
			"checking_id":  "chk2",
		})
	})

	pay, err := c.PayInvoice(context.Background(), &PayInvoiceParams{Bolt11: "lnbc1abc"})
	require.NoError(t, err)
	assert.Equal(t, "cafe", pay.PaymentHash)
	assert.Equal(t, "chk2", pay.CheckingID)
}

func TestPayInvoice_Defaults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		assert.Equal(t, map[string]interface{}{"bolt11": "", "out": true}, body)
		writeJSON(w, http.StatusOK, map[string]interface{}{"payment_hash": "h"})
	})

	_, err := c.PayInvoice(context.Background(), nil)
	require.NoError(t, err)
}

func TestPayInvoice_ExplicitOut(t *testing.T) {
	out := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		assert.Equal(t, false, body["out"])
		writeJSON(w, http.StatusOK, map[string]interface{}{"payment_hash": "h"})
	})

	_, err := c.PayInvoice(context.Background(), &PayInvoiceParams{Bolt11: "lnbc1", Out: &out})
	require.NoError(t, err)
}

func TestPayLNURL_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/payments/lnurl", r.URL.Path)
		assert.Equal(t, testAdminKey, r.Header.Get("X-Api-Key"))

		body := decodeBody(t, r)
		assert.Equal(t, map[string]interface{}{
			"callback":         "https://example.com/cb",
			"description_hash": "abcd",
			"amount":           float64(21000),
			"comment":          "thanks",
			"description":      "tip",
		}, body)

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success_action": map[string]interface{}{"tag": "message", "message": "thank you"},
			"payment_hash":   "beef",
			"checking_id":    "chk3",
		})
	})

	pay, err := c.PayLNURL(context.Background(), PayLNURLParams{
		Callback:        "https://example.com/cb",
		DescriptionHash: "abcd",
		Amount:          21000,
		Comment:         "thanks",
		Description:     "tip",
	})
	require.NoError(t, err)
	assert.Equal(t, "beef", pay.PaymentHash)
	assert.Equal(t, "chk3", pay.CheckingID)
	require.NotNil(t, pay.SuccessAction)
	assert.Equal(t, SuccessActionMessage, pay.SuccessAction.Kind)
	assert.Equal(t, "thank you", pay.SuccessAction.Message)
}

func TestPayLNURL_NullSuccessAction(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success_action": null, "payment_hash": "beef", "checking_id": "c"}`))
	})

	pay, err := c.PayLNURL(context.Background(), PayLNURLParams{Callback: "cb"})
	require.NoError(t, err)
	assert.Nil(t, pay.SuccessAction)
}

func TestPayLNURL_MalformedSuccessActionKeepsPayment(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success_action": "Thanks!", "payment_hash": "beef", "checking_id": "c"}`))
	})

	pay, err := c.PayLNURL(context.Background(), PayLNURLParams{Callback: "cb"})
	require.NoError(t, err)
	assert.Equal(t, "beef", pay.PaymentHash)
	assert.Equal(t, "c", pay.CheckingID)
	require.NotNil(t, pay.SuccessAction)
	assert.Equal(t, SuccessActionUnknown, pay.SuccessAction.Kind)
	assert.JSONEq(t, `"Thanks!"`, string(pay.SuccessAction.Raw))
}

func TestCheckInvoice_Scenario(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/payments/deadbeef", r.URL.Path)
		assert.Equal(t, testInvoiceKey, r.Header.Get("X-Api-Key"))

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"paid":     true,
			"preimage": "00ff",
			"details":  map[string]interface{}{"payment_hash": "deadbeef", "amount": 1000},
		})
	})

	status, err := c.CheckInvoice(context.Background(), "deadbeef")
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", status.PaymentHash)
	assert.True(t, status.Paid)
	assert.Equal(t, "00ff", status.Preimage)
	assert.JSONEq(t, `{"payment_hash":"deadbeef","amount":1000}`, string(status.Details))
}

func TestCheckInvoice_NotFound(t *testing.T) {
	const notFoundBody = `{"detail":"Payment does not exist."}`
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(notFoundBody))
	})

	status, err := c.CheckInvoice(context.Background(), "deadbeef")
	require.Error(t, err)
	assert.Nil(t, status)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, notFoundBody, string(apiErr.Body))
	assert.Equal(t, "Payment does not exist.", apiErr.Detail)
	assert.Equal(t, OpCheckInvoice, apiErr.Operation)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "Payment does not exist.")
}

func TestScanLNURL_LightningAddress(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/lnurlscan/alice@example.com", r.URL.Path)
		assert.Equal(t, testInvoiceKey, r.Header.Get("X-Api-Key"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"domain": "example.com",
			"callback": "https://example.com/lnurlp/alice/callback",
			"maxSendable": 100000000,
			"minSendable": 1000,
			"metadata": "[[\"text/plain\",\"Pay alice\"],[\"text/identifier\",\"alice@example.com\"]]",
			"commentAllowed": 140,
			"tag": "payRequest",
			"allowsNostr": true,
			"nostrPubkey": "npub",
			"kind": "pay",
			"fixed": false,
			"description_hash": "hash",
			"description": "Pay alice",
			"targetUser": "alice"
		}`))
	})

	meta, err := c.ScanLNURL(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "example.com", meta.Domain)
	assert.Equal(t, int64(100000000), meta.MaxSendable)
	assert.Equal(t, int64(1000), meta.MinSendable)
	assert.Equal(t, 140, meta.CommentAllowed)
	assert.True(t, meta.AllowsNostr)
	assert.Equal(t, "npub", meta.NostrPubkey)
	assert.Equal(t, "alice", meta.TargetUser)
	require.Len(t, meta.Metadata, 2)
	assert.Equal(t, MetadataEntry{Key: "text/plain", Value: "Pay alice"}, meta.Metadata[0])
	assert.Equal(t, MetadataEntry{Key: "text/identifier", Value: "alice@example.com"}, meta.Metadata[1])
}

func TestOperations_PropagateErrors(t *testing.T) {
	const body = `{"detail":"boom"}`

	calls := map[string]func(c *Client) error{
		OpWalletDetails: func(c *Client) error { _, err := c.WalletDetails(context.Background()); return err },
		OpCreateInvoice: func(c *Client) error { _, err := c.CreateInvoice(context.Background(), nil); return err },
		OpPayInvoice:    func(c *Client) error { _, err := c.PayInvoice(context.Background(), nil); return err },
		OpPayLNURL:      func(c *Client) error { _, err := c.PayLNURL(context.Background(), PayLNURLParams{}); return err },
		OpCheckInvoice:  func(c *Client) error { _, err := c.CheckInvoice(context.Background(), "h"); return err },
		OpScanLNURL:     func(c *Client) error { _, err := c.ScanLNURL(context.Background(), "lnurl1x"); return err },
	}

	for op, call := range calls {
		t.Run(op, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(body))
			})

			err := call(c)
			require.Error(t, err)
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, op, apiErr.Operation)
			assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
			assert.Equal(t, body, string(apiErr.Body))
		})
	}
}

func TestOperations_MalformedJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	})

	_, err := c.WalletDetails(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode response")
}

func TestOperations_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c, err := NewClient(Config{AdminKey: "A", InvoiceReadKey: "B", Endpoint: url})
	require.NoError(t, err)

	_, err = c.WalletDetails(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed")
	assert.Equal(t, 0, StatusCode(err))
}

func TestOperations_ContextCanceled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{})
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.CheckInvoice(ctx, "h")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

// Concurrent calls that need different keys must each carry their own key.
func TestConcurrentCallsUseOwnKey(t *testing.T) {
	var mu sync.Mutex
	mismatches := 0

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		want := testInvoiceKey
		if r.Method == http.MethodPost {
			want = testAdminKey
		}
		if r.Header.Get("X-Api-Key") != want {
			mu.Lock()
			mismatches++
			mu.Unlock()
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"payment_hash": "h"})
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := c.CheckInvoice(context.Background(), "h")
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := c.PayInvoice(context.Background(), &PayInvoiceParams{Bolt11: "lnbc1"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, mismatches)
}

func TestOperationFromRequest(t *testing.T) {
	var got string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{})
	})
	c.httpClient.Transport = roundTripFunc(func(r *http.Request) (*http.Response, error) {
		got = OperationFromRequest(r)
		return http.DefaultTransport.RoundTrip(r)
	})

	_, err := c.WalletDetails(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OpWalletDetails, got)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", OperationFromRequest(req))
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
