package payments

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
)

func newTestStripe(t *testing.T, handler http.Handler) *Stripe {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		HTTPClient:        srv.Client(),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	return NewStripe(Config{
		SecretKey: "sk_test_123",
		Backends:  &stripe.Backends{API: backend, Connect: backend, Uploads: backend},
	})
}

func TestValidateKey(t *testing.T) {
	assert.ErrorIs(t, ValidateKey(""), ErrKeyMissing)
	assert.ErrorIs(t, ValidateKey("pk_test_123"), ErrKeyInvalid)
	assert.NoError(t, ValidateKey("sk_live_abc"))
}

func TestCallsFailWithInvalidKey(t *testing.T) {
	s := NewStripe(Config{SecretKey: "rk_test"})
	_, err := s.CreateCustomer(context.Background(), "a@b.c", "u1")
	assert.ErrorIs(t, err, ErrKeyInvalid)
}

func TestCreateCustomer(t *testing.T) {
	s := newTestStripe(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/customers", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "host@example.com", r.PostForm.Get("email"))
		assert.Equal(t, "user-1", r.PostForm.Get("metadata[user_id]"))
		_, _ = w.Write([]byte(`{"id":"cus_123","object":"customer"}`))
	}))

	id, err := s.CreateCustomer(context.Background(), "host@example.com", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "cus_123", id)
}

func TestCreateSetupIntent(t *testing.T) {
	s := newTestStripe(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/setup_intents", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "cus_123", r.PostForm.Get("customer"))
		assert.Equal(t, "true", r.PostForm.Get("automatic_payment_methods[enabled]"))
		assert.Equal(t, "always", r.PostForm.Get("automatic_payment_methods[allow_redirects]"))
		_, _ = w.Write([]byte(`{"id":"seti_1","object":"setup_intent","client_secret":"seti_1_secret"}`))
	}))

	secret, err := s.CreateSetupIntent(context.Background(), "cus_123")
	require.NoError(t, err)
	assert.Equal(t, "seti_1_secret", secret)
}

func TestAttachDefaultPaymentMethodProcessorError(t *testing.T) {
	s := newTestStripe(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"message":"No such PaymentMethod: 'pm_x'","type":"invalid_request_error","code":"resource_missing"}}`))
	}))

	err := s.AttachDefaultPaymentMethod(context.Background(), "cus_123", "pm_x")

	var procErr *ProcessorError
	require.True(t, errors.As(err, &procErr), "expected ProcessorError, got %v", err)
	assert.Equal(t, http.StatusNotFound, procErr.Status)
	assert.Equal(t, "invalid_request_error", procErr.Type)
	assert.Equal(t, "resource_missing", procErr.Code)
	assert.Equal(t, "No such PaymentMethod: 'pm_x'", procErr.Message)
}

func TestDefaultPaymentMethodCard(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/customers/cus_123", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"cus_123","object":"customer","invoice_settings":{"default_payment_method":"pm_1"}}`))
	})
	mux.HandleFunc("GET /v1/payment_methods/pm_1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"pm_1","object":"payment_method","type":"card","card":{"brand":"visa","last4":"4242","exp_month":12,"exp_year":2030,"wallet":{"type":"apple_pay"}}}`))
	})
	s := newTestStripe(t, mux)

	summary, err := s.DefaultPaymentMethod(context.Background(), "cus_123")
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, "card", summary.Type)
	assert.Equal(t, "visa", summary.Brand)
	assert.Equal(t, "4242", summary.Last4)
	assert.Equal(t, int64(12), summary.ExpMonth)
	assert.Equal(t, int64(2030), summary.ExpYear)
	assert.Equal(t, "apple_pay", summary.Wallet)
}

func TestDefaultPaymentMethodNone(t *testing.T) {
	s := newTestStripe(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"cus_123","object":"customer","invoice_settings":{"default_payment_method":null}}`))
	}))

	summary, err := s.DefaultPaymentMethod(context.Background(), "cus_123")
	require.NoError(t, err)
	assert.Nil(t, summary)
}
