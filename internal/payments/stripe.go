// Package payments wraps the Stripe API calls used to store a member's payment method.
package payments

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"vinoclub/shared/go/models"
)

var (
	// ErrKeyMissing is returned by every call when no secret key was configured.
	ErrKeyMissing = errors.New("STRIPE_SECRET_KEY environment variable is not set")
	// ErrKeyInvalid is returned by every call when the key is not a secret key.
	ErrKeyInvalid = errors.New("Invalid STRIPE_SECRET_KEY format - must start with sk_test_ or sk_live_")
)

// ProcessorError carries a Stripe API failure back to the HTTP layer.
type ProcessorError struct {
	Message string
	Type    string
	Code    string
	Status  int
}

func (e *ProcessorError) Error() string {
	return e.Message
}

// CallRecorder receives provider call timings.
type CallRecorder interface {
	RecordExternalCall(target, operation string, duration time.Duration, err error)
}

// ValidateKey checks the shape of a secret key.
func ValidateKey(key string) error {
	if key == "" {
		return ErrKeyMissing
	}
	if !strings.HasPrefix(key, "sk_") {
		return ErrKeyInvalid
	}
	return nil
}

// Config configures a Stripe client. Backends is only set by tests.
type Config struct {
	SecretKey string
	Backends  *stripe.Backends
	Recorder  CallRecorder
}

// Stripe is the production payment processor.
type Stripe struct {
	api      *client.API
	keyErr   error
	recorder CallRecorder
}

// NewStripe builds a client. An invalid key does not fail construction; it is
// reported by each call instead so the rest of the API keeps serving.
func NewStripe(cfg Config) *Stripe {
	s := &Stripe{
		keyErr:   ValidateKey(cfg.SecretKey),
		recorder: cfg.Recorder,
	}
	if s.keyErr == nil {
		s.api = client.New(cfg.SecretKey, cfg.Backends)
	}
	return s
}

// CreateCustomer registers a customer tagged with the application user id.
func (s *Stripe) CreateCustomer(ctx context.Context, email, userID string) (string, error) {
	if s.keyErr != nil {
		return "", s.keyErr
	}
	params := &stripe.CustomerParams{Email: stripe.String(email)}
	params.Context = ctx
	params.AddMetadata("user_id", userID)

	var customer *stripe.Customer
	err := s.observe("create_customer", func() (err error) {
		customer, err = s.api.Customers.New(params)
		return err
	})
	if err != nil {
		return "", err
	}
	return customer.ID, nil
}

// CreateSetupIntent starts a payment method setup and returns its client secret.
func (s *Stripe) CreateSetupIntent(ctx context.Context, customerID string) (string, error) {
	if s.keyErr != nil {
		return "", s.keyErr
	}
	params := &stripe.SetupIntentParams{
		Customer: stripe.String(customerID),
		AutomaticPaymentMethods: &stripe.SetupIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("always"),
		},
	}
	params.Context = ctx

	var intent *stripe.SetupIntent
	err := s.observe("create_setup_intent", func() (err error) {
		intent, err = s.api.SetupIntents.New(params)
		return err
	})
	if err != nil {
		return "", err
	}
	return intent.ClientSecret, nil
}

// AttachDefaultPaymentMethod attaches the method to the customer and makes it
// the default for invoices.
func (s *Stripe) AttachDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	if s.keyErr != nil {
		return s.keyErr
	}

	attach := &stripe.PaymentMethodAttachParams{Customer: stripe.String(customerID)}
	attach.Context = ctx
	if err := s.observe("attach_payment_method", func() error {
		_, err := s.api.PaymentMethods.Attach(paymentMethodID, attach)
		return err
	}); err != nil {
		return err
	}

	update := &stripe.CustomerParams{
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(paymentMethodID),
		},
	}
	update.Context = ctx
	return s.observe("update_customer", func() error {
		_, err := s.api.Customers.Update(customerID, update)
		return err
	})
}

// DefaultPaymentMethod returns the customer's invoice payment method, or nil
// when the customer was deleted or has none.
func (s *Stripe) DefaultPaymentMethod(ctx context.Context, customerID string) (*models.PaymentMethodSummary, error) {
	if s.keyErr != nil {
		return nil, s.keyErr
	}

	params := &stripe.CustomerParams{}
	params.Context = ctx
	var customer *stripe.Customer
	if err := s.observe("get_customer", func() (err error) {
		customer, err = s.api.Customers.Get(customerID, params)
		return err
	}); err != nil {
		return nil, err
	}
	if customer.Deleted || customer.InvoiceSettings == nil || customer.InvoiceSettings.DefaultPaymentMethod == nil {
		return nil, nil
	}

	pmParams := &stripe.PaymentMethodParams{}
	pmParams.Context = ctx
	var pm *stripe.PaymentMethod
	if err := s.observe("get_payment_method", func() (err error) {
		pm, err = s.api.PaymentMethods.Get(customer.InvoiceSettings.DefaultPaymentMethod.ID, pmParams)
		return err
	}); err != nil {
		return nil, err
	}

	return summarize(pm), nil
}

func summarize(pm *stripe.PaymentMethod) *models.PaymentMethodSummary {
	summary := &models.PaymentMethodSummary{Type: string(pm.Type)}
	switch {
	case pm.Type == stripe.PaymentMethodTypeCard && pm.Card != nil:
		summary.Brand = string(pm.Card.Brand)
		summary.Last4 = pm.Card.Last4
		summary.ExpMonth = pm.Card.ExpMonth
		summary.ExpYear = pm.Card.ExpYear
		if pm.Card.Wallet != nil {
			summary.Wallet = string(pm.Card.Wallet.Type)
		}
	case pm.Type == stripe.PaymentMethodTypeLink && pm.Link != nil:
		summary.Email = pm.Link.Email
	}
	return summary
}

func (s *Stripe) observe(operation string, call func() error) error {
	start := time.Now()
	err := translate(call())
	if s.recorder != nil {
		s.recorder.RecordExternalCall("stripe", operation, time.Since(start), err)
	}
	return err
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		status := stripeErr.HTTPStatusCode
		if status == 0 {
			status = http.StatusInternalServerError
		}
		return &ProcessorError{
			Message: stripeErr.Msg,
			Type:    string(stripeErr.Type),
			Code:    string(stripeErr.Code),
			Status:  status,
		}
	}
	return fmt.Errorf("stripe: %w", err)
}
