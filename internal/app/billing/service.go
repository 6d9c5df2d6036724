// Package billing stores a member's payment method with the card processor.
package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"vinoclub/internal/apperr"
	"vinoclub/internal/payments"
	"vinoclub/internal/store"
	"vinoclub/shared/go/logging"
	"vinoclub/shared/go/models"
)

var (
	ErrUserNotFound         = apperr.NotFound("User not found")
	ErrPaymentMethodMissing = apperr.Validation("User ID and payment method ID are required")
	ErrCustomerNotFound     = apperr.NotFound("User or Stripe customer not found")
	ErrPaymentStatusUpdate  = apperr.Internal("Failed to update user payment status", nil)
)

// Processor is the subset of the card processor used here.
type Processor interface {
	CreateCustomer(ctx context.Context, email, userID string) (string, error)
	CreateSetupIntent(ctx context.Context, customerID string) (string, error)
	AttachDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error
	DefaultPaymentMethod(ctx context.Context, customerID string) (*models.PaymentMethodSummary, error)
}

// Store defines the user fields billing reads and writes.
type Store interface {
	UserByID(ctx context.Context, id string) (models.User, error)
	SetStripeCustomerID(ctx context.Context, id, customerID string) error
	MarkPaymentMethodSaved(ctx context.Context, id string, at time.Time) error
}

// SetupIntent is handed to the browser to collect a payment method.
type SetupIntent struct {
	ClientSecret string `json:"clientSecret"`
	CustomerID   string `json:"customerId"`
}

// PaymentMethodStatus reports whether a default method is on file.
type PaymentMethodStatus struct {
	HasPaymentMethod bool                         `json:"hasPaymentMethod"`
	PaymentMethod    *models.PaymentMethodSummary `json:"paymentMethod"`
}

// Service exposes the stored payment method flows.
type Service interface {
	SetupIntent(ctx context.Context, userID string) (SetupIntent, error)
	SavePaymentMethod(ctx context.Context, userID, paymentMethodID string) error
	PaymentMethod(ctx context.Context, userID string) (PaymentMethodStatus, error)
}

type service struct {
	store     Store
	processor Processor
	now       func() time.Time
}

// New constructs a billing Service.
func New(store Store, processor Processor) Service {
	return &service{store: store, processor: processor, now: time.Now}
}

// SetupIntent creates the processor customer on first use, then a setup intent for it.
func (s *service) SetupIntent(ctx context.Context, userID string) (SetupIntent, error) {
	if err := ctx.Err(); err != nil {
		return SetupIntent{}, err
	}

	user, err := s.user(ctx, userID, ErrUserNotFound)
	if err != nil {
		return SetupIntent{}, err
	}

	customerID := ""
	if user.StripeCustomerID != nil {
		customerID = *user.StripeCustomerID
	}
	if customerID == "" {
		customerID, err = s.processor.CreateCustomer(ctx, user.Email, user.ID)
		if err != nil {
			return SetupIntent{}, processorErr(err)
		}
		if err := s.store.SetStripeCustomerID(ctx, user.ID, customerID); err != nil {
			logging.FromContext(ctx).Warn().Err(err).
				Str("step", "save_customer_id").
				Msg("stripe customer created but not saved")
		}
	}

	secret, err := s.processor.CreateSetupIntent(ctx, customerID)
	if err != nil {
		return SetupIntent{}, processorErr(err)
	}
	return SetupIntent{ClientSecret: secret, CustomerID: customerID}, nil
}

// SavePaymentMethod attaches the method, makes it the default and flags the user.
func (s *service) SavePaymentMethod(ctx context.Context, userID, paymentMethodID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(paymentMethodID) == "" {
		return ErrPaymentMethodMissing
	}

	user, err := s.user(ctx, userID, ErrCustomerNotFound)
	if err != nil {
		return err
	}
	if user.StripeCustomerID == nil || *user.StripeCustomerID == "" {
		return ErrCustomerNotFound
	}

	if err := s.processor.AttachDefaultPaymentMethod(ctx, *user.StripeCustomerID, paymentMethodID); err != nil {
		return processorErr(err)
	}
	if err := s.store.MarkPaymentMethodSaved(ctx, user.ID, s.now().UTC()); err != nil {
		return ErrPaymentStatusUpdate.Wrap(err)
	}

	logging.FromContext(ctx).Info().Msg("payment method saved")
	return nil
}

// PaymentMethod summarizes the default method, or reports none.
func (s *service) PaymentMethod(ctx context.Context, userID string) (PaymentMethodStatus, error) {
	if err := ctx.Err(); err != nil {
		return PaymentMethodStatus{}, err
	}

	user, err := s.user(ctx, userID, ErrUserNotFound)
	if err != nil {
		return PaymentMethodStatus{}, err
	}
	if user.StripeCustomerID == nil || *user.StripeCustomerID == "" || !user.HasPaymentMethod {
		return PaymentMethodStatus{}, nil
	}

	summary, err := s.processor.DefaultPaymentMethod(ctx, *user.StripeCustomerID)
	if err != nil {
		return PaymentMethodStatus{}, processorErr(err)
	}
	if summary == nil {
		return PaymentMethodStatus{}, nil
	}
	return PaymentMethodStatus{HasPaymentMethod: true, PaymentMethod: summary}, nil
}

func (s *service) user(ctx context.Context, userID string, notFound *apperr.Error) (models.User, error) {
	user, err := s.store.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return models.User{}, notFound
		}
		return models.User{}, err
	}
	return user, nil
}

// processorErr keeps *payments.ProcessorError for the HTTP edge and turns a
// misconfigured key into a 500 carrying its message.
func processorErr(err error) error {
	if errors.Is(err, payments.ErrKeyMissing) || errors.Is(err, payments.ErrKeyInvalid) {
		return apperr.Internal(err.Error(), err)
	}
	var pe *payments.ProcessorError
	if errors.As(err, &pe) {
		return pe
	}
	return fmt.Errorf("payment processor: %w", err)
}
