package billing

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vinoclub/internal/apperr"
	"vinoclub/internal/payments"
	"vinoclub/internal/store"
	"vinoclub/shared/go/models"
)

func ptr[T any](v T) *T { return &v }

type fakeStore struct {
	users      map[string]models.User
	customerID string
	savedAt    time.Time
}

func (f *fakeStore) UserByID(ctx context.Context, id string) (models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return models.User{}, store.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeStore) SetStripeCustomerID(ctx context.Context, id, customerID string) error {
	f.customerID = customerID
	return nil
}

func (f *fakeStore) MarkPaymentMethodSaved(ctx context.Context, id string, at time.Time) error {
	f.savedAt = at
	return nil
}

type fakeProcessor struct {
	customers int
	attached  string
	summary   *models.PaymentMethodSummary
	err       error
}

func (f *fakeProcessor) CreateCustomer(ctx context.Context, email, userID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.customers++
	return "cus_new", nil
}

func (f *fakeProcessor) CreateSetupIntent(ctx context.Context, customerID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "seti_secret_" + customerID, nil
}

func (f *fakeProcessor) AttachDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	if f.err != nil {
		return f.err
	}
	f.attached = customerID + "/" + paymentMethodID
	return nil
}

func (f *fakeProcessor) DefaultPaymentMethod(ctx context.Context, customerID string) (*models.PaymentMethodSummary, error) {
	return f.summary, f.err
}

func TestSetupIntentCreatesCustomerOnce(t *testing.T) {
	st := &fakeStore{users: map[string]models.User{
		"u1": {ID: "u1", Email: "ada@example.com"},
		"u2": {ID: "u2", Email: "bea@example.com", StripeCustomerID: ptr("cus_existing")},
	}}
	proc := &fakeProcessor{}
	svc := New(st, proc)

	intent, err := svc.SetupIntent(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "cus_new", intent.CustomerID)
	assert.Equal(t, "seti_secret_cus_new", intent.ClientSecret)
	assert.Equal(t, "cus_new", st.customerID)

	intent, err = svc.SetupIntent(context.Background(), "u2")
	require.NoError(t, err)
	assert.Equal(t, "cus_existing", intent.CustomerID)
	assert.Equal(t, 1, proc.customers)

	_, err = svc.SetupIntent(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestSetupIntentProcessorErrors(t *testing.T) {
	st := &fakeStore{users: map[string]models.User{"u1": {ID: "u1"}}}

	procErr := &payments.ProcessorError{Message: "No such customer", Type: "invalid_request_error", Code: "resource_missing", Status: http.StatusNotFound}
	_, err := New(st, &fakeProcessor{err: procErr}).SetupIntent(context.Background(), "u1")
	var pe *payments.ProcessorError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusNotFound, pe.Status)

	_, err = New(st, &fakeProcessor{err: payments.ErrKeyMissing}).SetupIntent(context.Background(), "u1")
	status, msg := apperr.HTTPStatus(err)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "STRIPE_SECRET_KEY environment variable is not set", msg)
}

func TestSavePaymentMethod(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	st := &fakeStore{users: map[string]models.User{
		"u1": {ID: "u1", StripeCustomerID: ptr("cus_1")},
		"u2": {ID: "u2"},
	}}
	proc := &fakeProcessor{}
	svc := New(st, proc).(*service)
	svc.now = func() time.Time { return now }

	require.ErrorIs(t, svc.SavePaymentMethod(context.Background(), "u1", ""), ErrPaymentMethodMissing)
	require.ErrorIs(t, svc.SavePaymentMethod(context.Background(), "u2", "pm_1"), ErrCustomerNotFound)
	require.ErrorIs(t, svc.SavePaymentMethod(context.Background(), "ghost", "pm_1"), ErrCustomerNotFound)

	require.NoError(t, svc.SavePaymentMethod(context.Background(), "u1", "pm_1"))
	assert.Equal(t, "cus_1/pm_1", proc.attached)
	assert.Equal(t, now, st.savedAt)
}

func TestPaymentMethod(t *testing.T) {
	card := &models.PaymentMethodSummary{Type: "card", Brand: "visa", Last4: "4242"}
	st := &fakeStore{users: map[string]models.User{
		"saved":   {ID: "saved", StripeCustomerID: ptr("cus_1"), HasPaymentMethod: true},
		"nocard":  {ID: "nocard", StripeCustomerID: ptr("cus_2")},
		"missing": {ID: "missing", StripeCustomerID: ptr("cus_3"), HasPaymentMethod: true},
	}}

	status, err := New(st, &fakeProcessor{summary: card}).PaymentMethod(context.Background(), "saved")
	require.NoError(t, err)
	assert.True(t, status.HasPaymentMethod)
	assert.Equal(t, "4242", status.PaymentMethod.Last4)

	status, err = New(st, &fakeProcessor{summary: card}).PaymentMethod(context.Background(), "nocard")
	require.NoError(t, err)
	assert.False(t, status.HasPaymentMethod)
	assert.Nil(t, status.PaymentMethod)

	status, err = New(st, &fakeProcessor{}).PaymentMethod(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, status.HasPaymentMethod)
}
