package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"vinoclub/shared/go/models"
)

const userColumns = `id, email, full_name, phone, role, stripe_customer_id, has_payment_method,
		       payment_setup_completed_at, created_at, updated_at`

const selectUserByIDSQL = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1
	`

// UserByID returns the profile row for id.
func (s *Store) UserByID(ctx context.Context, id string) (models.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, selectUserByIDSQL, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("select user: %w", err)
	}
	return user, nil
}

const updateUserFullNameSQL = `
		UPDATE users
		SET full_name = $2, updated_at = NOW()
		WHERE id = $1
	`

// UpdateUserFullName sets the display name on a profile row.
func (s *Store) UpdateUserFullName(ctx context.Context, id, fullName string) error {
	res, err := s.db.ExecContext(ctx, updateUserFullNameSQL, id, fullName)
	if err != nil {
		return fmt.Errorf("update full name: %w", err)
	}
	return expectAffected(res, ErrUserNotFound)
}

// UpdateContactInfo replaces the user's name and phone.
func (s *Store) UpdateContactInfo(ctx context.Context, id string, fullName, phone *string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET full_name = $2, phone = $3, updated_at = NOW()
		WHERE id = $1
	`, id, fullName, phone)
	if err != nil {
		return fmt.Errorf("update contact info: %w", err)
	}
	return expectAffected(res, ErrUserNotFound)
}

// SetStripeCustomerID remembers the processor customer for the user.
func (s *Store) SetStripeCustomerID(ctx context.Context, id, customerID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET stripe_customer_id = $2, updated_at = NOW()
		WHERE id = $1
	`, id, customerID)
	if err != nil {
		return fmt.Errorf("update stripe customer: %w", err)
	}
	return expectAffected(res, ErrUserNotFound)
}

const markPaymentMethodSavedSQL = `
		UPDATE users
		SET has_payment_method = TRUE, payment_setup_completed_at = $2, updated_at = NOW()
		WHERE id = $1
	`

// MarkPaymentMethodSaved flags that a default payment method is on file.
func (s *Store) MarkPaymentMethodSaved(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, markPaymentMethodSavedSQL, id, at)
	if err != nil {
		return fmt.Errorf("mark payment method: %w", err)
	}
	return expectAffected(res, ErrUserNotFound)
}

const selectPreferencesSQL = `
		SELECT last_dashboard, search_radius
		FROM users
		WHERE id = $1
	`

// Preferences returns the stored dashboard and radius preferences.
func (s *Store) Preferences(ctx context.Context, id string) (models.Preferences, error) {
	var prefs models.Preferences
	err := s.db.QueryRowContext(ctx, selectPreferencesSQL, id).Scan(&prefs.LastDashboard, &prefs.SearchRadius)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Preferences{}, ErrUserNotFound
		}
		return models.Preferences{}, fmt.Errorf("select preferences: %w", err)
	}
	return prefs, nil
}

const updatePreferencesSQL = `
		UPDATE users
		SET last_dashboard = COALESCE($2, last_dashboard),
		    search_radius = COALESCE($3, search_radius),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING last_dashboard, search_radius
	`

// UpdatePreferences overwrites the non-nil preference fields.
func (s *Store) UpdatePreferences(ctx context.Context, id string, prefs models.Preferences) (models.Preferences, error) {
	var out models.Preferences
	err := s.db.QueryRowContext(ctx, updatePreferencesSQL, id, prefs.LastDashboard, prefs.SearchRadius).
		Scan(&out.LastDashboard, &out.SearchRadius)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Preferences{}, ErrUserNotFound
		}
		return models.Preferences{}, fmt.Errorf("update preferences: %w", err)
	}
	return out, nil
}

func scanUser(row rowScanner) (models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.FullName,
		&u.Phone,
		&u.Role,
		&u.StripeCustomerID,
		&u.HasPaymentMethod,
		&u.PaymentSetupCompletedAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

func expectAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
