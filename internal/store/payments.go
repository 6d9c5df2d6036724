package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"vinoclub/shared/go/models"
)

const paymentColumns = `id, event_id, user_id, amount, payment_status, payment_method, payment_date,
		       created_at, updated_at`

const upsertEventPaymentSQL = `
		INSERT INTO event_payments (event_id, user_id, amount, payment_status, payment_method, payment_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (event_id, user_id) DO UPDATE
		SET amount = EXCLUDED.amount,
		    payment_status = EXCLUDED.payment_status,
		    payment_method = EXCLUDED.payment_method,
		    payment_date = EXCLUDED.payment_date,
		    updated_at = NOW()
		RETURNING ` + paymentColumns

// UpsertEventPayment records the full payment for (EventID, UserID), replacing any prior row.
func (s *Store) UpsertEventPayment(ctx context.Context, p models.EventPayment) (models.EventPayment, error) {
	out, err := scanPayment(s.db.QueryRowContext(ctx, upsertEventPaymentSQL,
		p.EventID,
		p.UserID,
		p.Amount,
		p.PaymentStatus,
		p.PaymentMethod,
		p.PaymentDate,
	))
	if err != nil {
		return models.EventPayment{}, fmt.Errorf("upsert payment: %w", err)
	}
	return out, nil
}

const updateEventPaymentSQL = `
		UPDATE event_payments
		SET amount = COALESCE($3, amount),
		    payment_status = COALESCE($4, payment_status),
		    payment_method = COALESCE($5, payment_method),
		    payment_date = COALESCE($6, payment_date),
		    updated_at = NOW()
		WHERE id = $1 AND event_id = $2
		RETURNING ` + paymentColumns

// UpdateEventPayment applies the non-nil fields of update to a payment of eventID.
func (s *Store) UpdateEventPayment(ctx context.Context, eventID, paymentID string, update models.PaymentUpdate) (models.EventPayment, error) {
	out, err := scanPayment(s.db.QueryRowContext(ctx, updateEventPaymentSQL,
		paymentID,
		eventID,
		update.Amount,
		update.PaymentStatus,
		update.PaymentMethod,
		update.PaymentDate,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.EventPayment{}, ErrPaymentNotFound
		}
		return models.EventPayment{}, fmt.Errorf("update payment: %w", err)
	}
	return out, nil
}

const mergeEventPaymentSQL = `
		INSERT INTO event_payments (event_id, user_id, amount, payment_status, payment_method, payment_date)
		VALUES ($1, $2, COALESCE($3::numeric, $7::numeric, 0), COALESCE($4, 'pending'), $5, $6)
		ON CONFLICT (event_id, user_id) DO UPDATE
		SET amount = COALESCE($3::numeric, event_payments.amount),
		    payment_status = COALESCE($4, event_payments.payment_status),
		    payment_method = COALESCE($5, event_payments.payment_method),
		    payment_date = COALESCE($6, event_payments.payment_date),
		    updated_at = NOW()
		RETURNING ` + paymentColumns

// MergeEventPayment updates the user's payment for eventID with the non-nil fields,
// inserting a row that defaults the amount to defaultAmount when none exists.
func (s *Store) MergeEventPayment(ctx context.Context, eventID, userID string, defaultAmount *float64, update models.PaymentUpdate) (models.EventPayment, error) {
	out, err := scanPayment(s.db.QueryRowContext(ctx, mergeEventPaymentSQL,
		eventID,
		userID,
		update.Amount,
		update.PaymentStatus,
		update.PaymentMethod,
		update.PaymentDate,
		defaultAmount,
	))
	if err != nil {
		return models.EventPayment{}, fmt.Errorf("merge payment: %w", err)
	}
	return out, nil
}

const paymentsForEventSQL = `
		SELECT ` + paymentColumns + `
		FROM event_payments
		WHERE event_id = $1
	`

// PaymentsForEvent lists every payment row of an event.
func (s *Store) PaymentsForEvent(ctx context.Context, eventID string) ([]models.EventPayment, error) {
	rows, err := s.db.QueryContext(ctx, paymentsForEventSQL, eventID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	payments := make([]models.EventPayment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return payments, nil
}

const paymentsForEventsSQL = `
		SELECT p.id, p.event_id, p.user_id, p.amount, p.payment_status, p.payment_method,
		       p.payment_date, p.created_at, p.updated_at, u.full_name, u.email
		FROM event_payments p
		LEFT JOIN users u ON u.id = p.user_id
		WHERE p.event_id = ANY($1)
		ORDER BY p.created_at DESC
	`

// PaymentsForEvents lists payments of the given events with the payer's name and email.
func (s *Store) PaymentsForEvents(ctx context.Context, eventIDs []string) ([]models.EventPaymentRow, error) {
	if len(eventIDs) == 0 {
		return []models.EventPaymentRow{}, nil
	}
	rows, err := s.db.QueryContext(ctx, paymentsForEventsSQL, pq.Array(eventIDs))
	if err != nil {
		return nil, fmt.Errorf("list event payments: %w", err)
	}
	defer rows.Close()

	payments := make([]models.EventPaymentRow, 0)
	for rows.Next() {
		var p models.EventPaymentRow
		if err := rows.Scan(
			&p.ID,
			&p.EventID,
			&p.UserID,
			&p.Amount,
			&p.PaymentStatus,
			&p.PaymentMethod,
			&p.PaymentDate,
			&p.CreatedAt,
			&p.UpdatedAt,
			&p.PayerName,
			&p.PayerEmail,
		); err != nil {
			return nil, fmt.Errorf("scan event payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event payments: %w", err)
	}
	return payments, nil
}

const paymentsForUserSQL = `
		SELECT ` + paymentColumns + `
		FROM event_payments
		WHERE user_id = $1 AND event_id = ANY($2)
		ORDER BY created_at DESC
	`

// PaymentsForUser lists the user's payments restricted to the given events.
func (s *Store) PaymentsForUser(ctx context.Context, userID string, eventIDs []string) ([]models.EventPayment, error) {
	if len(eventIDs) == 0 {
		return []models.EventPayment{}, nil
	}
	rows, err := s.db.QueryContext(ctx, paymentsForUserSQL, userID, pq.Array(eventIDs))
	if err != nil {
		return nil, fmt.Errorf("list user payments: %w", err)
	}
	defer rows.Close()

	payments := make([]models.EventPayment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user payments: %w", err)
	}
	return payments, nil
}

func scanPayment(row rowScanner) (models.EventPayment, error) {
	var p models.EventPayment
	err := row.Scan(
		&p.ID,
		&p.EventID,
		&p.UserID,
		&p.Amount,
		&p.PaymentStatus,
		&p.PaymentMethod,
		&p.PaymentDate,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}
