package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"vinoclub/shared/go/models"
)

const lockEventSQL = `
		SELECT status, max_attendees
		FROM events
		WHERE id = $1
		FOR UPDATE
	`

const countRegisteredSQL = `
		SELECT COUNT(*)
		FROM event_attendees
		WHERE event_id = $1 AND status = 'registered'
	`

// A cancelled registration may be revived; an active one makes the statement return nothing.
const registerAttendeeSQL = `
		INSERT INTO event_attendees (event_id, user_id, status)
		VALUES ($1, $2, 'registered')
		ON CONFLICT (event_id, user_id) DO UPDATE
		SET status = 'registered', registered_at = NOW(), updated_at = NOW()
		WHERE event_attendees.status = 'cancelled'
		RETURNING id, event_id, user_id, status, registered_at
	`

// RegisterAttendee registers userID for eventID. The event row is locked for the
// duration of the capacity check so concurrent registrations cannot oversell.
func (s *Store) RegisterAttendee(ctx context.Context, eventID, userID string) (models.Attendee, error) {
	var attendee models.Attendee
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var (
			status       string
			maxAttendees sql.NullInt64
		)
		if err := tx.QueryRowContext(ctx, lockEventSQL, eventID).Scan(&status, &maxAttendees); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrEventNotFound
			}
			return fmt.Errorf("lock event: %w", err)
		}
		if status == models.EventCancelled {
			return ErrEventCancelled
		}

		if maxAttendees.Valid && maxAttendees.Int64 > 0 {
			var count int64
			if err := tx.QueryRowContext(ctx, countRegisteredSQL, eventID).Scan(&count); err != nil {
				return fmt.Errorf("count attendees: %w", err)
			}
			if count >= maxAttendees.Int64 {
				return ErrEventFull
			}
		}

		err := tx.QueryRowContext(ctx, registerAttendeeSQL, eventID, userID).Scan(
			&attendee.ID,
			&attendee.EventID,
			&attendee.UserID,
			&attendee.Status,
			&attendee.RegisteredAt,
		)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) || isUniqueViolation(err) {
				return ErrAlreadyRegistered
			}
			return fmt.Errorf("insert attendee: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Attendee{}, err
	}
	return attendee, nil
}

const cancelRegistrationSQL = `
		UPDATE event_attendees
		SET status = 'cancelled', updated_at = NOW()
		WHERE event_id = $1 AND user_id = $2
	`

// CancelRegistration marks the user's registration cancelled. Missing rows are not an error.
func (s *Store) CancelRegistration(ctx context.Context, eventID, userID string) error {
	if _, err := s.db.ExecContext(ctx, cancelRegistrationSQL, eventID, userID); err != nil {
		return fmt.Errorf("cancel registration: %w", err)
	}
	return nil
}

const attendeesForEventSQL = `
		SELECT a.id, a.user_id, a.status, u.full_name, u.email
		FROM event_attendees a
		JOIN users u ON u.id = a.user_id
		WHERE a.event_id = $1
		ORDER BY a.registered_at ASC
	`

// AttendeesForEvent lists every attendee row of an event with the user's name and email.
func (s *Store) AttendeesForEvent(ctx context.Context, eventID string) ([]models.AttendeeRow, error) {
	rows, err := s.db.QueryContext(ctx, attendeesForEventSQL, eventID)
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	defer rows.Close()

	attendees := make([]models.AttendeeRow, 0)
	for rows.Next() {
		var a models.AttendeeRow
		if err := rows.Scan(&a.ID, &a.UserID, &a.Status, &a.FullName, &a.Email); err != nil {
			return nil, fmt.Errorf("scan attendee: %w", err)
		}
		attendees = append(attendees, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendees: %w", err)
	}
	return attendees, nil
}
