package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"vinoclub/shared/go/models"
)

const eventColumns = `e.id, e.host_id, e.title, e.description, e.event_date, e.end_date, e.location,
		       e.wines_theme, e.price, e.max_attendees, e.status, e.is_recurring, e.recurrence_count,
		       e.series_id, e.created_at, e.updated_at`

const registeredCountColumn = `(SELECT COUNT(*) FROM event_attendees a
		        WHERE a.event_id = e.id AND a.status = 'registered')`

const insertEventSQL = `
		INSERT INTO events AS e (host_id, title, description, event_date, end_date, location,
		                         wines_theme, price, max_attendees, status, is_recurring,
		                         recurrence_count, series_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING ` + eventColumns

// CreateEvents inserts all events in one transaction, preserving order.
func (s *Store) CreateEvents(ctx context.Context, events []models.Event) ([]models.Event, error) {
	created := make([]models.Event, 0, len(events))
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		created, err = insertEvents(ctx, tx, events)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func insertEvents(ctx context.Context, tx *sql.Tx, events []models.Event) ([]models.Event, error) {
	stmt, err := tx.PrepareContext(ctx, insertEventSQL)
	if err != nil {
		return nil, fmt.Errorf("prepare event insert: %w", err)
	}
	defer stmt.Close()

	created := make([]models.Event, 0, len(events))
	for _, ev := range events {
		out, err := scanEvent(stmt.QueryRowContext(ctx,
			ev.HostID,
			ev.Title,
			ev.Description,
			ev.EventDate,
			ev.EndDate,
			ev.Location,
			ev.WinesTheme,
			ev.Price,
			ev.MaxAttendees,
			ev.Status,
			ev.IsRecurring,
			ev.RecurrenceCount,
			ev.SeriesID,
		))
		if err != nil {
			return nil, fmt.Errorf("insert event: %w", err)
		}
		created = append(created, out)
	}
	return created, nil
}

const selectEventByIDSQL = `
		SELECT ` + eventColumns + `
		FROM events e
		WHERE e.id = $1
	`

// EventByID returns a single event.
func (s *Store) EventByID(ctx context.Context, id string) (models.Event, error) {
	ev, err := scanEvent(s.db.QueryRowContext(ctx, selectEventByIDSQL, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Event{}, ErrEventNotFound
		}
		return models.Event{}, fmt.Errorf("select event: %w", err)
	}
	return ev, nil
}

const eventsByHostSQL = `
		SELECT ` + eventColumns + `, ` + registeredCountColumn + `
		FROM events e
		WHERE e.host_id = $1
		ORDER BY e.event_date ASC
	`

// EventsByHost lists every event of hostID with its registered attendee count.
func (s *Store) EventsByHost(ctx context.Context, hostID string) ([]models.EventWithCount, error) {
	rows, err := s.db.QueryContext(ctx, eventsByHostSQL, hostID)
	if err != nil {
		return nil, fmt.Errorf("list host events: %w", err)
	}
	defer rows.Close()
	return scanEventsWithCount(rows)
}

const upcomingEventsByHostSQL = `
		SELECT ` + eventColumns + `, ` + registeredCountColumn + `
		FROM events e
		WHERE e.host_id = $1 AND e.event_date >= NOW()
		ORDER BY e.event_date ASC
	`

// UpcomingEventsByHost lists future events of one club.
func (s *Store) UpcomingEventsByHost(ctx context.Context, hostID string) ([]models.EventWithCount, error) {
	rows, err := s.db.QueryContext(ctx, upcomingEventsByHostSQL, hostID)
	if err != nil {
		return nil, fmt.Errorf("list club events: %w", err)
	}
	defer rows.Close()
	return scanEventsWithCount(rows)
}

const upcomingEventsForMemberSQL = `
		SELECT ` + eventColumns + `, ` + registeredCountColumn + `,
		       u.full_name,
		       EXISTS (SELECT 1 FROM event_attendees r
		               WHERE r.event_id = e.id AND r.user_id = $1 AND r.status = 'registered')
		FROM events e
		JOIN memberships m ON m.host_id = e.host_id AND m.member_id = $1 AND m.status = 'active'
		JOIN users u ON u.id = e.host_id
		WHERE e.status = 'scheduled' AND e.event_date >= NOW()
		ORDER BY e.event_date ASC
		LIMIT $2 OFFSET $3
	`

// UpcomingEventsForMember returns scheduled future events from the member's active clubs.
func (s *Store) UpcomingEventsForMember(ctx context.Context, userID string, limit, offset int) ([]models.UpcomingEvent, error) {
	rows, err := s.db.QueryContext(ctx, upcomingEventsForMemberSQL, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list upcoming events: %w", err)
	}
	defer rows.Close()

	events := make([]models.UpcomingEvent, 0)
	for rows.Next() {
		var ue models.UpcomingEvent
		dest := append(eventDest(&ue.Event), &ue.AttendeeCount, &ue.HostName, &ue.UserRegistered)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan upcoming event: %w", err)
		}
		events = append(events, ue)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate upcoming events: %w", err)
	}
	return events, nil
}

const updateEventSQL = `
		UPDATE events AS e
		SET title = $2,
		    description = $3,
		    event_date = $4,
		    end_date = $5,
		    location = $6,
		    wines_theme = $7,
		    price = $8,
		    max_attendees = $9,
		    updated_at = NOW()
		WHERE e.id = $1
		RETURNING ` + eventColumns

// UpdateEvent writes the editable fields of ev.
func (s *Store) UpdateEvent(ctx context.Context, ev models.Event) (models.Event, error) {
	out, err := scanEvent(s.db.QueryRowContext(ctx, updateEventSQL,
		ev.ID,
		ev.Title,
		ev.Description,
		ev.EventDate,
		ev.EndDate,
		ev.Location,
		ev.WinesTheme,
		ev.Price,
		ev.MaxAttendees,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Event{}, ErrEventNotFound
		}
		return models.Event{}, fmt.Errorf("update event: %w", err)
	}
	return out, nil
}

const deleteEventSQL = `
		DELETE FROM events
		WHERE id = $1 AND host_id = $2
	`

// DeleteEvent removes an event of hostID. Attendees and payments cascade.
func (s *Store) DeleteEvent(ctx context.Context, hostID, id string) error {
	res, err := s.db.ExecContext(ctx, deleteEventSQL, id, hostID)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return expectAffected(res, ErrEventNotFound)
}

const deleteSeriesSQL = `
		DELETE FROM events
		WHERE host_id = $1 AND (id = $2 OR ($3::uuid IS NOT NULL AND series_id = $3::uuid))
	`

// ReplaceSeries deletes the event (and its series, if any) and inserts replacements atomically.
func (s *Store) ReplaceSeries(ctx context.Context, hostID, eventID string, seriesID *string, replacements []models.Event) ([]models.Event, error) {
	var created []models.Event
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, deleteSeriesSQL, hostID, eventID, seriesID); err != nil {
			return fmt.Errorf("delete series: %w", err)
		}
		var err error
		created, err = insertEvents(ctx, tx, replacements)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

const cancelEventSQL = `
		UPDATE events AS e
		SET status = 'cancelled', updated_at = NOW()
		WHERE e.id = $1 AND e.host_id = $2
		RETURNING ` + eventColumns

// CancelEvent soft-cancels an event owned by hostID.
func (s *Store) CancelEvent(ctx context.Context, hostID, id string) (models.Event, error) {
	ev, err := scanEvent(s.db.QueryRowContext(ctx, cancelEventSQL, id, hostID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Event{}, ErrEventNotFound
		}
		return models.Event{}, fmt.Errorf("cancel event: %w", err)
	}
	return ev, nil
}

// EventSummariesByHost returns title and date for every event of hostID.
func (s *Store) EventSummariesByHost(ctx context.Context, hostID string) ([]models.EventSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, host_id, title, event_date, price
		FROM events
		WHERE host_id = $1
	`, hostID)
	if err != nil {
		return nil, fmt.Errorf("list event summaries: %w", err)
	}
	defer rows.Close()
	return scanEventSummaries(rows)
}

// EventSummariesByHosts returns title and date for every event of the given hosts.
func (s *Store) EventSummariesByHosts(ctx context.Context, hostIDs []string) ([]models.EventSummary, error) {
	if len(hostIDs) == 0 {
		return []models.EventSummary{}, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, host_id, title, event_date, price
		FROM events
		WHERE host_id = ANY($1)
	`, pq.Array(hostIDs))
	if err != nil {
		return nil, fmt.Errorf("list event summaries: %w", err)
	}
	defer rows.Close()
	return scanEventSummaries(rows)
}

func scanEventSummaries(rows *sql.Rows) ([]models.EventSummary, error) {
	summaries := make([]models.EventSummary, 0)
	for rows.Next() {
		var es models.EventSummary
		if err := rows.Scan(&es.ID, &es.HostID, &es.Title, &es.EventDate, &es.Price); err != nil {
			return nil, fmt.Errorf("scan event summary: %w", err)
		}
		summaries = append(summaries, es)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event summaries: %w", err)
	}
	return summaries, nil
}

func eventDest(ev *models.Event) []any {
	return []any{
		&ev.ID,
		&ev.HostID,
		&ev.Title,
		&ev.Description,
		&ev.EventDate,
		&ev.EndDate,
		&ev.Location,
		&ev.WinesTheme,
		&ev.Price,
		&ev.MaxAttendees,
		&ev.Status,
		&ev.IsRecurring,
		&ev.RecurrenceCount,
		&ev.SeriesID,
		&ev.CreatedAt,
		&ev.UpdatedAt,
	}
}

func scanEvent(row rowScanner) (models.Event, error) {
	var ev models.Event
	err := row.Scan(eventDest(&ev)...)
	return ev, err
}

func scanEventsWithCount(rows *sql.Rows) ([]models.EventWithCount, error) {
	events := make([]models.EventWithCount, 0)
	for rows.Next() {
		var ec models.EventWithCount
		if err := rows.Scan(append(eventDest(&ec.Event), &ec.AttendeeCount)...); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}
