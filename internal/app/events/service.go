// Package events implements host event management, RSVPs and per-event payments.
package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"vinoclub/internal/apperr"
	"vinoclub/internal/store"
	"vinoclub/shared/go/logging"
	"vinoclub/shared/go/models"
)

const (
	// RecurringOccurrences is how many weekly events a new recurring event creates.
	RecurringOccurrences = 52
	// DefaultSeriesLength applies when a series is rebuilt without a count.
	DefaultSeriesLength = 12

	DefaultUpcomingLimit = 20
	MaxUpcomingLimit     = 100
)

var (
	ErrTitleAndDateRequired = apperr.Validation("Title and event date are required")
	ErrEventIDRequired      = apperr.Validation("Event ID is required")
	ErrUserIDRequired       = apperr.Validation("User ID is required")
	ErrPaymentTarget        = apperr.Validation("Either payment_id or user_id is required")
	ErrEventNotFound        = apperr.NotFound("Event not found")
	ErrEventNotOwned        = apperr.NotFound("Event not found or unauthorized")
	ErrPaymentNotFound      = apperr.NotFound("Payment not found")
	ErrEventCancelled       = apperr.Validation("This event has been cancelled")
	ErrEventFull            = apperr.Validation("Event is fully booked")
	ErrAlreadyRegistered    = apperr.Validation("You are already registered for this event")
	ErrNotEventHost         = apperr.Forbidden("Forbidden - you are not the host of this event")
	ErrUpdateForbidden      = apperr.Forbidden("You do not have permission to update this event")
	ErrDeleteForbidden      = apperr.Forbidden("You do not have permission to delete this event")
)

// Store defines the persistence hooks for events.
type Store interface {
	CreateEvents(ctx context.Context, events []models.Event) ([]models.Event, error)
	EventByID(ctx context.Context, id string) (models.Event, error)
	EventsByHost(ctx context.Context, hostID string) ([]models.EventWithCount, error)
	UpcomingEventsForMember(ctx context.Context, userID string, limit, offset int) ([]models.UpcomingEvent, error)
	UpdateEvent(ctx context.Context, ev models.Event) (models.Event, error)
	DeleteEvent(ctx context.Context, hostID, id string) error
	ReplaceSeries(ctx context.Context, hostID, eventID string, seriesID *string, replacements []models.Event) ([]models.Event, error)
	CancelEvent(ctx context.Context, hostID, id string) (models.Event, error)

	RegisterAttendee(ctx context.Context, eventID, userID string) (models.Attendee, error)
	CancelRegistration(ctx context.Context, eventID, userID string) error
	AttendeesForEvent(ctx context.Context, eventID string) ([]models.AttendeeRow, error)

	PaymentsForEvent(ctx context.Context, eventID string) ([]models.EventPayment, error)
	UpsertEventPayment(ctx context.Context, p models.EventPayment) (models.EventPayment, error)
	UpdateEventPayment(ctx context.Context, eventID, paymentID string, update models.PaymentUpdate) (models.EventPayment, error)
	MergeEventPayment(ctx context.Context, eventID, userID string, defaultAmount *float64, update models.PaymentUpdate) (models.EventPayment, error)
}

// Recorder counts RSVP outcomes.
type Recorder interface {
	RecordBusinessEvent(action string, success bool)
}

// CreateResult is returned by Create.
type CreateResult struct {
	Events  []models.Event `json:"events"`
	Message string         `json:"message"`
}

// UpdateResult holds either the edited event or a rebuilt series.
type UpdateResult struct {
	Event   *models.Event  `json:"event,omitempty"`
	Events  []models.Event `json:"events,omitempty"`
	Message string         `json:"message,omitempty"`
}

// PaymentInput is the body of the per-event payment endpoints.
type PaymentInput struct {
	PaymentID     string     `json:"payment_id"`
	UserID        string     `json:"user_id"`
	Amount        *float64   `json:"amount"`
	PaymentStatus *string    `json:"payment_status"`
	PaymentMethod *string    `json:"payment_method"`
	PaymentDate   *time.Time `json:"payment_date"`
}

func (in PaymentInput) update() models.PaymentUpdate {
	return models.PaymentUpdate{
		Amount:        in.Amount,
		PaymentStatus: in.PaymentStatus,
		PaymentMethod: in.PaymentMethod,
		PaymentDate:   in.PaymentDate,
	}
}

// Service exposes the event workflows.
type Service interface {
	HostEvents(ctx context.Context, hostID string) ([]models.EventWithCount, error)
	Create(ctx context.Context, hostID string, in models.EventInput) (CreateResult, error)
	Update(ctx context.Context, hostID, eventID string, in models.EventInput) (UpdateResult, error)
	Delete(ctx context.Context, hostID, eventID string) error
	Cancel(ctx context.Context, hostID, eventID string) (models.Event, error)

	Upcoming(ctx context.Context, userID string, limit, offset int) ([]models.UpcomingEvent, error)
	Register(ctx context.Context, userID, eventID string) (models.Attendee, error)
	CancelRegistration(ctx context.Context, userID, eventID string) error

	Ledger(ctx context.Context, hostID, eventID string) (models.EventLedger, error)
	RecordPayment(ctx context.Context, hostID, eventID string, in PaymentInput) (models.EventPayment, error)
	UpdatePayment(ctx context.Context, hostID, eventID string, in PaymentInput) (models.EventPayment, error)
}

// Option customizes the service.
type Option func(*service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

// WithRecorder reports registrations to r.
func WithRecorder(r Recorder) Option {
	return func(s *service) { s.recorder = r }
}

type service struct {
	store    Store
	recorder Recorder
	now      func() time.Time
	newID    func() string
}

// New constructs an events Service backed by the given Store.
func New(store Store, opts ...Option) Service {
	s := &service{
		store: store,
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) HostEvents(ctx context.Context, hostID string) ([]models.EventWithCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.EventsByHost(ctx, hostID)
}

// Create inserts one event, or RecurringOccurrences weekly events sharing a
// series id when in.IsRecurring is set.
func (s *service) Create(ctx context.Context, hostID string, in models.EventInput) (CreateResult, error) {
	if err := ctx.Err(); err != nil {
		return CreateResult{}, err
	}
	if strings.TrimSpace(in.Title) == "" || in.EventDate == nil {
		return CreateResult{}, ErrTitleAndDateRequired
	}

	template := fromInput(hostID, in)
	recurring := in.IsRecurring != nil && *in.IsRecurring

	var batch []models.Event
	if recurring {
		batch = weeklySeries(template, RecurringOccurrences, s.newID())
	} else {
		batch = []models.Event{template}
	}

	created, err := s.store.CreateEvents(ctx, batch)
	if err != nil {
		return CreateResult{}, fmt.Errorf("create events: %w", err)
	}

	logging.FromContext(ctx).Info().
		Str("host_id", hostID).
		Int("count", len(created)).
		Msg("events created")

	msg := "Event created"
	if recurring {
		msg = fmt.Sprintf("Created %d recurring events", len(created))
	}
	return CreateResult{Events: created, Message: msg}, nil
}

// Update overlays the provided fields onto the event. Changing the recurrence
// of a recurring event deletes its series and rebuilds it.
func (s *service) Update(ctx context.Context, hostID, eventID string, in models.EventInput) (UpdateResult, error) {
	if err := ctx.Err(); err != nil {
		return UpdateResult{}, err
	}

	existing, err := s.ownedEvent(ctx, hostID, eventID, ErrUpdateForbidden)
	if err != nil {
		return UpdateResult{}, err
	}

	merged := overlay(existing, in)

	if existing.IsRecurring && recurrenceChanged(existing, in) {
		return s.rebuildSeries(ctx, existing, merged, *in.IsRecurring, in.RecurrenceCount)
	}

	updated, err := s.store.UpdateEvent(ctx, merged)
	if err != nil {
		if errors.Is(err, store.ErrEventNotFound) {
			return UpdateResult{}, ErrEventNotFound
		}
		return UpdateResult{}, fmt.Errorf("update event: %w", err)
	}
	return UpdateResult{Event: &updated}, nil
}

func (s *service) rebuildSeries(ctx context.Context, existing, merged models.Event, recurring bool, count *int) (UpdateResult, error) {
	var replacements []models.Event
	if recurring {
		n := DefaultSeriesLength
		if count != nil && *count > 0 {
			n = *count
		}
		seriesID := s.newID()
		if existing.SeriesID != nil {
			seriesID = *existing.SeriesID
		}
		replacements = weeklySeries(merged, n, seriesID)
	} else {
		single := merged
		single.IsRecurring = false
		single.RecurrenceCount = nil
		single.SeriesID = nil
		replacements = []models.Event{single}
	}

	created, err := s.store.ReplaceSeries(ctx, existing.HostID, existing.ID, existing.SeriesID, replacements)
	if err != nil {
		return UpdateResult{}, fmt.Errorf("replace series: %w", err)
	}

	logging.FromContext(ctx).Info().
		Str("event_id", existing.ID).
		Int("count", len(created)).
		Msg("event series rebuilt")

	if !recurring {
		return UpdateResult{Event: &created[0]}, nil
	}
	return UpdateResult{
		Events:  created,
		Message: fmt.Sprintf("Updated recurring series: %d events", len(created)),
	}, nil
}

func (s *service) Delete(ctx context.Context, hostID, eventID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.ownedEvent(ctx, hostID, eventID, ErrDeleteForbidden); err != nil {
		return err
	}
	if err := s.store.DeleteEvent(ctx, hostID, eventID); err != nil {
		if errors.Is(err, store.ErrEventNotFound) {
			return ErrEventNotFound
		}
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

func (s *service) Cancel(ctx context.Context, hostID, eventID string) (models.Event, error) {
	if err := ctx.Err(); err != nil {
		return models.Event{}, err
	}
	ev, err := s.store.CancelEvent(ctx, hostID, eventID)
	if err != nil {
		if errors.Is(err, store.ErrEventNotFound) {
			return models.Event{}, ErrEventNotOwned
		}
		return models.Event{}, fmt.Errorf("cancel event: %w", err)
	}
	return ev, nil
}

// Upcoming lists scheduled future events from the user's active clubs.
func (s *service) Upcoming(ctx context.Context, userID string, limit, offset int) ([]models.UpcomingEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultUpcomingLimit
	}
	if limit > MaxUpcomingLimit {
		limit = MaxUpcomingLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.UpcomingEventsForMember(ctx, userID, limit, offset)
}

// Register reserves a seat. Capacity is enforced atomically by the store.
func (s *service) Register(ctx context.Context, userID, eventID string) (models.Attendee, error) {
	if err := ctx.Err(); err != nil {
		return models.Attendee{}, err
	}
	if strings.TrimSpace(eventID) == "" {
		return models.Attendee{}, ErrEventIDRequired
	}

	attendee, err := s.store.RegisterAttendee(ctx, eventID, userID)
	s.record("event_register", err == nil)
	switch {
	case errors.Is(err, store.ErrEventNotFound):
		return models.Attendee{}, ErrEventNotFound
	case errors.Is(err, store.ErrEventCancelled):
		return models.Attendee{}, ErrEventCancelled
	case errors.Is(err, store.ErrEventFull):
		return models.Attendee{}, ErrEventFull
	case errors.Is(err, store.ErrAlreadyRegistered):
		return models.Attendee{}, ErrAlreadyRegistered
	case err != nil:
		return models.Attendee{}, fmt.Errorf("register attendee: %w", err)
	}
	return attendee, nil
}

func (s *service) CancelRegistration(ctx context.Context, userID, eventID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(eventID) == "" {
		return ErrEventIDRequired
	}
	s.record("event_cancel_registration", true)
	return s.store.CancelRegistration(ctx, eventID, userID)
}

// Ledger joins attendees with their payments for the event's host.
func (s *service) Ledger(ctx context.Context, hostID, eventID string) (models.EventLedger, error) {
	if err := ctx.Err(); err != nil {
		return models.EventLedger{}, err
	}

	ev, err := s.ownedEvent(ctx, hostID, eventID, ErrNotEventHost)
	if err != nil {
		return models.EventLedger{}, err
	}

	attendees, err := s.store.AttendeesForEvent(ctx, eventID)
	if err != nil {
		return models.EventLedger{}, fmt.Errorf("load attendees: %w", err)
	}
	payments, err := s.store.PaymentsForEvent(ctx, eventID)
	if err != nil {
		return models.EventLedger{}, fmt.Errorf("load payments: %w", err)
	}
	return BuildEventLedger(ev, attendees, payments), nil
}

// BuildEventLedger computes the per-event attendee table and totals.
func BuildEventLedger(ev models.Event, attendees []models.AttendeeRow, payments []models.EventPayment) models.EventLedger {
	byUser := make(map[string]models.EventPayment, len(payments))
	for _, p := range payments {
		byUser[p.UserID] = p
	}

	ledger := models.EventLedger{
		EventID:    ev.ID,
		EventTitle: ev.Title,
		EventDate:  ev.EventDate,
		EventPrice: ev.Price,
		Attendees:  make([]models.EventLedgerAttendee, 0, len(attendees)),
	}

	for _, a := range attendees {
		row := models.EventLedgerAttendee{
			ID:            a.ID,
			UserID:        a.UserID,
			Name:          "Unknown",
			RSVPStatus:    a.Status,
			PaymentAmount: ev.Price,
		}
		if a.FullName != nil && *a.FullName != "" {
			row.Name = *a.FullName
		}
		if a.Email != nil {
			row.Email = *a.Email
		}
		if row.RSVPStatus == "" {
			row.RSVPStatus = models.AttendeeRegistered
		}

		if p, ok := byUser[a.UserID]; ok {
			id, status := p.ID, p.PaymentStatus
			row.PaymentID = &id
			row.PaymentStatus = &status
			row.PaymentMethod = p.PaymentMethod
			row.PaymentDate = p.PaymentDate
			if p.Amount != 0 {
				amount := p.Amount
				row.PaymentAmount = &amount
			}
		}

		if row.RSVPStatus != models.AttendeeCancelled {
			ledger.TotalAttendees++
		}
		if row.PaymentStatus != nil && *row.PaymentStatus == models.PaymentPaid {
			ledger.PaidCount++
			if row.PaymentAmount != nil {
				ledger.TotalCollected += *row.PaymentAmount
			}
		}
		ledger.Attendees = append(ledger.Attendees, row)
	}

	if ev.Price != nil {
		ledger.TotalExpected = float64(ledger.TotalAttendees) * *ev.Price
	}
	return ledger
}

// RecordPayment upserts the attendee's payment, defaulting the amount to the
// event price, the status to paid and the date to now.
func (s *service) RecordPayment(ctx context.Context, hostID, eventID string, in PaymentInput) (models.EventPayment, error) {
	if err := ctx.Err(); err != nil {
		return models.EventPayment{}, err
	}

	ev, err := s.ownedEvent(ctx, hostID, eventID, ErrNotEventHost)
	if err != nil {
		return models.EventPayment{}, err
	}
	if strings.TrimSpace(in.UserID) == "" {
		return models.EventPayment{}, ErrUserIDRequired
	}

	payment := models.EventPayment{
		EventID:       eventID,
		UserID:        in.UserID,
		PaymentStatus: models.PaymentPaid,
		PaymentMethod: in.PaymentMethod,
	}
	switch {
	case in.Amount != nil && *in.Amount != 0:
		payment.Amount = *in.Amount
	case ev.Price != nil:
		payment.Amount = *ev.Price
	}
	if in.PaymentStatus != nil && *in.PaymentStatus != "" {
		payment.PaymentStatus = *in.PaymentStatus
	}
	if in.PaymentDate != nil {
		payment.PaymentDate = in.PaymentDate
	} else {
		now := s.now().UTC()
		payment.PaymentDate = &now
	}

	out, err := s.store.UpsertEventPayment(ctx, payment)
	if err != nil {
		return models.EventPayment{}, fmt.Errorf("record payment: %w", err)
	}
	return out, nil
}

// UpdatePayment patches a payment by id, or merges into the user's payment row.
func (s *service) UpdatePayment(ctx context.Context, hostID, eventID string, in PaymentInput) (models.EventPayment, error) {
	if err := ctx.Err(); err != nil {
		return models.EventPayment{}, err
	}

	ev, err := s.ownedEvent(ctx, hostID, eventID, ErrNotEventHost)
	if err != nil {
		return models.EventPayment{}, err
	}

	switch {
	case in.PaymentID != "":
		out, err := s.store.UpdateEventPayment(ctx, eventID, in.PaymentID, in.update())
		if err != nil {
			if errors.Is(err, store.ErrPaymentNotFound) {
				return models.EventPayment{}, ErrPaymentNotFound
			}
			return models.EventPayment{}, fmt.Errorf("update payment: %w", err)
		}
		return out, nil
	case in.UserID != "":
		out, err := s.store.MergeEventPayment(ctx, eventID, in.UserID, ev.Price, in.update())
		if err != nil {
			return models.EventPayment{}, fmt.Errorf("merge payment: %w", err)
		}
		return out, nil
	default:
		return models.EventPayment{}, ErrPaymentTarget
	}
}

// ownedEvent loads the event and checks hostID owns it, returning forbidden otherwise.
func (s *service) ownedEvent(ctx context.Context, hostID, eventID string, forbidden *apperr.Error) (models.Event, error) {
	ev, err := s.store.EventByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, store.ErrEventNotFound) {
			return models.Event{}, ErrEventNotFound
		}
		return models.Event{}, fmt.Errorf("load event: %w", err)
	}
	if ev.HostID != hostID {
		return models.Event{}, forbidden
	}
	return ev, nil
}

func (s *service) record(action string, success bool) {
	if s.recorder != nil {
		s.recorder.RecordBusinessEvent(action, success)
	}
}

func fromInput(hostID string, in models.EventInput) models.Event {
	return models.Event{
		HostID:       hostID,
		Title:        strings.TrimSpace(in.Title),
		Description:  blankToNil(in.Description),
		EventDate:    *in.EventDate,
		EndDate:      in.EndDate,
		Location:     blankToNil(in.Location),
		WinesTheme:   blankToNil(in.WinesTheme),
		Price:        in.Price,
		MaxAttendees: in.MaxAttendees,
		Status:       models.EventScheduled,
	}
}

// weeklySeries repeats template n times, seven days apart.
func weeklySeries(template models.Event, n int, seriesID string) []models.Event {
	count := n
	out := make([]models.Event, 0, n)
	for i := 0; i < n; i++ {
		ev := template
		ev.EventDate = template.EventDate.AddDate(0, 0, 7*i)
		if template.EndDate != nil {
			end := template.EndDate.AddDate(0, 0, 7*i)
			ev.EndDate = &end
		}
		ev.Status = models.EventScheduled
		ev.IsRecurring = true
		ev.RecurrenceCount = &count
		ev.SeriesID = &seriesID
		out = append(out, ev)
	}
	return out
}

func overlay(ev models.Event, in models.EventInput) models.Event {
	if t := strings.TrimSpace(in.Title); t != "" {
		ev.Title = t
	}
	if in.Description != nil {
		ev.Description = blankToNil(in.Description)
	}
	if in.EventDate != nil {
		ev.EventDate = *in.EventDate
	}
	if in.EndDate != nil {
		ev.EndDate = in.EndDate
	}
	if in.Location != nil {
		ev.Location = blankToNil(in.Location)
	}
	if in.WinesTheme != nil {
		ev.WinesTheme = blankToNil(in.WinesTheme)
	}
	if in.Price != nil {
		ev.Price = in.Price
	}
	if in.MaxAttendees != nil {
		ev.MaxAttendees = in.MaxAttendees
	}
	return ev
}

func recurrenceChanged(ev models.Event, in models.EventInput) bool {
	if in.IsRecurring == nil {
		return false
	}
	if *in.IsRecurring != ev.IsRecurring {
		return true
	}
	if !*in.IsRecurring {
		return false
	}
	switch {
	case in.RecurrenceCount == nil && ev.RecurrenceCount == nil:
		return false
	case in.RecurrenceCount == nil || ev.RecurrenceCount == nil:
		return true
	default:
		return *in.RecurrenceCount != *ev.RecurrenceCount
	}
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}
