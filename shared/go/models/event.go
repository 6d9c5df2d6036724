package models

import "time"

// Event statuses.
const (
	EventScheduled = "scheduled"
	EventCancelled = "cancelled"
	EventCompleted = "completed"
)

// Attendee statuses.
const (
	AttendeeRegistered = "registered"
	AttendeeCancelled  = "cancelled"
)

// Payment statuses shared by event payments and charges.
const (
	PaymentPending   = "pending"
	PaymentPaid      = "paid"
	PaymentRefunded  = "refunded"
	PaymentCancelled = "cancelled"
)

// Event is a host-authored gathering.
type Event struct {
	ID              string     `json:"id"`
	HostID          string     `json:"host_id"`
	Title           string     `json:"title"`
	Description     *string    `json:"description"`
	EventDate       time.Time  `json:"event_date"`
	EndDate         *time.Time `json:"end_date"`
	Location        *string    `json:"location"`
	WinesTheme      *string    `json:"wines_theme"`
	Price           *float64   `json:"price"`
	MaxAttendees    *int       `json:"max_attendees"`
	Status          string     `json:"status"`
	IsRecurring     bool       `json:"is_recurring"`
	RecurrenceCount *int       `json:"recurrence_count"`
	SeriesID        *string    `json:"series_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// EventWithCount carries the number of registered attendees.
type EventWithCount struct {
	Event
	AttendeeCount int `json:"attendee_count"`
}

// UpcomingEvent is an event in a member's feed.
type UpcomingEvent struct {
	EventWithCount
	HostName       *string `json:"host_name"`
	UserRegistered bool    `json:"user_registered"`
}

// EventInput is the writable part of an event.
type EventInput struct {
	Title           string     `json:"title"`
	Description     *string    `json:"description"`
	EventDate       *time.Time `json:"event_date"`
	EndDate         *time.Time `json:"end_date"`
	Location        *string    `json:"location"`
	WinesTheme      *string    `json:"wines_theme"`
	Price           *float64   `json:"price"`
	MaxAttendees    *int       `json:"max_attendees"`
	IsRecurring     *bool      `json:"is_recurring"`
	RecurrenceCount *int       `json:"recurrence_count"`
}

// Attendee is a user's registration for an event.
type Attendee struct {
	ID           string    `json:"id"`
	EventID      string    `json:"event_id"`
	UserID       string    `json:"user_id"`
	Status       string    `json:"status"`
	RegisteredAt time.Time `json:"registered_at"`
}

// EventPayment records what an attendee paid for an event.
type EventPayment struct {
	ID            string     `json:"id"`
	EventID       string     `json:"event_id"`
	UserID        string     `json:"user_id"`
	Amount        float64    `json:"amount"`
	PaymentStatus string     `json:"payment_status"`
	PaymentMethod *string    `json:"payment_method"`
	PaymentDate   *time.Time `json:"payment_date"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// PaymentUpdate lists optional payment fields; nil means unchanged.
type PaymentUpdate struct {
	Amount        *float64   `json:"amount"`
	PaymentStatus *string    `json:"payment_status"`
	PaymentMethod *string    `json:"payment_method"`
	PaymentDate   *time.Time `json:"payment_date"`
}

// AttendeeRow is an attendee joined with the user row, as read for ledgers.
type AttendeeRow struct {
	ID       string
	UserID   string
	Status   string
	FullName *string
	Email    *string
}

// EventLedgerAttendee is one row of a host's per-event ledger.
type EventLedgerAttendee struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	RSVPStatus    string     `json:"rsvp_status"`
	PaymentID     *string    `json:"payment_id"`
	PaymentStatus *string    `json:"payment_status"`
	PaymentAmount *float64   `json:"payment_amount"`
	PaymentMethod *string    `json:"payment_method"`
	PaymentDate   *time.Time `json:"payment_date"`
}

// EventLedger summarizes attendance and collections for one event.
type EventLedger struct {
	EventID        string                `json:"event_id"`
	EventTitle     string                `json:"event_title"`
	EventDate      time.Time             `json:"event_date"`
	EventPrice     *float64              `json:"event_price"`
	TotalAttendees int                   `json:"total_attendees"`
	PaidCount      int                   `json:"paid_count"`
	TotalCollected float64               `json:"total_collected"`
	TotalExpected  float64               `json:"total_expected"`
	Attendees      []EventLedgerAttendee `json:"attendees"`
}
