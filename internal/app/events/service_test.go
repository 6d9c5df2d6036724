package events

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vinoclub/internal/store"
	"vinoclub/shared/go/models"
)

func ptr[T any](v T) *T { return &v }

// fakeStore keeps events in memory and enforces capacity under a mutex like
// the row lock does in Postgres.
type fakeStore struct {
	mu         sync.Mutex
	events     map[string]models.Event
	attendees  map[string][]models.AttendeeRow
	payments   map[string][]models.EventPayment
	created    []models.Event
	replaced   []models.Event
	replacedID *string
	upserted   models.EventPayment
	merged     struct {
		userID        string
		defaultAmount *float64
		update        models.PaymentUpdate
	}
	limit, offset int
	seq           int
}

func newFakeStore(events ...models.Event) *fakeStore {
	f := &fakeStore{
		events:    map[string]models.Event{},
		attendees: map[string][]models.AttendeeRow{},
		payments:  map[string][]models.EventPayment{},
	}
	for _, ev := range events {
		f.events[ev.ID] = ev
	}
	return f
}

func (f *fakeStore) CreateEvents(ctx context.Context, events []models.Event) ([]models.Event, error) {
	out := make([]models.Event, 0, len(events))
	for _, ev := range events {
		f.seq++
		ev.ID = "ev-" + strconv.Itoa(f.seq)
		out = append(out, ev)
	}
	f.created = out
	return out, nil
}

func (f *fakeStore) EventByID(ctx context.Context, id string) (models.Event, error) {
	ev, ok := f.events[id]
	if !ok {
		return models.Event{}, store.ErrEventNotFound
	}
	return ev, nil
}

func (f *fakeStore) EventsByHost(ctx context.Context, hostID string) ([]models.EventWithCount, error) {
	return nil, nil
}

func (f *fakeStore) UpcomingEventsForMember(ctx context.Context, userID string, limit, offset int) ([]models.UpcomingEvent, error) {
	f.limit, f.offset = limit, offset
	return []models.UpcomingEvent{}, nil
}

func (f *fakeStore) UpdateEvent(ctx context.Context, ev models.Event) (models.Event, error) {
	f.events[ev.ID] = ev
	return ev, nil
}

func (f *fakeStore) DeleteEvent(ctx context.Context, hostID, id string) error {
	delete(f.events, id)
	return nil
}

func (f *fakeStore) ReplaceSeries(ctx context.Context, hostID, eventID string, seriesID *string, replacements []models.Event) ([]models.Event, error) {
	f.replacedID = seriesID
	f.replaced = replacements
	return replacements, nil
}

func (f *fakeStore) CancelEvent(ctx context.Context, hostID, id string) (models.Event, error) {
	ev, ok := f.events[id]
	if !ok || ev.HostID != hostID {
		return models.Event{}, store.ErrEventNotFound
	}
	ev.Status = models.EventCancelled
	return ev, nil
}

func (f *fakeStore) RegisterAttendee(ctx context.Context, eventID, userID string) (models.Attendee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ev, ok := f.events[eventID]
	if !ok {
		return models.Attendee{}, store.ErrEventNotFound
	}
	if ev.Status == models.EventCancelled {
		return models.Attendee{}, store.ErrEventCancelled
	}
	registered := 0
	for _, a := range f.attendees[eventID] {
		if a.UserID == userID && a.Status == models.AttendeeRegistered {
			return models.Attendee{}, store.ErrAlreadyRegistered
		}
		if a.Status == models.AttendeeRegistered {
			registered++
		}
	}
	if ev.MaxAttendees != nil && registered >= *ev.MaxAttendees {
		return models.Attendee{}, store.ErrEventFull
	}
	f.attendees[eventID] = append(f.attendees[eventID], models.AttendeeRow{UserID: userID, Status: models.AttendeeRegistered})
	return models.Attendee{EventID: eventID, UserID: userID, Status: models.AttendeeRegistered}, nil
}

func (f *fakeStore) CancelRegistration(ctx context.Context, eventID, userID string) error {
	return nil
}

func (f *fakeStore) AttendeesForEvent(ctx context.Context, eventID string) ([]models.AttendeeRow, error) {
	return f.attendees[eventID], nil
}

func (f *fakeStore) PaymentsForEvent(ctx context.Context, eventID string) ([]models.EventPayment, error) {
	return f.payments[eventID], nil
}

func (f *fakeStore) UpsertEventPayment(ctx context.Context, p models.EventPayment) (models.EventPayment, error) {
	f.upserted = p
	return p, nil
}

func (f *fakeStore) UpdateEventPayment(ctx context.Context, eventID, paymentID string, update models.PaymentUpdate) (models.EventPayment, error) {
	for _, p := range f.payments[eventID] {
		if p.ID == paymentID {
			if update.PaymentStatus != nil {
				p.PaymentStatus = *update.PaymentStatus
			}
			return p, nil
		}
	}
	return models.EventPayment{}, store.ErrPaymentNotFound
}

func (f *fakeStore) MergeEventPayment(ctx context.Context, eventID, userID string, defaultAmount *float64, update models.PaymentUpdate) (models.EventPayment, error) {
	f.merged.userID = userID
	f.merged.defaultAmount = defaultAmount
	f.merged.update = update
	return models.EventPayment{EventID: eventID, UserID: userID}, nil
}

var start = time.Date(2026, 3, 6, 19, 0, 0, 0, time.UTC)

func TestCreateRequiresTitleAndDate(t *testing.T) {
	svc := New(newFakeStore())

	_, err := svc.Create(context.Background(), "host-1", models.EventInput{Title: "Tasting"})
	require.ErrorIs(t, err, ErrTitleAndDateRequired)

	_, err = svc.Create(context.Background(), "host-1", models.EventInput{Title: "  ", EventDate: &start})
	require.ErrorIs(t, err, ErrTitleAndDateRequired)
}

func TestCreateSingleEvent(t *testing.T) {
	st := newFakeStore()
	res, err := New(st).Create(context.Background(), "host-1", models.EventInput{
		Title:       "Rioja night",
		EventDate:   &start,
		Description: ptr(""),
		Price:       ptr(25.0),
	})
	require.NoError(t, err)
	require.Len(t, res.Events, 1)
	assert.Equal(t, "Event created", res.Message)

	ev := res.Events[0]
	assert.Equal(t, "host-1", ev.HostID)
	assert.Equal(t, models.EventScheduled, ev.Status)
	assert.False(t, ev.IsRecurring)
	assert.Nil(t, ev.SeriesID)
	assert.Nil(t, ev.Description)
}

func TestCreateRecurringMakesWeeklySeries(t *testing.T) {
	st := newFakeStore()
	end := start.Add(2 * time.Hour)
	svc := New(st)
	svc.(*service).newID = func() string { return "series-1" }

	res, err := svc.Create(context.Background(), "host-1", models.EventInput{
		Title:       "Weekly pour",
		EventDate:   &start,
		EndDate:     &end,
		IsRecurring: ptr(true),
	})
	require.NoError(t, err)
	require.Len(t, res.Events, RecurringOccurrences)
	assert.Equal(t, "Created 52 recurring events", res.Message)

	for i, ev := range res.Events {
		assert.Equal(t, start.AddDate(0, 0, 7*i), ev.EventDate)
		assert.Equal(t, end.AddDate(0, 0, 7*i), *ev.EndDate)
		assert.Equal(t, "series-1", *ev.SeriesID)
		assert.Equal(t, 52, *ev.RecurrenceCount)
		assert.True(t, ev.IsRecurring)
	}
}

func TestUpdateOwnership(t *testing.T) {
	st := newFakeStore(models.Event{ID: "e1", HostID: "host-1", Title: "Old"})
	svc := New(st)

	_, err := svc.Update(context.Background(), "intruder", "e1", models.EventInput{Title: "New"})
	require.ErrorIs(t, err, ErrUpdateForbidden)

	_, err = svc.Update(context.Background(), "host-1", "missing", models.EventInput{})
	require.ErrorIs(t, err, ErrEventNotFound)

	err = svc.Delete(context.Background(), "intruder", "e1")
	require.ErrorIs(t, err, ErrDeleteForbidden)

	res, err := svc.Update(context.Background(), "host-1", "e1", models.EventInput{Title: "New", Price: ptr(30.0)})
	require.NoError(t, err)
	require.NotNil(t, res.Event)
	assert.Equal(t, "New", res.Event.Title)
	assert.Equal(t, 30.0, *res.Event.Price)
}

func TestUpdateRecurrenceRebuildsSeries(t *testing.T) {
	series := "series-9"
	st := newFakeStore(models.Event{
		ID: "e1", HostID: "host-1", Title: "Weekly", EventDate: start,
		IsRecurring: true, RecurrenceCount: ptr(52), SeriesID: &series,
	})
	svc := New(st)

	res, err := svc.Update(context.Background(), "host-1", "e1", models.EventInput{IsRecurring: ptr(true)})
	require.NoError(t, err)
	assert.Len(t, res.Events, DefaultSeriesLength)
	assert.Equal(t, "Updated recurring series: 12 events", res.Message)
	assert.Equal(t, &series, st.replacedID)
	assert.Equal(t, series, *st.replaced[0].SeriesID)

	res, err = svc.Update(context.Background(), "host-1", "e1", models.EventInput{IsRecurring: ptr(false)})
	require.NoError(t, err)
	require.NotNil(t, res.Event)
	assert.False(t, res.Event.IsRecurring)
	assert.Nil(t, res.Event.SeriesID)
}

func TestCancelScopedToHost(t *testing.T) {
	st := newFakeStore(models.Event{ID: "e1", HostID: "host-1"})
	_, err := New(st).Cancel(context.Background(), "other", "e1")
	require.ErrorIs(t, err, ErrEventNotOwned)

	ev, err := New(st).Cancel(context.Background(), "host-1", "e1")
	require.NoError(t, err)
	assert.Equal(t, models.EventCancelled, ev.Status)
}

func TestRegisterEnforcesCapacity(t *testing.T) {
	st := newFakeStore(models.Event{ID: "e1", HostID: "host-1", MaxAttendees: ptr(3), Status: models.EventScheduled})
	svc := New(st)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok      int
		full    int
		unknown []error
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Register(context.Background(), "user-"+strconv.Itoa(i), "e1")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case err == ErrEventFull:
				full++
			default:
				unknown = append(unknown, err)
			}
		}(i)
	}
	wg.Wait()

	assert.Empty(t, unknown)
	assert.Equal(t, 3, ok)
	assert.Equal(t, 7, full)

	_, err := svc.Register(context.Background(), "user-x", "e1")
	require.ErrorIs(t, err, ErrEventFull)
	assert.Equal(t, "Event is fully booked", err.Error())
}

func TestRegisterErrors(t *testing.T) {
	st := newFakeStore(
		models.Event{ID: "open", Status: models.EventScheduled},
		models.Event{ID: "off", Status: models.EventCancelled},
	)
	svc := New(st)

	_, err := svc.Register(context.Background(), "u1", "")
	require.ErrorIs(t, err, ErrEventIDRequired)

	_, err = svc.Register(context.Background(), "u1", "nope")
	require.ErrorIs(t, err, ErrEventNotFound)

	_, err = svc.Register(context.Background(), "u1", "off")
	require.ErrorIs(t, err, ErrEventCancelled)

	_, err = svc.Register(context.Background(), "u1", "open")
	require.NoError(t, err)
	_, err = svc.Register(context.Background(), "u1", "open")
	require.ErrorIs(t, err, ErrAlreadyRegistered)
}

func TestLedgerScenario(t *testing.T) {
	st := newFakeStore(models.Event{ID: "e1", HostID: "host-1", Title: "Barolo", Price: ptr(25.0)})
	st.attendees["e1"] = []models.AttendeeRow{
		{ID: "a1", UserID: "u1", Status: models.AttendeeRegistered, FullName: ptr("Ada")},
		{ID: "a2", UserID: "u2", Status: models.AttendeeRegistered},
		{ID: "a3", UserID: "u3", Status: models.AttendeeCancelled},
	}
	st.payments["e1"] = []models.EventPayment{
		{ID: "p1", UserID: "u1", Amount: 25, PaymentStatus: models.PaymentPaid},
	}

	ledger, err := New(st).Ledger(context.Background(), "host-1", "e1")
	require.NoError(t, err)

	assert.Equal(t, 2, ledger.TotalAttendees)
	assert.Equal(t, 1, ledger.PaidCount)
	assert.Equal(t, 25.0, ledger.TotalCollected)
	assert.Equal(t, 50.0, ledger.TotalExpected)
	require.Len(t, ledger.Attendees, 3)
	assert.Equal(t, "Ada", ledger.Attendees[0].Name)
	assert.Equal(t, "p1", *ledger.Attendees[0].PaymentID)
	assert.Equal(t, "Unknown", ledger.Attendees[1].Name)
	assert.Nil(t, ledger.Attendees[1].PaymentStatus)
	assert.Equal(t, 25.0, *ledger.Attendees[1].PaymentAmount)

	_, err = New(st).Ledger(context.Background(), "host-2", "e1")
	require.ErrorIs(t, err, ErrNotEventHost)
}

func TestLedgerWithoutPrice(t *testing.T) {
	ledger := BuildEventLedger(models.Event{ID: "e1"}, []models.AttendeeRow{{UserID: "u1"}}, nil)
	assert.Equal(t, 0.0, ledger.TotalExpected)
	assert.Equal(t, 1, ledger.TotalAttendees)
	assert.Equal(t, models.AttendeeRegistered, ledger.Attendees[0].RSVPStatus)
}

func TestRecordPaymentDefaults(t *testing.T) {
	st := newFakeStore(models.Event{ID: "e1", HostID: "host-1", Price: ptr(40.0)})
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	svc := New(st, WithClock(func() time.Time { return now }))

	_, err := svc.RecordPayment(context.Background(), "host-1", "e1", PaymentInput{UserID: "u1", PaymentMethod: ptr("venmo")})
	require.NoError(t, err)
	assert.Equal(t, 40.0, st.upserted.Amount)
	assert.Equal(t, models.PaymentPaid, st.upserted.PaymentStatus)
	assert.Equal(t, now, *st.upserted.PaymentDate)

	_, err = svc.RecordPayment(context.Background(), "host-1", "e1", PaymentInput{})
	require.ErrorIs(t, err, ErrUserIDRequired)

	_, err = svc.RecordPayment(context.Background(), "host-2", "e1", PaymentInput{UserID: "u1"})
	require.ErrorIs(t, err, ErrNotEventHost)
}

func TestUpdatePaymentTargets(t *testing.T) {
	st := newFakeStore(models.Event{ID: "e1", HostID: "host-1", Price: ptr(40.0)})
	st.payments["e1"] = []models.EventPayment{{ID: "p1", UserID: "u1", PaymentStatus: models.PaymentPending}}
	svc := New(st)

	_, err := svc.UpdatePayment(context.Background(), "host-1", "e1", PaymentInput{})
	require.ErrorIs(t, err, ErrPaymentTarget)
	assert.Equal(t, "Either payment_id or user_id is required", err.Error())

	p, err := svc.UpdatePayment(context.Background(), "host-1", "e1", PaymentInput{PaymentID: "p1", PaymentStatus: ptr(models.PaymentPaid)})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, p.PaymentStatus)

	_, err = svc.UpdatePayment(context.Background(), "host-1", "e1", PaymentInput{PaymentID: "zzz"})
	require.ErrorIs(t, err, ErrPaymentNotFound)

	_, err = svc.UpdatePayment(context.Background(), "host-1", "e1", PaymentInput{UserID: "u2", PaymentMethod: ptr("cash")})
	require.NoError(t, err)
	assert.Equal(t, "u2", st.merged.userID)
	assert.Equal(t, 40.0, *st.merged.defaultAmount)
	assert.Equal(t, "cash", *st.merged.update.PaymentMethod)
}

func TestUpcomingClampsPaging(t *testing.T) {
	st := newFakeStore()
	svc := New(st)

	_, err := svc.Upcoming(context.Background(), "u1", 0, -5)
	require.NoError(t, err)
	assert.Equal(t, DefaultUpcomingLimit, st.limit)
	assert.Equal(t, 0, st.offset)

	_, err = svc.Upcoming(context.Background(), "u1", 1000, 10)
	require.NoError(t, err)
	assert.Equal(t, MaxUpcomingLimit, st.limit)
	assert.Equal(t, 10, st.offset)
}
