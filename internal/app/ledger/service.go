// Package ledger merges general charges and event payments into host ledgers
// and member dues.
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"vinoclub/internal/apperr"
	"vinoclub/shared/go/logging"
	"vinoclub/shared/go/models"
)

var (
	ErrMissingChargeFields    = apperr.Validation("Missing required fields: charge_type, title, amount")
	ErrInvalidTransactionType = apperr.Validation("transaction_type must be charge or expense")
)

// Warning texts attached to partial results.
const (
	WarnCharges       = "charges unavailable"
	WarnEvents        = "events unavailable"
	WarnEventPayments = "event payments unavailable"
	WarnMemberships   = "memberships unavailable"
	WarnHosts         = "club details unavailable"
)

// Store defines the reads and writes behind ledgers and charges.
type Store interface {
	ChargesByHost(ctx context.Context, hostID string) ([]models.Charge, error)
	ChargesByMember(ctx context.Context, memberID string) ([]models.Charge, error)
	EventSummariesByHost(ctx context.Context, hostID string) ([]models.EventSummary, error)
	EventSummariesByHosts(ctx context.Context, hostIDs []string) ([]models.EventSummary, error)
	PaymentsForEvents(ctx context.Context, eventIDs []string) ([]models.EventPaymentRow, error)
	PaymentsForUser(ctx context.Context, userID string, eventIDs []string) ([]models.EventPayment, error)
	ActiveHostIDs(ctx context.Context, memberID string) ([]string, error)
	HostSummaries(ctx context.Context, hostIDs []string) ([]models.HostSummary, error)
	CreateCharge(ctx context.Context, charge models.Charge) (models.Charge, error)
	CreateChargesForActiveMembers(ctx context.Context, template models.Charge) (int, error)
}

// ChargeResult is either a single charge or a fan-out count.
type ChargeResult struct {
	Charge  *models.Charge `json:"charge,omitempty"`
	Message string         `json:"message,omitempty"`
	Count   *int           `json:"count,omitempty"`
}

// Service exposes ledger reads and charge creation.
type Service interface {
	HostLedger(ctx context.Context, hostID string) (models.HostLedger, error)
	MemberDues(ctx context.Context, userID string) (models.MemberDues, error)
	CreateCharge(ctx context.Context, hostID string, in models.ChargeInput) (ChargeResult, error)
}

type service struct {
	store Store
	now   func() time.Time
}

// New constructs a ledger Service backed by the given Store.
func New(store Store) Service {
	return &service{store: store, now: time.Now}
}

// partial collects warnings from concurrent fetches.
type partial struct {
	warnings []string
}

func (p *partial) fail(ctx context.Context, step, warning string, err error) {
	logging.FromContext(ctx).Warn().Err(err).Str("step", step).Msg("ledger fetch failed")
	p.warnings = append(p.warnings, warning)
}

// HostLedger lists the host's charges and the payments for the host's events.
// A failed sub-fetch leaves its items out and marks the result partial.
func (s *service) HostLedger(ctx context.Context, hostID string) (models.HostLedger, error) {
	if err := ctx.Err(); err != nil {
		return models.HostLedger{}, err
	}

	var (
		charges    []models.Charge
		events     []models.EventSummary
		chargesErr error
		eventsErr  error
	)
	var g errgroup.Group
	g.Go(func() error {
		charges, chargesErr = s.store.ChargesByHost(ctx, hostID)
		return nil
	})
	g.Go(func() error {
		events, eventsErr = s.store.EventSummariesByHost(ctx, hostID)
		return nil
	})
	_ = g.Wait()

	var p partial
	if chargesErr != nil {
		p.fail(ctx, "charges", WarnCharges, chargesErr)
	}
	if eventsErr != nil {
		p.fail(ctx, "events", WarnEvents, eventsErr)
	}

	var payments []models.EventPaymentRow
	if len(events) > 0 {
		ids := make([]string, 0, len(events))
		for _, ev := range events {
			ids = append(ids, ev.ID)
		}
		var err error
		payments, err = s.store.PaymentsForEvents(ctx, ids)
		if err != nil {
			p.fail(ctx, "event_payments", WarnEventPayments, err)
		}
	}

	items := MergeHostItems(charges, events, payments)
	return models.HostLedger{
		Charges:  items,
		Summary:  SummarizeHost(items),
		Partial:  len(p.warnings) > 0,
		Warnings: p.warnings,
	}, nil
}

// MergeHostItems normalizes charges then event payments into ledger items.
func MergeHostItems(charges []models.Charge, events []models.EventSummary, payments []models.EventPaymentRow) []models.HostLedgerItem {
	byID := make(map[string]models.EventSummary, len(events))
	for _, ev := range events {
		byID[ev.ID] = ev
	}

	items := make([]models.HostLedgerItem, 0, len(charges)+len(payments))
	for _, c := range charges {
		txType := c.TransactionType
		if txType == "" {
			txType = models.TransactionCharge
		}
		items = append(items, models.HostLedgerItem{
			ID:              c.ID,
			ChargeType:      c.ChargeType,
			Title:           c.Title,
			MemberName:      c.MemberName,
			MemberEmail:     c.MemberEmail,
			Amount:          c.Amount,
			PaymentStatus:   c.PaymentStatus,
			PaymentMethod:   c.PaymentMethod,
			PaymentDate:     c.PaymentDate,
			DueDate:         c.DueDate,
			TransactionType: txType,
		})
	}

	for _, p := range payments {
		item := models.HostLedgerItem{
			ID:              p.ID,
			ChargeType:      models.ChargeTypeEvent,
			Title:           "Unknown Event",
			MemberName:      orDefault(p.PayerName, "Unknown"),
			MemberEmail:     orDefault(p.PayerEmail, ""),
			Amount:          p.Amount,
			PaymentStatus:   p.PaymentStatus,
			PaymentMethod:   p.PaymentMethod,
			PaymentDate:     p.PaymentDate,
			TransactionType: models.TransactionCharge,
		}
		if ev, ok := byID[p.EventID]; ok {
			item.Title = ev.Title
			date := ev.EventDate
			item.EventDate = &date
		}
		items = append(items, item)
	}
	return items
}

// SummarizeHost totals charges and expenses. NetBalance is always
// TotalCharges minus TotalExpenses.
func SummarizeHost(items []models.HostLedgerItem) models.HostLedgerSummary {
	var sum models.HostLedgerSummary
	for _, it := range items {
		paid := it.PaymentStatus == models.PaymentPaid
		pending := it.PaymentStatus == models.PaymentPending

		switch it.TransactionType {
		case models.TransactionExpense:
			sum.TotalExpenses += it.Amount
			if paid {
				sum.TotalExpensesCovered += it.Amount
			}
			if pending {
				sum.TotalExpensesUncovered += it.Amount
			}
		case models.TransactionCharge:
			sum.TotalCharges += it.Amount
			if paid {
				sum.TotalChargesPaid += it.Amount
			}
			if pending {
				sum.TotalChargesUnpaid += it.Amount
			}
		}

		if paid {
			sum.TotalPaid += it.Amount
			sum.PaidCount++
		}
		if pending {
			sum.TotalPending += it.Amount
			sum.PendingCount++
		}
	}
	sum.NetBalance = sum.TotalCharges - sum.TotalExpenses
	return sum
}

// MemberDues lists charges billed to the user and the user's payments for
// events of clubs where the membership is active.
func (s *service) MemberDues(ctx context.Context, userID string) (models.MemberDues, error) {
	if err := ctx.Err(); err != nil {
		return models.MemberDues{}, err
	}

	var (
		charges    []models.Charge
		hostIDs    []string
		chargesErr error
		hostsErr   error
	)
	var g errgroup.Group
	g.Go(func() error {
		charges, chargesErr = s.store.ChargesByMember(ctx, userID)
		return nil
	})
	g.Go(func() error {
		hostIDs, hostsErr = s.store.ActiveHostIDs(ctx, userID)
		return nil
	})
	_ = g.Wait()

	var p partial
	if chargesErr != nil {
		p.fail(ctx, "charges", WarnCharges, chargesErr)
	}
	if hostsErr != nil {
		p.fail(ctx, "memberships", WarnMemberships, hostsErr)
	}

	var (
		events   []models.EventSummary
		payments []models.EventPayment
		hosts    []models.HostSummary
	)
	if len(hostIDs) > 0 {
		var err error
		events, err = s.store.EventSummariesByHosts(ctx, hostIDs)
		if err != nil {
			p.fail(ctx, "events", WarnEvents, err)
		}
	}
	if len(events) > 0 {
		eventIDs := make([]string, 0, len(events))
		seen := make(map[string]bool, len(hostIDs))
		eventHosts := make([]string, 0, len(hostIDs))
		for _, ev := range events {
			eventIDs = append(eventIDs, ev.ID)
			if !seen[ev.HostID] {
				seen[ev.HostID] = true
				eventHosts = append(eventHosts, ev.HostID)
			}
		}

		var paymentsErr, summariesErr error
		var g errgroup.Group
		g.Go(func() error {
			payments, paymentsErr = s.store.PaymentsForUser(ctx, userID, eventIDs)
			return nil
		})
		g.Go(func() error {
			hosts, summariesErr = s.store.HostSummaries(ctx, eventHosts)
			return nil
		})
		_ = g.Wait()

		if paymentsErr != nil {
			p.fail(ctx, "event_payments", WarnEventPayments, paymentsErr)
		}
		if summariesErr != nil {
			p.fail(ctx, "hosts", WarnHosts, summariesErr)
		}
	}

	items := MergeDuesItems(charges, events, payments, hosts)
	return models.MemberDues{
		Charges:  items,
		Summary:  SummarizeDues(items, s.now()),
		Partial:  len(p.warnings) > 0,
		Warnings: p.warnings,
	}, nil
}

// MergeDuesItems normalizes the member's charges then event payments.
func MergeDuesItems(charges []models.Charge, events []models.EventSummary, payments []models.EventPayment, hosts []models.HostSummary) []models.DuesItem {
	eventByID := make(map[string]models.EventSummary, len(events))
	for _, ev := range events {
		eventByID[ev.ID] = ev
	}
	hostByID := make(map[string]models.HostSummary, len(hosts))
	for _, h := range hosts {
		hostByID[h.UserID] = h
	}

	items := make([]models.DuesItem, 0, len(charges)+len(payments))
	for _, c := range charges {
		items = append(items, models.DuesItem{
			ID:            c.ID,
			ChargeType:    c.ChargeType,
			Title:         c.Title,
			Description:   c.Description,
			HostName:      valueOr(c.HostName, "Unknown"),
			HostCode:      valueOr(c.HostCode, ""),
			Amount:        c.Amount,
			PaymentStatus: c.PaymentStatus,
			PaymentMethod: c.PaymentMethod,
			PaymentDate:   c.PaymentDate,
			DueDate:       c.DueDate,
		})
	}

	for _, p := range payments {
		item := models.DuesItem{
			ID:            p.ID,
			ChargeType:    models.ChargeTypeEvent,
			Title:         "Unknown Event",
			HostName:      "Unknown",
			Amount:        p.Amount,
			PaymentStatus: p.PaymentStatus,
			PaymentMethod: p.PaymentMethod,
			PaymentDate:   p.PaymentDate,
		}
		if ev, ok := eventByID[p.EventID]; ok {
			item.Title = ev.Title
			date := ev.EventDate
			item.EventDate = &date
			if h, ok := hostByID[ev.HostID]; ok {
				item.HostName = valueOr(h.HostName, "Unknown")
				item.HostCode = h.HostCode
			}
		}
		items = append(items, item)
	}
	return items
}

// SummarizeDues totals pending and this year's paid items as of now.
func SummarizeDues(items []models.DuesItem, now time.Time) models.DuesSummary {
	yearStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())

	var sum models.DuesSummary
	for _, it := range items {
		switch it.PaymentStatus {
		case models.PaymentPending:
			sum.TotalOwed += it.Amount
			sum.PendingCount++
			due := it.DueDate
			if due == nil {
				due = it.EventDate
			}
			if due != nil && due.Before(now) {
				sum.OverdueCount++
			}
		case models.PaymentPaid:
			if it.PaymentDate != nil && !it.PaymentDate.Before(yearStart) {
				sum.TotalPaid += it.Amount
			}
		}
	}
	return sum
}

// CreateCharge bills one member, or every active member when in.MemberID is nil.
func (s *service) CreateCharge(ctx context.Context, hostID string, in models.ChargeInput) (ChargeResult, error) {
	if err := ctx.Err(); err != nil {
		return ChargeResult{}, err
	}
	if strings.TrimSpace(in.ChargeType) == "" || strings.TrimSpace(in.Title) == "" || in.Amount == 0 {
		return ChargeResult{}, ErrMissingChargeFields
	}

	txType := in.TransactionType
	switch txType {
	case "":
		txType = models.TransactionCharge
	case models.TransactionCharge, models.TransactionExpense:
	default:
		return ChargeResult{}, ErrInvalidTransactionType
	}

	charge := models.Charge{
		HostID:          hostID,
		ChargeType:      in.ChargeType,
		Title:           strings.TrimSpace(in.Title),
		Description:     in.Description,
		Amount:          in.Amount,
		PaymentStatus:   models.PaymentPending,
		DueDate:         in.DueDate,
		TransactionType: txType,
	}

	if in.MemberID == nil {
		count, err := s.store.CreateChargesForActiveMembers(ctx, charge)
		if err != nil {
			return ChargeResult{}, fmt.Errorf("create member charges: %w", err)
		}
		logging.FromContext(ctx).Info().
			Str("host_id", hostID).
			Int("count", count).
			Msg("charges created for all members")
		return ChargeResult{
			Message: fmt.Sprintf("Created %d charges for all members", count),
			Count:   &count,
		}, nil
	}

	charge.MemberID = *in.MemberID
	created, err := s.store.CreateCharge(ctx, charge)
	if err != nil {
		return ChargeResult{}, fmt.Errorf("create charge: %w", err)
	}
	return ChargeResult{Charge: &created}, nil
}

func orDefault(s *string, fallback string) *string {
	if s == nil || *s == "" {
		return &fallback
	}
	return s
}

func valueOr(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}
