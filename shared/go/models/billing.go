package models

import "time"

// Transaction types for charges.
const (
	TransactionCharge  = "charge"
	TransactionExpense = "expense"
)

// ChargeTypeEvent marks ledger items that come from event payments.
const ChargeTypeEvent = "event"

// Charge is a non-event billable item from a host to a member.
type Charge struct {
	ID              string     `json:"id"`
	HostID          string     `json:"host_id"`
	MemberID        string     `json:"member_id"`
	ChargeType      string     `json:"charge_type"`
	Title           string     `json:"title"`
	Description     *string    `json:"description"`
	Amount          float64    `json:"amount"`
	PaymentStatus   string     `json:"payment_status"`
	PaymentMethod   *string    `json:"payment_method"`
	PaymentDate     *time.Time `json:"payment_date"`
	DueDate         *time.Time `json:"due_date"`
	TransactionType string     `json:"transaction_type"`
	CreatedAt       time.Time  `json:"created_at"`

	// Populated via JOIN queries
	MemberName  *string `json:"-"`
	MemberEmail *string `json:"-"`
	HostName    *string `json:"-"`
	HostCode    *string `json:"-"`
}

// ChargeInput is the body of a charge creation request. A nil MemberID bills every active member.
type ChargeInput struct {
	ChargeType      string     `json:"charge_type"`
	Title           string     `json:"title"`
	Description     *string    `json:"description"`
	Amount          float64    `json:"amount"`
	DueDate         *time.Time `json:"due_date"`
	MemberID        *string    `json:"member_id"`
	TransactionType string     `json:"transaction_type"`
}

// EventPaymentRow is an event payment joined with its payer, as read for ledgers.
type EventPaymentRow struct {
	EventPayment
	PayerName  *string
	PayerEmail *string
}

// EventSummary is the subset of an event needed to label ledger items.
type EventSummary struct {
	ID        string
	HostID    string
	Title     string
	EventDate time.Time
	Price     *float64
}

// HostSummary is the subset of a host needed to label dues items.
type HostSummary struct {
	UserID   string
	HostCode string
	HostName *string
}

// HostLedgerItem is one normalized row in a host's ledger.
type HostLedgerItem struct {
	ID              string     `json:"id"`
	ChargeType      string     `json:"charge_type"`
	Title           string     `json:"title"`
	MemberName      *string    `json:"member_name"`
	MemberEmail     *string    `json:"member_email"`
	Amount          float64    `json:"amount"`
	PaymentStatus   string     `json:"payment_status"`
	PaymentMethod   *string    `json:"payment_method"`
	PaymentDate     *time.Time `json:"payment_date"`
	DueDate         *time.Time `json:"due_date"`
	EventDate       *time.Time `json:"event_date"`
	TransactionType string     `json:"transaction_type"`
}

// HostLedgerSummary aggregates a host ledger.
type HostLedgerSummary struct {
	TotalCharges           float64 `json:"total_charges"`
	TotalChargesPaid       float64 `json:"total_charges_paid"`
	TotalChargesUnpaid     float64 `json:"total_charges_unpaid"`
	TotalExpenses          float64 `json:"total_expenses"`
	TotalExpensesCovered   float64 `json:"total_expenses_covered"`
	TotalExpensesUncovered float64 `json:"total_expenses_uncovered"`
	NetBalance             float64 `json:"net_balance"`

	// Older clients read these.
	TotalPaid    float64 `json:"total_paid"`
	TotalPending float64 `json:"total_pending"`
	PaidCount    int     `json:"paid_count"`
	PendingCount int     `json:"pending_count"`
}

// HostLedger is the host-facing merged ledger.
type HostLedger struct {
	Charges  []HostLedgerItem  `json:"charges"`
	Summary  HostLedgerSummary `json:"summary"`
	Partial  bool              `json:"partial"`
	Warnings []string          `json:"warnings,omitempty"`
}

// DuesItem is one normalized row in a member's dues.
type DuesItem struct {
	ID            string     `json:"id"`
	ChargeType    string     `json:"charge_type"`
	Title         string     `json:"title"`
	Description   *string    `json:"description"`
	HostName      string     `json:"host_name"`
	HostCode      string     `json:"host_code"`
	Amount        float64    `json:"amount"`
	PaymentStatus string     `json:"payment_status"`
	PaymentMethod *string    `json:"payment_method"`
	PaymentDate   *time.Time `json:"payment_date"`
	DueDate       *time.Time `json:"due_date"`
	EventDate     *time.Time `json:"event_date"`
}

// DuesSummary aggregates a member's dues.
type DuesSummary struct {
	TotalOwed    float64 `json:"total_owed"`
	TotalPaid    float64 `json:"total_paid"`
	PendingCount int     `json:"pending_count"`
	OverdueCount int     `json:"overdue_count"`
}

// MemberDues is the member-facing merged ledger.
type MemberDues struct {
	Charges  []DuesItem  `json:"charges"`
	Summary  DuesSummary `json:"summary"`
	Partial  bool        `json:"partial"`
	Warnings []string    `json:"warnings,omitempty"`
}

// PaymentMethodSummary describes a stored processor payment method.
type PaymentMethodSummary struct {
	Type     string `json:"type"`
	Brand    string `json:"brand,omitempty"`
	Last4    string `json:"last4,omitempty"`
	ExpMonth int64  `json:"expMonth,omitempty"`
	ExpYear  int64  `json:"expYear,omitempty"`
	Wallet   string `json:"wallet,omitempty"`
	Email    string `json:"email,omitempty"`
}
