package models

import "time"

// User is the profile row created for every identity.
type User struct {
	ID                      string     `json:"id"`
	Email                   string     `json:"email"`
	FullName                *string    `json:"full_name"`
	Phone                   *string    `json:"phone"`
	Role                    *string    `json:"role,omitempty"` // deprecated, capabilities come from hosts/members rows
	StripeCustomerID        *string    `json:"stripe_customer_id,omitempty"`
	HasPaymentMethod        bool       `json:"has_payment_method"`
	PaymentSetupCompletedAt *time.Time `json:"payment_setup_completed_at,omitempty"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

// Dashboard values remembered for dual-role users.
const (
	DashboardHost   = "host"
	DashboardMember = "member"
)

// Preferences are the per-user UI settings kept server-side.
type Preferences struct {
	LastDashboard *string `json:"last_dashboard"`
	SearchRadius  *int    `json:"search_radius"`
}

// DualRoleStatus describes which capabilities a user has.
type DualRoleStatus struct {
	HasHostProfile   bool `json:"has_host_profile"`
	HasMemberProfile bool `json:"has_member_profile"`
	IsDualRole       bool `json:"is_dual_role"`
}

// PersonalInfo merges the user row with the member address.
type PersonalInfo struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	FullName  *string  `json:"full_name"`
	Phone     *string  `json:"phone"`
	Address   *string  `json:"address"`
	City      *string  `json:"city"`
	State     *string  `json:"state"`
	ZipCode   *string  `json:"zip_code"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}
