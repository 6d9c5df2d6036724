package models

import "time"

// Club types.
const (
	ClubTypeFixed     = "fixed"
	ClubTypeMultiHost = "multi_host"
)

// Join modes.
const (
	JoinModePublic  = "public"
	JoinModeRequest = "request"
	JoinModePrivate = "private"
)

// ValidJoinMode reports whether mode is one of the join modes.
func ValidJoinMode(mode string) bool {
	switch mode {
	case JoinModePublic, JoinModeRequest, JoinModePrivate:
		return true
	}
	return false
}

// Membership statuses.
const (
	MembershipActive   = "active"
	MembershipPending  = "pending"
	MembershipInactive = "inactive"
)

// Host is the club owned by a user. UserID doubles as the club id.
type Host struct {
	UserID          string    `json:"user_id"`
	ClubType        string    `json:"club_type"`
	ClubAddress     *string   `json:"club_address"`
	DeliveryAddress *string   `json:"delivery_address"`
	AboutClub       *string   `json:"about_club"`
	WinePreferences *string   `json:"wine_preferences"`
	HostCode        string    `json:"host_code"`
	Latitude        *float64  `json:"latitude"`
	Longitude       *float64  `json:"longitude"`
	VenmoUsername   *string   `json:"venmo_username"`
	PaypalUsername  *string   `json:"paypal_username"`
	ZelleHandle     *string   `json:"zelle_handle"`
	AcceptsCash     bool      `json:"accepts_cash"`
	JoinMode        string    `json:"join_mode"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	// Populated from users via JOIN
	HostName *string `json:"host_name,omitempty"`
}

// HostSettings is the subset of host fields a host edits in settings.
type HostSettings struct {
	VenmoUsername  *string `json:"venmo_username"`
	PaypalUsername *string `json:"paypal_username"`
	ZelleHandle    *string `json:"zelle_handle"`
	AcceptsCash    bool    `json:"accepts_cash"`
	JoinMode       string  `json:"join_mode"`
}

// Member holds the address used for proximity search.
type Member struct {
	UserID    string    `json:"user_id"`
	Address   *string   `json:"address"`
	City      *string   `json:"city"`
	State     *string   `json:"state"`
	ZipCode   *string   `json:"zip_code"`
	Latitude  *float64  `json:"latitude"`
	Longitude *float64  `json:"longitude"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasLocation reports whether both coordinates are set and non-zero.
func (m Member) HasLocation() bool {
	return m.Latitude != nil && m.Longitude != nil && *m.Latitude != 0 && *m.Longitude != 0
}

// Membership joins a member to a host's club.
type Membership struct {
	ID             string    `json:"id"`
	MemberID       string    `json:"member_id"`
	HostID         string    `json:"host_id"`
	Status         string    `json:"status"`
	RequestMessage *string   `json:"request_message"`
	JoinedAt       time.Time `json:"joined_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// MembershipWithHost is a membership listed from the member side.
type MembershipWithHost struct {
	Membership
	Host     *Host  `json:"host"`
	HostName string `json:"host_name"`
}

// PendingRequest is a membership request listed from the host side.
type PendingRequest struct {
	Membership
	MemberName  string `json:"member_name"`
	MemberEmail string `json:"member_email"`
}

// ClubMember is an active member listed for a host.
type ClubMember struct {
	UserID   string `json:"user_id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// ClubProfile is the public club page. Payment fields are only filled for active members.
type ClubProfile struct {
	HostID          string  `json:"host_id"`
	HostCode        string  `json:"host_code"`
	HostName        *string `json:"host_name"`
	ClubAddress     *string `json:"club_address"`
	AboutClub       *string `json:"about_club"`
	WinePreferences *string `json:"wine_preferences"`
	JoinMode        string  `json:"join_mode"`
	MemberCount     int     `json:"member_count"`
	IsMember        bool    `json:"is_member"`
	IsHost          bool    `json:"is_host"`
	IsLoggedIn      bool    `json:"is_logged_in"`
	VenmoUsername   *string `json:"venmo_username"`
	PaypalUsername  *string `json:"paypal_username"`
	ZelleHandle     *string `json:"zelle_handle"`
	AcceptsCash     bool    `json:"accepts_cash"`
}

// NearbyClub is a club annotated with its distance from the member.
type NearbyClub struct {
	HostID          string   `json:"host_id"`
	HostName        *string  `json:"host_name"`
	HostCode        string   `json:"host_code"`
	ClubAddress     *string  `json:"club_address"`
	AboutClub       *string  `json:"about_club"`
	WinePreferences *string  `json:"wine_preferences"`
	JoinMode        string   `json:"join_mode"`
	Latitude        *float64 `json:"latitude,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`
	MemberCount     int      `json:"member_count"`
	Distance        float64  `json:"distance"`
	IsJoined        bool     `json:"is_joined"`
}
