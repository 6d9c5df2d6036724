package httpapi

import (
	"context"
	"net/http"
	"time"

	"vinoclub/internal/app/address"
	"vinoclub/internal/app/billing"
	"vinoclub/internal/app/events"
	"vinoclub/internal/app/ledger"
	"vinoclub/internal/app/onboarding"
	"vinoclub/internal/app/profile"
	"vinoclub/internal/app/settings"
	"vinoclub/internal/app/wines"
	"vinoclub/shared/go/models"
)

// AuthService covers signup, login and account flows.
type AuthService interface {
	SignupHost(ctx context.Context, in onboarding.HostSignup) (onboarding.Result, error)
	SignupMember(ctx context.Context, in onboarding.MemberSignup) (onboarding.Result, error)
	CreateClub(ctx context.Context, userID string, in onboarding.ClubCreation) (onboarding.Result, error)
	Login(ctx context.Context, email, password string) (onboarding.LoginResult, error)
	Logout(ctx context.Context, token string) error
	ChangePassword(ctx context.Context, userID, current, next string) error
}

// TokenVerifier resolves a session token to a user id.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (string, error)
}

// ClubService serves club pages and discovery.
type ClubService interface {
	Profile(ctx context.Context, code, viewerID string) (models.ClubProfile, error)
	Events(ctx context.Context, code string) ([]models.EventWithCount, error)
	Nearby(ctx context.Context, userID, radius string) ([]models.NearbyClub, error)
	Detail(ctx context.Context, userID, hostID string) (models.NearbyClub, error)
}

// MembershipService manages joins and host approvals.
type MembershipService interface {
	Join(ctx context.Context, userID, hostID string, requestMessage *string) (models.Membership, error)
	JoinWithCode(ctx context.Context, userID, code string) (models.Membership, error)
	Leave(ctx context.Context, userID, hostID string) error
	List(ctx context.Context, userID string) ([]models.MembershipWithHost, error)
	Pending(ctx context.Context, hostID string) ([]models.PendingRequest, error)
	Approve(ctx context.Context, hostID, membershipID string) (models.Membership, error)
	Deny(ctx context.Context, hostID, membershipID string) (models.Membership, error)
	Members(ctx context.Context, hostID string) ([]models.ClubMember, error)
}

// EventService manages events, registrations and event payments.
type EventService interface {
	HostEvents(ctx context.Context, hostID string) ([]models.EventWithCount, error)
	Create(ctx context.Context, hostID string, in models.EventInput) (events.CreateResult, error)
	Update(ctx context.Context, hostID, eventID string, in models.EventInput) (events.UpdateResult, error)
	Delete(ctx context.Context, hostID, eventID string) error
	Cancel(ctx context.Context, hostID, eventID string) (models.Event, error)
	Upcoming(ctx context.Context, userID string, limit, offset int) ([]models.UpcomingEvent, error)
	Register(ctx context.Context, userID, eventID string) (models.Attendee, error)
	CancelRegistration(ctx context.Context, userID, eventID string) error
	Ledger(ctx context.Context, hostID, eventID string) (models.EventLedger, error)
	RecordPayment(ctx context.Context, hostID, eventID string, in events.PaymentInput) (models.EventPayment, error)
	UpdatePayment(ctx context.Context, hostID, eventID string, in events.PaymentInput) (models.EventPayment, error)
}

// LedgerService aggregates charges and dues.
type LedgerService interface {
	HostLedger(ctx context.Context, hostID string) (models.HostLedger, error)
	MemberDues(ctx context.Context, userID string) (models.MemberDues, error)
	CreateCharge(ctx context.Context, hostID string, in models.ChargeInput) (ledger.ChargeResult, error)
}

// SettingsService reads and patches host payment settings.
type SettingsService interface {
	Get(ctx context.Context, hostID string) (models.HostSettings, error)
	Update(ctx context.Context, hostID string, patch settings.Patch) (models.HostSettings, error)
}

// ProfileService manages the signed-in user's own records.
type ProfileService interface {
	Account(ctx context.Context, userID string) (profile.Account, error)
	MemberProfile(ctx context.Context, userID string) (*models.Member, error)
	SaveMemberProfile(ctx context.Context, userID string, in profile.AddressInput) (models.Member, error)
	PersonalInfo(ctx context.Context, userID string) (models.PersonalInfo, error)
	UpdatePersonalInfo(ctx context.Context, userID string, in profile.PersonalInfoInput) (models.PersonalInfo, error)
	Preferences(ctx context.Context, userID string) (models.Preferences, error)
	UpdatePreferences(ctx context.Context, userID string, prefs models.Preferences) (models.Preferences, error)
}

// BillingService stores payment methods with the processor.
type BillingService interface {
	SetupIntent(ctx context.Context, userID string) (billing.SetupIntent, error)
	SavePaymentMethod(ctx context.Context, userID, paymentMethodID string) error
	PaymentMethod(ctx context.Context, userID string) (billing.PaymentMethodStatus, error)
}

// WineService serves the wine catalog.
type WineService interface {
	Featured(ctx context.Context, limit int) ([]models.Wine, error)
	ClubWines(ctx context.Context, code string) ([]models.Wine, error)
	HostWines(ctx context.Context, hostID string) ([]models.Wine, error)
	Create(ctx context.Context, hostID string, in wines.Input) (models.Wine, error)
	Feature(ctx context.Context, hostID, wineID string, featured bool) (models.Wine, error)
}

// AddressService validates postal addresses.
type AddressService interface {
	Validate(ctx context.Context, in address.Input) (address.Response, error)
}

// BuildInfo is reported by /api/version.
type BuildInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
}

// Services bundles the dependencies of a Server.
type Services struct {
	Auth        AuthService
	Sessions    TokenVerifier
	Clubs       ClubService
	Memberships MembershipService
	Events      EventService
	Ledger      LedgerService
	Settings    SettingsService
	Profile     ProfileService
	Billing     BillingService
	Wines       WineService
	Address     AddressService
	Search      http.Handler
	Build       BuildInfo
	// SecureCookies marks the session cookie Secure.
	SecureCookies bool
}

// Server wires HTTP handlers to the underlying services.
type Server struct {
	auth          AuthService
	sessions      TokenVerifier
	clubs         ClubService
	memberships   MembershipService
	events        EventService
	ledger        LedgerService
	settings      SettingsService
	profile       ProfileService
	billing       BillingService
	wines         WineService
	address       AddressService
	search        http.Handler
	build         BuildInfo
	secureCookies bool
	now           func() time.Time
}

// New configures a Server with the given services.
func New(svc Services) *Server {
	return &Server{
		auth:          svc.Auth,
		sessions:      svc.Sessions,
		clubs:         svc.Clubs,
		memberships:   svc.Memberships,
		events:        svc.Events,
		ledger:        svc.Ledger,
		settings:      svc.Settings,
		profile:       svc.Profile,
		billing:       svc.Billing,
		wines:         svc.Wines,
		address:       svc.Address,
		search:        svc.Search,
		build:         svc.Build,
		secureCookies: svc.SecureCookies,
		now:           time.Now,
	}
}

// Routes exposes the API on a ServeMux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /api/version", s.handleVersion)

	// Account
	mux.HandleFunc("POST /api/auth/signup/host", s.handleSignupHost)
	mux.HandleFunc("POST /api/auth/signup/member", s.handleSignupMember)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)
	mux.HandleFunc("GET /api/auth/me", s.authed(s.handleMe))
	mux.HandleFunc("POST /api/auth/reset-password", s.authed(s.handleResetPassword))

	// Clubs
	mux.HandleFunc("POST /api/clubs", s.authed(s.handleCreateClub))
	mux.HandleFunc("GET /api/clubs/{hostCode}", s.handleClubProfile)
	mux.HandleFunc("GET /api/clubs/{hostCode}/events", s.handleClubEvents)
	mux.HandleFunc("GET /api/clubs/{hostCode}/wines", s.handleClubWines)

	// Member
	mux.HandleFunc("GET /api/member/clubs", s.authed(s.handleNearbyClubs))
	mux.HandleFunc("GET /api/member/clubs/{hostId}", s.authed(s.handleClubDetail))
	mux.HandleFunc("GET /api/member/memberships", s.authed(s.handleListMemberships))
	mux.HandleFunc("POST /api/member/memberships", s.authed(s.handleJoin))
	mux.HandleFunc("DELETE /api/member/memberships", s.authed(s.handleLeave))
	mux.HandleFunc("POST /api/member/join-with-code", s.authed(s.handleJoinWithCode))
	mux.HandleFunc("GET /api/member/profile", s.authed(s.handleGetMemberProfile))
	mux.HandleFunc("PUT /api/member/profile", s.authed(s.handlePutMemberProfile))
	mux.HandleFunc("GET /api/member/personal-info", s.authed(s.handleGetPersonalInfo))
	mux.HandleFunc("PUT /api/member/personal-info", s.authed(s.handlePutPersonalInfo))
	mux.HandleFunc("GET /api/member/preferences", s.authed(s.handleGetPreferences))
	mux.HandleFunc("PUT /api/member/preferences", s.authed(s.handlePutPreferences))
	mux.HandleFunc("GET /api/member/dues", s.authed(s.handleDues))

	// Events
	mux.HandleFunc("GET /api/events/upcoming", s.authed(s.handleUpcomingEvents))
	mux.HandleFunc("POST /api/events/register", s.authed(s.handleRegister))
	mux.HandleFunc("POST /api/events/cancel", s.authed(s.handleCancelRegistration))
	mux.HandleFunc("GET /api/events/{id}/ledger", s.authed(s.handleEventLedger))
	mux.HandleFunc("POST /api/events/{id}/payments", s.authed(s.handleRecordPayment))
	mux.HandleFunc("PATCH /api/events/{id}/payments", s.authed(s.handleUpdatePayment))

	// Host
	mux.HandleFunc("GET /api/host/events", s.authed(s.handleHostEvents))
	mux.HandleFunc("POST /api/host/events", s.authed(s.handleCreateEvent))
	mux.HandleFunc("PATCH /api/host/events/{id}", s.authed(s.handleUpdateEvent))
	mux.HandleFunc("DELETE /api/host/events/{id}", s.authed(s.handleDeleteEvent))
	mux.HandleFunc("POST /api/host/events/{id}/cancel", s.authed(s.handleCancelEvent))
	mux.HandleFunc("GET /api/host/memberships", s.authed(s.handlePendingMemberships))
	mux.HandleFunc("POST /api/host/memberships/approve", s.authed(s.handleApprove))
	mux.HandleFunc("POST /api/host/memberships/deny", s.authed(s.handleDeny))
	mux.HandleFunc("GET /api/host/members", s.authed(s.handleMembers))
	mux.HandleFunc("POST /api/host/charges", s.authed(s.handleCreateCharge))
	mux.HandleFunc("GET /api/host/ledger", s.authed(s.handleHostLedger))
	mux.HandleFunc("GET /api/host/settings", s.authed(s.handleGetSettings))
	mux.HandleFunc("PATCH /api/host/settings", s.authed(s.handlePatchSettings))
	mux.HandleFunc("GET /api/host/wines", s.authed(s.handleHostWines))
	mux.HandleFunc("POST /api/host/wines", s.authed(s.handleCreateWine))
	mux.HandleFunc("POST /api/host/wines/{id}/feature", s.authed(s.handleFeatureWine))

	// Catalog
	mux.HandleFunc("GET /api/wines/featured", s.handleFeaturedWines)
	if s.search != nil {
		mux.Handle("GET /api/search", s.search)
	}

	// Payments
	mux.HandleFunc("POST /api/stripe/setup-intent", s.authed(s.handleSetupIntent))
	mux.HandleFunc("POST /api/stripe/save-payment", s.authed(s.handleSavePayment))
	mux.HandleFunc("GET /api/stripe/payment-method", s.authed(s.handlePaymentMethod))

	mux.HandleFunc("POST /api/address/validate", s.handleValidateAddress)

	return mux
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		BuildInfo
		Timestamp time.Time `json:"timestamp"`
	}{BuildInfo: s.build, Timestamp: s.now().UTC()})
}
