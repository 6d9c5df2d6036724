// Package onboarding runs the multi-step signup and club creation flows.
package onboarding

import (
	"context"
	"errors"
	"strings"
	"time"

	"vinoclub/internal/apperr"
	"vinoclub/internal/hostcode"
	"vinoclub/internal/identity"
	"vinoclub/internal/session"
	"vinoclub/internal/store"
	"vinoclub/shared/go/logging"
	"vinoclub/shared/go/models"
)

// Polling defaults for the trigger-created profile row.
const (
	DefaultPollAttempts = 10
	DefaultPollInterval = 200 * time.Millisecond
)

// Failure messages returned to callers.
var (
	ErrProfileMissing      = apperr.Internal("Database error: User profile creation failed", nil)
	ErrHostProfileFailed   = apperr.Internal("Failed to create host profile", nil)
	ErrClubCreationFailed  = apperr.Internal("Failed to create club. Please try again.", nil)
	ErrInvalidHostCode     = apperr.Validation("Invalid host code. Please check and try again.")
	ErrInvalidLogin        = apperr.Unauthorized("Invalid email or password")
	ErrProfileLoad         = apperr.Internal("Failed to load user profile", nil)
	ErrPasswordsRequired   = apperr.Validation("Current password and new password are required")
	ErrWrongPassword       = apperr.Unauthorized("Current password is incorrect")
	ErrPasswordUpdate      = apperr.Internal("Failed to update password", nil)
	ErrAlreadyHost         = apperr.Validation("You already have a club")
	ErrHostCodeOrNearby    = apperr.Validation("Please enter a host code or select find nearby hosts")
	ErrNearbyNeedsLocation = apperr.Validation("Please select your address to find nearby hosts")
	ErrFixedNeedsAddress   = apperr.Validation("Club address is required for fixed location clubs")
)

// Warnings reported for degraded, non-fatal steps.
const (
	WarnMemberProfile = "member profile could not be created"
	WarnMembership    = "host membership could not be created"
	WarnNoCoordinates = "club has no coordinates and will not appear in discovery"
)

// Store defines the persistence hooks used by onboarding.
type Store interface {
	UserByID(ctx context.Context, id string) (models.User, error)
	UpdateUserFullName(ctx context.Context, id, fullName string) error
	CreateHost(ctx context.Context, host models.Host) (models.Host, error)
	HostCodeExists(ctx context.Context, code string) (bool, error)
	UpsertMember(ctx context.Context, member models.Member) (models.Member, error)
	EnsureMember(ctx context.Context, userID string, address *string) error
	JoinClub(ctx context.Context, memberID, hostID, status string, requestMessage *string) (models.Membership, error)
	RoleStatus(ctx context.Context, userID string) (models.DualRoleStatus, error)
}

// Identities is the authentication provider.
type Identities interface {
	CreateIdentity(ctx context.Context, email, password string, metadata map[string]string) (identity.Identity, error)
	Authenticate(ctx context.Context, email, password string) (identity.Identity, error)
	VerifyPassword(ctx context.Context, id, password string) error
	UpdatePassword(ctx context.Context, id, password string) error
}

// Sessions issues and revokes login tokens.
type Sessions interface {
	Issue(ctx context.Context, userID string) (session.Token, error)
	Revoke(ctx context.Context, raw string) error
}

// Recorder counts signup outcomes.
type Recorder interface {
	RecordBusinessEvent(action string, success bool)
}

// HostSignup is the host registration form.
type HostSignup struct {
	FullName        string   `json:"full_name" validate:"required,min=2,max=100"`
	Email           string   `json:"email" validate:"required,email"`
	Password        string   `json:"password" validate:"required,min=8,password"`
	ConfirmPassword string   `json:"confirm_password" validate:"eqfield=Password"`
	ClubType        string   `json:"club_type" validate:"oneof=fixed multi_host"`
	ClubAddress     string   `json:"club_address" validate:"omitempty,min=10,max=500"`
	AboutClub       string   `json:"about_club" validate:"max=500"`
	WinePreferences string   `json:"wine_preferences" validate:"max=500"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
}

// MemberSignup is the member registration form.
type MemberSignup struct {
	FullName        string   `json:"full_name" validate:"required,min=2,max=100"`
	Email           string   `json:"email" validate:"required,email"`
	Password        string   `json:"password" validate:"required,min=8,password"`
	ConfirmPassword string   `json:"confirm_password" validate:"eqfield=Password"`
	HostCode        string   `json:"host_code" validate:"omitempty,len=8,hostcode"`
	FindNearbyHosts bool     `json:"find_nearby_hosts"`
	Address         string   `json:"address"`
	City            string   `json:"city"`
	State           string   `json:"state"`
	ZipCode         string   `json:"zip_code"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
}

// ClubCreation is the form an existing user fills to open a club.
type ClubCreation struct {
	ClubName        string   `json:"club_name" validate:"required,min=2,max=100"`
	ClubType        string   `json:"club_type" validate:"oneof=fixed multi_host"`
	ClubAddress     string   `json:"club_address" validate:"omitempty,min=10,max=500"`
	AboutClub       string   `json:"about_club" validate:"max=500"`
	WinePreferences string   `json:"wine_preferences" validate:"max=500"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
}

// Result reports a completed flow. Warnings list steps that failed without
// aborting the flow.
type Result struct {
	Success  bool         `json:"success"`
	User     *models.User `json:"user,omitempty"`
	Host     *models.Host `json:"host,omitempty"`
	HostID   string       `json:"host_id,omitempty"`
	HostCode string       `json:"host_code,omitempty"`
	Warnings []string     `json:"warnings,omitempty"`
}

// LoginResult carries the session token and profile.
type LoginResult struct {
	User  models.User   `json:"user"`
	Token session.Token `json:"-"`
}

// Service coordinates signup, login and club creation.
type Service interface {
	SignupHost(ctx context.Context, in HostSignup) (Result, error)
	SignupMember(ctx context.Context, in MemberSignup) (Result, error)
	CreateClub(ctx context.Context, userID string, in ClubCreation) (Result, error)
	Login(ctx context.Context, email, password string) (LoginResult, error)
	Logout(ctx context.Context, token string) error
	DualRoleStatus(ctx context.Context, userID string) (models.DualRoleStatus, error)
	ChangePassword(ctx context.Context, userID, current, next string) error
}

// Option customizes a service.
type Option func(*service)

// WithProfilePolling overrides how long signup waits for the profile row.
func WithProfilePolling(attempts int, interval time.Duration) Option {
	return func(s *service) {
		if attempts > 0 {
			s.pollAttempts = attempts
		}
		if interval > 0 {
			s.pollInterval = interval
		}
	}
}

// WithRecorder counts signup outcomes.
func WithRecorder(r Recorder) Option {
	return func(s *service) { s.recorder = r }
}

type service struct {
	store      Store
	identities Identities
	sessions   Sessions
	recorder   Recorder

	pollAttempts int
	pollInterval time.Duration
	sleep        func(ctx context.Context, d time.Duration) error
	allocate     func(insert func(code string) error, isCollision func(error) bool) (string, error)
}

// New constructs an onboarding Service.
func New(store Store, identities Identities, sessions Sessions, opts ...Option) Service {
	s := &service{
		store:        store,
		identities:   identities,
		sessions:     sessions,
		pollAttempts: DefaultPollAttempts,
		pollInterval: DefaultPollInterval,
		sleep:        sleepContext,
		allocate:     hostcode.Allocate,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) SignupHost(ctx context.Context, in HostSignup) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if in.ClubType == "" {
		in.ClubType = models.ClubTypeFixed
	}
	if err := validateInput(in); err != nil {
		return Result{}, err
	}
	if in.ClubType == models.ClubTypeFixed && strings.TrimSpace(in.ClubAddress) == "" {
		return Result{}, ErrFixedNeedsAddress
	}

	log := logging.FromContext(ctx).With().Str("flow", "signup_host").Logger()

	user, err := s.createProfile(ctx, in.Email, in.Password, in.FullName, models.DashboardHost)
	if err != nil {
		s.record("signup_host", false)
		return Result{}, err
	}
	log = log.With().Str("user_id", user.ID).Logger()

	var warnings []string
	if !hasCoordinates(in.Latitude, in.Longitude) {
		log.Info().Str("step", "coordinates").Msg("no coordinates provided; club will not appear in discovery")
		warnings = append(warnings, WarnNoCoordinates)
	}

	host, err := s.insertHost(ctx, models.Host{
		UserID:          user.ID,
		ClubType:        in.ClubType,
		ClubAddress:     optional(in.ClubAddress),
		DeliveryAddress: optional(in.ClubAddress),
		AboutClub:       optional(in.AboutClub),
		WinePreferences: optional(in.WinePreferences),
		Latitude:        in.Latitude,
		Longitude:       in.Longitude,
	})
	if err != nil {
		log.Error().Err(err).Str("step", "host_profile").Msg("host profile creation failed")
		s.record("signup_host", false)
		return Result{}, ErrHostProfileFailed.Wrap(err)
	}
	host.HostName = user.FullName

	if _, err := s.store.UpsertMember(ctx, models.Member{
		UserID:    user.ID,
		Address:   optional(in.ClubAddress),
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
	}); err != nil {
		log.Warn().Err(err).Str("step", "member_profile").Msg("member profile creation failed")
		warnings = append(warnings, WarnMemberProfile)
	}

	if err := s.selfMembership(ctx, user.ID); err != nil {
		log.Warn().Err(err).Str("step", "membership").Str("host_id", user.ID).Msg("host membership creation failed")
		warnings = append(warnings, WarnMembership)
	}

	log.Info().Str("host_code", host.HostCode).Msg("host signup complete")
	s.record("signup_host", true)
	return Result{Success: true, User: &user, Host: &host, HostID: host.UserID, HostCode: host.HostCode, Warnings: warnings}, nil
}

func (s *service) SignupMember(ctx context.Context, in MemberSignup) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	in.HostCode = hostcode.Normalize(in.HostCode)
	if err := validateInput(in); err != nil {
		return Result{}, err
	}
	if in.HostCode == "" && !in.FindNearbyHosts {
		return Result{}, ErrHostCodeOrNearby
	}
	if in.FindNearbyHosts && (strings.TrimSpace(in.Address) == "" || !hasCoordinates(in.Latitude, in.Longitude)) {
		return Result{}, ErrNearbyNeedsLocation
	}

	log := logging.FromContext(ctx).With().Str("flow", "signup_member").Logger()

	if in.HostCode != "" {
		exists, err := s.store.HostCodeExists(ctx, in.HostCode)
		if err != nil {
			return Result{}, err
		}
		if !exists {
			log.Info().Str("host_code", in.HostCode).Msg("unknown host code")
			return Result{}, ErrInvalidHostCode
		}
	}

	user, err := s.createProfile(ctx, in.Email, in.Password, in.FullName, models.DashboardMember)
	if err != nil {
		s.record("signup_member", false)
		return Result{}, err
	}

	var warnings []string
	if in.Address != "" || hasCoordinates(in.Latitude, in.Longitude) {
		if _, err := s.store.UpsertMember(ctx, models.Member{
			UserID:    user.ID,
			Address:   optional(in.Address),
			City:      optional(in.City),
			State:     optional(in.State),
			ZipCode:   optional(in.ZipCode),
			Latitude:  in.Latitude,
			Longitude: in.Longitude,
		}); err != nil {
			log.Warn().Err(err).Str("step", "member_profile").Str("user_id", user.ID).Msg("member profile creation failed")
			warnings = append(warnings, WarnMemberProfile)
		}
	}

	s.record("signup_member", true)
	return Result{Success: true, User: &user, HostCode: in.HostCode, Warnings: warnings}, nil
}

func (s *service) CreateClub(ctx context.Context, userID string, in ClubCreation) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if in.ClubType == "" {
		in.ClubType = models.ClubTypeFixed
	}
	if err := validateInput(in); err != nil {
		return Result{}, err
	}
	if in.ClubType == models.ClubTypeFixed && strings.TrimSpace(in.ClubAddress) == "" {
		return Result{}, ErrFixedNeedsAddress
	}

	log := logging.FromContext(ctx).With().Str("flow", "create_club").Str("user_id", userID).Logger()

	var warnings []string
	if !hasCoordinates(in.Latitude, in.Longitude) && in.ClubType == models.ClubTypeFixed {
		warnings = append(warnings, WarnNoCoordinates)
	}

	host, err := s.insertHost(ctx, models.Host{
		UserID:          userID,
		ClubType:        in.ClubType,
		ClubAddress:     optional(in.ClubAddress),
		DeliveryAddress: optional(in.ClubAddress),
		AboutClub:       optional(in.AboutClub),
		WinePreferences: optional(in.WinePreferences),
		Latitude:        in.Latitude,
		Longitude:       in.Longitude,
	})
	if err != nil {
		if errors.Is(err, store.ErrHostExists) {
			return Result{}, ErrAlreadyHost
		}
		log.Error().Err(err).Str("step", "host_profile").Msg("club creation failed")
		s.record("create_club", false)
		return Result{}, ErrClubCreationFailed.Wrap(err)
	}

	if err := s.store.EnsureMember(ctx, userID, optional(in.ClubAddress)); err != nil {
		log.Warn().Err(err).Str("step", "member_profile").Msg("member profile creation failed")
		warnings = append(warnings, WarnMemberProfile)
	}
	if err := s.selfMembership(ctx, userID); err != nil {
		log.Warn().Err(err).Str("step", "membership").Msg("host membership creation failed")
		warnings = append(warnings, WarnMembership)
	}

	s.record("create_club", true)
	return Result{Success: true, Host: &host, HostID: userID, HostCode: host.HostCode, Warnings: warnings}, nil
}

func (s *service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	if err := ctx.Err(); err != nil {
		return LoginResult{}, err
	}
	if strings.TrimSpace(email) == "" || password == "" {
		return LoginResult{}, ErrInvalidLogin
	}

	id, err := s.identities.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			return LoginResult{}, ErrInvalidLogin
		}
		return LoginResult{}, err
	}

	user, err := s.store.UserByID(ctx, id.ID)
	if err != nil {
		return LoginResult{}, ErrProfileLoad.Wrap(err)
	}

	token, err := s.sessions.Issue(ctx, id.ID)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{User: user, Token: token}, nil
}

func (s *service) Logout(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if token == "" {
		return nil
	}
	return s.sessions.Revoke(ctx, token)
}

func (s *service) DualRoleStatus(ctx context.Context, userID string) (models.DualRoleStatus, error) {
	if err := ctx.Err(); err != nil {
		return models.DualRoleStatus{}, err
	}
	return s.store.RoleStatus(ctx, userID)
}

func (s *service) ChangePassword(ctx context.Context, userID, current, next string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if current == "" || next == "" {
		return ErrPasswordsRequired
	}

	if err := s.identities.VerifyPassword(ctx, userID, current); err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			return ErrWrongPassword
		}
		return err
	}
	if len(next) < 8 {
		return apperr.Validation("Password must be at least 8 characters")
	}
	if problem := passwordProblem(next); problem != "" {
		return apperr.Validation(problem)
	}

	if err := s.identities.UpdatePassword(ctx, userID, next); err != nil {
		return ErrPasswordUpdate.Wrap(err)
	}
	return nil
}

// createProfile covers identity creation, the profile wait and the name update.
func (s *service) createProfile(ctx context.Context, email, password, fullName, role string) (models.User, error) {
	id, err := s.identities.CreateIdentity(ctx, email, password, map[string]string{
		"full_name": fullName,
		"role":      role,
	})
	if err != nil {
		if errors.Is(err, identity.ErrEmailTaken) {
			return models.User{}, apperr.Validation(err.Error())
		}
		return models.User{}, err
	}

	user, err := s.waitForProfile(ctx, id.ID)
	if err != nil {
		return models.User{}, err
	}

	if err := s.store.UpdateUserFullName(ctx, id.ID, fullName); err != nil {
		return models.User{}, apperr.Internal("Failed to create user profile", err)
	}
	user.FullName = &fullName
	return user, nil
}

func (s *service) waitForProfile(ctx context.Context, userID string) (models.User, error) {
	log := logging.FromContext(ctx)
	for attempt := 1; attempt <= s.pollAttempts; attempt++ {
		user, err := s.store.UserByID(ctx, userID)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, store.ErrUserNotFound) {
			log.Warn().Err(err).Int("attempt", attempt).Str("user_id", userID).Msg("profile lookup failed")
		}
		if attempt < s.pollAttempts {
			if err := s.sleep(ctx, s.pollInterval); err != nil {
				return models.User{}, err
			}
		}
	}
	log.Error().Str("user_id", userID).Int("attempts", s.pollAttempts).Msg("profile row never appeared")
	return models.User{}, ErrProfileMissing
}

func (s *service) insertHost(ctx context.Context, host models.Host) (models.Host, error) {
	var created models.Host
	_, err := s.allocate(func(code string) error {
		host.HostCode = code
		var err error
		created, err = s.store.CreateHost(ctx, host)
		return err
	}, func(err error) bool {
		return errors.Is(err, store.ErrHostCodeTaken)
	})
	if err != nil {
		return models.Host{}, err
	}
	return created, nil
}

func (s *service) selfMembership(ctx context.Context, userID string) error {
	_, err := s.store.JoinClub(ctx, userID, userID, models.MembershipActive, nil)
	if errors.Is(err, store.ErrAlreadyMember) {
		return nil
	}
	return err
}

func (s *service) record(action string, success bool) {
	if s.recorder != nil {
		s.recorder.RecordBusinessEvent(action, success)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func hasCoordinates(lat, lon *float64) bool {
	return lat != nil && lon != nil && *lat != 0 && *lon != 0
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
