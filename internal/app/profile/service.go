// Package profile serves a user's own account, address and preferences.
package profile

import (
	"context"
	"errors"
	"fmt"

	"vinoclub/internal/apperr"
	"vinoclub/internal/store"
	"vinoclub/shared/go/models"
)

const (
	MinSearchRadius = 1
	MaxSearchRadius = 500
)

var (
	ErrUserNotFound         = apperr.NotFound("User not found")
	ErrInvalidDashboard     = apperr.Validation("last_dashboard must be host or member")
	ErrInvalidSearchRadius  = apperr.Validation(fmt.Sprintf("search_radius must be between %d and %d", MinSearchRadius, MaxSearchRadius))
	ErrPersonalInfoNotSaved = apperr.Internal("Failed to update personal information", nil)
)

// Store defines the persistence hooks for profile reads and writes.
type Store interface {
	UserByID(ctx context.Context, id string) (models.User, error)
	RoleStatus(ctx context.Context, userID string) (models.DualRoleStatus, error)
	UpdateContactInfo(ctx context.Context, id string, fullName, phone *string) error
	MemberByUserID(ctx context.Context, userID string) (models.Member, error)
	UpsertMember(ctx context.Context, member models.Member) (models.Member, error)
	Preferences(ctx context.Context, id string) (models.Preferences, error)
	UpdatePreferences(ctx context.Context, id string, prefs models.Preferences) (models.Preferences, error)
}

// AddressInput is the member address as submitted by the client.
type AddressInput struct {
	Address   *string  `json:"address"`
	City      *string  `json:"city"`
	State     *string  `json:"state"`
	ZipCode   *string  `json:"zip_code"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (a AddressInput) empty() bool {
	return blank(a.Address) && blank(a.City) && blank(a.State) && blank(a.ZipCode) &&
		zero(a.Latitude) && zero(a.Longitude)
}

func (a AddressInput) member(userID string) models.Member {
	return models.Member{
		UserID:    userID,
		Address:   a.Address,
		City:      a.City,
		State:     a.State,
		ZipCode:   a.ZipCode,
		Latitude:  a.Latitude,
		Longitude: a.Longitude,
	}
}

// PersonalInfoInput updates the user's contact fields and address together.
type PersonalInfoInput struct {
	FullName *string `json:"full_name"`
	Phone    *string `json:"phone"`
	AddressInput
}

// Account is the signed-in user with capability flags.
type Account struct {
	User   models.User           `json:"user"`
	Status models.DualRoleStatus `json:"status"`
}

// Service exposes profile operations.
type Service interface {
	Account(ctx context.Context, userID string) (Account, error)
	MemberProfile(ctx context.Context, userID string) (*models.Member, error)
	SaveMemberProfile(ctx context.Context, userID string, in AddressInput) (models.Member, error)
	PersonalInfo(ctx context.Context, userID string) (models.PersonalInfo, error)
	UpdatePersonalInfo(ctx context.Context, userID string, in PersonalInfoInput) (models.PersonalInfo, error)
	Preferences(ctx context.Context, userID string) (models.Preferences, error)
	UpdatePreferences(ctx context.Context, userID string, prefs models.Preferences) (models.Preferences, error)
}

type service struct {
	store Store
}

// New constructs a profile Service backed by the given Store.
func New(store Store) Service {
	return &service{store: store}
}

func (s *service) Account(ctx context.Context, userID string) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}
	user, err := s.user(ctx, userID)
	if err != nil {
		return Account{}, err
	}
	status, err := s.store.RoleStatus(ctx, userID)
	if err != nil {
		return Account{}, fmt.Errorf("role status: %w", err)
	}
	return Account{User: user, Status: status}, nil
}

// MemberProfile returns the member row, or nil when the user has none yet.
func (s *service) MemberProfile(ctx context.Context, userID string) (*models.Member, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	member, err := s.store.MemberByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrMemberNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

func (s *service) SaveMemberProfile(ctx context.Context, userID string, in AddressInput) (models.Member, error) {
	if err := ctx.Err(); err != nil {
		return models.Member{}, err
	}
	return s.store.UpsertMember(ctx, in.member(userID))
}

func (s *service) PersonalInfo(ctx context.Context, userID string) (models.PersonalInfo, error) {
	if err := ctx.Err(); err != nil {
		return models.PersonalInfo{}, err
	}

	user, err := s.user(ctx, userID)
	if err != nil {
		return models.PersonalInfo{}, err
	}

	info := models.PersonalInfo{
		ID:       user.ID,
		Email:    user.Email,
		FullName: user.FullName,
		Phone:    user.Phone,
	}

	member, err := s.store.MemberByUserID(ctx, userID)
	switch {
	case errors.Is(err, store.ErrMemberNotFound):
		return info, nil
	case err != nil:
		return models.PersonalInfo{}, err
	}

	info.Address = nonBlank(member.Address)
	info.City = nonBlank(member.City)
	info.State = nonBlank(member.State)
	info.ZipCode = nonBlank(member.ZipCode)
	info.Latitude = nonZero(member.Latitude)
	info.Longitude = nonZero(member.Longitude)
	return info, nil
}

// UpdatePersonalInfo replaces name and phone, and writes the address only when
// at least one address field was given.
func (s *service) UpdatePersonalInfo(ctx context.Context, userID string, in PersonalInfoInput) (models.PersonalInfo, error) {
	if err := ctx.Err(); err != nil {
		return models.PersonalInfo{}, err
	}

	if err := s.store.UpdateContactInfo(ctx, userID, in.FullName, in.Phone); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return models.PersonalInfo{}, ErrUserNotFound
		}
		return models.PersonalInfo{}, ErrPersonalInfoNotSaved.Wrap(err)
	}

	if !in.AddressInput.empty() {
		if _, err := s.store.UpsertMember(ctx, in.AddressInput.member(userID)); err != nil {
			return models.PersonalInfo{}, fmt.Errorf("save address: %w", err)
		}
	}
	return s.PersonalInfo(ctx, userID)
}

func (s *service) Preferences(ctx context.Context, userID string) (models.Preferences, error) {
	if err := ctx.Err(); err != nil {
		return models.Preferences{}, err
	}
	prefs, err := s.store.Preferences(ctx, userID)
	if errors.Is(err, store.ErrUserNotFound) {
		return models.Preferences{}, ErrUserNotFound
	}
	return prefs, err
}

// UpdatePreferences writes the non-nil fields after range checks.
func (s *service) UpdatePreferences(ctx context.Context, userID string, prefs models.Preferences) (models.Preferences, error) {
	if err := ctx.Err(); err != nil {
		return models.Preferences{}, err
	}
	if d := prefs.LastDashboard; d != nil && *d != models.DashboardHost && *d != models.DashboardMember {
		return models.Preferences{}, ErrInvalidDashboard
	}
	if r := prefs.SearchRadius; r != nil && (*r < MinSearchRadius || *r > MaxSearchRadius) {
		return models.Preferences{}, ErrInvalidSearchRadius
	}

	out, err := s.store.UpdatePreferences(ctx, userID, prefs)
	if errors.Is(err, store.ErrUserNotFound) {
		return models.Preferences{}, ErrUserNotFound
	}
	return out, err
}

func (s *service) user(ctx context.Context, userID string) (models.User, error) {
	user, err := s.store.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func blank(s *string) bool { return s == nil || *s == "" }

func zero(f *float64) bool { return f == nil || *f == 0 }

func nonBlank(s *string) *string {
	if blank(s) {
		return nil
	}
	return s
}

func nonZero(f *float64) *float64 {
	if zero(f) {
		return nil
	}
	return f
}
