// Package settings validates and stores a host's payment handles and join mode.
package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"vinoclub/internal/apperr"
	"vinoclub/internal/store"
	"vinoclub/shared/go/logging"
	"vinoclub/shared/go/models"
)

var (
	ErrHostNotFound    = apperr.NotFound("Host profile not found")
	ErrInvalidJoinMode = apperr.Validation("Invalid join mode. Must be: public, request, or private")
	ErrInvalidVenmo    = apperr.Validation("Venmo username must be 5-30 characters and contain only letters, numbers, underscores, or hyphens")
	ErrInvalidPaypal   = apperr.Validation("PayPal username must be 3-20 characters and contain only letters, numbers, underscores, or hyphens")
	ErrInvalidZelle    = apperr.Validation("Zelle handle must be a valid email address or 10-digit phone number")
)

var (
	venmoPattern  = regexp.MustCompile(`^[a-zA-Z0-9_-]{5,30}$`)
	paypalPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,20}$`)
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern  = regexp.MustCompile(`^\d{10}$`)
	nonDigits     = regexp.MustCompile(`\D`)
)

// Field is a JSON value that remembers whether it was present in the body.
type Field[T any] struct {
	Set   bool
	Value *T
}

func (f *Field[T]) UnmarshalJSON(b []byte) error {
	f.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		f.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	f.Value = &v
	return nil
}

// Patch is a partial settings update; absent fields are left untouched.
type Patch struct {
	VenmoUsername  Field[string] `json:"venmo_username"`
	PaypalUsername Field[string] `json:"paypal_username"`
	ZelleHandle    Field[string] `json:"zelle_handle"`
	AcceptsCash    Field[bool]   `json:"accepts_cash"`
	JoinMode       Field[string] `json:"join_mode"`
}

// Store defines the persistence hooks for host settings.
type Store interface {
	HostSettings(ctx context.Context, userID string) (models.HostSettings, error)
	UpdateHostSettings(ctx context.Context, userID string, update store.HostSettingsUpdate) (models.HostSettings, error)
}

// Service exposes host settings reads and updates.
type Service interface {
	Get(ctx context.Context, hostID string) (models.HostSettings, error)
	Update(ctx context.Context, hostID string, patch Patch) (models.HostSettings, error)
}

type service struct {
	store Store
}

// New constructs a settings Service backed by the given Store.
func New(store Store) Service {
	return &service{store: store}
}

func (s *service) Get(ctx context.Context, hostID string) (models.HostSettings, error) {
	if err := ctx.Err(); err != nil {
		return models.HostSettings{}, err
	}
	settings, err := s.store.HostSettings(ctx, hostID)
	if err != nil {
		if errors.Is(err, store.ErrHostNotFound) {
			return models.HostSettings{}, ErrHostNotFound
		}
		return models.HostSettings{}, err
	}
	return settings, nil
}

// Update validates and normalizes every present field before writing any of them.
func (s *service) Update(ctx context.Context, hostID string, patch Patch) (models.HostSettings, error) {
	if err := ctx.Err(); err != nil {
		return models.HostSettings{}, err
	}

	update, err := BuildUpdate(patch)
	if err != nil {
		return models.HostSettings{}, err
	}

	settings, err := s.store.UpdateHostSettings(ctx, hostID, update)
	if err != nil {
		if errors.Is(err, store.ErrHostNotFound) {
			return models.HostSettings{}, ErrHostNotFound
		}
		return models.HostSettings{}, fmt.Errorf("update settings: %w", err)
	}

	logging.FromContext(ctx).Info().
		Str("host_id", hostID).
		Str("join_mode", settings.JoinMode).
		Msg("host settings updated")
	return settings, nil
}

// BuildUpdate turns a patch into a store update, returning the first
// validation failure.
func BuildUpdate(patch Patch) (store.HostSettingsUpdate, error) {
	var update store.HostSettingsUpdate

	if patch.JoinMode.Set && patch.JoinMode.Value != nil && *patch.JoinMode.Value != "" {
		mode := *patch.JoinMode.Value
		if !models.ValidJoinMode(mode) {
			return update, ErrInvalidJoinMode
		}
		update.SetJoinMode = true
		update.JoinMode = mode
	}

	if patch.VenmoUsername.Set {
		v, err := NormalizeVenmo(deref(patch.VenmoUsername.Value))
		if err != nil {
			return update, err
		}
		update.SetVenmo, update.VenmoUsername = true, v
	}
	if patch.PaypalUsername.Set {
		v, err := NormalizePaypal(deref(patch.PaypalUsername.Value))
		if err != nil {
			return update, err
		}
		update.SetPaypal, update.PaypalUsername = true, v
	}
	if patch.ZelleHandle.Set {
		v, err := NormalizeZelle(deref(patch.ZelleHandle.Value))
		if err != nil {
			return update, err
		}
		update.SetZelle, update.ZelleHandle = true, v
	}
	if patch.AcceptsCash.Set {
		update.SetCash = true
		update.AcceptsCash = patch.AcceptsCash.Value != nil && *patch.AcceptsCash.Value
	}
	return update, nil
}

// NormalizeVenmo strips one leading @. Blank input clears the handle.
func NormalizeVenmo(raw string) (*string, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil, nil
	}
	v = strings.TrimPrefix(v, "@")
	if !venmoPattern.MatchString(v) {
		return nil, ErrInvalidVenmo
	}
	return &v, nil
}

func NormalizePaypal(raw string) (*string, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil, nil
	}
	if !paypalPattern.MatchString(v) {
		return nil, ErrInvalidPaypal
	}
	return &v, nil
}

// NormalizeZelle keeps emails verbatim and reduces phone numbers to their ten digits.
func NormalizeZelle(raw string) (*string, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil, nil
	}
	if emailPattern.MatchString(v) {
		return &v, nil
	}
	digits := nonDigits.ReplaceAllString(v, "")
	if phonePattern.MatchString(digits) {
		return &digits, nil
	}
	return nil, ErrInvalidZelle
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
