// Package memberships handles joining, leaving and approving club memberships.
package memberships

import (
	"context"
	"errors"
	"strings"

	"vinoclub/internal/apperr"
	"vinoclub/internal/hostcode"
	"vinoclub/internal/store"
	"vinoclub/shared/go/logging"
	"vinoclub/shared/go/models"
)

var (
	ErrHostIDRequired       = apperr.Validation("Host ID is required")
	ErrHostCodeRequired     = apperr.Validation("Host code is required")
	ErrMembershipIDRequired = apperr.Validation("Membership ID is required")
	ErrHostNotFound         = apperr.NotFound("Host not found")
	ErrInvalidClubCode      = apperr.NotFound("Invalid club code")
	ErrPrivateClub          = apperr.Forbidden("This is a private club. Use the club code to join.")
	ErrAlreadyMember        = apperr.Validation("You are already a member of this club")
	ErrAlreadyMemberByCode  = apperr.Validation("Already a member of this club")
	ErrPendingRequest       = apperr.Validation("You already have a pending request for this club")
	ErrMembershipNotFound   = apperr.NotFound("Membership not found or unauthorized")
)

// Store defines the persistence hooks for membership workflows.
type Store interface {
	HostByUserID(ctx context.Context, userID string) (models.Host, error)
	HostByCode(ctx context.Context, code string) (models.Host, error)
	JoinClub(ctx context.Context, memberID, hostID, status string, requestMessage *string) (models.Membership, error)
	LeaveClub(ctx context.Context, memberID, hostID string) error
	MembershipsForMember(ctx context.Context, memberID string) ([]models.MembershipWithHost, error)
	ApproveMembership(ctx context.Context, hostID, membershipID string) (models.Membership, error)
	DenyMembership(ctx context.Context, hostID, membershipID string) (models.Membership, error)
	PendingRequests(ctx context.Context, hostID string) ([]models.PendingRequest, error)
	ActiveMembers(ctx context.Context, hostID string) ([]models.ClubMember, error)
}

// Recorder counts join outcomes.
type Recorder interface {
	RecordBusinessEvent(action string, success bool)
}

// Service coordinates membership changes from both sides of a club.
type Service interface {
	Join(ctx context.Context, userID, hostID string, requestMessage *string) (models.Membership, error)
	JoinWithCode(ctx context.Context, userID, code string) (models.Membership, error)
	Leave(ctx context.Context, userID, hostID string) error
	List(ctx context.Context, userID string) ([]models.MembershipWithHost, error)
	Pending(ctx context.Context, hostID string) ([]models.PendingRequest, error)
	Approve(ctx context.Context, hostID, membershipID string) (models.Membership, error)
	Deny(ctx context.Context, hostID, membershipID string) (models.Membership, error)
	Members(ctx context.Context, hostID string) ([]models.ClubMember, error)
}

type service struct {
	store    Store
	recorder Recorder
}

// New constructs a memberships Service. recorder may be nil.
func New(store Store, recorder Recorder) Service {
	return &service{store: store, recorder: recorder}
}

// Join requests membership in hostID. Public clubs activate immediately,
// request-mode clubs create a pending request, private clubs need the code.
func (s *service) Join(ctx context.Context, userID, hostID string, requestMessage *string) (models.Membership, error) {
	if err := ctx.Err(); err != nil {
		return models.Membership{}, err
	}
	if strings.TrimSpace(hostID) == "" {
		return models.Membership{}, ErrHostIDRequired
	}

	host, err := s.store.HostByUserID(ctx, hostID)
	if err != nil {
		if errors.Is(err, store.ErrHostNotFound) {
			return models.Membership{}, ErrHostNotFound
		}
		return models.Membership{}, err
	}

	var status string
	switch host.JoinMode {
	case models.JoinModePrivate:
		return models.Membership{}, ErrPrivateClub
	case models.JoinModeRequest:
		status = models.MembershipPending
	default:
		status = models.MembershipActive
		requestMessage = nil
	}

	membership, err := s.store.JoinClub(ctx, userID, hostID, status, requestMessage)
	s.record("join", err == nil)
	switch {
	case errors.Is(err, store.ErrAlreadyMember):
		return models.Membership{}, ErrAlreadyMember
	case errors.Is(err, store.ErrMembershipPending):
		return models.Membership{}, ErrPendingRequest
	case err != nil:
		return models.Membership{}, err
	}

	logging.FromContext(ctx).Info().
		Str("host_id", hostID).
		Str("status", membership.Status).
		Msg("membership joined")
	return membership, nil
}

// JoinWithCode activates a membership regardless of join mode.
func (s *service) JoinWithCode(ctx context.Context, userID, code string) (models.Membership, error) {
	if err := ctx.Err(); err != nil {
		return models.Membership{}, err
	}
	code = hostcode.Normalize(code)
	if code == "" {
		return models.Membership{}, ErrHostCodeRequired
	}

	host, err := s.store.HostByCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrHostNotFound) {
			return models.Membership{}, ErrInvalidClubCode
		}
		return models.Membership{}, err
	}

	membership, err := s.store.JoinClub(ctx, userID, host.UserID, models.MembershipActive, nil)
	s.record("join_with_code", err == nil)
	switch {
	case errors.Is(err, store.ErrAlreadyMember):
		return models.Membership{}, ErrAlreadyMemberByCode
	case errors.Is(err, store.ErrMembershipPending):
		return models.Membership{}, ErrPendingRequest
	case err != nil:
		return models.Membership{}, err
	}
	return membership, nil
}

// Leave marks the membership inactive. Leaving a club never joined is a no-op.
func (s *service) Leave(ctx context.Context, userID, hostID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(hostID) == "" {
		return ErrHostIDRequired
	}
	err := s.store.LeaveClub(ctx, userID, hostID)
	if errors.Is(err, store.ErrMembershipNotFound) {
		return nil
	}
	return err
}

// List returns the caller's active and pending memberships.
func (s *service) List(ctx context.Context, userID string) ([]models.MembershipWithHost, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	all, err := s.store.MembershipsForMember(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]models.MembershipWithHost, 0, len(all))
	for _, m := range all {
		if m.Status != models.MembershipActive && m.Status != models.MembershipPending {
			continue
		}
		if m.HostName == "" {
			m.HostName = "Unknown Host"
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *service) Pending(ctx context.Context, hostID string) ([]models.PendingRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.PendingRequests(ctx, hostID)
}

func (s *service) Approve(ctx context.Context, hostID, membershipID string) (models.Membership, error) {
	return s.resolve(ctx, hostID, membershipID, s.store.ApproveMembership)
}

func (s *service) Deny(ctx context.Context, hostID, membershipID string) (models.Membership, error) {
	return s.resolve(ctx, hostID, membershipID, s.store.DenyMembership)
}

func (s *service) resolve(ctx context.Context, hostID, membershipID string, apply func(context.Context, string, string) (models.Membership, error)) (models.Membership, error) {
	if err := ctx.Err(); err != nil {
		return models.Membership{}, err
	}
	if strings.TrimSpace(membershipID) == "" {
		return models.Membership{}, ErrMembershipIDRequired
	}
	membership, err := apply(ctx, hostID, membershipID)
	if err != nil {
		if errors.Is(err, store.ErrMembershipNotFound) {
			return models.Membership{}, ErrMembershipNotFound
		}
		return models.Membership{}, err
	}
	return membership, nil
}

func (s *service) Members(ctx context.Context, hostID string) ([]models.ClubMember, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.ActiveMembers(ctx, hostID)
}

func (s *service) record(action string, success bool) {
	if s.recorder != nil {
		s.recorder.RecordBusinessEvent(action, success)
	}
}
