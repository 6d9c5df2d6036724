package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"vinoclub/shared/go/models"
)

const membershipColumns = `id, member_id, host_id, status, request_message, joined_at, updated_at`

// Reactivates only inactive rows; active or pending rows make the statement return nothing.
const joinClubSQL = `
		INSERT INTO memberships (member_id, host_id, status, request_message)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (member_id, host_id) DO UPDATE
		SET status = EXCLUDED.status,
		    request_message = EXCLUDED.request_message,
		    joined_at = NOW(),
		    updated_at = NOW()
		WHERE memberships.status = 'inactive'
		RETURNING ` + membershipColumns

const membershipStatusSQL = `
		SELECT status
		FROM memberships
		WHERE member_id = $1 AND host_id = $2
	`

// JoinClub creates or reactivates a membership with the given status.
// An existing active or pending row yields ErrAlreadyMember or ErrMembershipPending.
func (s *Store) JoinClub(ctx context.Context, memberID, hostID, status string, requestMessage *string) (models.Membership, error) {
	membership, err := scanMembership(s.db.QueryRowContext(ctx, joinClubSQL, memberID, hostID, status, requestMessage))
	if err == nil {
		return membership, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		if isUniqueViolation(err) {
			return models.Membership{}, ErrAlreadyMember
		}
		return models.Membership{}, fmt.Errorf("insert membership: %w", err)
	}

	existing, err := s.MembershipStatus(ctx, memberID, hostID)
	if err != nil {
		return models.Membership{}, err
	}
	if existing == models.MembershipPending {
		return models.Membership{}, ErrMembershipPending
	}
	return models.Membership{}, ErrAlreadyMember
}

// MembershipStatus returns the status of the member's row for hostID.
func (s *Store) MembershipStatus(ctx context.Context, memberID, hostID string) (string, error) {
	var status string
	if err := s.db.QueryRowContext(ctx, membershipStatusSQL, memberID, hostID).Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrMembershipNotFound
		}
		return "", fmt.Errorf("select membership status: %w", err)
	}
	return status, nil
}

// IsActiveMember reports whether memberID holds an active membership in hostID.
func (s *Store) IsActiveMember(ctx context.Context, memberID, hostID string) (bool, error) {
	status, err := s.MembershipStatus(ctx, memberID, hostID)
	if errors.Is(err, ErrMembershipNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return status == models.MembershipActive, nil
}

const leaveClubSQL = `
		UPDATE memberships
		SET status = 'inactive', updated_at = NOW()
		WHERE member_id = $1 AND host_id = $2
	`

// LeaveClub marks the membership inactive.
func (s *Store) LeaveClub(ctx context.Context, memberID, hostID string) error {
	res, err := s.db.ExecContext(ctx, leaveClubSQL, memberID, hostID)
	if err != nil {
		return fmt.Errorf("leave club: %w", err)
	}
	return expectAffected(res, ErrMembershipNotFound)
}

const membershipsForMemberSQL = `
		SELECT m.id, m.member_id, m.host_id, m.status, m.request_message, m.joined_at, m.updated_at,
		       ` + hostColumns + `
		FROM memberships m
		JOIN hosts h ON h.user_id = m.host_id
		JOIN users u ON u.id = h.user_id
		WHERE m.member_id = $1
		ORDER BY m.joined_at DESC
	`

// MembershipsForMember lists every membership of memberID with its host.
func (s *Store) MembershipsForMember(ctx context.Context, memberID string) ([]models.MembershipWithHost, error) {
	rows, err := s.db.QueryContext(ctx, membershipsForMemberSQL, memberID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	defer rows.Close()

	memberships := make([]models.MembershipWithHost, 0)
	for rows.Next() {
		var (
			mw models.MembershipWithHost
			h  models.Host
		)
		if err := rows.Scan(
			&mw.ID,
			&mw.MemberID,
			&mw.HostID,
			&mw.Status,
			&mw.RequestMessage,
			&mw.JoinedAt,
			&mw.UpdatedAt,
			&h.UserID,
			&h.ClubType,
			&h.ClubAddress,
			&h.DeliveryAddress,
			&h.AboutClub,
			&h.WinePreferences,
			&h.HostCode,
			&h.Latitude,
			&h.Longitude,
			&h.VenmoUsername,
			&h.PaypalUsername,
			&h.ZelleHandle,
			&h.AcceptsCash,
			&h.JoinMode,
			&h.CreatedAt,
			&h.UpdatedAt,
			&h.HostName,
		); err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		mw.Host = &h
		if h.HostName != nil {
			mw.HostName = *h.HostName
		}
		memberships = append(memberships, mw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memberships: %w", err)
	}
	return memberships, nil
}

const resolveMembershipSQL = `
		UPDATE memberships
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND host_id = $2 AND status = 'pending'
		RETURNING ` + membershipColumns

// ApproveMembership activates a pending request addressed to hostID.
func (s *Store) ApproveMembership(ctx context.Context, hostID, membershipID string) (models.Membership, error) {
	return s.resolveMembership(ctx, hostID, membershipID, models.MembershipActive)
}

// DenyMembership marks a pending request addressed to hostID inactive.
func (s *Store) DenyMembership(ctx context.Context, hostID, membershipID string) (models.Membership, error) {
	return s.resolveMembership(ctx, hostID, membershipID, models.MembershipInactive)
}

func (s *Store) resolveMembership(ctx context.Context, hostID, membershipID, status string) (models.Membership, error) {
	membership, err := scanMembership(s.db.QueryRowContext(ctx, resolveMembershipSQL, membershipID, hostID, status))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Membership{}, ErrMembershipNotFound
		}
		return models.Membership{}, fmt.Errorf("resolve membership: %w", err)
	}
	return membership, nil
}

const pendingRequestsSQL = `
		SELECT m.id, m.member_id, m.host_id, m.status, m.request_message, m.joined_at, m.updated_at,
		       u.full_name, u.email
		FROM memberships m
		JOIN users u ON u.id = m.member_id
		WHERE m.host_id = $1 AND m.status = 'pending'
		ORDER BY m.joined_at ASC
	`

// PendingRequests lists join requests waiting on hostID.
func (s *Store) PendingRequests(ctx context.Context, hostID string) ([]models.PendingRequest, error) {
	rows, err := s.db.QueryContext(ctx, pendingRequestsSQL, hostID)
	if err != nil {
		return nil, fmt.Errorf("list pending requests: %w", err)
	}
	defer rows.Close()

	requests := make([]models.PendingRequest, 0)
	for rows.Next() {
		var (
			pr       models.PendingRequest
			fullName sql.NullString
			email    sql.NullString
		)
		if err := rows.Scan(
			&pr.ID,
			&pr.MemberID,
			&pr.HostID,
			&pr.Status,
			&pr.RequestMessage,
			&pr.JoinedAt,
			&pr.UpdatedAt,
			&fullName,
			&email,
		); err != nil {
			return nil, fmt.Errorf("scan pending request: %w", err)
		}
		pr.MemberName = fullName.String
		if pr.MemberName == "" {
			pr.MemberName = "Unknown"
		}
		pr.MemberEmail = email.String
		requests = append(requests, pr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending requests: %w", err)
	}
	return requests, nil
}

const activeMembersSQL = `
		SELECT u.id, u.full_name, u.email
		FROM memberships m
		JOIN users u ON u.id = m.member_id
		WHERE m.host_id = $1 AND m.status = 'active'
		ORDER BY u.full_name ASC NULLS LAST
	`

// ActiveMembers lists users with an active membership in hostID.
func (s *Store) ActiveMembers(ctx context.Context, hostID string) ([]models.ClubMember, error) {
	rows, err := s.db.QueryContext(ctx, activeMembersSQL, hostID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	members := make([]models.ClubMember, 0)
	for rows.Next() {
		var (
			m        models.ClubMember
			fullName sql.NullString
			email    sql.NullString
		)
		if err := rows.Scan(&m.UserID, &fullName, &email); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		m.FullName = fullName.String
		if m.FullName == "" {
			m.FullName = "Unknown"
		}
		m.Email = email.String
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}

// ActiveHostIDs returns the clubs where memberID is active.
func (s *Store) ActiveHostIDs(ctx context.Context, memberID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT host_id
		FROM memberships
		WHERE member_id = $1 AND status = 'active'
	`, memberID)
	if err != nil {
		return nil, fmt.Errorf("list active clubs: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

func scanMembership(row rowScanner) (models.Membership, error) {
	var m models.Membership
	err := row.Scan(
		&m.ID,
		&m.MemberID,
		&m.HostID,
		&m.Status,
		&m.RequestMessage,
		&m.JoinedAt,
		&m.UpdatedAt,
	)
	return m, err
}

func scanIDs(rows *sql.Rows) ([]string, error) {
	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ids: %w", err)
	}
	return ids, nil
}
