package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"vinoclub/shared/go/models"
)

const hostColumns = `h.user_id, h.club_type, h.club_address, h.delivery_address, h.about_club,
		       h.wine_preferences, h.host_code, h.latitude, h.longitude, h.venmo_username,
		       h.paypal_username, h.zelle_handle, h.accepts_cash, h.join_mode, h.created_at,
		       h.updated_at, u.full_name`

const insertHostSQL = `
		INSERT INTO hosts (user_id, club_type, club_address, delivery_address, about_club,
		                   wine_preferences, host_code, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at, join_mode, accepts_cash
	`

// CreateHost inserts the club row for host.UserID.
func (s *Store) CreateHost(ctx context.Context, host models.Host) (models.Host, error) {
	err := s.db.QueryRowContext(ctx, insertHostSQL,
		host.UserID,
		host.ClubType,
		host.ClubAddress,
		host.DeliveryAddress,
		host.AboutClub,
		host.WinePreferences,
		host.HostCode,
		host.Latitude,
		host.Longitude,
	).Scan(&host.CreatedAt, &host.UpdatedAt, &host.JoinMode, &host.AcceptsCash)
	if err != nil {
		if isUniqueViolation(err) {
			if violatedConstraint(err) == "hosts_host_code_key" {
				return models.Host{}, ErrHostCodeTaken
			}
			return models.Host{}, ErrHostExists
		}
		return models.Host{}, fmt.Errorf("insert host: %w", err)
	}
	return host, nil
}

const selectHostByUserIDSQL = `
		SELECT ` + hostColumns + `
		FROM hosts h
		JOIN users u ON u.id = h.user_id
		WHERE h.user_id = $1
	`

// HostByUserID returns the club owned by userID.
func (s *Store) HostByUserID(ctx context.Context, userID string) (models.Host, error) {
	return s.queryHost(ctx, selectHostByUserIDSQL, userID)
}

const selectHostByCodeSQL = `
		SELECT ` + hostColumns + `
		FROM hosts h
		JOIN users u ON u.id = h.user_id
		WHERE h.host_code = $1
	`

// HostByCode returns the club with the given join code. Codes are stored upper-case.
func (s *Store) HostByCode(ctx context.Context, code string) (models.Host, error) {
	return s.queryHost(ctx, selectHostByCodeSQL, code)
}

func (s *Store) queryHost(ctx context.Context, query string, arg any) (models.Host, error) {
	host, err := scanHost(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Host{}, ErrHostNotFound
		}
		return models.Host{}, fmt.Errorf("select host: %w", err)
	}
	return host, nil
}

// HostCodeExists reports whether code is already assigned to a club.
func (s *Store) HostCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM hosts WHERE host_code = $1)
	`, code).Scan(&exists); err != nil {
		return false, fmt.Errorf("check host code: %w", err)
	}
	return exists, nil
}

const roleStatusSQL = `
		SELECT EXISTS (SELECT 1 FROM hosts WHERE user_id = $1),
		       EXISTS (SELECT 1 FROM members WHERE user_id = $1)
	`

// RoleStatus reports whether the user has host and member rows.
func (s *Store) RoleStatus(ctx context.Context, userID string) (models.DualRoleStatus, error) {
	var status models.DualRoleStatus
	if err := s.db.QueryRowContext(ctx, roleStatusSQL, userID).Scan(&status.HasHostProfile, &status.HasMemberProfile); err != nil {
		return models.DualRoleStatus{}, fmt.Errorf("check roles: %w", err)
	}
	status.IsDualRole = status.HasHostProfile && status.HasMemberProfile
	return status, nil
}

const selectHostSettingsSQL = `
		SELECT venmo_username, paypal_username, zelle_handle, accepts_cash, join_mode
		FROM hosts
		WHERE user_id = $1
	`

// HostSettings returns the payment handles and join mode for a host.
func (s *Store) HostSettings(ctx context.Context, userID string) (models.HostSettings, error) {
	settings, err := scanHostSettings(s.db.QueryRowContext(ctx, selectHostSettingsSQL, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.HostSettings{}, ErrHostNotFound
		}
		return models.HostSettings{}, fmt.Errorf("select host settings: %w", err)
	}
	return settings, nil
}

// HostSettingsUpdate carries already-normalized values. Set* flags mark which fields to write.
type HostSettingsUpdate struct {
	SetVenmo       bool
	VenmoUsername  *string
	SetPaypal      bool
	PaypalUsername *string
	SetZelle       bool
	ZelleHandle    *string
	SetCash        bool
	AcceptsCash    bool
	SetJoinMode    bool
	JoinMode       string
}

const updateHostSettingsSQL = `
		UPDATE hosts
		SET venmo_username = CASE WHEN $2 THEN $3 ELSE venmo_username END,
		    paypal_username = CASE WHEN $4 THEN $5 ELSE paypal_username END,
		    zelle_handle = CASE WHEN $6 THEN $7 ELSE zelle_handle END,
		    accepts_cash = CASE WHEN $8 THEN $9 ELSE accepts_cash END,
		    join_mode = CASE WHEN $10 THEN $11 ELSE join_mode END,
		    updated_at = NOW()
		WHERE user_id = $1
		RETURNING venmo_username, paypal_username, zelle_handle, accepts_cash, join_mode
	`

// UpdateHostSettings writes the flagged fields and returns the stored settings.
func (s *Store) UpdateHostSettings(ctx context.Context, userID string, update HostSettingsUpdate) (models.HostSettings, error) {
	settings, err := scanHostSettings(s.db.QueryRowContext(ctx, updateHostSettingsSQL,
		userID,
		update.SetVenmo, update.VenmoUsername,
		update.SetPaypal, update.PaypalUsername,
		update.SetZelle, update.ZelleHandle,
		update.SetCash, update.AcceptsCash,
		update.SetJoinMode, update.JoinMode,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.HostSettings{}, ErrHostNotFound
		}
		return models.HostSettings{}, fmt.Errorf("update host settings: %w", err)
	}
	return settings, nil
}

const countActiveMembersSQL = `
		SELECT COUNT(*)
		FROM memberships
		WHERE host_id = $1 AND status = 'active'
	`

// CountActiveMembers returns the number of active memberships for a club.
func (s *Store) CountActiveMembers(ctx context.Context, hostID string) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, countActiveMembersSQL, hostID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count members: %w", err)
	}
	return count, nil
}

const discoverableClubsSQL = `
		SELECT h.user_id, u.full_name, h.host_code, h.club_address, h.about_club,
		       h.wine_preferences, h.join_mode, h.latitude, h.longitude,
		       (SELECT COUNT(*) FROM memberships m WHERE m.host_id = h.user_id AND m.status = 'active'),
		       EXISTS (SELECT 1 FROM memberships m
		               WHERE m.host_id = h.user_id AND m.member_id = $1 AND m.status = 'active')
		FROM hosts h
		JOIN users u ON u.id = h.user_id
		WHERE h.latitude IS NOT NULL
		  AND h.longitude IS NOT NULL
		  AND h.join_mode <> 'private'
	`

// DiscoverableClubs lists clubs with coordinates that are not code-only. Distance is left zero.
func (s *Store) DiscoverableClubs(ctx context.Context, viewerID string) ([]models.NearbyClub, error) {
	rows, err := s.db.QueryContext(ctx, discoverableClubsSQL, viewerID)
	if err != nil {
		return nil, fmt.Errorf("list clubs: %w", err)
	}
	defer rows.Close()

	clubs := make([]models.NearbyClub, 0)
	for rows.Next() {
		var c models.NearbyClub
		if err := rows.Scan(
			&c.HostID,
			&c.HostName,
			&c.HostCode,
			&c.ClubAddress,
			&c.AboutClub,
			&c.WinePreferences,
			&c.JoinMode,
			&c.Latitude,
			&c.Longitude,
			&c.MemberCount,
			&c.IsJoined,
		); err != nil {
			return nil, fmt.Errorf("scan club: %w", err)
		}
		clubs = append(clubs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clubs: %w", err)
	}
	return clubs, nil
}

// HostSummaries returns code and owner name for the given hosts.
func (s *Store) HostSummaries(ctx context.Context, hostIDs []string) ([]models.HostSummary, error) {
	if len(hostIDs) == 0 {
		return []models.HostSummary{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT h.user_id, h.host_code, u.full_name
		FROM hosts h
		JOIN users u ON u.id = h.user_id
		WHERE h.user_id = ANY($1)
	`, pq.Array(hostIDs))
	if err != nil {
		return nil, fmt.Errorf("list host summaries: %w", err)
	}
	defer rows.Close()

	summaries := make([]models.HostSummary, 0, len(hostIDs))
	for rows.Next() {
		var h models.HostSummary
		if err := rows.Scan(&h.UserID, &h.HostCode, &h.HostName); err != nil {
			return nil, fmt.Errorf("scan host summary: %w", err)
		}
		summaries = append(summaries, h)
	}
	return summaries, rows.Err()
}

func scanHost(row rowScanner) (models.Host, error) {
	var h models.Host
	err := row.Scan(
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
	)
	return h, err
}

func scanHostSettings(row rowScanner) (models.HostSettings, error) {
	var hs models.HostSettings
	err := row.Scan(&hs.VenmoUsername, &hs.PaypalUsername, &hs.ZelleHandle, &hs.AcceptsCash, &hs.JoinMode)
	return hs, err
}
