package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"vinoclub/shared/go/models"
)

const memberColumns = `user_id, address, city, state, zip_code, latitude, longitude, created_at, updated_at`

const selectMemberByUserIDSQL = `
		SELECT ` + memberColumns + `
		FROM members
		WHERE user_id = $1
	`

// MemberByUserID returns the member row for userID.
func (s *Store) MemberByUserID(ctx context.Context, userID string) (models.Member, error) {
	member, err := scanMember(s.db.QueryRowContext(ctx, selectMemberByUserIDSQL, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Member{}, ErrMemberNotFound
		}
		return models.Member{}, fmt.Errorf("select member: %w", err)
	}
	return member, nil
}

const upsertMemberSQL = `
		INSERT INTO members (user_id, address, city, state, zip_code, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE
		SET address = EXCLUDED.address,
		    city = EXCLUDED.city,
		    state = EXCLUDED.state,
		    zip_code = EXCLUDED.zip_code,
		    latitude = EXCLUDED.latitude,
		    longitude = EXCLUDED.longitude,
		    updated_at = NOW()
		RETURNING ` + memberColumns

// UpsertMember creates or replaces the member address row.
func (s *Store) UpsertMember(ctx context.Context, member models.Member) (models.Member, error) {
	out, err := scanMember(s.db.QueryRowContext(ctx, upsertMemberSQL,
		member.UserID,
		member.Address,
		member.City,
		member.State,
		member.ZipCode,
		member.Latitude,
		member.Longitude,
	))
	if err != nil {
		return models.Member{}, fmt.Errorf("upsert member: %w", err)
	}
	return out, nil
}

const ensureMemberSQL = `
		INSERT INTO members (user_id, address)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
	`

// EnsureMember inserts a member row with the given address unless one exists.
func (s *Store) EnsureMember(ctx context.Context, userID string, address *string) error {
	if _, err := s.db.ExecContext(ctx, ensureMemberSQL, userID, address); err != nil {
		return fmt.Errorf("ensure member: %w", err)
	}
	return nil
}

func scanMember(row rowScanner) (models.Member, error) {
	var m models.Member
	err := row.Scan(
		&m.UserID,
		&m.Address,
		&m.City,
		&m.State,
		&m.ZipCode,
		&m.Latitude,
		&m.Longitude,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	return m, err
}
