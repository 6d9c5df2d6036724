package store

import (
	"context"
	"database/sql"
	"fmt"

	"vinoclub/shared/go/models"
)

const chargeColumns = `c.id, c.host_id, c.member_id, c.charge_type, c.title, c.description, c.amount,
		       c.payment_status, c.payment_method, c.payment_date, c.due_date, c.transaction_type,
		       c.created_at`

const insertChargeSQL = `
		INSERT INTO charges AS c (host_id, member_id, charge_type, title, description, amount,
		                          payment_status, due_date, transaction_type)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending', $7, $8)
		RETURNING ` + chargeColumns

// CreateCharge inserts a single pending charge.
func (s *Store) CreateCharge(ctx context.Context, charge models.Charge) (models.Charge, error) {
	out, err := scanCharge(s.db.QueryRowContext(ctx, insertChargeSQL,
		charge.HostID,
		charge.MemberID,
		charge.ChargeType,
		charge.Title,
		charge.Description,
		charge.Amount,
		charge.DueDate,
		charge.TransactionType,
	))
	if err != nil {
		return models.Charge{}, fmt.Errorf("insert charge: %w", err)
	}
	return out, nil
}

const activeMemberIDsForShareSQL = `
		SELECT member_id
		FROM memberships
		WHERE host_id = $1 AND status = 'active'
		FOR SHARE
	`

// CreateChargesForActiveMembers copies template to every active member of its host
// in one transaction and returns how many charges were created.
func (s *Store) CreateChargesForActiveMembers(ctx context.Context, template models.Charge) (int, error) {
	var count int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, activeMemberIDsForShareSQL, template.HostID)
		if err != nil {
			return fmt.Errorf("list active members: %w", err)
		}
		memberIDs, err := scanIDs(rows)
		rows.Close()
		if err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, insertChargeSQL)
		if err != nil {
			return fmt.Errorf("prepare charge insert: %w", err)
		}
		defer stmt.Close()

		for _, memberID := range memberIDs {
			if _, err := scanCharge(stmt.QueryRowContext(ctx,
				template.HostID,
				memberID,
				template.ChargeType,
				template.Title,
				template.Description,
				template.Amount,
				template.DueDate,
				template.TransactionType,
			)); err != nil {
				return fmt.Errorf("insert charge for %s: %w", memberID, err)
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

const chargesByHostSQL = `
		SELECT ` + chargeColumns + `, u.full_name, u.email
		FROM charges c
		LEFT JOIN users u ON u.id = c.member_id
		WHERE c.host_id = $1
		ORDER BY c.created_at DESC
	`

// ChargesByHost lists charges issued by hostID, newest first, with member name and email.
func (s *Store) ChargesByHost(ctx context.Context, hostID string) ([]models.Charge, error) {
	rows, err := s.db.QueryContext(ctx, chargesByHostSQL, hostID)
	if err != nil {
		return nil, fmt.Errorf("list host charges: %w", err)
	}
	defer rows.Close()

	charges := make([]models.Charge, 0)
	for rows.Next() {
		var c models.Charge
		if err := rows.Scan(append(chargeDest(&c), &c.MemberName, &c.MemberEmail)...); err != nil {
			return nil, fmt.Errorf("scan charge: %w", err)
		}
		charges = append(charges, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate charges: %w", err)
	}
	return charges, nil
}

const chargesByMemberSQL = `
		SELECT ` + chargeColumns + `, u.full_name, h.host_code
		FROM charges c
		LEFT JOIN hosts h ON h.user_id = c.host_id
		LEFT JOIN users u ON u.id = c.host_id
		WHERE c.member_id = $1
		ORDER BY c.created_at DESC
	`

// ChargesByMember lists charges billed to memberID, newest first, with host name and code.
func (s *Store) ChargesByMember(ctx context.Context, memberID string) ([]models.Charge, error) {
	rows, err := s.db.QueryContext(ctx, chargesByMemberSQL, memberID)
	if err != nil {
		return nil, fmt.Errorf("list member charges: %w", err)
	}
	defer rows.Close()

	charges := make([]models.Charge, 0)
	for rows.Next() {
		var c models.Charge
		if err := rows.Scan(append(chargeDest(&c), &c.HostName, &c.HostCode)...); err != nil {
			return nil, fmt.Errorf("scan charge: %w", err)
		}
		charges = append(charges, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate charges: %w", err)
	}
	return charges, nil
}

func chargeDest(c *models.Charge) []any {
	return []any{
		&c.ID,
		&c.HostID,
		&c.MemberID,
		&c.ChargeType,
		&c.Title,
		&c.Description,
		&c.Amount,
		&c.PaymentStatus,
		&c.PaymentMethod,
		&c.PaymentDate,
		&c.DueDate,
		&c.TransactionType,
		&c.CreatedAt,
	}
}

func scanCharge(row rowScanner) (models.Charge, error) {
	var c models.Charge
	err := row.Scan(chargeDest(&c)...)
	return c, err
}
