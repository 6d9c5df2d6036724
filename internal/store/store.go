package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrUserNotFound indicates no profile row exists for the id.
	ErrUserNotFound = errors.New("user not found")
	// ErrHostNotFound indicates the user has no club.
	ErrHostNotFound = errors.New("host not found")
	// ErrHostExists indicates the user already owns a club.
	ErrHostExists = errors.New("host already exists")
	// ErrHostCodeTaken signals a host code collision; callers regenerate.
	ErrHostCodeTaken = errors.New("host code already in use")
	// ErrMemberNotFound indicates the user has no member row.
	ErrMemberNotFound = errors.New("member not found")
	// ErrMembershipNotFound indicates no matching membership.
	ErrMembershipNotFound = errors.New("membership not found")
	// ErrAlreadyMember is returned when an active membership already exists.
	ErrAlreadyMember = errors.New("already a member")
	// ErrMembershipPending is returned when a request is already waiting for approval.
	ErrMembershipPending = errors.New("membership request pending")
	// ErrEventNotFound indicates no matching event.
	ErrEventNotFound = errors.New("event not found")
	// ErrEventCancelled rejects registrations for cancelled events.
	ErrEventCancelled = errors.New("event cancelled")
	// ErrEventFull rejects registrations past max_attendees.
	ErrEventFull = errors.New("event full")
	// ErrAlreadyRegistered indicates an active registration exists.
	ErrAlreadyRegistered = errors.New("already registered")
	// ErrPaymentNotFound indicates no matching event payment.
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrWineNotFound indicates no matching wine for the host.
	ErrWineNotFound = errors.New("wine not found")
)

// Store provides persistence backed by Postgres.
type Store struct {
	db *sql.DB
}

// New sets up a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// withTx runs fn inside a transaction, committing when fn returns nil.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	tx = nil
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func violatedConstraint(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

type rowScanner interface {
	Scan(dest ...any) error
}
