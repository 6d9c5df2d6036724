// Package identity stores email/password credentials. Creating an identity fires the
// database trigger that provisions the matching users row.
package identity

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrEmailTaken reports a duplicate registration. The message is shown to users.
	ErrEmailTaken = errors.New("User already registered")
	// ErrInvalidCredentials reports an unknown email or wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrIdentityNotFound indicates no identity exists for the id.
	ErrIdentityNotFound = errors.New("identity not found")
)

// Identity is an authenticated principal.
type Identity struct {
	ID        string
	Email     string
	CreatedAt time.Time
}

// PostgresProvider keeps bcrypt password hashes in auth_identities.
type PostgresProvider struct {
	db   *sql.DB
	cost int
}

// NewPostgresProvider returns a provider using bcrypt.DefaultCost.
func NewPostgresProvider(db *sql.DB) *PostgresProvider {
	return &PostgresProvider{db: db, cost: bcrypt.DefaultCost}
}

const insertIdentitySQL = `
		INSERT INTO auth_identities (email, password_hash, metadata)
		VALUES ($1, $2, $3::jsonb)
		RETURNING id, email, created_at
	`

// CreateIdentity registers email with password. Metadata is kept alongside for the profile trigger.
func (p *PostgresProvider) CreateIdentity(ctx context.Context, email, password string, metadata map[string]string) (Identity, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return Identity{}, errors.New("email and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return Identity{}, fmt.Errorf("hash password: %w", err)
	}

	if metadata == nil {
		metadata = map[string]string{}
	}
	meta, err := json.Marshal(metadata)
	if err != nil {
		return Identity{}, fmt.Errorf("encode metadata: %w", err)
	}

	var id Identity
	err = p.db.QueryRowContext(ctx, insertIdentitySQL, email, string(hash), string(meta)).
		Scan(&id.ID, &id.Email, &id.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return Identity{}, ErrEmailTaken
		}
		return Identity{}, fmt.Errorf("insert identity: %w", err)
	}
	return id, nil
}

const selectIdentityByEmailSQL = `
		SELECT id, email, password_hash, created_at
		FROM auth_identities
		WHERE email = $1
	`

// Authenticate verifies email and password.
func (p *PostgresProvider) Authenticate(ctx context.Context, email, password string) (Identity, error) {
	var (
		id   Identity
		hash string
	)
	err := p.db.QueryRowContext(ctx, selectIdentityByEmailSQL, normalizeEmail(email)).
		Scan(&id.ID, &id.Email, &hash, &id.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Identity{}, ErrInvalidCredentials
		}
		return Identity{}, fmt.Errorf("select identity: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return Identity{}, ErrInvalidCredentials
	}
	return id, nil
}

const selectPasswordHashSQL = `
		SELECT password_hash
		FROM auth_identities
		WHERE id = $1
	`

// VerifyPassword checks password against the identity's stored hash.
func (p *PostgresProvider) VerifyPassword(ctx context.Context, id, password string) error {
	var hash string
	if err := p.db.QueryRowContext(ctx, selectPasswordHashSQL, id).Scan(&hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrIdentityNotFound
		}
		return fmt.Errorf("select password hash: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

const updatePasswordSQL = `
		UPDATE auth_identities
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1
	`

// UpdatePassword replaces the stored hash.
func (p *PostgresProvider) UpdatePassword(ctx context.Context, id, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	res, err := p.db.ExecContext(ctx, updatePasswordSQL, id, string(hash))
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrIdentityNotFound
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
