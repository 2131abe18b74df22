package account

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrations exposes the embedded schema migrations for pg.Migrate.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// uniqueViolation is the PostgreSQL error code the store translates into the
// domain uniqueness errors.
const uniqueViolation = "23505"

// PostgresStore implements Store on a pgx pool. The partial unique index on
// the external-id preference makes concurrent link/create attempts for the
// same identity fail instead of duplicating accounts.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Create(ctx context.Context, acc *Account) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO accounts (id, user_name, real_name, email, password_hash, is_admin, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		acc.ID, acc.UserName, acc.RealName, acc.Email, acc.PasswordHash, acc.IsAdmin, acc.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (s *PostgresStore) ByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.scanOne(ctx,
		`SELECT id, user_name, real_name, email, password_hash, is_admin, created_at
		 FROM accounts WHERE id = $1`, id)
}

func (s *PostgresStore) ByEmail(ctx context.Context, email string) (*Account, error) {
	return s.scanOne(ctx,
		`SELECT id, user_name, real_name, email, password_hash, is_admin, created_at
		 FROM accounts WHERE lower(email) = lower($1)`, email)
}

func (s *PostgresStore) ByExternalID(ctx context.Context, externalID string) (*Account, error) {
	return s.scanOne(ctx,
		`SELECT a.id, a.user_name, a.real_name, a.email, a.password_hash, a.is_admin, a.created_at
		 FROM accounts a
		 JOIN account_prefs p ON p.account_id = a.id
		 WHERE p.pref_key = $1 AND p.pref_value = $2`,
		PrefExternalID, externalID)
}

func (s *PostgresStore) UpdateEmail(ctx context.Context, id uuid.UUID, email string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE accounts SET email = $2 WHERE id = $1`, id, email)
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("update email: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetPref(ctx context.Context, id uuid.UUID, key, value string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO account_prefs (account_id, pref_key, pref_value)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (account_id, pref_key) DO UPDATE SET pref_value = EXCLUDED.pref_value`,
		id, key, value,
	)
	if isUniqueViolation(err) {
		// The per-account upsert handles its own conflict; a unique violation
		// here can only come from the external-id partial index.
		return ErrExternalIDTaken
	}
	if err != nil {
		return fmt.Errorf("set pref %q: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Pref(ctx context.Context, id uuid.UUID, key string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx,
		`SELECT pref_value FROM account_prefs WHERE account_id = $1 AND pref_key = $2`,
		id, key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get pref %q: %w", key, err)
	}
	return value, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Administrators(ctx context.Context) ([]*Account, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_name, real_name, email, password_hash, is_admin, created_at
		 FROM accounts WHERE is_admin ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list administrators: %w", err)
	}
	defer rows.Close()

	var admins []*Account
	for rows.Next() {
		var acc Account
		if err := rows.Scan(&acc.ID, &acc.UserName, &acc.RealName, &acc.Email,
			&acc.PasswordHash, &acc.IsAdmin, &acc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan administrator: %w", err)
		}
		admins = append(admins, &acc)
	}
	return admins, rows.Err()
}

func (s *PostgresStore) scanOne(ctx context.Context, query string, args ...any) (*Account, error) {
	var acc Account
	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&acc.ID, &acc.UserName, &acc.RealName, &acc.Email,
		&acc.PasswordHash, &acc.IsAdmin, &acc.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query account: %w", err)
	}
	return &acc, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

var _ Store = (*PostgresStore)(nil)
