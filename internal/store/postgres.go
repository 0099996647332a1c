package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkwell-app/backend/internal/apierr"
	"github.com/inkwell-app/backend/internal/models"
)

// uniqueViolation is the PostgreSQL error code for duplicate unique keys.
const uniqueViolation = "23505"

const userColumns = `id, email, COALESCE(password, ''), name, provider,
	COALESCE(google_id, ''), COALESCE(avatar, ''), last_login, created_at`

// PostgresStore handles user CRUD against PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the users table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			email      VARCHAR(255) UNIQUE NOT NULL,
			password   VARCHAR(255),
			name       VARCHAR(100) NOT NULL,
			provider   VARCHAR(20)  NOT NULL DEFAULT 'local',
			google_id  VARCHAR(64)  UNIQUE,
			avatar     TEXT,
			last_login TIMESTAMPTZ,
			created_at TIMESTAMPTZ  DEFAULT NOW()
		)
	`)
	return err
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.Name, &u.Provider,
		&u.GoogleID, &u.Avatar, &u.LastLogin, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a local-provider user with a hashed password. A duplicate
// email yields a ConflictError.
func (s *PostgresStore) Create(ctx context.Context, email, name, passwordHash string) (*models.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`INSERT INTO users (email, password, name, provider)
		 VALUES ($1, $2, $3, 'local')
		 RETURNING `+userColumns,
		email, passwordHash, name,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, apierr.Conflict("Email already registered")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// CreateGoogle inserts a Google-linked user with no local password.
func (s *PostgresStore) CreateGoogle(ctx context.Context, email, name, googleID, avatar string) (*models.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`INSERT INTO users (email, name, provider, google_id, avatar)
		 VALUES ($1, $2, 'google', $3, NULLIF($4, ''))
		 RETURNING `+userColumns,
		email, name, googleID, avatar,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, apierr.Conflict("Email already registered")
		}
		return nil, fmt.Errorf("create google user: %w", err)
	}
	return u, nil
}

// GetByEmail returns the user with the given email, or nil when absent.
func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getBy(ctx, "email = $1", email)
}

// GetLocalByEmail returns the local-provider user with the given email,
// or nil when absent. Used by password login so Google-only accounts can
// never authenticate with a password.
func (s *PostgresStore) GetLocalByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getBy(ctx, "email = $1 AND provider = 'local'", email)
}

// GetByID returns the user with the given id, or nil when absent.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.getBy(ctx, "id = $1", id)
}

// GetByGoogleID returns the user linked to the given Google identity,
// or nil when absent.
func (s *PostgresStore) GetByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	return s.getBy(ctx, "google_id = $1", googleID)
}

func (s *PostgresStore) getBy(ctx context.Context, where string, arg any) (*models.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// LinkGoogle attaches a Google identity to an existing account, keeping any
// local password so both credential paths keep working. The stored avatar is
// only filled in when the account has none yet.
func (s *PostgresStore) LinkGoogle(ctx context.Context, id, googleID, avatar string) (*models.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`UPDATE users
		 SET provider = 'google',
		     google_id = $2,
		     avatar = COALESCE(NULLIF(avatar, ''), NULLIF($3, ''))
		 WHERE id = $1
		 RETURNING `+userColumns,
		id, googleID, avatar,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apierr.NotFound("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("link google identity: %w", err)
	}
	return u, nil
}

// UpdateName changes the user's display name.
func (s *PostgresStore) UpdateName(ctx context.Context, id, name string) (*models.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`UPDATE users SET name = $2 WHERE id = $1 RETURNING `+userColumns,
		id, name,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apierr.NotFound("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("update name: %w", err)
	}
	return u, nil
}

// UpdateAvatar changes the user's avatar URL.
func (s *PostgresStore) UpdateAvatar(ctx context.Context, id, url string) (*models.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`UPDATE users SET avatar = $2 WHERE id = $1 RETURNING `+userColumns,
		id, url,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apierr.NotFound("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("update avatar: %w", err)
	}
	return u, nil
}

// UpdatePassword replaces the user's password hash.
func (s *PostgresStore) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET password = $2 WHERE id = $1`, id, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apierr.NotFound("User not found")
	}
	return nil
}

// UpdateLastLogin stamps the user's last successful login.
func (s *PostgresStore) UpdateLastLogin(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE users SET last_login = NOW() WHERE id = $1`, id)
	return err
}

// Delete removes the user row.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apierr.NotFound("User not found")
	}
	return nil
}
