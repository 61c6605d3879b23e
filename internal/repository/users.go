package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promoforge/promoforge/internal/domain"
)

// ErrNotFound is returned when a queried row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned when registering an already-used email.
var ErrDuplicateEmail = errors.New("email already registered")

// UserStore persists users and their sessions.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore creates a new UserStore.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

// CreateUser inserts a new user row.
func (s *UserStore) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	row := s.pool.QueryRow(ctx, `
INSERT INTO users (id, email, password_hash, name)
VALUES ($1, $2, $3, $4)
RETURNING id, email, password_hash, name, created_at, updated_at`,
		user.ID, user.Email, user.PasswordHash, user.Name)

	created, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

// GetUserByEmail fetches a user by email.
func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, email, password_hash, name, created_at, updated_at
FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// GetUserByID fetches a user by id.
func (s *UserStore) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, email, password_hash, name, created_at, updated_at
FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// CreateSession inserts a session row for the hashed token.
func (s *UserStore) CreateSession(ctx context.Context, session *domain.Session) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO sessions (id, user_id, token_hash, expires_at)
VALUES ($1, $2, $3, $4)`,
		session.ID, session.UserID, session.TokenHash, session.ExpiresAt)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// GetUserBySessionTokenHash returns the user owning an unexpired session.
func (s *UserStore) GetUserBySessionTokenHash(ctx context.Context, tokenHash string) (*domain.User, error) {
	row := s.pool.QueryRow(ctx, `
SELECT u.id, u.email, u.password_hash, u.name, u.created_at, u.updated_at
FROM sessions s
JOIN users u ON u.id = s.user_id
WHERE s.token_hash = $1 AND s.expires_at > NOW()`, tokenHash)
	return scanUser(row)
}

// DeleteSessionByTokenHash removes a session (logout). Idempotent.
func (s *UserStore) DeleteSessionByTokenHash(ctx context.Context, tokenHash string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes sessions past their expiry.
func (s *UserStore) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListRecentlyActiveUserIDs returns ids of users with a session created
// or refreshed within the window. The entitlement refresher uses this to
// bound its periodic re-resolution to users who are actually around.
func (s *UserStore) ListRecentlyActiveUserIDs(ctx context.Context, since time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx, `
SELECT DISTINCT user_id FROM sessions
WHERE created_at >= $1 AND expires_at > NOW()
LIMIT $2`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("list active users: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan active user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}
