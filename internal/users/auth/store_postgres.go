// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/taibuivan/apisegura/internal/platform/dberr"
	"github.com/taibuivan/apisegura/internal/platform/postgres"
	"github.com/taibuivan/apisegura/internal/platform/sec"
)

// userColumns is the projection shared by every user query.
const userColumns = `id, username, email, password_hash, role, active, created_at, updated_at`

// userConflicts maps unique constraints on users to client-facing messages.
var userConflicts = dberr.ConflictMessages{
	"users_username_key":    "Username is already taken",
	"users_email_lower_key": "Email is already registered",
}

// scanUser reads one row in [userColumns] order.
func scanUser(row pgx.Row) (*User, error) {
	var (
		user User
		role string
	)
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&role,
		&user.Active,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.Role = sec.Role(role)
	return &user, nil
}

// findOneUser runs a single-row user query, mapping pgx.ErrNoRows to (nil, nil).
func findOneUser(context context.Context, db postgres.DB, action, query string, args ...any) (*User, error) {
	user, err := scanUser(db.QueryRow(context, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", action, err)
	}
	return user, nil
}

// # User Repository

// PostgresUserRepository implements the UserRepository interface using pgx.
type PostgresUserRepository struct {
	db postgres.DB
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(db postgres.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

/*
Create persists a new user record into the users table.

Description: The database assigns the identifier and timestamps, which are
written back into user.

Parameters:
  - context: context.Context
  - user: *User (Entity to persist)

Returns:
  - error: apperr.Conflict on unique violations, or connectivity errors
*/
func (repository *PostgresUserRepository) Create(context context.Context, user *User) error {
	const query = `
		INSERT INTO users (username, email, password_hash, role, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := repository.db.QueryRow(context, query,
		user.Username,
		user.Email,
		user.PasswordHash,
		string(user.Role),
		user.Active,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		return dberr.Wrap(err, "postgres_user_repo_create_failed", userConflicts)
	}

	return nil
}

/*
FindByID retrieves a user record by primary key.

Returns:
  - *User: Hydrated account entity, or nil
  - error: Database errors
*/
func (repository *PostgresUserRepository) FindByID(context context.Context, id int64) (*User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return findOneUser(context, repository.db, "postgres_user_repo_find_by_id_failed", query, id)
}

/*
FindByUsernameOrEmail retrieves a user by exact username or case-insensitive email.

Description: Uses the lower(email) unique index.

Returns:
  - *User: Hydrated account entity, or nil
  - error: Database errors
*/
func (repository *PostgresUserRepository) FindByUsernameOrEmail(context context.Context, credential string) (*User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE username = $1 OR LOWER(email) = LOWER($1)
		ORDER BY (username = $1) DESC
		LIMIT 1`
	return findOneUser(context, repository.db, "postgres_user_repo_find_by_credential_failed", query, credential)
}

/*
UpdatePassword replaces the stored hash and bumps updated_at.
*/
func (repository *PostgresUserRepository) UpdatePassword(context context.Context, userID int64, newHash string) error {
	const query = `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`

	if _, err := repository.db.Exec(context, query, userID, newHash); err != nil {
		return fmt.Errorf("postgres_user_repo_update_password_failed: %w", err)
	}
	return nil
}

/*
SetActive toggles the active flag and returns the updated row.
*/
func (repository *PostgresUserRepository) SetActive(context context.Context, userID int64, active bool) (*User, error) {
	const query = `
		UPDATE users SET active = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns
	return findOneUser(context, repository.db, "postgres_user_repo_set_active_failed", query, userID, active)
}

/*
SetRole changes the role and returns the updated row.
*/
func (repository *PostgresUserRepository) SetRole(context context.Context, userID int64, role sec.Role) (*User, error) {
	const query = `
		UPDATE users SET role = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns
	return findOneUser(context, repository.db, "postgres_user_repo_set_role_failed", query, userID, string(role))
}

/*
List returns a page of accounts ordered by ID along with the total count.
*/
func (repository *PostgresUserRepository) List(context context.Context, limit, offset int) ([]*User, int, error) {
	const countQuery = `SELECT COUNT(*) FROM users`
	const listQuery = `SELECT ` + userColumns + ` FROM users ORDER BY id LIMIT $1 OFFSET $2`

	var total int
	if err := repository.db.QueryRow(context, countQuery).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("postgres_user_repo_count_failed: %w", err)
	}

	rows, err := repository.db.Query(context, listQuery, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_user_repo_list_failed: %w", err)
	}
	defer rows.Close()

	users := make([]*User, 0, limit)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("postgres_user_repo_list_scan_failed: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("postgres_user_repo_list_failed: %w", err)
	}

	return users, total, nil
}

// # Refresh Token Repository

// PostgresRefreshTokenRepository implements RefreshTokenRepository using pgx.
type PostgresRefreshTokenRepository struct {
	db postgres.DB
}

// NewRefreshTokenRepository creates a new PostgreSQL implementation of the RefreshTokenRepository.
func NewRefreshTokenRepository(db postgres.DB) *PostgresRefreshTokenRepository {
	return &PostgresRefreshTokenRepository{db: db}
}

/*
Save stores the digest of a newly issued refresh token.
*/
func (repository *PostgresRefreshTokenRepository) Save(context context.Context, tokenHash string, userID int64, expiresAt time.Time) error {
	const query = `INSERT INTO refresh_tokens (token_hash, user_id, expires_at) VALUES ($1, $2, $3)`

	if _, err := repository.db.Exec(context, query, tokenHash, userID, expiresAt); err != nil {
		return fmt.Errorf("postgres_refresh_token_repo_save_failed: %w", err)
	}
	return nil
}

/*
FindValid returns the stored row if it belongs to userID and is unexpired at now.

Returns:
  - *RefreshToken: Hydrated entity, or nil
  - error: Database errors
*/
func (repository *PostgresRefreshTokenRepository) FindValid(context context.Context, tokenHash string, userID int64, now time.Time) (*RefreshToken, error) {
	const query = `
		SELECT token_hash, user_id, expires_at, created_at
		FROM refresh_tokens
		WHERE token_hash = $1 AND user_id = $2 AND expires_at > $3`

	token := &RefreshToken{}
	err := repository.db.QueryRow(context, query, tokenHash, userID, now).Scan(
		&token.TokenHash,
		&token.UserID,
		&token.ExpiresAt,
		&token.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres_refresh_token_repo_find_failed: %w", err)
	}
	return token, nil
}

/*
Delete removes one refresh token by digest.
*/
func (repository *PostgresRefreshTokenRepository) Delete(context context.Context, tokenHash string) error {
	const query = `DELETE FROM refresh_tokens WHERE token_hash = $1`

	if _, err := repository.db.Exec(context, query, tokenHash); err != nil {
		return fmt.Errorf("postgres_refresh_token_repo_delete_failed: %w", err)
	}
	return nil
}

/*
DeleteAllForUser revokes every refresh token of a user.
*/
func (repository *PostgresRefreshTokenRepository) DeleteAllForUser(context context.Context, userID int64) error {
	const query = `DELETE FROM refresh_tokens WHERE user_id = $1`

	if _, err := repository.db.Exec(context, query, userID); err != nil {
		return fmt.Errorf("postgres_refresh_token_repo_delete_all_failed: %w", err)
	}
	return nil
}

/*
DeleteExpired purges rows that expired at or before now.
*/
func (repository *PostgresRefreshTokenRepository) DeleteExpired(context context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM refresh_tokens WHERE expires_at <= $1`

	tag, err := repository.db.Exec(context, query, now)
	if err != nil {
		return 0, fmt.Errorf("postgres_refresh_token_repo_delete_expired_failed: %w", err)
	}
	return tag.RowsAffected(), nil
}

// # Login Attempt Repository

// PostgresLoginAttemptRepository implements LoginAttemptRepository using pgx.
type PostgresLoginAttemptRepository struct {
	db postgres.DB
}

// NewLoginAttemptRepository creates a new PostgreSQL implementation of the LoginAttemptRepository.
func NewLoginAttemptRepository(db postgres.DB) *PostgresLoginAttemptRepository {
	return &PostgresLoginAttemptRepository{db: db}
}

/*
Record appends one row to the login audit log.
*/
func (repository *PostgresLoginAttemptRepository) Record(context context.Context, attempt LoginAttempt) error {
	const query = `
		INSERT INTO login_attempts (ip_address, username, successful, attempted_at)
		VALUES ($1, $2, $3, $4)`

	_, err := repository.db.Exec(context, query,
		attempt.IPAddress,
		attempt.Username,
		attempt.Successful,
		attempt.AttemptedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres_login_attempt_repo_record_failed: %w", err)
	}
	return nil
}

/*
CountRecentFailures counts failed attempts for an IP strictly after since.
*/
func (repository *PostgresLoginAttemptRepository) CountRecentFailures(context context.Context, ipAddress string, since time.Time) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM login_attempts
		WHERE ip_address = $1 AND successful = FALSE AND attempted_at > $2`

	var count int
	if err := repository.db.QueryRow(context, query, ipAddress, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres_login_attempt_repo_count_failed: %w", err)
	}
	return count, nil
}
