package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/floodline/portal-api/internal/core/domain"
	"github.com/floodline/portal-api/internal/core/port"
	"github.com/floodline/portal-api/internal/repository"
)

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// publicColumns is the default projection. The password digest and salt are
// deliberately absent; only GetByUsernameWithSecret selects them.
var publicColumns = []string{"id", "username", "admin", "display_name", "last_login"}

// UserRepository implements port.UserRepository using PostgreSQL.
type UserRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository wires a repository backed by any executor that satisfies
// pgExecutor (a pool in production, a mock in tests).
func NewUserRepository(exec pgExecutor) *UserRepository {
	return &UserRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var _ pgExecutor = (*pgxpool.Pool)(nil)

// Create inserts a new user row and returns the generated id. The username is
// stored lowercase.
func (r *UserRepository) Create(ctx context.Context, user domain.User) (int64, error) {
	var saltValue any
	if user.Salt != nil && *user.Salt != "" {
		saltValue = *user.Salt
	}

	stmt, args, err := r.builder.Insert("portal.users").
		Columns("username", "password", "salt", "admin", "display_name", "last_login").
		Values(
			domain.NormalizeUsername(user.Username),
			user.PasswordDigest,
			saltValue,
			user.IsAdmin,
			user.DisplayName,
			user.LastLogin,
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert user sql: %w", err)
	}

	var id int64
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert user: %w", err)
	}

	return id, nil
}

// GetByUsername retrieves a user by exact (lowercase) username match using the
// default projection.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	stmt, args, err := r.builder.
		Select(publicColumns...).
		From("portal.users").
		Where(squirrel.Eq{"username": domain.NormalizeUsername(username)}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	var (
		user      domain.User
		uname     sql.NullString
		lastLogin *time.Time
	)

	if err := row.Scan(&user.ID, &uname, &user.IsAdmin, &user.DisplayName, &lastLogin); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	if uname.Valid {
		user.Username = uname.String
	}
	user.LastLogin = lastLogin

	return &user, nil
}

// GetByUsernameWithSecret retrieves a user including the password digest and
// salt. Exists solely for credential verification.
func (r *UserRepository) GetByUsernameWithSecret(ctx context.Context, username string) (*domain.User, error) {
	stmt, args, err := r.builder.
		Select("id", "username", "password", "salt", "admin", "display_name", "last_login").
		From("portal.users").
		Where(squirrel.Eq{"username": domain.NormalizeUsername(username)}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user with secret sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	var (
		user      domain.User
		uname     sql.NullString
		salt      sql.NullString
		lastLogin *time.Time
	)

	if err := row.Scan(&user.ID, &uname, &user.PasswordDigest, &salt, &user.IsAdmin, &user.DisplayName, &lastLogin); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user with secret: %w", err)
	}

	if uname.Valid {
		user.Username = uname.String
	}
	if salt.Valid {
		val := salt.String
		user.Salt = &val
	}
	user.LastLogin = lastLogin

	return &user, nil
}

// UpdateLastLogin records the most recent successful login timestamp.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	stmt, args, err := r.builder.Update("portal.users").
		Set("last_login", at).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update last login sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// List returns every user in the default projection.
func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	stmt, args, err := r.builder.
		Select(publicColumns...).
		From("portal.users").
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list users sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		var (
			user      domain.User
			uname     sql.NullString
			lastLogin *time.Time
		)

		if err := rows.Scan(&user.ID, &uname, &user.IsAdmin, &user.DisplayName, &lastLogin); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}

		if uname.Valid {
			user.Username = uname.String
		}
		user.LastLogin = lastLogin

		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	return users, nil
}

var _ port.UserRepository = (*UserRepository)(nil)
