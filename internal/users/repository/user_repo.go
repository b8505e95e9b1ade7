package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/4ndr33w/projecthub-backend/internal/apperr"
	"github.com/4ndr33w/projecthub-backend/internal/storage/postgres"
	"github.com/4ndr33w/projecthub-backend/internal/users/domain"
)

const userColumns = `id, username, email, password_hash, first_name, last_name, phone, image, role, created_at, updated_at, last_login_date`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID retrieves a single user by id.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	const op = "users.FindByID"

	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1
	`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, apperr.New(apperr.KindNotFound, op, "user %s not found", id)
		}
		return nil, err
	}
	return user, nil
}

// FindAllByIDs retrieves every user whose id appears in ids with a single
// query. An empty id set returns an empty slice without touching the store.
// Ids with no matching row are simply absent from the result.
func (r *UserRepository) FindAllByIDs(ctx context.Context, ids []string) ([]domain.User, error) {
	const op = "users.FindAllByIDs"

	if len(ids) == 0 {
		return []domain.User{}, nil
	}

	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = ANY($1)
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, op, err)
	}
	defer rows.Close()

	out := make([]domain.User, 0, len(ids))
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, op, err)
	}
	return out, nil
}

// Create inserts a new user with a generated id. Username and email are
// unique; a collision surfaces as an AlreadyExists error.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	const op = "users.Create"

	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	query := `
		INSERT INTO users (id, username, email, password_hash, first_name, last_name, phone, image, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Phone,
		user.Image,
		string(user.Role),
	).Scan(&user.CreatedAt)

	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return nil, apperr.New(apperr.KindAlreadyExists, op, "username or email already taken")
		}
		if postgres.IsNoRows(err) {
			// RETURNING produced nothing: the insert affected zero rows.
			return nil, apperr.New(apperr.KindPersistence, op, "insert affected no rows")
		}
		return nil, apperr.Wrap(apperr.KindPersistence, op, err)
	}
	return user, nil
}

// Update replaces every mutable field of the user row. Zero affected rows
// means the user does not exist, a distinct condition from a transport
// failure.
func (r *UserRepository) Update(ctx context.Context, user *domain.User) (*domain.User, error) {
	const op = "users.Update"

	query := `
		UPDATE users
		SET username = $2, email = $3, first_name = $4, last_name = $5,
		    phone = $6, image = $7, role = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	var updatedAt time.Time
	err := r.db.QueryRowContext(
		ctx,
		query,
		user.ID,
		user.Username,
		user.Email,
		user.FirstName,
		user.LastName,
		user.Phone,
		user.Image,
		string(user.Role),
	).Scan(&updatedAt)

	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, apperr.New(apperr.KindNotFound, op, "user %s not found", user.ID)
		}
		if postgres.IsUniqueViolation(err) {
			return nil, apperr.New(apperr.KindAlreadyExists, op, "username or email already taken")
		}
		return nil, apperr.Wrap(apperr.KindPersistence, op, err)
	}

	user.UpdatedAt = &updatedAt
	return user, nil
}

// Delete removes the user row. Returns true iff exactly one row was removed;
// a missing user yields (false, nil), never an error.
func (r *UserRepository) Delete(ctx context.Context, id string) (bool, error) {
	const op = "users.Delete"

	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return false, apperr.Wrap(apperr.KindPersistence, op, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperr.Wrap(apperr.KindPersistence, op, err)
	}
	return affected == 1, nil
}

// StampLastLogin records a successful login.
func (r *UserRepository) StampLastLogin(ctx context.Context, id string) error {
	const op = "users.StampLastLogin"

	result, err := r.db.ExecContext(ctx, `UPDATE users SET last_login_date = NOW() WHERE id = $1`, id)
	if err != nil {
		return apperr.Wrap(apperr.KindPersistence, op, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperr.Wrap(apperr.KindPersistence, op, err)
	}
	if affected == 0 {
		return apperr.New(apperr.KindNotFound, op, "user %s not found", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanUser maps one row onto a User. Only updated_at and last_login_date are
// NULL-tolerant; any other shape mismatch is a mapping failure.
func scanUser(row rowScanner) (*domain.User, error) {
	var (
		user        domain.User
		role        string
		updatedAt   sql.NullTime
		lastLoginAt sql.NullTime
	)

	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.Phone,
		&user.Image,
		&role,
		&user.CreatedAt,
		&updatedAt,
		&lastLoginAt,
	)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, err
		}
		return nil, apperr.Wrap(apperr.KindMapping, "users.scan", fmt.Errorf("scan user row: %w", err))
	}

	user.Role = domain.Role(role)
	if updatedAt.Valid {
		user.UpdatedAt = &updatedAt.Time
	}
	if lastLoginAt.Valid {
		user.LastLoginAt = &lastLoginAt.Time
	}
	return &user, nil
}
