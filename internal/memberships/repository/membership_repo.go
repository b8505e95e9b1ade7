package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/lib/pq"

	"github.com/4ndr33w/projecthub-backend/internal/apperr"
	"github.com/4ndr33w/projecthub-backend/internal/memberships/domain"
	"github.com/4ndr33w/projecthub-backend/internal/storage/postgres"
)

// MembershipRepository owns the project_users join table and the only
// multi-statement write protocol in the system.
type MembershipRepository struct {
	db *sql.DB
}

func NewMembershipRepository(db *sql.DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// AddMember inserts the (project, user) pair inside its own transaction.
// Returns (true, nil) on commit. Any failure rolls back: a duplicate pair or
// connectivity loss comes back as (false, err), never a partial write. The
// caller is responsible for domain rules (admin-as-member and the like)
// before calling this; only storage-level uniqueness is enforced here.
func (r *MembershipRepository) AddMember(ctx context.Context, userID, projectID string) (bool, error) {
	const op = "memberships.AddMember"

	err := postgres.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(
			ctx,
			`INSERT INTO project_users (project_id, user_id) VALUES ($1, $2)`,
			projectID, userID,
		)
		if err != nil {
			return err
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			// An insert that sticks nothing is a failure, not a no-op.
			return fmt.Errorf("insert affected no rows")
		}
		return nil
	})

	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return false, apperr.New(apperr.KindPersistence, op,
				"user %s is already a member of project %s", userID, projectID)
		}
		return false, apperr.Wrap(apperr.KindPersistence, op, err)
	}
	return true, nil
}

// RemoveMember deletes the (project, user) pair inside its own transaction.
// A pair that was not present yields (false, nil) rather than an error.
func (r *MembershipRepository) RemoveMember(ctx context.Context, userID, projectID string) (bool, error) {
	const op = "memberships.RemoveMember"

	var removed bool
	err := postgres.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(
			ctx,
			`DELETE FROM project_users WHERE project_id = $1 AND user_id = $2`,
			projectID, userID,
		)
		if err != nil {
			return err
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		removed = affected > 0
		return nil
	})

	if err != nil {
		return false, apperr.Wrap(apperr.KindPersistence, op, err)
	}
	return removed, nil
}

// FindByProjectIDs returns every membership row for the given project id
// set, in one query. Empty input short-circuits.
func (r *MembershipRepository) FindByProjectIDs(ctx context.Context, projectIDs []string) ([]domain.Membership, error) {
	const op = "memberships.FindByProjectIDs"

	if len(projectIDs) == 0 {
		return []domain.Membership{}, nil
	}

	query := `
		SELECT project_id, user_id, created_at
		FROM project_users
		WHERE project_id = ANY($1)
	`

	return r.queryMemberships(ctx, op, query, pq.Array(projectIDs))
}

// FindByUserIDs returns every membership row for the given user id set, in
// one query. Empty input short-circuits.
func (r *MembershipRepository) FindByUserIDs(ctx context.Context, userIDs []string) ([]domain.Membership, error) {
	const op = "memberships.FindByUserIDs"

	if len(userIDs) == 0 {
		return []domain.Membership{}, nil
	}

	query := `
		SELECT project_id, user_id, created_at
		FROM project_users
		WHERE user_id = ANY($1)
	`

	return r.queryMemberships(ctx, op, query, pq.Array(userIDs))
}

// PurgeOrphans deletes membership rows whose project or user no longer
// exists. Entity deletes do not cascade, so the janitor calls this on a
// schedule. Returns how many rows were swept.
func (r *MembershipRepository) PurgeOrphans(ctx context.Context) (int64, error) {
	const op = "memberships.PurgeOrphans"

	query := `
		DELETE FROM project_users pu
		WHERE NOT EXISTS (SELECT 1 FROM projects p WHERE p.id = pu.project_id)
		   OR NOT EXISTS (SELECT 1 FROM users u WHERE u.id = pu.user_id)
	`

	result, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindPersistence, op, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, apperr.Wrap(apperr.KindPersistence, op, err)
	}
	if affected > 0 {
		log.Printf("[info] operation=%s purged=%d orphaned membership rows", op, affected)
	}
	return affected, nil
}

func (r *MembershipRepository) queryMemberships(ctx context.Context, op, query string, args ...any) ([]domain.Membership, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, op, err)
	}
	defer rows.Close()

	out := make([]domain.Membership, 0, 16)
	for rows.Next() {
		var m domain.Membership
		if err := rows.Scan(&m.ProjectID, &m.UserID, &m.CreatedAt); err != nil {
			return nil, apperr.Wrap(apperr.KindMapping, op, fmt.Errorf("scan membership row: %w", err))
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, op, err)
	}
	return out, nil
}
