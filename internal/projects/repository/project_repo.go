package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/4ndr33w/projecthub-backend/internal/apperr"
	"github.com/4ndr33w/projecthub-backend/internal/projects/domain"
	"github.com/4ndr33w/projecthub-backend/internal/storage/postgres"
)

const projectColumns = `id, name, description, image, admin_id, status, created_at, updated_at`

type ProjectRepository struct {
	db *sql.DB
}

func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// FindByID retrieves a single project by id.
func (r *ProjectRepository) FindByID(ctx context.Context, id string) (*domain.Project, error) {
	const op = "projects.FindByID"

	query := `
		SELECT ` + projectColumns + `
		FROM projects
		WHERE id = $1
	`

	project, err := scanProject(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, apperr.New(apperr.KindNotFound, op, "project %s not found", id)
		}
		return nil, err
	}
	return project, nil
}

// FindAllByIDs retrieves every project whose id appears in ids with a single
// query. An empty id set returns an empty slice without touching the store.
func (r *ProjectRepository) FindAllByIDs(ctx context.Context, ids []string) ([]domain.Project, error) {
	const op = "projects.FindAllByIDs"

	if len(ids) == 0 {
		return []domain.Project{}, nil
	}

	query := `
		SELECT ` + projectColumns + `
		FROM projects
		WHERE id = ANY($1)
	`

	return r.queryProjects(ctx, op, query, pq.Array(ids))
}

// FindByAdminID retrieves every project administered by the given user.
func (r *ProjectRepository) FindByAdminID(ctx context.Context, adminID string) ([]domain.Project, error) {
	const op = "projects.FindByAdminID"

	query := `
		SELECT ` + projectColumns + `
		FROM projects
		WHERE admin_id = $1
		ORDER BY created_at DESC
	`

	return r.queryProjects(ctx, op, query, adminID)
}

// FindByAdminIDs is the batch form of FindByAdminID: a single query over the
// full admin id set.
func (r *ProjectRepository) FindByAdminIDs(ctx context.Context, adminIDs []string) ([]domain.Project, error) {
	const op = "projects.FindByAdminIDs"

	if len(adminIDs) == 0 {
		return []domain.Project{}, nil
	}

	query := `
		SELECT ` + projectColumns + `
		FROM projects
		WHERE admin_id = ANY($1)
	`

	return r.queryProjects(ctx, op, query, pq.Array(adminIDs))
}

// FindByMemberUserID retrieves every project the given user is a plain
// member of, via one join against the membership table.
func (r *ProjectRepository) FindByMemberUserID(ctx context.Context, userID string) ([]domain.Project, error) {
	const op = "projects.FindByMemberUserID"

	query := `
		SELECT p.id, p.name, p.description, p.image, p.admin_id, p.status, p.created_at, p.updated_at
		FROM projects p
		JOIN project_users pu ON pu.project_id = p.id
		WHERE pu.user_id = $1
	`

	return r.queryProjects(ctx, op, query, userID)
}

// Create inserts a new project with a generated id. The admin id must
// reference an existing user; that rule is validated by the service layer.
func (r *ProjectRepository) Create(ctx context.Context, project *domain.Project) (*domain.Project, error) {
	const op = "projects.Create"

	if project.ID == "" {
		project.ID = uuid.New().String()
	}
	if project.Status == "" {
		project.Status = domain.StatusActive
	}

	query := `
		INSERT INTO projects (id, name, description, image, admin_id, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		project.ID,
		project.Name,
		project.Description,
		project.Image,
		project.AdminID,
		string(project.Status),
	).Scan(&project.CreatedAt)

	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return nil, apperr.New(apperr.KindAlreadyExists, op, "project %s already exists", project.ID)
		}
		if postgres.IsNoRows(err) {
			return nil, apperr.New(apperr.KindPersistence, op, "insert affected no rows")
		}
		return nil, apperr.Wrap(apperr.KindPersistence, op, err)
	}
	return project, nil
}

// Update replaces the mutable fields of a project. The admin id is left
// untouched. Zero affected rows signals NotFound.
func (r *ProjectRepository) Update(ctx context.Context, project *domain.Project) (*domain.Project, error) {
	const op = "projects.Update"

	query := `
		UPDATE projects
		SET name = $2, description = $3, image = $4, status = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	var updatedAt time.Time
	err := r.db.QueryRowContext(
		ctx,
		query,
		project.ID,
		project.Name,
		project.Description,
		project.Image,
		string(project.Status),
	).Scan(&updatedAt)

	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, apperr.New(apperr.KindNotFound, op, "project %s not found", project.ID)
		}
		return nil, apperr.Wrap(apperr.KindPersistence, op, err)
	}

	project.UpdatedAt = &updatedAt
	return project, nil
}

// Delete removes the project row. Membership rows referencing it are not
// cascaded here; the janitor sweeps them up.
func (r *ProjectRepository) Delete(ctx context.Context, id string) (bool, error) {
	const op = "projects.Delete"

	result, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return false, apperr.Wrap(apperr.KindPersistence, op, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperr.Wrap(apperr.KindPersistence, op, err)
	}
	return affected == 1, nil
}

func (r *ProjectRepository) queryProjects(ctx context.Context, op, query string, args ...any) ([]domain.Project, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, op, err)
	}
	defer rows.Close()

	out := make([]domain.Project, 0, 8)
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *project)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, op, err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*domain.Project, error) {
	var (
		project   domain.Project
		status    string
		updatedAt sql.NullTime
	)

	err := row.Scan(
		&project.ID,
		&project.Name,
		&project.Description,
		&project.Image,
		&project.AdminID,
		&status,
		&project.CreatedAt,
		&updatedAt,
	)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, err
		}
		return nil, apperr.Wrap(apperr.KindMapping, "projects.scan", fmt.Errorf("scan project row: %w", err))
	}

	project.Status = domain.Status(status)
	if updatedAt.Valid {
		project.UpdatedAt = &updatedAt.Time
	}
	return &project, nil
}
