package service

import (
	"context"
	"strings"

	"github.com/4ndr33w/projecthub-backend/internal/apperr"
	"github.com/4ndr33w/projecthub-backend/internal/projects/domain"
)

// ProjectWriteStore is the slice of the project repository the CRUD service
// depends on.
type ProjectWriteStore interface {
	ProjectStore
	Create(ctx context.Context, project *domain.Project) (*domain.Project, error)
	Update(ctx context.Context, project *domain.Project) (*domain.Project, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// ProjectService owns the plain CRUD lifecycle of projects. Membership and
// aggregate reads live in AggregationService.
type ProjectService struct {
	repo  ProjectWriteStore
	users UserStore
	cache AggregateCache
}

func NewProjectService(repo ProjectWriteStore, users UserStore, cache AggregateCache) *ProjectService {
	return &ProjectService{repo: repo, users: users, cache: cache}
}

// Create validates the request and inserts the project. The admin must be an
// existing user; there is no foreign key backing this rule.
func (s *ProjectService) Create(ctx context.Context, req domain.CreateProjectRequest) (*domain.Project, error) {
	const op = "projects.Create"

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.New(apperr.KindInvalidOperation, op, "name is required")
	}
	if req.AdminID == "" {
		return nil, apperr.New(apperr.KindInvalidOperation, op, "admin_id is required")
	}
	if req.Status != "" && !req.Status.Valid() {
		return nil, apperr.New(apperr.KindInvalidOperation, op, "unknown status %q", req.Status)
	}

	if _, err := s.users.FindByID(ctx, req.AdminID); err != nil {
		return nil, err
	}

	project := &domain.Project{
		Name:        name,
		Description: req.Description,
		Image:       req.Image,
		AdminID:     req.AdminID,
		Status:      req.Status,
	}
	return s.repo.Create(ctx, project)
}

// Get returns the normalized row form. Aggregate reads go through
// AggregationService.
func (s *ProjectService) Get(ctx context.Context, id string) (*domain.Project, error) {
	return s.repo.FindByID(ctx, id)
}

// Update replaces the mutable fields of the project.
func (s *ProjectService) Update(ctx context.Context, id string, req domain.UpdateProjectRequest) (*domain.Project, error) {
	const op = "projects.Update"

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.New(apperr.KindInvalidOperation, op, "name is required")
	}
	// Updates are full replaces: an absent status would be written verbatim
	// and leave the row outside the enum, so it must be explicit here even
	// though Create defaults it.
	if req.Status == "" {
		return nil, apperr.New(apperr.KindInvalidOperation, op, "status is required")
	}
	if !req.Status.Valid() {
		return nil, apperr.New(apperr.KindInvalidOperation, op, "unknown status %q", req.Status)
	}

	project := &domain.Project{
		ID:          id,
		Name:        name,
		Description: req.Description,
		Image:       req.Image,
		Status:      req.Status,
	}

	updated, err := s.repo.Update(ctx, project)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, id)
	}
	return updated, nil
}

// Delete removes the project. Membership rows referencing it go stale until
// the janitor sweeps them.
func (s *ProjectService) Delete(ctx context.Context, id string) (bool, error) {
	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		return false, err
	}

	if removed && s.cache != nil {
		s.cache.Invalidate(ctx, id)
	}
	return removed, nil
}
