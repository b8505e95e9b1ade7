package service

import (
	"context"
	"sort"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/4ndr33w/projecthub-backend/internal/apperr"
	memdomain "github.com/4ndr33w/projecthub-backend/internal/memberships/domain"
	"github.com/4ndr33w/projecthub-backend/internal/projects/domain"
	"github.com/4ndr33w/projecthub-backend/internal/tasks"
	usersdomain "github.com/4ndr33w/projecthub-backend/internal/users/domain"
)

// ProjectStore is the slice of the project repository the aggregation layer
// depends on.
type ProjectStore interface {
	FindByID(ctx context.Context, id string) (*domain.Project, error)
	FindAllByIDs(ctx context.Context, ids []string) ([]domain.Project, error)
	FindByAdminID(ctx context.Context, adminID string) ([]domain.Project, error)
	FindByMemberUserID(ctx context.Context, userID string) ([]domain.Project, error)
}

// UserStore is the slice of the user repository the aggregation layer
// depends on.
type UserStore interface {
	FindByID(ctx context.Context, id string) (*usersdomain.User, error)
	FindAllByIDs(ctx context.Context, ids []string) ([]usersdomain.User, error)
}

// MembershipStore is the slice of the membership repository the aggregation
// layer depends on.
type MembershipStore interface {
	AddMember(ctx context.Context, userID, projectID string) (bool, error)
	RemoveMember(ctx context.Context, userID, projectID string) (bool, error)
	FindByProjectIDs(ctx context.Context, projectIDs []string) ([]memdomain.Membership, error)
}

// AggregateCache is a best-effort cache of single-project aggregates. A nil
// cache is valid and disables caching entirely.
type AggregateCache interface {
	Get(ctx context.Context, projectID string) (*domain.ProjectAggregate, bool)
	Set(ctx context.Context, agg *domain.ProjectAggregate)
	Invalidate(ctx context.Context, projectID string)
}

// AggregationService assembles project aggregates out of the normalized
// tables and mutates memberships. Every public operation is asynchronous:
// the blocking pipeline runs on the bounded pool and the caller gets a
// future back immediately.
type AggregationService struct {
	projects    ProjectStore
	users       UserStore
	memberships MembershipStore
	cache       AggregateCache
	pool        *tasks.Pool
}

func NewAggregationService(
	projects ProjectStore,
	users UserStore,
	memberships MembershipStore,
	cache AggregateCache,
	pool *tasks.Pool,
) *AggregationService {
	return &AggregationService{
		projects:    projects,
		users:       users,
		memberships: memberships,
		cache:       cache,
		pool:        pool,
	}
}

// GetProjectsByAdmin resolves every project administered by adminID,
// members attached.
func (s *AggregationService) GetProjectsByAdmin(ctx context.Context, adminID string) *tasks.Future[[]domain.ProjectAggregate] {
	return tasks.Submit(s.pool, ctx, func(ctx context.Context) ([]domain.ProjectAggregate, error) {
		projects, err := s.projects.FindByAdminID(ctx, adminID)
		if err != nil {
			return nil, err
		}
		return s.attachMembers(ctx, projects)
	})
}

// GetProjectsByUser resolves the union of the projects userID administers
// and the ones it is a member of, deduplicated by project id. The two base
// queries are independent and run concurrently; member attachment stays a
// single batch pass over the union.
func (s *AggregationService) GetProjectsByUser(ctx context.Context, userID string) *tasks.Future[[]domain.ProjectAggregate] {
	return tasks.Submit(s.pool, ctx, func(ctx context.Context) ([]domain.ProjectAggregate, error) {
		var adminOf, memberOf []domain.Project

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			adminOf, err = s.projects.FindByAdminID(gctx, userID)
			return err
		})
		g.Go(func() error {
			var err error
			memberOf, err = s.projects.FindByMemberUserID(gctx, userID)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}

		union := lo.UniqBy(append(adminOf, memberOf...), func(p domain.Project) string { return p.ID })
		return s.attachMembers(ctx, union)
	})
}

// GetProjectByID resolves one project with members attached. Implemented as
// a singleton pass through the same batch path the list operations use, so
// the two can never diverge. The cache, when present, short-circuits the
// store entirely.
func (s *AggregationService) GetProjectByID(ctx context.Context, projectID string) *tasks.Future[*domain.ProjectAggregate] {
	return tasks.Submit(s.pool, ctx, func(ctx context.Context) (*domain.ProjectAggregate, error) {
		if s.cache != nil {
			if agg, ok := s.cache.Get(ctx, projectID); ok {
				return agg, nil
			}
		}

		project, err := s.projects.FindByID(ctx, projectID)
		if err != nil {
			return nil, err
		}

		aggs, err := s.attachMembers(ctx, []domain.Project{*project})
		if err != nil {
			return nil, err
		}

		agg := &aggs[0]
		if s.cache != nil {
			s.cache.Set(ctx, agg)
		}
		return agg, nil
	})
}

// AddUserToProject makes userID a member of projectID and returns the
// aggregate patched with the new member. The returned aggregate reflects
// the just-performed mutation, not a fresh read.
func (s *AggregationService) AddUserToProject(ctx context.Context, userID, projectID string) *tasks.Future[*domain.ProjectAggregate] {
	return tasks.Submit(s.pool, ctx, func(ctx context.Context) (*domain.ProjectAggregate, error) {
		const op = "aggregation.AddUserToProject"

		agg, user, err := s.loadForMutation(ctx, op, userID, projectID)
		if err != nil {
			return nil, err
		}

		ok, err := s.memberships.AddMember(ctx, userID, projectID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperr.New(apperr.KindPersistence, op, "membership insert affected no rows")
		}

		if s.cache != nil {
			s.cache.Invalidate(ctx, projectID)
		}

		agg.Members = append(agg.Members, *user)
		sortMembers(agg.Members)
		return agg, nil
	})
}

// RemoveUserFromProject removes userID from projectID's members and returns
// the aggregate patched accordingly. Removing a pair that does not exist is
// a persistence failure, consistent with AddUserToProject.
func (s *AggregationService) RemoveUserFromProject(ctx context.Context, userID, projectID string) *tasks.Future[*domain.ProjectAggregate] {
	return tasks.Submit(s.pool, ctx, func(ctx context.Context) (*domain.ProjectAggregate, error) {
		const op = "aggregation.RemoveUserFromProject"

		agg, _, err := s.loadForMutation(ctx, op, userID, projectID)
		if err != nil {
			return nil, err
		}

		ok, err := s.memberships.RemoveMember(ctx, userID, projectID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperr.New(apperr.KindPersistence, op, "membership delete affected no rows")
		}

		if s.cache != nil {
			s.cache.Invalidate(ctx, projectID)
		}

		agg.Members = lo.Reject(agg.Members, func(u usersdomain.User, _ int) bool { return u.ID == userID })
		return agg, nil
	})
}

// loadForMutation runs the shared head of both membership mutations: load
// the target project aggregate, load the user, reject admin-as-member. No
// write happens before every validation has passed.
func (s *AggregationService) loadForMutation(ctx context.Context, op, userID, projectID string) (*domain.ProjectAggregate, *usersdomain.User, error) {
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}

	if project.AdminID == userID {
		return nil, nil, apperr.New(apperr.KindInvalidOperation, op,
			"user %s is the admin of project %s and cannot be a plain member", userID, projectID)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	aggs, err := s.attachMembers(ctx, []domain.Project{*project})
	if err != nil {
		return nil, nil, err
	}
	return &aggs[0], user, nil
}

// attachMembers is the batch-aggregation core: one membership query over the
// whole project id set, one user query over the union of referenced user
// ids, then an in-memory join. The query count is fixed at two regardless of
// how many projects or members are involved.
func (s *AggregationService) attachMembers(ctx context.Context, projects []domain.Project) ([]domain.ProjectAggregate, error) {
	if len(projects) == 0 {
		return []domain.ProjectAggregate{}, nil
	}

	projectIDs := lo.Map(projects, func(p domain.Project, _ int) string { return p.ID })

	memberships, err := s.memberships.FindByProjectIDs(ctx, projectIDs)
	if err != nil {
		return nil, err
	}

	userIDsByProject := make(map[string][]string, len(projects))
	for _, m := range memberships {
		userIDsByProject[m.ProjectID] = append(userIDsByProject[m.ProjectID], m.UserID)
	}

	allUserIDs := lo.Uniq(lo.Map(memberships, func(m memdomain.Membership, _ int) string { return m.UserID }))

	users, err := s.users.FindAllByIDs(ctx, allUserIDs)
	if err != nil {
		return nil, err
	}
	usersByID := lo.KeyBy(users, func(u usersdomain.User) string { return u.ID })

	out := make([]domain.ProjectAggregate, 0, len(projects))
	for _, p := range projects {
		members := make([]usersdomain.User, 0, len(userIDsByProject[p.ID]))
		for _, uid := range userIDsByProject[p.ID] {
			if u, ok := usersByID[uid]; ok {
				members = append(members, u)
			}
		}
		sortMembers(members)
		out = append(out, domain.ProjectAggregate{Project: p, Members: members})
	}
	return out, nil
}

// Member order carries no meaning; sorting by id just keeps responses stable
// for clients and tests.
func sortMembers(members []usersdomain.User) {
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
}
