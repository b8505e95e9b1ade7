package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/4ndr33w/projecthub-backend/internal/apperr"
	memdomain "github.com/4ndr33w/projecthub-backend/internal/memberships/domain"
	"github.com/4ndr33w/projecthub-backend/internal/projects/domain"
	"github.com/4ndr33w/projecthub-backend/internal/tasks"
	usersdomain "github.com/4ndr33w/projecthub-backend/internal/users/domain"
)

// fakeStore is an in-memory store shared by the three repository fakes. It
// counts every call so the batch-bound properties can be asserted.
type fakeStore struct {
	mu sync.Mutex

	users    map[string]usersdomain.User
	projects map[string]domain.Project
	pairs    map[[2]string]bool // (projectID, userID)

	// When set, the corresponding batch query fails with this error.
	usersErr       error
	membershipsErr error

	findAllUsersCalls     int
	findByProjectIDsCalls int
	findByAdminIDCalls    int
	findByMemberUserCalls int
	findProjectByIDCalls  int
	addMemberCalls        int
	removeMemberCalls     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[string]usersdomain.User),
		projects: make(map[string]domain.Project),
		pairs:    make(map[[2]string]bool),
	}
}

type fakeProjects struct{ s *fakeStore }

func (f fakeProjects) FindByID(ctx context.Context, id string) (*domain.Project, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.findProjectByIDCalls++
	p, ok := f.s.projects[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "fake", "project %s not found", id)
	}
	return &p, nil
}

func (f fakeProjects) FindAllByIDs(ctx context.Context, ids []string) ([]domain.Project, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := []domain.Project{}
	for _, id := range ids {
		if p, ok := f.s.projects[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f fakeProjects) FindByAdminID(ctx context.Context, adminID string) ([]domain.Project, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.findByAdminIDCalls++
	out := []domain.Project{}
	for _, p := range f.s.projects {
		if p.AdminID == adminID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f fakeProjects) FindByMemberUserID(ctx context.Context, userID string) ([]domain.Project, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.findByMemberUserCalls++
	out := []domain.Project{}
	for pair := range f.s.pairs {
		if pair[1] == userID {
			if p, ok := f.s.projects[pair[0]]; ok {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

type fakeUsers struct{ s *fakeStore }

func (f fakeUsers) FindByID(ctx context.Context, id string) (*usersdomain.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	u, ok := f.s.users[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "fake", "user %s not found", id)
	}
	return &u, nil
}

func (f fakeUsers) FindAllByIDs(ctx context.Context, ids []string) ([]usersdomain.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.findAllUsersCalls++
	if f.s.usersErr != nil {
		return nil, f.s.usersErr
	}
	out := []usersdomain.User{}
	for _, id := range ids {
		if u, ok := f.s.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

type fakeMemberships struct{ s *fakeStore }

func (f fakeMemberships) AddMember(ctx context.Context, userID, projectID string) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.addMemberCalls++
	key := [2]string{projectID, userID}
	if f.s.pairs[key] {
		// Mirrors the storage unique index: the second concurrent insert
		// loses and surfaces a conflict.
		return false, apperr.New(apperr.KindPersistence, "fake", "duplicate pair")
	}
	f.s.pairs[key] = true
	return true, nil
}

func (f fakeMemberships) RemoveMember(ctx context.Context, userID, projectID string) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.removeMemberCalls++
	key := [2]string{projectID, userID}
	if !f.s.pairs[key] {
		return false, nil
	}
	delete(f.s.pairs, key)
	return true, nil
}

func (f fakeMemberships) FindByProjectIDs(ctx context.Context, projectIDs []string) ([]memdomain.Membership, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.findByProjectIDsCalls++
	if f.s.membershipsErr != nil {
		return nil, f.s.membershipsErr
	}
	out := []memdomain.Membership{}
	for _, pid := range projectIDs {
		for pair := range f.s.pairs {
			if pair[0] == pid {
				out = append(out, memdomain.Membership{ProjectID: pair[0], UserID: pair[1], CreatedAt: time.Now()})
			}
		}
	}
	return out, nil
}

func newTestService(s *fakeStore) *AggregationService {
	return NewAggregationService(fakeProjects{s}, fakeUsers{s}, fakeMemberships{s}, nil, tasks.NewPool(4))
}

func seedUser(s *fakeStore, id string) {
	s.users[id] = usersdomain.User{ID: id, Username: "user-" + id, Email: id + "@example.com", Role: usersdomain.RoleUser}
}

func seedProject(s *fakeStore, id, adminID string) {
	s.projects[id] = domain.Project{ID: id, Name: "project-" + id, AdminID: adminID, Status: domain.StatusActive}
}

func memberIDs(agg domain.ProjectAggregate) []string {
	out := make([]string, 0, len(agg.Members))
	for _, m := range agg.Members {
		out = append(out, m.ID)
	}
	return out
}

func TestGetProjectsByAdmin_BatchBound(t *testing.T) {
	s := newFakeStore()
	// 5 projects, 8 distinct users spread across them.
	seedUser(s, "admin")
	for _, uid := range []string{"u1", "u2", "u3", "u4", "u5", "u6", "u7", "u8"} {
		seedUser(s, uid)
	}
	for i, pid := range []string{"p1", "p2", "p3", "p4", "p5"} {
		seedProject(s, pid, "admin")
		s.pairs[[2]string{pid, "u1"}] = true
		s.pairs[[2]string{pid, []string{"u2", "u3", "u4", "u5", "u6"}[i]}] = true
	}

	svc := newTestService(s)
	aggs, err := svc.GetProjectsByAdmin(context.Background(), "admin").Wait(context.Background())
	require.NoError(t, err)
	require.Len(t, aggs, 5)

	// The defining property: one membership query and one user query no
	// matter how many projects or members were involved.
	assert.Equal(t, 1, s.findByProjectIDsCalls)
	assert.Equal(t, 1, s.findAllUsersCalls)

	for _, agg := range aggs {
		assert.Len(t, agg.Members, 2)
	}
}

func TestGetProjectsByAdmin_NoProjects(t *testing.T) {
	s := newFakeStore()
	seedUser(s, "admin")

	svc := newTestService(s)
	aggs, err := svc.GetProjectsByAdmin(context.Background(), "admin").Wait(context.Background())
	require.NoError(t, err)
	assert.Empty(t, aggs)

	// Empty base set short-circuits before any batch query.
	assert.Equal(t, 0, s.findByProjectIDsCalls)
	assert.Equal(t, 0, s.findAllUsersCalls)
}

func TestGetProjectsByAdmin_MembershipQueryFailure(t *testing.T) {
	s := newFakeStore()
	seedUser(s, "admin")
	seedProject(s, "p1", "admin")
	seedProject(s, "p2", "admin")
	s.membershipsErr = apperr.New(apperr.KindPersistence, "fake", "connection reset")

	svc := newTestService(s)
	aggs, err := svc.GetProjectsByAdmin(context.Background(), "admin").Wait(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperr.KindPersistence, apperr.KindOf(err))

	// A failed pipeline yields no partial aggregates, and the user batch is
	// never issued after the membership batch fails.
	assert.Nil(t, aggs)
	assert.Equal(t, 0, s.findAllUsersCalls)
}

func TestGetProjectsByAdmin_UserQueryFailure(t *testing.T) {
	s := newFakeStore()
	seedUser(s, "admin")
	seedUser(s, "u1")
	seedProject(s, "p1", "admin")
	s.pairs[[2]string{"p1", "u1"}] = true
	s.usersErr = apperr.New(apperr.KindPersistence, "fake", "connection reset")

	svc := newTestService(s)
	aggs, err := svc.GetProjectsByAdmin(context.Background(), "admin").Wait(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperr.KindPersistence, apperr.KindOf(err))
	assert.Nil(t, aggs)
}

func TestGetProjectsByUser_UnionDeduplicated(t *testing.T) {
	s := newFakeStore()
	seedUser(s, "u1")
	seedUser(s, "other")
	seedProject(s, "owned", "u1")        // u1 administers this
	seedProject(s, "joined", "other")    // u1 is a member of this
	seedProject(s, "unrelated", "other") // u1 has no relation to this
	s.pairs[[2]string{"joined", "u1"}] = true

	svc := newTestService(s)
	aggs, err := svc.GetProjectsByUser(context.Background(), "u1").Wait(context.Background())
	require.NoError(t, err)

	ids := make([]string, 0, len(aggs))
	for _, agg := range aggs {
		ids = append(ids, agg.ID)
	}
	assert.ElementsMatch(t, []string{"owned", "joined"}, ids)

	// Union attachment is still a single batch pass.
	assert.Equal(t, 1, s.findByProjectIDsCalls)
	assert.Equal(t, 1, s.findAllUsersCalls)
}

func TestGetProjectByID_IdempotentAssembly(t *testing.T) {
	s := newFakeStore()
	seedUser(s, "admin")
	seedUser(s, "u1")
	seedUser(s, "u2")
	seedProject(s, "p1", "admin")
	s.pairs[[2]string{"p1", "u1"}] = true
	s.pairs[[2]string{"p1", "u2"}] = true

	svc := newTestService(s)

	first, err := svc.GetProjectByID(context.Background(), "p1").Wait(context.Background())
	require.NoError(t, err)
	second, err := svc.GetProjectByID(context.Background(), "p1").Wait(context.Background())
	require.NoError(t, err)

	assert.Equal(t, memberIDs(*first), memberIDs(*second))
}

func TestGetProjectByID_NotFound(t *testing.T) {
	s := newFakeStore()
	svc := newTestService(s)

	_, err := svc.GetProjectByID(context.Background(), "ghost").Wait(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestAddUserToProject_AdminRejected(t *testing.T) {
	s := newFakeStore()
	seedUser(s, "admin")
	seedProject(s, "p1", "admin")

	svc := newTestService(s)
	_, err := svc.AddUserToProject(context.Background(), "admin", "p1").Wait(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidOperation, apperr.KindOf(err))

	// Validation failure means zero writes.
	assert.Equal(t, 0, s.addMemberCalls)
	assert.Empty(t, s.pairs)
}

func TestMembershipScenario_AddThenRemove(t *testing.T) {
	s := newFakeStore()
	seedUser(s, "a") // admin
	seedUser(s, "b")
	seedProject(s, "x", "a")

	svc := newTestService(s)
	ctx := context.Background()

	agg, err := svc.AddUserToProject(ctx, "b", "x").Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, memberIDs(*agg))

	read, err := svc.GetProjectByID(ctx, "x").Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, memberIDs(*read))

	agg, err = svc.RemoveUserFromProject(ctx, "b", "x").Wait(ctx)
	require.NoError(t, err)
	assert.Empty(t, agg.Members)

	read, err = svc.GetProjectByID(ctx, "x").Wait(ctx)
	require.NoError(t, err)
	assert.Empty(t, read.Members)
}

func TestAddUserToProject_ConcurrentDuplicate(t *testing.T) {
	s := newFakeStore()
	seedUser(s, "admin")
	seedUser(s, "b")
	seedProject(s, "x", "admin")

	svc := newTestService(s)
	ctx := context.Background()

	fut1 := svc.AddUserToProject(ctx, "b", "x")
	fut2 := svc.AddUserToProject(ctx, "b", "x")

	_, err1 := fut1.Wait(ctx)
	_, err2 := fut2.Wait(ctx)

	// Exactly one wins; the loser surfaces the storage conflict.
	if err1 == nil {
		require.Error(t, err2)
		assert.Equal(t, apperr.KindPersistence, apperr.KindOf(err2))
	} else {
		require.NoError(t, err2)
		assert.Equal(t, apperr.KindPersistence, apperr.KindOf(err1))
	}
	assert.Len(t, s.pairs, 1)
}

func TestRemoveUserFromProject_AbsentPairFails(t *testing.T) {
	s := newFakeStore()
	seedUser(s, "admin")
	seedUser(s, "b")
	seedProject(s, "x", "admin")

	svc := newTestService(s)
	_, err := svc.RemoveUserFromProject(context.Background(), "b", "x").Wait(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperr.KindPersistence, apperr.KindOf(err))
}

func TestAddUserToProject_UnknownUser(t *testing.T) {
	s := newFakeStore()
	seedUser(s, "admin")
	seedProject(s, "x", "admin")

	svc := newTestService(s)
	_, err := svc.AddUserToProject(context.Background(), "ghost", "x").Wait(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, 0, s.addMemberCalls)
}
