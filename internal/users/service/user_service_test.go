package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/4ndr33w/projecthub-backend/internal/apperr"
	"github.com/4ndr33w/projecthub-backend/internal/users/domain"
)

type fakeUserStore struct {
	users       map[string]*domain.User
	lastStamped string
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*domain.User)}
}

func (f *fakeUserStore) FindByID(ctx context.Context, id string) (*domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "fake", "user %s not found", id)
	}
	return u, nil
}

func (f *fakeUserStore) FindAllByIDs(ctx context.Context, ids []string) ([]domain.User, error) {
	out := []domain.User{}
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeUserStore) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	for _, existing := range f.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return nil, apperr.New(apperr.KindAlreadyExists, "fake", "username or email already taken")
		}
	}
	if user.ID == "" {
		user.ID = "id-" + user.Username
	}
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserStore) Update(ctx context.Context, user *domain.User) (*domain.User, error) {
	if _, ok := f.users[user.ID]; !ok {
		return nil, apperr.New(apperr.KindNotFound, "fake", "user %s not found", user.ID)
	}
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserStore) Delete(ctx context.Context, id string) (bool, error) {
	if _, ok := f.users[id]; !ok {
		return false, nil
	}
	delete(f.users, id)
	return true, nil
}

func (f *fakeUserStore) StampLastLogin(ctx context.Context, id string) error {
	if _, ok := f.users[id]; !ok {
		return apperr.New(apperr.KindNotFound, "fake", "user %s not found", id)
	}
	f.lastStamped = id
	return nil
}

func TestUserService_Register(t *testing.T) {
	store := newFakeUserStore()
	svc := NewUserService(store)

	t.Run("hashes the password", func(t *testing.T) {
		user, err := svc.Register(context.Background(), domain.CreateUserRequest{
			Username: "alice", Email: "alice@example.com", Password: "supersecret",
		})
		require.NoError(t, err)
		assert.NotEqual(t, "supersecret", user.PasswordHash)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("supersecret")))
		assert.Equal(t, domain.RoleUser, user.Role)
	})

	t.Run("rejects short passwords", func(t *testing.T) {
		_, err := svc.Register(context.Background(), domain.CreateUserRequest{
			Username: "bob", Email: "bob@example.com", Password: "short",
		})
		require.Error(t, err)
		assert.Equal(t, apperr.KindInvalidOperation, apperr.KindOf(err))
	})

	t.Run("rejects unknown roles", func(t *testing.T) {
		_, err := svc.Register(context.Background(), domain.CreateUserRequest{
			Username: "carol", Email: "carol@example.com", Password: "supersecret", Role: "OVERLORD",
		})
		require.Error(t, err)
		assert.Equal(t, apperr.KindInvalidOperation, apperr.KindOf(err))
	})

	t.Run("surfaces duplicate accounts", func(t *testing.T) {
		_, err := svc.Register(context.Background(), domain.CreateUserRequest{
			Username: "alice", Email: "alice@example.com", Password: "supersecret",
		})
		require.Error(t, err)
		assert.Equal(t, apperr.KindAlreadyExists, apperr.KindOf(err))
	})
}

func TestUserService_Update(t *testing.T) {
	store := newFakeUserStore()
	svc := NewUserService(store)

	admin, err := svc.Register(context.Background(), domain.CreateUserRequest{
		Username: "root", Email: "root@example.com", Password: "supersecret", Role: domain.RoleAdmin,
	})
	require.NoError(t, err)

	t.Run("rejects an omitted role", func(t *testing.T) {
		_, err := svc.Update(context.Background(), admin.ID, domain.UpdateUserRequest{
			Username: "root", Email: "root@example.com",
		})
		require.Error(t, err)
		assert.Equal(t, apperr.KindInvalidOperation, apperr.KindOf(err))

		// An update without an explicit role must not demote the admin.
		assert.Equal(t, domain.RoleAdmin, store.users[admin.ID].Role)
	})

	t.Run("rejects unknown roles", func(t *testing.T) {
		_, err := svc.Update(context.Background(), admin.ID, domain.UpdateUserRequest{
			Username: "root", Email: "root@example.com", Role: "OVERLORD",
		})
		require.Error(t, err)
		assert.Equal(t, apperr.KindInvalidOperation, apperr.KindOf(err))
	})

	t.Run("keeps an explicit role", func(t *testing.T) {
		updated, err := svc.Update(context.Background(), admin.ID, domain.UpdateUserRequest{
			Username: "root", Email: "root@example.com", Role: domain.RoleAdmin, FirstName: "Ada",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.RoleAdmin, updated.Role)
		assert.Equal(t, "Ada", updated.FirstName)
	})
}

func TestUserService_VerifyPassword(t *testing.T) {
	store := newFakeUserStore()
	svc := NewUserService(store)

	user, err := svc.Register(context.Background(), domain.CreateUserRequest{
		Username: "alice", Email: "alice@example.com", Password: "supersecret",
	})
	require.NoError(t, err)

	t.Run("stamps login on success", func(t *testing.T) {
		require.NoError(t, svc.VerifyPassword(context.Background(), user.ID, "supersecret"))
		assert.Equal(t, user.ID, store.lastStamped)
	})

	t.Run("rejects wrong password", func(t *testing.T) {
		err := svc.VerifyPassword(context.Background(), user.ID, "wrong")
		require.Error(t, err)
		assert.Equal(t, apperr.KindInvalidOperation, apperr.KindOf(err))
	})
}
