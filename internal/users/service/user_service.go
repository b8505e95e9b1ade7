package service

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/4ndr33w/projecthub-backend/internal/apperr"
	"github.com/4ndr33w/projecthub-backend/internal/users/domain"
)

// UserStore is the slice of the user repository this service depends on.
type UserStore interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindAllByIDs(ctx context.Context, ids []string) ([]domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) (*domain.User, error)
	Delete(ctx context.Context, id string) (bool, error)
	StampLastLogin(ctx context.Context, id string) error
}

type UserService struct {
	repo UserStore
}

func NewUserService(repo UserStore) *UserService {
	return &UserService{repo: repo}
}

// Register validates the request, hashes the password and inserts the user.
func (s *UserService) Register(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	const op = "users.Register"

	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)
	if username == "" || email == "" {
		return nil, apperr.New(apperr.KindInvalidOperation, op, "username and email are required")
	}
	if len(req.Password) < 8 {
		return nil, apperr.New(apperr.KindInvalidOperation, op, "password must be at least 8 characters")
	}

	role := req.Role
	if role == "" {
		role = domain.RoleUser
	}
	if !role.Valid() {
		return nil, apperr.New(apperr.KindInvalidOperation, op, "unknown role %q", req.Role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, op, err)
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		Image:        req.Image,
		Role:         role,
	}
	return s.repo.Create(ctx, user)
}

// Get returns one user by id.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.repo.FindByID(ctx, id)
}

// Update replaces the mutable profile fields. The password is changed
// through its own flow, not here.
func (s *UserService) Update(ctx context.Context, id string, req domain.UpdateUserRequest) (*domain.User, error) {
	const op = "users.Update"

	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)
	if username == "" || email == "" {
		return nil, apperr.New(apperr.KindInvalidOperation, op, "username and email are required")
	}

	// Unlike Register there is no default here: the update replaces the row,
	// and defaulting an omitted role would silently demote an admin.
	if req.Role == "" {
		return nil, apperr.New(apperr.KindInvalidOperation, op, "role is required")
	}
	if !req.Role.Valid() {
		return nil, apperr.New(apperr.KindInvalidOperation, op, "unknown role %q", req.Role)
	}

	user := &domain.User{
		ID:        id,
		Username:  username,
		Email:     email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Image:     req.Image,
		Role:      req.Role,
	}
	return s.repo.Update(ctx, user)
}

// Delete removes the user. Membership rows referencing it go stale until the
// janitor sweeps them.
func (s *UserService) Delete(ctx context.Context, id string) (bool, error) {
	return s.repo.Delete(ctx, id)
}

// VerifyPassword checks the given plaintext password against the stored hash
// and stamps the login timestamp on success.
func (s *UserService) VerifyPassword(ctx context.Context, id, password string) error {
	const op = "users.VerifyPassword"

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return apperr.New(apperr.KindInvalidOperation, op, "invalid credentials")
	}
	return s.repo.StampLastLogin(ctx, id)
}
