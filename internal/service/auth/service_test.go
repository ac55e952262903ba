package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"familytree/internal/model"
	"familytree/internal/service/errs"
	"familytree/internal/util"
	"familytree/pkg/rbac"
)

type memUsers struct {
	users map[string]*model.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[string]*model.User{}}
}

func (s *memUsers) CreateUser(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = "u1"
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *memUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *memUsers) FindByID(ctx context.Context, id string) (*model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

const testSecret = "test-secret"

func newTestService(t *testing.T) (*Service, *memUsers) {
	t.Helper()
	users := newMemUsers()
	return NewService(users, testSecret, zap.NewNop()), users
}

func TestRegister_CreatesMemberRole(t *testing.T) {
	svc, _ := newTestService(t)

	u, err := svc.Register(context.Background(), "Edith", "edith@example.com", "longenough")
	require.NoError(t, err)

	assert.Equal(t, rbac.RoleMember, u.Role)
	assert.NotEqual(t, "longenough", u.PasswordHash, "password must be hashed")
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Register(context.Background(), "", "", "short")
	var vErr *errs.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Len(t, vErr.Fields, 3)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Edith", "edith@example.com", "longenough")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "Other", "edith@example.com", "alsolongenough")
	var vErr *errs.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "email", vErr.Fields[0].Field)
}

func TestLogin_ReturnsValidToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "Edith", "edith@example.com", "longenough")
	require.NoError(t, err)

	token, err := svc.Login(ctx, "edith@example.com", "longenough")
	require.NoError(t, err)

	userID, role, err := util.ParseJWT(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, u.ID, userID)
	assert.Equal(t, rbac.RoleMember, role)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Edith", "edith@example.com", "longenough")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "edith@example.com", "wrongpassword")
	assert.Error(t, err)

	_, err = svc.Login(ctx, "nobody@example.com", "longenough")
	assert.Error(t, err)
}

func TestMe_NotFound(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Me(context.Background(), "missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestActor_CanMutate(t *testing.T) {
	ownerActor := Actor{UserID: "u1", Role: rbac.RoleMember}
	assert.True(t, ownerActor.CanMutate("u1"))
	assert.False(t, ownerActor.CanMutate("u2"))

	adminActor := Actor{UserID: "u3", Role: rbac.RoleAdmin}
	assert.True(t, adminActor.CanMutate("u1"))
}
