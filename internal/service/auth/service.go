package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"familytree/internal/model"
	"familytree/internal/service/errs"
	"familytree/internal/util"
	"familytree/pkg/rbac"
)

// Actor identifies the authenticated caller on mutation paths.
type Actor struct {
	UserID string
	Role   string
}

// CanMutate reports whether the actor may modify a resource owned by ownerID.
// Admins may modify anything.
func (a Actor) CanMutate(ownerID string) bool {
	return a.UserID == ownerID || a.Role == rbac.RoleAdmin
}

// UserStore is the user persistence surface the auth service needs.
type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
}

type Service struct {
	users     UserStore
	jwtSecret string
	logger    *zap.Logger
}

func NewService(users UserStore, jwtSecret string, logger *zap.Logger) *Service {
	return &Service{
		users:     users,
		jwtSecret: jwtSecret,
		logger:    logger,
	}
}

// Register creates a new user with the member role.
func (s *Service) Register(ctx context.Context, name, email, password string) (*model.User, error) {
	v := &errs.ValidationError{}
	if name == "" {
		v.Add("name", "name is required")
	}
	if email == "" {
		v.Add("email", "email is required")
	}
	if len(password) < 8 {
		v.Add("password", "password must be at least 8 characters")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if existing != nil {
		return nil, errs.Validation("email", "email already exists")
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         rbac.RoleMember,
		CreatedAt:    time.Now(),
	}

	if err := s.users.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	s.logger.Info("User registered", zap.String("user_id", u.ID))
	return u, nil
}

// Login checks user credentials and returns a signed JWT.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return "", errors.New("invalid email or password")
	}

	if !util.CheckPassword(password, u.PasswordHash) {
		return "", errors.New("invalid email or password")
	}

	token, err := util.GenerateJWT(u.ID, u.Role, s.jwtSecret)
	if err != nil {
		return "", err
	}

	return token, nil
}

// Me returns the authenticated user's profile.
func (s *Service) Me(ctx context.Context, userID string) (*model.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}
