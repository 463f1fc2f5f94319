package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/icu-api/internal/model"
	"github.com/jwalitptl/icu-api/internal/repository"
	"github.com/jwalitptl/icu-api/internal/service"
	apperrors "github.com/jwalitptl/icu-api/pkg/errors"
	"github.com/jwalitptl/icu-api/pkg/security"
)

const (
	MsgUsernameTaken = "Username is already taken"
	MsgEmailTaken    = "Email is already registered"
	MsgDeleteSelf    = "You cannot delete your own account"
)

type UserService interface {
	CreateUser(ctx context.Context, req *model.CreateUserRequest) (*model.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	ListUsers(ctx context.Context, filters *model.UserFilters) ([]*model.User, error)
	UpdateUser(ctx context.Context, id uuid.UUID, req *model.UpdateUserRequest) (*model.User, error)
	DeleteUser(ctx context.Context, actor, id uuid.UUID) error
}

type Service struct {
	repo   repository.UserRepository
	hasher security.PasswordHasher
	now    func() time.Time
}

func NewService(repo repository.UserRepository, hasher security.PasswordHasher) *Service {
	return &Service{
		repo:   repo,
		hasher: hasher,
		now:    time.Now,
	}
}

func (s *Service) CreateUser(ctx context.Context, req *model.CreateUserRequest) (*model.User, error) {
	user := &model.User{
		Username: strings.ToLower(strings.TrimSpace(req.Username)),
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Name:     req.Name,
		Role:     req.Role,
		Active:   true,
	}
	if err := s.checkUnique(ctx, uuid.Nil, user.Username, user.Email); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		if errors.Is(err, security.ErrPasswordShort) {
			return nil, apperrors.NewValidation("Validation failed", map[string]string{
				"password": "password must be at least 8 characters",
			})
		}
		return nil, apperrors.NewInternal(err)
	}
	user.PasswordHash = hash

	user.Touch(s.now())
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, writeError(err)
	}
	log.Info().Str("user_id", user.ID.String()).Str("role", user.Role).Msg("User created")
	return user, nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, service.StoreError("User", err)
	}
	return user, nil
}

func (s *Service) ListUsers(ctx context.Context, filters *model.UserFilters) ([]*model.User, error) {
	users, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, service.StoreError("User", err)
	}
	return users, nil
}

func (s *Service) UpdateUser(ctx context.Context, id uuid.UUID, req *model.UpdateUserRequest) (*model.User, error) {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, service.StoreError("User", err)
	}
	if req.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*req.Email))
		if err := s.checkUnique(ctx, user.ID, "", user.Email); err != nil {
			return nil, err
		}
	}
	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.Active != nil {
		user.Active = *req.Active
	}

	user.Touch(s.now())
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, writeError(err)
	}
	return user, nil
}

func (s *Service) DeleteUser(ctx context.Context, actor, id uuid.UUID) error {
	if actor == id {
		return apperrors.NewPrecondition(MsgDeleteSelf)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return service.StoreError("User", err)
	}
	log.Info().Str("user_id", id.String()).Str("deleted_by", actor.String()).Msg("User deleted")
	return nil
}

// checkUnique skips an empty username.
func (s *Service) checkUnique(ctx context.Context, self uuid.UUID, username, email string) error {
	if username != "" {
		other, err := s.repo.GetByUsername(ctx, username)
		switch {
		case err == nil && other.ID != self:
			return apperrors.NewConflict(MsgUsernameTaken, nil)
		case err != nil && !service.IsNotFound(err):
			return service.StoreError("User", err)
		}
	}
	other, err := s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil && other.ID != self:
		return apperrors.NewConflict(MsgEmailTaken, nil)
	case err != nil && !service.IsNotFound(err):
		return service.StoreError("User", err)
	}
	return nil
}

func writeError(err error) error {
	if errors.Is(err, repository.ErrDuplicate) {
		if strings.Contains(err.Error(), "email") {
			return apperrors.NewConflict(MsgEmailTaken, err)
		}
		return apperrors.NewConflict(MsgUsernameTaken, err)
	}
	return service.StoreError("User", err)
}

var _ UserService = (*Service)(nil)
