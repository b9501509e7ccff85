package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"cesde/internal/authz"
	"cesde/internal/models"
	"cesde/internal/repositories"
	"cesde/internal/utils"
)

const (
	DefaultPageSize   = 50
	MaxPageSize       = 200
	MinPasswordLength = 6
)

// UserAdminService backs the user management API of the dashboard.
// Admins manage normal and admin accounts; superadmin accounts and the
// superadmin role are reserved to superadmins.
type UserAdminService struct {
	repo       repositories.UserRepository
	bcryptCost int
	logger     *zap.Logger
}

func NewUserAdminService(repo repositories.UserRepository, bcryptCost int, logger *zap.Logger) *UserAdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserAdminService{repo: repo, bcryptCost: bcryptCost, logger: logger.Named("user_admin")}
}

func (s *UserAdminService) List(ctx context.Context, limit, offset int) ([]*models.Identity, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	users, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, storeErr("user list", err)
	}
	out := make([]*models.Identity, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out, nil
}

func (s *UserAdminService) Create(ctx context.Context, actor *models.Identity, in models.UserInput) (*models.Identity, error) {
	if in.Password == "" {
		return nil, ErrPasswordRequired
	}
	u := &models.Identity{Active: true}
	if err := s.apply(ctx, actor, u, in); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, storeErr("user create", err)
	}
	s.logger.Info("user created",
		zap.String("by", actor.Identification),
		zap.String("identification", u.Identification),
		zap.String("role", string(u.Role)),
	)
	return u.Public(), nil
}

func (s *UserAdminService) Update(ctx context.Context, actor *models.Identity, id int, in models.UserInput) (*models.Identity, error) {
	u, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Role == authz.RoleSuperAdmin && !authz.IsSuperAdmin(actor.Role) {
		return nil, ErrRoleNotAllowed
	}
	if err := s.apply(ctx, actor, u, in); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, u); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storeErr("user update", err)
	}
	s.logger.Info("user updated", zap.String("by", actor.Identification), zap.Int("id", id))
	return u.Public(), nil
}

// Delete removes the account with id. Actors cannot delete themselves.
func (s *UserAdminService) Delete(ctx context.Context, actor *models.Identity, id int) error {
	if actor.ID == id {
		return ErrSelfDelete
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrUserNotFound
		}
		return storeErr("user delete", err)
	}
	s.logger.Warn("user deleted", zap.String("by", actor.Identification), zap.Int("id", id))
	return nil
}

func (s *UserAdminService) get(ctx context.Context, id int) (*models.Identity, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storeErr("user get", err)
	}
	return u, nil
}

// apply validates in and copies it onto u. Uniqueness is only checked for
// values that change.
func (s *UserAdminService) apply(ctx context.Context, actor *models.Identity, u *models.Identity, in models.UserInput) error {
	identification := strings.TrimSpace(in.Identification)
	email := strings.TrimSpace(in.Email)
	if !emailPattern.MatchString(email) {
		return ErrInvalidEmail
	}
	if in.Password != "" && len(in.Password) < MinPasswordLength {
		return ErrPasswordTooShort
	}

	role, err := authz.ParseRole(in.Role)
	if err != nil {
		return ErrRoleNotAllowed
	}
	if role == authz.RoleSuperAdmin && !authz.IsSuperAdmin(actor.Role) {
		return ErrRoleNotAllowed
	}

	if identification != u.Identification {
		exists, err := s.repo.ExistsByIdentification(ctx, identification)
		if err != nil {
			return storeErr("user check identification", err)
		}
		if exists {
			return ErrIdentityExists
		}
	}
	if !strings.EqualFold(email, u.Email) {
		exists, err := s.repo.ExistsByEmail(ctx, email)
		if err != nil {
			return storeErr("user check email", err)
		}
		if exists {
			return ErrEmailExists
		}
	}

	if in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
		if err != nil {
			return fmt.Errorf("bcrypt generate: %w", err)
		}
		u.PasswordHash = string(hash)
	}
	u.Identification = identification
	u.FullName = strings.TrimSpace(in.FullName)
	u.Email = email
	u.Role = role
	u.Active = true
	if in.Active != nil {
		u.Active = *in.Active
	}
	if !u.Active {
		s.logger.Info("account deactivated", zap.String("identification", identification), zap.String("email", utils.MaskEmail(email)))
	}
	return nil
}
