package services

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"cesde/internal/models"
	"cesde/internal/repositories"
)

type CredentialService struct {
	users repositories.UserRepository
}

func NewCredentialService(users repositories.UserRepository) *CredentialService {
	return &CredentialService{users: users}
}

// Verify looks the identity up, rejects inactive accounts, then compares the
// password. The returned identity carries no password hash.
func (s *CredentialService) Verify(ctx context.Context, identification, password string) (*models.Identity, error) {
	u, err := s.users.GetByIdentification(ctx, identification)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrIdentityNotFound
		}
		return nil, storeErr("credentials lookup", err)
	}
	if !u.Active {
		return nil, ErrInactive
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrBadSecret
	}
	return u.Public(), nil
}
