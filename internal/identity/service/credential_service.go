package service

import (
	"context"
	"errors"
	"strings"

	"marketplace-identity/internal/identity/domain"
	"marketplace-identity/internal/identity/repository"
)

// ErrInvalidCredentials is returned when an email/password pair does not
// match a stored identity. Callers should not distinguish an unknown email
// from a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// CredentialService reads and verifies login credentials against the base
// identity store, and handles direct password changes. Password hashes never
// leave this package boundary in responses; handlers decide what to expose.
type CredentialService struct {
	users  repository.UserRepository
	hasher Hasher
}

// NewCredentialService returns a CredentialService over the base store.
func NewCredentialService(users repository.UserRepository, hasher Hasher) *CredentialService {
	return &CredentialService{users: users, hasher: hasher}
}

// GetByEmail returns the identity holding email, or domain.ErrNotFound.
func (s *CredentialService) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := s.users.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

// Verify checks an email/password pair and returns the matching identity.
// Unknown emails and wrong passwords both yield ErrInvalidCredentials.
func (s *CredentialService) Verify(ctx context.Context, email, password string) (*domain.User, error) {
	u, err := s.users.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		return nil, err
	}
	if u == nil || !s.hasher.VerifyPassword(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// ChangePassword hashes newPassword and stores it on the identity's base
// record. No current-password check is performed here; callers gate access.
func (s *CredentialService) ChangePassword(ctx context.Context, id, newPassword string) error {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if u == nil {
		return domain.ErrNotFound
	}
	hash, err := s.hasher.HashPassword(newPassword)
	if err != nil {
		return err
	}
	u.ChangePassword(hash)
	return s.users.Save(ctx, u)
}
