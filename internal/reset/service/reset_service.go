package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"marketplace-identity/internal/events"
	identitydomain "marketplace-identity/internal/identity/domain"
	identityrepo "marketplace-identity/internal/identity/repository"
	"marketplace-identity/internal/reset"
	"marketplace-identity/internal/reset/domain"
)

var (
	// ErrCodeNotFound is returned when no verification code is on file for
	// the email, either because none was requested or it aged out.
	ErrCodeNotFound = errors.New("verification code not found")
	// ErrInvalidCode is returned when a code is on file but cannot be
	// redeemed: wrong digits, already used, or expired.
	ErrInvalidCode = errors.New("invalid verification code")
)

// Hasher is the password hashing capability the reset flow needs.
type Hasher interface {
	HashPassword(password string) (string, error)
}

// PasswordResetService drives the three-step reset flow: request a code,
// verify it, redeem it for a new password. Codes live in the Store keyed by
// email; each step re-reads and re-validates, so the steps compose but do
// not require each other (a valid code can be redeemed without a prior
// verify call).
//
// Events are published best-effort: a Kafka outage never fails a reset.
type PasswordResetService struct {
	store     reset.Store
	users     identityrepo.UserRepository
	hasher    Hasher
	publisher events.Publisher
	nowF      func() time.Time
}

// NewPasswordResetService returns a PasswordResetService. publisher may be
// nil, in which case no events are emitted.
func NewPasswordResetService(store reset.Store, users identityrepo.UserRepository, hasher Hasher, publisher events.Publisher) *PasswordResetService {
	return &PasswordResetService{
		store:     store,
		users:     users,
		hasher:    hasher,
		publisher: publisher,
		nowF:      func() time.Time { return time.Now().UTC() },
	}
}

// RequestReset issues a fresh verification code for email and publishes it
// for delivery. An unknown email is a silent no-op: no code is stored, no
// event is published, and no error is returned, so callers cannot
// discover which emails exist.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if u == nil {
		return nil
	}
	code, err := domain.NewVerificationCode(email, s.nowF())
	if err != nil {
		return err
	}
	// Replaces any earlier code for the email; only the latest is redeemable.
	if err := s.store.Put(ctx, code); err != nil {
		return err
	}
	events.PublishAsync(s.publisher, events.NewEnvelope(events.TypeResetRequested, events.ResetRequested{
		Email:            email,
		UserID:           u.ID,
		Name:             u.FullName,
		VerificationCode: code.Code,
	}))
	return nil
}

// VerifyCode checks the submitted code against the one on file and marks it
// used. A used code can no longer be redeemed, so a caller that verifies and
// then tries to reset with the same code gets ErrInvalidCode.
func (s *PasswordResetService) VerifyCode(ctx context.Context, email, input string) error {
	email = normalizeEmail(email)
	code, ok := s.store.Get(ctx, email)
	if !ok {
		return ErrCodeNotFound
	}
	if !code.IsValid(input, s.nowF()) {
		return ErrInvalidCode
	}
	if err := s.store.Put(ctx, code.MarkUsed()); err != nil {
		return err
	}
	events.PublishAsync(s.publisher, events.NewEnvelope(events.TypeCodeVerified, events.CodeVerified{
		Email:            email,
		VerificationCode: code.Code,
	}))
	return nil
}

// ResetPassword redeems a valid code for a new password. The code is
// re-validated from scratch, so a prior VerifyCode call is neither required
// nor sufficient. On success the code is consumed and a completion event is
// published.
func (s *PasswordResetService) ResetPassword(ctx context.Context, email, input, newPassword string) error {
	email = normalizeEmail(email)
	code, ok := s.store.Get(ctx, email)
	if !ok {
		return ErrCodeNotFound
	}
	if !code.IsValid(input, s.nowF()) {
		return ErrInvalidCode
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if u == nil {
		return identitydomain.ErrNotFound
	}
	hash, err := s.hasher.HashPassword(newPassword)
	if err != nil {
		return err
	}
	u.ChangePassword(hash)
	if err := s.users.Save(ctx, u); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, email); err != nil {
		return err
	}
	events.PublishAsync(s.publisher, events.NewEnvelope(events.TypeResetCompleted, events.ResetCompleted{
		Email:   email,
		UserID:  u.ID,
		Name:    u.FullName,
		Success: true,
	}))
	return nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
