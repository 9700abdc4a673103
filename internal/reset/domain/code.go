// Package domain holds the verification-code value object driving the
// password reset flow.
package domain

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"
)

// CodeTTL is how long a verification code stays redeemable after issue.
const CodeTTL = 15 * time.Minute

var codeSpace = big.NewInt(1000000)

// VerificationCode is an immutable snapshot of an issued reset code. State
// transitions (MarkUsed) return a new value rather than mutating in place,
// so a stored code only changes when the caller writes the new snapshot
// back.
type VerificationCode struct {
	Code      string
	Email     string
	ExpiresAt time.Time
	Used      bool
}

// NewVerificationCode issues a fresh unused code for email, expiring CodeTTL
// from now.
func NewVerificationCode(email string, now time.Time) (VerificationCode, error) {
	code, err := GenerateCode()
	if err != nil {
		return VerificationCode{}, err
	}
	return VerificationCode{
		Code:      code,
		Email:     email,
		ExpiresAt: now.Add(CodeTTL),
		Used:      false,
	}, nil
}

// GenerateCode returns a 6-digit numeric code string (e.g. "123456"),
// drawn uniformly over 000000–999999 using crypto/rand.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// IsExpired reports whether the code's lifetime has passed at now.
func (c VerificationCode) IsExpired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}

// IsValid reports whether input redeems this code at now: the code must be
// unexpired, unused, and match. The comparison is constant-time.
func (c VerificationCode) IsValid(input string, now time.Time) bool {
	if c.IsExpired(now) || c.Used {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(c.Code), []byte(input)) == 1
}

// MarkUsed returns a copy of the code with the used flag set. All other
// fields are preserved.
func (c VerificationCode) MarkUsed() VerificationCode {
	c.Used = true
	return c
}
