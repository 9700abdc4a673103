package domain

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// User is the base identity record shared by all roles. Every user exists
// both as a User row and as a role-specific record that must agree on ID,
// Email, PasswordHash, and CreatedAt.
type User struct {
	ID               string
	IdentityDocument string
	Email            string
	FullName         string
	PasswordHash     string
	Role             Role
	CreatedAt        time.Time
}

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
	RoleSeller   Role = "seller"
)

// Admin has no fields beyond the base record.
type Admin struct {
	User
}

// Customer extends the base record with a contact phone number.
type Customer struct {
	User
	PhoneNumber string
}

// Seller extends the base record with company details and an approval flag
// (sellers start unapproved and are approved by an administrator).
type Seller struct {
	User
	CompanyName     string
	BusinessAddress string
	Approved        bool
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidEmail reports whether email matches the accepted grammar.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// Validate checks the base record for persistence. Returns an error
// describing the first validation failure.
func (u *User) Validate() error {
	if u.ID == "" {
		return errors.New("user id is required")
	}
	if strings.TrimSpace(u.IdentityDocument) == "" {
		return errors.New("identity document is required")
	}
	if !ValidEmail(u.Email) {
		return errors.New("invalid email format")
	}
	if strings.TrimSpace(u.FullName) == "" {
		return errors.New("full name is required")
	}
	if u.PasswordHash == "" {
		return errors.New("password hash is required")
	}
	switch u.Role {
	case RoleAdmin, RoleCustomer, RoleSeller:
	default:
		return errors.New("unknown role")
	}
	return nil
}

// ChangePassword replaces the password hash, the only mutable field on the
// record.
func (u *User) ChangePassword(newHash string) {
	u.PasswordHash = newHash
}
