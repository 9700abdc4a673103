package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"marketplace-identity/internal/identity/domain"
	"marketplace-identity/internal/identity/repository"
)

// Hasher is the password hashing capability needed by the identity services.
type Hasher interface {
	HashPassword(password string) (string, error)
	VerifyPassword(password, hash string) bool
}

// IdentityService owns the dual-store identity model: every identity is a
// role-specific record plus a shared base record. Writes go to the role
// store first, then the base store; a base-write failure leaves the role
// record orphaned until the operation is retried (no distributed
// transaction, eventual consistency accepted).
//
// Email uniqueness across all roles is checked with ExistsByEmail before
// writing. The check and the write are not atomic; the Postgres user
// repository closes the gap with a unique index, the in-memory fakes used in
// tests do not.
type IdentityService struct {
	users     repository.UserRepository
	admins    repository.AdminRepository
	customers repository.CustomerRepository
	sellers   repository.SellerRepository
	hasher    Hasher
}

// NewIdentityService returns an IdentityService over the given repositories.
func NewIdentityService(
	users repository.UserRepository,
	admins repository.AdminRepository,
	customers repository.CustomerRepository,
	sellers repository.SellerRepository,
	hasher Hasher,
) *IdentityService {
	return &IdentityService{
		users:     users,
		admins:    admins,
		customers: customers,
		sellers:   sellers,
		hasher:    hasher,
	}
}

// CreateAdminInput carries the fields for a new administrator.
type CreateAdminInput struct {
	IdentityDocument string
	Email            string
	FullName         string
	Password         string
}

// CreateAdmin registers a new administrator. Fails with
// domain.ErrDuplicateEmail when any identity already holds the email.
func (s *IdentityService) CreateAdmin(ctx context.Context, in CreateAdminInput) (*domain.Admin, error) {
	base, err := s.newBaseUser(ctx, in.IdentityDocument, in.Email, in.FullName, in.Password, domain.RoleAdmin)
	if err != nil {
		return nil, err
	}
	admin := &domain.Admin{User: *base}
	if err := s.admins.Save(ctx, admin); err != nil {
		return nil, err
	}
	if err := s.users.Save(ctx, base); err != nil {
		return nil, err
	}
	return admin, nil
}

// CreateCustomerInput carries the fields for a new customer.
type CreateCustomerInput struct {
	IdentityDocument string
	Email            string
	FullName         string
	Password         string
	PhoneNumber      string
}

// CreateCustomer registers a new customer.
func (s *IdentityService) CreateCustomer(ctx context.Context, in CreateCustomerInput) (*domain.Customer, error) {
	base, err := s.newBaseUser(ctx, in.IdentityDocument, in.Email, in.FullName, in.Password, domain.RoleCustomer)
	if err != nil {
		return nil, err
	}
	customer := &domain.Customer{User: *base, PhoneNumber: in.PhoneNumber}
	if err := s.customers.Save(ctx, customer); err != nil {
		return nil, err
	}
	if err := s.users.Save(ctx, base); err != nil {
		return nil, err
	}
	return customer, nil
}

// CreateSellerInput carries the fields for a new seller.
type CreateSellerInput struct {
	IdentityDocument string
	Email            string
	FullName         string
	Password         string
	CompanyName      string
	BusinessAddress  string
}

// CreateSeller registers a new seller. Sellers start unapproved.
func (s *IdentityService) CreateSeller(ctx context.Context, in CreateSellerInput) (*domain.Seller, error) {
	base, err := s.newBaseUser(ctx, in.IdentityDocument, in.Email, in.FullName, in.Password, domain.RoleSeller)
	if err != nil {
		return nil, err
	}
	seller := &domain.Seller{
		User:            *base,
		CompanyName:     in.CompanyName,
		BusinessAddress: in.BusinessAddress,
		Approved:        false,
	}
	if err := s.sellers.Save(ctx, seller); err != nil {
		return nil, err
	}
	if err := s.users.Save(ctx, base); err != nil {
		return nil, err
	}
	return seller, nil
}

func (s *IdentityService) newBaseUser(ctx context.Context, doc, email, fullName, password string, role domain.Role) (*domain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrDuplicateEmail
	}
	hash, err := s.hasher.HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &domain.User{
		ID:               uuid.New().String(),
		IdentityDocument: strings.TrimSpace(doc),
		Email:            email,
		FullName:         strings.TrimSpace(fullName),
		PasswordHash:     hash,
		Role:             role,
		CreatedAt:        time.Now().UTC(),
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u, nil
}

// FindByID returns the base identity record for id, or domain.ErrNotFound.
func (s *IdentityService) FindByID(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

// ExistsByEmail reports whether any identity holds the email.
func (s *IdentityService) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return s.users.ExistsByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
}

// GetAdmin returns the administrator for id, or domain.ErrNotFound.
func (s *IdentityService) GetAdmin(ctx context.Context, id string) (*domain.Admin, error) {
	a, err := s.admins.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, domain.ErrNotFound
	}
	return a, nil
}

// GetCustomer returns the customer for id, or domain.ErrNotFound.
func (s *IdentityService) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	c, err := s.customers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

// GetSeller returns the seller for id, or domain.ErrNotFound.
func (s *IdentityService) GetSeller(ctx context.Context, id string) (*domain.Seller, error) {
	sl, err := s.sellers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sl == nil {
		return nil, domain.ErrNotFound
	}
	return sl, nil
}

// ListSellers returns all sellers.
func (s *IdentityService) ListSellers(ctx context.Context) ([]*domain.Seller, error) {
	return s.sellers.List(ctx)
}

// ListSellersByApproved returns sellers filtered by approval state.
func (s *IdentityService) ListSellersByApproved(ctx context.Context, approved bool) ([]*domain.Seller, error) {
	return s.sellers.ListByApproved(ctx, approved)
}

// UpdateAdminInput carries a partial administrator update. Empty fields keep
// their prior values.
type UpdateAdminInput struct {
	IdentityDocument string
	Email            string
	FullName         string
}

// UpdateAdmin applies a partial update. Fails with domain.ErrNotFound when
// the admin record is absent and domain.ErrDuplicateEmail when a changed
// email collides with another identity.
func (s *IdentityService) UpdateAdmin(ctx context.Context, id string, in UpdateAdminInput) (*domain.Admin, error) {
	admin, err := s.admins.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if admin == nil {
		return nil, domain.ErrNotFound
	}
	if err := s.applyBaseUpdate(ctx, &admin.User, in.IdentityDocument, in.Email, in.FullName); err != nil {
		return nil, err
	}
	if err := s.admins.Save(ctx, admin); err != nil {
		return nil, err
	}
	if err := s.users.Save(ctx, &admin.User); err != nil {
		return nil, err
	}
	return admin, nil
}

// UpdateCustomerInput carries a partial customer update.
type UpdateCustomerInput struct {
	IdentityDocument string
	Email            string
	FullName         string
	PhoneNumber      string
}

// UpdateCustomer applies a partial update to a customer.
func (s *IdentityService) UpdateCustomer(ctx context.Context, id string, in UpdateCustomerInput) (*domain.Customer, error) {
	customer, err := s.customers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, domain.ErrNotFound
	}
	if err := s.applyBaseUpdate(ctx, &customer.User, in.IdentityDocument, in.Email, in.FullName); err != nil {
		return nil, err
	}
	if in.PhoneNumber != "" {
		customer.PhoneNumber = in.PhoneNumber
	}
	if err := s.customers.Save(ctx, customer); err != nil {
		return nil, err
	}
	if err := s.users.Save(ctx, &customer.User); err != nil {
		return nil, err
	}
	return customer, nil
}

// UpdateSellerInput carries a partial seller update. Approved is a pointer
// because false is a meaningful value (revoking approval).
type UpdateSellerInput struct {
	IdentityDocument string
	Email            string
	FullName         string
	CompanyName      string
	BusinessAddress  string
	Approved         *bool
}

// UpdateSeller applies a partial update to a seller, including the
// approval flag.
func (s *IdentityService) UpdateSeller(ctx context.Context, id string, in UpdateSellerInput) (*domain.Seller, error) {
	seller, err := s.sellers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if seller == nil {
		return nil, domain.ErrNotFound
	}
	if err := s.applyBaseUpdate(ctx, &seller.User, in.IdentityDocument, in.Email, in.FullName); err != nil {
		return nil, err
	}
	if in.CompanyName != "" {
		seller.CompanyName = in.CompanyName
	}
	if in.BusinessAddress != "" {
		seller.BusinessAddress = in.BusinessAddress
	}
	if in.Approved != nil {
		seller.Approved = *in.Approved
	}
	if err := s.sellers.Save(ctx, seller); err != nil {
		return nil, err
	}
	if err := s.users.Save(ctx, &seller.User); err != nil {
		return nil, err
	}
	return seller, nil
}

// applyBaseUpdate overwrites the supplied non-empty base fields on u,
// re-checking email uniqueness when the email actually changes.
func (s *IdentityService) applyBaseUpdate(ctx context.Context, u *domain.User, doc, email, fullName string) error {
	if doc != "" {
		u.IdentityDocument = strings.TrimSpace(doc)
	}
	if email != "" {
		email = strings.TrimSpace(strings.ToLower(email))
		if email != u.Email {
			exists, err := s.users.ExistsByEmail(ctx, email)
			if err != nil {
				return err
			}
			if exists {
				return domain.ErrDuplicateEmail
			}
			u.Email = email
		}
	}
	if fullName != "" {
		u.FullName = strings.TrimSpace(fullName)
	}
	return u.Validate()
}

// DeleteAdmin removes an administrator: the admin record first, then the
// base record. Fails with domain.ErrNotFound when no admin record exists for
// id, so an id belonging to another role cannot be deleted through this
// path.
func (s *IdentityService) DeleteAdmin(ctx context.Context, id string) error {
	a, err := s.admins.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if a == nil {
		return domain.ErrNotFound
	}
	if err := s.admins.DeleteByID(ctx, id); err != nil {
		return err
	}
	return s.users.DeleteByID(ctx, id)
}

// DeleteCustomer removes a customer: the customer record first, then the
// base record.
func (s *IdentityService) DeleteCustomer(ctx context.Context, id string) error {
	c, err := s.customers.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if c == nil {
		return domain.ErrNotFound
	}
	if err := s.customers.DeleteByID(ctx, id); err != nil {
		return err
	}
	return s.users.DeleteByID(ctx, id)
}

// DeleteSeller removes a seller: the seller record first, then the base
// record.
func (s *IdentityService) DeleteSeller(ctx context.Context, id string) error {
	sl, err := s.sellers.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if sl == nil {
		return domain.ErrNotFound
	}
	if err := s.sellers.DeleteByID(ctx, id); err != nil {
		return err
	}
	return s.users.DeleteByID(ctx, id)
}

// ChangePassword replaces the password hash on the base record. The base
// store is authoritative for password reads, so the role record is left
// untouched.
func (s *IdentityService) ChangePassword(ctx context.Context, id, newHash string) (*domain.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.ErrNotFound
	}
	u.ChangePassword(newHash)
	if err := s.users.Save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
