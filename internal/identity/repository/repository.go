package repository

import (
	"context"

	"marketplace-identity/internal/identity/domain"
)

// UserRepository defines persistence for the shared base identity record.
// Get methods return nil when no record exists; errors are reserved for
// storage failures (except ErrDuplicateEmail, see Save).
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// Save upserts the base record. Implementations with a unique email
	// constraint return domain.ErrDuplicateEmail when a different identity
	// already holds the email.
	Save(ctx context.Context, u *domain.User) error
	DeleteByID(ctx context.Context, id string) error
}

// AdminRepository defines persistence for administrator records.
type AdminRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Admin, error)
	Save(ctx context.Context, a *domain.Admin) error
	DeleteByID(ctx context.Context, id string) error
}

// CustomerRepository defines persistence for customer records.
type CustomerRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Customer, error)
	Save(ctx context.Context, c *domain.Customer) error
	DeleteByID(ctx context.Context, id string) error
}

// SellerRepository defines persistence for seller records, including the
// approval-workflow listings.
type SellerRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Seller, error)
	List(ctx context.Context) ([]*domain.Seller, error)
	ListByApproved(ctx context.Context, approved bool) ([]*domain.Seller, error)
	Save(ctx context.Context, s *domain.Seller) error
	DeleteByID(ctx context.Context, id string) error
}
