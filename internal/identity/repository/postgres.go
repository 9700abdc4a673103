package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"marketplace-identity/internal/identity/domain"
)

// uniqueViolation is the Postgres error code for a unique constraint breach.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// PostgresUserRepository persists the base identity record in the users
// table. The table carries a unique index on email, so Save reports
// domain.ErrDuplicateEmail instead of racing a separate existence check.
type PostgresUserRepository struct {
	db *sql.DB
}

// NewPostgresUserRepository returns a user repository backed by db.
func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// GetByID returns the base record for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, identity_document, email, full_name, password_hash, role, created_at
		 FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetByEmail returns the base record with the given email, or nil if not found.
func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, identity_document, email, full_name, password_hash, role, created_at
		 FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// ExistsByEmail reports whether any identity, regardless of role, holds email.
func (r *PostgresUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// Save upserts the base record keyed by id. Returns domain.ErrDuplicateEmail
// when the email is held by a different identity.
func (r *PostgresUserRepository) Save(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, identity_document, email, full_name, password_hash, role, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
		   identity_document = EXCLUDED.identity_document,
		   email = EXCLUDED.email,
		   full_name = EXCLUDED.full_name,
		   password_hash = EXCLUDED.password_hash`,
		u.ID, u.IdentityDocument, u.Email, u.FullName, u.PasswordHash, string(u.Role), u.CreatedAt)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateEmail
	}
	return err
}

// DeleteByID removes the base record. Deleting a missing row is not an error.
func (r *PostgresUserRepository) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	var role string
	err := row.Scan(&u.ID, &u.IdentityDocument, &u.Email, &u.FullName, &u.PasswordHash, &role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.Role = domain.Role(role)
	return &u, nil
}

// PostgresAdminRepository persists administrator records.
type PostgresAdminRepository struct {
	db *sql.DB
}

// NewPostgresAdminRepository returns an admin repository backed by db.
func NewPostgresAdminRepository(db *sql.DB) *PostgresAdminRepository {
	return &PostgresAdminRepository{db: db}
}

// GetByID returns the admin record for id, or nil if not found.
func (r *PostgresAdminRepository) GetByID(ctx context.Context, id string) (*domain.Admin, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, identity_document, email, full_name, password_hash, created_at
		 FROM admins WHERE id = $1`, id)
	var a domain.Admin
	err := row.Scan(&a.ID, &a.IdentityDocument, &a.Email, &a.FullName, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	a.Role = domain.RoleAdmin
	return &a, nil
}

// Save upserts the admin record keyed by id.
func (r *PostgresAdminRepository) Save(ctx context.Context, a *domain.Admin) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO admins (id, identity_document, email, full_name, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
		   identity_document = EXCLUDED.identity_document,
		   email = EXCLUDED.email,
		   full_name = EXCLUDED.full_name,
		   password_hash = EXCLUDED.password_hash`,
		a.ID, a.IdentityDocument, a.Email, a.FullName, a.PasswordHash, a.CreatedAt)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateEmail
	}
	return err
}

// DeleteByID removes the admin record.
func (r *PostgresAdminRepository) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM admins WHERE id = $1`, id)
	return err
}

// PostgresCustomerRepository persists customer records.
type PostgresCustomerRepository struct {
	db *sql.DB
}

// NewPostgresCustomerRepository returns a customer repository backed by db.
func NewPostgresCustomerRepository(db *sql.DB) *PostgresCustomerRepository {
	return &PostgresCustomerRepository{db: db}
}

// GetByID returns the customer record for id, or nil if not found.
func (r *PostgresCustomerRepository) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, identity_document, email, full_name, password_hash, phone_number, created_at
		 FROM customers WHERE id = $1`, id)
	var c domain.Customer
	var phone sql.NullString
	err := row.Scan(&c.ID, &c.IdentityDocument, &c.Email, &c.FullName, &c.PasswordHash, &phone, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	c.Role = domain.RoleCustomer
	if phone.Valid {
		c.PhoneNumber = phone.String
	}
	return &c, nil
}

// Save upserts the customer record keyed by id.
func (r *PostgresCustomerRepository) Save(ctx context.Context, c *domain.Customer) error {
	phone := sql.NullString{String: c.PhoneNumber, Valid: c.PhoneNumber != ""}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO customers (id, identity_document, email, full_name, password_hash, phone_number, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
		   identity_document = EXCLUDED.identity_document,
		   email = EXCLUDED.email,
		   full_name = EXCLUDED.full_name,
		   password_hash = EXCLUDED.password_hash,
		   phone_number = EXCLUDED.phone_number`,
		c.ID, c.IdentityDocument, c.Email, c.FullName, c.PasswordHash, phone, c.CreatedAt)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateEmail
	}
	return err
}

// DeleteByID removes the customer record.
func (r *PostgresCustomerRepository) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	return err
}

// PostgresSellerRepository persists seller records.
type PostgresSellerRepository struct {
	db *sql.DB
}

// NewPostgresSellerRepository returns a seller repository backed by db.
func NewPostgresSellerRepository(db *sql.DB) *PostgresSellerRepository {
	return &PostgresSellerRepository{db: db}
}

// GetByID returns the seller record for id, or nil if not found.
func (r *PostgresSellerRepository) GetByID(ctx context.Context, id string) (*domain.Seller, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, identity_document, email, full_name, password_hash, company_name, business_address, approved, created_at
		 FROM sellers WHERE id = $1`, id)
	s, err := scanSellerRow(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// List returns all seller records.
func (r *PostgresSellerRepository) List(ctx context.Context) ([]*domain.Seller, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, identity_document, email, full_name, password_hash, company_name, business_address, approved, created_at
		 FROM sellers ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSellers(rows)
}

// ListByApproved returns sellers filtered by approval state.
func (r *PostgresSellerRepository) ListByApproved(ctx context.Context, approved bool) ([]*domain.Seller, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, identity_document, email, full_name, password_hash, company_name, business_address, approved, created_at
		 FROM sellers WHERE approved = $1 ORDER BY created_at`, approved)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSellers(rows)
}

// Save upserts the seller record keyed by id.
func (r *PostgresSellerRepository) Save(ctx context.Context, s *domain.Seller) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sellers (id, identity_document, email, full_name, password_hash, company_name, business_address, approved, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE SET
		   identity_document = EXCLUDED.identity_document,
		   email = EXCLUDED.email,
		   full_name = EXCLUDED.full_name,
		   password_hash = EXCLUDED.password_hash,
		   company_name = EXCLUDED.company_name,
		   business_address = EXCLUDED.business_address,
		   approved = EXCLUDED.approved`,
		s.ID, s.IdentityDocument, s.Email, s.FullName, s.PasswordHash,
		s.CompanyName, s.BusinessAddress, s.Approved, s.CreatedAt)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateEmail
	}
	return err
}

// DeleteByID removes the seller record.
func (r *PostgresSellerRepository) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sellers WHERE id = $1`, id)
	return err
}

func scanSellerRow(scan func(dest ...any) error) (*domain.Seller, error) {
	var s domain.Seller
	err := scan(&s.ID, &s.IdentityDocument, &s.Email, &s.FullName, &s.PasswordHash,
		&s.CompanyName, &s.BusinessAddress, &s.Approved, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	s.Role = domain.RoleSeller
	return &s, nil
}

func collectSellers(rows *sql.Rows) ([]*domain.Seller, error) {
	var out []*domain.Seller
	for rows.Next() {
		s, err := scanSellerRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
