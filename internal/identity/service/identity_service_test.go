package service

import (
	"context"
	"sync"
	"testing"

	"marketplace-identity/internal/identity/domain"
	"marketplace-identity/internal/security"
)

type memUserRepo struct {
	mu sync.Mutex
	m  map[string]*domain.User
	// enforceUnique makes Save behave like the Postgres repository, which
	// carries a unique index on email.
	enforceUnique bool
	// staleExists makes ExistsByEmail report false, simulating the window
	// between a concurrent writer's check and its write.
	staleExists bool
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{m: make(map[string]*domain.User)}
}

func (r *memUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.m[id], nil
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.m {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if r.staleExists {
		return false, nil
	}
	u, err := r.GetByEmail(ctx, email)
	return u != nil, err
}

func (r *memUserRepo) Save(ctx context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.enforceUnique {
		for _, existing := range r.m {
			if existing.Email == u.Email && existing.ID != u.ID {
				return domain.ErrDuplicateEmail
			}
		}
	}
	u2 := *u
	r.m[u.ID] = &u2
	return nil
}

func (r *memUserRepo) DeleteByID(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, id)
	return nil
}

type memAdminRepo struct {
	mu sync.Mutex
	m  map[string]*domain.Admin
}

func (r *memAdminRepo) GetByID(ctx context.Context, id string) (*domain.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.m[id], nil
}

func (r *memAdminRepo) Save(ctx context.Context, a *domain.Admin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a2 := *a
	r.m[a.ID] = &a2
	return nil
}

func (r *memAdminRepo) DeleteByID(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, id)
	return nil
}

type memCustomerRepo struct {
	mu sync.Mutex
	m  map[string]*domain.Customer
}

func (r *memCustomerRepo) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.m[id], nil
}

func (r *memCustomerRepo) Save(ctx context.Context, c *domain.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c2 := *c
	r.m[c.ID] = &c2
	return nil
}

func (r *memCustomerRepo) DeleteByID(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, id)
	return nil
}

type memSellerRepo struct {
	mu sync.Mutex
	m  map[string]*domain.Seller
}

func (r *memSellerRepo) GetByID(ctx context.Context, id string) (*domain.Seller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.m[id], nil
}

func (r *memSellerRepo) List(ctx context.Context) ([]*domain.Seller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Seller, 0, len(r.m))
	for _, s := range r.m {
		out = append(out, s)
	}
	return out, nil
}

func (r *memSellerRepo) ListByApproved(ctx context.Context, approved bool) ([]*domain.Seller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Seller
	for _, s := range r.m {
		if s.Approved == approved {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memSellerRepo) Save(ctx context.Context, s *domain.Seller) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s2 := *s
	r.m[s.ID] = &s2
	return nil
}

func (r *memSellerRepo) DeleteByID(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, id)
	return nil
}

type testRepos struct {
	users     *memUserRepo
	admins    *memAdminRepo
	customers *memCustomerRepo
	sellers   *memSellerRepo
}

func newTestIdentityService(t *testing.T) (*IdentityService, *testRepos) {
	t.Helper()
	repos := &testRepos{
		users:     newMemUserRepo(),
		admins:    &memAdminRepo{m: make(map[string]*domain.Admin)},
		customers: &memCustomerRepo{m: make(map[string]*domain.Customer)},
		sellers:   &memSellerRepo{m: make(map[string]*domain.Seller)},
	}
	svc := NewIdentityService(repos.users, repos.admins, repos.customers, repos.sellers, security.NewHasher(4))
	return svc, repos
}

func TestIdentityService_CreateAdmin(t *testing.T) {
	svc, repos := newTestIdentityService(t)
	ctx := context.Background()

	admin, err := svc.CreateAdmin(ctx, CreateAdminInput{
		IdentityDocument: "A-100",
		Email:            "Admin@Example.com",
		FullName:         "Ada Admin",
		Password:         "s3cret-pass",
	})
	if err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}
	if admin.ID == "" {
		t.Fatal("expected generated id")
	}
	if admin.Email != "admin@example.com" {
		t.Errorf("email = %q, want lowercased %q", admin.Email, "admin@example.com")
	}
	if admin.Role != domain.RoleAdmin {
		t.Errorf("role = %q, want %q", admin.Role, domain.RoleAdmin)
	}
	if admin.PasswordHash == "s3cret-pass" || admin.PasswordHash == "" {
		t.Error("password should be stored hashed")
	}

	base, _ := repos.users.GetByID(ctx, admin.ID)
	if base == nil {
		t.Fatal("base record should exist after create")
	}
	variant, _ := repos.admins.GetByID(ctx, admin.ID)
	if variant == nil {
		t.Fatal("admin record should exist after create")
	}
	if base.Email != variant.Email || base.PasswordHash != variant.PasswordHash {
		t.Error("base and admin records should agree after create")
	}
}

func TestIdentityService_CreateRejectsDuplicateEmailAcrossRoles(t *testing.T) {
	svc, _ := newTestIdentityService(t)
	ctx := context.Background()

	_, err := svc.CreateAdmin(ctx, CreateAdminInput{
		IdentityDocument: "A-100", Email: "shared@example.com", FullName: "Ada Admin", Password: "pw-one",
	})
	if err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}

	_, err = svc.CreateCustomer(ctx, CreateCustomerInput{
		IdentityDocument: "C-200", Email: "shared@example.com", FullName: "Cory Customer", Password: "pw-two",
	})
	if err != domain.ErrDuplicateEmail {
		t.Errorf("customer with admin's email: want ErrDuplicateEmail, got %v", err)
	}
	_, err = svc.CreateSeller(ctx, CreateSellerInput{
		IdentityDocument: "S-300", Email: "SHARED@example.com", FullName: "Sam Seller",
		Password: "pw-three", CompanyName: "Acme", BusinessAddress: "1 Main St",
	})
	if err != domain.ErrDuplicateEmail {
		t.Errorf("seller with admin's email (different case): want ErrDuplicateEmail, got %v", err)
	}
}

func TestIdentityService_CreateValidation(t *testing.T) {
	svc, repos := newTestIdentityService(t)
	ctx := context.Background()

	_, err := svc.CreateAdmin(ctx, CreateAdminInput{
		IdentityDocument: "A-100", Email: "not-an-email", FullName: "Ada Admin", Password: "pw",
	})
	if err == nil {
		t.Fatal("invalid email should fail")
	}
	_, err = svc.CreateCustomer(ctx, CreateCustomerInput{
		Email: "c@example.com", FullName: "Cory", Password: "pw",
	})
	if err == nil {
		t.Fatal("missing identity document should fail")
	}
	if len(repos.users.m) != 0 {
		t.Error("failed creates should not leave base records behind")
	}
}

func TestIdentityService_CreateSellerStartsUnapproved(t *testing.T) {
	svc, _ := newTestIdentityService(t)
	ctx := context.Background()

	seller, err := svc.CreateSeller(ctx, CreateSellerInput{
		IdentityDocument: "S-300", Email: "s@example.com", FullName: "Sam Seller",
		Password: "pw", CompanyName: "Acme", BusinessAddress: "1 Main St",
	})
	if err != nil {
		t.Fatalf("CreateSeller: %v", err)
	}
	if seller.Approved {
		t.Error("new sellers should start unapproved")
	}
}

func TestIdentityService_GetNotFound(t *testing.T) {
	svc, _ := newTestIdentityService(t)
	ctx := context.Background()

	if _, err := svc.GetAdmin(ctx, "missing"); err != domain.ErrNotFound {
		t.Errorf("GetAdmin: want ErrNotFound, got %v", err)
	}
	if _, err := svc.GetCustomer(ctx, "missing"); err != domain.ErrNotFound {
		t.Errorf("GetCustomer: want ErrNotFound, got %v", err)
	}
	if _, err := svc.GetSeller(ctx, "missing"); err != domain.ErrNotFound {
		t.Errorf("GetSeller: want ErrNotFound, got %v", err)
	}
	if _, err := svc.FindByID(ctx, "missing"); err != domain.ErrNotFound {
		t.Errorf("FindByID: want ErrNotFound, got %v", err)
	}
}

func TestIdentityService_UpdateCustomerPartial(t *testing.T) {
	svc, repos := newTestIdentityService(t)
	ctx := context.Background()

	created, err := svc.CreateCustomer(ctx, CreateCustomerInput{
		IdentityDocument: "C-200", Email: "c@example.com", FullName: "Cory Customer",
		Password: "pw", PhoneNumber: "555-0100",
	})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}

	updated, err := svc.UpdateCustomer(ctx, created.ID, UpdateCustomerInput{PhoneNumber: "555-0199"})
	if err != nil {
		t.Fatalf("UpdateCustomer: %v", err)
	}
	if updated.PhoneNumber != "555-0199" {
		t.Errorf("phone = %q, want %q", updated.PhoneNumber, "555-0199")
	}
	if updated.Email != "c@example.com" || updated.FullName != "Cory Customer" || updated.IdentityDocument != "C-200" {
		t.Error("unsupplied fields should keep their prior values")
	}

	base, _ := repos.users.GetByID(ctx, created.ID)
	if base == nil || base.Email != updated.Email {
		t.Error("base record should be rewritten on update")
	}
}

func TestIdentityService_UpdateEmailChecksUniqueness(t *testing.T) {
	svc, _ := newTestIdentityService(t)
	ctx := context.Background()

	_, err := svc.CreateAdmin(ctx, CreateAdminInput{
		IdentityDocument: "A-100", Email: "taken@example.com", FullName: "Ada Admin", Password: "pw",
	})
	if err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}
	customer, err := svc.CreateCustomer(ctx, CreateCustomerInput{
		IdentityDocument: "C-200", Email: "c@example.com", FullName: "Cory Customer", Password: "pw",
	})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}

	_, err = svc.UpdateCustomer(ctx, customer.ID, UpdateCustomerInput{Email: "taken@example.com"})
	if err != domain.ErrDuplicateEmail {
		t.Errorf("update to taken email: want ErrDuplicateEmail, got %v", err)
	}

	// Re-submitting the current email is not a change and must not collide
	// with the identity's own record.
	if _, err := svc.UpdateCustomer(ctx, customer.ID, UpdateCustomerInput{Email: "c@example.com"}); err != nil {
		t.Errorf("update with own email: %v", err)
	}
}

func TestIdentityService_UpdateSellerApproval(t *testing.T) {
	svc, _ := newTestIdentityService(t)
	ctx := context.Background()

	seller, err := svc.CreateSeller(ctx, CreateSellerInput{
		IdentityDocument: "S-300", Email: "s@example.com", FullName: "Sam Seller",
		Password: "pw", CompanyName: "Acme", BusinessAddress: "1 Main St",
	})
	if err != nil {
		t.Fatalf("CreateSeller: %v", err)
	}

	approved := true
	updated, err := svc.UpdateSeller(ctx, seller.ID, UpdateSellerInput{Approved: &approved})
	if err != nil {
		t.Fatalf("UpdateSeller: %v", err)
	}
	if !updated.Approved {
		t.Fatal("seller should be approved")
	}
	if updated.CompanyName != "Acme" {
		t.Error("unsupplied seller fields should keep their prior values")
	}

	revoked := false
	updated, err = svc.UpdateSeller(ctx, seller.ID, UpdateSellerInput{Approved: &revoked})
	if err != nil {
		t.Fatalf("UpdateSeller revoke: %v", err)
	}
	if updated.Approved {
		t.Error("explicit false should revoke approval")
	}
}

func TestIdentityService_Delete(t *testing.T) {
	svc, repos := newTestIdentityService(t)
	ctx := context.Background()

	seller, err := svc.CreateSeller(ctx, CreateSellerInput{
		IdentityDocument: "S-300", Email: "s@example.com", FullName: "Sam Seller",
		Password: "pw", CompanyName: "Acme", BusinessAddress: "1 Main St",
	})
	if err != nil {
		t.Fatalf("CreateSeller: %v", err)
	}

	if err := svc.DeleteSeller(ctx, seller.ID); err != nil {
		t.Fatalf("DeleteSeller: %v", err)
	}
	if u, _ := repos.users.GetByID(ctx, seller.ID); u != nil {
		t.Error("base record should be gone after delete")
	}
	if s, _ := repos.sellers.GetByID(ctx, seller.ID); s != nil {
		t.Error("seller record should be gone after delete")
	}

	if err := svc.DeleteSeller(ctx, seller.ID); err != domain.ErrNotFound {
		t.Errorf("second delete: want ErrNotFound, got %v", err)
	}
}

func TestIdentityService_DeleteIsRoleScoped(t *testing.T) {
	svc, repos := newTestIdentityService(t)
	ctx := context.Background()

	customer, err := svc.CreateCustomer(ctx, CreateCustomerInput{
		IdentityDocument: "C-200", Email: "c@example.com", FullName: "Cory Customer", Password: "pw",
	})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}

	// A customer id cannot be deleted through the admin or seller paths.
	if err := svc.DeleteAdmin(ctx, customer.ID); err != domain.ErrNotFound {
		t.Errorf("DeleteAdmin with customer id: want ErrNotFound, got %v", err)
	}
	if err := svc.DeleteSeller(ctx, customer.ID); err != domain.ErrNotFound {
		t.Errorf("DeleteSeller with customer id: want ErrNotFound, got %v", err)
	}
	if u, _ := repos.users.GetByID(ctx, customer.ID); u == nil {
		t.Fatal("base record should survive mismatched-role deletes")
	}
	if c, _ := repos.customers.GetByID(ctx, customer.ID); c == nil {
		t.Fatal("customer record should survive mismatched-role deletes")
	}

	if err := svc.DeleteCustomer(ctx, customer.ID); err != nil {
		t.Fatalf("DeleteCustomer: %v", err)
	}
}

func TestIdentityService_DeleteRequiresVariantRecord(t *testing.T) {
	svc, repos := newTestIdentityService(t)
	ctx := context.Background()

	admin, err := svc.CreateAdmin(ctx, CreateAdminInput{
		IdentityDocument: "A-100", Email: "a@example.com", FullName: "Ada Admin", Password: "pw",
	})
	if err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}

	// Simulate a half-deleted identity: admin record gone, base record left.
	if err := repos.admins.DeleteByID(ctx, admin.ID); err != nil {
		t.Fatalf("DeleteByID: %v", err)
	}
	if err := svc.DeleteAdmin(ctx, admin.ID); err != domain.ErrNotFound {
		t.Errorf("delete with missing admin record: want ErrNotFound, got %v", err)
	}
}

func TestIdentityService_ListSellersByApproved(t *testing.T) {
	svc, _ := newTestIdentityService(t)
	ctx := context.Background()

	first, err := svc.CreateSeller(ctx, CreateSellerInput{
		IdentityDocument: "S-1", Email: "s1@example.com", FullName: "Sam One",
		Password: "pw", CompanyName: "Acme", BusinessAddress: "1 Main St",
	})
	if err != nil {
		t.Fatalf("CreateSeller: %v", err)
	}
	if _, err := svc.CreateSeller(ctx, CreateSellerInput{
		IdentityDocument: "S-2", Email: "s2@example.com", FullName: "Sam Two",
		Password: "pw", CompanyName: "Globex", BusinessAddress: "2 Main St",
	}); err != nil {
		t.Fatalf("CreateSeller: %v", err)
	}

	approved := true
	if _, err := svc.UpdateSeller(ctx, first.ID, UpdateSellerInput{Approved: &approved}); err != nil {
		t.Fatalf("UpdateSeller: %v", err)
	}

	all, err := svc.ListSellers(ctx)
	if err != nil {
		t.Fatalf("ListSellers: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("ListSellers returned %d sellers, want 2", len(all))
	}
	got, err := svc.ListSellersByApproved(ctx, true)
	if err != nil {
		t.Fatalf("ListSellersByApproved: %v", err)
	}
	if len(got) != 1 || got[0].ID != first.ID {
		t.Errorf("approved sellers = %v, want only %q", got, first.ID)
	}
	pending, err := svc.ListSellersByApproved(ctx, false)
	if err != nil {
		t.Fatalf("ListSellersByApproved: %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("pending sellers = %d, want 1", len(pending))
	}
}

func TestIdentityService_ChangePasswordUpdatesBaseOnly(t *testing.T) {
	svc, repos := newTestIdentityService(t)
	ctx := context.Background()

	customer, err := svc.CreateCustomer(ctx, CreateCustomerInput{
		IdentityDocument: "C-200", Email: "c@example.com", FullName: "Cory Customer", Password: "pw",
	})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}

	updated, err := svc.ChangePassword(ctx, customer.ID, "new-hash")
	if err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if updated.PasswordHash != "new-hash" {
		t.Errorf("hash = %q, want %q", updated.PasswordHash, "new-hash")
	}
	base, _ := repos.users.GetByID(ctx, customer.ID)
	if base.PasswordHash != "new-hash" {
		t.Error("base record should carry the new hash")
	}

	if _, err := svc.ChangePassword(ctx, "missing", "x"); err != domain.ErrNotFound {
		t.Errorf("ChangePassword missing id: want ErrNotFound, got %v", err)
	}
}

// TestIdentityService_SaveLevelUniquenessBackstop documents that the
// existence check and the base write are not atomic: a store that enforces
// uniqueness on write (as the Postgres repository does) still rejects the
// colliding record even after the check passed.
func TestIdentityService_SaveLevelUniquenessBackstop(t *testing.T) {
	svc, repos := newTestIdentityService(t)
	repos.users.enforceUnique = true
	ctx := context.Background()

	if _, err := svc.CreateAdmin(ctx, CreateAdminInput{
		IdentityDocument: "A-100", Email: "a@example.com", FullName: "Ada Admin", Password: "pw",
	}); err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}

	// Blind the existence check, the way a concurrent create slipping in
	// between check and write would.
	repos.users.staleExists = true

	_, err := svc.CreateCustomer(ctx, CreateCustomerInput{
		IdentityDocument: "C-200", Email: "a@example.com", FullName: "Cory Customer", Password: "pw",
	})
	if err != domain.ErrDuplicateEmail {
		t.Errorf("colliding write: want ErrDuplicateEmail, got %v", err)
	}
}
