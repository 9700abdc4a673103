// Package handler exposes the identity services over HTTP.
package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"marketplace-identity/internal/identity/domain"
	"marketplace-identity/internal/identity/service"
)

// IdentityHandler manages the per-role identity endpoints and the
// credential endpoints.
type IdentityHandler struct {
	identities  *service.IdentityService
	credentials *service.CredentialService
}

// NewIdentityHandler constructs an IdentityHandler.
func NewIdentityHandler(identities *service.IdentityService, credentials *service.CredentialService) *IdentityHandler {
	return &IdentityHandler{identities: identities, credentials: credentials}
}

// mapServiceErr translates service sentinels into HTTP errors. Unknown
// errors pass through to Fiber's error handler as 500s.
func mapServiceErr(err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "identity not found")
	case errors.Is(err, domain.ErrDuplicateEmail):
		return fiber.NewError(fiber.StatusConflict, "email already registered")
	case errors.Is(err, service.ErrInvalidCredentials):
		return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
	}
	return err
}

func userJSON(u *domain.User) fiber.Map {
	return fiber.Map{
		"id":                u.ID,
		"identity_document": u.IdentityDocument,
		"email":             u.Email,
		"full_name":         u.FullName,
		"role":              u.Role,
		"created_at":        u.CreatedAt,
	}
}

func adminJSON(a *domain.Admin) fiber.Map {
	return userJSON(&a.User)
}

func customerJSON(c *domain.Customer) fiber.Map {
	m := userJSON(&c.User)
	m["phone_number"] = c.PhoneNumber
	return m
}

func sellerJSON(s *domain.Seller) fiber.Map {
	m := userJSON(&s.User)
	m["company_name"] = s.CompanyName
	m["business_address"] = s.BusinessAddress
	m["approved"] = s.Approved
	return m
}

type createAdminRequest struct {
	IdentityDocument string `json:"identity_document"`
	Email            string `json:"email"`
	FullName         string `json:"full_name"`
	Password         string `json:"password"`
}

// CreateAdmin registers a new administrator.
func (h *IdentityHandler) CreateAdmin(c *fiber.Ctx) error {
	var req createAdminRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.IdentityDocument == "" || req.Email == "" || req.FullName == "" || req.Password == "" {
		return fiber.NewError(fiber.StatusBadRequest, "identity_document, email, full_name and password are required")
	}
	if !domain.ValidEmail(req.Email) {
		return fiber.NewError(fiber.StatusBadRequest, "invalid email")
	}

	admin, err := h.identities.CreateAdmin(c.Context(), service.CreateAdminInput{
		IdentityDocument: req.IdentityDocument,
		Email:            req.Email,
		FullName:         req.FullName,
		Password:         req.Password,
	})
	if err != nil {
		return mapServiceErr(err)
	}
	return c.Status(fiber.StatusCreated).JSON(adminJSON(admin))
}

// GetAdmin returns an administrator by id.
func (h *IdentityHandler) GetAdmin(c *fiber.Ctx) error {
	admin, err := h.identities.GetAdmin(c.Context(), c.Params("id"))
	if err != nil {
		return mapServiceErr(err)
	}
	return c.JSON(adminJSON(admin))
}

type updateAdminRequest struct {
	IdentityDocument string `json:"identity_document"`
	Email            string `json:"email"`
	FullName         string `json:"full_name"`
}

// UpdateAdmin applies a partial update to an administrator.
func (h *IdentityHandler) UpdateAdmin(c *fiber.Ctx) error {
	var req updateAdminRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Email != "" && !domain.ValidEmail(req.Email) {
		return fiber.NewError(fiber.StatusBadRequest, "invalid email")
	}

	admin, err := h.identities.UpdateAdmin(c.Context(), c.Params("id"), service.UpdateAdminInput{
		IdentityDocument: req.IdentityDocument,
		Email:            req.Email,
		FullName:         req.FullName,
	})
	if err != nil {
		return mapServiceErr(err)
	}
	return c.JSON(adminJSON(admin))
}

type createCustomerRequest struct {
	IdentityDocument string `json:"identity_document"`
	Email            string `json:"email"`
	FullName         string `json:"full_name"`
	Password         string `json:"password"`
	PhoneNumber      string `json:"phone_number"`
}

// CreateCustomer registers a new customer.
func (h *IdentityHandler) CreateCustomer(c *fiber.Ctx) error {
	var req createCustomerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.IdentityDocument == "" || req.Email == "" || req.FullName == "" || req.Password == "" {
		return fiber.NewError(fiber.StatusBadRequest, "identity_document, email, full_name and password are required")
	}
	if !domain.ValidEmail(req.Email) {
		return fiber.NewError(fiber.StatusBadRequest, "invalid email")
	}

	customer, err := h.identities.CreateCustomer(c.Context(), service.CreateCustomerInput{
		IdentityDocument: req.IdentityDocument,
		Email:            req.Email,
		FullName:         req.FullName,
		Password:         req.Password,
		PhoneNumber:      req.PhoneNumber,
	})
	if err != nil {
		return mapServiceErr(err)
	}
	return c.Status(fiber.StatusCreated).JSON(customerJSON(customer))
}

// GetCustomer returns a customer by id.
func (h *IdentityHandler) GetCustomer(c *fiber.Ctx) error {
	customer, err := h.identities.GetCustomer(c.Context(), c.Params("id"))
	if err != nil {
		return mapServiceErr(err)
	}
	return c.JSON(customerJSON(customer))
}

type updateCustomerRequest struct {
	IdentityDocument string `json:"identity_document"`
	Email            string `json:"email"`
	FullName         string `json:"full_name"`
	PhoneNumber      string `json:"phone_number"`
}

// UpdateCustomer applies a partial update to a customer.
func (h *IdentityHandler) UpdateCustomer(c *fiber.Ctx) error {
	var req updateCustomerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Email != "" && !domain.ValidEmail(req.Email) {
		return fiber.NewError(fiber.StatusBadRequest, "invalid email")
	}

	customer, err := h.identities.UpdateCustomer(c.Context(), c.Params("id"), service.UpdateCustomerInput{
		IdentityDocument: req.IdentityDocument,
		Email:            req.Email,
		FullName:         req.FullName,
		PhoneNumber:      req.PhoneNumber,
	})
	if err != nil {
		return mapServiceErr(err)
	}
	return c.JSON(customerJSON(customer))
}

type createSellerRequest struct {
	IdentityDocument string `json:"identity_document"`
	Email            string `json:"email"`
	FullName         string `json:"full_name"`
	Password         string `json:"password"`
	CompanyName      string `json:"company_name"`
	BusinessAddress  string `json:"business_address"`
}

// CreateSeller registers a new seller.
func (h *IdentityHandler) CreateSeller(c *fiber.Ctx) error {
	var req createSellerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.IdentityDocument == "" || req.Email == "" || req.FullName == "" || req.Password == "" {
		return fiber.NewError(fiber.StatusBadRequest, "identity_document, email, full_name and password are required")
	}
	if !domain.ValidEmail(req.Email) {
		return fiber.NewError(fiber.StatusBadRequest, "invalid email")
	}

	seller, err := h.identities.CreateSeller(c.Context(), service.CreateSellerInput{
		IdentityDocument: req.IdentityDocument,
		Email:            req.Email,
		FullName:         req.FullName,
		Password:         req.Password,
		CompanyName:      req.CompanyName,
		BusinessAddress:  req.BusinessAddress,
	})
	if err != nil {
		return mapServiceErr(err)
	}
	return c.Status(fiber.StatusCreated).JSON(sellerJSON(seller))
}

// GetSeller returns a seller by id.
func (h *IdentityHandler) GetSeller(c *fiber.Ctx) error {
	seller, err := h.identities.GetSeller(c.Context(), c.Params("id"))
	if err != nil {
		return mapServiceErr(err)
	}
	return c.JSON(sellerJSON(seller))
}

// ListSellers returns all sellers, optionally filtered by ?approved=true|false.
func (h *IdentityHandler) ListSellers(c *fiber.Ctx) error {
	var (
		sellers []*domain.Seller
		err     error
	)
	switch c.Query("approved") {
	case "":
		sellers, err = h.identities.ListSellers(c.Context())
	case "true":
		sellers, err = h.identities.ListSellersByApproved(c.Context(), true)
	case "false":
		sellers, err = h.identities.ListSellersByApproved(c.Context(), false)
	default:
		return fiber.NewError(fiber.StatusBadRequest, "approved must be true or false")
	}
	if err != nil {
		return mapServiceErr(err)
	}
	out := make([]fiber.Map, 0, len(sellers))
	for _, s := range sellers {
		out = append(out, sellerJSON(s))
	}
	return c.JSON(fiber.Map{"sellers": out})
}

type updateSellerRequest struct {
	IdentityDocument string `json:"identity_document"`
	Email            string `json:"email"`
	FullName         string `json:"full_name"`
	CompanyName      string `json:"company_name"`
	BusinessAddress  string `json:"business_address"`
	Approved         *bool  `json:"approved"`
}

// UpdateSeller applies a partial update to a seller, including the approval
// flag.
func (h *IdentityHandler) UpdateSeller(c *fiber.Ctx) error {
	var req updateSellerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Email != "" && !domain.ValidEmail(req.Email) {
		return fiber.NewError(fiber.StatusBadRequest, "invalid email")
	}

	seller, err := h.identities.UpdateSeller(c.Context(), c.Params("id"), service.UpdateSellerInput{
		IdentityDocument: req.IdentityDocument,
		Email:            req.Email,
		FullName:         req.FullName,
		CompanyName:      req.CompanyName,
		BusinessAddress:  req.BusinessAddress,
		Approved:         req.Approved,
	})
	if err != nil {
		return mapServiceErr(err)
	}
	return c.JSON(sellerJSON(seller))
}

// DeleteAdmin removes an administrator by id. Ids belonging to another role
// return 404.
func (h *IdentityHandler) DeleteAdmin(c *fiber.Ctx) error {
	if err := h.identities.DeleteAdmin(c.Context(), c.Params("id")); err != nil {
		return mapServiceErr(err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// DeleteCustomer removes a customer by id.
func (h *IdentityHandler) DeleteCustomer(c *fiber.Ctx) error {
	if err := h.identities.DeleteCustomer(c.Context(), c.Params("id")); err != nil {
		return mapServiceErr(err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// DeleteSeller removes a seller by id.
func (h *IdentityHandler) DeleteSeller(c *fiber.Ctx) error {
	if err := h.identities.DeleteSeller(c.Context(), c.Params("id")); err != nil {
		return mapServiceErr(err)
	}
	return c.JSON(fiber.Map{"success": true})
}

type verifyCredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// VerifyCredentials checks an email/password pair and returns the matching
// identity. The stored hash is never included in the response.
func (h *IdentityHandler) VerifyCredentials(c *fiber.Ctx) error {
	var req verifyCredentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return fiber.NewError(fiber.StatusBadRequest, "email and password are required")
	}

	u, err := h.credentials.Verify(c.Context(), req.Email, req.Password)
	if err != nil {
		return mapServiceErr(err)
	}
	return c.JSON(userJSON(u))
}

// GetCredentials returns the identity holding ?email=.
func (h *IdentityHandler) GetCredentials(c *fiber.Ctx) error {
	email := c.Query("email")
	if email == "" {
		return fiber.NewError(fiber.StatusBadRequest, "email is required")
	}
	u, err := h.credentials.GetByEmail(c.Context(), email)
	if err != nil {
		return mapServiceErr(err)
	}
	return c.JSON(userJSON(u))
}

type changePasswordRequest struct {
	ID          string `json:"id"`
	NewPassword string `json:"new_password"`
}

// ChangePassword sets a new password for the identity with the given id.
func (h *IdentityHandler) ChangePassword(c *fiber.Ctx) error {
	var req changePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.ID == "" || req.NewPassword == "" {
		return fiber.NewError(fiber.StatusBadRequest, "id and new_password are required")
	}

	if err := h.credentials.ChangePassword(c.Context(), req.ID, req.NewPassword); err != nil {
		return mapServiceErr(err)
	}
	return c.JSON(fiber.Map{"success": true})
}
