// Package handler exposes the password reset flow over HTTP.
package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	identitydomain "marketplace-identity/internal/identity/domain"
	"marketplace-identity/internal/reset/service"
)

// ResetHandler manages the password reset endpoints.
type ResetHandler struct {
	resets *service.PasswordResetService
}

// NewResetHandler constructs a ResetHandler.
func NewResetHandler(resets *service.PasswordResetService) *ResetHandler {
	return &ResetHandler{resets: resets}
}

func mapResetErr(err error) error {
	switch {
	case errors.Is(err, service.ErrCodeNotFound):
		return fiber.NewError(fiber.StatusNotFound, "verification code not found")
	case errors.Is(err, service.ErrInvalidCode):
		return fiber.NewError(fiber.StatusBadRequest, "invalid verification code")
	case errors.Is(err, identitydomain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "identity not found")
	}
	return err
}

type requestResetRequest struct {
	Email string `json:"email"`
}

// RequestReset issues a verification code for the email. The response is
// identical whether or not the email exists.
func (h *ResetHandler) RequestReset(c *fiber.Ctx) error {
	var req requestResetRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" {
		return fiber.NewError(fiber.StatusBadRequest, "email is required")
	}

	if err := h.resets.RequestReset(c.Context(), req.Email); err != nil {
		return mapResetErr(err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"success": true})
}

type verifyCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// VerifyCode checks the submitted code and marks it used.
func (h *ResetHandler) VerifyCode(c *fiber.Ctx) error {
	var req verifyCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" || req.Code == "" {
		return fiber.NewError(fiber.StatusBadRequest, "email and code are required")
	}

	if err := h.resets.VerifyCode(c.Context(), req.Email, req.Code); err != nil {
		return mapResetErr(err)
	}
	return c.JSON(fiber.Map{"success": true, "verified": true})
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

// ResetPassword redeems a valid code for a new password.
func (h *ResetHandler) ResetPassword(c *fiber.Ctx) error {
	var req resetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" || req.Code == "" || req.NewPassword == "" {
		return fiber.NewError(fiber.StatusBadRequest, "email, code and new_password are required")
	}

	if err := h.resets.ResetPassword(c.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		return mapResetErr(err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "password updated successfully"})
}
