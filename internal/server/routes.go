// Package server wires repositories, services and HTTP routes into a Fiber app.
package server

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"marketplace-identity/internal/config"
	"marketplace-identity/internal/events"
	identityhandler "marketplace-identity/internal/identity/handler"
	identityrepo "marketplace-identity/internal/identity/repository"
	identityservice "marketplace-identity/internal/identity/service"
	"marketplace-identity/internal/reset"
	resethandler "marketplace-identity/internal/reset/handler"
	resetservice "marketplace-identity/internal/reset/service"
	"marketplace-identity/internal/security"
)

// Register wires up all HTTP routes. publisher may be nil when eventing is
// disabled.
func Register(app *fiber.App, db *sql.DB, cfg *config.Config, publisher events.Publisher) {
	hasher := security.NewHasher(cfg.BcryptCost)

	userRepo := identityrepo.NewPostgresUserRepository(db)
	adminRepo := identityrepo.NewPostgresAdminRepository(db)
	customerRepo := identityrepo.NewPostgresCustomerRepository(db)
	sellerRepo := identityrepo.NewPostgresSellerRepository(db)

	identities := identityservice.NewIdentityService(userRepo, adminRepo, customerRepo, sellerRepo, hasher)
	credentials := identityservice.NewCredentialService(userRepo, hasher)
	resets := resetservice.NewPasswordResetService(reset.NewMemoryStore(), userRepo, hasher, publisher)

	identityH := identityhandler.NewIdentityHandler(identities, credentials)
	resetH := resethandler.NewResetHandler(resets)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	admins := api.Group("/admins")
	admins.Post("/", identityH.CreateAdmin)
	admins.Get("/:id", identityH.GetAdmin)
	admins.Put("/:id", identityH.UpdateAdmin)
	admins.Delete("/:id", identityH.DeleteAdmin)

	customers := api.Group("/customers")
	customers.Post("/", identityH.CreateCustomer)
	customers.Get("/:id", identityH.GetCustomer)
	customers.Put("/:id", identityH.UpdateCustomer)
	customers.Delete("/:id", identityH.DeleteCustomer)

	sellers := api.Group("/sellers")
	sellers.Get("/", identityH.ListSellers)
	sellers.Post("/", identityH.CreateSeller)
	sellers.Get("/:id", identityH.GetSeller)
	sellers.Put("/:id", identityH.UpdateSeller)
	sellers.Delete("/:id", identityH.DeleteSeller)

	users := api.Group("/users")
	users.Get("/credentials", identityH.GetCredentials)
	users.Post("/credentials/verify", identityH.VerifyCredentials)
	users.Put("/password", identityH.ChangePassword)

	resetGroup := api.Group("/password-reset")
	resetGroup.Post("/request", resetH.RequestReset)
	resetGroup.Post("/verify", resetH.VerifyCode)
	resetGroup.Post("/reset", resetH.ResetPassword)
}
