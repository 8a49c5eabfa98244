// Package routes wires the HTTP surface onto the fiber app.
package routes

import (
	"github.com/gofiber/fiber/v2"

	"kobapay/internal/handlers"
)

// Handlers bundles every handler group the router needs.
type Handlers struct {
	Auth     *handlers.AuthHandler
	Profile  *handlers.ProfileHandler
	Users    *handlers.UserHandler
	Roles    *handlers.RoleHandler
	Payments *handlers.PaymentHandler
	Media    *handlers.MediaHandler
	Location *handlers.LocationHandler
}

// Setup registers every route group under /api/v1.
func Setup(app *fiber.App, h Handlers) {
	api := app.Group("/api/v1")

	auth := api.Group("/auth")
	auth.Post("/register", h.Auth.Register())
	auth.Post("/login", h.Auth.Login())
	auth.Post("/send-otp", h.Auth.SendSignupOTP())
	auth.Post("/verify-otp", h.Auth.VerifyRegisterOTP())
	auth.Post("/forgot-password", h.Auth.ForgotPassword())
	auth.Post("/verify-password-otp", h.Auth.VerifyPasswordOTP())
	auth.Post("/reset-password", h.Auth.ResetPassword())
	auth.Post("/change-password", h.Auth.ChangePassword())
	auth.Post("/refresh-token", h.Auth.RefreshToken())
	auth.Post("/logout", h.Auth.Logout())

	profile := api.Group("/profile")
	profile.Get("/", h.Profile.Fetch())
	profile.Put("/", h.Profile.Update())
	profile.Put("/photo", h.Profile.SetPhoto())
	profile.Get("/user-data", h.Profile.UserData())
	profile.Post("/kyc", h.Profile.SubmitKYC())
	profile.Get("/kyc", h.Profile.KYCStatus())

	users := api.Group("/users")
	users.Get("/", h.Users.List())
	users.Post("/", h.Users.Create())
	users.Get("/creatable-roles", h.Users.CreatableRoles())
	users.Get("/:id", h.Users.Fetch())
	users.Put("/:id", h.Users.Update())
	users.Put("/:id/status", h.Users.SetActive())

	roles := api.Group("/roles")
	roles.Get("/", h.Roles.List())
	roles.Post("/", h.Roles.Create())
	roles.Get("/permissions", h.Roles.Permissions())
	roles.Get("/:id", h.Roles.Fetch())
	roles.Put("/:id", h.Roles.Update())
	roles.Delete("/:id", h.Roles.Delete())

	pay := api.Group("/payment")
	pay.Get("/banks", h.Payments.ListBanks())
	pay.Post("/verify-account", h.Payments.VerifyAccount())
	pay.Get("/account-details", h.Payments.ListBankAccounts())
	pay.Post("/account-details", h.Payments.SaveBankAccount())
	pay.Put("/account-details/:id", h.Payments.UpdateBankAccount())
	pay.Delete("/account-details/:id", h.Payments.DeleteBankAccount())
	pay.Get("/transaction", h.Payments.ListTransactions())
	pay.Post("/transaction", h.Payments.CreateTransaction())
	pay.Get("/transaction-types", h.Payments.TransactionTypes())
	pay.Post("/callback/paystack", h.Payments.Webhook())

	mediaGroup := api.Group("/media")
	mediaGroup.Get("/", h.Media.Catalog())
	mediaGroup.Post("/upload", h.Media.Upload())

	loc := api.Group("/location")
	loc.Get("/countries", h.Location.Countries())
	loc.Get("/countries/:countryId/states", h.Location.States())
	loc.Get("/states/:stateId/cities", h.Location.Cities())
}
