package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fast-pay/fastpay/internal/account"
	"github.com/fast-pay/fastpay/internal/identity"
)

// RegisterSignupRoute wires the public account opening endpoint.
func RegisterSignupRoute(r fiber.Router, h *identity.Handler) {
	r.Post("/accounts", h.Signup)
}

// RegisterAccountRoutes wires the caller's own account endpoints.
func RegisterAccountRoutes(r fiber.Router, accounts *account.Handler, ids *identity.Handler) {
	r.Get("/accounts/:accountId", accounts.Get)
	r.Post("/accounts/:accountId/2fa", ids.EnableTwoFactor)
}
