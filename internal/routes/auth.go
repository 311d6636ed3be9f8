package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fast-pay/fastpay/internal/auth"
)

// RegisterAuthRoutes wires session endpoints. Login runs behind the given guards, in order.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, loginGuards ...fiber.Handler) {
	group := r.Group("/auth")
	group.Post("/login", append(loginGuards, h.Login)...)
	group.Post("/refresh", h.Refresh)
}
