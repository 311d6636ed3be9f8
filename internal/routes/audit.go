package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fast-pay/fastpay/internal/audit"
)

// RegisterAuditRoutes exposes the conservation report behind the given guards.
func RegisterAuditRoutes(r fiber.Router, h *audit.Handler, guards ...fiber.Handler) {
	r.Get("/audit", append(guards, h.Report)...)
}
