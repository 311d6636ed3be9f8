package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fast-pay/fastpay/internal/transfer"
)

// RegisterTransferRoutes wires transfer endpoints. Creating a transfer runs behind guards.
func RegisterTransferRoutes(r fiber.Router, h *transfer.Handler, guards ...fiber.Handler) {
	r.Post("/transfers", append(guards, h.Create)...)
	r.Get("/accounts/:accountId/transfers", h.List)
}
