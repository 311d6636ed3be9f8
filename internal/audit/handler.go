package audit

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes the conservation report.
type Handler struct {
	auditor *Auditor
}

// NewHandler constructs an audit handler.
func NewHandler(auditor *Auditor) *Handler {
	return &Handler{auditor: auditor}
}

// Report runs a fresh check and answers with the report as body: 409 for drift, 503 when
// no settled sample could be taken.
func (h *Handler) Report(c *fiber.Ctx) error {
	report, err := h.auditor.Run(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	status := http.StatusOK
	switch {
	case !report.Settled:
		status = http.StatusServiceUnavailable
	case !report.Balanced:
		status = http.StatusConflict
	}
	return c.Status(status).JSON(report)
}
