package account

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/fast-pay/fastpay/internal/money"
)

// Handler exposes account read endpoints.
type Handler struct {
	store *Store
}

// NewHandler builds an account HTTP handler.
func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// Response is the public JSON view of an account.
type Response struct {
	ID               string       `json:"id"`
	DisplayName      string       `json:"display_name"`
	Contact          string       `json:"contact"`
	Balance          money.Amount `json:"balance"`
	BalanceMinor     int64        `json:"balance_minor"`
	TwoFactorEnabled bool         `json:"two_factor_enabled"`
	CreatedAt        time.Time    `json:"created_at"`
}

// Get returns the profile and balance of the caller's own account. Secret material is never included.
func (h *Handler) Get(c *fiber.Ctx) error {
	id := c.Params("accountId")
	if caller, _ := c.Locals("account_id").(string); caller != id {
		return fiber.NewError(http.StatusForbidden, "not owner of account")
	}
	acc, err := h.store.Get(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(ToResponse(acc))
}

// ToResponse renders the public view of an account.
func ToResponse(acc Account) Response {
	return Response{
		ID:               acc.ID,
		DisplayName:      acc.DisplayName,
		Contact:          acc.Contact,
		Balance:          acc.Balance,
		BalanceMinor:     acc.Balance.Minor(),
		TwoFactorEnabled: acc.TwoFactorEnabled,
		CreatedAt:        acc.CreatedAt,
	}
}
