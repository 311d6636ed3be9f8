package transfer

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/fast-pay/fastpay/internal/ledger"
	"github.com/fast-pay/fastpay/internal/money"
)

// Handler exposes transfer endpoints.
type Handler struct {
	engine *Engine
}

// NewHandler constructs a transfer handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

type transferRequest struct {
	SenderID       string       `json:"sender_id"`
	ReceiverID     string       `json:"receiver_id"`
	Amount         money.Amount `json:"amount"`
	TwoFactorToken string       `json:"two_factor_token"`
}

// RecordResponse is the JSON view of a ledger record.
type RecordResponse struct {
	ID          string       `json:"id"`
	SenderID    string       `json:"sender_id"`
	ReceiverID  string       `json:"receiver_id"`
	Amount      money.Amount `json:"amount"`
	AmountMinor int64        `json:"amount_minor"`
	Timestamp   time.Time    `json:"timestamp"`
}

// Create moves funds from the authenticated account to the receiver.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		if errors.Is(err, money.ErrInvalidAmount) {
			return fiber.NewError(http.StatusBadRequest, ErrInvalidAmount.Error())
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	caller, _ := c.Locals("account_id").(string)
	if caller == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	if req.SenderID != "" && req.SenderID != caller {
		return fiber.NewError(http.StatusForbidden, "not owner of sender account")
	}
	if req.ReceiverID == "" {
		return fiber.NewError(http.StatusBadRequest, "receiver_id is required")
	}

	record, err := h.engine.Transfer(c.UserContext(), Request{
		SenderID:       caller,
		ReceiverID:     req.ReceiverID,
		Amount:         req.Amount,
		TwoFactorToken: req.TwoFactorToken,
	})
	if err != nil {
		return statusFor(err)
	}
	return c.Status(http.StatusCreated).JSON(toResponse(record))
}

// List returns the caller's transfer history, newest first.
func (h *Handler) List(c *fiber.Ctx) error {
	id := c.Params("accountId")
	if caller, _ := c.Locals("account_id").(string); caller != id {
		return fiber.NewError(http.StatusForbidden, "not owner of account")
	}
	records, err := h.engine.ListTransfers(c.UserContext(), id)
	if err != nil {
		return statusFor(err)
	}
	out := make([]RecordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, toResponse(r))
	}
	return c.Status(http.StatusOK).JSON(out)
}

func statusFor(err error) error {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInsufficientFunds):
		return fiber.NewError(http.StatusBadRequest, "insufficient funds")
	case errors.Is(err, ErrAccountNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrTwoFactorInvalid):
		return fiber.NewError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrConcurrencyExhausted):
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}

func toResponse(r ledger.Record) RecordResponse {
	return RecordResponse{
		ID:          r.ID,
		SenderID:    r.SenderID,
		ReceiverID:  r.ReceiverID,
		Amount:      r.Amount,
		AmountMinor: r.Amount.Minor(),
		Timestamp:   r.Timestamp,
	}
}
