package auth

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/fast-pay/fastpay/internal/account"
	"github.com/fast-pay/fastpay/internal/identity"
	"github.com/fast-pay/fastpay/internal/money"
)

// Handler exposes auth endpoints for login and refresh.
type Handler struct {
	ids *identity.Service
	svc *Service
}

// NewHandler wires the identity service used to check credentials.
func NewHandler(ids *identity.Service, svc *Service) *Handler {
	return &Handler{ids: ids, svc: svc}
}

type loginRequest struct {
	Contact        string `json:"contact"`
	Password       string `json:"password"`
	TwoFactorToken string `json:"two_factor_token"`
}

type loginResponse struct {
	AccountID    string       `json:"account_id"`
	Balance      money.Amount `json:"balance"`
	BalanceMinor int64        `json:"balance_minor"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
}

// Login validates credentials and returns the balance with a token pair.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	acc, err := h.ids.Authenticate(c.UserContext(), identity.LoginInput{
		Contact:        req.Contact,
		Password:       req.Password,
		TwoFactorToken: req.TwoFactorToken,
	})
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrAuthenticationFailed), errors.Is(err, identity.ErrTwoFactorInvalid):
			return fiber.NewError(http.StatusUnauthorized, err.Error())
		case errors.Is(err, account.ErrNotFound):
			return fiber.NewError(http.StatusUnauthorized, identity.ErrAuthenticationFailed.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	pair, err := h.svc.Login(acc)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(loginResponse{
		AccountID:    acc.ID,
		Balance:      acc.Balance,
		BalanceMinor: acc.Balance.Minor(),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh issues a new access token using a valid refresh token.
func (h *Handler) Refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	token, exp, err := h.svc.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return fiber.NewError(http.StatusUnauthorized, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"access_token": token, "expires_in": exp})
}
