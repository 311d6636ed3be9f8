package identity

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/fast-pay/fastpay/internal/account"
)

// Handler exposes identity endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an identity HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type signupRequest struct {
	DisplayName string `json:"display_name"`
	Contact     string `json:"contact"`
	Password    string `json:"password"`
}

type enrollmentResponse struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauth_url"`
	QRCode     string `json:"qr_code"`
}

// Signup opens an account.
func (h *Handler) Signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	acc, err := h.service.Signup(c.UserContext(), SignupInput{
		DisplayName: req.DisplayName,
		Contact:     req.Contact,
		Password:    req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, account.ErrInvalidProfile), errors.Is(err, ErrWeakPassword):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, account.ErrDuplicateProfile):
			return fiber.NewError(http.StatusConflict, err.Error())
		case errors.Is(err, account.ErrIdentifierExhausted):
			return fiber.NewError(http.StatusServiceUnavailable, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.Status(http.StatusCreated).JSON(account.ToResponse(acc))
}

// EnableTwoFactor enrolls the caller's own account in TOTP.
func (h *Handler) EnableTwoFactor(c *fiber.Ctx) error {
	id := c.Params("accountId")
	if caller, _ := c.Locals("account_id").(string); caller != id {
		return fiber.NewError(http.StatusForbidden, "not owner of account")
	}
	enrollment, err := h.service.EnableTwoFactor(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(enrollmentResponse{
		Secret:     enrollment.Secret,
		OTPAuthURL: enrollment.OTPAuthURL,
		QRCode:     enrollment.QRCode,
	})
}
