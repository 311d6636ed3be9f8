package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/fast-pay/fastpay/internal/auth"
)

const (
	// AccountIDKey is the fiber.Locals key holding the authenticated account identifier.
	AccountIDKey = "account_id"
	// ContactKey holds the contact address carried by the access token.
	ContactKey = "contact"
)

// JWTAuth admits requests carrying a valid access token and records the caller in Locals.
// Refresh tokens are refused here.
func JWTAuth(tokens *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		claims, err := tokens.VerifyAccess(raw)
		if err != nil || claims.Subject == "" {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}

		c.Locals(AccountIDKey, claims.Subject)
		c.Locals(ContactKey, claims.Contact)
		return c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
