package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// RequireOperator admits only authenticated callers whose token contact is in operators.
// It must run after JWTAuth. An empty list admits nobody.
func RequireOperator(operators []string) fiber.Handler {
	allowed := make(map[string]struct{}, len(operators))
	for _, contact := range operators {
		allowed[strings.ToLower(strings.TrimSpace(contact))] = struct{}{}
	}
	return func(c *fiber.Ctx) error {
		contact, _ := c.Locals(ContactKey).(string)
		if _, ok := allowed[strings.ToLower(contact)]; !ok || contact == "" {
			return fiber.NewError(http.StatusForbidden, "operator access required")
		}
		return c.Next()
	}
}
