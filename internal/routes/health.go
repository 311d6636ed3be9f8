package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

type probe struct {
	name string
	ping func(context.Context) error
}

// RegisterHealthRoutes adds a readiness endpoint. Stores that are not configured report
// "memory" or "disabled" and never fail the check.
func RegisterHealthRoutes(app *fiber.App, d Deps) {
	status := fiber.Map{"postgres": "memory", "redis": "disabled"}
	var probes []probe
	if d.DB != nil {
		probes = append(probes, probe{name: "postgres", ping: d.DB.Ping})
	}
	if d.Cache != nil {
		probes = append(probes, probe{name: "redis", ping: func(ctx context.Context) error {
			return d.Cache.Ping(ctx).Err()
		}})
	}

	app.Get("/healthz", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		report := fiber.Map{}
		for k, v := range status {
			report[k] = v
		}
		code := http.StatusOK
		for _, p := range probes {
			report[p.name] = "ok"
			if err := p.ping(ctx); err != nil {
				report[p.name] = err.Error()
				code = http.StatusServiceUnavailable
			}
		}
		return c.Status(code).JSON(fiber.Map{
			"status":    report,
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}
