// Package webapi provides HTTP handlers and API endpoints for the mileage ledger.
// It is organized into sub-packages:
// - account: mileage account, transaction and reporting endpoints
// - common: response envelope, problem details and request binding
package webapi

import (
	"errors"
	"strings"

	"github.com/amirasaad/mileage/pkg/app"
	accountweb "github.com/amirasaad/mileage/webapi/account"
	"github.com/amirasaad/mileage/webapi/common"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/utils"
)

// SetupApp Initialize Fiber with custom configuration
func SetupApp(app *app.App) *fiber.App {
	fiberApp := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := common.ErrorToStatusCode(err)
			return common.ProblemDetailsJSON(c, utils.StatusMessage(code), err, code)
		},
	})

	// Configure rate limiting middleware
	// Uses X-Forwarded-For header when behind a proxy
	// Falls back to X-Real-IP or direct IP if needed
	if rl := app.Config.RateLimit; rl != nil && rl.MaxRequests > 0 {
		fiberApp.Use(limiter.New(limiter.Config{
			Max:        rl.MaxRequests,
			Expiration: rl.Window,
			Next: func(c *fiber.Ctx) bool {
				return c.Path() == "/metrics"
			},
			KeyGenerator: func(c *fiber.Ctx) string {
				if forwardedFor := c.Get("X-Forwarded-For"); forwardedFor != "" {
					// Take the first IP in the chain
					if commaIndex := strings.Index(forwardedFor, ","); commaIndex != -1 {
						return strings.TrimSpace(forwardedFor[:commaIndex])
					}
					return strings.TrimSpace(forwardedFor)
				}
				if realIP := c.Get("X-Real-IP"); realIP != "" {
					return realIP
				}
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return common.ProblemDetailsJSON(
					c,
					"Too Many Requests",
					errors.New("rate limit exceeded"),
					fiber.StatusTooManyRequests,
				)
			},
		}))
	}
	fiberApp.Use(recover.New())
	if app.Config.Env != "test" {
		fiberApp.Use(logger.New())
	}

	// Health check endpoint
	fiberApp.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Mileage API is running! 🚀")
	})
	fiberApp.Get("/metrics", adaptor.HTTPHandler(app.Metrics.Handler()))

	accountweb.Routes(fiberApp, app)
	return fiberApp
}
