package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"shopapp/internal/config"
	"shopapp/internal/log"
)

// Middleware installs the request chain shared by the server and its
// tests. It must run before Register.
func Middleware(app *fiber.App, cfg config.Config) {
	app.Use(requestid.New())
	if cfg.HTTP.AccessLog {
		app.Use(logger.New())
	}
	app.Use(helmet.New(helmet.Config{
		// product images come from the catalog host
		ContentSecurityPolicy: "default-src 'self'; img-src 'self' https: data:; script-src 'self' 'unsafe-inline'",
	}))
	if cfg.HTTP.RateLimit > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.HTTP.RateLimit,
			Expiration: time.Minute,
			Next: func(c *fiber.Ctx) bool {
				p := c.Path()
				return strings.HasPrefix(p, "/static/") || p == "/healthz" || p == "/metrics"
			},
			LimitReached: func(c *fiber.Ctx) error {
				log.Security(c, "rate.limit.hit", nil)
				if isAPI(c) {
					return apiError(c, fiber.StatusTooManyRequests, "rate limit exceeded, retry soon")
				}
				return c.Status(fiber.StatusTooManyRequests).Render("notfound", fiber.Map{"Message": "Too many requests. Please slow down."})
			},
		}))
	}
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		CookieSecure:   cfg.App.Env == "production",
		ContextKey:     "csrf",
		// the JSON API only accepts application/json bodies
		Next:         isAPI,
		ErrorHandler: CSRFError,
	}))
	app.Use(func(c *fiber.Ctx) error {
		if tok, ok := c.Locals("csrf").(string); ok {
			c.Locals("CSRFToken", tok)
		}
		return c.Next()
	})
}
