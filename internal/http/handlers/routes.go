package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"shopapp/internal/log"
)

// Register mounts the storefront pages, form actions and the JSON API.
func Register(app *fiber.App, d *Deps) {
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	if d.Metrics != nil {
		app.Get("/metrics", d.Metrics.Handler())
	}

	shopper := Shopper(d.Sessions)

	// Pages
	app.Get("/", shopper, d.ProductHandler.List)
	app.Get("/product", func(c *fiber.Ctx) error { return notFound(c, msgUnavailable) })
	app.Get("/product/:id", shopper, d.ProductHandler.Detail)
	app.Get("/cart", shopper, d.CartHandler.View)
	app.Get("/category/:name", d.CategoryHandler.List)

	// Form actions
	app.Post("/cart", shopper, d.CartHandler.Add)
	app.Post("/cart/update", shopper, d.CartHandler.Update)
	app.Post("/cart/remove", shopper, d.CartHandler.Remove)
	app.Post("/cart/clear", shopper, d.CartHandler.Clear)

	// API
	api := app.Group("/api/v1", shopper)
	api.Get("/products", d.APIHandler.Products)
	api.Get("/products/:id", d.APIHandler.Product)
	api.Get("/categories", d.APIHandler.Categories)
	api.Get("/categories/:name/products", d.APIHandler.CategoryProducts)
	api.Get("/cart", d.APIHandler.GetCart)
	api.Post("/cart/items", d.APIHandler.AddItem)
	api.Patch("/cart/items/:id", d.APIHandler.UpdateItem)
	api.Delete("/cart/items/:id", d.APIHandler.RemoveItem)
	api.Delete("/cart", d.APIHandler.ClearCart)
	api.Use(func(c *fiber.Ctx) error { return apiError(c, fiber.StatusNotFound, "not found") })
}

// NotFound is the catch-all mounted after every other route.
func NotFound(c *fiber.Ctx) error {
	return notFound(c, "Page not found")
}

func isAPI(c *fiber.Ctx) bool { return strings.HasPrefix(c.Path(), "/api/") }

// ErrorHandler logs the failure and shows a friendly message without
// internals.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Something went wrong. Please try again."
	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
		code = fe.Code
		msg = fe.Message
	} else {
		log.Error(c, "server.error", err, nil)
	}
	if isAPI(c) {
		return c.Status(code).JSON(fiber.Map{"error": msg})
	}
	if rerr := c.Status(code).Render("notfound", fiber.Map{"Message": msg}); rerr != nil {
		return c.Status(code).SendString(msg)
	}
	return nil
}

// CSRFError is the csrf middleware's failure response.
func CSRFError(c *fiber.Ctx, err error) error {
	log.Security(c, "csrf.fail", map[string]any{"reason": err.Error()})
	return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "Security check failed. Please refresh and try again."})
}
