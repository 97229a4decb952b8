package handlers

import (
	"net/url"

	"github.com/gofiber/fiber/v2"

	"shopapp/internal/log"
	"shopapp/internal/validate"
)

type CategoryHandler struct{}

// List is a shareable link to one category of the listing.
func (h *CategoryHandler) List(c *fiber.Ctx) error {
	raw, err := url.PathUnescape(c.Params("name"))
	if err != nil {
		raw = ""
	}
	name, ok := validate.Category(raw)
	if !ok || name == "" {
		log.Security(c, "validation.fail", map[string]any{"field": "category"})
		return notFound(c, "Page not found")
	}
	return c.Redirect("/?" + url.Values{"category": {name}, "page": {"1"}}.Encode())
}
