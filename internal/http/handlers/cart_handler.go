package handlers

import (
	"errors"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"shopapp/internal/cart"
	"shopapp/internal/catalog"
	"shopapp/internal/log"
	"shopapp/internal/services"
	"shopapp/internal/validate"
)

type CartHandler struct {
	Cart *services.CartService
}

func (h *CartHandler) View(c *fiber.Ctx) error {
	return render(c, "cart", fiber.Map{"Cart": h.Cart.View(shopperOf(c).Cart), "MaxQty": cart.MaxQuantity})
}

// Add puts one unit of a product in the cart and sends the shopper back
// where they came from.
func (h *CartHandler) Add(c *fiber.Ctx) error {
	id, ok := validate.ProductID(c.FormValue("productId"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "productId"})
		return c.Status(fiber.StatusBadRequest).Render("notfound", fiber.Map{"Message": "Invalid product"})
	}
	err := h.Cart.Add(c.UserContext(), shopperOf(c).Cart, id)
	switch {
	case errors.Is(err, services.ErrUnknownProduct):
		return notFound(c, msgUnavailable)
	case errors.Is(err, services.ErrQuantityLimit):
		return c.Redirect("/cart")
	case errors.Is(err, catalog.ErrFetchFailed):
		log.Error(c, "cart.add.fail", err, map[string]any{"product": id})
		return c.Status(fiber.StatusBadGateway).Render("notfound", fiber.Map{"Message": msgLoadFailed})
	case err != nil:
		return err
	}
	log.Audit(c, "cart.add", map[string]any{"product": id})
	return c.Redirect(backTo(c, "/"))
}

func (h *CartHandler) Update(c *fiber.Ctx) error {
	id, ok := validate.ProductID(c.FormValue("productId"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "productId"})
		return c.Status(fiber.StatusBadRequest).Render("notfound", fiber.Map{"Message": "Invalid product"})
	}
	qty, ok := validate.Qty(c.FormValue("quantity"))
	if !ok {
		// the decrement button is disabled at 1; anything below is ignored
		return c.Redirect("/cart")
	}
	h.Cart.Update(shopperOf(c).Cart, id, qty)
	log.Audit(c, "cart.update", map[string]any{"product": id, "quantity": qty})
	return c.Redirect("/cart")
}

func (h *CartHandler) Remove(c *fiber.Ctx) error {
	id, ok := validate.ProductID(c.FormValue("productId"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "productId"})
		return c.Status(fiber.StatusBadRequest).Render("notfound", fiber.Map{"Message": "Invalid product"})
	}
	h.Cart.Remove(shopperOf(c).Cart, id)
	log.Audit(c, "cart.remove", map[string]any{"product": id})
	return c.Redirect("/cart")
}

func (h *CartHandler) Clear(c *fiber.Ctx) error {
	h.Cart.Clear(shopperOf(c).Cart)
	log.Audit(c, "cart.clear", nil)
	return c.Redirect("/cart")
}

// backTo returns the local path of the Referer, or def when the referer is
// missing or points at another host.
func backTo(c *fiber.Ctx, def string) string {
	ref := c.Get(fiber.HeaderReferer)
	if ref == "" {
		return def
	}
	u, err := url.Parse(ref)
	if err != nil || (u.Host != "" && u.Host != c.Hostname()) || !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(u.Path, "//") {
		return def
	}
	if u.RawQuery != "" {
		return u.Path + "?" + u.RawQuery
	}
	return u.Path
}
