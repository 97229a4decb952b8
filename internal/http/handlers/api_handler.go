package handlers

import (
	"errors"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"shopapp/internal/catalog"
	"shopapp/internal/domain"
	"shopapp/internal/log"
	"shopapp/internal/services"
	"shopapp/internal/validate"
)

// APIHandler serves the JSON surface under /api/v1.
type APIHandler struct {
	Catalog *services.CatalogService
	Cart    *services.CartService
}

type listingBody struct {
	Items      []domain.Product `json:"items"`
	Page       int              `json:"page"`
	TotalPages int              `json:"totalPages"`
	TotalItems int              `json:"totalItems"`
	Category   string           `json:"category"`
	Sort       string           `json:"sort"`
}

type cartLine struct {
	Product  domain.Product  `json:"product"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type cartBody struct {
	Items []cartLine      `json:"items"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

func apiError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

// catalogError maps service errors onto API statuses.
func catalogError(c *fiber.Ctx, action string, err error) error {
	switch {
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, services.ErrUnknownProduct):
		return apiError(c, fiber.StatusNotFound, "product not found")
	case errors.Is(err, services.ErrQuantityLimit):
		return apiError(c, fiber.StatusConflict, "quantity limit reached")
	case errors.Is(err, catalog.ErrFetchFailed):
		log.Error(c, action, err, nil)
		return apiError(c, fiber.StatusBadGateway, "catalog unavailable")
	}
	return err
}

func (h *APIHandler) Products(c *fiber.Ctx) error {
	category, sortKey, page, ok := listingInput(c)
	if !ok {
		return apiError(c, fiber.StatusBadRequest, "invalid listing options")
	}
	s := shopperOf(c)
	st := s.UpdateListing(category, sortKey, page)
	pg, err := h.Catalog.Listing(c.UserContext(), st)
	if err != nil {
		return catalogError(c, "catalog.listing.fail", err)
	}
	s.CommitPage(st, pg.Page)
	items := pg.Items
	if items == nil {
		items = []domain.Product{}
	}
	return c.JSON(listingBody{
		Items:      items,
		Page:       pg.Page,
		TotalPages: pg.TotalPages,
		TotalItems: pg.TotalItems,
		Category:   st.Category,
		Sort:       string(st.Sort),
	})
}

func (h *APIHandler) Product(c *fiber.Ctx) error {
	id, ok := validate.ProductID(c.Params("id"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "id"})
		return apiError(c, fiber.StatusBadRequest, "invalid product id")
	}
	p, err := h.Catalog.Product(c.UserContext(), id)
	if err != nil {
		return catalogError(c, "catalog.product.fail", err)
	}
	return c.JSON(p)
}

func (h *APIHandler) Categories(c *fiber.Ctx) error {
	cats, err := h.Catalog.Categories(c.UserContext())
	if err != nil {
		return catalogError(c, "catalog.categories.fail", err)
	}
	if cats == nil {
		cats = []string{}
	}
	return c.JSON(cats)
}

func (h *APIHandler) CategoryProducts(c *fiber.Ctx) error {
	raw, err := url.PathUnescape(c.Params("name"))
	if err != nil {
		raw = ""
	}
	name, ok := validate.Category(raw)
	if !ok || name == "" {
		log.Security(c, "validation.fail", map[string]any{"field": "category"})
		return apiError(c, fiber.StatusBadRequest, "invalid category")
	}
	products, err := h.Catalog.ProductsInCategory(c.UserContext(), name)
	if err != nil {
		return catalogError(c, "catalog.category.fail", err)
	}
	if products == nil {
		products = []domain.Product{}
	}
	return c.JSON(products)
}

func (h *APIHandler) cartJSON(c *fiber.Ctx, status int) error {
	v := h.Cart.View(shopperOf(c).Cart)
	body := cartBody{Items: make([]cartLine, 0, len(v.Items)), Total: v.Total, Count: v.Count}
	for _, it := range v.Items {
		body.Items = append(body.Items, cartLine{Product: it.Product, Quantity: it.Quantity, Subtotal: it.Subtotal()})
	}
	return c.Status(status).JSON(body)
}

func (h *APIHandler) GetCart(c *fiber.Ctx) error { return h.cartJSON(c, fiber.StatusOK) }

// decode parses a JSON body into req and runs its validate tags.
func decode(c *fiber.Ctx, req any) *fiber.Error {
	if !c.Is("json") {
		return fiber.NewError(fiber.StatusUnsupportedMediaType, "expected application/json")
	}
	if err := c.BodyParser(req); err != nil {
		log.Security(c, "validation.fail", map[string]any{"field": "body"})
		return fiber.NewError(fiber.StatusBadRequest, "malformed body")
	}
	if err := validate.Struct(req); err != nil {
		log.Security(c, "validation.fail", map[string]any{"fields": validate.FieldErrors(err)})
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	return nil
}

func (h *APIHandler) AddItem(c *fiber.Ctx) error {
	var req validate.AddItemRequest
	if ferr := decode(c, &req); ferr != nil {
		return apiError(c, ferr.Code, ferr.Message)
	}
	if err := h.Cart.Add(c.UserContext(), shopperOf(c).Cart, req.ProductID); err != nil {
		return catalogError(c, "cart.add.fail", err)
	}
	log.Audit(c, "cart.add", map[string]any{"product": req.ProductID})
	return h.cartJSON(c, fiber.StatusCreated)
}

func (h *APIHandler) UpdateItem(c *fiber.Ctx) error {
	id, ok := validate.ProductID(c.Params("id"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "id"})
		return apiError(c, fiber.StatusBadRequest, "invalid product id")
	}
	var req validate.UpdateQuantityRequest
	if ferr := decode(c, &req); ferr != nil {
		return apiError(c, ferr.Code, ferr.Message)
	}
	sc := shopperOf(c).Cart
	if sc.Quantity(id) == 0 {
		return apiError(c, fiber.StatusNotFound, "item not in cart")
	}
	h.Cart.Update(sc, id, req.Quantity)
	log.Audit(c, "cart.update", map[string]any{"product": id, "quantity": req.Quantity})
	return h.cartJSON(c, fiber.StatusOK)
}

func (h *APIHandler) RemoveItem(c *fiber.Ctx) error {
	id, ok := validate.ProductID(c.Params("id"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "id"})
		return apiError(c, fiber.StatusBadRequest, "invalid product id")
	}
	h.Cart.Remove(shopperOf(c).Cart, id)
	log.Audit(c, "cart.remove", map[string]any{"product": id})
	return h.cartJSON(c, fiber.StatusOK)
}

func (h *APIHandler) ClearCart(c *fiber.Ctx) error {
	h.Cart.Clear(shopperOf(c).Cart)
	log.Audit(c, "cart.clear", nil)
	return h.cartJSON(c, fiber.StatusOK)
}
