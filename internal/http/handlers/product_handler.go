package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"shopapp/internal/catalog"
	"shopapp/internal/log"
	"shopapp/internal/pipeline"
	"shopapp/internal/services"
	"shopapp/internal/validate"
)

const (
	msgLoadFailed  = "Error loading products. Please try again later."
	msgUnavailable = "This item is no longer available"
)

type sortOption struct {
	Key   string
	Label string
}

var sortOptions = []sortOption{
	{string(pipeline.SortNone), "Default"},
	{string(pipeline.SortPriceAsc), "Price: Low to High"},
	{string(pipeline.SortPriceDesc), "Price: High to Low"},
	{string(pipeline.SortRatingDesc), "Highest Rated"},
}

type ProductHandler struct {
	Catalog *services.CatalogService
}

// listingInput reads category, sort and page from the query string.
func listingInput(c *fiber.Ctx) (category string, sort pipeline.SortKey, page int, ok bool) {
	category, ok = validate.Category(c.Query("category"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "category"})
		return "", "", 0, false
	}
	sort, ok = validate.Sort(c.Query("sort"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "sort"})
		return "", "", 0, false
	}
	return category, sort, validate.Page(c.Query("page")), true
}

func (h *ProductHandler) List(c *fiber.Ctx) error {
	s := shopperOf(c)
	category, sortKey, page, ok := listingInput(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).Render("notfound", fiber.Map{"Message": "Invalid listing options"})
	}
	st := s.UpdateListing(category, sortKey, page)

	ctx := c.UserContext()
	cats, err := h.Catalog.Categories(ctx)
	if err != nil {
		log.Warn(c, "catalog.categories.fail", err, nil)
	}
	data := fiber.Map{
		"Categories":  cats,
		"Category":    st.Category,
		"Sort":        string(st.Sort),
		"SortOptions": sortOptions,
	}

	pg, err := h.Catalog.Listing(ctx, st)
	if err != nil {
		log.Error(c, "catalog.listing.fail", err, nil)
		data["Err"] = msgLoadFailed
		return renderStatus(c, fiber.StatusBadGateway, "products", data)
	}
	s.CommitPage(st, pg.Page)
	data["Page"] = pg
	return render(c, "products", data)
}

func (h *ProductHandler) Detail(c *fiber.Ctx) error {
	id, ok := validate.ProductID(c.Params("id"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "product"})
		return notFound(c, msgUnavailable)
	}
	p, err := h.Catalog.Product(c.UserContext(), id)
	if errors.Is(err, catalog.ErrNotFound) {
		return notFound(c, msgUnavailable)
	}
	if err != nil {
		log.Error(c, "catalog.product.fail", err, map[string]any{"product": id})
		return renderStatus(c, fiber.StatusBadGateway, "product", fiber.Map{"Err": msgLoadFailed})
	}
	return render(c, "product", fiber.Map{"P": p})
}
