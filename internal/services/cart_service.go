package services

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"shopapp/internal/cart"
	"shopapp/internal/catalog"
)

var (
	ErrUnknownProduct = errors.New("unknown product")
	// ErrQuantityLimit means the line is already at cart.MaxQuantity.
	ErrQuantityLimit = errors.New("quantity limit reached")
)

// CartService resolves products against the catalog before they reach a
// cart. The cart itself is always passed in by the caller.
type CartService struct {
	Catalog *CatalogService
}

func NewCartService(catalog *CatalogService) *CartService {
	return &CartService{Catalog: catalog}
}

func (s *CartService) Add(ctx context.Context, c cart.Cart, productID int) error {
	if productID < 1 {
		return ErrUnknownProduct
	}
	if c.Quantity(productID) >= cart.MaxQuantity {
		return ErrQuantityLimit
	}
	p, err := s.Catalog.Product(ctx, productID)
	if errors.Is(err, catalog.ErrNotFound) {
		return ErrUnknownProduct
	}
	if err != nil {
		return err
	}
	c.AddItem(p)
	return nil
}

func (s *CartService) Update(c cart.Cart, productID, qty int) { c.UpdateQuantity(productID, qty) }

func (s *CartService) Remove(c cart.Cart, productID int) { c.RemoveItem(productID) }

func (s *CartService) Clear(c cart.Cart) { c.ClearCart() }

type CartView struct {
	Items []cart.Item
	Total decimal.Decimal
	Count int
}

func (s *CartService) View(c cart.Cart) CartView {
	items := c.Items()
	count := 0
	for _, it := range items {
		count += it.Quantity
	}
	return CartView{Items: items, Total: c.Total(), Count: count}
}
