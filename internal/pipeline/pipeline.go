// Package pipeline turns a catalog listing into the page a shopper sees:
// filter by category, sort, then paginate.
package pipeline

import (
	"cmp"
	"slices"

	"shopapp/internal/domain"
)

// PageSize is the number of products per listing page.
const PageSize = 8

type SortKey string

const (
	SortNone       SortKey = ""
	SortPriceAsc   SortKey = "price-asc"
	SortPriceDesc  SortKey = "price-desc"
	SortRatingDesc SortKey = "rating-desc"
)

// ParseSortKey accepts the empty string (catalog order) and the three
// named orderings.
func ParseSortKey(s string) (SortKey, bool) {
	switch k := SortKey(s); k {
	case SortNone, SortPriceAsc, SortPriceDesc, SortRatingDesc:
		return k, true
	}
	return SortNone, false
}

// Filter keeps products whose category equals category exactly. An empty
// category keeps everything. The input is never modified.
func Filter(products []domain.Product, category string) []domain.Product {
	if category == "" {
		return slices.Clone(products)
	}
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

// Sort returns a stably sorted copy of products.
func Sort(products []domain.Product, key SortKey) []domain.Product {
	out := slices.Clone(products)
	switch key {
	case SortPriceAsc:
		slices.SortStableFunc(out, func(a, b domain.Product) int { return a.Price.Cmp(b.Price) })
	case SortPriceDesc:
		slices.SortStableFunc(out, func(a, b domain.Product) int { return b.Price.Cmp(a.Price) })
	case SortRatingDesc:
		slices.SortStableFunc(out, func(a, b domain.Product) int { return cmp.Compare(b.Rating.Rate, a.Rating.Rate) })
	}
	return out
}

type Page struct {
	Items      []domain.Product
	Page       int
	TotalPages int
	TotalItems int
}

func (p Page) HasPrev() bool { return p.Page > 1 }
func (p Page) HasNext() bool { return p.Page < p.TotalPages }
func (p Page) Prev() int     { return p.Page - 1 }
func (p Page) Next() int     { return p.Page + 1 }

// Pages lists page numbers 1..TotalPages for a pager.
func (p Page) Pages() []int {
	out := make([]int, p.TotalPages)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// TotalPages is ceil(n/size) with a floor of 1.
func TotalPages(n, size int) int {
	if size <= 0 {
		size = PageSize
	}
	pages := (n + size - 1) / size
	if pages < 1 {
		return 1
	}
	return pages
}

// Paginate slices out page (1-indexed). Pages outside [1, TotalPages] are
// clamped, so an empty listing yields page 1 with no items.
func Paginate(products []domain.Product, page, size int) Page {
	if size <= 0 {
		size = PageSize
	}
	total := TotalPages(len(products), size)
	page = min(max(page, 1), total)

	start := min((page-1)*size, len(products))
	end := min(page*size, len(products))
	return Page{
		Items:      slices.Clone(products[start:end]),
		Page:       page,
		TotalPages: total,
		TotalItems: len(products),
	}
}

type Query struct {
	Category string
	Sort     SortKey
	Page     int
}

// Apply runs filter, sort and paginate in that order with PageSize.
func Apply(products []domain.Product, q Query) Page {
	return Paginate(Sort(Filter(products, q.Category), q.Sort), q.Page, PageSize)
}

// State is the listing selection of one shopper.
type State struct {
	Category string
	Sort     SortKey
	Page     int

	touched bool
}

func NewState() State { return State{Page: 1} }

// Update applies a new selection. A changed category or sort key sends the
// shopper back to page 1 and the requested page is ignored. page < 1 keeps
// the current page.
func (s *State) Update(category string, sort SortKey, page int) {
	changed := s.touched && (category != s.Category || sort != s.Sort)
	s.Category = category
	s.Sort = sort
	switch {
	case changed:
		s.Page = 1
	case page >= 1:
		s.Page = page
	case s.Page < 1:
		s.Page = 1
	}
	s.touched = true
}

func (s State) Query() Query {
	return Query{Category: s.Category, Sort: s.Sort, Page: s.Page}
}
