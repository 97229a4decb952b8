package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"shopapp/internal/domain"
	applog "shopapp/internal/log"
	"shopapp/internal/pipeline"
	"shopapp/internal/repos"
)

// CatalogSource is the remote catalog; *catalog.Client implements it.
type CatalogSource interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	ListCategories(ctx context.Context) ([]string, error)
	ListProductsByCategory(ctx context.Context, category string) ([]domain.Product, error)
	GetProductByID(ctx context.Context, id int) (domain.Product, error)
}

// DefaultStaleAfter matches how long the storefront trusts a fetched listing.
const DefaultStaleAfter = 5 * time.Minute

type CatalogService struct {
	Source     CatalogSource
	Prods      *repos.ProductRepo
	Cats       *repos.CategoryRepo
	Snaps      *repos.SnapshotRepo
	StaleAfter time.Duration

	// Now defaults to time.Now.
	Now func() time.Time

	refreshMu sync.Mutex
}

func NewCatalogService(src CatalogSource, prods *repos.ProductRepo, cats *repos.CategoryRepo, snaps *repos.SnapshotRepo, staleAfter time.Duration) *CatalogService {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &CatalogService{Source: src, Prods: prods, Cats: cats, Snaps: snaps, StaleAfter: staleAfter}
}

func (s *CatalogService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *CatalogService) fresh(ctx context.Context, name string) (bool, error) {
	at, ok, err := s.Snaps.FetchedAt(ctx, name)
	if err != nil || !ok {
		return false, err
	}
	return s.now().Sub(at) < s.StaleAfter, nil
}

// Products returns the product snapshot, refetching it once it is stale.
// A failed refetch is returned to the caller as is.
func (s *CatalogService) Products(ctx context.Context) ([]domain.Product, error) {
	if ok, err := s.fresh(ctx, repos.SnapshotProducts); err != nil {
		return nil, err
	} else if ok {
		return s.Prods.List(ctx)
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	// another request may have refreshed while we waited
	if ok, err := s.fresh(ctx, repos.SnapshotProducts); err != nil {
		return nil, err
	} else if ok {
		return s.Prods.List(ctx)
	}

	products, err := s.Source.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.Prods.ReplaceAll(ctx, products, s.now()); err != nil {
		return nil, err
	}
	applog.Info(nil, "catalog.snapshot.products", map[string]any{"count": len(products)})
	return s.Prods.List(ctx)
}

func (s *CatalogService) Categories(ctx context.Context) ([]string, error) {
	if ok, err := s.fresh(ctx, repos.SnapshotCategories); err != nil {
		return nil, err
	} else if ok {
		return s.Cats.List(ctx)
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	if ok, err := s.fresh(ctx, repos.SnapshotCategories); err != nil {
		return nil, err
	} else if ok {
		return s.Cats.List(ctx)
	}

	names, err := s.Source.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.Cats.ReplaceAll(ctx, names, s.now()); err != nil {
		return nil, err
	}
	applog.Info(nil, "catalog.snapshot.categories", map[string]any{"count": len(names)})
	return s.Cats.List(ctx)
}

// Product looks in the snapshot first and falls back to one remote lookup,
// which is not stored.
func (s *CatalogService) Product(ctx context.Context, id int) (domain.Product, error) {
	p, err := s.Prods.Get(ctx, id)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, err
	}
	return s.Source.GetProductByID(ctx, id)
}

// ProductsInCategory asks the catalog to filter server-side.
func (s *CatalogService) ProductsInCategory(ctx context.Context, category string) ([]domain.Product, error) {
	return s.Source.ListProductsByCategory(ctx, category)
}

// Listing runs the pipeline over the current snapshot.
func (s *CatalogService) Listing(ctx context.Context, st pipeline.State) (pipeline.Page, error) {
	products, err := s.Products(ctx)
	if err != nil {
		return pipeline.Page{}, err
	}
	return pipeline.Apply(products, st.Query()), nil
}
