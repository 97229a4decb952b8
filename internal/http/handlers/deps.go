package handlers

import (
	"github.com/jmoiron/sqlx"

	"shopapp/internal/cart"
	"shopapp/internal/catalog"
	"shopapp/internal/config"
	"shopapp/internal/metrics"
	"shopapp/internal/repos"
	"shopapp/internal/services"
	"shopapp/internal/session"
)

type Deps struct {
	ProductHandler  *ProductHandler
	CategoryHandler *CategoryHandler
	CartHandler     *CartHandler
	APIHandler      *APIHandler

	Sessions *session.Registry
	Catalog  *services.CatalogService
	Metrics  *metrics.Metrics
}

func NewDeps(db *sqlx.DB, cfg config.Config, m *metrics.Metrics) (*Deps, error) {
	client, err := catalog.New(catalog.Options{
		BaseURL:       cfg.Catalog.BaseURL,
		Timeout:       cfg.Catalog.Timeout,
		RatePerSecond: cfg.Catalog.RatePerSecond,
		Burst:         cfg.Catalog.Burst,
		Metrics:       m,
	})
	if err != nil {
		return nil, err
	}

	prodRepo := repos.NewProductRepo(db)
	catRepo := repos.NewCategoryRepo(db)
	snapRepo := repos.NewSnapshotRepo(db)

	catalogSvc := services.NewCatalogService(client, prodRepo, catRepo, snapRepo, cfg.Catalog.StaleAfter)
	cartSvc := services.NewCartService(catalogSvc)

	sessions := session.NewRegistry(cfg.Session.IdleTTL)
	if m != nil {
		sessions.OnCreate = append(sessions.OnCreate, func(s *session.Session) {
			s.Cart.Subscribe(func(e cart.Event) { m.CartOp(string(e.Op)) })
		})
		sessions.OnCount = m.SetSessions
	}

	return &Deps{
		ProductHandler:  &ProductHandler{Catalog: catalogSvc},
		CategoryHandler: &CategoryHandler{},
		CartHandler:     &CartHandler{Cart: cartSvc},
		APIHandler:      &APIHandler{Catalog: catalogSvc, Cart: cartSvc},
		Sessions:        sessions,
		Catalog:         catalogSvc,
		Metrics:         m,
	}, nil
}
