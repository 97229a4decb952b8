package handlers_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	html "github.com/gofiber/template/html/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"shopapp/internal/config"
	"shopapp/internal/domain"
	"shopapp/internal/http/handlers"
	applog "shopapp/internal/log"
	"shopapp/internal/metrics"
	"shopapp/internal/repos"
)

func product(id int, title, category string, price string, rate float64) domain.Product {
	return domain.Product{
		ID:          id,
		Title:       title,
		Price:       decimal.RequireFromString(price),
		Description: "about " + title,
		Category:    category,
		Image:       "https://img.test/" + strconv.Itoa(id) + ".jpg",
		Rating:      domain.Rating{Rate: rate, Count: 10 * id},
	}
}

// ten products over three categories: two listing pages
func sampleCatalog() []domain.Product {
	return []domain.Product{
		product(1, "Fjallraven Backpack", "men's clothing", "109.95", 3.9),
		product(2, "Slim Fit T-Shirt", "men's clothing", "22.30", 4.1),
		product(3, "Cotton Jacket", "men's clothing", "55.99", 4.7),
		product(4, "Dragon Bracelet", "jewelery", "695", 4.6),
		product(5, "Solid Gold Petite", "jewelery", "168", 3.9),
		product(6, "Princess Ring", "jewelery", "9.99", 3.0),
		product(7, "WD 2TB Drive", "electronics", "64", 3.3),
		product(8, "SanDisk SSD", "electronics", "109", 2.9),
		product(9, "Silicon Power SSD", "electronics", "109", 4.8),
		product(10, "Acer Monitor", "electronics", "599", 2.9),
	}
}

// fakeCatalog mimics the public catalog API.
type fakeCatalog struct {
	mu       sync.Mutex
	products []domain.Product
	fail     atomic.Bool
	hits     atomic.Int32
	srv      *httptest.Server
}

func newFakeCatalog(t *testing.T, products []domain.Product) *fakeCatalog {
	t.Helper()
	f := &fakeCatalog{products: products}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeCatalog) serve(w http.ResponseWriter, r *http.Request) {
	f.hits.Add(1)
	if f.fail.Load() {
		http.Error(w, "upstream down", http.StatusInternalServerError)
		return
	}
	f.mu.Lock()
	products := f.products
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	path := r.URL.EscapedPath()
	switch {
	case path == "/products":
		_ = json.NewEncoder(w).Encode(products)
	case path == "/products/categories":
		var cats []string
		seen := map[string]bool{}
		for _, p := range products {
			if !seen[p.Category] {
				seen[p.Category] = true
				cats = append(cats, p.Category)
			}
		}
		_ = json.NewEncoder(w).Encode(cats)
	case strings.HasPrefix(path, "/products/category/"):
		name, _ := url.PathUnescape(strings.TrimPrefix(path, "/products/category/"))
		out := []domain.Product{}
		for _, p := range products {
			if p.Category == name {
				out = append(out, p)
			}
		}
		_ = json.NewEncoder(w).Encode(out)
	case strings.HasPrefix(path, "/products/"):
		id, _ := strconv.Atoi(strings.TrimPrefix(path, "/products/"))
		for _, p := range products {
			if p.ID == id {
				_ = json.NewEncoder(w).Encode(p)
				return
			}
		}
		// the real catalog answers unknown ids with an empty 200
	default:
		http.NotFound(w, r)
	}
}

type testApp struct {
	app     *fiber.App
	deps    *handlers.Deps
	catalog *fakeCatalog
}

func newTestApp(t *testing.T, products []domain.Product) *testApp {
	t.Helper()
	return newTestAppWith(t, products, nil)
}

// newTestAppWith lets a test adjust the configuration before the app is
// built.
func newTestAppWith(t *testing.T, products []domain.Product, tweak func(*config.Config)) *testApp {
	t.Helper()
	fc := newFakeCatalog(t, products)

	cfg := config.Config{
		Catalog: config.CatalogConfig{BaseURL: fc.srv.URL, Timeout: 2 * time.Second, StaleAfter: 5 * time.Minute},
		Session: config.SessionConfig{IdleTTL: 30 * time.Minute},
		HTTP:    config.HTTPConfig{BodyLimit: 1 << 20},
	}
	if tweak != nil {
		tweak(&cfg)
	}
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	deps, err := handlers.NewDeps(db, cfg, metrics.New())
	if err != nil {
		t.Fatalf("deps: %v", err)
	}

	engine := html.New("../../web/templates", ".html")
	engine.AddFuncMap(handlers.TemplateFuncs())
	app := fiber.New(fiber.Config{Views: engine, BodyLimit: cfg.HTTP.BodyLimit, ErrorHandler: handlers.ErrorHandler})
	handlers.Middleware(app, cfg)
	handlers.Register(app, deps)
	app.Use(handlers.NotFound)

	return &testApp{app: app, deps: deps, catalog: fc}
}

// browser keeps cookies between requests like a real client.
type browser struct {
	t       *testing.T
	app     *fiber.App
	cookies map[string]string
}

func (ta *testApp) browser(t *testing.T) *browser {
	return &browser{t: t, app: ta.app, cookies: map[string]string{}}
}

func (b *browser) do(req *http.Request) *http.Response {
	b.t.Helper()
	for name, v := range b.cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: v})
	}
	resp, err := b.app.Test(req, -1)
	if err != nil {
		b.t.Fatalf("%s %s: %v", req.Method, req.URL, err)
	}
	for _, c := range resp.Cookies() {
		b.cookies[c.Name] = c.Value
	}
	return resp
}

func (b *browser) get(path string) *http.Response {
	b.t.Helper()
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

// postForm sends a form with the current csrf token attached.
func (b *browser) postForm(path string, form url.Values) *http.Response {
	b.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	if tok := b.cookies["csrf_"]; tok != "" && form.Get("csrf") == "" {
		form.Set("csrf", tok)
	}
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) sendJSON(method, path, body string) *http.Response {
	b.t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return b.do(req)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}

func decodeJSON(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	prev := applog.SetLogger(zap.New(core))
	t.Cleanup(func() { applog.SetLogger(prev) })
	return logs
}
