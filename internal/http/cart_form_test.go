package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestCartFormFlow(t *testing.T) {
	ta := newTestApp(t, sampleCatalog())
	b := ta.browser(t)

	s := readBody(t, b.get("/cart"))
	if !strings.Contains(s, "Your Cart is Empty") || !strings.Contains(s, "Continue Shopping") {
		t.Fatalf("empty cart view missing")
	}
	if b.cookies["csrf_"] == "" {
		t.Fatal("csrf token missing")
	}

	resp := b.postForm("/cart", url.Values{"productId": {"3"}})
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("add expected 302, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/" {
		t.Fatalf("add without referer should go home, got %q", loc)
	}

	s = readBody(t, b.get("/cart"))
	for _, want := range []string{"Cotton Jacket", "Order Summary", "Items (1)", "Free", "$55.99", "Checkout", "Clear Cart", `data-testid="cart-count">1<`} {
		if !strings.Contains(s, want) {
			t.Fatalf("cart view missing %q", want)
		}
	}
	if !strings.Contains(s, "disabled") {
		t.Fatalf("decrement should be disabled at quantity 1")
	}

	b.postForm("/cart/update", url.Values{"productId": {"3"}, "quantity": {"3"}})
	s = readBody(t, b.get("/cart"))
	if !strings.Contains(s, "Items (3)") || !strings.Contains(s, "$167.97") {
		t.Fatalf("quantity update not reflected")
	}

	// quantities below one are ignored
	b.postForm("/cart/update", url.Values{"productId": {"3"}, "quantity": {"0"}})
	if !strings.Contains(readBody(t, b.get("/cart")), "Items (3)") {
		t.Fatalf("quantity 0 should not change the cart")
	}

	resp = b.postForm("/cart/remove", url.Values{"productId": {"3"}})
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/cart" {
		t.Fatalf("remove should redirect to the cart")
	}
	if !strings.Contains(readBody(t, b.get("/cart")), "Your Cart is Empty") {
		t.Fatalf("cart should be empty after remove")
	}

	b.postForm("/cart", url.Values{"productId": {"1"}})
	b.postForm("/cart", url.Values{"productId": {"2"}})
	b.postForm("/cart/clear", nil)
	if !strings.Contains(readBody(t, b.get("/cart")), "Your Cart is Empty") {
		t.Fatalf("cart should be empty after clear")
	}
}

func TestCartAddRedirectsBack(t *testing.T) {
	ta := newTestApp(t, sampleCatalog())
	b := ta.browser(t)
	b.get("/")

	for referer, want := range map[string]string{
		"http://example.com/?category=electronics&page=1": "/?category=electronics&page=1",
		"http://example.com/product/2":                    "/product/2",
		"http://evil.test/phish":                          "/",
		"http://example.com//evil.test":                   "/",
	} {
		form := url.Values{"productId": {"2"}, "csrf": {b.cookies["csrf_"]}}
		req := httptest.NewRequest(http.MethodPost, "/cart", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Referer", referer)
		resp := b.do(req)
		if got := resp.Header.Get("Location"); got != want {
			t.Fatalf("referer %q: redirect %q, want %q", referer, got, want)
		}
	}
}

func TestCartAddUnknownProduct(t *testing.T) {
	ta := newTestApp(t, sampleCatalog())
	b := ta.browser(t)
	b.get("/")

	resp := b.postForm("/cart", url.Values{"productId": {"999"}})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if !strings.Contains(readBody(t, resp), "This item is no longer available") {
		t.Fatalf("friendly message missing")
	}
}

func TestCSRFRequiredForForms(t *testing.T) {
	ta := newTestApp(t, sampleCatalog())
	logs := observeLogs(t)
	b := ta.browser(t)
	b.get("/")

	resp := b.postForm("/cart", url.Values{"productId": {"1"}, "csrf": {"forged"}})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	if logs.FilterMessage("csrf.fail").Len() != 1 {
		t.Fatalf("csrf failure not logged")
	}
	if strings.Contains(readBody(t, b.get("/cart")), "Fjallraven Backpack") {
		t.Fatalf("forged request changed the cart")
	}
}

// one line never goes past the quantity cap, whichever button is pressed
func TestCartQuantityCap(t *testing.T) {
	ta := newTestApp(t, sampleCatalog())
	b := ta.browser(t)
	b.get("/")

	b.postForm("/cart", url.Values{"productId": {"6"}})
	b.postForm("/cart/update", url.Values{"productId": {"6"}, "quantity": {"99"}})

	resp := b.postForm("/cart", url.Values{"productId": {"6"}})
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/cart" {
		t.Fatalf("add at the cap should land on the cart, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
	s := readBody(t, b.get("/cart"))
	if !strings.Contains(s, "Items (99)") {
		t.Fatalf("add at the cap changed the quantity")
	}
	if !strings.Contains(s, `aria-label="Increase quantity" disabled`) {
		t.Fatalf("increment should be disabled at the cap")
	}

	b.postForm("/cart/update", url.Values{"productId": {"6"}, "quantity": {"101"}})
	if !strings.Contains(readBody(t, b.get("/cart")), "Items (99)") {
		t.Fatalf("update past the cap should clamp to 99")
	}

	b.postForm("/cart/update", url.Values{"productId": {"6"}, "quantity": {"98"}})
	if strings.Contains(readBody(t, b.get("/cart")), `aria-label="Increase quantity" disabled`) {
		t.Fatalf("increment should be enabled below the cap")
	}
}

// rendered forms carry the token the csrf middleware issued
func TestFormsCarryCSRFToken(t *testing.T) {
	ta := newTestApp(t, sampleCatalog())
	b := ta.browser(t)

	s := readBody(t, b.get("/"))
	tok := b.cookies["csrf_"]
	if tok == "" {
		t.Fatal("csrf cookie missing")
	}
	if !strings.Contains(s, `name="csrf" value="`+tok+`"`) {
		t.Fatalf("listing forms do not carry the csrf token")
	}

	// submitting exactly what the page rendered is accepted
	form := url.Values{"productId": {"1"}, "csrf": {tok}}
	req := httptest.NewRequest(http.MethodPost, "/cart", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if resp := b.do(req); resp.StatusCode != http.StatusFound {
		t.Fatalf("expected 302, got %d", resp.StatusCode)
	}

	// the JSON API is exempt
	resp := b.sendJSON(http.MethodPost, "/api/v1/cart/items", `{"productId":2}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("api add expected 201, got %d", resp.StatusCode)
	}
}
