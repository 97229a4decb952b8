package handlers

import (
	"html/template"
	"unicode"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

const layout = "layouts/main"

func render(c *fiber.Ctx, tmpl string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	if s := shopperOf(c); s != nil {
		data["CartCount"] = s.Cart.ItemCount()
	}
	// token placed in Locals by the CSRF middleware
	if tok, _ := c.Locals("CSRFToken").(string); tok != "" {
		data["CSRFToken"] = tok
	} else if tok := c.Cookies("csrf_"); tok != "" {
		data["CSRFToken"] = tok
	}
	data["Path"] = c.Path()
	return c.Render(tmpl, data, layout)
}

func renderStatus(c *fiber.Ctx, status int, tmpl string, data fiber.Map) error {
	c.Status(status)
	return render(c, tmpl, data)
}

func notFound(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": msg})
}

// TemplateFuncs are registered on the html engine.
func TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"money": func(d decimal.Decimal) string { return "$" + d.StringFixed(2) },
		"title": capitalize,
		"stars": func(rate float64) string { return decimal.NewFromFloat(rate).StringFixed(1) },
		"inc":   func(n int) int { return n + 1 },
		"dec":   func(n int) int { return n - 1 },
	}
}

func capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}
