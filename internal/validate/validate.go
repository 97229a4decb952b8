package validate

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"shopapp/internal/cart"
	"shopapp/internal/pipeline"
)

var (
	reID = regexp.MustCompile(`^[0-9]{1,9}$`)

	structs = validator.New(validator.WithRequiredStructEnabled())
)

// MaxQty caps a single cart line.
const MaxQty = cart.MaxQuantity

// MaxCategoryLen bounds a category name in bytes.
const MaxCategoryLen = 200

// Category validates an optional category filter. The empty string means
// "all categories" and is valid. Names are matched exactly against the
// catalog, so any printable text is accepted as-is; templates escape it on
// output.
func Category(s string) (string, bool) {
	if s == "" {
		return "", true
	}
	if len(s) > MaxCategoryLen || !utf8.ValidString(s) {
		return "", false
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return "", false
		}
	}
	return s, true
}

// Sort validates an optional sort key.
func Sort(s string) (pipeline.SortKey, bool) {
	return pipeline.ParseSortKey(strings.TrimSpace(s))
}

// Page parses a 1-indexed page number. Missing or malformed values give 0,
// which callers treat as "keep the current page".
func Page(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0
	}
	return n
}

// ProductID validates a positive catalog id.
func ProductID(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if !reID.MatchString(s) {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// Qty parses a requested quantity and clamps it to [1, MaxQty].
func Qty(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	if n < 1 {
		return 0, false
	}
	if n > MaxQty {
		n = MaxQty
	}
	return n, true
}

// Struct runs `validate` tag checks on request bodies.
func Struct(v any) error { return structs.Struct(v) }

// FieldErrors flattens validator errors into field -> failed tag.
func FieldErrors(err error) map[string]string {
	out := map[string]string{}
	if ves, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range ves {
			out[fe.Field()] = fe.Tag()
		}
	}
	return out
}

type AddItemRequest struct {
	ProductID int `json:"productId" validate:"required,gt=0"`
}

type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1,max=99"`
}
