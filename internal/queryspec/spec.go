// Package queryspec turns untrusted list parameters into a normalized query
// specification.
//
// Build never fails. Malformed pagination and order values degrade to their
// defaults instead of rejecting the request.
package queryspec

import (
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/roach88/crudkit/internal/queryir"
)

// Reserved parameter names.
const (
	ParamPage     = "page"
	ParamPageSize = "pageSize"
	ParamSearch   = "search"
	ParamOrder    = "order"
)

// Defaults applied when a parameter is absent or malformed.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
)

// OrderDelimiter separates the field token from the direction token.
const OrderDelimiter = '+'

// Params are raw request parameters, one value per name.
type Params map[string]string

// Options is the part of a resource's configuration Build needs.
type Options struct {
	Filterable []string
}

// Spec is the normalized form of a list request.
type Spec struct {
	// Page is the parsed page number. It is not clamped.
	Page int

	// Limit is the page size, always positive.
	Limit int

	// Offset is (Page-1)*Limit. It is negative when Page < 1; callers clamp.
	Offset int

	// Search is the free-text term, empty when absent.
	Search string

	// Filters maps filterable field names to exact-match raw values.
	Filters map[string]string

	// Order is nil when no order was requested.
	Order *queryir.Order
}

// Build converts raw parameters into a Spec.
func Build(params Params, opts Options) Spec {
	limit := DefaultPageSize
	if n, ok := parseInt(params[ParamPageSize]); ok && n > 0 {
		limit = n
	}
	page := DefaultPage
	if n, ok := parseInt(params[ParamPage]); ok {
		page = n
	}

	spec := Spec{
		Page:    page,
		Limit:   limit,
		Offset:  (page - 1) * limit,
		Search:  params[ParamSearch],
		Filters: map[string]string{},
		Order:   ParseOrder(params[ParamOrder]),
	}

	for key, raw := range params {
		if slices.Contains(opts.Filterable, key) {
			spec.Filters[key] = raw
		}
	}

	return spec
}

// ParseOrder splits "<field><delimiter><direction>" into an Order.
//
// The delimiter is '+'. Whitespace is accepted as well because URL query
// decoding turns a literal '+' into a space. A missing or unrecognized
// direction yields ascending order. Returns nil for an empty field token.
func ParseOrder(raw string) *queryir.Order {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	idx := strings.IndexFunc(raw, func(r rune) bool {
		return r == OrderDelimiter || unicode.IsSpace(r)
	})

	field, dirToken := raw, ""
	if idx >= 0 {
		field, dirToken = raw[:idx], raw[idx+1:]
	}
	if field == "" {
		return nil
	}

	dir, _ := queryir.ParseDirection(dirToken)
	return &queryir.Order{Field: field, Direction: dir}
}

// SortedFilterKeys returns the filter field names in ascending order.
func (s Spec) SortedFilterKeys() []string {
	keys := make([]string, 0, len(s.Filters))
	for k := range s.Filters {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func parseInt(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}
