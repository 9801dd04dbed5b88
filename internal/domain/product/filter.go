package product

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// SortOrder selects how filtered products are ordered.
type SortOrder string

const (
	SortFeatured  SortOrder = "featured"
	SortPriceLow  SortOrder = "price-low"
	SortPriceHigh SortOrder = "price-high"
	SortNewest    SortOrder = "newest"
)

// AllCategories disables the category filter.
const AllCategories = "All"

// SearchLimit caps the number of live search results.
const SearchLimit = 5

// Filter describes the storefront listing controls.
type Filter struct {
	Category string
	Query    string
	MinPrice decimal.Decimal
	// MaxPrice of zero means no upper bound.
	MaxPrice decimal.Decimal
	Sort     SortOrder
}

// Apply returns the products matching f in the requested order. The input
// slice is not modified.
func (f Filter) Apply(products []Product) []Product {
	category := strings.ToLower(f.Category)
	query := strings.ToLower(f.Query)

	out := make([]Product, 0, len(products))
	for _, p := range products {
		if category != "" && f.Category != AllCategories &&
			!strings.Contains(strings.ToLower(p.CategoryID), category) {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(p.Name), query) &&
			!strings.Contains(strings.ToLower(p.Description), query) {
			continue
		}
		if p.Price.LessThan(f.MinPrice) {
			continue
		}
		if f.MaxPrice.IsPositive() && p.Price.GreaterThan(f.MaxPrice) {
			continue
		}
		out = append(out, p)
	}

	switch f.Sort {
	case SortPriceLow:
		slices.SortStableFunc(out, func(a, b Product) int { return a.Price.Cmp(b.Price) })
	case SortPriceHigh:
		slices.SortStableFunc(out, func(a, b Product) int { return b.Price.Cmp(a.Price) })
	case SortNewest:
		slices.SortStableFunc(out, func(a, b Product) int { return b.CreatedAt.Compare(a.CreatedAt) })
	case SortFeatured, "":
		slices.SortStableFunc(out, func(a, b Product) int { return boolRank(b.Featured) - boolRank(a.Featured) })
	}
	return out
}

// Search performs the navbar live search over name, description and
// category, returning at most SearchLimit matches.
func Search(products []Product, query string) []Product {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var out []Product
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Description), q) ||
			strings.Contains(strings.ToLower(p.CategoryID), q) {
			out = append(out, p)
			if len(out) == SearchLimit {
				break
			}
		}
	}
	return out
}

// Trending returns up to n products flagged as trending.
func Trending(products []Product, n int) []Product {
	return firstN(products, n, func(p Product) bool { return p.Trending })
}

// FeaturedHome returns up to n products flagged for the home page.
func FeaturedHome(products []Product, n int) []Product {
	return firstN(products, n, func(p Product) bool { return p.FeaturedHome })
}

func firstN(products []Product, n int, keep func(Product) bool) []Product {
	var out []Product
	for _, p := range products {
		if len(out) >= n {
			break
		}
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}
