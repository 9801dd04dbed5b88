package product

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// LowStockThreshold is the stock level below which a product is reported
// as "Low stock".
const LowStockThreshold = 10

var (
	slugInvalid   = regexp.MustCompile(`[^\w\s-]`)
	slugSeparator = regexp.MustCompile(`[\s_-]+`)
)

// FormatPrice renders a price as a US dollar amount, e.g. "$1,234.50".
func FormatPrice(price decimal.Decimal) string {
	sign := ""
	if price.IsNegative() {
		sign = "-"
		price = price.Neg()
	}
	s := price.StringFixed(2)
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + "$" + b.String() + "." + frac
}

// Slugify lowercases text, drops punctuation and joins words with dashes.
func Slugify(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = slugInvalid.ReplaceAllString(s, "")
	s = slugSeparator.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Truncate shortens text to at most length runes, appending "..." when cut.
func Truncate(text string, length int) string {
	r := []rune(text)
	if len(r) <= length {
		return text
	}
	return strings.TrimSpace(string(r[:length])) + "..."
}

// DiscountPercent returns the rounded percentage saved when buying at sale
// instead of original. A non-positive original price yields 0.
func DiscountPercent(original, sale decimal.Decimal) int64 {
	if !original.IsPositive() {
		return 0
	}
	pct := original.Sub(sale).Div(original).Mul(decimal.NewFromInt(100))
	return pct.Round(0).IntPart()
}

// IsInStock reports whether any units are available.
func IsInStock(stock int) bool {
	return stock > 0
}

// StockStatus returns the shopper-facing availability label.
func StockStatus(stock int) string {
	switch {
	case stock <= 0:
		return "Out of stock"
	case stock < LowStockThreshold:
		return "Low stock"
	default:
		return "In stock"
	}
}

// ImageURL resolves a stored image path against the public object storage
// base URL. Absolute URLs are returned unchanged and an empty path resolves
// to the placeholder image.
func ImageURL(baseURL, bucket, path string) string {
	if path == "" {
		return "/placeholder.jpg"
	}
	if strings.HasPrefix(path, "http") || baseURL == "" {
		return path
	}
	if bucket == "" {
		bucket = "products"
	}
	return strings.TrimRight(baseURL, "/") + "/storage/v1/object/public/" + bucket + "/" + strings.TrimLeft(path, "/")
}
