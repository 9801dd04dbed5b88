package product

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		price string
		want  string
	}{
		{price: "0", want: "$0.00"},
		{price: "9.9", want: "$9.90"},
		{price: "999", want: "$999.00"},
		{price: "1234.5", want: "$1,234.50"},
		{price: "1000000", want: "$1,000,000.00"},
		{price: "-12.5", want: "-$12.50"},
	}

	for _, tt := range tests {
		t.Run(tt.price, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatPrice(decimal.RequireFromString(tt.price)))
		})
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Hello World", want: "hello-world"},
		{in: "  Oak & Walnut -- Table  ", want: "oak-walnut-table"},
		{in: "snake_case name", want: "snake-case-name"},
		{in: "Already-slugged", want: "already-slugged"},
		{in: "!!!", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", Truncate("hello", 10))
	assert.Equal(t, "hello", Truncate("hello", 5))
	assert.Equal(t, "hello...", Truncate("hello world", 5))
	assert.Equal(t, "hello...", Truncate("hello world", 6))
	assert.Equal(t, "hé...", Truncate("héllo", 2))
}

func TestDiscountPercent(t *testing.T) {
	tests := []struct {
		name     string
		original string
		sale     string
		want     int64
	}{
		{name: "quarter off", original: "100", sale: "75", want: 25},
		{name: "rounds down", original: "30", sale: "20", want: 33},
		{name: "rounds up", original: "3", sale: "1", want: 67},
		{name: "zero original", original: "0", sale: "5", want: 0},
		{name: "no discount", original: "10", sale: "10", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DiscountPercent(decimal.RequireFromString(tt.original), decimal.RequireFromString(tt.sale))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStockStatus(t *testing.T) {
	tests := []struct {
		stock   int
		want    string
		inStock bool
	}{
		{stock: -1, want: "Out of stock"},
		{stock: 0, want: "Out of stock"},
		{stock: 1, want: "Low stock", inStock: true},
		{stock: LowStockThreshold - 1, want: "Low stock", inStock: true},
		{stock: LowStockThreshold, want: "In stock", inStock: true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StockStatus(tt.stock), "stock %d", tt.stock)
		assert.Equal(t, tt.inStock, IsInStock(tt.stock), "stock %d", tt.stock)
	}
}

func TestImageURL(t *testing.T) {
	tests := []struct {
		name   string
		base   string
		bucket string
		path   string
		want   string
	}{
		{name: "empty path", base: "https://cdn.example.com", want: "/placeholder.jpg"},
		{name: "absolute url", base: "https://cdn.example.com", path: "https://img.example.com/a.jpg", want: "https://img.example.com/a.jpg"},
		{name: "no base", path: "chair/a.jpg", want: "chair/a.jpg"},
		{
			name: "default bucket",
			base: "https://cdn.example.com/",
			path: "/chair/a.jpg",
			want: "https://cdn.example.com/storage/v1/object/public/products/chair/a.jpg",
		},
		{
			name:   "custom bucket",
			base:   "https://cdn.example.com",
			bucket: "slides",
			path:   "spring.jpg",
			want:   "https://cdn.example.com/storage/v1/object/public/slides/spring.jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ImageURL(tt.base, tt.bucket, tt.path))
		})
	}
}
