package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/product"
)

// ListProducts handles GET /api/products with the listing filters category,
// q, min_price, max_price and sort.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := product.Filter{
		Category: q.Get("category"),
		Query:    q.Get("q"),
		Sort:     product.SortOrder(q.Get("sort")),
	}
	switch f.Sort {
	case "", product.SortFeatured, product.SortPriceLow, product.SortPriceHigh, product.SortNewest:
	default:
		writeMessage(w, http.StatusBadRequest, "unknown sort order "+string(f.Sort))
		return
	}
	for _, bound := range []struct {
		name string
		dst  *decimal.Decimal
	}{
		{name: "min_price", dst: &f.MinPrice},
		{name: "max_price", dst: &f.MaxPrice},
	} {
		raw := q.Get(bound.name)
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil || d.IsNegative() {
			writeMessage(w, http.StatusBadRequest, "invalid "+bound.name)
			return
		}
		*bound.dst = d
	}

	writeJSON(w, http.StatusOK, h.productsJSON(f.Apply(h.Catalog.All())))
}

// SearchProducts handles GET /api/products/search?q=.
func (h *Handler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	found := product.Search(h.Catalog.All(), r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, h.productsJSON(found))
}

// GetProduct handles GET /api/products/{slug}.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := h.Catalog.GetBySlug(chi.URLParam(r, "slug"))
	if !ok {
		writeError(w, r, product.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, h.productJSON(p))
}
