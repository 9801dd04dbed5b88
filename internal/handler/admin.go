package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/storefront/internal/domain/content"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/validation"
)

// AdminListProducts handles GET /api/admin/products, newest first.
func (h *Handler) AdminListProducts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.productsJSON(h.Catalog.All()))
}

// AdminCreateProduct handles POST /api/admin/products.
func (h *Handler) AdminCreateProduct(w http.ResponseWriter, r *http.Request) {
	var in product.Input
	if !decode(w, r, &in) {
		return
	}
	p, err := h.Catalog.Add(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.productJSON(*p))
}

// AdminUpdateProduct handles PATCH /api/admin/products/{id}.
func (h *Handler) AdminUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var patch product.Patch
	if !decode(w, r, &patch) {
		return
	}
	p, err := h.Catalog.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.productJSON(*p))
}

// AdminDeleteProduct handles DELETE /api/admin/products/{id}.
func (h *Handler) AdminDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AdminListSlides handles GET /api/admin/slides in display order.
func (h *Handler) AdminListSlides(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.slidesJSON(h.Slides.All()))
}

// AdminCreateSlide handles POST /api/admin/slides.
func (h *Handler) AdminCreateSlide(w http.ResponseWriter, r *http.Request) {
	var in content.SlideInput
	if !decode(w, r, &in) {
		return
	}
	s, err := h.Slides.Add(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.slideJSON(*s))
}

// AdminUpdateSlide handles PATCH /api/admin/slides/{id}.
func (h *Handler) AdminUpdateSlide(w http.ResponseWriter, r *http.Request) {
	var patch content.SlidePatch
	if !decode(w, r, &patch) {
		return
	}
	s, err := h.Slides.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.slideJSON(*s))
}

// AdminDeleteSlide handles DELETE /api/admin/slides/{id}.
func (h *Handler) AdminDeleteSlide(w http.ResponseWriter, r *http.Request) {
	if err := h.Slides.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reorderSlidesRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

// AdminReorderSlides handles PUT /api/admin/slides/order.
func (h *Handler) AdminReorderSlides(w http.ResponseWriter, r *http.Request) {
	var req reorderSlidesRequest
	if !decode(w, r, &req) {
		return
	}
	if err := validation.Struct(req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Slides.Reorder(r.Context(), req.IDs); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.slidesJSON(h.Slides.All()))
}

// AdminGetShowcase handles GET /api/admin/showcase.
func (h *Handler) AdminGetShowcase(w http.ResponseWriter, r *http.Request) {
	settings := h.Showcase.Settings()
	if settings == nil {
		writeError(w, r, content.ErrSettingsNotLoaded)
		return
	}
	writeJSON(w, http.StatusOK, showcaseSettingsJSON(settings))
}

// AdminUpdateShowcase handles PATCH /api/admin/showcase.
func (h *Handler) AdminUpdateShowcase(w http.ResponseWriter, r *http.Request) {
	var patch content.ShowcasePatch
	if !decode(w, r, &patch) {
		return
	}
	settings, err := h.Showcase.Update(r.Context(), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, showcaseSettingsJSON(settings))
}

// AdminListBanners handles GET /api/admin/banners, inactive ones included.
func (h *Handler) AdminListBanners(w http.ResponseWriter, r *http.Request) {
	if err := h.AllBanners.FetchAll(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	banners := h.AllBanners.Banners()
	out := make([]bannerJSON, len(banners))
	for i, b := range banners {
		out[i] = h.bannerJSON(b)
	}
	writeJSON(w, http.StatusOK, out)
}

// AdminListOrders handles GET /api/admin/orders?status=.
func (h *Handler) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.Orders.List(r.Context(), order.Status(r.URL.Query().Get("status")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]orderJSON, len(orders))
	for i := range orders {
		out[i] = orderJSONFrom(&orders[i])
	}
	writeJSON(w, http.StatusOK, out)
}
