// Package handler serves the storefront and admin HTTP API.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/content"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/session"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is the public object storage URL that relative image
	// paths are resolved against. When empty, paths are returned as stored.
	ImageBaseURL string
	Session      httpmiddleware.SessionConfig
}

// Deps are the domain services behind the API.
type Deps struct {
	Catalog  *product.Catalog
	Slides   *content.SlideService
	Showcase *content.ShowcaseService
	// Banners mirrors the active banners shown on the storefront.
	Banners *content.BannerService
	// AllBanners is reloaded on every admin listing.
	AllBanners *content.BannerService
	Orders     *order.Service
	Sessions   *session.Manager
	Auth       *auth.Authenticator
}

// Handler implements the HTTP API on top of the domain services.
type Handler struct {
	cfg Config
	Deps
}

// New constructs a Handler.
func New(cfg Config, deps Deps) *Handler {
	return &Handler{cfg: cfg, Deps: deps}
}

// Routes mounts the API under /api.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Get("/products/search", h.SearchProducts)
		r.Get("/products/{slug}", h.GetProduct)
		r.Get("/home", h.Home)

		r.Group(func(r chi.Router) {
			r.Use(httpmiddleware.Session(h.cfg.Session))

			r.Get("/cart", h.GetCart)
			r.Delete("/cart", h.ClearCart)
			r.Post("/cart/items", h.AddCartItem)
			r.Patch("/cart/items/{id}", h.UpdateCartItem)
			r.Delete("/cart/items/{id}", h.RemoveCartItem)

			r.Get("/wishlist", h.GetWishlist)
			r.Delete("/wishlist", h.ClearWishlist)
			r.Post("/wishlist/items", h.AddWishlistItem)
			r.Post("/wishlist/items/{id}/toggle", h.ToggleWishlistItem)
			r.Delete("/wishlist/items/{id}", h.RemoveWishlistItem)

			r.Post("/checkout", h.Checkout)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.RequireScope(auth.ScopeAdmin))

			r.Get("/products", h.AdminListProducts)
			r.Post("/products", h.AdminCreateProduct)
			r.Patch("/products/{id}", h.AdminUpdateProduct)
			r.Delete("/products/{id}", h.AdminDeleteProduct)

			r.Get("/slides", h.AdminListSlides)
			r.Post("/slides", h.AdminCreateSlide)
			r.Put("/slides/order", h.AdminReorderSlides)
			r.Patch("/slides/{id}", h.AdminUpdateSlide)
			r.Delete("/slides/{id}", h.AdminDeleteSlide)

			r.Get("/showcase", h.AdminGetShowcase)
			r.Patch("/showcase", h.AdminUpdateShowcase)

			r.Get("/banners", h.AdminListBanners)
			r.Get("/orders", h.AdminListOrders)
		})
	})
}

// session returns the shopper session of r. The Session middleware
// guarantees an id on every route that calls it. When the session cannot
// be loaded the error is written and ok is false.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (s *session.Session, ok bool) {
	ctx := r.Context()
	s, err := h.Sessions.Get(ctx, httpmiddleware.SessionFromContext(ctx))
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return s, true
}
