package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/internal/domain/product"
)

// Homepage section sizes.
const (
	homeTrending = 8
	homeFeatured = 8
)

type homeJSON struct {
	Slides   []slideJSON       `json:"slides"`
	Showcase *homeShowcaseJSON `json:"showcase,omitempty"`
	Banner   *bannerJSON       `json:"banner,omitempty"`
	Trending []productJSON     `json:"trending"`
	Featured []productJSON     `json:"featured"`
}

type homeShowcaseJSON struct {
	Title    string        `json:"title"`
	Subtitle string        `json:"subtitle"`
	Hero     *productJSON  `json:"hero,omitempty"`
	Support  []productJSON `json:"support"`
}

// Home handles GET /api/home, assembling every homepage section from the
// content and catalog mirrors.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	products := h.Catalog.All()
	resp := homeJSON{
		Slides:   []slideJSON{},
		Trending: []productJSON{},
		Featured: []productJSON{},
	}

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		resp.Slides = h.slidesJSON(h.Slides.Active())
		return nil
	})
	g.Go(func() error {
		settings := h.Showcase.Settings()
		if settings == nil || !settings.Active {
			return nil
		}
		sc := &homeShowcaseJSON{
			Title:    settings.Title,
			Subtitle: settings.Subtitle,
			Support:  h.productsJSON(h.Showcase.SupportProducts(products)),
		}
		hero, ok := h.Showcase.HeroProduct(products)
		if !ok && settings.HeroProductID != "" {
			// The mirror may lag behind a product created since the last
			// refresh.
			p, err := h.Catalog.Lookup(ctx, settings.HeroProductID)
			switch {
			case err == nil:
				hero, ok = p, true
			case !errors.Is(err, product.ErrNotFound):
				return errors.Wrap(err, "hero product")
			}
		}
		if ok {
			pj := h.productJSON(hero)
			sc.Hero = &pj
		}
		resp.Showcase = sc
		return nil
	})
	g.Go(func() error {
		if b, ok := h.Banners.Active(); ok {
			bj := h.bannerJSON(b)
			resp.Banner = &bj
		}
		return nil
	})
	g.Go(func() error {
		resp.Trending = h.productsJSON(product.Trending(products, homeTrending))
		return nil
	})
	g.Go(func() error {
		resp.Featured = h.productsJSON(product.FeaturedHome(products, homeFeatured))
		return nil
	})
	if err := g.Wait(); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
