package handler

import (
	"encoding/json"
	"time"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/content"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
)

type productJSON struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Slug            string          `json:"slug"`
	Description     string          `json:"description"`
	Price           float64         `json:"price"`
	PriceFormatted  string          `json:"price_formatted"`
	Images          []string        `json:"images"`
	CategoryID      string          `json:"category_id"`
	Specifications  json.RawMessage `json:"specifications,omitempty"`
	Stock           int             `json:"stock"`
	StockStatus     string          `json:"stock_status"`
	Featured        bool            `json:"featured"`
	Trending        bool            `json:"is_trending"`
	FeaturedHome    bool            `json:"featured_home"`
	HeroShowcase    bool            `json:"is_hero_showcase"`
	MetaTitle       string          `json:"meta_title,omitempty"`
	MetaDescription string          `json:"meta_description,omitempty"`
	Keywords        string          `json:"keywords,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (h *Handler) productJSON(p product.Product) productJSON {
	images := make([]string, len(p.Images))
	for i, img := range p.Images {
		images[i] = h.imageURL(img)
	}
	return productJSON{
		ID:              p.ID,
		Name:            p.Name,
		Slug:            p.Slug,
		Description:     p.Description,
		Price:           p.Price.InexactFloat64(),
		PriceFormatted:  product.FormatPrice(p.Price),
		Images:          images,
		CategoryID:      p.CategoryID,
		Specifications:  p.Specifications,
		Stock:           p.Stock,
		StockStatus:     product.StockStatus(p.Stock),
		Featured:        p.Featured,
		Trending:        p.Trending,
		FeaturedHome:    p.FeaturedHome,
		HeroShowcase:    p.HeroShowcase,
		MetaTitle:       p.MetaTitle,
		MetaDescription: p.MetaDescription,
		Keywords:        p.Keywords,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func (h *Handler) productsJSON(products []product.Product) []productJSON {
	out := make([]productJSON, len(products))
	for i, p := range products {
		out[i] = h.productJSON(p)
	}
	return out
}

func (h *Handler) imageURL(path string) string {
	return product.ImageURL(h.cfg.ImageBaseURL, "", path)
}

type lineJSON struct {
	Product  productJSON `json:"product"`
	Quantity int         `json:"quantity"`
	Subtotal float64     `json:"subtotal"`
}

type cartJSON struct {
	Items               []lineJSON `json:"items"`
	TotalItems          int        `json:"total_items"`
	TotalPrice          float64    `json:"total_price"`
	TotalPriceFormatted string     `json:"total_price_formatted"`
}

func (h *Handler) cartJSON(lines []cart.Line) cartJSON {
	items := make([]lineJSON, len(lines))
	for i, l := range lines {
		items[i] = lineJSON{
			Product:  h.productJSON(l.Product),
			Quantity: l.Quantity,
			Subtotal: l.Subtotal().InexactFloat64(),
		}
	}
	total := cart.TotalPrice(lines)
	return cartJSON{
		Items:               items,
		TotalItems:          cart.TotalItems(lines),
		TotalPrice:          total.InexactFloat64(),
		TotalPriceFormatted: product.FormatPrice(total),
	}
}

type wishlistJSON struct {
	Items      []productJSON `json:"items"`
	TotalItems int           `json:"total_items"`
}

func (h *Handler) wishlistJSON(items []product.Product) wishlistJSON {
	return wishlistJSON{Items: h.productsJSON(items), TotalItems: len(items)}
}

type slideJSON struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Subtitle     string    `json:"subtitle"`
	Description  string    `json:"description"`
	ImageURL     string    `json:"image_url"`
	CTAText      string    `json:"cta_text"`
	CTALink      string    `json:"cta_link"`
	ProductID    string    `json:"product_id,omitempty"`
	DisplayOrder int       `json:"display_order"`
	Active       bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (h *Handler) slidesJSON(slides []content.Slide) []slideJSON {
	out := make([]slideJSON, len(slides))
	for i, s := range slides {
		out[i] = h.slideJSON(s)
	}
	return out
}

func (h *Handler) slideJSON(s content.Slide) slideJSON {
	return slideJSON{
		ID:           s.ID,
		Title:        s.Title,
		Subtitle:     s.Subtitle,
		Description:  s.Description,
		ImageURL:     h.imageURL(s.ImageURL),
		CTAText:      s.CTAText,
		CTALink:      s.CTALink,
		ProductID:    s.ProductID,
		DisplayOrder: s.DisplayOrder,
		Active:       s.Active,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

type showcaseJSON struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	Subtitle          string    `json:"subtitle"`
	Active            bool      `json:"is_active"`
	HeroProductID     string    `json:"hero_product_id"`
	SupportProductIDs [4]string `json:"support_product_ids"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func showcaseSettingsJSON(s *content.ShowcaseSettings) showcaseJSON {
	return showcaseJSON{
		ID:                s.ID,
		Title:             s.Title,
		Subtitle:          s.Subtitle,
		Active:            s.Active,
		HeroProductID:     s.HeroProductID,
		SupportProductIDs: s.SupportProductIDs,
		UpdatedAt:         s.UpdatedAt,
	}
}

type bannerJSON struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Subtitle           string     `json:"subtitle,omitempty"`
	DiscountPercentage *int       `json:"discount_percentage,omitempty"`
	DiscountText       string     `json:"discount_text,omitempty"`
	Description        string     `json:"description,omitempty"`
	ImageURL           string     `json:"image_url,omitempty"`
	BackgroundGradient string     `json:"background_gradient,omitempty"`
	CTAText            string     `json:"cta_text"`
	CTALink            string     `json:"cta_link"`
	CountdownEnd       *time.Time `json:"countdown_end,omitempty"`
	Active             bool       `json:"is_active"`
	DisplayOrder       int        `json:"display_order"`
}

func (h *Handler) bannerJSON(b content.Banner) bannerJSON {
	out := bannerJSON{
		ID:                 b.ID,
		Title:              b.Title,
		Subtitle:           b.Subtitle,
		DiscountPercentage: b.DiscountPercentage,
		DiscountText:       b.DiscountText,
		Description:        b.Description,
		BackgroundGradient: b.BackgroundGradient,
		CTAText:            b.CTAText,
		CTALink:            b.CTALink,
		CountdownEnd:       b.CountdownEnd,
		Active:             b.Active,
		DisplayOrder:       b.DisplayOrder,
	}
	if b.ImageURL != "" {
		out.ImageURL = h.imageURL(b.ImageURL)
	}
	return out
}

type orderJSON struct {
	ID        string          `json:"id"`
	Status    order.Status    `json:"status"`
	Customer  order.Customer  `json:"customer"`
	Items     []orderItemJSON `json:"items"`
	Total     float64         `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
}

type orderItemJSON struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

func orderJSONFrom(o *order.Order) orderJSON {
	items := make([]orderItemJSON, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemJSON{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.Price.InexactFloat64(),
			Quantity:  it.Quantity,
		}
	}
	return orderJSON{
		ID:        o.ID,
		Status:    o.Status,
		Customer:  o.Customer,
		Items:     items,
		Total:     o.Total.InexactFloat64(),
		CreatedAt: o.CreatedAt,
	}
}
