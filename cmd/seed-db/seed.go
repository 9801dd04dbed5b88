package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/internal/domain/content"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/validation"
)

const (
	bloomCapacity = 100_000
	bloomFPR      = 0.001
)

// seedDoc is the content of one seed file.
type seedDoc struct {
	Products []seedProduct `json:"products"`
	Slides   []seedSlide   `json:"slides"`
	Banners  []seedBanner  `json:"banners"`
	Showcase *seedShowcase `json:"showcase"`
}

type seedProduct struct {
	ID string `json:"id"`
	product.Input
}

type seedSlide struct {
	ID string `json:"id" validate:"required"`
	content.SlideInput
}

type seedBanner struct {
	ID                 string     `json:"id" validate:"required"`
	Title              string     `json:"title" validate:"required"`
	Subtitle           string     `json:"subtitle"`
	DiscountPercentage *int       `json:"discount_percentage" validate:"omitempty,gte=0,lte=100"`
	DiscountText       string     `json:"discount_text" validate:"required"`
	Description        string     `json:"description"`
	ImageURL           string     `json:"image_url"`
	BackgroundGradient string     `json:"background_gradient"`
	CTAText            string     `json:"cta_text"`
	CTALink            string     `json:"cta_link"`
	CountdownEnd       *time.Time `json:"countdown_end_date"`
	Active             bool       `json:"is_active"`
	DisplayOrder       int        `json:"display_order"`
}

type seedShowcase struct {
	Title             string    `json:"title"`
	Subtitle          string    `json:"subtitle"`
	Active            *bool     `json:"is_active"`
	HeroProductID     string    `json:"hero_product_id"`
	SupportProductIDs [4]string `json:"support_product_ids"`
}

// seedSet is the merged, validated content of every seed file.
type seedSet struct {
	products []product.Product
	slides   []content.Slide
	banners  []content.Banner
	showcase *seedShowcase
}

// seedFiles lists the seed files of dir in name order.
func seedFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", dir)
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !(strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".json.gz")) {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	if len(files) == 0 {
		return nil, errors.Errorf("no seed files in %s", dir)
	}
	slices.Sort(files)
	return files, nil
}

// readSeedFiles decodes files concurrently. The result keeps the order of
// files.
func readSeedFiles(ctx context.Context, files []string) ([]seedDoc, error) {
	docs := make([]seedDoc, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			doc, err := readSeedFile(ctx, path)
			if err != nil {
				return err
			}
			docs[i] = doc
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

// readSeedFile decodes a plain or gzip-compressed seed file.
func readSeedFile(ctx context.Context, path string) (seedDoc, error) {
	var doc seedDoc
	if err := ctx.Err(); err != nil {
		return doc, err
	}

	f, err := os.Open(path)
	if err != nil {
		return doc, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return doc, errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	d := json.NewDecoder(r)
	d.DisallowUnknownFields()
	if err := d.Decode(&doc); err != nil {
		return doc, errors.Wrapf(err, "decode %s", path)
	}

	slog.Info("read seed file",
		slog.String("path", path),
		slog.Int("products", len(doc.Products)),
		slog.Int("slides", len(doc.Slides)),
		slog.Int("banners", len(doc.Banners)),
	)
	return doc, nil
}

// merge validates docs and combines them in order. A product whose slug was
// already seeded by an earlier entry is skipped; the bloom filter screens
// slugs and a hit is confirmed against the accepted products.
func merge(docs []seedDoc, now time.Time) (*seedSet, error) {
	var (
		set     seedSet
		slugs   = bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		skipped int
	)

	for _, doc := range docs {
		for _, in := range doc.Products {
			if err := validation.Struct(in.Input); err != nil {
				return nil, errors.Wrapf(err, "product %q", in.Name)
			}
			if err := validation.NonNegative("price", in.Price); err != nil {
				return nil, errors.Wrapf(err, "product %q", in.Name)
			}
			p := newProduct(in, now)
			if slugs.TestString(p.Slug) && seeded(set.products, p.Slug) {
				skipped++
				slog.Warn("skipping duplicate slug", slog.String("slug", p.Slug), slog.String("id", p.ID))
				continue
			}
			slugs.AddString(p.Slug)
			set.products = append(set.products, p)
		}

		for _, in := range doc.Slides {
			if err := validation.Struct(in); err != nil {
				return nil, errors.Wrapf(err, "slide %q", in.ID)
			}
			set.slides = append(set.slides, content.Slide{
				ID:           in.ID,
				Title:        in.Title,
				Subtitle:     in.Subtitle,
				Description:  in.Description,
				ImageURL:     in.ImageURL,
				CTAText:      in.CTAText,
				CTALink:      in.CTALink,
				ProductID:    in.ProductID,
				DisplayOrder: in.DisplayOrder,
				Active:       in.Active,
				CreatedAt:    now,
				UpdatedAt:    now,
			})
		}

		for _, in := range doc.Banners {
			if err := validation.Struct(in); err != nil {
				return nil, errors.Wrapf(err, "banner %q", in.ID)
			}
			set.banners = append(set.banners, content.Banner{
				ID:                 in.ID,
				Title:              in.Title,
				Subtitle:           in.Subtitle,
				DiscountPercentage: in.DiscountPercentage,
				DiscountText:       in.DiscountText,
				Description:        in.Description,
				ImageURL:           in.ImageURL,
				BackgroundGradient: in.BackgroundGradient,
				CTAText:            in.CTAText,
				CTALink:            in.CTALink,
				CountdownEnd:       in.CountdownEnd,
				Active:             in.Active,
				DisplayOrder:       in.DisplayOrder,
				CreatedAt:          now,
				UpdatedAt:          now,
			})
		}

		if doc.Showcase != nil {
			set.showcase = doc.Showcase
		}
	}

	if skipped > 0 {
		slog.Info("skipped duplicate products", slog.Int("count", skipped))
	}
	return &set, nil
}

// newProduct builds a product from a seed entry. The slug defaults to the
// slugified name and the id to the slug, so re-seeding updates rows in place.
func newProduct(in seedProduct, now time.Time) product.Product {
	slug := in.Slug
	if slug == "" {
		slug = product.Slugify(in.Name)
	}
	id := in.ID
	if id == "" {
		id = slug
	}
	return product.Product{
		ID:              id,
		Name:            in.Name,
		Slug:            slug,
		Description:     in.Description,
		Price:           in.Price,
		Images:          append([]string{}, in.Images...),
		CategoryID:      in.CategoryID,
		Specifications:  in.Specifications,
		Stock:           in.Stock,
		Featured:        in.Featured,
		Trending:        in.Trending,
		FeaturedHome:    in.FeaturedHome,
		HeroShowcase:    in.HeroShowcase,
		MetaTitle:       in.MetaTitle,
		MetaDescription: in.MetaDescription,
		Keywords:        in.Keywords,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func seeded(products []product.Product, slug string) bool {
	return slices.ContainsFunc(products, func(p product.Product) bool { return p.Slug == slug })
}
