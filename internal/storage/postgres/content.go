package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/content"
)

const (
	listSlidesSQL = `SELECT id, title, subtitle, description, image_url, cta_text, cta_link, product_id,
		display_order, is_active, created_at, updated_at
		FROM hero_slides ORDER BY display_order, created_at`

	createSlideSQL = `INSERT INTO hero_slides (id, title, subtitle, description, image_url, cta_text, cta_link,
		product_id, display_order, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	upsertSlideSQL = createSlideSQL + `
		ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title, subtitle = EXCLUDED.subtitle,
		description = EXCLUDED.description, image_url = EXCLUDED.image_url, cta_text = EXCLUDED.cta_text,
		cta_link = EXCLUDED.cta_link, product_id = EXCLUDED.product_id, display_order = EXCLUDED.display_order,
		is_active = EXCLUDED.is_active, updated_at = EXCLUDED.updated_at`

	updateSlideSQL = `UPDATE hero_slides SET title = $2, subtitle = $3, description = $4, image_url = $5,
		cta_text = $6, cta_link = $7, product_id = $8, display_order = $9, is_active = $10, updated_at = $11
		WHERE id = $1`

	deleteSlideSQL = `DELETE FROM hero_slides WHERE id = $1`

	setSlideOrderSQL = `UPDATE hero_slides SET display_order = $2, updated_at = now() WHERE id = $1`

	getShowcaseSQL = `SELECT id, title, subtitle, is_active, hero_product_id,
		support_product_1_id, support_product_2_id, support_product_3_id, support_product_4_id,
		created_at, updated_at
		FROM hero_showcase_settings ORDER BY created_at LIMIT 1`

	upsertShowcaseSQL = `INSERT INTO hero_showcase_settings (id, title, subtitle, is_active, hero_product_id,
		support_product_1_id, support_product_2_id, support_product_3_id, support_product_4_id,
		created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title, subtitle = EXCLUDED.subtitle,
		is_active = EXCLUDED.is_active, hero_product_id = EXCLUDED.hero_product_id,
		support_product_1_id = EXCLUDED.support_product_1_id,
		support_product_2_id = EXCLUDED.support_product_2_id,
		support_product_3_id = EXCLUDED.support_product_3_id,
		support_product_4_id = EXCLUDED.support_product_4_id,
		updated_at = EXCLUDED.updated_at`

	listBannersSQL = `SELECT id, title, subtitle, discount_percentage, discount_text, description, image_url,
		background_gradient, cta_text, cta_link, countdown_end_date, is_active, display_order,
		created_at, updated_at
		FROM discount_banners WHERE is_active OR NOT $1 ORDER BY display_order, created_at`

	upsertBannerSQL = `INSERT INTO discount_banners (id, title, subtitle, discount_percentage, discount_text,
		description, image_url, background_gradient, cta_text, cta_link, countdown_end_date, is_active,
		display_order, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title, subtitle = EXCLUDED.subtitle,
		discount_percentage = EXCLUDED.discount_percentage, discount_text = EXCLUDED.discount_text,
		description = EXCLUDED.description, image_url = EXCLUDED.image_url,
		background_gradient = EXCLUDED.background_gradient, cta_text = EXCLUDED.cta_text,
		cta_link = EXCLUDED.cta_link, countdown_end_date = EXCLUDED.countdown_end_date,
		is_active = EXCLUDED.is_active, display_order = EXCLUDED.display_order,
		updated_at = EXCLUDED.updated_at`
)

// DefaultShowcaseID identifies the settings row created on first update.
const DefaultShowcaseID = "default"

var (
	_ content.SlideRepository    = (*SlideRepository)(nil)
	_ content.ShowcaseRepository = (*ShowcaseRepository)(nil)
	_ content.BannerRepository   = (*BannerRepository)(nil)
)

// SlideRepository implements content.SlideRepository backed by PostgreSQL.
type SlideRepository struct {
	pool *pgxpool.Pool
}

// NewSlideRepository returns a SlideRepository that uses the given pool.
func NewSlideRepository(pool *pgxpool.Pool) *SlideRepository {
	return &SlideRepository{pool: pool}
}

// List returns every slide ordered by display order.
func (r *SlideRepository) List(ctx context.Context) ([]content.Slide, error) {
	rows, err := r.pool.Query(ctx, listSlidesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing slides: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (content.Slide, error) {
		var (
			s         content.Slide
			productID *string
		)
		err := row.Scan(&s.ID, &s.Title, &s.Subtitle, &s.Description, &s.ImageURL, &s.CTAText, &s.CTALink,
			&productID, &s.DisplayOrder, &s.Active, &s.CreatedAt, &s.UpdatedAt)
		s.ProductID = textOrEmpty(productID)
		return s, err
	})
}

// Create inserts s.
func (r *SlideRepository) Create(ctx context.Context, s *content.Slide) error {
	_, err := r.pool.Exec(ctx, createSlideSQL, s.ID, s.Title, s.Subtitle, s.Description, s.ImageURL,
		s.CTAText, s.CTALink, nullText(s.ProductID), s.DisplayOrder, s.Active, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating slide %q: %w", s.ID, err)
	}
	return nil
}

// Upsert inserts s or overwrites the slide with the same id.
func (r *SlideRepository) Upsert(ctx context.Context, s *content.Slide) error {
	_, err := r.pool.Exec(ctx, upsertSlideSQL, s.ID, s.Title, s.Subtitle, s.Description, s.ImageURL,
		s.CTAText, s.CTALink, nullText(s.ProductID), s.DisplayOrder, s.Active, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting slide %q: %w", s.ID, err)
	}
	return nil
}

// Update overwrites every mutable column of s.
func (r *SlideRepository) Update(ctx context.Context, s *content.Slide) error {
	tag, err := r.pool.Exec(ctx, updateSlideSQL, s.ID, s.Title, s.Subtitle, s.Description, s.ImageURL,
		s.CTAText, s.CTALink, nullText(s.ProductID), s.DisplayOrder, s.Active, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updating slide %q: %w", s.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return content.ErrSlideNotFound
	}
	return nil
}

// Delete removes the slide with the given id.
func (r *SlideRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, deleteSlideSQL, id); err != nil {
		return fmt.Errorf("deleting slide %q: %w", id, err)
	}
	return nil
}

// SetDisplayOrder updates the position of a single slide.
func (r *SlideRepository) SetDisplayOrder(ctx context.Context, id string, order int) error {
	tag, err := r.pool.Exec(ctx, setSlideOrderSQL, id, order)
	if err != nil {
		return fmt.Errorf("ordering slide %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return content.ErrSlideNotFound
	}
	return nil
}

// ShowcaseRepository implements content.ShowcaseRepository backed by
// PostgreSQL.
type ShowcaseRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewShowcaseRepository returns a ShowcaseRepository that uses the given pool.
func NewShowcaseRepository(pool *pgxpool.Pool) *ShowcaseRepository {
	return &ShowcaseRepository{pool: pool, now: time.Now}
}

// Get returns the settings row. Without one it returns empty settings that
// Update will insert.
func (r *ShowcaseRepository) Get(ctx context.Context) (*content.ShowcaseSettings, error) {
	var (
		s       content.ShowcaseSettings
		hero    *string
		support [4]*string
	)
	err := r.pool.QueryRow(ctx, getShowcaseSQL).Scan(&s.ID, &s.Title, &s.Subtitle, &s.Active, &hero,
		&support[0], &support[1], &support[2], &support[3], &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		now := r.now().UTC()
		return &content.ShowcaseSettings{ID: DefaultShowcaseID, Active: true, CreatedAt: now, UpdatedAt: now}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting showcase settings: %w", err)
	}
	s.HeroProductID = textOrEmpty(hero)
	for i, id := range support {
		s.SupportProductIDs[i] = textOrEmpty(id)
	}
	return &s, nil
}

// Update upserts s.
func (r *ShowcaseRepository) Update(ctx context.Context, s *content.ShowcaseSettings) error {
	ids := s.SupportProductIDs
	_, err := r.pool.Exec(ctx, upsertShowcaseSQL, s.ID, s.Title, s.Subtitle, s.Active, nullText(s.HeroProductID),
		nullText(ids[0]), nullText(ids[1]), nullText(ids[2]), nullText(ids[3]), s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving showcase settings: %w", err)
	}
	return nil
}

// BannerRepository implements content.BannerRepository backed by PostgreSQL.
type BannerRepository struct {
	pool *pgxpool.Pool
}

// NewBannerRepository returns a BannerRepository that uses the given pool.
func NewBannerRepository(pool *pgxpool.Pool) *BannerRepository {
	return &BannerRepository{pool: pool}
}

// List returns banners ordered by display order.
func (r *BannerRepository) List(ctx context.Context, activeOnly bool) ([]content.Banner, error) {
	rows, err := r.pool.Query(ctx, listBannersSQL, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("listing banners: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (content.Banner, error) {
		var b content.Banner
		err := row.Scan(&b.ID, &b.Title, &b.Subtitle, &b.DiscountPercentage, &b.DiscountText, &b.Description,
			&b.ImageURL, &b.BackgroundGradient, &b.CTAText, &b.CTALink, &b.CountdownEnd, &b.Active,
			&b.DisplayOrder, &b.CreatedAt, &b.UpdatedAt)
		return b, err
	})
}

// Upsert inserts b or overwrites the banner with the same id.
func (r *BannerRepository) Upsert(ctx context.Context, b *content.Banner) error {
	_, err := r.pool.Exec(ctx, upsertBannerSQL, b.ID, b.Title, b.Subtitle, b.DiscountPercentage, b.DiscountText,
		b.Description, b.ImageURL, b.BackgroundGradient, b.CTAText, b.CTALink, b.CountdownEnd, b.Active,
		b.DisplayOrder, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting banner %q: %w", b.ID, err)
	}
	return nil
}
