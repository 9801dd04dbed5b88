package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/content"
	"github.com/xenking/storefront/internal/storage/postgres"
)

const adminKeyID = "admin"

func main() {
	var (
		databaseURL  string
		dataDir      string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&dataDir, "data-dir", "db/seed", "directory containing *.json and *.json.gz seed files")
	flag.StringVar(&apiKey, "api-key", "", "admin API key to seed (or STORE_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or STORE_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("STORE_SEED_API_KEY")
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("STORE_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, dataDir, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, dataDir, apiKey, pepper string) error {
	files, err := seedFiles(dataDir)
	if err != nil {
		return err
	}
	slog.Info("reading seed files", slog.Int("files", len(files)))

	docs, err := readSeedFiles(ctx, files)
	if err != nil {
		return errors.Wrap(err, "read seed files")
	}
	set, err := merge(docs, time.Now().UTC())
	if err != nil {
		return errors.Wrap(err, "merge seed files")
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	products := postgres.NewProductRepository(pool)
	for i := range set.products {
		p := &set.products[i]
		if err := products.Upsert(ctx, p); err != nil {
			return err
		}
		slog.Info("upserted product", slog.String("id", p.ID), slog.String("slug", p.Slug))
	}

	slides := postgres.NewSlideRepository(pool)
	for i := range set.slides {
		if err := slides.Upsert(ctx, &set.slides[i]); err != nil {
			return err
		}
	}
	slog.Info("upserted slides", slog.Int("count", len(set.slides)))

	banners := postgres.NewBannerRepository(pool)
	for i := range set.banners {
		if err := banners.Upsert(ctx, &set.banners[i]); err != nil {
			return err
		}
	}
	slog.Info("upserted banners", slog.Int("count", len(set.banners)))

	if set.showcase != nil {
		if err := seedShowcaseSettings(ctx, postgres.NewShowcaseRepository(pool), set.showcase); err != nil {
			return errors.Wrap(err, "seed showcase")
		}
	}

	if apiKey == "" {
		slog.Warn("no admin API key given, skipping")
		return nil
	}
	return seedAPIKey(ctx, postgres.NewAPIKeyRepository(pool), apiKey, pepper)
}

func seedShowcaseSettings(ctx context.Context, repo content.ShowcaseRepository, in *seedShowcase) error {
	s, err := repo.Get(ctx)
	if err != nil {
		return err
	}
	s.Title = in.Title
	s.Subtitle = in.Subtitle
	if in.Active != nil {
		s.Active = *in.Active
	}
	s.HeroProductID = in.HeroProductID
	s.SupportProductIDs = in.SupportProductIDs
	s.UpdatedAt = time.Now().UTC()
	if err := repo.Update(ctx, s); err != nil {
		return err
	}

	slog.Info("upserted showcase settings", slog.String("hero", s.HeroProductID))
	return nil
}

func seedAPIKey(ctx context.Context, repo *postgres.APIKeyRepository, apiKey, pepper string) error {
	if err := repo.Upsert(ctx, auth.APIKeyInfo{
		ID:      adminKeyID,
		KeyHash: auth.HashKey([]byte(pepper), apiKey),
		Name:    "Seeded admin key",
		Scopes:  []string{auth.ScopeAdmin},
	}); err != nil {
		return errors.Wrap(err, "upsert admin API key")
	}

	slog.Info("upserted API key", slog.String("id", adminKeyID))
	return nil
}
