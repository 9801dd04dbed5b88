package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	pgzip "github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/validation"
)

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
}

func writeGzip(t *testing.T, path, data string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(data))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
}

func TestReadAndMerge(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.json"), `{
		"products": [
			{"name": "Oak Table", "price": 200, "category_id": "tables", "stock": 2},
			{"id": "lamp", "name": "Lamp", "slug": "lamp", "price": "19.90", "category_id": "lighting"}
		],
		"slides": [{"id": "s1", "title": "Hello", "image_url": "x.jpg", "cta_text": "Go", "cta_link": "/"}],
		"showcase": {"title": "first", "hero_product_id": "lamp"}
	}`)
	writeGzip(t, filepath.Join(dir, "b.json.gz"), `{
		"products": [
			{"name": "Oak  Table!", "price": 150, "category_id": "tables"},
			{"name": "Rug", "price": 80, "category_id": "textiles"}
		],
		"banners": [{"id": "b1", "title": "Sale", "discount_text": "10% OFF", "is_active": true}],
		"showcase": {"title": "second", "support_product_ids": ["rug", "", "", ""]}
	}`)
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")

	files, err := seedFiles(dir)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "a.json"), filepath.Join(dir, "b.json.gz")}, files)

	docs, err := readSeedFiles(context.Background(), files)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	set, err := merge(docs, now)
	require.NoError(t, err)

	var slugs, ids []string
	for _, p := range set.products {
		slugs = append(slugs, p.Slug)
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"oak-table", "lamp", "rug"}, slugs)
	assert.Equal(t, []string{"oak-table", "lamp", "rug"}, ids)
	assert.Equal(t, "200", set.products[0].Price.String())
	assert.Equal(t, now, set.products[0].CreatedAt)

	require.Len(t, set.slides, 1)
	assert.Equal(t, "s1", set.slides[0].ID)
	require.Len(t, set.banners, 1)
	assert.True(t, set.banners[0].Active)
	require.NotNil(t, set.showcase)
	assert.Equal(t, "second", set.showcase.Title)
}

func TestReadSeedFile_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		file string
		data string
	}{
		{name: "unknown field", file: "a.json", data: `{"products": [], "vouchers": []}`},
		{name: "malformed", file: "b.json", data: `{"products": [`},
		{name: "not gzip", file: "c.json.gz", data: `{"products": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			writeFile(t, path, tt.data)

			_, err := readSeedFile(context.Background(), path)
			require.Error(t, err)
		})
	}
}

func TestMerge_Validation(t *testing.T) {
	tests := []struct {
		name  string
		doc   seedDoc
		field string
	}{
		{
			name:  "product without category",
			doc:   seedDoc{Products: []seedProduct{{ID: "x"}}},
			field: "name",
		},
		{
			name:  "slide without id",
			doc:   seedDoc{Slides: []seedSlide{{}}},
			field: "id",
		},
		{
			name:  "banner discount over 100",
			doc:   seedDoc{Banners: []seedBanner{{ID: "b", Title: "t", DiscountText: "x", DiscountPercentage: ptr(120)}}},
			field: "discount_percentage",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := merge([]seedDoc{tt.doc}, time.Now())

			var verr *validation.Error
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestSeedFiles_Empty(t *testing.T) {
	_, err := seedFiles(t.TempDir())
	require.Error(t, err)
}

func ptr[T any](v T) *T { return &v }
