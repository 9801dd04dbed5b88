package product

import (
	"context"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/validation"
)

type memoryRepo struct {
	products []Product
	listErr  error
	writeErr error
}

func (m *memoryRepo) List(context.Context) ([]Product, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return slices.Clone(m.products), nil
}

func (m *memoryRepo) GetByID(_ context.Context, id string) (*Product, error) {
	for _, p := range m.products {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memoryRepo) GetByIDs(_ context.Context, ids []string) ([]Product, error) {
	var out []Product
	for _, p := range m.products {
		if slices.Contains(ids, p.ID) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memoryRepo) GetBySlug(_ context.Context, slug string) (*Product, error) {
	for _, p := range m.products {
		if p.Slug == slug {
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memoryRepo) Create(_ context.Context, p *Product) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.products = append(m.products, p.Clone())
	return nil
}

func (m *memoryRepo) Update(_ context.Context, p *Product) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	for i := range m.products {
		if m.products[i].ID == p.ID {
			m.products[i] = p.Clone()
			return nil
		}
	}
	return ErrNotFound
}

func (m *memoryRepo) Delete(_ context.Context, id string) error {
	n := len(m.products)
	m.products = slices.DeleteFunc(m.products, func(p Product) bool { return p.ID == id })
	if len(m.products) == n {
		return ErrNotFound
	}
	return nil
}

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestCatalog(t *testing.T, repo *memoryRepo) *Catalog {
	t.Helper()
	c := NewCatalog(repo)
	c.now = func() time.Time { return testNow }
	c.newID = func() string { return "new-id" }
	require.NoError(t, c.Fetch(context.Background()))
	return c
}

func seededRepo() *memoryRepo {
	return &memoryRepo{products: []Product{
		{ID: "old", Slug: "old", Name: "Old", Price: decimal.NewFromInt(10), Images: []string{"old.jpg"}, CreatedAt: testNow.Add(-2 * time.Hour)},
		{ID: "new", Slug: "new", Name: "New", Price: decimal.NewFromInt(20), CreatedAt: testNow.Add(-time.Hour)},
	}}
}

func TestCatalog_Fetch(t *testing.T) {
	c := NewCatalog(seededRepo())
	assert.False(t, c.Loaded())

	require.NoError(t, c.Fetch(context.Background()))

	assert.True(t, c.Loaded())
	assert.Equal(t, []string{"new", "old"}, productIDs(c.All()))
}

func TestCatalog_FetchErrorKeepsMirror(t *testing.T) {
	repo := seededRepo()
	c := newTestCatalog(t, repo)
	repo.listErr = errors.New("connection refused")

	require.Error(t, c.Fetch(context.Background()))

	assert.Len(t, c.All(), 2)
	assert.True(t, c.Loaded())
}

func TestCatalog_AllReturnsCopies(t *testing.T) {
	c := newTestCatalog(t, seededRepo())

	all := c.All()
	all[1].Images[0] = "mutated.jpg"

	p, ok := c.Get("old")
	require.True(t, ok)
	assert.Equal(t, []string{"old.jpg"}, p.Images)
}

func TestCatalog_GetAndLookup(t *testing.T) {
	repo := seededRepo()
	c := newTestCatalog(t, repo)
	repo.products = append(repo.products, Product{ID: "late", Slug: "late"})

	p, ok := c.GetBySlug("new")
	require.True(t, ok)
	assert.Equal(t, "new", p.ID)

	_, ok = c.Get("late")
	assert.False(t, ok)

	p, err := c.Lookup(context.Background(), "late")
	require.NoError(t, err)
	assert.Equal(t, "late", p.ID)

	_, err = c.Lookup(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCatalog_Add(t *testing.T) {
	repo := seededRepo()
	c := newTestCatalog(t, repo)

	p, err := c.Add(context.Background(), Input{
		Name:       "Oak Side Table",
		Price:      decimal.RequireFromString("89.90"),
		CategoryID: "tables",
		Images:     []string{"table.jpg"},
		Stock:      4,
	})
	require.NoError(t, err)

	assert.Equal(t, "new-id", p.ID)
	assert.Equal(t, "oak-side-table", p.Slug)
	assert.Equal(t, testNow, p.CreatedAt)
	assert.Equal(t, []string{"new-id", "new", "old"}, productIDs(c.All()))
	assert.Len(t, repo.products, 3)
}

func TestCatalog_AddErrors(t *testing.T) {
	tests := []struct {
		name     string
		in       Input
		writeErr error
		field    string
	}{
		{name: "missing name", in: Input{CategoryID: "x"}, field: "name"},
		{name: "missing category", in: Input{Name: "x"}, field: "category_id"},
		{name: "negative stock", in: Input{Name: "x", CategoryID: "x", Stock: -1}, field: "stock"},
		{name: "empty image", in: Input{Name: "x", CategoryID: "x", Images: []string{""}}, field: "images[0]"},
		{name: "negative price", in: Input{Name: "x", CategoryID: "x", Price: decimal.NewFromInt(-1)}, field: "price"},
		{name: "repository failure", in: Input{Name: "x", CategoryID: "x"}, writeErr: errors.New("unique violation")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := seededRepo()
			repo.writeErr = tt.writeErr
			c := newTestCatalog(t, repo)

			_, err := c.Add(context.Background(), tt.in)
			require.Error(t, err)
			if tt.field != "" {
				var verr *validation.Error
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, tt.field, verr.Field)
			}
			assert.Len(t, c.All(), 2)
		})
	}
}

func TestCatalog_Update(t *testing.T) {
	repo := seededRepo()
	c := newTestCatalog(t, repo)
	name := "Renamed"
	stock := 7

	p, err := c.Update(context.Background(), "old", Patch{Name: &name, Stock: &stock, Images: []string{}})
	require.NoError(t, err)

	assert.Equal(t, "Renamed", p.Name)
	assert.Equal(t, 7, p.Stock)
	assert.Empty(t, p.Images)
	assert.Equal(t, "old", p.Slug)
	assert.Equal(t, testNow, p.UpdatedAt)

	mirrored, ok := c.Get("old")
	require.True(t, ok)
	assert.Equal(t, "Renamed", mirrored.Name)
}

func TestCatalog_UpdateErrors(t *testing.T) {
	c := newTestCatalog(t, seededRepo())
	negative := decimal.NewFromInt(-5)
	long := strings.Repeat("x", 201)

	_, err := c.Update(context.Background(), "ghost", Patch{})
	require.ErrorIs(t, err, ErrNotFound)

	var verr *validation.Error
	_, err = c.Update(context.Background(), "old", Patch{Price: &negative})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "price", verr.Field)

	_, err = c.Update(context.Background(), "old", Patch{Name: &long})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)
}

func TestCatalog_Delete(t *testing.T) {
	c := newTestCatalog(t, seededRepo())

	require.NoError(t, c.Delete(context.Background(), "old"))
	assert.Equal(t, []string{"new"}, productIDs(c.All()))

	require.ErrorIs(t, c.Delete(context.Background(), "old"), ErrNotFound)
}
