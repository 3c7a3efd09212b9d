package seed

import (
	"context"
	"testing"

	"produce-market/internal/domain"
	"produce-market/internal/repository"
	"produce-market/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeCatalog implements only what the seeder calls.
type fakeCatalog struct {
	service.CatalogService
	categories []*domain.Category
	products   map[string]service.ProductInput
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{products: make(map[string]service.ProductInput)}
}

func (f *fakeCatalog) ListCategories(ctx context.Context, includeHidden bool) ([]*domain.Category, error) {
	return f.categories, nil
}

func (f *fakeCatalog) CreateCategory(ctx context.Context, in service.CategoryInput) (*domain.Category, error) {
	c := &domain.Category{ID: uuid.New(), Name: in.Name, Slug: domain.Slugify(in.Name), IsActive: in.IsActive}
	f.categories = append(f.categories, c)
	return c, nil
}

func (f *fakeCatalog) CreateSubcategory(ctx context.Context, categoryID uuid.UUID, in service.SubcategoryInput) (*domain.Subcategory, error) {
	sub := &domain.Subcategory{ID: uuid.New(), CategoryID: categoryID, Name: in.Name, Slug: domain.Slugify(in.Name)}
	for _, c := range f.categories {
		if c.ID == categoryID {
			c.Subcategories = append(c.Subcategories, sub)
		}
	}
	return sub, nil
}

func (f *fakeCatalog) CreateProduct(ctx context.Context, in service.ProductInput) (*domain.Product, error) {
	slug := domain.Slugify(in.Name)
	if _, taken := f.products[slug]; taken {
		return nil, repository.ErrProductAlreadyExists
	}
	f.products[slug] = in
	return &domain.Product{ID: uuid.New(), Name: in.Name, Slug: slug}, nil
}

type fakeSettings struct {
	service.SettingsService
	saved *domain.SiteSettings
}

func (f *fakeSettings) Current(ctx context.Context) (*domain.SiteSettings, error) {
	return service.DefaultSettings(), nil
}

func (f *fakeSettings) Update(ctx context.Context, s *domain.SiteSettings) (*domain.SiteSettings, error) {
	f.saved = s
	return s, nil
}

func TestRunCreatesCatalogue(t *testing.T) {
	catalog := newFakeCatalog()
	settings := &fakeSettings{}

	res, err := New(catalog, settings, 42, zap.NewNop()).Run(context.Background(), 12)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Categories)
	assert.Equal(t, 5, res.Subcategories)
	assert.Equal(t, 12, res.Products+res.Skipped)
	assert.Len(t, catalog.products, res.Products)
	require.NotNil(t, settings.saved)

	for slug, p := range catalog.products {
		assert.True(t, p.Price.IsPositive(), slug)
		assert.False(t, p.MRP.LessThan(p.Price), slug)
		assert.GreaterOrEqual(t, p.Stock, 0, slug)
		require.NotNil(t, p.SubcategoryID, slug)
	}
}

func TestRunReusesExistingCategories(t *testing.T) {
	catalog := newFakeCatalog()
	seeder := New(catalog, &fakeSettings{}, 7, zap.NewNop())

	_, err := seeder.Run(context.Background(), 0)
	require.NoError(t, err)

	res, err := seeder.Run(context.Background(), 3)
	require.NoError(t, err)
	assert.Zero(t, res.Categories)
	assert.Zero(t, res.Subcategories)
	assert.Len(t, catalog.categories, 2)
}
