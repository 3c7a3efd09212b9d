// Package seed fills an empty store with a demo catalogue.
package seed

import (
	"context"
	"errors"
	"fmt"

	"produce-market/internal/domain"
	"produce-market/internal/repository"
	"produce-market/internal/service"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var namePrefixes = []string{"Organic", "Farm Fresh", "Hill", "Premium", "Local", "Baby"}

var units = []string{"kg", "500 g", "250 g", "piece", "dozen", "bunch"}

type categorySeed struct {
	name string
	subs []string
	pick func(*gofakeit.Faker) string
}

var categories = []categorySeed{
	{name: "Fruits", subs: []string{"Seasonal", "Everyday"}, pick: func(f *gofakeit.Faker) string { return f.Fruit() }},
	{name: "Vegetables", subs: []string{"Leafy Greens", "Roots", "Gourds"}, pick: func(f *gofakeit.Faker) string { return f.Vegetable() }},
}

// Result counts what Run created
type Result struct {
	Categories    int
	Subcategories int
	Products      int
	Skipped       int
}

type Seeder struct {
	catalog  service.CatalogService
	settings service.SettingsService
	faker    *gofakeit.Faker
	logger   *zap.Logger
}

// New returns a seeder; seed 0 picks a random seed.
func New(catalog service.CatalogService, settings service.SettingsService, seed uint64, logger *zap.Logger) *Seeder {
	return &Seeder{catalog: catalog, settings: settings, faker: gofakeit.New(seed), logger: logger}
}

// Run creates the demo categories when missing, then products spread
// across them, then persists the current (default) settings row.
func (s *Seeder) Run(ctx context.Context, products int) (*Result, error) {
	res := &Result{}

	existing, err := s.catalog.ListCategories(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	bySlug := make(map[string]*domain.Category, len(existing))
	for _, c := range existing {
		bySlug[c.Slug] = c
	}

	type target struct {
		category *domain.Category
		sub      *domain.Subcategory
		pick     func(*gofakeit.Faker) string
	}
	var targets []target

	for i, cs := range categories {
		category, ok := bySlug[domain.Slugify(cs.name)]
		if !ok {
			category, err = s.catalog.CreateCategory(ctx, service.CategoryInput{
				Name:        cs.name,
				Description: s.faker.Sentence(8),
				SortOrder:   i,
				IsActive:    true,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to create category %s: %w", cs.name, err)
			}
			res.Categories++
		}

		subs := make(map[string]*domain.Subcategory, len(category.Subcategories))
		for _, sub := range category.Subcategories {
			subs[sub.Slug] = sub
		}
		for j, name := range cs.subs {
			sub, ok := subs[domain.Slugify(name)]
			if !ok {
				sub, err = s.catalog.CreateSubcategory(ctx, category.ID, service.SubcategoryInput{Name: name, SortOrder: j, IsActive: true})
				if err != nil {
					return nil, fmt.Errorf("failed to create subcategory %s: %w", name, err)
				}
				res.Subcategories++
			}
			targets = append(targets, target{category: category, sub: sub, pick: cs.pick})
		}
	}

	for i := 0; i < products; i++ {
		t := targets[i%len(targets)]
		created, err := s.createProduct(ctx, t.category.ID, t.sub.ID, t.pick(s.faker))
		if err != nil {
			return nil, err
		}
		if created {
			res.Products++
		} else {
			res.Skipped++
		}
	}

	current, err := s.settings.Current(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.settings.Update(ctx, current); err != nil {
		return nil, err
	}

	return res, nil
}

// createProduct retries with a name prefix when the slug is taken and
// reports false once the attempts run out.
func (s *Seeder) createProduct(ctx context.Context, categoryID, subcategoryID uuid.UUID, base string) (bool, error) {
	name := base
	for attempt := 0; attempt < 4; attempt++ {
		price := decimal.NewFromFloat(s.faker.Price(20, 400)).Round(0)
		mrp := price
		if s.faker.Bool() {
			mrp = price.Mul(decimal.NewFromFloat(1.2)).Round(0)
		}
		preorder := s.faker.Number(1, 10) == 1

		in := service.ProductInput{
			Name:            name,
			Description:     s.faker.Sentence(12),
			CategoryID:      categoryID,
			SubcategoryID:   &subcategoryID,
			Unit:            units[s.faker.Number(0, len(units)-1)],
			Price:           price,
			MRP:             mrp,
			Stock:           s.faker.Number(0, 120),
			IsActive:        true,
			IsFeatured:      s.faker.Number(1, 6) == 1,
			IsAvailable:     !preorder,
			PreorderEnabled: preorder,
		}
		_, err := s.catalog.CreateProduct(ctx, in)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, repository.ErrProductAlreadyExists) {
			return false, fmt.Errorf("failed to create product %s: %w", name, err)
		}
		name = namePrefixes[s.faker.Number(0, len(namePrefixes)-1)] + " " + base
	}
	s.logger.Debug("Skipping product with taken name", zap.String("name", base))
	return false, nil
}
