package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"tienda-api/internal/domain"
	"tienda-api/internal/repository"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Mock repositories for testing
type mockProductRepository struct {
	products map[int64]*domain.Product
	nextID   int64
	failIDs  map[int64]bool // ids whose mutations fail, for partial-failure tests
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{
		products: make(map[int64]*domain.Product),
		nextID:   1,
		failIDs:  make(map[int64]bool),
	}
}

func (m *mockProductRepository) List(ctx context.Context) ([]*domain.Product, error) {
	ids := make([]int64, 0, len(m.products))
	for id := range m.products {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })

	products := make([]*domain.Product, 0, len(ids))
	for _, id := range ids {
		products = append(products, m.products[id])
	}
	return products, nil
}

func (m *mockProductRepository) ListIDs(ctx context.Context) ([]int64, error) {
	ids := make([]int64, 0, len(m.products))
	for id := range m.products {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	product, exists := m.products[id]
	if !exists {
		return nil, repository.ErrProductNotFound
	}
	return product, nil
}

func (m *mockProductRepository) Create(ctx context.Context, fields domain.ProductFields) (*domain.Product, error) {
	product := &domain.Product{
		ID:        m.nextID,
		Name:      fields.Name,
		ShortDesc: fields.ShortDesc,
		Price:     fields.Price,
		Category:  fields.Category,
		Discount:  fields.Discount,
		Stock:     fields.Stock,
		Images:    fields.Images,
		CreatedAt: time.Now(),
	}
	m.products[product.ID] = product
	m.nextID++
	return product, nil
}

func (m *mockProductRepository) Update(ctx context.Context, id int64, fields domain.ProductFields) (*domain.Product, error) {
	if m.failIDs[id] {
		return nil, errors.New("simulated backend failure")
	}
	product, exists := m.products[id]
	if !exists {
		return nil, repository.ErrProductNotFound
	}
	product.Name = fields.Name
	product.ShortDesc = fields.ShortDesc
	product.Price = fields.Price
	product.Category = fields.Category
	product.Discount = fields.Discount
	product.Stock = fields.Stock
	product.Images = fields.Images
	return product, nil
}

func (m *mockProductRepository) Delete(ctx context.Context, id int64) error {
	if m.failIDs[id] {
		return errors.New("simulated backend failure")
	}
	if _, exists := m.products[id]; !exists {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

type mockCategoryRepository struct {
	categories map[string]*domain.Category
	products   *mockProductRepository
	nextID     int64
}

func newMockCategoryRepository(products *mockProductRepository) *mockCategoryRepository {
	return &mockCategoryRepository{
		categories: make(map[string]*domain.Category),
		products:   products,
		nextID:     1,
	}
}

func (m *mockCategoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	categories := make([]*domain.Category, 0, len(m.categories))
	for _, c := range m.categories {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].ID < categories[j].ID })
	return categories, nil
}

func (m *mockCategoryRepository) FindByID(ctx context.Context, id int64) (*domain.Category, error) {
	for _, c := range m.categories {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, repository.ErrCategoryNotFound
}

func (m *mockCategoryRepository) Upsert(ctx context.Context, name, label string) (*domain.Category, error) {
	if existing, ok := m.categories[name]; ok {
		existing.Label = label
		return existing, nil
	}
	category := &domain.Category{
		ID:        m.nextID,
		Name:      name,
		Label:     label,
		CreatedAt: time.Now(),
	}
	m.categories[name] = category
	m.nextID++
	return category, nil
}

func (m *mockCategoryRepository) Delete(ctx context.Context, id int64) error {
	for name, c := range m.categories {
		if c.ID != id {
			continue
		}
		for _, p := range m.products.products {
			if p.Category == c.Label {
				return repository.ErrCategoryInUse
			}
		}
		delete(m.categories, name)
		return nil
	}
	return repository.ErrCategoryNotFound
}

func newTestCatalogService() (CatalogService, *mockProductRepository, *mockCategoryRepository) {
	products := newMockProductRepository()
	categories := newMockCategoryRepository(products)
	logger := zap.NewNop()
	return NewCatalogService(products, categories, nil, logger), products, categories
}

func validFields(name string) domain.ProductFields {
	return domain.ProductFields{
		Name:   name,
		Price:  decimal.NewFromFloat(9.99),
		Stock:  3,
		Images: []string{},
	}
}

func TestCreateProductAssignsFreshID(t *testing.T) {
	svc, _, _ := newTestCatalogService()
	ctx := context.Background()

	first, err := svc.CreateProduct(ctx, validFields("Polo"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	second, err := svc.CreateProduct(ctx, validFields("Gorra"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if first.ID == second.ID {
		t.Errorf("expected unique ids, both got %d", first.ID)
	}

	got, err := svc.GetProduct(ctx, first.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Name != "Polo" || !got.Price.Equal(decimal.NewFromFloat(9.99)) || got.Stock != 3 {
		t.Errorf("retrieved product does not match supplied fields: %+v", got)
	}
}

func TestCreateProductValidation(t *testing.T) {
	svc, _, _ := newTestCatalogService()
	ctx := context.Background()

	cases := []struct {
		name    string
		fields  domain.ProductFields
		wantErr error
	}{
		{"empty name", domain.ProductFields{Price: decimal.NewFromInt(5)}, ErrNameRequired},
		{"zero price", domain.ProductFields{Name: "x", Price: decimal.Zero}, ErrInvalidPrice},
		{"negative price", domain.ProductFields{Name: "x", Price: decimal.NewFromInt(-1)}, ErrInvalidPrice},
		{"negative stock", domain.ProductFields{Name: "x", Price: decimal.NewFromInt(1), Stock: -1}, ErrInvalidStock},
		{"discount above 100", domain.ProductFields{Name: "x", Price: decimal.NewFromInt(1), Discount: 101}, ErrInvalidDiscount},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.CreateProduct(ctx, tc.fields); !errors.Is(err, tc.wantErr) {
				t.Errorf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestUpdateProductNotFoundNeverCreates(t *testing.T) {
	svc, products, _ := newTestCatalogService()
	ctx := context.Background()

	_, err := svc.UpdateProduct(ctx, 42, validFields("Fantasma"))
	if !errors.Is(err, repository.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	if len(products.products) != 0 {
		t.Errorf("update of a missing id must not create a row, store has %d", len(products.products))
	}
}

func TestSaveAllReconciliation(t *testing.T) {
	svc, products, _ := newTestCatalogService()
	ctx := context.Background()

	// Seed stored ids 1, 2, 3
	for _, name := range []string{"uno", "dos", "tres"} {
		if _, err := svc.CreateProduct(ctx, validFields(name)); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	two := int64(2)
	result, err := svc.SaveAll(ctx, []ProductInput{
		{ID: &two, Fields: validFields("dos-actualizado")},
		{Fields: validFields("nuevo")},
	}, nil)
	if err != nil {
		t.Fatalf("SaveAll failed: %v", err)
	}

	if len(result.Errors) != 0 {
		t.Fatalf("expected no item errors, got %+v", result.Errors)
	}
	if len(result.Deleted) != 2 {
		t.Errorf("expected ids 1 and 3 deleted, got %v", result.Deleted)
	}
	if len(result.Updated) != 1 || result.Updated[0] != 2 {
		t.Errorf("expected id 2 updated, got %v", result.Updated)
	}
	if len(result.Created) != 1 {
		t.Errorf("expected one created product, got %v", result.Created)
	}
	if len(products.products) != 2 {
		t.Errorf("expected 2 stored products, got %d", len(products.products))
	}

	updated, err := svc.GetProduct(ctx, 2)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if updated.Name != "dos-actualizado" {
		t.Errorf("expected updated name, got %q", updated.Name)
	}
}

func TestSaveAllUnknownClientIDGetsFreshID(t *testing.T) {
	svc, _, _ := newTestCatalogService()
	ctx := context.Background()

	clientID := int64(1755000000000) // timestamp-style client id
	result, err := svc.SaveAll(ctx, []ProductInput{
		{ID: &clientID, Fields: validFields("cliente")},
	}, nil)
	if err != nil {
		t.Fatalf("SaveAll failed: %v", err)
	}

	if len(result.Created) != 1 {
		t.Fatalf("expected one created product, got %v", result.Created)
	}
	if result.Created[0] == clientID {
		t.Errorf("client-supplied id must not be preserved, got %d", result.Created[0])
	}
}

func TestSaveAllContinuesOnItemFailure(t *testing.T) {
	svc, products, _ := newTestCatalogService()
	ctx := context.Background()

	for _, name := range []string{"uno", "dos", "tres"} {
		if _, err := svc.CreateProduct(ctx, validFields(name)); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}
	products.failIDs[1] = true // deletion of id 1 will fail

	three := int64(3)
	result, err := svc.SaveAll(ctx, []ProductInput{
		{ID: &three, Fields: validFields("tres-v2")},
		{Fields: domain.ProductFields{Name: "", Price: decimal.NewFromInt(1)}}, // invalid
		{Fields: validFields("nuevo")},
	}, []CategoryInput{{Name: "books", Label: "Libros"}})
	if err != nil {
		t.Fatalf("SaveAll must not abort on item failures: %v", err)
	}

	if len(result.Errors) != 2 {
		t.Errorf("expected 2 itemized errors (failed delete, invalid record), got %+v", result.Errors)
	}
	if len(result.Updated) != 1 || result.Updated[0] != 3 {
		t.Errorf("expected id 3 updated despite earlier failures, got %v", result.Updated)
	}
	if len(result.Created) != 1 {
		t.Errorf("expected valid new product created despite invalid sibling, got %v", result.Created)
	}
	if len(result.Categories) != 1 || result.Categories[0] != "books" {
		t.Errorf("expected category upserted after product failures, got %v", result.Categories)
	}
}

func TestUpsertCategoryTwiceYieldsOneRow(t *testing.T) {
	svc, _, categories := newTestCatalogService()
	ctx := context.Background()

	first, err := svc.UpsertCategory(ctx, "books", "Libros")
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	second, err := svc.UpsertCategory(ctx, "books", "Librería")
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	if len(categories.categories) != 1 {
		t.Errorf("expected exactly one row for name=books, got %d", len(categories.categories))
	}
	if first.ID != second.ID {
		t.Errorf("expected the same row on re-upsert, got ids %d and %d", first.ID, second.ID)
	}
	if second.Label != "Librería" {
		t.Errorf("expected label updated, got %q", second.Label)
	}
}

func TestDeleteCategoryInUse(t *testing.T) {
	svc, _, _ := newTestCatalogService()
	ctx := context.Background()

	category, err := svc.UpsertCategory(ctx, "books", "Libros")
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	fields := validFields("Quijote")
	fields.Category = "Libros"
	product, err := svc.CreateProduct(ctx, fields)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := svc.DeleteCategory(ctx, category.ID); !errors.Is(err, repository.ErrCategoryInUse) {
		t.Fatalf("expected ErrCategoryInUse, got %v", err)
	}

	if err := svc.DeleteProduct(ctx, product.ID); err != nil {
		t.Fatalf("delete product failed: %v", err)
	}
	if err := svc.DeleteCategory(ctx, category.ID); err != nil {
		t.Errorf("expected delete to succeed once unreferenced, got %v", err)
	}
}

// Property: SaveAll converges the store to the desired state — kept ids
// survive, dropped ids disappear, and each new record gets a fresh id.
func TestProperty_SaveAllConverges(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("stored state matches desired state after one batch", prop.ForAll(
		func(initial int, kept int, added int) bool {
			if initial < 0 || initial > 12 {
				initial = initial % 12
				if initial < 0 {
					initial = -initial
				}
			}
			if kept < 0 {
				kept = 0
			}
			if kept > initial {
				kept = initial
			}
			if added < 0 || added > 8 {
				added = (added%8 + 8) % 8
			}

			svc, products, _ := newTestCatalogService()
			ctx := context.Background()

			seeded := make([]int64, 0, initial)
			for i := 0; i < initial; i++ {
				p, err := svc.CreateProduct(ctx, validFields(fmt.Sprintf("seed-%d", i)))
				if err != nil {
					t.Logf("FAIL: seed: %v", err)
					return false
				}
				seeded = append(seeded, p.ID)
			}

			desired := make([]ProductInput, 0, kept+added)
			for i := 0; i < kept; i++ {
				id := seeded[i]
				desired = append(desired, ProductInput{ID: &id, Fields: validFields(fmt.Sprintf("kept-%d", i))})
			}
			for i := 0; i < added; i++ {
				desired = append(desired, ProductInput{Fields: validFields(fmt.Sprintf("added-%d", i))})
			}

			result, err := svc.SaveAll(ctx, desired, nil)
			if err != nil {
				t.Logf("FAIL: SaveAll: %v", err)
				return false
			}

			if len(result.Errors) != 0 {
				t.Logf("FAIL: unexpected item errors: %+v", result.Errors)
				return false
			}
			if len(result.Deleted) != initial-kept {
				t.Logf("FAIL: deleted %d, expected %d", len(result.Deleted), initial-kept)
				return false
			}
			if len(result.Updated) != kept || len(result.Created) != added {
				t.Logf("FAIL: updated=%d created=%d, expected %d/%d",
					len(result.Updated), len(result.Created), kept, added)
				return false
			}
			if len(products.products) != kept+added {
				t.Logf("FAIL: store holds %d products, expected %d", len(products.products), kept+added)
				return false
			}

			for i := 0; i < kept; i++ {
				if _, ok := products.products[seeded[i]]; !ok {
					t.Logf("FAIL: kept id %d missing after batch", seeded[i])
					return false
				}
			}
			for i := kept; i < initial; i++ {
				if _, ok := products.products[seeded[i]]; ok {
					t.Logf("FAIL: dropped id %d still stored", seeded[i])
					return false
				}
			}

			return true
		},
		gen.IntRange(0, 12),
		gen.IntRange(0, 12),
		gen.IntRange(0, 8),
	))

	properties.TestingRun(t)
}

// Property: a second SaveAll with the same desired state neither grows nor
// shrinks the store.
func TestProperty_SaveAllIdempotentOnCount(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("repeating a batch leaves the product count unchanged", prop.ForAll(
		func(names []string) bool {
			svc, products, _ := newTestCatalogService()
			ctx := context.Background()

			desired := make([]ProductInput, 0, len(names))
			for i := range names {
				desired = append(desired, ProductInput{Fields: validFields(fmt.Sprintf("p-%d", i))})
			}

			if _, err := svc.SaveAll(ctx, desired, nil); err != nil {
				t.Logf("FAIL: first SaveAll: %v", err)
				return false
			}
			countAfterFirst := len(products.products)

			if _, err := svc.SaveAll(ctx, desired, nil); err != nil {
				t.Logf("FAIL: second SaveAll: %v", err)
				return false
			}

			if len(products.products) != countAfterFirst {
				t.Logf("FAIL: count changed from %d to %d", countAfterFirst, len(products.products))
				return false
			}
			return true
		},
		gen.SliceOfN(5, gen.AlphaString()),
	))

	properties.TestingRun(t)
}
