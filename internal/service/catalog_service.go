package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"tienda-api/internal/domain"
	"tienda-api/internal/repository"

	"go.uber.org/zap"
)

var (
	ErrNameRequired    = errors.New("product name is required")
	ErrInvalidPrice    = errors.New("product price must be greater than zero")
	ErrInvalidStock    = errors.New("product stock cannot be negative")
	ErrInvalidDiscount = errors.New("product discount must be between 0 and 100")
)

// CatalogData is the combined product and category state of the store.
type CatalogData struct {
	Products   []*domain.Product  `json:"products"`
	Categories []*domain.Category `json:"categories"`
}

// ProductInput is a desired product record in a SaveAll batch. ID is nil for
// records the client considers new.
type ProductInput struct {
	ID     *int64
	Fields domain.ProductFields
}

// CategoryInput is a desired category entry in a SaveAll batch.
type CategoryInput struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

// SaveAllError describes one failed record of a SaveAll batch.
type SaveAllError struct {
	Op     string `json:"op"`
	ID     int64  `json:"id,omitempty"`
	Name   string `json:"name,omitempty"`
	Reason string `json:"reason"`
}

// SaveAllResult itemizes the outcome of a SaveAll batch so callers can tell
// which records were applied and which failed.
type SaveAllResult struct {
	Deleted    []int64        `json:"deleted"`
	Created    []int64        `json:"created"`
	Updated    []int64        `json:"updated"`
	Categories []string       `json:"categories"`
	Errors     []SaveAllError `json:"errors"`
}

// CatalogCache caches the serialized catalog between reads. Implementations
// must treat every method as best-effort; a cache failure never fails a call.
type CatalogCache interface {
	Get(ctx context.Context) ([]byte, bool)
	Set(ctx context.Context, payload []byte)
	Invalidate(ctx context.Context)
}

// CatalogService defines the business logic over the product catalog
type CatalogService interface {
	Catalog(ctx context.Context) (*CatalogData, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	CreateProduct(ctx context.Context, fields domain.ProductFields) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id int64, fields domain.ProductFields) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	UpsertCategory(ctx context.Context, name, label string) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	SaveAll(ctx context.Context, products []ProductInput, categories []CategoryInput) (*SaveAllResult, error)
}

type catalogService struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	cache      CatalogCache
	logger     *zap.Logger
}

// NewCatalogService creates a new instance of CatalogService. cache may be
// nil, in which case every read goes to the repositories.
func NewCatalogService(
	products repository.ProductRepository,
	categories repository.CategoryRepository,
	cache CatalogCache,
	logger *zap.Logger,
) CatalogService {
	return &catalogService{
		products:   products,
		categories: categories,
		cache:      cache,
		logger:     logger,
	}
}

// Catalog returns the full catalog, served from the cache when possible.
func (s *catalogService) Catalog(ctx context.Context) (*CatalogData, error) {
	if s.cache != nil {
		if payload, ok := s.cache.Get(ctx); ok {
			data := &CatalogData{}
			if err := json.Unmarshal(payload, data); err == nil {
				return data, nil
			}
			// A corrupt entry is dropped and rebuilt from the database.
			s.cache.Invalidate(ctx)
		}
	}

	products, err := s.products.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}

	data := &CatalogData{Products: products, Categories: categories}

	if s.cache != nil {
		if payload, err := json.Marshal(data); err == nil {
			s.cache.Set(ctx, payload)
		}
	}

	return data, nil
}

// GetProduct retrieves a single product by id
func (s *catalogService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	return s.products.FindByID(ctx, id)
}

// CreateProduct validates and stores a new product
func (s *catalogService) CreateProduct(ctx context.Context, fields domain.ProductFields) (*domain.Product, error) {
	if err := validateProduct(fields); err != nil {
		return nil, err
	}

	product, err := s.products.Create(ctx, fields)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	return product, nil
}

// UpdateProduct validates and overwrites an existing product
func (s *catalogService) UpdateProduct(ctx context.Context, id int64, fields domain.ProductFields) (*domain.Product, error) {
	if err := validateProduct(fields); err != nil {
		return nil, err
	}

	product, err := s.products.Update(ctx, id, fields)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	return product, nil
}

// DeleteProduct removes a product by id
func (s *catalogService) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}

	s.invalidate(ctx)
	return nil
}

// UpsertCategory creates a category or relabels an existing one
func (s *catalogService) UpsertCategory(ctx context.Context, name, label string) (*domain.Category, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	label = strings.TrimSpace(label)
	if name == "" || label == "" {
		return nil, ErrNameRequired
	}

	category, err := s.categories.Upsert(ctx, name, label)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	return category, nil
}

// DeleteCategory removes a category unless products still reference it
func (s *catalogService) DeleteCategory(ctx context.Context, id int64) error {
	if err := s.categories.Delete(ctx, id); err != nil {
		return err
	}

	s.invalidate(ctx)
	return nil
}

// SaveAll converges the stored catalog to the desired state in one batch:
// products missing from the request are deleted, the rest are inserted or
// updated, then the categories are upserted. Each record is applied
// independently; a failed record is logged, collected into the result and
// skipped, never aborting the rest of the batch.
func (s *catalogService) SaveAll(ctx context.Context, products []ProductInput, categories []CategoryInput) (*SaveAllResult, error) {
	currentIDs, err := s.products.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load current product ids: %w", err)
	}

	current := make(map[int64]bool, len(currentIDs))
	for _, id := range currentIDs {
		current[id] = true
	}

	received := make(map[int64]bool, len(products))
	for _, p := range products {
		if p.ID != nil {
			received[*p.ID] = true
		}
	}

	result := &SaveAllResult{
		Deleted:    []int64{},
		Created:    []int64{},
		Updated:    []int64{},
		Categories: []string{},
		Errors:     []SaveAllError{},
	}

	// Deletions first, so a shrunk catalog converges even when later
	// records fail.
	for _, id := range currentIDs {
		if received[id] {
			continue
		}
		if err := s.products.Delete(ctx, id); err != nil {
			s.logger.Warn("saveAll: delete failed",
				zap.Int64("product_id", id),
				zap.Error(err),
			)
			result.Errors = append(result.Errors, SaveAllError{Op: "delete", ID: id, Reason: err.Error()})
			continue
		}
		result.Deleted = append(result.Deleted, id)
	}

	for _, p := range products {
		if err := validateProduct(p.Fields); err != nil {
			s.logger.Warn("saveAll: invalid product skipped",
				zap.String("name", p.Fields.Name),
				zap.Error(err),
			)
			e := SaveAllError{Op: "upsert", Name: p.Fields.Name, Reason: err.Error()}
			if p.ID != nil {
				e.ID = *p.ID
			}
			result.Errors = append(result.Errors, e)
			continue
		}

		// An id the store has never seen is treated as new; the record
		// gets a fresh server-assigned id and the client id is dropped.
		if p.ID == nil || !current[*p.ID] {
			created, err := s.products.Create(ctx, p.Fields)
			if err != nil {
				s.logger.Warn("saveAll: insert failed",
					zap.String("name", p.Fields.Name),
					zap.Error(err),
				)
				result.Errors = append(result.Errors, SaveAllError{Op: "create", Name: p.Fields.Name, Reason: err.Error()})
				continue
			}
			result.Created = append(result.Created, created.ID)
			continue
		}

		if _, err := s.products.Update(ctx, *p.ID, p.Fields); err != nil {
			s.logger.Warn("saveAll: update failed",
				zap.Int64("product_id", *p.ID),
				zap.Error(err),
			)
			result.Errors = append(result.Errors, SaveAllError{Op: "update", ID: *p.ID, Reason: err.Error()})
			continue
		}
		result.Updated = append(result.Updated, *p.ID)
	}

	for _, c := range categories {
		name := strings.ToLower(strings.TrimSpace(c.Name))
		label := strings.TrimSpace(c.Label)
		if name == "" || label == "" {
			continue
		}
		if _, err := s.categories.Upsert(ctx, name, label); err != nil {
			s.logger.Warn("saveAll: category upsert failed",
				zap.String("name", name),
				zap.Error(err),
			)
			result.Errors = append(result.Errors, SaveAllError{Op: "category", Name: name, Reason: err.Error()})
			continue
		}
		result.Categories = append(result.Categories, name)
	}

	s.invalidate(ctx)
	return result, nil
}

func (s *catalogService) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}

func validateProduct(fields domain.ProductFields) error {
	if strings.TrimSpace(fields.Name) == "" {
		return ErrNameRequired
	}
	if fields.Price.Sign() <= 0 {
		return ErrInvalidPrice
	}
	if fields.Stock < 0 {
		return ErrInvalidStock
	}
	if fields.Discount < 0 || fields.Discount > 100 {
		return ErrInvalidDiscount
	}
	return nil
}
