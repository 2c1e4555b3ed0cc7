package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tienda-api/internal/domain"
)

var (
	ErrProductNotFound = errors.New("product not found")
)

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	List(ctx context.Context) ([]*domain.Product, error)
	ListIDs(ctx context.Context) ([]int64, error)
	FindByID(ctx context.Context, id int64) (*domain.Product, error)
	Create(ctx context.Context, fields domain.ProductFields) (*domain.Product, error)
	Update(ctx context.Context, id int64, fields domain.ProductFields) (*domain.Product, error)
	Delete(ctx context.Context, id int64) error
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

const productColumns = "id, name, short_desc, price, category, discount, stock, images, created_at"

func scanProduct(row interface{ Scan(...any) error }) (*domain.Product, error) {
	product := &domain.Product{}
	var images []byte

	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.ShortDesc,
		&product.Price,
		&product.Category,
		&product.Discount,
		&product.Stock,
		&images,
		&product.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(images, &product.Images); err != nil {
		return nil, fmt.Errorf("failed to decode product images: %w", err)
	}
	if product.Images == nil {
		product.Images = []string{}
	}

	return product, nil
}

func encodeImages(images []string) ([]byte, error) {
	if images == nil {
		images = []string{}
	}
	return json.Marshal(images)
}

// List retrieves all products, newest first
func (r *productRepository) List(ctx context.Context) ([]*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products ORDER BY id DESC`, productColumns)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// ListIDs retrieves the ids of all stored products
func (r *productRepository) ListIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list product ids: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan product id: %w", err)
		}
		ids = append(ids, id)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating product ids: %w", err)
	}

	return ids, nil
}

// FindByID retrieves a product by ID using parameterized queries
func (r *productRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns)

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// Create inserts a new product and returns it with its assigned id
func (r *productRepository) Create(ctx context.Context, fields domain.ProductFields) (*domain.Product, error) {
	images, err := encodeImages(fields.Images)
	if err != nil {
		return nil, fmt.Errorf("failed to encode product images: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO products (name, short_desc, price, category, discount, stock, images, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING %s
	`, productColumns)

	product, err := scanProduct(r.db.QueryRowContext(
		ctx,
		query,
		fields.Name,
		fields.ShortDesc,
		fields.Price,
		fields.Category,
		fields.Discount,
		fields.Stock,
		images,
		time.Now().UTC(),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return product, nil
}

// Update overwrites an existing product's fields
func (r *productRepository) Update(ctx context.Context, id int64, fields domain.ProductFields) (*domain.Product, error) {
	images, err := encodeImages(fields.Images)
	if err != nil {
		return nil, fmt.Errorf("failed to encode product images: %w", err)
	}

	query := fmt.Sprintf(`
		UPDATE products
		SET name = $2, short_desc = $3, price = $4, category = $5,
		    discount = $6, stock = $7, images = $8
		WHERE id = $1
		RETURNING %s
	`, productColumns)

	product, err := scanProduct(r.db.QueryRowContext(
		ctx,
		query,
		id,
		fields.Name,
		fields.ShortDesc,
		fields.Price,
		fields.Category,
		fields.Discount,
		fields.Stock,
		images,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	return product, nil
}

// Delete removes a product from the database
func (r *productRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}
