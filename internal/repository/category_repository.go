package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tienda-api/internal/domain"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryInUse    = errors.New("category is referenced by existing products")
)

// CategoryRepository defines the interface for category data access
type CategoryRepository interface {
	List(ctx context.Context) ([]*domain.Category, error)
	FindByID(ctx context.Context, id int64) (*domain.Category, error)
	Upsert(ctx context.Context, name, label string) (*domain.Category, error)
	Delete(ctx context.Context, id int64) error
}

type categoryRepository struct {
	db *sql.DB
}

// NewCategoryRepository creates a new instance of CategoryRepository
func NewCategoryRepository(db *sql.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

// List retrieves all categories in creation order
func (r *categoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	query := `
		SELECT id, name, label, created_at
		FROM categories
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := []*domain.Category{}
	for rows.Next() {
		category := &domain.Category{}
		err := rows.Scan(
			&category.ID,
			&category.Name,
			&category.Label,
			&category.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

// FindByID retrieves a category by ID using parameterized queries
func (r *categoryRepository) FindByID(ctx context.Context, id int64) (*domain.Category, error) {
	query := `
		SELECT id, name, label, created_at
		FROM categories
		WHERE id = $1
	`

	category := &domain.Category{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&category.ID,
		&category.Name,
		&category.Label,
		&category.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to find category by ID: %w", err)
	}

	return category, nil
}

// Upsert inserts a category or updates the label of an existing one. The
// ON CONFLICT clause makes the existence check and the write a single atomic
// statement, so concurrent upserts of the same name cannot create duplicates.
func (r *categoryRepository) Upsert(ctx context.Context, name, label string) (*domain.Category, error) {
	query := `
		INSERT INTO categories (name, label, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET label = EXCLUDED.label
		RETURNING id, name, label, created_at
	`

	category := &domain.Category{}
	err := r.db.QueryRowContext(ctx, query, name, label, time.Now().UTC()).Scan(
		&category.ID,
		&category.Name,
		&category.Label,
		&category.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert category: %w", err)
	}

	return category, nil
}

// Delete removes a category unless a product still references its label.
// The reference check and the delete run in one transaction so a product
// created between the two statements cannot orphan itself.
func (r *categoryRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var label string
	err = tx.QueryRowContext(ctx, `SELECT label FROM categories WHERE id = $1`, id).Scan(&label)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("failed to find category: %w", err)
	}

	var refs int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM products WHERE category = $1`, label).Scan(&refs)
	if err != nil {
		return fmt.Errorf("failed to count category references: %w", err)
	}
	if refs > 0 {
		return ErrCategoryInUse
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}

	return tx.Commit()
}
