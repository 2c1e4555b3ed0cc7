package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tienda-api/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Service wraps the database connection pool and exposes health information.
type Service struct {
	db *sql.DB
}

// New opens a Postgres connection pool from the given configuration.
func New(cfg config.DatabaseConfig) (*Service, error) {
	connStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable&search_path=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.Schema,
	)

	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &Service{db: db}, nil
}

// DB returns the underlying connection pool.
func (s *Service) DB() *sql.DB {
	return s.db
}

// Health reports connectivity and pool statistics.
func (s *Service) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	status := map[string]string{"status": "up"}

	if err := s.db.PingContext(ctx); err != nil {
		status["status"] = "down"
		status["error"] = err.Error()
		return status
	}

	stats := s.db.Stats()
	status["open_connections"] = fmt.Sprintf("%d", stats.OpenConnections)
	status["in_use"] = fmt.Sprintf("%d", stats.InUse)
	status["idle"] = fmt.Sprintf("%d", stats.Idle)

	return status
}

// Close closes the connection pool.
func (s *Service) Close() error {
	return s.db.Close()
}
