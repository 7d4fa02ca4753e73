// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/openmealplan/mealplanner/internal/dbconn"
	"github.com/openmealplan/mealplanner/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicate    = errors.New("record already exists")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a repository based on configuration. For postgres the
// profile must come from dbconn.Resolve; for sqlite it is ignored.
func New(ctx context.Context, cfg domain.RepositoryConfig, profile *dbconn.ConnectionProfile) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(ctx, cfg, profile)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas(r.driver) {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// Ping verifies database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// DB exposes the underlying handle for health checks.
func (r *SQLRepository) DB() *sql.DB {
	return r.db
}

// rebind converts ? placeholders to $1, $2, ... for postgres.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}

// insertReturningID runs an INSERT and returns the generated row ID.
// Postgres needs RETURNING; sqlite uses LastInsertId.
func (r *SQLRepository) insertReturningID(ctx context.Context, query string, args ...any) (int64, error) {
	if r.driver == "postgres" {
		var id int64
		err := r.db.QueryRowContext(ctx, r.rebind(query)+" RETURNING id", args...).Scan(&id)
		return id, err
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// txInsertReturningID is insertReturningID inside a transaction.
func (r *SQLRepository) txInsertReturningID(ctx context.Context, tx *sql.Tx, query string, args ...any) (int64, error) {
	if r.driver == "postgres" {
		var id int64
		err := tx.QueryRowContext(ctx, r.rebind(query)+" RETURNING id", args...).Scan(&id)
		return id, err
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// isUniqueViolation detects unique constraint errors from either driver.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint")
}
