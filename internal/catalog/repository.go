package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository exposes read access to the services catalog. Catalog CRUD is
// managed elsewhere; this service only browses and prices.
type Repository interface {
	ListActive(ctx context.Context) ([]Service, error)
	Get(ctx context.Context, id string) (Service, error)
}

// PostgresRepository reads the catalog from PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const serviceColumns = `id, name, category, description, price, min_quantity, max_quantity, is_active, created_at`

// ListActive returns orderable services grouped by category then name.
func (r *PostgresRepository) ListActive(ctx context.Context) ([]Service, error) {
	rows, err := r.db.Query(ctx, `SELECT `+serviceColumns+` FROM services WHERE is_active ORDER BY category, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, svc)
	}
	return out, rows.Err()
}

// Get fetches a single service by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Service, error) {
	row := r.db.QueryRow(ctx, `SELECT `+serviceColumns+` FROM services WHERE id = $1`, id)
	svc, err := scanService(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Service{}, ErrNotFound
	}
	return svc, err
}

func scanService(row pgx.Row) (Service, error) {
	var (
		svc         Service
		description *string
		createdAt   time.Time
	)
	if err := row.Scan(&svc.ID, &svc.Name, &svc.Category, &description, &svc.Price, &svc.MinQuantity, &svc.MaxQuantity, &svc.Active, &createdAt); err != nil {
		return Service{}, err
	}
	if description != nil {
		svc.Description = *description
	}
	svc.CreatedAt = createdAt.UTC()
	return svc, nil
}
