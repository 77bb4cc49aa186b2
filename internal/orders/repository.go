package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the requested order does not exist.
var ErrNotFound = errors.New("order not found")

// Repository exposes read and fulfilment access to orders. Order creation is
// not part of this contract: new rows are written by the settlement store in
// the same transaction as the debit that pays for them.
type Repository interface {
	Get(ctx context.Context, id string) (Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	UpdateProgress(ctx context.Context, id, status string, startCount, remains int64) error
}

// PostgresRepository reads orders from PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Get fetches a single order by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Order, error) {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return Order{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT id, user_id, service, quantity, price, status, start_count, remains, target_url, created_at
        FROM orders WHERE id = $1`, orderID)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	return o, err
}

// ListByUser returns a user's orders, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, `SELECT id, user_id, service, quantity, price, status, start_count, remains, target_url, created_at
        FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// UpdateProgress records fulfilment state for an order.
func (r *PostgresRepository) UpdateProgress(ctx context.Context, id, status string, startCount, remains int64) error {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	tag, err := r.db.Exec(ctx, `UPDATE orders SET status = $2, start_count = $3, remains = $4 WHERE id = $1`,
		orderID, status, startCount, remains)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (Order, error) {
	var (
		o         Order
		id, uid   uuid.UUID
		createdAt time.Time
	)
	if err := row.Scan(&id, &uid, &o.Service, &o.Quantity, &o.Price, &o.Status, &o.StartCount, &o.Remains, &o.TargetURL, &createdAt); err != nil {
		return Order{}, err
	}
	o.ID = id.String()
	o.UserID = uid.String()
	o.CreatedAt = createdAt.UTC()
	return o, nil
}
