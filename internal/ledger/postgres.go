package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/boostgram/boostgram/internal/orders"
)

const uniqueViolation = "23505"

// PostgresStore persists wallets and transactions in PostgreSQL. The wallet
// version check and entry insert run inside one transaction, which is what
// turns a read-then-write race into a detectable conflict.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed ledger store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateWallet provisions a zero-balance wallet for the user. Creating an
// already provisioned wallet is a no-op returning the existing snapshot.
func (s *PostgresStore) CreateWallet(ctx context.Context, userID string) (Wallet, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return Wallet{}, fmt.Errorf("parse user id: %w", err)
	}
	_, err = s.db.Exec(ctx, `INSERT INTO wallets (user_id, balance, total_added, total_spent, version, last_updated)
        VALUES ($1, 0, 0, 0, 1, $2) ON CONFLICT (user_id) DO NOTHING`, uid, time.Now().UTC())
	if err != nil {
		return Wallet{}, storeErr(err)
	}
	return s.GetWallet(ctx, userID)
}

// GetWallet returns the current wallet snapshot for the user.
func (s *PostgresStore) GetWallet(ctx context.Context, userID string) (Wallet, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return Wallet{}, ErrWalletNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT user_id, balance, total_added, total_spent, version, last_updated
        FROM wallets WHERE user_id = $1`, uid)
	return scanWallet(row)
}

// CompareAndSwapWallet writes the wallet fields only if the stored version
// still matches expectedVersion.
func (s *PostgresStore) CompareAndSwapWallet(ctx context.Context, expectedVersion int64, w Wallet) error {
	uid, err := uuid.Parse(w.UserID)
	if err != nil {
		return ErrWalletNotFound
	}
	tag, err := s.db.Exec(ctx, casWalletSQL, uid, w.Balance, w.TotalAdded, w.TotalSpent, w.Version, w.UpdatedAt.UTC(), expectedVersion)
	if err != nil {
		return storeErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

// AppendEntry inserts an immutable ledger entry. Entries carrying an external
// reference that already exists are rejected with ErrDuplicateReference.
func (s *PostgresStore) AppendEntry(ctx context.Context, e Entry) (Entry, error) {
	if err := s.insertEntry(ctx, s.db, e); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// EntryByExternalRef fetches the entry settled under the given payment reference.
func (s *PostgresStore) EntryByExternalRef(ctx context.Context, externalRef string) (Entry, error) {
	row := s.db.QueryRow(ctx, `SELECT `+entryColumns+` FROM transactions WHERE payment_id = $1`, externalRef)
	e, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrEntryNotFound
	}
	return e, err
}

// ListEntries returns a user's entries, newest first.
func (s *PostgresStore) ListEntries(ctx context.Context, userID string, filter EntryFilter) ([]Entry, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, ErrWalletNotFound
	}

	query := `SELECT ` + entryColumns + ` FROM transactions WHERE user_id = $1`
	args := []any{uid}
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		query += fmt.Sprintf(" AND type = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SettleCredit commits the wallet swap and the credit entry as one unit.
func (s *PostgresStore) SettleCredit(ctx context.Context, expectedVersion int64, w Wallet, e Entry) (Wallet, Entry, error) {
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		if err := s.casWalletTx(ctx, tx, expectedVersion, w); err != nil {
			return err
		}
		return s.insertEntry(ctx, tx, e)
	})
	if err != nil {
		return Wallet{}, Entry{}, err
	}
	return w, e, nil
}

// SettleDebit commits the wallet swap, the new order row and the debit entry
// as one unit.
func (s *PostgresStore) SettleDebit(ctx context.Context, expectedVersion int64, w Wallet, o orders.Order, e Entry) (Wallet, orders.Order, Entry, error) {
	orderID, err := uuid.Parse(o.ID)
	if err != nil {
		return Wallet{}, orders.Order{}, Entry{}, fmt.Errorf("parse order id: %w", err)
	}
	userID, err := uuid.Parse(o.UserID)
	if err != nil {
		return Wallet{}, orders.Order{}, Entry{}, fmt.Errorf("parse user id: %w", err)
	}
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		if err := s.casWalletTx(ctx, tx, expectedVersion, w); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `INSERT INTO orders (id, user_id, service, quantity, price, status, start_count, remains, target_url, created_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			orderID, userID, o.Service, o.Quantity, o.Price, o.Status, o.StartCount, o.Remains, o.TargetURL, o.CreatedAt.UTC()); err != nil {
			return storeErr(err)
		}
		return s.insertEntry(ctx, tx, e)
	})
	if err != nil {
		return Wallet{}, orders.Order{}, Entry{}, err
	}
	return w, o, e, nil
}

const casWalletSQL = `UPDATE wallets SET balance = $2, total_added = $3, total_spent = $4, version = $5, last_updated = $6
    WHERE user_id = $1 AND version = $7`

const entryColumns = `id, user_id, type, amount, description, status, payment_id, payment_method, order_id, created_at`

func (s *PostgresStore) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return storeErr(err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return storeErr(err)
	}
	return nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (s *PostgresStore) casWalletTx(ctx context.Context, tx execer, expectedVersion int64, w Wallet) error {
	uid, err := uuid.Parse(w.UserID)
	if err != nil {
		return ErrWalletNotFound
	}
	tag, err := tx.Exec(ctx, casWalletSQL, uid, w.Balance, w.TotalAdded, w.TotalSpent, w.Version, w.UpdatedAt.UTC(), expectedVersion)
	if err != nil {
		return storeErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

func (s *PostgresStore) insertEntry(ctx context.Context, tx execer, e Entry) error {
	entryID, err := uuid.Parse(e.ID)
	if err != nil {
		return fmt.Errorf("parse entry id: %w", err)
	}
	userID, err := uuid.Parse(e.UserID)
	if err != nil {
		return fmt.Errorf("parse user id: %w", err)
	}

	var externalRef, orderID any
	if e.ExternalRef != "" {
		externalRef = e.ExternalRef
	}
	if e.OrderID != "" {
		orderID = e.OrderID
	}

	_, err = tx.Exec(ctx, `INSERT INTO transactions (id, user_id, type, amount, description, status, payment_id, payment_method, order_id, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		entryID, userID, e.Kind, e.Amount, e.Description, e.Status, externalRef, e.PaymentMethod, orderID, e.CreatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateReference
		}
		return storeErr(err)
	}
	return nil
}

func scanWallet(row pgx.Row) (Wallet, error) {
	var (
		w         Wallet
		uid       uuid.UUID
		updatedAt time.Time
	)
	if err := row.Scan(&uid, &w.Balance, &w.TotalAdded, &w.TotalSpent, &w.Version, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrWalletNotFound
		}
		return Wallet{}, storeErr(err)
	}
	w.UserID = uid.String()
	w.UpdatedAt = updatedAt.UTC()
	return w, nil
}

func scanEntry(row pgx.Row) (Entry, error) {
	var (
		e           Entry
		id, uid     uuid.UUID
		externalRef *string
		orderID     *string
		createdAt   time.Time
	)
	if err := row.Scan(&id, &uid, &e.Kind, &e.Amount, &e.Description, &e.Status, &externalRef, &e.PaymentMethod, &orderID, &createdAt); err != nil {
		return Entry{}, err
	}
	e.ID = id.String()
	e.UserID = uid.String()
	if externalRef != nil {
		e.ExternalRef = *externalRef
	}
	if orderID != nil {
		e.OrderID = *orderID
	}
	e.CreatedAt = createdAt.UTC()
	return e, nil
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
