package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonhee/bracket/internal/contracts"
	"github.com/wonhee/bracket/internal/validation"
)

// PostgresRepo is the local server of record. Take-profit levels are
// stored as JSONB since their slot order is semantically meaningful.
type PostgresRepo struct {
	pool *pgxpool.Pool
}

// NewPostgresRepo creates a Postgres-backed persistence implementation.
func NewPostgresRepo(pool *pgxpool.Pool) *PostgresRepo {
	return &PostgresRepo{pool: pool}
}

// EnsureSchema creates the orders table if missing.
func (r *PostgresRepo) EnsureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS bracket_orders (
			id                    TEXT PRIMARY KEY,
			symbol                TEXT NOT NULL,
			side                  TEXT NOT NULL,
			quantity              DOUBLE PRECISION NOT NULL,
			status                TEXT NOT NULL,
			entry_type            TEXT NOT NULL,
			entry_price           DOUBLE PRECISION NOT NULL DEFAULT 0,
			stop_loss_price       DOUBLE PRECISION NOT NULL DEFAULT 0,
			take_profit_levels    JSONB NOT NULL DEFAULT '[]',
			entry_filled_quantity DOUBLE PRECISION NOT NULL DEFAULT 0,
			total_filled_quantity DOUBLE PRECISION NOT NULL DEFAULT 0,
			remaining_quantity    DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at            TIMESTAMPTZ NOT NULL,
			updated_at            TIMESTAMPTZ NOT NULL
		)
	`

	if _, err := r.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// Create assigns a server id and persists the draft with pending status.
func (r *PostgresRepo) Create(ctx context.Context, draft *contracts.BracketOrder) (*contracts.BracketOrder, error) {
	order := draft.Clone()
	order.ID = uuid.NewString()
	order.Status = contracts.StatusPending
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	order.RemainingQuantity = order.Quantity

	tpJSON, err := json.Marshal(order.TakeProfitLevels)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal take profit levels: %w", err)
	}

	const query = `
		INSERT INTO bracket_orders (
			id, symbol, side, quantity, status, entry_type, entry_price,
			stop_loss_price, take_profit_levels, entry_filled_quantity,
			total_filled_quantity, remaining_quantity, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$13)
	`

	_, err = r.pool.Exec(ctx, query,
		order.ID, order.Symbol, order.Side, order.Quantity, order.Status,
		order.EntryType, order.EntryPrice, order.StopLossPrice, tpJSON,
		order.EntryFilledQuantity, order.TotalFilledQuantity,
		order.RemainingQuantity, order.CreatedAt,
	)
	if err != nil {
		return nil, &RetryableError{Err: fmt.Errorf("failed to insert order: %w", err)}
	}

	return order, nil
}

// List returns orders newest first, optionally filtered by symbol.
func (r *PostgresRepo) List(ctx context.Context, symbol string) ([]*contracts.BracketOrder, error) {
	query := selectColumns + ` FROM bracket_orders`
	args := []interface{}{}
	if symbol != "" {
		query += ` WHERE symbol = $1`
		args = append(args, symbol)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, &RetryableError{Err: fmt.Errorf("failed to query orders: %w", err)}
	}
	defer rows.Close()

	orders := make([]*contracts.BracketOrder, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return orders, nil
}

// Update applies a partial mutation after re-validating the resulting
// leg set, then echoes the full stored order. Entry price edits are only
// accepted while the order is still pending; protective legs stay
// editable in any non-terminal status.
func (r *PostgresRepo) Update(ctx context.Context, orderID string, patch contracts.OrderPatch) (*contracts.BracketOrder, error) {
	current, err := r.get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if current.Status.Terminal() {
		return nil, fmt.Errorf("%w: order %s is %s", ErrConflict, orderID, current.Status)
	}
	if patch.EntryPrice != nil && current.Status != contracts.StatusPending {
		return nil, fmt.Errorf("%w: entry price is only editable while pending", ErrConflict)
	}

	updated := patch.ApplyTo(current)

	if updated.EntryPrice > 0 {
		res := validation.OrderPrices(updated.Side, updated.EntryPrice, updated.StopLossPrice, updated.TakeProfitPrices())
		if !res.Valid {
			return nil, fmt.Errorf("%w: %s", ErrConflict, res.Reason)
		}
	}

	tpJSON, err := json.Marshal(updated.TakeProfitLevels)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal take profit levels: %w", err)
	}

	const query = `
		UPDATE bracket_orders
		SET entry_price = $1, stop_loss_price = $2, take_profit_levels = $3, updated_at = $4
		WHERE id = $5
	`

	_, err = r.pool.Exec(ctx, query,
		updated.EntryPrice, updated.StopLossPrice, tpJSON, time.Now().UTC(), orderID,
	)
	if err != nil {
		return nil, &RetryableError{Err: fmt.Errorf("failed to update order: %w", err)}
	}

	return updated, nil
}

// Cancel marks the order cancelled unless it is already terminal.
func (r *PostgresRepo) Cancel(ctx context.Context, orderID string) error {
	current, err := r.get(ctx, orderID)
	if err != nil {
		return err
	}
	if current.Status.Terminal() {
		return fmt.Errorf("%w: order %s is %s", ErrConflict, orderID, current.Status)
	}

	const query = `UPDATE bracket_orders SET status = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.pool.Exec(ctx, query, contracts.StatusCancelled, time.Now().UTC(), orderID); err != nil {
		return &RetryableError{Err: fmt.Errorf("failed to cancel order: %w", err)}
	}
	return nil
}

const selectColumns = `
	SELECT id, symbol, side, quantity, status, entry_type, entry_price,
	       stop_loss_price, take_profit_levels, entry_filled_quantity,
	       total_filled_quantity, remaining_quantity, created_at`

func (r *PostgresRepo) get(ctx context.Context, orderID string) (*contracts.BracketOrder, error) {
	query := selectColumns + ` FROM bracket_orders WHERE id = $1`

	row := r.pool.QueryRow(ctx, query, orderID)
	order, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*contracts.BracketOrder, error) {
	var order contracts.BracketOrder
	var tpJSON []byte

	err := row.Scan(
		&order.ID, &order.Symbol, &order.Side, &order.Quantity, &order.Status,
		&order.EntryType, &order.EntryPrice, &order.StopLossPrice, &tpJSON,
		&order.EntryFilledQuantity, &order.TotalFilledQuantity,
		&order.RemainingQuantity, &order.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(tpJSON, &order.TakeProfitLevels); err != nil {
		return nil, fmt.Errorf("failed to unmarshal take profit levels: %w", err)
	}
	if order.TakeProfitLevels == nil {
		order.TakeProfitLevels = []contracts.TakeProfitLevel{}
	}

	return &order, nil
}
