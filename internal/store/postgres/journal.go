package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"listingbot/internal/domain"
)

// Journal implements domain.TradeJournal on top of the closed_trades table.
// The snapshot files remain the recovery source of truth; the journal is a
// queryable, append-only record of every close.
type Journal struct {
	pool *pgxpool.Pool
}

var _ domain.TradeJournal = (*Journal)(nil)

// NewJournal creates a Journal backed by the given connection pool.
func NewJournal(pool *pgxpool.Pool) *Journal {
	return &Journal{pool: pool}
}

// Record inserts one closed position. Re-recording the same position ID is
// a no-op, so a retried cycle never duplicates a row.
func (j *Journal) Record(ctx context.Context, closed domain.ClosedPosition) error {
	const query = `
		INSERT INTO closed_trades (
			id, broker, symbol, base_asset, quote_asset, side, status,
			opened_at, closed_at, entry_price, exit_price, size,
			profit, profit_percent
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12,
			$13, $14
		) ON CONFLICT (id) DO NOTHING`

	_, err := j.pool.Exec(ctx, query,
		closed.ID, closed.Broker, closed.Symbol,
		closed.Instrument.BaseAsset, closed.Instrument.QuoteAsset,
		string(closed.Side), closed.Status,
		closed.OpenedAt, closed.ClosedAt,
		closed.EntryPrice, closed.ExitPrice, closed.Size,
		closed.Profit, closed.ProfitPercent,
	)
	if err != nil {
		return fmt.Errorf("postgres: record closed trade %s: %w", closed.Symbol, err)
	}
	return nil
}

// ListRecent returns the broker's most recent closes, newest first.
func (j *Journal) ListRecent(ctx context.Context, broker string, limit int) ([]domain.ClosedPosition, error) {
	if limit <= 0 {
		limit = 50
	}

	const query = `
		SELECT id, broker, symbol, base_asset, quote_asset, side, status,
		       opened_at, closed_at, entry_price, exit_price, size,
		       profit, profit_percent
		FROM closed_trades
		WHERE broker = $1
		ORDER BY closed_at DESC
		LIMIT $2`

	rows, err := j.pool.Query(ctx, query, broker, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list closed trades %s: %w", broker, err)
	}
	defer rows.Close()

	var out []domain.ClosedPosition
	for rows.Next() {
		var (
			cp   domain.ClosedPosition
			side string
		)
		if err := rows.Scan(
			&cp.ID, &cp.Broker, &cp.Symbol,
			&cp.Instrument.BaseAsset, &cp.Instrument.QuoteAsset,
			&side, &cp.Status,
			&cp.OpenedAt, &cp.ClosedAt,
			&cp.EntryPrice, &cp.ExitPrice, &cp.Size,
			&cp.Profit, &cp.ProfitPercent,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan closed trade: %w", err)
		}
		cp.Side = domain.OrderSide(side)
		cp.Instrument.Symbol = cp.Symbol
		out = append(out, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate closed trades: %w", err)
	}
	return out, nil
}
