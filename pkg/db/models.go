package db

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Trade represents one confirmed fill stored in the journal.
type Trade struct {
	ID        string
	ActionID  string
	Symbol    string
	Side      string
	Price     float64
	Qty       float64
	Fee       float64
	PnL       float64
	Reason    string
	Tick      int
	CreatedAt time.Time
}

// Position is the persisted snapshot of an open holding.
type Position struct {
	Symbol        string
	EntryPrice    float64
	Qty           float64
	DCALevel      int
	EntryTick     int
	PeakPrice     float64
	LastFillPrice float64
	Age           int
	UpdatedAt     time.Time
}

// RecordTrade appends a fill to the journal.
func (d *Database) RecordTrade(ctx context.Context, t Trade) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO trades (id, action_id, symbol, side, price, qty, fee, pnl, reason, tick)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.ActionID, t.Symbol, strings.ToUpper(t.Side), t.Price, t.Qty, t.Fee, t.PnL, t.Reason, t.Tick)
	if err != nil {
		return fmt.Errorf("record trade: %w", err)
	}
	return nil
}

// ListTrades returns the most recent fills, newest first.
func (d *Database) ListTrades(ctx context.Context, limit int) ([]Trade, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := d.DB.QueryContext(ctx, `
		SELECT id, action_id, symbol, side, price, qty, fee, pnl, COALESCE(reason, ''), tick, created_at
		FROM trades
		ORDER BY created_at DESC, tick DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var trades []Trade
	for rows.Next() {
		var t Trade
		if err := rows.Scan(&t.ID, &t.ActionID, &t.Symbol, &t.Side, &t.Price, &t.Qty, &t.Fee, &t.PnL, &t.Reason, &t.Tick, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// UpsertPosition persists the current ledger snapshot for a symbol.
func (d *Database) UpsertPosition(ctx context.Context, p Position) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO positions (symbol, entry_price, qty, dca_level, entry_tick, peak_price, last_fill_price, age, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(symbol) DO UPDATE SET
			entry_price = excluded.entry_price,
			qty = excluded.qty,
			dca_level = excluded.dca_level,
			entry_tick = excluded.entry_tick,
			peak_price = excluded.peak_price,
			last_fill_price = excluded.last_fill_price,
			age = excluded.age,
			updated_at = CURRENT_TIMESTAMP
	`, p.Symbol, p.EntryPrice, p.Qty, p.DCALevel, p.EntryTick, p.PeakPrice, p.LastFillPrice, p.Age)
	if err != nil {
		return fmt.Errorf("upsert position: %w", err)
	}
	return nil
}

// DeletePosition removes the persisted snapshot once a position closes.
func (d *Database) DeletePosition(ctx context.Context, symbol string) error {
	if _, err := d.DB.ExecContext(ctx, `DELETE FROM positions WHERE symbol = ?`, symbol); err != nil {
		return fmt.Errorf("delete position: %w", err)
	}
	return nil
}

// ListPositions returns every persisted open position.
func (d *Database) ListPositions(ctx context.Context) ([]Position, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT symbol, entry_price, qty, dca_level, entry_tick, peak_price, last_fill_price, age, updated_at
		FROM positions
	`)
	if err != nil {
		return nil, fmt.Errorf("query positions: %w", err)
	}
	defer rows.Close()

	var positions []Position
	for rows.Next() {
		var p Position
		if err := rows.Scan(&p.Symbol, &p.EntryPrice, &p.Qty, &p.DCALevel, &p.EntryTick, &p.PeakPrice, &p.LastFillPrice, &p.Age, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}
