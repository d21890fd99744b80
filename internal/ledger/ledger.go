// Package ledger tracks per-symbol open positions: cost basis, quantity,
// averaging-down level, peak price and age. It is the single source of truth
// for what the engine currently holds.
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrAverageOutOfBounds signals ledger corruption: a weighted average
	// falling outside [old average, fill price] can only come from an
	// arithmetic fault and must not be tolerated silently.
	ErrAverageOutOfBounds = errors.New("weighted average outside fill bounds")

	ErrPositionExists = errors.New("position already open")
	ErrNoPosition     = errors.New("no open position")
	ErrInvalidFill    = errors.New("fill price and quantity must be positive")
)

// Position is one open holding. EntryPrice is always the quantity-weighted
// average across all fills.
type Position struct {
	Symbol        string
	EntryPrice    float64
	Quantity      float64
	DCALevel      int
	EntryTick     int
	PeakPrice     float64
	LastFillPrice float64
	Age           int
}

// Ledger owns all open positions. It is safe for concurrent use: the decision
// loop mutates it while API handlers read it.
type Ledger struct {
	mu        sync.RWMutex
	positions map[string]*Position
}

func New() *Ledger {
	return &Ledger{positions: make(map[string]*Position)}
}

// Open creates a position on the first confirmed BUY fill.
func (l *Ledger) Open(symbol string, price, qty float64, tick int) (*Position, error) {
	if price <= 0 || qty <= 0 {
		return nil, ErrInvalidFill
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.positions[symbol]; ok {
		return nil, fmt.Errorf("%w: %s", ErrPositionExists, symbol)
	}
	p := &Position{
		Symbol:        symbol,
		EntryPrice:    price,
		Quantity:      qty,
		EntryTick:     tick,
		PeakPrice:     price,
		LastFillPrice: price,
	}
	l.positions[symbol] = p
	cp := *p
	return &cp, nil
}

// AddFill folds a confirmed DCA fill into the position, recomputing the
// weighted-average cost basis and bumping the DCA level. The new average must
// lie between the old average and the fill price; anything else is corruption.
func (l *Ledger) AddFill(symbol string, price, qty float64) (*Position, error) {
	if price <= 0 || qty <= 0 {
		return nil, ErrInvalidFill
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.positions[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoPosition, symbol)
	}

	oldAvg := p.EntryPrice
	newQty := p.Quantity + qty
	newAvg := (p.EntryPrice*p.Quantity + price*qty) / newQty

	lo, hi := oldAvg, price
	if lo > hi {
		lo, hi = hi, lo
	}
	if newAvg < lo || newAvg > hi {
		return nil, fmt.Errorf("%w: old=%.10f fill=%.10f new=%.10f", ErrAverageOutOfBounds, oldAvg, price, newAvg)
	}

	p.EntryPrice = newAvg
	p.Quantity = newQty
	p.DCALevel++
	p.LastFillPrice = price
	cp := *p
	return &cp, nil
}

// Close removes the position and returns the quantity that was held.
// Closing a symbol with no position is a no-op returning 0.
func (l *Ledger) Close(symbol string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.positions[symbol]
	if !ok {
		return 0
	}
	delete(l.positions, symbol)
	return p.Quantity
}

// Tick updates the peak price and age for an open position. Peak price is
// monotonically non-decreasing once set.
func (l *Ledger) Tick(symbol string, price float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.positions[symbol]
	if !ok {
		return
	}
	if price > p.PeakPrice {
		p.PeakPrice = price
	}
	p.Age++
}

// Get returns a copy of the position for symbol, or nil. Copies keep callers
// from aliasing state that Tick keeps mutating.
func (l *Ledger) Get(symbol string) *Position {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.positions[symbol]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

// Has reports whether symbol has an open position.
func (l *Ledger) Has(symbol string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.positions[symbol]
	return ok
}

// Count returns the number of open positions.
func (l *Ledger) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.positions)
}

// Symbols lists open-position symbols in deterministic order.
func (l *Ledger) Symbols() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.positions))
	for sym := range l.positions {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Restore seeds a position directly, used when reloading persisted state.
func (l *Ledger) Restore(p Position) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := p
	l.positions[p.Symbol] = &cp
}
