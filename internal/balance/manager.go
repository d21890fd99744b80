// Package balance keeps the engine's cash accounting. Amounts are held as
// decimals so repeated reserve/settle cycles cannot drift the way float64
// accumulation does.
package balance

import (
	"fmt"
	"log"
	"sync"

	"github.com/shopspring/decimal"
)

// Snapshot is a point-in-time view of the account.
type Snapshot struct {
	Total     float64
	Available float64
	Reserved  float64
}

// Manager tracks total, available and reserved cash. Reservations are taken
// when an action is emitted and settled or released when the execution
// collaborator reports back.
type Manager struct {
	mu        sync.RWMutex
	total     decimal.Decimal
	available decimal.Decimal
	reserved  decimal.Decimal
}

func NewManager(initial float64) *Manager {
	d := decimal.NewFromFloat(initial)
	return &Manager{total: d, available: d}
}

// Available returns spendable cash.
func (m *Manager) Available() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.available.InexactFloat64()
}

// Get returns the current snapshot.
func (m *Manager) Get() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		Total:     m.total.InexactFloat64(),
		Available: m.available.InexactFloat64(),
		Reserved:  m.reserved.InexactFloat64(),
	}
}

// Reserve earmarks cash for a pending BUY. It refuses rather than
// over-committing.
func (m *Manager) Reserve(amount float64) error {
	d := decimal.NewFromFloat(amount)
	if d.Sign() <= 0 {
		return fmt.Errorf("reserve amount must be positive, got %v", amount)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if d.GreaterThan(m.available) {
		return fmt.Errorf("insufficient balance: need %s, have %s", d, m.available)
	}
	m.available = m.available.Sub(d)
	m.reserved = m.reserved.Add(d)
	return nil
}

// Release returns a reservation to available cash (rejected or expired action).
func (m *Manager) Release(amount float64) {
	d := decimal.NewFromFloat(amount)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reserved = m.reserved.Sub(d)
	m.available = m.available.Add(d)
}

// SettleDebit consumes a reservation at the actual fill cost. Any unspent
// remainder goes back to available; an overrun (slippage beyond the
// reservation) is absorbed from available and logged.
func (m *Manager) SettleDebit(reserved, actual float64) {
	r := decimal.NewFromFloat(reserved)
	a := decimal.NewFromFloat(actual)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.reserved = m.reserved.Sub(r)
	m.total = m.total.Sub(a)
	m.available = m.available.Add(r.Sub(a))

	if m.available.Sign() < 0 {
		log.Printf("balance: available went negative after settle (reserved=%s actual=%s), clamping", r, a)
		m.available = decimal.Zero
	}
}

// Debit removes cash that was never reserved, such as the commission charged
// on a SELL fill. A non-positive amount is ignored.
func (m *Manager) Debit(amount float64) {
	d := decimal.NewFromFloat(amount)
	if d.Sign() <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total = m.total.Sub(d)
	m.available = m.available.Sub(d)
	if m.available.Sign() < 0 {
		log.Printf("balance: available went negative after debit %s, clamping", d)
		m.available = decimal.Zero
	}
}

// Credit adds sale proceeds back to the account.
func (m *Manager) Credit(amount float64) {
	d := decimal.NewFromFloat(amount)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total = m.total.Add(d)
	m.available = m.available.Add(d)
}
