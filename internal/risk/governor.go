// Package risk enforces portfolio-level constraints: concurrent position
// slots, per-trade capital allocation, post-exit cooldowns and market
// quality floors.
package risk

import (
	"fmt"
	"sync"

	"strategy-core/internal/market"
)

// Governor gates entries and sizes trades. It owns the cooldown map and the
// run's trading metrics.
type Governor struct {
	mu        sync.RWMutex
	cfg       Config
	cooldowns map[string]int
	metrics   Metrics

	// equity tracking for drawdown
	equityPeak float64
	equity     float64
}

func NewGovernor(cfg Config) *Governor {
	if cfg.MaxPositions <= 0 {
		cfg.MaxPositions = 1
	}
	return &Governor{
		cfg:       cfg,
		cooldowns: make(map[string]int),
	}
}

func (g *Governor) Config() Config {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cfg
}

// CanOpen reports whether another position slot is free.
func (g *Governor) CanOpen(openPositions int) bool {
	return openPositions < g.cfg.MaxPositions
}

// GateSnapshot applies liquidity and volume floors to a market snapshot.
// Missing optional fields pass the corresponding gate.
func (g *Governor) GateSnapshot(snap market.Snapshot) (bool, string) {
	if g.cfg.MinLiquidity > 0 && snap.HasLiquidity && snap.Liquidity < g.cfg.MinLiquidity {
		g.bump(func(m *Metrics) { m.LiquidityBlocks++ })
		return false, fmt.Sprintf("LIQUIDITY %.0f < %.0f", snap.Liquidity, g.cfg.MinLiquidity)
	}
	if g.cfg.MinVolume24h > 0 && snap.HasVolume && snap.Volume24h < g.cfg.MinVolume24h {
		g.bump(func(m *Metrics) { m.LiquidityBlocks++ })
		return false, fmt.Sprintf("VOLUME %.0f < %.0f", snap.Volume24h, g.cfg.MinVolume24h)
	}
	return true, ""
}

// SizeFor computes the base-asset quantity for an entry. Allocation is a
// fixed fraction of available cash, optionally shrunk for volatile symbols.
// It refuses (qty 0) rather than under-sizing when cash cannot cover the
// allocation.
func (g *Governor) SizeFor(price, available, volRatio float64) (qty, cost float64) {
	return g.size(g.cfg.AllocationFrac, price, available, volRatio)
}

// SizeForDCA sizes an averaging-down fill.
func (g *Governor) SizeForDCA(price, available, volRatio float64) (qty, cost float64) {
	return g.size(g.cfg.DCAFrac, price, available, volRatio)
}

func (g *Governor) size(frac, price, available, volRatio float64) (float64, float64) {
	if price <= 0 || frac <= 0 || available <= 0 {
		return 0, 0
	}

	alloc := available * frac
	if g.cfg.VolSizing && g.cfg.VolSizingTarget > 0 && volRatio > g.cfg.VolSizingTarget {
		alloc *= g.cfg.VolSizingTarget / volRatio
	}
	if alloc > available {
		g.bump(func(m *Metrics) { m.EntriesRefused++ })
		return 0, 0
	}
	qty := alloc / price
	if qty <= 0 {
		return 0, 0
	}
	return qty, alloc
}

// IsCoolingDown reports whether symbol is in its post-exit refusal window.
func (g *Governor) IsCoolingDown(symbol string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cooldowns[symbol] > 0
}

// StartCooldown begins the configured refusal window for symbol.
func (g *Governor) StartCooldown(symbol string) {
	if g.cfg.CooldownTicks <= 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cooldowns[symbol] = g.cfg.CooldownTicks
}

// TickCooldowns decrements every active cooldown; expired entries are removed.
func (g *Governor) TickCooldowns() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for sym, n := range g.cooldowns {
		if n <= 1 {
			delete(g.cooldowns, sym)
			continue
		}
		g.cooldowns[sym] = n - 1
	}
}

// CooldownRemaining returns the ticks left for symbol, 0 when none.
func (g *Governor) CooldownRemaining(symbol string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cooldowns[symbol]
}

// RecordCooldownBlock counts an entry refused by an active cooldown.
func (g *Governor) RecordCooldownBlock() {
	g.bump(func(m *Metrics) { m.CooldownBlocks++ })
}

// RecordTrade folds a realized result into the run metrics and the drawdown
// tracker.
func (g *Governor) RecordTrade(tr TradeResult) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.metrics.TradesTotal++
	g.metrics.RealizedPnL += tr.PnL
	if tr.PnL >= 0 {
		g.metrics.WinningTrades++
		g.metrics.GrossProfit += tr.PnL
	} else {
		g.metrics.LosingTrades++
		g.metrics.GrossLoss += -tr.PnL
	}

	g.equity += tr.PnL
	if g.equity > g.equityPeak {
		g.equityPeak = g.equity
	}
	if dd := g.equityPeak - g.equity; dd > g.metrics.MaxDrawdown {
		g.metrics.MaxDrawdown = dd
	}
}

// Metrics returns a copy of the current metrics.
func (g *Governor) Metrics() Metrics {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.metrics
}

func (g *Governor) bump(f func(*Metrics)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	f(&g.metrics)
}
