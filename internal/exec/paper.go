// Package exec fills emitted actions. The paper executor simulates an
// exchange: slippage, fees, gateway latency and occasional rejections, then
// reports the outcome back through the confirmation callback.
package exec

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"strategy-core/internal/engine"
)

// Confirmer receives execution outcomes. The engine implements it; all ledger
// and cash mutation happens behind these two calls.
type Confirmer interface {
	OnTradeExecuted(symbol, side string, amount, price, fee float64) error
	OnTradeRejected(symbol string)
}

// SimConfig tunes the paper fill simulation.
type SimConfig struct {
	FeeRate      float64 // decimal, e.g. 0.001 = 10 bps per fill
	SlippageBps  float64 // basis points of adverse slippage on fills
	LatencyMinMs int     // simulated gateway latency lower bound
	LatencyMaxMs int     // simulated gateway latency upper bound
	RejectRate   float64 // fraction of actions rejected outright
}

// Fill is one simulated execution, kept for inspection.
type Fill struct {
	ID       string    `json:"id"`
	ActionID string    `json:"action_id"`
	Symbol   string    `json:"symbol"`
	Side     string    `json:"side"`
	Qty      float64   `json:"qty"`
	Price    float64   `json:"price"` // post-slippage
	Fee      float64   `json:"fee"`
	FilledAt time.Time `json:"filled_at"`
}

// Paper simulates fills synchronously: Execute returns only after the
// confirmation callback has run, so the caller sees a consistent ledger.
type Paper struct {
	cfg      SimConfig
	confirm  Confirmer
	rng      *rand.Rand
	mu       sync.Mutex
	fills    []Fill
	feesPaid float64
	rejected int
}

func NewPaper(cfg SimConfig, confirm Confirmer) *Paper {
	if cfg.LatencyMaxMs > 0 && cfg.LatencyMinMs > cfg.LatencyMaxMs {
		cfg.LatencyMinMs, cfg.LatencyMaxMs = cfg.LatencyMaxMs, cfg.LatencyMinMs
	}
	return &Paper{
		cfg:     cfg,
		confirm: confirm,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Execute fills one action. Slippage is always adverse: buys fill above the
// decision price, sells below it.
func (p *Paper) Execute(ctx context.Context, act engine.Action) error {
	if act.Price <= 0 || act.Amount <= 0 {
		p.confirm.OnTradeRejected(act.Symbol)
		return fmt.Errorf("malformed action %s: qty=%.8f price=%.8f", act.ID, act.Amount, act.Price)
	}

	if err := p.simulateLatency(ctx); err != nil {
		p.confirm.OnTradeRejected(act.Symbol)
		return err
	}

	if p.cfg.RejectRate > 0 && p.rng.Float64() < p.cfg.RejectRate {
		p.mu.Lock()
		p.rejected++
		p.mu.Unlock()
		p.confirm.OnTradeRejected(act.Symbol)
		return nil
	}

	price := act.Price
	if slip := p.cfg.SlippageBps / 10000.0; slip > 0 {
		noise := p.rng.Float64() * slip
		if act.Side == engine.SideBuy {
			price *= 1 + noise
		} else {
			price *= 1 - noise
		}
	}
	fee := price * act.Amount * p.cfg.FeeRate

	if err := p.confirm.OnTradeExecuted(act.Symbol, act.Side, act.Amount, price, fee); err != nil {
		return fmt.Errorf("confirm fill for %s: %w", act.Symbol, err)
	}

	p.mu.Lock()
	p.fills = append(p.fills, Fill{
		ID:       uuid.NewString(),
		ActionID: act.ID,
		Symbol:   act.Symbol,
		Side:     act.Side,
		Qty:      act.Amount,
		Price:    price,
		Fee:      fee,
		FilledAt: time.Now(),
	})
	p.feesPaid += fee
	p.mu.Unlock()
	return nil
}

func (p *Paper) simulateLatency(ctx context.Context) error {
	if p.cfg.LatencyMaxMs <= 0 {
		return nil
	}
	minMs := p.cfg.LatencyMinMs
	if minMs < 0 {
		minMs = 0
	}
	delayMs := minMs
	if span := p.cfg.LatencyMaxMs - minMs; span > 0 {
		delayMs += p.rng.Intn(span + 1)
	}
	if delayMs == 0 {
		return nil
	}
	select {
	case <-time.After(time.Duration(delayMs) * time.Millisecond):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Fills returns a copy of the fill log, newest last.
func (p *Paper) Fills() []Fill {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Fill, len(p.fills))
	copy(out, p.fills)
	return out
}

// FeesPaid returns the cumulative simulated fees.
func (p *Paper) FeesPaid() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.feesPaid
}

// Rejected returns the number of randomly rejected actions.
func (p *Paper) Rejected() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rejected
}
