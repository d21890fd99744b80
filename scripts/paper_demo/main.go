package main

import (
	"context"
	"log"

	"strategy-core/internal/balance"
	"strategy-core/internal/engine"
	"strategy-core/internal/exec"
	"strategy-core/internal/market"
	"strategy-core/internal/profile"
)

// paper_demo drives one engine through a scripted price path using the paper
// executor. It does not touch the database or the network.
//
// Usage (from the repo root):
//   go run ./scripts/paper_demo
//
// It will:
//   1) Warm the window with steady prices, then dip to trigger an entry.
//   2) Slide further to trigger an averaging-down fill.
//   3) Recover into the take-profit exit and print the realized result.

func main() {
	log.Println("=== paper demo starting ===")

	prof := profile.Default()
	prof.WindowSize = 8
	prof.MinWindow = 8
	prof.RSIPeriod = 4
	prof.Signal.KnifeGuard = false
	prof.Signal.DCAEnabled = true

	bal := balance.NewManager(10000)
	eng := engine.New(prof, bal, nil, nil)
	paper := exec.NewPaper(exec.SimConfig{FeeRate: 0.001, SlippageBps: 2}, eng)

	ctx := context.Background()
	path := []float64{
		100, 100.2, 99.8, 100.1, 99.9, 100.3, 100.0, // warmup
		96.5, 93.0, // dip: entry, then averaging fill
		94.5, 96.0, 98.5, 101.0, // recovery into take profit
	}

	for i, price := range path {
		act := eng.OnPriceUpdate(market.Tick{"BTCUSDT": {Price: price}})
		if act == nil {
			continue
		}
		log.Printf("tick %d @ %.2f -> %s %.4f %s (%v)", i+1, price, act.Side, act.Amount, act.Symbol, act.Reasons)
		if err := paper.Execute(ctx, *act); err != nil {
			log.Printf("  execution failed: %v", err)
		}
	}

	log.Println("final state:")
	for _, sym := range eng.Ledger().Symbols() {
		pos := eng.Ledger().Get(sym)
		log.Printf("  pos %s qty=%.4f entry=%.4f dca_level=%d", sym, pos.Quantity, pos.EntryPrice, pos.DCALevel)
	}
	snap := bal.Get()
	log.Printf("  balance total=%.2f available=%.2f reserved=%.2f fees=%.4f",
		snap.Total, snap.Available, snap.Reserved, paper.FeesPaid())
	m := eng.Governor().Metrics()
	log.Printf("  trades=%d realized_pnl=%.4f win_rate=%.2f", m.TradesTotal, m.RealizedPnL, m.WinRate())

	log.Println("=== paper demo finished ===")
}
