// Package engine orchestrates one decision pass per market tick: ingest
// snapshots, evaluate exits for open positions before any new entry, gate
// entries through the risk governor, and emit at most one action. Ledger and
// balance mutations are confirmation-gated: they happen in OnTradeExecuted,
// not at decision time.
package engine

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/google/uuid"

	"strategy-core/internal/balance"
	"strategy-core/internal/events"
	"strategy-core/internal/ledger"
	"strategy-core/internal/market"
	"strategy-core/internal/profile"
	"strategy-core/internal/risk"
	"strategy-core/internal/signal"
	"strategy-core/internal/stats"
	"strategy-core/internal/window"
	"strategy-core/pkg/db"
)

// Engine owns all per-symbol state. It is driven synchronously: one
// OnPriceUpdate call per tick, fills reported back via OnTradeExecuted before
// the next tick. mu serializes the decision loop against API readers; the
// internal helpers assume the caller already holds it.
type Engine struct {
	mu         sync.RWMutex
	prof       profile.Profile
	statsCfg   stats.Config
	windows    *window.Store
	classifier *signal.Classifier
	ledger     *ledger.Ledger
	governor   *risk.Governor
	balance    *balance.Manager

	bus      *events.Bus  // optional
	database *db.Database // optional

	tick    int
	paused  bool
	states  map[string]LifecycleState
	pending map[string]*pendingAction
}

// New builds an engine from a validated profile. bus and database may be nil.
func New(prof profile.Profile, bal *balance.Manager, bus *events.Bus, database *db.Database) *Engine {
	return &Engine{
		prof:       prof,
		statsCfg:   stats.Config{RSIPeriod: prof.RSIPeriod, WithRegression: prof.WithRegression},
		windows:    window.NewStore(prof.WindowSize, prof.MinWindow),
		classifier: signal.New(prof.Signal),
		ledger:     ledger.New(),
		governor:   risk.NewGovernor(prof.Risk),
		balance:    bal,
		bus:        bus,
		database:   database,
		states:     make(map[string]LifecycleState),
		pending:    make(map[string]*pendingAction),
	}
}

// LoadState restores persisted positions so a restarted engine resumes its
// ledger instead of forgetting open holdings.
func (e *Engine) LoadState(ctx context.Context) error {
	if e.database == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	positions, err := e.database.ListPositions(ctx)
	if err != nil {
		return fmt.Errorf("load positions: %w", err)
	}
	for _, p := range positions {
		e.ledger.Restore(ledger.Position{
			Symbol:        p.Symbol,
			EntryPrice:    p.EntryPrice,
			Quantity:      p.Qty,
			DCALevel:      p.DCALevel,
			EntryTick:     p.EntryTick,
			PeakPrice:     p.PeakPrice,
			LastFillPrice: p.LastFillPrice,
			Age:           p.Age,
		})
		e.states[p.Symbol] = StateEntered
	}
	if len(positions) > 0 {
		log.Printf("engine: restored %d open positions", len(positions))
	}
	return nil
}

// Pause stops decision making; ingestion and position aging continue.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = true
}

// Resume re-enables decision making.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = false
}

// Paused reports whether decisions are suspended.
func (e *Engine) Paused() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.paused
}

// Tick returns the number of processed price updates.
func (e *Engine) Tick() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tick
}

// Ledger exposes read access for the API layer.
func (e *Engine) Ledger() *ledger.Ledger { return e.ledger }

// Governor exposes the risk governor (metrics, cooldowns).
func (e *Engine) Governor() *risk.Governor { return e.governor }

// OnPriceUpdate ingests one tick and returns at most one action. Exits for
// open positions are always evaluated before new entries: freeing capital
// takes priority over deploying it.
func (e *Engine) OnPriceUpdate(tick market.Tick) *Action {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.tick++
	e.governor.TickCooldowns()
	e.expireCooldowns()

	symbols := make([]string, 0, len(tick))
	for sym := range tick {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	for _, sym := range symbols {
		e.windows.Update(sym, tick[sym].Price, e.tick)
		e.ledger.Tick(sym, tick[sym].Price)
	}

	if e.bus != nil {
		e.bus.Publish(events.EventPriceTick, tick)
	}

	e.evictStale()

	if e.paused {
		return nil
	}

	if act := e.checkExits(tick); act != nil {
		return act
	}
	return e.checkEntries(tick, symbols)
}

// checkExits walks open positions in symbol order. The first exit or
// averaging-down trigger wins the tick.
func (e *Engine) checkExits(tick market.Tick) *Action {
	for _, sym := range e.ledger.Symbols() {
		if _, busy := e.pending[sym]; busy {
			continue
		}
		snap, ok := tick[sym]
		if !ok {
			continue // no fresh price this tick
		}
		pos := e.ledger.Get(sym)
		view := signal.PositionView{
			EntryPrice:    pos.EntryPrice,
			LastFillPrice: pos.LastFillPrice,
			PeakPrice:     pos.PeakPrice,
			Age:           pos.Age,
			DCALevel:      pos.DCALevel,
		}
		stat := e.compute(sym)

		if res := e.classifier.CheckExit(snap.Price, stat, view); res.Kind != signal.None {
			e.publishSignal(sym, res)
			return e.emitSell(sym, snap.Price, pos.Quantity, res.Reasons)
		}

		if res := e.classifier.CheckDCA(snap.Price, stat, view); res.Kind == signal.AverageDown {
			e.publishSignal(sym, res)
			if act := e.emitAverageDown(sym, snap, stat); act != nil {
				return act
			}
		}
	}
	return nil
}

// checkEntries ranks qualifying flat symbols and emits a BUY for the
// strongest candidate, subject to governor gating.
func (e *Engine) checkEntries(tick market.Tick, symbols []string) *Action {
	if !e.governor.CanOpen(e.ledger.Count() + e.pendingOpens()) {
		return nil
	}

	var (
		bestSym      string
		bestSnap     market.Snapshot
		bestStat     *stats.Snapshot
		bestRes      signal.Result
		bestStrength float64
	)

	for _, sym := range symbols {
		if e.ledger.Has(sym) {
			continue
		}
		if _, busy := e.pending[sym]; busy {
			continue
		}
		if e.governor.IsCoolingDown(sym) {
			e.governor.RecordCooldownBlock()
			continue
		}
		snap := tick[sym]
		if ok, _ := e.governor.GateSnapshot(snap); !ok {
			continue
		}

		stat := e.compute(sym)
		prev, hasPrev := e.windows.Prev(sym)
		res := e.classifier.CheckEntry(stat, prev, hasPrev)
		if res.Kind != signal.EntryCandidate {
			continue
		}
		if strength := e.classifier.Strength(stat); strength > bestStrength {
			bestSym, bestSnap, bestStat, bestRes, bestStrength = sym, snap, stat, res, strength
		}
	}

	if bestSym == "" {
		return nil
	}
	e.publishSignal(bestSym, bestRes)

	qty, cost := e.governor.SizeFor(bestSnap.Price, e.balance.Available(), bestStat.VolRatio)
	if qty <= 0 {
		return nil
	}
	if err := e.balance.Reserve(cost); err != nil {
		log.Printf("engine: entry for %s refused: %v", bestSym, err)
		return nil
	}
	return e.emit(bestSym, SideBuy, qty, bestSnap.Price, cost, pendingOpen, bestRes.Reasons)
}

func (e *Engine) emitAverageDown(sym string, snap market.Snapshot, stat *stats.Snapshot) *Action {
	volRatio := 0.0
	if stat != nil {
		volRatio = stat.VolRatio
	}
	qty, cost := e.governor.SizeForDCA(snap.Price, e.balance.Available(), volRatio)
	if qty <= 0 {
		return nil
	}
	if err := e.balance.Reserve(cost); err != nil {
		log.Printf("engine: averaging fill for %s refused: %v", sym, err)
		return nil
	}
	reasons := []string{fmt.Sprintf("DCA_L%d", e.ledger.Get(sym).DCALevel+1)}
	return e.emit(sym, SideBuy, qty, snap.Price, cost, pendingAverage, reasons)
}

func (e *Engine) emitSell(sym string, price, qty float64, reasons []string) *Action {
	return e.emit(sym, SideSell, qty, price, 0, pendingClose, reasons)
}

func (e *Engine) emit(sym, side string, qty, price, reserved float64, kind pendingKind, reasons []string) *Action {
	act := Action{
		ID:      uuid.NewString(),
		Side:    side,
		Symbol:  sym,
		Amount:  qty,
		Price:   price,
		Reasons: reasons,
	}
	e.pending[sym] = &pendingAction{action: act, kind: kind, reserved: reserved}
	if e.bus != nil {
		e.bus.Publish(events.EventActionEmitted, act)
	}
	return &act
}

// OnTradeExecuted is the authoritative confirmation callback from the
// execution collaborator. All ledger and cash mutation happens here. fee is
// the commission charged on the fill and comes out of the account alongside
// the fill cost.
func (e *Engine) OnTradeExecuted(symbol, side string, amount, price, fee float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	pend, ok := e.pending[symbol]
	if !ok {
		return fmt.Errorf("unexpected fill for %s: no pending action", symbol)
	}
	if pend.action.Side != side {
		return fmt.Errorf("fill side mismatch for %s: pending %s, got %s", symbol, pend.action.Side, side)
	}
	delete(e.pending, symbol)

	var pnl float64
	switch pend.kind {
	case pendingOpen:
		if _, err := e.ledger.Open(symbol, price, amount, e.tick); err != nil {
			e.balance.Release(pend.reserved)
			return fmt.Errorf("apply open fill: %w", err)
		}
		e.balance.SettleDebit(pend.reserved, amount*price+fee)
		e.setState(symbol, StateEntered)

	case pendingAverage:
		if _, err := e.ledger.AddFill(symbol, price, amount); err != nil {
			e.balance.Release(pend.reserved)
			// A bounds violation here means ledger corruption; surface it.
			return fmt.Errorf("apply averaging fill: %w", err)
		}
		e.balance.SettleDebit(pend.reserved, amount*price+fee)
		e.setState(symbol, StateEntered)

	case pendingClose:
		pos := e.ledger.Get(symbol)
		if pos == nil {
			return fmt.Errorf("%s: close confirmed but no position", symbol)
		}
		entry := pos.EntryPrice
		qty := e.ledger.Close(symbol)
		pnl = (price-entry)*qty - fee
		e.balance.Credit(price * qty)
		e.balance.Debit(fee)
		e.governor.RecordTrade(risk.TradeResult{
			Symbol: symbol, Side: side, Qty: qty, Price: price, PnL: pnl,
		})
		e.governor.StartCooldown(symbol)
		e.setState(symbol, StateCooldown)
		if e.bus != nil {
			e.bus.Publish(events.EventCooldownStart, symbol)
		}
	}

	e.persistPosition(symbol)
	e.journal(pend.action, side, amount, price, fee, pnl)

	if e.bus != nil {
		e.bus.Publish(events.EventTradeExecuted, FillEvent{
			ActionID: pend.action.ID,
			Symbol:   symbol,
			Side:     side,
			Amount:   amount,
			Price:    price,
			Fee:      fee,
			PnL:      pnl,
			Tick:     e.tick,
		})
		e.bus.Publish(events.EventPositionChange, symbol)
	}
	return nil
}

// OnTradeRejected releases the pending reservation when the execution
// collaborator could not fill an action.
func (e *Engine) OnTradeRejected(symbol string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pend, ok := e.pending[symbol]
	if !ok {
		return
	}
	delete(e.pending, symbol)
	if pend.reserved > 0 {
		e.balance.Release(pend.reserved)
	}
	if e.bus != nil {
		e.bus.Publish(events.EventActionRejected, pend.action)
	}
	log.Printf("engine: action %s %s %s rejected, reservation released", pend.action.ID, pend.action.Side, symbol)
}

// compute returns the statistics snapshot for a symbol, or nil while the
// window is short or degenerate.
func (e *Engine) compute(sym string) *stats.Snapshot {
	prices := e.windows.Get(sym)
	if prices == nil {
		return nil
	}
	return stats.Compute(prices, e.statsCfg)
}

func (e *Engine) setState(sym string, to LifecycleState) {
	from, ok := e.states[sym]
	if !ok {
		from = StateFlat
	}
	if from == to {
		return
	}
	if !canTransition(from, to) {
		// Invalid edges indicate a dispatcher bug; shout, then force the
		// state so the ledger and the state map cannot diverge further.
		log.Printf("engine: ILLEGAL transition %s: %s -> %s", sym, from, to)
	}
	if to == StateFlat {
		delete(e.states, sym)
		return
	}
	e.states[sym] = to
}

// expireCooldowns returns symbols to FLAT once their refusal window lapsed.
func (e *Engine) expireCooldowns() {
	for sym, st := range e.states {
		if st == StateCooldown && !e.governor.IsCoolingDown(sym) {
			e.setState(sym, StateFlat)
		}
	}
}

// State reports the lifecycle state for a symbol.
func (e *Engine) State(sym string) LifecycleState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if st, ok := e.states[sym]; ok {
		return st
	}
	return StateFlat
}

func (e *Engine) pendingOpens() int {
	n := 0
	for _, p := range e.pending {
		if p.kind == pendingOpen {
			n++
		}
	}
	return n
}

func (e *Engine) evictStale() {
	if e.prof.StaleTicks <= 0 {
		return
	}
	keep := make(map[string]bool)
	for _, sym := range e.ledger.Symbols() {
		keep[sym] = true
	}
	for sym := range e.pending {
		keep[sym] = true
	}
	e.windows.EvictStale(e.tick, e.prof.StaleTicks, keep)
}

func (e *Engine) publishSignal(sym string, res signal.Result) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(events.EventSignal, SignalEvent{
		Symbol:  sym,
		Kind:    string(res.Kind),
		Reasons: res.Reasons,
		Tick:    e.tick,
	})
}

func (e *Engine) persistPosition(symbol string) {
	if e.database == nil {
		return
	}
	ctx := context.Background()
	pos := e.ledger.Get(symbol)
	if pos == nil {
		if err := e.database.DeletePosition(ctx, symbol); err != nil {
			log.Printf("engine: delete persisted position %s: %v", symbol, err)
		}
		return
	}
	err := e.database.UpsertPosition(ctx, db.Position{
		Symbol:        pos.Symbol,
		EntryPrice:    pos.EntryPrice,
		Qty:           pos.Quantity,
		DCALevel:      pos.DCALevel,
		EntryTick:     pos.EntryTick,
		PeakPrice:     pos.PeakPrice,
		LastFillPrice: pos.LastFillPrice,
		Age:           pos.Age,
	})
	if err != nil {
		log.Printf("engine: persist position %s: %v", symbol, err)
	}
}

func (e *Engine) journal(act Action, side string, amount, price, fee, pnl float64) {
	if e.database == nil {
		return
	}
	reason := ""
	if len(act.Reasons) > 0 {
		reason = act.Reasons[0]
	}
	err := e.database.RecordTrade(context.Background(), db.Trade{
		ID:       uuid.NewString(),
		ActionID: act.ID,
		Symbol:   act.Symbol,
		Side:     side,
		Price:    price,
		Qty:      amount,
		Fee:      fee,
		PnL:      pnl,
		Reason:   reason,
		Tick:     e.tick,
	})
	if err != nil {
		log.Printf("engine: journal trade for %s: %v", act.Symbol, err)
	}
}
