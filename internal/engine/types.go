package engine

import "fmt"

// Side of an emitted action.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Action is the single (at most) instruction returned per tick. Amount is a
// base-asset quantity; Price is the decision-time reference price the
// execution collaborator may deviate from.
type Action struct {
	ID      string   `json:"id"`
	Side    string   `json:"side"`
	Symbol  string   `json:"symbol"`
	Amount  float64  `json:"amount"`
	Price   float64  `json:"price"`
	Reasons []string `json:"reason"`
}

// LifecycleState is the explicit per-symbol position state. Averaging down is
// a self-loop on StateEntered; the exit itself is instantaneous and lands the
// symbol in StateCooldown.
type LifecycleState string

const (
	StateFlat     LifecycleState = "FLAT"
	StateEntered  LifecycleState = "ENTERED"
	StateCooldown LifecycleState = "COOLDOWN"
)

// transitions enumerates the legal state machine edges.
var transitions = map[LifecycleState][]LifecycleState{
	StateFlat:     {StateEntered},
	StateEntered:  {StateEntered, StateCooldown},
	StateCooldown: {StateFlat},
}

func canTransition(from, to LifecycleState) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// SignalEvent is published on the bus whenever the classifier fires.
type SignalEvent struct {
	Symbol  string   `json:"symbol"`
	Kind    string   `json:"kind"`
	Reasons []string `json:"reasons"`
	Tick    int      `json:"tick"`
}

// FillEvent is published after a confirmed execution was applied.
type FillEvent struct {
	ActionID string  `json:"action_id"`
	Symbol   string  `json:"symbol"`
	Side     string  `json:"side"`
	Amount   float64 `json:"amount"`
	Price    float64 `json:"price"`
	Fee      float64 `json:"fee"`
	PnL      float64 `json:"pnl"`
	Tick     int     `json:"tick"`
}

type pendingKind int

const (
	pendingOpen pendingKind = iota
	pendingAverage
	pendingClose
)

func (k pendingKind) String() string {
	switch k {
	case pendingOpen:
		return "open"
	case pendingAverage:
		return "average"
	case pendingClose:
		return "close"
	default:
		return fmt.Sprintf("pendingKind(%d)", int(k))
	}
}

// pendingAction tracks an emitted but unconfirmed action. The ledger is only
// mutated once the execution collaborator confirms the fill.
type pendingAction struct {
	action   Action
	kind     pendingKind
	reserved float64 // cash earmarked for BUYs
}
