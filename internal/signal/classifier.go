// Package signal turns statistics into qualitative trading signals: entry
// candidates, prioritized exit reasons, and averaging-down triggers.
package signal

import (
	"fmt"

	"strategy-core/internal/stats"
)

// Kind is the qualitative outcome of a classification pass.
type Kind string

const (
	None           Kind = "NONE"
	EntryCandidate Kind = "ENTRY_CANDIDATE"
	ExitStop       Kind = "EXIT_STOP"
	ExitProfit     Kind = "EXIT_PROFIT"
	ExitTrailing   Kind = "EXIT_TRAILING"
	ExitReversion  Kind = "EXIT_REVERSION"
	ExitTimeout    Kind = "EXIT_TIMEOUT"
	AverageDown    Kind = "AVERAGE_DOWN"
)

// Result carries the fired signal and its diagnostic tags.
type Result struct {
	Kind    Kind
	Reasons []string
}

// PositionView is the slice of ledger state the classifier needs. The
// classifier never mutates positions.
type PositionView struct {
	EntryPrice    float64 // weighted-average cost basis
	LastFillPrice float64
	PeakPrice     float64
	Age           int // ticks since entry
	DCALevel      int
}

// Config holds every threshold of the decision surfaces. Zero values are not
// defaulted here; profiles are expected to populate the struct fully.
type Config struct {
	// Entry
	ZEntry        float64 `yaml:"z_entry"`        // fire when z-score is below this (negative)
	RSIEntry      float64 `yaml:"rsi_entry"`      // and RSI is below this
	MinVolatility float64 `yaml:"min_volatility"` // coefficient-of-variation floor; below it the window is dead
	KnifeGuard    bool    `yaml:"knife_guard"`    // require a local uptick before buying
	UseTrendZ     bool    `yaml:"use_trend_z"`    // prefer the regression trend z-score when available

	// Exit, in priority order
	StopLossPct        float64 `yaml:"stop_loss_pct"`         // hard stop: roi <= -StopLossPct
	AllowLossExit      bool    `yaml:"allow_loss_exit"`       // when false the hard-stop tier is disabled
	TargetROI          float64 `yaml:"target_roi"`            // take profit
	TrailingArmROI     float64 `yaml:"trailing_arm_roi"`      // peak roi required before the trailing stop arms
	TrailingDistance   float64 `yaml:"trailing_distance"`     // drawdown from peak that fires the trailing stop
	ZExit              float64 `yaml:"z_exit"`                // mean-reversion exit once z >= this
	ZExitRequireProfit bool    `yaml:"z_exit_require_profit"` // reversion exit may not realize a loss
	MaxHoldTicks       int     `yaml:"max_hold_ticks"`        // time decay
	TimeExitMinROI     float64 `yaml:"time_exit_min_roi"`     // minimal roi for the time exit

	// Averaging down
	DCAEnabled    bool    `yaml:"dca_enabled"`
	MaxDCALevels  int     `yaml:"max_dca_levels"`
	DCABaseDrop   float64 `yaml:"dca_base_drop"`   // drawdown from last fill required at level 0
	DCALevelWiden float64 `yaml:"dca_level_widen"` // multiplicative widening per level (>= 1)
	DCAVolWiden   float64 `yaml:"dca_vol_widen"`   // extra widening per unit of volatility ratio
}

// Classifier applies threshold rules to statistics snapshots.
type Classifier struct {
	cfg Config
}

func New(cfg Config) *Classifier {
	return &Classifier{cfg: cfg}
}

func (c *Classifier) Config() Config {
	return c.cfg
}

// zScore selects the trend z-score when configured and available.
func (c *Classifier) zScore(snap *stats.Snapshot) float64 {
	if c.cfg.UseTrendZ && snap.HasRegression {
		return snap.TrendZ
	}
	return snap.ZScore
}

// CheckEntry evaluates the entry conjunction for a flat symbol. prevPrice is
// the previous tick's price for the knife guard; hasPrev reports whether it
// exists.
func (c *Classifier) CheckEntry(snap *stats.Snapshot, prevPrice float64, hasPrev bool) Result {
	if snap == nil {
		return Result{Kind: None}
	}
	if snap.VolRatio < c.cfg.MinVolatility {
		return Result{Kind: None}
	}

	z := c.zScore(snap)
	if z >= c.cfg.ZEntry {
		return Result{Kind: None}
	}
	if snap.RSI >= c.cfg.RSIEntry {
		return Result{Kind: None}
	}
	if c.cfg.KnifeGuard && hasPrev && snap.Last < prevPrice {
		return Result{Kind: None}
	}

	return Result{
		Kind: EntryCandidate,
		Reasons: []string{
			fmt.Sprintf("Z_SCORE %.2f < %.2f", z, c.cfg.ZEntry),
			fmt.Sprintf("RSI %.1f < %.1f", snap.RSI, c.cfg.RSIEntry),
		},
	}
}

// Strength ranks entry candidates: deeper z deviation and more exhausted
// momentum score higher. Used to pick one symbol when several qualify.
func (c *Classifier) Strength(snap *stats.Snapshot) float64 {
	if snap == nil {
		return 0
	}
	z := c.zScore(snap)
	if z > 0 {
		z = -z
	}
	return -z + (100-snap.RSI)/100
}

type exitRule struct {
	kind Kind
	eval func(c *Classifier, price float64, snap *stats.Snapshot, pos PositionView, roi float64) (bool, string)
}

// exitRules is the fixed priority order. Exactly one reason fires per tick;
// reordering this table is the only way to change precedence.
var exitRules = []exitRule{
	{ExitStop, (*Classifier).hardStop},
	{ExitProfit, (*Classifier).takeProfit},
	{ExitTrailing, (*Classifier).trailingStop},
	{ExitReversion, (*Classifier).meanReversion},
	{ExitTimeout, (*Classifier).timeDecay},
}

// CheckExit walks the exit tiers in priority order for an open position.
// snap may be nil when the window is degenerate; price-based tiers still run,
// statistics-based tiers are skipped.
func (c *Classifier) CheckExit(price float64, snap *stats.Snapshot, pos PositionView) Result {
	if pos.EntryPrice <= 0 {
		return Result{Kind: None}
	}
	roi := (price - pos.EntryPrice) / pos.EntryPrice

	for _, rule := range exitRules {
		if fired, tag := rule.eval(c, price, snap, pos, roi); fired {
			return Result{Kind: rule.kind, Reasons: []string{tag, fmt.Sprintf("ROI %.4f", roi)}}
		}
	}
	return Result{Kind: None}
}

func (c *Classifier) hardStop(price float64, snap *stats.Snapshot, pos PositionView, roi float64) (bool, string) {
	if !c.cfg.AllowLossExit || c.cfg.StopLossPct <= 0 {
		return false, ""
	}
	if roi <= -c.cfg.StopLossPct {
		return true, fmt.Sprintf("STOP_LOSS %.4f <= -%.4f", roi, c.cfg.StopLossPct)
	}
	return false, ""
}

func (c *Classifier) takeProfit(price float64, snap *stats.Snapshot, pos PositionView, roi float64) (bool, string) {
	if c.cfg.TargetROI > 0 && roi >= c.cfg.TargetROI {
		return true, fmt.Sprintf("TAKE_PROFIT %.4f >= %.4f", roi, c.cfg.TargetROI)
	}
	return false, ""
}

func (c *Classifier) trailingStop(price float64, snap *stats.Snapshot, pos PositionView, roi float64) (bool, string) {
	if c.cfg.TrailingDistance <= 0 || pos.PeakPrice <= 0 {
		return false, ""
	}
	// A price gapping through the trailing distance can land below the cost
	// basis; the never-sell-at-loss variant holds instead.
	if !c.cfg.AllowLossExit && roi <= 0 {
		return false, ""
	}
	peakROI := (pos.PeakPrice - pos.EntryPrice) / pos.EntryPrice
	if peakROI < c.cfg.TrailingArmROI {
		return false, ""
	}
	drawdown := (pos.PeakPrice - price) / pos.PeakPrice
	if drawdown >= c.cfg.TrailingDistance {
		return true, fmt.Sprintf("TRAILING_STOP drawdown %.4f from peak %.8f", drawdown, pos.PeakPrice)
	}
	return false, ""
}

func (c *Classifier) meanReversion(price float64, snap *stats.Snapshot, pos PositionView, roi float64) (bool, string) {
	if snap == nil {
		return false, ""
	}
	if snap.VolRatio < c.cfg.MinVolatility {
		return false, ""
	}
	if c.cfg.ZExitRequireProfit && roi <= 0 {
		return false, ""
	}
	if !c.cfg.AllowLossExit && roi <= 0 {
		return false, ""
	}
	if z := c.zScore(snap); z >= c.cfg.ZExit {
		return true, fmt.Sprintf("Z_REVERTED %.2f >= %.2f", z, c.cfg.ZExit)
	}
	return false, ""
}

func (c *Classifier) timeDecay(price float64, snap *stats.Snapshot, pos PositionView, roi float64) (bool, string) {
	if c.cfg.MaxHoldTicks <= 0 || pos.Age <= c.cfg.MaxHoldTicks {
		return false, ""
	}
	minROI := c.cfg.TimeExitMinROI
	if !c.cfg.AllowLossExit && minROI < 0 {
		minROI = 0
	}
	if roi >= minROI {
		return true, fmt.Sprintf("TIME_DECAY age %d > %d", pos.Age, c.cfg.MaxHoldTicks)
	}
	return false, ""
}

// CheckDCA decides whether an underwater position should average down. The
// required drawdown from the last fill widens with each level and with the
// measured volatility so capital survives a prolonged slide.
func (c *Classifier) CheckDCA(price float64, snap *stats.Snapshot, pos PositionView) Result {
	if !c.cfg.DCAEnabled || snap == nil {
		return Result{Kind: None}
	}
	if pos.DCALevel >= c.cfg.MaxDCALevels || pos.LastFillPrice <= 0 {
		return Result{Kind: None}
	}
	if snap.VolRatio < c.cfg.MinVolatility {
		return Result{Kind: None}
	}

	drawdown := (pos.LastFillPrice - price) / pos.LastFillPrice
	required := c.requiredDrop(pos.DCALevel, snap.VolRatio)
	if drawdown < required {
		return Result{Kind: None}
	}

	return Result{
		Kind: AverageDown,
		Reasons: []string{
			fmt.Sprintf("DCA_L%d drawdown %.4f >= %.4f", pos.DCALevel+1, drawdown, required),
		},
	}
}

func (c *Classifier) requiredDrop(level int, volRatio float64) float64 {
	widen := 1.0
	for i := 0; i < level; i++ {
		widen *= c.cfg.DCALevelWiden
	}
	if widen < 1 {
		widen = 1
	}
	return c.cfg.DCABaseDrop * widen * (1 + c.cfg.DCAVolWiden*volRatio)
}
