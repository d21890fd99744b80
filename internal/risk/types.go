package risk

// Config defines portfolio-level risk parameters.
type Config struct {
	MaxPositions   int     `yaml:"max_positions"`
	AllocationFrac float64 `yaml:"allocation_frac"` // fraction of available cash per entry
	DCAFrac        float64 `yaml:"dca_frac"`        // fraction per averaging fill

	// Volatility-inverse sizing: riskier symbols get smaller positions.
	VolSizing       bool    `yaml:"vol_sizing"`
	VolSizingTarget float64 `yaml:"vol_sizing_target"` // CV at which sizing starts shrinking

	MinLiquidity float64 `yaml:"min_liquidity"`
	MinVolume24h float64 `yaml:"min_volume_24h"`

	CooldownTicks int `yaml:"cooldown_ticks"`
}

// DefaultConfig returns conservative defaults for local runs.
func DefaultConfig() Config {
	return Config{
		MaxPositions:    5,
		AllocationFrac:  0.10,
		DCAFrac:         0.10,
		VolSizing:       true,
		VolSizingTarget: 0.02,
		MinLiquidity:    10_000,
		MinVolume24h:    100_000,
		CooldownTicks:   10,
	}
}

// TradeResult reports one realized round trip (or partial fill outcome).
type TradeResult struct {
	Symbol string
	Side   string
	Qty    float64
	Price  float64
	PnL    float64 // realized, net of fees
}

// Metrics tracks cumulative trading statistics for the run.
type Metrics struct {
	TradesTotal     int     `json:"trades_total"`
	WinningTrades   int     `json:"winning_trades"`
	LosingTrades    int     `json:"losing_trades"`
	RealizedPnL     float64 `json:"realized_pnl"`
	GrossProfit     float64 `json:"gross_profit"`
	GrossLoss       float64 `json:"gross_loss"`
	MaxDrawdown     float64 `json:"max_drawdown"`
	EntriesRefused  int     `json:"entries_refused"`
	CooldownBlocks  int     `json:"cooldown_blocks"`
	LiquidityBlocks int     `json:"liquidity_blocks"`
}

// WinRate derives the fraction of winning round trips.
func (m Metrics) WinRate() float64 {
	if m.TradesTotal == 0 {
		return 0
	}
	return float64(m.WinningTrades) / float64(m.TradesTotal)
}

// ProfitFactor derives gross profit over gross loss.
func (m Metrics) ProfitFactor() float64 {
	if m.GrossLoss == 0 {
		return 0
	}
	return m.GrossProfit / m.GrossLoss
}
