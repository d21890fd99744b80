// Package stats derives statistical signals from a rolling price window.
// All functions are pure; degenerate inputs yield no snapshot instead of
// panicking or dividing by zero.
package stats

import "math"

// Config controls snapshot computation.
type Config struct {
	RSIPeriod      int
	WithRegression bool
}

// Snapshot is an immutable bundle of statistics for one window at one tick.
type Snapshot struct {
	Last     float64
	Mean     float64
	StdDev   float64
	ZScore   float64
	RSI      float64
	VolRatio float64 // coefficient of variation: stddev / mean

	// Linear regression against tick index, present only when requested and
	// the residual spread is informative.
	HasRegression  bool
	Slope          float64
	Intercept      float64
	R2             float64
	ResidualStdDev float64
	TrendZ         float64 // deviation of last price from the fitted trend
}

// Compute derives a Snapshot from the window. It returns nil when the window
// is too short for the configured RSI period, when the series is flat
// (zero stddev), or when the mean is zero.
func Compute(prices []float64, cfg Config) *Snapshot {
	period := cfg.RSIPeriod
	if period <= 0 {
		period = 14
	}
	if len(prices) < 2 || len(prices) < period+1 {
		return nil
	}

	mean, std := MeanStdDev(prices)
	if std == 0 || mean == 0 {
		return nil
	}

	last := prices[len(prices)-1]
	snap := &Snapshot{
		Last:     last,
		Mean:     mean,
		StdDev:   std,
		ZScore:   (last - mean) / std,
		RSI:      RSI(prices, period),
		VolRatio: std / mean,
	}

	if cfg.WithRegression {
		fitRegression(prices, snap)
	}

	return snap
}

// MeanStdDev returns the mean and population standard deviation.
func MeanStdDev(values []float64) (mean, std float64) {
	n := float64(len(values))
	if n == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / n

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / n)
}

// RSI computes the Relative Strength Index over the last period deltas.
// losses == 0 yields 100; gains == 0 with losses present yields 0.
func RSI(values []float64, period int) float64 {
	if period <= 0 || len(values) < period+1 {
		return 50
	}

	var gains, losses float64
	for i := len(values) - period; i < len(values); i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	if losses == 0 {
		return 100
	}
	rs := (gains / float64(period)) / (losses / float64(period))
	return 100 - (100 / (1 + rs))
}
