package stats

import (
	"math"
	"testing"
)

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func TestZScoreSpikeDown(t *testing.T) {
	// mean=9, population stddev=2, z = (5-9)/2 = -2
	prices := []float64{10, 10, 10, 10, 5}

	snap := Compute(prices, Config{RSIPeriod: 4})
	if snap == nil {
		t.Fatal("expected snapshot")
	}
	if !almostEqual(snap.Mean, 9, 1e-9) {
		t.Fatalf("Mean=%v, expected 9", snap.Mean)
	}
	if !almostEqual(snap.StdDev, 2, 1e-9) {
		t.Fatalf("StdDev=%v, expected 2", snap.StdDev)
	}
	if !almostEqual(snap.ZScore, -2, 1e-9) {
		t.Fatalf("ZScore=%v, expected -2", snap.ZScore)
	}
}

func TestZScoreSignAboveMean(t *testing.T) {
	prices := []float64{10, 10, 10, 10, 15}
	snap := Compute(prices, Config{RSIPeriod: 4})
	if snap == nil {
		t.Fatal("expected snapshot")
	}
	if snap.ZScore <= 0 {
		t.Fatalf("ZScore=%v, expected positive for price above mean", snap.ZScore)
	}
}

func TestFlatSeriesYieldsNoSnapshot(t *testing.T) {
	prices := []float64{7, 7, 7, 7, 7, 7}
	if snap := Compute(prices, Config{RSIPeriod: 4}); snap != nil {
		t.Fatalf("expected nil snapshot for flat series, got %+v", snap)
	}
}

func TestShortWindowYieldsNoSnapshot(t *testing.T) {
	prices := []float64{1, 2, 3}
	if snap := Compute(prices, Config{RSIPeriod: 14}); snap != nil {
		t.Fatal("expected nil snapshot for short window")
	}
}

func TestRSIBounds(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
		want   float64
		exact  bool
	}{
		{
			name:   "all gains",
			prices: []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15},
			want:   100,
			exact:  true,
		},
		{
			name:   "all losses",
			prices: []float64{15, 14, 13, 12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1},
			want:   0,
			exact:  true,
		},
		{
			name:   "mixed",
			prices: []float64{10, 11, 10, 12, 11, 13, 12, 14, 13, 15, 14, 16, 15, 17, 16},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RSI(tt.prices, 14)
			if got < 0 || got > 100 {
				t.Fatalf("RSI=%v out of [0,100]", got)
			}
			if tt.exact && !almostEqual(got, tt.want, 1e-9) {
				t.Fatalf("RSI=%v, expected %v", got, tt.want)
			}
		})
	}
}

func TestVolatilityRatio(t *testing.T) {
	prices := []float64{10, 10, 10, 10, 5}
	snap := Compute(prices, Config{RSIPeriod: 4})
	if snap == nil {
		t.Fatal("expected snapshot")
	}
	if !almostEqual(snap.VolRatio, 2.0/9.0, 1e-9) {
		t.Fatalf("VolRatio=%v, expected %v", snap.VolRatio, 2.0/9.0)
	}
}

func TestRegressionDetectsDeviationFromTrend(t *testing.T) {
	// Steady uptrend with a dip on the last tick: plain z-score can stay
	// positive while the trend z-score goes negative.
	prices := make([]float64, 0, 20)
	for i := 0; i < 19; i++ {
		wiggle := 0.3 * math.Sin(float64(i))
		prices = append(prices, 100+2*float64(i)+wiggle)
	}
	prices = append(prices, 100+2*19-5) // below the fitted line

	snap := Compute(prices, Config{RSIPeriod: 14, WithRegression: true})
	if snap == nil {
		t.Fatal("expected snapshot")
	}
	if !snap.HasRegression {
		t.Fatal("expected regression fields")
	}
	if snap.Slope <= 0 {
		t.Fatalf("Slope=%v, expected positive for an uptrend", snap.Slope)
	}
	if snap.TrendZ >= 0 {
		t.Fatalf("TrendZ=%v, expected negative for a dip below trend", snap.TrendZ)
	}
	if snap.R2 <= 0.9 {
		t.Fatalf("R2=%v, expected strong fit for a near-linear series", snap.R2)
	}
}

func TestRegressionPerfectLineSkipped(t *testing.T) {
	prices := make([]float64, 20)
	for i := range prices {
		prices[i] = 10 + float64(i)
	}
	snap := Compute(prices, Config{RSIPeriod: 14, WithRegression: true})
	if snap == nil {
		t.Fatal("expected snapshot")
	}
	if snap.HasRegression {
		t.Fatal("zero residual stddev must leave regression unset")
	}
}
