package stats

import "math"

// fitRegression runs ordinary least squares of price against tick index
// 0..n-1 and fills the regression fields of snap. The trend z-score measures
// how far the latest price sits from the fitted line, scaled by the residual
// spread. A zero residual stddev (prices exactly on a line) leaves
// HasRegression false.
func fitRegression(prices []float64, snap *Snapshot) {
	n := len(prices)
	if n < 3 {
		return
	}

	fn := float64(n)
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range prices {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		return
	}

	slope := (fn*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / fn

	meanY := sumY / fn
	var ssRes, ssTot float64
	for i, y := range prices {
		pred := intercept + slope*float64(i)
		ssRes += (y - pred) * (y - pred)
		ssTot += (y - meanY) * (y - meanY)
	}

	residStd := math.Sqrt(ssRes / fn)
	if residStd == 0 {
		return
	}

	r2 := 0.0
	if ssTot > 0 {
		r2 = 1 - ssRes/ssTot
	}

	lastPred := intercept + slope*float64(n-1)

	snap.HasRegression = true
	snap.Slope = slope
	snap.Intercept = intercept
	snap.R2 = r2
	snap.ResidualStdDev = residStd
	snap.TrendZ = (prices[n-1] - lastPred) / residStd
}
