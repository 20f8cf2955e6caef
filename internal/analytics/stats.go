package analytics

import (
	"math"
)

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stdDev returns the population standard deviation.
func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	var ss float64
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)))
}

// linearFit is an ordinary least squares fit of y against index 0..n-1.
type linearFit struct {
	Slope     float64
	Intercept float64
	// ResidualSE is the residual standard error of the fit, used to derive
	// the confidence band width.
	ResidualSE float64
}

// fitLine fits y = intercept + slope*x for x = 0..len(y)-1.
// Callers must pass at least 3 points.
func fitLine(y []float64) linearFit {
	n := float64(len(y))

	var sumX, sumY, sumXY, sumXX float64
	for i, v := range y {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	var slope float64
	if denom != 0 {
		slope = (n*sumXY - sumX*sumY) / denom
	}
	intercept := (sumY - slope*sumX) / n

	var sse float64
	for i, v := range y {
		resid := v - (intercept + slope*float64(i))
		sse += resid * resid
	}
	// n-2 degrees of freedom for a two-parameter fit.
	se := math.Sqrt(sse / (n - 2))

	return linearFit{Slope: slope, Intercept: intercept, ResidualSE: se}
}

func (f linearFit) predict(x int) float64 {
	return f.Intercept + f.Slope*float64(x)
}

// pctChange returns the percentage change from prev to cur. A zero baseline
// maps any positive growth to 100 rather than dividing by zero.
func pctChange(prev, cur float64) float64 {
	if prev == 0 {
		if cur > 0 {
			return 100
		}
		return 0
	}
	return (cur - prev) / prev * 100
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
