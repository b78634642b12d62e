package monitor

import "math"

// RiskWindow is how many scores, including the current one, feed the risk
// score and the consecutive-mastery count.
const RiskWindow = 5

// Risk weights. Absolute performance dominates trend, volatility and
// confidence.
const (
	weightCurrent    = 0.5
	weightSlope      = 0.2
	weightVolatility = 0.2
	weightConfidence = 0.1
)

// Risk scores how likely a student is to be struggling, in [0, 1]. recent
// is ordered oldest first and ends with the current score. confidenceGap is
// the mismatch between self-reported confidence and performance.
//
// The components are: a last score below 0.5, a last score below the mean,
// the population standard deviation of recent, and the magnitude of the
// confidence gap.
func Risk(recent []float64, confidenceGap float64) float64 {
	if len(recent) == 0 {
		return 0
	}
	n := float64(len(recent))

	var sum float64
	for _, s := range recent {
		sum += s
	}
	mean := sum / n
	last := recent[len(recent)-1]
	slope := last - mean

	var sq float64
	for _, s := range recent {
		d := s - mean
		sq += d * d
	}
	volatility := math.Sqrt(sq / n)

	currentRisk := math.Max(0, 0.5-last) * 2
	slopeRisk := math.Max(0, -slope) * 2
	volRisk := math.Min(1, volatility*2)
	confRisk := math.Min(1, math.Abs(confidenceGap))

	combined := weightCurrent*currentRisk +
		weightSlope*slopeRisk +
		weightVolatility*volRisk +
		weightConfidence*confRisk
	return math.Min(1, combined)
}

// ConsecutiveAbove counts how many scores at the end of recent are at or
// above threshold, stopping at the first one below it.
func ConsecutiveAbove(recent []float64, threshold float64) int {
	n := 0
	for i := len(recent) - 1; i >= 0; i-- {
		if recent[i] < threshold {
			break
		}
		n++
	}
	return n
}

// Window returns the last RiskWindow-1 entries of history followed by
// current.
func Window(history []float64, current float64) []float64 {
	if k := RiskWindow - 1; len(history) > k {
		history = history[len(history)-k:]
	}
	out := make([]float64, 0, len(history)+1)
	out = append(out, history...)
	return append(out, current)
}
