package aas

import "math"

// EntropyGradient tracks entropy readings over successive positions.
type EntropyGradient struct {
	Current  float64   `json:"current"`
	Previous float64   `json:"previous"`
	Delta    float64   `json:"delta"`
	History  []float64 `json:"history"`
}

// Observe returns the gradient after reading e. The receiver is not
// modified. History keeps at most limit readings, newest last. The first
// reading has no predecessor and yields a zero delta.
func (g EntropyGradient) Observe(e float64, limit int) EntropyGradient {
	if limit < 1 {
		limit = 1
	}
	prev := g.Current
	if len(g.History) == 0 {
		prev = e
	}
	h := make([]float64, 0, min(len(g.History)+1, limit))
	start := max(0, len(g.History)+1-limit)
	if start < len(g.History) {
		h = append(h, g.History[start:]...)
	}
	h = append(h, e)
	return EntropyGradient{Current: e, Previous: prev, Delta: e - prev, History: h}
}

// Trend returns the least-squares slope of the history per reading, or 0
// with fewer than two readings.
func (g EntropyGradient) Trend() float64 {
	n := float64(len(g.History))
	if n < 2 {
		return 0
	}
	var sx, sy, sxx, sxy float64
	for i, y := range g.History {
		x := float64(i)
		sx += x
		sy += y
		sxx += x * x
		sxy += x * y
	}
	den := n*sxx - sx*sx
	if den == 0 {
		return 0
	}
	slope := (n*sxy - sx*sy) / den
	if math.IsNaN(slope) || math.IsInf(slope, 0) {
		return 0
	}
	return slope
}
