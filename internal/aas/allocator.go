package aas

import (
	"fmt"
	"math"
)

// Band factors applied by Allocate.
const (
	lowWidth    = 0.75
	lowTime     = 0.8
	highWidth   = 1.5
	highTime    = 1.25
	riseWidth   = 1.25
	trendUp     = 1.5
	trendDown   = 0.75
	minDepthExt = -2
	maxDepthExt = 3
	minWidth    = 0.25
	maxWidth    = 4
	minTime     = 0.25
	maxTime     = 4
)

// Budget is what the allocator grants one search.
type Budget struct {
	// DepthExtension is added to the nominal search depth.
	DepthExtension int `json:"depth_extension"`
	// Width scales how many moves are searched at full depth (alpha-beta)
	// and the exploration constant (tree search).
	Width float64 `json:"width"`
	// Time scales the time allotted by the clock.
	Time float64 `json:"time"`
	// NodeScale scales the base node or simulation budget.
	NodeScale float64 `json:"node_scale"`
	// Nodes is BaseNodes scaled by NodeScale.
	Nodes uint64 `json:"nodes"`
}

func (b Budget) String() string {
	return fmt.Sprintf("depth%+d width=%.2f time=%.2f nodes=%d", b.DepthExtension, b.Width, b.Time, b.Nodes)
}

// Allocate maps an entropy gradient to a budget.
//
//   - entropy below LowEntropy: deepen by one ply, narrow, spend less time
//   - entropy above HighEntropy: one ply shallower, widen, spend more time
//   - |delta| above GradientThreshold: widen more when rising, deepen when falling
//   - |trend| above TrendThreshold: scale the node budget up or down
//
// For a fixed history the width never falls as the current entropy rises
// and the depth extension never falls as it drops.
func Allocate(g EntropyGradient, cfg AllocatorConfig) Budget {
	b := Budget{Width: 1, Time: 1, NodeScale: 1}

	switch {
	case g.Current < cfg.LowEntropy:
		b.DepthExtension++
		b.Width *= lowWidth
		b.Time *= lowTime
	case g.Current > cfg.HighEntropy:
		b.DepthExtension--
		b.Width *= highWidth
		b.Time *= highTime
	}

	if math.Abs(g.Delta) > cfg.GradientThreshold {
		if g.Delta > 0 {
			b.Width *= riseWidth
		} else {
			b.DepthExtension++
		}
	}

	if trend := g.Trend(); math.Abs(trend) > cfg.TrendThreshold {
		if trend > 0 {
			b.NodeScale *= trendUp
		} else {
			b.NodeScale *= trendDown
		}
	}

	b.DepthExtension = min(max(b.DepthExtension, minDepthExt), maxDepthExt)
	b.Width = clamp(b.Width, minWidth, maxWidth)
	b.Time = clamp(b.Time, minTime, maxTime)
	b.Nodes = uint64(math.Round(float64(cfg.BaseNodes) * b.NodeScale))
	return b
}
