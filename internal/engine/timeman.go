package engine

import (
	"time"

	"github.com/hailam/aaschess/internal/board"
)

// Clock holds the game clock sent with a search request.
type Clock struct {
	Time      [2]time.Duration // wtime, btime (remaining time for each color)
	Inc       [2]time.Duration // winc, binc (increment per move)
	MovesToGo int              // moves until next time control (0 = sudden death)
}

// TimeManager handles time allocation for searches.
type TimeManager struct {
	optimumTime time.Duration // Stop starting new iterations past this
	maximumTime time.Duration // Abort the running iteration past this
	startTime   time.Time     // When search started
}

// NewTimeManager creates a new time manager.
func NewTimeManager() *TimeManager {
	return &TimeManager{}
}

// Init allots time for one search. ply is the current game ply. A zero
// allotment means the search is not time limited.
func (tm *TimeManager) Init(limits Limits, us board.Color, ply int) {
	tm.startTime = time.Now()
	tm.optimumTime, tm.maximumTime = 0, 0

	scale := limits.TimeScale
	if scale <= 0 {
		scale = 1
	}

	// Fixed move time mode: a new iteration past half the budget rarely
	// completes.
	if limits.MoveTime > 0 {
		tm.maximumTime = scaleDuration(limits.MoveTime, scale)
		tm.optimumTime = tm.maximumTime / 2
		return
	}

	if limits.Infinite || limits.Clock.Time[us] <= 0 {
		return
	}

	timeLeft := limits.Clock.Time[us]
	inc := limits.Clock.Inc[us]

	// Estimate moves to go
	mtg := limits.Clock.MovesToGo
	if mtg == 0 {
		// Sudden death: more moves are expected early in the game.
		mtg = min(max(50-ply/4, 10), 50)
	}

	baseTime := timeLeft/time.Duration(mtg) + inc*9/10
	if ply < 8 {
		baseTime = baseTime * 85 / 100
	}
	tm.optimumTime = scaleDuration(baseTime, scale)

	// Maximum time: 5x optimum or 80% of remaining, whichever is smaller
	tm.maximumTime = min(tm.optimumTime*5, timeLeft*8/10)

	// Never use more than 95% of the remaining time
	tm.maximumTime = min(tm.maximumTime, timeLeft*95/100)

	tm.optimumTime = max(tm.optimumTime, 10*time.Millisecond)
	tm.maximumTime = max(tm.maximumTime, 50*time.Millisecond)
	tm.optimumTime = min(tm.optimumTime, tm.maximumTime)
}

func scaleDuration(d time.Duration, scale float64) time.Duration {
	return time.Duration(float64(d) * scale)
}

// Limited reports whether the search has a time budget.
func (tm *TimeManager) Limited() bool {
	return tm.maximumTime > 0
}

// Deadline returns the hard stop time, or the zero time when unlimited.
func (tm *TimeManager) Deadline() time.Time {
	if !tm.Limited() {
		return time.Time{}
	}
	return tm.startTime.Add(tm.maximumTime)
}

// Elapsed returns the time elapsed since search started.
func (tm *TimeManager) Elapsed() time.Duration {
	return time.Since(tm.startTime)
}

// OptimumTime returns the target time for this move.
func (tm *TimeManager) OptimumTime() time.Duration {
	return tm.optimumTime
}

// MaximumTime returns the maximum time allowed.
func (tm *TimeManager) MaximumTime() time.Duration {
	return tm.maximumTime
}

// PastOptimum returns true if we've exceeded the optimum time.
func (tm *TimeManager) PastOptimum() bool {
	return tm.Limited() && tm.Elapsed() >= tm.optimumTime
}
