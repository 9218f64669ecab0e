// Package eval defines the scoring boundaries the search engines are generic
// over, together with the built-in evaluators used when no external one is
// supplied.
package eval

import "github.com/hailam/aaschess/internal/board"

// Evaluator scores a position in centipawns from the side to move's view.
// It must be total: every position, including terminal ones, gets a score.
type Evaluator interface {
	Evaluate(pos *board.Position) int
}

// Func adapts an ordinary function to Evaluator.
type Func func(pos *board.Position) int

// Evaluate calls f(pos).
func (f Func) Evaluate(pos *board.Position) int { return f(pos) }

// Material counts piece values only. It is the fallback evaluator.
var Material Evaluator = Func(func(pos *board.Position) int {
	us := pos.SideToMove
	return pos.Board.Material(us) - pos.Board.Material(us.Other())
})

// Default returns the evaluator used when none is configured.
func Default() Evaluator { return Classical{} }
