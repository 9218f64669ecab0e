package engine

import (
	"github.com/hailam/aaschess/internal/board"
)

// Move ordering priorities
const (
	TTMoveScore    = 10000000 // TT move gets highest priority
	CaptureBase    = 2000000  // MVV-LVA captures
	PromotionBase  = 1500000  // Quiet promotions
	KillerScore1   = 900000   // First killer move
	KillerScore2   = 800000   // Second killer move
	historyCeiling = 400000   // History is halved past this
)

// MoveOrderer holds the killer and history tables of one search.
type MoveOrderer struct {
	// Killer moves (quiet moves that caused beta cutoffs)
	killers [MaxPly][2]board.Move

	// History heuristic (indexed by [from][to])
	history [64][64]int
}

// NewMoveOrderer creates a new move orderer.
func NewMoveOrderer() *MoveOrderer {
	return &MoveOrderer{}
}

// Clear resets killers and history.
func (mo *MoveOrderer) Clear() {
	mo.killers = [MaxPly][2]board.Move{}
	mo.history = [64][64]int{}
}

// ScoreMoves assigns scores to moves for ordering.
func (mo *MoveOrderer) ScoreMoves(pos *board.Position, moves []board.Move, ply int, ttMove board.Move) []int {
	scores := make([]int, len(moves))
	for i, m := range moves {
		scores[i] = mo.scoreMove(pos, m, ply, ttMove)
	}
	return scores
}

// scoreMove returns the ordering score for a single move.
func (mo *MoveOrderer) scoreMove(pos *board.Position, m board.Move, ply int, ttMove board.Move) int {
	if !ttMove.IsNull() && m == ttMove {
		return TTMoveScore
	}

	// Captures: MVV-LVA
	if pos.IsCapture(m) {
		victim := pos.CapturedType(m)
		attacker := pos.PieceAt(m.From).Type()
		score := CaptureBase + victim.Value() - attacker.Value()
		if m.IsPromotion() {
			score += m.Promotion.Value()
		}
		return score
	}

	if m.IsPromotion() {
		return PromotionBase + m.Promotion.Value()
	}

	if ply < MaxPly {
		if m == mo.killers[ply][0] {
			return KillerScore1
		}
		if m == mo.killers[ply][1] {
			return KillerScore2
		}
	}

	return mo.history[m.From][m.To]
}

// PickMove selects the best remaining move and moves it to position index.
// This allows lazy move sorting (only sort as much as needed).
func PickMove(moves []board.Move, scores []int, index int) {
	best := index
	for j := index + 1; j < len(moves); j++ {
		if scores[j] > scores[best] {
			best = j
		}
	}
	if best != index {
		moves[index], moves[best] = moves[best], moves[index]
		scores[index], scores[best] = scores[best], scores[index]
	}
}

// SortMoves orders moves by score, highest first. Equal scores keep their
// generation order.
func SortMoves(moves []board.Move, scores []int) {
	for i := range moves {
		PickMove(moves, scores, i)
	}
}

// UpdateKillers adds a killer move at the given ply.
func (mo *MoveOrderer) UpdateKillers(m board.Move, ply int) {
	if ply >= MaxPly || mo.killers[ply][0] == m {
		return
	}
	mo.killers[ply][1] = mo.killers[ply][0]
	mo.killers[ply][0] = m
}

// Killers returns the killer moves stored at ply.
func (mo *MoveOrderer) Killers(ply int) [2]board.Move {
	if ply >= MaxPly {
		return [2]board.Move{}
	}
	return mo.killers[ply]
}

// UpdateHistory rewards a quiet move that caused a cutoff.
func (mo *MoveOrderer) UpdateHistory(m board.Move, depth int) {
	mo.history[m.From][m.To] += depth * depth
	if mo.history[m.From][m.To] > historyCeiling {
		for i := range mo.history {
			for j := range mo.history[i] {
				mo.history[i][j] /= 2
			}
		}
	}
}

// HistoryScore returns the history score for a move.
func (mo *MoveOrderer) HistoryScore(m board.Move) int {
	return mo.history[m.From][m.To]
}
