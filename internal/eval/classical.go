package eval

import "github.com/hailam/aaschess/internal/board"

// Piece-square tables, written rank 8 first so they read like a diagram
// from White's side. White squares are mirrored before lookup.
var pawnPST = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	50, 50, 50, 50, 50, 50, 50, 50,
	10, 10, 20, 30, 30, 20, 10, 10,
	5, 5, 10, 25, 25, 10, 5, 5,
	0, 0, 0, 20, 20, 0, 0, 0,
	5, -5, -10, 0, 0, -10, -5, 5,
	5, 10, 10, -20, -20, 10, 10, 5,
	0, 0, 0, 0, 0, 0, 0, 0,
}

var knightPST = [64]int{
	-50, -40, -30, -30, -30, -30, -40, -50,
	-40, -20, 0, 0, 0, 0, -20, -40,
	-30, 0, 10, 15, 15, 10, 0, -30,
	-30, 5, 15, 20, 20, 15, 5, -30,
	-30, 0, 15, 20, 20, 15, 0, -30,
	-30, 5, 10, 15, 15, 10, 5, -30,
	-40, -20, 0, 5, 5, 0, -20, -40,
	-50, -40, -30, -30, -30, -30, -40, -50,
}

var bishopPST = [64]int{
	-20, -10, -10, -10, -10, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 10, 10, 5, 0, -10,
	-10, 5, 5, 10, 10, 5, 5, -10,
	-10, 0, 10, 10, 10, 10, 0, -10,
	-10, 10, 10, 10, 10, 10, 10, -10,
	-10, 5, 0, 0, 0, 0, 5, -10,
	-20, -10, -10, -10, -10, -10, -10, -20,
}

var rookPST = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	5, 10, 10, 10, 10, 10, 10, 5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	0, 0, 0, 5, 5, 0, 0, 0,
}

var queenPST = [64]int{
	-20, -10, -10, -5, -5, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 5, 5, 5, 0, -10,
	-5, 0, 5, 5, 5, 5, 0, -5,
	0, 0, 5, 5, 5, 5, 0, -5,
	-10, 5, 5, 5, 5, 5, 0, -10,
	-10, 0, 5, 0, 0, 0, 0, -10,
	-20, -10, -10, -5, -5, -10, -10, -20,
}

var kingMidgamePST = [64]int{
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-20, -30, -30, -40, -40, -30, -30, -20,
	-10, -20, -20, -20, -20, -20, -20, -10,
	20, 20, 0, 0, 0, 0, 20, 20,
	20, 30, 10, 0, 0, 10, 30, 20,
}

var kingEndgamePST = [64]int{
	-50, -40, -30, -20, -20, -30, -40, -50,
	-30, -20, -10, 0, 0, -10, -20, -30,
	-30, -10, 20, 30, 30, 20, -10, -30,
	-30, -10, 30, 40, 40, 30, -10, -30,
	-30, -10, 30, 40, 40, 30, -10, -30,
	-30, -10, 20, 30, 30, 20, -10, -30,
	-30, -30, 0, 0, 0, 0, -30, -30,
	-50, -30, -30, -30, -30, -30, -30, -50,
}

var pieceTables = [5]*[64]int{&pawnPST, &knightPST, &bishopPST, &rookPST, &queenPST}

// phaseWeight per kind; a full set of pieces sums to maxPhase.
var phaseWeight = [6]int{0, 1, 1, 2, 4, 0}

const (
	maxPhase        = 24
	tempo           = 10
	bishopPairBonus = 30
	rookOpenFile    = 20
	rookSemiOpen    = 10
)

// Classical is a tapered material and piece-square evaluator with a few
// structural terms.
type Classical struct{}

// Evaluate implements Evaluator.
func (Classical) Evaluate(pos *board.Position) int {
	b := &pos.Board
	var mg, eg [2]int
	phase := 0

	for c := board.White; c <= board.Black; c++ {
		for pt := board.Pawn; pt <= board.King; pt++ {
			for bb := b.Pieces[c][pt]; bb != 0; {
				sq := bb.PopLSB()
				idx := sq
				if c == board.White {
					idx = sq.Mirror()
				}
				v := pt.Value()
				if pt == board.King {
					mg[c] += kingMidgamePST[idx]
					eg[c] += kingEndgamePST[idx]
					continue
				}
				mg[c] += v + pieceTables[pt][idx]
				eg[c] += v + pieceTables[pt][idx]
				phase += phaseWeight[pt]
			}
		}

		if b.Pieces[c][board.Bishop].Count() >= 2 {
			mg[c] += bishopPairBonus
			eg[c] += bishopPairBonus
		}

		own, their := b.Pieces[c][board.Pawn], b.Pieces[c.Other()][board.Pawn]
		for bb := b.Pieces[c][board.Rook]; bb != 0; {
			file := board.FileMask[bb.PopLSB().File()]
			switch {
			case file&(own|their) == 0:
				mg[c] += rookOpenFile
			case file&own == 0:
				mg[c] += rookSemiOpen
			}
		}
	}

	if phase > maxPhase {
		phase = maxPhase
	}
	us, them := pos.SideToMove, pos.SideToMove.Other()
	mgScore := mg[us] - mg[them]
	egScore := eg[us] - eg[them]
	return (mgScore*phase+egScore*(maxPhase-phase))/maxPhase + tempo
}
