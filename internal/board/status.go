package board

// Outcome classifies a finished or ongoing game state.
type Outcome uint8

const (
	Ongoing Outcome = iota
	Checkmate
	Stalemate
	FiftyMoveDraw
	RepetitionDraw
	InsufficientMaterial
)

func (o Outcome) String() string {
	switch o {
	case Checkmate:
		return "checkmate"
	case Stalemate:
		return "stalemate"
	case FiftyMoveDraw:
		return "fifty-move rule"
	case RepetitionDraw:
		return "threefold repetition"
	case InsufficientMaterial:
		return "insufficient material"
	}
	return "ongoing"
}

// IsTerminal reports whether the game is over.
func (o Outcome) IsTerminal() bool { return o != Ongoing }

// IsCheckmate reports check with no legal reply.
func (p *Position) IsCheckmate() bool {
	return p.InCheck() && !p.HasLegalMoves()
}

// IsStalemate reports no legal move without check.
func (p *Position) IsStalemate() bool {
	return !p.InCheck() && !p.HasLegalMoves()
}

// IsDraw reports a fifty-move, threefold repetition or insufficient
// material draw. Stalemate is reported separately.
func (p *Position) IsDraw() bool {
	return p.HalfMoveClock >= 100 || p.IsRepetition(3) || p.IsInsufficientMaterial()
}

// IsRepetition reports whether the current position has occurred at least
// n times, counting itself.
func (p *Position) IsRepetition(n int) bool {
	seen := 1
	for i := len(p.history) - 2; i >= 0; i -= 2 {
		if p.history[i] == p.Hash {
			seen++
			if seen >= n {
				return true
			}
		}
	}
	return seen >= n
}

// IsInsufficientMaterial reports K v K, K+minor v K and K+B v K+B with
// both bishops on the same square color.
func (p *Position) IsInsufficientMaterial() bool {
	b := &p.Board
	for c := White; c <= Black; c++ {
		if b.Pieces[c][Pawn]|b.Pieces[c][Rook]|b.Pieces[c][Queen] != 0 {
			return false
		}
	}
	wn, wb := b.Pieces[White][Knight].Count(), b.Pieces[White][Bishop].Count()
	bn, bb := b.Pieces[Black][Knight].Count(), b.Pieces[Black][Bishop].Count()
	switch {
	case wn+wb+bn+bb <= 1:
		return true
	case wn == 0 && bn == 0 && wb == 1 && bb == 1:
		bishops := b.Pieces[White][Bishop] | b.Pieces[Black][Bishop]
		light := bishops & lightSquares
		return light == 0 || light == bishops
	}
	return false
}

// Outcome classifies the position.
func (p *Position) Outcome() Outcome {
	if !p.HasLegalMoves() {
		if p.InCheck() {
			return Checkmate
		}
		return Stalemate
	}
	switch {
	case p.IsInsufficientMaterial():
		return InsufficientMaterial
	case p.HalfMoveClock >= 100:
		return FiftyMoveDraw
	case p.IsRepetition(3):
		return RepetitionDraw
	}
	return Ongoing
}
