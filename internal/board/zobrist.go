package board

// Zobrist keys. Generated from a fixed seed so hashes are stable across runs
// and can be persisted.
var (
	zobristPiece    [2][6][64]uint64
	zobristEP       [8]uint64
	zobristCastling [16]uint64
	zobristBlack    uint64
)

func init() {
	s := uint64(0x98F107A2BEEF1234)
	next := func() uint64 { // xorshift64*
		s ^= s >> 12
		s ^= s << 25
		s ^= s >> 27
		return s * 0x2545F4914F6CDD1D
	}
	for c := range zobristPiece {
		for pt := range zobristPiece[c] {
			for sq := range zobristPiece[c][pt] {
				zobristPiece[c][pt][sq] = next()
			}
		}
	}
	for i := range zobristEP {
		zobristEP[i] = next()
	}
	for i := range zobristCastling {
		zobristCastling[i] = next()
	}
	zobristBlack = next()
}

// computeHash hashes the position from scratch.
func (p *Position) computeHash() uint64 {
	var h uint64
	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			for bb := p.Board.Pieces[c][pt]; bb != 0; {
				h ^= zobristPiece[c][pt][bb.PopLSB()]
			}
		}
	}
	if p.EnPassant != NoSquare {
		h ^= zobristEP[p.EnPassant.File()]
	}
	h ^= zobristCastling[p.Castling]
	if p.SideToMove == Black {
		h ^= zobristBlack
	}
	return h
}
