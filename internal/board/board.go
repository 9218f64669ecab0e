package board

// Board is the piece placement: one bitboard per (color, kind) plus derived
// occupancy. A square holds at most one piece; move keeps that by removing
// before it sets.
type Board struct {
	Pieces   [2][6]Bitboard
	Occupied [2]Bitboard
	All      Bitboard
}

// PieceAt returns the piece on sq, or NoPiece.
func (b *Board) PieceAt(sq Square) Piece {
	bb := SquareBB(sq)
	if b.All&bb == 0 {
		return NoPiece
	}
	c := White
	if b.Occupied[Black]&bb != 0 {
		c = Black
	}
	for pt := Pawn; pt <= King; pt++ {
		if b.Pieces[c][pt]&bb != 0 {
			return MakePiece(c, pt)
		}
	}
	return NoPiece
}

// King returns the king square of c, or NoSquare.
func (b *Board) King(c Color) Square {
	return b.Pieces[c][King].LSB()
}

func (b *Board) set(c Color, pt PieceType, sq Square) {
	b.Pieces[c][pt] |= SquareBB(sq)
	b.recompute()
}

func (b *Board) remove(c Color, pt PieceType, sq Square) {
	b.Pieces[c][pt] &^= SquareBB(sq)
	b.recompute()
}

// move relocates a piece. Any piece on to must already be removed.
func (b *Board) move(c Color, pt PieceType, from, to Square) {
	b.remove(c, pt, from)
	b.set(c, pt, to)
}

func (b *Board) recompute() {
	for c := range b.Occupied {
		var occ Bitboard
		for _, bb := range b.Pieces[c] {
			occ |= bb
		}
		b.Occupied[c] = occ
	}
	b.All = b.Occupied[White] | b.Occupied[Black]
}

// Material returns the summed piece values of c, kings excluded.
func (b *Board) Material(c Color) int {
	total := 0
	for pt := Pawn; pt < King; pt++ {
		total += b.Pieces[c][pt].Count() * pt.Value()
	}
	return total
}
