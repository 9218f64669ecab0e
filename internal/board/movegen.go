package board

// genMode selects which pseudo-legal moves to generate.
type genMode int

const (
	genAll genMode = iota
	genTactical
)

// castle describes one castling option: the king path (all must be safe),
// the squares between king and rook (all must be empty) and the rook square.
type castle struct {
	right             CastlingRights
	king, to, rook    Square
	path, mustBeEmpty Bitboard
}

var castles = [2][2]castle{
	White: {
		{WhiteKingSide, E1, G1, H1, SquareBB(E1) | SquareBB(F1) | SquareBB(G1), SquareBB(F1) | SquareBB(G1)},
		{WhiteQueenSide, E1, C1, A1, SquareBB(E1) | SquareBB(D1) | SquareBB(C1), SquareBB(B1) | SquareBB(C1) | SquareBB(D1)},
	},
	Black: {
		{BlackKingSide, E8, G8, H8, SquareBB(E8) | SquareBB(F8) | SquareBB(G8), SquareBB(F8) | SquareBB(G8)},
		{BlackQueenSide, E8, C8, A8, SquareBB(E8) | SquareBB(D8) | SquareBB(C8), SquareBB(B8) | SquareBB(C8) | SquareBB(D8)},
	},
}

// LegalMoves returns every legal move in generation order: pawns, knights,
// bishops, rooks, queens, king, castling.
func (p *Position) LegalMoves() []Move {
	return p.filterLegal(p.generate(genAll))
}

// Captures returns the legal captures and promotions.
func (p *Position) Captures() []Move {
	return p.filterLegal(p.generate(genTactical))
}

// PseudoLegalMoves returns moves that obey piece movement but may leave
// the mover's king attacked.
func (p *Position) PseudoLegalMoves() []Move {
	return p.generate(genAll)
}

// HasLegalMoves reports whether at least one legal move exists.
func (p *Position) HasLegalMoves() bool {
	for _, m := range p.generate(genAll) {
		if p.isLegal(m) {
			return true
		}
	}
	return false
}

func (p *Position) filterLegal(moves []Move) []Move {
	legal := moves[:0]
	for _, m := range moves {
		if p.isLegal(m) {
			legal = append(legal, m)
		}
	}
	return legal
}

// isLegal applies m and checks the mover's king against the opponent's attacks.
func (p *Position) isLegal(m Move) bool {
	us := p.SideToMove
	n := p.Apply(m)
	return !n.IsSquareAttacked(n.Board.King(us), us.Other())
}

func (p *Position) generate(mode genMode) []Move {
	moves := make([]Move, 0, 48)
	us, them := p.SideToMove, p.SideToMove.Other()
	b := &p.Board
	own, enemies := b.Occupied[us], b.Occupied[them]

	moves = p.pawnMoves(moves, mode)

	targets := ^own
	if mode == genTactical {
		targets = enemies
	}
	for pt := Knight; pt <= King; pt++ {
		for bb := b.Pieces[us][pt]; bb != 0; {
			from := bb.PopLSB()
			var att Bitboard
			switch pt {
			case Knight:
				att = knightAttacks[from]
			case Bishop:
				att = BishopAttacks(from, b.All)
			case Rook:
				att = RookAttacks(from, b.All)
			case Queen:
				att = QueenAttacks(from, b.All)
			case King:
				att = kingAttacks[from]
			}
			for att &= targets; att != 0; {
				moves = append(moves, Move{From: from, To: att.PopLSB()})
			}
		}
	}

	if mode == genAll {
		moves = p.castlingMoves(moves)
	}
	return moves
}

func (p *Position) pawnMoves(moves []Move, mode genMode) []Move {
	us := p.SideToMove
	b := &p.Board
	enemies := b.Occupied[us.Other()]
	forward, startRank, lastRank := 8, 1, 7
	if us == Black {
		forward, startRank, lastRank = -8, 6, 0
	}

	addPawnMove := func(from, to Square) {
		if to.Rank() == lastRank {
			for _, promo := range Promotions {
				moves = append(moves, Move{From: from, To: to, Promotion: promo})
			}
			return
		}
		moves = append(moves, Move{From: from, To: to})
	}

	for bb := b.Pieces[us][Pawn]; bb != 0; {
		from := bb.PopLSB()
		one := Square(int(from) + forward)
		if !b.All.Has(one) {
			if one.Rank() == lastRank || mode == genAll {
				addPawnMove(from, one)
			}
			two := Square(int(one) + forward)
			if mode == genAll && from.Rank() == startRank && !b.All.Has(two) {
				moves = append(moves, Move{From: from, To: two})
			}
		}
		for att := pawnAttacks[us][from] & enemies; att != 0; {
			addPawnMove(from, att.PopLSB())
		}
		if p.EnPassant != NoSquare && pawnAttacks[us][from].Has(p.EnPassant) {
			moves = append(moves, Move{From: from, To: p.EnPassant, EnPassant: true})
		}
	}
	return moves
}

// castlingMoves adds castling when the right is held, king and rook stand
// on their squares, the squares between are empty and the king's path,
// including its start square, is not attacked.
func (p *Position) castlingMoves(moves []Move) []Move {
	us, them := p.SideToMove, p.SideToMove.Other()
	b := &p.Board
	for _, c := range castles[us] {
		if p.Castling&c.right == 0 ||
			!b.Pieces[us][King].Has(c.king) ||
			!b.Pieces[us][Rook].Has(c.rook) ||
			b.All&c.mustBeEmpty != 0 {
			continue
		}
		safe := true
		for path := c.path; path != 0; {
			if p.IsSquareAttacked(path.PopLSB(), them) {
				safe = false
				break
			}
		}
		if safe {
			moves = append(moves, Move{From: c.king, To: c.to, Castle: true})
		}
	}
	return moves
}
