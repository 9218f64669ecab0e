package board

// direction indexes the eight ray directions. The first four step toward
// higher square indices, so the nearest blocker on those rays is the LSB.
type direction int

const (
	north direction = iota
	east
	northEast
	northWest
	south
	west
	southEast
	southWest
)

var dirDelta = [8][2]int{ // {file, rank}
	north: {0, 1}, east: {1, 0}, northEast: {1, 1}, northWest: {-1, 1},
	south: {0, -1}, west: {-1, 0}, southEast: {1, -1}, southWest: {-1, -1},
}

var (
	rookDirs   = [4]direction{north, east, south, west}
	bishopDirs = [4]direction{northEast, northWest, southEast, southWest}
)

// Precomputed tables. Built once in init and read-only afterwards.
var (
	knightAttacks [64]Bitboard
	kingAttacks   [64]Bitboard
	pawnAttacks   [2][64]Bitboard
	rays          [8][64]Bitboard
)

func init() {
	knightSteps := [8][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	for sq := A1; sq <= H8; sq++ {
		f, r := sq.File(), sq.Rank()
		for _, d := range knightSteps {
			knightAttacks[sq] |= offset(f+d[0], r+d[1])
		}
		for dir, d := range dirDelta {
			kingAttacks[sq] |= offset(f+d[0], r+d[1])
			for i := 1; i < 8; i++ {
				step := offset(f+i*d[0], r+i*d[1])
				if step == 0 {
					break
				}
				rays[dir][sq] |= step
			}
		}
		bb := SquareBB(sq)
		pawnAttacks[White][sq] = bb.northEast() | bb.northWest()
		pawnAttacks[Black][sq] = bb.southEast() | bb.southWest()
	}
}

// offset returns the square at (file, rank) as a bitboard, or Empty when off the board.
func offset(file, rank int) Bitboard {
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return Empty
	}
	return SquareBB(NewSquare(file, rank))
}

// rayAttacks casts a ray from sq and stops at the first occupied square,
// which is included in the result.
func rayAttacks(dir direction, sq Square, occ Bitboard) Bitboard {
	ray := rays[dir][sq]
	blockers := ray & occ
	if blockers == 0 {
		return ray
	}
	var first Square
	if dir < south {
		first = blockers.LSB()
	} else {
		first = blockers.MSB()
	}
	return ray &^ rays[dir][first]
}

// KnightAttacks returns the squares a knight on sq attacks.
func KnightAttacks(sq Square) Bitboard { return knightAttacks[sq] }

// KingAttacks returns the squares a king on sq attacks.
func KingAttacks(sq Square) Bitboard { return kingAttacks[sq] }

// PawnAttacks returns the squares a pawn of color c on sq attacks.
func PawnAttacks(c Color, sq Square) Bitboard { return pawnAttacks[c][sq] }

// RookAttacks returns rook attacks from sq given occupancy occ.
func RookAttacks(sq Square, occ Bitboard) Bitboard {
	var a Bitboard
	for _, d := range rookDirs {
		a |= rayAttacks(d, sq, occ)
	}
	return a
}

// BishopAttacks returns bishop attacks from sq given occupancy occ.
func BishopAttacks(sq Square, occ Bitboard) Bitboard {
	var a Bitboard
	for _, d := range bishopDirs {
		a |= rayAttacks(d, sq, occ)
	}
	return a
}

// QueenAttacks returns queen attacks from sq given occupancy occ.
func QueenAttacks(sq Square, occ Bitboard) Bitboard {
	return RookAttacks(sq, occ) | BishopAttacks(sq, occ)
}

// AttackMap returns every square attacked by color c.
func (p *Position) AttackMap(c Color) Bitboard {
	b := &p.Board
	occ := b.All
	pawns := b.Pieces[c][Pawn]
	var a Bitboard
	if c == White {
		a = pawns.northEast() | pawns.northWest()
	} else {
		a = pawns.southEast() | pawns.southWest()
	}
	for bb := b.Pieces[c][Knight]; bb != 0; {
		a |= knightAttacks[bb.PopLSB()]
	}
	for bb := b.Pieces[c][Bishop] | b.Pieces[c][Queen]; bb != 0; {
		a |= BishopAttacks(bb.PopLSB(), occ)
	}
	for bb := b.Pieces[c][Rook] | b.Pieces[c][Queen]; bb != 0; {
		a |= RookAttacks(bb.PopLSB(), occ)
	}
	for bb := b.Pieces[c][King]; bb != 0; {
		a |= kingAttacks[bb.PopLSB()]
	}
	return a
}

// IsSquareAttacked reports whether color by attacks sq. It works backwards
// from sq and is cheaper than building the full AttackMap.
func (p *Position) IsSquareAttacked(sq Square, by Color) bool {
	b := &p.Board
	if pawnAttacks[by.Other()][sq]&b.Pieces[by][Pawn] != 0 {
		return true
	}
	if knightAttacks[sq]&b.Pieces[by][Knight] != 0 {
		return true
	}
	if kingAttacks[sq]&b.Pieces[by][King] != 0 {
		return true
	}
	queens := b.Pieces[by][Queen]
	if BishopAttacks(sq, b.All)&(b.Pieces[by][Bishop]|queens) != 0 {
		return true
	}
	return RookAttacks(sq, b.All)&(b.Pieces[by][Rook]|queens) != 0
}

// AttackersOf returns the pieces of color by attacking sq.
func (p *Position) AttackersOf(sq Square, by Color) Bitboard {
	b := &p.Board
	queens := b.Pieces[by][Queen]
	return pawnAttacks[by.Other()][sq]&b.Pieces[by][Pawn] |
		knightAttacks[sq]&b.Pieces[by][Knight] |
		kingAttacks[sq]&b.Pieces[by][King] |
		BishopAttacks(sq, b.All)&(b.Pieces[by][Bishop]|queens) |
		RookAttacks(sq, b.All)&(b.Pieces[by][Rook]|queens)
}
