package board

// Color is the side owning a piece or having the move.
type Color uint8

const (
	White Color = iota
	Black
	NoColor
)

// Other returns the opposing color.
func (c Color) Other() Color { return c ^ 1 }

func (c Color) String() string {
	switch c {
	case White:
		return "white"
	case Black:
		return "black"
	}
	return "none"
}

// PieceType is the kind of a piece regardless of color.
// The zero value Pawn doubles as "no promotion" in Move.
type PieceType uint8

const (
	Pawn PieceType = iota
	Knight
	Bishop
	Rook
	Queen
	King
	NoPieceType
)

// PieceValue is the material value of each kind in centipawns.
var PieceValue = [7]int{100, 320, 330, 500, 900, 20000, 0}

// Value returns the material value of the kind in centipawns.
func (pt PieceType) Value() int { return PieceValue[pt] }

// Letter returns the lowercase notation letter ('p', 'n', ...).
func (pt PieceType) Letter() byte {
	if pt >= NoPieceType {
		return '?'
	}
	return "pnbrqk"[pt]
}

func (pt PieceType) String() string {
	switch pt {
	case Pawn:
		return "pawn"
	case Knight:
		return "knight"
	case Bishop:
		return "bishop"
	case Rook:
		return "rook"
	case Queen:
		return "queen"
	case King:
		return "king"
	}
	return "none"
}

// Piece is a (color, kind) pair packed as kind + 6*color.
type Piece uint8

// NoPiece marks an empty square.
const NoPiece Piece = 12

// MakePiece packs a color and a kind.
func MakePiece(c Color, pt PieceType) Piece {
	if c >= NoColor || pt >= NoPieceType {
		return NoPiece
	}
	return Piece(pt) + 6*Piece(c)
}

// Type returns the kind, or NoPieceType for NoPiece.
func (p Piece) Type() PieceType {
	if p >= NoPiece {
		return NoPieceType
	}
	return PieceType(p % 6)
}

// Color returns the owner, or NoColor for NoPiece.
func (p Piece) Color() Color {
	if p >= NoPiece {
		return NoColor
	}
	return Color(p / 6)
}

// String returns the placement letter: uppercase for white, lowercase for black.
func (p Piece) String() string {
	if p >= NoPiece {
		return "."
	}
	return string("PNBRQKpnbrqk"[p])
}

// pieceFromLetter is the inverse of Piece.String for placement letters.
func pieceFromLetter(ch byte) Piece {
	for i := Piece(0); i < NoPiece; i++ {
		if "PNBRQKpnbrqk"[i] == ch {
			return i
		}
	}
	return NoPiece
}
