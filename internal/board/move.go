package board

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedFEN is returned when position notation cannot be parsed.
	ErrMalformedFEN = errors.New("malformed position notation")
	// ErrMalformedMove is returned when move notation cannot be parsed.
	ErrMalformedMove = errors.New("malformed move notation")
	// ErrIllegalMove is returned when a well-formed move is not legal in the position.
	ErrIllegalMove = errors.New("illegal move")
)

// Move is an immutable move value. Two moves are equal when all fields are
// equal, so Move can be used as a map key.
//
// Promotion holds the promoted kind; the zero value (Pawn) means no promotion.
type Move struct {
	From, To  Square
	Promotion PieceType
	Castle    bool
	EnPassant bool
}

// NoMove is the zero Move. It is never legal.
var NoMove = Move{}

// Promotions lists promotion kinds in generation order.
var Promotions = [4]PieceType{Queen, Rook, Bishop, Knight}

// IsNull reports whether m is NoMove.
func (m Move) IsNull() bool { return m == NoMove }

// IsPromotion reports whether m promotes a pawn.
func (m Move) IsPromotion() bool { return m.Promotion != Pawn }

// String returns the coordinate notation, e.g. "e2e4" or "e7e8q".
func (m Move) String() string {
	if m.IsNull() {
		return "0000"
	}
	s := m.From.String() + m.To.String()
	if m.IsPromotion() {
		s += string(m.Promotion.Letter())
	}
	return s
}

// ParseMove parses coordinate notation and resolves it against the legal
// moves of pos, filling in the castling and en-passant flags.
func ParseMove(s string, pos *Position) (Move, error) {
	s = strings.TrimSpace(s)
	if len(s) != 4 && len(s) != 5 {
		return NoMove, fmt.Errorf("%w: %q", ErrMalformedMove, s)
	}
	from, err := ParseSquare(s[0:2])
	if err != nil {
		return NoMove, fmt.Errorf("%w: %v", ErrMalformedMove, err)
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return NoMove, fmt.Errorf("%w: %v", ErrMalformedMove, err)
	}
	promo := Pawn
	if len(s) == 5 {
		switch strings.ToLower(s[4:]) {
		case "q":
			promo = Queen
		case "r":
			promo = Rook
		case "b":
			promo = Bishop
		case "n":
			promo = Knight
		default:
			return NoMove, fmt.Errorf("%w: bad promotion in %q", ErrMalformedMove, s)
		}
	}
	for _, m := range pos.LegalMoves() {
		if m.From == from && m.To == to && m.Promotion == promo {
			return m, nil
		}
	}
	return NoMove, fmt.Errorf("%w: %s in %s", ErrIllegalMove, s, pos.FEN())
}
