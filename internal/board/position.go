package board

import (
	"fmt"
	"strings"
)

// CastlingRights holds the four independent castling bits.
type CastlingRights uint8

const (
	WhiteKingSide CastlingRights = 1 << iota
	WhiteQueenSide
	BlackKingSide
	BlackQueenSide

	NoCastling  CastlingRights = 0
	AllCastling                = WhiteKingSide | WhiteQueenSide | BlackKingSide | BlackQueenSide
)

// String returns the notation field, e.g. "KQkq" or "-".
func (cr CastlingRights) String() string {
	if cr == NoCastling {
		return "-"
	}
	var sb strings.Builder
	for i, ch := range "KQkq" {
		if cr&(1<<i) != 0 {
			sb.WriteRune(ch)
		}
	}
	return sb.String()
}

// castleMask[sq] is the set of rights kept when a move starts or ends on sq.
var castleMask [64]CastlingRights

func init() {
	for i := range castleMask {
		castleMask[i] = AllCastling
	}
	castleMask[E1] &^= WhiteKingSide | WhiteQueenSide
	castleMask[H1] &^= WhiteKingSide
	castleMask[A1] &^= WhiteQueenSide
	castleMask[E8] &^= BlackKingSide | BlackQueenSide
	castleMask[H8] &^= BlackKingSide
	castleMask[A8] &^= BlackQueenSide
}

// Position is a complete game state. Positions are never mutated once
// built; Apply returns a new one.
type Position struct {
	Board          Board
	SideToMove     Color
	Castling       CastlingRights
	EnPassant      Square // NoSquare when there is no target
	HalfMoveClock  int
	FullMoveNumber int
	Hash           uint64

	// history holds the hashes of earlier positions since the last pawn move
	// or capture, oldest first. Older positions can never repeat.
	history []uint64
}

// StartPosition returns the standard initial position.
func StartPosition() *Position {
	p, err := ParseFEN(StartFEN)
	if err != nil {
		panic(err)
	}
	return p
}

// PieceAt returns the piece on sq, or NoPiece.
func (p *Position) PieceAt(sq Square) Piece { return p.Board.PieceAt(sq) }

// Ply returns the number of half-moves played since the start of the game.
func (p *Position) Ply() int {
	return 2*(p.FullMoveNumber-1) + int(p.SideToMove)
}

// InCheck reports whether the side to move is in check.
func (p *Position) InCheck() bool {
	k := p.Board.King(p.SideToMove)
	return k != NoSquare && p.IsSquareAttacked(k, p.SideToMove.Other())
}

// IsCapture reports whether m takes a piece.
func (p *Position) IsCapture(m Move) bool {
	return m.EnPassant || p.Board.Occupied[p.SideToMove.Other()].Has(m.To)
}

// CapturedType returns the kind m takes, or NoPieceType for quiet moves.
func (p *Position) CapturedType(m Move) PieceType {
	if m.EnPassant {
		return Pawn
	}
	return p.Board.PieceAt(m.To).Type()
}

// GivesCheck reports whether m leaves the opponent in check.
func (p *Position) GivesCheck(m Move) bool {
	return p.Apply(m).InCheck()
}

// Apply plays m and returns the resulting position. p is left untouched.
// m must be pseudo-legal for p; a move from an empty square or from an
// opponent piece panics.
func (p *Position) Apply(m Move) *Position {
	us, them := p.SideToMove, p.SideToMove.Other()
	moved := p.Board.PieceAt(m.From)
	if moved == NoPiece || moved.Color() != us {
		panic(fmt.Sprintf("board: apply %s: no %s piece on %s in %s", m, us, m.From, p.FEN()))
	}
	pt := moved.Type()

	n := *p
	n.history = nil
	h := p.Hash

	if p.EnPassant != NoSquare {
		h ^= zobristEP[p.EnPassant.File()]
	}
	n.EnPassant = NoSquare

	irreversible := pt == Pawn
	switch {
	case m.EnPassant:
		victim := m.To - 8
		if us == Black {
			victim = m.To + 8
		}
		n.Board.remove(them, Pawn, victim)
		h ^= zobristPiece[them][Pawn][victim]
		irreversible = true
	default:
		if captured := p.Board.PieceAt(m.To); captured != NoPiece {
			n.Board.remove(them, captured.Type(), m.To)
			h ^= zobristPiece[them][captured.Type()][m.To]
			irreversible = true
		}
	}

	n.Board.move(us, pt, m.From, m.To)
	h ^= zobristPiece[us][pt][m.From] ^ zobristPiece[us][pt][m.To]

	if m.IsPromotion() {
		n.Board.remove(us, Pawn, m.To)
		n.Board.set(us, m.Promotion, m.To)
		h ^= zobristPiece[us][Pawn][m.To] ^ zobristPiece[us][m.Promotion][m.To]
	}

	if m.Castle {
		rank := m.From.Rank()
		rookFrom, rookTo := NewSquare(7, rank), NewSquare(5, rank)
		if m.To < m.From {
			rookFrom, rookTo = NewSquare(0, rank), NewSquare(3, rank)
		}
		n.Board.move(us, Rook, rookFrom, rookTo)
		h ^= zobristPiece[us][Rook][rookFrom] ^ zobristPiece[us][Rook][rookTo]
	}

	if pt == Pawn && (m.To-m.From == 16 || m.From-m.To == 16) {
		n.EnPassant = (m.From + m.To) / 2
		h ^= zobristEP[n.EnPassant.File()]
	}

	h ^= zobristCastling[p.Castling]
	n.Castling = p.Castling & castleMask[m.From] & castleMask[m.To]
	h ^= zobristCastling[n.Castling]

	if irreversible {
		n.HalfMoveClock = 0
	} else {
		n.HalfMoveClock = p.HalfMoveClock + 1
		n.history = make([]uint64, len(p.history), len(p.history)+1)
		copy(n.history, p.history)
		n.history = append(n.history, p.Hash)
	}
	if us == Black {
		n.FullMoveNumber = p.FullMoveNumber + 1
	}
	n.SideToMove = them
	n.Hash = h ^ zobristBlack
	return &n
}

// Play validates m against the legal moves before applying it.
func (p *Position) Play(m Move) (*Position, error) {
	for _, legal := range p.LegalMoves() {
		if legal == m {
			return p.Apply(m), nil
		}
	}
	return nil, fmt.Errorf("%w: %s in %s", ErrIllegalMove, m, p.FEN())
}

// PlayMoves parses and plays a sequence of coordinate moves.
func (p *Position) PlayMoves(moves ...string) (*Position, error) {
	cur := p
	for _, s := range moves {
		m, err := ParseMove(s, cur)
		if err != nil {
			return nil, err
		}
		cur = cur.Apply(m)
	}
	return cur, nil
}

// String draws the board with white at the bottom.
func (p *Position) String() string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		fmt.Fprintf(&sb, "%d ", rank+1)
		for file := 0; file < 8; file++ {
			sb.WriteString(" " + p.PieceAt(NewSquare(file, rank)).String())
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("\n   a b c d e f g h\n\n")
	fmt.Fprintf(&sb, "Fen: %s\nKey: %016X\n", p.FEN(), p.Hash)
	return sb.String()
}
