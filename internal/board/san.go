package board

import (
	"fmt"
	"strings"
)

// SAN returns m in Standard Algebraic Notation, e.g. "Nbd7", "exd5" or
// "e8=Q+". m must be legal in pos.
func (m Move) SAN(pos *Position) string {
	if m.IsNull() {
		return "-"
	}

	piece := pos.PieceAt(m.From)
	if piece == NoPiece {
		return m.String() // Fallback to coordinates
	}

	var sb strings.Builder
	if m.Castle {
		if m.To > m.From {
			sb.WriteString("O-O")
		} else {
			sb.WriteString("O-O-O")
		}
	} else {
		pt := piece.Type()
		if pt != Pawn {
			sb.WriteByte(upper(pt.Letter()))
			sb.WriteString(disambiguation(pos, m, pt))
		}

		if pos.IsCapture(m) {
			if pt == Pawn {
				// Pawn captures include the file of origin
				sb.WriteByte('a' + byte(m.From.File()))
			}
			sb.WriteByte('x')
		}

		sb.WriteString(m.To.String())

		if m.IsPromotion() {
			sb.WriteByte('=')
			sb.WriteByte(upper(m.Promotion.Letter()))
		}
	}

	// Check/checkmate marker
	next := pos.Apply(m)
	if next.InCheck() {
		if next.HasLegalMoves() {
			sb.WriteByte('+')
		} else {
			sb.WriteByte('#')
		}
	}
	return sb.String()
}

// disambiguation returns the origin file, rank or square needed to tell m
// apart from other moves of the same piece kind to the same square.
func disambiguation(pos *Position, m Move, pt PieceType) string {
	var sameFile, sameRank, ambiguous bool
	for _, other := range pos.LegalMoves() {
		if other.To != m.To || other.From == m.From || pos.PieceAt(other.From).Type() != pt {
			continue
		}
		ambiguous = true
		sameFile = sameFile || other.From.File() == m.From.File()
		sameRank = sameRank || other.From.Rank() == m.From.Rank()
	}

	switch {
	case !ambiguous:
		return ""
	case !sameFile:
		return string(rune('a' + m.From.File()))
	case !sameRank:
		return string(rune('1' + m.From.Rank()))
	}
	return m.From.String()
}

// ParseSAN resolves a SAN string against the legal moves of pos. Check and
// annotation suffixes are ignored.
func ParseSAN(s string, pos *Position) (Move, error) {
	orig := s
	s = strings.TrimRight(strings.TrimSpace(s), "+#!?")

	switch s {
	case "O-O", "0-0", "O-O-O", "0-0-0":
		long := len(s) == 5
		for _, m := range pos.LegalMoves() {
			if m.Castle && (m.To < m.From) == long {
				return m, nil
			}
		}
		return NoMove, fmt.Errorf("%w: %s in %s", ErrIllegalMove, orig, pos.FEN())
	}

	// Parse promotion
	promo := Pawn
	if idx := strings.IndexByte(s, '='); idx >= 0 {
		if idx+1 >= len(s) {
			return NoMove, fmt.Errorf("%w: %q", ErrMalformedMove, orig)
		}
		p := pieceFromLetter(s[idx+1] | 0x20)
		if p == NoPiece || p.Type() == Pawn || p.Type() == King {
			return NoMove, fmt.Errorf("%w: bad promotion in %q", ErrMalformedMove, orig)
		}
		promo = p.Type()
		s = s[:idx]
	}

	isCapture := strings.Contains(s, "x")
	s = strings.ReplaceAll(s, "x", "")

	// Piece letter, pawns have none
	pt := Pawn
	if len(s) > 0 && s[0] >= 'A' && s[0] <= 'Z' {
		p := pieceFromLetter(s[0] | 0x20)
		if p == NoPiece || p.Type() == Pawn {
			return NoMove, fmt.Errorf("%w: %q", ErrMalformedMove, orig)
		}
		pt = p.Type()
		s = s[1:]
	}

	if len(s) < 2 {
		return NoMove, fmt.Errorf("%w: %q", ErrMalformedMove, orig)
	}
	dest, err := ParseSquare(s[len(s)-2:])
	if err != nil {
		return NoMove, fmt.Errorf("%w: %v", ErrMalformedMove, err)
	}

	// Disambiguation: file, rank or both
	file, rank := -1, -1
	for _, c := range s[:len(s)-2] {
		switch {
		case c >= 'a' && c <= 'h':
			file = int(c - 'a')
		case c >= '1' && c <= '8':
			rank = int(c - '1')
		default:
			return NoMove, fmt.Errorf("%w: %q", ErrMalformedMove, orig)
		}
	}

	for _, m := range pos.LegalMoves() {
		switch {
		case m.To != dest || m.Castle,
			pos.PieceAt(m.From).Type() != pt,
			file >= 0 && m.From.File() != file,
			rank >= 0 && m.From.Rank() != rank,
			isCapture && !pos.IsCapture(m),
			m.Promotion != promo:
			continue
		}
		return m, nil
	}
	return NoMove, fmt.Errorf("%w: %s in %s", ErrIllegalMove, orig, pos.FEN())
}

// MovesToSAN converts a line of moves played from pos to SAN.
func MovesToSAN(pos *Position, moves []Move) []string {
	out := make([]string, len(moves))
	for i, m := range moves {
		out[i] = m.SAN(pos)
		pos = pos.Apply(m)
	}
	return out
}

func upper(b byte) byte { return b &^ 0x20 }
