package board

import (
	"math/bits"
	"strings"
)

// Bitboard is a 64-bit set of squares.
// Bit 0 = a1, bit 7 = h1, bit 56 = a8, bit 63 = h8.
type Bitboard uint64

// File masks
const (
	FileA Bitboard = 0x0101010101010101 << iota
	FileB
	FileC
	FileD
	FileE
	FileF
	FileG
	FileH
)

// Rank masks
const (
	Rank1 Bitboard = 0xFF << (8 * iota)
	Rank2
	Rank3
	Rank4
	Rank5
	Rank6
	Rank7
	Rank8
)

const (
	Empty Bitboard = 0

	notFileA Bitboard = ^FileA
	notFileH Bitboard = ^FileH

	// Center is d4, e4, d5, e5.
	Center Bitboard = (FileD | FileE) & (Rank4 | Rank5)

	// Wing masks used to partition moves by destination file.
	QueenSide Bitboard = FileA | FileB | FileC
	Middle    Bitboard = FileD | FileE
	KingSide  Bitboard = FileF | FileG | FileH

	lightSquares Bitboard = 0x55AA55AA55AA55AA
)

// FileMask indexes file masks by file (0 = a).
var FileMask = [8]Bitboard{FileA, FileB, FileC, FileD, FileE, FileF, FileG, FileH}

// SquareBB returns a bitboard with only sq set.
func SquareBB(sq Square) Bitboard {
	return 1 << sq
}

// Has reports whether sq is in the set.
func (b Bitboard) Has(sq Square) bool {
	return b&(1<<sq) != 0
}

// Count returns the number of squares in the set.
func (b Bitboard) Count() int {
	return bits.OnesCount64(uint64(b))
}

// LSB returns the lowest square in the set, or NoSquare.
func (b Bitboard) LSB() Square {
	if b == 0 {
		return NoSquare
	}
	return Square(bits.TrailingZeros64(uint64(b)))
}

// MSB returns the highest square in the set, or NoSquare.
func (b Bitboard) MSB() Square {
	if b == 0 {
		return NoSquare
	}
	return Square(63 - bits.LeadingZeros64(uint64(b)))
}

// PopLSB removes and returns the lowest square.
func (b *Bitboard) PopLSB() Square {
	sq := b.LSB()
	*b &= *b - 1
	return sq
}

func (b Bitboard) north() Bitboard     { return b << 8 }
func (b Bitboard) south() Bitboard     { return b >> 8 }
func (b Bitboard) northEast() Bitboard { return (b << 9) & notFileA }
func (b Bitboard) northWest() Bitboard { return (b << 7) & notFileH }
func (b Bitboard) southEast() Bitboard { return (b >> 7) & notFileA }
func (b Bitboard) southWest() Bitboard { return (b >> 9) & notFileH }

// String draws the set as an 8x8 grid, rank 8 first.
func (b Bitboard) String() string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		sb.WriteByte(byte('1' + rank))
		for file := 0; file < 8; file++ {
			if b.Has(NewSquare(file, rank)) {
				sb.WriteString(" x")
			} else {
				sb.WriteString(" .")
			}
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("  a b c d e f g h\n")
	return sb.String()
}
