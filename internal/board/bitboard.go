package board

import (
	"math/bits"
	"strings"
)

// Bitboard is a set of squares packed into 64 bits, one bit per square.
// Bit 0 is a1, bit 7 is h1, bit 63 is h8.
type Bitboard uint64

const (
	FileA Bitboard = 0x0101010101010101
	FileH Bitboard = FileA << 7

	Rank1 Bitboard = 0xFF
	Rank2 Bitboard = Rank1 << 8
	Rank3 Bitboard = Rank1 << 16
	Rank4 Bitboard = Rank1 << 24
	Rank5 Bitboard = Rank1 << 32
	Rank6 Bitboard = Rank1 << 40
	Rank7 Bitboard = Rank1 << 48
	Rank8 Bitboard = Rank1 << 56

	NotFileA  Bitboard = ^FileA
	NotFileH  Bitboard = ^FileH
	NotFileAB Bitboard = ^(FileA | FileA<<1)
	NotFileGH Bitboard = ^(FileH | FileH>>1)
)

// FileMask and RankMask index the eight files and ranks.
var (
	FileMask [8]Bitboard
	RankMask [8]Bitboard
)

func init() {
	for i := 0; i < 8; i++ {
		FileMask[i] = FileA << i
		RankMask[i] = Rank1 << (8 * i)
	}
}

// SquareBB returns the singleton set {sq}.
func SquareBB(sq Square) Bitboard {
	return Bitboard(1) << sq
}

// Has reports whether sq is in the set.
func (b Bitboard) Has(sq Square) bool {
	return b&SquareBB(sq) != 0
}

// Count returns the number of squares in the set.
func (b Bitboard) Count() int {
	return bits.OnesCount64(uint64(b))
}

// LSB returns the lowest square in the set, or NoSquare for the empty set.
func (b Bitboard) LSB() Square {
	if b == 0 {
		return NoSquare
	}
	return Square(bits.TrailingZeros64(uint64(b)))
}

// PopLSB removes the lowest square from the set and returns it.
func (b *Bitboard) PopLSB() Square {
	sq := Square(bits.TrailingZeros64(uint64(*b)))
	*b &= *b - 1
	return sq
}

// Several reports whether the set holds more than one square.
func (b Bitboard) Several() bool {
	return b&(b-1) != 0
}

func (b Bitboard) North() Bitboard { return b << 8 }
func (b Bitboard) South() Bitboard { return b >> 8 }
func (b Bitboard) East() Bitboard { return (b << 1) & NotFileA }
func (b Bitboard) West() Bitboard { return (b >> 1) & NotFileH }
func (b Bitboard) NorthEast() Bitboard { return (b << 9) & NotFileA }
func (b Bitboard) NorthWest() Bitboard { return (b << 7) & NotFileH }
func (b Bitboard) SouthEast() Bitboard { return (b >> 7) & NotFileA }
func (b Bitboard) SouthWest() Bitboard { return (b >> 9) & NotFileH }

// Forward shifts one rank toward the opponent of c.
func (b Bitboard) Forward(c Color) Bitboard {
	if c == White {
		return b.North()
	}
	return b.South()
}

// FlipVertical mirrors the set across the horizontal midline (a1 <-> a8).
func (b Bitboard) FlipVertical() Bitboard {
	return Bitboard(bits.ReverseBytes64(uint64(b)))
}

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
