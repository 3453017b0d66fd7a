package board

import (
	"math/bits"

	"golang.org/x/exp/rand"
)

// magicEntry maps the relevant occupancy of one square to a slice of the
// shared attack table: index = ((occ & mask) * magic) >> shift.
type magicEntry struct {
	mask  Bitboard
	magic uint64
	shift uint8
	table []Bitboard
}

func (m *magicEntry) attacks(occupied Bitboard) Bitboard {
	return m.table[(uint64(occupied&m.mask)*m.magic)>>m.shift]
}

// magicSeed fixes the candidate stream so every process finds the same magics.
const magicSeed = 0x5EED_C4E5_5B0A_4D01

var (
	bishopMagics [64]magicEntry
	rookMagics   [64]magicEntry

	bishopTable [5248]Bitboard
	rookTable   [102400]Bitboard
)

func initMagics() {
	rng := rand.New(rand.NewSource(magicSeed))
	fillMagics(&bishopMagics, bishopTable[:], bishopDirections, rng)
	fillMagics(&rookMagics, rookTable[:], rookDirections, rng)
}

// relevantMask is the attack set on an empty board without the last square
// of each ray, since a blocker there never changes the result.
func relevantMask(sq Square, dirs [4]direction) Bitboard {
	var mask Bitboard
	for _, d := range dirs {
		f, r := sq.File()+d.df, sq.Rank()+d.dr
		for f >= 0 && f < 8 && r >= 0 && r < 8 {
			nf, nr := f+d.df, r+d.dr
			if nf < 0 || nf > 7 || nr < 0 || nr > 7 {
				break
			}
			mask |= SquareBB(NewSquare(f, r))
			f, r = nf, nr
		}
	}
	return mask
}

func fillMagics(entries *[64]magicEntry, table []Bitboard, dirs [4]direction, rng *rand.Rand) {
	var (
		occupancies [4096]Bitboard
		reference   [4096]Bitboard
		epoch       [4096]int
	)
	offset := 0
	for sq := A1; sq <= H8; sq++ {
		mask := relevantMask(sq, dirs)
		n := mask.Count()
		size := 1 << n

		// Carry-Rippler walk over every subset of mask.
		var occ Bitboard
		for i := 0; i < size; i++ {
			occupancies[i] = occ
			reference[i] = slidingAttacksSlow(sq, occ, dirs)
			occ = (occ - mask) & mask
		}

		e := &entries[sq]
		e.mask = mask
		e.shift = uint8(64 - n)
		e.table = table[offset : offset+size]
		offset += size

		for attempt := 1; ; attempt++ {
			magic := rng.Uint64() & rng.Uint64() & rng.Uint64()
			if bits.OnesCount64((uint64(mask)*magic)&0xFF00000000000000) < 6 {
				continue
			}
			ok := true
			for i := 0; i < size; i++ {
				idx := (uint64(occupancies[i]) * magic) >> e.shift
				if epoch[idx] < attempt {
					epoch[idx] = attempt
					e.table[idx] = reference[i]
				} else if e.table[idx] != reference[i] {
					ok = false
					break
				}
			}
			if ok {
				e.magic = magic
				break
			}
		}
		for i := range epoch[:size] {
			epoch[i] = 0
		}
	}
}
