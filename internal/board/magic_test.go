package board

import (
	"testing"

	"golang.org/x/exp/rand"
)

// Every subset of every relevant mask must map to the ray-cast result.
func TestMagicsExhaustive(t *testing.T) {
	for sq := A1; sq <= H8; sq++ {
		for _, tc := range []struct {
			name  string
			dirs  [4]direction
			magic func(Square, Bitboard) Bitboard
		}{
			{"bishop", bishopDirections, BishopAttacks},
			{"rook", rookDirections, RookAttacks},
		} {
			mask := relevantMask(sq, tc.dirs)
			var occ Bitboard
			for {
				want := slidingAttacksSlow(sq, occ, tc.dirs)
				if got := tc.magic(sq, occ); got != want {
					t.Fatalf("%s on %s with occupancy %#x:\ngot\n%swant\n%s", tc.name, sq, uint64(occ), got, want)
				}
				occ = (occ - mask) & mask
				if occ == 0 {
					break
				}
			}
		}
	}
}

func TestMagicsRandomOccupancy(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20000; i++ {
		sq := Square(rng.Intn(64))
		occ := Bitboard(rng.Uint64() & rng.Uint64())
		if got, want := QueenAttacks(sq, occ), slidingAttacksSlow(sq, occ, bishopDirections)|slidingAttacksSlow(sq, occ, rookDirections); got != want {
			t.Fatalf("queen on %s with occupancy %#x: got %#x, want %#x", sq, uint64(occ), uint64(got), uint64(want))
		}
	}
}

func TestLeaperTables(t *testing.T) {
	tests := []struct {
		name string
		got  Bitboard
		want []Square
	}{
		{"knight a1", KnightAttacks(A1), []Square{B3, C2}},
		{"knight e4", KnightAttacks(E4), []Square{D2, F2, C3, G3, C5, G5, D6, F6}},
		{"king h8", KingAttacks(H8), []Square{G8, G7, H7}},
		{"white pawn a2", PawnAttacks(A2, White), []Square{B3}},
		{"black pawn e5", PawnAttacks(E5, Black), []Square{D4, F4}},
	}
	for _, tc := range tests {
		var want Bitboard
		for _, sq := range tc.want {
			want |= SquareBB(sq)
		}
		if tc.got != want {
			t.Errorf("%s: got\n%swant\n%s", tc.name, tc.got, want)
		}
	}
}

func TestBetweenAndLine(t *testing.T) {
	if got, want := Between(A1, D4), SquareBB(B2)|SquareBB(C3); got != want {
		t.Errorf("Between(a1, d4) = %#x, want %#x", uint64(got), uint64(want))
	}
	if Between(A1, B3) != 0 {
		t.Error("Between on unaligned squares should be empty")
	}
	if got := Line(C1, C5); got != FileMask[2] {
		t.Errorf("Line(c1, c5) = %#x, want the c-file", uint64(got))
	}
}

func FuzzSlidingAttacks(f *testing.F) {
	f.Add(uint8(27), uint64(0))
	f.Add(uint8(0), uint64(0x0000001008000000))
	f.Add(uint8(63), uint64(0xFFFFFFFFFFFFFFFF))
	f.Fuzz(func(t *testing.T, s uint8, occ uint64) {
		sq := Square(s % 64)
		b := Bitboard(occ)
		if got, want := BishopAttacks(sq, b), slidingAttacksSlow(sq, b, bishopDirections); got != want {
			t.Fatalf("bishop on %s, occupancy %#x: got %#x, want %#x", sq, occ, uint64(got), uint64(want))
		}
		if got, want := RookAttacks(sq, b), slidingAttacksSlow(sq, b, rookDirections); got != want {
			t.Fatalf("rook on %s, occupancy %#x: got %#x, want %#x", sq, occ, uint64(got), uint64(want))
		}
	})
}
