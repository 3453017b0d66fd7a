package board

import "golang.org/x/exp/rand"

// zobristSeed makes the keys identical across runs and processes.
const zobristSeed = 0x98F107A2BEEF1234

var (
	zobristPiece      [2][6][64]uint64
	zobristCastling   [4]uint64 // one per right: K, Q, k, q
	zobristEnPassant  [8]uint64 // one per file
	zobristSideToMove uint64
)

func init() {
	rng := rand.New(rand.NewSource(zobristSeed))
	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			for sq := A1; sq <= H8; sq++ {
				zobristPiece[c][pt][sq] = rng.Uint64()
			}
		}
	}
	for i := range zobristCastling {
		zobristCastling[i] = rng.Uint64()
	}
	for i := range zobristEnPassant {
		zobristEnPassant[i] = rng.Uint64()
	}
	zobristSideToMove = rng.Uint64()
}

// castlingKey XORs the key of every right present in cr.
func castlingKey(cr CastlingRights) uint64 {
	var k uint64
	for i := range zobristCastling {
		if cr&(1<<i) != 0 {
			k ^= zobristCastling[i]
		}
	}
	return k
}

func ZobristPiece(c Color, pt PieceType, sq Square) uint64 { return zobristPiece[c][pt][sq] }
func ZobristSideToMove() uint64 { return zobristSideToMove }

// ComputeHash rebuilds the Zobrist key from scratch. MakeMove maintains
// Hash incrementally; the two must always agree.
func (p *Position) ComputeHash() uint64 {
	var h uint64
	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			for bb := p.Pieces[c][pt]; bb != 0; {
				h ^= zobristPiece[c][pt][bb.PopLSB()]
			}
		}
	}
	if p.SideToMove == Black {
		h ^= zobristSideToMove
	}
	h ^= castlingKey(p.CastlingRights)
	if p.EnPassant != NoSquare {
		h ^= zobristEnPassant[p.EnPassant.File()]
	}
	return h
}
