package board

var (
	knightAttacks [64]Bitboard
	kingAttacks   [64]Bitboard
	pawnAttacks   [2][64]Bitboard

	// betweenBB[a][b] holds the squares strictly between two aligned squares.
	// lineBB[a][b] is the whole rank, file or diagonal through both.
	betweenBB [64][64]Bitboard
	lineBB    [64][64]Bitboard
)

type direction struct{ df, dr int }

var (
	rookDirections   = [4]direction{{0, 1}, {0, -1}, {1, 0}, {-1, 0}}
	bishopDirections = [4]direction{{1, 1}, {-1, 1}, {1, -1}, {-1, -1}}
)

func init() {
	for sq := A1; sq <= H8; sq++ {
		bb := SquareBB(sq)

		knightAttacks[sq] = (bb<<17)&NotFileA | (bb<<15)&NotFileH |
			(bb>>15)&NotFileA | (bb>>17)&NotFileH |
			(bb<<10)&NotFileAB | (bb<<6)&NotFileGH |
			(bb>>6)&NotFileAB | (bb>>10)&NotFileGH

		kingAttacks[sq] = bb.North() | bb.South() | bb.East() | bb.West() |
			bb.NorthEast() | bb.NorthWest() | bb.SouthEast() | bb.SouthWest()

		pawnAttacks[White][sq] = bb.NorthEast() | bb.NorthWest()
		pawnAttacks[Black][sq] = bb.SouthEast() | bb.SouthWest()
	}

	for from := A1; from <= H8; from++ {
		for _, dirs := range [][4]direction{rookDirections, bishopDirections} {
			for _, d := range dirs {
				var path Bitboard
				f, r := from.File()+d.df, from.Rank()+d.dr
				for f >= 0 && f < 8 && r >= 0 && r < 8 {
					to := NewSquare(f, r)
					betweenBB[from][to] = path
					path |= SquareBB(to)
					f, r = f+d.df, r+d.dr
				}
				// path now covers the full ray from from in direction d.
				for p := path; p != 0; {
					to := p.PopLSB()
					lineBB[from][to] = path | SquareBB(from) | rayFrom(from, direction{-d.df, -d.dr})
				}
			}
		}
	}

	initMagics()
}

// rayFrom returns every square reachable from sq in direction d on an empty board.
func rayFrom(sq Square, d direction) Bitboard {
	var ray Bitboard
	f, r := sq.File()+d.df, sq.Rank()+d.dr
	for f >= 0 && f < 8 && r >= 0 && r < 8 {
		ray |= SquareBB(NewSquare(f, r))
		f, r = f+d.df, r+d.dr
	}
	return ray
}

// slidingAttacksSlow casts rays square by square, stopping on the first
// occupied square (which is included). It is the reference the magic
// tables are built and tested against.
func slidingAttacksSlow(sq Square, occupied Bitboard, dirs [4]direction) Bitboard {
	var attacks Bitboard
	for _, d := range dirs {
		f, r := sq.File()+d.df, sq.Rank()+d.dr
		for f >= 0 && f < 8 && r >= 0 && r < 8 {
			s := SquareBB(NewSquare(f, r))
			attacks |= s
			if occupied&s != 0 {
				break
			}
			f, r = f+d.df, r+d.dr
		}
	}
	return attacks
}

func KnightAttacks(sq Square) Bitboard { return knightAttacks[sq] }
func KingAttacks(sq Square) Bitboard { return kingAttacks[sq] }

// PawnAttacks returns the squares a pawn of color c on sq captures on.
func PawnAttacks(sq Square, c Color) Bitboard { return pawnAttacks[c][sq] }

func BishopAttacks(sq Square, occupied Bitboard) Bitboard {
	return bishopMagics[sq].attacks(occupied)
}

func RookAttacks(sq Square, occupied Bitboard) Bitboard {
	return rookMagics[sq].attacks(occupied)
}

func QueenAttacks(sq Square, occupied Bitboard) Bitboard {
	return bishopMagics[sq].attacks(occupied) | rookMagics[sq].attacks(occupied)
}

// Between returns the squares strictly between a and b, empty when they
// do not share a line.
func Between(a, b Square) Bitboard { return betweenBB[a][b] }

// Line returns the full line through a and b, empty when they are not aligned.
func Line(a, b Square) Bitboard { return lineBB[a][b] }

// AttacksOf returns the squares a piece of type pt and color c on sq attacks.
func AttacksOf(pt PieceType, c Color, sq Square, occupied Bitboard) Bitboard {
	switch pt {
	case Pawn:
		return pawnAttacks[c][sq]
	case Knight:
		return knightAttacks[sq]
	case Bishop:
		return BishopAttacks(sq, occupied)
	case Rook:
		return RookAttacks(sq, occupied)
	case Queen:
		return QueenAttacks(sq, occupied)
	case King:
		return kingAttacks[sq]
	}
	return 0
}

// AttackersTo returns every piece of color by that attacks sq given occupied.
func (p *Position) AttackersTo(sq Square, by Color, occupied Bitboard) Bitboard {
	pcs := &p.Pieces[by]
	return pawnAttacks[by.Other()][sq]&pcs[Pawn] |
		knightAttacks[sq]&pcs[Knight] |
		kingAttacks[sq]&pcs[King] |
		BishopAttacks(sq, occupied)&(pcs[Bishop]|pcs[Queen]) |
		RookAttacks(sq, occupied)&(pcs[Rook]|pcs[Queen])
}

// IsSquareAttacked reports whether any piece of color by attacks sq. It looks
// outward from sq with each piece pattern rather than enumerating attackers.
func (p *Position) IsSquareAttacked(sq Square, by Color) bool {
	pcs := &p.Pieces[by]
	if pawnAttacks[by.Other()][sq]&pcs[Pawn] != 0 ||
		knightAttacks[sq]&pcs[Knight] != 0 ||
		kingAttacks[sq]&pcs[King] != 0 {
		return true
	}
	if BishopAttacks(sq, p.AllOccupied)&(pcs[Bishop]|pcs[Queen]) != 0 {
		return true
	}
	return RookAttacks(sq, p.AllOccupied)&(pcs[Rook]|pcs[Queen]) != 0
}
