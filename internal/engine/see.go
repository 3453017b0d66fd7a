package engine

import (
	"github.com/hailam/chesscore/internal/board"
)

// exchange values; the king outweighs any sequence so it only recaptures last
var seeValues = [7]int{PawnValue, KnightValue, BishopValue, RookValue, QueenValue, 20000, 0}

// SEE returns the material the side to move nets from the exchange m starts
// on its target square, when both sides keep recapturing with their least
// valuable attacker and may stop whenever continuing would lose. Sliders
// behind the capturing pieces join as the exchange opens the line. Pins are
// ignored.
func SEE(pos *board.Position, m board.Move) int {
	from, to := m.From(), m.To()
	occ := pos.AllOccupied &^ board.SquareBB(from)

	var gain [32]int
	gain[0] = seeValues[m.Captured()]
	onSquare := m.Piece()
	if m.IsPromotion() {
		gain[0] += seeValues[m.Promotion()] - PawnValue
		onSquare = m.Promotion()
	}
	if m.IsEnPassant() {
		occ &^= board.SquareBB(board.NewSquare(to.File(), from.Rank()))
	}

	side := pos.SideToMove.Other()
	d := 0
	for d < len(gain)-1 {
		attackers := (pos.AttackersTo(to, board.White, occ) | pos.AttackersTo(to, board.Black, occ)) & occ
		mine := attackers & pos.Occupied[side]
		if mine == 0 {
			break
		}
		pt, sq := leastValuableAttacker(pos, side, mine)
		d++
		gain[d] = seeValues[onSquare] - gain[d-1]
		occ &^= board.SquareBB(sq)
		onSquare = pt
		side = side.Other()
	}
	// each side may decline to recapture
	for ; d > 0; d-- {
		gain[d-1] = -max(-gain[d-1], gain[d])
	}
	return gain[0]
}

func leastValuableAttacker(pos *board.Position, c board.Color, attackers board.Bitboard) (board.PieceType, board.Square) {
	for pt := board.Pawn; pt <= board.King; pt++ {
		if bb := attackers & pos.Pieces[c][pt]; bb != 0 {
			return pt, bb.LSB()
		}
	}
	return board.NoPieceType, board.NoSquare
}
