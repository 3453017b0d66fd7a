// Package engine searches chess positions: static evaluation, transposition
// table, move ordering and the iterative-deepening alpha-beta driver.
package engine

import (
	"github.com/hailam/chesscore/internal/board"
)

// Evaluation constants
const (
	PawnValue   = 100
	KnightValue = 320
	BishopValue = 330
	RookValue   = 500
	QueenValue  = 900
)

var pieceValues = [7]int{PawnValue, KnightValue, BishopValue, RookValue, QueenValue, 0, 0}

// Game phase weights per piece type; the opening total is maxPhaseWeight.
var phaseWeight = [6]int{0, 1, 1, 2, 4, 0}

const (
	maxPhaseWeight = 24
	phaseScale     = 256

	// centipawns per reachable square of a knight, bishop, rook or queen
	mobilityWeight = 4
)

// EvalBreakdown lists the evaluation terms from White's point of view.
type EvalBreakdown struct {
	Material int
	PSTMg    int
	PSTEg    int
	Phase    int // 256 = all non-pawn material on the board, 0 = none
	Mobility int
	White    int // blended total for White
	Total    int // from the side to move
}

// Evaluate returns the static score of pos in centipawns from the side to
// move's point of view.
func Evaluate(pos *board.Position) int {
	return Breakdown(pos).Total
}

// Breakdown computes every evaluation term of pos.
func Breakdown(pos *board.Position) EvalBreakdown {
	var b EvalBreakdown
	weight := 0
	for c := board.White; c <= board.Black; c++ {
		sign := 1
		if c == board.Black {
			sign = -1
		}
		for pt := board.Pawn; pt <= board.King; pt++ {
			bb := pos.Pieces[c][pt]
			weight += phaseWeight[pt] * bb.Count()
			for bb != 0 {
				sq := bb.PopLSB()
				idx := sq
				if c == board.Black {
					idx = sq.Flip()
				}
				b.Material += sign * pieceValues[pt]
				b.PSTMg += sign * mgTables[pt][idx]
				b.PSTEg += sign * egTables[pt][idx]
			}
		}
		b.Mobility += sign * mobility(pos, c)
	}

	if weight > maxPhaseWeight {
		weight = maxPhaseWeight
	}
	b.Phase = (weight*phaseScale + maxPhaseWeight/2) / maxPhaseWeight

	pst := (b.PSTMg*b.Phase + b.PSTEg*(phaseScale-b.Phase)) / phaseScale
	b.White = b.Material + pst + b.Mobility
	b.Total = b.White
	if pos.SideToMove == board.Black {
		b.Total = -b.White
	}
	return b
}

// mobility counts pseudo-legal destinations of c's minor and major pieces.
func mobility(pos *board.Position, c board.Color) int {
	occ := pos.AllOccupied
	own := pos.Occupied[c]
	n := 0
	for pt := board.Knight; pt <= board.Queen; pt++ {
		bb := pos.Pieces[c][pt]
		for bb != 0 {
			sq := bb.PopLSB()
			n += (board.AttacksOf(pt, c, sq, occ) &^ own).Count()
		}
	}
	return n * mobilityWeight
}
