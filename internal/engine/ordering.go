package engine

import (
	"github.com/hailam/chesscore/internal/board"
)

// Move ordering priorities
const (
	TTMoveScore     = 10000000
	GoodCaptureBase = 1000000
	PromotionBase   = 950000
	KillerScore1    = 900000
	KillerScore2    = 800000

	historyLimit = 400000
)

// MVV-LVA: most valuable victim first, least valuable attacker breaking ties.
var mvvLva = [6][6]int{
	//       P    N    B    R    Q    K  (attacker)
	/* P */ {15, 14, 14, 13, 12, 11},
	/* N */ {25, 24, 24, 23, 22, 21},
	/* B */ {35, 34, 34, 33, 32, 31},
	/* R */ {45, 44, 44, 43, 42, 41},
	/* Q */ {55, 54, 54, 53, 52, 51},
	/* K */ {0, 0, 0, 0, 0, 0},
}

// MoveOrderer keeps the heuristics that sort moves: killers per ply and a
// from/to history table.
type MoveOrderer struct {
	killers [MaxPly][2]board.Move
	history [64][64]int
}

// Clear drops killers and ages the history for a new search.
func (mo *MoveOrderer) Clear() {
	mo.killers = [MaxPly][2]board.Move{}
	for i := range mo.history {
		for j := range mo.history[i] {
			mo.history[i][j] /= 2
		}
	}
}

// Reset forgets everything, as for a new game.
func (mo *MoveOrderer) Reset() {
	*mo = MoveOrderer{}
}

// ScoreMoves fills scores with the ordering key of every move in ml.
func (mo *MoveOrderer) ScoreMoves(ml *board.MoveList, scores []int, ply int, ttMove board.Move) {
	for i, m := range ml.Slice() {
		scores[i] = mo.scoreMove(m, ply, ttMove)
	}
}

func (mo *MoveOrderer) scoreMove(m board.Move, ply int, ttMove board.Move) int {
	if m == ttMove {
		return TTMoveScore
	}
	if m.IsCapture() {
		score := GoodCaptureBase + mvvLva[m.Captured()][m.Piece()]*1000
		if m.IsPromotion() {
			score += pieceValues[m.Promotion()]
		}
		return score
	}
	if m.IsPromotion() {
		return PromotionBase + pieceValues[m.Promotion()]
	}
	if ply < MaxPly {
		if m == mo.killers[ply][0] {
			return KillerScore1
		}
		if m == mo.killers[ply][1] {
			return KillerScore2
		}
	}
	return mo.history[m.From()][m.To()]
}

// PickMove moves the best-scored move at or after index to index. Sorting
// lazily pays off because most nodes cut after a few moves.
func PickMove(ml *board.MoveList, scores []int, index int) {
	best := index
	for j := index + 1; j < ml.Len(); j++ {
		if scores[j] > scores[best] {
			best = j
		}
	}
	if best != index {
		ml.Swap(index, best)
		scores[index], scores[best] = scores[best], scores[index]
	}
}

// UpdateKillers records a quiet move that caused a beta cutoff at ply.
func (mo *MoveOrderer) UpdateKillers(m board.Move, ply int) {
	if ply >= MaxPly || mo.killers[ply][0] == m {
		return
	}
	mo.killers[ply][1] = mo.killers[ply][0]
	mo.killers[ply][0] = m
}

// UpdateHistory rewards a quiet move that cut off and penalizes the quiet
// moves tried before it.
func (mo *MoveOrderer) UpdateHistory(m board.Move, depth int, isGood bool) {
	from, to := m.From(), m.To()
	bonus := depth * depth
	if !isGood {
		mo.history[from][to] = max(mo.history[from][to]-bonus, -historyLimit)
		return
	}
	mo.history[from][to] += bonus
	if mo.history[from][to] > historyLimit {
		for i := range mo.history {
			for j := range mo.history[i] {
				mo.history[i][j] /= 2
			}
		}
	}
}

// History returns the history score of a quiet move.
func (mo *MoveOrderer) History(m board.Move) int {
	return mo.history[m.From()][m.To()]
}
