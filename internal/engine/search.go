package engine

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/hailam/chesscore/internal/board"
)

// Search constants
const (
	Infinity  = 30000
	MateScore = 29000
	MaxPly    = 128
	MaxDepth  = 64

	// Scores beyond MateThreshold in absolute value are forced mates.
	MateThreshold = MateScore - MaxPly

	checkInterval = 1024

	// iterations from aspirationDepth on start with a window of
	// aspirationDelta around the previous score
	aspirationDepth    = 5
	aspirationDelta    = 50
	aspirationMaxDelta = 1000

	nullMoveMinDepth = 3
	lmrMinDepth      = 3
	lmrMinMoves      = 3
)

// lmrTable holds the late move reduction by depth and move number.
var lmrTable [MaxDepth + 1][board.MaxMoves]int

func init() {
	for d := 1; d <= MaxDepth; d++ {
		for m := 1; m < board.MaxMoves; m++ {
			lmrTable[d][m] = int(math.Log(float64(d)) * math.Log(float64(m)) / 2.75)
		}
	}
}

// lmrReduction is at least one ply and never drops below depth one.
func lmrReduction(depth, moveNumber int) int {
	r := lmrTable[min(depth, MaxDepth)][min(moveNumber, board.MaxMoves-1)]
	return max(1, min(r, depth-2))
}

// searcher runs one alpha-beta iteration at a time over its own copy of the
// root position. The Engine drives it through iterative deepening.
type searcher struct {
	pos     *board.Position
	tt      *TranspositionTable // nil when the cache is disabled
	orderer *MoveOrderer
	stop    *atomic.Bool

	// hard limits, only applied once enforceLimits is set
	deadline      time.Time
	nodeLimit     uint64
	enforceLimits bool

	nodes    uint64
	selDepth int
	aborted  bool

	// hashes of the game so far followed by the current search path; the
	// last element is the position being searched
	path []uint64
	// repetitions are not looked for at or below this path index; a null
	// move moves it up for the duration of its subtree
	nullBarrier int
	// set while the move into the next node is a null move
	afterNull bool

	rootBest  board.Move
	rootScore int
}

func newSearcher(pos *board.Position, tt *TranspositionTable, orderer *MoveOrderer, stop *atomic.Bool, history []uint64) *searcher {
	s := &searcher{
		pos:     pos.Copy(),
		tt:      tt,
		orderer: orderer,
		stop:    stop,
		path:    make([]uint64, 0, len(history)+MaxPly+1),
	}
	s.path = append(s.path, history...)
	s.path = append(s.path, s.pos.Hash)
	return s
}

// searchRoot runs one iteration. Shallow iterations and those following a
// mate score use the full window; deeper ones start around prev and widen
// the failing side until the score lands inside. ok is false when the
// iteration was cut short, in which case its result must be discarded.
func (s *searcher) searchRoot(depth, prev int) (score int, ok bool) {
	s.aborted = false
	alpha, beta := -Infinity, Infinity
	delta := aspirationDelta
	if depth >= aspirationDepth && !IsMateScore(prev) {
		alpha, beta = max(prev-delta, -Infinity), min(prev+delta, Infinity)
	}
	for {
		s.rootBest = board.NoMove
		score = s.negamax(depth, 0, alpha, beta)
		if s.aborted {
			return 0, false
		}
		switch {
		case score <= alpha && alpha > -Infinity:
			alpha = max(score-delta, -Infinity)
		case score >= beta && beta < Infinity:
			beta = min(score+delta, Infinity)
		default:
			if s.rootBest == board.NoMove {
				return 0, false
			}
			return score, true
		}
		delta *= 2
		if delta > aspirationMaxDelta {
			alpha, beta = -Infinity, Infinity
		}
	}
}

// checkStop reports whether the search has to unwind. The node limit is
// tested on every node, the clock and the stop flag every checkInterval.
func (s *searcher) checkStop() bool {
	if s.aborted {
		return true
	}
	if s.enforceLimits && s.nodeLimit > 0 && s.nodes >= s.nodeLimit {
		s.aborted = true
		return true
	}
	if s.nodes&(checkInterval-1) != 0 {
		return false
	}
	if s.stop.Load() || (s.enforceLimits && !s.deadline.IsZero() && time.Now().After(s.deadline)) {
		s.aborted = true
	}
	return s.aborted
}

// isDraw detects the fifty-move rule, dead positions and any earlier
// occurrence of the current position since the last irreversible move.
func (s *searcher) isDraw() bool {
	if s.pos.HalfMoveClock >= 100 || s.pos.IsInsufficientMaterial() {
		return true
	}
	n := len(s.path)
	lo := max(s.nullBarrier, n-1-s.pos.HalfMoveClock)
	for i := n - 2; i >= lo; i-- {
		if s.path[i] == s.pos.Hash {
			return true
		}
	}
	return false
}

func (s *searcher) negamax(depth, ply, alpha, beta int) int {
	afterNull := s.afterNull
	s.afterNull = false
	root := ply == 0
	if !root {
		if s.isDraw() {
			return 0
		}
		// mate distance pruning
		alpha = max(alpha, -MateScore+ply)
		beta = min(beta, MateScore-ply-1)
		if alpha >= beta {
			return alpha
		}
	}

	inCheck := s.pos.InCheck()
	if inCheck {
		depth++
	}
	if depth <= 0 {
		return s.quiescence(ply, alpha, beta)
	}

	s.nodes++
	s.selDepth = max(s.selDepth, ply)
	if s.checkStop() {
		return 0
	}
	if ply >= MaxPly-1 {
		return Evaluate(s.pos)
	}

	hash := s.pos.Hash
	ttMove := board.NoMove
	if s.tt != nil {
		if e, hit := s.tt.Probe(hash); hit {
			ttMove = e.BestMove
			// the root always searches so that it owns a best move
			if !root && int(e.Depth) >= depth {
				score := ScoreFromTT(int(e.Score), ply)
				switch {
				case e.Bound == BoundExact,
					e.Bound == BoundLower && score >= beta,
					e.Bound == BoundUpper && score <= alpha:
					return score
				}
			}
		}
	}

	if !root && !afterNull && s.canNullMove(depth, beta, inCheck) {
		score := s.nullMoveSearch(depth, ply, beta)
		if s.aborted {
			return 0
		}
		if score >= beta {
			return score
		}
	}

	var ml board.MoveList
	s.pos.GenerateLegalMoves(&ml)
	if ml.Len() == 0 {
		if inCheck {
			return -MateScore + ply
		}
		return 0
	}

	var scores [board.MaxMoves]int
	s.orderer.ScoreMoves(&ml, scores[:], ply, ttMove)

	origAlpha := alpha
	best := -Infinity
	bestMove := board.NoMove
	for i := 0; i < ml.Len(); i++ {
		PickMove(&ml, scores[:], i)
		m := ml.At(i)

		undo := s.pos.MakeMove(m)
		s.path = append(s.path, s.pos.Hash)
		var score int
		if i == 0 {
			score = -s.negamax(depth-1, ply+1, -beta, -alpha)
		} else {
			// later moves only have to prove they are no better than alpha
			r := 0
			if depth >= lmrMinDepth && i >= lmrMinMoves && m.IsQuiet() &&
				!inCheck && !s.pos.InCheck() && scores[i] < KillerScore2 {
				r = lmrReduction(depth, i)
			}
			score = -s.negamax(depth-1-r, ply+1, -alpha-1, -alpha)
			if r > 0 && score > alpha {
				score = -s.negamax(depth-1, ply+1, -alpha-1, -alpha)
			}
			if score > alpha && score < beta {
				score = -s.negamax(depth-1, ply+1, -beta, -alpha)
			}
		}
		s.path = s.path[:len(s.path)-1]
		s.pos.UnmakeMove(m, undo)

		if s.aborted {
			return 0
		}
		if score <= best {
			continue
		}
		best, bestMove = score, m
		if score <= alpha {
			continue
		}
		alpha = score
		if score >= beta {
			if m.IsQuiet() {
				s.orderer.UpdateKillers(m, ply)
				s.orderer.UpdateHistory(m, depth, true)
				for j := range i {
					if q := ml.At(j); q.IsQuiet() {
						s.orderer.UpdateHistory(q, depth, false)
					}
				}
			}
			break
		}
	}

	if root {
		s.rootBest, s.rootScore = bestMove, best
	}
	if s.tt != nil {
		bound := BoundExact
		stored := bestMove
		switch {
		case best >= beta:
			bound = BoundLower
		case best <= origAlpha:
			bound = BoundUpper
			stored = board.NoMove
		}
		if root {
			stored = bestMove
		}
		s.tt.Store(hash, depth, ScoreToTT(best, ply), bound, stored)
	}
	return best
}

// canNullMove reports whether passing the turn may stand in for a search of
// the node. Passing is unsound in check and in pawn endings, where zugzwang
// is common, and pointless once beta is a mate score.
func (s *searcher) canNullMove(depth, beta int, inCheck bool) bool {
	if depth < nullMoveMinDepth || inCheck || IsMateScore(beta) {
		return false
	}
	if !s.pos.HasNonPawnMaterial(s.pos.SideToMove) {
		return false
	}
	return Evaluate(s.pos) >= beta
}

// nullMoveSearch lets the opponent move twice in a row with a reduced,
// null-window search. A result at or above beta means the node fails high.
func (s *searcher) nullMoveSearch(depth, ply, beta int) int {
	r := 2
	if depth >= 7 {
		r = 3
	}
	undo := s.pos.MakeNullMove()
	s.path = append(s.path, s.pos.Hash)
	barrier := s.nullBarrier
	s.nullBarrier = len(s.path) - 1
	s.afterNull = true
	score := -s.negamax(depth-1-r, ply+1, -beta, -beta+1)
	s.afterNull = false
	s.nullBarrier = barrier
	s.path = s.path[:len(s.path)-1]
	s.pos.UnmakeNullMove(undo)
	// a mate found after passing is not a mate the position can force
	if score >= MateThreshold {
		score = beta
	}
	return score
}

// quiescence resolves captures and promotions until the position is quiet.
// In check every evasion is searched, so mates at the horizon are seen.
// Otherwise captures that lose material by exchange are skipped.
func (s *searcher) quiescence(ply, alpha, beta int) int {
	s.nodes++
	s.selDepth = max(s.selDepth, ply)
	if s.checkStop() {
		return 0
	}
	if ply >= MaxPly-1 {
		return Evaluate(s.pos)
	}

	var ml board.MoveList
	best := -Infinity
	inCheck := s.pos.InCheck()
	if inCheck {
		s.pos.GenerateLegalMoves(&ml)
		if ml.Len() == 0 {
			return -MateScore + ply
		}
	} else {
		standPat := Evaluate(s.pos)
		if standPat >= beta {
			return standPat
		}
		alpha = max(alpha, standPat)
		best = standPat
		s.pos.GenerateCaptures(&ml)
	}

	var scores [board.MaxMoves]int
	s.orderer.ScoreMoves(&ml, scores[:], MaxPly, board.NoMove)
	for i := 0; i < ml.Len(); i++ {
		PickMove(&ml, scores[:], i)
		m := ml.At(i)
		if !inCheck && !m.IsPromotion() && SEE(s.pos, m) < 0 {
			continue
		}

		undo := s.pos.MakeMove(m)
		s.path = append(s.path, s.pos.Hash)
		score := -s.quiescence(ply+1, -beta, -alpha)
		s.path = s.path[:len(s.path)-1]
		s.pos.UnmakeMove(m, undo)

		if s.aborted {
			return 0
		}
		if score > best {
			best = score
			if score > alpha {
				alpha = score
				if score >= beta {
					break
				}
			}
		}
	}
	return best
}

// principalVariation starts with the root best move and follows the stored
// best moves through the table. Every move is checked for legality and the
// walk ends on a missing entry, a repeated position or maxLen moves.
func (s *searcher) principalVariation(maxLen int) []board.Move {
	if s.rootBest == board.NoMove {
		return nil
	}
	pv := []board.Move{s.rootBest}
	if s.tt == nil {
		return pv
	}

	pos := s.pos.Copy()
	seen := map[uint64]bool{pos.Hash: true}
	pos.MakeMove(s.rootBest)
	for len(pv) < maxLen {
		if seen[pos.Hash] {
			break
		}
		seen[pos.Hash] = true
		e, hit := s.tt.Probe(pos.Hash)
		if !hit || e.BestMove == board.NoMove {
			break
		}
		var ml board.MoveList
		pos.GenerateLegalMoves(&ml)
		if !ml.Contains(e.BestMove) {
			break
		}
		pv = append(pv, e.BestMove)
		pos.MakeMove(e.BestMove)
	}
	return pv
}

// IsMateScore reports whether score encodes a forced mate.
func IsMateScore(score int) bool {
	return score >= MateThreshold || score <= -MateThreshold
}

// MateIn converts a mate score into signed full moves as UCI reports them:
// positive when the side to move mates, negative when it gets mated, zero
// for ordinary scores.
func MateIn(score int) int {
	switch {
	case score >= MateThreshold:
		return (MateScore - score + 1) / 2
	case score <= -MateThreshold:
		return -(MateScore + score) / 2
	}
	return 0
}

// MatePlies is like MateIn but counts half-moves.
func MatePlies(score int) int {
	switch {
	case score >= MateThreshold:
		return MateScore - score
	case score <= -MateThreshold:
		return -(MateScore + score)
	}
	return 0
}
