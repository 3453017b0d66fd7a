package engine

import (
	"time"

	"github.com/hailam/chesscore/internal/board"
)

// Clock is a game clock as UCI reports it with go wtime/btime.
type Clock struct {
	Time      [2]time.Duration // remaining time, indexed by color
	Inc       [2]time.Duration // increment per move
	MovesToGo int              // moves until the next time control, 0 = sudden death
}

const (
	minMoveTime = 10 * time.Millisecond
	maxMoveTime = 50 * time.Millisecond // floor for the hard cap
)

// MoveTime turns the clock into a fixed budget for the side us, which is
// about to play its move at game ply. The result is suitable for
// Limits.MoveTime. A zero clock yields zero, meaning no time limit.
func (c Clock) MoveTime(us board.Color, ply int) time.Duration {
	timeLeft := c.Time[us]
	if timeLeft <= 0 {
		return 0
	}
	inc := c.Inc[us]

	mtg := c.MovesToGo
	if mtg == 0 {
		// sudden death: expect fewer moves as the game goes on
		mtg = min(max(50-ply/4, 10), 50)
	}

	budget := timeLeft/time.Duration(mtg) + inc*9/10
	if ply < 8 {
		budget = budget * 85 / 100
	}

	// never plan to spend more than 80% of what is left
	hardCap := max(timeLeft*8/10, maxMoveTime)
	budget = min(budget, hardCap, timeLeft*95/100)
	return max(budget, minMoveTime)
}
