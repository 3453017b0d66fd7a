package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hailam/chesscore/internal/board"
)

const (
	kiwipeteFEN  = "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1"
	mateIn2FEN   = "r5k1/5ppp/8/8/8/8/4RPPP/4R1K1 w - - 0 1"
	foolsMateFEN = "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3"
	stalemateFEN = "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1"
	freeQueenFEN = "4k3/8/8/3q4/8/8/8/3RK3 w - - 0 1"
)

func mustFEN(t *testing.T, fen string) *board.Position {
	t.Helper()
	pos, err := board.ParseFEN(fen)
	if err != nil {
		t.Fatalf("ParseFEN(%q): %v", fen, err)
	}
	return pos
}

func isLegal(pos *board.Position, m board.Move) bool {
	var ml board.MoveList
	pos.GenerateLegalMoves(&ml)
	return ml.Contains(m)
}

func TestSearchBasic(t *testing.T) {
	pos := board.NewPosition()
	before := *pos
	eng := New(WithHashMB(16))

	res, err := eng.Search(context.Background(), pos, Limits{Depth: 4}, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.BestMove == board.NoMove || !isLegal(pos, res.BestMove) {
		t.Fatalf("best move %s is not legal in the start position", res.BestMove)
	}
	if res.Depth != 4 {
		t.Errorf("depth = %d, want 4", res.Depth)
	}
	if len(res.PV) == 0 || res.PV[0] != res.BestMove {
		t.Errorf("PV %v does not start with the best move %s", res.PV, res.BestMove)
	}
	if *pos != before {
		t.Error("Search modified the caller's position")
	}
	if got := eng.State(); got != Completed {
		t.Errorf("state = %s, want completed", got)
	}
}

func TestPVIsPlayable(t *testing.T) {
	pos := mustFEN(t, kiwipeteFEN)
	eng := New(WithHashMB(16))
	res, err := eng.Search(context.Background(), pos, Limits{Depth: 4}, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.PV) > res.Depth {
		t.Errorf("PV has %d moves at depth %d", len(res.PV), res.Depth)
	}
	q := pos.Copy()
	for i, m := range res.PV {
		if !isLegal(q, m) {
			t.Fatalf("PV move %d (%s) is illegal", i, m)
		}
		q.MakeMove(m)
	}
	if len(res.PV) > 1 && res.Ponder != res.PV[1] {
		t.Errorf("ponder = %s, want %s", res.Ponder, res.PV[1])
	}
}

func TestSearchFindsMateInTwo(t *testing.T) {
	pos := mustFEN(t, mateIn2FEN)
	eng := New(WithHashMB(16))
	res, err := eng.Search(context.Background(), pos, Limits{Depth: 4}, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got := res.BestMove.String(); got != "e2e8" {
		t.Errorf("best move = %s, want e2e8", got)
	}
	if res.Mate != 2 {
		t.Errorf("mate = %d, want 2 (score %d)", res.Mate, res.Score)
	}
	if res.Score != MateScore-3 {
		t.Errorf("score = %d, want %d", res.Score, MateScore-3)
	}
}

func TestSearchTakesFreeQueen(t *testing.T) {
	pos := mustFEN(t, freeQueenFEN)
	eng := New(WithHashMB(16))
	res, err := eng.Search(context.Background(), pos, Limits{Depth: 3}, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got := res.BestMove.String(); got != "d1d5" {
		t.Errorf("best move = %s, want d1d5", got)
	}
	if res.Score < KnightValue {
		t.Errorf("score = %d after winning the queen", res.Score)
	}
}

func TestSearchNoLegalMoves(t *testing.T) {
	tests := []struct {
		name   string
		fen    string
		status board.GameStatus
	}{
		{"checkmate", foolsMateFEN, board.Checkmate},
		{"stalemate", stalemateFEN, board.Stalemate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := New(WithHashMB(1))
			called := false
			res, err := eng.Search(context.Background(), mustFEN(t, tt.fen), Limits{Depth: 3}, func(Info) { called = true })
			if !errors.Is(err, ErrNoLegalMoves) {
				t.Fatalf("err = %v, want ErrNoLegalMoves", err)
			}
			if res.Status != tt.status {
				t.Errorf("status = %s, want %s", res.Status, tt.status)
			}
			if res.BestMove != board.NoMove {
				t.Errorf("best move = %s, want none", res.BestMove)
			}
			if called {
				t.Error("onInfo called for a finished game")
			}
		})
	}
}

func TestSearchDeterministic(t *testing.T) {
	pos := mustFEN(t, kiwipeteFEN)
	a, err := New(WithHashMB(8)).Search(context.Background(), pos, Limits{Depth: 4}, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	b, err := New(WithHashMB(8)).Search(context.Background(), pos, Limits{Depth: 4}, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if a.BestMove != b.BestMove || a.Score != b.Score || a.Nodes != b.Nodes {
		t.Errorf("runs differ: %s/%d/%d vs %s/%d/%d",
			a.BestMove, a.Score, a.Nodes, b.BestMove, b.Score, b.Nodes)
	}
}

func TestTranspositionTableSavesNodes(t *testing.T) {
	fens := []string{
		queensGambitFEN,
		kiwipeteFEN,
		"r2q1rk1/ppp2ppp/2np1n2/2b1p1B1/2B1P1b1/2NP1N2/PPP2PPP/R2Q1RK1 w - - 0 8",
		"r4rk1/1pp1qppp/p1np1n2/2b1p1B1/2B1P1b1/P1NP1N2/1PP1QPPP/R4RK1 w - - 0 10",
	}
	// Shallow searches may go either way on a single position: the table
	// changes move order. From depth 5 the savings have to show.
	var totalWith, totalWithout uint64
	for depth := 2; depth <= 5; depth++ {
		var with, without uint64
		for _, fen := range fens {
			pos := mustFEN(t, fen)
			a, err := New(WithHashMB(16)).Search(context.Background(), pos, Limits{Depth: depth}, nil)
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			b, err := New(WithoutTT()).Search(context.Background(), pos, Limits{Depth: depth}, nil)
			if err != nil {
				t.Fatalf("Search without TT: %v", err)
			}
			t.Logf("depth %d %s: %d nodes with TT, %d without", depth, fen, a.Nodes, b.Nodes)
			with += a.Nodes
			without += b.Nodes
		}
		if depth == 5 && with > without {
			t.Errorf("depth %d: TT searches visited %d nodes, more than %d without", depth, with, without)
		}
		totalWith += with
		totalWithout += without
	}
	if totalWith > totalWithout {
		t.Errorf("TT searches visited %d nodes in total, more than %d without", totalWith, totalWithout)
	}
}

func TestInfoOrdering(t *testing.T) {
	eng := New(WithHashMB(8))
	var depths []int
	res, err := eng.Search(context.Background(), board.NewPosition(), Limits{Depth: 5}, func(info Info) {
		depths = append(depths, info.Depth)
		if len(info.PV) == 0 {
			t.Errorf("depth %d reported an empty PV", info.Depth)
		}
		if info.HashFull < 0 || info.HashFull > 1000 {
			t.Errorf("hashfull %d out of range", info.HashFull)
		}
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(depths) != res.Depth {
		t.Fatalf("got %d info events for depth %d", len(depths), res.Depth)
	}
	for i, d := range depths {
		if d != i+1 {
			t.Fatalf("info depths %v are not 1..%d", depths, res.Depth)
		}
	}
}

func TestStopKeepsLastCompletedIteration(t *testing.T) {
	eng := New(WithHashMB(8))
	res, err := eng.Search(context.Background(), board.NewPosition(), Limits{Infinite: true}, func(info Info) {
		if info.Depth == 3 {
			eng.Stop()
		}
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Depth != 3 {
		t.Errorf("depth = %d, want 3", res.Depth)
	}
	if res.BestMove == board.NoMove {
		t.Error("no best move after stop")
	}
	if got := eng.State(); got != Stopped {
		t.Errorf("state = %s, want stopped", got)
	}
}

func TestInfiniteIgnoresDepth(t *testing.T) {
	eng := New(WithHashMB(8))
	res, err := eng.Search(context.Background(), board.NewPosition(), Limits{Infinite: true, Depth: 2}, func(info Info) {
		if info.Depth == 4 {
			eng.Stop()
		}
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Depth != 4 {
		t.Errorf("depth = %d, want 4", res.Depth)
	}
}

func TestStopMidIterationReturnsLastInfo(t *testing.T) {
	eng := New(WithHashMB(8))
	var started atomic.Bool
	go func() {
		deadline := time.Now().Add(5 * time.Second)
		for !started.Load() && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
		time.Sleep(50 * time.Millisecond)
		eng.Stop()
	}()

	var infos []Info
	res, err := eng.Search(context.Background(), mustFEN(t, kiwipeteFEN), Limits{Infinite: true}, func(info Info) {
		infos = append(infos, info)
		started.Store(true)
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(infos) == 0 {
		t.Fatal("no iteration completed")
	}
	last := infos[len(infos)-1]
	if res.Depth != last.Depth || res.Nodes != last.Nodes || res.Score != last.Score {
		t.Errorf("result depth %d nodes %d score %d, last info depth %d nodes %d score %d",
			res.Depth, res.Nodes, res.Score, last.Depth, last.Nodes, last.Score)
	}
	if len(last.PV) == 0 || res.BestMove != last.PV[0] {
		t.Errorf("best move %s, last info PV %v", res.BestMove, last.PV)
	}
}

func TestContextCancel(t *testing.T) {
	eng := New(WithHashMB(8))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	res, err := eng.Search(ctx, board.NewPosition(), Limits{Infinite: true}, func(info Info) {
		if info.Depth == 2 {
			cancel()
		}
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Depth != 2 {
		t.Errorf("depth = %d, want 2", res.Depth)
	}
}

func TestStoppedBeforeFirstIteration(t *testing.T) {
	eng := New(WithHashMB(1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := eng.Search(ctx, board.NewPosition(), Limits{Depth: 5}, nil)
	if !errors.Is(err, ErrSearchStopped) {
		t.Fatalf("err = %v, want ErrSearchStopped", err)
	}
	if res.BestMove != board.NoMove {
		t.Errorf("best move = %s, want none", res.BestMove)
	}
	if got := eng.State(); got != Stopped {
		t.Errorf("state = %s, want stopped", got)
	}
}

func TestStopFromAnotherGoroutine(t *testing.T) {
	eng := New(WithHashMB(8))
	pos := mustFEN(t, kiwipeteFEN)
	var started atomic.Bool
	done := make(chan Result, 1)
	go func() {
		res, err := eng.Search(context.Background(), pos, Limits{Infinite: true}, func(Info) {
			started.Store(true)
		})
		if err != nil {
			t.Errorf("Search: %v", err)
		}
		done <- res
	}()

	deadline := time.Now().Add(5 * time.Second)
	for !started.Load() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	eng.Stop()
	select {
	case res := <-done:
		if res.BestMove == board.NoMove {
			t.Error("no best move after stop")
		}
	case <-time.After(10 * time.Second):
		t.Fatal("search did not stop")
	}
}

func TestNodeLimit(t *testing.T) {
	eng := New(WithHashMB(8))
	res, err := eng.Search(context.Background(), board.NewPosition(), Limits{Nodes: 5000}, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Depth < 1 {
		t.Errorf("depth = %d", res.Depth)
	}
	if res.Nodes > 5000 {
		t.Errorf("completed iteration used %d nodes, limit 5000", res.Nodes)
	}
}

func TestMoveTime(t *testing.T) {
	eng := New(WithHashMB(8))
	start := time.Now()
	res, err := eng.Search(context.Background(), mustFEN(t, kiwipeteFEN), Limits{MoveTime: 100 * time.Millisecond}, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("search took %v with a 100ms budget", elapsed)
	}
	if res.BestMove == board.NoMove {
		t.Error("no best move")
	}
}

func TestRepetitionIsDraw(t *testing.T) {
	pos := mustFEN(t, "4k3/8/8/8/8/8/8/R3K3 w - - 6 20")
	var stop atomic.Bool
	s := newSearcher(pos, nil, &MoveOrderer{}, &stop, []uint64{pos.Hash, 1, 2})
	if !s.isDraw() {
		t.Error("position seen earlier in the game is not a draw")
	}
	s = newSearcher(pos, nil, &MoveOrderer{}, &stop, []uint64{1, 2, 3})
	if s.isDraw() {
		t.Error("fresh position reported as a draw")
	}

	pos = mustFEN(t, "4k3/8/8/8/8/8/8/R3K3 w - - 100 80")
	s = newSearcher(pos, nil, &MoveOrderer{}, &stop, nil)
	if !s.isDraw() {
		t.Error("fifty-move rule not detected")
	}
}

func TestMateIn(t *testing.T) {
	tests := []struct {
		score, want int
	}{
		{MateScore - 1, 1},
		{MateScore - 3, 2},
		{MateScore - 4, 2},
		{-MateScore + 2, -1},
		{-MateScore + 4, -2},
		{150, 0},
		{-150, 0},
	}
	for _, tt := range tests {
		if got := MateIn(tt.score); got != tt.want {
			t.Errorf("MateIn(%d) = %d, want %d", tt.score, got, tt.want)
		}
	}
	if got := MatePlies(MateScore - 3); got != 3 {
		t.Errorf("MatePlies(MateScore-3) = %d, want 3", got)
	}
	if got := MatePlies(-MateScore + 2); got != -2 {
		t.Errorf("MatePlies(-MateScore+2) = %d, want -2", got)
	}
}

func TestClockMoveTime(t *testing.T) {
	if got := (Clock{}).MoveTime(board.White, 10); got != 0 {
		t.Errorf("empty clock budget = %v, want 0", got)
	}
	c := Clock{Time: [2]time.Duration{60 * time.Second, 30 * time.Second}}
	white := c.MoveTime(board.White, 20)
	black := c.MoveTime(board.Black, 20)
	if white <= 0 || white > 48*time.Second {
		t.Errorf("white budget %v out of range", white)
	}
	if black >= white {
		t.Errorf("black with less time gets %v, white %v", black, white)
	}
	c.MovesToGo = 1
	if got := c.MoveTime(board.White, 20); got > 57*time.Second {
		t.Errorf("last move before control budget %v exceeds the safety margin", got)
	}
}

func TestLimitsString(t *testing.T) {
	tests := []struct {
		l    Limits
		want string
	}{
		{Limits{}, "unlimited"},
		{Limits{Depth: 6}, "depth 6"},
		{Limits{Nodes: 100}, "nodes 100"},
		{Limits{MoveTime: time.Second}, "movetime 1s"},
		{Limits{Infinite: true}, "infinite"},
	}
	for _, tt := range tests {
		if got := tt.l.String(); got != tt.want {
			t.Errorf("%+v.String() = %q, want %q", tt.l, got, tt.want)
		}
	}
}
