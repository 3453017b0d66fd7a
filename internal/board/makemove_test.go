package board

import (
	"errors"
	"testing"

	"golang.org/x/exp/rand"
)

// randomWalk plays up to plies random legal moves and returns the moves
// with their undo records.
func randomWalk(t *testing.T, pos *Position, rng *rand.Rand, plies int) ([]Move, []UndoInfo) {
	t.Helper()
	var moves []Move
	var undos []UndoInfo
	for i := 0; i < plies; i++ {
		var ml MoveList
		pos.GenerateLegalMoves(&ml)
		if ml.Len() == 0 {
			break
		}
		m := ml.At(rng.Intn(ml.Len()))
		moves = append(moves, m)
		undos = append(undos, pos.MakeMove(m))
		if h := pos.ComputeHash(); h != pos.Hash {
			t.Fatalf("after %s: incremental hash %016x, recomputed %016x", m, pos.Hash, h)
		}
	}
	return moves, undos
}

func TestMakeUnmakeRandomGames(t *testing.T) {
	DebugChecks = true
	defer func() { DebugChecks = false }()

	rng := rand.New(rand.NewSource(7))
	starts := []string{StartFEN, kiwipeteFEN, position3FEN, position4FEN, position5FEN}
	for game := 0; game < 40; game++ {
		pos, err := ParseFEN(starts[game%len(starts)])
		if err != nil {
			t.Fatal(err)
		}
		start := *pos
		moves, undos := randomWalk(t, pos, rng, 120)
		for i := len(moves) - 1; i >= 0; i-- {
			pos.UnmakeMove(moves[i], undos[i])
		}
		if *pos != start {
			t.Fatalf("game %d: unwinding %d moves did not restore the start\n got %s\nwant %s",
				game, len(moves), pos.FEN(), start.FEN())
		}
	}
}

func TestEachMoveIsReversible(t *testing.T) {
	for _, fen := range []string{kiwipeteFEN, position4FEN, position5FEN, epPinFEN} {
		pos, _ := ParseFEN(fen)
		before := *pos
		var ml MoveList
		pos.GeneratePseudoLegalMoves(&ml)
		for _, m := range ml.Slice() {
			undo := pos.MakeMove(m)
			pos.UnmakeMove(m, undo)
			if *pos != before {
				t.Fatalf("%s: %s is not reversible", fen, m)
			}
		}
	}
}

func TestTranspositionsHashEqual(t *testing.T) {
	a := NewPosition()
	b := NewPosition()
	for _, s := range []string{"g1f3", "g8f6", "b1c3", "b8c6"} {
		if _, err := a.ApplyUCI(s); err != nil {
			t.Fatal(err)
		}
	}
	for _, s := range []string{"b1c3", "b8c6", "g1f3", "g8f6"} {
		if _, err := b.ApplyUCI(s); err != nil {
			t.Fatal(err)
		}
	}
	if a.Hash != b.Hash {
		t.Errorf("transposed positions hash differently: %016x vs %016x", a.Hash, b.Hash)
	}

	c := NewPosition()
	c.ApplyUCI("e2e4")
	d, _ := ParseFEN("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1")
	if c.Hash != d.Hash || c.FEN() != d.FEN() {
		t.Errorf("e2e4 gives %s (%016x), want %s (%016x)", c.FEN(), c.Hash, d.FEN(), d.Hash)
	}
}

func TestSpecialMoves(t *testing.T) {
	tests := []struct {
		name string
		fen  string
		move string
		want string
	}{
		{"kingside castle", "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1", "e1g1", "r3k2r/8/8/8/8/8/8/R4RK1 b kq - 1 1"},
		{"queenside castle", "r3k2r/8/8/8/8/8/8/R3K2R b KQkq - 3 9", "e8c8", "2kr3r/8/8/8/8/8/8/R3K2R w KQ - 4 10"},
		{"rook capture revokes right", "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1", "a1a8", "R3k2r/8/8/8/8/8/8/4K2R b Kk - 0 1"},
		{"en passant", "4k3/8/8/3Pp3/8/8/8/4K3 w - e6 0 5", "d5e6", "4k3/8/4P3/8/8/8/8/4K3 b - - 0 5"},
		{"promotion capture", "1r2k3/P7/8/8/8/8/8/4K3 w - - 0 1", "a7b8n", "1N2k3/8/8/8/8/8/8/4K3 b - - 0 1"},
		{"double push", "4k3/8/8/8/8/8/4P3/4K3 w - - 7 1", "e2e4", "4k3/8/8/8/4P3/8/8/4K3 b - e3 0 1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pos, err := ParseFEN(tc.fen)
			if err != nil {
				t.Fatal(err)
			}
			before := *pos
			m, err := ParseMove(tc.move, pos)
			if err != nil {
				t.Fatalf("ParseMove(%s): %v", tc.move, err)
			}
			undo := pos.MakeMove(m)
			if got := pos.FEN(); got != tc.want {
				t.Errorf("after %s:\n got %s\nwant %s", tc.move, got, tc.want)
			}
			if err := pos.VerifyConsistency(); err != nil {
				t.Error(err)
			}
			pos.UnmakeMove(m, undo)
			if *pos != before {
				t.Errorf("unmake %s did not restore %s", tc.move, tc.fen)
			}
		})
	}
}

func TestIllegalMovesRejected(t *testing.T) {
	pos, _ := ParseFEN(epPinFEN)
	before := *pos

	// Pseudo-legal but exposes the king.
	ep := NewMove(E4, D3, Pawn, NoPieceType, Pawn, FlagEnPassant)
	if _, err := pos.MakeMoveChecked(ep); !errors.Is(err, ErrIllegalMove) {
		t.Errorf("MakeMoveChecked(%s) error = %v, want ErrIllegalMove", ep, err)
	}
	for _, s := range []string{"e4d3", "a4a1", "h4h5", "e2e4"} {
		if _, err := pos.ApplyUCI(s); !errors.Is(err, ErrIllegalMove) {
			t.Errorf("ApplyUCI(%s) error = %v, want ErrIllegalMove", s, err)
		}
	}
	for _, s := range []string{"", "e4", "e4e9", "e7e8k", "zz11"} {
		if _, err := pos.ApplyUCI(s); !errors.Is(err, ErrBadMoveText) {
			t.Errorf("ApplyUCI(%q) error = %v, want ErrBadMoveText", s, err)
		}
	}
	if *pos != before {
		t.Fatal("rejected moves modified the position")
	}

	if _, err := pos.ApplyUCI("e4e3"); err != nil {
		t.Fatalf("legal push rejected: %v", err)
	}
}

func TestNullMove(t *testing.T) {
	pos, _ := ParseFEN("rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq e6 0 2")
	before := *pos
	u := pos.MakeNullMove()
	if pos.SideToMove != Black || pos.EnPassant != NoSquare {
		t.Fatalf("null move left side %s, en passant %s", pos.SideToMove, pos.EnPassant)
	}
	if pos.Hash != pos.ComputeHash() {
		t.Error("null move hash out of sync")
	}
	pos.UnmakeNullMove(u)
	if *pos != before {
		t.Error("UnmakeNullMove did not restore the position")
	}
}

func TestMoveListOverflowPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("adding past capacity did not panic")
		}
	}()
	var ml MoveList
	for i := 0; i <= MaxMoves; i++ {
		ml.Add(NewMove(A1, B1, Rook, NoPieceType, NoPieceType, 0))
	}
}

func TestMirrorColors(t *testing.T) {
	pos, _ := ParseFEN(kiwipeteFEN)
	m := pos.MirrorColors()
	want := "r3k2r/pppbbppp/2n2q1P/1P2p3/3pn3/BN2PNP1/P1PPQPB1/R3K2R w KQkq - 0 1"
	if got := m.FEN(); got != want {
		t.Errorf("MirrorColors:\n got %s\nwant %s", got, want)
	}
	if err := m.VerifyConsistency(); err != nil {
		t.Error(err)
	}
	if back := m.MirrorColors(); *back != *pos {
		t.Error("mirroring twice did not give the original")
	}
}
