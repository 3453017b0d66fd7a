package board

import (
	"errors"
	"testing"
)

func TestFENRoundTrip(t *testing.T) {
	fens := []string{
		StartFEN,
		kiwipeteFEN,
		position3FEN,
		position4FEN,
		position5FEN,
		epPinFEN,
		"rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq e6 0 2",
		"8/8/8/8/8/8/8/K6k b - - 99 150",
	}
	for _, fen := range fens {
		pos, err := ParseFEN(fen)
		if err != nil {
			t.Fatalf("ParseFEN(%q): %v", fen, err)
		}
		if got := pos.FEN(); got != fen {
			t.Errorf("FEN round trip:\n got %s\nwant %s", got, fen)
		}
		again, err := ParseFEN(pos.FEN())
		if err != nil {
			t.Fatalf("reparse: %v", err)
		}
		if *again != *pos {
			t.Errorf("reparsed position differs for %q", fen)
		}
		if err := pos.VerifyConsistency(); err != nil {
			t.Errorf("%q: %v", fen, err)
		}
	}
}

func TestFENOptionalClocks(t *testing.T) {
	pos, err := ParseFEN("4k3/8/8/8/8/8/8/4K3 w - -")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	if pos.HalfMoveClock != 0 || pos.FullMoveNumber != 1 {
		t.Errorf("clocks = %d %d, want 0 1", pos.HalfMoveClock, pos.FullMoveNumber)
	}
}

func TestFENErrors(t *testing.T) {
	tests := []struct {
		name  string
		fen   string
		field string
	}{
		{"too few fields", "8/8/8/8/8/8/8/8 w", FieldPosition},
		{"seven ranks", "8/8/8/8/8/8/K6k w - - 0 1", FieldPlacement},
		{"bad letter", "8/8/8/8/8/8/8/K6x w - - 0 1", FieldPlacement},
		{"rank too long", "8/8/8/8/8/8/8/K7k w - - 0 1", FieldPlacement},
		{"rank too short", "8/8/8/8/8/8/8/K5k w - - 0 1", FieldPlacement},
		{"no black king", "8/8/8/8/8/8/8/K7 w - - 0 1", FieldPlacement},
		{"two white kings", "8/8/8/8/8/8/8/KK5k w - - 0 1", FieldPlacement},
		{"pawn on rank 8", "P7/8/8/8/8/8/8/K6k w - - 0 1", FieldPlacement},
		{"side", "8/8/8/8/8/8/8/K6k x - - 0 1", FieldSide},
		{"castling letter", "8/8/8/8/8/8/8/K6k w X - 0 1", FieldCastling},
		{"castling without rook", "4k3/8/8/8/8/8/8/4K3 w K - 0 1", FieldCastling},
		{"en passant square", "8/8/8/8/8/8/8/K6k w - z9 0 1", FieldEnPassant},
		{"en passant rank", "8/8/8/8/8/8/8/K6k w - e3 0 1", FieldEnPassant},
		{"en passant without pawn", "8/8/8/8/8/8/8/K6k w - e6 0 1", FieldEnPassant},
		{"halfmove", "8/8/8/8/8/8/8/K6k w - - x 1", FieldHalfmove},
		{"fullmove", "8/8/8/8/8/8/8/K6k w - - 0 0", FieldFullmove},
		{"opponent in check", "k7/8/8/8/8/8/8/R6K w - - 0 1", FieldPosition},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pos, err := ParseFEN(tc.fen)
			if err == nil {
				t.Fatalf("ParseFEN(%q) succeeded:\n%s", tc.fen, pos)
			}
			if pos != nil {
				t.Error("ParseFEN returned a position alongside an error")
			}
			if !errors.Is(err, ErrInvalidFEN) {
				t.Errorf("error %v does not wrap ErrInvalidFEN", err)
			}
			var fe *FENError
			if !errors.As(err, &fe) {
				t.Fatalf("error %T is not a *FENError", err)
			}
			if fe.Field != tc.field {
				t.Errorf("field = %q, want %q (%v)", fe.Field, tc.field, err)
			}
		})
	}
}

func FuzzFENRoundTrip(f *testing.F) {
	f.Add(StartFEN)
	f.Add(kiwipeteFEN)
	f.Add(epPinFEN)
	f.Fuzz(func(t *testing.T, fen string) {
		pos, err := ParseFEN(fen)
		if err != nil {
			return
		}
		again, err := ParseFEN(pos.FEN())
		if err != nil {
			t.Fatalf("serialized FEN %q does not parse: %v", pos.FEN(), err)
		}
		if *again != *pos {
			t.Fatalf("round trip changed the position for %q", fen)
		}
	})
}
