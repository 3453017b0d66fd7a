package board

import "fmt"

// DebugChecks makes MakeMove and UnmakeMove verify the full position after
// every call and panic on the first inconsistency. Tests turn it on.
var DebugChecks = false

// MakeMove applies m, which must come from this position's move generator,
// and returns what UnmakeMove needs to revert it. Legality is not checked;
// use MakeMoveChecked for untrusted input.
func (p *Position) MakeMove(m Move) UndoInfo {
	us := p.SideToMove
	them := us.Other()
	from, to, pt := m.From(), m.To(), m.Piece()

	undo := UndoInfo{
		Captured:       NoPiece,
		CapturedSquare: NoSquare,
		CastlingRights: p.CastlingRights,
		EnPassant:      p.EnPassant,
		HalfMoveClock:  p.HalfMoveClock,
		Hash:           p.Hash,
		Checkers:       p.Checkers,
	}

	if p.EnPassant != NoSquare {
		p.Hash ^= zobristEnPassant[p.EnPassant.File()]
		p.EnPassant = NoSquare
	}

	if captured := m.Captured(); captured != NoPieceType {
		capSq := to
		if m.IsEnPassant() {
			capSq = enPassantVictim(to, us)
		}
		p.toggle(them, captured, capSq)
		undo.Captured = MakePiece(them, captured)
		undo.CapturedSquare = capSq
	}

	if promo := m.Promotion(); promo != NoPieceType {
		p.toggle(us, Pawn, from)
		p.toggle(us, promo, to)
	} else {
		p.shift(us, pt, from, to)
	}

	if m.IsCastle() {
		c := castles[us][0]
		if m.Has(FlagCastleQueen) {
			c = castles[us][1]
		}
		p.shift(us, Rook, c.rookFrom, c.rookTo)
	}

	if cr := p.CastlingRights & castleMask[from] & castleMask[to]; cr != p.CastlingRights {
		p.Hash ^= castlingKey(p.CastlingRights) ^ castlingKey(cr)
		p.CastlingRights = cr
	}

	if m.IsDoublePush() {
		p.EnPassant = (from + to) / 2
		p.Hash ^= zobristEnPassant[p.EnPassant.File()]
	}

	if pt == Pawn || m.IsCapture() {
		p.HalfMoveClock = 0
	} else {
		p.HalfMoveClock++
	}
	if us == Black {
		p.FullMoveNumber++
	}

	p.SideToMove = them
	p.Hash ^= zobristSideToMove
	p.updateCheckers()

	if DebugChecks {
		p.mustBeConsistent("MakeMove", m)
	}
	return undo
}

// UnmakeMove reverts m given the UndoInfo MakeMove returned for it. Calls
// must nest like a stack.
func (p *Position) UnmakeMove(m Move, undo UndoInfo) {
	them := p.SideToMove
	us := them.Other()
	from, to := m.From(), m.To()

	if m.IsCastle() {
		c := castles[us][0]
		if m.Has(FlagCastleQueen) {
			c = castles[us][1]
		}
		p.shift(us, Rook, c.rookTo, c.rookFrom)
	}

	if promo := m.Promotion(); promo != NoPieceType {
		p.toggle(us, promo, to)
		p.toggle(us, Pawn, from)
	} else {
		p.shift(us, m.Piece(), to, from)
	}

	if undo.Captured != NoPiece {
		p.toggle(them, undo.Captured.Type(), undo.CapturedSquare)
	}

	if us == Black {
		p.FullMoveNumber--
	}
	p.SideToMove = us
	p.CastlingRights = undo.CastlingRights
	p.EnPassant = undo.EnPassant
	p.HalfMoveClock = undo.HalfMoveClock
	p.Hash = undo.Hash
	p.Checkers = undo.Checkers

	if DebugChecks {
		p.mustBeConsistent("UnmakeMove", m)
	}
}

// enPassantVictim is the square of the pawn taken by an en passant capture
// landing on to.
func enPassantVictim(to Square, us Color) Square {
	if us == White {
		return to - 8
	}
	return to + 8
}

// MakeMoveChecked applies m only if it is legal here. Otherwise it returns
// ErrIllegalMove and leaves the position untouched.
func (p *Position) MakeMoveChecked(m Move) (UndoInfo, error) {
	var ml MoveList
	p.GenerateLegalMoves(&ml)
	if !ml.Contains(m) {
		return UndoInfo{}, fmt.Errorf("%w: %s", ErrIllegalMove, m)
	}
	return p.MakeMove(m), nil
}

// ApplyUCI parses a coordinate move and plays it if legal.
func (p *Position) ApplyUCI(s string) (Move, error) {
	m, err := ParseMove(s, p)
	if err != nil {
		return NoMove, err
	}
	p.MakeMove(m)
	return m, nil
}

func (p *Position) mustBeConsistent(op string, m Move) {
	if err := p.VerifyConsistency(); err != nil {
		panic(fmt.Sprintf("board: %s %s left position inconsistent: %v\n%s", op, m, err, p))
	}
}
