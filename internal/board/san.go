package board

import (
	"fmt"
	"strings"
)

// SAN renders legal move m in Standard Algebraic Notation, including the
// check or mate suffix.
func (p *Position) SAN(m Move) string {
	if m == NoMove {
		return "--"
	}
	var sb strings.Builder
	switch {
	case m.Has(FlagCastleKing):
		sb.WriteString("O-O")
	case m.Has(FlagCastleQueen):
		sb.WriteString("O-O-O")
	default:
		pt := m.Piece()
		if pt != Pawn {
			sb.WriteByte("PNBRQK"[pt])
			sb.WriteString(p.disambiguation(m))
		}
		if m.IsCapture() {
			if pt == Pawn {
				sb.WriteByte(byte('a' + m.From().File()))
			}
			sb.WriteByte('x')
		}
		sb.WriteString(m.To().String())
		if m.IsPromotion() {
			sb.WriteByte('=')
			sb.WriteByte("PNBRQK"[m.Promotion()])
		}
	}

	undo := p.MakeMove(m)
	if p.InCheck() {
		if p.HasLegalMoves() {
			sb.WriteByte('+')
		} else {
			sb.WriteByte('#')
		}
	}
	p.UnmakeMove(m, undo)
	return sb.String()
}

func (p *Position) disambiguation(m Move) string {
	var ml MoveList
	p.GenerateLegalMoves(&ml)
	from := m.From()
	var rivals []Square
	for _, o := range ml.Slice() {
		if o.To() == m.To() && o.Piece() == m.Piece() && o.From() != from {
			rivals = append(rivals, o.From())
		}
	}
	if len(rivals) == 0 {
		return ""
	}
	sameFile, sameRank := false, false
	for _, sq := range rivals {
		sameFile = sameFile || sq.File() == from.File()
		sameRank = sameRank || sq.Rank() == from.Rank()
	}
	switch {
	case !sameFile:
		return string(rune('a' + from.File()))
	case !sameRank:
		return string(rune('1' + from.Rank()))
	}
	return from.String()
}

// ParseSAN finds the legal move written as s in Standard Algebraic Notation.
func ParseSAN(s string, p *Position) (Move, error) {
	var ml MoveList
	p.GenerateLegalMoves(&ml)
	want := strings.TrimRight(strings.TrimSpace(s), "+#!?")
	want = strings.ReplaceAll(want, "0", "O")
	for _, m := range ml.Slice() {
		if strings.TrimRight(p.SAN(m), "+#") == want {
			return m, nil
		}
	}
	return NoMove, fmt.Errorf("%w: %s", ErrIllegalMove, s)
}

// LineSAN renders a sequence of moves starting from p. p is left unchanged.
func (p *Position) LineSAN(moves []Move) []string {
	q := p.Copy()
	out := make([]string, 0, len(moves))
	for _, m := range moves {
		out = append(out, q.SAN(m))
		q.MakeMove(m)
	}
	return out
}
