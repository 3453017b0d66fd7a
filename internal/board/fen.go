package board

import (
	"strconv"
	"strings"
)

const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ParseFEN builds a position from Forsyth-Edwards Notation. The clocks may be
// omitted (they default to 0 and 1). Parsing is all-or-nothing: on error no
// position is returned and the error is a *FENError naming the bad field.
func ParseFEN(fen string) (*Position, error) {
	fields := strings.Fields(fen)
	if len(fields) < 4 || len(fields) > 6 {
		return nil, fenError(FieldPosition, fen, "want 4 to 6 fields, got %d", len(fields))
	}

	p := &Position{EnPassant: NoSquare, FullMoveNumber: 1}
	if err := p.parsePlacement(fields[0]); err != nil {
		return nil, err
	}

	switch fields[1] {
	case "w":
		p.SideToMove = White
	case "b":
		p.SideToMove = Black
	default:
		return nil, fenError(FieldSide, fields[1], "want w or b")
	}

	if fields[2] != "-" {
		for i := 0; i < len(fields[2]); i++ {
			idx := strings.IndexByte("KQkq", fields[2][i])
			if idx < 0 {
				return nil, fenError(FieldCastling, fields[2], "unexpected %q", fields[2][i])
			}
			bit := CastlingRights(1 << idx)
			if p.CastlingRights&bit != 0 {
				return nil, fenError(FieldCastling, fields[2], "duplicate %q", fields[2][i])
			}
			p.CastlingRights |= bit
		}
	}

	if fields[3] != "-" {
		sq, err := ParseSquare(fields[3])
		if err != nil {
			return nil, fenError(FieldEnPassant, fields[3], "not a square")
		}
		want := 5
		if p.SideToMove == Black {
			want = 2
		}
		if sq.Rank() != want {
			return nil, fenError(FieldEnPassant, fields[3], "must be on rank %d for %s to move", want+1, p.SideToMove)
		}
		p.EnPassant = sq
	}

	if len(fields) > 4 {
		n, err := strconv.Atoi(fields[4])
		if err != nil || n < 0 {
			return nil, fenError(FieldHalfmove, fields[4], "want a non-negative integer")
		}
		p.HalfMoveClock = n
	}
	if len(fields) > 5 {
		n, err := strconv.Atoi(fields[5])
		if err != nil || n < 1 {
			return nil, fenError(FieldFullmove, fields[5], "want a positive integer")
		}
		p.FullMoveNumber = n
	}

	if err := p.validate(); err != nil {
		return nil, err
	}
	p.Hash = p.ComputeHash()
	p.updateCheckers()
	return p, nil
}

func (p *Position) parsePlacement(s string) error {
	rows := strings.Split(s, "/")
	if len(rows) != 8 {
		return fenError(FieldPlacement, s, "want 8 ranks, got %d", len(rows))
	}
	for i, row := range rows {
		rank := 7 - i
		file := 0
		for j := 0; j < len(row); j++ {
			ch := row[j]
			if ch >= '1' && ch <= '8' {
				file += int(ch - '0')
				if file > 8 {
					return fenError(FieldPlacement, row, "rank %d overflows", rank+1)
				}
				continue
			}
			pc, ok := PieceFromLetter(ch)
			if !ok {
				return fenError(FieldPlacement, row, "unexpected %q", ch)
			}
			if file > 7 {
				return fenError(FieldPlacement, row, "rank %d overflows", rank+1)
			}
			sq := NewSquare(file, rank)
			p.toggle(pc.Color(), pc.Type(), sq)
			if pc.Type() == King {
				p.KingSquare[pc.Color()] = sq
			}
			file++
		}
		if file != 8 {
			return fenError(FieldPlacement, row, "rank %d has %d squares", rank+1, file)
		}
	}
	return nil
}

// validate rejects positions no legal game can reach in ways the engine
// cannot tolerate.
func (p *Position) validate() error {
	for c := White; c <= Black; c++ {
		if n := p.Pieces[c][King].Count(); n != 1 {
			return fenError(FieldPlacement, "", "%s has %d kings", c, n)
		}
	}
	if (p.Pieces[White][Pawn]|p.Pieces[Black][Pawn])&(Rank1|Rank8) != 0 {
		return fenError(FieldPlacement, "", "pawn on the first or last rank")
	}
	for _, r := range []struct {
		right CastlingRights
		king  Square
		rook  Square
		c     Color
	}{
		{WhiteKingSide, E1, H1, White},
		{WhiteQueenSide, E1, A1, White},
		{BlackKingSide, E8, H8, Black},
		{BlackQueenSide, E8, A8, Black},
	} {
		if p.CastlingRights&r.right == 0 {
			continue
		}
		if !p.Pieces[r.c][King].Has(r.king) || !p.Pieces[r.c][Rook].Has(r.rook) {
			return fenError(FieldCastling, p.CastlingRights.String(), "%s king or rook not on its home square", r.c)
		}
	}
	if p.EnPassant != NoSquare {
		them := p.SideToMove.Other()
		pawn := p.EnPassant + 8
		if p.SideToMove == White {
			pawn = p.EnPassant - 8
		}
		if !p.Pieces[them][Pawn].Has(pawn) || !p.IsEmpty(p.EnPassant) {
			return fenError(FieldEnPassant, p.EnPassant.String(), "no pawn just pushed past it")
		}
	}
	them := p.SideToMove.Other()
	if p.IsSquareAttacked(p.KingSquare[them], p.SideToMove) {
		return fenError(FieldPosition, "", "%s is in check but not on move", them)
	}
	return nil
}

// FEN serializes the position. ParseFEN(p.FEN()) reproduces p exactly.
func (p *Position) FEN() string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			pc := p.PieceAt(NewSquare(file, rank))
			if pc == NoPiece {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteString(pc.String())
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}
	side := " w "
	if p.SideToMove == Black {
		side = " b "
	}
	sb.WriteString(side)
	sb.WriteString(p.CastlingRights.String())
	sb.WriteByte(' ')
	sb.WriteString(p.EnPassant.String())
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(p.HalfMoveClock))
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(p.FullMoveNumber))
	return sb.String()
}
