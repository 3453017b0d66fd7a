package board

import (
	"fmt"
	"strings"
)

// CastlingRights holds the four independent castling permissions.
type CastlingRights uint8

const (
	WhiteKingSide CastlingRights = 1 << iota
	WhiteQueenSide
	BlackKingSide
	BlackQueenSide

	NoCastling  CastlingRights = 0
	AllCastling                = WhiteKingSide | WhiteQueenSide | BlackKingSide | BlackQueenSide
)

func (cr CastlingRights) String() string {
	if cr == NoCastling {
		return "-"
	}
	var sb strings.Builder
	for i, ch := range "KQkq" {
		if cr&(1<<i) != 0 {
			sb.WriteRune(ch)
		}
	}
	return sb.String()
}

// Mirror swaps the white and black rights.
func (cr CastlingRights) Mirror() CastlingRights {
	return (cr&3)<<2 | (cr>>2)&3
}

// castleMask[sq] is cleared from the rights whenever a move touches sq,
// either leaving it or landing on it.
var castleMask [64]CastlingRights

func init() {
	for sq := range castleMask {
		castleMask[sq] = AllCastling
	}
	castleMask[E1] &^= WhiteKingSide | WhiteQueenSide
	castleMask[H1] &^= WhiteKingSide
	castleMask[A1] &^= WhiteQueenSide
	castleMask[E8] &^= BlackKingSide | BlackQueenSide
	castleMask[H8] &^= BlackKingSide
	castleMask[A8] &^= BlackQueenSide
}

// Position is the full game state. It is mutated only through MakeMove and
// UnmakeMove (or their null-move counterparts), which keep every cached
// field and Hash consistent with Pieces.
type Position struct {
	Pieces      [2][6]Bitboard
	Occupied    [2]Bitboard
	AllOccupied Bitboard

	SideToMove     Color
	CastlingRights CastlingRights
	EnPassant      Square // NoSquare unless the last move was a double push
	HalfMoveClock  int
	FullMoveNumber int

	Hash       uint64
	KingSquare [2]Square
	Checkers   Bitboard // pieces giving check to SideToMove
}

// NewPosition returns the standard starting position.
func NewPosition() *Position {
	p, err := ParseFEN(StartFEN)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Position) Copy() *Position {
	c := *p
	return &c
}

// PieceAt returns the piece on sq, or NoPiece.
func (p *Position) PieceAt(sq Square) Piece {
	bb := SquareBB(sq)
	if p.AllOccupied&bb == 0 {
		return NoPiece
	}
	c := White
	if p.Occupied[Black]&bb != 0 {
		c = Black
	}
	for pt := Pawn; pt <= King; pt++ {
		if p.Pieces[c][pt]&bb != 0 {
			return MakePiece(c, pt)
		}
	}
	return NoPiece
}

func (p *Position) IsEmpty(sq Square) bool {
	return !p.AllOccupied.Has(sq)
}

// toggle flips a piece on or off sq and keeps the hash in step.
func (p *Position) toggle(c Color, pt PieceType, sq Square) {
	bb := SquareBB(sq)
	p.Pieces[c][pt] ^= bb
	p.Occupied[c] ^= bb
	p.AllOccupied ^= bb
	p.Hash ^= zobristPiece[c][pt][sq]
}

func (p *Position) shift(c Color, pt PieceType, from, to Square) {
	bb := SquareBB(from) | SquareBB(to)
	p.Pieces[c][pt] ^= bb
	p.Occupied[c] ^= bb
	p.AllOccupied ^= bb
	p.Hash ^= zobristPiece[c][pt][from] ^ zobristPiece[c][pt][to]
	if pt == King {
		p.KingSquare[c] = to
	}
}

func (p *Position) InCheck() bool {
	return p.Checkers != 0
}

func (p *Position) updateCheckers() {
	us := p.SideToMove
	p.Checkers = p.AttackersTo(p.KingSquare[us], us.Other(), p.AllOccupied)
}

// HasNonPawnMaterial reports whether c has a knight, bishop, rook or queen.
func (p *Position) HasNonPawnMaterial(c Color) bool {
	return p.Pieces[c][Knight]|p.Pieces[c][Bishop]|p.Pieces[c][Rook]|p.Pieces[c][Queen] != 0
}

// VerifyConsistency recomputes every derived field and reports the first
// mismatch with the cached value.
func (p *Position) VerifyConsistency() error {
	var occ [2]Bitboard
	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			if occ[c]&p.Pieces[c][pt] != 0 {
				return fmt.Errorf("%s %s overlaps another piece set", c, pt)
			}
			occ[c] |= p.Pieces[c][pt]
		}
		if occ[c] != p.Occupied[c] {
			return fmt.Errorf("%s occupancy mismatch: cached %#x, actual %#x", c, uint64(p.Occupied[c]), uint64(occ[c]))
		}
		if p.Pieces[c][King].Count() != 1 {
			return fmt.Errorf("%s has %d kings", c, p.Pieces[c][King].Count())
		}
		if p.Pieces[c][King].LSB() != p.KingSquare[c] {
			return fmt.Errorf("%s king square cached as %s", c, p.KingSquare[c])
		}
	}
	if occ[White]&occ[Black] != 0 {
		return fmt.Errorf("white and black pieces overlap")
	}
	if occ[White]|occ[Black] != p.AllOccupied {
		return fmt.Errorf("combined occupancy mismatch")
	}
	if h := p.ComputeHash(); h != p.Hash {
		return fmt.Errorf("hash mismatch: cached %016x, computed %016x", p.Hash, h)
	}
	if ch := p.AttackersTo(p.KingSquare[p.SideToMove], p.SideToMove.Other(), p.AllOccupied); ch != p.Checkers {
		return fmt.Errorf("checkers mismatch")
	}
	return nil
}

// MirrorColors returns the position with colors swapped and ranks flipped.
// Castling rights and the en passant square follow; the side to move does
// not change.
func (p *Position) MirrorColors() *Position {
	m := &Position{
		SideToMove:     p.SideToMove,
		CastlingRights: p.CastlingRights.Mirror(),
		EnPassant:      NoSquare,
		HalfMoveClock:  p.HalfMoveClock,
		FullMoveNumber: p.FullMoveNumber,
	}
	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			m.Pieces[c.Other()][pt] = p.Pieces[c][pt].FlipVertical()
		}
		m.Occupied[c.Other()] = p.Occupied[c].FlipVertical()
	}
	m.AllOccupied = p.AllOccupied.FlipVertical()
	if p.EnPassant != NoSquare {
		m.EnPassant = p.EnPassant.Flip()
	}
	m.KingSquare[White] = m.Pieces[White][King].LSB()
	m.KingSquare[Black] = m.Pieces[Black][King].LSB()
	m.Hash = m.ComputeHash()
	m.updateCheckers()
	return m
}

// String draws the board from White's side followed by the FEN and hash.
func (p *Position) String() string {
	var sb strings.Builder
	sb.WriteString(" +-----------------+\n")
	for rank := 7; rank >= 0; rank-- {
		fmt.Fprintf(&sb, "%d|", rank+1)
		for file := 0; file < 8; file++ {
			sb.WriteByte(' ')
			sb.WriteString(p.PieceAt(NewSquare(file, rank)).String())
		}
		sb.WriteString(" |\n")
	}
	sb.WriteString(" +-----------------+\n   a b c d e f g h\n")
	fmt.Fprintf(&sb, "Fen: %s\nKey: %016X\n", p.FEN(), p.Hash)
	return sb.String()
}

// NullUndo restores a position after MakeNullMove.
type NullUndo struct {
	EnPassant Square
	Hash      uint64
	Checkers  Bitboard
}

// MakeNullMove passes the turn. The side to move must not be in check.
func (p *Position) MakeNullMove() NullUndo {
	u := NullUndo{EnPassant: p.EnPassant, Hash: p.Hash, Checkers: p.Checkers}
	if p.EnPassant != NoSquare {
		p.Hash ^= zobristEnPassant[p.EnPassant.File()]
		p.EnPassant = NoSquare
	}
	p.SideToMove = p.SideToMove.Other()
	p.Hash ^= zobristSideToMove
	p.updateCheckers()
	return u
}

func (p *Position) UnmakeNullMove(u NullUndo) {
	p.SideToMove = p.SideToMove.Other()
	p.EnPassant = u.EnPassant
	p.Hash = u.Hash
	p.Checkers = u.Checkers
}
