package board

import (
	"fmt"
	"strings"
)

// Move packs a move into 32 bits:
//
//	bits  0-5   from square
//	bits  6-11  to square
//	bits 12-14  moving piece type
//	bits 15-17  promotion piece type (NoPieceType when none)
//	bits 18-20  captured piece type (NoPieceType when none)
//	bits 21-24  flags
type Move uint32

// MoveFlag marks the special kinds of move.
type MoveFlag uint32

const (
	FlagDoublePush MoveFlag = 1 << (21 + iota)
	FlagEnPassant
	FlagCastleKing
	FlagCastleQueen
)

const flagMask = MoveFlag(0xF << 21)

// NoMove is the zero move. No real move has from == to.
const NoMove Move = 0

// NewMove builds a move. Pass NoPieceType for promo and captured when
// they do not apply.
func NewMove(from, to Square, moved, promo, captured PieceType, flags MoveFlag) Move {
	return Move(from) | Move(to)<<6 | Move(moved)<<12 | Move(promo)<<15 |
		Move(captured)<<18 | Move(flags&flagMask)
}

func (m Move) From() Square { return Square(m & 0x3F) }
func (m Move) To() Square { return Square(m >> 6 & 0x3F) }
func (m Move) Piece() PieceType { return PieceType(m >> 12 & 7) }
func (m Move) Promotion() PieceType { return PieceType(m >> 15 & 7) }
func (m Move) Captured() PieceType { return PieceType(m >> 18 & 7) }
func (m Move) Flags() MoveFlag { return MoveFlag(m) & flagMask }
func (m Move) Has(f MoveFlag) bool { return MoveFlag(m)&f != 0 }
func (m Move) IsCapture() bool { return m.Captured() != NoPieceType }
func (m Move) IsPromotion() bool { return m.Promotion() != NoPieceType }
func (m Move) IsEnPassant() bool { return m.Has(FlagEnPassant) }
func (m Move) IsCastle() bool { return m.Has(FlagCastleKing | FlagCastleQueen) }
func (m Move) IsDoublePush() bool { return m.Has(FlagDoublePush) }
func (m Move) IsQuiet() bool { return !m.IsCapture() && !m.IsPromotion() }

// String renders coordinate notation: "e2e4", "e7e8q". NoMove is "0000".
func (m Move) String() string {
	if m == NoMove {
		return "0000"
	}
	s := m.From().String() + m.To().String()
	if m.IsPromotion() {
		s += string(m.Promotion().Letter())
	}
	return s
}

// ParseMove resolves coordinate notation against the legal moves of pos.
func ParseMove(s string, pos *Position) (Move, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 4 && len(s) != 5 {
		return NoMove, fmt.Errorf("%w: %q", ErrBadMoveText, s)
	}
	from, err := ParseSquare(s[:2])
	if err != nil {
		return NoMove, fmt.Errorf("%w: %v", ErrBadMoveText, err)
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return NoMove, fmt.Errorf("%w: %v", ErrBadMoveText, err)
	}
	promo := NoPieceType
	if len(s) == 5 {
		switch s[4] {
		case 'n':
			promo = Knight
		case 'b':
			promo = Bishop
		case 'r':
			promo = Rook
		case 'q':
			promo = Queen
		default:
			return NoMove, fmt.Errorf("%w: promotion %q", ErrBadMoveText, s[4])
		}
	}

	var ml MoveList
	pos.GenerateLegalMoves(&ml)
	for _, m := range ml.Slice() {
		if m.From() == from && m.To() == to && m.Promotion() == promo {
			return m, nil
		}
	}
	return NoMove, fmt.Errorf("%w: %s", ErrIllegalMove, s)
}

// MaxMoves bounds the moves of any reachable position (the known maximum is 218).
const MaxMoves = 256

// MoveList is a fixed-capacity move buffer that does not allocate.
type MoveList struct {
	moves [MaxMoves]Move
	n     int
}

// Add appends m. Exceeding MaxMoves means the position is corrupt, so it panics.
func (ml *MoveList) Add(m Move) {
	if ml.n >= MaxMoves {
		panic("board: movelist overflow")
	}
	ml.moves[ml.n] = m
	ml.n++
}

func (ml *MoveList) Len() int { return ml.n }
func (ml *MoveList) At(i int) Move { return ml.moves[i] }
func (ml *MoveList) Swap(i, j int) { ml.moves[i], ml.moves[j] = ml.moves[j], ml.moves[i] }
func (ml *MoveList) Reset() { ml.n = 0 }
func (ml *MoveList) Slice() []Move { return ml.moves[:ml.n] }

func (ml *MoveList) Contains(m Move) bool {
	for i := 0; i < ml.n; i++ {
		if ml.moves[i] == m {
			return true
		}
	}
	return false
}

// UndoInfo holds exactly what MakeMove destroys.
type UndoInfo struct {
	Captured       Piece
	CapturedSquare Square
	CastlingRights CastlingRights
	EnPassant      Square
	HalfMoveClock  int
	Hash           uint64
	Checkers       Bitboard
}
