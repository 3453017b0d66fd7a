package board

// Color is the side a piece belongs to.
type Color uint8

const (
	White Color = iota
	Black
	NoColor
)

func (c Color) Other() Color {
	return c ^ 1
}

func (c Color) String() string {
	switch c {
	case White:
		return "white"
	case Black:
		return "black"
	}
	return "none"
}

// PieceType is a piece kind independent of color.
type PieceType uint8

const (
	Pawn PieceType = iota
	Knight
	Bishop
	Rook
	Queen
	King
	NoPieceType
)

const pieceLetters = "pnbrqk"

func (pt PieceType) String() string {
	switch pt {
	case Pawn:
		return "pawn"
	case Knight:
		return "knight"
	case Bishop:
		return "bishop"
	case Rook:
		return "rook"
	case Queen:
		return "queen"
	case King:
		return "king"
	}
	return "none"
}

// Letter returns the lowercase FEN letter, or 0 for NoPieceType.
func (pt PieceType) Letter() byte {
	if pt >= NoPieceType {
		return 0
	}
	return pieceLetters[pt]
}

// Piece packs a color and a piece type: type + 6*color.
type Piece uint8

const NoPiece Piece = 12

func MakePiece(c Color, pt PieceType) Piece {
	return Piece(pt) + 6*Piece(c)
}

func (p Piece) Type() PieceType {
	if p >= NoPiece {
		return NoPieceType
	}
	return PieceType(p % 6)
}

func (p Piece) Color() Color {
	if p >= NoPiece {
		return NoColor
	}
	return Color(p / 6)
}

// String returns the FEN letter: uppercase for White.
func (p Piece) String() string {
	if p >= NoPiece {
		return "."
	}
	return string("PNBRQKpnbrqk"[p])
}

// PieceFromLetter maps a FEN letter to a piece.
func PieceFromLetter(ch byte) (Piece, bool) {
	c := White
	if ch >= 'a' && ch <= 'z' {
		c = Black
		ch -= 'a' - 'A'
	}
	switch ch {
	case 'P':
		return MakePiece(c, Pawn), true
	case 'N':
		return MakePiece(c, Knight), true
	case 'B':
		return MakePiece(c, Bishop), true
	case 'R':
		return MakePiece(c, Rook), true
	case 'Q':
		return MakePiece(c, Queen), true
	case 'K':
		return MakePiece(c, King), true
	}
	return NoPiece, false
}
