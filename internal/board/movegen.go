package board

// GameStatus classifies a position by its legal moves.
type GameStatus uint8

const (
	Ongoing GameStatus = iota
	Checkmate
	Stalemate
)

func (s GameStatus) String() string {
	switch s {
	case Checkmate:
		return "checkmate"
	case Stalemate:
		return "stalemate"
	}
	return "ongoing"
}

// typeOn returns the piece type of color c on sq, or NoPieceType.
func (p *Position) typeOn(c Color, sq Square) PieceType {
	bb := SquareBB(sq)
	if p.Occupied[c]&bb == 0 {
		return NoPieceType
	}
	for pt := Pawn; pt <= King; pt++ {
		if p.Pieces[c][pt]&bb != 0 {
			return pt
		}
	}
	return NoPieceType
}

// GeneratePseudoLegalMoves appends every move that obeys piece movement
// rules, including moves that leave the own king attacked. Castling is only
// generated when the king and its transit squares are safe.
func (p *Position) GeneratePseudoLegalMoves(ml *MoveList) {
	p.generate(ml, ^p.Occupied[p.SideToMove], true)
}

// GenerateLegalMoves appends the legal moves of the side to move.
func (p *Position) GenerateLegalMoves(ml *MoveList) {
	var pseudo MoveList
	p.GeneratePseudoLegalMoves(&pseudo)
	p.filterLegal(&pseudo, ml)
}

// GenerateCaptures appends the legal captures and promotions, the moves
// quiescence search looks at.
func (p *Position) GenerateCaptures(ml *MoveList) {
	var pseudo MoveList
	p.generate(&pseudo, p.Occupied[p.SideToMove.Other()], false)
	p.filterLegal(&pseudo, ml)
}

func (p *Position) filterLegal(in, out *MoveList) {
	for _, m := range in.Slice() {
		if p.IsLegal(m) {
			out.Add(m)
		}
	}
}

// IsLegal reports whether pseudo-legal move m keeps the mover's king safe.
// It applies the move, probes the king square and reverts.
func (p *Position) IsLegal(m Move) bool {
	us := p.SideToMove
	undo := p.MakeMove(m)
	ok := !p.IsSquareAttacked(p.KingSquare[us], us.Other())
	p.UnmakeMove(m, undo)
	return ok
}

// generate appends moves landing on targets. With quiet false only
// captures, promotions and en passant are produced, and castling is skipped.
func (p *Position) generate(ml *MoveList, targets Bitboard, quiet bool) {
	us := p.SideToMove
	them := us.Other()
	occ := p.AllOccupied

	p.generatePawnMoves(ml, quiet)

	for pt := Knight; pt <= King; pt++ {
		for from := p.Pieces[us][pt]; from != 0; {
			sq := from.PopLSB()
			var dests Bitboard
			switch pt {
			case Knight:
				dests = knightAttacks[sq]
			case Bishop:
				dests = BishopAttacks(sq, occ)
			case Rook:
				dests = RookAttacks(sq, occ)
			case Queen:
				dests = QueenAttacks(sq, occ)
			case King:
				dests = kingAttacks[sq]
			}
			for dests &= targets; dests != 0; {
				to := dests.PopLSB()
				ml.Add(NewMove(sq, to, pt, NoPieceType, p.typeOn(them, to), 0))
			}
		}
	}

	if quiet {
		p.generateCastling(ml)
	}
}

func (p *Position) generatePawnMoves(ml *MoveList, quiet bool) {
	us := p.SideToMove
	them := us.Other()
	pawns := p.Pieces[us][Pawn]
	empty := ^p.AllOccupied
	enemies := p.Occupied[them]

	up, lastRank, thirdRank := 8, Rank8, Rank3
	if us == Black {
		up, lastRank, thirdRank = -8, Rank1, Rank6
	}

	single := pawns.Forward(us) & empty
	double := (single & thirdRank).Forward(us) & empty

	for b := single; b != 0; {
		to := b.PopLSB()
		from := Square(int(to) - up)
		if lastRank.Has(to) {
			addPromotions(ml, from, to, NoPieceType)
		} else if quiet {
			ml.Add(NewMove(from, to, Pawn, NoPieceType, NoPieceType, 0))
		}
	}
	if quiet {
		for b := double; b != 0; {
			to := b.PopLSB()
			ml.Add(NewMove(Square(int(to)-2*up), to, Pawn, NoPieceType, NoPieceType, FlagDoublePush))
		}
	}

	for b := pawns; b != 0; {
		from := b.PopLSB()
		for caps := pawnAttacks[us][from] & enemies; caps != 0; {
			to := caps.PopLSB()
			captured := p.typeOn(them, to)
			if lastRank.Has(to) {
				addPromotions(ml, from, to, captured)
			} else {
				ml.Add(NewMove(from, to, Pawn, NoPieceType, captured, 0))
			}
		}
	}

	if p.EnPassant != NoSquare {
		for b := pawnAttacks[them][p.EnPassant] & pawns; b != 0; {
			from := b.PopLSB()
			ml.Add(NewMove(from, p.EnPassant, Pawn, NoPieceType, Pawn, FlagEnPassant))
		}
	}
}

func addPromotions(ml *MoveList, from, to Square, captured PieceType) {
	for _, pt := range [...]PieceType{Queen, Rook, Bishop, Knight} {
		ml.Add(NewMove(from, to, Pawn, pt, captured, 0))
	}
}

// castle describes one castling option.
type castle struct {
	right      CastlingRights
	flag       MoveFlag
	kingFrom   Square
	kingTo     Square
	rookFrom   Square
	rookTo     Square
	mustBeFree Bitboard
	mustBeSafe [3]Square
}

var castles = [2][2]castle{
	White: {
		{WhiteKingSide, FlagCastleKing, E1, G1, H1, F1, SquareBB(F1) | SquareBB(G1), [3]Square{E1, F1, G1}},
		{WhiteQueenSide, FlagCastleQueen, E1, C1, A1, D1, SquareBB(B1) | SquareBB(C1) | SquareBB(D1), [3]Square{E1, D1, C1}},
	},
	Black: {
		{BlackKingSide, FlagCastleKing, E8, G8, H8, F8, SquareBB(F8) | SquareBB(G8), [3]Square{E8, F8, G8}},
		{BlackQueenSide, FlagCastleQueen, E8, C8, A8, D8, SquareBB(B8) | SquareBB(C8) | SquareBB(D8), [3]Square{E8, D8, C8}},
	},
}

func (p *Position) generateCastling(ml *MoveList) {
	us := p.SideToMove
	if p.Checkers != 0 {
		return
	}
next:
	for _, c := range castles[us] {
		if p.CastlingRights&c.right == 0 || p.AllOccupied&c.mustBeFree != 0 {
			continue
		}
		for _, sq := range c.mustBeSafe {
			if p.IsSquareAttacked(sq, us.Other()) {
				continue next
			}
		}
		ml.Add(NewMove(c.kingFrom, c.kingTo, King, NoPieceType, NoPieceType, c.flag))
	}
}

// HasLegalMoves stops at the first legal move found.
func (p *Position) HasLegalMoves() bool {
	var pseudo MoveList
	p.GeneratePseudoLegalMoves(&pseudo)
	for _, m := range pseudo.Slice() {
		if p.IsLegal(m) {
			return true
		}
	}
	return false
}

// Status reports checkmate, stalemate or an ongoing game.
func (p *Position) Status() GameStatus {
	if p.HasLegalMoves() {
		return Ongoing
	}
	if p.InCheck() {
		return Checkmate
	}
	return Stalemate
}

func (p *Position) IsCheckmate() bool { return p.Status() == Checkmate }
func (p *Position) IsStalemate() bool { return p.Status() == Stalemate }

// IsFiftyMoveDraw reports whether a hundred plies passed without a capture
// or pawn move.
func (p *Position) IsFiftyMoveDraw() bool {
	return p.HalfMoveClock >= 100
}

// IsInsufficientMaterial covers K v K, K+minor v K and same-colored
// bishops only.
func (p *Position) IsInsufficientMaterial() bool {
	w, b := &p.Pieces[White], &p.Pieces[Black]
	if w[Pawn]|b[Pawn]|w[Rook]|b[Rook]|w[Queen]|b[Queen] != 0 {
		return false
	}
	minors := w[Knight] | w[Bishop] | b[Knight] | b[Bishop]
	if minors.Count() <= 1 {
		return true
	}
	const light Bitboard = 0x55AA55AA55AA55AA
	bishops := w[Bishop] | b[Bishop]
	if w[Knight]|b[Knight] == 0 && (bishops&light == 0 || bishops&^light == 0) {
		return true
	}
	return false
}
