package book

import (
	"fmt"
	"io"

	"github.com/notnil/chess"

	"github.com/hailam/chesscore/internal/board"
)

// AddPGN replays every game in r and adds its first maxPlies moves, one
// unit of weight per occurrence. It returns the number of games read.
func (b *Book) AddPGN(r io.Reader, maxPlies int) (int, error) {
	scanner := chess.NewScanner(r)
	games := 0
	for scanner.Scan() {
		g := scanner.Next()
		games++
		if err := b.addGame(g, maxPlies); err != nil {
			return games, fmt.Errorf("book: game %d: %w", games, err)
		}
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return games, fmt.Errorf("book: pgn: %w", err)
	}
	return games, nil
}

func (b *Book) addGame(g *chess.Game, maxPlies int) error {
	moves := g.Moves()
	positions := g.Positions()
	// games with a FEN tag start from that position
	pos, err := board.ParseFEN(positions[0].String())
	if err != nil {
		return fmt.Errorf("start position: %w", err)
	}
	for i, mv := range moves {
		if i >= maxPlies {
			break
		}
		s := chess.UCINotation{}.Encode(positions[i], mv)
		m, err := board.ParseMove(s, pos)
		if err != nil {
			return fmt.Errorf("ply %d: %w", i+1, err)
		}
		b.Add(pos, m, 1)
		pos.MakeMove(m)
	}
	return nil
}
