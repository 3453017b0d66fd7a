// Package book is an opening book: positions keyed by their Zobrist hash,
// each with weighted candidate moves. Files use the 16-byte Polyglot entry
// layout (key, move, weight, learn) with the engine's own hash as key.
package book

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"golang.org/x/exp/rand"

	"github.com/hailam/chesscore/internal/board"
)

const entrySize = 16

// ErrTruncated is returned for a file whose length is not a whole number
// of entries.
var ErrTruncated = errors.New("book: truncated entry")

// Entry is one candidate move for a position.
type Entry struct {
	Move   board.Move
	Weight uint16
}

// rawMove is the from/to/promotion triple as stored on disk. Castling is
// stored king-takes-rook.
type rawMove uint16

// Book maps position hashes to their moves.
type Book struct {
	entries map[uint64][]rawEntry
}

type rawEntry struct {
	move   rawMove
	weight uint16
}

// New creates an empty book.
func New() *Book {
	return &Book{entries: make(map[uint64][]rawEntry)}
}

// Load reads a book file.
func Load(path string) (*Book, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	b, err := Read(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// Read decodes entries until EOF.
func Read(r io.Reader) (*Book, error) {
	b := New()
	var buf [entrySize]byte
	for {
		_, err := io.ReadFull(r, buf[:])
		if err == io.EOF {
			return b, nil
		}
		if err == io.ErrUnexpectedEOF {
			return nil, ErrTruncated
		}
		if err != nil {
			return nil, err
		}
		key := binary.BigEndian.Uint64(buf[0:8])
		b.entries[key] = append(b.entries[key], rawEntry{
			move:   rawMove(binary.BigEndian.Uint16(buf[8:10])),
			weight: binary.BigEndian.Uint16(buf[10:12]),
		})
	}
}

// Write encodes the book sorted by key, as Polyglot readers expect.
func (b *Book) Write(w io.Writer) error {
	keys := make([]uint64, 0, len(b.entries))
	for k := range b.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	bw := bufio.NewWriter(w)
	var buf [entrySize]byte
	for _, k := range keys {
		for _, e := range b.entries[k] {
			binary.BigEndian.PutUint64(buf[0:8], k)
			binary.BigEndian.PutUint16(buf[8:10], uint16(e.move))
			binary.BigEndian.PutUint16(buf[10:12], e.weight)
			if _, err := bw.Write(buf[:]); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// Add records m as a book move for pos. Adding the same move again sums
// the weights.
func (b *Book) Add(pos *board.Position, m board.Move, weight uint16) {
	rm := encodeMove(m)
	list := b.entries[pos.Hash]
	for i := range list {
		if list[i].move == rm {
			list[i].weight = satAdd(list[i].weight, weight)
			return
		}
	}
	b.entries[pos.Hash] = append(list, rawEntry{move: rm, weight: weight})
}

func satAdd(a, b uint16) uint16 {
	if s := uint32(a) + uint32(b); s <= 0xFFFF {
		return uint16(s)
	}
	return 0xFFFF
}

// Len returns the number of positions in the book.
func (b *Book) Len() int {
	if b == nil {
		return 0
	}
	return len(b.entries)
}

// Moves returns the legal book moves for pos, heaviest first. Entries
// that do not decode to a legal move (hash collisions) are dropped.
func (b *Book) Moves(pos *board.Position) []Entry {
	if b == nil {
		return nil
	}
	raw := b.entries[pos.Hash]
	if len(raw) == 0 {
		return nil
	}
	var legal board.MoveList
	pos.GenerateLegalMoves(&legal)

	out := make([]Entry, 0, len(raw))
	for _, e := range raw {
		if m := e.move.resolve(&legal); m != board.NoMove {
			out = append(out, Entry{Move: m, Weight: e.weight})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Weight > out[j].Weight })
	return out
}

// Probe picks a book move for pos with probability proportional to its
// weight. All-zero weights pick the first entry.
func (b *Book) Probe(pos *board.Position, rng *rand.Rand) (board.Move, bool) {
	moves := b.Moves(pos)
	if len(moves) == 0 {
		return board.NoMove, false
	}

	var total uint64
	for _, e := range moves {
		total += uint64(e.Weight)
	}
	if total == 0 {
		return moves[0].Move, true
	}

	r := rng.Uint64n(total)
	for _, e := range moves {
		if r < uint64(e.Weight) {
			return e.Move, true
		}
		r -= uint64(e.Weight)
	}
	return moves[0].Move, true
}

// Move encoding (bits):
// 0-5: to square
// 6-11: from square
// 12-14: promotion piece (0=none, 1=knight, 2=bishop, 3=rook, 4=queen)
func encodeMove(m board.Move) rawMove {
	from, to := m.From(), m.To()
	switch {
	case m.Has(board.FlagCastleKing):
		to = board.NewSquare(7, from.Rank())
	case m.Has(board.FlagCastleQueen):
		to = board.NewSquare(0, from.Rank())
	}
	var promo rawMove
	if m.IsPromotion() {
		promo = rawMove(m.Promotion()-board.Knight) + 1
	}
	return rawMove(to) | rawMove(from)<<6 | promo<<12
}

func (rm rawMove) from() board.Square { return board.Square(rm >> 6 & 0x3F) }
func (rm rawMove) to() board.Square { return board.Square(rm & 0x3F) }

func (rm rawMove) promotion() board.PieceType {
	if p := rm >> 12 & 7; p > 0 && p <= 4 {
		return board.Knight + board.PieceType(p-1)
	}
	return board.NoPieceType
}

// resolve finds the legal move rm stands for.
func (rm rawMove) resolve(legal *board.MoveList) board.Move {
	from, to, promo := rm.from(), rm.to(), rm.promotion()
	for _, m := range legal.Slice() {
		if m.From() != from || m.Promotion() != promo {
			continue
		}
		if m.To() == to {
			return m
		}
		// king takes own rook
		if m.IsCastle() && encodeMove(m).to() == to {
			return m
		}
	}
	return board.NoMove
}
