package engine

import (
	"sync/atomic"
	"unsafe"

	"github.com/hailam/chesscore/internal/board"
)

// Bound tells how a stored score relates to the true value.
type Bound uint8

const (
	boundNone Bound = iota // empty slot
	BoundExact
	BoundLower // failed high (beta cutoff)
	BoundUpper // failed low
)

func (b Bound) String() string {
	switch b {
	case BoundExact:
		return "exact"
	case BoundLower:
		return "lower"
	case BoundUpper:
		return "upper"
	}
	return "none"
}

// TTEntry is one slot of the transposition table.
type TTEntry struct {
	Key        uint64 // full Zobrist hash, verified on probe
	BestMove   board.Move
	Score      int16
	Depth      int8
	Bound      Bound
	Generation uint8
}

// TTStats counts table traffic since the last Clear.
type TTStats struct {
	Probes uint64
	Hits   uint64
	Stores uint64
}

// TranspositionTable caches search results by position hash. It belongs to
// a single Engine, which never searches twice at once, so slots are not
// locked; only the statistics are atomic so they can be read mid-search.
type TranspositionTable struct {
	entries    []TTEntry
	mask       uint64
	generation uint8

	probes atomic.Uint64
	hits   atomic.Uint64
	stores atomic.Uint64
}

// NewTranspositionTable creates a table of at most sizeMB megabytes. The
// slot count is rounded down to a power of two, with a floor of 1024.
func NewTranspositionTable(sizeMB int) *TranspositionTable {
	if sizeMB < 1 {
		sizeMB = 1
	}
	entrySize := uint64(unsafe.Sizeof(TTEntry{}))
	n := roundDownToPowerOf2(uint64(sizeMB) * 1024 * 1024 / entrySize)
	if n < 1024 {
		n = 1024
	}
	return &TranspositionTable{
		entries: make([]TTEntry, n),
		mask:    n - 1,
	}
}

// roundDownToPowerOf2 rounds n down to the nearest power of 2.
func roundDownToPowerOf2(n uint64) uint64 {
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return (n + 1) >> 1
}

// Len is the number of slots.
func (tt *TranspositionTable) Len() int { return len(tt.entries) }

// Probe returns the entry stored for hash. A hit still has to be checked
// against the requested depth before its score may cut the search.
func (tt *TranspositionTable) Probe(hash uint64) (TTEntry, bool) {
	tt.probes.Add(1)
	e := tt.entries[hash&tt.mask]
	if e.Bound == boundNone || e.Key != hash {
		return TTEntry{}, false
	}
	tt.hits.Add(1)
	return e, true
}

// Store writes a search result. The slot is replaced when it is empty,
// holds the same position, was written by an older search, or holds a
// shallower result, tested in that order. Otherwise the old entry stays.
func (tt *TranspositionTable) Store(hash uint64, depth, score int, bound Bound, best board.Move) bool {
	e := &tt.entries[hash&tt.mask]
	switch {
	case e.Bound == boundNone:
	case e.Key == hash:
		if best == board.NoMove {
			best = e.BestMove
		}
	case e.Generation != tt.generation:
	case int(e.Depth) < depth:
	default:
		return false
	}
	*e = TTEntry{
		Key:        hash,
		BestMove:   best,
		Score:      int16(score),
		Depth:      int8(depth),
		Bound:      bound,
		Generation: tt.generation,
	}
	tt.stores.Add(1)
	return true
}

// NewSearch starts a new generation. Entries from earlier searches stay
// readable but lose replacement priority.
func (tt *TranspositionTable) NewSearch() {
	tt.generation++
}

// Generation is the current search generation.
func (tt *TranspositionTable) Generation() uint8 { return tt.generation }

// Clear empties the table and resets the statistics.
func (tt *TranspositionTable) Clear() {
	clear(tt.entries)
	tt.generation = 0
	tt.probes.Store(0)
	tt.hits.Store(0)
	tt.stores.Store(0)
}

// HashFull returns the permille of the first 1000 slots written during the
// current search.
func (tt *TranspositionTable) HashFull() int {
	sample := min(1000, len(tt.entries))
	used := 0
	for i := range sample {
		e := &tt.entries[i]
		if e.Bound != boundNone && e.Generation == tt.generation {
			used++
		}
	}
	return used * 1000 / sample
}

// Stats returns the traffic counters.
func (tt *TranspositionTable) Stats() TTStats {
	return TTStats{Probes: tt.probes.Load(), Hits: tt.hits.Load(), Stores: tt.stores.Load()}
}

// HitRate returns hits per probe as a percentage.
func (tt *TranspositionTable) HitRate() float64 {
	probes := tt.probes.Load()
	if probes == 0 {
		return 0
	}
	return float64(tt.hits.Load()) * 100 / float64(probes)
}

// ScoreToTT converts a mate score relative to the root into one relative to
// the node at ply, so the entry stays valid wherever the position recurs.
func ScoreToTT(score, ply int) int {
	switch {
	case score >= MateThreshold:
		return score + ply
	case score <= -MateThreshold:
		return score - ply
	}
	return score
}

// ScoreFromTT undoes ScoreToTT for a probe at ply.
func ScoreFromTT(score, ply int) int {
	switch {
	case score >= MateThreshold:
		return score - ply
	case score <= -MateThreshold:
		return score + ply
	}
	return score
}
