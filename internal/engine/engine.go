package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/hailam/chesscore/internal/board"
)

var (
	// ErrNoLegalMoves is returned for a root position that is already
	// checkmate or stalemate. Result.Status tells which.
	ErrNoLegalMoves = errors.New("engine: no legal moves")
	// ErrSearchStopped means the search was stopped before its first
	// iteration finished, so there is no move to report.
	ErrSearchStopped = errors.New("engine: search stopped before depth 1 completed")
)

// DefaultHashMB is the transposition table size when none is configured.
const DefaultHashMB = 64

// State is the lifecycle of an Engine.
type State int32

const (
	Idle State = iota
	Searching
	Completed
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Searching:
		return "searching"
	case Completed:
		return "completed"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Limits bounds a search. The zero value searches depth by depth up to
// MaxDepth. Node and time limits apply from depth 2 on, so a search that
// is not stopped always yields a move.
type Limits struct {
	Depth    int           // maximum depth, 0 = MaxDepth
	Nodes    uint64        // maximum nodes, 0 = no limit
	MoveTime time.Duration // time for this move, 0 = no limit
	Infinite bool          // run until stopped
}

func (l Limits) String() string {
	switch {
	case l.Infinite:
		return "infinite"
	case l.MoveTime > 0:
		return "movetime " + l.MoveTime.String()
	case l.Nodes > 0:
		return fmt.Sprintf("nodes %d", l.Nodes)
	case l.Depth > 0:
		return fmt.Sprintf("depth %d", l.Depth)
	}
	return "unlimited"
}

// Info reports one completed iteration.
type Info struct {
	Depth    int
	SelDepth int
	Nodes    uint64
	NPS      uint64
	Elapsed  time.Duration
	Score    int // centipawns from the side to move
	Mate     int // signed moves to mate, 0 when Score is not a mate
	PV       []board.Move
	HashFull int // permille
}

// Result is the outcome of the deepest completed iteration.
type Result struct {
	BestMove board.Move
	Ponder   board.Move
	Score    int
	Mate     int
	Depth    int
	Nodes    uint64
	PV       []board.Move
	Status   board.GameStatus
}

// Option configures an Engine.
type Option func(*Engine)

// WithHashMB sets the transposition table size.
func WithHashMB(mb int) Option {
	return func(e *Engine) { e.hashMB = mb }
}

// WithoutTT disables the transposition table entirely.
func WithoutTT() Option {
	return func(e *Engine) { e.noTT = true }
}

// WithLogger sets the logger for search diagnostics.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// Engine finds best moves. It runs one search at a time; concurrent
// Search calls queue on an internal lock. Stop and State are safe to call
// from any goroutine.
type Engine struct {
	mu      sync.Mutex
	tt      *TranspositionTable
	orderer MoveOrderer
	history []uint64
	hashMB  int
	noTT    bool

	// stop flag of the running search, nil when idle
	stop  atomic.Pointer[atomic.Bool]
	state atomic.Int32

	log zerolog.Logger
}

// New creates an engine.
func New(opts ...Option) *Engine {
	e := &Engine{hashMB: DefaultHashMB, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	if !e.noTT {
		e.tt = NewTranspositionTable(e.hashMB)
	}
	return e
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Stop asks a running search to finish. The search returns the deepest
// completed iteration.
func (e *Engine) Stop() {
	if stop := e.stop.Load(); stop != nil {
		stop.Store(true)
	}
}

// SetHistory sets the hashes of the positions played before the root,
// oldest first, for repetition detection.
func (e *Engine) SetHistory(hashes []uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = append(e.history[:0], hashes...)
}

// Clear forgets everything learned so far, as for a new game.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tt != nil {
		e.tt.Clear()
	}
	e.orderer.Reset()
	e.history = nil
}

// ResizeHash replaces the transposition table with one of mb megabytes.
func (e *Engine) ResizeHash(mb int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hashMB = mb
	if !e.noTT {
		e.tt = NewTranspositionTable(mb)
	}
}

// HashStats returns the transposition table counters.
func (e *Engine) HashStats() TTStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tt == nil {
		return TTStats{}
	}
	return e.tt.Stats()
}

// Search deepens iteratively from pos within limits and returns the result
// of the deepest completed iteration. onInfo, if not nil, is called on the
// calling goroutine after each iteration, in increasing depth order.
// Cancelling ctx has the same effect as Stop. pos is not modified.
func (e *Engine) Search(ctx context.Context, pos *board.Position, limits Limits, onInfo func(Info)) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// A fresh flag per search: a late AfterFunc or Stop can only reach
	// the search it was meant for.
	stop := new(atomic.Bool)
	e.stop.Store(stop)
	defer e.stop.Store(nil)
	e.state.Store(int32(Searching))
	unlink := context.AfterFunc(ctx, func() { stop.Store(true) })
	defer unlink()

	res, err := e.iterate(ctx, pos, limits, stop, onInfo)
	if stop.Load() || ctx.Err() != nil {
		e.state.Store(int32(Stopped))
	} else {
		e.state.Store(int32(Completed))
	}
	return res, err
}

func (e *Engine) iterate(ctx context.Context, pos *board.Position, limits Limits, stop *atomic.Bool, onInfo func(Info)) (Result, error) {
	start := time.Now()
	if status := pos.Status(); status != board.Ongoing {
		return Result{Status: status}, fmt.Errorf("%w: %s", ErrNoLegalMoves, status)
	}

	if e.tt != nil {
		e.tt.NewSearch()
	}
	e.orderer.Clear()
	s := newSearcher(pos, e.tt, &e.orderer, stop, e.history)
	s.nodeLimit = limits.Nodes
	if limits.MoveTime > 0 {
		s.deadline = start.Add(limits.MoveTime)
	}

	maxDepth := MaxDepth
	if limits.Depth > 0 && !limits.Infinite {
		maxDepth = min(limits.Depth, MaxDepth)
	}

	var res Result
	prev := 0
	for depth := 1; depth <= maxDepth; depth++ {
		if ctx.Err() != nil || stop.Load() {
			break
		}
		s.enforceLimits = depth > 1
		s.selDepth = 0

		score, ok := s.searchRoot(depth, prev)
		if !ok {
			break
		}
		prev = score

		elapsed := time.Since(start)
		pv := s.principalVariation(depth)
		res = Result{
			BestMove: s.rootBest,
			Score:    score,
			Mate:     MateIn(score),
			Depth:    depth,
			Nodes:    s.nodes,
			PV:       pv,
			Status:   board.Ongoing,
		}
		if len(pv) > 1 {
			res.Ponder = pv[1]
		}

		info := Info{
			Depth:    depth,
			SelDepth: s.selDepth,
			Nodes:    s.nodes,
			NPS:      nps(s.nodes, elapsed),
			Elapsed:  elapsed,
			Score:    score,
			Mate:     res.Mate,
			PV:       pv,
		}
		if e.tt != nil {
			info.HashFull = e.tt.HashFull()
		}
		e.log.Debug().
			Int("depth", depth).
			Int("seldepth", s.selDepth).
			Int("score", score).
			Uint64("nodes", s.nodes).
			Dur("elapsed", elapsed).
			Str("pv", pvString(pv)).
			Msg("iteration complete")
		if onInfo != nil {
			onInfo(info)
		}

		if limits.Infinite {
			continue
		}
		if IsMateScore(score) {
			break
		}
		if limits.Nodes > 0 && s.nodes >= limits.Nodes {
			break
		}
		// the next iteration costs more than all previous ones together
		if limits.MoveTime > 0 && elapsed > limits.MoveTime-elapsed {
			break
		}
	}

	if res.BestMove == board.NoMove {
		e.log.Debug().Str("limits", limits.String()).Msg("search stopped before depth 1")
		return Result{}, ErrSearchStopped
	}
	return res, nil
}

func nps(nodes uint64, elapsed time.Duration) uint64 {
	if elapsed <= 0 {
		return 0
	}
	return uint64(float64(nodes) / elapsed.Seconds())
}

func pvString(pv []board.Move) string {
	parts := make([]string, len(pv))
	for i, m := range pv {
		parts[i] = m.String()
	}
	return strings.Join(parts, " ")
}
