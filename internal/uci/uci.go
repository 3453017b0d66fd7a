// Package uci implements the Universal Chess Interface text protocol on
// top of the engine.
package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/book"
	"github.com/hailam/chesscore/internal/engine"
)

const (
	engineName   = "chesscore"
	engineAuthor = "the chesscore authors"

	minHashMB = 1
	maxHashMB = 4096
)

// UCI reads commands from in and writes responses to out. Searches run in
// the background so stop and isready are answered while thinking.
type UCI struct {
	engine   *engine.Engine
	position *board.Position

	// hashes of the positions before the current one, for repetitions
	history []uint64

	book    *book.Book
	ownBook bool
	rng     *rand.Rand

	in  io.Reader
	out io.Writer
	log zerolog.Logger

	outMu sync.Mutex

	// running search, nil when idle
	cancel     context.CancelFunc
	searchDone chan struct{}
	infinite   bool
}

// New creates a protocol handler around eng.
func New(eng *engine.Engine, in io.Reader, out io.Writer, log zerolog.Logger) *UCI {
	return &UCI{
		engine:   eng,
		position: board.NewPosition(),
		in:       in,
		out:      out,
		log:      log,
		rng:      rand.New(rand.NewSource(uint64(time.Now().UnixNano()))),
	}
}

// SetBook installs an opening book and turns OwnBook on.
func (u *UCI) SetBook(b *book.Book) {
	u.book = b
	u.ownBook = b != nil
}

// Run processes commands until quit, end of input or ctx is cancelled. At
// end of input a bounded search is allowed to finish and print its move.
func (u *UCI) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(u.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			u.handleStop()
			return ctx.Err()
		case err := <-readErr:
			u.finish()
			return err
		case line := <-lines:
			if quit := u.execute(ctx, line); quit {
				return nil
			}
		}
	}
}

// execute runs one command line and reports whether it was quit.
func (u *UCI) execute(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd, args := parts[0], parts[1:]
	u.log.Debug().Str("cmd", cmd).Strs("args", args).Msg("command")

	switch cmd {
	case "uci":
		u.handleUCI()
	case "isready":
		u.println("readyok")
	case "ucinewgame":
		u.handleNewGame()
	case "position":
		u.handlePosition(args)
	case "go":
		u.handleGo(ctx, args)
	case "stop":
		u.handleStop()
	case "quit":
		u.handleStop()
		return true
	case "setoption":
		u.handleSetOption(args)
	// Debug commands
	case "d":
		u.println(u.position.String())
	case "perft":
		u.handlePerft(ctx, args)
	case "eval":
		u.handleEval()
	default:
		u.log.Warn().Str("cmd", cmd).Msg("unknown command")
		u.printf("info string unknown command %s\n", cmd)
	}
	return false
}

func (u *UCI) printf(format string, args ...any) {
	u.outMu.Lock()
	defer u.outMu.Unlock()
	fmt.Fprintf(u.out, format, args...)
}

func (u *UCI) println(s string) {
	u.printf("%s\n", s)
}

// handleUCI responds to the "uci" command.
func (u *UCI) handleUCI() {
	u.printf("id name %s\n", engineName)
	u.printf("id author %s\n", engineAuthor)
	u.println("")
	u.printf("option name Hash type spin default %d min %d max %d\n", engine.DefaultHashMB, minHashMB, maxHashMB)
	u.println("option name Clear Hash type button")
	u.printf("option name OwnBook type check default %t\n", u.ownBook)
	u.println("option name BookFile type string default <empty>")
	u.println("uciok")
}

// handleNewGame resets the engine for a new game.
func (u *UCI) handleNewGame() {
	u.handleStop()
	u.engine.Clear()
	u.position = board.NewPosition()
	u.history = nil
}

// handlePosition parses and sets up a position. On any error the previous
// position is kept.
// Formats:
//   - position startpos
//   - position startpos moves e2e4 e7e5
//   - position fen <fen>
//   - position fen <fen> moves e2e4
func (u *UCI) handlePosition(args []string) {
	pos, history, err := parsePosition(args)
	if err != nil {
		u.log.Warn().Err(err).Msg("position rejected")
		u.printf("info string %v\n", err)
		return
	}
	u.position = pos
	u.history = history
}

func parsePosition(args []string) (*board.Position, []uint64, error) {
	if len(args) == 0 {
		return nil, nil, errors.New("position: missing startpos or fen")
	}

	movesAt := len(args)
	for i, arg := range args {
		if arg == "moves" {
			movesAt = i
			break
		}
	}

	var pos *board.Position
	switch args[0] {
	case "startpos":
		pos = board.NewPosition()
	case "fen":
		var err error
		pos, err = board.ParseFEN(strings.Join(args[1:movesAt], " "))
		if err != nil {
			return nil, nil, fmt.Errorf("position: %w", err)
		}
	default:
		return nil, nil, fmt.Errorf("position: unknown argument %q", args[0])
	}

	var history []uint64
	if movesAt < len(args) {
		for _, s := range args[movesAt+1:] {
			hash := pos.Hash
			if _, err := pos.ApplyUCI(s); err != nil {
				return nil, nil, fmt.Errorf("position: move %s: %w", s, err)
			}
			history = append(history, hash)
		}
	}
	return pos, history, nil
}

// GoOptions holds parsed "go" command options.
type GoOptions struct {
	Depth    int
	Nodes    uint64
	MoveTime time.Duration
	Infinite bool
	Clock    engine.Clock
}

// parseGoOptions parses "go" command arguments. Unknown tokens and bad
// numbers are skipped.
func parseGoOptions(args []string) GoOptions {
	var opts GoOptions
	ms := func(s string) time.Duration {
		n, _ := strconv.Atoi(s)
		return time.Duration(n) * time.Millisecond
	}

	for i := 0; i < len(args); i++ {
		var next string
		if i+1 < len(args) {
			next = args[i+1]
		}
		switch args[i] {
		case "depth":
			opts.Depth, _ = strconv.Atoi(next)
			i++
		case "nodes":
			opts.Nodes, _ = strconv.ParseUint(next, 10, 64)
			i++
		case "movetime":
			opts.MoveTime = ms(next)
			i++
		case "wtime":
			opts.Clock.Time[board.White] = ms(next)
			i++
		case "btime":
			opts.Clock.Time[board.Black] = ms(next)
			i++
		case "winc":
			opts.Clock.Inc[board.White] = ms(next)
			i++
		case "binc":
			opts.Clock.Inc[board.Black] = ms(next)
			i++
		case "movestogo":
			opts.Clock.MovesToGo, _ = strconv.Atoi(next)
			i++
		case "infinite":
			opts.Infinite = true
		}
	}
	return opts
}

// limits converts the options into engine limits for a side to move at
// game ply.
func (o GoOptions) limits(us board.Color, ply int) engine.Limits {
	if o.Infinite {
		return engine.Limits{Infinite: true}
	}
	l := engine.Limits{Depth: max(o.Depth, 0), Nodes: o.Nodes, MoveTime: o.MoveTime}
	if l.MoveTime <= 0 {
		l.MoveTime = o.Clock.MoveTime(us, ply)
	}
	return l
}

func gamePly(pos *board.Position) int {
	return (pos.FullMoveNumber-1)*2 + int(pos.SideToMove)
}

// handleGo starts a search with the given parameters.
func (u *UCI) handleGo(ctx context.Context, args []string) {
	u.handleStop()

	opts := parseGoOptions(args)
	pos := u.position.Copy()
	if u.ownBook && !opts.Infinite {
		if m, ok := u.book.Probe(pos, u.rng); ok {
			u.log.Debug().Str("move", m.String()).Msg("book move")
			u.printf("bestmove %s\n", m)
			return
		}
	}
	limits := opts.limits(pos.SideToMove, gamePly(pos))
	u.engine.SetHistory(u.history)
	u.log.Debug().Str("limits", limits.String()).Str("fen", pos.FEN()).Msg("go")

	sctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	u.cancel = cancel
	u.searchDone = done
	u.infinite = opts.Infinite

	go func() {
		defer close(done)
		defer cancel()

		res, err := u.engine.Search(sctx, pos, limits, u.sendInfo)
		if opts.Infinite {
			// bestmove may only follow stop
			<-sctx.Done()
		}
		u.sendBestMove(pos, res, err)
	}()
}

// sendInfo outputs search info in UCI format.
func (u *UCI) sendInfo(info engine.Info) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "info depth %d seldepth %d", info.Depth, info.SelDepth)
	if info.Mate != 0 {
		fmt.Fprintf(&sb, " score mate %d", info.Mate)
	} else {
		fmt.Fprintf(&sb, " score cp %d", info.Score)
	}
	fmt.Fprintf(&sb, " nodes %d nps %d time %d", info.Nodes, info.NPS, info.Elapsed.Milliseconds())
	if info.HashFull > 0 {
		fmt.Fprintf(&sb, " hashfull %d", info.HashFull)
	}
	if len(info.PV) > 0 {
		sb.WriteString(" pv")
		for _, m := range info.PV {
			sb.WriteString(" " + m.String())
		}
	}
	u.println(sb.String())
}

func (u *UCI) sendBestMove(pos *board.Position, res engine.Result, err error) {
	switch {
	case err == nil:
		if res.Ponder != board.NoMove {
			u.printf("bestmove %s ponder %s\n", res.BestMove, res.Ponder)
			return
		}
		u.printf("bestmove %s\n", res.BestMove)
	case errors.Is(err, engine.ErrNoLegalMoves):
		u.println("bestmove 0000")
	default:
		// stopped before depth 1: any legal move beats none
		u.log.Debug().Err(err).Msg("falling back to first legal move")
		var ml board.MoveList
		pos.GenerateLegalMoves(&ml)
		if ml.Len() == 0 {
			u.println("bestmove 0000")
			return
		}
		u.printf("bestmove %s\n", ml.At(0))
	}
}

// handleStop stops the current search and waits for its bestmove.
func (u *UCI) handleStop() {
	if u.cancel == nil {
		return
	}
	u.cancel()
	<-u.searchDone
	u.cancel = nil
	u.searchDone = nil
}

// finish lets a bounded search complete; an infinite one is stopped.
func (u *UCI) finish() {
	if u.cancel == nil {
		return
	}
	if !u.infinite {
		<-u.searchDone
	}
	u.handleStop()
}

// handleSetOption processes "setoption name <name> [value <value>]".
func (u *UCI) handleSetOption(args []string) {
	var name, value []string
	target := &name
	for _, arg := range args {
		switch arg {
		case "name":
			target = &name
		case "value":
			target = &value
		default:
			*target = append(*target, arg)
		}
	}

	switch strings.ToLower(strings.Join(name, " ")) {
	case "hash":
		mb, err := strconv.Atoi(strings.Join(value, " "))
		if err != nil || mb < minHashMB || mb > maxHashMB {
			u.printf("info string Hash must be %d..%d\n", minHashMB, maxHashMB)
			return
		}
		u.handleStop()
		u.engine.ResizeHash(mb)
		u.log.Info().Int("hash_mb", mb).Msg("hash resized")
	case "clear hash":
		u.handleStop()
		u.engine.Clear()
	case "ownbook":
		u.ownBook = strings.EqualFold(strings.Join(value, " "), "true")
	case "bookfile":
		path := strings.Join(value, " ")
		if path == "" || path == "<empty>" {
			u.book = nil
			return
		}
		b, err := book.Load(path)
		if err != nil {
			u.log.Warn().Err(err).Msg("book not loaded")
			u.printf("info string %v\n", err)
			return
		}
		u.book = b
		u.log.Info().Str("path", path).Int("positions", b.Len()).Msg("book loaded")
	default:
		u.printf("info string unknown option %s\n", strings.Join(name, " "))
	}
}

// handlePerft runs a divide on the current position.
func (u *UCI) handlePerft(ctx context.Context, args []string) {
	depth := 5
	if len(args) > 0 {
		if d, err := strconv.Atoi(args[0]); err == nil && d > 0 {
			depth = d
		}
	}

	start := time.Now()
	entries, err := u.position.DivideParallel(ctx, depth, 0)
	if err != nil {
		u.printf("info string perft: %v\n", err)
		return
	}
	elapsed := time.Since(start)

	var total uint64
	for _, e := range entries {
		u.printf("%s: %d\n", e.Move, e.Nodes)
		total += e.Nodes
	}
	u.printf("\nNodes searched: %d\n", total)
	u.printf("Time: %dms\n", elapsed.Milliseconds())
}

// handleEval prints the static evaluation terms.
func (u *UCI) handleEval() {
	b := engine.Breakdown(u.position)
	u.printf("Material: %d\n", b.Material)
	u.printf("PST: mg %d eg %d\n", b.PSTMg, b.PSTEg)
	u.printf("Phase: %d/256\n", b.Phase)
	u.printf("Mobility: %d\n", b.Mobility)
	u.printf("White: %d\n", b.White)
	u.printf("Total: %d (side to move)\n", b.Total)
}
