// Command perft counts legal move paths from a position, optionally split
// by root move.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/hailam/chesscore/internal/board"
)

func main() {
	fen := flag.String("fen", board.StartFEN, "position to count from")
	depth := flag.Int("depth", 5, "depth in plies")
	workers := flag.Int("workers", runtime.NumCPU(), "parallel root moves")
	divide := flag.Bool("divide", false, "print the count below each root move")
	verify := flag.Bool("verify", false, "check position consistency after every move (slow)")
	flag.Parse()

	if err := run(*fen, *depth, *workers, *divide, *verify); err != nil {
		fmt.Fprintln(os.Stderr, "perft:", err)
		os.Exit(1)
	}
}

func run(fen string, depth, workers int, divide, verify bool) error {
	if depth < 1 {
		return fmt.Errorf("depth %d must be positive", depth)
	}
	pos, err := board.ParseFEN(fen)
	if err != nil {
		return err
	}
	if verify {
		if err := pos.VerifyConsistency(); err != nil {
			return err
		}
		board.DebugChecks = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	entries, err := pos.DivideParallel(ctx, depth, workers)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	var total uint64
	for _, e := range entries {
		if divide {
			fmt.Printf("%s: %s\n", e.Move, humanize.Comma(int64(e.Nodes)))
		}
		total += e.Nodes
	}
	if divide {
		fmt.Println()
	}
	fmt.Printf("depth %d: %s nodes in %v", depth, humanize.Comma(int64(total)), elapsed.Round(time.Millisecond))
	if s := elapsed.Seconds(); s > 0 {
		fmt.Printf(" (%s nps)", humanize.Comma(int64(float64(total)/s)))
	}
	fmt.Println()
	return nil
}
