// Command mkbook builds an opening book from PGN files.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/hailam/chesscore/internal/book"
)

func main() {
	out := flag.String("o", "book.bin", "output file")
	plies := flag.Int("plies", 16, "moves per game to keep, in plies")
	flag.Parse()
	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: mkbook [-o book.bin] [-plies n] games.pgn...")
		os.Exit(2)
	}

	if err := run(*out, *plies, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "mkbook:", err)
		os.Exit(1)
	}
}

func run(out string, plies int, inputs []string) error {
	b := book.New()
	total := 0
	for _, path := range inputs {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		n, err := b.AddPGN(bufio.NewReader(f), plies)
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		total += n
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := b.Write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("%s: %s positions from %s games\n", out, humanize.Comma(int64(b.Len())), humanize.Comma(int64(total)))
	return nil
}
