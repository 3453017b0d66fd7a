// Command chesscore-uci speaks UCI on stdin/stdout. Logs go to stderr.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hailam/chesscore/internal/book"
	"github.com/hailam/chesscore/internal/config"
	"github.com/hailam/chesscore/internal/engine"
	"github.com/hailam/chesscore/internal/logging"
	"github.com/hailam/chesscore/internal/uci"
)

func main() {
	fs := flag.NewFlagSet("chesscore-uci", flag.ExitOnError)
	bookPath := fs.String("book", "", "opening book file; enables OwnBook")
	cfg, err := config.Load(fs, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng := engine.New(
		engine.WithHashMB(cfg.HashMB),
		engine.WithLogger(logging.Component(log, "engine")),
	)
	protocol := uci.New(eng, os.Stdin, os.Stdout, logging.Component(log, "uci"))
	if *bookPath != "" {
		b, err := book.Load(*bookPath)
		if err != nil {
			log.Error().Err(err).Msg("opening book")
			os.Exit(1)
		}
		log.Info().Str("path", *bookPath).Int("positions", b.Len()).Msg("book loaded")
		protocol.SetBook(b)
	}
	if err := protocol.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("uci loop failed")
		os.Exit(1)
	}
}
