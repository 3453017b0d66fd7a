// Command chesscore-server runs the websocket analysis bridge.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hailam/chesscore/internal/config"
	"github.com/hailam/chesscore/internal/logging"
	"github.com/hailam/chesscore/internal/server"
)

func main() {
	fs := flag.NewFlagSet("chesscore-server", flag.ExitOnError)
	ping := fs.Duration("ping", 0, "idle time before a heartbeat ping (0 = default)")
	cfg, err := config.Load(fs, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(server.Config{
		HashMB:       cfg.HashMB,
		PingInterval: *ping,
		Logger:       logging.Component(log, "server"),
	})
	if err := srv.ListenAndServe(ctx, cfg.Addr); err != nil {
		log.Error().Err(err).Msg("server failed")
		os.Exit(1)
	}
	log.Info().Msg("shut down")
}
