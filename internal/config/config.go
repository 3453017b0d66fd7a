// Package config reads the settings shared by the chesscore binaries from
// command-line flags, falling back to CHESSCORE_* environment variables.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/hailam/chesscore/internal/engine"
	"github.com/hailam/chesscore/internal/logging"
)

// Environment variables consulted when a flag is not given.
const (
	EnvAddr      = "CHESSCORE_ADDR"
	EnvHashMB    = "CHESSCORE_HASH_MB"
	EnvLogLevel  = "CHESSCORE_LOG_LEVEL"
	EnvLogFormat = "CHESSCORE_LOG_FORMAT"
)

const (
	DefaultAddr = "127.0.0.1:8080"
	maxHashMB   = 1 << 16
)

var ErrInvalid = errors.New("config: invalid value")

// Config holds the resolved settings.
type Config struct {
	Addr      string
	HashMB    int
	LogLevel  zerolog.Level
	LogFormat logging.Format
}

// Load registers the common flags on fs, parses args and validates the
// result. Flags win over the environment, which wins over the defaults.
// Callers may define extra flags on fs before calling Load.
func Load(fs *flag.FlagSet, args []string) (Config, error) {
	hashDefault := engine.DefaultHashMB
	if v, ok := os.LookupEnv(EnvHashMB); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s=%q", ErrInvalid, EnvHashMB, v)
		}
		hashDefault = n
	}

	addr := fs.String("addr", envOr(EnvAddr, DefaultAddr), "listen address of the websocket bridge")
	hashMB := fs.Int("hash", hashDefault, "transposition table size in MB")
	level := fs.String("log-level", envOr(EnvLogLevel, "info"), "log level (trace, debug, info, warn, error)")
	format := fs.String("log-format", envOr(EnvLogFormat, "json"), "log format (json, pretty)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := Config{Addr: *addr, HashMB: *hashMB}
	if cfg.HashMB < 1 || cfg.HashMB > maxHashMB {
		return Config{}, fmt.Errorf("%w: hash %d MB outside 1..%d", ErrInvalid, cfg.HashMB, maxHashMB)
	}
	if cfg.Addr == "" {
		return Config{}, fmt.Errorf("%w: empty listen address", ErrInvalid)
	}
	var err error
	if cfg.LogLevel, err = logging.ParseLevel(*level); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if cfg.LogFormat, err = logging.ParseFormat(*format); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return cfg, nil
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}
