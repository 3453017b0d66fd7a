package config

import (
	"errors"
	"flag"
	"io"
	"testing"

	"github.com/rs/zerolog"

	"github.com/hailam/chesscore/internal/engine"
	"github.com/hailam/chesscore/internal/logging"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(newFlagSet(), nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Config{Addr: DefaultAddr, HashMB: engine.DefaultHashMB, LogLevel: zerolog.InfoLevel, LogFormat: logging.FormatJSON}
	if cfg != want {
		t.Errorf("cfg = %+v, want %+v", cfg, want)
	}
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv(EnvAddr, ":9000")
	t.Setenv(EnvHashMB, "32")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvLogFormat, "pretty")

	cfg, err := Load(newFlagSet(), nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Config{Addr: ":9000", HashMB: 32, LogLevel: zerolog.DebugLevel, LogFormat: logging.FormatPretty}
	if cfg != want {
		t.Errorf("cfg = %+v, want %+v", cfg, want)
	}

	// flags beat the environment
	cfg, err = Load(newFlagSet(), []string{"-hash", "8", "-addr", ":7000"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HashMB != 8 || cfg.Addr != ":7000" {
		t.Errorf("flags did not override the environment: %+v", cfg)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
	}{
		{"zero hash", nil, []string{"-hash", "0"}},
		{"bad env hash", map[string]string{EnvHashMB: "lots"}, nil},
		{"bad level", nil, []string{"-log-level", "chatty"}},
		{"bad format", map[string]string{EnvLogFormat: "xml"}, nil},
		{"empty addr", nil, []string{"-addr", ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(newFlagSet(), tt.args); !errors.Is(err, ErrInvalid) {
				t.Errorf("err = %v, want ErrInvalid", err)
			}
		})
	}

	if _, err := Load(newFlagSet(), []string{"-nope"}); err == nil {
		t.Error("unknown flag accepted")
	}
}
