// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// levels maps level names to slog levels.
var levels = map[string]slog.Level{
	"trace":   slog.LevelDebug,
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// Config describes the logger the command line tool installs.
type Config struct {
	Level   string
	Format  string
	NoColor bool
}

// ParseLevel turns a level name into a slog level.
func ParseLevel(name string) (slog.Level, error) {
	lvl, ok := levels[strings.ToLower(name)]
	if !ok {
		return slog.LevelInfo, fmt.Errorf("invalid log level: %s", name)
	}
	return lvl, nil
}

// New builds a logger writing to w.  Text output is colored only when w is a
// terminal and neither NoColor nor the NO_COLOR environment variable is set.
func New(w *os.File, cfg Config) (*slog.Logger, error) {
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(cfg.Format) {
	case "", "text":
		return slog.New(
			tint.NewHandler(
				colorable.NewColorable(w),
				&tint.Options{
					Level:      lvl,
					TimeFormat: time.TimeOnly,
					NoColor:    !isatty.IsTerminal(w.Fd()) || os.Getenv("NO_COLOR") != "" || cfg.NoColor,
				},
			),
		), nil
	case "json":
		return slog.New(
			slog.NewJSONHandler(w, &slog.HandlerOptions{
				AddSource: lvl == slog.LevelDebug,
				Level:     lvl,
			}),
		), nil
	}

	return nil, fmt.Errorf("invalid log format: %s", cfg.Format)
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
