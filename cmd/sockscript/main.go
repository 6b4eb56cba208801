// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"
	"github.com/xmidt-org/sockscript/internal/logging"
)

const appName = "sockscript"

var version = "(devel)"

func newApp() *cli.Command {
	app := &cli.Command{
		Name:    appName,
		Usage:   "check and replay socket scripts",
		Version: version,
	}

	app.Flags = append(app.Flags,
		&cli.StringFlag{
			Name:  "log-level",
			Value: "info",
			Usage: "Log level (debug, info, warn, error)",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Value: "text",
			Usage: "Log format (text, json)",
		},
		&cli.BoolFlag{
			Name:  "no-color",
			Usage: "Disable colors in log output",
		},
	)

	app.Before = func(ctx context.Context, c *cli.Command) (context.Context, error) {
		log, err := logging.New(os.Stderr, logging.Config{
			Level:   c.String("log-level"),
			Format:  c.String("log-format"),
			NoColor: c.Bool("no-color"),
		})
		if err != nil {
			return ctx, err
		}
		slog.SetDefault(log)
		return ctx, nil
	}

	app.Commands = append(app.Commands,
		lintCommand(),
		timelineCommand(),
		replayCommand(),
	)

	return app
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
