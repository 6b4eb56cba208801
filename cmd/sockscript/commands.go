// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"
	"github.com/xmidt-org/sockscript"
	"github.com/xmidt-org/sockscript/scriptfile"
)

var errNoFiles = errors.New("no script files given")

func lintCommand() *cli.Command {
	cmd := &cli.Command{
		Name:      "lint",
		Usage:     "Check that script files parse and cover every step once",
		ArgsUsage: "FILE...",
	}

	cmd.Action = func(_ context.Context, c *cli.Command) error {
		files := c.Args().Slice()
		if len(files) == 0 {
			return errNoFiles
		}

		var errs []error
		for _, path := range files {
			if _, err := scriptfile.Load(path); err != nil {
				errs = append(errs, err)
				continue
			}
			_, _ = fmt.Fprintf(c.Root().Writer, "%s: ok\n", path)
		}
		return errors.Join(errs...)
	}

	return cmd
}

func timelineCommand() *cli.Command {
	cmd := &cli.Command{
		Name:      "timeline",
		Usage:     "Print the steps of a script file in order",
		ArgsUsage: "FILE",
	}

	cmd.Action = func(_ context.Context, c *cli.Command) error {
		f, err := load(c)
		if err != nil {
			return err
		}

		reads, writes, mc, err := f.Tables()
		if err != nil {
			return err
		}
		steps, err := sockscript.Timeline(reads, writes)
		if err != nil {
			return err
		}

		w := c.Root().Writer
		_, _ = fmt.Fprintf(w, "connect %s err=%v\n", mc.Mode, mc.Err)
		for _, step := range steps {
			_, _ = fmt.Fprintln(w, step)
		}
		return nil
	}

	return cmd
}

func replayCommand() *cli.Command {
	cmd := &cli.Command{
		Name:      "replay",
		Usage:     "Play a script file against itself over a deterministic provider",
		ArgsUsage: "FILE",
	}

	cmd.Action = func(_ context.Context, c *cli.Command) error {
		f, err := load(c)
		if err != nil {
			return err
		}

		outcomes, err := scriptfile.Replay(f, slog.Default())
		w := c.Root().Writer
		for _, o := range outcomes {
			_, _ = fmt.Fprintln(w, o)
		}
		if err != nil {
			return err
		}

		_, _ = fmt.Fprintf(w, "%d steps replayed\n", len(outcomes))
		return nil
	}

	return cmd
}

func load(c *cli.Command) (*scriptfile.File, error) {
	if c.NArg() != 1 {
		return nil, fmt.Errorf("want exactly one script file, got %d", c.NArg())
	}
	return scriptfile.Load(c.Args().First())
}
