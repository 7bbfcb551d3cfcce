package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"rowmap/internal/codec"
	"rowmap/internal/errors"
	"rowmap/internal/watcher"
)

func newSeedCmd(open func() (*app, error)) *cobra.Command {
	var (
		clear bool
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "seed <fixtures.yaml|fixtures.json>",
		Short: "Create every record of a fixture file",
		Long: `Create every record of a fixture file.

With --watch the collections named in the file are cleared and reseeded
each time the file changes, until interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			c, err := codec.ForPath(path)
			if err != nil {
				return err
			}

			a, err := open()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			if err := seedFile(ctx, a, c, path, clear || watch, out); err != nil {
				return err
			}
			if !watch {
				return nil
			}

			w := watcher.New(path, func() {
				if err := seedFile(ctx, a, c, path, true, out); err != nil {
					a.log.Errorw("Reseed failed", "path", path, "error", err)
				}
			}).WithLogger(a.log)

			if err := w.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&clear, "clear", false, "clear each seeded collection first")
	cmd.Flags().BoolVar(&watch, "watch", false, "reseed whenever the file changes")
	return cmd
}

func seedFile(ctx context.Context, a *app, c codec.Importer, path string, clear bool, out io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open fixtures")
	}
	defer f.Close()

	fixtures, err := c.Parse(f)
	if err != nil {
		return err
	}

	if clear {
		for _, name := range fixtures.Names() {
			b, err := a.backend(name)
			if err != nil {
				return err
			}
			if err := b.Clear(ctx); err != nil {
				return err
			}
		}
	}

	counts, err := codec.Seed(ctx, fixtures, a.backend)
	if err != nil {
		return err
	}
	for _, name := range fixtures.Names() {
		fmt.Fprintf(out, "%s: %d records\n", name, counts[name])
	}
	return nil
}
