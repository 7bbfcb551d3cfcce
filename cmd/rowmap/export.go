package main

import (
	"github.com/spf13/cobra"

	"rowmap/internal/codec"
)

func newExportCmd(open func() (*app, error)) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "export [collection...]",
		Short: "Write collections as a fixture document",
		Long:  "Write collections as a fixture document. With no arguments every declared relation is exported.",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := codec.ForFormat(format)
			if err != nil {
				return err
			}

			a, err := open()
			if err != nil {
				return err
			}
			defer a.Close()

			names := args
			if len(names) == 0 {
				names = a.cfg.RelationNames()
			}

			fixtures, err := codec.Dump(cmd.Context(), names, a.backend)
			if err != nil {
				return err
			}
			return c.Export(fixtures, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "output format: yaml or json")
	return cmd
}
