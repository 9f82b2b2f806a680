package main

import (
	"fmt"

	"github.com/opd-ai/crossfade"
	"github.com/spf13/cobra"
)

func newKernelsCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "kernels",
		Short: "Generate or load the blur kernel table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, origin, err := crossfade.LoadKernels(a.cfg, force)
			if err != nil {
				return err
			}

			p := table.Params()
			last := table.At(table.Len() - 1)
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d kernels (max radius %.2f, largest %dx%d)\n",
				origin, table.Len(), p.MaxRadius, last.Size, last.Size)
			if a.cfg.KernelCachePath != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "cache: %s\n", a.cfg.KernelCachePath)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "discard the cached table and regenerate it")
	return cmd
}
