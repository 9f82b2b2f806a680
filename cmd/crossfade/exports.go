package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/opd-ai/crossfade"
	"github.com/spf13/cobra"
)

func newExportsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "exports",
		Short: "List saved exports, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			exports, err := crossfade.ListExports(a.cfg.OutputDir)
			if err != nil {
				return err
			}
			if len(exports) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no exports in %s\n", a.cfg.OutputDir)
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CREATED\tFORMAT\tSIZE\tPATH")
			for _, e := range exports {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", e.Created.UTC().Format(time.RFC3339), e.Format, e.Size, e.Path)
			}
			return w.Flush()
		},
	}
}
