package main

import (
	"fmt"
	"time"

	"github.com/opd-ai/crossfade"
	"github.com/opd-ai/crossfade/factory"
	"github.com/spf13/cobra"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		first, second string
		out           string
		format        string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Encode the transition to a file as fast as possible",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := factory.ParseFormat(format)
			if err != nil {
				return err
			}

			studio, done, err := a.newStudio()
			if err != nil {
				return err
			}
			defer done()

			result, err := studio.Export(cmd.Context(), crossfade.ExportRequest{
				First:  first,
				Second: second,
				Out:    out,
				Format: f,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "saved %s (%d frames, max blend %.2f) in %s\n",
				result.Path, result.Stats.FramesSubmitted, result.Stats.MaxBlendWeight, result.Stats.Elapsed.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVar(&first, "first", "", "first stream (required)")
	cmd.Flags().StringVar(&second, "second", "", "second stream (required)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path (default: a new timestamped export in output_dir)")
	cmd.Flags().StringVar(&format, "format", factory.FormatStream.String(), "output format: stream or png")
	cmd.MarkFlagRequired("first")
	cmd.MarkFlagRequired("second")
	return cmd
}
