package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/opd-ai/crossfade"
	"github.com/opd-ai/crossfade/driver"
	"github.com/opd-ai/crossfade/media"
	"github.com/spf13/cobra"
)

func newPreviewCmd(a *app) *cobra.Command {
	var (
		first, second string
		start         string
		snapshot      string
	)

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Play the transition in real time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			startStream, err := parseStart(start)
			if err != nil {
				return err
			}

			studio, done, err := a.newStudio()
			if err != nil {
				return err
			}
			defer done()

			display := media.NewSnapshotDisplay(a.cfg.CanvasSize())
			stats, err := studio.Preview(cmd.Context(), crossfade.PreviewRequest{
				First:   first,
				Second:  second,
				Start:   startStream,
				Display: display,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "presented %d frames over %d ticks (%d repeated, %d busy) in %s\n",
				stats.FramesPresented, stats.Ticks, stats.RepeatedTicks, stats.BusyTicks, stats.Elapsed.Round(time.Millisecond))

			if snapshot != "" {
				if err := display.SaveSnapshot(snapshot); err != nil {
					return fmt.Errorf("save snapshot: %w", err)
				}
				fmt.Fprintf(out, "snapshot saved to %s\n", snapshot)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&first, "first", "", "first stream (required)")
	cmd.Flags().StringVar(&second, "second", "", "second stream (required)")
	cmd.Flags().StringVar(&start, "start", "first", "stream playback starts with: first or second")
	cmd.Flags().StringVar(&snapshot, "snapshot", "", "save the last presented frame as PNG")
	cmd.MarkFlagRequired("first")
	cmd.MarkFlagRequired("second")
	return cmd
}

func parseStart(s string) (driver.StartStream, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "first", "":
		return driver.StartFirst, nil
	case "second":
		return driver.StartSecond, nil
	default:
		return 0, fmt.Errorf("unknown start stream %q (want first or second)", s)
	}
}
