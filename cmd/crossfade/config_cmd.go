package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCmd(a *app) *cobra.Command {
	var write string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print or save the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if write != "" {
				if err := a.cfg.Write(write); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "configuration written to %s\n", write)
				return nil
			}

			data, err := a.cfg.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVar(&write, "write", "", "save the configuration to this file instead of printing it")
	return cmd
}
