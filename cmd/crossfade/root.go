package main

import (
	"fmt"
	"os"

	"github.com/opd-ai/crossfade"
	"github.com/opd-ai/crossfade/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries the state shared by every subcommand.
type app struct {
	v          *viper.Viper
	cfgFile    string
	logJSON    bool
	cpuProfile string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.NewViper()}

	root := &cobra.Command{
		Use:           "crossfade",
		Short:         "Blurred cross-fade transitions between two video streams",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "configuration file (default ./crossfade.yaml or ~/.config/crossfade/crossfade.yaml)")
	flags.String("log-level", "info", "log level: trace, debug, info, warn, error")
	flags.BoolVar(&a.logJSON, "log-json", false, "log as JSON")
	flags.StringVar(&a.cpuProfile, "cpuprofile", "", "write a CPU profile of the session to this file")
	flags.Float64("overlap", 0, "transition window in seconds")
	flags.String("fit", "", "canvas fit policy: fit, fill or stretch")
	flags.String("output-dir", "", "directory new exports are saved in")

	mustBind(a.v, config.KeyLogLevel, root, "log-level")
	mustBind(a.v, config.KeyOverlapDuration, root, "overlap")
	mustBind(a.v, config.KeyFitPolicy, root, "fit")
	mustBind(a.v, config.KeyOutputDir, root, "output-dir")

	root.AddCommand(
		newPreviewCmd(a),
		newExportCmd(a),
		newKernelsCmd(a),
		newExportsCmd(a),
		newConfigCmd(a),
	)
	return root
}

// mustBind binds a persistent flag to a configuration key. Viper only
// prefers the flag over file and environment values once it is set.
func mustBind(v *viper.Viper, key string, cmd *cobra.Command, flag string) {
	if err := v.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func (a *app) load() error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	if err := config.ConfigureLogging(cfg.LogLevel, a.logJSON); err != nil {
		return err
	}
	a.cfg = cfg

	logrus.WithFields(logrus.Fields{
		"function":    "load",
		"config_file": a.v.ConfigFileUsed(),
		"log_level":   cfg.LogLevel,
	}).Debug("Configuration ready")
	return nil
}

// newStudio creates the studio for a session command. The returned cleanup
// closes the studio and the profile file.
func (a *app) newStudio() (*crossfade.Studio, func(), error) {
	opts := &crossfade.Options{Config: a.cfg}

	var profile *os.File
	if a.cpuProfile != "" {
		f, err := os.Create(a.cpuProfile)
		if err != nil {
			return nil, nil, fmt.Errorf("create cpu profile: %w", err)
		}
		profile = f
		opts.CPUProfile = f
	}

	studio, err := crossfade.New(opts)
	if err != nil {
		if profile != nil {
			profile.Close()
		}
		return nil, nil, err
	}

	return studio, func() {
		studio.Close()
		if profile != nil {
			profile.Close()
		}
	}, nil
}
