package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-autotune/internal/config"
)

// defaultConfigPath is read when --config is not given. A missing file is
// not an error.
const defaultConfigPath = "autotune.yaml"

var version = "0.1.0"

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "autotune",
		Short: "Snap sung pitch to a musical scale",
		Long: `autotune detects the pitch of a monophonic recording frame by frame, moves
each voiced frame toward the nearest note of a major, minor or pentatonic
scale and writes the corrected audio as WAV.

Run "autotune serve" for the HTTP service or "autotune process" for local
files.`,
		SilenceUsage: true,
		Version:      version,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		fmt.Sprintf("YAML config file (default %s when present)", defaultConfigPath))
	root.SetVersionTemplate("autotune version {{.Version}}\n")

	root.AddCommand(
		newServeCmd(opts),
		newProcessCmd(opts),
		newScaleCmd(opts),
		newDetectCmd(opts),
	)

	return root
}

// load reads the configuration named by --config, or the optional default
// file.
func (o *rootOptions) load() (*config.Config, error) {
	if o.configPath != "" {
		return config.Load(o.configPath)
	}
	return config.LoadOrDefault(defaultConfigPath)
}
