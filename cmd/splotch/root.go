package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stjepangolemac/splotch"
	"github.com/stjepangolemac/splotch/logging"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	configFile string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:               "splotch",
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	Short:             "Splotch is a personal blog engine",
	SilenceUsage:      true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default ./splotch.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// newApp loads the configuration and builds an App logging through zap.
func newApp() (*splotch.App, *zap.Logger, error) {
	cfg, err := splotch.LoadConfig(configFile)
	if err != nil {
		return nil, nil, err
	}
	logger := logging.New(debug)
	return splotch.New(cfg, splotch.WithLogger(logger)), logger, nil
}
