package main

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(buildCmd)
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Render the site into the output directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, logger, err := newApp()
		if err != nil {
			return err
		}
		defer func() {
			_ = logger.Sync()
		}()
		defer app.Close()

		_, err = app.Build(cmd.Context())
		return err
	},
}
