package main

import (
	"fmt"
	"path"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/stjepangolemac/splotch"
	"github.com/stjepangolemac/splotch/content"
	"github.com/stjepangolemac/splotch/scaffold"
)

var newCmd = &cobra.Command{
	Use:   "new <title>",
	Short: "Create a post in the content directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := splotch.LoadConfig(configFile)
		if err != nil {
			return err
		}
		title := args[0]
		slug := content.Slugify(title)
		if slug == "" {
			return fmt.Errorf("cannot derive a slug from %q", title)
		}
		written, err := scaffold.Render(afero.NewOsFs(), scaffold.PostRoot, path.Join(cfg.ContentDir, slug), scaffold.PostData{
			Title: title,
			Date:  time.Now().UTC().Format(time.RFC3339),
		})
		if err != nil {
			return err
		}
		for _, f := range written {
			fmt.Printf("created %s\n", f)
		}
		return nil
	},
}

var (
	initAuthor string
	initURL    string
)

func init() {
	rootCmd.AddCommand(newCmd, initCmd)
	initCmd.Flags().StringVar(&initAuthor, "author", "", "author name")
	initCmd.Flags().StringVar(&initURL, "url", "http://localhost:3000", "canonical site URL")
}

var initCmd = &cobra.Command{
	Use:   "init <dir>",
	Short: "Create a new site with a config file and a first post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		if ok, _ := afero.Exists(afero.NewOsFs(), dir); ok {
			return fmt.Errorf("directory %q already exists", dir)
		}
		written, err := scaffold.Render(afero.NewOsFs(), scaffold.SiteRoot, dir, scaffold.SiteData{
			Title:  path.Base(dir),
			Author: initAuthor,
			URL:    initURL,
		})
		if err != nil {
			return err
		}
		for _, f := range written {
			fmt.Printf("  created %s\n", f)
		}
		fmt.Printf("\nDone! Next steps:\n\n  cd %s\n  splotch serve --watch\n\n", dir)
		return nil
	},
}
