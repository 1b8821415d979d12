package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var watch bool

func init() {
	serveCmd.Flags().BoolVarP(&watch, "watch", "w", false, "reload posts when content changes")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the site, admin area and analytics",
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

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// Open and route before anything runs concurrently with the server.
		if _, err := app.Handler(ctx); err != nil {
			return err
		}

		log := logger.Sugar()
		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return app.Start(ctx)
		})
		g.Go(func() error {
			<-ctx.Done()
			log.Info("stopping server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return app.Shutdown(shutdownCtx)
		})
		if watch {
			g.Go(func() error {
				return app.Watch(ctx, func() {
					log.Info("content changed, posts will reload")
				})
			})
		}
		return g.Wait()
	},
}
