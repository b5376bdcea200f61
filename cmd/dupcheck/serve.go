package main

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API with health and metrics endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		watch, _ := cmd.Flags().GetBool("watch")

		application, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer application.Close()

		g, ctx := errgroup.WithContext(cmd.Context())

		g.Go(func() error {
			return application.StartHealthServer(ctx)
		})

		if watch {
			g.Go(func() error {
				return application.RunWatcher(ctx)
			})
		}

		return g.Wait()
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Process documents dropped into the inbox directory",
	Long: `Poll INBOX_DIR for *.txt files. Accepted files move to done/, rejected
files to rejected/. Files that fail on a storage error stay in place and are
retried on the next poll.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer application.Close()

		return application.RunWatcher(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().Bool("watch", false, "Also run the inbox watcher")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(watchCmd)
}
