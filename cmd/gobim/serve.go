package main

import (
	"log/slog"

	"github.com/philipparndt/gobim/internal/server"
	"github.com/spf13/cobra"
)

var (
	serveAddr  string
	serveWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the project portal",
	Long: `Load the configured models and serve the portal API until interrupted.
With --watch, changes to the config file or local model files are reloaded.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides the config)")
	serveCmd.Flags().BoolVarP(&serveWatch, "watch", "w", false, "reload on config and model file changes")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	sess, err := openSessionFor(ctx, cfg)
	if err != nil {
		return err
	}
	defer sess.Close()

	if serveWatch || cfg.Viewer.Watch {
		if err := sess.Watch(ctx); err != nil {
			return err
		}
	}

	slog.Info("serving project", "project", cfg.Project.Name, "models", len(sess.Viewer.Registry.Models()))
	return server.New(sess, slog.Default()).Listen(ctx)
}
