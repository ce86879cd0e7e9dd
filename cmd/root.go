package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/philipparndt/gobim/internal/app"
	"github.com/philipparndt/gobim/internal/config"
	"github.com/philipparndt/gobim/internal/logx"
	"github.com/philipparndt/gobim/version"
	"github.com/spf13/cobra"
)

var (
	configPath string
	watch      bool
	verbose    bool
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "gobim-gui [file...]",
	Short: "Desktop viewer for BIM models",
	Long: `gobim-gui opens the models of a project config and any IFC or fragment
files given as arguments in a desktop window. Select elements, filter by
category and cut the building with the section tool.`,
	Version:      version.GetFullVersion(),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logx.SetDefault(logx.LevelFromFlags(debug, verbose, false))

		cfg := config.Default()
		if configPath != "" {
			var err error
			if cfg, err = config.Load(configPath); err != nil {
				return err
			}
		}
		files := make([]string, 0, len(args))
		for _, f := range args {
			abs, err := filepath.Abs(f)
			if err != nil {
				return fmt.Errorf("failed to resolve %s: %w", f, err)
			}
			files = append(files, abs)
		}

		return app.Run(cmd.Context(), app.Options{
			Config: cfg,
			Files:  files,
			Watch:  watch,
			Log:    log,
		})
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "project config file (YAML or TOML)")
	rootCmd.Flags().BoolVarP(&watch, "watch", "w", false, "reload the config and local model files when they change")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log progress")
	rootCmd.Flags().BoolVar(&debug, "vv", false, "log debug details")
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		slog.Error("viewer failed", "error", err)
		os.Exit(1)
	}
}
