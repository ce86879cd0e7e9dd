package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/muesli/termenv"
	"github.com/philipparndt/gobim/internal/logx"
	"github.com/philipparndt/gobim/version"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	debug      bool
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:   "gobim",
	Short: "Inspect, convert and serve BIM models",
	Long: `gobim works with IFC building models and their precompiled fragment form.
It converts IFC files to fragments, prints model statistics, classifies elements
by category, resolves picks and element searches, and serves the project portal.`,
	Version:       version.GetFullVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logx.SetDefault(logx.LevelFromFlags(debug, verbose, quiet))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "project config file (YAML or TOML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log progress")
	rootCmd.PersistentFlags().BoolVar(&debug, "vv", false, "log debug details")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "log errors only")
}

var out = termenv.NewOutput(os.Stdout)

// heading prints a bold title underlined with '='
func heading(title string) {
	fmt.Println(out.String(title).Bold())
	fmt.Println(strings.Repeat("=", len(title)))
}

// section prints a bold sub heading
func section(title string) {
	fmt.Println(out.String(title + ":").Bold())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
