package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/philipparndt/gobim/internal/viewer"
	"github.com/philipparndt/gobim/pkg/frag"
	"github.com/spf13/cobra"
)

var convertOutput string

var convertCmd = &cobra.Command{
	Use:   "convert [file.ifc]",
	Short: "Convert an IFC file to a fragment file",
	Long:  "Parse an IFC file and write the precompiled fragment next to it, or to --output.",
	Args:  cobra.ExactArgs(1),
	RunE:  runConvert,
}

func init() {
	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", "", "output file (default: input with .frag extension)")
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	input := args[0]
	output := convertOutput
	if output == "" {
		output = filepath.Join(filepath.Dir(input), viewer.DownloadName(filepath.Base(input), viewer.FormatIFC))
		if output == input {
			output = input + ".frag"
		}
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	start := time.Now()
	out, err := frag.Import(data, filepath.Base(input))
	if err != nil {
		return err
	}
	if err := os.WriteFile(output, out, 0o644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	fmt.Printf("Converted %s -> %s (%d -> %d bytes) in %s\n",
		input, output, len(data), len(out), time.Since(start).Round(time.Millisecond))
	return nil
}
