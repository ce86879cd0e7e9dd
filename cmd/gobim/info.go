package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/philipparndt/gobim/pkg/analysis"
	"github.com/philipparndt/gobim/pkg/frag"
	"github.com/spf13/cobra"
)

var largest int

var infoCmd = &cobra.Command{
	Use:   "info [file]",
	Short: "Display general information about an IFC or fragment file",
	Long:  "Show element counts per category, property statistics, the model bounds and the largest elements.",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	infoCmd.Flags().IntVar(&largest, "largest", 5, "number of largest elements to list")
	rootCmd.AddCommand(infoCmd)
}

// readFragment reads a fragment file or converts an IFC file in memory
func readFragment(filename string) (*frag.Fragment, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if !frag.IsFragment(data) {
		data, err = frag.Import(data, filepath.Base(filename))
		if err != nil {
			return nil, err
		}
	}
	return frag.Decode(data)
}

func runInfo(cmd *cobra.Command, args []string) error {
	filename := args[0]
	model, err := readFragment(filename)
	if err != nil {
		return err
	}
	result := analysis.AnalyzeModel(model)

	heading("Model Information")
	if model.Name != "" {
		fmt.Printf("Name: %s\n", model.Name)
	}
	fmt.Printf("File: %s\n", filename)
	fmt.Printf("Schema: %s\n\n", model.Schema)

	section("Model Statistics")
	fmt.Printf("  Elements: %d\n", result.ElementCount)
	fmt.Printf("  Property sets: %d\n", result.PropertySetCount)
	fmt.Printf("  Properties: %d\n\n", result.PropertyCount)

	section("Categories")
	for _, cat := range result.Categories {
		fmt.Printf("  %-24s %5d  volume %s\n", cat.Name, cat.Count, analysis.FormatMeasurement(cat.Volume, "m³"))
	}
	fmt.Println()

	section("Bounding Box")
	fmt.Printf("  Min: %s\n", analysis.FormatVector(result.BoundingBox.Min))
	fmt.Printf("  Max: %s\n", analysis.FormatVector(result.BoundingBox.Max))
	fmt.Printf("  Center: %s\n\n", analysis.FormatVector(result.BoundingBox.Center()))

	section("Dimensions")
	fmt.Printf("  Width (X): %s\n", analysis.FormatMeasurement(result.Dimensions.X, "m"))
	fmt.Printf("  Height (Y): %s\n", analysis.FormatMeasurement(result.Dimensions.Y, "m"))
	fmt.Printf("  Depth (Z): %s\n", analysis.FormatMeasurement(result.Dimensions.Z, "m"))
	fmt.Printf("  Diagonal: %s\n\n", analysis.FormatMeasurement(result.BoundingBox.Diagonal(), "m"))

	if largest > 0 {
		section("Largest Elements")
		for _, el := range analysis.FindLargestElements(result, largest) {
			name := el.Name
			if name == "" {
				name = "-"
			}
			fmt.Printf("  #%-6d %-12s %-32s %s\n", el.LocalID, el.Category, name, analysis.FormatMeasurement(el.Volume, "m³"))
		}
	}
	return nil
}
