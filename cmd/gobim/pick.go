package main

import (
	"fmt"

	"github.com/philipparndt/gobim/internal/engine"
	"github.com/philipparndt/gobim/internal/scene"
	"github.com/philipparndt/gobim/internal/viewer"
	"github.com/spf13/cobra"
)

var (
	pickX, pickY          float64
	pickWidth, pickHeight float64
)

var pickCmd = &cobra.Command{
	Use:   "pick [file...]",
	Short: "Resolve a click on the default view to an element",
	Long: `Load the models, fit the camera and cast a ray through the given pixel.
Prints the selected element with its property sets.`,
	RunE: runPick,
}

func init() {
	pickCmd.Flags().Float64Var(&pickWidth, "width", 800, "viewport width in pixels")
	pickCmd.Flags().Float64Var(&pickHeight, "height", 600, "viewport height in pixels")
	pickCmd.Flags().Float64Var(&pickX, "x", -1, "pointer x (default: viewport center)")
	pickCmd.Flags().Float64Var(&pickY, "y", -1, "pointer y (default: viewport center)")
	rootCmd.AddCommand(pickCmd)
}

func runPick(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sess, err := openSession(ctx, args)
	if err != nil {
		return err
	}
	defer sess.Close()

	if pickX < 0 {
		pickX = pickWidth / 2
	}
	if pickY < 0 {
		pickY = pickHeight / 2
	}
	sess.Viewer.World.SetViewport(scene.Viewport{Width: pickWidth, Height: pickHeight})

	state, err := sess.Viewer.Selection.Click(ctx, engine.Pointer{X: pickX, Y: pickY})
	if err != nil {
		return err
	}
	printSelection(state)
	return nil
}

func printSelection(state viewer.SelectionState) {
	heading("Selection")
	if state.Empty() {
		fmt.Println("Nothing selected")
		return
	}
	fmt.Printf("Model: %s\n", state.ModelID)
	fmt.Printf("Element: #%d %s\n", state.ElementID, state.ElementName)
	if state.Distance > 0 {
		fmt.Printf("Distance: %.3f\n", state.Distance)
	}
	for _, set := range state.PropertySets {
		fmt.Println()
		section(set.Name)
		for _, p := range set.Properties {
			fmt.Printf("  %s: %s\n", p.Name, p.Value)
		}
	}
}
