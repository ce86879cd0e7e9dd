package main

import (
	"fmt"

	"github.com/philipparndt/gobim/internal/viewer"
	"github.com/philipparndt/gobim/pkg/analysis"
	"github.com/philipparndt/gobim/pkg/geometry"
	"github.com/spf13/cobra"
)

var (
	sectionAxis   string
	sectionOffset float64
	sectionWheel  []int
)

var sectionCmd = &cobra.Command{
	Use:   "section [file...]",
	Short: "Cut the first model with a section plane",
	Long: `Activate the section tool on the first loaded model, then apply the axis,
offset and wheel steps in that order and print the resulting cut.`,
	RunE: runSection,
}

func init() {
	sectionCmd.Flags().StringVar(&sectionAxis, "axis", "y", "section axis (x, y or z)")
	sectionCmd.Flags().Float64Var(&sectionOffset, "offset", 0, "plane offset, clamped to the model bounds")
	sectionCmd.Flags().IntSliceVar(&sectionWheel, "wheel", nil, "wheel deltas applied after the offset")
	rootCmd.AddCommand(sectionCmd)
}

func runSection(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	axis, err := geometry.ParseAxis(sectionAxis)
	if err != nil {
		return err
	}

	sess, err := openSession(ctx, args)
	if err != nil {
		return err
	}
	defer sess.Close()

	sec := sess.Viewer.Section
	state, err := sec.Activate(ctx, nil)
	if err != nil {
		return err
	}
	if state, err = sec.SetAxis(ctx, axis); err != nil {
		return err
	}
	if cmd.Flags().Changed("offset") {
		if state, err = sec.SetOffset(ctx, sectionOffset); err != nil {
			return err
		}
	}
	for _, delta := range sectionWheel {
		if state, _, err = sess.Viewer.Wheel.Handle(ctx, &viewer.WheelEvent{DeltaY: float64(delta)}); err != nil {
			return err
		}
	}

	heading("Section")
	fmt.Printf("Model: %s\n", state.ModelID)
	fmt.Printf("Axis: %s\n", state.Axis)
	fmt.Printf("Offset: %.3f (range %.3f .. %.3f, step %.3f)\n", state.Offset, state.Min(), state.Max(), sec.Step())
	fmt.Printf("Bounds: %s - %s\n", analysis.FormatVector(state.Bounds.Min), analysis.FormatVector(state.Bounds.Max))
	fmt.Printf("Clip planes: %d\n", len(sess.Viewer.Scene().ClippingPlanes()))

	cam := sess.Viewer.World.Camera()
	fmt.Printf("Camera: %s looking at %s\n", analysis.FormatVector(cam.Position), analysis.FormatVector(cam.Target))
	return nil
}
