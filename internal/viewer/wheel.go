package viewer

import "context"

// WheelEvent is a scroll event from the front end
type WheelEvent struct {
	DeltaY float64

	defaultPrevented bool
}

// PreventDefault tells the front end not to scroll or zoom
func (e *WheelEvent) PreventDefault() {
	e.defaultPrevented = true
}

// DefaultPrevented reports whether the event was consumed
func (e *WheelEvent) DefaultPrevented() bool {
	return e.defaultPrevented
}

// Wheel maps scroll deltas to section offset changes
type Wheel struct {
	v *Viewer
}

// Handle moves the active section by 1% of the model extent along the axis.
// Scrolling down (positive delta) lowers the plane. Events are ignored while
// the section is inactive.
func (w *Wheel) Handle(ctx context.Context, ev *WheelEvent) (SectionState, bool, error) {
	state := w.v.Section.State()
	if !state.Active || !state.HasBounds {
		return state, false, nil
	}
	ev.PreventDefault()

	step := state.Size.Component(state.Axis) * 0.01
	if ev.DeltaY > 0 {
		step = -step
	}
	state, err := w.v.Section.SetOffset(ctx, state.Offset+step)
	return state, true, err
}
