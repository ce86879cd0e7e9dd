package viewer

import (
	"context"
	"image/color"
	"math"
	"sync"

	"github.com/philipparndt/gobim/internal/engine"
	"github.com/philipparndt/gobim/internal/scene"
	"github.com/philipparndt/gobim/pkg/geometry"
	"github.com/philipparndt/gobim/pkg/viewer"
)

// SectionHelperID is the scene id of the translucent section plane
const SectionHelperID = "section-helper"

// helperLift lifts the helper off the cut faces. Helpers ignore the global
// clip planes.
const helperLift = 0.01

// SectionState is a snapshot of the section tool
type SectionState struct {
	Axis      geometry.Axis        `json:"axis"`
	Offset    float64              `json:"offset"`
	Bounds    geometry.BoundingBox `json:"bounds"`
	Center    geometry.Vector3     `json:"center"`
	Size      geometry.Vector3     `json:"size"`
	HasBounds bool                 `json:"hasBounds"`
	Active    bool                 `json:"active"`
	ModelID   string               `json:"modelId,omitempty"`
}

// Min returns the lower limit of the offset
func (s SectionState) Min() float64 { return s.Bounds.Min.Component(s.Axis) }

// Max returns the upper limit of the offset
func (s SectionState) Max() float64 { return s.Bounds.Max.Component(s.Axis) }

// Section owns the single cutting plane
type Section struct {
	v *Viewer

	mu     sync.Mutex
	state  SectionState
	model  engine.Model
	helper *scene.Object
}

func newSection(v *Viewer) *Section {
	return &Section{v: v, state: SectionState{Axis: geometry.AxisY}}
}

// State returns a snapshot
func (s *Section) State() SectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// defaultOffset starts at the top for Y and in the middle for X and Z
func defaultOffset(axis geometry.Axis, bounds geometry.BoundingBox) float64 {
	if axis == geometry.AxisY {
		return bounds.Max.Y
	}
	return bounds.Center().Component(axis)
}

// attach stores the reference model and its bounds. Callers hold s.mu.
func (s *Section) attach(model engine.Model) bool {
	bounds := model.BoundingBox()
	if bounds.IsEmpty() {
		return false
	}
	s.model = model
	s.state.ModelID = model.ID()
	s.state.Bounds = bounds
	s.state.Center = bounds.Center()
	s.state.Size = bounds.Size()
	s.state.HasBounds = true
	s.state.Offset = defaultOffset(s.state.Axis, bounds)
	return true
}

// Attach computes the bounds of model without activating the section
func (s *Section) Attach(model engine.Model) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.attach(model) {
		return ErrNoSectionBounds
	}
	return nil
}

// AttachIfUnset attaches model when no reference model is set. It reports
// whether a reference model is set afterwards.
func (s *Section) AttachIfUnset(model engine.Model) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.model == nil {
		s.attach(model)
	}
	return s.model != nil
}

// Activate installs the cutting plane for model, or for the attached model
// when model is nil, and moves the camera to the canonical view
func (s *Section) Activate(ctx context.Context, model engine.Model) (SectionState, error) {
	s.mu.Lock()
	if model != nil && model != s.model {
		if s.state.Active {
			s.clearPlanes()
		}
		if !s.attach(model) {
			s.mu.Unlock()
			return s.State(), ErrNoSectionBounds
		}
	}
	if !s.state.HasBounds {
		s.mu.Unlock()
		return s.State(), ErrNoSectionBounds
	}
	s.state.Offset = defaultOffset(s.state.Axis, s.state.Bounds)
	s.state.Active = true
	s.applyPlane()
	s.moveCamera()
	state := s.state
	s.mu.Unlock()

	s.v.refresh(ctx)
	return state, nil
}

// SetAxis switches the cutting axis, resets the offset to the axis default
// and moves the camera. Selecting the current axis does nothing.
func (s *Section) SetAxis(ctx context.Context, axis geometry.Axis) (SectionState, error) {
	if axis < geometry.AxisX || axis > geometry.AxisZ {
		return s.State(), ErrInvalidAxis
	}
	s.mu.Lock()
	if axis == s.state.Axis {
		state := s.state
		s.mu.Unlock()
		return state, nil
	}
	s.state.Axis = axis
	if !s.state.HasBounds {
		state := s.state
		s.mu.Unlock()
		return state, nil
	}
	s.state.Offset = defaultOffset(axis, s.state.Bounds)
	s.moveCamera()
	if s.state.Active {
		s.applyPlane()
	}
	state := s.state
	s.mu.Unlock()

	s.v.refresh(ctx)
	return state, nil
}

// SetOffset moves the plane, clamped to the bounds along the axis. NaN and
// infinite values are rejected.
func (s *Section) SetOffset(ctx context.Context, value float64) (SectionState, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return s.State(), ErrInvalidOffset
	}
	s.mu.Lock()
	if !s.state.HasBounds {
		s.mu.Unlock()
		return s.State(), ErrNoSectionBounds
	}
	s.state.Offset = s.state.Bounds.Clamp(s.state.Axis, value)
	if s.state.Active {
		s.applyPlane()
	}
	state := s.state
	s.mu.Unlock()

	s.v.refresh(ctx)
	return state, nil
}

// Deactivate removes the plane and the helper. Bounds stay cached.
func (s *Section) Deactivate(ctx context.Context) SectionState {
	s.mu.Lock()
	s.state.Active = false
	s.clearPlanes()
	state := s.state
	s.mu.Unlock()

	s.v.refresh(ctx)
	return state
}

// Reset deactivates and forgets the reference model
func (s *Section) Reset(ctx context.Context) {
	s.mu.Lock()
	s.clearPlanes()
	s.model = nil
	s.state = SectionState{Axis: s.state.Axis}
	s.mu.Unlock()

	s.v.refresh(ctx)
}

// Release resets the section if modelID is its reference model
func (s *Section) Release(ctx context.Context, modelID string) bool {
	s.mu.Lock()
	ref := s.model != nil && s.model.ID() == modelID
	s.mu.Unlock()
	if !ref {
		return false
	}
	s.Reset(ctx)
	return true
}

// Step returns the wheel step along the current axis
func (s *Section) Step() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Size.Component(s.state.Axis) * 0.01
}

// applyPlane replaces the plane on the renderer and on every clippable
// material of the model, and replaces the helper. Callers hold s.mu.
func (s *Section) applyPlane() {
	plane := geometry.SectionPlane(s.state.Axis, s.state.Offset)
	sc := s.v.Scene()
	sc.SetClippingPlanes([]geometry.Plane{plane})
	sc.Mutate(func() { setMaterialPlanes(s.model, []geometry.Plane{plane}) })

	s.helper = helperPlane(s.state.Axis, s.state.Offset, s.state.Bounds)
	sc.Add(s.helper)
}

// clearPlanes removes all clipping and the helper. Callers hold s.mu.
func (s *Section) clearPlanes() {
	sc := s.v.Scene()
	sc.SetClippingPlanes(nil)
	sc.Mutate(func() { setMaterialPlanes(s.model, nil) })
	if s.helper != nil {
		sc.Remove(SectionHelperID)
		s.helper = nil
	}
}

func setMaterialPlanes(model engine.Model, planes []geometry.Plane) {
	if model == nil {
		return
	}
	for _, mat := range model.Object().Materials {
		if !mat.Clippable {
			continue
		}
		mat.ClippingPlanes = planes
		mat.NeedsUpdate = true
	}
}

// moveCamera looks at the model center from the canonical direction of the
// axis. Callers hold s.mu.
func (s *Section) moveCamera() {
	axis, bounds := s.state.Axis, s.state.Bounds
	s.v.World.UpdateCamera(func(c *viewer.Camera) {
		c.CanonicalView(axis, bounds)
	})
}

// helperPlane builds a translucent square perpendicular to axis spanning
// 1.5 times the cross section of bounds
func helperPlane(axis geometry.Axis, offset float64, bounds geometry.BoundingBox) *scene.Object {
	center := bounds.Center()
	size := bounds.Size()

	var u, w geometry.Axis
	switch axis {
	case geometry.AxisX:
		u, w = geometry.AxisZ, geometry.AxisY
	case geometry.AxisY:
		u, w = geometry.AxisX, geometry.AxisZ
	default:
		u, w = geometry.AxisX, geometry.AxisY
	}
	halfU := size.Component(u) * 1.5 / 2
	halfW := size.Component(w) * 1.5 / 2
	origin := center.WithComponent(axis, offset+helperLift)

	corner := func(su, sw float64) geometry.Vector3 {
		p := origin.WithComponent(u, origin.Component(u)+su*halfU)
		return p.WithComponent(w, p.Component(w)+sw*halfW)
	}
	a, b, c, d := corner(-1, -1), corner(1, -1), corner(1, 1), corner(-1, 1)

	mat := &scene.Material{
		Name:        "section",
		Color:       color.RGBA{R: 0x3b, G: 0x82, B: 0xf6, A: 255},
		Opacity:     0.1,
		Transparent: true,
	}
	return &scene.Object{
		ID:        SectionHelperID,
		Name:      "Section plane",
		Kind:      "helper",
		Visible:   true,
		Materials: []*scene.Material{mat},
		Mesh:      []geometry.Triangle{face(a, b, c), face(a, c, d)},
	}
}

func face(a, b, c geometry.Vector3) geometry.Triangle {
	t := geometry.Triangle{V1: a, V2: b, V3: c}
	t.Normal = t.CalculateNormal()
	return t
}
