// Package scene holds the shared scene graph: the renderable objects of all
// loaded models, the renderer's global clip-plane list and the update
// counter front ends use to know when to redraw.
package scene

import (
	"image/color"
	"slices"
	"sync"

	"github.com/philipparndt/gobim/pkg/geometry"
	"github.com/philipparndt/gobim/pkg/viewer"
)

// Material describes how a part is drawn
type Material struct {
	Name        string
	Color       color.RGBA
	Opacity     float64
	Transparent bool
	// Clippable materials honour section planes
	Clippable      bool
	ClippingPlanes []geometry.Plane
	NeedsUpdate    bool
}

// Clone returns a copy that does not share the plane slice
func (m *Material) Clone() *Material {
	c := *m
	c.ClippingPlanes = slices.Clone(m.ClippingPlanes)
	return &c
}

// RGBA returns the draw color with the opacity applied
func (m *Material) RGBA() color.RGBA {
	c := m.Color
	if m.Transparent {
		c.A = uint8(m.Opacity * 255)
	}
	return c
}

// Part is one element drawn as a box
type Part struct {
	ID        int64
	Box       geometry.BoundingBox
	Visible   bool
	Material  *Material
	Highlight *Material
}

// Object is the renderable node of one model or helper
type Object struct {
	ID        string
	Name      string
	Kind      string // "model" or "helper"
	Visible   bool
	Parts     []*Part
	Materials []*Material
	// Mesh is drawn as is, used by helpers
	Mesh []geometry.Triangle
}

// BoundingBox returns the box enclosing all parts and mesh triangles
func (o *Object) BoundingBox() geometry.BoundingBox {
	bbox := geometry.NewBoundingBox()
	for _, p := range o.Parts {
		bbox.Union(p.Box)
	}
	for _, t := range o.Mesh {
		bbox.Extend(t.V1)
		bbox.Extend(t.V2)
		bbox.Extend(t.V3)
	}
	return bbox
}

// Scene is the process wide set of objects and renderer clip planes
type Scene struct {
	mu        sync.RWMutex
	objects   []*Object
	clips     []geometry.Plane
	revision  uint64
	listeners []func(rev uint64)
}

// New creates an empty scene
func New() *Scene {
	return &Scene{}
}

// Add inserts an object; an object with the same id is replaced
func (s *Scene) Add(obj *Object) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, o := range s.objects {
		if o.ID == obj.ID {
			s.objects[i] = obj
			return
		}
	}
	s.objects = append(s.objects, obj)
}

// Remove detaches the object with the given id
func (s *Scene) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, o := range s.objects {
		if o.ID == id {
			s.objects = slices.Delete(s.objects, i, i+1)
			return true
		}
	}
	return false
}

// Contains reports whether an object with the id is attached
func (s *Scene) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.objects {
		if o.ID == id {
			return true
		}
	}
	return false
}

// Objects returns the attached objects in insertion order
func (s *Scene) Objects() []*Object {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.objects)
}

// Mutate runs fn with exclusive access to object, part and material state
func (s *Scene) Mutate(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

// View runs fn with shared access to the attached objects and clip planes.
// fn must not retain or modify them.
func (s *Scene) View(fn func(objects []*Object, clips []geometry.Plane)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.objects, s.clips)
}

// SetClippingPlanes replaces the renderer's global clip-plane list
func (s *Scene) SetClippingPlanes(planes []geometry.Plane) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clips = slices.Clone(planes)
}

// ClippingPlanes returns the renderer's global clip-plane list
func (s *Scene) ClippingPlanes() []geometry.Plane {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.clips)
}

// OnUpdate registers a listener called after every Update
func (s *Scene) OnUpdate(fn func(rev uint64)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Update flushes pending changes. Listeners run outside the lock so they may
// read the scene. force is accepted for parity with engine updates; the
// in-process scene always flushes.
func (s *Scene) Update(force bool) uint64 {
	s.mu.Lock()
	s.revision++
	rev := s.revision
	listeners := slices.Clone(s.listeners)
	for _, o := range s.objects {
		for _, m := range o.Materials {
			m.NeedsUpdate = false
		}
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(rev)
	}
	return rev
}

// Revision returns the number of updates so far
func (s *Scene) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Viewport is the screen rectangle the scene is drawn into
type Viewport struct {
	Left, Top     float64
	Width, Height float64
}

// NDC converts a screen point to normalized device coordinates. ok is false
// for an empty viewport.
func (v Viewport) NDC(x, y float64) (ndcX, ndcY float64, ok bool) {
	if v.Width <= 0 || v.Height <= 0 {
		return 0, 0, false
	}
	ndcX = (x-v.Left)/v.Width*2 - 1
	ndcY = -(y-v.Top)/v.Height*2 + 1
	return ndcX, ndcY, true
}

// Aspect returns width / height
func (v Viewport) Aspect() float64 {
	if v.Height <= 0 {
		return 1
	}
	return v.Width / v.Height
}

// World bundles the scene with the camera and the viewport it is seen through
type World struct {
	Scene *Scene

	mu       sync.RWMutex
	camera   *viewer.Camera
	viewport Viewport
}

// NewWorld creates a world with a default camera and viewport
func NewWorld(s *Scene) *World {
	return &World{
		Scene:    s,
		camera:   viewer.NewCamera(geometry.BoxFromPoints(geometry.NewVector3(-5, -5, -5), geometry.NewVector3(5, 5, 5))),
		viewport: Viewport{Width: 800, Height: 600},
	}
}

// Camera returns a copy of the current camera
func (w *World) Camera() viewer.Camera {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return *w.camera
}

// UpdateCamera mutates the camera under the world lock
func (w *World) UpdateCamera(fn func(c *viewer.Camera)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn(w.camera)
}

// Viewport returns the current viewport
func (w *World) Viewport() Viewport {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.viewport
}

// SetViewport changes the viewport, typically on resize
func (w *World) SetViewport(v Viewport) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.viewport = v
}
