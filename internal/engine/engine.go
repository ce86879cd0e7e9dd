// Package engine defines the contract between the viewer core and the 3D
// engine that owns model geometry. The viewer never touches geometry
// directly; it loads, queries, ray-tests, highlights and disposes models
// through these interfaces.
package engine

import (
	"context"

	"github.com/philipparndt/gobim/internal/scene"
	"github.com/philipparndt/gobim/pkg/geometry"
	"github.com/philipparndt/gobim/pkg/viewer"
)

// Engine instantiates and disposes models
type Engine interface {
	// Load instantiates fragment bytes as a model registered under id
	Load(ctx context.Context, id string, data []byte) (Model, error)
	// Dispose releases all engine resources of the model
	Dispose(ctx context.Context, id string) error
	// Update flushes pending engine state to the renderer
	Update(ctx context.Context, force bool) error
}

// Importer converts the native exchange format (IFC) into fragment bytes
type Importer interface {
	Import(ctx context.Context, data []byte, name string) ([]byte, error)
}

// Model is one instantiated model
type Model interface {
	ID() string
	// Object is the renderable node inserted in the shared scene
	Object() *scene.Object
	BoundingBox() geometry.BoundingBox

	Categories(ctx context.Context) ([]string, error)
	ItemsOfCategory(ctx context.Context, category string) ([]ElementRef, error)

	// Raycast returns the closest hit of the model or nil
	Raycast(ctx context.Context, in RaycastInput) (*Hit, error)

	Highlight(ctx context.Context, ids []int64, mat *scene.Material) error
	ResetHighlight(ctx context.Context, ids []int64) error
	SetVisible(ctx context.Context, ids []int64, visible bool) error

	ItemsData(ctx context.Context, ids []int64, q ItemsQuery) ([]ItemData, error)
}

// Pointer is a position in screen pixels
type Pointer struct {
	X, Y float64
}

// RaycastInput carries everything a ray test needs
type RaycastInput struct {
	Camera         viewer.Camera
	Pointer        Pointer
	Viewport       scene.Viewport
	ClippingPlanes []geometry.Plane
}

// Ray builds the world ray through the pointer. ok is false if the
// viewport is empty.
func (in RaycastInput) Ray() (geometry.Ray, bool) {
	ndcX, ndcY, ok := in.Viewport.NDC(in.Pointer.X, in.Pointer.Y)
	if !ok {
		return geometry.Ray{}, false
	}
	return in.Camera.RayFromNDC(ndcX, ndcY, in.Viewport.Aspect()), true
}

// Hit is the result of a successful ray test
type Hit struct {
	LocalID  int64
	Distance float64
	Point    geometry.Vector3
}
