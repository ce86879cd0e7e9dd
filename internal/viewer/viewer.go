// Package viewer is the model viewer core: the registry of loaded models,
// pointer selection, classification by category and the section tool. All
// components share one Viewer, built once by the front end and passed down.
package viewer

import (
	"context"
	"image/color"
	"log/slog"

	"github.com/philipparndt/gobim/internal/engine"
	"github.com/philipparndt/gobim/internal/scene"
)

// Fetcher retrieves model bytes from a descriptor URL
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// Options configures a Viewer
type Options struct {
	World    *scene.World
	Engine   engine.Engine
	Importer engine.Importer
	Fetcher  Fetcher
	Log      *slog.Logger
	// Highlight is the material of the selected element, gold by default
	Highlight *scene.Material
	// Workers bounds concurrent per-model work during classification
	Workers int
}

// Viewer is the context shared by all components
type Viewer struct {
	World    *scene.World
	Engine   engine.Engine
	Importer engine.Importer
	Fetcher  Fetcher
	Log      *slog.Logger

	Registry       *Registry
	Selection      *Selection
	Classification *Classifier
	Section        *Section
	Wheel          *Wheel
}

// HighlightMaterial is the default selection material
func HighlightMaterial() *scene.Material {
	return &scene.Material{
		Name:    "highlight",
		Color:   color.RGBA{R: 255, G: 215, B: 0, A: 255},
		Opacity: 1,
	}
}

// New builds the viewer and connects its components. Classification is
// rebuilt after every load and removal; the first loaded model becomes the
// section reference and the next one takes over when it is removed.
func New(opts Options) *Viewer {
	if opts.World == nil {
		opts.World = scene.NewWorld(scene.New())
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.Highlight == nil {
		opts.Highlight = HighlightMaterial()
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}

	v := &Viewer{
		World:    opts.World,
		Engine:   opts.Engine,
		Importer: opts.Importer,
		Fetcher:  opts.Fetcher,
		Log:      opts.Log,
	}
	v.Registry = newRegistry(v)
	v.Selection = newSelection(v, opts.Highlight)
	v.Classification = newClassifier(v, opts.Workers)
	v.Section = newSection(v)
	v.Wheel = &Wheel{v: v}

	v.Registry.OnChange(func(ctx context.Context, ev ChangeEvent) {
		switch ev.Kind {
		case ChangeLoaded:
			if rec, ok := v.Registry.Get(ev.ModelID); ok {
				v.Section.AttachIfUnset(rec.Model)
			}
			v.Classification.Rebuild(ctx)
		case ChangeRemoved:
			v.attachSection()
			v.Classification.Rebuild(ctx)
		case ChangeCleared:
			v.Classification.Rebuild(ctx)
		}
	})
	return v
}

// attachSection hands the section to the first remaining model with
// geometry once its reference model is gone
func (v *Viewer) attachSection() {
	for _, rec := range v.Registry.Models() {
		if v.Section.AttachIfUnset(rec.Model) {
			return
		}
	}
}

// Scene returns the shared scene
func (v *Viewer) Scene() *scene.Scene {
	return v.World.Scene
}

// refresh flushes the engine so the renderer reflects the new state
func (v *Viewer) refresh(ctx context.Context) {
	if err := v.Engine.Update(context.WithoutCancel(ctx), true); err != nil {
		v.Log.Warn("scene update failed", "error", err)
	}
}
