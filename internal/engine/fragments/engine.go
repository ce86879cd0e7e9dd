// Package fragments is the in-process engine: it decodes fragment bytes into
// scene objects, answers ray tests against element boxes and serves
// property queries from the property index.
package fragments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/philipparndt/gobim/internal/engine"
	"github.com/philipparndt/gobim/internal/propindex"
	"github.com/philipparndt/gobim/internal/scene"
	"github.com/philipparndt/gobim/pkg/frag"
)

var (
	// ErrUnknownModel is returned for operations on ids that are not loaded
	ErrUnknownModel = errors.New("unknown model")
	// ErrDuplicateModel is returned when loading an id twice
	ErrDuplicateModel = errors.New("model already instantiated")
)

// Options configures an Engine
type Options struct {
	// Workers is the size of the decode/convert pool, defaults to NumCPU
	Workers int
	Log     *slog.Logger
}

// Engine implements engine.Engine and engine.Importer
type Engine struct {
	log   *slog.Logger
	scene *scene.Scene
	index *propindex.Index
	pool  *Pool

	mu     sync.Mutex
	models map[string]*Model
}

var (
	_ engine.Engine   = (*Engine)(nil)
	_ engine.Importer = (*Engine)(nil)
)

// New creates an engine drawing into s and indexing properties into idx
func New(s *scene.Scene, idx *propindex.Index, opts Options) *Engine {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	return &Engine{
		log:    opts.Log.With("component", "fragments"),
		scene:  s,
		index:  idx,
		pool:   NewPool(opts.Workers),
		models: make(map[string]*Model),
	}
}

// Import converts IFC bytes to fragment bytes on the worker pool
func (e *Engine) Import(ctx context.Context, data []byte, name string) ([]byte, error) {
	var out []byte
	err := e.pool.Do(ctx, func() error {
		var err error
		out, err = frag.Import(data, name)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.log.Debug("converted IFC", "name", name, "in", len(data), "out", len(out))
	return out, nil
}

// Load decodes fragment bytes on the worker pool and instantiates the model.
// The model's object is not added to the scene; that is up to the caller.
func (e *Engine) Load(ctx context.Context, id string, data []byte) (engine.Model, error) {
	e.mu.Lock()
	_, exists := e.models[id]
	e.mu.Unlock()
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateModel, id)
	}

	var f *frag.Fragment
	err := e.pool.Do(ctx, func() error {
		var err error
		f, err = frag.Decode(data)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := e.index.IndexModel(ctx, id, f); err != nil {
		return nil, fmt.Errorf("index properties: %w", err)
	}

	m := newModel(id, f, e.scene, e.index)

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.models[id]; exists {
		// lost a race against a concurrent load of the same id
		_ = e.index.DropModel(context.WithoutCancel(ctx), id)
		return nil, fmt.Errorf("%w: %s", ErrDuplicateModel, id)
	}
	e.models[id] = m
	e.log.Debug("model instantiated", "id", id, "elements", len(f.Elements))
	return m, nil
}

// Dispose releases the model and its index rows
func (e *Engine) Dispose(ctx context.Context, id string) error {
	e.mu.Lock()
	m, ok := e.models[id]
	delete(e.models, id)
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownModel, id)
	}

	m.dispose()
	if err := e.index.DropModel(ctx, id); err != nil {
		return fmt.Errorf("drop index of %s: %w", id, err)
	}
	e.log.Debug("model disposed", "id", id)
	return nil
}

// Update flushes the scene
func (e *Engine) Update(ctx context.Context, force bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.scene.Update(force)
	return nil
}

// Model returns an instantiated model
func (e *Engine) Model(id string) (*Model, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.models[id]
	return m, ok
}

// Close stops the worker pool
func (e *Engine) Close() {
	e.pool.Close()
}
