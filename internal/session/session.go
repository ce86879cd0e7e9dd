// Package session assembles the viewer for a front end: configuration,
// scene, property index, engine, fetcher and viewer, plus hot reload of the
// config file and local model files.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/mitchellh/go-homedir"
	"github.com/philipparndt/gobim/internal/config"
	"github.com/philipparndt/gobim/internal/engine/fragments"
	"github.com/philipparndt/gobim/internal/fetch"
	"github.com/philipparndt/gobim/internal/propindex"
	"github.com/philipparndt/gobim/internal/scene"
	"github.com/philipparndt/gobim/internal/viewer"
	"github.com/philipparndt/gobim/pkg/geometry"
	render "github.com/philipparndt/gobim/pkg/viewer"
	"github.com/philipparndt/gobim/pkg/watcher"
	"github.com/samber/lo"
)

// ErrUnknownDescriptor is returned for model ids missing from the config
var ErrUnknownDescriptor = errors.New("model not configured")

// Session owns everything a front end needs
type Session struct {
	Viewer  *viewer.Viewer
	Index   *propindex.Index
	Engine  *fragments.Engine
	Fetcher *fetch.Fetcher

	log *slog.Logger

	mu      sync.Mutex
	cfg     *config.Config
	extra   []viewer.Descriptor
	watcher *watcher.FileWatcher
	watched map[string]string // model file -> model id
	ctx     context.Context
}

// Open builds a session for cfg. The camera is fitted to the first loaded
// model.
func Open(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Session, error) {
	if log == nil {
		log = slog.Default()
	}
	if cfg == nil {
		cfg = config.Default()
	}

	dsn, err := indexDSN(cfg)
	if err != nil {
		return nil, err
	}
	idx, err := propindex.Open(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open property index: %w", err)
	}

	world := scene.NewWorld(scene.New())
	eng := fragments.New(world.Scene, idx, fragments.Options{Workers: cfg.Viewer.Workers, Log: log})
	fetcher := fetch.New(fetch.Options{BaseDir: cfg.BaseDir, Timeout: cfg.FetchTimeout(), Log: log})

	s := &Session{
		Viewer: viewer.New(viewer.Options{
			World:    world,
			Engine:   eng,
			Importer: eng,
			Fetcher:  fetcher,
			Log:      log,
			Workers:  cfg.Viewer.Workers,
		}),
		Index:   idx,
		Engine:  eng,
		Fetcher: fetcher,
		log:     log,
		cfg:     cfg,
		watched: make(map[string]string),
	}
	s.Viewer.Registry.OnChange(func(ctx context.Context, ev viewer.ChangeEvent) {
		if ev.Kind == viewer.ChangeLoaded && len(s.Viewer.Registry.Models()) == 1 {
			s.FitCamera()
		}
	})
	return s, nil
}

func indexDSN(cfg *config.Config) (string, error) {
	dsn := cfg.Viewer.Index
	if dsn == "" || dsn == propindex.MemoryDSN {
		return propindex.MemoryDSN, nil
	}
	dsn, err := homedir.Expand(dsn)
	if err != nil {
		return "", fmt.Errorf("failed to expand index path: %w", err)
	}
	if !filepath.IsAbs(dsn) {
		dsn = filepath.Join(cfg.BaseDir, dsn)
	}
	return dsn, nil
}

// Config returns the current configuration
func (s *Session) Config() *config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Descriptors returns the configured models followed by the ones added
// from files
func (s *Session) Descriptors() []viewer.Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Concat(s.cfg.Models, s.extra)
}

// Descriptor looks up a model by id
func (s *Session) Descriptor(id string) (viewer.Descriptor, bool) {
	return lo.Find(s.Descriptors(), func(d viewer.Descriptor) bool { return d.ID == id })
}

// LoadConfigured loads every visible model of the config
func (s *Session) LoadConfigured(ctx context.Context) []viewer.LoadResult {
	results := s.Viewer.Registry.LoadConfigured(ctx, s.Config().Models)
	s.watchModels()
	return results
}

// Load loads a configured model by id, regardless of its visible flag
func (s *Session) Load(ctx context.Context, id string) (viewer.ModelRecord, error) {
	d, ok := s.Descriptor(id)
	if !ok {
		return viewer.ModelRecord{}, fmt.Errorf("%w: %s", ErrUnknownDescriptor, id)
	}
	rec, err := s.Viewer.Registry.Load(ctx, d)
	if err == nil {
		s.watchModels()
	}
	return rec, err
}

// AddFile registers a model file that is not part of the config and loads
// it. The id is the file name without extension, made unique if needed.
func (s *Session) AddFile(ctx context.Context, path string) (viewer.ModelRecord, error) {
	name := filepath.Base(path)
	id := strings.TrimSuffix(name, filepath.Ext(name))

	s.mu.Lock()
	if lo.ContainsBy(slices.Concat(s.cfg.Models, s.extra), func(d viewer.Descriptor) bool { return d.ID == id }) {
		id = id + "-" + uuid.NewString()[:8]
	}
	d := viewer.Descriptor{
		ID:      id,
		Name:    name,
		URL:     path,
		Type:    viewer.FormatFromName(name),
		Visible: true,
	}
	s.extra = append(s.extra, d)
	s.mu.Unlock()

	rec, err := s.Viewer.Registry.Load(ctx, d)
	if err != nil {
		s.mu.Lock()
		s.extra = slices.DeleteFunc(s.extra, func(e viewer.Descriptor) bool { return e.ID == id })
		s.mu.Unlock()
		return viewer.ModelRecord{}, err
	}
	s.watchModels()
	return rec, nil
}

// FitCamera points the camera at everything in the scene
func (s *Session) FitCamera() {
	bbox := geometry.NewBoundingBox()
	for _, obj := range s.Viewer.Scene().Objects() {
		if obj.Kind == "model" {
			bbox.Union(obj.BoundingBox())
		}
	}
	if bbox.IsEmpty() {
		return
	}
	s.Viewer.World.UpdateCamera(func(c *render.Camera) { c.Fit(bbox) })
}

// Close stops watching and releases the engine and the index
func (s *Session) Close() error {
	s.mu.Lock()
	fw := s.watcher
	s.watcher = nil
	s.mu.Unlock()

	var errs []error
	if fw != nil {
		errs = append(errs, fw.Close())
	}
	s.Viewer.Registry.Clear(context.Background())
	s.Engine.Close()
	errs = append(errs, s.Index.Close())
	return errors.Join(errs...)
}
