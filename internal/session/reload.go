package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/philipparndt/gobim/internal/config"
	"github.com/philipparndt/gobim/internal/viewer"
	"github.com/philipparndt/gobim/pkg/watcher"
	"github.com/samber/lo"
)

// Watch starts hot reload until ctx is done. A changed config file adds,
// replaces and removes models; a changed local model file reloads that
// model.
func (s *Session) Watch(ctx context.Context) error {
	cfg := s.Config()
	fw, err := watcher.NewFileWatcher(cfg.WatchDebounce(), s.log)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	if cfg.Path != "" {
		if err := fw.Watch([]string{cfg.Path}, func(string) {
			s.log.Info("config changed, reloading", "path", cfg.Path)
			_ = s.ReloadConfig(ctx)
		}); err != nil {
			fw.Close()
			return fmt.Errorf("failed to watch config: %w", err)
		}
	}

	s.mu.Lock()
	if s.watcher != nil {
		s.mu.Unlock()
		fw.Close()
		return errors.New("already watching")
	}
	s.watcher = fw
	s.ctx = ctx
	s.mu.Unlock()

	fw.Start(ctx)
	s.watchModels()
	return nil
}

// watchModels watches the local files of loaded models and forgets the
// files of models that are gone
func (s *Session) watchModels() {
	reg := s.Viewer.Registry

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher == nil {
		return
	}

	for _, rec := range reg.Models() {
		path, err := s.Fetcher.Resolve(rec.URL)
		if err != nil || path == "" {
			continue
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			continue
		}
		if _, ok := s.watched[abs]; ok {
			continue
		}
		id, ctx := rec.ID, s.ctx
		if err := s.watcher.Watch([]string{abs}, func(string) { _ = s.ReloadModel(ctx, id) }); err != nil {
			s.log.Warn("cannot watch model file", "model", id, "path", abs, "error", err)
			continue
		}
		s.watched[abs] = id
		s.log.Debug("watching model file", "model", id, "path", abs)
	}

	for path, id := range s.watched {
		if _, ok := reg.Get(id); ok || reg.Loading(id) {
			continue
		}
		if err := s.watcher.Unwatch(path); err != nil {
			s.log.Warn("cannot unwatch model file", "path", path, "error", err)
		}
		delete(s.watched, path)
	}
}

// ReloadModel replaces a loaded model with a fresh load of its descriptor.
// The model's visibility is kept. A reload while the model is loading is
// skipped.
func (s *Session) ReloadModel(ctx context.Context, id string) error {
	d, ok := s.Descriptor(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDescriptor, id)
	}
	reg := s.Viewer.Registry
	if reg.Loading(id) {
		s.log.Debug("reload skipped, load in progress", "model", id)
		return nil
	}

	s.log.Info("reloading model", "model", id)
	visible := true
	if rec, ok := reg.Get(id); ok {
		visible = rec.Visible
		if err := reg.Remove(ctx, id); err != nil && !errors.Is(err, viewer.ErrModelNotFound) {
			return err
		}
	}

	if _, err := reg.Load(ctx, d); err != nil {
		s.log.Error("reload failed", "model", id, "error", err)
		return err
	}
	if !visible {
		if _, err := reg.ToggleVisibility(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// ReloadConfig re-reads the config file and reconciles the loaded models:
// dropped models are removed, models whose source changed are reloaded and
// new or newly visible models are loaded. An invalid file keeps the current
// config.
func (s *Session) ReloadConfig(ctx context.Context) error {
	old := s.Config()
	if old.Path == "" {
		return nil
	}
	cfg, err := config.Load(old.Path)
	if err != nil {
		s.log.Error("config reload failed, keeping the current config", "error", err)
		return err
	}

	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()

	reg := s.Viewer.Registry
	prev := lo.KeyBy(old.Models, func(d viewer.Descriptor) string { return d.ID })
	next := lo.KeyBy(cfg.Models, func(d viewer.Descriptor) string { return d.ID })

	var errs []error
	for _, d := range old.Models {
		if _, ok := next[d.ID]; ok {
			continue
		}
		if _, loaded := reg.Get(d.ID); loaded {
			errs = append(errs, reg.Remove(ctx, d.ID))
		}
	}

	for _, d := range cfg.Models {
		p, existed := prev[d.ID]
		_, loaded := reg.Get(d.ID)
		switch {
		case loaded && existed && (p.URL != d.URL || p.Type != d.Type):
			errs = append(errs, s.ReloadModel(ctx, d.ID))
		case !loaded && d.Visible && (!existed || !p.Visible):
			if _, err := reg.Load(ctx, d); err != nil {
				s.log.Error("failed to load configured model", "model", d.ID, "error", err)
				errs = append(errs, err)
			}
		}
	}

	s.watchModels()
	s.log.Info("config reloaded", "models", len(cfg.Models), "loaded", len(reg.Models()))
	return errors.Join(errs...)
}
