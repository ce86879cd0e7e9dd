package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/philipparndt/gobim/internal/config"
	"github.com/philipparndt/gobim/internal/session"
)

// loadConfig reads --config or falls back to the defaults
func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

// openSessionFor opens a session and loads the visible configured models.
// Failed models are logged and skipped.
func openSessionFor(ctx context.Context, cfg *config.Config) (*session.Session, error) {
	sess, err := session.Open(ctx, cfg, slog.Default())
	if err != nil {
		return nil, err
	}
	for _, res := range sess.LoadConfigured(ctx) {
		if res.Err != nil {
			slog.Warn("model skipped", "model", res.ID, "error", res.Err)
		}
	}
	return sess, nil
}

// openSession loads files, or the configured models when no files are
// given. At least one model must load.
func openSession(ctx context.Context, files []string) (*session.Session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	var sess *session.Session
	if len(files) == 0 {
		sess, err = openSessionFor(ctx, cfg)
	} else {
		sess, err = session.Open(ctx, cfg, slog.Default())
	}
	if err != nil {
		return nil, err
	}

	for _, file := range files {
		if abs, err := filepath.Abs(file); err == nil {
			file = abs
		}
		if _, err := sess.AddFile(ctx, file); err != nil {
			sess.Close()
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	if !sess.Viewer.Registry.AnyLoaded() {
		sess.Close()
		return nil, errors.New("no models loaded, pass model files or a config with visible models")
	}
	return sess, nil
}
