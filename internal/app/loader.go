package app

import (
	"context"
	"errors"
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"github.com/philipparndt/gobim/internal/viewer"
)

// connect redraws on every scene update and rebuilds the panels on every
// registry change. Both listeners fire on worker goroutines.
func (app *App) connect() {
	app.session.Viewer.Scene().OnUpdate(func(uint64) {
		fyne.Do(app.view.Refresh)
	})
	app.session.Viewer.Registry.OnChange(func(_ context.Context, ev viewer.ChangeEvent) {
		fyne.Do(func() {
			if ev.Kind == viewer.ChangeLoaded && !app.Camera.fitted {
				app.rememberCamera()
			}
			if ev.Kind == viewer.ChangeCleared {
				app.Camera.fitted = false
			}
			app.refreshPanels()
			// the camera may have been fitted after the scene update
			app.view.Refresh()
		})
	})
}

// loadInitial loads the configured models and the files given on the
// command line
func (app *App) loadInitial(files []string) {
	app.FileWatch.loading.Add(1)
	fyne.Do(app.refreshStatus)

	var errs []error
	for _, r := range app.session.LoadConfigured(app.ctx) {
		if r.Err != nil {
			app.log.Warn("model not loaded", "model", r.ID, "error", r.Err)
			errs = append(errs, r.Err)
		}
	}
	for _, f := range files {
		if _, err := app.session.AddFile(app.ctx, f); err != nil {
			app.log.Warn("file not loaded", "path", f, "error", err)
			errs = append(errs, err)
		}
	}

	app.FileWatch.loading.Add(-1)
	fyne.Do(func() {
		app.refreshPanels()
		if len(errs) > 0 {
			dialog.ShowError(errors.Join(errs...), app.window)
		}
	})
}

// background runs a viewer operation off the UI goroutine and refreshes the
// panels when it is done. Must be called from the UI goroutine.
func (app *App) background(what string, fn func() error) {
	app.FileWatch.loading.Add(1)
	app.refreshStatus()
	go func() {
		err := fn()
		app.FileWatch.loading.Add(-1)
		fyne.Do(func() {
			app.refreshPanels()
			if err != nil {
				app.log.Warn("operation failed", "op", what, "error", err)
				dialog.ShowError(fmt.Errorf("%s: %w", what, err), app.window)
			}
		})
	}()
}

// setupFileWatcher reloads the config and local model files when they
// change on disk
func (app *App) setupFileWatcher() error {
	if err := app.session.Watch(app.ctx); err != nil {
		return err
	}
	app.FileWatch.watching = true
	app.refreshStatus()
	app.log.Info("watching for changes", "config", app.session.Config().Path)
	return nil
}
