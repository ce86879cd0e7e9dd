// Package app is the desktop viewer: a fyne window around a viewer session
// with the scene view, the model list, the classification tree, the
// selection properties and the section tool.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"github.com/philipparndt/gobim/internal/config"
	"github.com/philipparndt/gobim/internal/session"
	"github.com/philipparndt/gobim/version"
)

// ID identifies the application to fyne preferences and storage
const ID = "io.github.philipparndt.gobim"

// Options configures Run
type Options struct {
	Config *config.Config
	// Files are opened in addition to the configured models
	Files []string
	Watch bool
	Log   *slog.Logger
}

// App is the desktop viewer state
type App struct {
	ctx     context.Context
	session *session.Session
	log     *slog.Logger
	fyne    fyne.App
	window  fyne.Window
	view    *SceneView

	Camera      CameraState
	View        ViewSettings
	Interaction InteractionState
	FileWatch   FileWatchState
	UI          UIState
}

// Run opens the session and blocks until the window is closed or ctx is
// cancelled
func Run(ctx context.Context, opts Options) error {
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sess, err := session.Open(ctx, opts.Config, opts.Log)
	if err != nil {
		return err
	}
	defer sess.Close()

	a := fyneapp.NewWithID(ID)
	w := a.NewWindow(windowTitle(sess.Config()))
	app := newApp(ctx, sess, a, w, opts.Log)

	go func() {
		<-ctx.Done()
		fyne.Do(a.Quit)
	}()

	go app.loadInitial(opts.Files)
	if opts.Watch || sess.Config().Viewer.Watch {
		if err := app.setupFileWatcher(); err != nil {
			app.log.Warn("failed to set up file watching, auto-reload will not be available", "error", err)
		}
	}

	w.Resize(fyne.NewSize(1400, 900))
	w.ShowAndRun()
	return nil
}

// newApp builds the window content and connects it to the session
func newApp(ctx context.Context, sess *session.Session, a fyne.App, w fyne.Window, log *slog.Logger) *App {
	app := &App{
		ctx:     ctx,
		session: sess,
		log:     log.With("component", "app"),
		fyne:    a,
		window:  w,
		View: ViewSettings{
			showWireframe: false,
			showFilled:    true,
			showGrid:      true,
		},
	}
	app.view = newSceneView(app)
	w.SetContent(app.buildUI())
	app.connect()
	app.refreshPanels()
	return app
}

func windowTitle(cfg *config.Config) string {
	if cfg.Project.Name == "" {
		return fmt.Sprintf("gobim %s", version.GetVersion())
	}
	return fmt.Sprintf("%s - gobim %s", cfg.Project.Name, version.GetVersion())
}
