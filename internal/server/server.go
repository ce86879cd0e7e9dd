// Package server is the project portal: a fiber app exposing the viewer core
// behind a demo login. Routes are thin adapters over the in-process viewer.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/static"
	"github.com/philipparndt/gobim/internal/session"
	"github.com/philipparndt/gobim/internal/viewer"
	"github.com/philipparndt/gobim/version"
)

// Server serves one session
type Server struct {
	app     *fiber.App
	session *session.Session
	tokens  *TokenStore
	log     *slog.Logger
}

// New creates the portal for sess
func New(sess *session.Session, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	cfg := sess.Config()

	s := &Server{
		app: fiber.New(fiber.Config{
			ReadTimeout:  cfg.ReadTimeout(),
			WriteTimeout: cfg.WriteTimeout(),
			AppName:      "gobim " + version.Version,
		}),
		session: sess,
		tokens:  NewTokenStore(cfg.SessionTTL()),
		log:     log.With("component", "server"),
	}

	s.app.Use(recover.New())
	s.app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	s.routes()
	return s
}

func (s *Server) routes() {
	app := s.app

	app.Get("/health/live", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "alive"})
	})
	app.Get("/health/ready", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
			"models": len(s.session.Viewer.Registry.Models()),
		})
	})

	if dir := s.session.Config().Server.StaticDir; dir != "" {
		app.Use("/files", static.New(dir))
	}

	// login is registered before the authenticated group so the group
	// middleware never sees it
	app.Post("/api/v1/login", s.login)

	api := app.Group("/api/v1", s.requireAuth)
	api.Post("/logout", s.logout)
	api.Get("/project", s.project)

	api.Get("/models", s.listModels)
	api.Delete("/models", s.clearModels)
	api.Post("/models/:id/load", s.loadModel)
	api.Post("/models/:id/toggle", s.toggleModel)
	api.Delete("/models/:id", s.removeModel)
	api.Get("/models/:id/download", s.downloadModel)

	api.Post("/pick", s.pick)
	api.Get("/selection", s.selection)
	api.Post("/selection", s.selectElement)
	api.Delete("/selection", s.clearSelection)

	api.Get("/classification", s.classification)
	api.Post("/classification/show-all", s.showAll)
	api.Post("/classification/:group/expand", s.toggleExpanded)
	api.Post("/classification/:group/items/:category/toggle", s.toggleCategory)

	api.Get("/section", s.section)
	api.Post("/section/activate", s.activateSection)
	api.Post("/section/deactivate", s.deactivateSection)
	api.Post("/section/axis", s.sectionAxis)
	api.Post("/section/offset", s.sectionOffset)
	api.Post("/section/wheel", s.sectionWheel)

	api.Get("/search", s.search)
}

// App returns the fiber app, used by tests
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on the configured address until ctx is done
func (s *Server) Listen(ctx context.Context) error {
	addr := s.session.Config().Server.Addr
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
	}()
	s.log.Info("portal listening", "addr", addr)

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.app.ShutdownWithContext(shutdownCtx)
	}
}

// decode parses an optional JSON body
func decode(c fiber.Ctx, v any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(c.Body(), v); err != nil {
		return errors.New("invalid json")
	}
	return nil
}

func fail(c fiber.Ctx, status int, err error) error {
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

// failErr maps viewer errors to HTTP statuses
func failErr(c fiber.Ctx, err error) error {
	return fail(c, statusOf(err), err)
}

func statusOf(err error) int {
	var loadErr *viewer.LoadError
	switch {
	case errors.Is(err, viewer.ErrModelNotFound),
		errors.Is(err, session.ErrUnknownDescriptor),
		errors.Is(err, viewer.ErrGroupNotFound),
		errors.Is(err, viewer.ErrCategoryNotFound),
		errors.Is(err, viewer.ErrElementNotFound):
		return http.StatusNotFound
	case errors.Is(err, viewer.ErrAlreadyLoaded),
		errors.Is(err, viewer.ErrLoadInProgress),
		errors.Is(err, viewer.ErrLoadSuperseded),
		errors.Is(err, viewer.ErrNoSectionBounds):
		return http.StatusConflict
	case errors.Is(err, viewer.ErrInvalidAxis),
		errors.Is(err, viewer.ErrInvalidOffset):
		return http.StatusBadRequest
	case errors.As(err, &loadErr):
		if loadErr.Reason == viewer.ReasonFetchFailed || loadErr.Reason == viewer.ReasonHTTPStatus {
			return http.StatusBadGateway
		}
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
