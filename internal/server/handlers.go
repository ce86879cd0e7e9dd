package server

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/philipparndt/gobim/internal/engine"
	"github.com/philipparndt/gobim/internal/propindex"
	"github.com/philipparndt/gobim/internal/scene"
	"github.com/philipparndt/gobim/internal/viewer"
	"github.com/philipparndt/gobim/pkg/geometry"
	"github.com/samber/lo"
)

type modelPayload struct {
	ID           string               `json:"id"`
	Name         string               `json:"name"`
	Description  string               `json:"description,omitempty"`
	Category     string               `json:"category,omitempty"`
	Tags         []string             `json:"tags,omitempty"`
	Author       string               `json:"author,omitempty"`
	Version      string               `json:"version,omitempty"`
	Format       viewer.SourceFormat  `json:"format"`
	Visible      bool                 `json:"visible"`
	ElementCount int                  `json:"elementCount"`
	Bounds       geometry.BoundingBox `json:"bounds"`
	LoadedAt     time.Time            `json:"loadedAt"`
}

func toModelPayload(rec viewer.ModelRecord) modelPayload {
	return modelPayload{
		ID:           rec.ID,
		Name:         rec.DisplayName,
		Description:  rec.Description,
		Category:     rec.Category,
		Tags:         rec.Tags,
		Author:       rec.Author,
		Version:      rec.Version,
		Format:       rec.SourceFormat,
		Visible:      rec.Visible,
		ElementCount: rec.ElementCount,
		Bounds:       rec.Model.BoundingBox(),
		LoadedAt:     rec.LoadedAt,
	}
}

type descriptorPayload struct {
	viewer.Descriptor
	Loaded  bool `json:"loaded"`
	Loading bool `json:"loading"`
}

func (s *Server) project(c fiber.Ctx) error {
	reg := s.session.Viewer.Registry
	models := lo.Map(s.session.Descriptors(), func(d viewer.Descriptor, _ int) descriptorPayload {
		_, loaded := reg.Get(d.ID)
		return descriptorPayload{Descriptor: d, Loaded: loaded, Loading: reg.Loading(d.ID)}
	})
	return c.JSON(fiber.Map{
		"project": s.session.Config().Project,
		"models":  models,
	})
}

func (s *Server) listModels(c fiber.Ctx) error {
	reg := s.session.Viewer.Registry
	return c.JSON(fiber.Map{
		"models":    lo.Map(reg.Models(), func(rec viewer.ModelRecord, _ int) modelPayload { return toModelPayload(rec) }),
		"anyLoaded": reg.AnyLoaded(),
	})
}

func (s *Server) loadModel(c fiber.Ctx) error {
	rec, err := s.session.Load(c.Context(), c.Params("id"))
	if err != nil {
		return failErr(c, err)
	}
	return c.Status(http.StatusCreated).JSON(toModelPayload(rec))
}

func (s *Server) toggleModel(c fiber.Ctx) error {
	visible, err := s.session.Viewer.Registry.ToggleVisibility(c.Context(), c.Params("id"))
	if err != nil {
		return failErr(c, err)
	}
	return c.JSON(fiber.Map{"id": c.Params("id"), "visible": visible})
}

func (s *Server) removeModel(c fiber.Ctx) error {
	if err := s.session.Viewer.Registry.Remove(c.Context(), c.Params("id")); err != nil {
		return failErr(c, err)
	}
	return c.SendStatus(http.StatusNoContent)
}

func (s *Server) clearModels(c fiber.Ctx) error {
	s.session.Viewer.Registry.Clear(c.Context())
	return c.SendStatus(http.StatusNoContent)
}

func (s *Server) downloadModel(c fiber.Ctx) error {
	dl, err := s.session.Viewer.Registry.Download(c.Params("id"))
	if err != nil {
		return failErr(c, err)
	}
	c.Attachment(dl.FileName)
	c.Set("Content-Type", "application/octet-stream")
	return c.Send(dl.Bytes)
}

type pickRequest struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// pick resolves a click. A width and height resize the viewport first so
// the client's canvas and the server camera agree.
func (s *Server) pick(c fiber.Ctx) error {
	var req pickRequest
	if err := decode(c, &req); err != nil {
		return fail(c, http.StatusBadRequest, err)
	}
	v := s.session.Viewer
	if req.Width > 0 && req.Height > 0 {
		v.World.SetViewport(scene.Viewport{Width: req.Width, Height: req.Height})
	}
	state, err := v.Selection.Click(c.Context(), engine.Pointer{X: req.X, Y: req.Y})
	if err != nil {
		return failErr(c, err)
	}
	return c.JSON(state)
}

func (s *Server) selection(c fiber.Ctx) error {
	return c.JSON(s.session.Viewer.Selection.Selected())
}

type selectRequest struct {
	ModelID string `json:"modelId"`
	LocalID int64  `json:"localId"`
}

func (s *Server) selectElement(c fiber.Ctx) error {
	var req selectRequest
	if err := decode(c, &req); err != nil {
		return fail(c, http.StatusBadRequest, err)
	}
	state, err := s.session.Viewer.Selection.Select(c.Context(), req.ModelID, req.LocalID)
	if err != nil {
		return failErr(c, err)
	}
	return c.JSON(state)
}

func (s *Server) clearSelection(c fiber.Ctx) error {
	s.session.Viewer.Selection.Clear(c.Context())
	return c.SendStatus(http.StatusNoContent)
}

func (s *Server) classification(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"groups": s.session.Viewer.Classification.Groups()})
}

func (s *Server) showAll(c fiber.Ctx) error {
	cls := s.session.Viewer.Classification
	cls.ShowAll(c.Context())
	return c.JSON(fiber.Map{"groups": cls.Groups()})
}

func (s *Server) toggleExpanded(c fiber.Ctx) error {
	expanded, err := s.session.Viewer.Classification.ToggleExpanded(c.Params("group"))
	if err != nil {
		return failErr(c, err)
	}
	return c.JSON(fiber.Map{"group": c.Params("group"), "expanded": expanded})
}

func (s *Server) toggleCategory(c fiber.Ctx) error {
	category, err := url.PathUnescape(c.Params("category"))
	if err != nil {
		return fail(c, http.StatusBadRequest, err)
	}
	visible, err := s.session.Viewer.Classification.ToggleCategory(c.Context(), c.Params("group"), category)
	if err != nil {
		return failErr(c, err)
	}
	return c.JSON(fiber.Map{"group": c.Params("group"), "category": category, "visible": visible})
}

type sectionPayload struct {
	viewer.SectionState
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step"`
}

func (s *Server) sectionJSON(c fiber.Ctx, st viewer.SectionState) error {
	return c.JSON(sectionPayload{
		SectionState: st,
		Min:          st.Min(),
		Max:          st.Max(),
		Step:         s.session.Viewer.Section.Step(),
	})
}

func (s *Server) section(c fiber.Ctx) error {
	return s.sectionJSON(c, s.session.Viewer.Section.State())
}

type activateRequest struct {
	ModelID string `json:"modelId"`
}

func (s *Server) activateSection(c fiber.Ctx) error {
	var req activateRequest
	if err := decode(c, &req); err != nil {
		return fail(c, http.StatusBadRequest, err)
	}
	v := s.session.Viewer
	var model engine.Model
	if req.ModelID != "" {
		rec, ok := v.Registry.Get(req.ModelID)
		if !ok {
			return failErr(c, viewer.ErrModelNotFound)
		}
		model = rec.Model
	}
	st, err := v.Section.Activate(c.Context(), model)
	if err != nil {
		return failErr(c, err)
	}
	return s.sectionJSON(c, st)
}

func (s *Server) deactivateSection(c fiber.Ctx) error {
	return s.sectionJSON(c, s.session.Viewer.Section.Deactivate(c.Context()))
}

type axisRequest struct {
	Axis string `json:"axis"`
}

func (s *Server) sectionAxis(c fiber.Ctx) error {
	var req axisRequest
	if err := decode(c, &req); err != nil {
		return fail(c, http.StatusBadRequest, err)
	}
	axis, err := geometry.ParseAxis(req.Axis)
	if err != nil {
		return fail(c, http.StatusBadRequest, err)
	}
	st, err := s.session.Viewer.Section.SetAxis(c.Context(), axis)
	if err != nil {
		return failErr(c, err)
	}
	return s.sectionJSON(c, st)
}

type offsetRequest struct {
	Offset float64 `json:"offset"`
}

func (s *Server) sectionOffset(c fiber.Ctx) error {
	var req offsetRequest
	if err := decode(c, &req); err != nil {
		return fail(c, http.StatusBadRequest, err)
	}
	st, err := s.session.Viewer.Section.SetOffset(c.Context(), req.Offset)
	if err != nil {
		return failErr(c, err)
	}
	return s.sectionJSON(c, st)
}

type wheelRequest struct {
	DeltaY float64 `json:"deltaY"`
}

func (s *Server) sectionWheel(c fiber.Ctx) error {
	var req wheelRequest
	if err := decode(c, &req); err != nil {
		return fail(c, http.StatusBadRequest, err)
	}
	ev := &viewer.WheelEvent{DeltaY: req.DeltaY}
	st, handled, err := s.session.Viewer.Wheel.Handle(c.Context(), ev)
	if err != nil {
		return failErr(c, err)
	}
	return c.JSON(fiber.Map{
		"section":          st,
		"handled":          handled,
		"defaultPrevented": ev.DefaultPrevented(),
	})
}

func (s *Server) search(c fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit"))
	matches, err := s.session.Index.Search(c.Context(), c.Query("q"), limit)
	if err != nil {
		return failErr(c, err)
	}
	if matches == nil {
		matches = []propindex.Match{}
	}
	return c.JSON(fiber.Map{"matches": matches})
}
