package viewer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/philipparndt/gobim/internal/engine"
	"github.com/philipparndt/gobim/internal/scene"
	"github.com/philipparndt/gobim/pkg/geometry"
)

// fakeModel is an engine.Model with scripted answers
type fakeModel struct {
	id   string
	obj  *scene.Object
	bbox geometry.BoundingBox
	cats map[string][]engine.ElementRef

	mu           sync.Mutex
	hit          *engine.Hit
	raycastErr   error
	raycastGate  chan struct{}
	raycastEnter chan struct{}
	raycasts     int
	catErr       map[string]error
	categoryErr  error
	itemsErr     error
	names        map[int64]string
	psets        map[int64][]engine.ItemData
	highlighted  map[int64]bool
	hidden       map[int64]bool
	visibleCalls int
}

func newFakeModel(id string, cats map[string][]engine.ElementRef) *fakeModel {
	return &fakeModel{
		id: id,
		obj: &scene.Object{
			ID:      id,
			Kind:    "model",
			Visible: true,
			Materials: []*scene.Material{
				{Name: "solid", Clippable: true},
				{Name: "lines"},
			},
		},
		bbox:        geometry.BoxFromPoints(geometry.NewVector3(0, 0, 0), geometry.NewVector3(10, 4, 6)),
		cats:        cats,
		catErr:      map[string]error{},
		names:       map[int64]string{},
		psets:       map[int64][]engine.ItemData{},
		highlighted: map[int64]bool{},
		hidden:      map[int64]bool{},
	}
}

// numeric builds n numeric refs starting at first
func numeric(first, n int64) []engine.ElementRef {
	refs := make([]engine.ElementRef, n)
	for i := range refs {
		refs[i] = engine.NumericRef(first + int64(i))
	}
	return refs
}

func (m *fakeModel) ID() string                        { return m.id }
func (m *fakeModel) Object() *scene.Object             { return m.obj }
func (m *fakeModel) BoundingBox() geometry.BoundingBox { return m.bbox }

func (m *fakeModel) Categories(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.categoryErr != nil {
		return nil, m.categoryErr
	}
	names := make([]string, 0, len(m.cats))
	for name := range m.cats {
		names = append(names, name)
	}
	// reverse order so sorting is observable
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

func (m *fakeModel) ItemsOfCategory(_ context.Context, cat string) ([]engine.ElementRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.catErr[cat]; err != nil {
		return nil, err
	}
	return m.cats[cat], nil
}

func (m *fakeModel) setHit(h *engine.Hit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hit = h
}

func (m *fakeModel) Raycast(ctx context.Context, _ engine.RaycastInput) (*engine.Hit, error) {
	m.mu.Lock()
	m.raycasts++
	gate, enter := m.raycastGate, m.raycastEnter
	m.raycastGate, m.raycastEnter = nil, nil
	hit, err := m.hit, m.raycastErr
	m.mu.Unlock()

	if gate != nil {
		close(enter)
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return hit, err
}

func (m *fakeModel) Highlight(_ context.Context, ids []int64, _ *scene.Material) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		m.highlighted[id] = true
	}
	return nil
}

func (m *fakeModel) ResetHighlight(_ context.Context, ids []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.highlighted, id)
	}
	return nil
}

func (m *fakeModel) highlightedIDs() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for id := range m.highlighted {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (m *fakeModel) SetVisible(_ context.Context, ids []int64, visible bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.visibleCalls++
	for _, id := range ids {
		if visible {
			delete(m.hidden, id)
		} else {
			m.hidden[id] = true
		}
	}
	return nil
}

func (m *fakeModel) isHidden(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hidden[id]
}

func (m *fakeModel) ItemsData(_ context.Context, ids []int64, q engine.ItemsQuery) ([]engine.ItemData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.itemsErr != nil {
		return nil, m.itemsErr
	}
	var out []engine.ItemData
	for _, id := range ids {
		item := engine.ItemData{LocalID: id, Attributes: map[string]engine.Attribute{}}
		if name, ok := m.names[id]; ok {
			item.Attributes[engine.AttrName] = engine.Attribute{Value: name}
		}
		if _, ok := q.Relations[engine.RelIsDefinedBy]; ok {
			item.Relations = map[string][]engine.ItemData{engine.RelIsDefinedBy: m.psets[id]}
		}
		out = append(out, item)
	}
	return out, nil
}

// fakeEngine hands out prepared models
type fakeEngine struct {
	scene *scene.Scene

	mu         sync.Mutex
	models     map[string]*fakeModel
	loaded     map[string]bool
	disposed   []string
	disposeErr error
	loadErr    error
	loadGate   chan struct{}
	loadEnter  chan struct{}
	loadCalls  int
	updates    int
}

func newFakeEngine(s *scene.Scene, models ...*fakeModel) *fakeEngine {
	e := &fakeEngine{scene: s, models: map[string]*fakeModel{}, loaded: map[string]bool{}}
	for _, m := range models {
		e.models[m.id] = m
	}
	return e
}

func (e *fakeEngine) Load(ctx context.Context, id string, data []byte) (engine.Model, error) {
	e.mu.Lock()
	e.loadCalls++
	gate, enter := e.loadGate, e.loadEnter
	e.loadGate, e.loadEnter = nil, nil
	e.mu.Unlock()
	if gate != nil {
		close(enter)
		<-gate
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.loadErr != nil {
		return nil, e.loadErr
	}
	if !strings.HasPrefix(string(data), "frag:") {
		return nil, errors.New("not a fragment")
	}
	if e.loaded[id] {
		return nil, fmt.Errorf("model %s already instantiated", id)
	}
	m, ok := e.models[id]
	if !ok {
		return nil, fmt.Errorf("no fake model %s", id)
	}
	e.loaded[id] = true
	return m, nil
}

func (e *fakeEngine) Dispose(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.disposed = append(e.disposed, id)
	delete(e.loaded, id)
	return e.disposeErr
}

func (e *fakeEngine) Update(_ context.Context, force bool) error {
	e.mu.Lock()
	e.updates++
	e.mu.Unlock()
	e.scene.Update(force)
	return nil
}

func (e *fakeEngine) updateCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.updates
}

func (e *fakeEngine) loadCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loadCalls
}

func (e *fakeEngine) disposedIDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.disposed...)
}

// fakeImporter prefixes the input, "bad" fails
type fakeImporter struct{}

func (fakeImporter) Import(_ context.Context, data []byte, _ string) ([]byte, error) {
	if string(data) == "bad" {
		return nil, errors.New("syntax error")
	}
	return append([]byte("frag:"), data...), nil
}

type statusErr int

func (s statusErr) Error() string   { return fmt.Sprintf("status %d", int(s)) }
func (s statusErr) HTTPStatus() int { return int(s) }

// fakeFetcher serves bytes by URL
type fakeFetcher struct {
	mu    sync.Mutex
	files map[string][]byte
	errs  map[string]error
	gate  chan struct{}
	enter chan struct{}
}

func (f *fakeFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	f.mu.Lock()
	gate, enter := f.gate, f.enter
	f.gate, f.enter = nil, nil
	data, ok := f.files[location]
	err := f.errs[location]
	f.mu.Unlock()

	if gate != nil {
		close(enter)
		<-gate
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("connection refused")
	}
	return data, nil
}

type harness struct {
	v       *Viewer
	engine  *fakeEngine
	fetcher *fakeFetcher
	a, b    *fakeModel
}

// newHarness prepares model A (Wall 6, Door 4) and model B (Window 5)
func newHarness(t *testing.T) *harness {
	t.Helper()
	a := newFakeModel("A", map[string][]engine.ElementRef{
		"Wall": numeric(1, 6),
		"Door": numeric(7, 4),
	})
	b := newFakeModel("B", map[string][]engine.ElementRef{
		"Window": numeric(40, 5),
	})
	b.bbox = geometry.BoxFromPoints(geometry.NewVector3(20, 0, 0), geometry.NewVector3(30, 3, 3))

	world := scene.NewWorld(scene.New())
	eng := newFakeEngine(world.Scene, a, b)
	fetcher := &fakeFetcher{
		files: map[string][]byte{
			"models/a.ifc":  []byte("ifc-a"),
			"models/b.frag": []byte("frag:b"),
			"models/c.ifc":  []byte("bad"),
		},
		errs: map[string]error{},
	}
	v := New(Options{
		World:    world,
		Engine:   eng,
		Importer: fakeImporter{},
		Fetcher:  fetcher,
	})
	return &harness{v: v, engine: eng, fetcher: fetcher, a: a, b: b}
}

func descA() Descriptor {
	return Descriptor{ID: "A", Name: "house.ifc", URL: "models/a.ifc", Type: FormatIFC, Visible: true, Tags: []string{"arch"}}
}

func descB() Descriptor {
	return Descriptor{ID: "B", Name: "annex.frag", URL: "models/b.frag", Type: FormatFrag, Visible: true}
}

func (h *harness) loadBoth(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	if _, err := h.v.Registry.Load(ctx, descA()); err != nil {
		t.Fatalf("load A: %v", err)
	}
	if _, err := h.v.Registry.Load(ctx, descB()); err != nil {
		t.Fatalf("load B: %v", err)
	}
}
