package viewer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/philipparndt/gobim/internal/engine"
	"github.com/philipparndt/gobim/internal/scene"
	"github.com/samber/lo"
)

// ModelRecord is one loaded model
type ModelRecord struct {
	ID           string
	DisplayName  string
	Description  string
	Category     string
	Tags         []string
	Author       string
	Version      string
	SourceFormat SourceFormat
	URL          string
	// RawBytes are the fragment bytes after conversion
	RawBytes     []byte
	Model        engine.Model
	Visible      bool
	ElementCount int
	LoadedAt     time.Time
}

// SceneHandle returns the model's exclusive scene object
func (r ModelRecord) SceneHandle() *scene.Object {
	return r.Model.Object()
}

// ChangeKind tells listeners what happened to the registry
type ChangeKind int

const (
	ChangeLoaded ChangeKind = iota
	ChangeRemoved
	ChangeVisibility
	ChangeCleared
)

// ChangeEvent is passed to registry listeners
type ChangeEvent struct {
	Kind    ChangeKind
	ModelID string
}

// Download is a model's bytes with the file name to save them under
type Download struct {
	FileName string
	Bytes    []byte
}

// Registry maps model ids to loaded models
type Registry struct {
	v *Viewer

	mu        sync.Mutex
	order     []string
	records   map[string]*ModelRecord
	loading   map[string]uint64
	engineIDs map[string]chan struct{}
	gen       uint64
	anyLoaded bool
	listeners []func(context.Context, ChangeEvent)
}

func newRegistry(v *Viewer) *Registry {
	return &Registry{
		v:         v,
		records:   make(map[string]*ModelRecord),
		loading:   make(map[string]uint64),
		engineIDs: make(map[string]chan struct{}),
	}
}

// OnChange registers a listener. Listeners run after the scene update of
// the mutating call, outside all registry locks.
func (r *Registry) OnChange(fn func(context.Context, ChangeEvent)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

func (r *Registry) notify(ctx context.Context, ev ChangeEvent) {
	r.mu.Lock()
	listeners := slices.Clone(r.listeners)
	r.mu.Unlock()
	for _, fn := range listeners {
		fn(ctx, ev)
	}
}

// Load fetches, converts and instantiates the model of a descriptor. On
// failure nothing of the model remains.
func (r *Registry) Load(ctx context.Context, d Descriptor) (ModelRecord, error) {
	log := r.v.Log.With("model", d.ID)

	r.mu.Lock()
	if _, ok := r.records[d.ID]; ok {
		r.mu.Unlock()
		return ModelRecord{}, fmt.Errorf("%w: %s", ErrAlreadyLoaded, d.ID)
	}
	if _, ok := r.loading[d.ID]; ok {
		r.mu.Unlock()
		return ModelRecord{}, fmt.Errorf("%w: %s", ErrLoadInProgress, d.ID)
	}
	r.gen++
	gen := r.gen
	r.loading[d.ID] = gen
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		if r.loading[d.ID] == gen {
			delete(r.loading, d.ID)
		}
		r.mu.Unlock()
	}()

	log.Info("loading model", "url", d.URL, "type", d.Type)
	start := time.Now()

	data, err := r.v.Fetcher.Fetch(ctx, d.URL)
	if err != nil {
		return ModelRecord{}, fetchFailure(d, err)
	}

	if d.Type == FormatIFC {
		data, err = r.v.Importer.Import(ctx, data, d.Name)
		if err != nil {
			return ModelRecord{}, &LoadError{
				ModelID: d.ID,
				Reason:  ReasonConversionFailed,
				Err:     &ConversionError{ModelID: d.ID, Err: err},
			}
		}
	}

	release, err := r.claimEngineID(ctx, d.ID)
	if err != nil {
		return ModelRecord{}, err
	}
	defer release()

	if !r.current(d.ID, gen) {
		return ModelRecord{}, fmt.Errorf("%w: %s", ErrLoadSuperseded, d.ID)
	}

	model, err := r.v.Engine.Load(ctx, d.ID, data)
	if err != nil {
		return ModelRecord{}, &LoadError{ModelID: d.ID, Reason: ReasonInstantiateFailed, Err: err}
	}

	count, err := countElements(ctx, model)
	if err != nil {
		r.dispose(ctx, d.ID)
		return ModelRecord{}, &LoadError{ModelID: d.ID, Reason: ReasonInstantiateFailed, Err: err}
	}

	rec := &ModelRecord{
		ID:           d.ID,
		DisplayName:  lo.Ternary(d.Name != "", d.Name, d.ID),
		Description:  d.Description,
		Category:     d.Category,
		Tags:         slices.Clone(d.Tags),
		Author:       d.Author,
		Version:      d.Version,
		SourceFormat: d.Type,
		URL:          d.URL,
		RawBytes:     data,
		Model:        model,
		Visible:      true,
		ElementCount: count,
		LoadedAt:     time.Now(),
	}

	r.mu.Lock()
	if r.loading[d.ID] != gen {
		r.mu.Unlock()
		r.dispose(ctx, d.ID)
		log.Info("load superseded by removal")
		return ModelRecord{}, fmt.Errorf("%w: %s", ErrLoadSuperseded, d.ID)
	}
	delete(r.loading, d.ID)
	r.records[d.ID] = rec
	r.order = append(r.order, d.ID)
	r.anyLoaded = true
	r.v.Scene().Add(model.Object())
	snapshot := *rec
	r.mu.Unlock()

	r.v.refresh(ctx)
	log.Info("model loaded", "elements", count, "took", time.Since(start))
	r.notify(ctx, ChangeEvent{Kind: ChangeLoaded, ModelID: d.ID})
	return snapshot, nil
}

func fetchFailure(d Descriptor, err error) error {
	fe := &FetchError{URL: d.URL, Err: err}
	reason := ReasonFetchFailed
	var status interface{ HTTPStatus() int }
	if errors.As(err, &status) {
		fe.Status = status.HTTPStatus()
		reason = ReasonHTTPStatus
	}
	return &LoadError{ModelID: d.ID, Reason: reason, Err: fe}
}

// countElements sums the items of all categories
func countElements(ctx context.Context, m engine.Model) (int, error) {
	cats, err := m.Categories(ctx)
	if err != nil {
		return 0, fmt.Errorf("list categories: %w", err)
	}
	total := 0
	for _, cat := range cats {
		items, err := m.ItemsOfCategory(ctx, cat)
		if err != nil {
			return 0, fmt.Errorf("list items of %s: %w", cat, err)
		}
		total += len(items)
	}
	return total, nil
}

// claimEngineID waits until no superseded load still holds id in the engine
// and claims it. release runs once the engine model is recorded or disposed.
func (r *Registry) claimEngineID(ctx context.Context, id string) (release func(), err error) {
	for {
		r.mu.Lock()
		busy, ok := r.engineIDs[id]
		if !ok {
			done := make(chan struct{})
			r.engineIDs[id] = done
			r.mu.Unlock()
			return func() {
				r.mu.Lock()
				delete(r.engineIDs, id)
				r.mu.Unlock()
				close(done)
			}, nil
		}
		r.mu.Unlock()

		select {
		case <-busy:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (r *Registry) current(id string, gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loading[id] == gen
}

func (r *Registry) dispose(ctx context.Context, id string) {
	if err := r.v.Engine.Dispose(context.WithoutCancel(ctx), id); err != nil {
		r.v.Log.Warn("dispose failed", "error", &DisposalError{ModelID: id, Err: err})
	}
}

// LoadResult is the outcome of one descriptor in LoadConfigured
type LoadResult struct {
	ID  string
	Err error
}

// LoadConfigured loads every visible descriptor in order. Loaded models are
// skipped and failures are logged without stopping the batch.
func (r *Registry) LoadConfigured(ctx context.Context, descriptors []Descriptor) []LoadResult {
	var results []LoadResult
	for _, d := range descriptors {
		if !d.Visible {
			continue
		}
		if _, ok := r.Get(d.ID); ok {
			continue
		}
		_, err := r.Load(ctx, d)
		if err != nil {
			r.v.Log.Error("failed to load configured model", "model", d.ID, "name", d.Name, "error", err)
		}
		results = append(results, LoadResult{ID: d.ID, Err: err})
	}
	return results
}

// ToggleVisibility flips the visible flag of a model's scene object and
// returns the new state
func (r *Registry) ToggleVisibility(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	rec, ok := r.records[id]
	if !ok {
		r.mu.Unlock()
		r.v.Log.Warn("toggle visibility of unknown model", "model", id)
		return false, fmt.Errorf("%w: %s", ErrModelNotFound, id)
	}
	rec.Visible = !rec.Visible
	visible := rec.Visible
	obj := rec.Model.Object()
	r.v.Scene().Mutate(func() { obj.Visible = visible })
	r.mu.Unlock()

	r.v.refresh(ctx)
	r.notify(ctx, ChangeEvent{Kind: ChangeVisibility, ModelID: id})
	return visible, nil
}

// Remove unloads a model. A load of the same id that is still in flight is
// invalidated and discards its result.
func (r *Registry) Remove(ctx context.Context, id string) error {
	found, err := r.detach(ctx, id)
	if err != nil {
		return err
	}
	r.v.refresh(ctx)
	if found {
		r.notify(ctx, ChangeEvent{Kind: ChangeRemoved, ModelID: id})
	}
	return nil
}

// detach removes the record, the scene object and the engine model and
// cascades to selection and section. found is false if only a pending load
// was invalidated.
func (r *Registry) detach(ctx context.Context, id string) (found bool, err error) {
	r.mu.Lock()
	_, inflight := r.loading[id]
	delete(r.loading, id)
	_, found = r.records[id]
	if !found {
		r.mu.Unlock()
		if inflight {
			r.v.Log.Info("pending load invalidated", "model", id)
			return false, nil
		}
		return false, fmt.Errorf("%w: %s", ErrModelNotFound, id)
	}
	delete(r.records, id)
	r.order = slices.DeleteFunc(r.order, func(o string) bool { return o == id })
	r.anyLoaded = len(r.records) > 0
	r.mu.Unlock()

	r.v.Scene().Remove(id)
	r.dispose(ctx, id)
	r.v.Selection.ClearIfModel(id)
	r.v.Section.Release(ctx, id)
	r.v.Log.Info("model removed", "model", id)
	return true, nil
}

// Clear removes every model and resets selection and section state
func (r *Registry) Clear(ctx context.Context) {
	r.mu.Lock()
	ids := slices.Clone(r.order)
	clear(r.loading)
	r.mu.Unlock()

	for _, id := range ids {
		if _, err := r.detach(ctx, id); err != nil {
			r.v.Log.Warn("remove failed", "model", id, "error", err)
		}
	}
	r.v.Selection.Clear(ctx)
	r.v.Section.Reset(ctx)
	r.v.refresh(ctx)
	r.notify(ctx, ChangeEvent{Kind: ChangeCleared})
}

// Download returns the bytes of a model and the name to save them under
func (r *Registry) Download(id string) (Download, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return Download{}, fmt.Errorf("%w: %s", ErrModelNotFound, id)
	}
	return Download{
		FileName: DownloadName(rec.DisplayName, rec.SourceFormat),
		Bytes:    rec.RawBytes,
	}, nil
}

// Get returns a snapshot of one record
func (r *Registry) Get(id string) (ModelRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return ModelRecord{}, false
	}
	return *rec, true
}

// Models returns snapshots of all records in load order
func (r *Registry) Models() []ModelRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo.Map(r.order, func(id string, _ int) ModelRecord {
		return *r.records[id]
	})
}

// AnyLoaded reports whether at least one model is loaded
func (r *Registry) AnyLoaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.anyLoaded
}

// Loading reports whether a load of id is in flight
func (r *Registry) Loading(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.loading[id]
	return ok
}
