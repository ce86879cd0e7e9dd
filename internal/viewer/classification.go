package viewer

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/philipparndt/gobim/internal/engine"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// ClassificationItem is one category of a model
type ClassificationItem struct {
	Category   string  `json:"category"`
	ElementIDs []int64 `json:"elementIds"`
	Visible    bool    `json:"visible"`
	ModelID    string  `json:"modelId"`
}

// ClassificationGroup holds the categories of one model
type ClassificationGroup struct {
	Key      string               `json:"key"`
	Label    string               `json:"label"`
	ModelID  string               `json:"modelId"`
	Items    []ClassificationItem `json:"items"`
	Expanded bool                 `json:"expanded"`
}

// GroupKey returns the group key of a model
func GroupKey(modelID string) string {
	return "model_" + modelID
}

func (g ClassificationGroup) clone() ClassificationGroup {
	c := g
	c.Items = lo.Map(g.Items, func(it ClassificationItem, _ int) ClassificationItem {
		it.ElementIDs = slices.Clone(it.ElementIDs)
		return it
	})
	return c
}

// Classifier groups the elements of every loaded model by category
type Classifier struct {
	v       *Viewer
	workers int

	mu     sync.Mutex
	gen    uint64
	groups []ClassificationGroup
}

func newClassifier(v *Viewer, workers int) *Classifier {
	return &Classifier{v: v, workers: workers}
}

// Groups returns a snapshot of the classification
func (c *Classifier) Groups() []ClassificationGroup {
	c.mu.Lock()
	defer c.mu.Unlock()
	return lo.Map(c.groups, func(g ClassificationGroup, _ int) ClassificationGroup { return g.clone() })
}

// Rebuild recomputes the groups of all loaded models. Models are classified
// concurrently; a failing model or category is logged and skipped. Visible
// and expanded flags survive for groups and categories that still exist.
// A rebuild that finishes after a newer one has started is discarded.
func (c *Classifier) Rebuild(ctx context.Context) error {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	models := c.v.Registry.Models()
	results := make([]*ClassificationGroup, len(models))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, rec := range models {
		g.Go(func() error {
			group, err := c.classify(gctx, rec)
			if err != nil {
				c.v.Log.Warn("classification failed", "model", rec.ID, "error", err)
				return nil
			}
			results[i] = group
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}

	groups := lo.FilterMap(results, func(g *ClassificationGroup, _ int) (ClassificationGroup, bool) {
		if g == nil || len(g.Items) == 0 {
			return ClassificationGroup{}, false
		}
		return *g, true
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		c.v.Log.Debug("discarding stale classification")
		return nil
	}
	previous := lo.KeyBy(c.groups, func(g ClassificationGroup) string { return g.Key })
	for gi := range groups {
		old, ok := previous[groups[gi].Key]
		if !ok {
			continue
		}
		groups[gi].Expanded = old.Expanded
		flags := lo.SliceToMap(old.Items, func(it ClassificationItem) (string, bool) { return it.Category, it.Visible })
		for ii := range groups[gi].Items {
			if visible, ok := flags[groups[gi].Items[ii].Category]; ok {
				groups[gi].Items[ii].Visible = visible
			}
		}
	}
	c.groups = groups
	return nil
}

func (c *Classifier) classify(ctx context.Context, rec ModelRecord) (*ClassificationGroup, error) {
	cats, err := rec.Model.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	group := &ClassificationGroup{
		Key:      GroupKey(rec.ID),
		Label:    rec.DisplayName,
		ModelID:  rec.ID,
		Expanded: true,
	}
	for _, cat := range cats {
		refs, err := rec.Model.ItemsOfCategory(ctx, cat)
		if err != nil {
			c.v.Log.Warn("classification of category failed", "model", rec.ID, "category", cat, "error", err)
			continue
		}
		ids := engine.ResolveAll(ctx, refs)
		if len(ids) == 0 {
			continue
		}
		group.Items = append(group.Items, ClassificationItem{
			Category:   cat,
			ElementIDs: ids,
			Visible:    true,
			ModelID:    rec.ID,
		})
	}
	sort.SliceStable(group.Items, func(i, j int) bool {
		return group.Items[i].Category < group.Items[j].Category
	})
	return group, nil
}

func (c *Classifier) find(groupKey, category string) (gi, ii int, err error) {
	gi = slices.IndexFunc(c.groups, func(g ClassificationGroup) bool { return g.Key == groupKey })
	if gi < 0 {
		return 0, 0, fmt.Errorf("%w: %s", ErrGroupNotFound, groupKey)
	}
	ii = slices.IndexFunc(c.groups[gi].Items, func(it ClassificationItem) bool { return it.Category == category })
	if ii < 0 {
		return 0, 0, fmt.Errorf("%w: %s/%s", ErrCategoryNotFound, groupKey, category)
	}
	return gi, ii, nil
}

// ToggleCategory inverts the visibility of one category of a model and
// returns the new state
func (c *Classifier) ToggleCategory(ctx context.Context, groupKey, category string) (bool, error) {
	c.mu.Lock()
	gi, ii, err := c.find(groupKey, category)
	if err != nil {
		c.mu.Unlock()
		return false, err
	}
	item := c.groups[gi].Items[ii]
	c.mu.Unlock()

	if len(item.ElementIDs) == 0 {
		return item.Visible, nil
	}
	rec, ok := c.v.Registry.Get(item.ModelID)
	if !ok {
		return item.Visible, fmt.Errorf("%w: %s", ErrModelNotFound, item.ModelID)
	}

	visible := !item.Visible
	if err := rec.Model.SetVisible(ctx, item.ElementIDs, visible); err != nil {
		return item.Visible, fmt.Errorf("set visibility of %s/%s: %w", item.ModelID, category, err)
	}
	c.v.refresh(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gi, ii, err := c.find(groupKey, category); err == nil {
		c.groups[gi].Items[ii].Visible = visible
	}
	return visible, nil
}

// ShowAll makes every classified element visible with one call per model
// and a single refresh
func (c *Classifier) ShowAll(ctx context.Context) {
	c.mu.Lock()
	perModel := make(map[string][]int64)
	var order []string
	for _, g := range c.groups {
		for _, it := range g.Items {
			if _, ok := perModel[it.ModelID]; !ok {
				order = append(order, it.ModelID)
			}
			perModel[it.ModelID] = append(perModel[it.ModelID], it.ElementIDs...)
		}
	}
	c.mu.Unlock()

	for _, id := range order {
		rec, ok := c.v.Registry.Get(id)
		if !ok {
			continue
		}
		if err := rec.Model.SetVisible(ctx, lo.Uniq(perModel[id]), true); err != nil {
			c.v.Log.Warn("show all failed", "model", id, "error", err)
		}
	}

	c.mu.Lock()
	for gi := range c.groups {
		for ii := range c.groups[gi].Items {
			c.groups[gi].Items[ii].Visible = true
		}
	}
	c.mu.Unlock()

	c.v.refresh(ctx)
}

// ToggleExpanded flips the UI expansion state of a group
func (c *Classifier) ToggleExpanded(groupKey string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	gi := slices.IndexFunc(c.groups, func(g ClassificationGroup) bool { return g.Key == groupKey })
	if gi < 0 {
		return false, fmt.Errorf("%w: %s", ErrGroupNotFound, groupKey)
	}
	c.groups[gi].Expanded = !c.groups[gi].Expanded
	return c.groups[gi].Expanded, nil
}
