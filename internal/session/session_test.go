package session

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/philipparndt/gobim/internal/config"
	"github.com/philipparndt/gobim/internal/viewer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const projectYAML = `
viewer:
  workers: 2
  watchDebounce: 20
models:
  - id: house
    url: house.ifc
    visible: true
  - id: annex
    url: annex.ifc
    visible: false
`

func writeProject(t *testing.T, dir, yaml string) string {
	t.Helper()
	path := filepath.Join(dir, "project.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

func copySample(t *testing.T, dir string, names ...string) {
	t.Helper()
	data, err := os.ReadFile("testdata/house.ifc")
	require.NoError(t, err)
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
	}
}

func openSession(t *testing.T, yaml string) (*Session, string) {
	t.Helper()
	dir := t.TempDir()
	copySample(t, dir, "house.ifc", "annex.ifc", "garage.ifc")
	cfg, err := config.Load(writeProject(t, dir, yaml))
	require.NoError(t, err)

	s, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, dir
}

func ids(s *Session) []string {
	var out []string
	for _, m := range s.Viewer.Registry.Models() {
		out = append(out, m.ID)
	}
	return out
}

func TestLoadConfigured(t *testing.T) {
	s, _ := openSession(t, projectYAML)
	ctx := context.Background()

	results := s.LoadConfigured(ctx)
	require.Len(t, results, 1, "invisible models are not loaded")
	assert.NoError(t, results[0].Err)
	assert.Equal(t, []string{"house"}, ids(s))

	rec, ok := s.Viewer.Registry.Get("house")
	require.True(t, ok)
	assert.Equal(t, 4, rec.ElementCount)
	assert.Equal(t, viewer.FormatIFC, rec.SourceFormat)
	assert.Equal(t, "house.ifc", rec.DisplayName)

	cam := s.Viewer.World.Camera()
	center := rec.SceneHandle().BoundingBox().Center()
	assert.InDelta(t, center.X, cam.Target.X, 1e-9, "camera fitted to the first model")
	assert.InDelta(t, center.Y, cam.Target.Y, 1e-9)

	section := s.Viewer.Section.State()
	assert.True(t, section.HasBounds)
	assert.Equal(t, "house", section.ModelID)

	groups := s.Viewer.Classification.Groups()
	require.Len(t, groups, 1)
	assert.Equal(t, "model_house", groups[0].Key)

	n, err := s.Index.Count(ctx, "house")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestLoadByID(t *testing.T) {
	s, _ := openSession(t, projectYAML)
	ctx := context.Background()

	_, err := s.Load(ctx, "annex")
	require.NoError(t, err)
	assert.Equal(t, []string{"annex"}, ids(s))

	_, err = s.Load(ctx, "missing")
	assert.ErrorIs(t, err, ErrUnknownDescriptor)
}

func TestAddFile(t *testing.T) {
	s, dir := openSession(t, projectYAML)
	ctx := context.Background()

	rec, err := s.AddFile(ctx, filepath.Join(dir, "garage.ifc"))
	require.NoError(t, err)
	assert.Equal(t, "garage", rec.ID)

	rec, err = s.AddFile(ctx, filepath.Join(dir, "house.ifc"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rec.ID, "house-"), "configured ids are not reused: %s", rec.ID)

	_, ok := s.Descriptor(rec.ID)
	assert.True(t, ok)

	_, err = s.AddFile(ctx, filepath.Join(dir, "missing.ifc"))
	var loadErr *viewer.LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, viewer.ReasonFetchFailed, loadErr.Reason)
	_, ok = s.Descriptor("missing")
	assert.False(t, ok, "failed files are forgotten")
}

func TestReloadConfig(t *testing.T) {
	s, dir := openSession(t, projectYAML)
	ctx := context.Background()
	s.LoadConfigured(ctx)

	writeProject(t, dir, `
models:
  - id: annex
    url: annex.ifc
    visible: true
  - id: garage
    url: garage.ifc
    visible: true
`)
	require.NoError(t, s.ReloadConfig(ctx))
	assert.Equal(t, []string{"annex", "garage"}, ids(s))
	assert.Len(t, s.Viewer.Classification.Groups(), 2)

	writeProject(t, dir, "models:\n  - id: broken\n")
	assert.Error(t, s.ReloadConfig(ctx))
	assert.Len(t, s.Config().Models, 2, "invalid config is ignored")
}

func TestReloadModelKeepsVisibility(t *testing.T) {
	s, _ := openSession(t, projectYAML)
	ctx := context.Background()
	s.LoadConfigured(ctx)

	before, _ := s.Viewer.Registry.Get("house")
	_, err := s.Viewer.Registry.ToggleVisibility(ctx, "house")
	require.NoError(t, err)

	require.NoError(t, s.ReloadModel(ctx, "house"))
	after, ok := s.Viewer.Registry.Get("house")
	require.True(t, ok)
	assert.False(t, after.Visible)
	assert.False(t, after.SceneHandle().Visible)
	assert.NotSame(t, before.SceneHandle(), after.SceneHandle())
}

func TestWatchReloadsChangedModelFile(t *testing.T) {
	s, dir := openSession(t, projectYAML)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.LoadConfigured(ctx)
	require.NoError(t, s.Watch(ctx))
	assert.Error(t, s.Watch(ctx), "second watch is rejected")

	before, _ := s.Viewer.Registry.Get("house")
	copySample(t, dir, "house.ifc")

	assert.Eventually(t, func() bool {
		rec, ok := s.Viewer.Registry.Get("house")
		return ok && rec.LoadedAt.After(before.LoadedAt)
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWatchReloadsConfig(t *testing.T) {
	s, dir := openSession(t, projectYAML)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.LoadConfigured(ctx)
	require.NoError(t, s.Watch(ctx))

	writeProject(t, dir, strings.Replace(projectYAML, "visible: false", "visible: true", 1))

	assert.Eventually(t, func() bool {
		_, ok := s.Viewer.Registry.Get("annex")
		return ok
	}, 5*time.Second, 20*time.Millisecond)
}
