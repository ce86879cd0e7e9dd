package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/philipparndt/gobim/internal/viewer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadYAML(t *testing.T) {
	cfg, err := Load("testdata/project.yaml")
	require.NoError(t, err)

	abs, _ := filepath.Abs("testdata")
	assert.Equal(t, abs, cfg.BaseDir)
	assert.Equal(t, filepath.Join(abs, "project.yaml"), cfg.Path)

	assert.Equal(t, "Riverside Offices", cfg.Project.Name)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.ReadTimeout())
	assert.Equal(t, 30*time.Second, cfg.WriteTimeout(), "default")
	assert.Equal(t, 2, cfg.Viewer.Workers)
	assert.True(t, cfg.Viewer.Watch)

	require.Len(t, cfg.Models, 2)
	arch := cfg.Models[0]
	assert.Equal(t, viewer.FormatIFC, arch.Type, "inferred from url")
	assert.Equal(t, []string{"arch", "level-0"}, arch.Tags)
	assert.Equal(t, "3", arch.Version)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), arch.CreatedAt.UTC())

	mep, ok := cfg.Model("mep")
	require.True(t, ok)
	assert.Equal(t, viewer.FormatFrag, mep.Type)
	assert.Equal(t, "mep.frag", mep.Name, "name defaults to the file name")
	assert.False(t, mep.Visible)
}

func TestLoadTOML(t *testing.T) {
	cfg, err := Load("testdata/project.toml")
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	require.Len(t, cfg.Models, 2)
	assert.Equal(t, viewer.FormatIFC, cfg.Models[0].Type)
	assert.Equal(t, 2024, cfg.Models[0].CreatedAt.Year())
	assert.Equal(t, viewer.FormatFrag, cfg.Models[1].Type)
	assert.Equal(t, 4, cfg.Viewer.Workers, "default")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GOBIM_ADDR", ":7000")
	t.Setenv("GOBIM_WORKERS", "8")
	t.Setenv("GOBIM_READ_TIMEOUT", "not a number")

	cfg, err := Load("testdata/project.yaml")
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, 8, cfg.Viewer.Workers)
	assert.Equal(t, 5, cfg.Server.ReadTimeout, "invalid values are ignored")
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		ext  string
		want string
	}{
		{"format", "models: []", ".json", "unsupported config format"},
		{"missing id", "models:\n  - url: a.ifc\n", ".yaml", "missing id"},
		{"duplicate id", "models:\n  - {id: a, url: a.ifc}\n  - {id: a, url: b.ifc}\n", ".yml", "duplicate id"},
		{"missing url", "models:\n  - id: a\n    type: ifc\n", ".yaml", "missing url"},
		{"bad type", "[[models]]\nid = \"a\"\nurl = \"a.obj\"\ntype = \"obj\"\n", ".toml", "unknown type"},
		{"unknown yaml key", "modles: []\n", ".yaml", "modles"},
		{"unknown toml key", "[serve]\naddr = \":1\"\n", ".toml", "unknown key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), tt.ext)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ":3000", cfg.Server.Addr)
	assert.Equal(t, 300*time.Millisecond, cfg.WatchDebounce())
	assert.Empty(t, cfg.Models)
	assert.NotEmpty(t, cfg.BaseDir)
}
