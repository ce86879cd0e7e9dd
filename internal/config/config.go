// Package config loads the project configuration: portal settings, viewer
// tuning and the list of published models.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/go-homedir"
	"github.com/philipparndt/gobim/internal/viewer"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "GOBIM_"

// ErrUnsupportedFormat is returned for config files that are neither YAML nor TOML
var ErrUnsupportedFormat = errors.New("unsupported config format")

// Project describes the shared project
type Project struct {
	Name        string `yaml:"name" toml:"name" json:"name"`
	Client      string `yaml:"client,omitempty" toml:"client" json:"client,omitempty"`
	Description string `yaml:"description,omitempty" toml:"description" json:"description,omitempty"`
}

// Server configures the HTTP portal
type Server struct {
	Addr string `yaml:"addr" toml:"addr"`
	// Timeouts in seconds
	ReadTimeout  int    `yaml:"readTimeout" toml:"readTimeout"`
	WriteTimeout int    `yaml:"writeTimeout" toml:"writeTimeout"`
	StaticDir    string `yaml:"staticDir,omitempty" toml:"staticDir"`
	DemoUser     string `yaml:"demoUser" toml:"demoUser"`
	DemoPassword string `yaml:"demoPassword" toml:"demoPassword"`
	// SessionTTL in minutes
	SessionTTL int `yaml:"sessionTTL" toml:"sessionTTL"`
}

// Viewer tunes the viewer core
type Viewer struct {
	Workers int `yaml:"workers" toml:"workers"`
	// FetchTimeout in seconds
	FetchTimeout int `yaml:"fetchTimeout" toml:"fetchTimeout"`
	// WatchDebounce in milliseconds
	WatchDebounce int  `yaml:"watchDebounce" toml:"watchDebounce"`
	Watch         bool `yaml:"watch" toml:"watch"`
	// Index is the property index database, in memory when empty
	Index string `yaml:"index,omitempty" toml:"index"`
}

// Config is the project configuration
type Config struct {
	Project Project             `yaml:"project" toml:"project"`
	Server  Server              `yaml:"server" toml:"server"`
	Viewer  Viewer              `yaml:"viewer" toml:"viewer"`
	Models  []viewer.Descriptor `yaml:"models" toml:"models"`

	// Path is the file the config was read from, empty for defaults
	Path string `yaml:"-" toml:"-"`
	// BaseDir resolves relative model urls
	BaseDir string `yaml:"-" toml:"-"`
}

// Default returns the configuration used without a config file
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.BaseDir, _ = os.Getwd()
	return cfg
}

// Load reads a YAML or TOML config file, chosen by extension, applies
// defaults and environment overrides and validates the result
func Load(path string) (*Config, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand path %s: %w", path, err)
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := Parse(data, filepath.Ext(abs))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	cfg.Path = abs
	cfg.BaseDir = filepath.Dir(abs)
	return cfg, nil
}

// Parse decodes config data. ext selects the format and includes the dot.
func Parse(data []byte, ext string) (*Config, error) {
	cfg := &Config{}
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to decode YAML: %w", err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to decode TOML: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("failed to decode TOML: unknown key %s", undecoded[0])
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Project.Name == "" {
		c.Project.Name = "gobim"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":3000"
	}
	if c.Server.ReadTimeout <= 0 {
		c.Server.ReadTimeout = 10
	}
	if c.Server.WriteTimeout <= 0 {
		c.Server.WriteTimeout = 30
	}
	if c.Server.DemoUser == "" {
		c.Server.DemoUser = "demo"
	}
	if c.Server.DemoPassword == "" {
		c.Server.DemoPassword = "demo"
	}
	if c.Server.SessionTTL <= 0 {
		c.Server.SessionTTL = 60 * 24
	}
	if c.Viewer.Workers <= 0 {
		c.Viewer.Workers = 4
	}
	if c.Viewer.FetchTimeout <= 0 {
		c.Viewer.FetchTimeout = 60
	}
	if c.Viewer.WatchDebounce <= 0 {
		c.Viewer.WatchDebounce = 300
	}
	if c.Viewer.Index == "" {
		c.Viewer.Index = ":memory:"
	}
	for i := range c.Models {
		m := &c.Models[i]
		if m.Type == "" {
			m.Type = viewer.FormatFromName(m.URL)
		}
		if m.Name == "" {
			m.Name = filepath.Base(m.URL)
		}
	}
}

// applyEnv overrides portal and viewer settings from GOBIM_* variables
func (c *Config) applyEnv() {
	c.Server.Addr = getEnv("ADDR", c.Server.Addr)
	c.Server.ReadTimeout = getEnvAsInt("READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvAsInt("WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.StaticDir = getEnv("STATIC_DIR", c.Server.StaticDir)
	c.Server.DemoUser = getEnv("DEMO_USER", c.Server.DemoUser)
	c.Server.DemoPassword = getEnv("DEMO_PASSWORD", c.Server.DemoPassword)
	c.Viewer.Workers = getEnvAsInt("WORKERS", c.Viewer.Workers)
	c.Viewer.FetchTimeout = getEnvAsInt("FETCH_TIMEOUT", c.Viewer.FetchTimeout)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

// Validate checks the model list: ids are unique and non-empty, every model
// has a url and a known type
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Models))
	for i, m := range c.Models {
		if m.ID == "" {
			return fmt.Errorf("model %d: missing id", i+1)
		}
		if seen[m.ID] {
			return fmt.Errorf("model %s: duplicate id", m.ID)
		}
		seen[m.ID] = true
		if m.URL == "" {
			return fmt.Errorf("model %s: missing url", m.ID)
		}
		if m.Type != viewer.FormatIFC && m.Type != viewer.FormatFrag {
			return fmt.Errorf("model %s: unknown type %q", m.ID, m.Type)
		}
	}
	return nil
}

// Model returns the descriptor with the given id
func (c *Config) Model(id string) (viewer.Descriptor, bool) {
	for _, m := range c.Models {
		if m.ID == id {
			return m, true
		}
	}
	return viewer.Descriptor{}, false
}

// ReadTimeout returns the portal read timeout
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Server.ReadTimeout) * time.Second
}

// WriteTimeout returns the portal write timeout
func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.Server.WriteTimeout) * time.Second
}

// SessionTTL returns how long portal sessions stay valid
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Server.SessionTTL) * time.Minute
}

// FetchTimeout returns the per-request timeout for remote models
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Viewer.FetchTimeout) * time.Second
}

// WatchDebounce returns the quiet period before a changed file is reloaded
func (c *Config) WatchDebounce() time.Duration {
	return time.Duration(c.Viewer.WatchDebounce) * time.Millisecond
}
