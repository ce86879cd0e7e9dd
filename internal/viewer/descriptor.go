package viewer

import (
	"strings"
	"time"
)

// SourceFormat is the format a model is published in
type SourceFormat string

const (
	// FormatIFC needs conversion before it can be instantiated
	FormatIFC SourceFormat = "ifc"
	// FormatFrag is loaded as is
	FormatFrag SourceFormat = "frag"
)

// Descriptor is a model entry of the project configuration
type Descriptor struct {
	ID          string       `yaml:"id" toml:"id" json:"id"`
	Name        string       `yaml:"name" toml:"name" json:"name"`
	Description string       `yaml:"description,omitempty" toml:"description" json:"description,omitempty"`
	URL         string       `yaml:"url" toml:"url" json:"url"`
	Type        SourceFormat `yaml:"type" toml:"type" json:"type"`
	Category    string       `yaml:"category,omitempty" toml:"category" json:"category,omitempty"`
	Visible     bool         `yaml:"visible" toml:"visible" json:"visible"`
	Tags        []string     `yaml:"tags,omitempty" toml:"tags" json:"tags,omitempty"`
	Author      string       `yaml:"author,omitempty" toml:"author" json:"author,omitempty"`
	Version     string       `yaml:"version,omitempty" toml:"version" json:"version,omitempty"`
	CreatedAt   time.Time    `yaml:"createdAt,omitempty" toml:"createdAt" json:"createdAt,omitzero"`
	UpdatedAt   time.Time    `yaml:"updatedAt,omitempty" toml:"updatedAt" json:"updatedAt,omitzero"`
}

// FormatFromName guesses the source format from a file name
func FormatFromName(name string) SourceFormat {
	if strings.HasSuffix(strings.ToLower(name), ".ifc") {
		return FormatIFC
	}
	return FormatFrag
}

// DownloadName returns the file name offered for a model's bytes. Converted
// IFC models are offered as fragments.
func DownloadName(name string, format SourceFormat) string {
	if format == FormatIFC {
		return strings.Replace(name, ".ifc", ".frag", 1)
	}
	return name
}
