// Package frag implements the precompiled fragment format: a small binary
// container holding the elements of a BIM model with their categories,
// bounding boxes and property sets, ready to be loaded without conversion.
package frag

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/philipparndt/gobim/pkg/geometry"
	"github.com/ugorji/go/codec"
)

// Magic is the four byte signature every fragment starts with
const Magic = "GFRG"

// Version is the current container version
const Version byte = 1

var (
	// ErrBadMagic is returned when the data is not a fragment
	ErrBadMagic = errors.New("not a fragment file")
	// ErrUnsupportedVersion is returned for fragments written by a newer version
	ErrUnsupportedVersion = errors.New("unsupported fragment version")
)

// Fragment is a decoded model
type Fragment struct {
	Schema   string    `codec:"schema"`
	Name     string    `codec:"name"`
	Elements []Element `codec:"elements"`
}

// Element is one product of the model
type Element struct {
	LocalID      int64         `codec:"localId"`
	Category     string        `codec:"category"`
	GUID         string        `codec:"guid"`
	Name         string        `codec:"name,omitempty"`
	Description  string        `codec:"description,omitempty"`
	ObjectType   string        `codec:"objectType,omitempty"`
	Tag          string        `codec:"tag,omitempty"`
	Min          [3]float64    `codec:"min"`
	Max          [3]float64    `codec:"max"`
	PropertySets []PropertySet `codec:"psets,omitempty"`
}

// PropertySet is a named group of properties attached to an element
type PropertySet struct {
	ID         int64      `codec:"id"`
	Name       string     `codec:"name"`
	Properties []Property `codec:"props,omitempty"`
}

// Property is a single name/value pair. Null marks a property without a
// nominal value.
type Property struct {
	Name  string `codec:"name"`
	Value string `codec:"value,omitempty"`
	Type  string `codec:"type,omitempty"`
	Null  bool   `codec:"null,omitempty"`
}

// Box returns the element's bounding box
func (e *Element) Box() geometry.BoundingBox {
	return geometry.BoundingBox{
		Min: geometry.NewVector3(e.Min[0], e.Min[1], e.Min[2]),
		Max: geometry.NewVector3(e.Max[0], e.Max[1], e.Max[2]),
	}
}

// SetBox stores a bounding box on the element
func (e *Element) SetBox(b geometry.BoundingBox) {
	e.Min = [3]float64{b.Min.X, b.Min.Y, b.Min.Z}
	e.Max = [3]float64{b.Max.X, b.Max.Y, b.Max.Z}
}

// BoundingBox returns the box enclosing all elements
func (f *Fragment) BoundingBox() geometry.BoundingBox {
	bbox := geometry.NewBoundingBox()
	for i := range f.Elements {
		bbox.Union(f.Elements[i].Box())
	}
	return bbox
}

// Categories returns the local ids per category. Ids keep element order.
func (f *Fragment) Categories() map[string][]int64 {
	cats := make(map[string][]int64)
	for _, e := range f.Elements {
		cats[e.Category] = append(cats[e.Category], e.LocalID)
	}
	return cats
}

// CategoryNames returns the sorted category names
func (f *Fragment) CategoryNames() []string {
	cats := f.Categories()
	names := make([]string, 0, len(cats))
	for name := range cats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var handle = newHandle()

func newHandle() *codec.MsgpackHandle {
	h := &codec.MsgpackHandle{}
	h.WriteExt = true
	return h
}

// IsFragment reports whether data starts with the fragment signature
func IsFragment(data []byte) bool {
	return bytes.HasPrefix(data, []byte(Magic))
}

// Encode serializes a fragment
func Encode(f *Fragment) ([]byte, error) {
	out := make([]byte, 0, 64+len(f.Elements)*96)
	out = append(out, Magic...)
	out = append(out, Version)

	var body []byte
	if err := codec.NewEncoderBytes(&body, handle).Encode(f); err != nil {
		return nil, fmt.Errorf("failed to encode fragment: %w", err)
	}
	return append(out, body...), nil
}

// Decode parses fragment bytes
func Decode(data []byte) (*Fragment, error) {
	if !IsFragment(data) {
		return nil, ErrBadMagic
	}
	if len(data) < len(Magic)+1 {
		return nil, fmt.Errorf("%w: missing version", ErrBadMagic)
	}
	if v := data[len(Magic)]; v > Version || v == 0 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}

	f := &Fragment{}
	if err := codec.NewDecoderBytes(data[len(Magic)+1:], handle).Decode(f); err != nil {
		return nil, fmt.Errorf("failed to decode fragment: %w", err)
	}
	return f, nil
}

// ReadFile loads a fragment from disk
func ReadFile(filename string) (*Fragment, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Decode(data)
}

// WriteFile stores a fragment on disk
func WriteFile(filename string, f *Fragment) error {
	data, err := Encode(f)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}
