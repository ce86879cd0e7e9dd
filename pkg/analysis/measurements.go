package analysis

import (
	"fmt"
	"sort"

	"github.com/philipparndt/gobim/pkg/frag"
	"github.com/philipparndt/gobim/pkg/geometry"
)

// CategoryStat summarizes the elements of one category
type CategoryStat struct {
	Name        string
	Count       int
	Volume      float64 // sum of element box volumes
	SurfaceArea float64 // sum of element box surfaces
}

// ElementInfo is the measured extent of one element
type ElementInfo struct {
	LocalID  int64
	Name     string
	Category string
	Box      geometry.BoundingBox
	Volume   float64
}

// MeasurementResult contains the statistics of a fragment model
type MeasurementResult struct {
	BoundingBox      geometry.BoundingBox
	Dimensions       geometry.Vector3
	Volume           float64
	SurfaceArea      float64
	ElementCount     int
	PropertySetCount int
	PropertyCount    int
	Categories       []CategoryStat
	AllElements      []ElementInfo
}

// AnalyzeModel collects per-category and per-element measurements
func AnalyzeModel(model *frag.Fragment) *MeasurementResult {
	result := &MeasurementResult{
		BoundingBox:  model.BoundingBox(),
		ElementCount: len(model.Elements),
		AllElements:  make([]ElementInfo, 0, len(model.Elements)),
	}
	result.Dimensions = result.BoundingBox.Size()
	result.Volume = result.BoundingBox.Volume()

	stats := make(map[string]*CategoryStat)
	for i := range model.Elements {
		el := &model.Elements[i]
		box := el.Box()

		area := 0.0
		for _, face := range box.Faces() {
			area += face.Area()
		}
		result.SurfaceArea += area

		stat, ok := stats[el.Category]
		if !ok {
			stat = &CategoryStat{Name: el.Category}
			stats[el.Category] = stat
		}
		stat.Count++
		stat.Volume += box.Volume()
		stat.SurfaceArea += area

		result.PropertySetCount += len(el.PropertySets)
		for _, pset := range el.PropertySets {
			result.PropertyCount += len(pset.Properties)
		}

		result.AllElements = append(result.AllElements, ElementInfo{
			LocalID:  el.LocalID,
			Name:     el.Name,
			Category: el.Category,
			Box:      box,
			Volume:   box.Volume(),
		})
	}

	for _, stat := range stats {
		result.Categories = append(result.Categories, *stat)
	}
	sort.Slice(result.Categories, func(i, j int) bool {
		return result.Categories[i].Name < result.Categories[j].Name
	})

	return result
}

// FindLargestElements returns the N elements with the largest box volume
func FindLargestElements(result *MeasurementResult, count int) []ElementInfo {
	elements := make([]ElementInfo, len(result.AllElements))
	copy(elements, result.AllElements)

	sort.SliceStable(elements, func(i, j int) bool {
		return elements[i].Volume > elements[j].Volume
	})

	if count > len(elements) {
		count = len(elements)
	}

	return elements[:count]
}

// FindElementsAt returns the elements whose box contains the point
func FindElementsAt(result *MeasurementResult, point geometry.Vector3) []ElementInfo {
	var hits []ElementInfo
	for _, el := range result.AllElements {
		b := el.Box
		if point.X >= b.Min.X && point.X <= b.Max.X &&
			point.Y >= b.Min.Y && point.Y <= b.Max.Y &&
			point.Z >= b.Min.Z && point.Z <= b.Max.Z {
			hits = append(hits, el)
		}
	}
	return hits
}

// FormatMeasurement formats a measurement with appropriate units
func FormatMeasurement(value float64, unit string) string {
	if unit == "" {
		unit = "units"
	}
	return fmt.Sprintf("%.3f %s", value, unit)
}

// FormatVector formats a 3D vector
func FormatVector(v geometry.Vector3) string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v.X, v.Y, v.Z)
}
