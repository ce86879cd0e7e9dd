package fragments

import (
	"hash/fnv"
	"image/color"

	"github.com/philipparndt/gobim/internal/scene"
)

var categoryColors = map[string]color.RGBA{
	"IFCWALL":              {R: 200, G: 200, B: 195, A: 255},
	"IFCWALLSTANDARDCASE":  {R: 200, G: 200, B: 195, A: 255},
	"IFCSLAB":              {R: 170, G: 170, B: 170, A: 255},
	"IFCROOF":              {R: 150, G: 80, B: 60, A: 255},
	"IFCDOOR":              {R: 140, G: 100, B: 60, A: 255},
	"IFCWINDOW":            {R: 150, G: 200, B: 230, A: 255},
	"IFCCOLUMN":            {R: 180, G: 180, B: 200, A: 255},
	"IFCBEAM":              {R: 180, G: 170, B: 200, A: 255},
	"IFCSTAIR":             {R: 190, G: 160, B: 120, A: 255},
	"IFCRAILING":           {R: 120, G: 120, B: 120, A: 255},
	"IFCFURNISHINGELEMENT": {R: 160, G: 120, B: 90, A: 255},
}

var translucentCategories = map[string]float64{
	"IFCWINDOW": 0.5,
	"IFCSPACE":  0.2,
}

// categoryMaterial returns the default material of a category. Unknown
// categories get a stable color derived from the name.
func categoryMaterial(category string) *scene.Material {
	c, ok := categoryColors[category]
	if !ok {
		h := fnv.New32a()
		h.Write([]byte(category))
		sum := h.Sum32()
		c = color.RGBA{R: 120 + uint8(sum%100), G: 120 + uint8((sum>>8)%100), B: 120 + uint8((sum>>16)%100), A: 255}
	}
	m := &scene.Material{
		Name:      category,
		Color:     c,
		Opacity:   1,
		Clippable: true,
	}
	if opacity, ok := translucentCategories[category]; ok {
		m.Opacity = opacity
		m.Transparent = true
	}
	return m
}
