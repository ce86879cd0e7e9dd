package frag

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/philipparndt/gobim/pkg/geometry"
	"github.com/philipparndt/gobim/pkg/ifc"
)

// representationIndex is the position of the Representation attribute on
// IfcProduct and its subtypes
const representationIndex = 6

// Types that are never walked when collecting shape points. Placements and
// directions carry transforms, not geometry.
var skipTypes = map[string]bool{
	"IFCGEOMETRICREPRESENTATIONCONTEXT":    true,
	"IFCGEOMETRICREPRESENTATIONSUBCONTEXT": true,
	"IFCDIRECTION":                         true,
	"IFCAXIS2PLACEMENT2D":                  true,
	"IFCAXIS2PLACEMENT3D":                  true,
	"IFCCARTESIANTRANSFORMATIONOPERATOR3D": true,
	"IFCSTYLEDITEM":                        true,
	"IFCPRESENTATIONLAYERASSIGNMENT":       true,
	"IFCOWNERHISTORY":                      true,
}

// Import converts an IFC file to fragment bytes
func Import(data []byte, name string) ([]byte, error) {
	file, err := ifc.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse IFC: %w", err)
	}
	f, err := FromIFC(file, name)
	if err != nil {
		return nil, err
	}
	return Encode(f)
}

// FromIFC builds a fragment from a parsed IFC file. Every product with a
// shape representation becomes an element; coordinates are converted from
// IFC's Z-up to the viewer's Y-up convention.
func FromIFC(file *ifc.File, name string) (*Fragment, error) {
	im := &importer{
		file:       file,
		placements: make(map[int]geometry.Vector3),
		psets:      make(map[int][]int),
	}
	im.indexPropertyRelations()

	out := &Fragment{Schema: file.Schema, Name: name}
	for _, e := range file.All() {
		repID, ok := e.Arg(representationIndex).AsRef()
		if !ok {
			continue
		}
		rep, ok := file.Entity(repID)
		if !ok || rep.Type != "IFCPRODUCTDEFINITIONSHAPE" {
			continue
		}

		offset := im.placement(e.Arg(5), 0)
		var points []geometry.Vector3
		im.collect(repID, map[int]bool{}, &points)
		if len(points) == 0 {
			continue
		}
		bbox := geometry.NewBoundingBox()
		for _, p := range points {
			bbox.Extend(toYUp(p.Add(offset)))
		}

		el := Element{
			LocalID:     int64(e.ID),
			Category:    e.Type,
			GUID:        e.Text(0),
			Name:        e.Text(2),
			Description: e.Text(3),
			ObjectType:  e.Text(4),
			Tag:         e.Text(7),
		}
		el.SetBox(bbox)
		el.PropertySets = im.propertySets(e.ID)
		out.Elements = append(out.Elements, el)
	}
	return out, nil
}

type importer struct {
	file       *ifc.File
	placements map[int]geometry.Vector3
	psets      map[int][]int // element id -> property set ids
}

func toYUp(p geometry.Vector3) geometry.Vector3 {
	return geometry.NewVector3(p.X, p.Z, -p.Y)
}

func (im *importer) indexPropertyRelations() {
	for _, rel := range im.file.ByType("IFCRELDEFINESBYPROPERTIES") {
		psetID, ok := rel.Arg(5).AsRef()
		if !ok {
			continue
		}
		for _, obj := range rel.Arg(4).Refs() {
			im.psets[obj] = append(im.psets[obj], psetID)
		}
	}
}

// placement resolves the translation of an IfcLocalPlacement chain.
// Rotations are ignored.
func (im *importer) placement(v ifc.Value, depth int) geometry.Vector3 {
	id, ok := v.AsRef()
	if !ok || depth > 64 {
		return geometry.Vector3{}
	}
	if p, ok := im.placements[id]; ok {
		return p
	}
	lp, ok := im.file.Entity(id)
	if !ok || lp.Type != "IFCLOCALPLACEMENT" {
		return geometry.Vector3{}
	}
	parent := im.placement(lp.Arg(0), depth+1)
	local := im.axisLocation(lp.Arg(1))
	p := parent.Add(local)
	im.placements[id] = p
	return p
}

func (im *importer) axisLocation(v ifc.Value) geometry.Vector3 {
	id, ok := v.AsRef()
	if !ok {
		return geometry.Vector3{}
	}
	axis, ok := im.file.Entity(id)
	if !ok {
		return geometry.Vector3{}
	}
	p, _ := im.point(axis.Arg(0))
	return p
}

func (im *importer) point(v ifc.Value) (geometry.Vector3, bool) {
	id, ok := v.AsRef()
	if !ok {
		return geometry.Vector3{}, false
	}
	e, ok := im.file.Entity(id)
	if !ok || e.Type != "IFCCARTESIANPOINT" {
		return geometry.Vector3{}, false
	}
	return coords(e.Arg(0).Floats()), true
}

func (im *importer) direction(v ifc.Value) geometry.Vector3 {
	id, ok := v.AsRef()
	if !ok {
		return geometry.NewVector3(0, 0, 1)
	}
	e, ok := im.file.Entity(id)
	if !ok || e.Type != "IFCDIRECTION" {
		return geometry.NewVector3(0, 0, 1)
	}
	return coords(e.Arg(0).Floats()).Normalize()
}

func coords(c []float64) geometry.Vector3 {
	var p geometry.Vector3
	if len(c) > 0 {
		p.X = c[0]
	}
	if len(c) > 1 {
		p.Y = c[1]
	}
	if len(c) > 2 {
		p.Z = c[2]
	}
	return p
}

// collect walks a representation tree and gathers the points that bound it
func (im *importer) collect(id int, seen map[int]bool, points *[]geometry.Vector3) {
	if seen[id] {
		return
	}
	seen[id] = true
	e, ok := im.file.Entity(id)
	if !ok || skipTypes[e.Type] {
		return
	}

	switch e.Type {
	case "IFCCARTESIANPOINT":
		*points = append(*points, coords(e.Arg(0).Floats()))
		return
	case "IFCBOUNDINGBOX":
		corner, _ := im.point(e.Arg(0))
		x, _ := e.Arg(1).AsFloat()
		y, _ := e.Arg(2).AsFloat()
		z, _ := e.Arg(3).AsFloat()
		*points = append(*points, corner, corner.Add(geometry.NewVector3(x, y, z)))
		return
	case "IFCEXTRUDEDAREASOLID":
		im.extrusion(e, seen, points)
		return
	case "IFCRECTANGLEPROFILEDEF":
		x, _ := e.Arg(3).AsFloat()
		y, _ := e.Arg(4).AsFloat()
		*points = append(*points,
			geometry.NewVector3(-x/2, -y/2, 0),
			geometry.NewVector3(x/2, y/2, 0))
		return
	case "IFCMAPPEDITEM":
		// MappingSource -> IfcRepresentationMap.MappedRepresentation
		if srcID, ok := e.Arg(0).AsRef(); ok {
			if src, ok := im.file.Entity(srcID); ok {
				if repID, ok := src.Arg(1).AsRef(); ok {
					im.collect(repID, seen, points)
				}
			}
		}
		return
	}

	for _, arg := range e.Args {
		for _, ref := range arg.Refs() {
			im.collect(ref, seen, points)
		}
	}
}

// extrusion sweeps the profile points along the extrusion direction and
// moves them to the solid's position
func (im *importer) extrusion(e *ifc.Entity, seen map[int]bool, points *[]geometry.Vector3) {
	var profile []geometry.Vector3
	if ref, ok := e.Arg(0).AsRef(); ok {
		im.collect(ref, seen, &profile)
	}
	origin := im.axisLocation(e.Arg(1))
	depth, _ := e.Arg(3).AsFloat()
	sweep := im.direction(e.Arg(2)).Mul(depth)
	for _, p := range profile {
		base := origin.Add(p)
		*points = append(*points, base, base.Add(sweep))
	}
}

func (im *importer) propertySets(elementID int) []PropertySet {
	var sets []PropertySet
	for _, psetID := range im.psets[elementID] {
		pset, ok := im.file.Entity(psetID)
		if !ok || pset.Type != "IFCPROPERTYSET" {
			continue
		}
		set := PropertySet{ID: int64(pset.ID), Name: pset.Text(2)}
		for _, propID := range pset.Arg(4).Refs() {
			prop, ok := im.file.Entity(propID)
			if !ok || prop.Type != "IFCPROPERTYSINGLEVALUE" {
				continue
			}
			p := Property{Name: prop.Text(0)}
			p.Value, p.Type, p.Null = propertyValue(prop.Arg(2))
			set.Properties = append(set.Properties, p)
		}
		sets = append(sets, set)
	}
	return sets
}

// propertyValue renders a nominal value as text together with its IFC type
func propertyValue(v ifc.Value) (string, string, bool) {
	if v.IsNull() {
		return "", "", true
	}
	inner, typ := v.Unwrap()
	switch inner.Kind {
	case ifc.KindEnum:
		switch inner.Str {
		case "T":
			return "true", typ, false
		case "F":
			return "false", typ, false
		case "U":
			return "unknown", typ, false
		}
		return strings.ToLower(inner.Str), typ, false
	case ifc.KindInteger:
		return strconv.FormatInt(int64(inner.Num), 10), typ, false
	case ifc.KindReal:
		return strconv.FormatFloat(inner.Num, 'g', -1, 64), typ, false
	case ifc.KindString:
		return inner.Str, typ, false
	case ifc.KindNull, ifc.KindDerived:
		return "", typ, true
	}
	return inner.String(), typ, false
}
