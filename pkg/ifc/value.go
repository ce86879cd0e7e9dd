package ifc

import (
	"strconv"
	"strings"
)

// Kind identifies the type of a STEP parameter value
type Kind int

const (
	KindNull    Kind = iota // $
	KindDerived             // *
	KindRef                 // #123
	KindString              // 'text'
	KindEnum                // .ELEMENT.
	KindInteger             // 42
	KindReal                // 4.2E1
	KindList                // (a, b, c)
	KindTyped               // IFCLABEL('text')
	KindBinary              // "0FF"
)

// Value is a single parameter of an entity instance
type Value struct {
	Kind Kind
	Ref  int
	Str  string  // string, enum, binary or type name of a typed value
	Num  float64 // integer or real
	List []Value // list items, or the single wrapped value of a typed value
}

// IsNull reports whether the value is unset ($) or derived (*)
func (v Value) IsNull() bool {
	return v.Kind == KindNull || v.Kind == KindDerived
}

// AsRef returns the referenced instance id
func (v Value) AsRef() (int, bool) {
	if v.Kind != KindRef {
		return 0, false
	}
	return v.Ref, true
}

// AsString returns the text of a string, enum or typed string value
func (v Value) AsString() (string, bool) {
	switch v.Kind {
	case KindString, KindEnum:
		return v.Str, true
	case KindTyped:
		if len(v.List) == 1 {
			return v.List[0].AsString()
		}
	}
	return "", false
}

// AsFloat returns the numeric value of a number or typed number
func (v Value) AsFloat() (float64, bool) {
	switch v.Kind {
	case KindInteger, KindReal:
		return v.Num, true
	case KindTyped:
		if len(v.List) == 1 {
			return v.List[0].AsFloat()
		}
	}
	return 0, false
}

// Unwrap returns the inner value of a typed value and its type name
func (v Value) Unwrap() (Value, string) {
	if v.Kind == KindTyped && len(v.List) == 1 {
		return v.List[0], v.Str
	}
	return v, ""
}

// Refs returns all instance references contained in a list value
func (v Value) Refs() []int {
	if v.Kind == KindRef {
		return []int{v.Ref}
	}
	if v.Kind != KindList {
		return nil
	}
	refs := make([]int, 0, len(v.List))
	for _, item := range v.List {
		if ref, ok := item.AsRef(); ok {
			refs = append(refs, ref)
		}
	}
	return refs
}

// Floats returns the numeric items of a list value
func (v Value) Floats() []float64 {
	if v.Kind != KindList {
		return nil
	}
	nums := make([]float64, 0, len(v.List))
	for _, item := range v.List {
		if f, ok := item.AsFloat(); ok {
			nums = append(nums, f)
		}
	}
	return nums
}

// String renders the value in STEP notation
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "$"
	case KindDerived:
		return "*"
	case KindRef:
		return "#" + strconv.Itoa(v.Ref)
	case KindString:
		return "'" + strings.ReplaceAll(v.Str, "'", "''") + "'"
	case KindEnum:
		return "." + v.Str + "."
	case KindInteger:
		return strconv.FormatInt(int64(v.Num), 10)
	case KindReal:
		return strconv.FormatFloat(v.Num, 'G', -1, 64)
	case KindBinary:
		return `"` + v.Str + `"`
	case KindTyped:
		return v.Str + listString(v.List)
	case KindList:
		return listString(v.List)
	}
	return "?"
}

func listString(items []Value) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = item.String()
	}
	return "(" + strings.Join(parts, ",") + ")"
}

// Entity is one instance line of the DATA section
type Entity struct {
	ID   int
	Type string // upper case, e.g. IFCWALL
	Args []Value
}

// Arg returns the i-th parameter or a null value if there is none
func (e *Entity) Arg(i int) Value {
	if i < 0 || i >= len(e.Args) {
		return Value{Kind: KindNull}
	}
	return e.Args[i]
}

// Text returns the parameter as text, empty if unset
func (e *Entity) Text(i int) string {
	s, _ := e.Arg(i).AsString()
	return s
}

// File is a parsed STEP physical file
type File struct {
	Schema      string
	Name        string
	Description []string
	Entities    map[int]*Entity
	order       []int
}

// Entity looks up an instance by id
func (f *File) Entity(id int) (*Entity, bool) {
	e, ok := f.Entities[id]
	return e, ok
}

// All returns every instance in file order
func (f *File) All() []*Entity {
	out := make([]*Entity, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.Entities[id])
	}
	return out
}

// ByType returns the instances of the given type in file order
func (f *File) ByType(typ string) []*Entity {
	typ = strings.ToUpper(typ)
	var out []*Entity
	for _, id := range f.order {
		if e := f.Entities[id]; e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of instances
func (f *File) Len() int {
	return len(f.order)
}
