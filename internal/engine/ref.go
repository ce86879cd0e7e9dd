package engine

import "context"

// RefKind tags the variant held by an ElementRef
type RefKind int

const (
	RefInvalid RefKind = iota
	RefNumeric
	RefAsyncHolder
	RefDirectHolder
)

func (k RefKind) String() string {
	switch k {
	case RefNumeric:
		return "numeric"
	case RefAsyncHolder:
		return "async"
	case RefDirectHolder:
		return "direct"
	}
	return "invalid"
}

// AsyncIDHolder exposes the local id through a possibly slow accessor
type AsyncIDHolder interface {
	LocalID(ctx context.Context) (int64, error)
}

// DirectIDHolder exposes an id-like field; ok is false if it is unset
type DirectIDHolder interface {
	DirectID() (id int64, ok bool)
}

// ElementRef is an element reference as enumerated from a category. It is
// one of a bare number, an async id holder or a direct id holder.
type ElementRef struct {
	kind   RefKind
	id     int64
	async  AsyncIDHolder
	direct DirectIDHolder
}

// NumericRef wraps a bare local id
func NumericRef(id int64) ElementRef {
	return ElementRef{kind: RefNumeric, id: id}
}

// AsyncRef wraps an async id holder
func AsyncRef(h AsyncIDHolder) ElementRef {
	return ElementRef{kind: RefAsyncHolder, async: h}
}

// DirectRef wraps a direct id holder
func DirectRef(h DirectIDHolder) ElementRef {
	return ElementRef{kind: RefDirectHolder, direct: h}
}

// Kind returns the variant tag
func (r ElementRef) Kind() RefKind {
	return r.kind
}

// Resolve returns the local id of the reference. ok is false when the
// variant yields no id.
func Resolve(ctx context.Context, r ElementRef) (int64, bool) {
	switch r.kind {
	case RefNumeric:
		return r.id, true
	case RefAsyncHolder:
		if r.async == nil {
			return 0, false
		}
		id, err := r.async.LocalID(ctx)
		if err != nil {
			return 0, false
		}
		return id, true
	case RefDirectHolder:
		if r.direct == nil {
			return 0, false
		}
		return r.direct.DirectID()
	}
	return 0, false
}

// ResolveAll resolves refs in order, dropping unresolvable ones and
// duplicates
func ResolveAll(ctx context.Context, refs []ElementRef) []int64 {
	ids := make([]int64, 0, len(refs))
	seen := make(map[int64]bool, len(refs))
	for _, r := range refs {
		id, ok := Resolve(ctx, r)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}
