package engine

// Relation names used by the property traversal
const (
	RelIsDefinedBy   = "IsDefinedBy"
	RelHasProperties = "HasProperties"
)

// Attribute names understood by every engine
const (
	AttrName         = "Name"
	AttrNominalValue = "NominalValue"
	AttrCategory     = "_category"
	AttrGUID         = "_guid"
)

// RelationQuery selects what to return for related items
type RelationQuery struct {
	Attributes bool
	Relations  bool
}

// ItemsQuery selects the data returned by Model.ItemsData
type ItemsQuery struct {
	DefaultAttributes bool
	Relations         map[string]RelationQuery
}

// PropertyQuery is the query used to fetch an element's name and its
// property sets
func PropertyQuery() ItemsQuery {
	return ItemsQuery{
		DefaultAttributes: true,
		Relations: map[string]RelationQuery{
			RelIsDefinedBy: {Attributes: true, Relations: true},
		},
	}
}

// Attribute is a single attribute value with its data type
type Attribute struct {
	Value any
	Type  string
}

// ItemData is the attribute and relation tree of one item
type ItemData struct {
	LocalID    int64
	Attributes map[string]Attribute
	Relations  map[string][]ItemData
}

// Attr returns the attribute value if present and non nil
func (d ItemData) Attr(name string) (any, bool) {
	a, ok := d.Attributes[name]
	if !ok || a.Value == nil {
		return nil, false
	}
	return a.Value, true
}
