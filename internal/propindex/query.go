package propindex

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/philipparndt/gobim/pkg/frag"
)

// Record holds the indexed attributes of an element
type Record struct {
	ModelID     string
	LocalID     int64
	Category    string
	GUID        string
	Name        string
	Description string
	ObjectType  string
	Tag         string
}

// Element returns the attributes of one element
func (x *Index) Element(ctx context.Context, modelID string, localID int64) (*Record, error) {
	row := x.db.QueryRowContext(ctx, `
        SELECT category, guid, name, description, object_type, tag
        FROM elements
        WHERE model_id = ? AND local_id = ?
    `, modelID, localID)

	r := Record{ModelID: modelID, LocalID: localID}
	var name, desc, objType, tag sql.NullString
	if err := row.Scan(&r.Category, &r.GUID, &name, &desc, &objType, &tag); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s #%d", ErrNotFound, modelID, localID)
		}
		return nil, err
	}
	r.Name, r.Description, r.ObjectType, r.Tag = name.String, desc.String, objType.String, tag.String
	return &r, nil
}

// PropertySets returns the property sets of an element in import order.
// Properties without a value are returned with Null set.
func (x *Index) PropertySets(ctx context.Context, modelID string, localID int64) ([]frag.PropertySet, error) {
	rows, err := x.db.QueryContext(ctx, `
        SELECT s.pset_id, s.name, p.name, p.value, p.type
        FROM psets s
        LEFT JOIN props p
          ON p.model_id = s.model_id AND p.local_id = s.local_id AND p.pset_id = s.pset_id
        WHERE s.model_id = ? AND s.local_id = ?
        ORDER BY s.ord, p.ord
    `, modelID, localID)
	if err != nil {
		return nil, fmt.Errorf("query property sets: %w", err)
	}
	defer rows.Close()

	var sets []frag.PropertySet
	for rows.Next() {
		var (
			psetID    int64
			psetName  string
			propName  sql.NullString
			propValue sql.NullString
			propType  sql.NullString
		)
		if err := rows.Scan(&psetID, &psetName, &propName, &propValue, &propType); err != nil {
			return nil, err
		}
		if len(sets) == 0 || sets[len(sets)-1].ID != psetID {
			sets = append(sets, frag.PropertySet{ID: psetID, Name: psetName})
		}
		if !propName.Valid {
			continue
		}
		cur := &sets[len(sets)-1]
		cur.Properties = append(cur.Properties, frag.Property{
			Name:  propName.String,
			Value: propValue.String,
			Type:  propType.String,
			Null:  !propValue.Valid,
		})
	}
	return sets, rows.Err()
}

// Match is one search result
type Match struct {
	ModelID  string `json:"modelId"`
	LocalID  int64  `json:"localId"`
	Category string `json:"category"`
	Name     string `json:"name"`
}

// Search finds elements whose name, category, guid, tag or any property
// name or value contains query (case-insensitive)
func (x *Index) Search(ctx context.Context, query string, limit int) ([]Match, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	pattern := "%" + escapeLike(query) + "%"

	rows, err := x.db.QueryContext(ctx, `
        SELECT e.model_id, e.local_id, e.category, COALESCE(e.name, '')
        FROM elements e
        WHERE e.name LIKE ?1 ESCAPE '\'
           OR e.category LIKE ?1 ESCAPE '\'
           OR e.guid LIKE ?1 ESCAPE '\'
           OR e.tag LIKE ?1 ESCAPE '\'
           OR EXISTS (
                SELECT 1 FROM props p
                WHERE p.model_id = e.model_id AND p.local_id = e.local_id
                  AND (p.name LIKE ?1 ESCAPE '\' OR p.value LIKE ?1 ESCAPE '\'))
        ORDER BY e.model_id, e.local_id
        LIMIT ?2
    `, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ModelID, &m.LocalID, &m.Category, &m.Name); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// Count returns the number of indexed elements of a model
func (x *Index) Count(ctx context.Context, modelID string) (int, error) {
	var n int
	err := x.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM elements WHERE model_id = ?`, modelID).Scan(&n)
	return n, err
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
