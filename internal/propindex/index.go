// Package propindex keeps the attributes and property sets of loaded
// elements in an SQLite database so property queries and element search do
// not have to walk the decoded fragments.
package propindex

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/philipparndt/gobim/pkg/frag"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// MemoryDSN keeps the index in memory for the lifetime of the process
const MemoryDSN = ":memory:"

// ErrNotFound is returned when an element is not indexed
var ErrNotFound = errors.New("element not indexed")

const schema = `
CREATE TABLE IF NOT EXISTS elements (
    model_id    TEXT    NOT NULL,
    local_id    INTEGER NOT NULL,
    category    TEXT    NOT NULL,
    guid        TEXT    NOT NULL DEFAULT '',
    name        TEXT,
    description TEXT,
    object_type TEXT,
    tag         TEXT,
    PRIMARY KEY (model_id, local_id)
);
CREATE TABLE IF NOT EXISTS psets (
    model_id TEXT    NOT NULL,
    local_id INTEGER NOT NULL,
    pset_id  INTEGER NOT NULL,
    ord      INTEGER NOT NULL,
    name     TEXT    NOT NULL,
    PRIMARY KEY (model_id, local_id, pset_id)
);
CREATE TABLE IF NOT EXISTS props (
    model_id TEXT    NOT NULL,
    local_id INTEGER NOT NULL,
    pset_id  INTEGER NOT NULL,
    ord      INTEGER NOT NULL,
    name     TEXT    NOT NULL,
    value    TEXT,
    type     TEXT    NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS props_element ON props (model_id, local_id, pset_id);
`

// Index is the element property index
type Index struct {
	db *sql.DB
}

// Open opens (and migrates) an index. Use MemoryDSN for a process local
// index or a file path to keep it on disk.
func Open(ctx context.Context, dsn string) (*Index, error) {
	if dsn == "" {
		dsn = MemoryDSN
	}
	if dsn != MemoryDSN && !strings.HasPrefix(dsn, "file:") {
		dsn = fmt.Sprintf("file:%s?mode=rwc&_pragma=busy_timeout=5000", dsn)
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	// a single connection keeps an in-memory database alive and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate index: %w", err)
	}
	return &Index{db: db}, nil
}

// Close closes the database
func (x *Index) Close() error {
	return x.db.Close()
}

// IndexModel replaces all rows of a model with the elements of f
func (x *Index) IndexModel(ctx context.Context, modelID string, f *frag.Fragment) error {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := dropModel(ctx, tx, modelID); err != nil {
		return err
	}

	insElement, err := tx.PrepareContext(ctx, `
        INSERT INTO elements (model_id, local_id, category, guid, name, description, object_type, tag)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare elements: %w", err)
	}
	defer insElement.Close()

	insPset, err := tx.PrepareContext(ctx, `
        INSERT OR REPLACE INTO psets (model_id, local_id, pset_id, ord, name)
        VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare psets: %w", err)
	}
	defer insPset.Close()

	insProp, err := tx.PrepareContext(ctx, `
        INSERT INTO props (model_id, local_id, pset_id, ord, name, value, type)
        VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare props: %w", err)
	}
	defer insProp.Close()

	for _, el := range f.Elements {
		if _, err := insElement.ExecContext(ctx, modelID, el.LocalID, el.Category, el.GUID,
			nullString(el.Name), nullString(el.Description), nullString(el.ObjectType), nullString(el.Tag)); err != nil {
			return fmt.Errorf("insert element #%d: %w", el.LocalID, err)
		}
		for i, pset := range el.PropertySets {
			if _, err := insPset.ExecContext(ctx, modelID, el.LocalID, pset.ID, i, pset.Name); err != nil {
				return fmt.Errorf("insert property set %s: %w", pset.Name, err)
			}
			for j, p := range pset.Properties {
				var value sql.NullString
				if !p.Null {
					value = sql.NullString{String: p.Value, Valid: true}
				}
				if _, err := insProp.ExecContext(ctx, modelID, el.LocalID, pset.ID, j, p.Name, value, p.Type); err != nil {
					return fmt.Errorf("insert property %s: %w", p.Name, err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// DropModel removes all rows of a model
func (x *Index) DropModel(ctx context.Context, modelID string) error {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()
	if err := dropModel(ctx, tx, modelID); err != nil {
		return err
	}
	return tx.Commit()
}

func dropModel(ctx context.Context, tx *sql.Tx, modelID string) error {
	for _, table := range []string{"props", "psets", "elements"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE model_id = ?", modelID); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
