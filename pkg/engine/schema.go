package engine

import (
	"github.com/reifydb/reifydb/pkg/encoding"
	"github.com/reifydb/reifydb/pkg/types"
)

// schemaFor turns ownerID's live columns into an encoding.Schema, caching
// the result. Column.TypeConstraint in pkg/catalog is only a types.Kind, not
// a full types.Constraint (precision/scale, max-length) - every field is
// built with types.NoConstraint(), a recorded scope limitation (DESIGN.md):
// CAST and storage both still work, but a column declared e.g. utf8 cannot
// presently carry a max-length constraint end to end.
func (e *Engine) schemaFor(ownerID uint64) *encoding.Schema {
	e.mu.RLock()
	s, ok := e.schemas[ownerID]
	e.mu.RUnlock()
	if ok {
		return s
	}

	asOf := e.currentVersionUnsafe()
	cols := e.cat.ColumnsByOwner(ownerID, asOf)
	if len(cols) == 0 {
		return nil
	}
	specs := make([]encoding.FieldSpec, len(cols))
	for i, c := range cols {
		specs[i] = encoding.FieldSpec{Name: c.Name, Kind: c.TypeConstraint, Constraint: types.NoConstraint()}
	}
	schema := encoding.NewSchema(specs)

	e.mu.Lock()
	e.schemas[ownerID] = schema
	e.mu.Unlock()
	return schema
}

// invalidateSchemas drops the whole schema cache, alongside the compiler's
// program cache, whenever DDL changes the catalog - both are keyed off a
// snapshot of the world that a DDL commit just replaced.
func (e *Engine) invalidateSchemas() {
	e.mu.Lock()
	e.schemas = map[uint64]*encoding.Schema{}
	e.mu.Unlock()
	e.compiler.Invalidate()
}

func (e *Engine) currentVersionUnsafe() types.CommitVersion {
	v, err := e.store.CurrentVersion(bg())
	if err != nil {
		return types.VersionBeforeAnyCommit
	}
	return v
}
