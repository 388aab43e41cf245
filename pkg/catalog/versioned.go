package catalog

import (
	"sort"
	"sync"

	"github.com/reifydb/reifydb/pkg/types"
)

// versionedValue is one entry in an entity's version history. A nil Def
// marks a deletion at that version (the design notes, "multi-version per
// entity").
type versionedValue[T any] struct {
	version types.CommitVersion
	def     *T
}

// versionedSeries keeps one entity id's (or one name binding's) full
// version history, ordered by version, and answers point-in-time lookups
// via binary search - the same "find the largest version <= asOf" shape as
// the teacher pack's versionedTableInfoStore.getTableInfo.
type versionedSeries[T any] struct {
	mu      sync.RWMutex
	entries []versionedValue[T]
}

func newVersionedSeries[T any]() *versionedSeries[T] {
	return &versionedSeries[T]{}
}

// set installs def (nil for a deletion) as this series' value at version.
// A second call at the same version overwrites it in place, so DDL that
// replaces an entity twice within one transaction's retries never leaves a
// stale intermediate entry.
func (s *versionedSeries[T]) set(version types.CommitVersion, def *T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.entries); n > 0 && s.entries[n-1].version == version {
		s.entries[n-1].def = def
		return
	}
	s.entries = append(s.entries, versionedValue[T]{version: version, def: def})
}

// find returns the Def active at asOf, or false if the entity didn't exist
// yet or was deleted by then.
func (s *versionedSeries[T]) find(asOf types.CommitVersion) (*T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].version > asOf
	}) - 1
	if idx < 0 {
		return nil, false
	}
	if def := s.entries[idx].def; def != nil {
		return def, true
	}
	return nil, false
}

// drop discards history entries at or below upToVersion beyond the most
// recent keepLastVersions, mirroring store.Drop's retention contract.
func (s *versionedSeries[T]) drop(upToVersion types.CommitVersion, keepLastVersions int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cut := len(s.entries) - keepLastVersions
	for i := cut - 1; i >= 0; i-- {
		if s.entries[i].version > upToVersion {
			continue
		}
		s.entries = s.entries[i+1:]
		return
	}
}

// idIndex maps entity id to its version history.
type idIndex[T any] struct {
	mu   sync.RWMutex
	byID map[uint64]*versionedSeries[T]
}

func newIDIndex[T any]() *idIndex[T] {
	return &idIndex[T]{byID: make(map[uint64]*versionedSeries[T])}
}

func (x *idIndex[T]) series(id uint64) *versionedSeries[T] {
	x.mu.Lock()
	defer x.mu.Unlock()
	s, ok := x.byID[id]
	if !ok {
		s = newVersionedSeries[T]()
		x.byID[id] = s
	}
	return s
}

func (x *idIndex[T]) set(id uint64, version types.CommitVersion, def *T) {
	x.series(id).set(version, def)
}

func (x *idIndex[T]) find(id uint64, asOf types.CommitVersion) (*T, bool) {
	x.mu.RLock()
	s, ok := x.byID[id]
	x.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return s.find(asOf)
}

func (x *idIndex[T]) drop(id uint64, upToVersion types.CommitVersion, keepLastVersions int) {
	x.mu.RLock()
	s, ok := x.byID[id]
	x.mu.RUnlock()
	if ok {
		s.drop(upToVersion, keepLastVersions)
	}
}

// nameKey scopes a name binding: scope is a namespace id for top-level
// entities, or an owning primitive's id for entities (like Column) whose
// names are only unique within their owner.
type nameKey struct {
	scope uint64
	name  string
}

// namedIndex layers a (scope, name) -> id binding on top of an idIndex,
// implementing the rename/move invariant from the design notes: a lookup by the
// old name at a version before the rename must still resolve, and by the
// new name at versions at or after it.
type namedIndex[T any] struct {
	*idIndex[T]

	mu     sync.RWMutex
	byName map[nameKey]*versionedSeries[uint64]
}

func newNamedIndex[T any]() *namedIndex[T] {
	return &namedIndex[T]{idIndex: newIDIndex[T](), byName: make(map[nameKey]*versionedSeries[uint64])}
}

func (x *namedIndex[T]) nameSeries(scope uint64, name string) *versionedSeries[uint64] {
	key := nameKey{scope: scope, name: name}
	x.mu.Lock()
	defer x.mu.Unlock()
	s, ok := x.byName[key]
	if !ok {
		s = newVersionedSeries[uint64]()
		x.byName[key] = s
	}
	return s
}

// setNamed installs def as id's Def at version and rebinds the name index.
// previous, when non-nil, is the entity's (scope, name) before this change;
// when it differs from the new scope/name (a rename or a namespace move),
// the old binding is closed off at version so historical lookups still see
// it, and the new binding opens at version.
func (x *namedIndex[T]) setNamed(id uint64, version types.CommitVersion, scope uint64, name string, def *T, previous *nameKey) {
	x.idIndex.set(id, version, def)

	if def == nil {
		if previous != nil {
			x.nameSeries(previous.scope, previous.name).set(version, nil)
		}
		return
	}

	if previous != nil && (previous.scope != scope || previous.name != name) {
		x.nameSeries(previous.scope, previous.name).set(version, nil)
	}
	idCopy := id
	x.nameSeries(scope, name).set(version, &idCopy)
}

func (x *namedIndex[T]) findByName(scope uint64, name string, asOf types.CommitVersion) (*T, bool) {
	key := nameKey{scope: scope, name: name}
	x.mu.RLock()
	s, ok := x.byName[key]
	x.mu.RUnlock()
	if !ok {
		return nil, false
	}
	id, ok := s.find(asOf)
	if !ok {
		return nil, false
	}
	return x.idIndex.find(*id, asOf)
}

// findAllByScope resolves every name binding under scope that is live at
// asOf, returning each bound entity in name order. Used by Catalog to
// enumerate a table or view's columns without a dedicated owner index.
func (x *namedIndex[T]) findAllByScope(scope uint64, asOf types.CommitVersion) []*T {
	x.mu.RLock()
	var keys []nameKey
	for k := range x.byName {
		if k.scope == scope {
			keys = append(keys, k)
		}
	}
	x.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool { return keys[i].name < keys[j].name })

	out := make([]*T, 0, len(keys))
	for _, k := range keys {
		if def, ok := x.findByName(k.scope, k.name, asOf); ok {
			out = append(out, def)
		}
	}
	return out
}
