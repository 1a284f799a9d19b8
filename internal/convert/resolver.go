package convert

import (
	"strconv"

	"github.com/seisops/db2qml/internal/catalog"
)

// SourceKey identifies one source record across tables:
// (source schema, source table, source integer id). Two records are the
// same canonical entity iff their keys are equal or an explicit
// cross-reference field links them.
//
// ORB packets carry CSS-shaped rows, so CSS tables share one identifier
// namespace regardless of transport; provenance keeps the transport family
// for precedence decisions.
type SourceKey struct {
	Schema string
	Table  string
	ID     int64
}

// CSSKey builds the shared-namespace key for a CSS table record.
func CSSKey(table string, id int64) SourceKey {
	return SourceKey{Schema: catalog.SchemaCSS, Table: table, ID: id}
}

// Resolver maps source keys to stable canonical identifiers. Its namespace
// is scoped to one conversion run; concurrent batch workers each own their
// own resolver.
type Resolver struct {
	authority string
	ids       map[SourceKey]catalog.ResourceID
}

// NewResolver returns an empty resolver minting identifiers under the
// given authority.
func NewResolver(authority string) *Resolver {
	return &Resolver{
		authority: authority,
		ids:       make(map[SourceKey]catalog.ResourceID),
	}
}

// Resolve returns the canonical identifier for a source key, minting one on
// first sighting. typePath names the entity in the identifier, e.g.
// "Origin" or "Magnitude/ml" (magnitudes need the type to stay unique when
// the source reuses the orid as version).
func (r *Resolver) Resolve(key SourceKey, typePath ...string) catalog.ResourceID {
	if id, ok := r.ids[key]; ok {
		return id
	}
	parts := append(typePath, strconv.FormatInt(key.ID, 10))
	id := catalog.RID(r.authority, parts...)
	r.ids[key] = id
	return id
}

// Lookup returns the canonical identifier for a key only if the key has
// been seen; it never mints.
func (r *Resolver) Lookup(key SourceKey) (catalog.ResourceID, bool) {
	id, ok := r.ids[key]
	return id, ok
}

// Bind records an externally minted identifier (placeholders, derived
// moment-tensor origins) under a source key.
func (r *Resolver) Bind(key SourceKey, id catalog.ResourceID) {
	r.ids[key] = id
}
