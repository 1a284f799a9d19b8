package catalog

import "fmt"

// Source schema families. ORB packets carry CSS-shaped payloads, so a record
// keeps its transport family here even when it resolves into the shared
// CSS identifier namespace.
const (
	SchemaCSS      = "css3.0"
	SchemaORB      = "orb"
	SchemaIchinose = "ichinose"
)

// Provenance records which source produced a derived entity or field.
// Every entity in the graph carries one; conflict resolution between
// duplicate sightings of the same canonical entity is decided by source
// precedence, not arbitrary overwrite.
type Provenance struct {
	Schema   string  // css3.0, orb, ichinose
	Table    string  // origin, netmag, event, moment
	SourceID int64   // source integer id (orid, magid, evid)
	Author   string  // source auth field, when present
	LoadDate OptFloat // source lddate epoch seconds, when present
}

func (p Provenance) String() string {
	return fmt.Sprintf("%s/%s/%d", p.Schema, p.Table, p.SourceID)
}

// CreationInfo mirrors the QuakeML creationInfo element: who produced the
// entity and under which source version number.
type CreationInfo struct {
	AgencyID     string
	Author       string
	Version      string
	CreationTime OptFloat // epoch seconds
}
