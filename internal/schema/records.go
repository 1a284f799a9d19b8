package schema

import "github.com/seisops/db2qml/internal/catalog"

// Record is a normalized intermediate record of any source table.
type Record interface {
	// Prov identifies the source record this was normalized from.
	Prov() catalog.Provenance
}

// OriginRecord is a normalized origin <- origerr join row.
// Depth and error-ellipse axes are meters (CSS stores kilometers),
// confidence is percent (CSS stores a fraction).
type OriginRecord struct {
	Orid int64
	Evid catalog.OptInt

	Lat  float64
	Lon  float64
	Time float64 // epoch seconds

	Depth catalog.OptFloat // meters

	Nass catalog.OptInt
	Ndef catalog.OptInt

	Etype     string
	Auth      string
	Algorithm string

	// Magnitudes carried on the origin row itself, used as a fallback
	// when no netmag rows exist for the orid.
	ML, MB, MS catalog.OptFloat

	// origerr
	Smajax catalog.OptFloat // meters
	Sminax catalog.OptFloat // meters
	Strike catalog.OptFloat // degrees
	Sdepth catalog.OptFloat // meters
	Stime  catalog.OptFloat // seconds
	Sdobs  catalog.OptFloat
	Conf   catalog.OptFloat // percent

	Lddate catalog.OptFloat

	schema string
}

func (r *OriginRecord) Prov() catalog.Provenance {
	return catalog.Provenance{Schema: r.schema, Table: TableOrigin, SourceID: r.Orid, Author: r.Auth, LoadDate: r.Lddate}
}

// NetmagRecord is a normalized netmag row.
type NetmagRecord struct {
	Magid int64
	Orid  int64 // cross-reference to origin.orid
	Evid  catalog.OptInt

	Magtype     string
	Magnitude   float64
	Uncertainty catalog.OptFloat
	Nsta        catalog.OptInt

	Auth   string
	Lddate catalog.OptFloat

	schema string
}

func (r *NetmagRecord) Prov() catalog.Provenance {
	return catalog.Provenance{Schema: r.schema, Table: TableNetmag, SourceID: r.Magid, Author: r.Auth, LoadDate: r.Lddate}
}

// FplaneRecord is a normalized fplane row: a first-motion focal mechanism
// as two nodal planes plus optional principal axes, degrees throughout.
type FplaneRecord struct {
	Mechid int64
	Orid   int64 // cross-reference to origin.orid

	Str1, Dip1, Rake1 float64
	Str2, Dip2, Rake2 float64

	Taxazm, Taxplg catalog.OptFloat
	Paxazm, Paxplg catalog.OptFloat

	Algorithm string
	Auth      string
	Lddate    catalog.OptFloat

	schema string
}

func (r *FplaneRecord) Prov() catalog.Provenance {
	return catalog.Provenance{Schema: r.schema, Table: TableFplane, SourceID: r.Mechid, Author: r.Auth, LoadDate: r.Lddate}
}

// EventRecord is a normalized event row.
type EventRecord struct {
	Evid   int64
	Prefor catalog.OptInt
	Evname string
	Auth   string
	Lddate catalog.OptFloat

	schema string
}

func (r *EventRecord) Prov() catalog.Provenance {
	return catalog.Provenance{Schema: r.schema, Table: TableEvent, SourceID: r.Evid, Author: r.Auth, LoadDate: r.Lddate}
}
