package schema

import (
	"fmt"

	"github.com/seisops/db2qml/internal/catalog"
)

// kmToM converts a CSS kilometer quantity to meters, preserving absence.
func kmToM(v catalog.OptFloat) catalog.OptFloat {
	if !v.Valid {
		return v
	}
	return catalog.Float(v.Float64 * 1000.0)
}

// fracToPct converts a CSS confidence fraction to percent, preserving
// absence.
func fracToPct(v catalog.OptFloat) catalog.OptFloat {
	if !v.Valid {
		return v
	}
	return catalog.Float(v.Float64 * 100.0)
}

// Normalize coerces one raw row against a registered table specification
// and shapes it into the typed record for that table. sourceSchema tags the
// record's provenance (catalog.SchemaCSS or catalog.SchemaORB; ORB packet
// payloads share the CSS table shapes).
func Normalize(table string, row Row, sourceSchema string) (Record, error) {
	spec, ok := Table(table)
	if !ok {
		return nil, fmt.Errorf("schema: unknown table %q", table)
	}

	vals := make(map[string]value, len(spec.Fields))
	for _, f := range spec.Fields {
		v, err := coerce(table, row, f)
		if err != nil {
			return nil, err
		}
		vals[f.Name] = v
	}

	switch table {
	case TableOrigin:
		return shapeOrigin(vals, sourceSchema), nil
	case TableNetmag:
		return shapeNetmag(vals, sourceSchema), nil
	case TableEvent:
		return shapeEvent(vals, sourceSchema), nil
	case TableFplane:
		return shapeFplane(vals, sourceSchema), nil
	}
	return nil, fmt.Errorf("schema: table %q has no record shape", table)
}

func optFloat(v value) catalog.OptFloat {
	if !v.valid {
		return catalog.OptFloat{}
	}
	return catalog.Float(v.f)
}

func optInt(v value) catalog.OptInt {
	if !v.valid {
		return catalog.OptInt{}
	}
	return catalog.Int(v.i)
}

func shapeOrigin(vals map[string]value, sourceSchema string) *OriginRecord {
	return &OriginRecord{
		Orid:      vals["orid"].i,
		Evid:      optInt(vals["evid"]),
		Lat:       vals["lat"].f,
		Lon:       vals["lon"].f,
		Time:      vals["time"].f,
		Depth:     kmToM(optFloat(vals["depth"])),
		Nass:      optInt(vals["nass"]),
		Ndef:      optInt(vals["ndef"]),
		Etype:     vals["etype"].s,
		Auth:      vals["auth"].s,
		Algorithm: vals["algorithm"].s,
		ML:        optFloat(vals["ml"]),
		MB:        optFloat(vals["mb"]),
		MS:        optFloat(vals["ms"]),
		Smajax:    kmToM(optFloat(vals["smajax"])),
		Sminax:    kmToM(optFloat(vals["sminax"])),
		Strike:    optFloat(vals["strike"]),
		Sdepth:    kmToM(optFloat(vals["sdepth"])),
		Stime:     optFloat(vals["stime"]),
		Sdobs:     optFloat(vals["sdobs"]),
		Conf:      fracToPct(optFloat(vals["conf"])),
		Lddate:    optFloat(vals["lddate"]),
		schema:    sourceSchema,
	}
}

func shapeNetmag(vals map[string]value, sourceSchema string) *NetmagRecord {
	return &NetmagRecord{
		Magid:       vals["magid"].i,
		Orid:        vals["orid"].i,
		Evid:        optInt(vals["evid"]),
		Magtype:     vals["magtype"].s,
		Magnitude:   vals["magnitude"].f,
		Uncertainty: optFloat(vals["uncertainty"]),
		Nsta:        optInt(vals["nsta"]),
		Auth:        vals["auth"].s,
		Lddate:      optFloat(vals["lddate"]),
		schema:      sourceSchema,
	}
}

func shapeFplane(vals map[string]value, sourceSchema string) *FplaneRecord {
	return &FplaneRecord{
		Mechid:    vals["mechid"].i,
		Orid:      vals["orid"].i,
		Str1:      vals["str1"].f,
		Dip1:      vals["dip1"].f,
		Rake1:     vals["rake1"].f,
		Str2:      vals["str2"].f,
		Dip2:      vals["dip2"].f,
		Rake2:     vals["rake2"].f,
		Taxazm:    optFloat(vals["taxazm"]),
		Taxplg:    optFloat(vals["taxplg"]),
		Paxazm:    optFloat(vals["paxazm"]),
		Paxplg:    optFloat(vals["paxplg"]),
		Algorithm: vals["algorithm"].s,
		Auth:      vals["auth"].s,
		Lddate:    optFloat(vals["lddate"]),
		schema:    sourceSchema,
	}
}

func shapeEvent(vals map[string]value, sourceSchema string) *EventRecord {
	return &EventRecord{
		Evid:   vals["evid"].i,
		Prefor: optInt(vals["prefor"]),
		Evname: vals["evname"].s,
		Auth:   vals["auth"].s,
		Lddate: optFloat(vals["lddate"]),
		schema: sourceSchema,
	}
}
