package schema

// css.go registers the CSS3.0 table specifications consumed by the
// normalizer. Null sentinels follow the CSS3.0 schema definitions; the
// origin spec includes the origerr columns because sources hand the
// normalizer the origin <- origerr outer join as one row.

// CSS3.0 table names, also used as provenance table tags.
const (
	TableOrigin = "origin"
	TableNetmag = "netmag"
	TableEvent  = "event"
	TableFplane = "fplane"
)

func init() {
	Register(TableSpec{
		Name: TableOrigin,
		Fields: []FieldSpec{
			{Name: "orid", Type: FieldInt, Required: true, Null: "-1"},
			{Name: "evid", Type: FieldInt, Null: "-1"},
			{Name: "lat", Type: FieldFloat, Required: true, Null: "-999.0000"},
			{Name: "lon", Type: FieldFloat, Required: true, Null: "-999.0000"},
			{Name: "depth", Type: FieldFloat, Null: "-999.0000"},
			{Name: "time", Type: FieldTime, Required: true, Null: "-9999999999.99900"},
			{Name: "nass", Type: FieldInt, Null: "-1"},
			{Name: "ndef", Type: FieldInt, Null: "-1"},
			{Name: "etype", Type: FieldText, Null: "-"},
			{Name: "auth", Type: FieldText, Null: "-"},
			{Name: "algorithm", Type: FieldText, Null: "-"},
			{Name: "ml", Type: FieldFloat, Null: "-999.00"},
			{Name: "mb", Type: FieldFloat, Null: "-999.00"},
			{Name: "ms", Type: FieldFloat, Null: "-999.00"},
			{Name: "lddate", Type: FieldTime, Null: "-9999999999.99900"},
			// origerr join (outer, all optional)
			{Name: "smajax", Type: FieldFloat, Null: "-1.0000"},
			{Name: "sminax", Type: FieldFloat, Null: "-1.0000"},
			{Name: "strike", Type: FieldFloat, Null: "-1.00"},
			{Name: "sdepth", Type: FieldFloat, Null: "-1.0000"},
			{Name: "stime", Type: FieldFloat, Null: "-1.0000"},
			{Name: "sdobs", Type: FieldFloat, Null: "-1.0000"},
			{Name: "conf", Type: FieldFloat, Null: "0.000"},
		},
	})

	Register(TableSpec{
		Name: TableNetmag,
		Fields: []FieldSpec{
			{Name: "magid", Type: FieldInt, Required: true, Null: "-1"},
			{Name: "orid", Type: FieldInt, Required: true, Null: "-1"},
			{Name: "evid", Type: FieldInt, Null: "-1"},
			{Name: "magtype", Type: FieldText, Required: true, Null: "-"},
			{Name: "magnitude", Type: FieldFloat, Required: true, Null: "-999.00"},
			{Name: "uncertainty", Type: FieldFloat, Null: "-1.00"},
			{Name: "nsta", Type: FieldInt, Null: "-1"},
			{Name: "auth", Type: FieldText, Null: "-"},
			{Name: "lddate", Type: FieldTime, Null: "-9999999999.99900"},
		},
	})

	// The fplane table defines no null sentinels for its angle columns, so
	// the principal axes are simply absent when the source omits them.
	Register(TableSpec{
		Name: TableFplane,
		Fields: []FieldSpec{
			{Name: "mechid", Type: FieldInt, Required: true, Null: "-1"},
			{Name: "orid", Type: FieldInt, Required: true, Null: "-1"},
			{Name: "str1", Type: FieldFloat, Required: true},
			{Name: "dip1", Type: FieldFloat, Required: true},
			{Name: "rake1", Type: FieldFloat, Required: true},
			{Name: "str2", Type: FieldFloat, Required: true},
			{Name: "dip2", Type: FieldFloat, Required: true},
			{Name: "rake2", Type: FieldFloat, Required: true},
			{Name: "taxazm", Type: FieldFloat},
			{Name: "taxplg", Type: FieldFloat},
			{Name: "paxazm", Type: FieldFloat},
			{Name: "paxplg", Type: FieldFloat},
			{Name: "algorithm", Type: FieldText, Null: "-"},
			{Name: "auth", Type: FieldText, Null: "-"},
			{Name: "lddate", Type: FieldTime, Null: "-9999999999.99900"},
		},
	})

	Register(TableSpec{
		Name: TableEvent,
		Fields: []FieldSpec{
			{Name: "evid", Type: FieldInt, Required: true, Null: "-1"},
			{Name: "prefor", Type: FieldInt, Null: "-1"},
			{Name: "evname", Type: FieldText, Null: "-"},
			{Name: "auth", Type: FieldText, Null: "-"},
			{Name: "lddate", Type: FieldTime, Null: "-9999999999.99900"},
		},
	})
}
