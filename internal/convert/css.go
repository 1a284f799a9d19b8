package convert

import (
	"github.com/seisops/db2qml/internal/catalog"
	"github.com/seisops/db2qml/internal/ichinose"
	"github.com/seisops/db2qml/internal/orb"
	"github.com/seisops/db2qml/internal/schema"
)

// TaggedRow is one raw source row together with the CSS table it belongs
// to. Rows may arrive in any table order.
type TaggedRow struct {
	Table string
	Row   schema.Row
}

// CSSConverter turns CSS3.0 flat-file rows into one canonical event.
type CSSConverter struct {
	opts Options
}

// NewCSSConverter returns a converter with the given policy.
func NewCSSConverter(opts Options) *CSSConverter {
	return &CSSConverter{opts: opts.withDefaults()}
}

// Convert assembles the rows into a single finalized event. Malformed or
// invalid rows are dropped with diagnostics; an empty input is the only
// hard failure.
func (c *CSSConverter) Convert(rows []TaggedRow) (*catalog.Event, []Diagnostic, error) {
	if len(rows) == 0 {
		return nil, nil, ErrNoRecords
	}

	b := NewBuilder(c.opts)
	for _, tr := range rows {
		rec, err := schema.Normalize(tr.Table, tr.Row, catalog.SchemaCSS)
		if err != nil {
			b.warn(catalog.Provenance{Schema: catalog.SchemaCSS, Table: tr.Table}, err, "row dropped")
			continue
		}
		feedRecord(b, rec)
	}
	return b.Finalize()
}

// feedRecord dispatches a normalized record to the builder. Per-record
// errors are already reported as diagnostics by the builder.
func feedRecord(b *Builder, rec schema.Record) {
	switch r := rec.(type) {
	case *schema.OriginRecord:
		b.AddOrigin(r)
	case *schema.NetmagRecord:
		b.AddMagnitude(r)
	case *schema.FplaneRecord:
		b.AddFocalMechanism(r)
	case *schema.EventRecord:
		b.AddEvent(r)
	}
}

// AntelopeConverter turns decoded ORB object packets into one canonical
// event. Packet payloads are CSS-shaped rows, so decoding funnels into the
// same table normalizer as the flat-file path; only the provenance differs.
type AntelopeConverter struct {
	opts Options
}

// NewAntelopeConverter returns a converter with the given policy.
func NewAntelopeConverter(opts Options) *AntelopeConverter {
	return &AntelopeConverter{opts: opts.withDefaults()}
}

// Convert assembles the packets into a single finalized event.
func (c *AntelopeConverter) Convert(packets []orb.Packet) (*catalog.Event, []Diagnostic, error) {
	if len(packets) == 0 {
		return nil, nil, ErrNoRecords
	}

	b := NewBuilder(c.opts)
	for _, p := range packets {
		rec, err := orb.Decode(p)
		if err != nil {
			b.warn(catalog.Provenance{Schema: catalog.SchemaORB}, err, "packet dropped")
			continue
		}
		feedRecord(b, rec)
	}
	return b.Finalize()
}

// IchinoseConverter turns moment-tensor solution text blocks into one
// canonical event carrying a derived origin, a moment magnitude and the
// tensor itself.
type IchinoseConverter struct {
	opts Options
}

// NewIchinoseConverter returns a converter with the given policy.
func NewIchinoseConverter(opts Options) *IchinoseConverter {
	return &IchinoseConverter{opts: opts.withDefaults()}
}

// Convert parses and assembles the solution blocks.
func (c *IchinoseConverter) Convert(blocks []string) (*catalog.Event, []Diagnostic, error) {
	if len(blocks) == 0 {
		return nil, nil, ErrNoRecords
	}

	b := NewBuilder(c.opts)
	for _, text := range blocks {
		sol, err := ichinose.Parse(text)
		if err != nil {
			b.warn(catalog.Provenance{Schema: catalog.SchemaIchinose}, err, "solution dropped")
			continue
		}
		b.AddMomentTensor(sol)
	}
	return b.Finalize()
}
