package convert

import "github.com/seisops/db2qml/internal/catalog"

// Options holds converter policy shared by all drivers.
type Options struct {
	// Authority is the resource identifier authority (e.g. "nn.anss.org").
	Authority string

	// AgencyID is the short agency code stamped into creation info.
	AgencyID string

	// SynthesizePlaceholders attaches magnitudes with unresolvable origin
	// references to a synthesized placeholder origin at finalize instead
	// of dropping them.
	SynthesizePlaceholders bool

	// OriginMagFallback derives magnitudes from the origin row's ml/mb/ms
	// columns when no netmag records exist for the event.
	OriginMagFallback bool

	// Precedence orders source schema families for duplicate-entity merge:
	// earlier entries win over later ones; equal-rank sightings are
	// last-writer-wins.
	Precedence []string

	// EtypeMap extends/overrides the default CSS etype to QuakeML event
	// type mapping.
	EtypeMap map[string]string
}

// withDefaults fills unset options.
func (o Options) withDefaults() Options {
	if o.Authority == "" {
		o.Authority = "local"
	}
	if o.AgencyID == "" {
		o.AgencyID = "XX"
	}
	if len(o.Precedence) == 0 {
		o.Precedence = []string{catalog.SchemaCSS, catalog.SchemaORB, catalog.SchemaIchinose}
	}
	return o
}

// rank returns the precedence rank of a source schema; lower wins.
// Unlisted schemas rank last.
func (o Options) rank(sourceSchema string) int {
	for i, s := range o.Precedence {
		if s == sourceSchema {
			return i
		}
	}
	return len(o.Precedence)
}
