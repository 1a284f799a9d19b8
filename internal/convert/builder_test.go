package convert

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seisops/db2qml/internal/catalog"
	"github.com/seisops/db2qml/internal/ichinose"
	"github.com/seisops/db2qml/internal/schema"
)

func testOptions() Options {
	return Options{Authority: "nn.anss.org", AgencyID: "NN"}
}

func normalizeOrigin(t *testing.T, row schema.Row) *schema.OriginRecord {
	t.Helper()
	rec, err := schema.Normalize(schema.TableOrigin, row, catalog.SchemaCSS)
	require.NoError(t, err)
	return rec.(*schema.OriginRecord)
}

func normalizeNetmag(t *testing.T, row schema.Row) *schema.NetmagRecord {
	t.Helper()
	rec, err := schema.Normalize(schema.TableNetmag, row, catalog.SchemaCSS)
	require.NoError(t, err)
	return rec.(*schema.NetmagRecord)
}

func originRow(orid string) schema.Row {
	return schema.Row{
		"orid":  orid,
		"evid":  "482120",
		"lat":   "38.1234",
		"lon":   "-118.4567",
		"depth": "7.2",
		"time":  "1365736932.14",
		"etype": "eq",
		"auth":  "analyst:jdoe",
	}
}

func netmagRow(magid, orid string) schema.Row {
	return schema.Row{
		"magid":     magid,
		"orid":      orid,
		"magtype":   "ml",
		"magnitude": "3.4",
		"auth":      "analyst:jdoe",
	}
}

func normalizeFplane(t *testing.T, row schema.Row) *schema.FplaneRecord {
	t.Helper()
	rec, err := schema.Normalize(schema.TableFplane, row, catalog.SchemaCSS)
	require.NoError(t, err)
	return rec.(*schema.FplaneRecord)
}

func fplaneRow(mechid, orid string) schema.Row {
	return schema.Row{
		"mechid":    mechid,
		"orid":      orid,
		"str1":      "212",
		"dip1":      "78",
		"rake1":     "-155",
		"str2":      "115",
		"dip2":      "66",
		"rake2":     "-13",
		"taxazm":    "250",
		"taxplg":    "30",
		"paxazm":    "160",
		"paxplg":    "2",
		"algorithm": "fpfit",
		"auth":      "analyst:jdoe",
	}
}

func TestBuilderOriginMagnitudePair(t *testing.T) {
	b := NewBuilder(testOptions())
	require.NoError(t, b.AddOrigin(normalizeOrigin(t, originRow("1"))))
	require.NoError(t, b.AddMagnitude(normalizeNetmag(t, netmagRow("5", "1"))))

	ev, diags, err := b.Finalize()
	require.NoError(t, err)
	assert.Empty(t, diags)

	origins := ev.Origins()
	mags := ev.Magnitudes()
	require.Len(t, origins, 1)
	require.Len(t, mags, 1)

	// Exactly one magnitude referencing exactly one origin by identifier.
	assert.Equal(t, origins[0].ID, mags[0].OriginID)
	assert.Equal(t, catalog.ResourceID("quakeml:nn.anss.org/Origin/1"), origins[0].ID)
	assert.Equal(t, catalog.ResourceID("quakeml:nn.anss.org/Magnitude/ml/5"), mags[0].ID)

	assert.True(t, ev.Frozen())
	assert.Equal(t, origins[0].ID, ev.PreferredOriginID)
	assert.Equal(t, mags[0].ID, ev.PreferredMagnitudeID)
	assert.Equal(t, "earthquake", ev.Type)
	assert.Equal(t, catalog.ResourceID("quakeml:nn.anss.org/Event/482120"), ev.ID)
}

func TestBuilderForwardReference(t *testing.T) {
	// Magnitude arrives before its origin; the reference resolves at
	// finalize rather than being dropped.
	b := NewBuilder(testOptions())
	require.NoError(t, b.AddMagnitude(normalizeNetmag(t, netmagRow("5", "1"))))
	require.NoError(t, b.AddOrigin(normalizeOrigin(t, originRow("1"))))

	ev, diags, err := b.Finalize()
	require.NoError(t, err)
	assert.Empty(t, diags)

	require.Len(t, ev.Magnitudes(), 1)
	assert.Equal(t, ev.Origins()[0].ID, ev.Magnitudes()[0].OriginID)
}

func TestBuilderUnresolvedMagnitudeDropped(t *testing.T) {
	b := NewBuilder(testOptions())
	require.NoError(t, b.AddOrigin(normalizeOrigin(t, originRow("1"))))
	require.NoError(t, b.AddMagnitude(normalizeNetmag(t, netmagRow("5", "99"))))

	ev, diags, err := b.Finalize()
	require.NoError(t, err)

	assert.Empty(t, ev.Magnitudes())
	require.Len(t, diags, 1)
	assert.Equal(t, SeverityWarning, diags[0].Severity)
	var conflict *IdentityConflictError
	require.ErrorAs(t, diags[0].Err, &conflict)
	assert.Equal(t, int64(99), conflict.Ref.ID)
}

func TestBuilderPlaceholderOrigin(t *testing.T) {
	opts := testOptions()
	opts.SynthesizePlaceholders = true
	b := NewBuilder(opts)
	require.NoError(t, b.AddMagnitude(normalizeNetmag(t, netmagRow("5", "99"))))

	ev, diags, err := b.Finalize()
	require.NoError(t, err)

	require.Len(t, ev.Origins(), 1)
	require.Len(t, ev.Magnitudes(), 1)
	assert.Equal(t, ev.Origins()[0].ID, ev.Magnitudes()[0].OriginID)
	assert.Equal(t, "placeholder", ev.Origins()[0].Method)
	require.Len(t, diags, 1)
	assert.Equal(t, SeverityWarning, diags[0].Severity)
}

func TestBuilderInvalidOriginDropped(t *testing.T) {
	b := NewBuilder(testOptions())
	row := originRow("1")
	row["lat"] = "95.0"

	err := b.AddOrigin(normalizeOrigin(t, row))
	var invalid *InvalidEntityError
	require.ErrorAs(t, err, &invalid)

	require.NoError(t, b.AddOrigin(normalizeOrigin(t, originRow("2"))))
	ev, diags, err := b.Finalize()
	require.NoError(t, err)

	// The bad record is local damage; the event still builds.
	assert.Len(t, ev.Origins(), 1)
	require.Len(t, diags, 1)
	assert.Equal(t, SeverityWarning, diags[0].Severity)
}

func TestBuilderDuplicateOriginMerges(t *testing.T) {
	b := NewBuilder(testOptions())
	require.NoError(t, b.AddOrigin(normalizeOrigin(t, originRow("1"))))

	update := originRow("1")
	update["depth"] = "9.5"
	require.NoError(t, b.AddOrigin(normalizeOrigin(t, update)))

	ev, _, err := b.Finalize()
	require.NoError(t, err)

	origins := ev.Origins()
	require.Len(t, origins, 1)
	// Same canonical identifier, updated fields.
	assert.Equal(t, catalog.ResourceID("quakeml:nn.anss.org/Origin/1"), origins[0].ID)
	require.True(t, origins[0].Depth.Valid)
	assert.InDelta(t, 9500.0, origins[0].Depth.Float64, 1e-9)
}

func TestBuilderDuplicateMagnitudeMerges(t *testing.T) {
	b := NewBuilder(testOptions())
	require.NoError(t, b.AddOrigin(normalizeOrigin(t, originRow("1"))))
	require.NoError(t, b.AddMagnitude(normalizeNetmag(t, netmagRow("5", "1"))))

	update := netmagRow("5", "1")
	update["magnitude"] = "3.6"
	require.NoError(t, b.AddMagnitude(normalizeNetmag(t, update)))

	ev, _, err := b.Finalize()
	require.NoError(t, err)

	mags := ev.Magnitudes()
	require.Len(t, mags, 1)
	// Same canonical identifier, updated fields.
	assert.Equal(t, catalog.ResourceID("quakeml:nn.anss.org/Magnitude/ml/5"), mags[0].ID)
	assert.InDelta(t, 3.6, mags[0].Value, 1e-9)
	assert.Equal(t, ev.Origins()[0].ID, mags[0].OriginID)
}

func TestBuilderCrossSourceMagnitudePrecedence(t *testing.T) {
	orbNetmag := func(magid, orid, value string) *schema.NetmagRecord {
		row := netmagRow(magid, orid)
		row["magnitude"] = value
		rec, err := schema.Normalize(schema.TableNetmag, row, catalog.SchemaORB)
		require.NoError(t, err)
		return rec.(*schema.NetmagRecord)
	}

	// An ORB update never overrides a database sighting of the same magid.
	b := NewBuilder(testOptions())
	require.NoError(t, b.AddOrigin(normalizeOrigin(t, originRow("1"))))
	require.NoError(t, b.AddMagnitude(normalizeNetmag(t, netmagRow("5", "1"))))
	require.NoError(t, b.AddMagnitude(orbNetmag("5", "1", "3.9")))

	ev, _, err := b.Finalize()
	require.NoError(t, err)
	require.Len(t, ev.Magnitudes(), 1)
	assert.InDelta(t, 3.4, ev.Magnitudes()[0].Value, 1e-9)

	// The reverse arrival order upgrades the entity in place.
	b = NewBuilder(testOptions())
	require.NoError(t, b.AddOrigin(normalizeOrigin(t, originRow("1"))))
	require.NoError(t, b.AddMagnitude(orbNetmag("5", "1", "3.9")))
	require.NoError(t, b.AddMagnitude(normalizeNetmag(t, netmagRow("5", "1"))))

	ev, _, err = b.Finalize()
	require.NoError(t, err)
	require.Len(t, ev.Magnitudes(), 1)
	assert.InDelta(t, 3.4, ev.Magnitudes()[0].Value, 1e-9)
	assert.Equal(t, catalog.SchemaCSS, ev.Magnitudes()[0].Source.Schema)
}

func TestBuilderFocalMechanism(t *testing.T) {
	b := NewBuilder(testOptions())
	require.NoError(t, b.AddOrigin(normalizeOrigin(t, originRow("1"))))
	require.NoError(t, b.AddFocalMechanism(normalizeFplane(t, fplaneRow("3", "1"))))

	// A repeat sighting of the same mechid merges, not duplicates.
	update := fplaneRow("3", "1")
	update["str1"] = "215"
	require.NoError(t, b.AddFocalMechanism(normalizeFplane(t, update)))

	ev, _, err := b.Finalize()
	require.NoError(t, err)

	mechs := ev.FocalMechanisms()
	require.Len(t, mechs, 1)
	fm := mechs[0]
	assert.Equal(t, catalog.ResourceID("quakeml:nn.anss.org/FocalMechanism/3"), fm.ID)
	assert.Equal(t, ev.Origins()[0].ID, fm.TriggeringOriginID)
	assert.InDelta(t, 215.0, fm.Plane1.Strike, 1e-9)
	assert.InDelta(t, 66.0, fm.Plane2.Dip, 1e-9)
	assert.Equal(t, "fpfit:analyst:jdoe", fm.Info.Author)
	require.True(t, fm.TAxis.Azimuth.Valid)
	assert.InDelta(t, 250.0, fm.TAxis.Azimuth.Float64, 1e-9)
}

func TestBuilderFocalMechanismBeforeOrigin(t *testing.T) {
	// The fplane row may precede its origin; the reference resolves at
	// finalize like buffered magnitudes do.
	b := NewBuilder(testOptions())
	require.NoError(t, b.AddFocalMechanism(normalizeFplane(t, fplaneRow("3", "1"))))
	require.NoError(t, b.AddOrigin(normalizeOrigin(t, originRow("1"))))

	ev, _, err := b.Finalize()
	require.NoError(t, err)
	require.Len(t, ev.FocalMechanisms(), 1)
	assert.Equal(t, ev.Origins()[0].ID, ev.FocalMechanisms()[0].TriggeringOriginID)
}

func TestBuilderFocalMechanismBadDip(t *testing.T) {
	row := fplaneRow("3", "1")
	row["dip1"] = "95"

	b := NewBuilder(testOptions())
	err := b.AddFocalMechanism(normalizeFplane(t, row))
	var invalid *InvalidEntityError
	require.ErrorAs(t, err, &invalid)
}

func TestBuilderOriginMagnitudeFallback(t *testing.T) {
	opts := testOptions()
	opts.OriginMagFallback = true
	b := NewBuilder(opts)

	row := originRow("1")
	row["ml"] = "3.2"
	row["mb"] = "4.1"
	require.NoError(t, b.AddOrigin(normalizeOrigin(t, row)))

	ev, _, err := b.Finalize()
	require.NoError(t, err)

	mags := ev.Magnitudes()
	require.Len(t, mags, 2)
	assert.Equal(t, "ml", mags[0].Type)
	assert.InDelta(t, 3.2, mags[0].Value, 1e-9)
	assert.Equal(t, "mb", mags[1].Type)
	assert.Equal(t, ev.Origins()[0].ID, mags[0].OriginID)
}

func TestBuilderPreferredOriginFromEvent(t *testing.T) {
	b := NewBuilder(testOptions())
	require.NoError(t, b.AddOrigin(normalizeOrigin(t, originRow("1"))))
	require.NoError(t, b.AddOrigin(normalizeOrigin(t, originRow("2"))))

	rec, err := schema.Normalize(schema.TableEvent, schema.Row{
		"evid":   "482120",
		"prefor": "1",
		"evname": "Spanish Springs",
	}, catalog.SchemaCSS)
	require.NoError(t, err)
	b.AddEvent(rec.(*schema.EventRecord))

	ev, _, err := b.Finalize()
	require.NoError(t, err)

	assert.Equal(t, catalog.ResourceID("quakeml:nn.anss.org/Origin/1"), ev.PreferredOriginID)
	assert.Equal(t, "Spanish Springs", ev.Description)
}

func TestBuilderSetPreferredOrigin(t *testing.T) {
	b := NewBuilder(testOptions())
	// Designation may precede the origin it names.
	b.SetPreferredOrigin(1)
	require.NoError(t, b.AddOrigin(normalizeOrigin(t, originRow("1"))))
	require.NoError(t, b.AddOrigin(normalizeOrigin(t, originRow("2"))))

	ev, _, err := b.Finalize()
	require.NoError(t, err)
	assert.Equal(t, catalog.ResourceID("quakeml:nn.anss.org/Origin/1"), ev.PreferredOriginID)
}

func TestBuilderPreferredOriginDefaultsToNewest(t *testing.T) {
	b := NewBuilder(testOptions())
	require.NoError(t, b.AddOrigin(normalizeOrigin(t, originRow("1"))))
	require.NoError(t, b.AddOrigin(normalizeOrigin(t, originRow("2"))))

	ev, _, err := b.Finalize()
	require.NoError(t, err)
	assert.Equal(t, catalog.ResourceID("quakeml:nn.anss.org/Origin/2"), ev.PreferredOriginID)
}

func TestBuilderANSSAttributes(t *testing.T) {
	b := NewBuilder(testOptions())
	require.NoError(t, b.AddOrigin(normalizeOrigin(t, originRow("1"))))

	ev, _, err := b.Finalize()
	require.NoError(t, err)

	assert.Equal(t, "nn", ev.ANSS["datasource"])
	assert.Equal(t, "nn", ev.ANSS["eventsource"])
	assert.Equal(t, "00482120", ev.ANSS["eventid"])
	assert.Equal(t, "nn00482120", ev.ANSS["dataid"])
}

func TestBuilderMomentTensor(t *testing.T) {
	sol, err := ichinose.Parse(mtFixture)
	require.NoError(t, err)

	b := NewBuilder(testOptions())
	require.NoError(t, b.AddMomentTensor(sol))

	ev, _, err := b.Finalize()
	require.NoError(t, err)

	require.Len(t, ev.Origins(), 1)
	derived := ev.Origins()[0]
	assert.True(t, strings.HasSuffix(derived.ID.String(), "/mt"))
	assert.Equal(t, "from moment tensor inversion", derived.DepthType)

	mags := ev.Magnitudes()
	require.Len(t, mags, 1)
	assert.Equal(t, "Mw", mags[0].Type)
	assert.InDelta(t, 4.52, mags[0].Value, 1e-9)
	assert.Equal(t, mags[0].ID, ev.PreferredMagnitudeID)

	mt := mags[0].MomentTensor
	require.NotNil(t, mt)
	assert.Equal(t, derived.ID, mt.DerivedOriginID)
	require.NotNil(t, mt.Tensor)
	// Source-reported planes win over derived ones.
	assert.Equal(t, 212.0, mt.Plane1.Strike)
	assert.Equal(t, "manual", mt.EvaluationMode)
	assert.Equal(t, "reviewed", mt.EvaluationStatus)
}

func TestBuilderDegenerateTensorKeepsMagnitude(t *testing.T) {
	b := NewBuilder(testOptions())
	sol := &ichinose.Solution{
		Orid:   catalog.Int(7),
		Time:   1365736932,
		Lat:    38.0,
		Lon:    -118.0,
		Mw:     catalog.Float(4.1),
		Tensor: &catalog.Tensor{},
	}
	require.NoError(t, b.AddMomentTensor(sol))

	ev, diags, err := b.Finalize()
	require.NoError(t, err)

	mags := ev.Magnitudes()
	require.Len(t, mags, 1)
	assert.Equal(t, "Mw", mags[0].Type)
	assert.Nil(t, mags[0].MomentTensor)

	require.NotEmpty(t, diags)
	var degenerate *ichinose.DegenerateTensorError
	require.ErrorAs(t, diags[0].Err, &degenerate)
}

const mtFixture = `REVIEWED BY NSL STAFF
Event ID: 1371545
Ichinose regional moment tensor solution
2013/04/12 102 03:22:12.00 38.1234 -118.4567 1371600
Depth =   8.0 (km)
Mw    =  4.52
Mo    =  7.08x10^22 (dyne-cm)
Major Double Couple
       strike dip rake
Plane 1: 212 78 -155
Plane 2: 115 66 -13
Spherical Coordinates
Mrr= -0.24 Mtt= 0.58 Mff= -0.34 EXP=23
Mrt= 0.12 Mrf= -0.05 Mtf= 0.78
`
