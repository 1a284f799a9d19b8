package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seisops/db2qml/internal/catalog"
	"github.com/seisops/db2qml/internal/orb"
	"github.com/seisops/db2qml/internal/schema"
)

func TestCSSConverterEmptyInput(t *testing.T) {
	_, _, err := NewCSSConverter(testOptions()).Convert(nil)
	require.ErrorIs(t, err, ErrNoRecords)
}

func TestCSSConverterAssemblesEvent(t *testing.T) {
	rows := []TaggedRow{
		{Table: schema.TableNetmag, Row: netmagRow("5", "1")}, // before its origin
		{Table: schema.TableOrigin, Row: originRow("1")},
		{Table: schema.TableEvent, Row: schema.Row{"evid": "482120", "prefor": "1"}},
	}
	ev, diags, err := NewCSSConverter(testOptions()).Convert(rows)
	require.NoError(t, err)
	assert.Empty(t, diags)

	require.Len(t, ev.Origins(), 1)
	require.Len(t, ev.Magnitudes(), 1)
	assert.Equal(t, catalog.ResourceID("quakeml:nn.anss.org/Event/482120"), ev.ID)
	assert.Equal(t, ev.Origins()[0].ID, ev.PreferredOriginID)
}

func TestCSSConverterDropsMalformedRow(t *testing.T) {
	bad := originRow("1")
	bad["lat"] = "junk"
	rows := []TaggedRow{
		{Table: schema.TableOrigin, Row: bad},
		{Table: schema.TableOrigin, Row: originRow("2")},
	}
	ev, diags, err := NewCSSConverter(testOptions()).Convert(rows)
	require.NoError(t, err)

	assert.Len(t, ev.Origins(), 1)
	require.Len(t, diags, 1)
	assert.Equal(t, SeverityWarning, diags[0].Severity)
	var malformed *schema.MalformedRecordError
	assert.ErrorAs(t, diags[0].Err, &malformed)
}

func TestAntelopeConverter(t *testing.T) {
	packets := []orb.Packet{
		{SrcName: "NN/db/origin", Payload: map[string]string(originRow("1"))},
		{SrcName: "NN/db/netmag", Payload: map[string]string(netmagRow("5", "1"))},
	}
	ev, diags, err := NewAntelopeConverter(testOptions()).Convert(packets)
	require.NoError(t, err)
	assert.Empty(t, diags)

	require.Len(t, ev.Origins(), 1)
	require.Len(t, ev.Magnitudes(), 1)
	// Packets resolve into the shared CSS identifier namespace.
	assert.Equal(t, catalog.ResourceID("quakeml:nn.anss.org/Origin/1"), ev.Origins()[0].ID)
	// Transport provenance is preserved on the entity.
	assert.Equal(t, catalog.SchemaORB, ev.Origins()[0].Source.Schema)
}

func TestIchinoseConverter(t *testing.T) {
	ev, _, err := NewIchinoseConverter(testOptions()).Convert([]string{mtFixture})
	require.NoError(t, err)

	require.Len(t, ev.Magnitudes(), 1)
	require.NotNil(t, ev.Magnitudes()[0].MomentTensor)
	assert.Equal(t, catalog.ResourceID("quakeml:nn.anss.org/Event/1371545"), ev.ID)
}

func TestResolverStableIdentifiers(t *testing.T) {
	r := NewResolver("nn.anss.org")
	key := CSSKey(schema.TableOrigin, 42)

	id1 := r.Resolve(key, "Origin")
	id2 := r.Resolve(key, "Origin")
	assert.Equal(t, id1, id2)
	assert.Equal(t, catalog.ResourceID("quakeml:nn.anss.org/Origin/42"), id1)

	_, ok := r.Lookup(CSSKey(schema.TableOrigin, 43))
	assert.False(t, ok)
}

func TestEventTypeMapping(t *testing.T) {
	cases := []struct {
		etype string
		want  string
	}{
		{"qb", "quarry blast"},
		{"eq", "earthquake"},
		{"L", "earthquake"},
		{"ex", "explosion"},
		{"", "not reported"},
		{"zz", "not reported"},
		// Composite flag matching several entries: the substring fallback
		// walks sorted keys, so "ex" wins over "o" every run.
		{"exo", "explosion"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, eventType(tc.etype, nil), "etype %q", tc.etype)
	}

	// Overrides win over the builtin mapping.
	assert.Equal(t, "mining explosion", eventType("qb", map[string]string{"qb": "mining explosion"}))
}
