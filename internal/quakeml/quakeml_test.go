package quakeml

import (
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seisops/db2qml/internal/catalog"
)

func testEvent(t *testing.T) *catalog.Event {
	t.Helper()
	ev := catalog.NewEvent("quakeml:nn.anss.org/Event/482120")
	ev.Type = "earthquake"
	ev.Description = "Spanish Springs"
	ev.ANSS = map[string]string{
		"datasource":  "nn",
		"dataid":      "nn00482120",
		"eventsource": "nn",
		"eventid":     "00482120",
	}
	ev.Info = catalog.CreationInfo{AgencyID: "NN", Version: "482120"}

	origin := &catalog.Origin{
		ID:                   "quakeml:nn.anss.org/Origin/1371545",
		Time:                 1365736932.14,
		TimeUncertainty:      catalog.Float(0.42),
		Latitude:             38.1234,
		Longitude:            -118.4567,
		LatitudeUncertainty:  catalog.Float(0.0162),
		LongitudeUncertainty: catalog.Float(0.0127),
		Depth:                catalog.Float(7200),
		DepthUncertainty:     catalog.Float(2400),

		MaxHorizontalUncertainty: catalog.Float(1800),
		MinHorizontalUncertainty: catalog.Float(1100),
		AzimuthMaxHorizontal:     catalog.Float(35),
		ConfidenceLevel:          catalog.Float(90),

		AssociatedPhaseCount: catalog.Int(24),
		UsedPhaseCount:       catalog.Int(18),
		StandardError:        catalog.Float(0.8),

		Method:           "locsat",
		EvaluationMode:   "manual",
		EvaluationStatus: "reviewed",
		Info:             catalog.CreationInfo{AgencyID: "NN", Author: "analyst:jdoe", Version: "1371545", CreationTime: catalog.Float(1365737000)},
	}
	require.NoError(t, ev.AppendOrigin(origin))

	mag := &catalog.Magnitude{
		ID:               "quakeml:nn.anss.org/Magnitude/Mw/1371545",
		OriginID:         origin.ID,
		Type:             "Mw",
		Value:            4.52,
		Uncertainty:      catalog.Float(0.1),
		StationCount:     catalog.Int(8),
		EvaluationMode:   "manual",
		EvaluationStatus: "reviewed",
		Info:             catalog.CreationInfo{AgencyID: "NN", Version: "1371545"},
		MomentTensor: &catalog.MomentTensor{
			ID:                "quakeml:nn.anss.org/MomentTensor/1371545",
			DerivedOriginID:   origin.ID,
			ScalarMoment:      7.08e15,
			Tensor:            &catalog.Tensor{Mrr: -2.4e15, Mtt: 5.8e15, Mpp: -3.4e15, Mrt: 1.2e15, Mrp: -5e14, Mtp: 7.8e15},
			Plane1:            catalog.NodalPlane{Strike: 212, Dip: 78, Rake: -155},
			Plane2:            catalog.NodalPlane{Strike: 115, Dip: 66, Rake: -13},
			PercentDC:         catalog.Float(91),
			PercentCLVD:       catalog.Float(9),
			Variance:          catalog.Float(0.05),
			VarianceReduction: catalog.Float(78.32),
			AzimuthalGap:      catalog.Float(120),
			StationCount:      catalog.Int(8),
			Category:          "regional",
			EvaluationMode:    "manual",
			EvaluationStatus:  "reviewed",
			Info:              catalog.CreationInfo{AgencyID: "NN", Version: "1371545"},
		},
	}
	require.NoError(t, ev.AppendMagnitude(mag))

	mech := &catalog.FocalMechanism{
		ID:                 "quakeml:nn.anss.org/FocalMechanism/3",
		TriggeringOriginID: origin.ID,
		Plane1:             catalog.NodalPlane{Strike: 210, Dip: 75, Rake: -150},
		Plane2:             catalog.NodalPlane{Strike: 112, Dip: 62, Rake: -17},
		TAxis:              catalog.Axis{Azimuth: catalog.Float(250), Plunge: catalog.Float(30)},
		PAxis:              catalog.Axis{Azimuth: catalog.Float(160), Plunge: catalog.Float(2)},
		Info:               catalog.CreationInfo{AgencyID: "NN", Author: "fpfit:analyst:jdoe", Version: "3"},
	}
	require.NoError(t, ev.AppendFocalMechanism(mech))

	ev.PreferredOriginID = origin.ID
	ev.PreferredMagnitudeID = mag.ID
	ev.Freeze()
	return ev
}

func TestDocumentIdempotent(t *testing.T) {
	ev := testEvent(t)
	a := Document(ev)
	b := Document(ev)
	assert.True(t, reflect.DeepEqual(a, b), "two emissions of the same graph must be structurally identical")
}

func TestDocumentOmitsAbsentFields(t *testing.T) {
	ev := catalog.NewEvent("quakeml:nn.anss.org/Event/1")
	require.NoError(t, ev.AppendOrigin(&catalog.Origin{
		ID:        "quakeml:nn.anss.org/Origin/1",
		Time:      1365736932,
		Latitude:  38.0,
		Longitude: -118.0,
	}))
	ev.PreferredOriginID = "quakeml:nn.anss.org/Origin/1"
	ev.Freeze()

	doc := Document(ev)
	evNode, ok := doc.Children[0].Child("event")
	require.True(t, ok)
	originNode, ok := evNode.Child("origin")
	require.True(t, ok)

	// Absent optional fields produce no node at all, never an empty one.
	_, hasDepth := originNode.Child("depth")
	assert.False(t, hasDepth)
	_, hasOU := originNode.Child("originUncertainty")
	assert.False(t, hasOU)
	_, hasQuality := originNode.Child("quality")
	assert.False(t, hasQuality)

	timeNode, ok := originNode.Child("time")
	require.True(t, ok)
	_, hasUnc := timeNode.Child("uncertainty")
	assert.False(t, hasUnc)

	// No magnitudes: no preferredMagnitudeID reference.
	_, hasPrefMag := evNode.Child("preferredMagnitudeID")
	assert.False(t, hasPrefMag)
}

func TestDocumentCrossReferences(t *testing.T) {
	ev := testEvent(t)
	doc := Document(ev)
	evNode, ok := doc.Children[0].Child("event")
	require.True(t, ok)

	assert.Equal(t, ev.PreferredOriginID.String(), evNode.ChildText("preferredOriginID"))
	assert.Equal(t, ev.PreferredMagnitudeID.String(), evNode.ChildText("preferredMagnitudeID"))

	id, _ := evNode.Attr("publicID")
	assert.Equal(t, ev.ID.String(), id)
	v, _ := evNode.Attr("catalog:dataid")
	assert.Equal(t, "nn00482120", v)
}

func TestGraphRoundTrip(t *testing.T) {
	ev := testEvent(t)

	got, err := FromDocument(Document(ev))
	require.NoError(t, err)

	assert.Equal(t, ev.ID, got.ID)
	assert.Equal(t, ev.Type, got.Type)
	assert.Equal(t, ev.Description, got.Description)
	assert.Equal(t, ev.ANSS, got.ANSS)
	assert.Equal(t, ev.PreferredOriginID, got.PreferredOriginID)
	assert.Equal(t, ev.PreferredMagnitudeID, got.PreferredMagnitudeID)

	require.Len(t, got.Origins(), 1)
	want, have := ev.Origins()[0], got.Origins()[0]
	assert.Equal(t, want.ID, have.ID)
	assert.InDelta(t, want.Time, have.Time, 1e-5)
	assert.Equal(t, want.Latitude, have.Latitude)
	assert.Equal(t, want.Longitude, have.Longitude)
	assert.Equal(t, want.Depth, have.Depth)
	assert.Equal(t, want.MaxHorizontalUncertainty, have.MaxHorizontalUncertainty)
	assert.Equal(t, want.AssociatedPhaseCount, have.AssociatedPhaseCount)
	assert.Equal(t, want.Method, have.Method)
	assert.Equal(t, want.EvaluationMode, have.EvaluationMode)
	assert.Equal(t, want.Info.AgencyID, have.Info.AgencyID)
	assert.Equal(t, want.Info.Version, have.Info.Version)

	require.Len(t, got.Magnitudes(), 1)
	wm, hm := ev.Magnitudes()[0], got.Magnitudes()[0]
	assert.Equal(t, wm.ID, hm.ID)
	assert.Equal(t, wm.OriginID, hm.OriginID)
	assert.Equal(t, wm.Type, hm.Type)
	assert.Equal(t, wm.Value, hm.Value)
	assert.Equal(t, wm.Uncertainty, hm.Uncertainty)

	require.NotNil(t, hm.MomentTensor)
	wmt, hmt := wm.MomentTensor, hm.MomentTensor
	assert.Equal(t, wmt.ID, hmt.ID)
	assert.Equal(t, wmt.DerivedOriginID, hmt.DerivedOriginID)
	assert.Equal(t, wmt.ScalarMoment, hmt.ScalarMoment)
	assert.Equal(t, *wmt.Tensor, *hmt.Tensor)
	assert.Equal(t, wmt.Plane1, hmt.Plane1)
	assert.Equal(t, wmt.Plane2, hmt.Plane2)
	assert.InDelta(t, wmt.PercentDC.Float64, hmt.PercentDC.Float64, 1e-9)
	assert.Equal(t, wmt.Category, hmt.Category)
	assert.Equal(t, wmt.StationCount, hmt.StationCount)

	require.Len(t, got.FocalMechanisms(), 1)
	wf, hf := ev.FocalMechanisms()[0], got.FocalMechanisms()[0]
	assert.Equal(t, wf.ID, hf.ID)
	assert.Equal(t, wf.TriggeringOriginID, hf.TriggeringOriginID)
	assert.Equal(t, wf.Plane1, hf.Plane1)
	assert.Equal(t, wf.Plane2, hf.Plane2)
	assert.Equal(t, wf.TAxis, hf.TAxis)
	assert.Equal(t, wf.PAxis, hf.PAxis)
	assert.Equal(t, wf.Info.Author, hf.Info.Author)

	assert.True(t, got.Frozen())
}

func TestRenderParseRoundTrip(t *testing.T) {
	ev := testEvent(t)
	data, err := Render(Document(ev))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(string(data), "<?xml"))
	assert.Contains(t, string(data), `xmlns:catalog="http://anss.org/xmlns/catalog/0.1"`)

	tree, err := ParseXML(data)
	require.NoError(t, err)

	got, err := FromDocument(tree)
	require.NoError(t, err)
	assert.Equal(t, ev.ID, got.ID)
	require.Len(t, got.Origins(), 1)
	assert.Equal(t, ev.Origins()[0].Latitude, got.Origins()[0].Latitude)
	require.Len(t, got.Magnitudes(), 1)
	require.NotNil(t, got.Magnitudes()[0].MomentTensor)
	assert.Equal(t, ev.Magnitudes()[0].MomentTensor.Plane1, got.Magnitudes()[0].MomentTensor.Plane1)
}
