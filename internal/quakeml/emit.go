package quakeml

import (
	"fmt"
	"strconv"
	"time"

	"github.com/seisops/db2qml/internal/catalog"
)

// Document walks a finalized event graph and produces the QuakeML document
// tree. The walk is read-only and stateless: emitting the same graph twice
// yields structurally identical trees. Absent optional fields produce no
// node at all.
func Document(ev *catalog.Event) *Node {
	root := El("q:quakeml").
		SetAttr("xmlns:q", NSQuakeML).
		SetAttr("xmlns", NSBed).
		SetAttr("xmlns:catalog", NSCatalog)

	params := El("eventParameters").
		SetAttr("publicID", ev.ID.String()+"#eventParameters")
	params.Add(eventNode(ev))
	root.Add(params)
	return root
}

func eventNode(ev *catalog.Event) *Node {
	n := El("event").SetAttr("publicID", ev.ID.String())
	for _, key := range []string{"datasource", "dataid", "eventsource", "eventid"} {
		if v, ok := ev.ANSS[key]; ok {
			n.SetAttr("catalog:"+key, v)
		}
	}

	if !ev.PreferredOriginID.IsZero() {
		n.Add(TextEl("preferredOriginID", ev.PreferredOriginID.String()))
	}
	if !ev.PreferredMagnitudeID.IsZero() {
		n.Add(TextEl("preferredMagnitudeID", ev.PreferredMagnitudeID.String()))
	}
	if ev.Type != "" {
		n.Add(TextEl("type", ev.Type))
	}
	if ev.Description != "" {
		n.Add(El("description").Add(TextEl("text", ev.Description)))
	}
	n.Add(creationInfoNode(ev.Info))

	for _, o := range ev.Origins() {
		n.Add(originNode(o))
	}
	for _, m := range ev.Magnitudes() {
		n.Add(magnitudeNode(m))
	}
	for _, m := range ev.Magnitudes() {
		if m.MomentTensor != nil {
			n.Add(focalMechanismNode(m))
		}
	}
	for _, fm := range ev.FocalMechanisms() {
		n.Add(mechanismNode(fm))
	}
	return n
}

func originNode(o *catalog.Origin) *Node {
	n := El("origin").SetAttr("publicID", o.ID.String())

	n.Add(timeQuantity("time", o.Time, o.TimeUncertainty))
	n.Add(quantity("latitude", o.Latitude, o.LatitudeUncertainty))
	n.Add(quantity("longitude", o.Longitude, o.LongitudeUncertainty))
	if o.Depth.Valid {
		n.Add(quantity("depth", o.Depth.Float64, o.DepthUncertainty))
	}
	if o.DepthType != "" {
		n.Add(TextEl("depthType", o.DepthType))
	}

	if o.MaxHorizontalUncertainty.Valid || o.MinHorizontalUncertainty.Valid {
		ou := El("originUncertainty")
		ou.Add(optText("maxHorizontalUncertainty", o.MaxHorizontalUncertainty))
		ou.Add(optText("minHorizontalUncertainty", o.MinHorizontalUncertainty))
		ou.Add(optText("azimuthMaxHorizontalUncertainty", o.AzimuthMaxHorizontal))
		ou.Add(optText("confidenceLevel", o.ConfidenceLevel))
		ou.Add(TextEl("preferredDescription", "uncertainty ellipse"))
		n.Add(ou)
	}

	if o.AssociatedPhaseCount.Valid || o.UsedPhaseCount.Valid || o.StandardError.Valid {
		q := El("quality")
		q.Add(optIntText("associatedPhaseCount", o.AssociatedPhaseCount))
		q.Add(optIntText("usedPhaseCount", o.UsedPhaseCount))
		q.Add(optText("standardError", o.StandardError))
		n.Add(q)
	}

	if o.Method != "" {
		n.Add(TextEl("methodID", o.Method))
	}
	if o.EvaluationMode != "" {
		n.Add(TextEl("evaluationMode", o.EvaluationMode))
	}
	if o.EvaluationStatus != "" {
		n.Add(TextEl("evaluationStatus", o.EvaluationStatus))
	}
	n.Add(creationInfoNode(o.Info))
	return n
}

func magnitudeNode(m *catalog.Magnitude) *Node {
	n := El("magnitude").SetAttr("publicID", m.ID.String())
	n.Add(quantity("mag", m.Value, m.Uncertainty))
	if m.Type != "" {
		n.Add(TextEl("type", m.Type))
	}
	if !m.OriginID.IsZero() {
		n.Add(TextEl("originID", m.OriginID.String()))
	}
	n.Add(optIntText("stationCount", m.StationCount))
	if m.EvaluationMode != "" {
		n.Add(TextEl("evaluationMode", m.EvaluationMode))
	}
	if m.EvaluationStatus != "" {
		n.Add(TextEl("evaluationStatus", m.EvaluationStatus))
	}
	n.Add(creationInfoNode(m.Info))
	return n
}

// focalMechanismNode emits the moment tensor owned by a moment magnitude.
// The momentTensor element carries the tensor identity; momentMagnitudeID
// links back to the owning magnitude for graph reconstruction.
func focalMechanismNode(m *catalog.Magnitude) *Node {
	mt := m.MomentTensor
	n := El("focalMechanism").SetAttr("publicID", mt.ID.String()+"#focalmechanism")

	if mt.Plane1 != (catalog.NodalPlane{}) || mt.Plane2 != (catalog.NodalPlane{}) {
		n.Add(El("nodalPlanes").
			Add(planeNode("nodalPlane1", mt.Plane1)).
			Add(planeNode("nodalPlane2", mt.Plane2)))
	}
	n.Add(optText("azimuthalGap", mt.AzimuthalGap))

	t := El("momentTensor").SetAttr("publicID", mt.ID.String())
	if !mt.DerivedOriginID.IsZero() {
		t.Add(TextEl("derivedOriginID", mt.DerivedOriginID.String()))
	}
	t.Add(TextEl("momentMagnitudeID", m.ID.String()))
	t.Add(El("scalarMoment").Add(TextEl("value", fmtFloat(mt.ScalarMoment))))
	if mt.Tensor != nil {
		t.Add(tensorNode(mt.Tensor))
	}
	t.Add(optText("variance", mt.Variance))
	t.Add(optText("varianceReduction", mt.VarianceReduction))
	t.Add(optFracText("doubleCouple", mt.PercentDC))
	t.Add(optFracText("clvd", mt.PercentCLVD))
	t.Add(optFracText("iso", mt.PercentISO))
	if mt.StationCount.Valid {
		t.Add(El("dataUsed").Add(optIntText("stationCount", mt.StationCount)))
	}
	if mt.Category != "" {
		t.Add(TextEl("category", mt.Category))
	}
	n.Add(t)

	if mt.EvaluationMode != "" {
		n.Add(TextEl("evaluationMode", mt.EvaluationMode))
	}
	if mt.EvaluationStatus != "" {
		n.Add(TextEl("evaluationStatus", mt.EvaluationStatus))
	}
	n.Add(creationInfoNode(mt.Info))
	return n
}

// mechanismNode emits a first-motion focal mechanism, distinguished from
// the moment-tensor form by the absence of a momentTensor child.
func mechanismNode(fm *catalog.FocalMechanism) *Node {
	n := El("focalMechanism").SetAttr("publicID", fm.ID.String())

	if !fm.TriggeringOriginID.IsZero() {
		n.Add(TextEl("triggeringOriginID", fm.TriggeringOriginID.String()))
	}
	n.Add(El("nodalPlanes").
		Add(planeNode("nodalPlane1", fm.Plane1)).
		Add(planeNode("nodalPlane2", fm.Plane2)))
	if axisPresent(fm.TAxis) || axisPresent(fm.PAxis) {
		n.Add(El("principalAxes").
			Add(axisNode("tAxis", fm.TAxis)).
			Add(axisNode("pAxis", fm.PAxis)))
	}
	n.Add(creationInfoNode(fm.Info))
	return n
}

func axisPresent(a catalog.Axis) bool {
	return a.Azimuth.Valid || a.Plunge.Valid
}

func axisNode(name string, a catalog.Axis) *Node {
	if !axisPresent(a) {
		return nil
	}
	n := El(name)
	if a.Azimuth.Valid {
		n.Add(El("azimuth").Add(TextEl("value", fmtFloat(a.Azimuth.Float64))))
	}
	if a.Plunge.Valid {
		n.Add(El("plunge").Add(TextEl("value", fmtFloat(a.Plunge.Float64))))
	}
	return n
}

func planeNode(name string, p catalog.NodalPlane) *Node {
	return El(name).
		Add(El("strike").Add(TextEl("value", fmtFloat(p.Strike)))).
		Add(El("dip").Add(TextEl("value", fmtFloat(p.Dip)))).
		Add(El("rake").Add(TextEl("value", fmtFloat(p.Rake))))
}

func tensorNode(t *catalog.Tensor) *Node {
	n := El("tensor")
	for _, c := range []struct {
		name string
		val  float64
	}{
		{"Mrr", t.Mrr}, {"Mtt", t.Mtt}, {"Mpp", t.Mpp},
		{"Mrt", t.Mrt}, {"Mrp", t.Mrp}, {"Mtp", t.Mtp},
	} {
		n.Add(El(c.name).Add(TextEl("value", fmtFloat(c.val))))
	}
	return n
}

func creationInfoNode(info catalog.CreationInfo) *Node {
	if info == (catalog.CreationInfo{}) {
		return nil
	}
	n := El("creationInfo")
	if info.AgencyID != "" {
		n.Add(TextEl("agencyID", info.AgencyID))
	}
	if info.Author != "" {
		n.Add(TextEl("author", info.Author))
	}
	if info.CreationTime.Valid {
		n.Add(TextEl("creationTime", fmtTime(info.CreationTime.Float64)))
	}
	if info.Version != "" {
		n.Add(TextEl("version", info.Version))
	}
	return n
}

// quantity emits a QuakeML RealQuantity: a value child plus an optional
// uncertainty child.
func quantity(name string, value float64, unc catalog.OptFloat) *Node {
	n := El(name).Add(TextEl("value", fmtFloat(value)))
	if unc.Valid {
		n.Add(TextEl("uncertainty", fmtFloat(unc.Float64)))
	}
	return n
}

// timeQuantity emits a TimeQuantity: ISO 8601 value, uncertainty seconds.
func timeQuantity(name string, epoch float64, unc catalog.OptFloat) *Node {
	n := El(name).Add(TextEl("value", fmtTime(epoch)))
	if unc.Valid {
		n.Add(TextEl("uncertainty", fmtFloat(unc.Float64)))
	}
	return n
}

func optText(name string, v catalog.OptFloat) *Node {
	if !v.Valid {
		return nil
	}
	return TextEl(name, fmtFloat(v.Float64))
}

// optFracText emits a 0-100 percentage as the 0-1 fraction QuakeML uses.
func optFracText(name string, v catalog.OptFloat) *Node {
	if !v.Valid {
		return nil
	}
	return TextEl(name, fmtFloat(v.Float64/100.0))
}

func optIntText(name string, v catalog.OptInt) *Node {
	if !v.Valid {
		return nil
	}
	return TextEl(name, strconv.FormatInt(v.Int64, 10))
}

// fmtFloat renders with the shortest representation that parses back to
// the identical float64, so tree round-trips are lossless.
func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// fmtTime renders epoch seconds as QuakeML's ISO 8601 UTC form with
// microsecond precision.
func fmtTime(epoch float64) string {
	sec := int64(epoch)
	nsec := int64((epoch - float64(sec)) * 1e9)
	t := time.Unix(sec, nsec).UTC()
	return fmt.Sprintf("%s.%06dZ", t.Format("2006-01-02T15:04:05"), t.Nanosecond()/1000)
}
