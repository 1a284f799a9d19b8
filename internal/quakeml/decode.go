package quakeml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/seisops/db2qml/internal/catalog"
)

// decode.go reconstructs a catalog event graph from a document tree. The
// reconstruction covers every field the emitter writes; source-only fields
// (provenance, the raw CSS etype flag) are not representable in QuakeML
// and come back zero.

// ParseXML parses serialized XML back into a document tree. Namespace
// prefixes are kept verbatim so a parsed tree mirrors an emitted one.
func ParseXML(data []byte) (*Node, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var root *Node
	var stack []*Node
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := El(elemName(t.Name))
			for _, a := range t.Attr {
				n.SetAttr(attrName(a.Name), a.Value)
			}
			if len(stack) == 0 {
				root = n
			} else {
				stack[len(stack)-1].Add(n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				if s := strings.TrimSpace(string(t)); s != "" {
					stack[len(stack)-1].Text = s
				}
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("quakeml: empty document")
	}
	return root, nil
}

func elemName(n xml.Name) string {
	switch n.Space {
	case NSQuakeML:
		return "q:" + n.Local
	case NSCatalog:
		return "catalog:" + n.Local
	}
	return n.Local
}

func attrName(n xml.Name) string {
	switch n.Space {
	case NSCatalog:
		return "catalog:" + n.Local
	case "xmlns":
		return "xmlns:" + n.Local
	}
	return n.Local
}

// FromDocument rebuilds a finalized event graph from a document tree
// shaped like Document's output.
func FromDocument(root *Node) (*catalog.Event, error) {
	params, ok := root.Child("eventParameters")
	if !ok {
		return nil, fmt.Errorf("quakeml: document has no eventParameters")
	}
	evNode, ok := params.Child("event")
	if !ok {
		return nil, fmt.Errorf("quakeml: document has no event")
	}

	id, _ := evNode.Attr("publicID")
	ev := catalog.NewEvent(catalog.ResourceID(id))

	for _, key := range []string{"datasource", "dataid", "eventsource", "eventid"} {
		if v, ok := evNode.Attr("catalog:" + key); ok {
			if ev.ANSS == nil {
				ev.ANSS = make(map[string]string)
			}
			ev.ANSS[key] = v
		}
	}

	ev.PreferredOriginID = catalog.ResourceID(evNode.ChildText("preferredOriginID"))
	ev.PreferredMagnitudeID = catalog.ResourceID(evNode.ChildText("preferredMagnitudeID"))
	ev.Type = evNode.ChildText("type")
	if d, ok := evNode.Child("description"); ok {
		ev.Description = d.ChildText("text")
	}
	ev.Info = decodeCreationInfo(evNode)

	mags := make(map[catalog.ResourceID]*catalog.Magnitude)
	for _, c := range evNode.Children {
		switch c.Name {
		case "origin":
			if err := ev.AppendOrigin(decodeOrigin(c)); err != nil {
				return nil, err
			}
		case "magnitude":
			m := decodeMagnitude(c)
			mags[m.ID] = m
			if err := ev.AppendMagnitude(m); err != nil {
				return nil, err
			}
		}
	}
	// Moment-tensor focal mechanisms reattach to their owning magnitude, so
	// they decode after all magnitudes are known. A focalMechanism without a
	// momentTensor child is a standalone first-motion mechanism.
	for _, c := range evNode.Children {
		if c.Name != "focalMechanism" {
			continue
		}
		if _, ok := c.Child("momentTensor"); !ok {
			if err := ev.AppendFocalMechanism(decodeMechanism(c)); err != nil {
				return nil, err
			}
			continue
		}
		mt, magID, err := decodeFocalMechanism(c)
		if err != nil {
			return nil, err
		}
		if m, ok := mags[magID]; ok {
			m.MomentTensor = mt
		}
	}

	ev.Freeze()
	return ev, nil
}

func decodeOrigin(n *Node) *catalog.Origin {
	o := &catalog.Origin{}
	if id, ok := n.Attr("publicID"); ok {
		o.ID = catalog.ResourceID(id)
	}

	if t, ok := n.Child("time"); ok {
		o.Time, _ = parseISO(t.ChildText("value"))
		o.TimeUncertainty = parseOpt(t.ChildText("uncertainty"))
	}
	if lat, ok := n.Child("latitude"); ok {
		o.Latitude = parseF(lat.ChildText("value"))
		o.LatitudeUncertainty = parseOpt(lat.ChildText("uncertainty"))
	}
	if lon, ok := n.Child("longitude"); ok {
		o.Longitude = parseF(lon.ChildText("value"))
		o.LongitudeUncertainty = parseOpt(lon.ChildText("uncertainty"))
	}
	if d, ok := n.Child("depth"); ok {
		o.Depth = parseOpt(d.ChildText("value"))
		o.DepthUncertainty = parseOpt(d.ChildText("uncertainty"))
	}
	o.DepthType = n.ChildText("depthType")

	if ou, ok := n.Child("originUncertainty"); ok {
		o.MaxHorizontalUncertainty = parseOpt(ou.ChildText("maxHorizontalUncertainty"))
		o.MinHorizontalUncertainty = parseOpt(ou.ChildText("minHorizontalUncertainty"))
		o.AzimuthMaxHorizontal = parseOpt(ou.ChildText("azimuthMaxHorizontalUncertainty"))
		o.ConfidenceLevel = parseOpt(ou.ChildText("confidenceLevel"))
	}
	if q, ok := n.Child("quality"); ok {
		o.AssociatedPhaseCount = parseOptInt(q.ChildText("associatedPhaseCount"))
		o.UsedPhaseCount = parseOptInt(q.ChildText("usedPhaseCount"))
		o.StandardError = parseOpt(q.ChildText("standardError"))
	}

	o.Method = n.ChildText("methodID")
	o.EvaluationMode = n.ChildText("evaluationMode")
	o.EvaluationStatus = n.ChildText("evaluationStatus")
	o.Info = decodeCreationInfo(n)
	return o
}

func decodeMagnitude(n *Node) *catalog.Magnitude {
	m := &catalog.Magnitude{}
	if id, ok := n.Attr("publicID"); ok {
		m.ID = catalog.ResourceID(id)
	}
	if mag, ok := n.Child("mag"); ok {
		m.Value = parseF(mag.ChildText("value"))
		m.Uncertainty = parseOpt(mag.ChildText("uncertainty"))
	}
	m.Type = n.ChildText("type")
	m.OriginID = catalog.ResourceID(n.ChildText("originID"))
	m.StationCount = parseOptInt(n.ChildText("stationCount"))
	m.EvaluationMode = n.ChildText("evaluationMode")
	m.EvaluationStatus = n.ChildText("evaluationStatus")
	m.Info = decodeCreationInfo(n)
	return m
}

func decodeFocalMechanism(n *Node) (*catalog.MomentTensor, catalog.ResourceID, error) {
	t, ok := n.Child("momentTensor")
	if !ok {
		return nil, "", fmt.Errorf("quakeml: focalMechanism without momentTensor")
	}

	mt := &catalog.MomentTensor{}
	if id, ok := t.Attr("publicID"); ok {
		mt.ID = catalog.ResourceID(id)
	}
	mt.DerivedOriginID = catalog.ResourceID(t.ChildText("derivedOriginID"))
	if sm, ok := t.Child("scalarMoment"); ok {
		mt.ScalarMoment = parseF(sm.ChildText("value"))
	}
	if tn, ok := t.Child("tensor"); ok {
		mt.Tensor = &catalog.Tensor{
			Mrr: tensorComp(tn, "Mrr"), Mtt: tensorComp(tn, "Mtt"), Mpp: tensorComp(tn, "Mpp"),
			Mrt: tensorComp(tn, "Mrt"), Mrp: tensorComp(tn, "Mrp"), Mtp: tensorComp(tn, "Mtp"),
		}
	}
	mt.Variance = parseOpt(t.ChildText("variance"))
	mt.VarianceReduction = parseOpt(t.ChildText("varianceReduction"))
	mt.PercentDC = pctFromFrac(parseOpt(t.ChildText("doubleCouple")))
	mt.PercentCLVD = pctFromFrac(parseOpt(t.ChildText("clvd")))
	mt.PercentISO = pctFromFrac(parseOpt(t.ChildText("iso")))
	if du, ok := t.Child("dataUsed"); ok {
		mt.StationCount = parseOptInt(du.ChildText("stationCount"))
	}
	mt.Category = t.ChildText("category")

	if np, ok := n.Child("nodalPlanes"); ok {
		if p, ok := np.Child("nodalPlane1"); ok {
			mt.Plane1 = decodePlane(p)
		}
		if p, ok := np.Child("nodalPlane2"); ok {
			mt.Plane2 = decodePlane(p)
		}
	}
	mt.AzimuthalGap = parseOpt(n.ChildText("azimuthalGap"))
	mt.EvaluationMode = n.ChildText("evaluationMode")
	mt.EvaluationStatus = n.ChildText("evaluationStatus")
	mt.Info = decodeCreationInfo(n)

	magID := catalog.ResourceID(t.ChildText("momentMagnitudeID"))
	return mt, magID, nil
}

func decodeMechanism(n *Node) *catalog.FocalMechanism {
	fm := &catalog.FocalMechanism{}
	if id, ok := n.Attr("publicID"); ok {
		fm.ID = catalog.ResourceID(id)
	}
	fm.TriggeringOriginID = catalog.ResourceID(n.ChildText("triggeringOriginID"))
	if np, ok := n.Child("nodalPlanes"); ok {
		if p, ok := np.Child("nodalPlane1"); ok {
			fm.Plane1 = decodePlane(p)
		}
		if p, ok := np.Child("nodalPlane2"); ok {
			fm.Plane2 = decodePlane(p)
		}
	}
	if pa, ok := n.Child("principalAxes"); ok {
		if ax, ok := pa.Child("tAxis"); ok {
			fm.TAxis = decodeAxis(ax)
		}
		if ax, ok := pa.Child("pAxis"); ok {
			fm.PAxis = decodeAxis(ax)
		}
	}
	fm.Info = decodeCreationInfo(n)
	return fm
}

func decodeAxis(n *Node) catalog.Axis {
	a := catalog.Axis{}
	if az, ok := n.Child("azimuth"); ok {
		a.Azimuth = parseOpt(az.ChildText("value"))
	}
	if pl, ok := n.Child("plunge"); ok {
		a.Plunge = parseOpt(pl.ChildText("value"))
	}
	return a
}

func decodePlane(n *Node) catalog.NodalPlane {
	p := catalog.NodalPlane{}
	if s, ok := n.Child("strike"); ok {
		p.Strike = parseF(s.ChildText("value"))
	}
	if d, ok := n.Child("dip"); ok {
		p.Dip = parseF(d.ChildText("value"))
	}
	if r, ok := n.Child("rake"); ok {
		p.Rake = parseF(r.ChildText("value"))
	}
	return p
}

func decodeCreationInfo(n *Node) catalog.CreationInfo {
	ci, ok := n.Child("creationInfo")
	if !ok {
		return catalog.CreationInfo{}
	}
	info := catalog.CreationInfo{
		AgencyID: ci.ChildText("agencyID"),
		Author:   ci.ChildText("author"),
		Version:  ci.ChildText("version"),
	}
	if s := ci.ChildText("creationTime"); s != "" {
		if t, err := parseISO(s); err == nil {
			info.CreationTime = catalog.Float(t)
		}
	}
	return info
}

func tensorComp(n *Node, name string) float64 {
	if c, ok := n.Child(name); ok {
		return parseF(c.ChildText("value"))
	}
	return 0
}

func parseF(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func parseOpt(s string) catalog.OptFloat {
	if s == "" {
		return catalog.OptFloat{}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return catalog.OptFloat{}
	}
	return catalog.Float(f)
}

func parseOptInt(s string) catalog.OptInt {
	if s == "" {
		return catalog.OptInt{}
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return catalog.OptInt{}
	}
	return catalog.Int(i)
}

func pctFromFrac(v catalog.OptFloat) catalog.OptFloat {
	if !v.Valid {
		return v
	}
	return catalog.Float(v.Float64 * 100.0)
}

func parseISO(s string) (float64, error) {
	for _, layout := range []string{"2006-01-02T15:04:05.999999Z", time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return float64(t.UnixNano()) / 1e9, nil
		}
	}
	return 0, fmt.Errorf("quakeml: bad timestamp %q", s)
}
