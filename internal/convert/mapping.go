package convert

import (
	"math"
	"strconv"
	"strings"

	"github.com/seisops/db2qml/internal/catalog"
	"github.com/seisops/db2qml/internal/schema"
)

// mapping.go translates normalized records into catalog entities:
// creation/evaluation info from the CSS auth field, and the CSS covariance
// ellipse projected into per-parameter lat/lon uncertainties.

// originFromRecord maps a normalized origin row onto a catalog Origin.
func originFromRecord(rec *schema.OriginRecord, id catalog.ResourceID, agency string) *catalog.Origin {
	o := &catalog.Origin{
		ID:        id,
		Time:      rec.Time,
		Latitude:  rec.Lat,
		Longitude: rec.Lon,
		Depth:     rec.Depth,

		TimeUncertainty:  rec.Stime,
		DepthUncertainty: rec.Sdepth,

		MaxHorizontalUncertainty: rec.Smajax,
		MinHorizontalUncertainty: rec.Sminax,
		AzimuthMaxHorizontal:     rec.Strike,
		ConfidenceLevel:          rec.Conf,

		AssociatedPhaseCount: rec.Nass,
		UsedPhaseCount:       rec.Ndef,
		StandardError:        rec.Sdobs,

		Method: rec.Algorithm,
		Etype:  rec.Etype,

		Info: catalog.CreationInfo{
			AgencyID:     agency,
			Author:       rec.Auth,
			Version:      strconv.FormatInt(rec.Orid, 10),
			CreationTime: rec.Lddate,
		},
		Source: rec.Prov(),
	}

	// Project the horizontal error ellipse onto the parameter axes.
	if rec.Smajax.Valid && rec.Sminax.Valid && rec.Strike.Valid {
		n, e := neOnEllipse(rec.Smajax.Float64, rec.Sminax.Float64, rec.Strike.Float64)
		o.LatitudeUncertainty = catalog.Float(mToDegLat(n))
		o.LongitudeUncertainty = catalog.Float(mToDegLon(e, rec.Lat))
	}

	o.EvaluationMode, o.EvaluationStatus = originEvaluation(rec.Auth)
	return o
}

// magnitudeFromRecord maps a normalized netmag row onto a catalog
// Magnitude bound to its resolved origin.
func magnitudeFromRecord(rec *schema.NetmagRecord, id, originID catalog.ResourceID, agency string) *catalog.Magnitude {
	m := &catalog.Magnitude{
		ID:           id,
		OriginID:     originID,
		Type:         rec.Magtype,
		Value:        rec.Magnitude,
		Uncertainty:  rec.Uncertainty,
		StationCount: rec.Nsta,
		Info: catalog.CreationInfo{
			AgencyID:     agency,
			Author:       rec.Auth,
			Version:      strconv.FormatInt(rec.Magid, 10),
			CreationTime: rec.Lddate,
		},
		Source: rec.Prov(),
	}
	m.EvaluationStatus = magEvaluation(rec.Auth)
	return m
}

// focalMechFromRecord maps a normalized fplane row onto a catalog
// FocalMechanism. The author field joins the inversion algorithm with the
// CSS auth, matching the source database's convention.
func focalMechFromRecord(rec *schema.FplaneRecord, id, originID catalog.ResourceID, agency string) *catalog.FocalMechanism {
	author := rec.Auth
	if rec.Algorithm != "" {
		author = rec.Algorithm + ":" + rec.Auth
	}
	return &catalog.FocalMechanism{
		ID:                 id,
		TriggeringOriginID: originID,
		Plane1:             catalog.NodalPlane{Strike: rec.Str1, Dip: rec.Dip1, Rake: rec.Rake1},
		Plane2:             catalog.NodalPlane{Strike: rec.Str2, Dip: rec.Dip2, Rake: rec.Rake2},
		TAxis:              catalog.Axis{Azimuth: rec.Taxazm, Plunge: rec.Taxplg},
		PAxis:              catalog.Axis{Azimuth: rec.Paxazm, Plunge: rec.Paxplg},
		Info: catalog.CreationInfo{
			AgencyID:     agency,
			Author:       author,
			Version:      strconv.FormatInt(rec.Mechid, 10),
			CreationTime: rec.Lddate,
		},
		Source: rec.Prov(),
	}
}

// originMagnitude derives a Magnitude from a magnitude column carried on
// the origin row itself (ml/mb/ms fallback when netmag is empty).
func originMagnitude(rec *schema.OriginRecord, id, originID catalog.ResourceID, mtype string, value float64, agency string) *catalog.Magnitude {
	m := &catalog.Magnitude{
		ID:       id,
		OriginID: originID,
		Type:     mtype,
		Value:    value,
		Info: catalog.CreationInfo{
			AgencyID:     agency,
			Author:       rec.Auth,
			Version:      strconv.FormatInt(rec.Orid, 10),
			CreationTime: rec.Lddate,
		},
		Source: rec.Prov(),
	}
	m.EvaluationStatus = magEvaluation(rec.Auth)
	return m
}

// originEvaluation derives evaluation mode/status from the CSS auth field:
// automatic associator solutions stay preliminary, anything else is a
// reviewed analyst solution.
func originEvaluation(auth string) (mode, status string) {
	if auth != "" && !strings.Contains(auth, "orbassoc") {
		return "manual", "reviewed"
	}
	return "automatic", "preliminary"
}

// magEvaluation mirrors the original rule for magnitudes: orb-produced
// magnitudes are preliminary.
func magEvaluation(auth string) string {
	if strings.HasPrefix(auth, "orb") {
		return "preliminary"
	}
	return "reviewed"
}

// Earth constants for ellipse projection.
const (
	mPerDegLat  = 110600.0
	earthRadius = 6367449.0
)

// evalEllipse evaluates the radius of an ellipse with semi-axes a, b at
// the given angle from the major axis.
func evalEllipse(a, b, angleDeg float64) float64 {
	rad := angleDeg * math.Pi / 180
	return a * b / math.Sqrt(math.Pow(b*math.Cos(rad), 2)+math.Pow(a*math.Sin(rad), 2))
}

// neOnEllipse solves the error ellipse at north and east, given the strike
// of the major axis from north.
func neOnEllipse(a, b, strike float64) (n, e float64) {
	return evalEllipse(a, b, strike), evalEllipse(a, b, strike-90)
}

// mToDegLat converts a north-south distance in meters to degrees latitude.
func mToDegLat(dist float64) float64 {
	return dist / mPerDegLat
}

// mToDegLon converts an east-west distance in meters to degrees longitude
// at the given latitude.
func mToDegLon(dist, lat float64) float64 {
	return dist / (math.Pi / 180) / earthRadius / math.Cos(lat*math.Pi/180)
}
