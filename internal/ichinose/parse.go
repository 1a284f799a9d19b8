package ichinose

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/seisops/db2qml/internal/catalog"
	"github.com/seisops/db2qml/internal/schema"
)

// Solution is the normalized form of one moment-tensor inversion output
// block. Tensor components and scalar moment are N-m (the source reports
// dyne-cm), depth is meters, percents are 0-100.
type Solution struct {
	Evid catalog.OptInt
	Orid catalog.OptInt

	Time float64 // epoch seconds
	Lat  float64
	Lon  float64

	Depth catalog.OptFloat // meters, from the inversion

	Mw catalog.OptFloat
	M0 catalog.OptFloat // N-m

	PercentDC         catalog.OptFloat
	PercentCLVD       catalog.OptFloat
	Epsilon           catalog.OptFloat
	VarianceReduction catalog.OptFloat

	Plane1 *catalog.NodalPlane
	Plane2 *catalog.NodalPlane
	Tensor *catalog.Tensor

	StationCount catalog.OptInt
	AzimuthalGap catalog.OptFloat

	Reviewed  bool
	Category  string
	CreatedAt catalog.OptFloat // epoch seconds

	hasEventInfo bool
}

// Prov identifies the solution for provenance tagging.
func (s *Solution) Prov() catalog.Provenance {
	return catalog.Provenance{
		Schema:   catalog.SchemaIchinose,
		Table:    "moment",
		SourceID: s.Orid.Int64,
		LoadDate: s.CreatedAt,
	}
}

const mtTable = "moment"

var (
	eventInfoRe = regexp.MustCompile(`^\d{4}/\d{2}/\d{2}\s`)
	floatRe     = regexp.MustCompile(`-?\d+\.\d+`)
	momentRe    = regexp.MustCompile(`(\d+\.\d+)x10\^(\d+)`)
	percentRe   = regexp.MustCompile(`(\d+(?:\.\d+)?)\s?%`)
	mtElemRe    = regexp.MustCompile(`(M..|EXP)=\s*(-?\d+(?:\.\d+)?)`)
	stationsRe  = regexp.MustCompile(`Used=(\d+)`)
	gapRe       = regexp.MustCompile(`Gap\s*=\s*(\d+(?:\.\d+)?)`)
)

// Parse normalizes one Ichinose solution text block.
//
// The format is line-oriented with labeled sections; the parser scans each
// line for the labels the original emitter uses and is tolerant of order
// and of missing optional sections. It fails with a MalformedRecord error
// when the block lacks the event info line or carries neither tensor
// components nor nodal planes.
func Parse(text string) (*Solution, error) {
	lines := strings.Split(text, "\n")
	sol := &Solution{}

	for n, line := range lines {
		switch {
		case strings.Contains(line, "REVIEWED BY NSL STAFF"):
			sol.Reviewed = true

		case strings.Contains(line, "Event ID"):
			if id, err := labeledInt(line); err == nil {
				sol.Evid = catalog.Int(id)
			}

		case strings.Contains(line, "Origin ID"):
			if id, err := labeledInt(line); err == nil {
				sol.Orid = catalog.Int(id)
			}

		case strings.Contains(line, "Ichinose"):
			sol.Category = "regional"

		case eventInfoRe.MatchString(line):
			if err := sol.parseEventInfo(line); err != nil {
				return nil, err
			}

		case strings.Contains(line, "Depth"):
			if f, ok := firstFloat(line); ok {
				sol.Depth = catalog.Float(f * 1000.0) // km -> m
			}

		case strings.Contains(line, "Mw"):
			fields := strings.Fields(line)
			if len(fields) > 0 {
				if f, err := strconv.ParseFloat(fields[len(fields)-1], 64); err == nil {
					sol.Mw = catalog.Float(f)
				}
			}

		case strings.Contains(line, "Mo") && strings.Contains(line, "dyne"):
			if m0, ok := parseMoment(line); ok {
				sol.M0 = catalog.Float(m0)
			}

		case strings.Contains(line, "Percent Double Couple"):
			if p, ok := parsePercent(line); ok {
				sol.PercentDC = catalog.Float(p)
			}

		case strings.Contains(line, "Percent CLVD"):
			if p, ok := parsePercent(line); ok {
				sol.PercentCLVD = catalog.Float(p)
			}

		case strings.Contains(line, "Percent Variance Reduction"):
			if p, ok := parsePercent(line); ok {
				sol.VarianceReduction = catalog.Float(p)
			}

		case strings.Contains(line, "Epsilon"):
			parts := strings.Split(line, "=")
			if f, err := strconv.ParseFloat(strings.TrimSpace(parts[len(parts)-1]), 64); err == nil {
				sol.Epsilon = catalog.Float(f)
			}

		case strings.Contains(line, "Major Double Couple") && n+3 < len(lines) &&
			strings.Contains(lines[n+1], "strike"):
			p1, err1 := parsePlane(lines[n+2])
			p2, err2 := parsePlane(lines[n+3])
			if err1 == nil && err2 == nil {
				sol.Plane1, sol.Plane2 = p1, p2
			}

		case strings.Contains(line, "Spherical Coordinates"):
			t, err := parseTensor(lines, n)
			if err != nil {
				return nil, err
			}
			sol.Tensor = t

		case strings.Contains(line, "Number of Stations"):
			if m := stationsRe.FindStringSubmatch(line); m != nil {
				if i, err := strconv.ParseInt(m[1], 10, 64); err == nil {
					sol.StationCount = catalog.Int(i)
				}
			}

		case strings.Contains(line, "Maximum") && strings.Contains(line, "Gap"):
			if m := gapRe.FindStringSubmatch(line); m != nil {
				if f, err := strconv.ParseFloat(m[1], 64); err == nil {
					sol.AzimuthalGap = catalog.Float(f)
				}
			}

		case strings.HasPrefix(line, "Date"):
			if t, ok := parseStamp(line); ok {
				sol.CreatedAt = catalog.Float(t)
			}
		}
	}

	if !sol.hasEventInfo {
		return nil, &schema.MalformedRecordError{Table: mtTable, Field: "event info", Reason: "required field absent"}
	}
	if sol.Tensor == nil && sol.Plane1 == nil {
		return nil, &schema.MalformedRecordError{Table: mtTable, Field: "tensor", Reason: "neither tensor components nor nodal planes present"}
	}
	return sol, nil
}

// parseEventInfo handles the "date julday time lat lon orid" line.
func (s *Solution) parseEventInfo(line string) error {
	fields := strings.Fields(line)
	if len(fields) != 6 {
		return &schema.MalformedRecordError{Table: mtTable, Field: "event info", Value: line, Reason: "want 6 fields"}
	}
	epoch, ok := parseUTC(fields[0] + " " + fields[2])
	if !ok {
		return &schema.MalformedRecordError{Table: mtTable, Field: "time", Value: fields[2], Reason: "bad timestamp"}
	}
	lat, errLat := strconv.ParseFloat(fields[3], 64)
	lon, errLon := strconv.ParseFloat(fields[4], 64)
	if errLat != nil || errLon != nil {
		return &schema.MalformedRecordError{Table: mtTable, Field: "lat/lon", Value: line, Reason: "not a number"}
	}
	s.Time = epoch
	s.Lat = lat
	s.Lon = lon
	if orid, err := strconv.ParseInt(fields[5], 10, 64); err == nil && !s.Orid.Valid {
		s.Orid = catalog.Int(orid)
	}
	s.hasEventInfo = true
	return nil
}

// parseTensor reads the two component lines following the spherical
// coordinates title and scales dyne-cm 10^EXP to N-m.
func parseTensor(lines []string, n int) (*catalog.Tensor, error) {
	if n+2 >= len(lines) {
		return nil, &schema.MalformedRecordError{Table: mtTable, Field: "tensor", Reason: "truncated tensor block"}
	}
	elems := map[string]float64{}
	exp := 0.0
	for _, l := range lines[n+1 : n+3] {
		for _, m := range mtElemRe.FindAllStringSubmatch(l, -1) {
			v, err := strconv.ParseFloat(m[2], 64)
			if err != nil {
				return nil, &schema.MalformedRecordError{Table: mtTable, Field: m[1], Value: m[2], Reason: "not a number"}
			}
			if m[1] == "EXP" {
				exp = v
			} else {
				elems[m[1]] = v
			}
		}
	}
	for _, want := range []string{"Mrr", "Mtt", "Mff", "Mrt", "Mrf", "Mtf"} {
		if _, ok := elems[want]; !ok {
			return nil, &schema.MalformedRecordError{Table: mtTable, Field: want, Reason: "required field absent"}
		}
	}
	factor := mathPow10(exp - 7) // dyne-cm -> N-m
	return &catalog.Tensor{
		Mrr: elems["Mrr"] * factor,
		Mtt: elems["Mtt"] * factor,
		Mpp: elems["Mff"] * factor,
		Mrt: elems["Mrt"] * factor,
		Mrp: elems["Mrf"] * factor,
		Mtp: elems["Mtf"] * factor,
	}, nil
}

// labeledInt reads the integer after the label's colon,
// e.g. "Event ID: 1371545".
func labeledInt(line string) (int64, error) {
	parts := strings.Split(line, ":")
	return strconv.ParseInt(strings.TrimSpace(parts[len(parts)-1]), 10, 64)
}

// parsePlane reads "Plane 1  :  212  78  -155".
func parsePlane(line string) (*catalog.NodalPlane, error) {
	parts := strings.Split(line, ":")
	fields := strings.Fields(parts[len(parts)-1])
	if len(fields) != 3 {
		return nil, &schema.MalformedRecordError{Table: mtTable, Field: "nodal plane", Value: line, Reason: "want strike dip rake"}
	}
	var v [3]float64
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, &schema.MalformedRecordError{Table: mtTable, Field: "nodal plane", Value: f, Reason: "not a number"}
		}
		v[i] = x
	}
	return &catalog.NodalPlane{Strike: v[0], Dip: v[1], Rake: v[2]}, nil
}

// parseMoment reads "Mo = 2.51x10^22 (dyne-cm)" and converts to N-m.
func parseMoment(line string) (float64, bool) {
	m := momentRe.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	mant, err1 := strconv.ParseFloat(m[1], 64)
	exp, err2 := strconv.ParseFloat(m[2], 64)
	if err1 != nil || err2 != nil {
		return 0, false
	}
	return mant * mathPow10(exp-7), true
}

func parsePercent(line string) (float64, bool) {
	m := percentRe.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(m[1], 64)
	return f, err == nil
}

// parseStamp reads "Date: 2013/04/12 04:01:33".
func parseStamp(line string) (float64, bool) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return 0, false
	}
	return parseUTC(fields[1] + " " + fields[2])
}

// parseUTC converts "2013/04/12 03:22:12[.00]" to epoch seconds.
func parseUTC(s string) (float64, bool) {
	for _, layout := range []string{"2006/01/02 15:04:05.00", "2006/01/02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return float64(t.UnixNano()) / 1e9, true
		}
	}
	return 0, false
}

func firstFloat(line string) (float64, bool) {
	m := floatRe.FindString(line)
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	return f, err == nil
}

func mathPow10(exp float64) float64 {
	return math.Pow(10, exp)
}
