package convert

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOriginEvaluation(t *testing.T) {
	cases := []struct {
		auth       string
		wantMode   string
		wantStatus string
	}{
		{"orbassoc", "automatic", "preliminary"},
		{"orbassoc:v2", "automatic", "preliminary"},
		{"", "automatic", "preliminary"},
		{"analyst:jdoe", "manual", "reviewed"},
	}
	for _, tc := range cases {
		mode, status := originEvaluation(tc.auth)
		assert.Equal(t, tc.wantMode, mode, "auth %q", tc.auth)
		assert.Equal(t, tc.wantStatus, status, "auth %q", tc.auth)
	}
}

func TestMagEvaluation(t *testing.T) {
	assert.Equal(t, "preliminary", magEvaluation("orbmag"))
	assert.Equal(t, "reviewed", magEvaluation("analyst:jdoe"))
}

func TestEllipseProjection(t *testing.T) {
	// A circle projects equally on both axes regardless of strike.
	n, e := neOnEllipse(1000, 1000, 73)
	assert.InDelta(t, 1000.0, n, 1e-6)
	assert.InDelta(t, 1000.0, e, 1e-6)

	// Major axis along north: full major axis north, full minor axis east.
	n, e = neOnEllipse(2000, 1000, 0)
	assert.InDelta(t, 2000.0, n, 1e-6)
	assert.InDelta(t, 1000.0, e, 1e-6)

	// Major axis along east.
	n, e = neOnEllipse(2000, 1000, 90)
	assert.InDelta(t, 1000.0, n, 1e-6)
	assert.InDelta(t, 2000.0, e, 1e-6)
}

func TestEllipseDegreesConversion(t *testing.T) {
	// 110600 m is one degree of latitude by construction.
	assert.InDelta(t, 1.0, mToDegLat(110600), 1e-9)

	// Longitude degrees stretch with latitude.
	atEquator := mToDegLon(1000, 0)
	at60 := mToDegLon(1000, 60)
	assert.InDelta(t, 2.0, at60/atEquator, 1e-6)
}

func TestOriginFromRecordUncertainties(t *testing.T) {
	rec := normalizeOrigin(t, func() map[string]string {
		row := originRow("1")
		row["smajax"] = "2.0" // km
		row["sminax"] = "1.0"
		row["strike"] = "0.0"
		return row
	}())

	o := originFromRecord(rec, "quakeml:test/Origin/1", "NN")

	require.True(t, o.LatitudeUncertainty.Valid)
	require.True(t, o.LongitudeUncertainty.Valid)
	assert.InDelta(t, 2000.0/110600.0, o.LatitudeUncertainty.Float64, 1e-9)

	wantLon := 1000.0 / (math.Pi / 180) / 6367449.0 / math.Cos(rec.Lat*math.Pi/180)
	assert.InDelta(t, wantLon, o.LongitudeUncertainty.Float64, 1e-12)

	require.True(t, o.MaxHorizontalUncertainty.Valid)
	assert.InDelta(t, 2000.0, o.MaxHorizontalUncertainty.Float64, 1e-9)
}
