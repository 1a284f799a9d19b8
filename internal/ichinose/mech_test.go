package ichinose

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seisops/db2qml/internal/catalog"
)

func TestScalarMoment(t *testing.T) {
	// Pure strike-slip: only Mtp populated, M0 = |Mtp|.
	m0 := ScalarMoment(catalog.Tensor{Mtp: -1e17})
	assert.InDelta(t, 1e17, m0, 1e10)
}

func TestMwFromM0(t *testing.T) {
	// Hanks & Kanamori: M0 = 10^(1.5*Mw + 9.1)
	assert.InDelta(t, 5.0, MwFromM0(math.Pow(10, 1.5*5.0+9.1)), 1e-9)
	assert.InDelta(t, 4.52, MwFromM0(math.Pow(10, 1.5*4.52+9.1)), 1e-9)
}

func TestDecomposePureStrikeSlip(t *testing.T) {
	// Vertical strike-slip with strike 0: Mtp = -M0, everything else zero.
	const m0 = 1e17
	dec, err := Decompose(catalog.Tensor{Mtp: -m0})
	require.NoError(t, err)

	assert.InDelta(t, m0, dec.M0, m0*1e-9)
	assert.InDelta(t, 100.0, dec.PercentDC, 1e-6)
	assert.InDelta(t, 0.0, dec.PercentCLVD, 1e-6)
	assert.InDelta(t, 0.0, dec.PercentISO, 1e-6)

	for _, p := range []catalog.NodalPlane{dec.Plane1, dec.Plane2} {
		assertPlaneRanges(t, p)
		assert.InDelta(t, 90.0, p.Dip, 1e-6)
	}
	// One plane strikes north, the other east (modulo the 180 ambiguity).
	strikes := []float64{math.Mod(dec.Plane1.Strike, 180), math.Mod(dec.Plane2.Strike, 180)}
	assert.InDelta(t, 0.0, math.Min(strikes[0], strikes[1]), 1e-6)
	assert.InDelta(t, 90.0, math.Max(strikes[0], strikes[1]), 1e-6)
}

func TestDecomposeRoundTripsPlane(t *testing.T) {
	const m0 = 3.5e16
	cases := []struct {
		name  string
		plane catalog.NodalPlane
	}{
		{"thrust", catalog.NodalPlane{Strike: 0, Dip: 45, Rake: 90}},
		{"normal", catalog.NodalPlane{Strike: 120, Dip: 60, Rake: -90}},
		{"oblique", catalog.NodalPlane{Strike: 212, Dip: 78, Rake: -155}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tensor := TensorFromPlane(tc.plane, m0)
			dec, err := Decompose(tensor)
			require.NoError(t, err)

			assert.InDelta(t, m0, dec.M0, m0*1e-6)
			assert.InDelta(t, 100.0, dec.PercentDC, 1e-3)

			assertPlaneRanges(t, dec.Plane1)
			assertPlaneRanges(t, dec.Plane2)

			// One of the two derived planes must match the input.
			if !planeClose(dec.Plane1, tc.plane, 1e-3) && !planeClose(dec.Plane2, tc.plane, 1e-3) {
				t.Errorf("neither plane matches input %+v: got %+v / %+v", tc.plane, dec.Plane1, dec.Plane2)
			}
		})
	}
}

func TestDecomposeDegenerate(t *testing.T) {
	_, err := Decompose(catalog.Tensor{})
	var degenerate *DegenerateTensorError
	require.ErrorAs(t, err, &degenerate)
}

func TestDecomposeNearIsotropic(t *testing.T) {
	// Explosion-like source: equal diagonal, no deviatoric part. Must not
	// blow up on the vanishing eigenvalue gap.
	dec, err := Decompose(catalog.Tensor{Mrr: 1e16, Mtt: 1e16, Mpp: 1e16})
	require.NoError(t, err)
	assert.InDelta(t, 100.0, dec.PercentISO, 1e-6)
	assert.InDelta(t, 0.0, dec.PercentDC, 1e-6)
}

func assertPlaneRanges(t *testing.T, p catalog.NodalPlane) {
	t.Helper()
	assert.GreaterOrEqual(t, p.Strike, 0.0)
	assert.Less(t, p.Strike, 360.0)
	assert.GreaterOrEqual(t, p.Dip, 0.0)
	assert.LessOrEqual(t, p.Dip, 90.0)
	assert.Greater(t, p.Rake, -180.0)
	assert.LessOrEqual(t, p.Rake, 180.0)
}

func planeClose(a, b catalog.NodalPlane, tol float64) bool {
	return angleClose(a.Strike, b.Strike, tol) &&
		math.Abs(a.Dip-b.Dip) < tol &&
		angleClose(a.Rake, b.Rake, tol)
}

func angleClose(a, b, tol float64) bool {
	d := math.Abs(math.Mod(a-b+540, 360) - 180)
	return d < tol
}
