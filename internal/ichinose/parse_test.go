package ichinose

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seisops/db2qml/internal/schema"
)

const solutionFixture = `REVIEWED BY NSL STAFF
Event ID: 1371545
Origin ID: 1371600
Ichinose regional moment tensor solution
2013/04/12 102 03:22:12.00 38.1234 -118.4567 1371600
Depth =   8.0 (km)
Mw    =  4.52
Mo    =  7.08x10^22 (dyne-cm)
Percent Double Couple =  91 %
Percent CLVD          =   9 %
Percent Variance Reduction = 78.32 %
Epsilon=0.05
Major Double Couple
       strike dip rake
Plane 1: 212 78 -155
Plane 2: 115 66 -13
Spherical Coordinates
Mrr= -0.24 Mtt= 0.58 Mff= -0.34 EXP=23
Mrt= 0.12 Mrf= -0.05 Mtf= 0.78
Number of Stations Used=8
Maximum Azimuthal Gap=120
Date: 2013/04/12 04:01:33
`

func TestParseSolution(t *testing.T) {
	sol, err := Parse(solutionFixture)
	require.NoError(t, err)

	assert.True(t, sol.Reviewed)
	assert.Equal(t, "regional", sol.Category)

	require.True(t, sol.Evid.Valid)
	assert.Equal(t, int64(1371545), sol.Evid.Int64)
	require.True(t, sol.Orid.Valid)
	assert.Equal(t, int64(1371600), sol.Orid.Int64)

	// 2013/04/12 03:22:12 UTC
	assert.InDelta(t, 1365736932.0, sol.Time, 1e-3)
	assert.InDelta(t, 38.1234, sol.Lat, 1e-9)
	assert.InDelta(t, -118.4567, sol.Lon, 1e-9)

	require.True(t, sol.Depth.Valid)
	assert.InDelta(t, 8000.0, sol.Depth.Float64, 1e-9) // km -> m

	require.True(t, sol.Mw.Valid)
	assert.InDelta(t, 4.52, sol.Mw.Float64, 1e-9)
	require.True(t, sol.M0.Valid)
	assert.InDelta(t, 7.08e15, sol.M0.Float64, 1e6) // dyne-cm -> N-m

	require.True(t, sol.PercentDC.Valid)
	assert.InDelta(t, 91.0, sol.PercentDC.Float64, 1e-9)
	require.True(t, sol.PercentCLVD.Valid)
	assert.InDelta(t, 9.0, sol.PercentCLVD.Float64, 1e-9)
	require.True(t, sol.VarianceReduction.Valid)
	assert.InDelta(t, 78.32, sol.VarianceReduction.Float64, 1e-9)
	require.True(t, sol.Epsilon.Valid)
	assert.InDelta(t, 0.05, sol.Epsilon.Float64, 1e-9)

	require.NotNil(t, sol.Plane1)
	assert.Equal(t, 212.0, sol.Plane1.Strike)
	assert.Equal(t, 78.0, sol.Plane1.Dip)
	assert.Equal(t, -155.0, sol.Plane1.Rake)
	require.NotNil(t, sol.Plane2)
	assert.Equal(t, 115.0, sol.Plane2.Strike)

	// Components scale by 10^(EXP-7): dyne-cm -> N-m.
	require.NotNil(t, sol.Tensor)
	assert.InDelta(t, -0.24e16, sol.Tensor.Mrr, 1e7)
	assert.InDelta(t, 0.58e16, sol.Tensor.Mtt, 1e7)
	assert.InDelta(t, -0.34e16, sol.Tensor.Mpp, 1e7)
	assert.InDelta(t, 0.12e16, sol.Tensor.Mrt, 1e7)
	assert.InDelta(t, -0.05e16, sol.Tensor.Mrp, 1e7)
	assert.InDelta(t, 0.78e16, sol.Tensor.Mtp, 1e7)

	require.True(t, sol.StationCount.Valid)
	assert.Equal(t, int64(8), sol.StationCount.Int64)
	require.True(t, sol.AzimuthalGap.Valid)
	assert.InDelta(t, 120.0, sol.AzimuthalGap.Float64, 1e-9)

	require.True(t, sol.CreatedAt.Valid)
	assert.Greater(t, sol.CreatedAt.Float64, sol.Time)

	prov := sol.Prov()
	assert.Equal(t, "ichinose", prov.Schema)
	assert.Equal(t, int64(1371600), prov.SourceID)
}

func TestParseMissingEventInfo(t *testing.T) {
	_, err := Parse("Mw = 4.5\nSpherical Coordinates\nMrr= 1 Mtt= 1 Mff= 1 EXP=20\nMrt= 0 Mrf= 0 Mtf= 0\n")
	var malformed *schema.MalformedRecordError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "event info", malformed.Field)
}

func TestParsePlanesWithoutTensor(t *testing.T) {
	text := `2013/04/12 102 03:22:12.00 38.0 -118.0 42
Mw    =  4.00
Major Double Couple
       strike dip rake
Plane 1: 10 45 90
Plane 2: 190 45 90
`
	sol, err := Parse(text)
	require.NoError(t, err)
	assert.Nil(t, sol.Tensor)
	require.NotNil(t, sol.Plane1)
	assert.Equal(t, 10.0, sol.Plane1.Strike)
}

func TestParseNeitherTensorNorPlanes(t *testing.T) {
	_, err := Parse("2013/04/12 102 03:22:12.00 38.0 -118.0 42\nMw = 4.0\n")
	var malformed *schema.MalformedRecordError
	require.ErrorAs(t, err, &malformed)
}
