// Package ichinose translates moment-tensor inversion output into the
// catalog's MomentTensor entity: it parses the solution text block and
// derives the quantities the source leaves implicit: scalar moment, the
// best-fit nodal-plane pair, and the double-couple/CLVD/isotropic
// decomposition.
package ichinose

import (
	"math"

	"github.com/seisops/db2qml/internal/catalog"
)

// DegenerateTensorError is returned when every eigenvalue of the tensor is
// within floating tolerance of zero (a null solution). Anything else gets a
// best-effort decomposition.
type DegenerateTensorError struct{}

func (*DegenerateTensorError) Error() string {
	return "ichinose: degenerate moment tensor (all eigenvalues ~ 0)"
}

// Decomposition holds the derived quantities of a moment tensor.
// Percentages sum to 100 within tolerance.
type Decomposition struct {
	M0 float64 // scalar moment, N-m
	Mw float64

	PercentDC   float64
	PercentCLVD float64
	PercentISO  float64

	Plane1 catalog.NodalPlane
	Plane2 catalog.NodalPlane
}

const degTol = 1e-12

// ScalarMoment computes the scalar seismic moment from the tensor
// components (Silver & Jordan): sqrt(sum(m_ij^2)/2) over the full 3x3.
func ScalarMoment(t catalog.Tensor) float64 {
	sum := t.Mrr*t.Mrr + t.Mtt*t.Mtt + t.Mpp*t.Mpp +
		2*(t.Mrt*t.Mrt+t.Mrp*t.Mrp+t.Mtp*t.Mtp)
	return math.Sqrt(sum / 2)
}

// MwFromM0 converts a scalar moment in N-m to moment magnitude
// (Hanks & Kanamori).
func MwFromM0(m0 float64) float64 {
	return 2.0 / 3.0 * (math.Log10(m0) - 9.1)
}

// Decompose derives scalar moment, nodal planes and the DC/CLVD/ISO
// percentage split from tensor components.
//
// The tensor is rotated from the spherical (r,t,p) convention into
// north-east-down, eigen-decomposed, and split into isotropic and deviatoric
// parts. Near-isotropic tensors (vanishing deviatoric part) fall back to a
// zeroed plane pair rather than dividing by the eigenvalue gap.
func Decompose(t catalog.Tensor) (*Decomposition, error) {
	// (r,t,p) -> NED: x=north, y=east, z=down.
	m := [3][3]float64{
		{t.Mtt, -t.Mtp, t.Mrt},
		{-t.Mtp, t.Mpp, -t.Mrp},
		{t.Mrt, -t.Mrp, t.Mrr},
	}

	vals, vecs := eigenSym3(m)

	// Tolerance scales with the largest component so units don't matter.
	scale := 0.0
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			scale = math.Max(scale, math.Abs(m[i][j]))
		}
	}
	maxEig := math.Max(math.Abs(vals[0]), math.Max(math.Abs(vals[1]), math.Abs(vals[2])))
	if maxEig <= degTol || (scale > 0 && maxEig/scale < 1e-9) {
		return nil, &DegenerateTensorError{}
	}

	// Sort eigenpairs descending: tension, null, pressure.
	order := [3]int{0, 1, 2}
	for i := 0; i < 2; i++ {
		for j := i + 1; j < 3; j++ {
			if vals[order[j]] > vals[order[i]] {
				order[i], order[j] = order[j], order[i]
			}
		}
	}
	tAxis := column(vecs, order[0])
	pAxis := column(vecs, order[2])

	iso := (vals[0] + vals[1] + vals[2]) / 3.0

	// Deviatoric eigenvalues, by absolute value.
	dev := [3]float64{vals[0] - iso, vals[1] - iso, vals[2] - iso}
	devMax, devMin := 0.0, math.Inf(1)
	for _, d := range dev {
		if a := math.Abs(d); a > devMax {
			devMax = a
		}
	}
	for _, d := range dev {
		if a := math.Abs(d); a < devMin {
			devMin = a
		}
	}

	d := &Decomposition{
		M0: math.Sqrt((vals[0]*vals[0] + vals[1]*vals[1] + vals[2]*vals[2]) / 2),
	}
	d.Mw = MwFromM0(d.M0)

	if devMax/maxEig < 1e-9 {
		// Pure isotropic source: no deviatoric part, planes undefined.
		d.PercentISO = 100
		return d, nil
	}

	d.PercentISO = 100 * math.Abs(iso) / (math.Abs(iso) + devMax)
	epsilon := devMin / devMax
	d.PercentDC = (1 - 2*epsilon) * (100 - d.PercentISO)
	d.PercentCLVD = 100 - d.PercentISO - d.PercentDC

	// Slip and fault normal of the best double couple.
	var u, n [3]float64
	for i := 0; i < 3; i++ {
		u[i] = (tAxis[i] + pAxis[i]) / math.Sqrt2
		n[i] = (tAxis[i] - pAxis[i]) / math.Sqrt2
	}
	d.Plane1 = planeFrom(n, u)
	d.Plane2 = planeFrom(u, n)
	return d, nil
}

// planeFrom converts a fault normal and slip vector (NED, unit length) to
// strike/dip/rake in the conventional ranges.
func planeFrom(n, u [3]float64) catalog.NodalPlane {
	// Normal points up (z negative in NED); flip both if not.
	if n[2] > 0 {
		for i := 0; i < 3; i++ {
			n[i], u[i] = -n[i], -u[i]
		}
	}

	dip := math.Acos(-n[2])
	sinDip := math.Sin(dip)

	var strike, rake float64
	if sinDip < 1e-10 {
		// Horizontal plane: strike is undefined, take it along the slip.
		strike = math.Atan2(u[1], u[0])
		rake = 0
	} else {
		strike = math.Atan2(-n[0], n[1])
		cs, ss := math.Cos(strike), math.Sin(strike)
		rake = math.Atan2(-u[2]/sinDip, u[0]*cs+u[1]*ss)
	}

	return catalog.NodalPlane{
		Strike: wrapStrike(strike * 180 / math.Pi),
		Dip:    dip * 180 / math.Pi,
		Rake:   wrapRake(rake * 180 / math.Pi),
	}
}

// wrapStrike maps an angle to [0, 360).
func wrapStrike(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// wrapRake maps an angle to (-180, 180].
func wrapRake(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg > 180 {
		deg -= 360
	} else if deg <= -180 {
		deg += 360
	}
	return deg
}

// TensorFromPlane synthesizes spherical (r,t,p) tensor components from one
// nodal plane and a scalar moment (Aki & Richards). Used when a source
// supplies only strike/dip/rake.
func TensorFromPlane(p catalog.NodalPlane, m0 float64) catalog.Tensor {
	phi := p.Strike * math.Pi / 180
	delta := p.Dip * math.Pi / 180
	lambda := p.Rake * math.Pi / 180

	sinD, cosD := math.Sin(delta), math.Cos(delta)
	sin2D, cos2D := math.Sin(2*delta), math.Cos(2*delta)
	sinL, cosL := math.Sin(lambda), math.Cos(lambda)
	sinP, cosP := math.Sin(phi), math.Cos(phi)
	sin2P, cos2P := math.Sin(2*phi), math.Cos(2*phi)

	return catalog.Tensor{
		Mrr: m0 * sin2D * sinL,
		Mtt: -m0 * (sinD*cosL*sin2P + sin2D*sinL*sinP*sinP),
		Mpp: m0 * (sinD*cosL*sin2P - sin2D*sinL*cosP*cosP),
		Mrt: -m0 * (cosD*cosL*cosP + cos2D*sinL*sinP),
		Mrp: m0 * (cosD*cosL*sinP - cos2D*sinL*cosP),
		Mtp: -m0 * (sinD*cosL*cos2P + 0.5*sin2D*sinL*sin2P),
	}
}

// column extracts eigenvector i from the Jacobi rotation matrix.
func column(v [3][3]float64, i int) [3]float64 {
	return [3]float64{v[0][i], v[1][i], v[2][i]}
}

// eigenSym3 computes eigenvalues and eigenvectors of a symmetric 3x3
// matrix by cyclic Jacobi rotations. Eigenvector i is column i of the
// returned matrix. Convergence for 3x3 symmetric input is a handful of
// sweeps; the iteration cap is a safety net.
func eigenSym3(a [3][3]float64) (vals [3]float64, vecs [3][3]float64) {
	vecs = [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

	for sweep := 0; sweep < 64; sweep++ {
		off := math.Abs(a[0][1]) + math.Abs(a[0][2]) + math.Abs(a[1][2])
		if off == 0 {
			break
		}
		for p := 0; p < 2; p++ {
			for q := p + 1; q < 3; q++ {
				if math.Abs(a[p][q]) < 1e-300 {
					continue
				}
				theta := (a[q][q] - a[p][p]) / (2 * a[p][q])
				t := math.Copysign(1, theta) / (math.Abs(theta) + math.Sqrt(theta*theta+1))
				c := 1 / math.Sqrt(t*t+1)
				s := t * c

				apq := a[p][q]
				app, aqq := a[p][p], a[q][q]
				a[p][p] = app - t*apq
				a[q][q] = aqq + t*apq
				a[p][q] = 0
				a[q][p] = 0

				for k := 0; k < 3; k++ {
					if k != p && k != q {
						akp, akq := a[k][p], a[k][q]
						a[k][p] = c*akp - s*akq
						a[p][k] = a[k][p]
						a[k][q] = s*akp + c*akq
						a[q][k] = a[k][q]
					}
					vkp, vkq := vecs[k][p], vecs[k][q]
					vecs[k][p] = c*vkp - s*vkq
					vecs[k][q] = s*vkp + c*vkq
				}
			}
		}
	}

	vals = [3]float64{a[0][0], a[1][1], a[2][2]}
	return vals, vecs
}
