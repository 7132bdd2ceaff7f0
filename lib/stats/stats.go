/*package stats computes simple summary statistics for sets of dark matter
positions in a periodic box.*/
package stats

import (
	"fmt"
	"math"

	"github.com/phil-mansfield/gravitree"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Summary contains statistics on a set of positions.
type Summary struct {
	N int
	// Mean, Std, Min, and Max are computed separately along each axis
	// without accounting for periodic boundaries.
	Mean, Std, Min, Max [3]float64
	// Center is the center of mass, accounting for periodic boundaries.
	Center [3]float64
	// CA and BA are the minor-to-major and intermediate-to-major axis ratios
	// of the particles around Center. Both are -1 if there are fewer than
	// four particles.
	CA, BA float64
}

// Summarize computes a Summary for the positions x, which live in a periodic
// box of width L. If L <= 0, the box is treated as non-periodic.
func Summarize(x [][3]float64, L float64) *Summary {
	s := &Summary{ N: len(x), CA: -1, BA: -1 }
	if len(x) == 0 { return s }

	col := make([]float64, len(x))
	for dim := 0; dim < 3; dim++ {
		for i := range x { col[i] = x[i][dim] }
		s.Mean[dim], s.Std[dim] = stat.MeanStdDev(col, nil)
		if len(x) == 1 { s.Std[dim] = 0 }
		s.Min[dim], s.Max[dim] = floats.Min(col), floats.Max(col)
	}

	s.Center = CenterOfMass(x, L)
	s.CA, s.BA = AxisRatios(x, s.Center, L)

	return s
}

// PeriodicDisplacement returns x1 - x2 wrapped into [-L/2, L/2]. No wrapping
// is done if L <= 0.
func PeriodicDisplacement(x1, x2 [3]float64, L float64) [3]float64 {
	out := [3]float64{ }
	for dim := 0; dim < 3; dim++ {
		dx := x1[dim] - x2[dim]
		if L > 0 {
			if dx > L/2 {
				dx -= L
			} else if dx < -L/2 {
				dx += L
			}
		}
		out[dim] = dx
	}
	return out
}

// CenterOfMass returns the center of mass of x. Displacements are measured
// from the first particle, so the result is only meaningful when the
// particles span less than half the box.
func CenterOfMass(x [][3]float64, L float64) [3]float64 {
	if len(x) == 0 { return [3]float64{ } }

	x0 := x[0]
	sum := [3]float64{ }
	for i := range x {
		dx := PeriodicDisplacement(x[i], x0, L)
		for dim := 0; dim < 3; dim++ { sum[dim] += dx[dim] }
	}

	out := [3]float64{ }
	for dim := 0; dim < 3; dim++ {
		out[dim] = x0[dim] + sum[dim]/float64(len(x))
		if L > 0 {
			out[dim] = math.Mod(out[dim], L)
			if out[dim] < 0 { out[dim] += L }
		}
	}
	return out
}

// AxisRatios returns the axis ratios c/a and b/a of the reduced shape tensor
// of x around the point xc. It returns -1, -1 if there are fewer than four
// particles.
func AxisRatios(x [][3]float64, xc [3]float64, L float64) (ca, ba float64) {
	if len(x) < 4 { return -1, -1 }

	S := make([]float64, 9)
	n := 0
	for k := range x {
		dx := PeriodicDisplacement(x[k], xc, L)
		r2 := dx[0]*dx[0] + dx[1]*dx[1] + dx[2]*dx[2]
		if r2 == 0 { continue }
		n++
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				S[i + 3*j] += dx[i]*dx[j]/r2
			}
		}
	}
	if n < 4 { return -1, -1 }

	for i := range S { S[i] /= float64(n) }
	Smat := mat.NewSymDense(3, S)

	eig := &mat.EigenSym{ }
	ok := eig.Factorize(Smat, false)
	if !ok { panic(fmt.Sprintf("decomposition of %v failed", S)) }
	// Eigenvalues are returned in ascending order.
	val := eig.Values(make([]float64, 3))

	c2, b2, a2 := val[0], val[1], val[2]
	if c2 < 0 { c2 = 0 }
	return math.Sqrt(c2/a2), math.Sqrt(b2/a2)
}

// Subsample returns every k-th element of x, with k chosen so that at most
// maxN elements are returned. x is returned unchanged if maxN <= 0.
func Subsample(x [][3]float64, maxN int) [][3]float64 {
	if maxN <= 0 || len(x) <= maxN { return x }

	k := (len(x) + maxN - 1) / maxN
	out := make([][3]float64, 0, maxN)
	for i := 0; i < len(x); i += k { out = append(out, x[i]) }
	return out
}

// Potential returns the gravitational potential at each particle in x in
// units of G*m/length, where m is the particle mass. eps is the force
// softening scale. L is the width of the periodic box; the particles are
// unwrapped around the first particle before the tree is built.
func Potential(x [][3]float64, L, eps float64) []float64 {
	if len(x) == 0 { return []float64{ } }

	dx := make([][3]float64, len(x))
	for i := range x { dx[i] = PeriodicDisplacement(x[i], x[0], L) }

	tree := gravitree.NewTree(dx)

	pe := make([]float64, len(x))
	tree.Potential(eps, pe)

	return pe
}

// MostBound returns the index of the particle with the lowest potential, or
// -1 if pe is empty.
func MostBound(pe []float64) int {
	if len(pe) == 0 { return -1 }
	im := 0
	for i := range pe {
		if pe[i] < pe[im] { im = i }
	}
	return im
}
