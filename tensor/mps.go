package tensor

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/sarchlab/mpssim/simerr"
)

// Site is one rank-3 tensor of an MPS: shape (left bond, physical, right
// bond), stored as Left slices of Phys x Right matrices.
type Site struct {
	Left, Phys, Right int
	// Data[l][p][r]
	Data [][][]complex128
}

// NewSite allocates a zeroed tensor of the given shape.
func NewSite(left, phys, right int) *Site {
	data := make([][][]complex128, left)
	for l := range data {
		data[l] = make([][]complex128, phys)
		for p := range data[l] {
			data[l][p] = make([]complex128, right)
		}
	}
	return &Site{Left: left, Phys: phys, Right: right, Data: data}
}

// FrobeniusNorm returns sqrt(sum |t_ijk|^2), which equals the global MPS
// norm exactly when this tensor is the chain's orthogonality center.
func (s *Site) FrobeniusNorm() float64 {
	var sum float64
	for l := range s.Data {
		for p := range s.Data[l] {
			for _, v := range s.Data[l][p] {
				sum += real(v)*real(v) + imag(v)*imag(v)
			}
		}
	}
	return math.Sqrt(sum)
}

// Scale multiplies every entry of s by c in place.
func (s *Site) Scale(c complex128) {
	for l := range s.Data {
		for p := range s.Data[l] {
			for r := range s.Data[l][p] {
				s.Data[l][p][r] *= c
			}
		}
	}
}

// MPS is a chain of L rank-3 tensors approximating a 1-D quantum state,
// with bonds compressed by SVD with a cutoff and maximum bond dimension.
type MPS struct {
	L         int
	D         int // local Hilbert dimension, uniform across sites
	Sites     []*Site
	OrthoCtr  int // RAM index (0-based) of the current orthogonality center, or -1 if unknown
}

// NewProductState builds a bond-dimension-1 MPS where RAM site i holds
// basisIndex[i] (a 0-based index into the local d-dimensional basis).
func NewProductState(L, d int, basisIndex []int) (*MPS, error) {
	if len(basisIndex) != L {
		return nil, simerr.New(simerr.Internal, "basisIndex length %d != L %d", len(basisIndex), L)
	}
	sites := make([]*Site, L)
	for i := 0; i < L; i++ {
		if basisIndex[i] < 0 || basisIndex[i] >= d {
			return nil, simerr.New(simerr.InvalidArgument, "basis index %d out of range [0,%d) at site %d", basisIndex[i], d, i)
		}
		s := NewSite(1, d, 1)
		s.Data[0][basisIndex[i]][0] = 1
		sites[i] = s
	}
	return &MPS{L: L, D: d, Sites: sites, OrthoCtr: 0}, nil
}

// Clone deep-copies m so an observable can gauge and measure the copy
// without mutating the caller's state, matching spec's read-only-except-
// internal-copies contract for observable invocation.
func (m *MPS) Clone() *MPS {
	sites := make([]*Site, len(m.Sites))
	for i, s := range m.Sites {
		ns := NewSite(s.Left, s.Phys, s.Right)
		for l := range s.Data {
			for p := range s.Data[l] {
				copy(ns.Data[l][p], s.Data[l][p])
			}
		}
		sites[i] = ns
	}
	return &MPS{L: m.L, D: m.D, Sites: sites, OrthoCtr: m.OrthoCtr}
}

// MaxBondDim reports the largest bond dimension anywhere in the chain.
func (m *MPS) MaxBondDim() int {
	max := 1
	for _, s := range m.Sites {
		if s.Left > max {
			max = s.Left
		}
		if s.Right > max {
			max = s.Right
		}
	}
	return max
}

// leftOrthonormalize replaces Sites[i] with its left-orthonormal Q factor
// (via a QR decomposition of the (left*phys) x right reshape) and folds R
// into Sites[i+1].
func (m *MPS) leftOrthonormalize(i int) error {
	s := m.Sites[i]
	rows := s.Left * s.Phys
	a := NewMatrix(rows, s.Right)
	for l := 0; l < s.Left; l++ {
		for p := 0; p < s.Phys; p++ {
			for r := 0; r < s.Right; r++ {
				a.Set(l*s.Phys+p, r, s.Data[l][p][r])
			}
		}
	}

	q, r, err := thinQR(a)
	if err != nil {
		return err
	}

	newRight := q.Cols
	ns := NewSite(s.Left, s.Phys, newRight)
	for l := 0; l < s.Left; l++ {
		for p := 0; p < s.Phys; p++ {
			for c := 0; c < newRight; c++ {
				ns.Data[l][p][c] = q.At(l*s.Phys+p, c)
			}
		}
	}
	m.Sites[i] = ns

	if i+1 < m.L {
		next := m.Sites[i+1]
		folded := NewSite(newRight, next.Phys, next.Right)
		for nl := 0; nl < newRight; nl++ {
			for p := 0; p < next.Phys; p++ {
				for rr := 0; rr < next.Right; rr++ {
					var sum complex128
					for k := 0; k < next.Left; k++ {
						sum += r.At(nl, k) * next.Data[k][p][rr]
					}
					folded.Data[nl][p][rr] = sum
				}
			}
		}
		m.Sites[i+1] = folded
	}

	return nil
}

// rightOrthonormalize replaces Sites[i] with its right-orthonormal factor
// (via an LQ decomposition, implemented as a QR of the transpose) and
// folds the triangular factor into Sites[i-1].
func (m *MPS) rightOrthonormalize(i int) error {
	s := m.Sites[i]
	cols := s.Phys * s.Right
	a := NewMatrix(s.Left, cols)
	for l := 0; l < s.Left; l++ {
		for p := 0; p < s.Phys; p++ {
			for r := 0; r < s.Right; r++ {
				a.Set(l, p*s.Right+r, s.Data[l][p][r])
			}
		}
	}

	// LQ(A) via QR(A^T): A^T = Q R  =>  A = R^T Q^T, with Q^T orthonormal
	// rows (= L) and R^T lower triangular (= our "L").
	q, r, err := thinQR(a.ConjTranspose())
	if err != nil {
		return err
	}
	lMat := r.ConjTranspose() // lower-triangular L
	qT := q.ConjTranspose()   // newLeft x cols, orthonormal rows

	newLeft := qT.Rows
	ns := NewSite(newLeft, s.Phys, s.Right)
	for l := 0; l < newLeft; l++ {
		for p := 0; p < s.Phys; p++ {
			for r := 0; r < s.Right; r++ {
				ns.Data[l][p][r] = qT.At(l, p*s.Right+r)
			}
		}
	}
	m.Sites[i] = ns

	if i-1 >= 0 {
		prev := m.Sites[i-1]
		folded := NewSite(prev.Left, prev.Phys, newLeft)
		for l := 0; l < prev.Left; l++ {
			for p := 0; p < prev.Phys; p++ {
				for nr := 0; nr < newLeft; nr++ {
					var sum complex128
					for k := 0; k < prev.Right; k++ {
						sum += prev.Data[l][p][k] * lMat.At(k, nr)
					}
					folded.Data[l][p][nr] = sum
				}
			}
		}
		m.Sites[i-1] = folded
	}

	return nil
}

// Gauge orthogonalizes the chain so that every tensor left of pos is
// left-orthonormal and every tensor right of pos is right-orthonormal,
// leaving the tensor at pos holding the chain's norm (the orthogonality
// center). It is a no-op if pos is already the center.
func (m *MPS) Gauge(pos int) error {
	if pos < 0 || pos >= m.L {
		return simerr.New(simerr.Internal, "gauge position %d out of range [0,%d)", pos, m.L)
	}
	if m.OrthoCtr == pos {
		return nil
	}
	for i := 0; i < pos; i++ {
		if err := m.leftOrthonormalize(i); err != nil {
			return err
		}
	}
	for i := m.L - 1; i > pos; i-- {
		if err := m.rightOrthonormalize(i); err != nil {
			return err
		}
	}
	m.OrthoCtr = pos
	return nil
}

// thinQR computes a's thin QR decomposition by running gonum's real
// mat.QR over the real block-embedding of a, the same technique
// complex.go uses for SVD and for Haar-random unitary sampling.
func thinQR(a *Matrix) (q, r *Matrix, err error) {
	n, c := a.Rows, a.Cols
	embedded := embedReal(a)

	var qr mat.QR
	qr.Factorize(embedded)

	var qFull, rFull mat.Dense
	qr.QTo(&qFull)
	qr.RTo(&rFull)

	k := minInt(n, c)
	q = NewMatrix(n, k)
	r = NewMatrix(k, c)

	for j := 0; j < k; j++ {
		col := foldComplex(&qFull, 0, n, j)
		for i := 0; i < n; i++ {
			q.Set(i, j, col[i])
		}
	}
	for j := 0; j < c; j++ {
		for i := 0; i < k; i++ {
			re := rFull.At(i, j)
			im := rFull.At(i, c+j)
			r.Set(i, j, complex(re, im))
		}
	}
	return q, r, nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// ApplySingleSite gauges the chain to ramIdx and contracts the d x d
// operator op against the physical leg of Sites[ramIdx] in place. The
// orthogonality center remains at ramIdx.
func (m *MPS) ApplySingleSite(ramIdx int, op *Matrix) error {
	if err := m.Gauge(ramIdx); err != nil {
		return err
	}
	s := m.Sites[ramIdx]
	if op.Rows != s.Phys || op.Cols != s.Phys {
		return simerr.New(simerr.Internal, "single-site operator shape %dx%d does not match local dimension %d", op.Rows, op.Cols, s.Phys)
	}

	ns := NewSite(s.Left, s.Phys, s.Right)
	for l := 0; l < s.Left; l++ {
		for newP := 0; newP < s.Phys; newP++ {
			for r := 0; r < s.Right; r++ {
				var sum complex128
				for oldP := 0; oldP < s.Phys; oldP++ {
					opv := op.At(newP, oldP)
					if opv == 0 {
						continue
					}
					sum += opv * s.Data[l][oldP][r]
				}
				ns.Data[l][newP][r] = sum
			}
		}
	}
	m.Sites[ramIdx] = ns
	return nil
}

// ApplyTwoSite gauges the chain to ramI, contracts the (d*d) x (d*d)
// operator op against the joint physical legs of the adjacent tensors at
// ramI and ramI+1, and reconstructs the pair via an SVD truncated to
// cutoff/maxdim, carrying the singular values into the right tensor so the
// orthogonality center moves to ramI+1.
func (m *MPS) ApplyTwoSite(ramI int, op *Matrix, cutoff float64, maxdim int) error {
	ramJ := ramI + 1
	if ramJ >= m.L {
		return simerr.New(simerr.Internal, "two-site operator at %d has no right neighbor within the chain", ramI)
	}
	if err := m.Gauge(ramI); err != nil {
		return err
	}

	A := m.Sites[ramI]
	B := m.Sites[ramJ]
	d1, d2 := A.Phys, B.Phys
	if op.Rows != d1*d2 || op.Cols != d1*d2 {
		return simerr.New(simerr.Internal, "two-site operator shape %dx%d does not match local dimensions %d,%d", op.Rows, op.Cols, d1, d2)
	}

	// theta[l][p1][p2][r] = sum_mid A[l][p1][mid] * B[mid][p2][r]
	theta := make([][][][]complex128, A.Left)
	for l := 0; l < A.Left; l++ {
		theta[l] = make([][][]complex128, d1)
		for p1 := 0; p1 < d1; p1++ {
			theta[l][p1] = make([][]complex128, d2)
			for p2 := 0; p2 < d2; p2++ {
				theta[l][p1][p2] = make([]complex128, B.Right)
				for r := 0; r < B.Right; r++ {
					var sum complex128
					for mid := 0; mid < A.Right; mid++ {
						sum += A.Data[l][p1][mid] * B.Data[mid][p2][r]
					}
					theta[l][p1][p2][r] = sum
				}
			}
		}
	}

	// Contract the operator over the joint physical legs: the row index
	// of op is (p1', p2') = p1'*d2 + p2', the column index is (p1, p2).
	applied := make([][][][]complex128, A.Left)
	for l := 0; l < A.Left; l++ {
		applied[l] = make([][][]complex128, d1)
		for np1 := 0; np1 < d1; np1++ {
			applied[l][np1] = make([][]complex128, d2)
			for np2 := 0; np2 < d2; np2++ {
				applied[l][np1][np2] = make([]complex128, B.Right)
				row := np1*d2 + np2
				for r := 0; r < B.Right; r++ {
					var sum complex128
					for p1 := 0; p1 < d1; p1++ {
						for p2 := 0; p2 < d2; p2++ {
							opv := op.At(row, p1*d2+p2)
							if opv == 0 {
								continue
							}
							sum += opv * theta[l][p1][p2][r]
						}
					}
					applied[l][np1][np2][r] = sum
				}
			}
		}
	}

	// Reshape into a (A.Left*d1) x (d2*B.Right) matrix and SVD-truncate.
	mat2 := NewMatrix(A.Left*d1, d2*B.Right)
	for l := 0; l < A.Left; l++ {
		for p1 := 0; p1 < d1; p1++ {
			for p2 := 0; p2 < d2; p2++ {
				for r := 0; r < B.Right; r++ {
					mat2.Set(l*d1+p1, p2*B.Right+r, applied[l][p1][p2][r])
				}
			}
		}
	}

	res, err := SVD(mat2, cutoff, maxdim)
	if err != nil {
		return err
	}
	chi := len(res.S)

	newA := NewSite(A.Left, d1, chi)
	for l := 0; l < A.Left; l++ {
		for p1 := 0; p1 < d1; p1++ {
			for c := 0; c < chi; c++ {
				newA.Data[l][p1][c] = res.U.At(l*d1+p1, c)
			}
		}
	}

	newB := NewSite(chi, d2, B.Right)
	for c := 0; c < chi; c++ {
		s := complex(res.S[c], 0)
		for p2 := 0; p2 < d2; p2++ {
			for r := 0; r < B.Right; r++ {
				// V holds V (not V^*); the right factor is S * V^*.
				vStar := cmplxConj(res.V.At(p2*B.Right+r, c))
				newB.Data[c][p2][r] = s * vStar
			}
		}
	}

	m.Sites[ramI] = newA
	m.Sites[ramJ] = newB
	m.OrthoCtr = ramJ
	return nil
}

// SiteMarginal gauges the chain to ramIdx and returns the per-outcome
// probabilities there (the diagonal of the local reduced density matrix).
func (m *MPS) SiteMarginal(ramIdx int) ([]float64, error) {
	if err := m.Gauge(ramIdx); err != nil {
		return nil, err
	}
	s := m.Sites[ramIdx]
	probs := make([]float64, s.Phys)
	for p := 0; p < s.Phys; p++ {
		var sum float64
		for l := 0; l < s.Left; l++ {
			for r := 0; r < s.Right; r++ {
				v := s.Data[l][p][r]
				sum += real(v)*real(v) + imag(v)*imag(v)
			}
		}
		probs[p] = sum
	}
	return probs, nil
}

// NormalizeAt gauges the chain to ramIdx if it is not already the
// orthogonality center, then rescales the tensor there so the chain's
// global norm becomes 1.
func (m *MPS) NormalizeAt(ramIdx int) error {
	if m.OrthoCtr != ramIdx {
		if err := m.Gauge(ramIdx); err != nil {
			return err
		}
	}
	s := m.Sites[ramIdx]
	n := s.FrobeniusNorm()
	if n < 1e-14 {
		return simerr.New(simerr.NumericalFailure, "state norm %.3e at site %d is below the numerical floor", n, ramIdx)
	}
	s.Scale(complex(1/n, 0))
	return nil
}
