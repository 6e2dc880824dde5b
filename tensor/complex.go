// Package tensor holds the complex dense linear algebra and the
// Matrix-Product-State representation the Apply Engine operates on.
//
// gonum.org/v1/gonum/mat only factorizes real float64 matrices, so the
// complex decompositions this package needs (SVD for MPS truncation, QR
// for Haar-random unitary sampling) go through the standard real-block
// embedding of a complex matrix: for A = X + iY (n x m), the real matrix
//
//	A_R = [ X  -Y ]   (2n x 2m)
//	      [ Y   X ]
//
// satisfies complex(A_R v) = A * complex(v) for every real vector
// v in R^2m, where complex(x,y) = x + iy splits v into its first and
// second halves. Consequently every singular value of A appears twice
// (consecutively, since gonum.mat.SVD sorts descending) in the real SVD
// of A_R, and taking the first column of each such pair and folding it
// back into a complex vector recovers an exact complex singular vector;
// the same intertwining argument applies to Householder QR, which is why
// RandomUnitary below recovers a genuine complex Q from a real QR of the
// embedded Ginibre matrix.
package tensor

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/sarchlab/mpssim/simerr"
)

// Matrix is a dense complex matrix stored row-major.
type Matrix struct {
	Rows, Cols int
	Data       []complex128 // len == Rows*Cols, row-major
}

// NewMatrix allocates a zeroed r x c matrix.
func NewMatrix(r, c int) *Matrix {
	return &Matrix{Rows: r, Cols: c, Data: make([]complex128, r*c)}
}

func (m *Matrix) At(i, j int) complex128 { return m.Data[i*m.Cols+j] }
func (m *Matrix) Set(i, j int, v complex128) { m.Data[i*m.Cols+j] = v }

// Identity returns the n x n identity matrix.
func Identity(n int) *Matrix {
	m := NewMatrix(n, n)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// MatMul returns a*b.
func MatMul(a, b *Matrix) *Matrix {
	if a.Cols != b.Rows {
		panic("tensor: MatMul dimension mismatch")
	}
	out := NewMatrix(a.Rows, b.Cols)
	for i := 0; i < a.Rows; i++ {
		for k := 0; k < a.Cols; k++ {
			av := a.At(i, k)
			if av == 0 {
				continue
			}
			for j := 0; j < b.Cols; j++ {
				out.Set(i, j, out.At(i, j)+av*b.At(k, j))
			}
		}
	}
	return out
}

// ConjTranspose returns a*.
func (m *Matrix) ConjTranspose() *Matrix {
	out := NewMatrix(m.Cols, m.Rows)
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			out.Set(j, i, cmplxConj(m.At(i, j)))
		}
	}
	return out
}

func cmplxConj(z complex128) complex128 { return complex(real(z), -imag(z)) }

// embedReal builds the 2n x 2m real block-embedding of m.
func embedReal(m *Matrix) *mat.Dense {
	n, c := m.Rows, m.Cols
	out := mat.NewDense(2*n, 2*c, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			out.Set(i, j, real(v))
			out.Set(i, c+j, -imag(v))
			out.Set(n+i, j, imag(v))
			out.Set(n+i, c+j, real(v))
		}
	}
	return out
}

// foldComplex reads a length 2k real column vector (k real parts followed
// by k imaginary parts) out of column `col` of dense, starting at row
// offset `rowOff`, for `k` complex entries.
func foldComplex(dense *mat.Dense, rowOff, k, col int) []complex128 {
	out := make([]complex128, k)
	for i := 0; i < k; i++ {
		re := dense.At(rowOff+i, col)
		im := dense.At(rowOff+k+i, col)
		out[i] = complex(re, im)
	}
	return out
}

// SVDResult holds a truncated complex SVD: A ~= U * diag(S) * V^*.
type SVDResult struct {
	U *Matrix // Rows(A) x r
	S []float64
	V *Matrix // Cols(A) x r, already conjugate-is-implicit (use V.ConjTranspose for V^*)
}

// SVD computes the full complex SVD of a via the real block-embedding
// technique described in the package doc, then truncates to keep at most
// maxdim singular values and drops any singular value whose relative
// weight (normalized by the largest) falls below cutoff.
func SVD(a *Matrix, cutoff float64, maxdim int) (*SVDResult, error) {
	n, c := a.Rows, a.Cols
	embedded := embedReal(a)

	var svd mat.SVD
	ok := svd.Factorize(embedded, mat.SVDFull)
	if !ok {
		return nil, simerr.New(simerr.Internal, "real-embedding SVD factorization failed")
	}

	sigmasReal := svd.Values(nil)
	var uR, vR mat.Dense
	svd.UTo(&uR)
	svd.VTo(&vR)

	k := len(sigmasReal) / 2
	if k == 0 {
		return &SVDResult{U: NewMatrix(n, 0), S: nil, V: NewMatrix(c, 0)}, nil
	}

	type pair struct {
		sigma float64
		col   int
	}
	pairs := make([]pair, 0, k)
	used := make([]bool, len(sigmasReal))
	for i := 0; i < len(sigmasReal); i++ {
		if used[i] {
			continue
		}
		// find its partner: the next unused entry with (near) the same
		// singular value, which gonum groups consecutively.
		partner := -1
		for j := i + 1; j < len(sigmasReal); j++ {
			if used[j] {
				continue
			}
			if math.Abs(sigmasReal[j]-sigmasReal[i]) < 1e-9*math.Max(1, sigmasReal[i]) {
				partner = j
				break
			}
		}
		if partner == -1 {
			// Unpaired singular value (can happen at the numerical noise
			// floor); still record it once, paired with itself.
			partner = i
		}
		used[i], used[partner] = true, true
		pairs = append(pairs, pair{sigma: sigmasReal[i], col: i})
	}

	// Sort pairs descending by singular value (they should already be,
	// since gonum sorts sigmasReal descending and we scan in order, but a
	// stable re-sort keeps this robust to tie-break reordering).
	for i := 1; i < len(pairs); i++ {
		for j := i; j > 0 && pairs[j].sigma > pairs[j-1].sigma; j-- {
			pairs[j], pairs[j-1] = pairs[j-1], pairs[j]
		}
	}

	if len(pairs) > maxdim {
		pairs = pairs[:maxdim]
	}
	if len(pairs) > 0 {
		top := pairs[0].sigma
		kept := pairs[:0]
		for _, p := range pairs {
			if top == 0 || p.sigma/top >= cutoff {
				kept = append(kept, p)
			}
		}
		pairs = kept
	}
	if len(pairs) == 0 && len(sigmasReal) > 0 {
		// Always keep at least the dominant singular value so the MPS
		// never collapses to a zero tensor.
		pairs = append(pairs, pair{sigma: sigmasReal[0], col: 0})
	}

	r := len(pairs)
	U := NewMatrix(n, r)
	S := make([]float64, r)
	V := NewMatrix(c, r)
	for idx, p := range pairs {
		uCol := foldComplex(&uR, 0, n, p.col)
		vCol := foldComplex(&vR, 0, c, p.col)
		for i := 0; i < n; i++ {
			U.Set(i, idx, uCol[i])
		}
		for i := 0; i < c; i++ {
			V.Set(i, idx, vCol[i])
		}
		S[idx] = p.sigma
	}

	return &SVDResult{U: U, S: S, V: V}, nil
}

// RandomUnitary draws a Haar-random n x n unitary matrix from rng, via QR
// decomposition of an n x n complex Ginibre matrix (entries i.i.d.
// standard complex normal), with the diagonal of R rotated onto the
// positive reals so the resulting Q is uniformly Haar distributed
// (Mezzadri's construction). The QR step reuses the same real-embedding
// technique as SVD above.
func RandomUnitary(n int, rng *rand.Rand) (*Matrix, error) {
	g := NewMatrix(n, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			re := rng.NormFloat64()
			im := rng.NormFloat64()
			g.Set(i, j, complex(re, im))
		}
	}

	embedded := embedReal(g)
	var qr mat.QR
	qr.Factorize(embedded)

	var qR, rR mat.Dense
	qr.QTo(&qR)
	qr.RTo(&rR)

	q := NewMatrix(n, n)
	for j := 0; j < n; j++ {
		col := foldComplex(&qR, 0, n, j)
		for i := 0; i < n; i++ {
			q.Set(i, j, col[i])
		}
	}

	// R's embedded diagonal entries live at (j, j) and (n+j, n+j) of rR;
	// the complex diagonal entry is rR.At(j,j) + i*rR.At(n+j,j) following
	// the same fold-complex convention used for columns above, but R is
	// upper triangular in the embedding's top-left/top-right blocks.
	for j := 0; j < n; j++ {
		re := rR.At(j, j)
		im := rR.At(j, n+j)
		d := complex(re, im)
		if cmplxAbs(d) < 1e-15 {
			continue
		}
		phase := d / complex(cmplxAbs(d), 0)
		for i := 0; i < n; i++ {
			q.Set(i, j, q.At(i, j)*phase)
		}
	}

	return q, nil
}

func cmplxAbs(z complex128) float64 {
	return math.Hypot(real(z), imag(z))
}
