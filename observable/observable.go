// Package observable is the small duck-typed interface a SimulationState's
// tracked quantities implement, plus a couple of worked specs (domain wall,
// entanglement entropy). Concrete physical observable formulas beyond these
// two are an external collaborator per spec.md §1; this package only fixes
// the contract and two illustrative implementations.
package observable

import (
	"math"

	"github.com/sarchlab/mpssim/basis"
	"github.com/sarchlab/mpssim/simerr"
	"github.com/sarchlab/mpssim/tensor"
)

// StateView is the read-only slice of SimulationState an Observable needs.
// simstate.SimulationState implements it; this package never imports
// simstate, to keep the dependency one-directional.
type StateView interface {
	MPS() *tensor.MPS
	Bmap() *basis.Mapping
	LocalDim() int
}

// Observable is a named, scalar-valued quantity a SimulationState tracks.
// Implementations must not mutate the MPS they are handed; any gauging or
// other in-place bookkeeping must run against a cloned copy.
type Observable interface {
	Name() string
	// Eval computes one scalar. i1 is non-nil only for specs that accept
	// an extra site index, supplied either at registration time (fixed)
	// or at record time (override); implementations that ignore i1 may
	// receive nil safely.
	Eval(state StateView, i1 *int) (float64, error)
}

// domainWall reports the probability that physical site i1 and the site
// that follows it along the MPS chain (the next RAM position) hold
// different local basis states ("domain wall" indicator), with i1 fixed at
// registration or overridden per Eval call. That chain neighbor is
// physical site i1+1 under open boundary conditions only; under the
// periodic mappings it is whichever site the basis mapping places next.
type domainWall struct {
	name string
	i1   *int
}

// NewDomainWall registers the ":dw" family observable. defaultI1 is used
// whenever Eval is called with a nil override.
func NewDomainWall(name string, defaultI1 int) Observable {
	i1 := defaultI1
	return &domainWall{name: name, i1: &i1}
}

func (o *domainWall) Name() string { return o.name }

func (o *domainWall) Eval(state StateView, i1 *int) (float64, error) {
	site := o.i1
	if i1 != nil {
		site = i1
	}
	if site == nil {
		return 0, simerr.New(simerr.InvalidArgument, "domain wall observable %q requires an i1 index", o.name)
	}

	bmap := state.Bmap()
	ramI, err := bmap.Phy2RAM(*site)
	if err != nil {
		return 0, err
	}
	if ramI >= bmap.L {
		return 0, simerr.New(simerr.InvalidArgument, "domain wall observable %q has no right neighbor at physical site %d", o.name, *site)
	}

	clone := state.MPS().Clone()
	return domainWallProbability(clone, ramI-1)
}

// domainWallProbability computes P(basis state at ramI != basis state at
// ramI+1) by gauging to ramI and summing the joint two-site probability
// mass over mismatched outcome pairs, the same contraction pattern the
// gate catalog's Born-rule sector probabilities use.
func domainWallProbability(m *tensor.MPS, ramI int) (float64, error) {
	if err := m.Gauge(ramI); err != nil {
		return 0, err
	}
	A := m.Sites[ramI]
	B := m.Sites[ramI+1]
	d1, d2 := A.Phys, B.Phys

	var diff float64
	for l := 0; l < A.Left; l++ {
		for r := 0; r < B.Right; r++ {
			for p1 := 0; p1 < d1; p1++ {
				for p2 := 0; p2 < d2; p2++ {
					var v complex128
					for mid := 0; mid < A.Right; mid++ {
						v += A.Data[l][p1][mid] * B.Data[mid][p2][r]
					}
					if p1 != p2 {
						diff += real(v)*real(v) + imag(v)*imag(v)
					}
				}
			}
		}
	}
	return diff, nil
}

// entanglementEntropy reports the von Neumann entanglement entropy (base 2)
// across the bond immediately left of physical site Cut.
type entanglementEntropy struct {
	name string
	cut  int
}

// NewEntanglementEntropy registers the ":S2"-family observable for the
// bipartition cut immediately left of physical site cut (1-based).
func NewEntanglementEntropy(name string, cut int) Observable {
	return &entanglementEntropy{name: name, cut: cut}
}

func (o *entanglementEntropy) Name() string { return o.name }

func (o *entanglementEntropy) Eval(state StateView, _ *int) (float64, error) {
	bmap := state.Bmap()
	ramI, err := bmap.Phy2RAM(o.cut)
	if err != nil {
		return 0, err
	}

	clone := state.MPS().Clone()
	return entanglementAt(clone, ramI-1)
}

func entanglementAt(m *tensor.MPS, ramIdx int) (float64, error) {
	if err := m.Gauge(ramIdx); err != nil {
		return 0, err
	}
	s := m.Sites[ramIdx]

	a := tensor.NewMatrix(s.Left, s.Phys*s.Right)
	for l := 0; l < s.Left; l++ {
		for p := 0; p < s.Phys; p++ {
			for r := 0; r < s.Right; r++ {
				a.Set(l, p*s.Right+r, s.Data[l][p][r])
			}
		}
	}

	res, err := tensor.SVD(a, 0, s.Left)
	if err != nil {
		return 0, err
	}

	var entropy float64
	for _, sv := range res.S {
		p := sv * sv
		if p <= 1e-15 {
			continue
		}
		entropy -= p * math.Log2(p)
	}
	return entropy, nil
}
