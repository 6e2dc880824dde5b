// Package geometry maps abstract patterns (staircases, bricklayers,
// all-sites, ...) to physical sites under a boundary condition. It plays
// the role the teacher's cgra package plays for tile topology: geometries
// here are the "wiring diagram" that tells the Apply Engine which
// physical sites an operation touches, the way cgra.Side/Tile told the
// CGRA mesh which neighbor a port faced.
package geometry

import (
	"fmt"

	"github.com/sarchlab/mpssim/basis"
	"github.com/sarchlab/mpssim/simerr"
)

// Parity names a Bricklayer sub-pattern.
type Parity int

const (
	Odd Parity = iota
	Even
	NN
	NNNOdd1
	NNNOdd2
	NNNEven1
	NNNEven2
	NNN
)

// Direction is used by Pointer.Move; it mirrors the teacher's cgra.Side
// enum (a small open set of named directions) but only ever takes two
// values in this engine.
type Direction int

const (
	Left Direction = iota
	Right
)

// Geometry is the common interface every pattern implements.
type Geometry interface {
	// Kind reports whether this geometry yields a single site tuple
	// (Simple) or a list of them (Compound).
	Kind() Kind
	// SitesFor computes the current site tuple(s) against an
	// (L, bc)-only view; Simple geometries use state only for their own
	// stored position, never for unrelated details. Compound geometries
	// return one tuple per element.
	SitesFor(L int, bc basis.BC) ([][]int, error)
}

// Kind distinguishes simple (single target tuple) geometries, whose
// tuple the Apply Engine applies the gate to directly, from compound
// geometries (Bricklayer, AllSites), which the engine and the Expander
// must loop over element by element.
type Kind int

const (
	Simple Kind = iota
	Compound
)

// Advancer is implemented by geometries with a mutable pointer that the
// Apply Engine advances automatically after a successful apply
// (StaircaseLeft, StaircaseRight). Pointer implements Mover instead: its
// position only changes via an explicit, external Move call.
type Advancer interface {
	Advance(L int, bc basis.BC) error
}

// Mover is implemented by geometries whose position changes only via an
// explicit external call (Pointer).
type Mover interface {
	Move(dir Direction, L int, bc basis.BC) error
}

func wrap(pos, L int) int {
	p := pos % L
	if p <= 0 {
		p += L
	}
	return p
}

// ---- SingleSite ----

type SingleSite struct{ Site int }

func (g SingleSite) Kind() Kind { return Simple }

func (g SingleSite) SitesFor(L int, bc basis.BC) ([][]int, error) {
	if g.Site < 1 || g.Site > L {
		return nil, simerr.New(simerr.InvalidArgument, "SingleSite %d out of range [1,%d]", g.Site, L)
	}
	return [][]int{{g.Site}}, nil
}

// ---- AdjacentPair ----

type AdjacentPair struct{ I int }

func (g AdjacentPair) Kind() Kind { return Simple }

func (g AdjacentPair) SitesFor(L int, bc basis.BC) ([][]int, error) {
	if g.I < 1 || g.I > L {
		return nil, simerr.New(simerr.InvalidArgument, "AdjacentPair %d out of range [1,%d]", g.I, L)
	}
	if g.I == L {
		if bc == basis.Open {
			return nil, simerr.New(simerr.InvalidArgument, "AdjacentPair(%d) has no right neighbor under open boundary conditions", g.I)
		}
		return [][]int{{L, 1}}, nil
	}
	return [][]int{{g.I, g.I + 1}}, nil
}

// ---- NextNearestNeighbor ----

type NextNearestNeighbor struct{ I int }

func (g NextNearestNeighbor) Kind() Kind { return Simple }

func (g NextNearestNeighbor) SitesFor(L int, bc basis.BC) ([][]int, error) {
	if g.I < 1 || g.I > L {
		return nil, simerr.New(simerr.InvalidArgument, "NextNearestNeighbor %d out of range [1,%d]", g.I, L)
	}
	if g.I > L-2 {
		if bc == basis.Open {
			return nil, simerr.New(simerr.InvalidArgument, "NextNearestNeighbor(%d) has no next-nearest neighbor under open boundary conditions", g.I)
		}
		if g.I == L-1 {
			return [][]int{{L - 1, 1}}, nil
		}
		return [][]int{{L, 2}}, nil
	}
	return [][]int{{g.I, g.I + 2}}, nil
}

// ---- StaircaseRight / StaircaseLeft ----

type StaircaseRight struct {
	Pos    int
	Stride int
}

func NewStaircaseRight(start int) *StaircaseRight { return &StaircaseRight{Pos: start, Stride: 1} }

func (g *StaircaseRight) Kind() Kind { return Simple }

func (g *StaircaseRight) SitesFor(L int, bc basis.BC) ([][]int, error) {
	return staircaseSites(g.Pos, g.Stride, L, bc)
}

func (g *StaircaseRight) Advance(L int, bc basis.BC) error {
	next, err := staircaseAdvance(g.Pos, g.Stride, L, bc)
	if err != nil {
		return err
	}
	g.Pos = next
	return nil
}

type StaircaseLeft struct {
	Pos    int
	Stride int
}

func NewStaircaseLeft(start int) *StaircaseLeft { return &StaircaseLeft{Pos: start, Stride: 1} }

func (g *StaircaseLeft) Kind() Kind { return Simple }

func (g *StaircaseLeft) SitesFor(L int, bc basis.BC) ([][]int, error) {
	return staircaseSites(g.Pos, -g.Stride, L, bc)
}

func (g *StaircaseLeft) Advance(L int, bc basis.BC) error {
	next, err := staircaseAdvance(g.Pos, -g.Stride, L, bc)
	if err != nil {
		return err
	}
	g.Pos = next
	return nil
}

// staircaseSites computes [p, p+stride] (stride may be negative for
// StaircaseLeft), wrapping under periodic BC and erroring out-of-bounds
// under open BC. NOTE: the original source's staircase-advance logic
// lived in a method that referenced the owning state's boundary condition
// even though it was not passed one; per spec.md's open-question (i), the
// intended behavior (and the one implemented here) is to use the bc
// argument the caller passes, never any ambient/global value.
func staircaseSites(pos, stride, L int, bc basis.BC) ([][]int, error) {
	other := pos + stride
	if bc == basis.Open {
		if other < 1 || other > L {
			return nil, simerr.New(simerr.InvalidArgument, "staircase position %d+%d out of range [1,%d] under open boundary conditions", pos, stride, L)
		}
		return [][]int{{pos, other}}, nil
	}
	return [][]int{{pos, wrap(other, L)}}, nil
}

// staircaseAdvance computes the next pointer position after a successful
// apply. Open BC cycles the pointer over 1..L-1 (so the staircase never
// points at the last site, which has no further neighbor in that
// direction); periodic BC cycles over the full 1..L.
func staircaseAdvance(pos, stride, L int, bc basis.BC) (int, error) {
	if bc == basis.Open {
		span := L - 1
		if span < 1 {
			return 0, simerr.New(simerr.InvalidArgument, "L=%d too small for a staircase under open boundary conditions", L)
		}
		next := ((pos - 1 + sign(stride) + span) % span)
		return next + 1, nil
	}
	return wrap(pos+sign(stride), L), nil
}

func sign(stride int) int {
	if stride < 0 {
		return -1
	}
	return 1
}

// ---- Pointer ----

type Pointer struct{ Pos int }

func NewPointer(start int) *Pointer { return &Pointer{Pos: start} }

func (g *Pointer) Kind() Kind { return Simple }

func (g *Pointer) SitesFor(L int, bc basis.BC) ([][]int, error) {
	return staircaseSites(g.Pos, 1, L, bc)
}

func (g *Pointer) Move(dir Direction, L int, bc basis.BC) error {
	stride := 1
	if dir == Left {
		stride = -1
	}
	next, err := staircaseAdvance(g.Pos, stride, L, bc)
	if err != nil {
		return err
	}
	g.Pos = next
	return nil
}

// ---- Bricklayer ----

type Bricklayer struct{ Parity Parity }

func (g Bricklayer) Kind() Kind { return Compound }

func (g Bricklayer) SitesFor(L int, bc basis.BC) ([][]int, error) {
	switch g.Parity {
	case Odd:
		return pairsFromStart(1, L, bc, false), nil
	case Even:
		return pairsFromStart(2, L, bc, true), nil
	case NN:
		out := pairsFromStart(1, L, bc, false)
		out = append(out, pairsFromStart(2, L, bc, true)...)
		return out, nil
	case NNNOdd1:
		return nnnPairs(1, L, bc), nil
	case NNNOdd2:
		return nnnPairs(2, L, bc), nil
	case NNNEven1:
		return nnnPairs(3, L, bc), nil
	case NNNEven2:
		return nnnPairs(4, L, bc), nil
	case NNN:
		var out [][]int
		out = append(out, nnnPairs(1, L, bc)...)
		out = append(out, nnnPairs(2, L, bc)...)
		out = append(out, nnnPairs(3, L, bc)...)
		out = append(out, nnnPairs(4, L, bc)...)
		return out, nil
	default:
		return nil, simerr.New(simerr.InvalidArgument, "unknown bricklayer parity %d", g.Parity)
	}
}

// pairsFromStart enumerates adjacent pairs (i, i+1) for i = start, start+2,
// ... <= L-1, and, for the even parity under periodic BC, appends the
// wrap pair (L, 1).
func pairsFromStart(start, L int, bc basis.BC, wrapPair bool) [][]int {
	var out [][]int
	for i := start; i <= L-1; i += 2 {
		out = append(out, []int{i, i + 1})
	}
	if wrapPair && bc != basis.Open && L%2 == 0 {
		out = append(out, []int{L, 1})
	}
	return out
}

// nnnPairs enumerates next-nearest-neighbor pairs for one of the four NNN
// sub-parities, identified by offset class 1..4, each starting at a
// different phase and wrapping per its own offset rule under periodic BC.
func nnnPairs(class, L int, bc basis.BC) [][]int {
	var out [][]int
	start := class
	for i := start; i <= L-2; i += 4 {
		out = append(out, []int{i, i + 2})
	}
	if bc != basis.Open {
		// wrap pairs for this class, matching AdjacentPair/NNN's own
		// wrap rules: (L-1,1) and (L,2), gated to whichever class would
		// have produced the next element in this residue class.
		switch class {
		case 1, 3:
			if (L-1)%4 == start%4 {
				out = append(out, []int{L - 1, 1})
			}
		case 2, 4:
			if L%4 == start%4 {
				out = append(out, []int{L, 2})
			}
		}
	}
	return out
}

// ---- AllSites ----

type AllSites struct{}

func (g AllSites) Kind() Kind { return Compound }

func (g AllSites) SitesFor(L int, bc basis.BC) ([][]int, error) {
	out := make([][]int, L)
	for i := 0; i < L; i++ {
		out[i] = []int{i + 1}
	}
	return out, nil
}

// ComputeSites is the pure, side-effect-free site computer the Expander
// uses so that symbolic expansion never mutates a Circuit's geometry
// pointers. For staircases and Pointer, step is the number of advances
// since the geometry's recorded starting position (not the mutable
// position itself); compute_sites+offset reproduces exactly the tuple the
// live pointer would be at after that many Advance/Move calls.
func ComputeSites(g Geometry, step, L int, bc basis.BC) ([][]int, error) {
	switch t := g.(type) {
	case *StaircaseRight:
		pos, err := offsetPosition(t.Pos, t.Stride, step, L, bc)
		if err != nil {
			return nil, err
		}
		return staircaseSites(pos, t.Stride, L, bc)
	case *StaircaseLeft:
		pos, err := offsetPosition(t.Pos, -t.Stride, step, L, bc)
		if err != nil {
			return nil, err
		}
		return staircaseSites(pos, -t.Stride, L, bc)
	case *Pointer:
		// Pointer never auto-advances; step is ignored.
		return staircaseSites(t.Pos, 1, L, bc)
	default:
		return g.SitesFor(L, bc)
	}
}

// offsetPosition applies `step` Advance-equivalent steps to pos.
func offsetPosition(pos, stride, step, L int, bc basis.BC) (int, error) {
	cur := pos
	for i := 0; i < step; i++ {
		next, err := staircaseAdvance(cur, stride, L, bc)
		if err != nil {
			return 0, err
		}
		cur = next
	}
	return cur, nil
}

// String gives a human-friendly name for logging and ExpandedOp labels.
func (p Parity) String() string {
	switch p {
	case Odd:
		return "odd"
	case Even:
		return "even"
	case NN:
		return "nn"
	case NNNOdd1:
		return "nnn_odd_1"
	case NNNOdd2:
		return "nnn_odd_2"
	case NNNEven1:
		return "nnn_even_1"
	case NNNEven2:
		return "nnn_even_2"
	case NNN:
		return "nnn"
	default:
		return fmt.Sprintf("parity(%d)", int(p))
	}
}
