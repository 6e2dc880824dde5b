// Package circuit is the symbolic circuit representation: an immutable,
// side-effect-free record of deterministic and stochastic operations
// produced by a do-block style Builder, plus the branch-selection
// subroutine the Expander and Executor both share so the RNG-alignment
// contract (spec.md §4.5, §9) is never inlined twice.
package circuit

import (
	"github.com/sarchlab/mpssim/basis"
	"github.com/sarchlab/mpssim/gate"
	"github.com/sarchlab/mpssim/geometry"
	"github.com/sarchlab/mpssim/rng"
	"github.com/sarchlab/mpssim/simerr"
)

// epsilon is the probability-sum slack allowed by the Builder's validation.
const epsilon = 1e-9

// acceptedRNGStreams is the set of stream names a Stochastic operation may
// name in this version; only "ctrl" is supported.
var acceptedRNGStreams = map[string]bool{rng.Ctrl: true}

// OpKind tags which of Operation's two variants is populated.
type OpKind int

const (
	Deterministic OpKind = iota
	Stochastic
)

// Outcome is one branch of a Stochastic operation: with probability
// Probability, apply Gate over Geometry.
type Outcome struct {
	Probability float64
	Gate        gate.Gate
	Geometry    geometry.Geometry
}

// Operation is the tagged sum type from spec.md §3: Deterministic carries
// a gate and geometry to apply unconditionally; Stochastic carries a named
// RNG stream and an ordered list of outcomes, selected by SelectBranch.
type Operation struct {
	Kind OpKind

	// Deterministic fields.
	Gate     gate.Gate
	Geometry geometry.Geometry

	// Stochastic fields.
	RNGStream string
	Outcomes  []Outcome
}

// Circuit is an immutable value: L, boundary condition, step count, the
// ordered operation list, and an opaque read-only parameter map carried
// for the caller's own use (the engine never interprets it).
type Circuit struct {
	L      int
	BC     basis.BC
	NSteps int

	Operations []Operation
	Params     map[string]any
}

// SelectBranch is the single Selection Rule subroutine (spec.md §4.5):
// draw r, iterate outcomes accumulating cumulative probability, and return
// the first outcome with r < cumulative (strict). If no outcome's
// cumulative threshold exceeds r, the implicit "do nothing" branch fires
// and ok is false. The Expander and Executor both call this function
// rather than reimplementing the rule.
func SelectBranch(r float64, outcomes []Outcome) (Outcome, bool) {
	cumulative := 0.0
	for _, o := range outcomes {
		cumulative += o.Probability
		if r < cumulative {
			return o, true
		}
	}
	return Outcome{}, false
}

// Builder records operations for a Circuit under construction. It uses a
// sticky-error discipline: once a validation fails, the Builder remembers
// the error and every subsequent method is a no-op, so Build reports the
// first problem encountered rather than a later, possibly confusing one.
type Builder struct {
	l      int
	bc     basis.BC
	nSteps int
	params map[string]any
	ops    []Operation
	err    error
}

// NewBuilder starts a Builder for an L-site circuit under bc, defaulting
// to a single step and no parameters.
func NewBuilder(l int, bc basis.BC) *Builder {
	return &Builder{l: l, bc: bc, nSteps: 1, params: map[string]any{}}
}

// WithSteps sets the number of steps the Circuit will run per repetition.
func (b *Builder) WithSteps(n int) *Builder {
	if b.err != nil {
		return b
	}
	if n < 1 {
		b.err = simerr.New(simerr.InvalidArgument, "n_steps must be >= 1, got %d", n)
		return b
	}
	b.nSteps = n
	return b
}

// WithParam records one opaque key/value pair in the Circuit's parameter
// map; the engine never reads it back.
func (b *Builder) WithParam(key string, value any) *Builder {
	if b.err != nil {
		return b
	}
	b.params[key] = value
	return b
}

// Apply records a Deterministic operation.
func (b *Builder) Apply(g gate.Gate, geo geometry.Geometry) *Builder {
	if b.err != nil {
		return b
	}
	b.ops = append(b.ops, Operation{Kind: Deterministic, Gate: g, Geometry: geo})
	return b
}

// ApplyWithProb records a Stochastic operation. rngStream must be one of
// the accepted stream names ("ctrl" in this version); outcomes must be
// non-empty with non-negative probabilities summing to at most 1+epsilon.
func (b *Builder) ApplyWithProb(rngStream string, outcomes []Outcome) *Builder {
	if b.err != nil {
		return b
	}
	if !acceptedRNGStreams[rngStream] {
		b.err = simerr.New(simerr.InvalidArgument, "stochastic operation names unsupported rng stream %q", rngStream)
		return b
	}
	if len(outcomes) == 0 {
		b.err = simerr.New(simerr.InvalidArgument, "stochastic operation has an empty outcomes list")
		return b
	}
	var sum float64
	for i, o := range outcomes {
		if o.Probability < 0 {
			b.err = simerr.New(simerr.InvalidArgument, "outcome %d has negative probability %v", i, o.Probability)
			return b
		}
		sum += o.Probability
	}
	if sum > 1+epsilon {
		b.err = simerr.New(simerr.InvalidArgument, "outcome probabilities sum to %v, exceeding 1+%v", sum, epsilon)
		return b
	}
	b.ops = append(b.ops, Operation{Kind: Stochastic, RNGStream: rngStream, Outcomes: outcomes})
	return b
}

// Build finalizes the Circuit, surfacing the first validation error raised
// by any Apply/ApplyWithProb/WithSteps call, if any.
func (b *Builder) Build() (*Circuit, error) {
	if b.err != nil {
		return nil, b.err
	}
	ops := make([]Operation, len(b.ops))
	copy(ops, b.ops)
	params := make(map[string]any, len(b.params))
	for k, v := range b.params {
		params[k] = v
	}
	return &Circuit{L: b.l, BC: b.bc, NSteps: b.nSteps, Operations: ops, Params: params}, nil
}
