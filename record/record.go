// Package record is the Recording Controller: presets and user-supplied
// predicates that decide, for a given point in a circuit's execution,
// whether the Executor should mark a repetition for end-of-step recording
// or record immediately. This mirrors the teacher's small-closed-enum
// style (cgra.Side, program.ISA) but over recording policy instead of
// mesh topology.
package record

import "github.com/sarchlab/mpssim/simerr"

// Context is the RecordingContext spec.md §4 passes to a predicate.
// StepIdx is the 1-based circuit repetition index; GateIdx is the
// cumulative count of gate executions across every repetition and inner
// step of the whole simulate! call; IsStepBoundary is true exactly on the
// last gate of the last operation of the last inner step of a repetition
// (so it fires once per repetition, not once per inner step). InnerStep
// and NSteps carry the 1..n_steps loop position for predicates that care
// about it; they play no role in any built-in preset.
type Context struct {
	StepIdx        int
	GateIdx        int
	GateType       string
	IsStepBoundary bool
	InnerStep      int
	NSteps         int
	NCircuits      int
}

// Predicate evaluates a Context and reports (setFlag, recordNow).
// setFlag defers recording to the repetition's end; recordNow fires the
// observable record call immediately. No built-in predicate reports both:
// :every_gate is the only one that reports recordNow, and it never sets
// setFlag.
type Predicate func(ctx Context) (setFlag, recordNow bool)

// EveryStep fires once per repetition, at the step boundary.
func EveryStep() Predicate {
	return func(ctx Context) (bool, bool) {
		return ctx.IsStepBoundary, false
	}
}

// EveryGate fires after every gate application, recording immediately
// rather than deferring to the repetition's end, since a compound-geometry
// loop may apply many gates before any step boundary is reached.
func EveryGate() Predicate {
	return func(ctx Context) (bool, bool) {
		return false, true
	}
}

// FinalOnly fires at the step boundary of the circuit's final repetition
// only.
func FinalOnly() Predicate {
	return func(ctx Context) (bool, bool) {
		return ctx.IsStepBoundary && ctx.StepIdx == ctx.NCircuits, false
	}
}

// EveryNGates sets the deferred flag when gate_idx is a positive multiple
// of n, recording at the repetition's end like every preset but
// :every_gate.
func EveryNGates(n int) (Predicate, error) {
	if n < 1 {
		return nil, simerr.New(simerr.InvalidArgument, "every_n_gates requires n >= 1, got %d", n)
	}
	return func(ctx Context) (bool, bool) {
		return ctx.GateIdx > 0 && ctx.GateIdx%n == 0, false
	}, nil
}

// EveryNSteps fires at the step boundary when step_idx is a positive
// multiple of n.
func EveryNSteps(n int) (Predicate, error) {
	if n < 1 {
		return nil, simerr.New(simerr.InvalidArgument, "every_n_steps requires n >= 1, got %d", n)
	}
	return func(ctx Context) (bool, bool) {
		return ctx.IsStepBoundary && ctx.StepIdx%n == 0, false
	}, nil
}

// User wraps a caller-supplied function of Context into a Predicate that
// sets the deferred flag whenever the function reports true.
func User(f func(ctx Context) bool) Predicate {
	return func(ctx Context) (bool, bool) {
		return f(ctx), false
	}
}

// Preset names one of the parameterless built-in recording policies, for
// callers that select a policy by name rather than by calling its
// constructor directly.
type Preset string

const (
	EveryStepPreset Preset = "every_step"
	EveryGatePreset Preset = "every_gate"
	FinalOnlyPreset Preset = "final_only"
)

// Resolve looks up a named preset, returning InvalidArgument for anything
// else (every_n_gates/every_n_steps take an argument and are built via
// EveryNGates/EveryNSteps directly; a user predicate is built via User).
func Resolve(name string) (Predicate, error) {
	switch Preset(name) {
	case EveryStepPreset:
		return EveryStep(), nil
	case EveryGatePreset:
		return EveryGate(), nil
	case FinalOnlyPreset:
		return FinalOnly(), nil
	default:
		return nil, simerr.New(simerr.InvalidArgument, "unknown record_when preset %q", name)
	}
}
