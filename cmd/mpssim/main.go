// Command mpssim is a small example driver demonstrating the public API
// surface: build a circuit, build a state, run it, print a tracked
// series. It plays the role the teacher's samples/passthrough/main.go
// plays for the CGRA driver, but wires a Circuit/SimulationState pair
// instead of an api.Driver/config.Device pair.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/tebeka/atexit"

	"github.com/sarchlab/mpssim/basis"
	"github.com/sarchlab/mpssim/circuit"
	"github.com/sarchlab/mpssim/executor"
	"github.com/sarchlab/mpssim/gate"
	"github.com/sarchlab/mpssim/geometry"
	"github.com/sarchlab/mpssim/observable"
	"github.com/sarchlab/mpssim/record"
	"github.com/sarchlab/mpssim/simstate"
)

func runDemo() {
	c, err := circuit.NewBuilder(6, basis.Open).
		WithSteps(4).
		Apply(gate.NewCZ(), geometry.Bricklayer{Parity: geometry.Odd}).
		Apply(gate.NewCZ(), geometry.Bricklayer{Parity: geometry.Even}).
		ApplyWithProb("ctrl", []circuit.Outcome{
			{Probability: 0.1, Gate: gate.NewMeasurement(gate.ComputationalBasis), Geometry: geometry.SingleSite{Site: 3}},
		}).
		Build()
	if err != nil {
		slog.Error("mpssim: failed to build circuit", "err", err)
		atexit.Exit(1)
	}

	state, err := simstate.NewBuilder(6, basis.Open).WithSeed(1).Build()
	if err != nil {
		slog.Error("mpssim: failed to build state", "err", err)
		atexit.Exit(1)
	}

	bits := "000000"
	if err := state.Initialize(simstate.InitSpec{ProductState: &simstate.ProductStateSpec{Bitstring: &bits}}); err != nil {
		slog.Error("mpssim: failed to initialize state", "err", err)
		atexit.Exit(1)
	}
	if err := state.Track("dw", observable.NewDomainWall("dw", 1)); err != nil {
		slog.Error("mpssim: failed to track observable", "err", err)
		atexit.Exit(1)
	}

	if err := executor.Simulate(c, state, 5, record.EveryStep()); err != nil {
		slog.Error("mpssim: simulate failed", "err", err)
		atexit.Exit(1)
	}

	series, err := state.Series("dw")
	if err != nil {
		slog.Error("mpssim: failed to read series", "err", err)
		atexit.Exit(1)
	}
	fmt.Println(series)
}

func main() {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	slog.SetDefault(slog.New(handler))

	runDemo()
	atexit.Exit(0)
}
