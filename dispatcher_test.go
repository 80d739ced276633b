package qmps

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNewState(t *testing.T) {
	Convey("Given an invalid configuration", t, func() {
		config := testConfig()
		config.Threads = 0

		Convey("NewState should refuse it", func() {
			s, err := NewState(config)
			So(s, ShouldBeNil)
			So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
		})
	})

	Convey("Given a nil configuration", t, func() {
		s, err := NewState(nil)

		Convey("It should fall back to the defaults", func() {
			So(err, ShouldBeNil)
			So(s.Config().ChopThreshold, ShouldEqual, 1e-8)
			So(s.Config().ParallelThreshold, ShouldEqual, 14)
		})
	})
}

func TestApplyOpsGates(t *testing.T) {
	Convey("Given a two qubit register", t, func() {
		s := newTestState(2, nil)

		Convey("A Bell circuit should entangle the qubits", func() {
			_, err := runOps(s, gateOp("h", 0), gateOp("cx", 0, 1))
			So(err, ShouldBeNil)

			want := []complex128{complex(1/math.Sqrt2, 0), 0, 0, complex(1/math.Sqrt2, 0)}
			So(sameUpToPhase(s.Register().FullStateVector(), want, 1e-10), ShouldBeTrue)
			So(s.Register().MaxBondDimension(), ShouldEqual, 2)
		})

		Convey("Aliased gate names should act the same", func() {
			other := newTestState(2, nil)

			_, err := runOps(s, Op{Type: OpGate, Name: "u3", Qubits: []int{1}, Params: []complex128{0.3, 0.2, 0.1}})
			So(err, ShouldBeNil)
			_, err = runOps(other, Op{Type: OpGate, Name: "U", Qubits: []int{1}, Params: []complex128{0.3, 0.2, 0.1}})
			So(err, ShouldBeNil)

			So(other.Register().FullStateVector(), ShouldResemble, s.Register().FullStateVector())
		})

		Convey("An unknown gate should fail without touching the register", func() {
			_, err := runOps(s, gateOp("h", 0))
			So(err, ShouldBeNil)
			before := s.Register().FullStateVector()

			_, err = runOps(s, gateOp("H", 1))
			So(errors.Is(err, ErrUnsupportedOperation), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, `"H"`)
			So(s.Register().FullStateVector(), ShouldResemble, before)
		})

		Convey("A gate with the wrong arity should be malformed", func() {
			_, err := runOps(s, gateOp("cx", 0))
			So(errors.Is(err, ErrMalformedOperation), ShouldBeTrue)

			_, err = runOps(s, gateOp("u1", 0))
			So(errors.Is(err, ErrMalformedOperation), ShouldBeTrue)
		})

		Convey("A gate on an out of range or repeated qubit should be malformed", func() {
			_, err := runOps(s, gateOp("x", 2))
			So(errors.Is(err, ErrMalformedOperation), ShouldBeTrue)

			_, err = runOps(s, gateOp("cz", 1, 1))
			So(errors.Is(err, ErrMalformedOperation), ShouldBeTrue)
		})

		Convey("An unknown operation kind should be fatal", func() {
			_, err := runOps(s, Op{Type: OpType(99), Name: "teleport"})
			So(errors.Is(err, ErrUnsupportedOperation), ShouldBeTrue)
		})

		Convey("A barrier should do nothing", func() {
			before := s.Register().FullStateVector()
			_, err := runOps(s, Op{Type: OpBarrier, Qubits: []int{0, 1}})
			So(err, ShouldBeNil)
			So(s.Register().FullStateVector(), ShouldResemble, before)
		})
	})
}

func TestApplyOpsConditional(t *testing.T) {
	Convey("Given an operation conditioned on a cleared register bit", t, func() {
		s := newTestState(1, nil)
		op := gateOp("x", 0)
		op.Conditional = true
		op.ConditionalReg = 0

		Convey("It should be skipped without drawing randomness", func() {
			used, fresh := newRNG(7), newRNG(7)
			err := s.ApplyOps(context.Background(), []Op{
				op,
				{Type: OpReset, Qubits: []int{0}, Conditional: true, ConditionalReg: 0},
			}, NewExperimentResult(), used, false)

			So(err, ShouldBeNil)
			So(used.Float64(), ShouldEqual, fresh.Float64())
			So(s.Register().ProbabilitiesVector([]int{0})[0], ShouldAlmostEqual, 1, 1e-12)
			So(s.Metrics().SkippedOps, ShouldEqual, int64(2))
		})

		Convey("It should run once the bit is set", func() {
			set := Op{Type: OpGate, Name: "x", Qubits: []int{0}}
			measure := Op{Type: OpMeasure, Qubits: []int{0}, Registers: []int{0}}

			_, err := runOps(s, set, measure, op)
			So(err, ShouldBeNil)
			So(s.Register().ProbabilitiesVector([]int{0})[0], ShouldAlmostEqual, 1, 1e-12)
		})

		Convey("A condition on a missing register bit should be malformed", func() {
			op.ConditionalReg = 5
			_, err := runOps(s, op)
			So(errors.Is(err, ErrMalformedOperation), ShouldBeTrue)
		})
	})
}

func TestApplyOpsMeasureAndReset(t *testing.T) {
	Convey("Given a qubit flipped to |1>", t, func() {
		Convey("Reset then measure should always read 0", func() {
			for seed := uint64(0); seed < 20; seed++ {
				s := newTestState(2, nil)
				err := s.ApplyOps(context.Background(), []Op{
					gateOp("x", 0),
					gateOp("h", 1),
					{Type: OpReset, Qubits: []int{0}},
					{Type: OpMeasure, Qubits: []int{0}, Memory: []int{0}},
				}, NewExperimentResult(), newRNG(seed), false)

				So(err, ShouldBeNil)
				So(s.Creg().MemoryHex(), ShouldEqual, "0x0")
			}
		})

		Convey("Measuring it should store 1 in memory and register", func() {
			s := newTestState(2, nil)
			_, err := runOps(s,
				gateOp("x", 0),
				Op{Type: OpMeasure, Qubits: []int{1, 0}, Memory: []int{0, 1}, Registers: []int{1, 0}},
			)

			So(err, ShouldBeNil)
			So(s.Creg().MemoryHex(), ShouldEqual, "0x2")
			So(s.Creg().RegisterHex(), ShouldEqual, "0x1")
		})

		Convey("Measuring into a missing memory bit should fail before collapsing", func() {
			s := newTestState(1, nil)
			_, err := runOps(s, gateOp("h", 0))
			So(err, ShouldBeNil)
			before := s.Register().FullStateVector()

			_, err = runOps(s, Op{Type: OpMeasure, Qubits: []int{0}, Memory: []int{3}})
			So(errors.Is(err, ErrMalformedOperation), ShouldBeTrue)
			So(s.Register().FullStateVector(), ShouldResemble, before)
		})
	})
}

func TestApplyOpsInitialize(t *testing.T) {
	Convey("Given a three qubit register", t, func() {
		s := newTestState(3, nil)
		rng := rand.New(rand.NewPCG(5, 6))

		amps := make([]complex128, 8)
		var norm float64
		for i := range amps {
			amps[i] = complex(rng.NormFloat64(), rng.NormFloat64())
			norm += real(amps[i])*real(amps[i]) + imag(amps[i])*imag(amps[i])
		}
		for i := range amps {
			amps[i] /= complex(math.Sqrt(norm), 0)
		}

		Convey("Initialize followed by a statevector snapshot should round trip", func() {
			result, err := runOps(s,
				gateOp("h", 1),
				Op{Type: OpInitialize, Qubits: []int{0, 1, 2}, Params: amps},
				Op{Type: OpSnapshot, Name: "statevector", Label: "psi"},
			)
			So(err, ShouldBeNil)

			shots := result.Data.PerShot("statevector", "psi")
			So(shots, ShouldHaveLength, 1)
			So(sameUpToPhase(shots[0].([]complex128), amps, 1e-10), ShouldBeTrue)
		})

		Convey("A permuted qubit list should permute the amplitudes", func() {
			basis := make([]complex128, 8)
			basis[1] = 1

			_, err := runOps(s, Op{Type: OpInitialize, Qubits: []int{2, 0, 1}, Params: basis})
			So(err, ShouldBeNil)

			probs := s.Register().ProbabilitiesVector([]int{0, 1, 2})
			So(probs[4], ShouldAlmostEqual, 1, 1e-12)
		})

		Convey("A strict subset should be refused", func() {
			_, err := runOps(s, Op{Type: OpInitialize, Qubits: []int{0, 1}, Params: amps[:4]})
			So(errors.Is(err, ErrUnsupportedPartialInitialize), ShouldBeTrue)
		})

		Convey("A vector of the wrong length should be refused", func() {
			_, err := runOps(s, Op{Type: OpInitialize, Qubits: []int{0, 1, 2}, Params: amps[:4]})
			So(errors.Is(err, ErrDimensionMismatch), ShouldBeTrue)

			So(errors.Is(s.InitializeQregFromVector(3, amps[:5]), ErrDimensionMismatch), ShouldBeTrue)
		})

		Convey("Negative sizes should be refused without touching the state", func() {
			So(errors.Is(s.InitializeQreg(-1), ErrDimensionMismatch), ShouldBeTrue)
			So(errors.Is(s.InitializeQregFromVector(-1, amps), ErrDimensionMismatch), ShouldBeTrue)
			So(errors.Is(s.InitializeQregFromVector(64, nil), ErrDimensionMismatch), ShouldBeTrue)
			So(errors.Is(s.InitializeCreg(-1, 0), ErrDimensionMismatch), ShouldBeTrue)

			So(s.Register().NumQubits(), ShouldEqual, 3)
			So(s.Creg().MemoryBits(), ShouldEqual, 3)
		})
	})
}

func TestApplyOpsMatrixAndKraus(t *testing.T) {
	Convey("Given a two qubit register", t, func() {
		s := newTestState(2, nil)

		Convey("A full matrix should act like the gate it spells", func() {
			x := [][]complex128{{0, 1}, {1, 0}}
			_, err := runOps(s, Op{Type: OpMatrix, Qubits: []int{1}, Mats: [][][]complex128{x}})
			So(err, ShouldBeNil)
			So(s.Register().ProbabilitiesVector([]int{0, 1})[2], ShouldAlmostEqual, 1, 1e-12)
		})

		Convey("A single row of length 2^k should be a diagonal", func() {
			diag := [][]complex128{{1, 1, 1, -1}}
			_, err := runOps(s,
				gateOp("h", 0), gateOp("h", 1),
				Op{Type: OpMatrix, Qubits: []int{0, 1}, Mats: [][][]complex128{diag}},
			)
			So(err, ShouldBeNil)

			want := []complex128{0.5, 0.5, 0.5, -0.5}
			So(sameUpToPhase(s.Register().FullStateVector(), want, 1e-10), ShouldBeTrue)
		})

		Convey("An empty matrix or qubit list should be a no-op", func() {
			before := s.Register().FullStateVector()
			_, err := runOps(s,
				Op{Type: OpMatrix, Qubits: []int{0}},
				Op{Type: OpMatrix, Mats: [][][]complex128{{{0, 1}, {1, 0}}}},
			)
			So(err, ShouldBeNil)
			So(s.Register().FullStateVector(), ShouldResemble, before)
		})

		Convey("A matrix of the wrong size should be malformed", func() {
			_, err := runOps(s, Op{Type: OpMatrix, Qubits: []int{0}, Mats: [][][]complex128{{{1, 0, 0}, {0, 1, 0}}}})
			So(errors.Is(err, ErrMalformedOperation), ShouldBeTrue)
		})

		Convey("A Kraus channel should pick one branch and stay normalised", func() {
			gamma := 1.0
			k0 := [][]complex128{{1, 0}, {0, complex(math.Sqrt(1-gamma), 0)}}
			k1 := [][]complex128{{0, complex(math.Sqrt(gamma), 0)}, {0, 0}}

			_, err := runOps(s, gateOp("x", 0), Op{Type: OpKraus, Qubits: []int{0}, Mats: [][][]complex128{k0, k1}})
			So(err, ShouldBeNil)
			So(s.Register().ProbabilitiesVector([]int{0})[0], ShouldAlmostEqual, 1, 1e-12)
			So(s.Register().Norm(), ShouldAlmostEqual, 1, 1e-12)
		})
	})
}

func TestApplyOpsLifecycle(t *testing.T) {
	Convey("Given a cancelled context", t, func() {
		s := newTestState(1, nil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		Convey("No operation should run", func() {
			err := s.ApplyOps(ctx, []Op{gateOp("x", 0)}, NewExperimentResult(), newRNG(1), false)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
			So(s.Register().ProbabilitiesVector([]int{0})[0], ShouldAlmostEqual, 1, 1e-12)
		})
	})

	Convey("Given a final round", t, func() {
		s := newTestState(1, nil)
		result := NewExperimentResult()

		err := s.ApplyOps(context.Background(), []Op{gateOp("h", 0)}, result, newRNG(1), true)
		So(err, ShouldBeNil)

		Convey("The configuration and metrics should be in the metadata", func() {
			So(result.Metadata["matrix_product_state_truncation_threshold"], ShouldEqual, 0.0)
			So(result.Metadata["matrix_product_state_max_bond_dimension"], ShouldEqual, 0)
			So(result.Metadata["chop_threshold"], ShouldEqual, 1e-8)
			So(result.Metadata["mps_parallel_threshold"], ShouldEqual, 14)
			So(result.Metadata["mps_omp_threads"], ShouldEqual, 1)
			So(result.Metadata["matrix_product_state_sample_measure_algorithm"], ShouldEqual, "mps_heuristic")

			metrics := result.Metadata["matrix_product_state_metrics"].(map[string]interface{})
			So(metrics["op_count"], ShouldEqual, int64(1))
		})
	})

	Convey("Given a reconfigured state", t, func() {
		s := newTestState(2, nil)
		config := testConfig()
		config.MaxBondDimension = 1
		So(s.Configure(config), ShouldBeNil)

		Convey("The new bond cap should apply to the next gates", func() {
			_, err := runOps(s, gateOp("h", 0), gateOp("cx", 0, 1))
			So(err, ShouldBeNil)
			So(s.Register().MaxBondDimension(), ShouldEqual, 1)
			So(s.Register().Norm(), ShouldAlmostEqual, 1, 1e-12)
		})
	})

	Convey("RequiredMemoryMB should grow with the register", t, func() {
		s := newTestState(1, nil)
		So(s.RequiredMemoryMB(10, nil), ShouldEqual, 320)
	})
}
