package qmps

import (
	"context"
	"math"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

func TestHeuristicPolicy(t *testing.T) {
	Convey("Given the default heuristic policy", t, func() {
		p := DefaultHeuristicPolicy()

		Convey("Small and very large registers should use probabilities", func() {
			So(p.Choose(9, 1, 1), ShouldEqual, SampleProbabilities)
			So(p.Choose(27, 1, 1), ShouldEqual, SampleProbabilities)
		})

		Convey("Few shots on a weakly entangled register should clone and measure", func() {
			// 12 * 1.85^10 is roughly 5600.
			So(p.Choose(20, 5000, 2), ShouldEqual, SampleApplyMeasure)
			So(p.Choose(20, 6000, 2), ShouldEqual, SampleProbabilities)
		})

		Convey("Thresholds should shrink as the bond dimension grows", func() {
			shots := 300
			So(p.Choose(20, shots, 2), ShouldEqual, SampleApplyMeasure)
			So(p.Choose(20, shots, 4), ShouldEqual, SampleApplyMeasure)
			So(p.Choose(20, shots, 8), ShouldEqual, SampleApplyMeasure)
			So(p.Choose(20, shots, 16), ShouldEqual, SampleProbabilities)
			So(p.Choose(20, 1, 17), ShouldEqual, SampleProbabilities)
		})

		Convey("Thresholds should grow with the qubit count", func() {
			So(p.Choose(10, 20, 2), ShouldEqual, SampleProbabilities)
			So(p.Choose(14, 20, 2), ShouldEqual, SampleApplyMeasure)
		})
	})
}

type fixedPolicy SampleAlgorithm

func (f fixedPolicy) Choose(int, int, int) SampleAlgorithm { return SampleAlgorithm(f) }

func TestSampleAlgorithmSelection(t *testing.T) {
	Convey("Given a state", t, func() {
		config := testConfig()
		s := newTestState(2, config)

		Convey("The override should win over the policy", func() {
			config.SampleAlgorithm = SampleApplyMeasure
			config.SamplePolicy = fixedPolicy(SampleProbabilities)
			So(s.SampleAlgorithmFor(2, 10), ShouldEqual, SampleApplyMeasure)
		})

		Convey("A custom policy should replace the heuristic", func() {
			config.SamplePolicy = fixedPolicy(SampleApplyMeasure)
			So(s.SampleAlgorithmFor(2, 1_000_000), ShouldEqual, SampleApplyMeasure)
		})

		Convey("Algorithm names should round trip", func() {
			for _, alg := range []SampleAlgorithm{SampleHeuristic, SampleProbabilities, SampleApplyMeasure} {
				parsed, err := ParseSampleAlgorithm(alg.String())
				So(err, ShouldBeNil)
				So(parsed, ShouldEqual, alg)
			}

			_, err := ParseSampleAlgorithm("mps_guess")
			So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
		})
	})
}

func TestSampleMeasure(t *testing.T) {
	Convey("Given two qubits in uniform superposition", t, func() {
		s := newTestState(2, nil)
		_, err := runOps(s, gateOp("h", 0), gateOp("h", 1))
		So(err, ShouldBeNil)

		Convey("100000 shots should be near uniform", func() {
			samples, err := s.SampleMeasure(context.Background(), []int{0, 1}, 100_000, newRNG(3))
			So(err, ShouldBeNil)
			So(samples, ShouldHaveLength, 100_000)

			freq := frequencies(samples)
			for outcome := 0; outcome < 4; outcome++ {
				So(freq[outcome], ShouldAlmostEqual, 0.25, 0.01)
			}
		})

		Convey("Zero shots should return no samples", func() {
			samples, err := s.SampleMeasure(context.Background(), []int{0}, 0, newRNG(3))
			So(err, ShouldBeNil)
			So(samples, ShouldBeEmpty)
		})

		Convey("Sampling an unknown qubit should be malformed", func() {
			_, err := s.SampleMeasure(context.Background(), []int{2}, 10, newRNG(3))
			So(errors.Is(err, ErrMalformedOperation), ShouldBeTrue)
		})
	})

	Convey("Given an entangled three qubit state", t, func() {
		build := func(config *Config) *State {
			s := newTestState(3, config)
			_, err := runOps(s,
				gateOp("h", 0),
				gateOp("cx", 0, 1),
				Op{Type: OpGate, Name: "u3", Qubits: []int{2}, Params: []complex128{1.1, 0, 0}},
			)
			So(err, ShouldBeNil)
			return s
		}

		p1 := math.Pow(math.Sin(0.55), 2)
		want := map[int]float64{
			0b000: 0.5 * (1 - p1),
			0b011: 0.5 * (1 - p1),
			0b100: 0.5 * p1,
			0b111: 0.5 * p1,
		}

		Convey("Both algorithms should match the exact distribution", func() {
			for _, alg := range []SampleAlgorithm{SampleProbabilities, SampleApplyMeasure} {
				config := testConfig()
				config.SampleAlgorithm = alg
				s := build(config)
				before := s.Register().FullStateVector()

				samples, err := s.SampleMeasure(context.Background(), []int{0, 1, 2}, 20_000, newRNG(11))
				So(err, ShouldBeNil)

				freq := frequencies(samples)
				t.Log(alg, spew.Sdump(freq))
				for outcome := 0; outcome < 8; outcome++ {
					So(freq[outcome], ShouldAlmostEqual, want[outcome], 0.015)
				}
				So(s.Register().FullStateVector(), ShouldResemble, before)
			}
		})

		Convey("Clone and measure should not depend on the worker count", func() {
			serial := testConfig()
			serial.SampleAlgorithm = SampleApplyMeasure

			parallel := testConfig()
			parallel.SampleAlgorithm = SampleApplyMeasure
			parallel.Threads = 4
			parallel.ParallelThreshold = 0

			a, err := build(serial).SampleMeasure(context.Background(), []int{2, 0}, 500, newRNG(5))
			So(err, ShouldBeNil)
			b, err := build(parallel).SampleMeasure(context.Background(), []int{2, 0}, 500, newRNG(5))
			So(err, ShouldBeNil)

			So(b, ShouldResemble, a)
		})

		Convey("A cancelled context should stop clone and measure sampling", func() {
			config := testConfig()
			config.SampleAlgorithm = SampleApplyMeasure
			s := build(config)

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, err := s.SampleMeasure(ctx, []int{0}, 100, newRNG(5))
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})

		Convey("Sampling calls should be counted per algorithm", func() {
			config := testConfig()
			config.SampleAlgorithm = SampleProbabilities
			s := build(config)

			_, err := s.SampleMeasure(context.Background(), []int{0}, 64, newRNG(1))
			So(err, ShouldBeNil)
			So(s.Metrics().SampleCalls[SampleProbabilities], ShouldEqual, int64(1))
			So(s.Metrics().ShotsSampled, ShouldEqual, int64(64))
		})
	})
}

func TestSampleMeasureWithProb(t *testing.T) {
	Convey("Given a qubit in |1>", t, func() {
		s := newTestState(2, nil)
		_, err := runOps(s, gateOp("x", 1))
		So(err, ShouldBeNil)

		Convey("The sampled outcome should carry probability one", func() {
			outcome, prob, err := s.SampleMeasureWithProb([]int{1, 0}, newRNG(1))
			So(err, ShouldBeNil)
			So(outcome, ShouldEqual, 1)
			So(prob, ShouldAlmostEqual, 1, 1e-12)
		})

		Convey("MeasureProbs should return the marginal", func() {
			probs, err := s.MeasureProbs([]int{0, 1})
			So(err, ShouldBeNil)
			So(probs[2], ShouldAlmostEqual, 1, 1e-12)
		})
	})
}
