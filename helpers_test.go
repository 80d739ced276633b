package qmps

import (
	"context"
	"io"
	"math/cmplx"
	"math/rand/v2"

	"github.com/charmbracelet/log"
)

func testConfig() *Config {
	config := NewConfig()
	config.TruncationThreshold = 0
	config.Logger = log.NewWithOptions(io.Discard, log.Options{})
	return config
}

// newTestState returns an exact (untruncated) state over n qubits with n
// memory and register bits.
func newTestState(n int, config *Config) *State {
	if config == nil {
		config = testConfig()
	}
	s, err := NewState(config)
	if err != nil {
		panic(err)
	}
	if err := s.InitializeQreg(n); err != nil {
		panic(err)
	}
	if err := s.InitializeCreg(n, n); err != nil {
		panic(err)
	}
	return s
}

func newRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed+1))
}

func gateOp(name string, qubits ...int) Op {
	return Op{Type: OpGate, Name: name, Qubits: qubits}
}

func runOps(s *State, ops ...Op) (*ExperimentResult, error) {
	result := NewExperimentResult()
	err := s.ApplyOps(context.Background(), ops, result, newRNG(42), false)
	return result, err
}

func sameUpToPhase(a, b []complex128, tol float64) bool {
	if len(a) != len(b) {
		return false
	}

	var overlap complex128
	for i := range a {
		overlap += cmplx.Conj(a[i]) * b[i]
	}
	if cmplx.Abs(overlap) == 0 {
		return false
	}
	ph := overlap / complex(cmplx.Abs(overlap), 0)

	for i := range a {
		if cmplx.Abs(a[i]*ph-b[i]) > tol {
			return false
		}
	}
	return true
}

// frequencies counts samples by outcome index, bit i for qubit position i.
func frequencies(samples [][]int) map[int]float64 {
	counts := make(map[int]float64)
	for _, s := range samples {
		idx := 0
		for i, b := range s {
			idx |= b << i
		}
		counts[idx]++
	}
	for k := range counts {
		counts[k] /= float64(len(samples))
	}
	return counts
}
