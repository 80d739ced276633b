package qmps

import (
	"context"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/pkg/errors"
)

// SampleAlgorithm selects how SampleMeasure draws its shots.
type SampleAlgorithm int

const (
	// SampleHeuristic lets the configured SamplePolicy decide per call.
	SampleHeuristic SampleAlgorithm = iota
	// SampleProbabilities computes the marginal distribution once and
	// draws every shot from it.
	SampleProbabilities
	// SampleApplyMeasure measures a fresh clone of the register per shot.
	SampleApplyMeasure
)

var sampleAlgorithmNames = map[SampleAlgorithm]string{
	SampleHeuristic:     "mps_heuristic",
	SampleProbabilities: "mps_probabilities",
	SampleApplyMeasure:  "mps_apply_measure",
}

func (a SampleAlgorithm) String() string {
	if name, ok := sampleAlgorithmNames[a]; ok {
		return name
	}
	return "unknown"
}

// ParseSampleAlgorithm is the inverse of SampleAlgorithm.String.
func ParseSampleAlgorithm(name string) (SampleAlgorithm, error) {
	for alg, n := range sampleAlgorithmNames {
		if n == name {
			return alg, nil
		}
	}
	return 0, errors.Wrapf(ErrInvalidConfig, "%s %q", keySampleAlgorithm, name)
}

/*
SamplePolicy picks SampleProbabilities or SampleApplyMeasure for one call.
It is asked again on every call, since the bond dimension moves as gates
are applied.
*/
type SamplePolicy interface {
	Choose(numQubits, shots, maxBondDim int) SampleAlgorithm
}

// SampleTier applies to registers whose largest bond is at most
// MaxBondDim: clone-and-measure wins below Base * Growth^(n - MinQubits)
// shots.
type SampleTier struct {
	MaxBondDim int
	Base       float64
	Growth     float64
}

/*
HeuristicPolicy is the default, empirically tuned selector. Registers
outside [MinQubits, MaxQubits] and bonds above the last tier always use
probabilities.
*/
type HeuristicPolicy struct {
	MinQubits int
	MaxQubits int
	Tiers     []SampleTier
}

// DefaultHeuristicPolicy returns the tuned tiers used when no policy is set.
func DefaultHeuristicPolicy() *HeuristicPolicy {
	return &HeuristicPolicy{
		MinQubits: 10,
		MaxQubits: 26,
		Tiers: []SampleTier{
			{MaxBondDim: 2, Base: 12, Growth: 1.85},
			{MaxBondDim: 4, Base: 3, Growth: 1.75},
			{MaxBondDim: 8, Base: 2.5, Growth: 1.65},
			{MaxBondDim: 16, Base: 0.5, Growth: 1.75},
		},
	}
}

func (p *HeuristicPolicy) Choose(numQubits, shots, maxBondDim int) SampleAlgorithm {
	if numQubits < p.MinQubits || numQubits > p.MaxQubits {
		return SampleProbabilities
	}

	for _, tier := range p.Tiers {
		if maxBondDim > tier.MaxBondDim {
			continue
		}
		threshold := tier.Base * math.Pow(tier.Growth, float64(numQubits-p.MinQubits))
		if float64(shots) < threshold {
			return SampleApplyMeasure
		}
		return SampleProbabilities
	}
	return SampleProbabilities
}

// SampleAlgorithmFor reports which algorithm SampleMeasure would use now.
func (s *State) SampleAlgorithmFor(numQubits, shots int) SampleAlgorithm {
	if s.config.SampleAlgorithm != SampleHeuristic {
		return s.config.SampleAlgorithm
	}
	return s.config.policy().Choose(numQubits, shots, s.qreg.MaxBondDimension())
}

/*
SampleMeasure draws shots outcomes of measuring qubits without changing
the register. samples[k][i] is the outcome of qubits[i] in shot k.
*/
func (s *State) SampleMeasure(ctx context.Context, qubits []int, shots int, rng *rand.Rand) ([][]int, error) {
	if err := s.checkQubits("sample_measure", qubits); err != nil {
		return nil, err
	}
	if shots <= 0 {
		return [][]int{}, nil
	}

	alg := s.SampleAlgorithmFor(len(qubits), shots)
	s.log.Debug("sample measure", "algorithm", alg, "qubits", len(qubits), "shots", shots)
	s.metrics.recordSample(alg, shots)

	if alg == SampleApplyMeasure {
		return s.sampleUsingApplyMeasure(ctx, qubits, shots, rng)
	}
	return s.sampleUsingProbabilities(ctx, qubits, shots, rng)
}

func (s *State) sampleUsingProbabilities(ctx context.Context, qubits []int, shots int, rng *rand.Rand) ([][]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "sampling from probabilities")
	}

	cdf := s.qreg.ProbabilitiesVector(qubits)
	for i := 1; i < len(cdf); i++ {
		cdf[i] += cdf[i-1]
	}

	samples := make([][]int, shots)
	for k := range samples {
		r := rng.Float64()
		idx := sort.Search(len(cdf), func(i int) bool { return cdf[i] > r })
		samples[k] = indexBits(min(idx, len(cdf)-1), len(qubits))
	}
	return samples, nil
}

func indexBits(idx, n int) []int {
	bits := make([]int, n)
	for i := range bits {
		bits[i] = idx >> i & 1
	}
	return bits
}

// shotStream separates the two PCG words of a per-shot generator.
const shotStream = 0x9e3779b97f4a7c15

/*
sampleUsingApplyMeasure measures a clone of the register per shot. Every
shot gets its own generator seeded from rng before any shot runs, so the
samples do not depend on how many workers run them.
*/
func (s *State) sampleUsingApplyMeasure(ctx context.Context, qubits []int, shots int, rng *rand.Rand) ([][]int, error) {
	seeds := make([]uint64, shots)
	for i := range seeds {
		seeds[i] = rng.Uint64()
	}

	measure := func(shot int) []int {
		clone := s.qreg.Clone()
		return clone.ApplyMeasure(qubits, rand.New(rand.NewPCG(seeds[shot], seeds[shot]^shotStream)))
	}

	samples := make([][]int, shots)

	if s.config.Threads <= 1 || s.qreg.NumQubits() < s.config.ParallelThreshold {
		for k := range samples {
			if err := ctx.Err(); err != nil {
				return nil, errors.Wrapf(err, "sampling stopped at shot %d", k)
			}
			samples[k] = measure(k)
		}
		return samples, nil
	}

	pool := NewPool(ctx, s.config.Threads, shots, s.metrics, s.log)
	defer pool.Close()

	for k := range samples {
		shot := k
		if err := pool.Schedule(Job{
			Shot:      shot,
			Fn:        func() ([]int, error) { return measure(shot), nil },
			StartTime: time.Now(),
		}); err != nil {
			return nil, err
		}
	}

	for done := 0; done < shots; done++ {
		select {
		case res := <-pool.Results():
			if res.Err != nil {
				return nil, errors.Wrapf(res.Err, "shot %d", res.Shot)
			}
			samples[res.Shot] = res.Outcome
		case <-ctx.Done():
			return nil, errors.Wrapf(ctx.Err(), "sampling stopped after %d shots", done)
		}
	}
	return samples, nil
}

// MeasureProbs returns the marginal distribution over qubits.
func (s *State) MeasureProbs(qubits []int) ([]float64, error) {
	if err := s.checkQubits("measure_probs", qubits); err != nil {
		return nil, err
	}
	return s.qreg.ProbabilitiesVector(qubits), nil
}

/*
SampleMeasureWithProb draws one outcome of qubits without collapsing the
register and returns it as an index, with bit i for qubits[i], together
with its probability.
*/
func (s *State) SampleMeasureWithProb(qubits []int, rng *rand.Rand) (int, float64, error) {
	probs, err := s.MeasureProbs(qubits)
	if err != nil {
		return 0, 0, err
	}

	outcome := sampleIndex(probs, rng.Float64())
	return outcome, probs[outcome], nil
}
