package qmps

import (
	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

/*
Config is everything a run can tune. It is passed to NewState or Configure
and never read from process-wide state, so back-to-back runs only share it
when the caller hands them the same value.
*/
type Config struct {
	// TruncationThreshold bounds the discarded Schmidt weight per bond.
	TruncationThreshold float64
	// MaxBondDimension caps every bond. Zero means unbounded.
	MaxBondDimension int
	// ChopThreshold zeroes snapshot values smaller than itself.
	ChopThreshold float64
	// ParallelThreshold is the qubit count from which tensor kernels and
	// clone-and-measure shots use Threads workers.
	ParallelThreshold int
	Threads           int
	// SampleAlgorithm overrides the selector unless it is SampleHeuristic.
	SampleAlgorithm SampleAlgorithm
	// SamplePolicy picks the algorithm when no override is set. Nil means
	// DefaultHeuristicPolicy.
	SamplePolicy SamplePolicy
	Logger       *log.Logger
}

// NewConfig returns the default settings.
func NewConfig() *Config {
	return &Config{
		TruncationThreshold: 1e-16,
		MaxBondDimension:    0,
		ChopThreshold:       1e-8,
		ParallelThreshold:   14,
		Threads:             1,
		SampleAlgorithm:     SampleHeuristic,
	}
}

const (
	keyTruncationThreshold = "matrix_product_state_truncation_threshold"
	keyMaxBondDimension    = "matrix_product_state_max_bond_dimension"
	keyChopThreshold       = "chop_threshold"
	keyParallelThreshold   = "mps_parallel_threshold"
	keyThreads             = "mps_omp_threads"
	keySampleAlgorithm     = "mps_sample_measure_algorithm"
)

/*
ConfigFromViper reads a Config from v, falling back to NewConfig defaults
for every key that is not set.
*/
func ConfigFromViper(v *viper.Viper) (*Config, error) {
	config := NewConfig()

	if v.IsSet(keyTruncationThreshold) {
		config.TruncationThreshold = v.GetFloat64(keyTruncationThreshold)
	}
	if v.IsSet(keyMaxBondDimension) {
		config.MaxBondDimension = v.GetInt(keyMaxBondDimension)
	}
	if v.IsSet(keyChopThreshold) {
		config.ChopThreshold = v.GetFloat64(keyChopThreshold)
	}
	if v.IsSet(keyParallelThreshold) {
		config.ParallelThreshold = v.GetInt(keyParallelThreshold)
	}
	if v.IsSet(keyThreads) {
		config.Threads = v.GetInt(keyThreads)
	}
	if v.IsSet(keySampleAlgorithm) {
		alg, err := ParseSampleAlgorithm(v.GetString(keySampleAlgorithm))
		if err != nil {
			return nil, err
		}
		config.SampleAlgorithm = alg
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) Validate() error {
	switch {
	case c.TruncationThreshold < 0:
		return errors.Wrapf(ErrInvalidConfig, "%s must not be negative", keyTruncationThreshold)
	case c.MaxBondDimension < 0:
		return errors.Wrapf(ErrInvalidConfig, "%s must not be negative", keyMaxBondDimension)
	case c.ChopThreshold < 0:
		return errors.Wrapf(ErrInvalidConfig, "%s must not be negative", keyChopThreshold)
	case c.ParallelThreshold < 0:
		return errors.Wrapf(ErrInvalidConfig, "%s must not be negative", keyParallelThreshold)
	case c.Threads < 1:
		return errors.Wrapf(ErrInvalidConfig, "%s must be at least 1", keyThreads)
	}
	return nil
}

func (c *Config) policy() SamplePolicy {
	if c.SamplePolicy != nil {
		return c.SamplePolicy
	}
	return DefaultHeuristicPolicy()
}
