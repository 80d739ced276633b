// Package qmps runs circuit operation streams against a matrix product
// state register: gates, measurement, reset, initialize, noise channels,
// snapshots and batched measurement sampling.
package qmps

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"github.com/theapemachine/errnie"
	"github.com/theapemachine/qmps/mps"
)

/*
State is the simulation core for one circuit execution. The dispatcher is
the only writer of the register; snapshots and sampling never change it.
*/
type State struct {
	qreg    Register
	creg    *ClassicalRegister
	config  *Config
	metrics *Metrics
	log     *log.Logger
}

// NewState builds a State over an empty register. A nil config means
// NewConfig.
func NewState(config *Config) (*State, error) {
	if config == nil {
		config = NewConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = log.Default()
	}

	errnie.Info(
		"NewState - truncation %v, max bond %v, threads %v",
		config.TruncationThreshold,
		config.MaxBondDimension,
		config.Threads,
	)

	s := &State{
		creg:    NewClassicalRegister(0, 0),
		metrics: newMetrics(),
		log:     logger.WithPrefix("qmps"),
	}
	s.qreg = mpsRegister{mps.New(0, mps.Options{Logger: logger})}

	if err := s.Configure(config); err != nil {
		return nil, err
	}
	return s, nil
}

/*
Configure replaces the configuration and pushes the truncation and
parallelism settings into the register. Call it before every run that
should not inherit the previous one's settings.
*/
func (s *State) Configure(config *Config) error {
	if err := config.Validate(); err != nil {
		return err
	}

	s.config = config
	s.qreg.SetTruncationThreshold(config.TruncationThreshold)
	s.qreg.SetMaxBondDimension(config.MaxBondDimension)
	s.qreg.SetParallelism(config.ParallelThreshold, config.Threads)
	return nil
}

func (s *State) Config() *Config          { return s.config }
func (s *State) Register() Register       { return s.qreg }
func (s *State) Creg() *ClassicalRegister { return s.creg }
func (s *State) Metrics() *Metrics        { return s.metrics }

// maxVectorQubits is the widest register a dense vector can be indexed for.
const maxVectorQubits = 62

// InitializeQreg resets the register to |0...0> over numQubits qubits.
func (s *State) InitializeQreg(numQubits int) error {
	if numQubits < 0 {
		return errors.Wrapf(ErrDimensionMismatch, "register of %d qubits", numQubits)
	}
	s.qreg.Initialize(numQubits)
	return nil
}

/*
InitializeQregFromVector loads amps, where bit q of an index is qubit q,
into a register of numQubits qubits.
*/
func (s *State) InitializeQregFromVector(numQubits int, amps []complex128) error {
	if numQubits < 1 || numQubits > maxVectorQubits || len(amps) != 1<<numQubits {
		return errors.Wrapf(
			ErrDimensionMismatch,
			"initial state of length %d for %d qubits", len(amps), numQubits,
		)
	}

	internal := make([]complex128, len(amps))
	for idx, a := range amps {
		internal[mps.ReverseBits(idx, numQubits)] = a
	}

	if err := s.qreg.InitializeFromVector(numQubits, internal); err != nil {
		return errors.Wrap(ErrDimensionMismatch, err.Error())
	}
	return nil
}

// InitializeCreg sizes the classical memory and register, clearing both.
func (s *State) InitializeCreg(memoryBits, registerBits int) error {
	if memoryBits < 0 || registerBits < 0 {
		return errors.Wrapf(
			ErrDimensionMismatch,
			"classical register of %d memory and %d register bits", memoryBits, registerBits,
		)
	}
	s.creg = NewClassicalRegister(memoryBits, registerBits)
	return nil
}

// RequiredMemoryMB estimates the memory a run starts with: two 1x1
// complex matrices per qubit. Growth from entangling gates is not counted.
func (s *State) RequiredMemoryMB(numQubits int, ops []Op) int {
	return 16 * 2 * numQubits
}

/*
ApplyOps applies ops in order. An operation whose classical condition is
false is skipped without touching the register or rng. The context is
checked between operations, never during one. When final is set the run
metadata is written to result.
*/
func (s *State) ApplyOps(ctx context.Context, ops []Op, result *ExperimentResult, rng *rand.Rand, final bool) error {
	for i, op := range ops {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "stopped before operation %d (%s)", i, op.Name)
		}

		run, err := s.creg.CheckConditional(op)
		if err != nil {
			return err
		}
		if !run {
			s.metrics.recordSkip()
			s.log.Debug("skipped", "op", op.Type, "name", op.Name)
			continue
		}

		start := time.Now()
		if err := s.applyOp(op, result, rng); err != nil {
			return err
		}
		s.metrics.recordOp(op.Type, start, s.qreg.MaxBondDimension())
	}

	if final {
		s.AddMetadata(result)
	}
	return nil
}

func (s *State) applyOp(op Op, result *ExperimentResult, rng *rand.Rand) error {
	s.log.Debug("apply", "op", op.Type, "name", op.Name, "qubits", op.Qubits)

	switch op.Type {
	case OpBarrier:
		return nil
	case OpReset:
		return s.applyReset(op, rng)
	case OpInitialize:
		return s.applyInitialize(op)
	case OpMeasure:
		return s.applyMeasure(op, rng)
	case OpBFunc:
		return s.creg.ApplyBFunc(op)
	case OpROError:
		return s.creg.ApplyROError(op, rng)
	case OpGate:
		return s.applyGate(op)
	case OpSnapshot:
		return s.applySnapshot(op, result)
	case OpMatrix:
		return s.applyMatrix(op)
	case OpKraus:
		return s.applyKraus(op, rng)
	}

	return errors.Wrapf(ErrUnsupportedOperation, "invalid instruction %q (type %d)", op.Name, int(op.Type))
}

// checkQubits validates that qubits are in range and distinct.
func (s *State) checkQubits(name string, qubits []int) error {
	n := s.qreg.NumQubits()
	seen := make(map[int]bool, len(qubits))
	for _, q := range qubits {
		if q < 0 || q >= n {
			return errors.Wrapf(ErrMalformedOperation, "%s: qubit %d of %d", name, q, n)
		}
		if seen[q] {
			return errors.Wrapf(ErrMalformedOperation, "%s: qubit %d repeated", name, q)
		}
		seen[q] = true
	}
	return nil
}

// applyReset measures qubits and flips every one that came out 1.
func (s *State) applyReset(op Op, rng *rand.Rand) error {
	if err := s.checkQubits("reset", op.Qubits); err != nil {
		return err
	}

	outcome := s.qreg.ApplyMeasure(op.Qubits, rng)
	for i, q := range op.Qubits {
		if outcome[i] != 0 {
			s.qreg.ApplyX(q)
		}
	}
	return nil
}

/*
applyInitialize reloads the whole register. op.Qubits must name every
qubit once, in any order; bit j of an amplitude index in op.Params belongs
to op.Qubits[j].
*/
func (s *State) applyInitialize(op Op) error {
	if err := s.checkQubits("initialize", op.Qubits); err != nil {
		return err
	}

	n := s.qreg.NumQubits()
	if len(op.Qubits) != n {
		return errors.Wrapf(
			ErrUnsupportedPartialInitialize,
			"initialize on %d of %d qubits", len(op.Qubits), n,
		)
	}
	if len(op.Params) != 1<<n {
		return errors.Wrapf(
			ErrDimensionMismatch,
			"initialize with %d amplitudes for %d qubits", len(op.Params), n,
		)
	}

	amps := make([]complex128, len(op.Params))
	for idx, a := range op.Params {
		target := 0
		for j, q := range op.Qubits {
			target |= (idx >> j & 1) << q
		}
		amps[target] = a
	}

	return s.InitializeQregFromVector(n, amps)
}

func (s *State) applyMeasure(op Op, rng *rand.Rand) error {
	if err := s.checkQubits("measure", op.Qubits); err != nil {
		return err
	}
	if err := s.creg.checkTargets(len(op.Qubits), op.Memory, op.Registers); err != nil {
		return err
	}

	outcome := s.qreg.ApplyMeasure(op.Qubits, rng)
	return s.creg.StoreMeasure(outcome, op.Memory, op.Registers)
}

func (s *State) applyGate(op Op) error {
	gate, err := LookupGate(op.Name)
	if err != nil {
		return err
	}

	nq, np := gate.Arity()
	if len(op.Qubits) != nq || len(op.Params) < np {
		return errors.Wrapf(
			ErrMalformedOperation,
			"%s takes %d qubits and %d parameters, got %d and %d",
			op.Name, nq, np, len(op.Qubits), len(op.Params),
		)
	}
	if err := s.checkQubits(op.Name, op.Qubits); err != nil {
		return err
	}

	q, p := op.Qubits, op.Params
	switch gate {
	case GateID:
	case GateX:
		s.qreg.ApplyX(q[0])
	case GateY:
		s.qreg.ApplyY(q[0])
	case GateZ:
		s.qreg.ApplyZ(q[0])
	case GateS:
		s.qreg.ApplyS(q[0])
	case GateSdg:
		s.qreg.ApplySdg(q[0])
	case GateH:
		s.qreg.ApplyH(q[0])
	case GateSX:
		s.qreg.ApplySX(q[0])
	case GateT:
		s.qreg.ApplyT(q[0])
	case GateTdg:
		s.qreg.ApplyTdg(q[0])
	case GateU1:
		s.qreg.ApplyU1(q[0], real(p[0]))
	case GateU2:
		s.qreg.ApplyU2(q[0], real(p[0]), real(p[1]))
	case GateU3:
		s.qreg.ApplyU3(q[0], real(p[0]), real(p[1]), real(p[2]))
	case GateCX:
		s.qreg.ApplyCNOT(q[0], q[1])
	case GateCZ:
		s.qreg.ApplyCZ(q[0], q[1])
	case GateCU1:
		s.qreg.ApplyCU1(q[0], q[1], real(p[0]))
	case GateSwap:
		s.qreg.ApplySwap(q[0], q[1])
	case GateCCX:
		s.qreg.ApplyCCX(q[0], q[1], q[2])
	default:
		return errors.Wrapf(ErrUnsupportedOperation, "invalid gate instruction %q", op.Name)
	}
	return nil
}

/*
applyMatrix applies op.Mats[0]. A single row of length 2^k is taken as the
diagonal of the operator. Empty qubits or an empty matrix make it a no-op.
*/
func (s *State) applyMatrix(op Op) error {
	if len(op.Qubits) == 0 || len(op.Mats) == 0 || len(op.Mats[0]) == 0 {
		return nil
	}
	if err := s.checkQubits("matrix", op.Qubits); err != nil {
		return err
	}

	mat := op.Mats[0]
	var err error
	if len(mat) == 1 && len(mat[0]) == 1<<len(op.Qubits) {
		err = s.qreg.ApplyDiagonalMatrix(op.Qubits, mat[0])
	} else {
		err = s.qreg.ApplyMatrix(op.Qubits, mat)
	}
	if err != nil {
		return errors.Wrapf(ErrMalformedOperation, "matrix: %v", err)
	}
	return nil
}

func (s *State) applyKraus(op Op, rng *rand.Rand) error {
	if err := s.checkQubits("kraus", op.Qubits); err != nil {
		return err
	}
	if err := s.qreg.ApplyKraus(op.Qubits, op.Mats, rng); err != nil {
		return errors.Wrapf(ErrMalformedOperation, "kraus: %v", err)
	}
	return nil
}
