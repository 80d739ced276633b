package qmps

import (
	"math/rand/v2"

	"github.com/theapemachine/qmps/mps"
)

var _ mps.Source = (*rand.Rand)(nil)

/*
Register is the tensor-network state the dispatcher drives. Amplitude
vectors passed to InitializeFromVector use the internal ordering, where
qubit 0 is the most significant bit. Every other vector and matrix uses the
public ordering, where bit i of an index belongs to qubits[i].
*/
type Register interface {
	Initialize(numQubits int)
	InitializeFromVector(numQubits int, amps []complex128) error
	NumQubits() int

	ApplyX(q int)
	ApplyY(q int)
	ApplyZ(q int)
	ApplyH(q int)
	ApplyS(q int)
	ApplySdg(q int)
	ApplySX(q int)
	ApplyT(q int)
	ApplyTdg(q int)
	ApplyU1(q int, lambda float64)
	ApplyU2(q int, phi, lambda float64)
	ApplyU3(q int, theta, phi, lambda float64)
	ApplyCNOT(control, target int)
	ApplyCZ(control, target int)
	ApplyCU1(control, target int, lambda float64)
	ApplySwap(a, b int)
	ApplyCCX(control0, control1, target int)

	ApplyMeasure(qubits []int, rng mps.Source) []int
	ApplyMatrix(qubits []int, mat [][]complex128) error
	ApplyDiagonalMatrix(qubits []int, diag []complex128) error
	ApplyKraus(qubits []int, kmats [][][]complex128, rng mps.Source) error

	ProbabilitiesVector(qubits []int) []float64
	ExpectationValuePauli(qubits []int, pauli string) (complex128, error)
	ExpectationValue(qubits []int, mat [][]complex128) (float64, error)
	DensityMatrix(qubits []int) [][]complex128
	FullStateVector() []complex128
	Norm() float64

	MaxBondDimension() int
	SetTruncationThreshold(threshold float64)
	SetMaxBondDimension(dim int)
	SetParallelism(threshold, threads int)

	// Clone returns an independent deep copy.
	Clone() Register
}

// mpsRegister adapts *mps.MPS, whose Clone returns the concrete type.
type mpsRegister struct {
	*mps.MPS
}

func (r mpsRegister) Clone() Register {
	return mpsRegister{r.MPS.Clone()}
}
