package qmps

import "github.com/pkg/errors"

// Gate is the closed set of gates the register applies natively.
type Gate int

const (
	GateID Gate = iota
	GateX
	GateY
	GateZ
	GateS
	GateSdg
	GateH
	GateSX
	GateT
	GateTdg
	GateU1
	GateU2
	GateU3
	GateCX
	GateCZ
	GateCU1
	GateSwap
	GateCCX
)

var gateNames = map[string]Gate{
	"id":   GateID,
	"x":    GateX,
	"y":    GateY,
	"z":    GateZ,
	"s":    GateS,
	"sdg":  GateSdg,
	"h":    GateH,
	"sx":   GateSX,
	"t":    GateT,
	"tdg":  GateTdg,
	"p":    GateU1,
	"u1":   GateU1,
	"u2":   GateU2,
	"u3":   GateU3,
	"u":    GateU3,
	"U":    GateU3,
	"CX":   GateCX,
	"cx":   GateCX,
	"cz":   GateCZ,
	"cu1":  GateCU1,
	"cp":   GateCU1,
	"swap": GateSwap,
	"ccx":  GateCCX,
}

// LookupGate resolves a gate name. Matching is exact and case-sensitive.
func LookupGate(name string) (Gate, error) {
	if g, ok := gateNames[name]; ok {
		return g, nil
	}
	return 0, errors.Wrapf(ErrUnsupportedOperation, "invalid gate instruction %q", name)
}

// Arity returns the number of qubits and real parameters the gate takes.
func (g Gate) Arity() (qubits, params int) {
	switch g {
	case GateID, GateX, GateY, GateZ, GateS, GateSdg, GateH, GateSX, GateT, GateTdg:
		return 1, 0
	case GateU1:
		return 1, 1
	case GateU2:
		return 1, 2
	case GateU3:
		return 1, 3
	case GateCX, GateCZ, GateSwap:
		return 2, 0
	case GateCU1:
		return 2, 1
	case GateCCX:
		return 3, 0
	}
	return 0, 0
}

// SnapshotKind is what a snapshot reads from the register.
type SnapshotKind int

const (
	SnapshotStatevector SnapshotKind = iota
	SnapshotMemory
	SnapshotRegister
	SnapshotProbabilities
	SnapshotDensityMatrix
	SnapshotExpvalPauli
	SnapshotExpvalMatrix
)

// SnapshotDataType is how repeated snapshots under one label are combined.
type SnapshotDataType int

const (
	// Average keeps a running mean per classical memory value.
	Average SnapshotDataType = iota
	// AverageVar also keeps the variance.
	AverageVar
	// PerShot keeps every value in order.
	PerShot
)

type snapshotEntry struct {
	kind SnapshotKind
	typ  SnapshotDataType
}

var snapshotNames = map[string]snapshotEntry{
	"statevector":                            {SnapshotStatevector, PerShot},
	"memory":                                 {SnapshotMemory, PerShot},
	"register":                               {SnapshotRegister, PerShot},
	"probabilities":                          {SnapshotProbabilities, Average},
	"probabilities_with_variance":            {SnapshotProbabilities, AverageVar},
	"probabilities_single_shot":              {SnapshotProbabilities, PerShot},
	"density_matrix":                         {SnapshotDensityMatrix, Average},
	"density_matrix_with_variance":           {SnapshotDensityMatrix, AverageVar},
	"density_matrix_single_shot":             {SnapshotDensityMatrix, PerShot},
	"expectation_value_pauli":                {SnapshotExpvalPauli, Average},
	"expectation_value_pauli_with_variance":  {SnapshotExpvalPauli, AverageVar},
	"expectation_value_pauli_single_shot":    {SnapshotExpvalPauli, PerShot},
	"expectation_value_matrix":               {SnapshotExpvalMatrix, Average},
	"expectation_value_matrix_with_variance": {SnapshotExpvalMatrix, AverageVar},
	"expectation_value_matrix_single_shot":   {SnapshotExpvalMatrix, PerShot},
}

// LookupSnapshot resolves a snapshot name into its kind and data type.
func LookupSnapshot(name string) (SnapshotKind, SnapshotDataType, error) {
	if e, ok := snapshotNames[name]; ok {
		return e.kind, e.typ, nil
	}
	return 0, 0, errors.Wrapf(ErrUnsupportedOperation, "invalid snapshot instruction %q", name)
}
