package qmps

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

// Result data keys, matching the names snapshot consumers already expect.
const (
	dataStatevector   = "statevector"
	dataMemory        = "memory"
	dataRegister      = "register"
	dataProbs         = "probabilities"
	dataDensity       = "density_matrix"
	dataExpval        = "expectation_value"
	dataExpvalPerShot = "expectation_values"
)

/*
applySnapshot reads from the register and records the value in result.
Averaged snapshots are keyed by the classical memory at the time of the
read. The register is never modified.
*/
func (s *State) applySnapshot(op Op, result *ExperimentResult) error {
	kind, typ, err := LookupSnapshot(op.Name)
	if err != nil {
		return err
	}
	if err := s.checkQubits(op.Name, op.Qubits); err != nil {
		return err
	}

	data := result.Data
	memory := s.creg.MemoryHex()
	chop := s.config.ChopThreshold

	switch kind {
	case SnapshotStatevector:
		data.AddPerShot(dataStatevector, op.Label, s.qreg.FullStateVector())
		return nil
	case SnapshotMemory:
		data.AddPerShot(dataMemory, op.Label, memory)
		return nil
	case SnapshotRegister:
		data.AddPerShot(dataRegister, op.Label, s.creg.RegisterHex())
		return nil
	case SnapshotProbabilities:
		ket := vec2ket(s.qreg.ProbabilitiesVector(op.Qubits), chop)
		record(data, typ, dataProbs, dataProbs, op.Label, memory, ket)
		return nil
	case SnapshotDensityMatrix:
		rho := chopMatrix(s.qreg.DensityMatrix(op.Qubits), chop)
		record(data, typ, dataDensity, dataDensity, op.Label, memory, rho)
		return nil
	case SnapshotExpvalPauli:
		expval, err := s.expvalPauli(op)
		if err != nil {
			return err
		}
		record(data, typ, dataExpval, dataExpvalPerShot, op.Label, memory, chopComplex(expval, chop))
		return nil
	case SnapshotExpvalMatrix:
		expval, err := s.expvalMatrix(op)
		if err != nil {
			return err
		}
		record(data, typ, dataExpval, dataExpvalPerShot, op.Label, memory, chopComplex(expval, chop))
		return nil
	}

	return errors.Wrapf(ErrUnsupportedOperation, "invalid snapshot instruction %q", op.Name)
}

func record(data *SnapshotData, typ SnapshotDataType, avgKey, shotKey, label, memory string, value any) {
	switch typ {
	case Average:
		data.AddAverage(avgKey, label, memory, value, false)
	case AverageVar:
		data.AddAverage(avgKey, label, memory, value, true)
	case PerShot:
		data.AddPerShot(shotKey, label, value)
	}
}

// expvalPauli returns sum_k coeff_k <P_k> over op.Qubits.
func (s *State) expvalPauli(op Op) (complex128, error) {
	if len(op.ExpvalPauli) == 0 {
		return 0, errors.Wrapf(ErrEmptyExpectationSpec, "%s: no Pauli terms", op.Name)
	}

	var expval complex128
	for _, term := range op.ExpvalPauli {
		v, err := s.qreg.ExpectationValuePauli(op.Qubits, term.Pauli)
		if err != nil {
			return 0, errors.Wrapf(ErrMalformedOperation, "%s: %v", op.Name, err)
		}
		expval += term.Coeff * v
	}
	return expval, nil
}

/*
expvalMatrix returns sum_k coeff_k sum_c <M_kc>: every component of a
term is measured on its own subset of op.Qubits and weighted by the
term's coefficient.
*/
func (s *State) expvalMatrix(op Op) (complex128, error) {
	if len(op.ExpvalMatrix) == 0 {
		return 0, errors.Wrapf(ErrEmptyExpectationSpec, "%s: no matrix terms", op.Name)
	}

	var expval complex128
	for _, term := range op.ExpvalMatrix {
		if len(term.Components) == 0 {
			return 0, errors.Wrapf(ErrEmptyExpectationSpec, "%s: matrix term without components", op.Name)
		}

		for _, c := range term.Components {
			qubits, err := componentQubits(op.Qubits, c)
			if err != nil {
				return 0, errors.Wrapf(err, "%s", op.Name)
			}

			v, err := s.qreg.ExpectationValue(qubits, c.Mat)
			if err != nil {
				return 0, errors.Wrapf(ErrMalformedOperation, "%s: %v", op.Name, err)
			}
			expval += term.Coeff * complex(v, 0)
		}
	}
	return expval, nil
}

// componentQubits maps the positions of c into op.Qubits.
func componentQubits(opQubits []int, c MatrixComponent) ([]int, error) {
	qubits := make([]int, len(c.Qubits))
	for i, pos := range c.Qubits {
		if pos < 0 || pos >= len(opQubits) {
			return nil, errors.Wrapf(ErrMalformedOperation, "component position %d of %d", pos, len(opQubits))
		}
		qubits[i] = opQubits[pos]
	}
	return qubits, nil
}

func chopFloat(v, threshold float64) float64 {
	if math.Abs(v) < threshold {
		return 0
	}
	return v
}

func chopComplex(v complex128, threshold float64) complex128 {
	return complex(chopFloat(real(v), threshold), chopFloat(imag(v), threshold))
}

func chopMatrix(m [][]complex128, threshold float64) [][]complex128 {
	for _, row := range m {
		for j, v := range row {
			row[j] = chopComplex(v, threshold)
		}
	}
	return m
}

// vec2ket keeps the entries of probs above threshold, keyed "0x<index>".
func vec2ket(probs []float64, threshold float64) map[string]float64 {
	ket := make(map[string]float64)
	for idx, p := range probs {
		if v := chopFloat(p, threshold); v != 0 {
			ket[fmt.Sprintf("0x%x", idx)] = v
		}
	}
	return ket
}
