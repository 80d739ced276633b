package mps

import (
	"math"
	"math/cmplx"
)

// dense is a plain statevector used to cross-check the chain. Bit q of an
// amplitude index is qubit q.
type dense struct {
	n    int
	amps []complex128
}

func newDense(n int) *dense {
	amps := make([]complex128, 1<<n)
	amps[0] = 1
	return &dense{n: n, amps: amps}
}

func (d *dense) apply(qubits []int, op [][]complex128) {
	dim := 1 << len(qubits)
	mask := 0
	for _, q := range qubits {
		mask |= 1 << q
	}

	offs := make([]int, dim)
	for g := range offs {
		for i, q := range qubits {
			if g>>i&1 == 1 {
				offs[g] |= 1 << q
			}
		}
	}

	in := make([]complex128, dim)
	for base := range d.amps {
		if base&mask != 0 {
			continue
		}
		for g, off := range offs {
			in[g] = d.amps[base|off]
		}
		for g, off := range offs {
			var sum complex128
			for h := range in {
				sum += op[g][h] * in[h]
			}
			d.amps[base|off] = sum
		}
	}
}

func (d *dense) probabilities(qubits []int) []float64 {
	out := make([]float64, 1<<len(qubits))
	for idx, a := range d.amps {
		k := 0
		for i, q := range qubits {
			k |= (idx >> q & 1) << i
		}
		out[k] += real(a)*real(a) + imag(a)*imag(a)
	}
	return out
}

// sameUpToPhase reports whether a and b agree up to a global phase.
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

func closeFloats(a, b []float64, tol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}

var (
	rowsH  = matH.toRows()
	rowsX  = matX.toRows()
	rowsCX = matCX.toRows()
)
