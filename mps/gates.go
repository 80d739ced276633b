package mps

import (
	"math"
	"math/cmplx"
	"slices"

	"github.com/pkg/errors"
)

var (
	matX = mat2(0, 1, 1, 0)
	matY = mat2(0, -1i, 1i, 0)
	matH = mat2(
		complex(1/math.Sqrt2, 0), complex(1/math.Sqrt2, 0),
		complex(1/math.Sqrt2, 0), complex(-1/math.Sqrt2, 0),
	)
	matSX = mat2(
		complex(0.5, 0.5), complex(0.5, -0.5),
		complex(0.5, -0.5), complex(0.5, 0.5),
	)

	// Two-qubit operators take qubits [control, target]; bit 0 of the
	// operator index is the control.
	matCX   = permutation(4, map[int]int{1: 3, 3: 1})
	matSwap = permutation(4, map[int]int{1: 2, 2: 1})
	// Toffoli over [control, control, target].
	matCCX = permutation(8, map[int]int{3: 7, 7: 3})
)

func mat2(a, b, c, d complex128) *matrix {
	return &matrix{rows: 2, cols: 2, data: []complex128{a, b, c, d}}
}

func permutation(dim int, swaps map[int]int) *matrix {
	m := newMatrix(dim, dim)
	for i := 0; i < dim; i++ {
		j := i
		if to, ok := swaps[i]; ok {
			j = to
		}
		m.set(j, i, 1)
	}
	return m
}

func matU3(theta, phi, lambda float64) *matrix {
	c, s := math.Cos(theta/2), math.Sin(theta/2)
	return mat2(
		complex(c, 0), -cmplx.Exp(complex(0, lambda))*complex(s, 0),
		cmplx.Exp(complex(0, phi))*complex(s, 0), cmplx.Exp(complex(0, phi+lambda))*complex(c, 0),
	)
}

func phase(lambda float64) complex128 {
	return cmplx.Exp(complex(0, lambda))
}

/*
apply multiplies op onto qubits. The qubits are first brought onto
adjacent sites, so only a block of len(qubits) sites is ever contracted.
*/
func (s *MPS) apply(qubits []int, op *matrix) {
	s.routed(qubits, func(local []int, lo, hi int) {
		s.moveCenter(lo)
		t := s.contract(lo, hi)
		s.applyOperator(t, local, hi, op)
		s.split(lo, hi, t)
	})
}

func (s *MPS) applyDiag(qubits []int, diag []complex128) {
	s.routed(qubits, func(local []int, lo, hi int) {
		s.moveCenter(lo)
		t := s.contract(lo, hi)
		s.applyDiagonal(t, local, hi, diag)
		s.split(lo, hi, t)
	})
}

/*
routed swaps qubits onto the contiguous sites lo..hi, starting at the
lowest of them, and calls fn with the site each qubit now occupies
(local[i] for qubits[i]). The swaps are undone afterwards, so every qubit
ends on its own site again.
*/
func (s *MPS) routed(qubits []int, fn func(local []int, lo, hi int)) {
	sorted := slices.Clone(qubits)
	slices.Sort(sorted)
	lo := sorted[0]

	at := make(map[int]int, len(qubits))
	var swaps []int
	for i, q := range sorted {
		for pos := q; pos > lo+i; pos-- {
			s.swapSites(pos - 1)
			swaps = append(swaps, pos-1)
		}
		at[q] = lo + i
	}

	local := make([]int, len(qubits))
	for i, q := range qubits {
		local[i] = at[q]
	}
	fn(local, lo, lo+len(qubits)-1)

	for i := len(swaps) - 1; i >= 0; i-- {
		s.swapSites(swaps[i])
	}
}

// swapSites exchanges the qubits on sites j and j+1.
func (s *MPS) swapSites(j int) {
	s.moveCenter(j)
	t := s.contract(j, j+1)
	s.applyOperator(t, []int{j, j + 1}, j+1, matSwap)
	s.split(j, j+1, t)
}

func (s *MPS) ApplyX(q int)   { s.apply([]int{q}, matX) }
func (s *MPS) ApplyY(q int)   { s.apply([]int{q}, matY) }
func (s *MPS) ApplyZ(q int)   { s.applyDiag([]int{q}, []complex128{1, -1}) }
func (s *MPS) ApplyH(q int)   { s.apply([]int{q}, matH) }
func (s *MPS) ApplyS(q int)   { s.applyDiag([]int{q}, []complex128{1, 1i}) }
func (s *MPS) ApplySdg(q int) { s.applyDiag([]int{q}, []complex128{1, -1i}) }
func (s *MPS) ApplySX(q int)  { s.apply([]int{q}, matSX) }
func (s *MPS) ApplyT(q int)   { s.applyDiag([]int{q}, []complex128{1, phase(math.Pi / 4)}) }
func (s *MPS) ApplyTdg(q int) { s.applyDiag([]int{q}, []complex128{1, phase(-math.Pi / 4)}) }

func (s *MPS) ApplyU1(q int, lambda float64) {
	s.applyDiag([]int{q}, []complex128{1, phase(lambda)})
}

func (s *MPS) ApplyU2(q int, phi, lambda float64) {
	s.apply([]int{q}, matU3(math.Pi/2, phi, lambda))
}

func (s *MPS) ApplyU3(q int, theta, phi, lambda float64) {
	s.apply([]int{q}, matU3(theta, phi, lambda))
}

func (s *MPS) ApplyCNOT(control, target int) {
	s.apply([]int{control, target}, matCX)
}

func (s *MPS) ApplyCZ(control, target int) {
	s.applyDiag([]int{control, target}, []complex128{1, 1, 1, -1})
}

func (s *MPS) ApplyCU1(control, target int, lambda float64) {
	s.applyDiag([]int{control, target}, []complex128{1, 1, 1, phase(lambda)})
}

func (s *MPS) ApplySwap(a, b int) {
	s.apply([]int{a, b}, matSwap)
}

func (s *MPS) ApplyCCX(control0, control1, target int) {
	s.apply([]int{control0, control1, target}, matCCX)
}

// ApplyMatrix applies a 2^k x 2^k operator; bit i of its index is qubits[i].
func (s *MPS) ApplyMatrix(qubits []int, mat [][]complex128) error {
	op, err := s.operator(qubits, mat)
	if err != nil {
		return err
	}
	s.apply(qubits, op)
	return nil
}

func (s *MPS) ApplyDiagonalMatrix(qubits []int, diag []complex128) error {
	if err := s.checkQubits(qubits); err != nil {
		return err
	}
	if len(qubits) == 0 || len(diag) != 1<<len(qubits) {
		return errors.Wrapf(
			ErrInvalidOperator,
			"diagonal of length %d on %d qubits", len(diag), len(qubits),
		)
	}
	s.applyDiag(qubits, diag)
	return nil
}

func (s *MPS) operator(qubits []int, mat [][]complex128) (*matrix, error) {
	if err := s.checkQubits(qubits); err != nil {
		return nil, err
	}

	dim := 1 << len(qubits)
	op, ok := fromRows(mat)
	if !ok || len(qubits) == 0 || op.rows != dim || op.cols != dim {
		return nil, errors.Wrapf(
			ErrInvalidOperator,
			"%d-row operator on %d qubits", len(mat), len(qubits),
		)
	}
	return op, nil
}
