package mps

import (
	"math"
	"sort"

	"github.com/pkg/errors"
)

// Source is the randomness the chain draws from. *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

/*
ApplyMeasure measures qubits one after the other, collapsing the chain on
every outcome. outcome[i] belongs to qubits[i].
*/
func (s *MPS) ApplyMeasure(qubits []int, rng Source) []int {
	outcome := make([]int, len(qubits))
	for i, q := range qubits {
		outcome[i] = s.measureQubit(q, rng)
	}
	return outcome
}

func (s *MPS) measureQubit(q int, rng Source) int {
	s.moveCenter(q)

	st := s.sites[q]
	p0, p1 := st[0].frobenius2(), st[1].frobenius2()

	outcome := 0
	if rng.Float64() >= p0/(p0+p1) {
		outcome = 1
	}

	kept := st[outcome].clone()
	kept.scale(complex(1/math.Sqrt(kept.frobenius2()), 0))

	collapsed := site{}
	collapsed[outcome] = kept
	collapsed[1-outcome] = newMatrix(kept.rows, kept.cols)
	s.sites[q] = collapsed

	return outcome
}

/*
ApplyKraus applies the channel {K_i} to qubits by sampling a single branch:
branch i is realised with probability ||K_i psi||^2 and the state is
renormalised afterwards.
*/
func (s *MPS) ApplyKraus(qubits []int, kmats [][][]complex128, rng Source) error {
	if len(kmats) == 0 {
		return errors.Wrap(ErrInvalidOperator, "empty Kraus set")
	}

	ops := make([]*matrix, len(kmats))
	for i, k := range kmats {
		op, err := s.operator(qubits, k)
		if err != nil {
			return errors.Wrapf(err, "Kraus operator %d", i)
		}
		ops[i] = op
	}

	var err error
	s.routed(qubits, func(local []int, lo, hi int) {
		s.moveCenter(lo)
		t := s.contract(lo, hi)
		total := t.norm2()
		if total == 0 {
			err = errors.Wrap(ErrInvalidOperator, "Kraus channel on a zero state")
			return
		}

		r := rng.Float64()
		var accum float64

		for i, op := range ops {
			branch := t.clone()
			s.applyOperator(branch, local, hi, op)
			norm2 := branch.norm2()
			accum += norm2 / total

			if accum > r || i == len(ops)-1 {
				if norm2 > 0 {
					branch.scale(complex(math.Sqrt(total/norm2), 0))
				}
				s.split(lo, hi, branch)
				return
			}
		}
	})
	return err
}

// transfer pushes the left environment e across site j, applying op on the
// physical index when it is not nil.
func (s *MPS) transfer(e *matrix, j int, op *matrix) *matrix {
	st := s.sites[j]
	out := newMatrix(st[0].cols, st[0].cols)

	for t := 0; t < 2; t++ {
		for tp := 0; tp < 2; tp++ {
			w := complex128(0)
			switch {
			case op != nil:
				w = op.at(t, tp)
			case t == tp:
				w = 1
			}
			if w == 0 {
				continue
			}
			addInto(out, sandwich(st[t], e, st[tp]), w)
		}
	}

	return out
}

// Norm returns <psi|psi>.
func (s *MPS) Norm() float64 {
	e := scalar(1)
	for j := 0; j < s.n; j++ {
		e = s.transfer(e, j, nil)
	}
	return real(e.data[0])
}

var paulis = map[byte]*matrix{
	'I': identity(2),
	'X': matX,
	'Y': matY,
	'Z': mat2(1, 0, 0, -1),
}

/*
ExpectationValuePauli returns <psi|P|psi> for a Pauli string. As with
operator indices, the rightmost letter acts on qubits[0].
*/
func (s *MPS) ExpectationValuePauli(qubits []int, pauli string) (complex128, error) {
	if err := s.checkQubits(qubits); err != nil {
		return 0, err
	}
	if len(pauli) != len(qubits) {
		return 0, errors.Wrapf(
			ErrInvalidOperator,
			"Pauli string %q on %d qubits", pauli, len(qubits),
		)
	}

	ops := make(map[int]*matrix, len(qubits))
	for i, q := range qubits {
		op, ok := paulis[pauli[len(pauli)-1-i]]
		if !ok {
			return 0, errors.Wrapf(ErrInvalidOperator, "Pauli string %q", pauli)
		}
		ops[q] = op
	}

	e := scalar(1)
	for j := 0; j < s.n; j++ {
		e = s.transfer(e, j, ops[j])
	}
	return e.data[0], nil
}

// ExpectationValue returns Re Tr(rho M) for a 2^k x 2^k operator on qubits.
func (s *MPS) ExpectationValue(qubits []int, mat [][]complex128) (float64, error) {
	op, err := s.operator(qubits, mat)
	if err != nil {
		return 0, err
	}

	rho := s.densityMatrix(qubits)
	var sum complex128
	for x := 0; x < rho.rows; x++ {
		for y := 0; y < rho.cols; y++ {
			sum += rho.at(x, y) * op.at(y, x)
		}
	}
	return real(sum), nil
}

/*
order sorts qubits by site and returns, for every position i of qubits,
the bit its site occupies in an index built left to right over the sorted
sites.
*/
func order(qubits []int) ([]int, []int) {
	sorted := append([]int(nil), qubits...)
	sort.Ints(sorted)

	k := len(qubits)
	bit := make([]int, k)
	for i, q := range qubits {
		rank := sort.SearchInts(sorted, q)
		bit[i] = k - 1 - rank
	}
	return sorted, bit
}

// remap turns an index over sorted sites into one where bit i is qubits[i].
func remap(idx int, bit []int) int {
	out := 0
	for i, b := range bit {
		out |= (idx >> b & 1) << i
	}
	return out
}

/*
ProbabilitiesVector returns the marginal distribution over qubits; entry
x has bit i equal to the outcome of qubits[i]. The chain is only read.
*/
func (s *MPS) ProbabilitiesVector(qubits []int) []float64 {
	sorted, bit := order(qubits)
	inSet := make(map[int]bool, len(sorted))
	for _, q := range sorted {
		inSet[q] = true
	}

	envs := []*matrix{scalar(1)}
	for j := 0; j < s.n; j++ {
		st := s.sites[j]

		if !inSet[j] {
			s.parallelFor(len(envs), func(i int) {
				envs[i] = s.transfer(envs[i], j, nil)
			})
			continue
		}

		next := make([]*matrix, len(envs)*2)
		s.parallelFor(len(envs), func(i int) {
			for t := 0; t < 2; t++ {
				next[i*2+t] = sandwich(st[t], envs[i], st[t])
			}
		})
		envs = next
	}

	probs := make([]float64, len(envs))
	var total float64
	for idx, e := range envs {
		p := math.Max(real(e.data[0]), 0)
		probs[remap(idx, bit)] = p
		total += p
	}
	if total > 0 {
		for i := range probs {
			probs[i] /= total
		}
	}
	return probs
}

// DensityMatrix returns the reduced density matrix over qubits, indexed
// like ProbabilitiesVector. With no qubits it is the 1x1 matrix [<psi|psi>].
func (s *MPS) DensityMatrix(qubits []int) [][]complex128 {
	if len(qubits) == 0 {
		return [][]complex128{{complex(s.Norm(), 0)}}
	}
	return s.densityMatrix(qubits).toRows()
}

func (s *MPS) densityMatrix(qubits []int) *matrix {
	sorted, bit := order(qubits)
	inSet := make(map[int]bool, len(sorted))
	for _, q := range sorted {
		inSet[q] = true
	}

	// envs[x*dim+y] carries conj(psi_x) psi_y over the open sites so far.
	dim := 1
	envs := []*matrix{scalar(1)}
	for j := 0; j < s.n; j++ {
		st := s.sites[j]

		if !inSet[j] {
			s.parallelFor(len(envs), func(i int) {
				envs[i] = s.transfer(envs[i], j, nil)
			})
			continue
		}

		next := make([]*matrix, len(envs)*4)
		s.parallelFor(len(envs), func(i int) {
			x, y := i/dim, i%dim
			for t := 0; t < 2; t++ {
				for tp := 0; tp < 2; tp++ {
					next[(x*2+t)*dim*2+(y*2+tp)] = sandwich(st[t], envs[i], st[tp])
				}
			}
		})
		envs = next
		dim *= 2
	}

	rho := newMatrix(dim, dim)
	var trace float64
	for i, e := range envs {
		x, y := i/dim, i%dim
		// rho[a][b] = psi_a conj(psi_b), the transpose of the environment.
		rho.set(remap(y, bit), remap(x, bit), e.data[0])
		if x == y {
			trace += real(e.data[0])
		}
	}
	if trace > 0 {
		rho.scale(complex(1/trace, 0))
	}
	return rho
}

/*
FullStateVector contracts the whole chain into 2^n amplitudes where bit q
of the index is qubit q. The cost is exponential in the qubit count.
*/
func (s *MPS) FullStateVector() []complex128 {
	if s.n == 0 {
		return []complex128{1}
	}

	t := s.contract(0, s.n-1)
	out := make([]complex128, len(t.data))
	for idx, v := range t.data {
		out[ReverseBits(idx, s.n)] = v
	}
	return out
}

// ReverseBits mirrors the low n bits of idx.
func ReverseBits(idx, n int) int {
	out := 0
	for i := 0; i < n; i++ {
		out |= (idx >> i & 1) << (n - 1 - i)
	}
	return out
}
