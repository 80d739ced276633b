// Package mps holds a matrix product state: the chain of per-qubit tensors
// that the simulation core evolves and reads from.
package mps

import (
	"io"
	"math"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
)

// Singular values below svdFloor times the largest one are numerical zeros
// and are always dropped, whatever the truncation threshold.
const svdFloor = 1e-14

var (
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrQubitOutOfRange   = errors.New("qubit out of range")
	ErrInvalidOperator   = errors.New("invalid operator")
)

/*
Options configures a single MPS instance. Nothing here is process-wide: two
chains in the same process can run with different truncation policies.
*/
type Options struct {
	// TruncationThreshold bounds the squared weight of discarded Schmidt
	// coefficients at every bond split.
	TruncationThreshold float64
	// MaxBondDimension caps every bond. Zero means unbounded.
	MaxBondDimension int
	// ParallelThreshold is the qubit count from which kernels run their
	// outer loops on Threads goroutines.
	ParallelThreshold int
	Threads           int
	Logger            *log.Logger
}

// DefaultOptions matches the simulator defaults.
func DefaultOptions() Options {
	return Options{
		TruncationThreshold: 1e-16,
		ParallelThreshold:   14,
		Threads:             1,
	}
}

// site holds the two physical slices A[0], A[1] of one tensor, each
// Dl x Dr.
type site [2]*matrix

/*
MPS is a matrix product state in mixed-canonical form. Every site left of
center is left-normalized and every site right of it is right-normalized,
so the norm of the state is the Frobenius norm of the centre site and the
singular values of a split taken at the centre are Schmidt coefficients.
*/
type MPS struct {
	n      int
	sites  []site
	center int
	opts   Options
	log    *log.Logger
}

// New returns a chain of numQubits qubits in |0...0>.
func New(numQubits int, opts Options) *MPS {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	s := &MPS{opts: opts, log: logger.WithPrefix("mps")}
	s.Initialize(numQubits)
	return s
}

// Initialize resets the chain to |0...0> over numQubits qubits.
func (s *MPS) Initialize(numQubits int) {
	s.n = numQubits
	s.center = 0
	s.sites = make([]site, numQubits)
	for i := range s.sites {
		s.sites[i] = site{scalar(1), scalar(0)}
	}
}

/*
InitializeFromVector rebuilds the chain from a dense amplitude vector in
internal ordering, where qubit 0 is the most significant bit of the index.
The vector is split site by site with the configured truncation policy.
*/
func (s *MPS) InitializeFromVector(numQubits int, amps []complex128) error {
	if numQubits < 1 || len(amps) != 1<<numQubits {
		return errors.Wrapf(
			ErrDimensionMismatch,
			"%d amplitudes for %d qubits", len(amps), numQubits,
		)
	}

	s.Initialize(numQubits)

	b := &block{dl: 1, p: len(amps), dr: 1, data: make([]complex128, len(amps))}
	copy(b.data, amps)
	s.split(0, numQubits-1, b)

	return nil
}

func (s *MPS) NumQubits() int {
	return s.n
}

// Clone returns a deep copy. It only reads s, so several goroutines may
// clone the same chain at once.
func (s *MPS) Clone() *MPS {
	out := &MPS{
		n:      s.n,
		center: s.center,
		opts:   s.opts,
		log:    s.log,
		sites:  make([]site, len(s.sites)),
	}
	for i, st := range s.sites {
		out.sites[i] = site{st[0].clone(), st[1].clone()}
	}
	return out
}

func (s *MPS) SetTruncationThreshold(threshold float64) {
	s.opts.TruncationThreshold = threshold
}

func (s *MPS) SetMaxBondDimension(dim int) {
	s.opts.MaxBondDimension = dim
}

func (s *MPS) SetParallelism(threshold, threads int) {
	s.opts.ParallelThreshold = threshold
	s.opts.Threads = threads
}

func (s *MPS) Options() Options {
	return s.opts
}

// MaxBondDimension is the largest bond between adjacent sites.
func (s *MPS) MaxBondDimension() int {
	dim := 1
	for _, st := range s.sites[:max0(len(s.sites)-1)] {
		if st[0].cols > dim {
			dim = st[0].cols
		}
	}
	return dim
}

// BondDimensions lists the n-1 bond sizes from left to right.
func (s *MPS) BondDimensions() []int {
	if s.n < 2 {
		return nil
	}
	dims := make([]int, s.n-1)
	for i := range dims {
		dims[i] = s.sites[i][0].cols
	}
	return dims
}

func max0(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

func (s *MPS) checkQubits(qubits []int) error {
	seen := make(map[int]bool, len(qubits))
	for _, q := range qubits {
		if q < 0 || q >= s.n {
			return errors.Wrapf(ErrQubitOutOfRange, "qubit %d of %d", q, s.n)
		}
		if seen[q] {
			return errors.Wrapf(ErrInvalidOperator, "qubit %d repeated", q)
		}
		seen[q] = true
	}
	return nil
}

/*
moveCenter shifts the orthogonality centre to target by exact SVD sweeps.
Only numerically zero singular values are dropped on the way, so the state
itself is unchanged.
*/
func (s *MPS) moveCenter(target int) {
	for s.center < target {
		s.leftNormalize(s.center)
		s.center++
	}
	for s.center > target {
		s.rightNormalize(s.center)
		s.center--
	}
}

func (s *MPS) leftNormalize(j int) {
	a := s.sites[j]
	dl, dr := a[0].rows, a[0].cols

	m := newMatrix(dl*2, dr)
	for x := 0; x < dl; x++ {
		for ph := 0; ph < 2; ph++ {
			copy(m.data[(x*2+ph)*dr:(x*2+ph+1)*dr], a[ph].data[x*dr:(x+1)*dr])
		}
	}

	u, sv, v := svd(m)
	k := keepNonZero(sv)

	next := site{newMatrix(dl, k), newMatrix(dl, k)}
	for x := 0; x < dl; x++ {
		for ph := 0; ph < 2; ph++ {
			for i := 0; i < k; i++ {
				next[ph].set(x, i, u.at(x*2+ph, i))
			}
		}
	}
	s.sites[j] = next

	// R = S V^H is pushed into the right neighbour.
	r := newMatrix(k, dr)
	for i := 0; i < k; i++ {
		for b := 0; b < dr; b++ {
			r.set(i, b, complex(sv[i], 0)*conj(v.at(b, i)))
		}
	}
	right := s.sites[j+1]
	s.sites[j+1] = site{mul(r, right[0]), mul(r, right[1])}
}

func (s *MPS) rightNormalize(j int) {
	a := s.sites[j]
	dl, dr := a[0].rows, a[0].cols

	m := newMatrix(dl, 2*dr)
	for x := 0; x < dl; x++ {
		for ph := 0; ph < 2; ph++ {
			copy(m.data[x*2*dr+ph*dr:x*2*dr+(ph+1)*dr], a[ph].data[x*dr:(x+1)*dr])
		}
	}

	u, sv, v := svd(m)
	k := keepNonZero(sv)

	next := site{newMatrix(k, dr), newMatrix(k, dr)}
	for i := 0; i < k; i++ {
		for ph := 0; ph < 2; ph++ {
			for b := 0; b < dr; b++ {
				next[ph].set(i, b, conj(v.at(ph*dr+b, i)))
			}
		}
	}
	s.sites[j] = next

	// L = U S is pushed into the left neighbour.
	l := newMatrix(dl, k)
	for x := 0; x < dl; x++ {
		for i := 0; i < k; i++ {
			l.set(x, i, u.at(x, i)*complex(sv[i], 0))
		}
	}
	left := s.sites[j-1]
	s.sites[j-1] = site{mul(left[0], l), mul(left[1], l)}
}

func keepNonZero(sv []float64) int {
	k := 0
	for _, v := range sv {
		if v > svdFloor*sv[0] {
			k++
		}
	}
	if k == 0 {
		k = 1
	}
	return k
}

/*
truncate decides how many of the descending singular values sv survive a
split at the given bond. The smallest values are dropped while the squared weight
they carry, relative to the total, stays below the truncation threshold;
the bond is then capped at MaxBondDimension. The kept values are rescaled
in place so the norm of the state is preserved.
*/
func (s *MPS) truncate(sv []float64, bond int) int {
	var total float64
	for _, v := range sv {
		total += v * v
	}
	if total == 0 {
		return 1
	}

	k := keepNonZero(sv)

	var discarded float64
	for k > 1 {
		w := sv[k-1] * sv[k-1] / total
		if discarded+w >= s.opts.TruncationThreshold {
			break
		}
		discarded += w
		k--
	}

	if s.opts.MaxBondDimension > 0 && k > s.opts.MaxBondDimension {
		k = s.opts.MaxBondDimension
	}

	var kept float64
	for _, v := range sv[:k] {
		kept += v * v
	}
	if kept < total {
		scale := math.Sqrt(total / kept)
		for i := range sv[:k] {
			sv[i] *= scale
		}
		s.log.Debug(
			"truncated bond",
			"bond", bond, "kept", k, "of", len(sv), "weight", 1-kept/total,
		)
	}

	return k
}

func conj(v complex128) complex128 {
	return complex(real(v), -imag(v))
}
