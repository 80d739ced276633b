package mps

/*
block is the contraction of a contiguous run of sites lo..hi into a single
tensor of shape dl x p x dr, with p = 2^(hi-lo+1). Within the physical
index the leftmost site is the most significant bit.
*/
type block struct {
	dl, p, dr int
	data      []complex128
}

func (b *block) index(a, ph, c int) int {
	return (a*b.p+ph)*b.dr + c
}

func (b *block) clone() *block {
	out := &block{dl: b.dl, p: b.p, dr: b.dr, data: make([]complex128, len(b.data))}
	copy(out.data, b.data)
	return out
}

func (b *block) norm2() float64 {
	var sum float64
	for _, v := range b.data {
		sum += real(v)*real(v) + imag(v)*imag(v)
	}
	return sum
}

func (b *block) scale(v complex128) {
	for i := range b.data {
		b.data[i] *= v
	}
}

// contract multiplies sites lo..hi into a block. It does not modify s.
func (s *MPS) contract(lo, hi int) *block {
	first := s.sites[lo]
	dl, dr := first[0].rows, first[0].cols

	t := &block{dl: dl, p: 2, dr: dr, data: make([]complex128, dl*2*dr)}
	for a := 0; a < dl; a++ {
		for ph := 0; ph < 2; ph++ {
			copy(t.data[t.index(a, ph, 0):t.index(a, ph, 0)+dr], first[ph].data[a*dr:(a+1)*dr])
		}
	}

	for j := lo + 1; j <= hi; j++ {
		next := s.sites[j]
		ndr := next[0].cols
		nt := &block{dl: dl, p: t.p * 2, dr: ndr, data: make([]complex128, dl*t.p*2*ndr)}

		s.parallelFor(dl, func(a int) {
			for ph := 0; ph < t.p; ph++ {
				for c := 0; c < 2; c++ {
					out := nt.data[nt.index(a, ph*2+c, 0) : nt.index(a, ph*2+c, 0)+ndr]
					for b := 0; b < t.dr; b++ {
						v := t.data[t.index(a, ph, b)]
						if v == 0 {
							continue
						}
						row := next[c].data[b*ndr : (b+1)*ndr]
						for x, w := range row {
							out[x] += v * w
						}
					}
				}
			}
		})
		t = nt
	}

	return t
}

/*
split writes block t back into sites lo..hi with a left-to-right sweep of
SVDs, truncating every new bond. Sites lo..hi-1 end up left-normalized and
the orthogonality centre moves to hi. The caller must have placed the
centre inside lo..hi so the singular values are Schmidt coefficients.
*/
func (s *MPS) split(lo, hi int, t *block) {
	cur := t

	for j := lo; j < hi; j++ {
		rest := cur.p / 2

		m := newMatrix(cur.dl*2, rest*cur.dr)
		for a := 0; a < cur.dl; a++ {
			for top := 0; top < 2; top++ {
				src := cur.data[cur.index(a, top*rest, 0) : cur.index(a, top*rest, 0)+rest*cur.dr]
				copy(m.data[(a*2+top)*m.cols:(a*2+top+1)*m.cols], src)
			}
		}

		u, sv, v := svd(m)
		k := s.truncate(sv, j)

		next := site{newMatrix(cur.dl, k), newMatrix(cur.dl, k)}
		for a := 0; a < cur.dl; a++ {
			for top := 0; top < 2; top++ {
				for i := 0; i < k; i++ {
					next[top].set(a, i, u.at(a*2+top, i))
				}
			}
		}
		s.sites[j] = next

		rem := &block{dl: k, p: rest, dr: cur.dr, data: make([]complex128, k*rest*cur.dr)}
		for i := 0; i < k; i++ {
			si := complex(sv[i], 0)
			for col := 0; col < rest*cur.dr; col++ {
				rem.data[i*rest*cur.dr+col] = si * conj(v.at(col, i))
			}
		}
		cur = rem
	}

	last := site{newMatrix(cur.dl, cur.dr), newMatrix(cur.dl, cur.dr)}
	for a := 0; a < cur.dl; a++ {
		for ph := 0; ph < 2; ph++ {
			copy(last[ph].data[a*cur.dr:(a+1)*cur.dr], cur.data[cur.index(a, ph, 0):cur.index(a, ph, 0)+cur.dr])
		}
	}
	s.sites[hi] = last
	s.center = hi
}

/*
offsets maps every local operator index g to the physical block index it
touches. Bit i of g belongs to qubits[i]; site q sits at bit hi-q of the
block index.
*/
func offsets(qubits []int, hi int) ([]int, int) {
	dim := 1 << len(qubits)
	offs := make([]int, dim)
	mask := 0
	for g := 0; g < dim; g++ {
		for i, q := range qubits {
			if g>>i&1 == 1 {
				offs[g] |= 1 << (hi - q)
			}
		}
	}
	for _, q := range qubits {
		mask |= 1 << (hi - q)
	}
	return offs, mask
}

// applyOperator multiplies op onto the qubits of block t in place.
func (s *MPS) applyOperator(t *block, qubits []int, hi int, op *matrix) {
	offs, mask := offsets(qubits, hi)
	dim := len(offs)

	s.parallelFor(t.dl, func(a int) {
		in := make([]complex128, dim)
		for c := 0; c < t.dr; c++ {
			for base := 0; base < t.p; base++ {
				if base&mask != 0 {
					continue
				}
				for g, off := range offs {
					in[g] = t.data[t.index(a, base|off, c)]
				}
				for g, off := range offs {
					var sum complex128
					row := op.data[g*dim : (g+1)*dim]
					for h, x := range row {
						sum += x * in[h]
					}
					t.data[t.index(a, base|off, c)] = sum
				}
			}
		}
	})
}

func (s *MPS) applyDiagonal(t *block, qubits []int, hi int, diag []complex128) {
	offs, mask := offsets(qubits, hi)

	s.parallelFor(t.dl, func(a int) {
		for c := 0; c < t.dr; c++ {
			for base := 0; base < t.p; base++ {
				if base&mask != 0 {
					continue
				}
				for g, off := range offs {
					t.data[t.index(a, base|off, c)] *= diag[g]
				}
			}
		}
	})
}
