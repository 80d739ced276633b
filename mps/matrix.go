package mps

import "math/cmplx"

// matrix is a dense row-major complex matrix.
type matrix struct {
	rows int
	cols int
	data []complex128
}

func newMatrix(rows, cols int) *matrix {
	return &matrix{rows: rows, cols: cols, data: make([]complex128, rows*cols)}
}

func identity(n int) *matrix {
	m := newMatrix(n, n)
	for i := 0; i < n; i++ {
		m.data[i*n+i] = 1
	}
	return m
}

func scalar(v complex128) *matrix {
	m := newMatrix(1, 1)
	m.data[0] = v
	return m
}

func (m *matrix) at(i, j int) complex128 {
	return m.data[i*m.cols+j]
}

func (m *matrix) set(i, j int, v complex128) {
	m.data[i*m.cols+j] = v
}

func (m *matrix) clone() *matrix {
	out := &matrix{rows: m.rows, cols: m.cols, data: make([]complex128, len(m.data))}
	copy(out.data, m.data)
	return out
}

func (m *matrix) dagger() *matrix {
	out := newMatrix(m.cols, m.rows)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			out.data[j*m.rows+i] = cmplx.Conj(m.data[i*m.cols+j])
		}
	}
	return out
}

func (m *matrix) scale(v complex128) {
	for i := range m.data {
		m.data[i] *= v
	}
}

// frobenius2 is the squared Frobenius norm.
func (m *matrix) frobenius2() float64 {
	var sum float64
	for _, v := range m.data {
		sum += real(v)*real(v) + imag(v)*imag(v)
	}
	return sum
}

func mul(a, b *matrix) *matrix {
	out := newMatrix(a.rows, b.cols)
	for i := 0; i < a.rows; i++ {
		row := out.data[i*b.cols : (i+1)*b.cols]
		for k := 0; k < a.cols; k++ {
			aik := a.data[i*a.cols+k]
			if aik == 0 {
				continue
			}
			brow := b.data[k*b.cols : (k+1)*b.cols]
			for j, bkj := range brow {
				row[j] += aik * bkj
			}
		}
	}
	return out
}

// sandwich returns a^H e b, the transfer step of a bra/ket contraction.
func sandwich(a, e, b *matrix) *matrix {
	return mul(a.dagger(), mul(e, b))
}

func addInto(dst, src *matrix, coeff complex128) {
	for i, v := range src.data {
		dst.data[i] += coeff * v
	}
}

// fromRows copies a caller-supplied [][]complex128 into a matrix. It
// reports false when the rows are ragged.
func fromRows(rows [][]complex128) (*matrix, bool) {
	if len(rows) == 0 {
		return newMatrix(0, 0), true
	}
	m := newMatrix(len(rows), len(rows[0]))
	for i, row := range rows {
		if len(row) != m.cols {
			return nil, false
		}
		copy(m.data[i*m.cols:], row)
	}
	return m, true
}

func (m *matrix) toRows() [][]complex128 {
	out := make([][]complex128, m.rows)
	for i := range out {
		out[i] = make([]complex128, m.cols)
		copy(out[i], m.data[i*m.cols:(i+1)*m.cols])
	}
	return out
}
