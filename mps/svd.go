package mps

import (
	"math"
	"math/cmplx"
	"sort"
)

const (
	svdMaxSweeps = 64
	svdTolerance = 1e-15
)

/*
svd computes the thin singular value decomposition a = u diag(s) v^H with
one-sided (Hestenes) Jacobi rotations. For an m x n input, u is m x k,
v is n x k and s has k = min(m, n) entries in descending order.

Columns of u that belong to a zero singular value are left zero. Callers
always drop those before using u.
*/
func svd(a *matrix) (*matrix, []float64, *matrix) {
	if a.rows < a.cols {
		u, s, v := svd(a.dagger())
		return v, s, u
	}

	m, n := a.rows, a.cols
	w := a.clone()
	v := identity(n)

	for sweep := 0; sweep < svdMaxSweeps; sweep++ {
		rotated := false

		for p := 0; p < n-1; p++ {
			for q := p + 1; q < n; q++ {
				var alpha, beta float64
				var gamma complex128

				for i := 0; i < m; i++ {
					xp, xq := w.data[i*n+p], w.data[i*n+q]
					alpha += real(xp)*real(xp) + imag(xp)*imag(xp)
					beta += real(xq)*real(xq) + imag(xq)*imag(xq)
					gamma += cmplx.Conj(xp) * xq
				}

				g := cmplx.Abs(gamma)
				if g == 0 || g <= svdTolerance*math.Sqrt(alpha*beta) {
					continue
				}
				rotated = true

				zeta := (beta - alpha) / (2 * g)
				t := 1 / (math.Abs(zeta) + math.Sqrt(1+zeta*zeta))
				if zeta < 0 {
					t = -t
				}
				c := 1 / math.Sqrt(1+t*t)
				s := c * t

				// Rotating conj(phase)*column q makes the overlap real.
				phase := cmplx.Conj(gamma / complex(g, 0))
				rotate(w, m, n, p, q, c, s, phase)
				rotate(v, n, n, p, q, c, s, phase)
			}
		}

		if !rotated {
			break
		}
	}

	sv := make([]float64, n)
	for j := 0; j < n; j++ {
		var norm float64
		for i := 0; i < m; i++ {
			x := w.data[i*n+j]
			norm += real(x)*real(x) + imag(x)*imag(x)
		}
		sv[j] = math.Sqrt(norm)
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return sv[order[i]] > sv[order[j]] })

	u := newMatrix(m, n)
	vs := newMatrix(n, n)
	s := make([]float64, n)

	for k, j := range order {
		s[k] = sv[j]
		if sv[j] > 0 {
			inv := complex(1/sv[j], 0)
			for i := 0; i < m; i++ {
				u.data[i*n+k] = w.data[i*n+j] * inv
			}
		}
		for i := 0; i < n; i++ {
			vs.data[i*n+k] = v.data[i*n+j]
		}
	}

	return u, s, vs
}

func rotate(x *matrix, rows, cols, p, q int, c, s float64, phase complex128) {
	cc, ss := complex(c, 0), complex(s, 0)
	for i := 0; i < rows; i++ {
		xp := x.data[i*cols+p]
		xq := phase * x.data[i*cols+q]
		x.data[i*cols+p] = cc*xp - ss*xq
		x.data[i*cols+q] = ss*xp + cc*xq
	}
}
