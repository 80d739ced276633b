package qmps

type averageKind int

const (
	averageNone averageKind = iota
	averageScalar
	averageKet
	averageMatrix
)

/*
average keeps the first and second raw moments of a snapshot value so
that the mean and the variance E[x^2] - E[x]^2 can be read at any time
and two accumulators can be merged exactly. Squares are element-wise.
*/
type average struct {
	variance bool
	kind     averageKind
	count    int

	scalar, scalarSq complex128
	ket, ketSq       map[string]float64
	mat, matSq       [][]complex128
}

func (a *average) add(value any) {
	switch v := value.(type) {
	case float64:
		a.add(complex(v, 0))
		return
	case complex128:
		a.kind = averageScalar
		a.scalar += v
		a.scalarSq += v * v
	case map[string]float64:
		a.kind = averageKet
		if a.ket == nil {
			a.ket, a.ketSq = make(map[string]float64), make(map[string]float64)
		}
		for k, p := range v {
			a.ket[k] += p
			a.ketSq[k] += p * p
		}
	case [][]complex128:
		a.kind = averageMatrix
		if a.mat == nil {
			a.mat, a.matSq = zerosLike(v), zerosLike(v)
		}
		for i, row := range v {
			for j, x := range row {
				a.mat[i][j] += x
				a.matSq[i][j] += x * x
			}
		}
	default:
		return
	}
	a.count++
}

func (a *average) merge(o *average) {
	if o.count == 0 {
		return
	}
	a.kind = o.kind
	a.count += o.count
	a.scalar += o.scalar
	a.scalarSq += o.scalarSq

	if o.ket != nil {
		if a.ket == nil {
			a.ket, a.ketSq = make(map[string]float64), make(map[string]float64)
		}
		for k := range o.ket {
			a.ket[k] += o.ket[k]
			a.ketSq[k] += o.ketSq[k]
		}
	}

	if o.mat != nil {
		if a.mat == nil {
			a.mat, a.matSq = zerosLike(o.mat), zerosLike(o.mat)
		}
		for i := range o.mat {
			for j := range o.mat[i] {
				a.mat[i][j] += o.mat[i][j]
				a.matSq[i][j] += o.matSq[i][j]
			}
		}
	}
}

func (a *average) mean() any {
	n := float64(max(a.count, 1))
	switch a.kind {
	case averageScalar:
		return a.scalar / complex(n, 0)
	case averageKet:
		out := make(map[string]float64, len(a.ket))
		for k, p := range a.ket {
			out[k] = p / n
		}
		return out
	case averageMatrix:
		out := zerosLike(a.mat)
		for i := range a.mat {
			for j := range a.mat[i] {
				out[i][j] = a.mat[i][j] / complex(n, 0)
			}
		}
		return out
	}
	return nil
}

func (a *average) spread() any {
	n := float64(max(a.count, 1))
	switch a.kind {
	case averageScalar:
		m := a.scalar / complex(n, 0)
		return a.scalarSq/complex(n, 0) - m*m
	case averageKet:
		out := make(map[string]float64, len(a.ket))
		for k, p := range a.ket {
			m := p / n
			out[k] = a.ketSq[k]/n - m*m
		}
		return out
	case averageMatrix:
		out := zerosLike(a.mat)
		for i := range a.mat {
			for j := range a.mat[i] {
				m := a.mat[i][j] / complex(n, 0)
				out[i][j] = a.matSq[i][j]/complex(n, 0) - m*m
			}
		}
		return out
	}
	return nil
}

func zerosLike(m [][]complex128) [][]complex128 {
	out := make([][]complex128, len(m))
	for i := range m {
		out[i] = make([]complex128, len(m[i]))
	}
	return out
}
