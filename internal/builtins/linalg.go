package builtins

import (
	"math"

	"corelang/internal/errsys"
	"corelang/internal/value"
)

// No repository in the retrieval pack imports a linear-algebra library
// (no gonum, no BLAS/LAPACK cgo binding). These routines work directly
// against the Array's flat column-major Fast buffer with plain math,
// covering the square-matrix cases §4.9 names; the pack gives no ground
// to build anything more elaborate on.

func squareDims(v value.Value) (*value.Array, int, *errsys.Error) {
	if v.Tag != value.TagArray || len(v.Array().Shape) != 2 || v.Array().Shape[0] != v.Array().Shape[1] {
		return nil, 0, errsys.New(errsys.DomainError, "expected a square matrix", errsys.Span{})
	}
	a := v.Array()
	return a, a.Shape[0], nil
}

// toDense copies a's column-major storage into a row-major [][]float64 for
// readable Gaussian-elimination code.
func toDense(a *value.Array, n int) [][]float64 {
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			m[i][j] = a.Get(j*n + i).AsFloat64() // column-major: col j, row i -> index j*n+i
		}
	}
	return m
}

func denseToArray(m [][]float64) value.Value {
	n := len(m)
	a := value.NewArray(value.ElemF64, []int{n, n})
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			a.Set(j*n+i, value.Float64(m[i][j]))
		}
	}
	return value.MakeArray(a)
}

// luDecompose performs partial-pivot LU in place on m (callers pass a fresh
// toDense copy), returning the combined LU matrix and the row permutation.
func luDecompose(m [][]float64) ([][]float64, []int, int, *errsys.Error) {
	n := len(m)
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	swaps := 0
	for k := 0; k < n; k++ {
		piv, pivVal := k, math.Abs(m[k][k])
		for i := k + 1; i < n; i++ {
			if math.Abs(m[i][k]) > pivVal {
				piv, pivVal = i, math.Abs(m[i][k])
			}
		}
		if pivVal == 0 {
			return nil, nil, 0, errsys.New(errsys.DomainError, "matrix is singular", errsys.Span{})
		}
		if piv != k {
			m[k], m[piv] = m[piv], m[k]
			perm[k], perm[piv] = perm[piv], perm[k]
			swaps++
		}
		for i := k + 1; i < n; i++ {
			f := m[i][k] / m[k][k]
			m[i][k] = f
			for j := k + 1; j < n; j++ {
				m[i][j] -= f * m[k][j]
			}
		}
	}
	return m, perm, swaps, nil
}

func LU(v value.Value) (value.Value, *errsys.Error) {
	a, n, err := squareDims(v)
	if err != nil {
		return value.Nothing, err
	}
	lu, perm, _, derr := luDecompose(toDense(a, n))
	if derr != nil {
		return value.Nothing, derr
	}
	l := make([][]float64, n)
	u := make([][]float64, n)
	for i := 0; i < n; i++ {
		l[i] = make([]float64, n)
		u[i] = make([]float64, n)
		l[i][i] = 1
		for j := 0; j < n; j++ {
			if j < i {
				l[i][j] = lu[i][j]
			} else {
				u[i][j] = lu[i][j]
			}
		}
	}
	p := value.NewArray(value.ElemI64, []int{n})
	for i, idx := range perm {
		p.Set(i, value.Int64(int64(idx)+1))
	}
	return value.MakeTuple([]value.Value{denseToArray(l), denseToArray(u), value.MakeArray(p)}), nil
}

func Det(v value.Value) (value.Value, *errsys.Error) {
	a, n, err := squareDims(v)
	if err != nil {
		return value.Nothing, err
	}
	lu, _, swaps, derr := luDecompose(toDense(a, n))
	if derr != nil {
		return value.Float64(0), nil
	}
	det := 1.0
	for i := 0; i < n; i++ {
		det *= lu[i][i]
	}
	if swaps%2 == 1 {
		det = -det
	}
	return value.Float64(det), nil
}

// solveDense solves Ax = b for one right-hand-side column via the LU
// factors, applying the row permutation to b first.
func solveDense(lu [][]float64, perm []int, b []float64) []float64 {
	n := len(lu)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		sum := b[perm[i]]
		for j := 0; j < i; j++ {
			sum -= lu[i][j] * y[j]
		}
		y[i] = sum
	}
	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := y[i]
		for j := i + 1; j < n; j++ {
			sum -= lu[i][j] * x[j]
		}
		x[i] = sum / lu[i][i]
	}
	return x
}

func Solve(av, bv value.Value) (value.Value, *errsys.Error) {
	a, n, err := squareDims(av)
	if err != nil {
		return value.Nothing, err
	}
	if bv.Tag != value.TagArray || bv.Array().Len() != n {
		return value.Nothing, errsys.New(errsys.DomainError, "rhs vector length must match matrix size", errsys.Span{})
	}
	lu, perm, _, derr := luDecompose(toDense(a, n))
	if derr != nil {
		return value.Nothing, derr
	}
	b := make([]float64, n)
	for i := 0; i < n; i++ {
		b[i] = bv.Array().Get(i).AsFloat64()
	}
	x := solveDense(lu, perm, b)
	out := value.NewArray(value.ElemF64, []int{n})
	for i, xi := range x {
		out.Set(i, value.Float64(xi))
	}
	return value.MakeArray(out), nil
}

func Inv(v value.Value) (value.Value, *errsys.Error) {
	a, n, err := squareDims(v)
	if err != nil {
		return value.Nothing, err
	}
	lu, perm, _, derr := luDecompose(toDense(a, n))
	if derr != nil {
		return value.Nothing, derr
	}
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
	}
	for col := 0; col < n; col++ {
		e := make([]float64, n)
		e[col] = 1
		x := solveDense(lu, perm, e)
		for i := 0; i < n; i++ {
			out[i][col] = x[i]
		}
	}
	return denseToArray(out), nil
}

// QR uses classical Gram-Schmidt; adequate for the well-conditioned inputs
// the guest language's numeric examples exercise.
func QR(v value.Value) (value.Value, *errsys.Error) {
	a, n, err := squareDims(v)
	if err != nil {
		return value.Nothing, err
	}
	cols := make([][]float64, n)
	for j := 0; j < n; j++ {
		cols[j] = make([]float64, n)
		for i := 0; i < n; i++ {
			cols[j][i] = a.Get(j*n + i).AsFloat64()
		}
	}
	q := make([][]float64, n)
	r := make([][]float64, n)
	for i := range r {
		r[i] = make([]float64, n)
	}
	for j := 0; j < n; j++ {
		v := append([]float64(nil), cols[j]...)
		for k := 0; k < j; k++ {
			dot := 0.0
			for i := 0; i < n; i++ {
				dot += q[k][i] * cols[j][i]
			}
			r[k][j] = dot
			for i := 0; i < n; i++ {
				v[i] -= dot * q[k][i]
			}
		}
		norm := 0.0
		for _, x := range v {
			norm += x * x
		}
		norm = math.Sqrt(norm)
		r[j][j] = norm
		qi := make([]float64, n)
		if norm > 0 {
			for i := range v {
				qi[i] = v[i] / norm
			}
		}
		q[j] = qi
	}
	qOut := make([][]float64, n)
	for i := range qOut {
		qOut[i] = make([]float64, n)
	}
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			qOut[i][j] = q[j][i]
		}
	}
	return value.MakeTuple([]value.Value{denseToArray(qOut), denseToArray(r)}), nil
}

// Eigvals runs a fixed 500 iterations of the unshifted QR algorithm (there
// is no convergence test) and reads the eigenvalues off the resulting
// (near-)triangular diagonal - handles the real-spectrum case; does not
// attempt complex eigenvalue pairs.
func Eigvals(v value.Value) (value.Value, *errsys.Error) {
	a, n, err := squareDims(v)
	if err != nil {
		return value.Nothing, err
	}
	m := toDense(a, n)
	for iter := 0; iter < 500; iter++ {
		qr, derr := QR(denseToArray(m))
		if derr != nil {
			break
		}
		t := qr.Tuple().Elems
		q, r := t[0].Array(), t[1].Array()
		next := make([][]float64, n)
		for i := range next {
			next[i] = make([]float64, n)
		}
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				sum := 0.0
				for k := 0; k < n; k++ {
					sum += r.Get(k*n+i).AsFloat64() * q.Get(j*n+k).AsFloat64()
				}
				next[i][j] = sum
			}
		}
		m = next
	}
	out := value.NewArray(value.ElemF64, []int{n})
	for i := 0; i < n; i++ {
		out.Set(i, value.Float64(m[i][i]))
	}
	return value.MakeArray(out), nil
}

func Cholesky(v value.Value) (value.Value, *errsys.Error) {
	a, n, err := squareDims(v)
	if err != nil {
		return value.Nothing, err
	}
	m := toDense(a, n)
	l := make([][]float64, n)
	for i := range l {
		l[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			sum := m[i][j]
			for k := 0; k < j; k++ {
				sum -= l[i][k] * l[j][k]
			}
			if i == j {
				if sum <= 0 {
					return value.Nothing, errsys.New(errsys.DomainError, "matrix is not positive definite", errsys.Span{})
				}
				l[i][j] = math.Sqrt(sum)
			} else {
				l[i][j] = sum / l[j][j]
			}
		}
	}
	return denseToArray(l), nil
}

func Rank(v value.Value) (value.Value, *errsys.Error) {
	a, n, err := squareDims(v)
	if err != nil {
		return value.Nothing, err
	}
	m := toDense(a, n)
	rank := 0
	const eps = 1e-9
	for col, row := 0, 0; col < n && row < n; col++ {
		piv := row
		for i := row + 1; i < n; i++ {
			if math.Abs(m[i][col]) > math.Abs(m[piv][col]) {
				piv = i
			}
		}
		if math.Abs(m[piv][col]) < eps {
			continue
		}
		m[row], m[piv] = m[piv], m[row]
		for i := row + 1; i < n; i++ {
			f := m[i][col] / m[row][col]
			for j := col; j < n; j++ {
				m[i][j] -= f * m[row][j]
			}
		}
		row++
		rank++
	}
	return value.Int64(int64(rank)), nil
}

func Cond(v value.Value) (value.Value, *errsys.Error) {
	a, n, err := squareDims(v)
	if err != nil {
		return value.Nothing, err
	}
	normA := matrixOneNorm(toDense(a, n))
	invV, ierr := Inv(v)
	if ierr != nil {
		return value.Float64(math.Inf(1)), nil
	}
	normInv := matrixOneNorm(toDense(invV.Array(), n))
	return value.Float64(normA * normInv), nil
}

func matrixOneNorm(m [][]float64) float64 {
	n := len(m)
	max := 0.0
	for j := 0; j < n; j++ {
		sum := 0.0
		for i := 0; i < n; i++ {
			sum += math.Abs(m[i][j])
		}
		if sum > max {
			max = sum
		}
	}
	return max
}
