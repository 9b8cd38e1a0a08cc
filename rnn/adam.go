package rnn

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Adam is the Adam optimiser with bias correction.
type Adam struct {
	LR    float64
	Beta1 float64
	Beta2 float64
	Eps   float64

	t    int
	m, v map[*mat.Dense][]float64
}

// NewAdam returns an optimiser with the usual β1=0.9, β2=0.999, ε=1e-8.
func NewAdam(lr float64) *Adam {
	return &Adam{
		LR:    lr,
		Beta1: 0.9,
		Beta2: 0.999,
		Eps:   1e-8,
		m:     make(map[*mat.Dense][]float64),
		v:     make(map[*mat.Dense][]float64),
	}
}

func (a *Adam) moments(w *mat.Dense) ([]float64, []float64) {
	m, ok := a.m[w]
	if !ok {
		r, c := w.Dims()
		m = make([]float64, r*c)
		a.m[w] = m
		a.v[w] = make([]float64, r*c)
	}
	return m, a.v[w]
}

// Step applies one update of every parameter from its dense gradient and
// advances the step counter.
func (a *Adam) Step(params []*param, grads []*mat.Dense) {
	a.t++
	c1 := 1 - math.Pow(a.Beta1, float64(a.t))
	c2 := 1 - math.Pow(a.Beta2, float64(a.t))
	for i, p := range params {
		w := p.w.RawMatrix().Data
		g := grads[i].RawMatrix().Data
		m, v := a.moments(p.w)
		for j := range w {
			a.update(w, m, v, g, j, c1, c2)
		}
	}
}

// StepRows updates only the listed rows of w, using the step counter of the
// preceding Step call. Rows without a gradient keep their moments untouched.
func (a *Adam) StepRows(w *mat.Dense, rows map[int][]float64) {
	c1 := 1 - math.Pow(a.Beta1, float64(a.t))
	c2 := 1 - math.Pow(a.Beta2, float64(a.t))
	m, v := a.moments(w)
	raw := w.RawMatrix()
	for row, g := range rows {
		off := row * raw.Stride
		for j := range g {
			a.update(raw.Data[off:], m[off:], v[off:], g, j, c1, c2)
		}
	}
}

func (a *Adam) update(w, m, v, g []float64, j int, c1, c2 float64) {
	m[j] = a.Beta1*m[j] + (1-a.Beta1)*g[j]
	v[j] = a.Beta2*v[j] + (1-a.Beta2)*g[j]*g[j]
	w[j] -= a.LR * (m[j] / c1) / (math.Sqrt(v[j]/c2) + a.Eps)
}
