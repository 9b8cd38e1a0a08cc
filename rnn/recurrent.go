package rnn

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// direction holds the weights of one recurrent pass. Projections use the
// row-vector convention: gates = x·wx + h·wh + b.
type direction struct {
	wx *param // in × G·H
	wh *param // H × G·H
	b  *param // 1 × G·H
	bh *param // 1 × G·H, GRU only
}

// dirCache keeps what one pass over one sequence needs for back-propagation.
// Slices indexed by step follow processing order; gx rows follow time order.
type dirCache struct {
	steps   int
	reverse bool
	gx      *mat.Dense
	h       [][]float64 // steps+1 states, h[0] is the zero initial state
	c       [][]float64 // LSTM cell states, same layout as h
	act     [][]float64 // activated gates
	ghn     [][]float64 // GRU: h·whn + bhn before the reset gate
}

func (c *dirCache) timeAt(step int) int {
	if c.reverse {
		return c.steps - 1 - step
	}
	return step
}

// output returns the hidden state emitted at time t.
func (c *dirCache) output(t int) []float64 {
	if c.reverse {
		return c.h[c.steps-t]
	}
	return c.h[t+1]
}

// forward runs the cell over the rows of x, which hold only the valid
// (unpadded) time steps of one sequence.
func (d *direction) forward(kind CellKind, hidden int, x *mat.Dense, reverse bool) *dirCache {
	steps, _ := x.Dims()
	width := kind.gates() * hidden

	c := &dirCache{steps: steps, reverse: reverse}
	c.gx = mat.NewDense(steps, width, nil)
	c.gx.Mul(x, d.wx.w)
	bias := d.b.w.RawRowView(0)
	for t := 0; t < steps; t++ {
		floats.Add(c.gx.RawRowView(t), bias)
	}

	c.h = make([][]float64, steps+1)
	c.h[0] = make([]float64, hidden)
	c.act = make([][]float64, steps)
	switch kind {
	case LSTM:
		c.c = make([][]float64, steps+1)
		c.c[0] = make([]float64, hidden)
	case GRU:
		c.ghn = make([][]float64, steps)
	}

	rec := make([]float64, width)
	recVec := mat.NewVecDense(width, rec)
	for s := 0; s < steps; s++ {
		hprev := c.h[s]
		recVec.MulVec(d.wh.w.T(), mat.NewVecDense(hidden, hprev))

		a := make([]float64, width)
		copy(a, c.gx.RawRowView(c.timeAt(s)))
		h := make([]float64, hidden)

		switch kind {
		case LSTM:
			floats.Add(a, rec)
			cell := make([]float64, hidden)
			for j := 0; j < hidden; j++ {
				i := Sigmoid(a[j])
				f := Sigmoid(a[hidden+j])
				g := math.Tanh(a[2*hidden+j])
				o := Sigmoid(a[3*hidden+j])
				a[j], a[hidden+j], a[2*hidden+j], a[3*hidden+j] = i, f, g, o
				cell[j] = f*c.c[s][j] + i*g
				h[j] = o * math.Tanh(cell[j])
			}
			c.c[s+1] = cell
		case GRU:
			floats.Add(rec, d.bh.w.RawRowView(0))
			ghn := make([]float64, hidden)
			copy(ghn, rec[2*hidden:])
			for j := 0; j < hidden; j++ {
				r := Sigmoid(a[j] + rec[j])
				z := Sigmoid(a[hidden+j] + rec[hidden+j])
				n := math.Tanh(a[2*hidden+j] + r*ghn[j])
				a[j], a[hidden+j], a[2*hidden+j] = r, z, n
				h[j] = (1-z)*n + z*hprev[j]
			}
			c.ghn[s] = ghn
		case RNN:
			floats.Add(a, rec)
			for j := range h {
				h[j] = math.Tanh(a[j])
				a[j] = h[j]
			}
		}
		c.act[s] = a
		c.h[s+1] = h
	}
	return c
}

// backward accumulates this direction's parameter gradients into g, given
// dout, the loss gradient for the hidden state emitted at each time step.
// When needInput is set it returns the gradient for the rows of x.
func (d *direction) backward(kind CellKind, hidden int, x *mat.Dense, c *dirCache, dout [][]float64, g *gradSet, needInput bool) *mat.Dense {
	width := kind.gates() * hidden
	dgx := mat.NewDense(c.steps, width, nil)
	dwh := g.of(d.wh)

	dhNext := make([]float64, hidden)
	dcNext := make([]float64, hidden)
	dh := make([]float64, hidden)
	drec := make([]float64, width)
	dhPrev := mat.NewVecDense(hidden, nil)

	for s := c.steps - 1; s >= 0; s-- {
		t := c.timeAt(s)
		copy(dh, dout[t])
		floats.Add(dh, dhNext)

		a := c.act[s]
		hprev := c.h[s]
		da := dgx.RawRowView(t)

		switch kind {
		case LSTM:
			for j := 0; j < hidden; j++ {
				i, f, gg, o := a[j], a[hidden+j], a[2*hidden+j], a[3*hidden+j]
				tc := math.Tanh(c.c[s+1][j])
				dc := dh[j]*o*(1-tc*tc) + dcNext[j]
				da[j] = dc * gg * i * (1 - i)
				da[hidden+j] = dc * c.c[s][j] * f * (1 - f)
				da[2*hidden+j] = dc * i * (1 - gg*gg)
				da[3*hidden+j] = dh[j] * tc * o * (1 - o)
				dcNext[j] = dc * f
			}
			copy(drec, da)
		case GRU:
			for j := 0; j < hidden; j++ {
				r, z, n := a[j], a[hidden+j], a[2*hidden+j]
				dn := dh[j] * (1 - z) * (1 - n*n)
				dz := dh[j] * (hprev[j] - n) * z * (1 - z)
				dr := dn * c.ghn[s][j] * r * (1 - r)
				da[j], da[hidden+j], da[2*hidden+j] = dr, dz, dn
				drec[j], drec[hidden+j], drec[2*hidden+j] = dr, dz, dn*r
			}
			floats.Add(g.of(d.bh).RawRowView(0), drec)
		case RNN:
			for j := 0; j < hidden; j++ {
				da[j] = dh[j] * (1 - a[j]*a[j])
			}
			copy(drec, da)
		}

		drecVec := mat.NewVecDense(width, drec)
		dwh.RankOne(dwh, 1, mat.NewVecDense(hidden, hprev), drecVec)
		dhPrev.MulVec(d.wh.w, drecVec)
		copy(dhNext, dhPrev.RawVector().Data)
		if kind == GRU {
			for j := 0; j < hidden; j++ {
				dhNext[j] += dh[j] * a[hidden+j]
			}
		}
	}

	var dwx mat.Dense
	dwx.Mul(x.T(), dgx)
	gwx := g.of(d.wx)
	gwx.Add(gwx, &dwx)

	db := g.of(d.b).RawRowView(0)
	for t := 0; t < c.steps; t++ {
		floats.Add(db, dgx.RawRowView(t))
	}

	if !needInput {
		return nil
	}
	var dx mat.Dense
	dx.Mul(dgx, d.wx.w.T())
	return &dx
}
