package rnn

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Tensor is a serialisable row-major matrix.
type Tensor struct {
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float64 `json:"data"`
}

// State maps parameter names to their values.
type State map[string]Tensor

func tensorOf(m *mat.Dense) Tensor {
	r, c := m.Dims()
	data := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		data = append(data, m.RawRowView(i)...)
	}
	return Tensor{Rows: r, Cols: c, Data: data}
}

func (m *Model) trainable() []*param {
	if !m.cfg.TrainEmbedding {
		return m.params
	}
	return append(m.params[:len(m.params):len(m.params)], m.embedding)
}

// State returns a copy of every trainable parameter. A frozen embedding is
// not part of the state.
func (m *Model) State() State {
	s := make(State, len(m.params)+1)
	for _, p := range m.trainable() {
		s[p.name] = tensorOf(p.w)
	}
	return s
}

// SetState restores parameters saved by State on a model built with the same
// configuration and embedding shape.
func (m *Model) SetState(s State) error {
	params := m.trainable()
	if len(s) != len(params) {
		return fmt.Errorf("%w: state has %d tensors, model has %d", ErrShape, len(s), len(params))
	}
	for _, p := range params {
		t, ok := s[p.name]
		if !ok {
			return fmt.Errorf("%w: state lacks %q", ErrShape, p.name)
		}
		r, c := p.w.Dims()
		if t.Rows != r || t.Cols != c || len(t.Data) != r*c {
			return fmt.Errorf("%w: %q is %dx%d, want %dx%d", ErrShape, p.name, t.Rows, t.Cols, r, c)
		}
	}
	for _, p := range params {
		t := s[p.name]
		p.w.Copy(mat.NewDense(t.Rows, t.Cols, t.Data))
	}
	return nil
}
