// Package rnn implements a small bidirectional recurrent text classifier on
// gonum matrices: packed LSTM, GRU or tanh recurrence, mean and max pooling,
// a ReLU projection with dropout and a single-logit output, trained with
// back-propagation through time and Adam.
package rnn

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrShape is returned when inputs or restored state do not fit the model.
var ErrShape = errors.New("rnn: shape mismatch")

// CellKind selects the recurrent cell.
type CellKind int

const (
	LSTM CellKind = iota
	GRU
	RNN
)

// ParseCellKind resolves a cell name case-insensitively.
func ParseCellKind(s string) (CellKind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LSTM":
		return LSTM, nil
	case "GRU":
		return GRU, nil
	case "RNN":
		return RNN, nil
	}
	return 0, fmt.Errorf("rnn: unknown cell type %q (want LSTM, GRU or RNN)", s)
}

func (k CellKind) String() string {
	switch k {
	case LSTM:
		return "LSTM"
	case GRU:
		return "GRU"
	case RNN:
		return "RNN"
	}
	return fmt.Sprintf("CellKind(%d)", int(k))
}

// gates is the number of H-sized blocks in the cell's projections.
func (k CellKind) gates() int {
	switch k {
	case LSTM:
		return 4
	case GRU:
		return 3
	}
	return 1
}

// Sigmoid is the logistic function.
func Sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

// bceWithLogits is binary cross-entropy on a raw logit.
func bceWithLogits(z, y float64) float64 {
	return math.Max(z, 0) - z*y + math.Log1p(math.Exp(-math.Abs(z)))
}
