package embedding

import (
	"fmt"
	"math/rand/v2"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/happyhackingspace/insincere/internal/vectorizer"
)

// Source describes one pretrained embedding file and the normal distribution
// used for tokens it does not cover.
type Source struct {
	Name string  `mapstructure:"name"`
	Path string  `mapstructure:"path"`
	Mean float64 `mapstructure:"mean"`
	Std  float64 `mapstructure:"std"`
}

// Fallback statistics of the two supported embedding files.
var (
	Glove = Source{Name: "glove", Path: "embeddings/glove.840B.300d/glove.840B.300d.txt", Mean: -0.00584, Std: 0.48782}
	Para  = Source{Name: "para", Path: "embeddings/paragram_300_sl999/paragram_300_sl999.txt", Mean: -0.005325, Std: 0.493465}
)

// DefaultSources is the concatenation order used when none is configured.
func DefaultSources() []Source {
	return []Source{Para, Glove}
}

// Report summarises how much of a vocabulary an embedding source covered.
type Report struct {
	Source      string
	Found       int
	Total       int
	ByTransform map[Transform]int
}

// Coverage returns Found/Total, or 0 for an empty vocabulary.
func (r Report) Coverage() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Found) / float64(r.Total)
}

// MarshalZerologObject lets a report be logged with Object.
func (r Report) MarshalZerologObject(e *zerolog.Event) {
	e.Str("source", r.Source).
		Int("found", r.Found).
		Int("total", r.Total).
		Float64("coverage", r.Coverage())
	for _, t := range Transforms {
		if n := r.ByTransform[t]; n > 0 {
			e.Int(t.String(), n)
		}
	}
}

// Random returns a rows×cols matrix drawn from N(mean, std).
func Random(rows, cols int, mean, std float64, src rand.Source) *mat.Dense {
	dist := distuv.Normal{Mu: mean, Sigma: std, Src: src}
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = dist.Rand()
	}
	return mat.NewDense(rows, cols, data)
}

// Align builds one row per vocabulary index. Every row starts random; a
// token's row is overwritten by the first transform whose result is in the
// table. The pad row keeps its random value and is not counted in the report.
func Align(vocab *vectorizer.Vocabulary, table *Table, source Source, src rand.Source) (*mat.Dense, Report) {
	weights := Random(vocab.Size(), table.Dim, source.Mean, source.Std, src)
	report := Report{
		Source:      source.Name,
		Total:       vocab.Size() - 1,
		ByTransform: make(map[Transform]int),
	}

	for i := 0; i < vocab.Size(); i++ {
		if i == vectorizer.PadIndex {
			continue
		}
		word := vocab.Token(i)
		for _, t := range Transforms {
			vec, ok := table.Lookup(t.Apply(word))
			if !ok {
				continue
			}
			weights.SetRow(i, vec)
			report.Found++
			report.ByTransform[t]++
			break
		}
	}
	return weights, report
}

// AlignFile streams source.Path, keeping only rows some vocabulary entry could
// match, and aligns the vocabulary against it.
func AlignFile(vocab *vectorizer.Vocabulary, source Source, src rand.Source) (*mat.Dense, Report, error) {
	keys := Candidates(vocab.Tokens()[1:])
	table, err := LoadTableFile(source.Path, func(tok string) bool {
		_, ok := keys[tok]
		return ok
	})
	if err != nil {
		return nil, Report{}, err
	}
	weights, report := Align(vocab, table, source, src)
	return weights, report, nil
}

// Concat joins matrices with the same row count along the feature axis.
func Concat(ms ...*mat.Dense) (*mat.Dense, error) {
	if len(ms) == 0 {
		return nil, fmt.Errorf("embedding: nothing to concatenate")
	}
	out := mat.DenseCopyOf(ms[0])
	for _, m := range ms[1:] {
		r, _ := out.Dims()
		if mr, _ := m.Dims(); mr != r {
			return nil, fmt.Errorf("embedding: concat %d rows with %d rows", r, mr)
		}
		var next mat.Dense
		next.Augment(out, m)
		out = &next
	}
	return out, nil
}
