package rnn

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/sourcegraph/conc/iter"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// chunkSize is the number of examples one worker handles per batch. It is
// fixed so gradient sums are reduced in the same order on every machine.
const chunkSize = 16

// Config describes one model instance.
type Config struct {
	Kind           CellKind
	Hidden         int
	Bidirectional  bool
	Dropout        float64
	TrainEmbedding bool
	LearningRate   float64
	Seed           uint64
}

// DefaultConfig mirrors the reference hyper-parameters.
func DefaultConfig() Config {
	return Config{
		Kind:          LSTM,
		Hidden:        60,
		Bidirectional: true,
		Dropout:       0.3,
		LearningRate:  0.001,
		Seed:          1234,
	}
}

type param struct {
	name string
	w    *mat.Dense
	idx  int // position in Model.params, -1 for the embedding
}

// Model is a recurrent classifier producing one logit per sequence.
// It is not safe for concurrent use.
type Model struct {
	cfg    Config
	in     int
	hidden int
	dims   int // hidden × directions

	embedding *param
	dirs      []*direction
	linearW   *param // 2·dims × dims
	linearB   *param
	fcW       *param // dims × 1
	fcB       *param

	params []*param
	opt    *Adam
	rng    *rand.Rand
}

// New builds a freshly initialised model on top of embedding. The matrix is
// shared read-only unless cfg.TrainEmbedding is set, in which case it is copied.
func New(cfg Config, embedding *mat.Dense) (*Model, error) {
	if embedding == nil {
		return nil, fmt.Errorf("%w: nil embedding", ErrShape)
	}
	if cfg.Hidden < 1 {
		return nil, fmt.Errorf("%w: hidden size %d", ErrShape, cfg.Hidden)
	}
	if cfg.Dropout < 0 || cfg.Dropout >= 1 {
		return nil, fmt.Errorf("rnn: dropout %v outside [0, 1)", cfg.Dropout)
	}
	if cfg.Kind < LSTM || cfg.Kind > RNN {
		return nil, fmt.Errorf("rnn: unknown cell kind %d", int(cfg.Kind))
	}

	_, in := embedding.Dims()
	m := &Model{
		cfg:    cfg,
		in:     in,
		hidden: cfg.Hidden,
		rng:    rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
	}

	ndir := 1
	if cfg.Bidirectional {
		ndir = 2
	}
	m.dims = cfg.Hidden * ndir

	width := cfg.Kind.gates() * cfg.Hidden
	bound := 1 / math.Sqrt(float64(cfg.Hidden))
	for _, prefix := range []string{"fwd", "bwd"}[:ndir] {
		d := &direction{
			wx: m.newParam(prefix+".wx", in, width, bound),
			wh: m.newParam(prefix+".wh", cfg.Hidden, width, bound),
			b:  m.newParam(prefix+".b", 1, width, bound),
		}
		if cfg.Kind == GRU {
			d.bh = m.newParam(prefix+".bh", 1, width, bound)
		}
		m.dirs = append(m.dirs, d)
	}

	linBound := 1 / math.Sqrt(float64(2*m.dims))
	m.linearW = m.newParam("linear.w", 2*m.dims, m.dims, linBound)
	m.linearB = m.newParam("linear.b", 1, m.dims, linBound)
	fcBound := 1 / math.Sqrt(float64(m.dims))
	m.fcW = m.newParam("fc.w", m.dims, 1, fcBound)
	m.fcB = m.newParam("fc.b", 1, 1, fcBound)

	m.embedding = &param{name: "embedding", w: embedding, idx: -1}
	if cfg.TrainEmbedding {
		m.embedding.w = mat.DenseCopyOf(embedding)
	}

	m.opt = NewAdam(cfg.LearningRate)
	return m, nil
}

func (m *Model) newParam(name string, rows, cols int, bound float64) *param {
	dist := distuv.Uniform{Min: -bound, Max: bound, Src: m.rng}
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = dist.Rand()
	}
	p := &param{name: name, w: mat.NewDense(rows, cols, data), idx: len(m.params)}
	m.params = append(m.params, p)
	return p
}

// Config returns the configuration the model was built with.
func (m *Model) Config() Config {
	return m.cfg
}

// gradSet holds gradients for every trainable parameter of one model.
type gradSet struct {
	g   []*mat.Dense
	emb map[int][]float64 // sparse embedding rows, only when trainable
}

func (m *Model) newGrads() *gradSet {
	gs := &gradSet{g: make([]*mat.Dense, len(m.params))}
	for i, p := range m.params {
		r, c := p.w.Dims()
		gs.g[i] = mat.NewDense(r, c, nil)
	}
	if m.cfg.TrainEmbedding {
		gs.emb = make(map[int][]float64)
	}
	return gs
}

func (g *gradSet) of(p *param) *mat.Dense {
	return g.g[p.idx]
}

func (g *gradSet) add(o *gradSet) {
	for i := range g.g {
		g.g[i].Add(g.g[i], o.g[i])
	}
	for row, v := range o.emb {
		if cur, ok := g.emb[row]; ok {
			floats.Add(cur, v)
		} else {
			g.emb[row] = v
		}
	}
}

// exampleCache holds the forward pass of one sequence.
type exampleCache struct {
	tokens []int
	width  int // longest true length in the batch
	x      *mat.Dense
	dirs   []*dirCache
	pool   []float64 // [mean, max]
	arg    []int     // time step chosen by max, -1 when padding won
	z1     []float64
	a1     []float64
	mask   []float64
	logit  float64
}

func (m *Model) forwardExample(tokens []int, width int, mask []float64) *exampleCache {
	steps := len(tokens)
	ec := &exampleCache{tokens: tokens, width: width, mask: mask}

	ec.x = mat.NewDense(steps, m.in, nil)
	for t, idx := range tokens {
		copy(ec.x.RawRowView(t), m.embedding.w.RawRowView(idx))
	}
	for i, d := range m.dirs {
		ec.dirs = append(ec.dirs, d.forward(m.cfg.Kind, m.hidden, ec.x, i == 1))
	}

	// Positions past this sequence's length up to width are zero, as after
	// unpacking a packed batch.
	dims := m.dims
	ec.pool = make([]float64, 2*dims)
	ec.arg = make([]int, dims)
	scale := 1 / float64(width)
	for j := 0; j < dims; j++ {
		dc := ec.dirs[j/m.hidden]
		jj := j % m.hidden
		best, arg := math.Inf(-1), -1
		sum := 0.0
		for t := 0; t < steps; t++ {
			v := dc.output(t)[jj]
			sum += v
			if v > best {
				best, arg = v, t
			}
		}
		if steps < width && best < 0 {
			best, arg = 0, -1
		}
		ec.pool[j] = sum * scale
		ec.pool[dims+j] = best
		ec.arg[j] = arg
	}

	ec.z1 = make([]float64, dims)
	z1 := mat.NewVecDense(dims, ec.z1)
	z1.MulVec(m.linearW.w.T(), mat.NewVecDense(2*dims, ec.pool))
	floats.Add(ec.z1, m.linearB.w.RawRowView(0))

	ec.a1 = make([]float64, dims)
	for j, v := range ec.z1 {
		if v <= 0 {
			continue
		}
		if mask != nil {
			v *= mask[j]
		}
		ec.a1[j] = v
	}
	ec.logit = floats.Dot(ec.a1, m.fcW.w.RawMatrix().Data) + m.fcB.w.At(0, 0)
	return ec
}

func (m *Model) backwardExample(ec *exampleCache, dlogit float64, g *gradSet) {
	dims := m.dims
	fcW := m.fcW.w.RawMatrix().Data

	floats.AddScaled(g.of(m.fcW).RawMatrix().Data, dlogit, ec.a1)
	g.of(m.fcB).RawMatrix().Data[0] += dlogit

	dz1 := make([]float64, dims)
	for j := range dz1 {
		if ec.z1[j] <= 0 {
			continue
		}
		d := fcW[j] * dlogit
		if ec.mask != nil {
			d *= ec.mask[j]
		}
		dz1[j] = d
	}
	dz1Vec := mat.NewVecDense(dims, dz1)
	glw := g.of(m.linearW)
	glw.RankOne(glw, 1, mat.NewVecDense(2*dims, ec.pool), dz1Vec)
	floats.Add(g.of(m.linearB).RawRowView(0), dz1)

	dpool := mat.NewVecDense(2*dims, nil)
	dpool.MulVec(m.linearW.w, dz1Vec)
	dp := dpool.RawVector().Data

	steps := len(ec.tokens)
	scale := 1 / float64(ec.width)
	var dx *mat.Dense
	for k, d := range m.dirs {
		dout := make([][]float64, steps)
		for t := range dout {
			row := make([]float64, m.hidden)
			for jj := range row {
				row[jj] = dp[k*m.hidden+jj] * scale
			}
			dout[t] = row
		}
		for jj := 0; jj < m.hidden; jj++ {
			j := k*m.hidden + jj
			if t := ec.arg[j]; t >= 0 {
				dout[t][jj] += dp[dims+j]
			}
		}
		dxk := d.backward(m.cfg.Kind, m.hidden, ec.x, ec.dirs[k], dout, g, g.emb != nil)
		if dxk == nil {
			continue
		}
		if dx == nil {
			dx = dxk
		} else {
			dx.Add(dx, dxk)
		}
	}

	if dx == nil {
		return
	}
	for t, idx := range ec.tokens {
		row, ok := g.emb[idx]
		if !ok {
			row = make([]float64, m.in)
			g.emb[idx] = row
		}
		floats.Add(row, dx.RawRowView(t))
	}
}

func (m *Model) checkBatch(batch [][]int, lengths []int) (int, error) {
	if len(batch) != len(lengths) {
		return 0, fmt.Errorf("%w: %d rows but %d lengths", ErrShape, len(batch), len(lengths))
	}
	rows, _ := m.embedding.w.Dims()
	width := 0
	for i, row := range batch {
		l := lengths[i]
		if l < 1 || l > len(row) {
			return 0, fmt.Errorf("%w: row %d length %d outside [1, %d]", ErrShape, i, l, len(row))
		}
		for _, idx := range row[:l] {
			if idx < 0 || idx >= rows {
				return 0, fmt.Errorf("%w: row %d index %d outside vocabulary of %d", ErrShape, i, idx, rows)
			}
		}
		width = max(width, l)
	}
	return width, nil
}

type span struct{ lo, hi int }

func chunks(n int) []span {
	out := make([]span, 0, (n+chunkSize-1)/chunkSize)
	for lo := 0; lo < n; lo += chunkSize {
		out = append(out, span{lo, min(lo+chunkSize, n)})
	}
	return out
}

// Forward returns one logit per row in evaluation mode (no dropout).
// lengths gives the number of leading non-pad entries of each row.
func (m *Model) Forward(batch [][]int, lengths []int) ([]float64, error) {
	width, err := m.checkBatch(batch, lengths)
	if err != nil {
		return nil, err
	}
	logits := make([]float64, len(batch))
	iter.ForEach(chunks(len(batch)), func(s *span) {
		for i := s.lo; i < s.hi; i++ {
			logits[i] = m.forwardExample(batch[i][:lengths[i]], width, nil).logit
		}
	})
	return logits, nil
}

type chunkResult struct {
	grads *gradSet
	loss  float64
}

// Step runs one training step on a batch: forward with dropout, mean binary
// cross-entropy on the logits, back-propagation and an Adam update of the
// trainable parameters. It returns the batch loss.
func (m *Model) Step(batch [][]int, lengths []int, labels []int) (float64, error) {
	width, err := m.checkBatch(batch, lengths)
	if err != nil {
		return 0, err
	}
	if len(labels) != len(batch) {
		return 0, fmt.Errorf("%w: %d rows but %d labels", ErrShape, len(batch), len(labels))
	}
	if len(batch) == 0 {
		return 0, nil
	}

	loss, grads := m.gradients(batch, lengths, labels, width, m.dropoutMasks(len(batch)))
	m.opt.Step(m.params, grads.g)
	if grads.emb != nil {
		m.opt.StepRows(m.embedding.w, grads.emb)
	}
	return loss, nil
}

// gradients returns the mean loss of a non-empty batch and its gradient.
func (m *Model) gradients(batch [][]int, lengths, labels []int, width int, masks [][]float64) (float64, *gradSet) {
	n := float64(len(batch))
	results := iter.Map(chunks(len(batch)), func(s *span) chunkResult {
		res := chunkResult{grads: m.newGrads()}
		for i := s.lo; i < s.hi; i++ {
			ec := m.forwardExample(batch[i][:lengths[i]], width, masks[i])
			y := float64(labels[i])
			res.loss += bceWithLogits(ec.logit, y)
			m.backwardExample(ec, (Sigmoid(ec.logit)-y)/n, res.grads)
		}
		return res
	})

	total := results[0].grads
	loss := results[0].loss
	for _, r := range results[1:] {
		total.add(r.grads)
		loss += r.loss
	}
	return loss / n, total
}

// dropoutMasks draws inverted-dropout masks sequentially so training is
// reproducible for a given seed.
func (m *Model) dropoutMasks(n int) [][]float64 {
	masks := make([][]float64, n)
	p := m.cfg.Dropout
	if p == 0 {
		return masks
	}
	keep := 1 / (1 - p)
	for i := range masks {
		mask := make([]float64, m.dims)
		for j := range mask {
			if m.rng.Float64() >= p {
				mask[j] = keep
			}
		}
		masks[i] = mask
	}
	return masks
}
