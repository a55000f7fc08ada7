package namemlp

import (
	"math"
	"math/rand"

	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Params holds the trainable tensors on an expression graph. The training
// loop owns it exclusively and mutates it in place every step.
type Params struct {
	Embed *gorgonia.Node // (vocab, embedDim)
	W1    *gorgonia.Node // (blockSize*embedDim, hiddenDim)
	B1    *gorgonia.Node // (1, hiddenDim), broadcast over the batch
	W2    *gorgonia.Node // (hiddenDim, vocab)
	B2    *gorgonia.Node // (1, vocab)

	VocabSize int
	BlockSize int
	EmbedDim  int
	HiddenDim int
}

func normBacking(rng *rand.Rand, n int, scale float64) []float64 {
	b := make([]float64, n)
	for i := range b {
		b[i] = rng.NormFloat64() * scale
	}
	return b
}

// NewParams samples every tensor from rng. The draw order (embedding, W1,
// b1, W2) is fixed so a seed pins every weight. W1 carries the tanh gain
// 5/3 over sqrt(fan-in) to keep pre-activation variance near 1; W2 is
// scaled down and b2 zeroed so the initial logits are near-uniform and the
// first loss lands close to log(vocab) instead of spiking.
func NewParams(g *gorgonia.ExprGraph, vocabSize int, cfg Config, rng *rand.Rand) *Params {
	fanIn := cfg.BlockSize * cfg.EmbedDim
	gain := 5.0 / 3.0

	embed := normBacking(rng, vocabSize*cfg.EmbedDim, 1.0)
	w1 := normBacking(rng, fanIn*cfg.HiddenDim, gain/math.Sqrt(float64(fanIn)))
	b1 := normBacking(rng, cfg.HiddenDim, 0.01)
	w2 := normBacking(rng, cfg.HiddenDim*vocabSize, 0.01)
	b2 := make([]float64, vocabSize)

	mk := func(name string, rows, cols int, backing []float64) *gorgonia.Node {
		t := tensor.New(tensor.WithShape(rows, cols), tensor.WithBacking(backing))
		return gorgonia.NewMatrix(g, tensor.Float64,
			gorgonia.WithName(name),
			gorgonia.WithShape(rows, cols),
			gorgonia.WithValue(t),
		)
	}

	return &Params{
		Embed:     mk("embed", vocabSize, cfg.EmbedDim, embed),
		W1:        mk("w1", fanIn, cfg.HiddenDim, w1),
		B1:        mk("b1", 1, cfg.HiddenDim, b1),
		W2:        mk("w2", cfg.HiddenDim, vocabSize, w2),
		B2:        mk("b2", 1, vocabSize, b2),
		VocabSize: vocabSize,
		BlockSize: cfg.BlockSize,
		EmbedDim:  cfg.EmbedDim,
		HiddenDim: cfg.HiddenDim,
	}
}

// Learnables lists every parameter in update order.
func (p *Params) Learnables() gorgonia.Nodes {
	return gorgonia.Nodes{p.Embed, p.W1, p.B1, p.W2, p.B2}
}

// NumScalars counts the trainable scalars across all parameters.
func (p *Params) NumScalars() int {
	n := 0
	for _, l := range p.Learnables() {
		n += l.Shape().TotalSize()
	}
	return n
}

// Snapshot copies the current parameter values out of the graph into a
// plain Net for evaluation, sampling and persistence.
func (p *Params) Snapshot() *Net {
	cp := func(n *gorgonia.Node) []float64 {
		src := n.Value().Data().([]float64)
		dst := make([]float64, len(src))
		copy(dst, src)
		return dst
	}
	return &Net{
		Embed:     cp(p.Embed),
		W1:        cp(p.W1),
		B1:        cp(p.B1),
		W2:        cp(p.W2),
		B2:        cp(p.B2),
		VocabSize: p.VocabSize,
		BlockSize: p.BlockSize,
		EmbedDim:  p.EmbedDim,
		HiddenDim: p.HiddenDim,
	}
}
