package namemlp

import (
	"encoding/gob"
	"math"
	"math/rand"
	"os"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Net is a plain snapshot of trained weights, detached from the expression
// graph, for split evaluation, name sampling and persistence. Matrices are
// stored row-major.
type Net struct {
	Embed []float64 // (VocabSize, EmbedDim)
	W1    []float64 // (BlockSize*EmbedDim, HiddenDim)
	B1    []float64 // (HiddenDim)
	W2    []float64 // (HiddenDim, VocabSize)
	B2    []float64 // (VocabSize)

	VocabSize int
	BlockSize int
	EmbedDim  int
	HiddenDim int
}

// Logits runs the forward pass for a single context window.
func (n *Net) Logits(ctx []int) []float64 {
	x := make([]float64, n.BlockSize*n.EmbedDim)
	for w, code := range ctx {
		copy(x[w*n.EmbedDim:(w+1)*n.EmbedDim], n.Embed[code*n.EmbedDim:(code+1)*n.EmbedDim])
	}

	xv := mat.NewDense(1, n.BlockSize*n.EmbedDim, x)
	w1 := mat.NewDense(n.BlockSize*n.EmbedDim, n.HiddenDim, n.W1)
	var h mat.Dense
	h.Mul(xv, w1)
	hr := h.RawRowView(0)
	for i := range hr {
		hr[i] = math.Tanh(hr[i] + n.B1[i])
	}

	w2 := mat.NewDense(n.HiddenDim, n.VocabSize, n.W2)
	var o mat.Dense
	o.Mul(&h, w2)
	logits := make([]float64, n.VocabSize)
	copy(logits, o.RawRowView(0))
	floats.Add(logits, n.B2)
	return logits
}

func softmax(logits []float64) []float64 {
	out := make([]float64, len(logits))
	copy(out, logits)
	max := floats.Max(out)
	for i := range out {
		out[i] = math.Exp(out[i] - max)
	}
	floats.Scale(1/floats.Sum(out), out)
	return out
}

// SplitLoss is the mean cross-entropy over every example of a split.
// An empty split reports 0.
func (n *Net) SplitLoss(ds *Dataset) float64 {
	if ds.Len() == 0 {
		return 0
	}
	var total float64
	for i, ctx := range ds.Contexts {
		p := softmax(n.Logits(ctx))
		total += -math.Log(p[ds.Targets[i]])
	}
	return total / float64(ds.Len())
}

// SampleName draws one name from the model, starting from an all-terminator
// context and stopping at the terminator or after maxLen characters.
func (n *Net) SampleName(v *Vocab, rng *rand.Rand, temperature float64, maxLen int) string {
	if temperature <= 0 {
		temperature = 1
	}
	ctx := make([]int, n.BlockSize)
	var sb strings.Builder
	for i := 0; i < maxLen; i++ {
		logits := n.Logits(ctx)
		if temperature != 1 {
			floats.Scale(1/temperature, logits)
		}
		code := weightedChoice(softmax(logits), rng)
		if code == TerminatorCode {
			break
		}
		sb.WriteRune(v.Decode(code))
		copy(ctx, ctx[1:])
		ctx[n.BlockSize-1] = code
	}
	return sb.String()
}

func weightedChoice(probs []float64, rng *rand.Rand) int {
	r := rng.Float64()
	var cum float64
	for i, p := range probs {
		cum += p
		if r <= cum {
			return i
		}
	}
	return len(probs) - 1
}

// SaveNet writes the snapshot with gob.
func SaveNet(path string, n *Net) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewEncoder(f).Encode(n)
}

// LoadNet reads a snapshot previously written by SaveNet.
func LoadNet(path string) (*Net, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var n Net
	if err := gob.NewDecoder(f).Decode(&n); err != nil {
		return nil, err
	}
	return &n, nil
}
