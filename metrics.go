package namemlp

import (
	"encoding/json"
	"math"
	"os"

	"gonum.org/v1/gonum/stat"
)

// Metrics is the append-only record of per-step log10 loss. Length equals
// the step count at completion; the plotting side only needs to read it
// in order.
type Metrics struct {
	LogLoss []float64 `json:"log10_loss"`
}

// Record appends log10 of a step's loss.
func (m *Metrics) Record(loss float64) {
	m.LogLoss = append(m.LogLoss, math.Log10(loss))
}

// Len returns the number of recorded steps.
func (m *Metrics) Len() int { return len(m.LogLoss) }

// SegmentMeans returns the mean log10 loss over the first and last frac of
// recorded steps. Used to check that training made progress overall.
func (m *Metrics) SegmentMeans(frac float64) (first, last float64) {
	if len(m.LogLoss) == 0 {
		return 0, 0
	}
	n := int(frac * float64(len(m.LogLoss)))
	if n < 1 {
		n = 1
	}
	first = stat.Mean(m.LogLoss[:n], nil)
	last = stat.Mean(m.LogLoss[len(m.LogLoss)-n:], nil)
	return first, last
}

// SaveJSON writes the sequence for downstream plotting.
func (m *Metrics) SaveJSON(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}
