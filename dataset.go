package namemlp

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"strings"
)

// Dataset holds parallel sequences of context windows and next-character
// targets for one split. Immutable after BuildDataset.
type Dataset struct {
	Contexts  [][]int
	Targets   []int
	BlockSize int
}

// Len returns the number of examples.
func (d *Dataset) Len() int { return len(d.Targets) }

// BuildDataset slides a terminator-padded window of blockSize codes over
// every word plus its trailing terminator. A word of length L yields exactly
// L+1 examples.
func BuildDataset(words []string, v *Vocab, blockSize int) (*Dataset, error) {
	if blockSize < 1 {
		return nil, fmt.Errorf("block size must be at least 1, got %d", blockSize)
	}
	ds := &Dataset{BlockSize: blockSize}
	for _, w := range words {
		codes, err := v.EncodeWord(w)
		if err != nil {
			return nil, fmt.Errorf("word %q: %w", w, err)
		}
		codes = append(codes, TerminatorCode)

		ctx := make([]int, blockSize)
		for _, code := range codes {
			window := make([]int, blockSize)
			copy(window, ctx)
			ds.Contexts = append(ds.Contexts, window)
			ds.Targets = append(ds.Targets, code)
			copy(ctx, ctx[1:])
			ctx[blockSize-1] = code
		}
	}
	return ds, nil
}

// Splits is a disjoint, exhaustive partition of the word list.
type Splits struct {
	Train []string
	Dev   []string
	Test  []string
}

// SplitWords shuffles a copy of words with rng and cuts at the 80% and 90%
// boundaries.
func SplitWords(words []string, rng *rand.Rand) Splits {
	shuffled := make([]string, len(words))
	copy(shuffled, words)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	n1 := int(0.8 * float64(len(shuffled)))
	n2 := int(0.9 * float64(len(shuffled)))
	return Splits{
		Train: shuffled[:n1],
		Dev:   shuffled[n1:n2],
		Test:  shuffled[n2:],
	}
}

// LoadWords reads a newline-delimited word list, lowercased, blank lines
// dropped.
func LoadWords(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var words []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		w := strings.TrimSpace(strings.ToLower(sc.Text()))
		if w != "" {
			words = append(words, w)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return words, nil
}
