package namemlp

import (
	"math"
	"math/rand"
	"path/filepath"
	"reflect"
	"testing"

	"gorgonia.org/gorgonia"
)

func freshNet(t *testing.T, words []string, cfg Config, seed int64) (*Net, *Vocab) {
	t.Helper()
	v, err := BuildVocab(words)
	if err != nil {
		t.Fatalf("BuildVocab: %v", err)
	}
	p := NewParams(gorgonia.NewGraph(), v.Size(), cfg, rand.New(rand.NewSource(seed)))
	return p.Snapshot(), v
}

func TestInitialLossNearUniform(t *testing.T) {
	cfg := Config{BlockSize: 3, EmbedDim: 4, HiddenDim: 16}
	net, v := freshNet(t, testNames, cfg, 5)
	ds, err := BuildDataset(testNames, v, 3)
	if err != nil {
		t.Fatalf("BuildDataset: %v", err)
	}

	// Down-scaled output weights and a zero output bias keep the initial
	// logits close to zero, so the loss should sit near log(vocab).
	got := net.SplitLoss(ds)
	want := math.Log(float64(v.Size()))
	if math.Abs(got-want) > 0.1 {
		t.Errorf("initial loss %.4f, want within 0.1 of %.4f", got, want)
	}
}

func TestSplitLossEmptySplit(t *testing.T) {
	cfg := Config{BlockSize: 3, EmbedDim: 4, HiddenDim: 16}
	net, _ := freshNet(t, testNames, cfg, 5)

	got := net.SplitLoss(&Dataset{BlockSize: 3})
	if got != 0 {
		t.Errorf("SplitLoss on empty split = %v, want 0", got)
	}
	if math.IsNaN(got) {
		t.Error("SplitLoss on empty split is NaN")
	}
}

func TestLogitsShapeAndDeterminism(t *testing.T) {
	cfg := Config{BlockSize: 3, EmbedDim: 4, HiddenDim: 16}
	net, v := freshNet(t, testNames, cfg, 5)

	ctx := []int{0, 0, 1}
	a := net.Logits(ctx)
	b := net.Logits(ctx)
	if len(a) != v.Size() {
		t.Fatalf("logits length %d, want %d", len(a), v.Size())
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("same context produced different logits")
	}
}

func TestSampleName(t *testing.T) {
	cfg := Config{BlockSize: 3, EmbedDim: 4, HiddenDim: 16}
	net, v := freshNet(t, testNames, cfg, 5)

	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 50; i++ {
		name := net.SampleName(v, rng, 1.0, 32)
		if len(name) > 32 {
			t.Fatalf("sampled name %q exceeds the length cap", name)
		}
		for _, r := range name {
			if r == Terminator {
				t.Fatalf("terminator leaked into sampled name %q", name)
			}
			if _, err := v.Encode(r); err != nil {
				t.Fatalf("sampled name %q contains %q outside the alphabet", name, r)
			}
		}
	}

	a := net.SampleName(v, rand.New(rand.NewSource(3)), 1.0, 32)
	b := net.SampleName(v, rand.New(rand.NewSource(3)), 1.0, 32)
	if a != b {
		t.Errorf("same seed sampled %q and %q", a, b)
	}
}

func TestNetSaveLoad(t *testing.T) {
	cfg := Config{BlockSize: 3, EmbedDim: 4, HiddenDim: 16}
	net, _ := freshNet(t, testNames, cfg, 5)

	path := filepath.Join(t.TempDir(), "model.gob")
	if err := SaveNet(path, net); err != nil {
		t.Fatalf("SaveNet: %v", err)
	}
	loaded, err := LoadNet(path)
	if err != nil {
		t.Fatalf("LoadNet: %v", err)
	}
	if !reflect.DeepEqual(net, loaded) {
		t.Error("loaded net differs from saved net")
	}

	if _, err := LoadNet(filepath.Join(t.TempDir(), "missing.gob")); err == nil {
		t.Error("expected error for missing model file")
	}
}
