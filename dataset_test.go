package namemlp

import (
	"math/rand"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestBuildDatasetScenario(t *testing.T) {
	v, err := BuildVocab([]string{"ana", "bob"})
	if err != nil {
		t.Fatalf("BuildVocab: %v", err)
	}
	ds, err := BuildDataset([]string{"ana"}, v, 3)
	if err != nil {
		t.Fatalf("BuildDataset: %v", err)
	}
	wantContexts := [][]int{
		{0, 0, 0},
		{0, 0, 1},
		{0, 1, 3},
		{1, 3, 1},
	}
	wantTargets := []int{1, 3, 1, 0}
	if !reflect.DeepEqual(ds.Contexts, wantContexts) {
		t.Errorf("contexts = %v, want %v", ds.Contexts, wantContexts)
	}
	if !reflect.DeepEqual(ds.Targets, wantTargets) {
		t.Errorf("targets = %v, want %v", ds.Targets, wantTargets)
	}
}

func TestBuildDatasetExampleCount(t *testing.T) {
	words := []string{"emma", "olivia", "ava", "isabella", "sophia"}
	v, err := BuildVocab(words)
	if err != nil {
		t.Fatalf("BuildVocab: %v", err)
	}
	ds, err := BuildDataset(words, v, 3)
	if err != nil {
		t.Fatalf("BuildDataset: %v", err)
	}
	want := 0
	for _, w := range words {
		want += len(w) + 1
	}
	if ds.Len() != want {
		t.Errorf("got %d examples, want %d", ds.Len(), want)
	}
	for i, ctx := range ds.Contexts {
		if len(ctx) != 3 {
			t.Fatalf("context %d has width %d, want 3", i, len(ctx))
		}
	}
}

func TestSplitWords(t *testing.T) {
	words := make([]string, 100)
	letters := []rune("abcdefghij")
	for i := range words {
		words[i] = string(letters[i%10]) + string(letters[(i/10)%10])
	}
	splits := SplitWords(words, rand.New(rand.NewSource(42)))

	if got := len(splits.Train) + len(splits.Dev) + len(splits.Test); got != len(words) {
		t.Fatalf("split sizes sum to %d, want %d", got, len(words))
	}
	if len(splits.Train) != 80 || len(splits.Dev) != 10 || len(splits.Test) != 10 {
		t.Errorf("split sizes = %d/%d/%d, want 80/10/10",
			len(splits.Train), len(splits.Dev), len(splits.Test))
	}

	index := make(map[string][]string)
	for _, w := range splits.Train {
		index[w] = append(index[w], "train")
	}
	for _, w := range splits.Dev {
		index[w] = append(index[w], "dev")
	}
	for _, w := range splits.Test {
		index[w] = append(index[w], "test")
	}
	counts := make(map[string]int)
	for _, w := range words {
		counts[w]++
	}
	for w, homes := range index {
		if len(homes) != counts[w] {
			t.Errorf("word %q appears in %v, want exactly %d placements", w, homes, counts[w])
		}
	}
}

func TestSplitWordsDeterministic(t *testing.T) {
	words := []string{"emma", "olivia", "ava", "isabella", "sophia", "mia", "luna", "harper", "amelia", "gianna"}
	a := SplitWords(words, rand.New(rand.NewSource(7)))
	b := SplitWords(words, rand.New(rand.NewSource(7)))
	if !reflect.DeepEqual(a, b) {
		t.Error("same seed produced different splits")
	}
}

func TestLoadWords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "names.txt")
	if err := os.WriteFile(path, []byte("Emma\n\nolivia\n  ava  \n"), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	words, err := LoadWords(path)
	if err != nil {
		t.Fatalf("LoadWords: %v", err)
	}
	want := []string{"emma", "olivia", "ava"}
	if !reflect.DeepEqual(words, want) {
		t.Errorf("words = %v, want %v", words, want)
	}

	if _, err := LoadWords(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}
