package namemlp

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestMetricsRecord(t *testing.T) {
	var m Metrics
	m.Record(100)
	m.Record(10)
	m.Record(1)
	if m.Len() != 3 {
		t.Fatalf("Len = %d, want 3", m.Len())
	}
	want := []float64{2, 1, 0}
	for i, v := range m.LogLoss {
		if math.Abs(v-want[i]) > 1e-12 {
			t.Errorf("LogLoss[%d] = %v, want %v", i, v, want[i])
		}
	}
}

func TestSegmentMeans(t *testing.T) {
	var m Metrics
	for i := 0; i < 10; i++ {
		m.LogLoss = append(m.LogLoss, float64(10-i))
	}
	first, last := m.SegmentMeans(0.2)
	if first != 9.5 {
		t.Errorf("first segment mean = %v, want 9.5", first)
	}
	if last != 1.5 {
		t.Errorf("last segment mean = %v, want 1.5", last)
	}

	var empty Metrics
	if f, l := empty.SegmentMeans(0.1); f != 0 || l != 0 {
		t.Errorf("empty metrics means = %v, %v, want 0, 0", f, l)
	}
}

func TestMetricsSaveJSON(t *testing.T) {
	var m Metrics
	m.Record(10)
	m.Record(1)

	path := filepath.Join(t.TempDir(), "metrics.json")
	if err := m.SaveJSON(path); err != nil {
		t.Fatalf("SaveJSON: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading metrics file: %v", err)
	}
	var loaded Metrics
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("decoding metrics file: %v", err)
	}
	if loaded.Len() != 2 || !reflect.DeepEqual(loaded.LogLoss, m.LogLoss) {
		t.Errorf("round-tripped metrics = %v, want %v", loaded.LogLoss, m.LogLoss)
	}
}
