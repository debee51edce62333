// Package classifiertest builds small dense models for tests.
package classifiertest

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/haivivi/soundclass/pkg/classifier"
)

// Linear returns a single softmax layer with the given weights ([in][out])
// and bias.
func Linear(weights [][]float32, bias []float32) *classifier.ModelSpec {
	return &classifier.ModelSpec{
		Format:     classifier.DenseFormatVersion,
		InputWidth: len(weights),
		Layers: []classifier.LayerSpec{{
			Name:       "dense",
			Kind:       classifier.KindDense,
			Activation: "softmax",
			Weights:    weights,
			Bias:       bias,
		}},
	}
}

// Constant returns a model of width in whose output is softmax(logits)
// regardless of input.
func Constant(in int, logits []float32) *classifier.ModelSpec {
	w := make([][]float32, in)
	for i := range w {
		w[i] = make([]float32, len(logits))
	}
	return Linear(w, append([]float32(nil), logits...))
}

// Centroid returns a nearest-centroid classifier: class j scores highest
// when the input is closest (euclidean) to centroids[j]. The logit for class
// j is c·x - |c|²/2.
func Centroid(centroids [][]float32) *classifier.ModelSpec {
	if len(centroids) == 0 {
		panic("classifiertest: no centroids")
	}
	in := len(centroids[0])
	w := make([][]float32, in)
	for i := range w {
		w[i] = make([]float32, len(centroids))
		for j, c := range centroids {
			w[i][j] = c[i]
		}
	}
	bias := make([]float32, len(centroids))
	for j, c := range centroids {
		var sq float64
		for _, v := range c {
			sq += float64(v) * float64(v)
		}
		bias[j] = float32(-sq / 2)
	}
	return Linear(w, bias)
}

// Write encodes spec into dir/name using the format implied by the
// extension and returns the path.
func Write(tb testing.TB, dir, name string, spec *classifier.ModelSpec) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	format := classifier.FormatFromPath(path)
	data, err := classifier.EncodeModelSpec(spec, format)
	if err != nil {
		tb.Fatalf("classifiertest: encode %s: %v", name, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		tb.Fatalf("classifiertest: write %s: %v", path, err)
	}
	return path
}

// OneHot returns logits that put nearly all mass on class idx.
func OneHot(n, idx int) []float32 {
	if idx < 0 || idx >= n {
		panic(fmt.Sprintf("classifiertest: index %d out of range [0,%d)", idx, n))
	}
	out := make([]float32, n)
	out[idx] = 10
	return out
}

// WriteRaw writes data to path.
func WriteRaw(tb testing.TB, path string, data []byte) {
	tb.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		tb.Fatalf("classifiertest: write %s: %v", path, err)
	}
}
