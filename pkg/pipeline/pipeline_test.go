package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/haivivi/soundclass/pkg/audio/audiotest"
	"github.com/haivivi/soundclass/pkg/audio/mfcc"
	"github.com/haivivi/soundclass/pkg/classifier"
	"github.com/haivivi/soundclass/pkg/classifier/classifiertest"
	"github.com/haivivi/soundclass/pkg/features"
)

type stubExtractor struct {
	width int
	vec   features.Vector
	err   error
}

func (s *stubExtractor) Width() int { return s.width }

func (s *stubExtractor) Extract(ctx context.Context, path string) (features.Vector, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.vec, nil
}

type countingPredictor struct {
	*classifier.Classifier
	calls atomic.Int32
}

func (c *countingPredictor) Predict(ctx context.Context, vec []float32) (*classifier.Prediction, error) {
	c.calls.Add(1)
	return c.Classifier.Predict(ctx, vec)
}

func constantClassifier(t *testing.T, idx int) *classifier.Classifier {
	t.Helper()
	d, err := classifier.NewDense(classifiertest.Constant(40, classifiertest.OneHot(6, idx)))
	if err != nil {
		t.Fatalf("NewDense: %v", err)
	}
	c, err := classifier.New(d)
	if err != nil {
		t.Fatalf("classifier.New: %v", err)
	}
	return c
}

func TestNewWidthMismatch(t *testing.T) {
	_, err := New(&stubExtractor{width: 20}, constantClassifier(t, 0))
	if !errors.Is(err, classifier.ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestNewRejectsNonCanonicalWidth(t *testing.T) {
	cfg := mfcc.DefaultConfig()
	cfg.NumCoeffs = 20
	ext, err := features.New(cfg)
	if err != nil {
		t.Fatalf("features.New: %v", err)
	}
	d, err := classifier.NewDense(classifiertest.Constant(20, classifiertest.OneHot(6, 0)))
	if err != nil {
		t.Fatalf("NewDense: %v", err)
	}
	c, err := classifier.New(d)
	if err != nil {
		t.Fatalf("classifier.New: %v", err)
	}

	// Both sides agree on 20, but only 40 coefficient means are supported.
	_, err = New(ext, c)
	if !errors.Is(err, classifier.ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestRunExtractionErrorSkipsPredict(t *testing.T) {
	dir := t.TempDir()
	ext, err := features.New(mfcc.DefaultConfig())
	if err != nil {
		t.Fatalf("features.New: %v", err)
	}
	pred := &countingPredictor{Classifier: constantClassifier(t, 4)}
	p, err := New(ext, pred)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	paths := []string{
		filepath.Join(dir, "missing.wav"),
		audiotest.WriteFile(t, dir, "corrupt.wav", []byte("RIFF\x00\x00\x00\x00WAVEnot really")),
		audiotest.WriteFile(t, dir, "corrupt.mp3", []byte{0xFF, 0xFB, 0x00, 0x00, 0x01}),
		audiotest.WriteFile(t, dir, "notes.txt", []byte("plain text")),
	}
	for _, path := range paths {
		res, err := p.Run(context.Background(), path)
		if res != nil {
			t.Errorf("%s: expected nil result", path)
		}
		var ee *features.ExtractionError
		if !errors.As(err, &ee) {
			t.Errorf("%s: expected *ExtractionError, got %v", path, err)
		}
		if msg := Message(err); !strings.HasPrefix(msg, "Error processing audio file") {
			t.Errorf("%s: Message = %q", path, msg)
		}
	}
	if calls := pred.calls.Load(); calls != 0 {
		t.Errorf("Predict called %d times after extraction failures", calls)
	}
}

func TestRunResult(t *testing.T) {
	vec := make(features.Vector, 40)
	p, err := New(&stubExtractor{width: 40, vec: vec}, constantClassifier(t, 1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := p.Run(context.Background(), "clip.wav")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Prediction.Label != "dog_barking" {
		t.Errorf("Label = %q", res.Prediction.Label)
	}
	if res.RequestID == "" || res.Path != "clip.wav" {
		t.Errorf("Result = %+v", res)
	}

	rep := res.Report()
	var sum float64
	for _, v := range rep.Percentages {
		sum += v
	}
	if math.Abs(sum-100) > 1 {
		t.Errorf("percentages sum to %f", sum)
	}
	if len(rep.Ranked) != 6 || rep.Ranked[0].Label != "dog_barking" {
		t.Errorf("Ranked = %+v", rep.Ranked)
	}
	if !strings.HasPrefix(res.Text(), "Predicted class: dog_barking\n\n") {
		t.Errorf("Text = %q", res.Text())
	}
}

func TestRunTimeout(t *testing.T) {
	dir := t.TempDir()
	ext, _ := features.New(mfcc.DefaultConfig())
	p, err := New(ext, constantClassifier(t, 0), WithTimeout(time.Nanosecond))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	path := audiotest.WriteWAV(t, dir, "tone.wav", 22050, 16, audiotest.Sine(440, 22050, time.Second, 0.5))
	if p.timeout != time.Nanosecond {
		t.Errorf("timeout = %v", p.timeout)
	}

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	_, err = p.Run(ctx, path)
	var ee *features.ExtractionError
	if !errors.As(err, &ee) || ee.Kind != features.KindCanceled {
		t.Fatalf("expected canceled extraction, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
}

// classSignals synthesizes one clip per urban sound class. They only need to
// be distinct enough for a nearest-centroid model.
func classSignals(rate int, dur time.Duration) map[string][]float64 {
	n := int(dur * time.Duration(rate) / time.Second)
	mix := func(parts ...[]float64) []float64 {
		out := make([]float64, n)
		for _, p := range parts {
			for i := range out {
				out[i] += p[i]
			}
		}
		return out
	}
	gate := func(x []float64, period, on int) []float64 {
		out := make([]float64, len(x))
		for i := range x {
			if i%period < on {
				out[i] = x[i]
			}
		}
		return out
	}
	return map[string][]float64{
		"children_playing": mix(audiotest.Noise(1, n, 0.05), audiotest.Sine(2500, rate, dur, 0.2)),
		"dog_barking":      gate(audiotest.Sine(450, rate, dur, 0.6), rate/2, rate/10),
		"drilling":         mix(audiotest.Sine(120, rate, dur, 0.4), audiotest.Sine(240, rate, dur, 0.2), audiotest.Sine(360, rate, dur, 0.1)),
		"jackhammer":       gate(audiotest.Noise(2, n, 0.7), rate/15, rate/40),
		"siren":            audiotest.Sweep(600, 1400, rate, dur, 0.5),
		"street_music":     mix(audiotest.Sine(262, rate, dur, 0.2), audiotest.Sine(330, rate, dur, 0.2), audiotest.Sine(392, rate, dur, 0.2)),
	}
}

func TestEndToEndSiren(t *testing.T) {
	dir := t.TempDir()
	ext, err := features.New(mfcc.DefaultConfig())
	if err != nil {
		t.Fatalf("features.New: %v", err)
	}
	ctx := context.Background()

	// Centroids come from 2 s training clips at 22.05 kHz.
	train := classSignals(22050, 2*time.Second)
	centroids := make([][]float32, classifier.UrbanSound6.Len())
	for i, name := range classifier.UrbanSound6.Names() {
		path := audiotest.WriteWAV(t, dir, "train_"+name+".wav", 22050, 16, train[name])
		v, err := ext.Extract(ctx, path)
		if err != nil {
			t.Fatalf("Extract %s: %v", name, err)
		}
		centroids[i] = v
	}
	model := classifiertest.Centroid(centroids)
	model.Labels = classifier.UrbanSound6.Names()
	modelPath := classifiertest.Write(t, dir, "model.msgpack", model)

	c, err := classifier.Load(modelPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer c.Close()
	p, err := New(ext, c)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// The query is a shorter siren at a different sample rate.
	siren := audiotest.Sweep(600, 1400, 44100, 1500*time.Millisecond, 0.5)
	query := audiotest.WriteWAV(t, dir, "query_siren.wav", 44100, 16, siren, siren)

	res, err := p.Run(ctx, query)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Prediction.Label != "siren" {
		t.Fatalf("Label = %q, want siren\n%s", res.Prediction.Label, res.Prediction.Render())
	}
	if res.Prediction.Scores.Argmax() != classifier.UrbanSound6.Index("siren") {
		t.Errorf("siren score is not the maximum: %v", res.Prediction.Scores)
	}
	var sum float64
	for _, v := range res.Prediction.Scores.Percentages() {
		sum += v
	}
	if math.Abs(sum-100) > 1 {
		t.Errorf("percentages sum to %f", sum)
	}
	if len(res.Features) != 40 {
		t.Errorf("features len = %d", len(res.Features))
	}
}

func TestMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&features.ExtractionError{Kind: features.KindUnreadable, Err: errors.New("x")}, "Error processing audio file: file cannot be read"},
		{&features.ExtractionError{Kind: features.KindUnsupported}, "Error processing audio file: not a supported audio format (WAV or MP3)"},
		{&features.ExtractionError{Kind: features.KindEmpty}, "Error processing audio file: file contains no audio"},
		{&classifier.LoadError{Path: "m.onnx", Err: errors.New("x")}, "Cannot load model: m.onnx"},
		{&classifier.InferenceError{Err: &classifier.ShapeMismatchError{Got: 3, Want: 40}}, "Internal error: feature shape mismatch"},
		{&classifier.InferenceError{Err: errors.New("nan")}, "Error running classifier"},
		{&classifier.InferenceError{Err: classifier.ErrClosed}, "Error running classifier: model is closed"},
		{fmt.Errorf("run: %w", context.DeadlineExceeded), "Prediction timed out"},
		{errors.New("boom"), "Unexpected error"},
	}
	for _, tt := range tests {
		if got := Message(tt.err); got != tt.want {
			t.Errorf("Message(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
