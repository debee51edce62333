package resampler

import (
	"errors"
	"math"
	"testing"
)

func TestOutputLen(t *testing.T) {
	tests := []struct {
		n, src, dst, want int
	}{
		{0, 44100, 22050, 0},
		{44100, 44100, 22050, 22050},
		{3, 44100, 22050, 2},
		{16000, 16000, 22050, 22050},
		{1, 48000, 22050, 1},
		{100, 0, 22050, 0},
	}
	for _, tt := range tests {
		if got := OutputLen(tt.n, tt.src, tt.dst); got != tt.want {
			t.Errorf("OutputLen(%d, %d, %d) = %d, want %d", tt.n, tt.src, tt.dst, got, tt.want)
		}
	}
}

func TestResampleSameRate(t *testing.T) {
	in := []float64{0.1, -0.2, 0.3}
	out, err := Resample(in, 22050, 22050)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != len(in) {
		t.Fatalf("len = %d, want %d", len(out), len(in))
	}
	out[0] = 9
	if in[0] != 0.1 {
		t.Error("Resample must not alias its input")
	}
}

func TestResampleInvalidRate(t *testing.T) {
	_, err := Resample([]float64{1}, 0, 22050)
	if !errors.Is(err, ErrInvalidRate) {
		t.Errorf("expected ErrInvalidRate, got %v", err)
	}
}

func TestResampleEmpty(t *testing.T) {
	out, err := Resample(nil, 44100, 22050)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 0 {
		t.Errorf("expected empty output, got %d samples", len(out))
	}
}

func TestResampleDownsample(t *testing.T) {
	const src, dst = 44100, 22050
	in := make([]float64, src)
	for i := range in {
		in[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/src)
	}

	out, err := Resample(in, src, dst)
	if err != nil {
		t.Fatal(err)
	}
	if want := OutputLen(len(in), src, dst); len(out) != want {
		t.Fatalf("len = %d, want %d", len(out), want)
	}

	// The tone keeps roughly its energy.
	rms := 0.0
	for _, v := range out[len(out)/4 : len(out)*3/4] {
		rms += v * v
	}
	rms = math.Sqrt(rms / float64(len(out)/2))
	if math.Abs(rms-0.5/math.Sqrt2) > 0.05 {
		t.Errorf("rms = %f, want ~%f", rms, 0.5/math.Sqrt2)
	}
	t.Logf("resampled %d -> %d samples", len(in), len(out))
}

func TestResampleImpulseAlignment(t *testing.T) {
	const dst = 22050
	for _, src := range []int{8000, 16000, 44100, 48000} {
		in := make([]float64, src)
		in[src/2] = 1

		out, err := Resample(in, src, dst)
		if err != nil {
			t.Fatalf("src=%d: %v", src, err)
		}
		if len(out) != OutputLen(len(in), src, dst) {
			t.Fatalf("src=%d: len = %d", src, len(out))
		}

		at, peak := 0, 0.0
		for i, v := range out {
			if math.Abs(v) > peak {
				at, peak = i, math.Abs(v)
			}
		}
		want := dst / 2
		if at < want-2 || at > want+2 {
			t.Errorf("src=%d: impulse at %d, want %d", src, at, want)
		}
	}
}

func TestResampleShortToneKeepsEnergy(t *testing.T) {
	const dst = 22050
	for _, src := range []int{8000, 16000, 48000} {
		n := src / 20 // 50 ms
		in := make([]float64, n)
		for i := range in {
			in[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/float64(src))
		}

		out, err := Resample(in, src, dst)
		if err != nil {
			t.Fatalf("src=%d: %v", src, err)
		}

		ratio := meanSquare(out) / meanSquare(in)
		if ratio < 0.85 || ratio > 1.15 {
			t.Errorf("src=%d: energy ratio = %.3f, want ~1", src, ratio)
		}
	}
}

func TestResampleOffsetCached(t *testing.T) {
	a, err := offset(16000, 22050)
	if err != nil {
		t.Fatal(err)
	}
	b, err := offset(16000, 22050)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("offset changed between calls: %d then %d", a, b)
	}
}

func meanSquare(v []float64) float64 {
	s := 0.0
	for _, x := range v {
		s += x * x
	}
	return s / float64(len(v))
}
