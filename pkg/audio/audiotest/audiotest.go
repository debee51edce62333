// Package audiotest synthesizes audio fixtures for tests.
package audiotest

import (
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Sine returns dur of a sine tone at freq Hz.
func Sine(freq float64, rate int, dur time.Duration, amp float64) []float64 {
	n := int(dur * time.Duration(rate) / time.Second)
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
	}
	return out
}

// Sweep returns a linear chirp from f0 to f1 Hz, a siren-like signal.
func Sweep(f0, f1 float64, rate int, dur time.Duration, amp float64) []float64 {
	n := int(dur * time.Duration(rate) / time.Second)
	out := make([]float64, n)
	total := dur.Seconds()
	for i := range out {
		t := float64(i) / float64(rate)
		phase := 2 * math.Pi * (f0*t + (f1-f0)*t*t/(2*total))
		out[i] = amp * math.Sin(phase)
	}
	return out
}

// Noise returns deterministic uniform noise.
func Noise(seed uint64, n int, amp float64) []float64 {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * (2*r.Float64() - 1)
	}
	return out
}

// WAVBytes is WriteWAV into memory.
func WAVBytes(tb testing.TB, rate, bitDepth int, channels ...[]float64) []byte {
	tb.Helper()
	path := WriteWAV(tb, tb.TempDir(), "clip.wav", rate, bitDepth, channels...)
	data, err := os.ReadFile(path)
	if err != nil {
		tb.Fatalf("audiotest: read %s: %v", path, err)
	}
	return data
}

// WriteWAV writes an integer PCM WAV file with one slice per channel and
// returns its path. Channels shorter than the first are zero-padded.
func WriteWAV(tb testing.TB, dir, name string, rate, bitDepth int, channels ...[]float64) string {
	tb.Helper()
	if len(channels) == 0 {
		tb.Fatal("audiotest: no channels")
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		tb.Fatalf("audiotest: create %s: %v", path, err)
	}
	defer f.Close()

	frames := len(channels[0])
	scale := float64(int64(1)<<(bitDepth-1)) - 1
	// 8-bit WAV samples are unsigned around 128.
	offset := 0
	if bitDepth == 8 {
		offset = 128
	}
	data := make([]int, frames*len(channels))
	for i := 0; i < frames; i++ {
		for c, ch := range channels {
			v := 0.0
			if i < len(ch) {
				v = math.Max(-1, math.Min(1, ch[i]))
			}
			data[i*len(channels)+c] = int(math.Round(v*scale)) + offset
		}
	}

	enc := wav.NewEncoder(f, rate, bitDepth, len(channels), 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: len(channels), SampleRate: rate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		tb.Fatalf("audiotest: write %s: %v", path, err)
	}
	if err := enc.Close(); err != nil {
		tb.Fatalf("audiotest: close %s: %v", path, err)
	}
	return path
}

// WriteFile writes raw bytes to dir/name and returns the path.
func WriteFile(tb testing.TB, dir, name string, data []byte) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		tb.Fatalf("audiotest: write %s: %v", path, err)
	}
	return path
}
