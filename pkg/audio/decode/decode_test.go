package decode_test

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/haivivi/soundclass/pkg/audio/audiotest"
	"github.com/haivivi/soundclass/pkg/audio/decode"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		file string
		want decode.Format
	}{
		{"riff wave", []byte("RIFF\x00\x00\x00\x00WAVEfmt "), "x.bin", decode.FormatWAV},
		{"id3", []byte("ID3\x04\x00"), "x.bin", decode.FormatMP3},
		{"mpeg sync", []byte{0xFF, 0xFB, 0x90, 0x00}, "x", decode.FormatMP3},
		{"wav extension", []byte("junk"), "clip.WAV", decode.FormatWAV},
		{"mp3 extension", []byte("junk"), "clip.mp3", decode.FormatMP3},
		{"unknown", []byte("hello world"), "notes.txt", decode.FormatUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decode.Detect(tt.data, tt.file); got != tt.want {
				t.Errorf("Detect = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFileWAVMono(t *testing.T) {
	dir := t.TempDir()
	tone := audiotest.Sine(440, 16000, 500*time.Millisecond, 0.5)
	path := audiotest.WriteWAV(t, dir, "tone.wav", 16000, 16, tone)

	clip, err := decode.File(path)
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	if clip.SampleRate != 16000 {
		t.Errorf("SampleRate = %d, want 16000", clip.SampleRate)
	}
	if clip.Channels != 1 {
		t.Errorf("Channels = %d, want 1", clip.Channels)
	}
	if clip.Format != decode.FormatWAV {
		t.Errorf("Format = %q, want wav", clip.Format)
	}
	if len(clip.Samples) != len(tone) {
		t.Fatalf("len = %d, want %d", len(clip.Samples), len(tone))
	}
	for i := range tone {
		if math.Abs(clip.Samples[i]-tone[i]) > 1e-3 {
			t.Fatalf("sample %d = %f, want ~%f", i, clip.Samples[i], tone[i])
		}
	}
	if d := clip.Duration(); d != 500*time.Millisecond {
		t.Errorf("Duration = %v, want 500ms", d)
	}
}

func TestFileWAVStereoDownmix(t *testing.T) {
	dir := t.TempDir()
	left := make([]float64, 1000)
	right := make([]float64, 1000)
	for i := range left {
		left[i] = 0.5
		right[i] = -0.25
	}
	path := audiotest.WriteWAV(t, dir, "stereo.wav", 44100, 16, left, right)

	clip, err := decode.File(path)
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	if clip.Channels != 2 {
		t.Errorf("Channels = %d, want 2", clip.Channels)
	}
	if len(clip.Samples) != 1000 {
		t.Fatalf("len = %d, want 1000", len(clip.Samples))
	}
	if math.Abs(clip.Samples[10]-0.125) > 1e-3 {
		t.Errorf("downmixed sample = %f, want 0.125", clip.Samples[10])
	}
}

func TestFileErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing", func(t *testing.T) {
		_, err := decode.File(filepath.Join(dir, "nope.wav"))
		if !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("expected fs.ErrNotExist, got %v", err)
		}
	})

	t.Run("unsupported", func(t *testing.T) {
		path := audiotest.WriteFile(t, dir, "notes.txt", []byte("definitely not audio"))
		_, err := decode.File(path)
		if !errors.Is(err, decode.ErrUnsupported) {
			t.Errorf("expected ErrUnsupported, got %v", err)
		}
	})

	t.Run("corrupt wav", func(t *testing.T) {
		path := audiotest.WriteFile(t, dir, "broken.wav", []byte("RIFF\x10\x00\x00\x00WAVEgarbage"))
		_, err := decode.File(path)
		if !errors.Is(err, decode.ErrCorrupt) && !errors.Is(err, decode.ErrEmpty) {
			t.Errorf("expected ErrCorrupt or ErrEmpty, got %v", err)
		}
	})

	t.Run("corrupt mp3", func(t *testing.T) {
		path := audiotest.WriteFile(t, dir, "broken.mp3", []byte("ID3\x04\x00\x00\x00\x00\x00\x00"))
		_, err := decode.File(path)
		if err == nil {
			t.Error("expected error for truncated mp3")
		}
	})
}

func TestFileWAVBitDepths(t *testing.T) {
	tone := audiotest.Sine(440, 8000, 250*time.Millisecond, 0.5)
	tests := []struct {
		bitDepth int
		tol      float64
	}{
		{8, 1.0 / 64},
		{16, 1e-3},
		{24, 1e-5},
		{32, 1e-7},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%dbit", tt.bitDepth), func(t *testing.T) {
			data := audiotest.WAVBytes(t, 8000, tt.bitDepth, tone)
			clip, err := decode.Bytes(data, "tone.wav")
			if err != nil {
				t.Fatalf("Bytes: %v", err)
			}
			if clip.SampleRate != 8000 {
				t.Errorf("SampleRate = %d, want 8000", clip.SampleRate)
			}
			if len(clip.Samples) != len(tone) {
				t.Fatalf("len = %d, want %d", len(clip.Samples), len(tone))
			}
			peak := 0.0
			for i := range tone {
				if d := math.Abs(clip.Samples[i] - tone[i]); d > tt.tol {
					t.Fatalf("sample %d = %f, want %f (tol %g)", i, clip.Samples[i], tone[i], tt.tol)
				}
				peak = math.Max(peak, math.Abs(clip.Samples[i]))
			}
			if math.Abs(peak-0.5) > 0.02 {
				t.Errorf("peak = %f, want ~0.5", peak)
			}
		})
	}
}

func TestWAVCorruptChunkSizes(t *testing.T) {
	tone := audiotest.Sine(440, 8000, 100*time.Millisecond, 0.5)

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"huge fmt size", func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[16:], 0x9e4c0010)
			return b
		}},
		{"short fmt size", func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[16:], 8)
			return b
		}},
		{"oversized chunk before data", func(b []byte) []byte {
			// Insert a LIST chunk after fmt that claims more than the file.
			fmtEnd := 12 + 8 + int(binary.LittleEndian.Uint32(b[16:]))
			list := []byte("LIST\xff\xff\xff\x7f")
			out := append([]byte{}, b[:fmtEnd]...)
			out = append(out, list...)
			return append(out, b[fmtEnd:]...)
		}},
		{"data before fmt", func(b []byte) []byte {
			copy(b[12:16], "data")
			return b
		}},
		{"not wave", func(b []byte) []byte {
			copy(b[8:12], "AVI ")
			return b
		}},
		{"header only", func(b []byte) []byte {
			return b[:12]
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.mutate(audiotest.WAVBytes(t, 8000, 16, tone))
			_, err := decode.Bytes(data, "clip.wav")
			if !errors.Is(err, decode.ErrCorrupt) {
				t.Errorf("expected ErrCorrupt, got %v", err)
			}
		})
	}
}

func TestWAVOvershootingDataChunk(t *testing.T) {
	tone := audiotest.Sine(440, 8000, 100*time.Millisecond, 0.5)
	data := audiotest.WAVBytes(t, 8000, 16, tone)

	// Streamed recordings leave the data size at its maximum.
	pos := 12
	for pos+8 <= len(data) && string(data[pos:pos+4]) != "data" {
		pos += 8 + int(binary.LittleEndian.Uint32(data[pos+4:]))
	}
	if pos+8 > len(data) {
		t.Fatal("no data chunk in fixture")
	}
	binary.LittleEndian.PutUint32(data[pos+4:], 0xFFFFFFF0)

	clip, err := decode.Bytes(data, "clip.wav")
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if len(clip.Samples) != len(tone) {
		t.Errorf("len = %d, want %d", len(clip.Samples), len(tone))
	}
}

func TestFileMP3(t *testing.T) {
	clip, err := decode.File(filepath.Join("testdata", "silence.mp3"))
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	if clip.Format != decode.FormatMP3 {
		t.Errorf("Format = %q, want mp3", clip.Format)
	}
	if clip.SampleRate != 44100 {
		t.Errorf("SampleRate = %d, want 44100", clip.SampleRate)
	}
	if clip.Channels != 2 {
		t.Errorf("Channels = %d, want 2", clip.Channels)
	}
	// 10 frames of 1152 samples each.
	if n := len(clip.Samples); n == 0 || n > 10*1152 || n%1152 != 0 {
		t.Errorf("len = %d, want a positive multiple of 1152 up to %d", n, 10*1152)
	}
	for i, v := range clip.Samples {
		if math.Abs(v) > 1e-3 {
			t.Fatalf("sample %d = %f, want silence", i, v)
		}
	}
}
