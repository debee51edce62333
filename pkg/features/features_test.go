package features

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math"
	"os"
	"testing"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/haivivi/soundclass/pkg/audio/audiotest"
	"github.com/haivivi/soundclass/pkg/audio/decode"
	"github.com/haivivi/soundclass/pkg/audio/mfcc"
	"github.com/haivivi/soundclass/pkg/kv"
)

func newExtractor(t *testing.T, opts ...Option) *Extractor {
	t.Helper()
	e, err := New(mfcc.DefaultConfig(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func TestExtractLength(t *testing.T) {
	dir := t.TempDir()
	e := newExtractor(t)

	tests := []struct {
		name string
		rate int
		dur  time.Duration
	}{
		{"half second 44k", 44100, 500 * time.Millisecond},
		{"half second 16k", 16000, 500 * time.Millisecond},
		{"thirty seconds", 22050, 30 * time.Second},
		{"ten milliseconds", 22050, 10 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tone := audiotest.Sine(880, tt.rate, tt.dur, 0.4)
			path := audiotest.WriteWAV(t, dir, tt.name+".wav", tt.rate, 16, tone)

			v, err := e.Extract(context.Background(), path)
			if err != nil {
				t.Fatalf("Extract: %v", err)
			}
			if len(v) != 40 {
				t.Fatalf("len = %d, want 40", len(v))
			}
			for i, x := range v {
				if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
					t.Fatalf("v[%d] = %f", i, x)
				}
			}
		})
	}
}

func TestExtractDeterministic(t *testing.T) {
	dir := t.TempDir()
	e := newExtractor(t)
	pcm := audiotest.Noise(7, 22050, 0.3)
	path := audiotest.WriteWAV(t, dir, "noise.wav", 44100, 16, pcm, pcm)

	a, err := e.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	b, err := e.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("v[%d] differs: %f vs %f", i, a[i], b[i])
		}
	}
}

func TestExtractDistinguishesSignals(t *testing.T) {
	dir := t.TempDir()
	e := newExtractor(t)
	low := audiotest.WriteWAV(t, dir, "low.wav", 22050, 16, audiotest.Sine(150, 22050, time.Second, 0.5))
	high := audiotest.WriteWAV(t, dir, "high.wav", 22050, 16, audiotest.Sine(4000, 22050, time.Second, 0.5))

	a, _ := e.Extract(context.Background(), low)
	b, _ := e.Extract(context.Background(), high)
	var dist float64
	for i := range a {
		d := float64(a[i] - b[i])
		dist += d * d
	}
	if dist < 1 {
		t.Errorf("150 Hz and 4 kHz tones map to nearly equal vectors (dist² %f)", dist)
	}
}

func TestExtractErrors(t *testing.T) {
	dir := t.TempDir()
	e := newExtractor(t)

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	valid := audiotest.WriteWAV(t, dir, "ok.wav", 22050, 16, audiotest.Sine(440, 22050, 100*time.Millisecond, 0.5))

	tests := []struct {
		name  string
		ctx   context.Context
		path  string
		kinds []Kind
	}{
		{"missing", context.Background(), dir + "/missing.wav", []Kind{KindUnreadable}},
		{"directory", context.Background(), dir, []Kind{KindUnreadable}},
		{"text file", context.Background(), audiotest.WriteFile(t, dir, "notes.txt", []byte("hello")), []Kind{KindUnsupported}},
		{"corrupt wav", context.Background(), audiotest.WriteFile(t, dir, "bad.wav", []byte("RIFF\x04\x00\x00\x00WAVEjunkjunk")), []Kind{KindDecode, KindEmpty}},
		{"empty wav", context.Background(), audiotest.WriteWAV(t, dir, "empty.wav", 22050, 16, []float64{}), []Kind{KindEmpty, KindDecode}},
		{"canceled", canceled, valid, []Kind{KindCanceled}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := e.Extract(tt.ctx, tt.path)
			if v != nil {
				t.Errorf("expected nil vector, got %d values", len(v))
			}
			var ee *ExtractionError
			if !errors.As(err, &ee) {
				t.Fatalf("expected *ExtractionError, got %T %v", err, err)
			}
			if ee.Path != tt.path {
				t.Errorf("Path = %q, want %q", ee.Path, tt.path)
			}
			for _, k := range tt.kinds {
				if ee.Kind == k {
					return
				}
			}
			t.Errorf("Kind = %s, want one of %v (err: %v)", ee.Kind, tt.kinds, err)
		})
	}
}

func TestExtractClip(t *testing.T) {
	e := newExtractor(t)
	clip := &decode.Clip{Samples: audiotest.Sine(1000, 8000, 250*time.Millisecond, 0.5), SampleRate: 8000, Channels: 1}
	v, err := e.ExtractClip(context.Background(), clip)
	if err != nil {
		t.Fatalf("ExtractClip: %v", err)
	}
	if len(v) != e.Width() {
		t.Errorf("len = %d, want %d", len(v), e.Width())
	}

	_, err = e.ExtractClip(context.Background(), &decode.Clip{SampleRate: 8000})
	var ee *ExtractionError
	if !errors.As(err, &ee) || ee.Kind != KindEmpty {
		t.Errorf("empty clip: %v", err)
	}

	_, err = e.ExtractClip(context.Background(), &decode.Clip{Samples: []float64{0.1}, SampleRate: 0})
	if !errors.As(err, &ee) || ee.Kind != KindDecode {
		t.Errorf("zero rate: %v", err)
	}
}

func TestExtractCache(t *testing.T) {
	dir := t.TempDir()
	store := kv.NewMemory()
	e := newExtractor(t, WithCache(store, 0))
	path := audiotest.WriteWAV(t, dir, "tone.wav", 22050, 16, audiotest.Sine(440, 22050, 300*time.Millisecond, 0.5))

	first, err := e.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("cache entries = %d, want 1", store.Len())
	}

	second, err := e.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract (cached): %v", err)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("cached v[%d] = %f, want %f", i, second[i], first[i])
		}
	}

	// A different configuration must not see the entry.
	cfg := mfcc.DefaultConfig()
	cfg.NumMels = 64
	other, err := New(cfg, WithCache(store, 0))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := other.Extract(context.Background(), path); err != nil {
		t.Fatalf("Extract (other config): %v", err)
	}
	if store.Len() != 2 {
		t.Errorf("cache entries = %d, want 2", store.Len())
	}

	if err := store.DeletePrefix(context.Background(), CachePrefix()); err != nil {
		t.Fatalf("DeletePrefix: %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("cache entries after clear = %d", store.Len())
	}
}

func TestCacheLookupInvalid(t *testing.T) {
	store := kv.NewMemory()
	e := newExtractor(t, WithCache(store, 0))
	ctx := context.Background()

	garbage := cacheKey(e.fingerprint, "garbage")
	store.Set(ctx, garbage, []byte{0xc1}, 0)
	if _, ok := e.lookup(ctx, garbage); ok {
		t.Error("undecodable entry returned as hit")
	}

	short := cacheKey(e.fingerprint, "short")
	e.store(ctx, short, Vector{1, 2, 3})
	if _, ok := e.lookup(ctx, short); ok {
		t.Error("entry of wrong width returned as hit")
	}

	// Both bad entries are evicted on lookup.
	for _, key := range []kv.Key{garbage, short} {
		if _, err := store.Get(ctx, key); !errors.Is(err, kv.ErrNotFound) {
			t.Errorf("%s still cached: %v", key, err)
		}
	}
	if store.Len() != 0 {
		t.Errorf("cache entries = %d, want 0", store.Len())
	}

	good := cacheKey(e.fingerprint, "good")
	e.store(ctx, good, make(Vector, 40))
	if v, ok := e.lookup(ctx, good); !ok || len(v) != 40 {
		t.Errorf("lookup = %v, %v", v, ok)
	}

	if _, ok := e.lookup(ctx, cacheKey(e.fingerprint, "missing")); ok {
		t.Error("missing entry returned as hit")
	}
}

func TestExtractRecomputesAfterInvalidEntry(t *testing.T) {
	dir := t.TempDir()
	store := kv.NewMemory()
	e := newExtractor(t, WithCache(store, 0))
	ctx := context.Background()
	path := audiotest.WriteWAV(t, dir, "tone.wav", 22050, 16, audiotest.Sine(440, 22050, 200*time.Millisecond, 0.5))

	want, err := e.Extract(ctx, path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	sum := sha256.Sum256(data)
	key := cacheKey(e.fingerprint, hex.EncodeToString(sum[:]))
	if store.Len() != 1 {
		t.Fatalf("cache entries = %d, want 1", store.Len())
	}
	store.Set(ctx, key, []byte("not msgpack"), 0)

	got, err := e.Extract(ctx, path)
	if err != nil {
		t.Fatalf("Extract after corruption: %v", err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("v[%d] = %f, want %f", i, got[i], want[i])
		}
	}
	b, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	var cached Vector
	if err := msgpack.Unmarshal(b, &cached); err != nil || len(cached) != e.Width() {
		t.Errorf("entry not rewritten: %v, %d values", err, len(cached))
	}
}

func TestKindString(t *testing.T) {
	if KindUnreadable.String() != "unreadable" || Kind(99).String() != "Kind(99)" {
		t.Errorf("unexpected Kind strings")
	}
}

func BenchmarkExtract(b *testing.B) {
	dir := b.TempDir()
	path := audiotest.WriteWAV(b, dir, "bench.wav", 44100, 16, audiotest.Noise(1, 44100*4, 0.3))
	e, err := New(mfcc.DefaultConfig())
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.Extract(context.Background(), path); err != nil {
			b.Fatal(err)
		}
	}
}
