package resampler

import (
	"errors"
	"fmt"
	"math"
	"sync"

	resampling "github.com/tphakala/go-audio-resampling"
)

// ErrInvalidRate is returned for non-positive sample rates.
var ErrInvalidRate = errors.New("resampler: invalid sample rate")

// padSeconds is the zero padding placed before and after the input. It must
// cover the converter's group delay at every supported rate pair.
const padSeconds = 0.25

// OutputLen returns the number of samples Resample produces for n input
// samples.
func OutputLen(n, srcRate, dstRate int) int {
	if n <= 0 || srcRate <= 0 || dstRate <= 0 {
		return 0
	}
	return int((int64(n)*int64(dstRate) + int64(srcRate) - 1) / int64(srcRate))
}

// Resample converts mono samples from srcRate to dstRate. When the rates are
// equal it returns a copy of in. Output sample k lines up with input time
// k/dstRate and the result is exactly OutputLen samples long.
func Resample(in []float64, srcRate, dstRate int) ([]float64, error) {
	if srcRate <= 0 || dstRate <= 0 {
		return nil, fmt.Errorf("%w: %d -> %d", ErrInvalidRate, srcRate, dstRate)
	}
	if len(in) == 0 {
		return nil, nil
	}
	if srcRate == dstRate {
		out := make([]float64, len(in))
		copy(out, in)
		return out, nil
	}

	skip, err := offset(srcRate, dstRate)
	if err != nil {
		return nil, err
	}
	out, err := convert(in, srcRate, dstRate)
	if err != nil {
		return nil, err
	}

	want := OutputLen(len(in), srcRate, dstRate)
	res := make([]float64, want)
	if skip < len(out) {
		copy(res, out[skip:])
	}
	return res, nil
}

// convert runs in, framed by padSeconds of silence on both sides, through a
// fresh converter and flushes it.
func convert(in []float64, srcRate, dstRate int) ([]float64, error) {
	r, err := resampling.New(&resampling.Config{
		InputRate:  float64(srcRate),
		OutputRate: float64(dstRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("resampler: create %d -> %d: %w", srcRate, dstRate, err)
	}

	pad := padLen(srcRate)
	framed := make([]float64, pad+len(in)+pad)
	copy(framed[pad:], in)

	out, err := r.Process(framed)
	if err != nil {
		return nil, fmt.Errorf("resampler: process: %w", err)
	}
	tail, err := r.Flush()
	if err != nil {
		return nil, fmt.Errorf("resampler: flush: %w", err)
	}
	return append(out, tail...), nil
}

func padLen(rate int) int {
	return int(float64(rate) * padSeconds)
}

type ratePair struct{ src, dst int }

var offsets sync.Map // ratePair -> int

// offset returns the index of the output sample that corresponds to the first
// input sample after the leading padding. It is measured once per rate pair
// by locating the peak of a resampled impulse, so it accounts for whatever
// delay or advance the converter applies.
func offset(srcRate, dstRate int) (int, error) {
	key := ratePair{srcRate, dstRate}
	if v, ok := offsets.Load(key); ok {
		return v.(int), nil
	}

	impulse := make([]float64, padLen(srcRate))
	impulse[0] = 1
	out, err := convert(impulse, srcRate, dstRate)
	if err != nil {
		return 0, err
	}

	peak, at := 0.0, -1
	for i, v := range out {
		if a := math.Abs(v); a > peak {
			peak, at = a, i
		}
	}
	// The impulse must survive the converter, or the padding is too short
	// for this rate pair.
	if at < 0 || peak < 0.05 {
		return 0, fmt.Errorf("resampler: cannot align %d -> %d", srcRate, dstRate)
	}

	offsets.Store(key, at)
	return at, nil
}
