// Package mfcc computes Mel-frequency cepstral coefficients from mono PCM.
//
// The front-end is the one most sound-event classifiers are trained with
// (it matches the librosa defaults):
//
//	SampleRate: 22050
//	FFTSize:    2048 (periodic Hann window of the same length)
//	HopSize:    512
//	Center:     true (FFTSize/2 zeros padded on both sides)
//	NumMels:    128 (Slaney mel scale, Slaney area normalization)
//	LowFreq:    0
//	HighFreq:   SampleRate/2
//	TopDB:      80
//	NumCoeffs:  40 (orthonormal DCT-II)
//
// Extract returns the [NumCoeffs, T] coefficient matrix; Mean collapses it
// over time into a single NumCoeffs-long vector.
package mfcc

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// amin is the power floor applied before converting to decibels.
const amin = 1e-10

// Config controls MFCC extraction parameters.
type Config struct {
	SampleRate int     `yaml:"sample_rate" json:"sample_rate"`
	FFTSize    int     `yaml:"fft_size" json:"fft_size"`
	HopSize    int     `yaml:"hop_size" json:"hop_size"`
	NumMels    int     `yaml:"num_mels" json:"num_mels"`
	NumCoeffs  int     `yaml:"num_coeffs" json:"num_coeffs"`
	LowFreq    float64 `yaml:"low_freq" json:"low_freq"`
	HighFreq   float64 `yaml:"high_freq" json:"high_freq"` // 0 means SampleRate/2
	TopDB      float64 `yaml:"top_db" json:"top_db"`       // 0 disables clipping
	HTK        bool    `yaml:"htk" json:"htk"`             // HTK mel formula instead of Slaney
	Center     bool    `yaml:"center" json:"center"`
}

// DefaultConfig returns the canonical 40-coefficient configuration.
func DefaultConfig() Config {
	return Config{
		SampleRate: 22050,
		FFTSize:    2048,
		HopSize:    512,
		NumMels:    128,
		NumCoeffs:  40,
		LowFreq:    0,
		HighFreq:   0,
		TopDB:      80,
		HTK:        false,
		Center:     true,
	}
}

// Validate reports whether the configuration can be used to build an
// Extractor.
func (c Config) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("mfcc: invalid sample rate %d", c.SampleRate)
	case c.FFTSize < 2 || c.FFTSize&(c.FFTSize-1) != 0:
		return fmt.Errorf("mfcc: fft size %d is not a power of two", c.FFTSize)
	case c.HopSize <= 0:
		return fmt.Errorf("mfcc: invalid hop size %d", c.HopSize)
	case c.NumMels <= 0:
		return fmt.Errorf("mfcc: invalid mel count %d", c.NumMels)
	case c.NumCoeffs <= 0 || c.NumCoeffs > c.NumMels:
		return fmt.Errorf("mfcc: coefficient count %d must be in [1, %d]", c.NumCoeffs, c.NumMels)
	case c.LowFreq < 0 || c.highFreq() <= c.LowFreq:
		return fmt.Errorf("mfcc: invalid frequency range [%g, %g]", c.LowFreq, c.highFreq())
	case c.highFreq() > float64(c.SampleRate)/2:
		return fmt.Errorf("mfcc: high frequency %g above Nyquist", c.highFreq())
	case c.TopDB < 0:
		return errors.New("mfcc: top_db must not be negative")
	}
	return nil
}

func (c Config) highFreq() float64 {
	if c.HighFreq > 0 {
		return c.HighFreq
	}
	return float64(c.SampleRate) / 2
}

// Extractor computes MFCCs. It is safe for concurrent use.
type Extractor struct {
	cfg     Config
	window  []float64
	melBank *mat.Dense // [NumMels, FFTSize/2+1]
	dct     *mat.Dense // [NumCoeffs, NumMels]
}

// New creates an Extractor for cfg.
func New(cfg Config) (*Extractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Extractor{
		cfg:     cfg,
		window:  hannWindow(cfg.FFTSize),
		melBank: melFilterBank(cfg),
		dct:     dctMatrix(cfg.NumCoeffs, cfg.NumMels),
	}, nil
}

// Config returns the extractor configuration.
func (e *Extractor) Config() Config {
	return e.cfg
}

// Frames returns the number of analysis frames produced for n samples.
func (e *Extractor) Frames(n int) int {
	if n <= 0 {
		return 0
	}
	if e.cfg.Center {
		return 1 + n/e.cfg.HopSize
	}
	if n < e.cfg.FFTSize {
		return 0
	}
	return (n-e.cfg.FFTSize)/e.cfg.HopSize + 1
}

// PowerSpectrogram returns |STFT|² as a [FFTSize/2+1, T] matrix, or nil if
// pcm is too short to produce a frame.
func (e *Extractor) PowerSpectrogram(pcm []float64) *mat.Dense {
	cfg := e.cfg
	frames := e.Frames(len(pcm))
	if frames == 0 {
		return nil
	}

	half := cfg.FFTSize/2 + 1
	pad := 0
	if cfg.Center {
		pad = cfg.FFTSize / 2
	}

	// fourier.FFT keeps scratch space, one per call keeps Extractor shareable.
	fft := fourier.NewFFT(cfg.FFTSize)
	frame := make([]float64, cfg.FFTSize)
	coeffs := make([]complex128, half)
	spec := mat.NewDense(half, frames, nil)

	for t := 0; t < frames; t++ {
		start := t*cfg.HopSize - pad
		for i := range frame {
			j := start + i
			if j < 0 || j >= len(pcm) {
				frame[i] = 0
				continue
			}
			frame[i] = pcm[j] * e.window[i]
		}
		coeffs = fft.Coefficients(coeffs, frame)
		for k, c := range coeffs {
			re, im := real(c), imag(c)
			spec.Set(k, t, re*re+im*im)
		}
	}
	return spec
}

// MelSpectrogram returns the log-power mel spectrogram in decibels as a
// [NumMels, T] matrix, or nil if pcm yields no frames.
func (e *Extractor) MelSpectrogram(pcm []float64) *mat.Dense {
	spec := e.PowerSpectrogram(pcm)
	if spec == nil {
		return nil
	}
	_, frames := spec.Dims()
	mel := mat.NewDense(e.cfg.NumMels, frames, nil)
	mel.Mul(e.melBank, spec)
	powerToDB(mel.RawMatrix().Data, e.cfg.TopDB)
	return mel
}

// Extract returns the [NumCoeffs, T] MFCC matrix, or nil if pcm yields no
// frames.
func (e *Extractor) Extract(pcm []float64) *mat.Dense {
	mel := e.MelSpectrogram(pcm)
	if mel == nil {
		return nil
	}
	_, frames := mel.Dims()
	out := mat.NewDense(e.cfg.NumCoeffs, frames, nil)
	out.Mul(e.dct, mel)
	return out
}

// Mean returns the time-average of every coefficient, in coefficient order.
// It returns nil if pcm yields no frames.
func (e *Extractor) Mean(pcm []float64) []float64 {
	m := e.Extract(pcm)
	if m == nil {
		return nil
	}
	rows, _ := m.Dims()
	means := make([]float64, rows)
	for i := range means {
		means[i] = stat.Mean(m.RawRowView(i), nil)
	}
	return means
}

// powerToDB converts power values to decibels in place (ref 1.0) and clips
// everything below max-topDB.
func powerToDB(s []float64, topDB float64) {
	peak := math.Inf(-1)
	for i, v := range s {
		db := 10 * math.Log10(math.Max(v, amin))
		s[i] = db
		if db > peak {
			peak = db
		}
	}
	if topDB <= 0 {
		return
	}
	floor := peak - topDB
	for i, v := range s {
		if v < floor {
			s[i] = floor
		}
	}
}
