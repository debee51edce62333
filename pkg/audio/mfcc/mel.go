package mfcc

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Slaney mel scale: linear below 1 kHz, logarithmic above.
const (
	slaneyStep   = 200.0 / 3
	slaneyLogHz  = 1000.0
	slaneyLogMel = slaneyLogHz / slaneyStep
)

var slaneyLogStep = math.Log(6.4) / 27

// hannWindow generates a periodic Hann window of length n.
func hannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

func hzToMel(hz float64, htk bool) float64 {
	if htk {
		return 2595.0 * math.Log10(1.0+hz/700.0)
	}
	if hz >= slaneyLogHz {
		return slaneyLogMel + math.Log(hz/slaneyLogHz)/slaneyLogStep
	}
	return hz / slaneyStep
}

func melToHz(mel float64, htk bool) float64 {
	if htk {
		return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
	}
	if mel >= slaneyLogMel {
		return slaneyLogHz * math.Exp(slaneyLogStep*(mel-slaneyLogMel))
	}
	return slaneyStep * mel
}

// melFrequencies returns n frequencies in Hz evenly spaced on the mel scale.
func melFrequencies(n int, low, high float64, htk bool) []float64 {
	lowMel := hzToMel(low, htk)
	highMel := hzToMel(high, htk)
	out := make([]float64, n)
	for i := range out {
		m := lowMel + (highMel-lowMel)*float64(i)/float64(n-1)
		out[i] = melToHz(m, htk)
	}
	return out
}

// melFilterBank builds the [NumMels, FFTSize/2+1] triangular filter matrix
// with Slaney area normalization.
func melFilterBank(cfg Config) *mat.Dense {
	half := cfg.FFTSize/2 + 1
	bank := mat.NewDense(cfg.NumMels, half, nil)

	fftFreqs := make([]float64, half)
	for k := range fftFreqs {
		fftFreqs[k] = float64(k) * float64(cfg.SampleRate) / float64(cfg.FFTSize)
	}
	melF := melFrequencies(cfg.NumMels+2, cfg.LowFreq, cfg.highFreq(), cfg.HTK)

	for m := 0; m < cfg.NumMels; m++ {
		left, center, right := melF[m], melF[m+1], melF[m+2]
		norm := 2.0 / (right - left)
		for k, f := range fftFreqs {
			lower := (f - left) / (center - left)
			upper := (right - f) / (right - center)
			w := math.Max(0, math.Min(lower, upper))
			if w > 0 {
				bank.Set(m, k, w*norm)
			}
		}
	}
	return bank
}

// dctMatrix returns the first rows of the orthonormal DCT-II basis of size n.
func dctMatrix(rows, n int) *mat.Dense {
	d := mat.NewDense(rows, n, nil)
	for k := 0; k < rows; k++ {
		scale := math.Sqrt(2.0 / float64(n))
		if k == 0 {
			scale = math.Sqrt(1.0 / float64(n))
		}
		for j := 0; j < n; j++ {
			d.Set(k, j, scale*math.Cos(math.Pi*float64(k)*float64(2*j+1)/float64(2*n)))
		}
	}
	return d
}
