// Package audio groups the audio front end of the classifier:
//
//   - decode: WAV and MP3 files to mono float samples
//   - resampler: sample rate conversion
//   - mfcc: mel-frequency cepstral coefficients
//   - audiotest: synthesized fixtures for tests
//
// A clip flows through them in that order:
//
//	clip, err := decode.File("street.wav")
//	samples, err := resampler.Resample(clip.Samples, clip.SampleRate, 22050)
//	ext, err := mfcc.New(mfcc.DefaultConfig())
//	means := ext.Mean(samples)
package audio
