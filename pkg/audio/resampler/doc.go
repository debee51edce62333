// Package resampler converts mono float PCM between sample rates.
//
// It wraps the pure Go polyphase resampler from
// github.com/tphakala/go-audio-resampling (no CGO/FFI dependencies) with a
// whole-buffer API suited to file-based feature extraction:
//
//	out, err := resampler.Resample(clip.Samples, clip.SampleRate, 22050)
//	if err != nil {
//	    return err
//	}
//
// The output length is ceil(len(in) * dstRate / srcRate), the same length
// librosa.resample produces, so MFCC frame counts line up with models trained
// on librosa features. The converter's filter delay is measured once per rate
// pair and removed, so the output starts where the input starts and short
// clips keep their onset.
package resampler
