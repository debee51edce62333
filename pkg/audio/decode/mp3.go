package decode

import (
	"io"

	"github.com/hajimehoshi/go-mp3"
)

// go-mp3 always produces 16-bit little-endian stereo.
const (
	mp3Channels    = 2
	mp3FrameBytes  = 4
	mp3SampleScale = 32768.0
)

func decodeMP3(r io.Reader) (*Clip, error) {
	d, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, corrupt(FormatMP3, err)
	}
	raw, err := io.ReadAll(d)
	if err != nil {
		return nil, corrupt(FormatMP3, err)
	}

	samples := downmixS16Stereo(raw)

	return &Clip{
		Samples:    samples,
		SampleRate: d.SampleRate(),
		Channels:   mp3Channels,
	}, nil
}

// downmixS16Stereo averages interleaved 16-bit little-endian stereo frames.
// A trailing partial frame is dropped.
func downmixS16Stereo(raw []byte) []float64 {
	frames := len(raw) / mp3FrameBytes
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		j := i * mp3FrameBytes
		l := int16(raw[j]) | int16(raw[j+1])<<8
		r := int16(raw[j+2]) | int16(raw[j+3])<<8
		samples[i] = (float64(l) + float64(r)) / 2 / mp3SampleScale
	}
	return samples
}
