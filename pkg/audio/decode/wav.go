package decode

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/go-audio/wav"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE

	// fmt chunk sizes: 16 for PCM, 18 with cbSize, 40 for WAVE_FORMAT_EXTENSIBLE.
	wavFmtMin = 16
	wavFmtMax = 40
)

// checkRIFF walks the chunk headers of a WAV file and rejects sizes that do
// not fit in data. go-audio allocates chunk buffers from the declared sizes,
// so they must be bounded before it sees the file. The data chunk may claim
// more than is present; streamed recordings often do and the decoder stops at
// the end of the file.
func checkRIFF(data []byte) error {
	if len(data) < 12 {
		return fmt.Errorf("%w: WAV header truncated", ErrCorrupt)
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return fmt.Errorf("%w: not a RIFF/WAVE file", ErrCorrupt)
	}
	seenFmt := false
	for pos := 12; pos+8 <= len(data); {
		id := string(data[pos : pos+4])
		size := uint64(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		left := uint64(len(data) - pos - 8)

		switch id {
		case "fmt ":
			if size < wavFmtMin || size > wavFmtMax || size > left {
				return fmt.Errorf("%w: WAV fmt chunk size %d", ErrCorrupt, size)
			}
			seenFmt = true
		case "data":
			if !seenFmt {
				return fmt.Errorf("%w: WAV data before fmt chunk", ErrCorrupt)
			}
			return nil
		default:
			if size > left {
				return fmt.Errorf("%w: WAV %q chunk size %d exceeds file", ErrCorrupt, id, size)
			}
		}
		pos += 8 + int(size) + int(size&1)
	}
	return fmt.Errorf("%w: WAV has no data chunk", ErrCorrupt)
}

func decodeWAV(data []byte) (*Clip, error) {
	if err := checkRIFF(data); err != nil {
		return nil, err
	}
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		if err := d.Err(); err != nil {
			return nil, corrupt(FormatWAV, err)
		}
		return nil, fmt.Errorf("%w: invalid WAV header", ErrCorrupt)
	}
	if d.WavAudioFormat != wavFormatPCM && d.WavAudioFormat != wavFormatExtensible {
		return nil, fmt.Errorf("%w: WAV encoding %d", ErrUnsupported, d.WavAudioFormat)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, corrupt(FormatWAV, err)
	}

	channels := int(d.NumChans)
	if buf.Format != nil && buf.Format.NumChannels > 0 {
		channels = buf.Format.NumChannels
	}
	if channels <= 0 {
		return nil, fmt.Errorf("%w: WAV has no channels", ErrCorrupt)
	}
	rate := int(d.SampleRate)
	if buf.Format != nil && buf.Format.SampleRate > 0 {
		rate = buf.Format.SampleRate
	}
	if rate <= 0 {
		return nil, fmt.Errorf("%w: WAV sample rate %d", ErrCorrupt, rate)
	}

	bitDepth := int(d.BitDepth)
	if buf.SourceBitDepth > 0 {
		bitDepth = buf.SourceBitDepth
	}
	if bitDepth < 8 || bitDepth > 32 {
		return nil, fmt.Errorf("%w: WAV bit depth %d", ErrUnsupported, bitDepth)
	}

	// 8-bit WAV is unsigned, everything wider is signed.
	offset := 0.0
	scale := float64(int64(1) << (bitDepth - 1))
	if bitDepth == 8 {
		offset = 128
	}

	frames := len(buf.Data) / channels
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		sum := 0.0
		for c := 0; c < channels; c++ {
			sum += (float64(buf.Data[i*channels+c]) - offset) / scale
		}
		samples[i] = sum / float64(channels)
	}

	return &Clip{
		Samples:    samples,
		SampleRate: rate,
		Channels:   channels,
	}, nil
}
