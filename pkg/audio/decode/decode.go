// Package decode reads audio files into mono float64 PCM.
//
// Supported containers:
//
//   - WAV (integer PCM 8/16/24/32 bit, any channel count) via go-audio/wav
//   - MP3 (MPEG-1/2 Layer III) via go-mp3
//
// Multi-channel audio is downmixed by averaging channels. Samples are
// normalized to [-1, 1]. The sample rate is the file's native rate; use
// package resampler to convert it.
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Sentinel errors.
var (
	// ErrUnsupported is returned when the data is not in a known container.
	ErrUnsupported = errors.New("decode: unsupported audio format")

	// ErrCorrupt is returned when the container is recognized but its
	// contents cannot be decoded.
	ErrCorrupt = errors.New("decode: corrupt audio data")

	// ErrEmpty is returned when a file decodes to zero samples.
	ErrEmpty = errors.New("decode: no audio samples")
)

// Format identifies an audio container.
type Format string

const (
	FormatUnknown Format = ""
	FormatWAV     Format = "wav"
	FormatMP3     Format = "mp3"
)

// Clip is decoded mono audio.
type Clip struct {
	// Samples are mono samples in [-1, 1].
	Samples []float64

	// SampleRate is the native sample rate in Hz.
	SampleRate int

	// Channels is the channel count of the source before downmixing.
	Channels int

	// Format is the container the clip was decoded from.
	Format Format
}

// Duration returns the clip length.
func (c *Clip) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(c.SampleRate)
}

// File reads and decodes the audio file at path.
func File(path string) (*Clip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Bytes(data, path)
}

// Bytes decodes in-memory audio data. name is only used for its extension
// when the content does not identify the container.
func Bytes(data []byte, name string) (*Clip, error) {
	format := Detect(data, name)
	var (
		clip *Clip
		err  error
	)
	switch format {
	case FormatWAV:
		clip, err = decodeWAV(data)
	case FormatMP3:
		clip, err = decodeMP3(bytes.NewReader(data))
	default:
		return nil, ErrUnsupported
	}
	if err != nil {
		return nil, err
	}
	if len(clip.Samples) == 0 {
		return nil, ErrEmpty
	}
	clip.Format = format
	return clip, nil
}

// Detect identifies the container from magic bytes, falling back to the
// extension of name.
func Detect(data []byte, name string) Format {
	switch {
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return FormatWAV
	case len(data) >= 3 && string(data[0:3]) == "ID3":
		return FormatMP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return FormatMP3
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".wav", ".wave":
		return FormatWAV
	case ".mp3":
		return FormatMP3
	}
	return FormatUnknown
}

// corrupt wraps err as ErrCorrupt, keeping the cause in the message.
func corrupt(format Format, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %s truncated", ErrCorrupt, format)
	}
	return fmt.Errorf("%w: %s: %v", ErrCorrupt, format, err)
}
