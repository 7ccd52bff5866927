// Package audio decodes uploaded WAV and MP3 files into mono sample buffers
// ready for analysis.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"

	"github.com/benzaid32/virtuoso-ai-music-lab/core/analysis"
)

// ErrUnsupportedFormat marks files that are neither WAV nor MP3. Hosts treat
// it like invalid input.
var ErrUnsupportedFormat = errors.New("audio: unsupported format")

// Supported container formats.
const (
	FormatWAV = "wav"
	FormatMP3 = "mp3"
)

// DetectFormat resolves the container format from the file extension, falling
// back to content sniffing (RIFF header, ID3 tag or MP3 frame sync) when the
// extension is missing or unknown.
func DetectFormat(filename string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".wav":
		return FormatWAV, nil
	case ".mp3":
		return FormatMP3, nil
	}
	if len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE" {
		return FormatWAV, nil
	}
	if len(data) >= 3 && string(data[0:3]) == "ID3" {
		return FormatMP3, nil
	}
	if len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0 {
		return FormatMP3, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filename)
}

// Decode turns encoded file bytes into a mono sample buffer. Stereo material
// is averaged down to one channel; the container sample rate is carried
// through unchanged.
func Decode(filename string, data []byte) (analysis.SampleBuffer, error) {
	format, err := DetectFormat(filename, data)
	if err != nil {
		return analysis.SampleBuffer{}, err
	}

	var (
		stream beep.StreamSeekCloser
		meta   beep.Format
	)
	switch format {
	case FormatWAV:
		stream, meta, err = wav.Decode(bytes.NewReader(data))
	case FormatMP3:
		stream, meta, err = mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	default:
		return analysis.SampleBuffer{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return analysis.SampleBuffer{}, fmt.Errorf("audio: decode %s: %w", format, err)
	}
	defer stream.Close()

	return mixdown(stream, meta)
}

// DecodeFile reads and decodes a file from disk.
func DecodeFile(path string) (analysis.SampleBuffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return analysis.SampleBuffer{}, fmt.Errorf("audio: read %s: %w", path, err)
	}
	return Decode(filepath.Base(path), data)
}

// mixdown drains the streamer into a mono buffer, averaging both channels.
// Mono sources carry the same value on both, so the average is lossless.
func mixdown(stream beep.StreamSeekCloser, format beep.Format) (analysis.SampleBuffer, error) {
	capacity := stream.Len()
	if capacity < 0 {
		capacity = 0
	}
	samples := make([]float64, 0, capacity)

	frames := make([][2]float64, 512)
	for {
		n, ok := stream.Stream(frames)
		for i := 0; i < n; i++ {
			samples = append(samples, (frames[i][0]+frames[i][1])/2)
		}
		if !ok {
			break
		}
	}
	if err := stream.Err(); err != nil {
		return analysis.SampleBuffer{}, fmt.Errorf("audio: stream: %w", err)
	}

	return analysis.SampleBuffer{
		Samples:    samples,
		SampleRate: int(format.SampleRate),
	}, nil
}
