package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

// wavBytes renders 16-bit PCM samples into an in-memory RIFF/WAVE file.
// Multi-channel input is interleaved frame by frame.
func wavBytes(t *testing.T, frames [][]float64, sampleRate int) []byte {
	t.Helper()
	channels := len(frames)
	if channels == 0 {
		t.Fatal("wavBytes needs at least one channel")
	}
	frameCount := len(frames[0])
	dataLen := uint32(frameCount * channels * 2)

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*channels*2))
	binary.Write(&buf, binary.LittleEndian, uint16(channels*2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, dataLen)
	for i := 0; i < frameCount; i++ {
		for c := 0; c < channels; c++ {
			binary.Write(&buf, binary.LittleEndian, int16(math.Round(frames[c][i]*32767)))
		}
	}
	return buf.Bytes()
}

func TestDecodeMonoWAV(t *testing.T) {
	t.Parallel()
	mono := make([]float64, 4410)
	for i := range mono {
		mono[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/44100)
	}
	data := wavBytes(t, [][]float64{mono}, 44100)

	buf, err := Decode("tone.wav", data)
	if err != nil {
		t.Fatalf("Decode error = %v", err)
	}
	if buf.SampleRate != 44100 {
		t.Errorf("SampleRate = %d, want 44100", buf.SampleRate)
	}
	if len(buf.Samples) != len(mono) {
		t.Fatalf("len(Samples) = %d, want %d", len(buf.Samples), len(mono))
	}
	for i := 0; i < len(mono); i += 441 {
		if math.Abs(buf.Samples[i]-mono[i]) > 1e-3 {
			t.Fatalf("Samples[%d] = %v, want about %v", i, buf.Samples[i], mono[i])
		}
	}
}

func TestDecodeStereoAveragesChannels(t *testing.T) {
	t.Parallel()
	n := 2205
	left := make([]float64, n)
	right := make([]float64, n)
	for i := range left {
		left[i] = 0.5
		right[i] = -0.5
	}
	data := wavBytes(t, [][]float64{left, right}, 22050)

	buf, err := Decode("opposed.wav", data)
	if err != nil {
		t.Fatalf("Decode error = %v", err)
	}
	if buf.SampleRate != 22050 {
		t.Errorf("SampleRate = %d, want 22050", buf.SampleRate)
	}
	for i, s := range buf.Samples {
		if math.Abs(s) > 1e-3 {
			t.Fatalf("Samples[%d] = %v, want opposed channels to cancel", i, s)
		}
	}
}

func TestDecodeSniffsWAVWithoutExtension(t *testing.T) {
	t.Parallel()
	mono := make([]float64, 100)
	data := wavBytes(t, [][]float64{mono}, 8000)
	buf, err := Decode("upload", data)
	if err != nil {
		t.Fatalf("Decode error = %v", err)
	}
	if buf.SampleRate != 8000 {
		t.Errorf("SampleRate = %d, want 8000", buf.SampleRate)
	}
}

func TestDetectFormat(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name     string
		filename string
		data     []byte
		want     string
		wantErr  bool
	}{
		{"wav extension", "a.WAV", nil, FormatWAV, false},
		{"mp3 extension", "a.mp3", nil, FormatMP3, false},
		{"id3 sniff", "upload", []byte("ID3\x04\x00"), FormatMP3, false},
		{"frame sync sniff", "upload", []byte{0xFF, 0xFB, 0x90}, FormatMP3, false},
		{"unknown", "a.flac", []byte{0x66, 0x4C, 0x61, 0x43}, "", true},
		{"empty", "noext", nil, "", true},
	}
	for _, tc := range cases {
		got, err := DetectFormat(tc.filename, tc.data)
		if tc.wantErr {
			if !errors.Is(err, ErrUnsupportedFormat) {
				t.Errorf("%s: error = %v, want ErrUnsupportedFormat", tc.name, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%s: format = %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	t.Parallel()
	if _, err := Decode("noise.wav", []byte("definitely not audio")); err == nil {
		t.Error("Decode(garbage wav) returned nil error")
	}
}
