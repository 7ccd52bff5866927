package analysis

import (
	"math"
	"testing"
)

func TestDownsampleWaveformShape(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		samples int
		target  int
		want    int
	}{
		{"exact multiple", 1000, 100, 100},
		{"with remainder", 1003, 100, 100},
		{"shorter than target", 40, 100, 40},
		{"single sample", 1, 100, 1},
		{"target one", 500, 1, 1},
	}
	for _, tc := range cases {
		buf := sineBuffer(t, 440, 44100, 1, 0.5)
		buf.Samples = buf.Samples[:tc.samples]
		got := DownsampleWaveform(buf, tc.target)
		if len(got.Peaks) != tc.want {
			t.Errorf("%s: len(Peaks) = %d, want %d", tc.name, len(got.Peaks), tc.want)
		}
	}
}

func TestDownsampleWaveformBlockPeaks(t *testing.T) {
	t.Parallel()
	samples := make([]float64, 10)
	samples[1] = -0.9
	samples[4] = 0.2
	samples[7] = 0.5
	samples[9] = -0.1
	buf := SampleBuffer{Samples: samples, SampleRate: 10}

	got := DownsampleWaveform(buf, 2)
	want := []float64{0.9, 0.5}
	if len(got.Peaks) != len(want) {
		t.Fatalf("len(Peaks) = %d, want %d", len(got.Peaks), len(want))
	}
	for i := range want {
		if math.Abs(got.Peaks[i]-want[i]) > 1e-12 {
			t.Errorf("Peaks[%d] = %v, want %v", i, got.Peaks[i], want[i])
		}
	}
	if math.Abs(got.DurationSeconds-1.0) > 1e-12 {
		t.Errorf("DurationSeconds = %v, want 1.0", got.DurationSeconds)
	}
}

func TestDownsampleWaveformRemainderGoesToLastBlock(t *testing.T) {
	t.Parallel()
	// 7 samples over 3 blocks: the last block covers indices 4..6.
	samples := []float64{0, 0, 0, 0, 0, 0, 0.8}
	buf := SampleBuffer{Samples: samples, SampleRate: 7}
	got := DownsampleWaveform(buf, 3)
	if len(got.Peaks) != 3 {
		t.Fatalf("len(Peaks) = %d, want 3", len(got.Peaks))
	}
	if got.Peaks[2] != 0.8 {
		t.Errorf("Peaks[2] = %v, want 0.8 from the remainder tail", got.Peaks[2])
	}
}

func TestDownsampleWaveformShortBufferUsesAbsolutes(t *testing.T) {
	t.Parallel()
	buf := SampleBuffer{Samples: []float64{-0.25, 0.5, -0.75}, SampleRate: 44100}
	got := DownsampleWaveform(buf, 100)
	want := []float64{0.25, 0.5, 0.75}
	for i := range want {
		if got.Peaks[i] != want[i] {
			t.Errorf("Peaks[%d] = %v, want %v", i, got.Peaks[i], want[i])
		}
	}
}
