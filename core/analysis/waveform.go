package analysis

import "math"

// WaveformSummary is the visualization payload: one peak magnitude per block
// of the signal.
type WaveformSummary struct {
	Peaks           []float64
	DurationSeconds float64
}

// DownsampleWaveform reduces the buffer to targetPeaks peak magnitudes by
// splitting it into contiguous blocks and taking max(|x|) per block. When the
// buffer holds fewer samples than targetPeaks the output is one peak per
// sample, so len(Peaks) == min(targetPeaks, len(samples)). A non-positive
// targetPeaks selects DefaultWaveformPeaks.
func DownsampleWaveform(buf SampleBuffer, targetPeaks int) WaveformSummary {
	if targetPeaks <= 0 {
		targetPeaks = DefaultWaveformPeaks
	}
	n := len(buf.Samples)
	summary := WaveformSummary{DurationSeconds: buf.Duration()}
	if n == 0 {
		summary.Peaks = []float64{}
		return summary
	}

	if n < targetPeaks {
		peaks := make([]float64, n)
		for i, s := range buf.Samples {
			peaks[i] = math.Abs(s)
		}
		summary.Peaks = peaks
		return summary
	}

	blockSize := n / targetPeaks
	peaks := make([]float64, targetPeaks)
	for i := 0; i < targetPeaks; i++ {
		start := i * blockSize
		end := start + blockSize
		if i == targetPeaks-1 {
			// The last block absorbs the division remainder.
			end = n
		}
		peak := 0.0
		for _, s := range buf.Samples[start:end] {
			if a := math.Abs(s); a > peak {
				peak = a
			}
		}
		peaks[i] = peak
	}
	summary.Peaks = peaks
	return summary
}
