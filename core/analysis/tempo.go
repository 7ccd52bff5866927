package analysis

import (
	"context"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
)

const (
	// onsetWindowSeconds is the energy envelope resolution.
	onsetWindowSeconds = 0.1
	// onsetThresholdRatio gates onsets relative to the envelope maximum.
	onsetThresholdRatio = 0.6
	// onsetRefractoryWindows is the minimum gap between onsets, in envelope
	// windows, suppressing duplicate detections on sustained transients.
	onsetRefractoryWindows = 2

	minBPM     = 60.0
	maxBPM     = 200.0
	defaultBPM = 120.0
)

// Tempo estimate confidence tiers. A clean estimate from real onsets earns
// the top tier; estimates that had to be clamped or rest on a single onset
// get the middle one; the silent fallback sits at the floor.
const (
	tempoConfidenceMeasured = 0.9
	tempoConfidenceClamped  = 0.6
	tempoConfidenceFallback = 0.3
)

type tempoEstimate struct {
	BPM        float64
	OnsetTimes []float64
	Confidence float64
}

// estimateTempo derives the tempo from onset spacing. Fewer than two onsets
// yields the deterministic 120 BPM fallback with low confidence, never a
// fabricated value.
func estimateTempo(ctx context.Context, buf SampleBuffer) (tempoEstimate, error) {
	envelope, windowDuration, err := energyEnvelope(ctx, buf)
	if err != nil {
		return tempoEstimate{}, err
	}
	return tempoFromOnsets(detectOnsets(envelope, windowDuration)), nil
}

// energyEnvelope partitions the buffer into fixed windows of roughly 100ms
// and computes the RMS energy of each. A trailing partial window is dropped,
// so a buffer shorter than one window produces an empty envelope.
func energyEnvelope(ctx context.Context, buf SampleBuffer) ([]float64, float64, error) {
	windowSize := int(onsetWindowSeconds * float64(buf.SampleRate))
	if windowSize < 1 {
		windowSize = 1
	}
	windowDuration := float64(windowSize) / float64(buf.SampleRate)

	count := len(buf.Samples) / windowSize
	envelope := make([]float64, 0, count)
	for w := 0; w < count; w++ {
		if err := checkpoint(ctx); err != nil {
			return nil, 0, err
		}
		sum := 0.0
		for _, s := range buf.Samples[w*windowSize : (w+1)*windowSize] {
			sum += s * s
		}
		envelope = append(envelope, math.Sqrt(sum/float64(windowSize)))
	}
	return envelope, windowDuration, nil
}

// detectOnsets scans the envelope for local maxima above the relative
// threshold, at least onsetRefractoryWindows apart. Onset timestamps are
// window start times in seconds.
func detectOnsets(envelope []float64, windowDuration float64) []float64 {
	if len(envelope) < 3 {
		return nil
	}
	peak, err := stats.Max(envelope)
	if err != nil || peak <= 0 {
		return nil
	}
	threshold := onsetThresholdRatio * peak

	var onsets []float64
	lastWindow := -onsetRefractoryWindows - 1
	for i := 1; i < len(envelope)-1; i++ {
		if envelope[i] <= threshold {
			continue
		}
		if envelope[i] <= envelope[i-1] || envelope[i] <= envelope[i+1] {
			continue
		}
		if i-lastWindow <= onsetRefractoryWindows {
			continue
		}
		onsets = append(onsets, float64(i)*windowDuration)
		lastWindow = i
	}
	return onsets
}

// tempoFromOnsets turns onset spacing into BPM via a trimmed mean of the
// inter-onset intervals: the lowest and highest quartiles are discarded to
// suppress outliers from missed or spurious onsets.
func tempoFromOnsets(onsets []float64) tempoEstimate {
	if len(onsets) == 0 {
		return tempoEstimate{BPM: defaultBPM, Confidence: tempoConfidenceFallback}
	}
	if len(onsets) == 1 {
		return tempoEstimate{BPM: defaultBPM, OnsetTimes: onsets, Confidence: tempoConfidenceClamped}
	}

	intervals := make([]float64, len(onsets)-1)
	for i := 1; i < len(onsets); i++ {
		intervals[i-1] = onsets[i] - onsets[i-1]
	}
	sort.Float64s(intervals)
	trimmed := intervals
	if len(intervals) >= 4 {
		trimmed = intervals[len(intervals)/4 : 3*len(intervals)/4]
	}

	mean, err := stats.Mean(trimmed)
	if err != nil || mean <= 0 {
		return tempoEstimate{BPM: defaultBPM, OnsetTimes: onsets, Confidence: tempoConfidenceClamped}
	}

	bpm := 60.0 / mean
	confidence := tempoConfidenceMeasured
	if bpm < minBPM {
		bpm = minBPM
		confidence = tempoConfidenceClamped
	} else if bpm > maxBPM {
		bpm = maxBPM
		confidence = tempoConfidenceClamped
	}
	return tempoEstimate{BPM: bpm, OnsetTimes: onsets, Confidence: confidence}
}
