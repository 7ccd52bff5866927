package analysis

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

const (
	pitchFrameSize = 4096
	pitchHopSize   = pitchFrameSize / 2

	// Musical fundamental range considered by the pitch tracker.
	minPitchHz = 80.0
	maxPitchHz = 800.0

	// minPitchScore is the normalized autocorrelation a lag must beat for
	// the frame to count as pitched.
	minPitchScore = 0.3
)

// framePitch estimates the dominant fundamental frequency of one windowed
// frame. The autocorrelation is computed through the power spectrum (FFT,
// conjugate product, inverse FFT) with the frame zero-padded to twice its
// length so the circular correlation matches the linear one. Returns 0 when
// no lag in the 80-800 Hz range scores above minPitchScore.
func framePitch(frame []float64, sampleRate int) float64 {
	minLag := int(math.Ceil(float64(sampleRate) / maxPitchHz))
	maxLag := int(math.Floor(float64(sampleRate) / minPitchHz))
	if minLag < 1 {
		minLag = 1
	}
	if maxLag >= len(frame) {
		maxLag = len(frame) - 1
	}
	if maxLag <= minLag {
		return 0
	}

	padded := make([]float64, 2*len(frame))
	copy(padded, frame)
	spectrum := fft.FFTReal(padded)
	power := make([]complex128, len(spectrum))
	for i, c := range spectrum {
		power[i] = c * cmplx.Conj(c)
	}
	corr := fft.IFFT(power)

	total := real(corr[0])
	if total <= 0 {
		return 0
	}

	bestLag := 0
	bestScore := minPitchScore
	for lag := minLag; lag <= maxLag; lag++ {
		if score := real(corr[lag]) / total; score > bestScore {
			bestScore = score
			bestLag = lag
		}
	}
	if bestLag == 0 {
		return 0
	}
	return float64(sampleRate) / float64(bestLag)
}
