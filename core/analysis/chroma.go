package analysis

import (
	"context"
	"math"

	"github.com/mjibson/go-dsp/window"
)

// pitchClassNames indexes the twelve equal-tempered pitch classes, 0=C.
var pitchClassNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// chromaVector is a pitch-class energy histogram. It sums to 1 when at least
// one frame yielded a qualifying pitch and is all zero otherwise.
type chromaVector [12]float64

func (c chromaVector) sum() float64 {
	total := 0.0
	for _, v := range c {
		total += v
	}
	return total
}

// pitchClassBin maps a frequency to its chroma bin through the MIDI scale.
// The double modulo keeps negative note numbers in [0, 12).
func pitchClassBin(freq float64) int {
	midi := int(math.Round(12*math.Log2(freq/440.0) + 69))
	return ((midi % 12) + 12) % 12
}

// extractChroma slides Hamming-windowed frames over the buffer with 50%
// overlap, estimates each frame's fundamental and accumulates one unit of
// weight per qualifying frame into the matching pitch-class bin. The
// histogram is normalized to sum to 1; when no frame qualifies it stays all
// zero. A buffer shorter than one frame yields the zero vector.
func extractChroma(ctx context.Context, buf SampleBuffer) (chromaVector, error) {
	var chroma chromaVector
	n := len(buf.Samples)
	if n < pitchFrameSize {
		return chroma, nil
	}

	hamming := window.Hamming(pitchFrameSize)
	frame := make([]float64, pitchFrameSize)
	qualified := 0
	for start := 0; start+pitchFrameSize <= n; start += pitchHopSize {
		if err := checkpoint(ctx); err != nil {
			return chromaVector{}, err
		}
		for i, s := range buf.Samples[start : start+pitchFrameSize] {
			frame[i] = s * hamming[i]
		}
		freq := framePitch(frame, buf.SampleRate)
		if freq < minPitchHz || freq > maxPitchHz {
			continue
		}
		chroma[pitchClassBin(freq)]++
		qualified++
	}

	if qualified > 0 {
		for i := range chroma {
			chroma[i] /= float64(qualified)
		}
	}
	return chroma, nil
}
