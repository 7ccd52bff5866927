// Package analysis implements the audio analysis engine: a deterministic
// DSP pipeline that takes a decoded mono sample buffer and derives musical
// key, mode, tempo, signal energy and an overall confidence score, plus a
// downsampled waveform for visualization.
//
// The pipeline is a pure function of its input. It performs no I/O, keeps
// no package-level state and contains no randomness, so analyzing the same
// buffer twice yields identical results. Degenerate signals (silence, very
// short buffers) still produce a result with documented fallback values and
// a low confidence score; only malformed input is reported as an error.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
)

// Input validation failures. Everything else the engine handles internally
// with fallback values.
var (
	ErrEmptySignal     = errors.New("analysis: empty sample buffer")
	ErrBadSampleRate   = errors.New("analysis: sample rate must be positive")
	ErrNonFiniteSample = errors.New("analysis: sample buffer contains non-finite values")
)

// IsInvalidInput reports whether err is an input validation failure, which
// hosts should surface as a client error rather than an internal one.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrEmptySignal) ||
		errors.Is(err, ErrBadSampleRate) ||
		errors.Is(err, ErrNonFiniteSample)
}

// SampleBuffer is a decoded mono PCM signal. Samples are expected to be
// unit-normalized (roughly [-1, 1]); the range is not enforced.
type SampleBuffer struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the signal length in seconds.
func (b SampleBuffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate)
}

// Validate checks the buffer against the engine's input contract.
func (b SampleBuffer) Validate() error {
	if len(b.Samples) == 0 {
		return ErrEmptySignal
	}
	if b.SampleRate <= 0 {
		return ErrBadSampleRate
	}
	for i, s := range b.Samples {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return fmt.Errorf("%w: sample %d", ErrNonFiniteSample, i)
		}
	}
	return nil
}

// truncate caps the buffer to maxSeconds, keeping at least one sample.
// A non-positive cap leaves the buffer untouched.
func (b SampleBuffer) truncate(maxSeconds float64) SampleBuffer {
	if maxSeconds <= 0 {
		return b
	}
	limit := int(maxSeconds * float64(b.SampleRate))
	if limit < 1 {
		limit = 1
	}
	if limit >= len(b.Samples) {
		return b
	}
	return SampleBuffer{Samples: b.Samples[:limit], SampleRate: b.SampleRate}
}

// DefaultWaveformPeaks is the waveform resolution used when the caller does
// not ask for a specific peak count.
const DefaultWaveformPeaks = 100

// Options tune a single analysis call.
type Options struct {
	// MaxDurationSeconds truncates the signal before analysis. Zero means
	// the whole buffer is analyzed.
	MaxDurationSeconds float64
	// TargetWaveformPeaks is the waveform resolution. Zero selects
	// DefaultWaveformPeaks.
	TargetWaveformPeaks int
}

func (o Options) withDefaults() Options {
	if o.TargetWaveformPeaks <= 0 {
		o.TargetWaveformPeaks = DefaultWaveformPeaks
	}
	return o
}

// Result is the final analysis record. All fields are within their declared
// ranges: TempoBPM in [60, 200] rounded to a whole number, Energy and
// Confidence in [0, 1] with Confidence rounded to two decimals.
type Result struct {
	Key             string
	Mode            string
	TempoBPM        float64
	Energy          float64
	Confidence      float64
	DurationSeconds float64
	OnsetTimes      []float64
	Waveform        []float64
}

// Analyze runs the full pipeline over buf. The four sub-analyses (energy,
// onsets and tempo, waveform, pitch through key) read the same immutable
// buffer concurrently; their outputs are merged into one Result. ctx is
// checked inside the windowed and framed loops so oversized inputs can be
// cancelled cooperatively.
func Analyze(ctx context.Context, buf SampleBuffer, opts Options) (*Result, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	buf = buf.truncate(opts.MaxDurationSeconds)

	var (
		wg        sync.WaitGroup
		energy    float64
		wave      WaveformSummary
		tempo     tempoEstimate
		chroma    chromaVector
		tempoErr  error
		chromaErr error
	)
	wg.Add(4)
	go func() {
		defer wg.Done()
		energy = signalEnergy(buf)
	}()
	go func() {
		defer wg.Done()
		wave = DownsampleWaveform(buf, opts.TargetWaveformPeaks)
	}()
	go func() {
		defer wg.Done()
		tempo, tempoErr = estimateTempo(ctx, buf)
	}()
	go func() {
		defer wg.Done()
		chroma, chromaErr = extractChroma(ctx, buf)
	}()
	wg.Wait()

	if tempoErr != nil {
		return nil, tempoErr
	}
	if chromaErr != nil {
		return nil, chromaErr
	}

	key := classifyKey(chroma)

	energyConfidence := 0.95
	if energy <= 0 {
		energyConfidence = 0.30
	}
	overall := (tempo.Confidence + energyConfidence + key.Confidence) / 3

	return &Result{
		Key:             key.Key,
		Mode:            key.Mode,
		TempoBPM:        math.Round(tempo.BPM),
		Energy:          clampUnit(energy),
		Confidence:      math.Round(overall*100) / 100,
		DurationSeconds: buf.Duration(),
		OnsetTimes:      tempo.OnsetTimes,
		Waveform:        wave.Peaks,
	}, nil
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// checkpoint is the cooperative cancellation probe used by the long loops.
func checkpoint(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
