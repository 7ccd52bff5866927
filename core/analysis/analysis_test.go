package analysis

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
)

// sineBuffer synthesizes a pure tone.
func sineBuffer(t *testing.T, freq float64, sampleRate int, seconds, amplitude float64) SampleBuffer {
	t.Helper()
	n := int(seconds * float64(sampleRate))
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return SampleBuffer{Samples: samples, SampleRate: sampleRate}
}

// clickTrain synthesizes a short full-scale burst every period seconds.
func clickTrain(t *testing.T, period float64, sampleRate int, seconds float64) SampleBuffer {
	t.Helper()
	n := int(seconds * float64(sampleRate))
	samples := make([]float64, n)
	step := int(period * float64(sampleRate))
	for start := 0; start < n; start += step {
		for i := start; i < start+64 && i < n; i++ {
			samples[i] = 1.0
		}
	}
	return SampleBuffer{Samples: samples, SampleRate: sampleRate}
}

func silentBuffer(t *testing.T, n, sampleRate int) SampleBuffer {
	t.Helper()
	return SampleBuffer{Samples: make([]float64, n), SampleRate: sampleRate}
}

func TestAnalyzeRejectsEmptyBuffer(t *testing.T) {
	t.Parallel()
	res, err := Analyze(context.Background(), SampleBuffer{SampleRate: 44100}, Options{})
	if !errors.Is(err, ErrEmptySignal) {
		t.Fatalf("Analyze(empty) error = %v, want ErrEmptySignal", err)
	}
	if res != nil {
		t.Errorf("Analyze(empty) returned a result alongside the error: %+v", res)
	}
	if !IsInvalidInput(err) {
		t.Errorf("IsInvalidInput(%v) = false, want true", err)
	}
}

func TestAnalyzeRejectsBadSampleRate(t *testing.T) {
	t.Parallel()
	for _, rate := range []int{0, -44100} {
		_, err := Analyze(context.Background(), SampleBuffer{Samples: []float64{0.1, 0.2}, SampleRate: rate}, Options{})
		if !errors.Is(err, ErrBadSampleRate) {
			t.Errorf("Analyze(rate=%d) error = %v, want ErrBadSampleRate", rate, err)
		}
	}
}

func TestAnalyzeRejectsNonFiniteSamples(t *testing.T) {
	t.Parallel()
	for name, bad := range map[string]float64{
		"NaN":  math.NaN(),
		"+Inf": math.Inf(1),
		"-Inf": math.Inf(-1),
	} {
		buf := SampleBuffer{Samples: []float64{0, bad, 0}, SampleRate: 44100}
		_, err := Analyze(context.Background(), buf, Options{})
		if !errors.Is(err, ErrNonFiniteSample) {
			t.Errorf("Analyze(%s sample) error = %v, want ErrNonFiniteSample", name, err)
		}
	}
}

func TestAnalyzeSilentBuffer(t *testing.T) {
	t.Parallel()
	buf := silentBuffer(t, 3*44100, 44100)
	res, err := Analyze(context.Background(), buf, Options{})
	if err != nil {
		t.Fatalf("Analyze(silence) error = %v", err)
	}
	if res.Energy != 0 {
		t.Errorf("Energy = %v, want 0", res.Energy)
	}
	if res.Confidence > 0.30+1e-9 {
		t.Errorf("Confidence = %v, want <= 0.30", res.Confidence)
	}
	if res.TempoBPM != 120 {
		t.Errorf("TempoBPM = %v, want 120", res.TempoBPM)
	}
	if res.Key != "C" || res.Mode != ModeMajor {
		t.Errorf("key = %s %s, want C major", res.Key, res.Mode)
	}
	if len(res.OnsetTimes) != 0 {
		t.Errorf("OnsetTimes = %v, want none", res.OnsetTimes)
	}
}

func TestAnalyzeDeterministic(t *testing.T) {
	t.Parallel()
	tone := sineBuffer(t, 330, 44100, 4, 0.4)
	clicks := clickTrain(t, 0.5, 44100, 4)
	mixed := make([]float64, len(tone.Samples))
	for i := range mixed {
		mixed[i] = 0.7*tone.Samples[i] + 0.3*clicks.Samples[i]
	}
	buf := SampleBuffer{Samples: mixed, SampleRate: 44100}

	first, err := Analyze(context.Background(), buf, Options{})
	if err != nil {
		t.Fatalf("first Analyze error = %v", err)
	}
	second, err := Analyze(context.Background(), buf, Options{})
	if err != nil {
		t.Fatalf("second Analyze error = %v", err)
	}
	if !reflect.DeepEqual(*first, *second) {
		t.Errorf("repeated analysis differs:\nfirst  %+v\nsecond %+v", *first, *second)
	}
}

func TestAnalyzeShorterThanOneWindow(t *testing.T) {
	t.Parallel()
	buf := sineBuffer(t, 440, 44100, 0.02, 0.5)
	if len(buf.Samples) >= 4410 {
		t.Fatalf("fixture too long: %d samples", len(buf.Samples))
	}
	res, err := Analyze(context.Background(), buf, Options{})
	if err != nil {
		t.Fatalf("Analyze(short) error = %v", err)
	}
	if res.TempoBPM != 120 {
		t.Errorf("TempoBPM = %v, want the 120 fallback", res.TempoBPM)
	}
	if res.Confidence < 0 || res.Confidence > 1 {
		t.Errorf("Confidence = %v, want within [0,1]", res.Confidence)
	}
}

func TestAnalyzeResultRanges(t *testing.T) {
	t.Parallel()
	buffers := map[string]SampleBuffer{
		"sine":    sineBuffer(t, 440, 44100, 2, 0.5),
		"clicks":  clickTrain(t, 0.25, 44100, 5),
		"loud":    sineBuffer(t, 100, 22050, 1, 1.8),
		"tiny":    {Samples: []float64{0.5, -0.5, 0.25}, SampleRate: 8000},
		"lowrate": sineBuffer(t, 200, 8000, 3, 0.6),
		"silence": silentBuffer(t, 44100, 44100),
	}
	for name, buf := range buffers {
		res, err := Analyze(context.Background(), buf, Options{})
		if err != nil {
			t.Fatalf("Analyze(%s) error = %v", name, err)
		}
		if res.TempoBPM < 60 || res.TempoBPM > 200 {
			t.Errorf("%s: TempoBPM = %v, want within [60,200]", name, res.TempoBPM)
		}
		if res.TempoBPM != math.Round(res.TempoBPM) {
			t.Errorf("%s: TempoBPM = %v, want a whole number", name, res.TempoBPM)
		}
		if res.Energy < 0 || res.Energy > 1 {
			t.Errorf("%s: Energy = %v, want within [0,1]", name, res.Energy)
		}
		if res.Confidence < 0 || res.Confidence > 1 {
			t.Errorf("%s: Confidence = %v, want within [0,1]", name, res.Confidence)
		}
		if res.DurationSeconds <= 0 {
			t.Errorf("%s: DurationSeconds = %v, want positive", name, res.DurationSeconds)
		}
	}
}

func TestAnalyzePureToneKey(t *testing.T) {
	t.Parallel()
	buf := sineBuffer(t, 440, 44100, 10, 0.5)
	res, err := Analyze(context.Background(), buf, Options{})
	if err != nil {
		t.Fatalf("Analyze(440Hz) error = %v", err)
	}
	if res.Key != "A" {
		t.Errorf("Key = %s, want A", res.Key)
	}
	if res.Energy <= 0 {
		t.Errorf("Energy = %v, want positive", res.Energy)
	}
}

func TestAnalyzeClickTrainTempo(t *testing.T) {
	t.Parallel()
	buf := clickTrain(t, 0.6, 44100, 20)
	res, err := Analyze(context.Background(), buf, Options{})
	if err != nil {
		t.Fatalf("Analyze(clicks) error = %v", err)
	}
	if res.TempoBPM < 95 || res.TempoBPM > 105 {
		t.Errorf("TempoBPM = %v, want within [95,105]", res.TempoBPM)
	}
	if len(res.OnsetTimes) < 2 {
		t.Errorf("OnsetTimes = %v, want at least 2", res.OnsetTimes)
	}
}

func TestAnalyzeMaxDurationTruncates(t *testing.T) {
	t.Parallel()
	buf := sineBuffer(t, 440, 44100, 10, 0.5)
	res, err := Analyze(context.Background(), buf, Options{MaxDurationSeconds: 1})
	if err != nil {
		t.Fatalf("Analyze error = %v", err)
	}
	if math.Abs(res.DurationSeconds-1) > 1e-9 {
		t.Errorf("DurationSeconds = %v, want 1", res.DurationSeconds)
	}
}

func TestAnalyzeWaveformPeakOption(t *testing.T) {
	t.Parallel()
	buf := sineBuffer(t, 440, 44100, 2, 0.5)
	res, err := Analyze(context.Background(), buf, Options{TargetWaveformPeaks: 50})
	if err != nil {
		t.Fatalf("Analyze error = %v", err)
	}
	if len(res.Waveform) != 50 {
		t.Errorf("len(Waveform) = %d, want 50", len(res.Waveform))
	}
}

func TestAnalyzeHonorsCancellation(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	buf := sineBuffer(t, 440, 44100, 2, 0.5)
	_, err := Analyze(ctx, buf, Options{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Analyze(cancelled ctx) error = %v, want context.Canceled", err)
	}
}
