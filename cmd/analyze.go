package cmd

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/benzaid32/virtuoso-ai-music-lab/core/analysis"
	"github.com/benzaid32/virtuoso-ai-music-lab/core/audio"
	"github.com/benzaid32/virtuoso-ai-music-lab/model"

	"github.com/spf13/cobra"
)

var (
	analyzeJSON        bool
	analyzeMaxDuration float64
	analyzePeaks       int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <files...>",
	Short: "Analyze audio files offline",
	Long: `Run the analysis engine on local WAV or MP3 files and print the results.
No server, database or cache is needed.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		opts := analysis.Options{
			MaxDurationSeconds:  analyzeMaxDuration,
			TargetWaveformPeaks: analyzePeaks,
		}

		failed := false
		for _, path := range args {
			if err := analyzeFile(path, opts); err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
				failed = true
			}
		}
		if failed {
			os.Exit(1)
		}
	},
}

func analyzeFile(path string, opts analysis.Options) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	buf, err := audio.Decode(path, data)
	if err != nil {
		return fmt.Errorf("failed to decode audio: %w", err)
	}

	result, err := analysis.Analyze(context.Background(), buf, opts)
	if err != nil {
		return fmt.Errorf("failed to analyze audio: %w", err)
	}

	sum := sha256.Sum256(data)
	record := model.NewAnalysisRecord(filepath.Base(path), hex.EncodeToString(sum[:]),
		int64(len(data)), model.SourceCLI, result)

	if analyzeJSON {
		out, err := json.MarshalIndent(record, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Printf("%s\n", path)
	fmt.Printf("  key:        %s %s\n", result.Key, result.Mode)
	fmt.Printf("  tempo:      %.0f BPM\n", result.TempoBPM)
	fmt.Printf("  energy:     %.3f\n", result.Energy)
	fmt.Printf("  confidence: %.2f\n", result.Confidence)
	fmt.Printf("  duration:   %.2fs\n", result.DurationSeconds)
	fmt.Printf("  onsets:     %d\n", len(result.OnsetTimes))
	fmt.Printf("  sha256:     %s\n", record.ContentHash)
	return nil
}

func init() {
	analyzeCmd.Flags().BoolVarP(&analyzeJSON, "json", "j", false, "print results as JSON")
	analyzeCmd.Flags().Float64VarP(&analyzeMaxDuration, "max-duration", "d", 0, "cap the analyzed duration in seconds, 0 analyzes the whole file")
	analyzeCmd.Flags().IntVarP(&analyzePeaks, "peaks", "p", analysis.DefaultWaveformPeaks, "number of waveform peaks to compute")
	rootCmd.AddCommand(analyzeCmd)
}
