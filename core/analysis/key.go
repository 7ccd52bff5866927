package analysis

const (
	ModeMajor = "major"
	ModeMinor = "minor"
)

// Krumhansl-Schmuckler tonal hierarchy profiles, indexed from the tonic.
var (
	majorProfile = [12]float64{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88}
	minorProfile = [12]float64{6.33, 2.68, 3.52, 5.38, 2.60, 3.53, 2.54, 4.75, 3.98, 2.69, 3.34, 3.17}
)

type keyResult struct {
	Key        string
	Mode       string
	Confidence float64
}

// Key confidence bounds. Raw profile correlations on short or noisy input
// are too jumpy to expose directly, so the normalized gap between the two
// best candidates is rescaled into this band.
const (
	keyConfidenceFloor   = 0.30
	keyConfidenceCeiling = 0.95
	keyGapScale          = 2.0
)

// classifyKey correlates the chroma vector against both profiles across all
// twelve rotations and picks the best of the 24 candidates. Candidates are
// scanned major first, rotation 0 through 11, and only a strictly greater
// score displaces the leader, so exact ties resolve to the lower pitch class
// and an all-zero chroma lands on C major at floor confidence.
func classifyKey(chroma chromaVector) keyResult {
	bestScore := -1.0
	secondScore := -1.0
	bestRotation := 0
	bestMode := ModeMajor

	for _, mode := range []string{ModeMajor, ModeMinor} {
		profile := majorProfile
		if mode == ModeMinor {
			profile = minorProfile
		}
		for rotation := 0; rotation < 12; rotation++ {
			// Summing in profile order keeps the float result identical
			// across rotations of the same chroma content, so rotating a
			// signal permutes the candidate scores without perturbing them.
			score := 0.0
			for j := 0; j < 12; j++ {
				score += chroma[(j+rotation)%12] * profile[j]
			}
			if score > bestScore {
				secondScore = bestScore
				bestScore = score
				bestRotation = rotation
				bestMode = mode
			} else if score > secondScore {
				secondScore = score
			}
		}
	}

	gap := 0.0
	if bestScore > 0 {
		gap = (bestScore - secondScore) / bestScore
	}
	confidence := keyConfidenceFloor + keyGapScale*gap
	if confidence > keyConfidenceCeiling {
		confidence = keyConfidenceCeiling
	}
	if confidence < keyConfidenceFloor {
		confidence = keyConfidenceFloor
	}

	return keyResult{
		Key:        pitchClassNames[bestRotation],
		Mode:       bestMode,
		Confidence: confidence,
	}
}
