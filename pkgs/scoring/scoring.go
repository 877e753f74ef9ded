package scoring

import (
	"math"
	"strings"

	"github.com/agext/levenshtein"
)

// Rating is the four-valued spaced-repetition outcome consumed by the
// scheduler. The numeric values are part of the on-chain contract ABI.
type Rating uint8

const (
	RatingAgain Rating = 0
	RatingHard  Rating = 1
	RatingGood  Rating = 2
	RatingEasy  Rating = 3
)

// String returns the scheduler-facing name of the rating
func (r Rating) String() string {
	switch r {
	case RatingAgain:
		return "again"
	case RatingHard:
		return "hard"
	case RatingGood:
		return "good"
	case RatingEasy:
		return "easy"
	}
	return "unknown"
}

// Result holds the grading output for a single attempt
type Result struct {
	Score      int    `json:"score"`  // 0..100
	Rating     Rating `json:"rating"` // derived from Score, fixed ladder
	Transcript string `json:"transcript,omitempty"`
}

// latinPunctuation is the fixed set stripped during normalization.
// Non-Latin scripts pass through untouched: the product supports multiple
// target languages and there is no safe case-folding or punctuation rule
// defined for them.
const latinPunctuation = ".,!?;:'\"()[]{}<>-_/\\|@#$%^&*+=~`"

// Normalize lowercases, strips Latin punctuation and collapses whitespace.
func Normalize(s string) string {
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 128 && strings.ContainsRune(latinPunctuation, r) {
			continue
		}
		b.WriteRune(r)
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// Score compares a transcript against the expected text and returns a
// similarity score in [0,100] based on unit-cost edit distance over the
// normalized strings.
func Score(transcript, expected string) int {
	a := []rune(Normalize(transcript))
	b := []rune(Normalize(expected))

	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		// Both empty after normalization; identical by definition
		return 100
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	dist := levenshtein.Distance(string(a), string(b), nil)

	score := int(math.Round(100 * (1 - float64(dist)/float64(maxLen))))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// ScoreChoice grades a multiple-choice answer: exact match after
// normalization scores 100, anything else 0. No partial credit.
func ScoreChoice(submitted, expected string) int {
	if Normalize(submitted) == Normalize(expected) {
		return 100
	}
	return 0
}

// RatingFor maps a score to its rating bucket. The threshold ladder is a
// product-level contract with the spaced-repetition scheduler; do not tune
// it here.
func RatingFor(score int) Rating {
	switch {
	case score >= 90:
		return RatingEasy
	case score >= 75:
		return RatingGood
	case score >= 60:
		return RatingHard
	default:
		return RatingAgain
	}
}

// BasisPoints scales a score for integer on-chain representation (0-10000)
func BasisPoints(score int) uint16 {
	return uint16(score * 100)
}
