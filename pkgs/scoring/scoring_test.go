package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercase", "Hello World", "hello world"},
		{"punctuation stripped", "Hey, I'm Scarlett!", "hey im scarlett"},
		{"whitespace collapsed", "  hey   there \t now ", "hey there now"},
		{"empty", "", ""},
		{"only punctuation", "...!?", ""},
		{"cjk untouched", "你好，世界", "你好，世界"},
		{"korean untouched", "안녕하세요 세계", "안녕하세요 세계"},
		{"mixed scripts", "Hola! こんにちは", "hola こんにちは"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestScoreIdentity(t *testing.T) {
	inputs := []string{
		"hello world",
		"Hey, I'm Scarlett!",
		"你好，世界",
		"the quick brown fox",
	}
	for _, s := range inputs {
		assert.Equal(t, 100, Score(s, s), "score(a,a) must be 100 for %q", s)
	}
}

func TestScoreSymmetry(t *testing.T) {
	pairs := [][2]string{
		{"hello world", "hello word"},
		{"hey im scarlett", "Hey, I'm Scarlett, how are you?"},
		{"abc", "xyz"},
		{"", "something"},
	}
	for _, p := range pairs {
		assert.Equal(t, Score(p[0], p[1]), Score(p[1], p[0]),
			"score must be symmetric for %q vs %q", p[0], p[1])
	}
}

func TestScoreEdgeCases(t *testing.T) {
	// Both empty after normalization
	assert.Equal(t, 100, Score("", ""))
	assert.Equal(t, 100, Score("...", "!?"))

	// Exactly one empty
	assert.Equal(t, 0, Score("", "hello"))
	assert.Equal(t, 0, Score("hello", "..."))

	// Completely different strings score near zero
	assert.LessOrEqual(t, Score("aaaa", "zzzz"), 10)
}

func TestScoreScarlettScenario(t *testing.T) {
	transcript := "hey i'm scarlett how are you"
	expected := "Hey I'm Scarlett, how are you doing?"

	score := Score(transcript, expected)
	assert.GreaterOrEqual(t, score, 80, "transcript should land in the 80-95 band")
	assert.LessOrEqual(t, score, 95, "transcript should land in the 80-95 band")

	rating := RatingFor(score)
	assert.Contains(t, []Rating{RatingGood, RatingEasy}, rating)
}

func TestScoreChoice(t *testing.T) {
	assert.Equal(t, 100, ScoreChoice("Paris", "paris"))
	assert.Equal(t, 100, ScoreChoice("  PARIS! ", "paris"))
	assert.Equal(t, 0, ScoreChoice("London", "paris"))
	assert.Equal(t, 0, ScoreChoice("pari", "paris"), "no partial credit")
}

func TestRatingLadder(t *testing.T) {
	tests := []struct {
		score  int
		rating Rating
	}{
		{0, RatingAgain},
		{59, RatingAgain},
		{60, RatingHard},
		{74, RatingHard},
		{75, RatingGood},
		{89, RatingGood},
		{90, RatingEasy},
		{100, RatingEasy},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.rating, RatingFor(tt.score), "score %d", tt.score)
	}
}

func TestRatingLadderTotal(t *testing.T) {
	// Every score in [0,100] maps to exactly one bucket, deterministically
	for s := 0; s <= 100; s++ {
		first := RatingFor(s)
		assert.LessOrEqual(t, uint8(first), uint8(RatingEasy))
		assert.Equal(t, first, RatingFor(s), "rating must be deterministic")
	}
}

func TestBasisPoints(t *testing.T) {
	assert.Equal(t, uint16(0), BasisPoints(0))
	assert.Equal(t, uint16(8500), BasisPoints(85))
	assert.Equal(t, uint16(10000), BasisPoints(100))
}
