package grading

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	"github.com/techno-hippies/karaoke-school-sub006/pkgs/pipeline"
	"github.com/techno-hippies/karaoke-school-sub006/pkgs/scoring"
)

// ExerciseType is a closed set: new exercise types are deliberate,
// reviewed additions, not open-ended polymorphism.
type ExerciseType string

const (
	ExerciseSpeechRepetition ExerciseType = "SPEECH_REPETITION"
	ExerciseMultipleChoice   ExerciseType = "MULTIPLE_CHOICE"
)

// ErrValidation marks input validation failures: rejected before any
// external call, never retried.
var ErrValidation = errors.New("invalid attempt request")

// MaxAudioBytes caps the decoded audio payload of a speech attempt.
// Oversized payloads are rejected in Validate before the audio is shipped
// to the transcription service. main overrides this from MAX_AUDIO_BYTES.
var MaxAudioBytes = 8 << 20

// SpeechPayload is the speech-repetition exercise input
type SpeechPayload struct {
	Audio    []byte   `json:"audio"`
	Expected string   `json:"expected"`
	LineID   [32]byte `json:"lineId"`
}

// ChoicePayload is the multiple-choice exercise input
type ChoicePayload struct {
	QuestionID [32]byte `json:"questionId"`
	Submitted  string   `json:"submitted"`
	Expected   string   `json:"expected"`
}

// AttemptRequest is one grading request. Exactly one payload must be set,
// matching the exercise type.
type AttemptRequest struct {
	Exercise  ExerciseType   `json:"exercise"`
	Learner   common.Address `json:"learner"`
	AttemptID string         `json:"attemptId,omitempty"` // derived when absent
	// Nonce, when set, is a caller-coordinated transaction nonce
	Nonce *uint64 `json:"nonce,omitempty"`

	Speech *SpeechPayload `json:"speech,omitempty"`
	Choice *ChoicePayload `json:"choice,omitempty"`
}

// Validate fail-fasts before any external call is made. A zero 32-byte
// identifier is indistinguishable from "absent" on-chain and is rejected
// before any signing work begins.
func (r *AttemptRequest) Validate() error {
	var zeroID [32]byte

	switch r.Exercise {
	case ExerciseSpeechRepetition:
		if r.Speech == nil {
			return fmt.Errorf("%w: speech payload missing", ErrValidation)
		}
		if len(r.Speech.Audio) == 0 {
			return fmt.Errorf("%w: audio payload missing", ErrValidation)
		}
		if len(r.Speech.Audio) > MaxAudioBytes {
			return fmt.Errorf("%w: audio payload %d bytes exceeds limit of %d", ErrValidation, len(r.Speech.Audio), MaxAudioBytes)
		}
		if r.Speech.LineID == zeroID {
			return fmt.Errorf("%w: line id is zero", ErrValidation)
		}
		if r.Speech.Expected == "" {
			return fmt.Errorf("%w: expected text missing", ErrValidation)
		}
	case ExerciseMultipleChoice:
		if r.Choice == nil {
			return fmt.Errorf("%w: choice payload missing", ErrValidation)
		}
		if r.Choice.QuestionID == zeroID {
			return fmt.Errorf("%w: question id is zero", ErrValidation)
		}
		if r.Choice.Submitted == "" {
			return fmt.Errorf("%w: submitted answer missing", ErrValidation)
		}
		if r.Choice.Expected == "" {
			return fmt.Errorf("%w: expected answer missing", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown exercise type %q", ErrValidation, r.Exercise)
	}

	if r.Learner == (common.Address{}) {
		return fmt.Errorf("%w: learner address missing", ErrValidation)
	}

	return nil
}

// attemptID returns the caller-supplied identifier, deriving one when
// absent. The identifier is echoed in every outcome so callers can
// correlate retries.
func (r *AttemptRequest) attemptID() string {
	if r.AttemptID != "" {
		return r.AttemptID
	}
	return uuid.New().String()
}

// attemptKey maps an attempt identifier to its on-chain bytes32 form
func attemptKey(attemptID string) [32]byte {
	var key [32]byte
	copy(key[:], crypto.Keccak256([]byte(attemptID)))
	return key
}

// itemID returns the content identifier the attempt grades against
func (r *AttemptRequest) itemID() [32]byte {
	switch r.Exercise {
	case ExerciseSpeechRepetition:
		return r.Speech.LineID
	case ExerciseMultipleChoice:
		return r.Choice.QuestionID
	}
	return [32]byte{}
}

// Outcome is the caller-facing response. Grading success and submission
// success are independent axes: a scored attempt keeps its score even when
// the on-chain record was not written.
type Outcome struct {
	AttemptID  string           `json:"attemptId"`
	Scoring    *scoring.Result  `json:"scoring,omitempty"`
	Submission *pipeline.Result `json:"submission"`
}

// GradedButUnsubmitted reports whether the learner has a usable score that
// is not yet recorded on-chain; an out-of-band reconciliation process can
// retry later using the same attempt identifier.
func (o *Outcome) GradedButUnsubmitted() bool {
	return o.Scoring != nil && !o.Submission.Submitted()
}
