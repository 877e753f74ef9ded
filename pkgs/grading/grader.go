// Package grading validates attempt requests, routes them to the exercise
// handlers, scores them and drives the graded result through the signed
// submission pipeline.
package grading

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/techno-hippies/karaoke-school-sub006/pkgs/chain"
	"github.com/techno-hippies/karaoke-school-sub006/pkgs/metrics"
	"github.com/techno-hippies/karaoke-school-sub006/pkgs/pipeline"
	"github.com/techno-hippies/karaoke-school-sub006/pkgs/scoring"
	"github.com/techno-hippies/karaoke-school-sub006/pkgs/transcribe"
)

// Submitter runs one prepared record through the submission pipeline
type Submitter interface {
	Submit(ctx context.Context, req *pipeline.Request) (*pipeline.Result, error)
}

// Store persists graded outcomes keyed by attempt ID so an out-of-band
// reconciliation job can re-submit graded-but-unsubmitted attempts.
// Persistence is best-effort: a store failure never fails the attempt.
type Store interface {
	SaveOutcome(ctx context.Context, attemptID string, outcome *Outcome) error
}

// Grader is the engine's single entry point
type Grader struct {
	transcriber transcribe.Transcriber
	submitter   Submitter
	store       Store
	metrics     *metrics.Metrics
}

// New creates a grader. store and metrics may be nil.
func New(transcriber transcribe.Transcriber, submitter Submitter, store Store, m *metrics.Metrics) *Grader {
	return &Grader{
		transcriber: transcriber,
		submitter:   submitter,
		store:       store,
		metrics:     m,
	}
}

// GradeAttempt validates, scores and submits one attempt. Validation and
// transcription failures come back as notAttempted outcomes; simulation
// and broadcast failures keep the scoring result. Only signature
// mismatches and internal assembly failures surface as errors.
func (g *Grader) GradeAttempt(ctx context.Context, req *AttemptRequest) (*Outcome, error) {
	attemptID := req.attemptID()

	if err := req.Validate(); err != nil {
		g.observe(req.Exercise, pipeline.StatusNotAttempted)
		return &Outcome{
			AttemptID:  attemptID,
			Submission: &pipeline.Result{Status: pipeline.StatusNotAttempted, Reason: err.Error()},
		}, nil
	}

	// Exhaustive dispatch: Validate has already rejected unknown types
	var result *scoring.Result
	switch req.Exercise {
	case ExerciseSpeechRepetition:
		transcript, err := g.transcriber.Transcribe(ctx, req.Speech.Audio)
		if err != nil {
			log.WithFields(log.Fields{
				"attempt_id": attemptID,
				"reason":     err.Error(),
			}).Warn("Transcription failed; attempt not graded")
			g.observe(req.Exercise, pipeline.StatusNotAttempted)
			return &Outcome{
				AttemptID:  attemptID,
				Submission: &pipeline.Result{Status: pipeline.StatusNotAttempted, Reason: err.Error()},
			}, nil
		}
		score := scoring.Score(transcript.Text, req.Speech.Expected)
		result = &scoring.Result{
			Score:      score,
			Rating:     scoring.RatingFor(score),
			Transcript: transcript.Text,
		}
	case ExerciseMultipleChoice:
		score := scoring.ScoreChoice(req.Choice.Submitted, req.Choice.Expected)
		result = &scoring.Result{
			Score:  score,
			Rating: scoring.RatingFor(score),
		}
	}

	log.WithFields(log.Fields{
		"attempt_id": attemptID,
		"exercise":   req.Exercise,
		"score":      result.Score,
		"rating":     result.Rating.String(),
	}).Info("Attempt graded")

	if g.metrics != nil {
		g.metrics.ObserveScore(string(req.Exercise), result.Score)
	}

	calldata, err := chain.PackRecordAttempt(
		attemptKey(attemptID),
		req.itemID(),
		req.Learner,
		scoring.BasisPoints(result.Score),
		uint8(result.Rating),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build record calldata: %w", err)
	}

	submission, err := g.submitter.Submit(ctx, &pipeline.Request{
		Calldata: calldata,
		Nonce:    req.Nonce,
	})
	if err != nil {
		g.observe(req.Exercise, "fatal")
		return nil, err
	}

	g.observe(req.Exercise, submission.Status)

	outcome := &Outcome{
		AttemptID:  attemptID,
		Scoring:    result,
		Submission: submission,
	}

	if g.store != nil {
		if err := g.store.SaveOutcome(ctx, attemptID, outcome); err != nil {
			log.WithFields(log.Fields{
				"attempt_id": attemptID,
				"error":      err.Error(),
			}).Warn("Failed to persist attempt record")
		}
	}

	if outcome.GradedButUnsubmitted() {
		log.WithFields(log.Fields{
			"attempt_id": attemptID,
			"status":     submission.Status,
			"reason":     submission.Reason,
		}).Warn("Attempt graded but not recorded on-chain")
	}

	return outcome, nil
}

func (g *Grader) observe(exercise ExerciseType, status pipeline.Status) {
	if g.metrics != nil {
		g.metrics.CountAttempt(string(exercise), string(status))
	}
}
