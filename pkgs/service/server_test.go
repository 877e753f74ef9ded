package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techno-hippies/karaoke-school-sub006/pkgs/grading"
	"github.com/techno-hippies/karaoke-school-sub006/pkgs/pipeline"
	"github.com/techno-hippies/karaoke-school-sub006/pkgs/transcribe"
)

type stubTranscriber struct{}

func (stubTranscriber) Transcribe(_ context.Context, _ []byte) (*transcribe.Transcript, error) {
	return &transcribe.Transcript{Text: "hello world", Confidence: 0.9}, nil
}

type stubSubmitter struct{}

func (stubSubmitter) Submit(_ context.Context, _ *pipeline.Request) (*pipeline.Result, error) {
	return &pipeline.Result{Status: pipeline.StatusSubmitted, TxHash: "0xabc"}, nil
}

func testServer(authToken string) *Server {
	g := grading.New(stubTranscriber{}, stubSubmitter{}, nil, nil)
	return NewServer(g, nil, authToken, false)
}

func postAttempt(t *testing.T, s *Server, token string, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/attempts", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func choiceBody() map[string]any {
	return map[string]any{
		"exercise": "MULTIPLE_CHOICE",
		"learner":  "0xa865187E8E86ae8c649a7bD8DE1C6E0a3Bd4b2Be",
		"choice": map[string]any{
			"questionId": "0x0000000000000000000000000000000000000000000000000000000000000002",
			"submitted":  "Paris",
			"expected":   "paris",
		},
	}
}

func TestPostAttempt(t *testing.T) {
	s := testServer("")
	w := postAttempt(t, s, "", choiceBody())

	require.Equal(t, http.StatusOK, w.Code)

	var outcome grading.Outcome
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &outcome))
	require.NotNil(t, outcome.Scoring)
	assert.Equal(t, 100, outcome.Scoring.Score)
	assert.Equal(t, pipeline.StatusSubmitted, outcome.Submission.Status)
	assert.NotEmpty(t, outcome.AttemptID)
}

func TestPostAttemptBadLearner(t *testing.T) {
	s := testServer("")
	body := choiceBody()
	body["learner"] = "not-an-address"

	w := postAttempt(t, s, "", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostAttemptBadQuestionID(t *testing.T) {
	s := testServer("")
	body := choiceBody()
	body["choice"].(map[string]any)["questionId"] = "0x1234"

	w := postAttempt(t, s, "", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthRequired(t *testing.T) {
	s := testServer("secret")

	w := postAttempt(t, s, "", choiceBody())
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = postAttempt(t, s, "secret", choiceBody())
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOversizedBodyRejected(t *testing.T) {
	prev := grading.MaxAudioBytes
	grading.MaxAudioBytes = 1024
	defer func() { grading.MaxAudioBytes = prev }()

	s := testServer("")
	body := map[string]any{
		"exercise": "SPEECH_REPETITION",
		"learner":  "0xa865187E8E86ae8c649a7bD8DE1C6E0a3Bd4b2Be",
		"speech": map[string]any{
			"audio":    base64.StdEncoding.EncodeToString(make([]byte, 256<<10)),
			"expected": "hello",
			"lineId":   "0x0000000000000000000000000000000000000000000000000000000000000001",
		},
	}

	w := postAttempt(t, s, "", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestHealth(t *testing.T) {
	s := testServer("")
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
