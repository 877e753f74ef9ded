package transcribe

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// ErrEmptyTranscript means the service answered but produced no usable
// text. Treated as fatal to grading; the service is opaque and is not
// retried here.
var ErrEmptyTranscript = errors.New("transcription returned empty text")

// Transcriber converts an audio payload into text
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (*Transcript, error)
}

// Transcript is the transcription service output
type Transcript struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Client talks to the external speech-to-text service
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient creates a transcription client
func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type transcribeRequest struct {
	Audio string `json:"audio"` // base64-encoded
}

// Transcribe sends the audio and returns the transcript. Empty or missing
// text is an error, never silently passed through.
func (c *Client) Transcribe(ctx context.Context, audio []byte) (*Transcript, error) {
	body, err := json.Marshal(&transcribeRequest{
		Audio: base64.StdEncoding.EncodeToString(audio),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transcription request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build transcription request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcription service unreachable: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcription response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("transcription service returned %d: %s", resp.StatusCode, string(respBody))
	}

	var transcript Transcript
	if err := json.Unmarshal(respBody, &transcript); err != nil {
		return nil, fmt.Errorf("failed to parse transcription response: %w", err)
	}

	if strings.TrimSpace(transcript.Text) == "" {
		return nil, ErrEmptyTranscript
	}

	log.WithFields(log.Fields{
		"confidence": transcript.Confidence,
		"length":     len(transcript.Text),
	}).Debug("Transcription received")

	return &transcript, nil
}
