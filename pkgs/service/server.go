// Package service exposes the grading engine over HTTP.
package service

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/techno-hippies/karaoke-school-sub006/pkgs/grading"
	"github.com/techno-hippies/karaoke-school-sub006/pkgs/metrics"
)

// Server wires the grader into a gin router
type Server struct {
	grader    *grading.Grader
	metrics   *metrics.Metrics
	authToken string
	engine    *gin.Engine
}

// NewServer creates the HTTP surface. authToken may be empty to disable
// auth; metrics may be nil to disable the /metrics endpoint.
func NewServer(grader *grading.Grader, m *metrics.Metrics, authToken string, debug bool) *Server {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		grader:    grader,
		metrics:   m,
		authToken: authToken,
		engine:    gin.New(),
	}

	s.engine.Use(gin.Recovery())

	s.engine.GET("/health", s.handleHealth)
	if m != nil {
		s.engine.GET("/metrics", gin.WrapH(m.Handler()))
	}

	api := s.engine.Group("/api/v1")
	if authToken != "" {
		api.Use(s.requireAuth)
	}
	api.POST("/attempts", s.handleAttempt)

	return s
}

// Handler exposes the router to the http.Server owned by main
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) requireAuth(c *gin.Context) {
	if c.GetHeader("Authorization") != "Bearer "+s.authToken {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Next()
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// attemptPayload is the wire shape of a grading request: identifiers are
// 0x-prefixed hex, audio is base64.
type attemptPayload struct {
	Exercise  string  `json:"exercise" binding:"required"`
	Learner   string  `json:"learner" binding:"required"`
	AttemptID string  `json:"attemptId"`
	Nonce     *uint64 `json:"nonce"`

	Speech *struct {
		Audio    string `json:"audio" binding:"required"`
		Expected string `json:"expected"`
		LineID   string `json:"lineId" binding:"required"`
	} `json:"speech"`

	Choice *struct {
		QuestionID string `json:"questionId" binding:"required"`
		Submitted  string `json:"submitted"`
		Expected   string `json:"expected"`
	} `json:"choice"`
}

func (s *Server) handleAttempt(c *gin.Context) {
	// Bound the request body before decoding: base64 grows the audio
	// payload by 4/3, plus headroom for the envelope fields.
	limit := int64(grading.MaxAudioBytes)*4/3 + 64<<10
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	var payload attemptPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req, err := payload.toRequest()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := s.grader.GradeAttempt(c.Request.Context(), req)
	if err != nil {
		log.WithField("error", err.Error()).Error("Attempt processing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, outcome)
}

func (p *attemptPayload) toRequest() (*grading.AttemptRequest, error) {
	if !common.IsHexAddress(p.Learner) {
		return nil, fmt.Errorf("invalid learner address: %s", p.Learner)
	}

	req := &grading.AttemptRequest{
		Exercise:  grading.ExerciseType(p.Exercise),
		Learner:   common.HexToAddress(p.Learner),
		AttemptID: p.AttemptID,
		Nonce:     p.Nonce,
	}

	if p.Speech != nil {
		audio, err := base64.StdEncoding.DecodeString(p.Speech.Audio)
		if err != nil {
			return nil, fmt.Errorf("invalid audio encoding: %w", err)
		}
		lineID, err := decodeID(p.Speech.LineID)
		if err != nil {
			return nil, fmt.Errorf("invalid line id: %w", err)
		}
		req.Speech = &grading.SpeechPayload{
			Audio:    audio,
			Expected: p.Speech.Expected,
			LineID:   lineID,
		}
	}

	if p.Choice != nil {
		questionID, err := decodeID(p.Choice.QuestionID)
		if err != nil {
			return nil, fmt.Errorf("invalid question id: %w", err)
		}
		req.Choice = &grading.ChoicePayload{
			QuestionID: questionID,
			Submitted:  p.Choice.Submitted,
			Expected:   p.Choice.Expected,
		}
	}

	return req, nil
}

func decodeID(s string) ([32]byte, error) {
	var id [32]byte
	raw, err := hexutil.Decode(s)
	if err != nil {
		return id, err
	}
	if len(raw) != 32 {
		return id, fmt.Errorf("expected 32 bytes, got %d", len(raw))
	}
	copy(id[:], raw)
	return id, nil
}
