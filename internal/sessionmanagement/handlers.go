package sessionmanagement

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"

	"literacy-screening-platform/backend/internal/analysisservice"
	"literacy-screening-platform/backend/internal/audiointake"
	"literacy-screening-platform/backend/internal/sessionstore"
)

const maxUploadSize = 50 << 20 // 50 MB

// StartSessionHandler handles POST /screening/sessions.
func (s *Service) StartSessionHandler(c *gin.Context) {
	state, err := s.StartSession(c.Request.Context())
	if err != nil {
		if errors.Is(err, ErrItemsUnavailable) {
			c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("Content service not available: %v", err)})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to start session: %v", err)})
		return
	}
	c.JSON(http.StatusCreated, state)
}

// GetSessionHandler handles GET /screening/sessions/:id.
func (s *Service) GetSessionHandler(c *gin.Context) {
	state, err := s.State(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, state)
}

// SubmitItemHandler handles POST /screening/sessions/:id/items. It expects a
// multipart/form-data request with the captured audio under audio_file.
func (s *Service) SubmitItemHandler(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(maxUploadSize); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Failed to parse multipart form: %v. Max size: %d MB", err, maxUploadSize>>20)})
		return
	}

	fileHeader, err := c.FormFile("audio_file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "audio_file is required"})
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Failed to get audio_file: %v", err)})
		}
		return
	}
	if fileHeader.Size > maxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Audio file size exceeds limit of %d MB", maxUploadSize>>20)})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to open uploaded file: %v", err)})
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to read uploaded file: %v", err)})
		return
	}

	outcome, err := s.SubmitItem(c.Request.Context(), c.Param("id"), fileHeader.Filename, audio)
	if err != nil {
		s.writeSubmitError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// StreamItemHandler handles GET /screening/sessions/:id/stream. The client
// upgrades to WebSocket, streams binary audio chunks and sends a text "stop"
// frame; the assembled capture then runs through the same item pipeline and
// the scored outcome is written back over the socket.
func (s *Service) StreamItemHandler(c *gin.Context) {
	sessionID := c.Param("id")
	if _, err := s.State(sessionID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Session %s: websocket accept failed: %v", sessionID, err)
		return
	}
	ctx := c.Request.Context()
	source := audiointake.NewWSSource(ctx, conn)
	defer source.Close()

	var audio []byte
	for {
		chunk, err := source.Read()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Printf("Session %s: capture stream failed: %v", sessionID, err)
				conn.Close(websocket.StatusInternalError, "capture stream failed")
				return
			}
			break
		}
		audio = append(audio, chunk...)
	}

	outcome, err := s.SubmitItem(ctx, sessionID, "capture.webm", audio)
	if err != nil {
		payload, _ := json.Marshal(gin.H{"error": err.Error()})
		_ = conn.Write(ctx, websocket.MessageText, payload)
		return
	}
	payload, err := json.Marshal(outcome)
	if err != nil {
		log.Printf("Session %s: failed to marshal item outcome: %v", sessionID, err)
		return
	}
	if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
		log.Printf("Session %s: failed to deliver item outcome: %v", sessionID, err)
	}
}

// CompleteLevelHandler handles POST /screening/sessions/:id/level-complete.
func (s *Service) CompleteLevelHandler(c *gin.Context) {
	outcome, err := s.CompleteLevel(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownSession):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, ErrLevelIncomplete), errors.Is(err, ErrScreeningComplete):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to complete level: %v", err)})
		}
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// FinishSessionHandler handles POST /screening/sessions/:id/finish. The
// report call is fail-closed: an evaluation failure surfaces as an error
// instead of a synthesized report.
func (s *Service) FinishSessionHandler(c *gin.Context) {
	report, err := s.FinishSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownSession):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, ErrScreeningOngoing):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, analysisservice.ErrReportService):
			c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("Report service failed: %v", err)})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to produce report: %v", err)})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}

// ListSessionsHandler handles GET /admin/sessions.
func (s *Service) ListSessionsHandler(c *gin.Context) {
	sessions, err := s.ListSessions(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to list sessions: %v", err)})
		return
	}
	if sessions == nil {
		sessions = []*sessionstore.Session{}
	}
	c.JSON(http.StatusOK, sessions)
}

func (s *Service) writeSubmitError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrUnknownSession):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrAwaitingGate), errors.Is(err, ErrScreeningComplete):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, ErrItemsUnavailable), errors.Is(err, analysisservice.ErrTranscriptionService), errors.Is(err, analysisservice.ErrComparisonService):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to score item: %v", err)})
	}
}
