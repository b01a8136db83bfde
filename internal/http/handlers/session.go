package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/tossup-backend/internal/http/response"
	"github.com/yungbote/tossup-backend/internal/provider"
	"github.com/yungbote/tossup-backend/internal/session"
)

type SessionHandler struct {
	sessions session.Service
}

func NewSessionHandler(sessions session.Service) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// POST /api/sessions
func (h *SessionHandler) Start(c *gin.Context) {
	var f provider.Filter
	if err := c.ShouldBindJSON(&f); err != nil && !errors.Is(err, io.EOF) {
		respondBindError(c, err)
		return
	}
	s, err := h.sessions.Start(c.Request.Context(), f)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session": s})
}

// GET /api/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id", "invalid_session_id")
	if !ok {
		return
	}
	s, err := h.sessions.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"session": s})
}

// POST /api/sessions/:id/rounds
func (h *SessionHandler) NextRound(c *gin.Context) {
	id, ok := pathUUID(c, "id", "invalid_session_id")
	if !ok {
		return
	}
	round, err := h.sessions.NextRound(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"round": round})
}

// GET /api/sessions/:id/rounds
func (h *SessionHandler) Rounds(c *gin.Context) {
	id, ok := pathUUID(c, "id", "invalid_session_id")
	if !ok {
		return
	}
	rounds, err := h.sessions.Rounds(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"rounds": rounds})
}

// POST /api/sessions/:id/rounds/:round_id/answer
func (h *SessionHandler) Answer(c *gin.Context) {
	id, ok := pathUUID(c, "id", "invalid_session_id")
	if !ok {
		return
	}
	roundID, ok := pathUUID(c, "round_id", "invalid_round_id")
	if !ok {
		return
	}
	var req struct {
		Transcript string `json:"transcript"`
	}
	// an empty body is a timed-out buzz
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondBindError(c, err)
		return
	}
	out, err := h.sessions.Submit(c.Request.Context(), id, roundID, req.Transcript)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, out)
}

// POST /api/sessions/:id/rounds/:round_id/audio
func (h *SessionHandler) Audio(c *gin.Context) {
	id, ok := pathUUID(c, "id", "invalid_session_id")
	if !ok {
		return
	}
	roundID, ok := pathUUID(c, "round_id", "invalid_round_id")
	if !ok {
		return
	}
	audio, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondBindError(c, err)
		return
	}
	if len(audio) == 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("empty audio body"))
		return
	}
	mimeType := strings.TrimSpace(c.ContentType())
	out, err := h.sessions.SubmitAudio(c.Request.Context(), id, roundID, audio, mimeType)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, out)
}

// POST /api/sessions/:id/reset
func (h *SessionHandler) Reset(c *gin.Context) {
	id, ok := pathUUID(c, "id", "invalid_session_id")
	if !ok {
		return
	}
	if err := h.sessions.Reset(c.Request.Context(), id); err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"reset": true})
}

func pathUUID(c *gin.Context, name, code string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(name)))
	if err != nil || id == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, code, errors.New("invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}
