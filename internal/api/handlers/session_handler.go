package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/doccast/doccast/internal/models"
	"github.com/doccast/doccast/internal/podcast"
	"github.com/doccast/doccast/internal/services"
	"github.com/doccast/doccast/internal/utils"
)

type SessionHandler struct {
	svc services.PodcastService
}

func NewSessionHandler(svc services.PodcastService) *SessionHandler {
	return &SessionHandler{svc: svc}
}

type StartSessionRequest struct {
	Text     string              `json:"text" binding:"required"` // extracted document content
	Plan     []string            `json:"plan"`                    // optional; derived when empty
	Personas *models.PersonaPair `json:"personas"`                // optional; professor/student default

	Style         string `json:"style"`    // educational|casual
	Provider      string `json:"provider"` // azure|elevenlabs
	AllowFallback bool   `json:"allow_fallback"`
	TurnGapMS     int    `json:"turn_gap_ms"`
}

type StartSessionResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

func (h *SessionHandler) Start(c *gin.Context) {
	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "SessionHandler.Start", "invalid request body", err))
		return
	}

	in := podcast.SessionInput{
		Content: models.ExtractedContent{Text: req.Text},
		Plan:    req.Plan,
		Options: podcast.RenderOptions{
			Style:         req.Style,
			Provider:      req.Provider,
			AllowFallback: req.AllowFallback,
			TurnGap:       time.Duration(req.TurnGapMS) * time.Millisecond,
		},
	}
	if req.Personas != nil {
		in.Personas = *req.Personas
	}

	sess, err := h.svc.Start(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, StartSessionResponse{
		SessionID: sess.SessionID,
		Status:    sess.Status,
	})
}

func (h *SessionHandler) Get(c *gin.Context) {
	sess, err := h.svc.Get(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *SessionHandler) Cancel(c *gin.Context) {
	if err := h.svc.Cancel(c.Request.Context(), c.Param("session_id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelling"})
}
