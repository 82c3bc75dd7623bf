package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/speakpath/speakpath-backend/internal/services"
)

type PracticeHandler struct {
	calls   services.PracticeCallService
	scoring services.ScoringService
}

func NewPracticeHandler(calls services.PracticeCallService, scoring services.ScoringService) *PracticeHandler {
	return &PracticeHandler{calls: calls, scoring: scoring}
}

type createCallRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
}

// POST /api/practice/calls
func (h *PracticeHandler) CreateCall(c *gin.Context) {
	var req createCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	call, err := h.calls.CreateSession(c.Request.Context(), req.UserID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "create_call_failed", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"practice_call": call})
}

type enrichCallRequest struct {
	CallDurationSecs int            `json:"call_duration_secs"`
	TranscriptText   string         `json:"transcript_text"`
	CallData         datatypes.JSON `json:"call_data"`
}

// PATCH /api/practice/calls/:id
func (h *PracticeHandler) EnrichCall(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_practice_call_id", err)
		return
	}
	var req enrichCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	call, err := h.calls.EnrichCall(c.Request.Context(), id, req.CallDurationSecs, req.TranscriptText, req.CallData)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "enrich_call_failed", err)
		return
	}
	RespondOK(c, gin.H{"practice_call": call})
}

// GET /api/practice/calls/:id
//
// Returns the call with its scoring status; the scorecard rides along once
// scoring is complete.
func (h *PracticeHandler) GetCall(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_practice_call_id", err)
		return
	}

	call, err := h.calls.GetStatus(c.Request.Context(), id)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "get_call_failed", err)
		return
	}
	if call == nil {
		RespondError(c, http.StatusNotFound, "practice_call_not_found", errors.New("practice call not found"))
		return
	}

	payload := gin.H{"practice_call": call}
	if scorecard, scErr := h.calls.GetScorecard(c.Request.Context(), id); scErr == nil && scorecard != nil {
		payload["scorecard"] = scorecard
	}
	RespondOK(c, payload)
}

type scoreCallRequest struct {
	PracticeCallID string `json:"practice_call_id" form:"practice_call_id"`
}

// POST /api/practice/score-practice-call
//
// Call-ended webhook. Accepts JSON or form-encoded bodies since webhook
// senders differ; delivery is at-least-once, duplicates are dropped
// downstream.
func (h *PracticeHandler) ScorePracticeCall(c *gin.Context) {
	var req scoreCallRequest
	if err := c.ShouldBind(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	id, err := uuid.Parse(strings.TrimSpace(req.PracticeCallID))
	if err != nil || id == uuid.Nil {
		RespondError(c, http.StatusBadRequest, "invalid_practice_call_id", errors.New("invalid practice_call_id"))
		return
	}

	dispatch, err := h.scoring.ScorePracticeCall(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrPracticeCallNotFound) {
			RespondError(c, http.StatusNotFound, "practice_call_not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "score_dispatch_failed", err)
		return
	}
	RespondOK(c, dispatch)
}
