package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/speakpath/speakpath-backend/internal/services"
)

type ProgressionHandler struct {
	progression services.ProgressionService
	watcher     services.CompletionWatcher
}

func NewProgressionHandler(progression services.ProgressionService, watcher services.CompletionWatcher) *ProgressionHandler {
	return &ProgressionHandler{progression: progression, watcher: watcher}
}

// requestUserID resolves the acting user from the user_id query param or the
// X-User-ID header. Session auth is handled upstream of this service.
func requestUserID(c *gin.Context) (uuid.UUID, error) {
	raw := strings.TrimSpace(c.Query("user_id"))
	if raw == "" {
		raw = strings.TrimSpace(c.GetHeader("X-User-ID"))
	}
	if raw == "" {
		return uuid.Nil, fmt.Errorf("missing user_id")
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("invalid user_id")
	}
	return id, nil
}

// GET /api/hierarchy
func (h *ProgressionHandler) GetHierarchy(c *gin.Context) {
	userID, err := requestUserID(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_user_id", err)
		return
	}

	levels, err := h.progression.GetHierarchy(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "hierarchy_unavailable", err)
		return
	}
	RespondOK(c, gin.H{"levels": levels})
}

// GET /api/next-activity
func (h *ProgressionHandler) GetNextActivity(c *gin.Context) {
	userID, err := requestUserID(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_user_id", err)
		return
	}

	currentActivityID := uuid.Nil
	if raw := strings.TrimSpace(c.Query("current_activity_id")); raw != "" {
		currentActivityID, err = uuid.Parse(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_activity_id", err)
			return
		}
	}

	next, err := h.progression.NextActivity(c.Request.Context(), currentActivityID, userID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "next_activity_unavailable", err)
		return
	}
	RespondOK(c, gin.H{"next": next})
}

// POST /api/activities/:id/watch-completion
//
// Long-polls until the activity's completion timestamp changes or the poll
// budget runs out. A closed client connection cancels the watch.
func (h *ProgressionHandler) WatchCompletion(c *gin.Context) {
	userID, err := requestUserID(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_user_id", err)
		return
	}
	activityID, err := uuid.Parse(c.Param("id"))
	if err != nil || activityID == uuid.Nil {
		RespondError(c, http.StatusBadRequest, "invalid_activity_id", fmt.Errorf("invalid activity id"))
		return
	}

	ctx := c.Request.Context()
	results, err := h.watcher.Watch(ctx, userID, activityID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "watch_failed", err)
		return
	}

	select {
	case <-ctx.Done():
		// Client went away; the poll loop shuts itself down.
		return
	case res := <-results:
		RespondOK(c, res)
	}
}
