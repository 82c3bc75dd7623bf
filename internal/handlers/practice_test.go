package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/speakpath/speakpath-backend/internal/logger"
	"github.com/speakpath/speakpath-backend/internal/middleware"
	"github.com/speakpath/speakpath-backend/internal/services"
	"github.com/speakpath/speakpath-backend/internal/types"
)

type fakePracticeCallService struct {
	call      *types.PracticeCall
	scorecard *types.Scorecard
}

func (f *fakePracticeCallService) CreateSession(ctx context.Context, userID uuid.UUID) (*types.PracticeCall, error) {
	return f.call, nil
}

func (f *fakePracticeCallService) EnrichCall(ctx context.Context, id uuid.UUID, durationSecs int, transcriptText string, callData datatypes.JSON) (*types.PracticeCall, error) {
	return f.call, nil
}

func (f *fakePracticeCallService) GetStatus(ctx context.Context, id uuid.UUID) (*types.PracticeCall, error) {
	return f.call, nil
}

func (f *fakePracticeCallService) GetScorecard(ctx context.Context, id uuid.UUID) (*types.Scorecard, error) {
	return f.scorecard, nil
}

type fakeScoringService struct {
	dispatch *services.ScoreDispatch
	err      error
	calls    int
	lastID   uuid.UUID
}

func (f *fakeScoringService) ScorePracticeCall(ctx context.Context, practiceCallID uuid.UUID) (*services.ScoreDispatch, error) {
	f.calls++
	f.lastID = practiceCallID
	if f.err != nil {
		return nil, f.err
	}
	return f.dispatch, nil
}

func newWebhookRouter(t *testing.T, scoring *fakeScoringService, apiKey string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}

	h := NewPracticeHandler(&fakePracticeCallService{}, scoring)
	keyGuard := middleware.NewWebhookKeyMiddleware(log, apiKey)

	router := gin.New()
	router.POST("/api/practice/score-practice-call", keyGuard.RequireKey(), h.ScorePracticeCall)
	return router
}

func TestScoreWebhookDispatches(t *testing.T) {
	callID := uuid.New()
	scoring := &fakeScoringService{dispatch: &services.ScoreDispatch{
		PracticeCallID: callID,
		Outcome:        services.DispatchOutcomeDispatched,
		WorkflowID:     "score-call-" + callID.String(),
	}}
	router := newWebhookRouter(t, scoring, "sekrit")

	body := fmt.Sprintf(`{"practice_call_id":%q}`, callID)
	req := httptest.NewRequest(http.MethodPost, "/api/practice/score-practice-call", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer sekrit")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d body=%s", rec.Code, rec.Body.String())
	}
	if scoring.calls != 1 || scoring.lastID != callID {
		t.Fatalf("scoring dispatch: want one call for %s got calls=%d id=%s", callID, scoring.calls, scoring.lastID)
	}
	if !strings.Contains(rec.Body.String(), services.DispatchOutcomeDispatched) {
		t.Fatalf("body missing outcome: %s", rec.Body.String())
	}
}

func TestScoreWebhookAcceptsFormEncoding(t *testing.T) {
	callID := uuid.New()
	scoring := &fakeScoringService{dispatch: &services.ScoreDispatch{
		PracticeCallID: callID,
		Outcome:        services.DispatchOutcomeSkipped,
	}}
	router := newWebhookRouter(t, scoring, "")

	form := "practice_call_id=" + callID.String()
	req := httptest.NewRequest(http.MethodPost, "/api/practice/score-practice-call", strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d body=%s", rec.Code, rec.Body.String())
	}
	if scoring.calls != 1 {
		t.Fatalf("scoring dispatch: want one call got=%d", scoring.calls)
	}
}

func TestScoreWebhookRejectsBadKey(t *testing.T) {
	scoring := &fakeScoringService{}
	router := newWebhookRouter(t, scoring, "sekrit")

	body := fmt.Sprintf(`{"practice_call_id":%q}`, uuid.New())
	req := httptest.NewRequest(http.MethodPost, "/api/practice/score-practice-call", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status: want=401 got=%d", rec.Code)
	}
	if scoring.calls != 0 {
		t.Fatalf("rejected request must not dispatch, got %d calls", scoring.calls)
	}
}

func TestScoreWebhookUnknownCall(t *testing.T) {
	scoring := &fakeScoringService{err: fmt.Errorf("%w: nope", services.ErrPracticeCallNotFound)}
	router := newWebhookRouter(t, scoring, "")

	body := fmt.Sprintf(`{"practice_call_id":%q}`, uuid.New())
	req := httptest.NewRequest(http.MethodPost, "/api/practice/score-practice-call", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: want=404 got=%d", rec.Code)
	}
}

func TestScoreWebhookRejectsMissingID(t *testing.T) {
	scoring := &fakeScoringService{}
	router := newWebhookRouter(t, scoring, "")

	req := httptest.NewRequest(http.MethodPost, "/api/practice/score-practice-call", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: want=400 got=%d", rec.Code)
	}
	if scoring.calls != 0 {
		t.Fatalf("invalid request must not dispatch, got %d calls", scoring.calls)
	}
}
