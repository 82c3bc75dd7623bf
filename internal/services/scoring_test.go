package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	temporalsdkclient "go.temporal.io/sdk/client"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	redisclient "github.com/speakpath/speakpath-backend/internal/clients/redis"
	"github.com/speakpath/speakpath-backend/internal/logger"
	"github.com/speakpath/speakpath-backend/internal/types"
)

type fakePracticeCallRepo struct {
	mu    sync.Mutex
	calls map[uuid.UUID]*types.PracticeCall

	statusWrites []statusWrite
}

type statusWrite struct {
	id     uuid.UUID
	status string
	reason *string
}

func newFakePracticeCallRepo(rows ...*types.PracticeCall) *fakePracticeCallRepo {
	f := &fakePracticeCallRepo{calls: map[uuid.UUID]*types.PracticeCall{}}
	for _, row := range rows {
		f.calls[row.ID] = row
	}
	return f
}

func (f *fakePracticeCallRepo) Create(ctx context.Context, tx *gorm.DB, row *types.PracticeCall) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[row.ID] = row
	return nil
}

func (f *fakePracticeCallRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.PracticeCall, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id], nil
}

func (f *fakePracticeCallRepo) UpdateCallData(ctx context.Context, tx *gorm.DB, id uuid.UUID, durationSecs int, transcriptText string, callData datatypes.JSON) error {
	return nil
}

func (f *fakePracticeCallRepo) SetScoringStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string, reason *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusWrites = append(f.statusWrites, statusWrite{id: id, status: status, reason: reason})
	if row := f.calls[id]; row != nil && !types.ScoringStatusTerminal(row.ScoringStatus) {
		row.ScoringStatus = status
		row.StatusReason = reason
	}
	return nil
}

type fakeWorkflowStarter struct {
	mu       sync.Mutex
	started  []temporalsdkclient.StartWorkflowOptions
	attempts int
	failures int
}

func (f *fakeWorkflowStarter) ExecuteWorkflow(ctx context.Context, options temporalsdkclient.StartWorkflowOptions, workflow interface{}, args ...interface{}) (temporalsdkclient.WorkflowRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.attempts <= f.failures {
		return nil, fmt.Errorf("frontend unavailable")
	}
	f.started = append(f.started, options)
	return nil, nil
}

type fakeDispatchLock struct {
	acquired bool
	err      error
	keys     []string
}

func (f *fakeDispatchLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	f.keys = append(f.keys, key)
	return f.acquired, f.err
}

func (f *fakeDispatchLock) Release(ctx context.Context, key string) error { return nil }

func (f *fakeDispatchLock) Close() error { return nil }

// memoryDispatchLock mirrors redis SetNX/DEL semantics.
type memoryDispatchLock struct {
	mu   sync.Mutex
	held map[string]bool
}

func newMemoryDispatchLock() *memoryDispatchLock {
	return &memoryDispatchLock{held: map[string]bool{}}
}

func (m *memoryDispatchLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] {
		return false, nil
	}
	m.held[key] = true
	return true, nil
}

func (m *memoryDispatchLock) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, key)
	return nil
}

func (m *memoryDispatchLock) Close() error { return nil }

func newTestScoringService(t *testing.T, calls *fakePracticeCallRepo, starter *fakeWorkflowStarter, lock redisclient.DispatchLock) *scoringService {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	svc := &scoringService{
		log:       log,
		calls:     calls,
		taskQueue: "speakpath",
	}
	if starter != nil {
		svc.temporal = starter
	}
	if lock != nil {
		svc.lock = lock
	}
	return svc
}

func TestShouldScoreThreshold(t *testing.T) {
	cases := []struct {
		durationSecs int
		want         bool
	}{
		{0, false},
		{59, false},
		{60, true},
		{61, true},
	}
	for _, tc := range cases {
		if got := ShouldScore(tc.durationSecs); got != tc.want {
			t.Fatalf("ShouldScore(%d): want=%v got=%v", tc.durationSecs, tc.want, got)
		}
	}
}

func TestScorePracticeCallSkipsShortCall(t *testing.T) {
	callID := uuid.New()
	calls := newFakePracticeCallRepo(&types.PracticeCall{
		ID:               callID,
		UserID:           uuid.New(),
		CallDurationSecs: 45,
		ScoringStatus:    types.ScoringStatusWaiting,
	})
	starter := &fakeWorkflowStarter{}
	svc := newTestScoringService(t, calls, starter, nil)

	dispatch, err := svc.ScorePracticeCall(context.Background(), callID)
	if err != nil {
		t.Fatalf("ScorePracticeCall: %v", err)
	}
	if dispatch.Outcome != DispatchOutcomeSkipped {
		t.Fatalf("outcome: want=%q got=%q", DispatchOutcomeSkipped, dispatch.Outcome)
	}

	if len(calls.statusWrites) != 1 {
		t.Fatalf("status writes: want=1 got=%d", len(calls.statusWrites))
	}
	write := calls.statusWrites[0]
	if write.status != types.ScoringStatusSkipped {
		t.Fatalf("status: want=%q got=%q", types.ScoringStatusSkipped, write.status)
	}
	wantReason := "Call too short: 45 seconds (minimum 60s required)"
	if write.reason == nil || *write.reason != wantReason {
		t.Fatalf("reason: want=%q got=%v", wantReason, write.reason)
	}

	if len(starter.started) != 0 {
		t.Fatalf("no workflow should start for a skipped call, got %d", len(starter.started))
	}
}

func TestScorePracticeCallDispatchesEligibleCall(t *testing.T) {
	callID := uuid.New()
	calls := newFakePracticeCallRepo(&types.PracticeCall{
		ID:               callID,
		UserID:           uuid.New(),
		CallDurationSecs: 90,
		ScoringStatus:    types.ScoringStatusWaiting,
	})
	starter := &fakeWorkflowStarter{}
	lock := &fakeDispatchLock{acquired: true}
	svc := newTestScoringService(t, calls, starter, lock)

	dispatch, err := svc.ScorePracticeCall(context.Background(), callID)
	if err != nil {
		t.Fatalf("ScorePracticeCall: %v", err)
	}
	if dispatch.Outcome != DispatchOutcomeDispatched {
		t.Fatalf("outcome: want=%q got=%q", DispatchOutcomeDispatched, dispatch.Outcome)
	}
	if want := "score-call-" + callID.String(); dispatch.WorkflowID != want {
		t.Fatalf("workflow id: want=%q got=%q", want, dispatch.WorkflowID)
	}
	if len(starter.started) != 1 || starter.started[0].ID != dispatch.WorkflowID {
		t.Fatalf("workflow start: want one start with id %q got=%+v", dispatch.WorkflowID, starter.started)
	}
	if len(calls.statusWrites) != 0 {
		t.Fatalf("dispatch must not touch scoring_status, got %d writes", len(calls.statusWrites))
	}
}

func TestScorePracticeCallDropsDuplicateDispatch(t *testing.T) {
	callID := uuid.New()
	calls := newFakePracticeCallRepo(&types.PracticeCall{
		ID:               callID,
		UserID:           uuid.New(),
		CallDurationSecs: 120,
		ScoringStatus:    types.ScoringStatusWaiting,
	})
	starter := &fakeWorkflowStarter{}
	lock := &fakeDispatchLock{acquired: false}
	svc := newTestScoringService(t, calls, starter, lock)

	dispatch, err := svc.ScorePracticeCall(context.Background(), callID)
	if err != nil {
		t.Fatalf("ScorePracticeCall: %v", err)
	}
	if dispatch.Outcome != DispatchOutcomeDuplicate {
		t.Fatalf("outcome: want=%q got=%q", DispatchOutcomeDuplicate, dispatch.Outcome)
	}
	if len(starter.started) != 0 {
		t.Fatalf("duplicate dispatch must not start a workflow, got %d", len(starter.started))
	}
}

func TestScorePracticeCallRetriesAfterFailedStart(t *testing.T) {
	callID := uuid.New()
	calls := newFakePracticeCallRepo(&types.PracticeCall{
		ID:               callID,
		UserID:           uuid.New(),
		CallDurationSecs: 90,
		ScoringStatus:    types.ScoringStatusWaiting,
	})
	starter := &fakeWorkflowStarter{failures: 1}
	lock := newMemoryDispatchLock()
	svc := newTestScoringService(t, calls, starter, lock)

	if _, err := svc.ScorePracticeCall(context.Background(), callID); err == nil {
		t.Fatalf("want error when workflow start fails")
	}
	if len(starter.started) != 0 {
		t.Fatalf("failed start must not record a workflow, got %d", len(starter.started))
	}

	// The sender retries after the 500. A lock left over from the failed
	// attempt would mislabel this as a duplicate with nothing running.
	dispatch, err := svc.ScorePracticeCall(context.Background(), callID)
	if err != nil {
		t.Fatalf("ScorePracticeCall retry: %v", err)
	}
	if dispatch.Outcome != DispatchOutcomeDispatched {
		t.Fatalf("retry outcome: want=%q got=%q", DispatchOutcomeDispatched, dispatch.Outcome)
	}
	if len(starter.started) != 1 {
		t.Fatalf("workflow starts: want=1 got=%d", len(starter.started))
	}
}

func TestScorePracticeCallUnknownCall(t *testing.T) {
	calls := newFakePracticeCallRepo()
	svc := newTestScoringService(t, calls, &fakeWorkflowStarter{}, nil)

	if _, err := svc.ScorePracticeCall(context.Background(), uuid.New()); err == nil {
		t.Fatalf("want error for unknown practice call")
	}
}
