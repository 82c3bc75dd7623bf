package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/speakpath/speakpath-backend/internal/logger"
	"github.com/speakpath/speakpath-backend/internal/progression"
	"github.com/speakpath/speakpath-backend/internal/types"
)

// fakeCompletionRepo serves a scripted sequence of completed_at reads; the
// last entry repeats once the script is exhausted.
type fakeCompletionRepo struct {
	mu       sync.Mutex
	sequence []*time.Time
	reads    int
}

func (f *fakeCompletionRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]types.UserActivityCompletion, error) {
	return nil, nil
}

func (f *fakeCompletionRepo) GetCompletedAt(ctx context.Context, tx *gorm.DB, userID, activityID uuid.UUID) (*time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.reads
	f.reads++
	if idx >= len(f.sequence) {
		idx = len(f.sequence) - 1
	}
	if idx < 0 {
		return nil, nil
	}
	return f.sequence[idx], nil
}

func (f *fakeCompletionRepo) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

type fakeProgressionService struct {
	mu    sync.Mutex
	next  *progression.NextActivity
	calls int
}

func (f *fakeProgressionService) GetHierarchy(ctx context.Context, userID uuid.UUID) ([]progression.LevelView, error) {
	return nil, nil
}

func (f *fakeProgressionService) NextActivity(ctx context.Context, currentActivityID, userID uuid.UUID) (*progression.NextActivity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.next, nil
}

func (f *fakeProgressionService) nextCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestWatcher(t *testing.T, completions *fakeCompletionRepo, prog *fakeProgressionService) *completionWatcher {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return &completionWatcher{
		log:          log,
		completions:  completions,
		progression:  prog,
		pollInterval: time.Millisecond,
		maxPolls:     watcherMaxPolls,
	}
}

func timeptr(t time.Time) *time.Time { return &t }

func TestWatcherSuccessOnTimestampChange(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Minute)
	// Read 0 is the baseline capture; reads 1..3 are polls [T0, T0, T1].
	completions := &fakeCompletionRepo{sequence: []*time.Time{timeptr(t0), timeptr(t0), timeptr(t0), timeptr(t1)}}
	nextID := uuid.New()
	prog := &fakeProgressionService{next: &progression.NextActivity{ActivityID: nextID, ActivityTitle: "Next"}}
	w := newTestWatcher(t, completions, prog)

	results, err := w.Watch(context.Background(), uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}

	select {
	case res := <-results:
		if res.Outcome != WatchSuccess {
			t.Fatalf("outcome: want=%q got=%q", WatchSuccess, res.Outcome)
		}
		if res.Next == nil || res.Next.ActivityID != nextID {
			t.Fatalf("next: want=%s got=%+v", nextID, res.Next)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("watcher did not deliver a result")
	}

	if got := prog.nextCalls(); got != 1 {
		t.Fatalf("next-activity call count: want=1 got=%d", got)
	}
	// Baseline + three polls; the watcher must stop reading after success.
	if got := completions.readCount(); got != 4 {
		t.Fatalf("completion read count: want=4 got=%d", got)
	}
}

func TestWatcherSuccessWhenBaselineAbsent(t *testing.T) {
	t1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	completions := &fakeCompletionRepo{sequence: []*time.Time{nil, nil, timeptr(t1)}}
	prog := &fakeProgressionService{}
	w := newTestWatcher(t, completions, prog)

	results, err := w.Watch(context.Background(), uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}

	select {
	case res := <-results:
		if res.Outcome != WatchSuccess {
			t.Fatalf("outcome: want=%q got=%q", WatchSuccess, res.Outcome)
		}
		if res.Next != nil {
			t.Fatalf("next: want none got=%+v", res.Next)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("watcher did not deliver a result")
	}
}

func TestWatcherTimeoutAfterPollBudget(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	completions := &fakeCompletionRepo{sequence: []*time.Time{timeptr(t0)}}
	prog := &fakeProgressionService{}
	w := newTestWatcher(t, completions, prog)

	results, err := w.Watch(context.Background(), uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}

	select {
	case res := <-results:
		if res.Outcome != WatchTimeout {
			t.Fatalf("outcome: want=%q got=%q", WatchTimeout, res.Outcome)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("watcher did not deliver a result")
	}

	if got := prog.nextCalls(); got != 0 {
		t.Fatalf("next-activity call count: want=0 got=%d", got)
	}
	// Baseline + exactly maxPolls polls.
	if got := completions.readCount(); got != watcherMaxPolls+1 {
		t.Fatalf("completion read count: want=%d got=%d", watcherMaxPolls+1, got)
	}
}

func TestWatcherCancellationDeliversNothing(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	completions := &fakeCompletionRepo{sequence: []*time.Time{timeptr(t0)}}
	prog := &fakeProgressionService{}
	w := newTestWatcher(t, completions, prog)
	w.pollInterval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	results, err := w.Watch(ctx, uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}

	time.Sleep(12 * time.Millisecond)
	cancel()

	select {
	case res, ok := <-results:
		if ok {
			t.Fatalf("cancelled watcher delivered a result: %+v", res)
		}
	case <-time.After(50 * time.Millisecond):
		// Nothing delivered after cancellation; the poll loop has exited.
	}
}
