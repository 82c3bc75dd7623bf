package temporalworker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
	"gorm.io/gorm"

	"github.com/speakpath/speakpath-backend/internal/logger"
	"github.com/speakpath/speakpath-backend/internal/repos"
	"github.com/speakpath/speakpath-backend/internal/services"
	"github.com/speakpath/speakpath-backend/internal/temporalx"
	"github.com/speakpath/speakpath-backend/internal/temporalx/scorecall"
	"github.com/speakpath/speakpath-backend/internal/utils"
)

// Runner hosts the scoring workflow worker inside the API process.
type Runner struct {
	log *logger.Logger

	tc         temporalsdkclient.Client
	db         *gorm.DB
	calls      repos.PracticeCallRepo
	prompts    repos.PromptRepo
	scorecards repos.ScorecardRepo
	ai         services.OpenAIClient
}

func NewRunner(
	log *logger.Logger,
	tc temporalsdkclient.Client,
	db *gorm.DB,
	calls repos.PracticeCallRepo,
	prompts repos.PromptRepo,
	scorecards repos.ScorecardRepo,
	ai services.OpenAIClient,
) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if db == nil || calls == nil || prompts == nil || scorecards == nil {
		return nil, fmt.Errorf("temporal worker missing deps")
	}
	return &Runner{
		log:        log,
		tc:         tc,
		db:         db,
		calls:      calls,
		prompts:    prompts,
		scorecards: scorecards,
		ai:         ai,
	}, nil
}

// Start brings the worker up, retrying while the Temporal server or the
// namespace is still coming up. The worker stops when ctx is cancelled.
func (r *Runner) Start(ctx context.Context) error {
	if r == nil || r.tc == nil {
		return fmt.Errorf("temporal worker not initialized")
	}

	cfg := temporalx.LoadConfig()
	if r.log != nil {
		r.log.Info("Starting Temporal worker", "address", cfg.Address, "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue)
	}

	deadline := time.Now().Add(time.Minute)
	backoff := 250 * time.Millisecond

	for attempt := 1; ; attempt++ {
		if ctx != nil && ctx.Err() != nil {
			return ctx.Err()
		}

		w := r.newWorker(cfg)
		startErr := w.Start()
		if startErr == nil {
			if ctx != nil {
				go func() {
					<-ctx.Done()
					w.Stop()
				}()
			}
			if r.log != nil {
				r.log.Info("Temporal worker started", "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue, "attempts", attempt)
			}
			return nil
		}
		w.Stop()

		var nfe *serviceerror.NamespaceNotFound
		if errors.As(startErr, &nfe) {
			// Local convenience path; cloud namespaces are pre-provisioned.
			if err := temporalx.EnsureNamespace(ctx, cfg, r.log); err != nil && r.log != nil {
				r.log.Warn("Temporal namespace ensure failed", "namespace", cfg.Namespace, "error", err)
			}
		}

		if time.Now().After(deadline) {
			if errors.As(startErr, &nfe) {
				return fmt.Errorf("temporal namespace not found (namespace=%s): %w", cfg.Namespace, startErr)
			}
			return startErr
		}
		if r.log != nil {
			r.log.Warn("Temporal worker failed to start; retrying", "task_queue", cfg.TaskQueue, "attempt", attempt, "error", startErr)
		}
		time.Sleep(backoff)
		if backoff < 5*time.Second {
			backoff *= 2
		}
	}
}

func (r *Runner) newWorker(cfg temporalx.Config) worker.Worker {
	concurrency := utils.GetEnvAsInt("WORKER_CONCURRENCY", 4, r.log)
	if concurrency < 1 {
		concurrency = 1
	}

	w := worker.New(r.tc, cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     concurrency,
		MaxConcurrentWorkflowTaskExecutionSize: concurrency,
	})

	acts := &scorecall.Activities{
		Log:        r.log,
		DB:         r.db,
		Calls:      r.calls,
		Prompts:    r.prompts,
		Scorecards: r.scorecards,
		AI:         r.ai,
	}

	w.RegisterWorkflowWithOptions(scorecall.Workflow, workflow.RegisterOptions{Name: scorecall.WorkflowName})
	w.RegisterActivityWithOptions(acts.MarkProcessing, activity.RegisterOptions{Name: scorecall.ActivityMarkProcessing})
	w.RegisterActivityWithOptions(acts.FetchCall, activity.RegisterOptions{Name: scorecall.ActivityFetchCall})
	w.RegisterActivityWithOptions(acts.FetchRubric, activity.RegisterOptions{Name: scorecall.ActivityFetchRubric})
	w.RegisterActivityWithOptions(acts.Score, activity.RegisterOptions{Name: scorecall.ActivityScore})
	w.RegisterActivityWithOptions(acts.Persist, activity.RegisterOptions{Name: scorecall.ActivityPersist})
	w.RegisterActivityWithOptions(acts.RecordFailure, activity.RegisterOptions{Name: scorecall.ActivityRecordFailure})
	return w
}
