package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	redisclient "github.com/speakpath/speakpath-backend/internal/clients/redis"
	"github.com/speakpath/speakpath-backend/internal/db"
	"github.com/speakpath/speakpath-backend/internal/handlers"
	"github.com/speakpath/speakpath-backend/internal/logger"
	"github.com/speakpath/speakpath-backend/internal/middleware"
	"github.com/speakpath/speakpath-backend/internal/observability"
	"github.com/speakpath/speakpath-backend/internal/repos"
	"github.com/speakpath/speakpath-backend/internal/server"
	"github.com/speakpath/speakpath-backend/internal/services"
	"github.com/speakpath/speakpath-backend/internal/temporalx"
	"github.com/speakpath/speakpath-backend/internal/temporalx/temporalworker"
	"github.com/speakpath/speakpath-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing
	if shutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "speakpath",
		Environment: utils.GetEnv("APP_ENV", "development", log),
		Version:     utils.GetEnv("APP_VERSION", "", log),
	}); shutdown != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(shutdownCtx)
		}()
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up repos...")
	completionRepo := repos.NewCompletionRepo(thePG, log)
	hierarchyRepo := repos.NewHierarchyRepo(thePG, log)
	practiceCallRepo := repos.NewPracticeCallRepo(thePG, log)
	promptRepo := repos.NewPromptRepo(thePG, log)
	scorecardRepo := repos.NewScorecardRepo(thePG, log)

	// Redis dispatch lock (optional; dedup degrades to workflow-id only)
	var dispatchLock redisclient.DispatchLock
	if lock, lockErr := redisclient.NewDispatchLock(log); lockErr != nil {
		log.Warn("Redis dispatch lock unavailable", "error", lockErr)
	} else {
		dispatchLock = lock
		defer dispatchLock.Close()
	}

	// Temporal
	temporalClient, err := temporalx.NewClient(log)
	if err != nil {
		log.Error("Temporal init failed", "error", err)
		os.Exit(1)
	}
	if temporalClient != nil {
		defer temporalClient.Close()
	}

	// Services
	log.Info("Setting up services...")
	openaiClient, err := services.NewOpenAIClient(log)
	if err != nil {
		log.Warn("OpenAI client unavailable; scoring will fail at the model step", "error", err)
	}
	progressionService := services.NewProgressionService(thePG, log, hierarchyRepo, completionRepo)
	completionWatcher := services.NewCompletionWatcher(log, completionRepo, progressionService)
	practiceCallService := services.NewPracticeCallService(thePG, log, practiceCallRepo, scorecardRepo)
	scoringService := services.NewScoringService(thePG, log, practiceCallRepo, temporalClient, dispatchLock, temporalx.LoadConfig().TaskQueue)

	// Worker
	if temporalClient != nil {
		runner, runnerErr := temporalworker.NewRunner(log, temporalClient, thePG, practiceCallRepo, promptRepo, scorecardRepo, openaiClient)
		if runnerErr != nil {
			log.Error("Temporal worker init failed", "error", runnerErr)
			os.Exit(1)
		}
		if err := runner.Start(ctx); err != nil {
			log.Error("Temporal worker start failed", "error", err)
			os.Exit(1)
		}
	}

	// Handlers
	log.Info("Setting up handlers...")
	progressionHandler := handlers.NewProgressionHandler(progressionService, completionWatcher)
	practiceHandler := handlers.NewPracticeHandler(practiceCallService, scoringService)
	webhookKey := middleware.NewWebhookKeyMiddleware(log, utils.GetEnv("WORKFLOW_API_KEY", "", log))

	// Router
	router := server.NewRouter(server.RouterConfig{
		ProgressionHandler: progressionHandler,
		PracticeHandler:    practiceHandler,
		WebhookKey:         webhookKey,
		AllowOrigins:       server.SplitOrigins(utils.GetEnv("ALLOW_ORIGINS", "", log)),
	})

	port := utils.GetEnv("PORT", "8080", log)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("Server failed", "error", err)
		os.Exit(1)
	}
	log.Info("Server stopped")
}
