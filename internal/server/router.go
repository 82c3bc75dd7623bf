package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/speakpath/speakpath-backend/internal/handlers"
	"github.com/speakpath/speakpath-backend/internal/middleware"
)

type RouterConfig struct {
	ProgressionHandler *handlers.ProgressionHandler
	PracticeHandler    *handlers.PracticeHandler
	WebhookKey         *middleware.WebhookKeyMiddleware

	AllowOrigins []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware("speakpath"))

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-User-ID"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		// Progression
		api.GET("/hierarchy", cfg.ProgressionHandler.GetHierarchy)
		api.GET("/next-activity", cfg.ProgressionHandler.GetNextActivity)
		api.POST("/activities/:id/watch-completion", cfg.ProgressionHandler.WatchCompletion)

		// Practice calls
		practice := api.Group("/practice")
		practice.POST("/calls", cfg.PracticeHandler.CreateCall)
		practice.PATCH("/calls/:id", cfg.PracticeHandler.EnrichCall)
		practice.GET("/calls/:id", cfg.PracticeHandler.GetCall)

		// Call-ended webhook
		practice.POST("/score-practice-call", cfg.WebhookKey.RequireKey(), cfg.PracticeHandler.ScorePracticeCall)
	}

	return router
}

// SplitOrigins parses a comma-separated ALLOW_ORIGINS value.
func SplitOrigins(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
