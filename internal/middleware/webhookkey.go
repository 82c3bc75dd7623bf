package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/speakpath/speakpath-backend/internal/logger"
)

type WebhookKeyMiddleware struct {
	log *logger.Logger
	key string
}

// NewWebhookKeyMiddleware guards the call-ended webhook with a shared bearer
// key (WORKFLOW_API_KEY). An empty key disables the check, which is only
// acceptable for local development.
func NewWebhookKeyMiddleware(log *logger.Logger, key string) *WebhookKeyMiddleware {
	return &WebhookKeyMiddleware{
		log: log.With("Middleware", "WebhookKeyMiddleware"),
		key: strings.TrimSpace(key),
	}
}

func (m *WebhookKeyMiddleware) RequireKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.key == "" {
			c.Next()
			return
		}
		presented := extractBearer(c)
		if presented == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(m.key)) != 1 {
			m.log.Warn("Webhook rejected: bad or missing key", "path", c.FullPath())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid key"})
			return
		}
		c.Next()
	}
}

func extractBearer(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
