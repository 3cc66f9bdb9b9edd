package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ReadyFunc reports whether a dependency is usable.
type ReadyFunc func() bool

// NewOpsRouter serves health and metrics for the background binaries.
func NewOpsRouter(logger *zap.Logger, checks map[string]ReadyFunc) *Router {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(c *gin.Context) {
		failed := []string{}
		for name, ready := range checks {
			if !ready() {
				failed = append(failed, name)
			}
		}
		if len(failed) > 0 {
			logger.Warn("Readiness check failed", zap.Strings("failed", failed))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "failed": failed})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return &Router{Engine: r}
}
