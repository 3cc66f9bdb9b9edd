package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"habitreminder/internal/handler"
)

// Pinger reports database readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Router struct {
	Engine *gin.Engine
}

func NewRouter(
	authHandler *handler.AuthHandler,
	habitHandler *handler.HabitHandler,
	authenticator Authenticator,
	db Pinger,
	logger *zap.Logger,
) *Router {
	r := gin.New()
	r.Use(gin.Recovery(), TraceMiddleware(), AccessLogMiddleware(logger))

	// Health endpoints (放在最前面)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public
	r.POST("/register/", authHandler.Register)
	r.POST("/token/", authHandler.Token)
	r.POST("/token/refresh/", authHandler.Refresh)

	// Protected
	habits := r.Group("/habits")
	habits.Use(AuthMiddleware(authenticator))
	{
		habits.GET("/", habitHandler.List)
		habits.POST("/", habitHandler.Create)
		habits.GET("/:id/", habitHandler.Get)
		habits.PUT("/:id/", habitHandler.Replace)
		habits.PATCH("/:id/", habitHandler.Patch)
		habits.DELETE("/:id/", habitHandler.Delete)
	}

	return &Router{Engine: r}
}

// Handler exposes the engine for http.Server.
func (r *Router) Handler() http.Handler {
	return r.Engine
}
