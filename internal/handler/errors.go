package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"habitreminder/internal/model"
	"habitreminder/internal/scheduler"
	"habitreminder/internal/service/auth"
	"habitreminder/internal/service/habit"
	"habitreminder/pkg/logger"
)

// ReminderSyncHeader is set to "failed" when a write committed but its reminder job was not synced.
const ReminderSyncHeader = "X-Reminder-Sync"

// writeError maps service errors onto HTTP responses.
func writeError(c *gin.Context, log *zap.Logger, err error) {
	var ve *model.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Message, "rule": ve.Rule, "violations": violations(err)})
	case errors.Is(err, auth.ErrUserExists):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, habit.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, habit.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		logger.WithTrace(c.Request.Context(), log).Error("Request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

type violationBody struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

func violations(err error) []violationBody {
	vs := model.Violations(err)
	out := make([]violationBody, 0, len(vs))
	for _, ve := range vs {
		out = append(out, violationBody{Rule: ve.Rule, Message: ve.Message})
	}
	return out
}

// syncFailed reports whether err only describes a reminder sync failure after a committed write.
func syncFailed(c *gin.Context, err error) bool {
	var se *scheduler.SchedulerError
	if !errors.As(err, &se) {
		return false
	}
	c.Header(ReminderSyncHeader, "failed")
	return true
}

// userID 读取 AuthMiddleware 写入的用户 ID
func userID(c *gin.Context) (int64, bool) {
	v, ok := c.Get("user_id")
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return 0, false
	}
	id, ok := v.(int64)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return 0, false
	}
	return id, true
}
