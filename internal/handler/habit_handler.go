package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"habitreminder/internal/model"
	"habitreminder/internal/service/habit"
)

type HabitService interface {
	List(ctx context.Context, userID int64, page int) (*habit.Page, error)
	Get(ctx context.Context, id int64) (*model.Habit, error)
	Create(ctx context.Context, userID int64, in habit.Input) (*model.Habit, error)
	Update(ctx context.Context, userID, id int64, in habit.Input, partial bool) (*model.Habit, error)
	Delete(ctx context.Context, userID, id int64) error
}

type HabitHandler struct {
	habits HabitService
	logger *zap.Logger
}

func NewHabitHandler(habits HabitService, logger *zap.Logger) *HabitHandler {
	return &HabitHandler{habits: habits, logger: logger}
}

type pageResponse struct {
	Count    int           `json:"count"`
	Next     *string       `json:"next"`
	Previous *string       `json:"previous"`
	Results  []model.Habit `json:"results"`
}

// List handles GET /habits/?page=N
func (h *HabitHandler) List(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	page := 1
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusNotFound, gin.H{"error": "invalid page"})
			return
		}
		page = n
	}

	p, err := h.habits.List(c.Request.Context(), uid, page)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	resp := pageResponse{Count: p.Count, Results: p.Results}
	if resp.Results == nil {
		resp.Results = []model.Habit{}
	}
	if p.HasNext() {
		next := pageURL(c, p.Page+1)
		resp.Next = &next
	}
	if p.Page > 1 {
		prev := pageURL(c, p.Page-1)
		resp.Previous = &prev
	}
	c.JSON(http.StatusOK, resp)
}

// Get handles GET /habits/:id/
func (h *HabitHandler) Get(c *gin.Context) {
	if _, ok := userID(c); !ok {
		return
	}
	id, ok := habitID(c)
	if !ok {
		return
	}

	found, err := h.habits.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, found)
}

// Create handles POST /habits/
func (h *HabitHandler) Create(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	in, ok := bindInput(c)
	if !ok {
		return
	}

	created, err := h.habits.Create(c.Request.Context(), uid, in)
	if err != nil && !syncFailed(c, err) {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// Replace handles PUT /habits/:id/
func (h *HabitHandler) Replace(c *gin.Context) {
	h.update(c, false)
}

// Patch handles PATCH /habits/:id/
func (h *HabitHandler) Patch(c *gin.Context) {
	h.update(c, true)
}

func (h *HabitHandler) update(c *gin.Context, partial bool) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	id, ok := habitID(c)
	if !ok {
		return
	}
	in, ok := bindInput(c)
	if !ok {
		return
	}

	updated, err := h.habits.Update(c.Request.Context(), uid, id, in, partial)
	if err != nil && !syncFailed(c, err) {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// Delete handles DELETE /habits/:id/
func (h *HabitHandler) Delete(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	id, ok := habitID(c)
	if !ok {
		return
	}

	if err := h.habits.Delete(c.Request.Context(), uid, id); err != nil && !syncFailed(c, err) {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func habitID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusNotFound, gin.H{"error": "habit not found"})
		return 0, false
	}
	return id, true
}

func bindInput(c *gin.Context) (habit.Input, bool) {
	var in habit.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request: %v", err), "rule": model.RuleInvalidField})
		return in, false
	}
	return in, true
}

// pageURL rebuilds the request URL pointing at page.
func pageURL(c *gin.Context, page int) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	q := c.Request.URL.Query()
	if page == 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	u := url.URL{
		Scheme:   scheme,
		Host:     c.Request.Host,
		Path:     c.Request.URL.Path,
		RawQuery: q.Encode(),
	}
	return u.String()
}
