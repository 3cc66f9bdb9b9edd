package habit

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"habitreminder/internal/model"
	"habitreminder/internal/repository"
	"habitreminder/internal/scheduler"
	"habitreminder/pkg/logger"
	"habitreminder/pkg/metrics"
)

const PageSize = 5

var (
	ErrNotFound  = errors.New("habit not found")
	ErrForbidden = errors.New("only the owner may modify this habit")
)

type HabitStore interface {
	Create(ctx context.Context, h *model.Habit) error
	Update(ctx context.Context, h *model.Habit) error
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*model.Habit, error)
	Exists(ctx context.Context, id int64) (bool, error)
	ListVisible(ctx context.Context, userID int64, limit, offset int) ([]model.Habit, int, error)
}

type OwnerLookup interface {
	FindByID(ctx context.Context, id int64) (*model.User, error)
}

// ReminderSync is called after every committed habit write.
type ReminderSync interface {
	Upsert(ctx context.Context, h *model.Habit, owner *model.User) error
	Remove(ctx context.Context, h *model.Habit, owner *model.User) error
}

// HookPolicy decides what a failed post-commit reminder sync means for the caller.
type HookPolicy string

const (
	// BestEffort logs the failure; the write reports success.
	BestEffort HookPolicy = "best_effort"
	// Propagate returns the *scheduler.SchedulerError alongside the committed habit.
	Propagate HookPolicy = "propagate"
)

// Page is one page of the list endpoint.
type Page struct {
	Count   int
	Page    int
	Results []model.Habit
}

// HasNext reports whether a page follows this one.
func (p Page) HasNext() bool {
	return p.Page*PageSize < p.Count
}

type Service struct {
	habits    HabitStore
	users     OwnerLookup
	reminders ReminderSync
	policy    HookPolicy
	logger    *zap.Logger
}

func NewService(habits HabitStore, users OwnerLookup, reminders ReminderSync, policy HookPolicy, logger *zap.Logger) *Service {
	if policy == "" {
		policy = BestEffort
	}
	return &Service{
		habits:    habits,
		users:     users,
		reminders: reminders,
		policy:    policy,
		logger:    logger,
	}
}

// List returns page (1-based) of the caller's habits together with all public habits.
func (s *Service) List(ctx context.Context, userID int64, page int) (*Page, error) {
	if page < 1 {
		return nil, ErrNotFound
	}
	habits, total, err := s.habits.ListVisible(ctx, userID, PageSize, (page-1)*PageSize)
	if err != nil {
		return nil, err
	}
	if page > 1 && len(habits) == 0 {
		return nil, ErrNotFound
	}
	return &Page{Count: total, Page: page, Results: habits}, nil
}

// Get returns the habit. Reads are allowed to every authenticated user.
func (s *Service) Get(ctx context.Context, id int64) (*model.Habit, error) {
	h, err := s.habits.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return h, nil
}

// Create validates and stores a habit owned by userID, then upserts its reminder job.
// With the Propagate policy a reminder failure is returned together with the created habit.
func (s *Service) Create(ctx context.Context, userID int64, in Input) (*model.Habit, error) {
	if err := in.requireFull(); err != nil {
		metrics.IncrementHabitWrite("create", "invalid")
		return nil, err
	}

	h := &model.Habit{OwnerID: userID, Frequency: model.DefaultFrequency}
	if err := s.prepare(ctx, h, in); err != nil {
		metrics.IncrementHabitWrite("create", outcome(err))
		return nil, err
	}

	if err := s.habits.Create(ctx, h); err != nil {
		metrics.IncrementHabitWrite("create", "error")
		return nil, fmt.Errorf("failed to create habit: %w", err)
	}
	metrics.IncrementHabitWrite("create", "ok")
	logger.WithTrace(ctx, s.logger).Info("Habit created", zap.Int64("habit_id", h.ID), zap.Int64("owner_id", userID))

	return h, s.afterSave(ctx, h, nil)
}

// Update applies in to the caller's habit. partial=false requires every writable field (PUT).
func (s *Service) Update(ctx context.Context, userID, id int64, in Input, partial bool) (*model.Habit, error) {
	if !partial {
		if err := in.requireFull(); err != nil {
			metrics.IncrementHabitWrite("update", "invalid")
			return nil, err
		}
	}

	h, err := s.owned(ctx, userID, id)
	if err != nil {
		metrics.IncrementHabitWrite("update", outcome(err))
		return nil, err
	}
	previous := *h

	if err := s.prepare(ctx, h, in); err != nil {
		metrics.IncrementHabitWrite("update", outcome(err))
		return nil, err
	}

	if err := s.habits.Update(ctx, h); err != nil {
		metrics.IncrementHabitWrite("update", "error")
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update habit: %w", err)
	}
	metrics.IncrementHabitWrite("update", "ok")
	logger.WithTrace(ctx, s.logger).Info("Habit updated", zap.Int64("habit_id", h.ID))

	return h, s.afterSave(ctx, h, &previous)
}

// Delete removes the caller's habit, then removes its reminder job.
func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	h, err := s.owned(ctx, userID, id)
	if err != nil {
		metrics.IncrementHabitWrite("delete", outcome(err))
		return err
	}

	if err := s.habits.Delete(ctx, id); err != nil {
		metrics.IncrementHabitWrite("delete", "error")
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete habit: %w", err)
	}
	metrics.IncrementHabitWrite("delete", "ok")
	logger.WithTrace(ctx, s.logger).Info("Habit deleted", zap.Int64("habit_id", id))

	owner, err := s.users.FindByID(ctx, h.OwnerID)
	if err != nil {
		return s.hookFailed(ctx, h, &scheduler.SchedulerError{Op: "remove", Err: err})
	}
	return s.hookFailed(ctx, h, s.reminders.Remove(ctx, h, owner))
}

func (s *Service) owned(ctx context.Context, userID, id int64) (*model.Habit, error) {
	h, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if h.OwnerID != userID {
		return nil, ErrForbidden
	}
	return h, nil
}

// prepare merges in into h and runs every check a write must pass before commit.
func (s *Service) prepare(ctx context.Context, h *model.Habit, in Input) error {
	if err := in.apply(h); err != nil {
		return err
	}
	if err := h.ValidateFields(); err != nil {
		return err
	}
	if err := h.Validate(); err != nil {
		return err
	}
	if h.RelatedHabitID != nil {
		ok, err := s.habits.Exists(ctx, *h.RelatedHabitID)
		if err != nil {
			return err
		}
		if !ok {
			return model.InvalidField("related_habit", fmt.Sprintf("habit %d does not exist", *h.RelatedHabitID))
		}
	}
	return nil
}

// afterSave syncs the reminder job of a committed habit. previous is the state before an update.
func (s *Service) afterSave(ctx context.Context, h *model.Habit, previous *model.Habit) error {
	owner, err := s.users.FindByID(ctx, h.OwnerID)
	if err != nil {
		return s.hookFailed(ctx, h, &scheduler.SchedulerError{Op: "upsert", Err: err})
	}

	// a renamed action would otherwise leave the old job firing
	if previous != nil && previous.Action != h.Action {
		if err := s.reminders.Remove(ctx, previous, owner); err != nil {
			return s.hookFailed(ctx, h, err)
		}
	}
	return s.hookFailed(ctx, h, s.reminders.Upsert(ctx, h, owner))
}

func (s *Service) hookFailed(ctx context.Context, h *model.Habit, err error) error {
	if err == nil {
		return nil
	}
	logger.WithTrace(ctx, s.logger).Warn("Reminder sync failed after commit",
		zap.Int64("habit_id", h.ID),
		zap.String("policy", string(s.policy)),
		zap.Error(err),
	)
	if s.policy == Propagate {
		return err
	}
	return nil
}

func outcome(err error) string {
	var ve *model.ValidationError
	switch {
	case errors.As(err, &ve):
		return "invalid"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
