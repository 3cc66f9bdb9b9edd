package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"habitreminder/internal/model"
	"habitreminder/pkg/logger"
	"habitreminder/pkg/metrics"
)

// JobStore persists recurring jobs keyed by name.
type JobStore interface {
	Upsert(ctx context.Context, job *model.ReminderJob) error
	DeleteByName(ctx context.Context, name string) (bool, error)
}

// SchedulerError reports a failed job store operation.
type SchedulerError struct {
	Op      string
	JobName string
	Err     error
}

func (e *SchedulerError) Error() string {
	return fmt.Sprintf("scheduler %s %q: %v", e.Op, e.JobName, e.Err)
}

func (e *SchedulerError) Unwrap() error {
	return e.Err
}

// DeriveJobName builds the job key from the habit action and the owner's string form.
// Two habits of one owner with the same action share a job.
func DeriveJobName(action, owner string) string {
	return fmt.Sprintf("notification_%s_for_user_%s", action, owner)
}

type Adapter struct {
	store  JobStore
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

func NewAdapter(store JobStore, loc *time.Location, logger *zap.Logger) *Adapter {
	if loc == nil {
		loc = time.UTC
	}
	return &Adapter{
		store:  store,
		loc:    loc,
		now:    time.Now,
		logger: logger,
	}
}

// BuildJob computes the job for h. The start time is today's date in the scheduler timezone
// combined with the habit's time of day.
func (a *Adapter) BuildJob(h *model.Habit, owner *model.User) *model.ReminderJob {
	return &model.ReminderJob{
		Name:      DeriveJobName(h.Action, owner.String()),
		EveryDays: h.Frequency,
		StartTime: h.Time.On(a.now().In(a.loc)),
		Task:      model.TaskSendReminder,
		Payload: model.ReminderPayload{
			Action: h.Action,
			ChatID: owner.TgID,
			Reward: h.Reward,
		},
		Enabled: true,
	}
}

// Upsert creates or replaces the job of h. Calling it twice with the same content leaves one job.
func (a *Adapter) Upsert(ctx context.Context, h *model.Habit, owner *model.User) error {
	job := a.BuildJob(h, owner)
	log := logger.WithTrace(ctx, a.logger).With(zap.String("job", job.Name), zap.Int64("habit_id", h.ID))

	if err := a.store.Upsert(ctx, job); err != nil {
		metrics.IncrementReminderJobSync("upsert", "error")
		log.Error("Reminder job upsert failed", zap.Error(err))
		return &SchedulerError{Op: "upsert", JobName: job.Name, Err: err}
	}

	metrics.IncrementReminderJobSync("upsert", "ok")
	log.Info("Reminder job upserted",
		zap.Int("every_days", job.EveryDays),
		zap.Time("start_time", job.StartTime),
	)
	return nil
}

// Remove deletes the job of h. A missing job is not an error.
func (a *Adapter) Remove(ctx context.Context, h *model.Habit, owner *model.User) error {
	name := DeriveJobName(h.Action, owner.String())
	log := logger.WithTrace(ctx, a.logger).With(zap.String("job", name), zap.Int64("habit_id", h.ID))

	found, err := a.store.DeleteByName(ctx, name)
	if err != nil {
		metrics.IncrementReminderJobSync("remove", "error")
		log.Error("Reminder job removal failed", zap.Error(err))
		return &SchedulerError{Op: "remove", JobName: name, Err: err}
	}

	metrics.IncrementReminderJobSync("remove", "ok")
	if !found {
		log.Debug("No reminder job to remove")
		return nil
	}
	log.Info("Reminder job removed")
	return nil
}
