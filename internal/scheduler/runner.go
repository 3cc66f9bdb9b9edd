package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	mqcontracts "habitreminder/contracts/mq"
	"habitreminder/internal/model"
	"habitreminder/pkg/logger"
	"habitreminder/pkg/metrics"
	"habitreminder/pkg/trace"
)

// JobSource lists the jobs the runner should have registered.
type JobSource interface {
	ListEnabled(ctx context.Context) ([]model.ReminderJob, error)
}

// Trigger hands a fired reminder to the delivery side.
type Trigger interface {
	Trigger(ctx context.Context, event mqcontracts.ReminderDuePayload) error
}

const fireTimeout = 10 * time.Second

type registered struct {
	id        cron.EntryID
	updatedAt time.Time
}

// SyncResult counts the changes applied by one Sync.
type SyncResult struct {
	Added   int
	Updated int
	Removed int
}

type Runner struct {
	cron    *cron.Cron
	source  JobSource
	trigger Trigger
	loc     *time.Location
	logger  *zap.Logger
	now     func() time.Time
	newID   func() string

	mu      sync.Mutex
	entries map[string]registered
}

func NewRunner(source JobSource, trigger Trigger, loc *time.Location, logger *zap.Logger) *Runner {
	if loc == nil {
		loc = time.UTC
	}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cronLogger{logger.Sugar()})),
	)
	return &Runner{
		cron:    c,
		source:  source,
		trigger: trigger,
		loc:     loc,
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
		entries: map[string]registered{},
	}
}

// Sync brings the registered cron entries in line with the job source.
// New jobs are added, jobs whose updated_at changed are re-registered, missing or disabled jobs are removed.
func (r *Runner) Sync(ctx context.Context) (SyncResult, error) {
	jobs, err := r.source.ListEnabled(ctx)
	if err != nil {
		return SyncResult{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var res SyncResult
	seen := make(map[string]struct{}, len(jobs))
	for i := range jobs {
		job := jobs[i]
		seen[job.Name] = struct{}{}

		cur, ok := r.entries[job.Name]
		if ok && cur.updatedAt.Equal(job.UpdatedAt) {
			continue
		}
		if ok {
			r.cron.Remove(cur.id)
			res.Updated++
		} else {
			res.Added++
		}
		id := r.register(job)
		r.entries[job.Name] = registered{id: id, updatedAt: job.UpdatedAt}
		if next, ok := r.nextFire(id); ok {
			r.logger.Debug("Reminder job scheduled",
				zap.String("job", job.Name),
				zap.Int("every_days", job.EveryDays),
				zap.Time("next_run", next),
			)
		}
	}

	for name, cur := range r.entries {
		if _, ok := seen[name]; ok {
			continue
		}
		r.cron.Remove(cur.id)
		delete(r.entries, name)
		res.Removed++
	}

	metrics.SetScheduledJobs(len(r.entries))
	if res != (SyncResult{}) {
		r.logger.Info("Reminder jobs synced",
			zap.Int("added", res.Added),
			zap.Int("updated", res.Updated),
			zap.Int("removed", res.Removed),
			zap.Int("total", len(r.entries)),
		)
	}
	return res, nil
}

func (r *Runner) register(job model.ReminderJob) cron.EntryID {
	sched := IntervalSchedule{Start: job.StartTime.In(r.loc), EveryDays: job.EveryDays}
	name, payload := job.Name, job.Payload
	return r.cron.Schedule(sched, cron.FuncJob(func() {
		r.fire(name, payload)
	}))
}

func (r *Runner) fire(name string, payload model.ReminderPayload) {
	ctx, _ := trace.Ensure(context.Background())
	ctx, cancel := context.WithTimeout(ctx, fireTimeout)
	defer cancel()

	event := mqcontracts.ReminderDuePayload{
		DeliveryID: r.newID(),
		JobName:    name,
		FiredAt:    r.now().UTC(),
		Action:     payload.Action,
		ChatID:     payload.ChatID,
		Reward:     payload.Reward,
	}
	log := logger.WithTrace(ctx, r.logger).With(
		zap.String("job", name),
		zap.String("delivery_id", event.DeliveryID),
	)

	if err := r.trigger.Trigger(ctx, event); err != nil {
		metrics.IncrementReminderFired("error")
		log.Error("Failed to trigger reminder", zap.Error(err))
		return
	}
	metrics.IncrementReminderFired("ok")
	log.Info("Reminder triggered")
}

// Jobs returns the registered job names in order.
func (r *Runner) Jobs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// nextFire returns the next firing time of entry id after now.
func (r *Runner) nextFire(id cron.EntryID) (time.Time, bool) {
	entry := r.cron.Entry(id)
	if !entry.Valid() {
		return time.Time{}, false
	}
	return entry.Schedule.Next(r.now().In(r.loc)), true
}

// Run syncs once, starts cron, then re-syncs every interval until ctx is done.
func (r *Runner) Run(ctx context.Context, interval time.Duration) error {
	if _, err := r.Sync(ctx); err != nil {
		return err
	}
	r.cron.Start()
	r.logger.Info("Scheduler started",
		zap.String("tz", r.loc.String()),
		zap.Duration("sync_interval", interval),
		zap.Int("jobs", len(r.Jobs())),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := r.Sync(ctx); err != nil {
				r.logger.Error("Reminder job sync failed", zap.Error(err))
			}
		}
	}
}

// Stop stops cron and waits for running jobs until ctx expires.
func (r *Runner) Stop(ctx context.Context) {
	start := time.Now()
	select {
	case <-r.cron.Stop().Done():
	case <-ctx.Done():
	}
	r.logger.Info("Scheduler stopped", zap.Duration("took", time.Since(start)))
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
