package scheduler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"habitreminder/internal/model"
)

var owner = &model.User{ID: 7, Email: "alice@example.com", TgID: 555001}

func testAdapter(store JobStore, now time.Time) *Adapter {
	a := NewAdapter(store, now.Location(), zap.NewNop())
	a.now = func() time.Time { return now }
	return a
}

func drinkWater() *model.Habit {
	return &model.Habit{
		ID:             1,
		OwnerID:        owner.ID,
		Place:          "kitchen",
		Time:           model.TimeOfDay{Hour: 8},
		Action:         "drink_water",
		Frequency:      1,
		Reward:         "gold star",
		TimeToComplete: 60,
	}
}

func TestDeriveJobName(t *testing.T) {
	t.Parallel()

	got := DeriveJobName("drink_water", "alice@example.com")
	if got != "notification_drink_water_for_user_alice@example.com" {
		t.Fatalf("DeriveJobName = %q", got)
	}
}

func TestUpsertRoundTrip(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	now := time.Date(2026, 5, 20, 17, 45, 0, 0, time.UTC)
	a := testAdapter(store, now)

	if err := a.Upsert(context.Background(), drinkWater(), owner); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	job, ok := store.get(DeriveJobName("drink_water", owner.Email))
	if !ok {
		t.Fatalf("job not stored")
	}
	if job.EveryDays != 1 || job.Interval() != 24*time.Hour {
		t.Fatalf("interval = %d days", job.EveryDays)
	}
	wantStart := time.Date(2026, 5, 20, 8, 0, 0, 0, time.UTC)
	if !job.StartTime.Equal(wantStart) {
		t.Fatalf("start = %v, want %v", job.StartTime, wantStart)
	}
	want := model.ReminderPayload{Action: "drink_water", ChatID: 555001, Reward: "gold star"}
	if job.Payload != want {
		t.Fatalf("payload = %+v, want %+v", job.Payload, want)
	}
	if job.Task != model.TaskSendReminder {
		t.Fatalf("task = %q", job.Task)
	}
}

func TestUpsertIsIdempotent(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	a := testAdapter(store, time.Date(2026, 5, 20, 9, 0, 0, 0, time.UTC))
	h := drinkWater()

	for i := 0; i < 2; i++ {
		if err := a.Upsert(context.Background(), h, owner); err != nil {
			t.Fatalf("Upsert #%d: %v", i, err)
		}
	}
	if store.len() != 1 {
		t.Fatalf("jobs = %d, want 1", store.len())
	}
}

func TestUpsertReassignsIntervalPayloadAndStart(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	day1 := time.Date(2026, 5, 20, 9, 0, 0, 0, time.UTC)
	a := testAdapter(store, day1)
	h := drinkWater()
	_ = a.Upsert(context.Background(), h, owner)

	a.now = func() time.Time { return day1.AddDate(0, 0, 3) }
	h.Frequency = 3
	h.Reward = ""
	h.Time = model.TimeOfDay{Hour: 21, Minute: 30}
	if err := a.Upsert(context.Background(), h, owner); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	job, _ := store.get(DeriveJobName(h.Action, owner.Email))
	if job.EveryDays != 3 || job.Payload.Reward != "" {
		t.Fatalf("job not updated: %+v", job)
	}
	if want := time.Date(2026, 5, 23, 21, 30, 0, 0, time.UTC); !job.StartTime.Equal(want) {
		t.Fatalf("start = %v, want %v", job.StartTime, want)
	}
}

func TestUpsertUsesSchedulerTimezone(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("MSK", 3*3600)
	// 22:30 UTC is already the next calendar day in MSK
	now := time.Date(2026, 5, 20, 22, 30, 0, 0, time.UTC)
	a := NewAdapter(newMemStore(), loc, zap.NewNop())
	a.now = func() time.Time { return now }

	job := a.BuildJob(drinkWater(), owner)
	want := time.Date(2026, 5, 21, 8, 0, 0, 0, loc)
	if !job.StartTime.Equal(want) {
		t.Fatalf("start = %v, want %v", job.StartTime, want)
	}
}

func TestSameActionSharesJob(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	a := testAdapter(store, time.Date(2026, 5, 20, 9, 0, 0, 0, time.UTC))

	first := drinkWater()
	second := drinkWater()
	second.ID = 2
	second.Frequency = 5

	_ = a.Upsert(context.Background(), first, owner)
	_ = a.Upsert(context.Background(), second, owner)

	if store.len() != 1 {
		t.Fatalf("jobs = %d, want 1", store.len())
	}
	job, _ := store.get(DeriveJobName("drink_water", owner.Email))
	if job.EveryDays != 5 {
		t.Fatalf("last write should win, every_days = %d", job.EveryDays)
	}
}

func TestRemove(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	a := testAdapter(store, time.Date(2026, 5, 20, 9, 0, 0, 0, time.UTC))
	h := drinkWater()

	_ = a.Upsert(context.Background(), h, owner)
	if err := a.Remove(context.Background(), h, owner); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok := store.get(DeriveJobName(h.Action, owner.Email)); ok {
		t.Fatalf("job still present after remove")
	}

	if err := a.Remove(context.Background(), h, owner); err != nil {
		t.Fatalf("Remove of missing job = %v, want nil", err)
	}
}

func TestStoreFailureIsSchedulerError(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.err = errStoreDown
	a := testAdapter(store, time.Now())

	for name, err := range map[string]error{
		"upsert": a.Upsert(context.Background(), drinkWater(), owner),
		"remove": a.Remove(context.Background(), drinkWater(), owner),
	} {
		var se *SchedulerError
		if !errors.As(err, &se) || se.Op != name || !errors.Is(err, errStoreDown) {
			t.Fatalf("%s error = %v", name, err)
		}
	}
}

func TestUpsertKeepsLongestDerivedName(t *testing.T) {
	t.Parallel()

	long := &model.User{ID: 8, Email: strings.Repeat("a", 64) + "@" + strings.Repeat("b", 185) + ".com", TgID: 555002}
	h := drinkWater()
	h.OwnerID = long.ID
	h.Action = strings.Repeat("x", 255)
	if err := h.ValidateFields(); err != nil {
		t.Fatalf("ValidateFields: %v", err)
	}
	if err := h.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	store := newMemStore()
	a := testAdapter(store, time.Date(2026, 5, 20, 9, 0, 0, 0, time.UTC))
	if err := a.Upsert(context.Background(), h, long); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	name := DeriveJobName(h.Action, long.Email)
	if len(name) < 500 {
		t.Fatalf("derived name length = %d", len(name))
	}
	job, ok := store.get(name)
	if !ok || job.Name != name {
		t.Fatalf("job not stored under full name")
	}
}
