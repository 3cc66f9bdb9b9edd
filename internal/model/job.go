package model

import (
	"encoding/json"
	"time"
)

// TaskSendReminder is the task reference stored on every reminder job.
const TaskSendReminder = "notification.send_reminder"

// ReminderPayload is the data captured at upsert time and handed to the dispatcher on each firing.
type ReminderPayload struct {
	Action string `json:"action"`
	ChatID int64  `json:"chat_id"`
	Reward string `json:"reward"`
}

// MarshalJSON writes an empty reward as null.
func (p ReminderPayload) MarshalJSON() ([]byte, error) {
	type plain ReminderPayload
	return json.Marshal(struct {
		plain
		Reward *string `json:"reward"`
	}{plain(p), nullable(p.Reward)})
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ReminderJob is a row of periodic_tasks.
type ReminderJob struct {
	Name      string
	EveryDays int
	StartTime time.Time
	Task      string
	Payload   ReminderPayload
	Enabled   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Interval returns the firing period.
func (j *ReminderJob) Interval() time.Duration {
	return time.Duration(j.EveryDays) * 24 * time.Hour
}
