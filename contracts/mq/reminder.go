package mq

import (
	"encoding/json"
	"time"
)

// ReminderDuePayload is published on "reminder.due" every time a recurring reminder job fires.
// Action, ChatID and Reward are the copy captured when the job was last upserted.
type ReminderDuePayload struct {
	DeliveryID string    `json:"delivery_id"`
	JobName    string    `json:"job_name"`
	FiredAt    time.Time `json:"fired_at"`
	Action     string    `json:"action"`
	ChatID     int64     `json:"chat_id"`
	Reward     string    `json:"reward"`
}

// MarshalJSON always emits the reward key, null when there is none.
func (p ReminderDuePayload) MarshalJSON() ([]byte, error) {
	type plain ReminderDuePayload
	var reward *string
	if p.Reward != "" {
		reward = &p.Reward
	}
	return json.Marshal(struct {
		plain
		Reward *string `json:"reward"`
	}{plain(p), reward})
}
