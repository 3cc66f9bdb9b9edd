package mq

import (
	"encoding/json"
	"testing"
	"time"
)

func TestReminderDuePayloadRewardKey(t *testing.T) {
	t.Parallel()

	fired := time.Date(2026, 5, 20, 8, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		reward string
		want   any
	}{
		{"empty reward is null", "", nil},
		{"reward kept", "gold star", "gold star"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			in := ReminderDuePayload{
				DeliveryID: "d-1",
				JobName:    "notification_walk_for_user_a@b.c",
				FiredAt:    fired,
				Action:     "walk",
				ChatID:     7,
				Reward:     tt.reward,
			}
			b, err := json.Marshal(in)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			var raw map[string]any
			if err := json.Unmarshal(b, &raw); err != nil {
				t.Fatalf("Unmarshal raw: %v", err)
			}
			got, ok := raw["reward"]
			if !ok || got != tt.want {
				t.Fatalf("reward = %v (present %v), want %v", got, ok, tt.want)
			}
			if raw["delivery_id"] != "d-1" || raw["chat_id"] != float64(7) {
				t.Fatalf("payload = %s", b)
			}

			var back ReminderDuePayload
			if err := json.Unmarshal(b, &back); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if back.Reward != tt.reward || !back.FiredAt.Equal(fired) || back.JobName != in.JobName {
				t.Fatalf("round trip = %+v", back)
			}
		})
	}
}
