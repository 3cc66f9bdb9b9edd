package model

import "time"

// Habit 用户习惯
type Habit struct {
	ID              int64     `json:"id"`
	OwnerID         int64     `json:"owner"`
	Place           string    `json:"place"`
	Time            TimeOfDay `json:"time"`
	Action          string    `json:"action"`
	IsPleasantHabit bool      `json:"is_pleasant_habit"`
	RelatedHabitID  *int64    `json:"related_habit"`
	Frequency       int       `json:"frequency"`        // days
	Reward          string    `json:"reward"`           // empty means no reward
	TimeToComplete  int       `json:"time_to_complete"` // seconds
	IsPublic        bool      `json:"is_public"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

const DefaultFrequency = 1

// HasRelated reports whether the habit links a pleasant habit.
func (h *Habit) HasRelated() bool {
	return h.RelatedHabitID != nil
}

// HasReward reports whether the habit carries a reward.
func (h *Habit) HasReward() bool {
	return h.Reward != ""
}

// VisibleTo reports whether userID may read the habit.
func (h *Habit) VisibleTo(userID int64) bool {
	return h.IsPublic || h.OwnerID == userID
}
