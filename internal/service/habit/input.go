package habit

import (
	"bytes"
	"encoding/json"

	"habitreminder/internal/model"
)

// Field is a JSON field that tracks whether it was present and whether it was null.
type Field[T any] struct {
	Set   bool
	Null  bool
	Value T
}

func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		f.Null = true
		return nil
	}
	return json.Unmarshal(data, &f.Value)
}

// Value builds a present, non-null field.
func Value[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

// Input is the writable part of a habit. Absent fields keep their current value on PATCH.
type Input struct {
	Place           Field[string]          `json:"place"`
	Time            Field[model.TimeOfDay] `json:"time"`
	Action          Field[string]          `json:"action"`
	IsPleasantHabit Field[bool]            `json:"is_pleasant_habit"`
	RelatedHabit    Field[int64]           `json:"related_habit"`
	Frequency       Field[int]             `json:"frequency"`
	Reward          Field[string]          `json:"reward"`
	TimeToComplete  Field[int]             `json:"time_to_complete"`
	IsPublic        Field[bool]            `json:"is_public"`
}

// requireFull reports the first field a full write must carry.
func (in *Input) requireFull() error {
	switch {
	case !in.Place.Set:
		return model.InvalidField("place", "required")
	case !in.Time.Set:
		return model.InvalidField("time", "required")
	case !in.Action.Set:
		return model.InvalidField("action", "required")
	case !in.TimeToComplete.Set:
		return model.InvalidField("time_to_complete", "required")
	}
	return nil
}

// apply copies the present fields of in onto h.
func (in *Input) apply(h *model.Habit) error {
	if err := setRequired(&h.Place, in.Place, "place"); err != nil {
		return err
	}
	if err := setRequired(&h.Time, in.Time, "time"); err != nil {
		return err
	}
	if err := setRequired(&h.Action, in.Action, "action"); err != nil {
		return err
	}
	if err := setRequired(&h.IsPleasantHabit, in.IsPleasantHabit, "is_pleasant_habit"); err != nil {
		return err
	}
	if err := setRequired(&h.Frequency, in.Frequency, "frequency"); err != nil {
		return err
	}
	if err := setRequired(&h.TimeToComplete, in.TimeToComplete, "time_to_complete"); err != nil {
		return err
	}
	if err := setRequired(&h.IsPublic, in.IsPublic, "is_public"); err != nil {
		return err
	}

	if in.RelatedHabit.Set {
		if in.RelatedHabit.Null {
			h.RelatedHabitID = nil
		} else {
			id := in.RelatedHabit.Value
			h.RelatedHabitID = &id
		}
	}
	if in.Reward.Set {
		h.Reward = in.Reward.Value // null clears
	}
	return nil
}

func setRequired[T any](dst *T, f Field[T], name string) error {
	if !f.Set {
		return nil
	}
	if f.Null {
		return model.InvalidField(name, "may not be null")
	}
	*dst = f.Value
	return nil
}
