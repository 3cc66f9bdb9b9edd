package model

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

const (
	MaxFrequency      = 7
	MaxTimeToComplete = 120
	maxTextLength     = 255
)

var (
	ErrConflictingFields       = errors.New("related habit and reward are mutually exclusive")
	ErrPleasantHabitConstraint = errors.New("a pleasant habit cannot have a reward or a related habit")
	ErrFrequencyOutOfRange     = fmt.Errorf("frequency must not exceed %d days", MaxFrequency)
	ErrDurationOutOfRange      = fmt.Errorf("time to complete must not exceed %d seconds", MaxTimeToComplete)
	ErrInvalidField            = errors.New("invalid field")
)

// Rule names reported to API clients.
const (
	RuleConflictingFields       = "conflicting_fields"
	RulePleasantHabitConstraint = "pleasant_habit_constraint"
	RuleFrequencyOutOfRange     = "frequency_out_of_range"
	RuleDurationOutOfRange      = "duration_out_of_range"
	RuleInvalidField            = "invalid_field"
)

// ValidationError names the violated rule.
type ValidationError struct {
	Rule    string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func violation(rule string, err error) *ValidationError {
	return &ValidationError{Rule: rule, Message: err.Error(), Err: err}
}

// InvalidField reports a field-level violation.
func InvalidField(field, reason string) *ValidationError {
	return &ValidationError{
		Rule:    RuleInvalidField,
		Message: fmt.Sprintf("%s: %s", field, reason),
		Err:     ErrInvalidField,
	}
}

// Validate checks every business rule and joins the violations in rule order,
// so errors.As yields the first one. It never runs implicitly; callers invoke it
// before committing a write.
func (h *Habit) Validate() error {
	var errs []error
	for _, check := range h.checks() {
		if err := check(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Violations flattens err into the validation errors it carries, in order.
func Violations(err error) []*ValidationError {
	var out []*ValidationError
	var walk func(error)
	walk = func(err error) {
		if err == nil {
			return
		}
		if ve, ok := err.(*ValidationError); ok {
			out = append(out, ve)
			return
		}
		switch u := err.(type) {
		case interface{ Unwrap() []error }:
			for _, e := range u.Unwrap() {
				walk(e)
			}
		case interface{ Unwrap() error }:
			walk(u.Unwrap())
		}
	}
	walk(err)
	return out
}

func (h *Habit) checks() []func() error {
	return []func() error{
		h.checkConflictingFields,
		h.checkPleasantHabit,
		h.checkFrequency,
		h.checkDuration,
	}
}

func (h *Habit) checkConflictingFields() error {
	if h.HasRelated() && h.HasReward() {
		return violation(RuleConflictingFields, ErrConflictingFields)
	}
	return nil
}

func (h *Habit) checkPleasantHabit() error {
	if h.IsPleasantHabit && (h.HasRelated() || h.HasReward()) {
		return violation(RulePleasantHabitConstraint, ErrPleasantHabitConstraint)
	}
	return nil
}

func (h *Habit) checkFrequency() error {
	if h.Frequency > MaxFrequency {
		return violation(RuleFrequencyOutOfRange, ErrFrequencyOutOfRange)
	}
	return nil
}

func (h *Habit) checkDuration() error {
	if h.TimeToComplete > MaxTimeToComplete {
		return violation(RuleDurationOutOfRange, ErrDurationOutOfRange)
	}
	return nil
}

// ValidateFields checks the column-level constraints of the stored record.
func (h *Habit) ValidateFields() error {
	switch {
	case h.Place == "":
		return InvalidField("place", "required")
	case utf8.RuneCountInString(h.Place) > maxTextLength:
		return InvalidField("place", fmt.Sprintf("at most %d characters", maxTextLength))
	case h.Action == "":
		return InvalidField("action", "required")
	case utf8.RuneCountInString(h.Action) > maxTextLength:
		return InvalidField("action", fmt.Sprintf("at most %d characters", maxTextLength))
	case utf8.RuneCountInString(h.Reward) > maxTextLength:
		return InvalidField("reward", fmt.Sprintf("at most %d characters", maxTextLength))
	case h.Frequency < 1:
		return InvalidField("frequency", "must be a positive integer")
	case h.TimeToComplete < 1:
		return InvalidField("time_to_complete", "must be a positive integer")
	case h.RelatedHabitID != nil && h.ID != 0 && *h.RelatedHabitID == h.ID:
		return InvalidField("related_habit", "cannot reference itself")
	}
	return nil
}
