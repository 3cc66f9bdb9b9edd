package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"habitreminder/internal/model"
)

type HabitRepository struct {
	db *pgxpool.Pool
}

func NewHabitRepository(db *pgxpool.Pool) *HabitRepository {
	return &HabitRepository{db: db}
}

const habitColumns = `id, owner_id, place, time, action, is_pleasant_habit, related_habit_id,
            frequency, reward, time_to_complete, is_public, created_at, updated_at`

// visibleToUser selects the caller's own habits and every public habit.
const visibleToUser = `owner_id = $1 OR is_public`

const (
	countVisibleHabitsQuery = `SELECT COUNT(*) FROM habits WHERE ` + visibleToUser
	listVisibleHabitsQuery  = `
        SELECT ` + habitColumns + `
        FROM habits
        WHERE ` + visibleToUser + `
        ORDER BY id
        LIMIT $2 OFFSET $3
    `
)

func timeOfDay(t model.TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: t.SinceMidnight().Microseconds(), Valid: true}
}

// Create inserts h and fills its id and timestamps.
func (r *HabitRepository) Create(ctx context.Context, h *model.Habit) error {
	query := `
        INSERT INTO habits (owner_id, place, time, action, is_pleasant_habit, related_habit_id,
                            frequency, reward, time_to_complete, is_public, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
        RETURNING id, created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query,
		h.OwnerID, h.Place, timeOfDay(h.Time), h.Action, h.IsPleasantHabit, h.RelatedHabitID,
		h.Frequency, nullText(h.Reward), h.TimeToComplete, h.IsPublic,
	).Scan(&h.ID, &h.CreatedAt, &h.UpdatedAt)
	return mapError(err)
}

// Update overwrites every mutable column of h.
func (r *HabitRepository) Update(ctx context.Context, h *model.Habit) error {
	query := `
        UPDATE habits
        SET place = $2, time = $3, action = $4, is_pleasant_habit = $5, related_habit_id = $6,
            frequency = $7, reward = $8, time_to_complete = $9, is_public = $10, updated_at = NOW()
        WHERE id = $1
        RETURNING updated_at
    `
	err := r.db.QueryRow(ctx, query,
		h.ID, h.Place, timeOfDay(h.Time), h.Action, h.IsPleasantHabit, h.RelatedHabitID,
		h.Frequency, nullText(h.Reward), h.TimeToComplete, h.IsPublic,
	).Scan(&h.UpdatedAt)
	return mapError(err)
}

// Delete removes the habit. Habits linking it keep existing with related_habit_id cleared by the FK.
func (r *HabitRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM habits WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Get returns habit by id.
func (r *HabitRepository) Get(ctx context.Context, id int64) (*model.Habit, error) {
	row := r.db.QueryRow(ctx, `SELECT `+habitColumns+` FROM habits WHERE id = $1`, id)
	h, err := scanHabit(row)
	if err != nil {
		return nil, mapError(err)
	}
	return h, nil
}

// Exists reports whether a habit with id is stored.
func (r *HabitRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM habits WHERE id = $1)`, id).Scan(&ok)
	return ok, err
}

// ListVisible returns one page of the caller's own habits together with every public habit,
// plus the total number of such habits.
func (r *HabitRepository) ListVisible(ctx context.Context, userID int64, limit, offset int) ([]model.Habit, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, countVisibleHabitsQuery, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, listVisibleHabitsQuery, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	habits := make([]model.Habit, 0, limit)
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, 0, err
		}
		habits = append(habits, *h)
	}
	return habits, total, rows.Err()
}

func scanHabit(row pgx.Row) (*model.Habit, error) {
	var (
		h      model.Habit
		tod    pgtype.Time
		reward pgtype.Text
	)
	err := row.Scan(
		&h.ID, &h.OwnerID, &h.Place, &tod, &h.Action, &h.IsPleasantHabit, &h.RelatedHabitID,
		&h.Frequency, &reward, &h.TimeToComplete, &h.IsPublic, &h.CreatedAt, &h.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	h.Time = model.TimeOfDayFromDuration(time.Duration(tod.Microseconds) * time.Microsecond)
	h.Reward = reward.String
	return &h, nil
}
