package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"habitreminder/internal/model"
)

// JobRepository stores recurring reminder jobs in periodic_tasks.
type JobRepository struct {
	db *pgxpool.Pool
}

func NewJobRepository(db *pgxpool.Pool) *JobRepository {
	return &JobRepository{db: db}
}

const jobColumns = `name, every_days, start_time, task, payload, enabled, created_at, updated_at`

// upsertJobQuery keeps created_at of an existing row and re-enables it.
const upsertJobQuery = `
        INSERT INTO periodic_tasks (name, every_days, start_time, task, payload, enabled, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, TRUE, NOW(), NOW())
        ON CONFLICT (name) DO UPDATE
        SET every_days = EXCLUDED.every_days,
            start_time = EXCLUDED.start_time,
            task       = EXCLUDED.task,
            payload    = EXCLUDED.payload,
            enabled    = TRUE,
            updated_at = NOW()
        RETURNING enabled, created_at, updated_at
    `

// Upsert creates the job or reassigns interval, start time, task and payload of the job with the same name.
func (r *JobRepository) Upsert(ctx context.Context, j *model.ReminderJob) error {
	return r.db.QueryRow(ctx, upsertJobQuery, j.Name, j.EveryDays, j.StartTime, j.Task, j.Payload).
		Scan(&j.Enabled, &j.CreatedAt, &j.UpdatedAt)
}

// DeleteByName removes the job and reports whether one existed.
func (r *JobRepository) DeleteByName(ctx context.Context, name string) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM periodic_tasks WHERE name = $1`, name)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListEnabled returns every enabled job.
func (r *JobRepository) ListEnabled(ctx context.Context) ([]model.ReminderJob, error) {
	rows, err := r.db.Query(ctx, `SELECT `+jobColumns+` FROM periodic_tasks WHERE enabled ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []model.ReminderJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

func scanJob(row pgx.Row) (*model.ReminderJob, error) {
	var j model.ReminderJob
	err := row.Scan(&j.Name, &j.EveryDays, &j.StartTime, &j.Task, &j.Payload, &j.Enabled, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}
