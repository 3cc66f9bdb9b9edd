package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"habitreminder/internal/model"
)

// memStore is an in-memory JobStore and JobSource.
type memStore struct {
	mu    sync.Mutex
	jobs  map[string]model.ReminderJob
	clock time.Time
	err   error
}

func newMemStore() *memStore {
	return &memStore{
		jobs:  map[string]model.ReminderJob{},
		clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *memStore) Upsert(_ context.Context, job *model.ReminderJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.clock = s.clock.Add(time.Second)
	if cur, ok := s.jobs[job.Name]; ok {
		job.CreatedAt = cur.CreatedAt
	} else {
		job.CreatedAt = s.clock
	}
	job.Enabled = true
	job.UpdatedAt = s.clock
	s.jobs[job.Name] = *job
	return nil
}

func (s *memStore) DeleteByName(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	_, ok := s.jobs[name]
	delete(s.jobs, name)
	return ok, nil
}

func (s *memStore) ListEnabled(_ context.Context) ([]model.ReminderJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var out []model.ReminderJob
	for _, j := range s.jobs {
		if j.Enabled {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memStore) get(name string) (model.ReminderJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[name]
	return j, ok
}

func (s *memStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

var errStoreDown = errors.New("job store unavailable")
