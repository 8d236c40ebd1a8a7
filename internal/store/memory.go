package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/SameerVers3/Scrapply/internal/types"
	"github.com/google/uuid"
)

// Memory is an in-process Store. Jobs are deep-copied on the way in and out
// so callers can never mutate shared state.
type Memory struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*types.Job
}

func NewMemory() *Memory {
	return &Memory{jobs: make(map[uuid.UUID]*types.Job)}
}

func (m *Memory) Create(_ context.Context, job *types.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job.Clone()
	return nil
}

func (m *Memory) Get(_ context.Context, id uuid.UUID) (*types.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return job.Clone(), nil
}

func (m *Memory) Update(_ context.Context, id uuid.UUID, upd types.JobUpdate) (*types.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	applyUpdate(job, upd)
	job.UpdatedAt = time.Now().UTC()
	return job.Clone(), nil
}

func (m *Memory) List(_ context.Context, filter ListFilter) (*types.JobList, error) {
	filter = filter.normalized()

	m.mu.RLock()
	matched := make([]*types.Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		matched = append(matched, job)
	}
	m.mu.RUnlock()

	// Newest first, id as tiebreak for a stable order.
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	total := len(matched)
	start := (filter.Page - 1) * filter.Size
	if start > total {
		start = total
	}
	end := start + filter.Size
	if end > total {
		end = total
	}

	page := make([]*types.Job, 0, end-start)
	for _, job := range matched[start:end] {
		page = append(page, job.Clone())
	}
	return &types.JobList{Jobs: page, Total: total, Page: filter.Page, Size: filter.Size}, nil
}

func (m *Memory) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[id]; !ok {
		return ErrNotFound
	}
	delete(m.jobs, id)
	return nil
}

func (m *Memory) Close() {}

// applyUpdate copies the set fields of upd onto job. Nil pointer fields are
// left untouched so partial updates never clobber prior state.
func applyUpdate(job *types.Job, upd types.JobUpdate) {
	if upd.Status != nil {
		job.Status = *upd.Status
	}
	if upd.Progress != nil {
		job.Progress = *upd.Progress
	}
	if upd.Message != nil {
		job.Message = *upd.Message
	}
	if upd.Analysis != nil {
		job.Analysis = upd.Analysis
	}
	if upd.ScraperCode != nil {
		job.ScraperCode = *upd.ScraperCode
	}
	if upd.CodeVersion != nil {
		job.CodeVersion = *upd.CodeVersion
	}
	if upd.Strategy != nil {
		job.Strategy = *upd.Strategy
	}
	if upd.SampleData != nil {
		job.SampleData = upd.SampleData
	}
	if upd.ClearErrorInfo {
		job.ErrorInfo = nil
	} else if upd.ErrorInfo != nil {
		job.ErrorInfo = upd.ErrorInfo
	}
	if upd.APIEndpointPath != nil {
		job.APIEndpointPath = *upd.APIEndpointPath
	}
	if upd.CompletedAt != nil {
		job.CompletedAt = upd.CompletedAt
	}
}
