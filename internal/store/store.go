// Package store persists scraping jobs. The Postgres implementation backs
// production; the memory implementation backs tests and local runs without a
// database.
package store

import (
	"context"
	"errors"

	"github.com/SameerVers3/Scrapply/internal/types"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a job id does not exist.
var ErrNotFound = errors.New("job not found")

// ListFilter narrows List results. Zero values mean no filtering; Page is
// 1-based and Size defaults to 20.
type ListFilter struct {
	Status types.JobStatus
	Page   int
	Size   int
}

func (f ListFilter) normalized() ListFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Size < 1 {
		f.Size = 20
	}
	if f.Size > 100 {
		f.Size = 100
	}
	return f
}

// Store is the persistence boundary for jobs.
type Store interface {
	Create(ctx context.Context, job *types.Job) error
	Get(ctx context.Context, id uuid.UUID) (*types.Job, error)
	Update(ctx context.Context, id uuid.UUID, upd types.JobUpdate) (*types.Job, error)
	List(ctx context.Context, filter ListFilter) (*types.JobList, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Close()
}
