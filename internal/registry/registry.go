// Package registry tracks live generated API endpoints and executes their
// scrapers on demand.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/SameerVers3/Scrapply/internal/sandbox"
	"github.com/SameerVers3/Scrapply/internal/store"
	"github.com/SameerVers3/Scrapply/internal/types"
	"github.com/google/uuid"
)

// ErrNotActive is returned when a job has no live endpoint.
var ErrNotActive = errors.New("no active endpoint for job")

// Mode selects how an endpoint invocation behaves.
type Mode string

const (
	// ModeExecute runs the scraper and returns the full result set.
	ModeExecute Mode = "execute"
	// ModeTest runs the scraper and returns a capped sample.
	ModeTest Mode = "test"
)

// Usage holds per-endpoint invocation statistics.
type Usage struct {
	Calls         int        `json:"calls"`
	Failures      int        `json:"failures"`
	LastInvokedAt *time.Time `json:"last_invoked_at,omitempty"`
	TotalRuntime  string     `json:"total_runtime"`

	totalRuntime time.Duration
}

// Info describes a live endpoint.
type Info struct {
	JobID       uuid.UUID `json:"job_id"`
	Path        string    `json:"path"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
	Strategy    string    `json:"strategy"`
	CodeVersion int       `json:"code_version"`
	ActivatedAt time.Time `json:"activated_at"`
	Usage       Usage     `json:"usage"`
}

// Invocation is the result of hitting a generated endpoint.
type Invocation struct {
	JobID     uuid.UUID      `json:"job_id"`
	Mode      Mode           `json:"mode"`
	Data      []any          `json:"data"`
	Metadata  map[string]any `json:"metadata"`
	Truncated bool           `json:"truncated,omitempty"`
	Duration  string         `json:"duration"`
}

type entry struct {
	activatedAt time.Time
	usage       Usage
}

// Executor runs scraper code in the sandbox.
type Executor interface {
	Exec(ctx context.Context, code, url string, flavor sandbox.Flavor) (*sandbox.Result, error)
}

// Registry maps ready jobs to live endpoints. Endpoint state lives in memory
// and is rebuilt from the store on startup; the scraper code itself always
// comes fresh from the store so regeneration takes effect immediately.
type Registry struct {
	store      store.Store
	runner     Executor
	sampleSize int

	mu      sync.Mutex
	entries map[uuid.UUID]*entry
}

func New(st store.Store, runner Executor, sampleSize int) *Registry {
	if sampleSize < 1 {
		sampleSize = 3
	}
	return &Registry{
		store:      st,
		runner:     runner,
		sampleSize: sampleSize,
		entries:    make(map[uuid.UUID]*entry),
	}
}

// Path returns the public path for a job's endpoint.
func Path(jobID uuid.UUID) string {
	return fmt.Sprintf("/generated/%s", jobID)
}

// Activate registers a live endpoint for jobID. Activating an already active
// endpoint keeps its usage statistics.
func (r *Registry) Activate(jobID uuid.UUID) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[jobID]; !ok {
		r.entries[jobID] = &entry{activatedAt: time.Now().UTC()}
		log.Printf("[REGISTRY] activated endpoint %s", Path(jobID))
	}
	return Path(jobID)
}

// Revoke removes the endpoint for jobID. Revoking an inactive endpoint is a
// no-op.
func (r *Registry) Revoke(jobID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[jobID]; ok {
		delete(r.entries, jobID)
		log.Printf("[REGISTRY] revoked endpoint %s", Path(jobID))
	}
}

// Restore re-registers endpoints for jobs already in ready state, called at
// startup so a restart does not drop live endpoints.
func (r *Registry) Restore(ctx context.Context) error {
	list, err := r.store.List(ctx, store.ListFilter{Status: types.StatusReady, Size: 100})
	if err != nil {
		return fmt.Errorf("restoring endpoints: %w", err)
	}
	for _, job := range list.Jobs {
		r.Activate(job.ID)
	}
	if len(list.Jobs) > 0 {
		log.Printf("[REGISTRY] restored %d endpoint(s)", len(list.Jobs))
	}
	return nil
}

// Invoke executes the scraper behind jobID's endpoint. ModeTest caps the
// returned data at the configured sample size.
func (r *Registry) Invoke(ctx context.Context, jobID uuid.UUID, mode Mode) (*Invocation, error) {
	r.mu.Lock()
	_, active := r.entries[jobID]
	r.mu.Unlock()
	if !active {
		return nil, ErrNotActive
	}

	job, err := r.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != types.StatusReady || job.ScraperCode == "" {
		return nil, ErrNotActive
	}

	flavor := sandbox.FlavorStatic
	if job.Strategy == "dynamic" {
		flavor = sandbox.FlavorDynamic
	}

	start := time.Now()
	result, err := r.runner.Exec(ctx, job.ScraperCode, job.URL, flavor)
	r.record(jobID, time.Since(start), err == nil)
	if err != nil {
		return nil, err
	}

	inv := &Invocation{
		JobID:    jobID,
		Mode:     mode,
		Data:     result.Data,
		Metadata: result.Metadata,
		Duration: result.Duration.Round(time.Millisecond).String(),
	}
	if mode == ModeTest && len(inv.Data) > r.sampleSize {
		inv.Data = inv.Data[:r.sampleSize]
		inv.Truncated = true
	}
	return inv, nil
}

// Info reports metadata and usage statistics for a live endpoint.
func (r *Registry) Info(ctx context.Context, jobID uuid.UUID) (*Info, error) {
	r.mu.Lock()
	e, active := r.entries[jobID]
	var snapshot entry
	if active {
		snapshot = *e
	}
	r.mu.Unlock()
	if !active {
		return nil, ErrNotActive
	}

	job, err := r.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}

	usage := snapshot.usage
	usage.TotalRuntime = usage.totalRuntime.Round(time.Millisecond).String()
	return &Info{
		JobID:       jobID,
		Path:        Path(jobID),
		URL:         job.URL,
		Description: job.Description,
		Strategy:    job.Strategy,
		CodeVersion: job.CodeVersion,
		ActivatedAt: snapshot.activatedAt,
		Usage:       usage,
	}, nil
}

func (r *Registry) record(jobID uuid.UUID, elapsed time.Duration, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, active := r.entries[jobID]
	if !active {
		return
	}
	e.usage.Calls++
	if !ok {
		e.usage.Failures++
	}
	now := time.Now().UTC()
	e.usage.LastInvokedAt = &now
	e.usage.totalRuntime += elapsed
}
