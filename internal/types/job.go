// Package types provides type definitions for structured data used throughout the Scrapply system.
package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of a scraping job.
type JobStatus string

// Job lifecycle states. A job moves from pending through analyzing, generating
// and testing, then terminates in ready or failed. The only backward edge is
// the explicit user-triggered retry, which returns a failed job to pending.
const (
	StatusPending    JobStatus = "pending"
	StatusAnalyzing  JobStatus = "analyzing"
	StatusGenerating JobStatus = "generating"
	StatusTesting    JobStatus = "testing"
	StatusReady      JobStatus = "ready"
	StatusFailed     JobStatus = "failed"
)

// Valid reports whether s is a known job status.
func (s JobStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAnalyzing, StatusGenerating, StatusTesting, StatusReady, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether s ends a processing attempt.
func (s JobStatus) Terminal() bool {
	return s == StatusReady || s == StatusFailed
}

// rank orders statuses along the success path for transition checks.
// Terminal states share the highest rank since either can close an attempt.
func (s JobStatus) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusAnalyzing:
		return 1
	case StatusGenerating:
		return 2
	case StatusTesting:
		return 3
	case StatusReady, StatusFailed:
		return 4
	}
	return -1
}

// CanTransition reports whether moving from s to next follows a legal edge.
// Legal edges: one step forward, any stage to failed, testing to generating
// (refinement detour), and failed to pending (user retry).
func (s JobStatus) CanTransition(next JobStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if s == StatusFailed && next == StatusPending {
		return true
	}
	if s.Terminal() {
		return false
	}
	if next == StatusFailed {
		return true
	}
	if s == StatusTesting && next == StatusGenerating {
		return true
	}
	return next.rank() == s.rank()+1
}

// Pagination describes how a site exposes additional result pages.
type Pagination struct {
	Present  bool   `json:"present"`
	Strategy string `json:"strategy,omitempty"`
}

// Analysis is the structured output of the analysis engine for a target URL.
type Analysis struct {
	SiteType       string            `json:"site_type"`
	Selectors      map[string]string `json:"selectors"`
	Pagination     Pagination        `json:"pagination"`
	Schema         map[string]string `json:"schema"`
	Challenges     []string          `json:"challenges,omitempty"`
	Confidence     float64           `json:"confidence"`
	Approach       string            `json:"recommended_approach,omitempty"`
	DynamicSignals []string          `json:"dynamic_signals,omitempty"`
}

// ErrorInfo is the machine-readable failure payload persisted on a failed job.
type ErrorInfo struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// Job is the central entity: one end-to-end request to turn a URL plus a
// natural-language description into a working scraper and generated endpoint.
type Job struct {
	ID          uuid.UUID `json:"id"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
	Status      JobStatus `json:"status"`
	Progress    int       `json:"progress"`
	Message     string    `json:"message"`

	Analysis    *Analysis `json:"analysis,omitempty"`
	ScraperCode string    `json:"scraper_code,omitempty"`
	CodeVersion int       `json:"code_version,omitempty"`
	Strategy    string    `json:"strategy,omitempty"`

	SampleData      []any      `json:"sample_data,omitempty"`
	ErrorInfo       *ErrorInfo `json:"error_info,omitempty"`
	APIEndpointPath string     `json:"api_endpoint_path,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewJob creates a pending job for the given inputs.
func NewJob(url, description string) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:          uuid.New(),
		URL:         url,
		Description: description,
		Status:      StatusPending,
		Progress:    0,
		Message:     "Job created, waiting to start processing",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Clone returns a deep-enough copy for handing to concurrent readers.
func (j *Job) Clone() *Job {
	c := *j
	if j.Analysis != nil {
		a := *j.Analysis
		c.Analysis = &a
	}
	if j.ErrorInfo != nil {
		e := *j.ErrorInfo
		c.ErrorInfo = &e
	}
	if j.SampleData != nil {
		c.SampleData = append([]any(nil), j.SampleData...)
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// CreateJobRequest is the body of POST /jobs.
type CreateJobRequest struct {
	URL         string `json:"url" validate:"required,url"`
	Description string `json:"description" validate:"required,min=3"`
}

// Validate validates the CreateJobRequest using the validator.
func (r *CreateJobRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// JobList is a paginated list response.
type JobList struct {
	Jobs  []*Job `json:"jobs"`
	Total int    `json:"total"`
	Page  int    `json:"page"`
	Size  int    `json:"size"`
}

// JobUpdate carries one full status transition. Nil pointer fields are left
// unchanged by the store; a transition always carries status, progress and
// message together so readers never observe a half-updated record.
type JobUpdate struct {
	Status   *JobStatus
	Progress *int
	Message  *string

	Analysis        *Analysis
	ScraperCode     *string
	CodeVersion     *int
	Strategy        *string
	SampleData      []any
	ErrorInfo       *ErrorInfo
	ClearErrorInfo  bool
	APIEndpointPath *string
	CompletedAt     *time.Time
}
