package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobStatus_Valid(t *testing.T) {
	for _, s := range []JobStatus{StatusPending, StatusAnalyzing, StatusGenerating, StatusTesting, StatusReady, StatusFailed} {
		assert.True(t, s.Valid(), "expected %q to be valid", s)
	}
	assert.False(t, JobStatus("queued").Valid())
	assert.False(t, JobStatus("").Valid())
}

func TestJobStatus_Terminal(t *testing.T) {
	assert.True(t, StatusReady.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusTesting.Terminal())
}

func TestJobStatus_CanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    JobStatus
		to      JobStatus
		allowed bool
	}{
		{"pending to analyzing", StatusPending, StatusAnalyzing, true},
		{"analyzing to generating", StatusAnalyzing, StatusGenerating, true},
		{"generating to testing", StatusGenerating, StatusTesting, true},
		{"testing to ready", StatusTesting, StatusReady, true},
		{"testing back to generating", StatusTesting, StatusGenerating, true},
		{"any stage to failed", StatusAnalyzing, StatusFailed, true},
		{"failed to pending retry", StatusFailed, StatusPending, true},
		{"skip a stage", StatusPending, StatusGenerating, false},
		{"backwards", StatusGenerating, StatusAnalyzing, false},
		{"ready is terminal", StatusReady, StatusPending, false},
		{"ready to failed", StatusReady, StatusFailed, false},
		{"failed to analyzing", StatusFailed, StatusAnalyzing, false},
		{"invalid status", JobStatus("bogus"), StatusFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to))
		})
	}
}

func TestNewJob(t *testing.T) {
	job := NewJob("https://example.com/products", "all product names and prices")

	assert.NotEqual(t, job.ID.String(), "00000000-0000-0000-0000-000000000000")
	assert.Equal(t, StatusPending, job.Status)
	assert.Equal(t, 0, job.Progress)
	assert.NotEmpty(t, job.Message)
	assert.False(t, job.CreatedAt.IsZero())
	assert.Nil(t, job.CompletedAt)
}

func TestJob_Clone_IsIndependent(t *testing.T) {
	job := NewJob("https://example.com", "titles")
	job.Analysis = &Analysis{SiteType: "listing", Confidence: 0.8}
	job.SampleData = []any{"a", "b"}
	job.ErrorInfo = &ErrorInfo{Kind: ErrKindInternal, Message: "boom"}

	clone := job.Clone()
	clone.Analysis.SiteType = "article"
	clone.SampleData[0] = "changed"
	clone.ErrorInfo.Message = "other"

	assert.Equal(t, "listing", job.Analysis.SiteType)
	assert.Equal(t, "a", job.SampleData[0])
	assert.Equal(t, "boom", job.ErrorInfo.Message)
}

func TestCreateJobRequest_Validate(t *testing.T) {
	valid := &CreateJobRequest{URL: "https://example.com/items", Description: "item titles and prices"}
	require.NoError(t, valid.Validate())

	missing := &CreateJobRequest{Description: "something"}
	assert.Error(t, missing.Validate())

	badURL := &CreateJobRequest{URL: "not a url", Description: "something"}
	assert.Error(t, badURL.Validate())

	shortDesc := &CreateJobRequest{URL: "https://example.com", Description: "ab"}
	assert.Error(t, shortDesc.Validate())
}
