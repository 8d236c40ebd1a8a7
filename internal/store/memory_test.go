package store

import (
	"context"
	"testing"
	"time"

	"github.com/SameerVers3/Scrapply/internal/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_CreateAndGet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	job := types.NewJob("https://example.com", "titles")
	require.NoError(t, m.Create(ctx, job))

	got, err := m.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, types.StatusPending, got.Status)

	// Mutating the returned copy must not leak back into the store.
	got.Status = types.StatusFailed
	again, err := m.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusPending, again.Status)
}

func TestMemory_Get_NotFound(t *testing.T) {
	m := NewMemory()
	_, err := m.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_Update_PartialFields(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	job := types.NewJob("https://example.com", "titles")
	require.NoError(t, m.Create(ctx, job))

	status := types.StatusAnalyzing
	progress := 20
	message := "Analyzing website structure"
	updated, err := m.Update(ctx, job.ID, types.JobUpdate{
		Status:   &status,
		Progress: &progress,
		Message:  &message,
	})
	require.NoError(t, err)
	assert.Equal(t, types.StatusAnalyzing, updated.Status)
	assert.Equal(t, 20, updated.Progress)
	// Fields the update did not name stay as they were.
	assert.Equal(t, "https://example.com", updated.URL)
	assert.Equal(t, 0, updated.CodeVersion)

	code := "def scrape_data(url): ..."
	version := 1
	updated, err = m.Update(ctx, job.ID, types.JobUpdate{ScraperCode: &code, CodeVersion: &version})
	require.NoError(t, err)
	assert.Equal(t, code, updated.ScraperCode)
	assert.Equal(t, 1, updated.CodeVersion)
	// Status from the previous update survives.
	assert.Equal(t, types.StatusAnalyzing, updated.Status)
}

func TestMemory_Update_ClearErrorInfo(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	job := types.NewJob("https://example.com", "titles")
	job.ErrorInfo = &types.ErrorInfo{Kind: types.ErrKindInternal, Message: "boom"}
	require.NoError(t, m.Create(ctx, job))

	updated, err := m.Update(ctx, job.ID, types.JobUpdate{ClearErrorInfo: true})
	require.NoError(t, err)
	assert.Nil(t, updated.ErrorInfo)
}

func TestMemory_Update_NotFound(t *testing.T) {
	m := NewMemory()
	_, err := m.Update(context.Background(), uuid.New(), types.JobUpdate{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_List_FilterAndPagination(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		job := types.NewJob("https://example.com", "titles")
		job.CreatedAt = base.Add(time.Duration(i) * time.Second)
		if i%2 == 0 {
			job.Status = types.StatusReady
		}
		require.NoError(t, m.Create(ctx, job))
	}

	all, err := m.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 5, all.Total)
	assert.Len(t, all.Jobs, 5)
	// Newest first.
	assert.True(t, all.Jobs[0].CreatedAt.After(all.Jobs[4].CreatedAt))

	ready, err := m.List(ctx, ListFilter{Status: types.StatusReady})
	require.NoError(t, err)
	assert.Equal(t, 3, ready.Total)

	page, err := m.List(ctx, ListFilter{Page: 2, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Len(t, page.Jobs, 2)
	assert.Equal(t, 2, page.Page)

	empty, err := m.List(ctx, ListFilter{Page: 10, Size: 2})
	require.NoError(t, err)
	assert.Empty(t, empty.Jobs)
	assert.Equal(t, 5, empty.Total)
}

func TestMemory_Delete(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	job := types.NewJob("https://example.com", "titles")
	require.NoError(t, m.Create(ctx, job))
	require.NoError(t, m.Delete(ctx, job.ID))

	_, err := m.Get(ctx, job.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, m.Delete(ctx, job.ID), ErrNotFound)
}
