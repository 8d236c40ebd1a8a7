package events

import (
	"testing"

	"github.com/SameerVers3/Scrapply/internal/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_PublishReachesSubscriber(t *testing.T) {
	m := NewManager()
	job := types.NewJob("https://example.com", "titles")

	ch, cancel := m.Subscribe(job.ID)
	defer cancel()

	job.Status = types.StatusAnalyzing
	m.Publish(job)

	got := <-ch
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, types.StatusAnalyzing, got.Status)
}

func TestManager_PublishDeliversCopies(t *testing.T) {
	m := NewManager()
	job := types.NewJob("https://example.com", "titles")

	ch, cancel := m.Subscribe(job.ID)
	defer cancel()

	m.Publish(job)
	got := <-ch
	got.Status = types.StatusFailed

	assert.Equal(t, types.StatusPending, job.Status)
}

func TestManager_MultipleSubscribers(t *testing.T) {
	m := NewManager()
	job := types.NewJob("https://example.com", "titles")

	ch1, cancel1 := m.Subscribe(job.ID)
	defer cancel1()
	ch2, cancel2 := m.Subscribe(job.ID)
	defer cancel2()

	require.Equal(t, 2, m.SubscriberCount(job.ID))

	m.Publish(job)
	assert.Equal(t, job.ID, (<-ch1).ID)
	assert.Equal(t, job.ID, (<-ch2).ID)
}

func TestManager_PublishToOtherJobNotDelivered(t *testing.T) {
	m := NewManager()
	job := types.NewJob("https://example.com", "titles")
	other := types.NewJob("https://other.example.com", "prices")

	ch, cancel := m.Subscribe(job.ID)
	defer cancel()

	m.Publish(other)
	select {
	case got := <-ch:
		t.Fatalf("unexpected delivery: %v", got.ID)
	default:
	}
}

func TestManager_CancelClosesChannel(t *testing.T) {
	m := NewManager()
	id := uuid.New()

	ch, cancel := m.Subscribe(id)
	cancel()

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, m.SubscriberCount(id))

	// Cancel is idempotent.
	cancel()
}

func TestManager_SlowSubscriberDropsUpdates(t *testing.T) {
	m := NewManager()
	job := types.NewJob("https://example.com", "titles")

	ch, cancel := m.Subscribe(job.ID)
	defer cancel()

	// Overflow the buffer; Publish must never block.
	for i := 0; i < subscriberBuffer+10; i++ {
		m.Publish(job)
	}
	assert.Len(t, ch, subscriberBuffer)
}
