// Package events fans job status updates out to SSE subscribers.
package events

import (
	"log"
	"sync"

	"github.com/SameerVers3/Scrapply/internal/types"
	"github.com/google/uuid"
)

const subscriberBuffer = 16

// Manager tracks subscribers per job. Publish never blocks: a subscriber
// whose buffer is full misses the update and catches up on the next one.
type Manager struct {
	mu   sync.Mutex
	subs map[uuid.UUID]map[chan *types.Job]struct{}
}

func NewManager() *Manager {
	return &Manager{subs: make(map[uuid.UUID]map[chan *types.Job]struct{})}
}

// Subscribe registers interest in updates for jobID. The returned cancel
// function must be called when the subscriber is done; it closes the channel.
func (m *Manager) Subscribe(jobID uuid.UUID) (<-chan *types.Job, func()) {
	ch := make(chan *types.Job, subscriberBuffer)

	m.mu.Lock()
	if m.subs[jobID] == nil {
		m.subs[jobID] = make(map[chan *types.Job]struct{})
	}
	m.subs[jobID][ch] = struct{}{}
	m.mu.Unlock()

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		set, ok := m.subs[jobID]
		if !ok {
			return
		}
		if _, ok := set[ch]; !ok {
			return
		}
		delete(set, ch)
		if len(set) == 0 {
			delete(m.subs, jobID)
		}
		close(ch)
	}
	return ch, cancel
}

// Publish delivers a job snapshot to every subscriber of the job. When the
// job has reached a terminal status the channels stay open; subscribers see
// the terminal update and cancel themselves.
func (m *Manager) Publish(job *types.Job) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.subs[job.ID]
	if !ok {
		return
	}
	for ch := range set {
		select {
		case ch <- job.Clone():
		default:
			log.Printf("[EVENTS] dropping update for slow subscriber of job %s", job.ID)
		}
	}
}

// SubscriberCount reports how many channels are listening for jobID.
func (m *Manager) SubscriberCount(jobID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs[jobID])
}
