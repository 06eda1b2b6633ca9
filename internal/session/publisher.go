package session

import (
	"sort"
	"sync"

	"github.com/rapid100/triage/internal/types"
)

// Observer receives ordered call record snapshots. Delivery is synchronous;
// slow observers backpressure the publisher, not each other's ordering.
type Observer func(types.CallSnapshot)

// publisher fans snapshots out to a call's observers in non-decreasing
// revision order. Ordering is enforced here rather than assumed from the
// pipeline, because concurrent stages can complete out of order.
type publisher struct {
	mu           sync.Mutex
	lastRevision uint64
	nextID       int
	observers    map[int]Observer
}

func newPublisher() *publisher {
	return &publisher{observers: make(map[int]Observer)}
}

// subscribe registers an observer and returns its unsubscribe function.
func (p *publisher) subscribe(o Observer) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.observers[id] = o
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.observers, id)
		p.mu.Unlock()
	}
}

// publish delivers the snapshot to every observer unless an equal-or-newer
// revision was already delivered. All observers see the same sequence.
func (p *publisher) publish(snap types.CallSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if snap.Revision < p.lastRevision {
		return
	}
	p.lastRevision = snap.Revision

	ids := make([]int, 0, len(p.observers))
	for id := range p.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		p.observers[id](snap)
	}
}
