package session

import (
	"context"
	"sync"
	"time"

	"github.com/rapid100/triage/internal/annotate"
	"github.com/rapid100/triage/internal/audio"
	"github.com/rapid100/triage/internal/types"
)

// Session owns all mutable state for one call: the audio ingest buffer, the
// call record, and the coalescing pipeline state. Nothing here is shared
// across calls.
type Session struct {
	callID string
	chain  *annotate.Chain
	buffer *audio.Buffer
	pub    *publisher

	mu      sync.Mutex
	record  *types.CallRecord
	running bool
	dirty   bool
	closed  bool
	lastRun uint64

	idleTimer *time.Timer
	idle      time.Duration
}

func newSession(callID string, cfg types.CallConfig, chain *annotate.Chain,
	fragmentDur, maxDuration, idle time.Duration, onIdle func()) *Session {

	s := &Session{
		callID: callID,
		chain:  chain,
		buffer: audio.NewBuffer(fragmentDur, maxDuration),
		pub:    newPublisher(),
		record: types.NewCallRecord(callID, cfg),
		idle:   idle,
	}
	if idle > 0 && onIdle != nil {
		s.idleTimer = time.AfterFunc(idle, onIdle)
	}
	return s
}

// CallID returns the session's call identifier.
func (s *Session) CallID() string {
	return s.callID
}

// Configure replaces the stream configuration without resetting the
// pipeline; the next run picks it up.
func (s *Session) Configure(cfg types.CallConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.record.Config = cfg
}

// Subscribe registers an observer for this call's snapshot stream and
// returns its unsubscribe function.
func (s *Session) Subscribe(o Observer) func() {
	return s.pub.subscribe(o)
}

// AcceptAudio appends a fragment and triggers the pipeline. Errors from the
// buffer (out of order, too large, closed) pass through to the caller; on
// ErrTooLarge the caller is expected to finalize the call.
func (s *Session) AcceptAudio(f audio.Fragment) error {
	f.InputLevel = audio.ClampLevel(f.InputLevel)
	if err := s.buffer.Accept(f); err != nil {
		return err
	}
	if s.idleTimer != nil {
		s.idleTimer.Reset(s.idle)
	}
	s.trigger()
	return nil
}

// trigger implements the coalescing scheduler: at most one annotation run
// per call at a time, with repeated triggers folded into a single pending
// re-run against the latest snapshot.
func (s *Session) trigger() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.running {
		s.dirty = true
		return
	}
	s.running = true
	go s.runLoop()
}

func (s *Session) runLoop() {
	for {
		snap := s.buffer.Snapshot()

		s.mu.Lock()
		cfg := s.record.Config
		s.lastRun = snap.Version
		s.mu.Unlock()

		// In-flight runs outlive Close on purpose: annotation services are
		// opaque remote calls with no cancellation primitive. Their results
		// are discarded at merge time instead.
		s.chain.Run(context.Background(), snap.Data, snap.Version, cfg, s.mergeStage, s.mergeRouting)

		s.mu.Lock()
		if s.dirty && !s.closed {
			s.dirty = false
			s.mu.Unlock()
			continue
		}
		s.running = false
		s.mu.Unlock()
		return
	}
}

func (s *Session) mergeStage(res types.StageResult) {
	s.mu.Lock()
	if s.closed || !s.record.Merge(res) {
		s.mu.Unlock()
		return
	}
	snap := s.record.Snapshot()
	s.mu.Unlock()
	s.pub.publish(snap)
}

func (s *Session) mergeRouting(d types.RoutingDecision, version uint64) {
	s.mu.Lock()
	if s.closed || !s.record.SetRouting(d, version) {
		s.mu.Unlock()
		return
	}
	snap := s.record.Snapshot()
	s.mu.Unlock()
	s.pub.publish(snap)
}

// finalize performs the one-way OPEN -> FINALIZED transition and publishes
// the final snapshot. Safe to call more than once.
func (s *Session) finalize() types.CallSnapshot {
	s.mu.Lock()
	if s.record.Status != types.StatusFinalized {
		s.closed = true
		s.buffer.Close()
		if s.idleTimer != nil {
			s.idleTimer.Stop()
		}
		now := time.Now().UTC()
		s.record.Status = types.StatusFinalized
		s.record.FinalizedAt = now
		s.record.UpdatedAt = now
		s.record.Revision++
	}
	snap := s.record.Snapshot()
	s.mu.Unlock()

	s.pub.publish(snap)
	return snap
}

// Audio returns the call's accumulated raw audio, for recording at finalize.
func (s *Session) Audio() []byte {
	return s.buffer.Snapshot().Data
}
