package session

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/rapid100/triage/internal/annotate"
	"github.com/rapid100/triage/internal/audio"
	"github.com/rapid100/triage/internal/types"
)

var (
	// ErrDuplicateCall is returned for a second open of a live (or already
	// finalized) call id; the caller must use a new id.
	ErrDuplicateCall = errors.New("call id already in use")
	// ErrUnknownCall is returned for events addressed to a call that was
	// never opened.
	ErrUnknownCall = errors.New("unknown call id")
	// ErrTooManyCalls is returned when opening would exceed the configured
	// concurrent-call capacity.
	ErrTooManyCalls = errors.New("maximum concurrent calls reached")
)

// Event is a transport-agnostic per-call event routed by Dispatch.
type Event interface{ sessionEvent() }

// ConfigEvent updates the call's stream configuration.
type ConfigEvent struct{ Config types.CallConfig }

// AudioEvent carries one ordered audio fragment.
type AudioEvent struct{ Fragment audio.Fragment }

func (ConfigEvent) sessionEvent() {}
func (AudioEvent) sessionEvent()  {}

// Config parameterizes the session manager.
type Config struct {
	Chain            *annotate.Chain
	MaxConcurrent    int
	IdleTimeout      time.Duration
	FragmentDuration time.Duration
	MaxCallDuration  time.Duration
	// OnFinalize receives every finalized record with its audio for
	// persistence. Failures are the callback's problem: finalize never
	// fails on storage errors.
	OnFinalize func(types.CallSnapshot, []byte)
}

// Manager maps call ids to live sessions, enforcing at most one open
// session per id and the process-wide capacity limit. It is the only
// cross-call shared state in the system.
type Manager struct {
	cfg Config

	mu        sync.Mutex
	sessions  map[string]*Session
	finalized map[string]types.CallSnapshot
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 64
	}
	if cfg.FragmentDuration <= 0 {
		cfg.FragmentDuration = 500 * time.Millisecond
	}
	if cfg.MaxCallDuration <= 0 {
		cfg.MaxCallDuration = 10 * time.Minute
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
	return &Manager{
		cfg:       cfg,
		sessions:  make(map[string]*Session),
		finalized: make(map[string]types.CallSnapshot),
	}
}

// Open creates the session for a new call. A second open for an in-flight
// or finalized call id fails rather than silently replacing the first.
func (m *Manager) Open(callID string, cfg types.CallConfig) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, live := m.sessions[callID]; live {
		return nil, ErrDuplicateCall
	}
	if _, done := m.finalized[callID]; done {
		return nil, ErrDuplicateCall
	}
	if len(m.sessions) >= m.cfg.MaxConcurrent {
		return nil, ErrTooManyCalls
	}

	s := newSession(callID, cfg, m.cfg.Chain,
		m.cfg.FragmentDuration, m.cfg.MaxCallDuration, m.cfg.IdleTimeout,
		func() {
			log.Printf("session: call %s idle timeout, finalizing", callID)
			if _, err := m.Close(callID); err != nil {
				log.Printf("session: idle close of call %s: %v", callID, err)
			}
		})
	m.sessions[callID] = s
	log.Printf("session: call %s opened (%d live)", callID, len(m.sessions))
	return s, nil
}

// Dispatch routes an event to the matching live session.
func (m *Manager) Dispatch(callID string, ev Event) error {
	m.mu.Lock()
	s, ok := m.sessions[callID]
	m.mu.Unlock()
	if !ok {
		return ErrUnknownCall
	}

	switch e := ev.(type) {
	case ConfigEvent:
		s.Configure(e.Config)
		return nil
	case AudioEvent:
		return s.AcceptAudio(e.Fragment)
	default:
		return ErrUnknownCall
	}
}

// Close finalizes a call and hands the record to persistence. Closing an
// already-closed call returns the cached finalized record with no side
// effects; closing a call that was never opened fails.
func (m *Manager) Close(callID string) (types.CallSnapshot, error) {
	m.mu.Lock()
	if snap, done := m.finalized[callID]; done {
		m.mu.Unlock()
		return snap, nil
	}
	s, ok := m.sessions[callID]
	if !ok {
		m.mu.Unlock()
		return types.CallSnapshot{}, ErrUnknownCall
	}
	delete(m.sessions, callID)
	m.mu.Unlock()

	snap := s.finalize()

	m.mu.Lock()
	m.finalized[callID] = snap
	live := len(m.sessions)
	m.mu.Unlock()
	log.Printf("session: call %s finalized (%d live)", callID, live)

	if m.cfg.OnFinalize != nil {
		m.cfg.OnFinalize(snap, s.Audio())
	}
	return snap, nil
}

// Live reports the number of open sessions.
func (m *Manager) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
