package audio

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrOutOfOrder is returned for a fragment whose sequence number is not
	// exactly one past the last accepted fragment. Gaps are not reassembled.
	ErrOutOfOrder = errors.New("audio fragment out of order")
	// ErrTooLarge is returned once the buffered audio exceeds the configured
	// maximum duration. The call should be finalized.
	ErrTooLarge = errors.New("audio buffer exceeds maximum duration")
	// ErrStreamClosed is returned for fragments arriving after Close.
	ErrStreamClosed = errors.New("audio stream closed")
)

// Fragment is one ordered piece of a call's audio stream.
type Fragment struct {
	Sequence   uint64
	Data       []byte
	ReceivedAt time.Time
	InputLevel float64
}

// Snapshot is the concatenation of all accepted fragments up to a point.
// It is immutable once taken; a newer snapshot supersedes, never mutates,
// a prior one.
type Snapshot struct {
	Version  uint64
	Data     []byte
	Duration time.Duration
}

// Buffer accumulates the ordered audio fragments of a single call and
// tracks the snapshot version stamped onto annotation results.
type Buffer struct {
	mu          sync.Mutex
	fragments   [][]byte
	lastSeq     uint64
	version     uint64
	fragmentDur time.Duration
	maxFrags    int
	totalBytes  int
	closed      bool
}

// NewBuffer sizes a buffer from the nominal per-fragment duration and the
// maximum cumulative call duration.
func NewBuffer(fragmentDur, maxDuration time.Duration) *Buffer {
	maxFrags := int(maxDuration / fragmentDur)
	if maxFrags < 1 {
		maxFrags = 1
	}
	return &Buffer{
		fragmentDur: fragmentDur,
		maxFrags:    maxFrags,
	}
}

// Accept appends a fragment, enforcing strict sequence ordering and the
// duration cap. Each successful accept advances the snapshot version.
func (b *Buffer) Accept(f Fragment) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrStreamClosed
	}
	if f.Sequence != b.lastSeq+1 {
		return ErrOutOfOrder
	}
	if len(b.fragments) >= b.maxFrags {
		return ErrTooLarge
	}

	data := make([]byte, len(f.Data))
	copy(data, f.Data)
	b.fragments = append(b.fragments, data)
	b.totalBytes += len(data)
	b.lastSeq = f.Sequence
	b.version++
	return nil
}

// Snapshot returns an immutable copy of the currently decodable audio.
func (b *Buffer) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	data := make([]byte, 0, b.totalBytes)
	for _, frag := range b.fragments {
		data = append(data, frag...)
	}
	return Snapshot{
		Version:  b.version,
		Data:     data,
		Duration: time.Duration(len(b.fragments)) * b.fragmentDur,
	}
}

// Version returns the current snapshot version without copying audio.
func (b *Buffer) Version() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.version
}

// Close rejects all further fragments. Snapshots remain readable so an
// in-flight pipeline run can finish against the final audio.
func (b *Buffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}

// ClampLevel bounds a client-reported input level to [0,1].
func ClampLevel(level float64) float64 {
	if level < 0 {
		return 0
	}
	if level > 1 {
		return 1
	}
	return level
}
