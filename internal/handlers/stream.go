package handlers

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/rapid100/triage/internal/audio"
	"github.com/rapid100/triage/internal/session"
	"github.com/rapid100/triage/internal/types"
)

// StreamHandler serves the per-call websocket: config frame first, ordered
// audio_chunk frames after, full call snapshots pushed back. Connection
// close is the implicit stream-end.
type StreamHandler struct {
	manager *session.Manager
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(manager *session.Manager) *StreamHandler {
	return &StreamHandler{manager: manager}
}

type clientFrame struct {
	Type string `json:"type"`

	// config
	Language       string `json:"language,omitempty"`
	NoiseFiltering bool   `json:"noise_filtering,omitempty"`

	// audio_chunk
	Sequence   uint64    `json:"sequence,omitempty"`
	Data       []byte    `json:"data,omitempty"`
	Timestamp  time.Time `json:"timestamp,omitempty"`
	InputLevel float64   `json:"input_level,omitempty"`
}

type updateFrame struct {
	Type string `json:"type"`
	types.CallSnapshot
}

type errorFrame struct {
	Type  string `json:"type"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

// Handle processes one call connection for its whole lifetime.
func (h *StreamHandler) Handle(c *websocket.Conn) {
	defer c.Close()

	callID := c.Params("call_id")
	if callID == "" {
		callID = uuid.New().String()
	}

	// Snapshot pushes and error frames come from different goroutines.
	var writeMu sync.Mutex
	send := func(v interface{}) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := c.WriteJSON(v); err != nil {
			log.Printf("stream: write to call %s failed: %v", callID, err)
		}
	}
	sendErr := func(code, msg string) {
		send(errorFrame{Type: "error", Code: code, Error: msg})
	}

	log.Printf("stream: call %s connected", callID)

	configured := false
	var unsub func()

	for {
		var frame clientFrame
		if err := c.ReadJSON(&frame); err != nil {
			break
		}

		switch frame.Type {
		case "config":
			cfg := types.CallConfig{Language: frame.Language, NoiseFiltering: frame.NoiseFiltering}
			if cfg.Language == "" {
				cfg.Language = c.Query("language", "en")
			}
			if configured {
				// Re-sent config updates the session without resetting the
				// pipeline.
				if err := h.manager.Dispatch(callID, session.ConfigEvent{Config: cfg}); err != nil {
					sendErr(codeFor(err), err.Error())
				}
				continue
			}
			sess, err := h.manager.Open(callID, cfg)
			if err != nil {
				sendErr(codeFor(err), err.Error())
				return
			}
			configured = true
			unsub = sess.Subscribe(func(snap types.CallSnapshot) {
				send(updateFrame{Type: "call_update", CallSnapshot: snap})
			})

		case "audio_chunk":
			if !configured {
				sendErr("NOT_CONFIGURED", "config frame must precede audio")
				continue
			}
			err := h.manager.Dispatch(callID, session.AudioEvent{Fragment: audio.Fragment{
				Sequence:   frame.Sequence,
				Data:       frame.Data,
				ReceivedAt: time.Now(),
				InputLevel: frame.InputLevel,
			}})
			switch {
			case err == nil:
			case errors.Is(err, audio.ErrOutOfOrder):
				sendErr(codeFor(err), err.Error())
			case errors.Is(err, audio.ErrTooLarge):
				// Buffer limit reached: report it and finalize the call.
				sendErr(codeFor(err), err.Error())
				h.finish(callID, configured, unsub)
				return
			default:
				sendErr(codeFor(err), err.Error())
				h.finish(callID, configured, unsub)
				return
			}

		case "ping":
			send(map[string]string{"type": "pong"})

		default:
			sendErr("UNKNOWN_FRAME", "unknown frame type")
		}
	}

	h.finish(callID, configured, unsub)
}

// finish finalizes the call; the final snapshot reaches the observer before
// it is unsubscribed.
func (h *StreamHandler) finish(callID string, configured bool, unsub func()) {
	if configured {
		if _, err := h.manager.Close(callID); err != nil {
			log.Printf("stream: close of call %s: %v", callID, err)
		}
	}
	if unsub != nil {
		unsub()
	}
	log.Printf("stream: call %s disconnected", callID)
}

// codeFor maps session and buffer errors onto wire error codes.
func codeFor(err error) string {
	switch {
	case errors.Is(err, session.ErrDuplicateCall):
		return "DUPLICATE_CALL"
	case errors.Is(err, session.ErrUnknownCall):
		return "UNKNOWN_CALL"
	case errors.Is(err, session.ErrTooManyCalls):
		return "TOO_MANY_CALLS"
	case errors.Is(err, audio.ErrOutOfOrder):
		return "OUT_OF_ORDER_FRAGMENT"
	case errors.Is(err, audio.ErrTooLarge):
		return "TOO_LARGE_AUDIO"
	case errors.Is(err, audio.ErrStreamClosed):
		return "STREAM_CLOSED"
	default:
		return "INTERNAL"
	}
}
