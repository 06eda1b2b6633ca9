package annotate

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/rapid100/triage/internal/audio"
	"github.com/rapid100/triage/internal/types"
)

// TranscriberConfig selects and parameterizes the transcription backend.
type TranscriberConfig struct {
	Provider string
	APIKey   string
	Model    string
}

// NewTranscriber creates the configured transcription adapter.
func NewTranscriber(cfg TranscriberConfig) (Transcriber, error) {
	switch cfg.Provider {
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai transcriber requires an API key")
		}
		model := cfg.Model
		if model == "" {
			model = openai.Whisper1
		}
		return &openAITranscriber{
			client: openai.NewClient(cfg.APIKey),
			model:  model,
		}, nil
	case "canned", "":
		return NewCannedTranscriber(), nil
	default:
		return nil, fmt.Errorf("unsupported transcription provider: %s", cfg.Provider)
	}
}

// openAITranscriber sends call audio to the OpenAI Whisper API.
type openAITranscriber struct {
	client *openai.Client
	model  string
}

func (t *openAITranscriber) Transcribe(ctx context.Context, pcm []byte, cfg types.CallConfig) (string, float64, error) {
	if len(pcm) == 0 {
		return "", 0, nil
	}

	req := openai.AudioRequest{
		Model:    t.model,
		Reader:   bytes.NewReader(audio.WrapWAV(pcm)),
		FilePath: "call.wav",
		Language: cfg.Language,
	}

	resp, err := t.client.CreateTranscription(ctx, req)
	if err != nil {
		return "", 0, fmt.Errorf("openai transcription: %w", err)
	}
	// The API reports no confidence; treat a successful transcription as
	// strong but not certain.
	return resp.Text, 0.9, nil
}

// CannedTranscriber rotates through fixed emergency transcripts. It backs
// development and the scenario tooling when no transcription service is
// reachable.
type CannedTranscriber struct {
	mu    sync.Mutex
	idx   int
	lines []string
}

func NewCannedTranscriber() *CannedTranscriber {
	return &CannedTranscriber{
		lines: []string{
			"Help! My wife is unconscious and not breathing. She collapsed suddenly.",
			"There's a fire at my house! Smoke is everywhere, flames coming from the kitchen.",
			"Someone is breaking into my house! I hear glass breaking and footsteps.",
			"Car accident on Highway 101 near Exit 15. Multiple cars involved, people injured.",
			"Tornado warning! Severe weather approaching downtown. Taking shelter in basement.",
		},
	}
}

func (t *CannedTranscriber) Transcribe(ctx context.Context, pcm []byte, cfg types.CallConfig) (string, float64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	if len(pcm) == 0 {
		return "", 0, nil
	}
	t.mu.Lock()
	line := t.lines[t.idx%len(t.lines)]
	t.idx++
	t.mu.Unlock()
	return line, 0.9, nil
}
