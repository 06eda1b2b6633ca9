package annotate

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/rapid100/triage/internal/types"
)

// Sentinel values substituted when a stage errors or times out. The chain
// never aborts; downstream stages receive these and proceed in degraded mode.
const (
	UnknownTranscript = "unknown"
	UnknownLocation   = "Location not specified"
)

// Transcriber converts call audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []byte, cfg types.CallConfig) (string, float64, error)
}

// Classifier predicts the emergency category of a transcript.
type Classifier interface {
	Classify(ctx context.Context, transcript string) (types.EmergencyType, float64, error)
}

// SeverityRater assesses urgency. It receives the predicted category as
// well as the transcript: severity cues are category-specific.
type SeverityRater interface {
	Rate(ctx context.Context, transcript string, category types.EmergencyType) (types.Severity, float64, error)
}

// Locator extracts location information from a transcript.
type Locator interface {
	Locate(ctx context.Context, transcript string) (string, float64, error)
}

// Explainer produces a human-readable rationale for the annotations.
type Explainer interface {
	Explain(ctx context.Context, transcript string, category types.EmergencyType, severity types.Severity, location string) (string, float64, error)
}

// Chain runs the full annotation sequence against one audio snapshot.
// Transcription goes first; classification->severity and location run
// concurrently off the transcript; explanation consumes everything;
// routing is derived with no external call.
type Chain struct {
	Transcriber  Transcriber
	Classifier   Classifier
	Severity     SeverityRater
	Locator      Locator
	Explainer    Explainer
	StageTimeout time.Duration
}

// DefaultStageTimeout bounds each annotation service call so end-to-end
// latency stays predictable even when a service hangs.
const DefaultStageTimeout = 500 * time.Millisecond

func (c *Chain) timeout() time.Duration {
	if c.StageTimeout > 0 {
		return c.StageTimeout
	}
	return DefaultStageTimeout
}

// Run annotates one snapshot, emitting each stage result as it completes.
// Results carry the snapshot version so the caller can merge them in
// version order. Routing is reported through onRouting whenever the
// classification and severity pair has been recomputed.
func (c *Chain) Run(ctx context.Context, pcm []byte, version uint64, cfg types.CallConfig,
	onStage func(types.StageResult), onRouting func(types.RoutingDecision, uint64)) {

	transcript, tConf := c.transcribe(ctx, pcm, cfg)
	onStage(types.StageResult{Kind: types.StageTranscript, Value: transcript, Confidence: tConf, Version: version})

	var (
		category types.EmergencyType
		catConf  float64
		severity types.Severity
		sevConf  float64
		location string
		locConf  float64
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		category, catConf = c.classify(ctx, transcript)
		severity, sevConf = c.rate(ctx, transcript, category)
	}()
	go func() {
		defer wg.Done()
		location, locConf = c.locate(ctx, transcript)
	}()
	wg.Wait()

	onStage(types.StageResult{Kind: types.StageClassification, Value: string(category), Confidence: catConf, Version: version})
	onStage(types.StageResult{Kind: types.StageSeverity, Value: string(severity), Confidence: sevConf, Version: version})
	onStage(types.StageResult{Kind: types.StageLocation, Value: location, Confidence: locConf, Version: version})
	onRouting(DeriveRouting(category, catConf), version)

	explanation, eConf := c.explain(ctx, transcript, category, severity, location)
	onStage(types.StageResult{Kind: types.StageExplanation, Value: explanation, Confidence: eConf, Version: version})
}

func (c *Chain) transcribe(ctx context.Context, pcm []byte, cfg types.CallConfig) (string, float64) {
	sctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()
	text, conf, err := c.Transcriber.Transcribe(sctx, pcm, cfg)
	if err != nil {
		log.Printf("annotate: transcription degraded: %v", err)
		return UnknownTranscript, 0
	}
	return text, conf
}

func (c *Chain) classify(ctx context.Context, transcript string) (types.EmergencyType, float64) {
	sctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()
	category, conf, err := c.Classifier.Classify(sctx, transcript)
	if err != nil {
		log.Printf("annotate: classification degraded: %v", err)
		return types.EmergencyUnknown, 0
	}
	return category, conf
}

func (c *Chain) rate(ctx context.Context, transcript string, category types.EmergencyType) (types.Severity, float64) {
	sctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()
	severity, conf, err := c.Severity.Rate(sctx, transcript, category)
	if err != nil {
		log.Printf("annotate: severity degraded: %v", err)
		return types.SeverityLow, 0
	}
	return severity, conf
}

func (c *Chain) locate(ctx context.Context, transcript string) (string, float64) {
	sctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()
	location, conf, err := c.Locator.Locate(sctx, transcript)
	if err != nil {
		log.Printf("annotate: location degraded: %v", err)
		return UnknownLocation, 0
	}
	return location, conf
}

func (c *Chain) explain(ctx context.Context, transcript string, category types.EmergencyType, severity types.Severity, location string) (string, float64) {
	sctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()
	explanation, conf, err := c.Explainer.Explain(sctx, transcript, category, severity, location)
	if err != nil {
		log.Printf("annotate: explanation degraded: %v", err)
		return genericExplanation(category, severity), 0
	}
	return explanation, conf
}
