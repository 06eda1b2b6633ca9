package annotate

import (
	"context"

	"github.com/rapid100/triage/internal/types"
)

// TextAnnotation is the result of annotating raw text outside the audio
// pipeline (scenario simulation, direct classification).
type TextAnnotation struct {
	Transcript   string
	Category     types.EmergencyType
	CategoryConf float64
	Severity     types.Severity
	SeverityConf float64
	Location     string
	LocationConf float64
	Explanation  string
	Routing      types.RoutingDecision
}

// AnnotateText runs every post-transcription stage against the given text,
// bypassing audio ingest entirely. Stages degrade the same way they do in
// the streaming pipeline.
func (c *Chain) AnnotateText(ctx context.Context, text string) TextAnnotation {
	category, catConf := c.classify(ctx, text)
	severity, sevConf := c.rate(ctx, text, category)
	location, locConf := c.locate(ctx, text)
	explanation, _ := c.explain(ctx, text, category, severity, location)

	return TextAnnotation{
		Transcript:   text,
		Category:     category,
		CategoryConf: catConf,
		Severity:     severity,
		SeverityConf: sevConf,
		Location:     location,
		LocationConf: locConf,
		Explanation:  explanation,
		Routing:      DeriveRouting(category, catConf),
	}
}
