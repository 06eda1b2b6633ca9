package annotate

import (
	"context"
	"strings"

	"github.com/rapid100/triage/internal/types"
)

// KeywordSeverity is a rule-based severity rater. Critical cues are
// category-specific and weighted ahead of the shared keyword tables, so a
// MEDICAL call saying "not breathing" outranks the same words in an
// unrelated context.
type KeywordSeverity struct{}

var criticalByCategory = map[types.EmergencyType][]string{
	types.EmergencyMedical: {
		"unconscious", "not breathing", "heart attack", "stroke", "bleeding heavily",
		"severe bleeding", "cardiac arrest", "choking", "drowning", "electrocution",
		"severe burn", "multiple injuries",
	},
	types.EmergencyFire: {
		"explosion imminent", "trapped", "smoke everywhere", "spreading fast",
	},
	types.EmergencyCrime: {
		"active shooter", "gunshots fired", "hostage", "armed",
	},
	types.EmergencyAccident: {
		"multiple injuries", "pinned", "not moving", "mass casualty",
	},
	types.EmergencyDisaster: {
		"mass casualty", "building collapse", "people trapped",
	},
}

var sharedCritical = []string{
	"life-threatening", "critical condition", "immediate danger", "mass casualty",
}

var severityKeywords = map[types.Severity][]string{
	types.SeverityHigh: {
		"injured", "pain", "broken bone", "burn", "accident", "crash", "fire",
		"smoke", "gunshot", "stabbed", "assault", "robbery", "dangerous",
		"urgent", "emergency", "serious", "major", "significant",
	},
	types.SeverityMedium: {
		"sick", "ill", "fever", "minor injury", "small fire", "property damage",
		"disturbance", "noise complaint", "lost", "stranded", "locked out",
		"medical concern", "first aid needed", "property crime",
	},
	types.SeverityLow: {
		"inquiry", "information", "non-urgent", "routine", "follow-up",
		"administrative", "scheduled", "appointment", "general question",
	},
}

var emotionIndicators = []string{
	"immediately", "now", "right away", "hurry", "quickly", "fast",
	"very", "extremely", "terribly", "incredibly", "highly",
	"help", "please", "oh god", "oh no", "scared", "afraid",
}

func (KeywordSeverity) Rate(ctx context.Context, transcript string, category types.EmergencyType) (types.Severity, float64, error) {
	if err := ctx.Err(); err != nil {
		return types.SeverityLow, 0, err
	}

	lower := strings.ToLower(transcript)
	scores := map[types.Severity]float64{}

	// Category-specific critical phrases carry the most weight; critical
	// cues from other categories still count, just less.
	for cat, phrases := range criticalByCategory {
		weight := 2.0
		if cat == category {
			weight = 3.0
		}
		for _, phrase := range phrases {
			if strings.Contains(lower, phrase) {
				scores[types.SeverityCritical] += weight
			}
		}
	}
	for _, phrase := range sharedCritical {
		if strings.Contains(lower, phrase) {
			scores[types.SeverityCritical] += 2
		}
	}
	for level, keywords := range severityKeywords {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				scores[level]++
			}
		}
	}
	for _, indicator := range emotionIndicators {
		if strings.Contains(lower, indicator) {
			scores[types.SeverityCritical] += 0.5
			scores[types.SeverityHigh] += 0.5
		}
	}

	best := types.SeverityMedium
	bestScore, total := 0.0, 0.0
	for _, level := range []types.Severity{types.SeverityCritical, types.SeverityHigh, types.SeverityMedium, types.SeverityLow} {
		total += scores[level]
		if scores[level] > bestScore {
			bestScore = scores[level]
			best = level
		}
	}

	// No cues at all: default to MEDIUM rather than dismissing the call.
	if bestScore == 0 {
		return types.SeverityMedium, 0.2, nil
	}
	conf := bestScore / total
	if conf > 1 {
		conf = 1
	}
	return best, conf, nil
}
