package annotate

import (
	"context"
	"strings"

	"github.com/rapid100/triage/internal/types"
)

// KeywordClassifier is a rule-based emergency classifier. It scores the
// transcript against per-category keyword tables and normalizes the top
// score into a confidence.
type KeywordClassifier struct{}

var categoryOrder = []types.EmergencyType{
	types.EmergencyMedical,
	types.EmergencyFire,
	types.EmergencyCrime,
	types.EmergencyAccident,
	types.EmergencyDisaster,
}

var emergencyKeywords = map[types.EmergencyType][]string{
	types.EmergencyMedical: {
		"unconscious", "breathing", "bleeding", "heart attack", "stroke", "pain",
		"injury", "ambulance", "sick", "ill", "medicine", "doctor", "hospital",
		"medication", "prescription", "symptom", "fever", "broken bone", "burn",
	},
	types.EmergencyFire: {
		"fire", "smoke", "burning", "flames", "burn", "explode", "gas leak",
		"explosion", "blaze", "inferno", "combustion", "ignite", "torch",
	},
	types.EmergencyCrime: {
		"gun", "shot", "robbery", "steal", "break in", "burglary", "assault",
		"murder", "rape", "kidnap", "threat", "dangerous", "criminal", "police",
		"arrest", "homicide", "weapon", "stab", "fight", "violence",
	},
	types.EmergencyAccident: {
		"accident", "crash", "collision", "car", "truck", "vehicle", "hit",
		"injured", "wreck", "fender bender", "rollover", "pedestrian", "bike",
		"motorcycle", "pileup", "multi-car",
	},
	types.EmergencyDisaster: {
		"tornado", "hurricane", "earthquake", "flood", "tsunami", "avalanche",
		"landslide", "wildfire", "storm", "evacuation", "shelter",
		"weather", "severe", "disaster", "catastrophe", "natural disaster",
	},
}

func (KeywordClassifier) Classify(ctx context.Context, transcript string) (types.EmergencyType, float64, error) {
	if err := ctx.Err(); err != nil {
		return types.EmergencyUnknown, 0, err
	}

	lower := strings.ToLower(transcript)
	best := types.EmergencyUnknown
	bestScore, total := 0, 0
	// Fixed iteration order keeps equal-score ties deterministic.
	for _, category := range categoryOrder {
		score := 0
		for _, kw := range emergencyKeywords[category] {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		total += score
		if score > bestScore {
			bestScore = score
			best = category
		}
	}

	if bestScore == 0 {
		return types.EmergencyUnknown, 0, nil
	}
	return best, float64(bestScore) / float64(total), nil
}
