package annotate

import (
	"context"
	"fmt"
	"strings"

	"github.com/rapid100/triage/internal/types"
)

// KeywordExplainer generates a rationale for the assigned category and
// severity by matching the transcript against explanation templates.
type KeywordExplainer struct{}

type keyedExplanation struct {
	keyword     string
	explanation string
}

var categoryExplanations = map[types.EmergencyType][]keyedExplanation{
	types.EmergencyMedical: {
		{"unconscious", "Person is not responsive, indicating a serious medical emergency."},
		{"breathing", "Breathing difficulty suggests immediate medical attention needed."},
		{"heart attack", "Classic sign of cardiac emergency requiring urgent care."},
		{"stroke", "Neurological emergency requiring immediate medical intervention."},
		{"bleeding", "Significant blood loss requires prompt medical attention."},
		{"pain", "Severe pain may indicate serious underlying condition."},
	},
	types.EmergencyFire: {
		{"fire", "Active fire poses immediate danger to life and property."},
		{"smoke", "Smoke inhalation is deadly, evacuation needed immediately."},
		{"burning", "Combustible materials are ignited, spreading risk."},
		{"flames", "Visible flames indicate active fire requiring suppression."},
	},
	types.EmergencyCrime: {
		{"gun", "Firearm present creates extreme danger to all parties."},
		{"shot", "Gunshot wounds are life-threatening and require immediate response."},
		{"robbery", "Criminal act in progress with potential for violence."},
		{"break in", "Unauthorized entry indicates security breach and potential threat."},
		{"assault", "Physical attack occurring requiring law enforcement."},
	},
	types.EmergencyAccident: {
		{"accident", "Traffic incident with potential for injuries and hazards."},
		{"crash", "Vehicle collision likely caused injuries and road hazards."},
		{"collision", "Impact event that may have caused trauma to individuals."},
		{"injured", "People harmed requiring medical attention."},
		{"wreck", "Severe vehicle damage suggesting significant impact."},
	},
	types.EmergencyDisaster: {
		{"tornado", "Severe weather event causing widespread destruction."},
		{"hurricane", "Major storm system creating emergency conditions."},
		{"earthquake", "Ground shaking causing structural damage and hazards."},
		{"flood", "Water overflow creating dangerous conditions."},
	},
}

var severityExplanations = map[types.Severity][]keyedExplanation{
	types.SeverityCritical: {
		{"unconscious", "Victim unresponsive, immediate life threat."},
		{"not breathing", "Respiratory failure, minutes matter."},
		{"heart attack", "Cardiac arrest, time-sensitive intervention."},
		{"bleeding heavily", "Rapid blood loss, shock risk."},
		{"life-threatening", "Immediate danger to life."},
	},
	types.SeverityHigh: {
		{"injured", "Physical harm requiring medical attention."},
		{"fire", "Dangerous situation needing rapid response."},
		{"urgent", "Time-sensitive but not immediately life-threatening."},
		{"serious", "Substantial risk or harm present."},
	},
	types.SeverityMedium: {
		{"sick", "Illness requiring evaluation."},
		{"minor injury", "Less severe harm but still needs attention."},
		{"property damage", "Material loss but no immediate personal danger."},
	},
	types.SeverityLow: {
		{"inquiry", "Information request, non-emergency."},
		{"non-urgent", "Can wait for routine handling."},
	},
}

func (KeywordExplainer) Explain(ctx context.Context, transcript string, category types.EmergencyType, severity types.Severity, location string) (string, float64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	lower := strings.ToLower(transcript)
	var parts []string
	for _, ke := range categoryExplanations[category] {
		if strings.Contains(lower, ke.keyword) {
			parts = append(parts, ke.explanation)
		}
	}
	for _, ke := range severityExplanations[severity] {
		if strings.Contains(lower, ke.keyword) && !contains(parts, ke.explanation) {
			parts = append(parts, ke.explanation)
		}
	}

	conf := 0.8
	if len(parts) == 0 {
		parts = append(parts, genericExplanation(category, severity))
		conf = 0.5
	}
	if location != "" && location != UnknownLocation {
		parts = append(parts, fmt.Sprintf("Reported location: %s.", location))
	}
	return strings.Join(parts, " "), conf, nil
}

func genericExplanation(category types.EmergencyType, severity types.Severity) string {
	return fmt.Sprintf("The system classified this call as %s with %s severity based on analysis of the transcribed audio and contextual cues.",
		category, severity)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
