package annotate

import "github.com/rapid100/triage/internal/types"

var departments = map[types.EmergencyType]string{
	types.EmergencyFire:     "Fire Department",
	types.EmergencyMedical:  "Ambulance Service",
	types.EmergencyCrime:    "Police Department",
	types.EmergencyAccident: "Emergency Services",
	types.EmergencyDisaster: "Emergency Management",
	types.EmergencyUnknown:  "General Emergency",
}

// DepartmentFor maps an emergency category to the dispatch department.
// Unrecognized categories fall back to the catch-all.
func DepartmentFor(category types.EmergencyType) string {
	if dept, ok := departments[category]; ok {
		return dept
	}
	return departments[types.EmergencyUnknown]
}

// DeriveRouting builds the routing suggestion for a classification result.
// There is no external call here; the decision always awaits human
// confirmation and is never auto-committed.
func DeriveRouting(category types.EmergencyType, confidence float64) types.RoutingDecision {
	return types.RoutingDecision{
		Department:           DepartmentFor(category),
		Confidence:           confidence,
		AwaitingConfirmation: true,
	}
}
