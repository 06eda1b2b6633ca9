package types

import "time"

// EmergencyType is the predicted category of an emergency call.
type EmergencyType string

const (
	EmergencyFire     EmergencyType = "FIRE"
	EmergencyMedical  EmergencyType = "MEDICAL"
	EmergencyCrime    EmergencyType = "CRIME"
	EmergencyAccident EmergencyType = "ACCIDENT"
	EmergencyDisaster EmergencyType = "DISASTER"
	EmergencyUnknown  EmergencyType = "UNKNOWN"
)

// Severity is the assessed urgency of a call.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

// CallStatus tracks the one-way OPEN -> FINALIZED lifecycle.
type CallStatus string

const (
	StatusOpen      CallStatus = "OPEN"
	StatusFinalized CallStatus = "FINALIZED"
)

// StageKind identifies one annotation stage of the pipeline.
type StageKind string

const (
	StageTranscript     StageKind = "transcript"
	StageClassification StageKind = "classification"
	StageSeverity       StageKind = "severity"
	StageLocation       StageKind = "location"
	StageExplanation    StageKind = "explanation"
)

// StageResult is the output of one annotation stage, stamped with the
// audio snapshot version it was computed from.
type StageResult struct {
	Kind       StageKind
	Value      string
	Confidence float64
	Version    uint64
}

// RoutingDecision suggests a dispatch department. It is never committed by
// the system itself; a human dispatcher confirms it.
type RoutingDecision struct {
	Department           string  `json:"department"`
	Confidence           float64 `json:"confidence"`
	AwaitingConfirmation bool    `json:"awaiting_confirmation"`
}

// CallConfig carries the client-provided stream configuration.
type CallConfig struct {
	Language       string `json:"language"`
	NoiseFiltering bool   `json:"noise_filtering"`
}

// CallRecord is the per-call aggregate of the latest accepted result for
// every stage. Stage values only move forward in snapshot-version order:
// a result computed from an older snapshot never replaces one from a newer
// snapshot, regardless of completion order.
type CallRecord struct {
	CallID         string
	Status         CallStatus
	Config         CallConfig
	Stages         map[StageKind]StageResult
	Routing        RoutingDecision
	RoutingVersion uint64
	Revision       uint64
	CreatedAt      time.Time
	UpdatedAt      time.Time
	FinalizedAt    time.Time
}

// NewCallRecord creates an OPEN record with all stages empty.
func NewCallRecord(callID string, cfg CallConfig) *CallRecord {
	now := time.Now().UTC()
	return &CallRecord{
		CallID:    callID,
		Status:    StatusOpen,
		Config:    cfg,
		Stages:    make(map[StageKind]StageResult),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Merge applies a stage result if it is not superseded. Last-writer-wins is
// keyed by snapshot version; on equal versions a lower-confidence result
// never replaces a higher-confidence one. Returns whether the record changed.
func (r *CallRecord) Merge(res StageResult) bool {
	prev, ok := r.Stages[res.Kind]
	if ok {
		if res.Version < prev.Version {
			return false
		}
		if res.Version == prev.Version && res.Confidence < prev.Confidence {
			return false
		}
	}
	r.Stages[res.Kind] = res
	r.Revision++
	r.UpdatedAt = time.Now().UTC()
	return true
}

// SetRouting applies a derived routing decision under the same version gate
// as stage merges.
func (r *CallRecord) SetRouting(d RoutingDecision, version uint64) bool {
	if version < r.RoutingVersion {
		return false
	}
	d.AwaitingConfirmation = true
	r.Routing = d
	r.RoutingVersion = version
	r.Revision++
	r.UpdatedAt = time.Now().UTC()
	return true
}

// Stage returns the stored value for a stage kind, or "" when empty.
func (r *CallRecord) Stage(kind StageKind) string {
	return r.Stages[kind].Value
}

// Snapshot flattens the record into the wire/persist schema. Each push is a
// complete snapshot, not a delta.
func (r *CallRecord) Snapshot() CallSnapshot {
	snap := CallSnapshot{
		CallID:         r.CallID,
		Timestamp:      r.UpdatedAt,
		Status:         r.Status,
		Transcript:     r.Stage(StageTranscript),
		PredictedClass: EmergencyType(r.Stage(StageClassification)),
		Confidence:     r.Stages[StageClassification].Confidence,
		Severity:       Severity(r.Stage(StageSeverity)),
		Location:       r.Stage(StageLocation),
		Explanation:    r.Stage(StageExplanation),
		Routing:        r.Routing,
		Revision:       r.Revision,
	}
	if r.Status == StatusFinalized {
		t := r.FinalizedAt
		snap.FinalizedAt = &t
	}
	return snap
}

// CallSnapshot is the flat record pushed to observers and persisted to the
// append-only call log.
type CallSnapshot struct {
	CallID         string          `json:"call_id"`
	Timestamp      time.Time       `json:"timestamp"`
	Status         CallStatus      `json:"status"`
	Transcript     string          `json:"transcript"`
	PredictedClass EmergencyType   `json:"predicted_class"`
	Confidence     float64         `json:"confidence"`
	Severity       Severity        `json:"severity"`
	Location       string          `json:"location"`
	Routing        RoutingDecision `json:"routing_decision"`
	Explanation    string          `json:"explanation"`
	Revision       uint64          `json:"revision"`
	FinalizedAt    *time.Time      `json:"finalized_at,omitempty"`
}
