package annotate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rapid100/triage/internal/types"
)

// fixedTranscriber returns the same transcript for every snapshot.
type fixedTranscriber struct {
	text string
}

func (t fixedTranscriber) Transcribe(ctx context.Context, pcm []byte, cfg types.CallConfig) (string, float64, error) {
	return t.text, 0.9, nil
}

// failing services error on every call so the degraded paths run.
type failingTranscriber struct{}
type failingClassifier struct{}
type failingSeverity struct{}
type failingLocator struct{}
type failingExplainer struct{}

var errUnavailable = errors.New("service unavailable")

func (failingTranscriber) Transcribe(context.Context, []byte, types.CallConfig) (string, float64, error) {
	return "", 0, errUnavailable
}
func (failingClassifier) Classify(context.Context, string) (types.EmergencyType, float64, error) {
	return "", 0, errUnavailable
}
func (failingSeverity) Rate(context.Context, string, types.EmergencyType) (types.Severity, float64, error) {
	return "", 0, errUnavailable
}
func (failingLocator) Locate(context.Context, string) (string, float64, error) {
	return "", 0, errUnavailable
}
func (failingExplainer) Explain(context.Context, string, types.EmergencyType, types.Severity, string) (string, float64, error) {
	return "", 0, errUnavailable
}

func ruleChain(t Transcriber) *Chain {
	return &Chain{
		Transcriber: t,
		Classifier:  KeywordClassifier{},
		Severity:    KeywordSeverity{},
		Locator:     RegexLocator{},
		Explainer:   KeywordExplainer{},
	}
}

func collectRun(t *testing.T, c *Chain, pcm []byte, version uint64) (map[types.StageKind]types.StageResult, []types.StageKind, types.RoutingDecision) {
	t.Helper()

	results := map[types.StageKind]types.StageResult{}
	var order []types.StageKind
	var routing types.RoutingDecision
	routed := false

	c.Run(context.Background(), pcm, version, types.CallConfig{Language: "en"},
		func(res types.StageResult) {
			results[res.Kind] = res
			order = append(order, res.Kind)
		},
		func(d types.RoutingDecision, v uint64) {
			routing = d
			routed = true
			if v != version {
				t.Errorf("routing version = %d, expected %d", v, version)
			}
		})

	if !routed {
		t.Fatal("routing callback never fired")
	}
	return results, order, routing
}

func TestChainRun(t *testing.T) {
	transcript := "Help! My wife is unconscious and not breathing. She collapsed suddenly. Address is 123 Main St, Downtown. Please send an ambulance immediately!"
	chain := ruleChain(fixedTranscriber{text: transcript})

	results, order, routing := collectRun(t, chain, []byte{1, 2, 3}, 4)

	t.Run("every stage emits exactly once, in order", func(t *testing.T) {
		expected := []types.StageKind{
			types.StageTranscript,
			types.StageClassification,
			types.StageSeverity,
			types.StageLocation,
			types.StageExplanation,
		}
		if len(order) != len(expected) {
			t.Fatalf("got %d stage results: %v", len(order), order)
		}
		for i, kind := range expected {
			if order[i] != kind {
				t.Errorf("stage %d = %s, expected %s", i, order[i], kind)
			}
		}
	})

	t.Run("results carry the snapshot version", func(t *testing.T) {
		for kind, res := range results {
			if res.Version != 4 {
				t.Errorf("%s version = %d, expected 4", kind, res.Version)
			}
		}
	})

	t.Run("medical call is triaged", func(t *testing.T) {
		if got := types.EmergencyType(results[types.StageClassification].Value); got != types.EmergencyMedical {
			t.Errorf("classification = %q, expected MEDICAL", got)
		}
		if conf := results[types.StageClassification].Confidence; conf < 0.9 {
			t.Errorf("classification confidence = %v, expected >= 0.9", conf)
		}
		if got := types.Severity(results[types.StageSeverity].Value); got != types.SeverityCritical {
			t.Errorf("severity = %q, expected CRITICAL", got)
		}
		loc := results[types.StageLocation].Value
		if !strings.Contains(loc, "123 Main St") || !strings.Contains(loc, "Downtown") {
			t.Errorf("location = %q", loc)
		}
		if results[types.StageExplanation].Value == "" {
			t.Error("explanation is empty")
		}
	})

	t.Run("routing suggests ambulance and awaits confirmation", func(t *testing.T) {
		if routing.Department != "Ambulance Service" {
			t.Errorf("department = %q", routing.Department)
		}
		if !routing.AwaitingConfirmation {
			t.Error("routing must await human confirmation")
		}
	})
}

func TestChainDegradation(t *testing.T) {
	t.Run("all services failing still completes the chain", func(t *testing.T) {
		chain := &Chain{
			Transcriber: failingTranscriber{},
			Classifier:  failingClassifier{},
			Severity:    failingSeverity{},
			Locator:     failingLocator{},
			Explainer:   failingExplainer{},
		}

		results, order, routing := collectRun(t, chain, []byte{1}, 1)

		if len(order) != 5 {
			t.Fatalf("chain aborted early: %v", order)
		}
		if res := results[types.StageTranscript]; res.Value != UnknownTranscript || res.Confidence != 0 {
			t.Errorf("transcript = %+v, expected %q at confidence 0", res, UnknownTranscript)
		}
		if res := results[types.StageClassification]; types.EmergencyType(res.Value) != types.EmergencyUnknown || res.Confidence != 0 {
			t.Errorf("classification = %+v, expected UNKNOWN at confidence 0", res)
		}
		if res := results[types.StageSeverity]; types.Severity(res.Value) != types.SeverityLow || res.Confidence != 0 {
			t.Errorf("severity = %+v, expected LOW at confidence 0", res)
		}
		if res := results[types.StageLocation]; res.Value != UnknownLocation || res.Confidence != 0 {
			t.Errorf("location = %+v, expected sentinel at confidence 0", res)
		}
		if results[types.StageExplanation].Value == "" {
			t.Error("degraded explanation is empty")
		}
		if routing.Department != "General Emergency" {
			t.Errorf("department = %q, expected General Emergency", routing.Department)
		}
	})

	t.Run("failed transcription degrades downstream, not aborts", func(t *testing.T) {
		chain := ruleChain(failingTranscriber{})

		results, _, routing := collectRun(t, chain, []byte{1}, 1)

		if results[types.StageTranscript].Value != UnknownTranscript {
			t.Errorf("transcript = %q", results[types.StageTranscript].Value)
		}
		if got := types.EmergencyType(results[types.StageClassification].Value); got != types.EmergencyUnknown {
			t.Errorf("classification = %q, expected UNKNOWN", got)
		}
		if routing.Department != "General Emergency" {
			t.Errorf("department = %q", routing.Department)
		}
	})
}

func TestKeywordClassifier(t *testing.T) {
	cases := []struct {
		name       string
		transcript string
		expected   types.EmergencyType
	}{
		{"fire", "There's a fire at my house! Smoke is everywhere, flames coming from the kitchen.", types.EmergencyFire},
		{"crime", "Someone is breaking into my house! Gunshots fired. Police needed immediately!", types.EmergencyCrime},
		{"accident", "Car accident on Highway 101. Multiple cars involved, people injured.", types.EmergencyAccident},
		{"disaster", "Tornado warning! Severe weather approaching downtown.", types.EmergencyDisaster},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			category, conf, err := KeywordClassifier{}.Classify(context.Background(), c.transcript)
			if err != nil {
				t.Fatalf("classify failed: %v", err)
			}
			if category != c.expected {
				t.Errorf("category = %q, expected %q", category, c.expected)
			}
			if conf <= 0 || conf > 1 {
				t.Errorf("confidence = %v, expected in (0,1]", conf)
			}
		})
	}

	t.Run("no match", func(t *testing.T) {
		category, conf, err := KeywordClassifier{}.Classify(context.Background(), "the parcel arrived on tuesday")
		if err != nil {
			t.Fatalf("classify failed: %v", err)
		}
		if category != types.EmergencyUnknown || conf != 0 {
			t.Errorf("got %q at %v, expected UNKNOWN at 0", category, conf)
		}
	})
}

func TestKeywordSeverity(t *testing.T) {
	t.Run("category-specific critical phrase", func(t *testing.T) {
		severity, conf, err := KeywordSeverity{}.Rate(context.Background(),
			"my husband is unconscious and not breathing", types.EmergencyMedical)
		if err != nil {
			t.Fatalf("rate failed: %v", err)
		}
		if severity != types.SeverityCritical {
			t.Errorf("severity = %q, expected CRITICAL", severity)
		}
		if conf <= 0 {
			t.Errorf("confidence = %v", conf)
		}
	})

	t.Run("no cues defaults to medium", func(t *testing.T) {
		severity, conf, err := KeywordSeverity{}.Rate(context.Background(),
			"the cat sat on the mat", types.EmergencyUnknown)
		if err != nil {
			t.Fatalf("rate failed: %v", err)
		}
		if severity != types.SeverityMedium {
			t.Errorf("severity = %q, expected MEDIUM", severity)
		}
		if conf != 0.2 {
			t.Errorf("confidence = %v, expected 0.2", conf)
		}
	})
}

func TestRegexLocator(t *testing.T) {
	t.Run("street address and area", func(t *testing.T) {
		location, conf, err := RegexLocator{}.Locate(context.Background(),
			"Address is 123 Main St, Downtown.")
		if err != nil {
			t.Fatalf("locate failed: %v", err)
		}
		if !strings.Contains(location, "123 Main St") {
			t.Errorf("location %q missing street address", location)
		}
		if !strings.Contains(location, "Downtown") {
			t.Errorf("location %q missing area", location)
		}
		if conf < 0.3 || conf > 0.9 {
			t.Errorf("confidence = %v, expected in [0.3,0.9]", conf)
		}
	})

	t.Run("highway reference", func(t *testing.T) {
		location, _, err := RegexLocator{}.Locate(context.Background(),
			"Car accident on Highway 101 near Exit 15.")
		if err != nil {
			t.Fatalf("locate failed: %v", err)
		}
		if !strings.Contains(location, "Highway 101") {
			t.Errorf("location = %q", location)
		}
	})

	t.Run("no location", func(t *testing.T) {
		location, conf, err := RegexLocator{}.Locate(context.Background(), "someone help me please")
		if err != nil {
			t.Fatalf("locate failed: %v", err)
		}
		if location != UnknownLocation || conf != 0 {
			t.Errorf("got %q at %v, expected sentinel at 0", location, conf)
		}
	})
}

func TestKeywordExplainer(t *testing.T) {
	t.Run("matched keywords", func(t *testing.T) {
		explanation, conf, err := KeywordExplainer{}.Explain(context.Background(),
			"she is unconscious and bleeding", types.EmergencyMedical, types.SeverityCritical, "123 Main St")
		if err != nil {
			t.Fatalf("explain failed: %v", err)
		}
		if conf != 0.8 {
			t.Errorf("confidence = %v, expected 0.8", conf)
		}
		if !strings.Contains(explanation, "Reported location: 123 Main St.") {
			t.Errorf("explanation %q missing location", explanation)
		}
	})

	t.Run("generic fallback", func(t *testing.T) {
		explanation, conf, err := KeywordExplainer{}.Explain(context.Background(),
			"something happened", types.EmergencyUnknown, types.SeverityMedium, "")
		if err != nil {
			t.Fatalf("explain failed: %v", err)
		}
		if conf != 0.5 {
			t.Errorf("confidence = %v, expected 0.5", conf)
		}
		if !strings.Contains(explanation, "UNKNOWN") || !strings.Contains(explanation, "MEDIUM") {
			t.Errorf("generic explanation = %q", explanation)
		}
	})
}

func TestDepartmentFor(t *testing.T) {
	cases := map[types.EmergencyType]string{
		types.EmergencyFire:     "Fire Department",
		types.EmergencyMedical:  "Ambulance Service",
		types.EmergencyCrime:    "Police Department",
		types.EmergencyAccident: "Emergency Services",
		types.EmergencyDisaster: "Emergency Management",
		types.EmergencyUnknown:  "General Emergency",
	}
	for category, dept := range cases {
		if got := DepartmentFor(category); got != dept {
			t.Errorf("DepartmentFor(%s) = %q, expected %q", category, got, dept)
		}
	}

	if got := DepartmentFor(types.EmergencyType("bogus")); got != "General Emergency" {
		t.Errorf("unrecognized category mapped to %q", got)
	}
}

func TestAnnotateText(t *testing.T) {
	chain := ruleChain(nil) // transcription is bypassed

	ann := chain.AnnotateText(context.Background(),
		"Someone is breaking into my house! Gunshots fired. Police needed immediately!")

	if ann.Category != types.EmergencyCrime {
		t.Errorf("category = %q, expected CRIME", ann.Category)
	}
	if ann.Routing.Department != "Police Department" {
		t.Errorf("department = %q", ann.Routing.Department)
	}
	if !ann.Routing.AwaitingConfirmation {
		t.Error("routing must await confirmation")
	}
	if ann.Explanation == "" {
		t.Error("explanation is empty")
	}
}

func TestCannedTranscriber(t *testing.T) {
	tr := NewCannedTranscriber()

	t.Run("empty audio yields empty transcript", func(t *testing.T) {
		text, conf, err := tr.Transcribe(context.Background(), nil, types.CallConfig{})
		if err != nil || text != "" || conf != 0 {
			t.Errorf("got (%q, %v, %v)", text, conf, err)
		}
	})

	t.Run("rotates transcripts", func(t *testing.T) {
		first, _, _ := tr.Transcribe(context.Background(), []byte{1}, types.CallConfig{})
		second, _, _ := tr.Transcribe(context.Background(), []byte{1}, types.CallConfig{})
		if first == second {
			t.Errorf("transcriber did not rotate: %q", first)
		}
	})
}

func TestNewTranscriber(t *testing.T) {
	t.Run("default is canned", func(t *testing.T) {
		tr, err := NewTranscriber(TranscriberConfig{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := tr.(*CannedTranscriber); !ok {
			t.Errorf("got %T, expected *CannedTranscriber", tr)
		}
	})

	t.Run("openai requires api key", func(t *testing.T) {
		if _, err := NewTranscriber(TranscriberConfig{Provider: "openai"}); err == nil {
			t.Error("expected error for missing api key")
		}
	})

	t.Run("unknown provider", func(t *testing.T) {
		if _, err := NewTranscriber(TranscriberConfig{Provider: "carrier-pigeon"}); err == nil {
			t.Error("expected error for unsupported provider")
		}
	})
}
