package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rapid100/triage/internal/annotate"
	"github.com/rapid100/triage/internal/types"
)

// SimulateHandler synthesizes annotated call records from canned scenario
// transcripts, bypassing the audio pipeline entirely. Simulated calls are
// not persisted.
type SimulateHandler struct {
	chain *annotate.Chain
}

func NewSimulateHandler(chain *annotate.Chain) *SimulateHandler {
	return &SimulateHandler{chain: chain}
}

type scenario struct {
	Text         string
	ExpectedType types.EmergencyType
}

var scenarios = map[string]scenario{
	"medical": {
		Text:         "Help! My wife is unconscious and not breathing. She collapsed suddenly. Address is 123 Main St, Downtown. Please send an ambulance immediately!",
		ExpectedType: types.EmergencyMedical,
	},
	"fire": {
		Text:         "There's a fire at my house! Smoke is everywhere, flames coming from the kitchen. Address is 456 Oak Ave, Suburbia. Need firefighters now!",
		ExpectedType: types.EmergencyFire,
	},
	"crime": {
		Text:         "Someone is breaking into my house! I hear glass breaking and footsteps. Address is 789 Pine Rd, Residential Area. Gunshots fired. Police needed immediately!",
		ExpectedType: types.EmergencyCrime,
	},
	"accident": {
		Text:         "Car accident on Highway 101 near Exit 15. Multiple cars involved, people injured. Blood everywhere. Need ambulances and police.",
		ExpectedType: types.EmergencyAccident,
	},
	"disaster": {
		Text:         "Tornado warning! Severe weather approaching downtown. Taking shelter in basement. Large debris flying. Need emergency management.",
		ExpectedType: types.EmergencyDisaster,
	},
}

// Handle runs one scenario through the text annotation stages.
func (h *SimulateHandler) Handle(c *fiber.Ctx) error {
	name := c.Params("scenario")
	sc, ok := scenarios[name]
	if !ok {
		return c.Status(404).JSON(fiber.Map{
			"error": "Scenario not found",
			"code":  "ERR_NOT_FOUND",
		})
	}

	ann := h.chain.AnnotateText(c.Context(), sc.Text)
	return c.JSON(fiber.Map{
		"scenario":         name,
		"input_text":       sc.Text,
		"predicted_type":   ann.Category,
		"severity":         ann.Severity,
		"location":         ann.Location,
		"routing_decision": ann.Routing,
		"explanation":      ann.Explanation,
		"expected_type":    sc.ExpectedType,
	})
}

// Classify annotates raw text submitted by the dashboard.
func (h *SimulateHandler) Classify(c *fiber.Ctx) error {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.BodyParser(&req); err != nil || req.Text == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "Text is required",
			"code":  "ERR_NO_TEXT",
		})
	}

	ann := h.chain.AnnotateText(c.Context(), req.Text)
	return c.JSON(fiber.Map{
		"emergency_type":   ann.Category,
		"confidence":       ann.CategoryConf,
		"severity":         ann.Severity,
		"location":         ann.Location,
		"routing_decision": ann.Routing,
		"explanation":      ann.Explanation,
	})
}
