package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/rapid100/triage/internal/store"
)

// CallsHandler serves finalized call records from the SQLite index.
type CallsHandler struct {
	db *store.RecordDB
}

func NewCallsHandler(db *store.RecordDB) *CallsHandler {
	return &CallsHandler{db: db}
}

// List returns finalized records, most recent first.
func (h *CallsHandler) List(c *fiber.Ctx) error {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	records, err := h.db.List(limit)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{
		"calls": records,
		"count": len(records),
	})
}

// Get returns one finalized record by call id.
func (h *CallsHandler) Get(c *fiber.Ctx) error {
	callID := c.Params("id")
	record, err := h.db.Get(callID)
	if err != nil {
		return c.Status(404).JSON(fiber.Map{
			"error": "Call record not found",
			"code":  "ERR_NOT_FOUND",
		})
	}
	return c.JSON(record)
}
