package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rapid100/triage/internal/store"
)

// RecordingsHandler lists and serves saved call recordings.
type RecordingsHandler struct {
	recordings *store.RecordingStore
}

func NewRecordingsHandler(recordings *store.RecordingStore) *RecordingsHandler {
	return &RecordingsHandler{recordings: recordings}
}

// List returns all saved recordings, most recent first.
func (h *RecordingsHandler) List(c *fiber.Ctx) error {
	recordings, err := h.recordings.List()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"recordings": recordings})
}

// Serve streams one recording file.
func (h *RecordingsHandler) Serve(c *fiber.Ctx) error {
	path, err := h.recordings.Path(c.Params("filename"))
	if err != nil {
		return c.Status(404).JSON(fiber.Map{
			"error": "Recording not found",
			"code":  "ERR_NOT_FOUND",
		})
	}
	c.Set("Content-Type", "audio/wav")
	return c.SendFile(path)
}
