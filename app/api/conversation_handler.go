package api

import (
	"net/url"
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/stefanpietrusky/IEC/store"
)

type ConversationHandler struct {
	conversations *store.ConversationStore
}

func NewConversationHandler(conversations *store.ConversationStore) *ConversationHandler {
	return &ConversationHandler{conversations: conversations}
}

// HandleAudio serves a synthesized answer recording. Audio is rendered in the
// background after the answer is returned, so a 404 here means "not ready yet"
// as often as "never existed"; the player simply retries.
func (h *ConversationHandler) HandleAudio(c *fiber.Ctx) error {
	convID := c.Params("conversation_id")
	filename, err := url.PathUnescape(c.Params("filename"))
	if err != nil {
		return ErrBadRequest()
	}

	path, err := h.conversations.AudioPath(convID, filename)
	if err != nil {
		return ErrBadRequest()
	}
	if _, err := os.Stat(path); err != nil {
		return ErrNotFound(filename, "audio file")
	}
	return c.SendFile(path)
}

func (h *ConversationHandler) HandleLog(c *fiber.Ctx) error {
	entries, err := h.conversations.ReadLog(c.Params("conversation_id"))
	if err != nil {
		return err
	}
	return c.JSON(entries)
}
