package api

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// ModelLister enumerates the locally installed language models.
type ModelLister interface {
	ListModels(ctx context.Context, excludePrefix string) ([]string, error)
}

type ModelHandler struct {
	lister ModelLister
	// embedding models are not answer models and stay off the picker
	excludePrefix string
}

func NewModelHandler(lister ModelLister, excludePrefix string) *ModelHandler {
	return &ModelHandler{
		lister:        lister,
		excludePrefix: excludePrefix,
	}
}

func (h *ModelHandler) HandleListModels(c *fiber.Ctx) error {
	models, err := h.lister.ListModels(c.Context(), h.excludePrefix)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"models": models})
}
