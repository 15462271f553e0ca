package api

import (
	"errors"
	"io"
	"log/slog"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/stefanpietrusky/IEC/loader"
	"github.com/stefanpietrusky/IEC/store"
	"github.com/stefanpietrusky/IEC/types"
)

type ExtractHandler struct {
	extractor   *loader.Extractor
	extractions *store.ExtractionStore
	index       *store.IndexStore
	logger      *slog.Logger
}

func NewExtractHandler(extractor *loader.Extractor, extractions *store.ExtractionStore, index *store.IndexStore) *ExtractHandler {
	return &ExtractHandler{
		extractor:   extractor,
		extractions: extractions,
		index:       index,
		logger:      slog.Default(),
	}
}

// HandleExtractContent pulls URLs and PDF uploads from a multipart form,
// extracts their text, persists the blob and rebuilds the vector index over
// every stored extraction.
func (h *ExtractHandler) HandleExtractContent(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return ErrBadRequest()
	}

	var urlInput string
	if vals := form.Value["urls"]; len(vals) > 0 {
		urlInput = vals[0]
	}

	var pdfFiles [][]byte
	for _, fh := range form.File["pdfs"] {
		file, err := fh.Open()
		if err != nil {
			return err
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			return err
		}
		pdfFiles = append(pdfFiles, data)
	}

	if urlInput == "" && len(pdfFiles) == 0 {
		return c.JSON(types.ExtractResponse{Content: ""})
	}

	content := h.extractor.ExtractContent(urlInput, pdfFiles)
	if content != "" && content != loader.NoContentSentinel {
		if _, err := h.extractions.Save(content); err != nil {
			return err
		}
		all, err := h.extractions.All()
		if err != nil {
			return err
		}
		if err := h.index.Rebuild(c.Context(), all); err != nil {
			if errors.Is(err, store.ErrEmptyCorpus) {
				h.logger.Warn("no chunks found, index will not be created")
			} else {
				return err
			}
		}
	}

	return c.JSON(types.ExtractResponse{Content: content})
}

// HandleClearExtracted resets the UI's extracted-content pane. Stored
// extraction files and the index are left untouched.
func (h *ExtractHandler) HandleClearExtracted(c *fiber.Ctx) error {
	return c.JSON(types.ExtractResponse{Content: ""})
}

func (h *ExtractHandler) HandleListExtractions(c *fiber.Ctx) error {
	infos, err := h.extractions.List()
	if err != nil {
		return err
	}
	return c.JSON(infos)
}

func (h *ExtractHandler) HandleGetExtraction(c *fiber.Ctx) error {
	name, err := url.PathUnescape(c.Params("filename"))
	if err != nil {
		return ErrBadRequest()
	}
	content, err := h.extractions.Get(name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound(name, "extraction")
		}
		return err
	}
	return c.JSON(types.ExtractResponse{Content: content})
}

func (h *ExtractHandler) HandleDeleteExtraction(c *fiber.Ctx) error {
	name, err := url.PathUnescape(c.Params("filename"))
	if err != nil {
		return ErrBadRequest()
	}
	if err := h.extractions.Delete(name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound(name, "extraction")
		}
		return err
	}

	// Rebuild so deleted content stops answering questions.
	all, err := h.extractions.All()
	if err != nil {
		return err
	}
	if err := h.index.Rebuild(c.Context(), all); err != nil && !errors.Is(err, store.ErrEmptyCorpus) {
		return err
	}

	return c.JSON(fiber.Map{"status": "deleted"})
}
