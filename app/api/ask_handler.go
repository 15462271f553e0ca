package api

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/stefanpietrusky/IEC/app/agent"
	"github.com/stefanpietrusky/IEC/store"
	"github.com/stefanpietrusky/IEC/types"
)

// maxChunksPerSource caps how many index chunks feed one per-source prompt.
const maxChunksPerSource = 5

// Speech renders an answer to an audio file.
type Speech interface {
	Synthesize(ctx context.Context, text, outPath string) error
}

type AskHandler struct {
	agent         *agent.Agent
	index         *store.IndexStore
	conversations *store.ConversationStore
	tts           Speech
	logger        *slog.Logger
}

func NewAskHandler(a *agent.Agent, index *store.IndexStore, conversations *store.ConversationStore, tts Speech) *AskHandler {
	return &AskHandler{
		agent:         a,
		index:         index,
		conversations: conversations,
		tts:           tts,
		logger:        slog.Default(),
	}
}

func (h *AskHandler) HandleAskQuestion(c *fiber.Ctx) error {
	var params types.AskParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}

	if errors := types.Validate(&params); len(errors) > 0 {
		return types.NewValidationError(errors)
	}

	var answer string
	var perSource []string

	if len(params.SelectedExtractions) == 0 {
		// Without stored sources the request either carries inline content
		// (or URLs/uploads that produced none) or falls back to web search
		// and the bare model.
		if strings.TrimSpace(params.Content) == "" && strings.TrimSpace(params.URLs) == "" {
			return c.JSON(types.AskResponse{Response: agent.MsgSelectSource})
		}
		answer = h.agent.RespondFromExtractedContent(
			c.Context(),
			params.CompetenceLevel, params.Content, params.URLs, 0,
			params.Question, params.SelectedModel,
		)
	} else {
		sources := make([]agent.SourceContent, 0, len(params.SelectedExtractions))
		for _, src := range params.SelectedExtractions {
			chunks := h.index.QueryBySource(src)
			if len(chunks) > maxChunksPerSource {
				chunks = chunks[:maxChunksPerSource]
			}
			sources = append(sources, agent.SourceContent{
				Name:    src,
				Content: strings.Join(chunks, "\n\n"),
			})
		}
		answer, perSource = h.agent.AnswerFromSources(
			c.Context(),
			params.CompetenceLevel, params.Question, sources, params.SelectedModel,
		)
	}

	resp := types.AskResponse{
		Response:         answer,
		PerSourceAnswers: perSource,
	}

	// Speech and logging run after the response is sent; the audio URL is
	// handed out before the file exists and the player polls for it.
	if params.ConversationID != "" && answer != agent.MsgNoRelevantContent {
		audioFile := uuid.NewString() + ".mp3"
		resp.AudioURL = "/conversations/" + params.ConversationID + "/" + audioFile
		go h.finishConversation(params.ConversationID, audioFile, params.Question, answer, params.SelectedExtractions)
	}

	return c.JSON(resp)
}

func (h *AskHandler) finishConversation(convID, audioFile, question, answer string, extractions []string) {
	path, err := h.conversations.AudioPath(convID, audioFile)
	if err != nil {
		h.logger.Error("conversation audio path rejected", "conversation", convID, "error", err)
		return
	}
	if err := h.tts.Synthesize(context.Background(), answer, path); err != nil {
		h.logger.Debug("speech synthesis failed", "error", err)
	}

	entry := types.LogEntry{
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Question:    question,
		Answer:      answer,
		AudioFile:   audioFile,
		Extractions: extractions,
	}
	if err := h.conversations.AppendLog(convID, entry); err != nil {
		h.logger.Error("error to append conversation log", "conversation", convID, "error", err)
	}
}
