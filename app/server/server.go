package server

import (
	"log"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/stefanpietrusky/IEC/app/agent"
	"github.com/stefanpietrusky/IEC/app/api"
	"github.com/stefanpietrusky/IEC/loader"
	"github.com/stefanpietrusky/IEC/model"
	"github.com/stefanpietrusky/IEC/store"
	"github.com/stefanpietrusky/IEC/tokenizer"
	"github.com/stefanpietrusky/IEC/types"
	"github.com/stefanpietrusky/IEC/websearch"
)

var config = fiber.Config{
	ErrorHandler: api.ErrorHandler,
	BodyLimit:    64 * 1024 * 1024, // PDF uploads
}

type Server struct {
	listenAddr string
	logger     *slog.Logger
	cfg        types.Config
}

func NewServer(cfg types.Config) *Server {
	return &Server{
		listenAddr: cfg.ServerAddr,
		logger:     slog.Default(),
		cfg:        cfg,
	}
}

func (s *Server) Stop() {
	s.logger.Info("server stopped")
}

func (s *Server) Run() {
	cfg := s.cfg

	codec, err := tokenizer.New()
	if err != nil {
		log.Fatal("error to load tokenizer encoding", err)
		return
	}

	extractions, err := store.NewExtractionStore(cfg.DataDir)
	if err != nil {
		log.Fatal("error to create extraction store", err)
		return
	}
	conversations, err := store.NewConversationStore(cfg.ConvRoot)
	if err != nil {
		log.Fatal("error to create conversation store", err)
		return
	}

	embedder := model.NewOllamaEmbedder(cfg.OllamaBase, cfg.EmbedModel, cfg.LLMTimeout)
	index := store.NewIndexStore(cfg.IndexDir, cfg.ChunkSize, codec, embedder)
	if err := index.Load(); err != nil {
		log.Fatal("error to load index artifacts", err)
		return
	}

	llm := model.NewOllamaClient(cfg.OllamaBase, cfg.LLMTimeout)
	extractor := loader.NewExtractor(cfg.FetchTimeout, cfg.PDFCropTop, cfg.PDFCropBottom)
	search := websearch.NewClient(cfg.FetchTimeout)
	tts := model.NewEdgeTTS(cfg.TTSVoice, cfg.LLMTimeout)
	ag := agent.New(llm, search, extractor, codec, cfg)

	var (
		app                 = fiber.New(config)
		uiHandler           = api.NewUIHandler()
		checkHandler        = api.NewCheckHandler()
		askHandler          = api.NewAskHandler(ag, index, conversations, tts)
		extractHandler      = api.NewExtractHandler(extractor, extractions, index)
		modelHandler        = api.NewModelHandler(llm, cfg.EmbedModel)
		conversationHandler = api.NewConversationHandler(conversations)
		check               = app.Group("/check")
	)

	app.Get("/", uiHandler.HandleIndex)
	app.Get("/styles.css", uiHandler.HandleStyles)
	app.Get("/script.js", uiHandler.HandleScript)
	check.Get("/healthy", checkHandler.HandleHealthy)

	app.Post("/extract_content", extractHandler.HandleExtractContent)
	app.Post("/clear_extracted", extractHandler.HandleClearExtracted)
	app.Get("/list_extractions", extractHandler.HandleListExtractions)
	app.Get("/get_extraction/:filename", extractHandler.HandleGetExtraction)
	app.Delete("/delete_extraction/:filename", extractHandler.HandleDeleteExtraction)

	app.Post("/ask_question", askHandler.HandleAskQuestion)
	app.Get("/list_models", modelHandler.HandleListModels)
	app.Get("/conversations/:conversation_id/log", conversationHandler.HandleLog)
	app.Get("/conversations/:conversation_id/:filename", conversationHandler.HandleAudio)

	if err := app.Listen(s.listenAddr); err != nil {
		s.logger.Error("error to start server", "error", err.Error())
		return
	}
}
