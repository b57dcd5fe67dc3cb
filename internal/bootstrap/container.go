package bootstrap

import (
	"context"
	"fmt"
	"time"

	"nous-core/internal/config"
	"nous-core/internal/controller"
	"nous-core/internal/handler"
	"nous-core/internal/pkg/logger"
	"nous-core/internal/repository/implementation"
	"nous-core/internal/repository/memory"
	"nous-core/internal/service"
	"nous-core/internal/websocket"
	"nous-core/pkg/database"
	"nous-core/pkg/gateway"
	"nous-core/pkg/gemini"
	"nous-core/pkg/llm"
	"nous-core/pkg/llm/factory"
	"nous-core/pkg/mediatools"
	pktNats "nous-core/pkg/nats"
	"nous-core/pkg/payload"
	"nous-core/pkg/youtube"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	// Controllers
	GenerationController controller.IGenerationController
	MediaController      controller.IMediaController
	ChatController       controller.IChatController

	// Background Services (Exposed for main.go to run)
	GenerationService service.IGenerationService
	ChatbotService    service.IChatbotService
	ConsumerService   service.IConsumerService

	// WebSockets
	StreamHandler *handler.StreamHandler
	ProgressHub   *websocket.Hub
	ChatHub       *websocket.Hub

	Logger logger.ILogger

	closers []func()
}

// lessonBackend is where finished lessons and their media end up.
type lessonBackend struct {
	lessons gateway.LessonStore
	media   gateway.MediaUploader
}

func NewContainer(ctx context.Context, cfg *config.Config, sysLogger logger.ILogger) (*Container, error) {
	c := &Container{Logger: sysLogger}

	// 1. Prompts
	foundation, err := config.LoadFoundationPrompt(cfg.Prompts.FoundationFile)
	if err != nil {
		sysLogger.Warn("BOOTSTRAP", "Using default foundation prompt", map[string]interface{}{"error": err.Error()})
	}
	chatPrompts, err := config.LoadChatPrompts(cfg.Prompts.ChatbotFile)
	if err != nil {
		sysLogger.Warn("BOOTSTRAP", "Using default chat prompts", map[string]interface{}{"error": err.Error()})
	}

	// 2. Lesson backend
	backend, err := c.newLessonBackend(cfg)
	if err != nil {
		return nil, err
	}

	// 3. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 4. Infrastructure
	// NATS
	var eventPublisher service.EventPublisher
	if cfg.Nats.URL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.Nats.URL, sysLogger)
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "Failed to connect to NATS Publisher", map[string]interface{}{"error": err.Error()})
		} else {
			eventPublisher = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}
	}

	// Redis
	var rdb *redis.Client
	if cfg.Redis.URL != "" {
		opt, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err.Error()})
			opt = &redis.Options{Addr: cfg.Redis.URL}
		}
		rdb = redis.NewClient(opt)
		if err := rdb.Ping(ctx).Err(); err != nil {
			sysLogger.Warn("BOOTSTRAP", "Failed to connect to Redis", map[string]interface{}{"error": err.Error()})
		}
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	// WebSocket Hubs
	c.ProgressHub = websocket.NewHub("progress", rdb, sysLogger)
	c.ChatHub = websocket.NewHub("chat", rdb, sysLogger)

	// 5. AI collaborators
	geminiClient := gemini.NewClient(gemini.Config{
		APIKey:       cfg.Gemini.APIKey,
		BaseURL:      cfg.Gemini.BaseURL,
		Model:        cfg.Gemini.Model,
		KeywordModel: cfg.Gemini.KeywordModel,
		Timeout:      cfg.Gemini.Timeout,
	})
	videoSearcher, err := youtube.NewSearcher(ctx, cfg.YouTube.APIKey)
	if err != nil {
		return nil, fmt.Errorf("youtube client: %w", err)
	}
	tools := mediatools.New(mediatools.Config{
		YtDlpPath:   cfg.Storage.YtDlpPath,
		EdgeTTSPath: cfg.Storage.EdgeTTSPath,
		Voice:       cfg.Storage.Voice,
		Timeout:     10 * time.Minute,
	})
	pipeline := gateway.NewGateway(gateway.Collaborators{
		Extractor: geminiClient,
		Narrator:  geminiClient,
		Keywords:  geminiClient,
		Videos:    videoSearcher,
		Speech:    tools,
	}, gateway.Config{
		ExtractionAttempts: cfg.Pipeline.ExtractionAttempts,
		RequestsPerMinute:  cfg.Pipeline.RequestsPerMinute,
	})

	var llmProvider llm.LLMProvider
	if cfg.LLM.Enabled {
		llmProvider, err = factory.NewLLMProvider(factory.Settings{
			Provider:    cfg.LLM.Provider,
			Model:       cfg.LLM.Model,
			BaseURL:     cfg.LLM.BaseURL,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
		})
		if err != nil {
			return nil, err
		}
		sysLogger.Info("BOOTSTRAP", "Using LLM Provider", map[string]interface{}{"provider": cfg.LLM.Provider, "model": cfg.LLM.Model})
	} else {
		sysLogger.Info("BOOTSTRAP", "Local LLM disabled, chat answers with the fallback reply", nil)
	}

	// 6. Services
	eventService := service.NewEventService(eventPublisher, sysLogger)
	publisherService := service.NewPublisherService(pubSub)
	c.ConsumerService = service.NewConsumerService(
		pubSub,
		[]string{cfg.Storage.TempDir, cfg.Storage.MediaDir},
		sysLogger,
	)

	c.GenerationService = service.NewGenerationService(
		pipeline,
		memory.NewProgressRepository(),
		c.ProgressHub,
		publisherService,
		eventService,
		foundation,
		service.GenerationConfig{
			TempDir:       cfg.Storage.TempDir,
			MediaDir:      cfg.Storage.MediaDir,
			ProgressTTL:   cfg.Pipeline.ProgressTTL,
			SweepInterval: cfg.Pipeline.SweepInterval,
		},
		sysLogger,
	)
	assemblerService := service.NewAssemblerService(
		tools,
		backend.media,
		backend.lessons,
		eventService,
		service.AssemblerConfig{
			MediaDir:            cfg.Storage.MediaDir,
			DownloadConcurrency: cfg.Pipeline.DownloadConcurrency,
		},
		sysLogger,
	)
	c.ChatbotService = service.NewChatbotService(
		llmProvider,
		backend.lessons,
		memory.NewChatSessionRepository(cfg.Pipeline.ChatTTL, cfg.Pipeline.ChatCleanupInterval),
		c.ChatHub,
		chatPrompts,
		sysLogger,
	)
	mediaService := service.NewMediaService(videoSearcher)

	// 7. Controllers & Handlers
	c.GenerationController = controller.NewGenerationController(c.GenerationService, assemblerService)
	c.MediaController = controller.NewMediaController(mediaService)
	c.ChatController = controller.NewChatController(c.ChatbotService)
	c.StreamHandler = handler.NewStreamHandler(c.GenerationService, c.ChatbotService, c.ProgressHub, c.ChatHub, sysLogger)

	return c, nil
}

func (c *Container) newLessonBackend(cfg *config.Config) (*lessonBackend, error) {
	switch cfg.Storage.LessonBackend {
	case "payload", "":
		client := payload.NewClient(cfg.Payload.BaseURL)
		c.Logger.Info("BOOTSTRAP", "Using Payload lesson backend", map[string]interface{}{"base_url": cfg.Payload.BaseURL})
		return &lessonBackend{lessons: client, media: client}, nil
	case "local":
		db, err := database.NewGormDB(database.GormConfig{
			Driver: cfg.Database.Driver,
			DSN:    cfg.Database.Connection,
			Debug:  cfg.Database.Debug,
		})
		if err != nil {
			return nil, fmt.Errorf("lesson database: %w", err)
		}
		if sqlDB, err := db.DB(); err == nil {
			c.closers = append(c.closers, func() { _ = sqlDB.Close() })
		}
		c.Logger.Info("BOOTSTRAP", "Using local lesson backend", map[string]interface{}{"driver": cfg.Database.Driver})
		return &lessonBackend{
			lessons: implementation.NewLessonRepository(db),
			media:   implementation.NewMediaRepository(db, cfg.Storage.LibraryDir),
		}, nil
	}
	return nil, fmt.Errorf("unsupported lesson backend: %s", cfg.Storage.LessonBackend)
}

// Close releases broker and database connections in reverse order.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}
