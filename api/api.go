package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/consolechat/api/worker"
	"github.com/papercomputeco/consolechat/pkg/auth"
	"github.com/papercomputeco/consolechat/pkg/eventstream"
	"github.com/papercomputeco/consolechat/pkg/llm"
	"github.com/papercomputeco/consolechat/pkg/llm/provider"
	"github.com/papercomputeco/consolechat/pkg/logger"
	"github.com/papercomputeco/consolechat/pkg/storage"
)

// Server is the chat backend.
type Server struct {
	config     Config
	driver     storage.Driver
	auth       *auth.Service
	workerPool *worker.Pool
	logger     *slog.Logger
	app        *fiber.App
}

// NewServer creates a new API server.
// The driver is injected to allow sharing with other components (e.g. the
// websocket endpoint). The publisher may be nil.
func NewServer(config Config, driver storage.Driver, authSvc *auth.Service, publisher eventstream.Publisher, log *slog.Logger) (*Server, error) {
	if driver == nil {
		return nil, errors.New("storage driver is required")
	}
	if authSvc == nil {
		return nil, errors.New("auth service is required")
	}
	if log == nil {
		log = logger.Nop()
	}
	if config.DefaultPlatform == "" {
		config.DefaultPlatform = llm.DefaultPlatform
	}
	if config.SystemPrompt == "" {
		config.SystemPrompt = DefaultSystemPrompt
	}
	if config.Streamers == nil {
		config.Streamers = EnvStreamers(config.DefaultPlatform, "")
	}

	wp, err := worker.NewPool(&worker.Config{
		Driver:     driver,
		Publisher:  publisher,
		NumWorkers: config.NumWorkers,
		Logger:     log,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create worker pool: %w", err)
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:     config,
		driver:     driver,
		auth:       authSvc,
		workerPool: wp,
		logger:     log,
		app:        app,
	}

	app.Get("/ping", s.handlePing)

	chat := app.Group("/chat", s.requireAuth)
	chat.Post("/stream", s.handleChatStream)
	chat.Post("/conversations", s.handleCreateConversation)
	chat.Get("/conversations", s.handleListConversations)
	chat.Get("/messages", s.handleListMessages)

	ai := app.Group("/ai", s.requireAuth)
	ai.Post("/stream", s.handlePromptStream)

	return s, nil
}

// EnvStreamers resolves platforms with provider.FromEnv, so API keys come
// from each platform's environment variable. upstream, when set, replaces
// the base URL of defaultPlatform only; other platforms keep their own.
func EnvStreamers(defaultPlatform llm.Platform, upstream string) StreamerFactory {
	return func(p llm.Platform) (llm.Streamer, error) {
		var opts llm.Options
		if p == defaultPlatform {
			opts.Upstream = upstream
		}
		return provider.FromEnv(p, opts)
	}
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
		"default_platform", s.config.DefaultPlatform,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// RunWithListener starts the API server using the provided listener.
func (s *Server) RunWithListener(listener net.Listener) error {
	s.logger.Info("starting API server",
		"listen", listener.Addr().String(),
		"default_platform", s.config.DefaultPlatform,
	)
	return s.app.Listener(listener)
}

// Shutdown stops the HTTP server and waits for queued replies to be stored.
// It waits for in-flight streams without a deadline.
func (s *Server) Shutdown() error {
	return s.ShutdownWithContext(context.Background())
}

// ShutdownWithContext is Shutdown bounded by ctx. Streams still open when
// ctx ends are abandoned and their replies are not stored.
func (s *Server) ShutdownWithContext(ctx context.Context) error {
	err := s.app.ShutdownWithContext(ctx)
	s.workerPool.Close()
	return err
}
