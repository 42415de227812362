// Package servecmder provides the serve command, which runs the chat backend
// and, optionally, the websocket endpoint.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/consolechat/api"
	"github.com/papercomputeco/consolechat/api/ws"
	"github.com/papercomputeco/consolechat/pkg/auth"
	"github.com/papercomputeco/consolechat/pkg/config"
	"github.com/papercomputeco/consolechat/pkg/credentials"
	"github.com/papercomputeco/consolechat/pkg/eventstream"
	"github.com/papercomputeco/consolechat/pkg/eventstream/kafka"
	"github.com/papercomputeco/consolechat/pkg/eventstream/nop"
	"github.com/papercomputeco/consolechat/pkg/llm"
	"github.com/papercomputeco/consolechat/pkg/logger"
	"github.com/papercomputeco/consolechat/pkg/storage"
	"github.com/papercomputeco/consolechat/pkg/storage/inmemory"
	"github.com/papercomputeco/consolechat/pkg/storage/postgres"
	"github.com/papercomputeco/consolechat/pkg/storage/sqlite"
)

const serveLongDesc string = `Run the chat backend.

Serves conversation bookkeeping and token streams over HTTP, and a stateless
websocket endpoint when --ws-listen is set. Conversations are stored in
PostgreSQL (--postgres), SQLite (--sqlite) or memory, in that order of
preference. Stored assistant replies are published to Kafka when
--kafka-brokers is set.

Platform API keys are read from DEEPSEEK_API_KEY, DASHSCOPE_API_KEY,
OPENAI_API_KEY and GOOGLE_API_KEY. A .env file in the working directory (or
--env-file) is loaded first, then keys stored with "consolechat auth".
Neither overrides variables already set.

Examples:
  consolechat serve --jwt-secret s3cret
  consolechat serve --sqlite ./chat.db --ws-listen :8082
  consolechat serve --postgres postgres://chat@localhost/chat --kafka-brokers localhost:9092`

const serveShortDesc string = "Run the chat backend"

const shutdownTimeout = 10 * time.Second

var serveRegistryKeys = []string{
	config.FlagListen,
	config.FlagWSListen,
	config.FlagJWTSecret,
	config.FlagWorkers,
	config.FlagSQLite,
	config.FlagPostgres,
	config.FlagDefaultPlatform,
	config.FlagUpstream,
	config.FlagKafkaBrokers,
	config.FlagKafkaTopic,
}

type serveCommander struct {
	listen          string
	wsListen        string
	jwtSecret       string
	workers         uint
	sqlitePath      string
	postgresDSN     string
	defaultPlatform string
	upstream        string
	kafkaBrokers    string
	kafkaTopic      string

	configDir    string
	systemPrompt string
	envFile      string
	logFile      string
	jsonLogs     bool
	debug        bool

	stdout io.Writer
	logger *slog.Logger
}

func NewServeCmd() *cobra.Command {
	return newServeCmd(&serveCommander{})
}

func newServeCmd(cmder *serveCommander) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadEnvFile(cmder.envFile); err != nil {
				return err
			}

			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.ServerFlags, serveRegistryKeys)

			cmder.listen = v.GetString("server.listen")
			cmder.wsListen = v.GetString("server.ws_listen")
			cmder.jwtSecret = v.GetString("server.jwt_secret")
			cmder.workers = v.GetUint("server.workers")
			cmder.sqlitePath = v.GetString("storage.sqlite_path")
			cmder.postgresDSN = v.GetString("storage.postgres_dsn")
			cmder.defaultPlatform = v.GetString("llm.default_platform")
			cmder.upstream = v.GetString("llm.upstream")
			cmder.kafkaBrokers = v.GetString("events.kafka_brokers")
			cmder.kafkaTopic = v.GetString("events.kafka_topic")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.stdout = cmd.OutOrStdout()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return cmder.run(ctx)
		},
	}

	config.AddStringFlag(cmd, config.ServerFlags, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, config.ServerFlags, config.FlagWSListen, &cmder.wsListen)
	config.AddStringFlag(cmd, config.ServerFlags, config.FlagJWTSecret, &cmder.jwtSecret)
	config.AddUintFlag(cmd, config.ServerFlags, config.FlagWorkers, &cmder.workers)
	config.AddStringFlag(cmd, config.ServerFlags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.ServerFlags, config.FlagPostgres, &cmder.postgresDSN)
	config.AddStringFlag(cmd, config.ServerFlags, config.FlagDefaultPlatform, &cmder.defaultPlatform)
	config.AddStringFlag(cmd, config.ServerFlags, config.FlagUpstream, &cmder.upstream)
	config.AddStringFlag(cmd, config.ServerFlags, config.FlagKafkaBrokers, &cmder.kafkaBrokers)
	config.AddStringFlag(cmd, config.ServerFlags, config.FlagKafkaTopic, &cmder.kafkaTopic)

	cmd.Flags().StringVar(&cmder.systemPrompt, "system-prompt", api.DefaultSystemPrompt, "System message that opens every conversation")
	cmd.Flags().StringVar(&cmder.envFile, "env-file", "", "Load environment variables from this file instead of ./.env")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")
	cmd.Flags().BoolVar(&cmder.jsonLogs, "json", false, "Write JSON logs to stdout")

	return cmd
}

func (c *serveCommander) run(ctx context.Context) error {
	closeLog, err := c.setupLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	authSvc, err := auth.NewService(c.jwtSecret)
	if err != nil {
		return fmt.Errorf("%w (set --jwt-secret or CONSOLECHAT_SERVER_JWT_SECRET)", err)
	}

	if err := c.exportCredentials(); err != nil {
		return err
	}

	driver, err := c.newStorageDriver(ctx)
	if err != nil {
		return err
	}
	defer driver.Close()

	publisher, err := c.newPublisher()
	if err != nil {
		return err
	}
	defer publisher.Close()

	platform := llm.ParsePlatform(c.defaultPlatform)
	streamers := api.EnvStreamers(platform, c.upstream)

	apiServer, err := api.NewServer(api.Config{
		ListenAddr:      c.listen,
		DefaultPlatform: platform,
		SystemPrompt:    c.systemPrompt,
		Streamers:       streamers,
		NumWorkers:      c.workers,
	}, driver, authSvc, publisher, c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	errChan := make(chan error, 2)

	go func() {
		if err := apiServer.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	var wsServer *ws.Server
	if c.wsListen != "" {
		wsServer, err = ws.NewServer(ws.Config{
			ListenAddr:   c.wsListen,
			Platform:     platform,
			SystemPrompt: c.systemPrompt,
			Streamers:    streamers,
			Auth:         authSvc,
		}, c.logger)
		if err != nil {
			_ = apiServer.Shutdown()
			return fmt.Errorf("creating websocket server: %w", err)
		}

		go func() {
			if err := wsServer.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- fmt.Errorf("websocket server error: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case runErr = <-errChan:
	case <-ctx.Done():
		c.logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if wsServer != nil {
		if err := wsServer.Shutdown(shutdownCtx); err != nil {
			c.logger.Warn("websocket shutdown failed", "error", err)
		}
	}
	if err := apiServer.ShutdownWithContext(shutdownCtx); err != nil {
		c.logger.Warn("API server shutdown failed", "error", err)
	}

	return runErr
}

// setupLogger builds the console logger and, with --log-file, fans records
// out to a JSON file as well. The returned func closes the file.
func (c *serveCommander) setupLogger() (func(), error) {
	out := c.stdout
	if out == nil {
		out = os.Stdout
	}

	console := logger.New(
		logger.WithWriter(out),
		logger.WithDebug(c.debug),
		logger.WithJSON(c.jsonLogs),
		logger.WithPretty(!c.jsonLogs),
	)

	if c.logFile == "" {
		c.logger = console
		return func() {}, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	file := logger.New(
		logger.WithWriter(f),
		logger.WithDebug(c.debug),
		logger.WithJSON(true),
	)
	c.logger = logger.Multi(console, file)

	return func() { _ = f.Close() }, nil
}

func (c *serveCommander) newStorageDriver(ctx context.Context) (storage.Driver, error) {
	switch {
	case c.postgresDSN != "":
		driver, err := postgres.NewDriver(ctx, c.postgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL driver: %w", err)
		}
		c.logger.Info("using PostgreSQL storage")
		return driver, nil

	case c.sqlitePath != "":
		driver, err := sqlite.NewDriver(ctx, c.sqlitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite driver: %w", err)
		}
		c.logger.Info("using SQLite storage", "path", c.sqlitePath)
		return driver, nil

	default:
		c.logger.Info("using in-memory storage")
		return inmemory.NewDriver(), nil
	}
}

func (c *serveCommander) newPublisher() (eventstream.Publisher, error) {
	if c.kafkaBrokers == "" {
		return nop.NewPublisher(), nil
	}

	p, err := kafka.NewPublisher(kafka.Config{
		Brokers: c.kafkaBrokers,
		Topic:   c.kafkaTopic,
	})
	if err != nil {
		return nil, fmt.Errorf("creating kafka publisher: %w", err)
	}
	c.logger.Info("publishing message events", "brokers", c.kafkaBrokers, "topic", c.kafkaTopic)
	return p, nil
}

// exportCredentials exports the platform keys stored by "consolechat auth".
func (c *serveCommander) exportCredentials() error {
	mgr, err := credentials.NewManager(c.configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	exported, err := mgr.ExportEnv()
	if err != nil {
		return fmt.Errorf("exporting credentials: %w", err)
	}
	if len(exported) > 0 {
		c.logger.Debug("exported stored credentials", "vars", exported)
	}
	return nil
}

// loadEnvFile loads path, or ./.env when path is empty. A missing ./.env is
// not an error.
func loadEnvFile(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("loading env file: %w", err)
		}
		return nil
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}
