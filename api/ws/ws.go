// Package ws serves the websocket chat endpoint. Each text frame
// {"message": "..."} is answered with one {"is_streaming":true,"message":<delta>}
// frame per reply delta followed by {"done":true}. Nothing is stored.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/papercomputeco/consolechat/api"
	"github.com/papercomputeco/consolechat/pkg/auth"
	"github.com/papercomputeco/consolechat/pkg/llm"
	"github.com/papercomputeco/consolechat/pkg/logger"
)

const (
	// Path is where the endpoint is mounted.
	Path = "/ws/chat"

	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	writeWait  = 10 * time.Second
	readLimit  = 64 * 1024
)

// Config configures the websocket endpoint.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8082")
	ListenAddr string

	// Platform serves every prompt (defaults to llm.DefaultPlatform).
	Platform llm.Platform

	// SystemPrompt opens every context (defaults to api.DefaultSystemPrompt).
	SystemPrompt string

	Streamers api.StreamerFactory

	// Auth verifies the token passed as ?token= or a bearer header. A nil
	// Auth accepts anonymous connections.
	Auth *auth.Service
}

// Inbound is a frame sent by the client.
type Inbound struct {
	Message string `json:"message"`
}

// Outbound is a frame sent to the client.
type Outbound struct {
	IsStreaming bool   `json:"is_streaming,omitempty"`
	Message     string `json:"message,omitempty"`
	Done        bool   `json:"done,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Server is the websocket endpoint and its listener.
type Server struct {
	config   Config
	logger   *slog.Logger
	upgrader websocket.Upgrader
	http     *http.Server
}

// NewServer creates the websocket endpoint.
func NewServer(config Config, log *slog.Logger) (*Server, error) {
	if config.Streamers == nil {
		return nil, errors.New("streamer factory is required")
	}
	if config.Platform == "" {
		config.Platform = llm.DefaultPlatform
	}
	if config.SystemPrompt == "" {
		config.SystemPrompt = api.DefaultSystemPrompt
	}
	if log == nil {
		log = logger.Nop()
	}

	s := &Server{
		config: config,
		logger: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Console pages are served from another origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.Handle(Path, s)
	s.http = &http.Server{
		Addr:              config.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Run listens on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting websocket server", "listen", s.config.ListenAddr, "path", Path)
	return s.http.ListenAndServe()
}

// RunWithListener serves on the provided listener.
func (s *Server) RunWithListener(listener net.Listener) error {
	s.logger.Info("starting websocket server", "listen", listener.Addr().String(), "path", Path)
	return s.http.Serve(listener)
}

// Shutdown stops accepting connections.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// ServeHTTP upgrades the connection and serves prompts until the client
// hangs up.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.config.Auth != nil {
		if _, err := s.config.Auth.Verify(requestToken(r)); err != nil {
			http.Error(w, "invalid or expired token", http.StatusUnauthorized)
			return
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn.SetReadLimit(readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	frames := make(chan Inbound)
	go s.readPump(ctx, cancel, conn, frames)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := ping(conn); err != nil {
				return
			}
		case in := <-frames:
			if err := s.answer(ctx, conn, in.Message, ticker.C); err != nil {
				s.logger.Debug("websocket write failed", "error", err)
				return
			}
		}
	}
}

// readPump is the connection's only reader.
func (s *Server) readPump(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, frames chan<- Inbound) {
	defer cancel()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read failed", "error", err)
			}
			return
		}

		var in Inbound
		if err := json.Unmarshal(data, &in); err != nil {
			// Non-JSON frames are treated as a bare prompt.
			in.Message = string(data)
		}
		if strings.TrimSpace(in.Message) == "" {
			continue
		}

		select {
		case frames <- in:
		case <-ctx.Done():
			return
		}
	}
}

// answer streams the reply to one prompt. Pings due while the reply streams
// are sent between deltas so the read deadline keeps moving.
func (s *Server) answer(ctx context.Context, conn *websocket.Conn, prompt string, pings <-chan time.Time) error {
	streamer, err := s.config.Streamers(s.config.Platform)
	if err != nil {
		s.logger.Error("failed to create streamer", "platform", s.config.Platform, "error", err)
		return s.write(conn, Outbound{Error: "platform unavailable", Done: true})
	}

	messages := []llm.Message{
		llm.NewTextMessage(llm.RoleSystem, s.config.SystemPrompt),
		llm.NewTextMessage(llm.RoleUser, prompt),
	}
	for delta, err := range streamer.StreamChat(ctx, messages) {
		if err != nil {
			s.logger.Error("upstream stream failed", "platform", streamer.Name(), "error", err)
			return s.write(conn, Outbound{Error: err.Error(), Done: true})
		}
		if delta == "" {
			continue
		}
		if err := s.write(conn, Outbound{IsStreaming: true, Message: delta}); err != nil {
			return err
		}

		select {
		case <-pings:
			if err := ping(conn); err != nil {
				return err
			}
		default:
		}
	}
	return s.write(conn, Outbound{Done: true})
}

func ping(conn *websocket.Conn) error {
	return conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (s *Server) write(conn *websocket.Conn, out Outbound) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(out)
}

func requestToken(r *http.Request) string {
	if tok := r.URL.Query().Get("token"); tok != "" {
		return tok
	}
	tok, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return tok
}
