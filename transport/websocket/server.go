package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-ledger/internal/entity"
)

const shutdownTimeout = 5 * time.Second

type uGame interface {
	CreateGame(ctx context.Context) (*entity.GameRecord, error)
	StartGame(ctx context.Context, gameID string, caller entity.Identity, players [2]entity.Identity) (*entity.GameRecord, error)
	MakeTurn(ctx context.Context, gameID string, caller entity.Identity, tile entity.Coordinate) (*entity.GameRecord, error)
	GetGame(ctx context.Context, gameID string) (*entity.GameRecord, error)
}

type authService interface {
	ParseToken(token string) (entity.Identity, error)
}

type handlerFunc func(ctx context.Context, client *client, msg *Message) error

type Server struct {
	logger   *slog.Logger
	uGame    uGame
	auth     authService
	upgrader websocket.Upgrader

	handlers map[string]handlerFunc

	connectionsMutex sync.RWMutex
	connections      map[entity.Identity]*client
	sessions         map[*client]struct{}
	closed           bool

	sessionsWG sync.WaitGroup
}

func New(logger *slog.Logger, uGame uGame, auth authService) *Server {
	server := &Server{
		logger: logger.With("component", "websocket"),
		uGame:  uGame,
		auth:   auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(*http.Request) bool {
				return true
			},
		},

		handlers:    make(map[string]handlerFunc),
		connections: make(map[entity.Identity]*client),
		sessions:    make(map[*client]struct{}),
	}

	server.handlers[actionGameNew] = server.handleNewGame
	server.handlers[actionGameStart] = server.handleStartGame
	server.handlers[actionGameTurn] = server.handleGameTurn
	server.handlers[actionGameGet] = server.handleGetGame

	return server
}

// Handler - the /ws endpoint, also used directly by tests.
func (that *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.upgradeToWebSocket(ctx, w, r)
	})

	return mux
}

// Start - starts WebSocket server.
func (that *Server) Start(ctx context.Context, port string) error {
	ln, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	return that.Serve(ctx, ln)
}

// Serve - on cancellation closes every open connection and returns once their handlers exit.
func (that *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:     that.Handler(ctx),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 30 * time.Second,
	}
	srv.RegisterOnShutdown(that.closeSessions)

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)

		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shutdown WebSocket server", "error", err)
		}
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	<-shutdownDone
	that.sessionsWG.Wait()

	return nil
}

// upgradeToWebSocket - authenticates the token query parameter and upgrades the connection.
func (that *Server) upgradeToWebSocket(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "upgradeToWebSocket")

	that.sessionsWG.Add(1)
	defer that.sessionsWG.Done()

	identity, err := that.auth.ParseToken(r.URL.Query().Get("token"))
	if err != nil {
		log.Debug("rejected token", "error", err)
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	c := &client{conn: conn, identity: identity}
	if !that.register(c) {
		_ = conn.Close()
		return
	}

	defer func() {
		that.unregister(c)
		conn.Close()
	}()

	log.Info("WebSocket connection established", "identity", identity)

	if err = that.handleMessages(ctx, c); err != nil {
		log.Debug("connection closed", "identity", identity, "error", err)
	}
}

// handleMessages - processes messages from the client until the connection drops.
func (that *Server) handleMessages(ctx context.Context, c *client) error {
	log := that.logger.With("method", "handleMessages", "identity", c.identity)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("failed to read message: %w", err)
		}

		var message Message
		if err = json.Unmarshal(data, &message); err != nil {
			log.Debug("failed to unmarshal message", "error", err)

			if err = c.sendError("", "malformed message"); err != nil {
				return err
			}

			continue
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			if err = c.sendError(message.Action, "unknown action"); err != nil {
				return err
			}

			continue
		}

		if err = handler(ctx, c, &message); err != nil {
			log.Error("error processing message", "action", message.Action, "error", err)
		}
	}
}

// register - false once the server is shutting down.
func (that *Server) register(c *client) bool {
	that.connectionsMutex.Lock()
	defer that.connectionsMutex.Unlock()

	if that.closed {
		return false
	}

	that.connections[c.identity] = c
	that.sessions[c] = struct{}{}

	return true
}

func (that *Server) unregister(c *client) {
	that.connectionsMutex.Lock()
	defer that.connectionsMutex.Unlock()

	if that.connections[c.identity] == c {
		delete(that.connections, c.identity)
	}
	delete(that.sessions, c)
}

// closeSessions - unblocks every read loop, hijacked connections are not closed by http.Server.Shutdown.
func (that *Server) closeSessions() {
	that.connectionsMutex.Lock()
	defer that.connectionsMutex.Unlock()

	that.closed = true
	for c := range that.sessions {
		_ = c.conn.Close()
	}
}

func (that *Server) connection(identity entity.Identity) (*client, bool) {
	that.connectionsMutex.RLock()
	defer that.connectionsMutex.RUnlock()

	c, ok := that.connections[identity]

	return c, ok
}
