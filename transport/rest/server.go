package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	logger *slog.Logger
	router *mux.Router
}

// New - builds the HTTP API. metricsHandler may be nil.
func New(logger *slog.Logger, uGame uGame, auth authService, metricsHandler http.Handler) *Server {
	router := mux.NewRouter()

	ping := NewPingHandler()
	router.HandleFunc("/ping", ping.PingHandler).Methods(http.MethodGet)

	if metricsHandler != nil {
		router.Handle("/metrics", metricsHandler).Methods(http.MethodGet)
	}

	games := NewGameHandlers(logger, uGame)

	router.HandleFunc("/games/{id}", games.GetGame).Methods(http.MethodGet)

	requireAuth := authMiddleware(logger, auth)
	router.Handle("/games", requireAuth(http.HandlerFunc(games.CreateGame))).Methods(http.MethodPost)
	router.Handle("/games/{id}/start", requireAuth(http.HandlerFunc(games.StartGame))).Methods(http.MethodPost)
	router.Handle("/games/{id}/moves", requireAuth(http.HandlerFunc(games.MakeTurn))).Methods(http.MethodPost)
	router.Handle("/games/{id}", requireAuth(http.HandlerFunc(games.DeleteGame))).Methods(http.MethodDelete)

	return &Server{
		logger: logger.With("component", "rest"),
		router: router,
	}
}

func (that *Server) Handler() http.Handler {
	return that.router
}

// Start - serves until ctx is canceled, then shuts down gracefully.
func (that *Server) Start(ctx context.Context, port string) error {
	ln, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	return that.Serve(ctx, ln)
}

// Serve - returns once in-flight requests are drained or the shutdown timeout expires.
func (that *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      that.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)

		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shutdown HTTP server", "error", err)
		}
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	<-shutdownDone

	return nil
}
