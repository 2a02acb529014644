package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/rocketscienceinc/tictactoe-ledger/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-ledger/internal/entity"
	"github.com/rocketscienceinc/tictactoe-ledger/internal/repository"
	"github.com/rocketscienceinc/tictactoe-ledger/internal/usecase"
)

type uGame interface {
	CreateGame(ctx context.Context) (*entity.GameRecord, error)
	StartGame(ctx context.Context, gameID string, caller entity.Identity, players [2]entity.Identity) (*entity.GameRecord, error)
	MakeTurn(ctx context.Context, gameID string, caller entity.Identity, tile entity.Coordinate) (*entity.GameRecord, error)
	GetGame(ctx context.Context, gameID string) (*entity.GameRecord, error)
	DeleteGame(ctx context.Context, gameID string, caller entity.Identity) error
}

type startRequest struct {
	Players [2]entity.Identity `json:"players"`
}

type gameResponse struct {
	Game *entity.GameRecord `json:"game"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type GameHandlers struct {
	logger *slog.Logger
	uGame  uGame
}

func NewGameHandlers(logger *slog.Logger, uGame uGame) *GameHandlers {
	return &GameHandlers{
		logger: logger.With("component", "rest_games"),
		uGame:  uGame,
	}
}

func (that *GameHandlers) CreateGame(w http.ResponseWriter, r *http.Request) {
	game, err := that.uGame.CreateGame(r.Context())
	if err != nil {
		that.fail(w, "CreateGame", err)
		return
	}

	writeJSON(w, http.StatusCreated, gameResponse{Game: game})
}

func (that *GameHandlers) GetGame(w http.ResponseWriter, r *http.Request) {
	game, err := that.uGame.GetGame(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		that.fail(w, "GetGame", err)
		return
	}

	writeJSON(w, http.StatusOK, gameResponse{Game: game})
}

func (that *GameHandlers) StartGame(w http.ResponseWriter, r *http.Request) {
	caller, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	game, err := that.uGame.StartGame(r.Context(), mux.Vars(r)["id"], caller, req.Players)
	if err != nil {
		that.fail(w, "StartGame", err)
		return
	}

	writeJSON(w, http.StatusOK, gameResponse{Game: game})
}

func (that *GameHandlers) MakeTurn(w http.ResponseWriter, r *http.Request) {
	caller, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var tile entity.Coordinate
	if err := json.NewDecoder(r.Body).Decode(&tile); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	game, err := that.uGame.MakeTurn(r.Context(), mux.Vars(r)["id"], caller, tile)
	if err != nil {
		that.fail(w, "MakeTurn", err)
		return
	}

	writeJSON(w, http.StatusOK, gameResponse{Game: game})
}

func (that *GameHandlers) DeleteGame(w http.ResponseWriter, r *http.Request) {
	caller, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	if err := that.uGame.DeleteGame(r.Context(), mux.Vars(r)["id"], caller); err != nil {
		that.fail(w, "DeleteGame", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (that *GameHandlers) fail(w http.ResponseWriter, method string, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		that.logger.Error("request failed", "method", method, "error", err)
		writeError(w, status, "Internal Server Error")
		return
	}

	writeError(w, status, err.Error())
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, repository.ErrGameNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrAlreadyStarted),
		errors.Is(err, apperror.ErrGameAlreadyOver),
		errors.Is(err, apperror.ErrTileAlreadySet),
		errors.Is(err, apperror.ErrGameIsNotStarted),
		errors.Is(err, repository.ErrTooManyConflicts):
		return http.StatusConflict
	case errors.Is(err, apperror.ErrTileOutOfBounds),
		errors.Is(err, usecase.ErrEmptyIdentity):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrNotPlayersTurn),
		errors.Is(err, apperror.ErrNotAPlayer):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
