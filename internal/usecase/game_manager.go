package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rocketscienceinc/tictactoe-ledger/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-ledger/internal/entity"
	"github.com/rocketscienceinc/tictactoe-ledger/internal/repository"
)

var ErrEmptyIdentity = errors.New("player identity is empty")

type gameRepo interface {
	Create(ctx context.Context, record *entity.GameRecord) error
	GetByID(ctx context.Context, id string) (*entity.GameRecord, error)
	Update(ctx context.Context, id string, fn repository.UpdateFunc) (*entity.GameRecord, error)
	DeleteByID(ctx context.Context, id string) error
}

type gameController interface {
	Start(record *entity.GameRecord, players [2]entity.Identity) error
	Play(record *entity.GameRecord, caller entity.Identity, tile entity.Coordinate) error
}

type recorder interface {
	RecordMove(err error)
	RecordGameStarted()
	RecordOutcome(state entity.GameState)
	ObserveStorage(op string, started time.Time)
}

// GameManager - runs the game controller inside record store transactions.
type GameManager struct {
	logger     *slog.Logger
	gameRepo   gameRepo
	controller gameController
	metrics    recorder
	newID      func() string
}

func NewGameManager(logger *slog.Logger, gameRepo gameRepo, controller gameController, metrics recorder) *GameManager {
	return &GameManager{
		logger: logger.With("component", "game_manager"),

		gameRepo:   gameRepo,
		controller: controller,
		metrics:    metrics,
		newID:      repository.NewGameID,
	}
}

// CreateGame - allocates an uninitialized record.
func (that *GameManager) CreateGame(ctx context.Context) (*entity.GameRecord, error) {
	record := entity.NewGameRecord(that.newID())

	started := time.Now()
	err := that.gameRepo.Create(ctx, record)
	that.metrics.ObserveStorage("create", started)

	if err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	that.logger.Info("game created", "game_id", record.ID)

	return record, nil
}

// StartGame - binds players to the record, the caller has to be one of them.
func (that *GameManager) StartGame(ctx context.Context, gameID string, caller entity.Identity, players [2]entity.Identity) (*entity.GameRecord, error) {
	log := that.logger.With("method", "StartGame", "game_id", gameID, "caller", caller)

	if players[0] == "" || players[1] == "" {
		return nil, ErrEmptyIdentity
	}

	if caller != players[0] && caller != players[1] {
		return nil, apperror.ErrNotAPlayer
	}

	record, err := that.update(ctx, gameID, func(record *entity.GameRecord) error {
		return that.controller.Start(record, players)
	})
	if err != nil {
		log.Debug("start rejected", "error", err)
		return nil, fmt.Errorf("failed to start game: %w", err)
	}

	that.metrics.RecordGameStarted()
	log.Info("game started", "first", players[0], "second", players[1])

	return record, nil
}

// MakeTurn - applies one move by an already authenticated caller.
func (that *GameManager) MakeTurn(ctx context.Context, gameID string, caller entity.Identity, tile entity.Coordinate) (*entity.GameRecord, error) {
	log := that.logger.With("method", "MakeTurn", "game_id", gameID, "caller", caller)

	record, err := that.update(ctx, gameID, func(record *entity.GameRecord) error {
		return that.controller.Play(record, caller, tile)
	})

	if !errors.Is(err, repository.ErrGameNotFound) {
		that.metrics.RecordMove(err)
	}

	if err != nil {
		log.Debug("move rejected", "tile", tile.String(), "error", err)
		return nil, fmt.Errorf("failed to make turn: %w", err)
	}

	if record.IsFinished() {
		that.metrics.RecordOutcome(record.State)

		if winner, ok := record.State.WinnerOf(); ok {
			log.Info("game won", "winner", winner, "turn", record.Turn)
		} else {
			log.Info("game tied", "turn", record.Turn)
		}
	}

	return record, nil
}

func (that *GameManager) GetGame(ctx context.Context, gameID string) (*entity.GameRecord, error) {
	started := time.Now()
	record, err := that.gameRepo.GetByID(ctx, gameID)
	that.metrics.ObserveStorage("get", started)

	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	return record, nil
}

// DeleteGame - removes a record, once started only one of its players may do it.
func (that *GameManager) DeleteGame(ctx context.Context, gameID string, caller entity.Identity) error {
	log := that.logger.With("method", "DeleteGame", "game_id", gameID)

	record, err := that.GetGame(ctx, gameID)
	if err != nil {
		return err
	}

	if record.IsStarted() && !record.HasPlayer(caller) {
		return apperror.ErrNotAPlayer
	}

	started := time.Now()
	err = that.gameRepo.DeleteByID(ctx, gameID)
	that.metrics.ObserveStorage("delete", started)

	if err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}

	log.Info("game deleted", "caller", caller)

	return nil
}

func (that *GameManager) update(ctx context.Context, gameID string, fn repository.UpdateFunc) (*entity.GameRecord, error) {
	started := time.Now()
	defer that.metrics.ObserveStorage("update", started)

	return that.gameRepo.Update(ctx, gameID, fn)
}
