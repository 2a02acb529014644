package tictactoe

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-ledger/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-ledger/internal/entity"
)

// Rules - optional engine behaviours, see DefaultRules.
type Rules struct {
	// EnforceTurnOrder rejects a move from anyone but the player to move.
	EnforceTurnOrder bool
	// LegacyFullBoardScan reproduces the board-full check that skips the last column.
	LegacyFullBoardScan bool
}

func DefaultRules() Rules {
	return Rules{EnforceTurnOrder: true}
}

// GameController applies start and play to a record. It holds no state besides its rules,
// callers are expected to serialize calls against the same record.
type GameController struct {
	rules Rules
}

func NewGameController(rules Rules) *GameController {
	return &GameController{rules: rules}
}

// Start - binds two players to a fresh record.
func (that *GameController) Start(record *entity.GameRecord, players [2]entity.Identity) error {
	if record.IsStarted() {
		return fmt.Errorf("%w: turn %d", apperror.ErrAlreadyStarted, record.Turn)
	}

	record.Players = players
	record.Turn = 1

	return nil
}

// Play - places the mark of the player to move on tile.
func (that *GameController) Play(record *entity.GameRecord, caller entity.Identity, tile entity.Coordinate) error {
	if err := that.validateMove(record, caller, tile); err != nil {
		return err
	}

	playerIndex := record.CurrentPlayerIndex()
	record.Board.Set(tile, entity.MarkFor(playerIndex))

	updateGameState(record, playerIndex, that.rules.LegacyFullBoardScan)

	return nil
}

// validateMove - checks the move without touching the record.
func (that *GameController) validateMove(record *entity.GameRecord, caller entity.Identity, tile entity.Coordinate) error {
	if !record.IsStarted() {
		return apperror.ErrGameIsNotStarted
	}

	if record.IsFinished() {
		return apperror.ErrGameAlreadyOver
	}

	if !tile.InBounds() {
		return fmt.Errorf("%w: %s", apperror.ErrTileOutOfBounds, tile)
	}

	if !record.Board.At(tile).IsEmpty() {
		return fmt.Errorf("%w: %s", apperror.ErrTileAlreadySet, tile)
	}

	if that.rules.EnforceTurnOrder && record.CurrentPlayer() != caller {
		return apperror.ErrNotPlayersTurn
	}

	return nil
}

// updateGameState - runs the outcome evaluator after a move, the turn advances only while the game is active.
func updateGameState(record *entity.GameRecord, moverIndex int, legacyScan bool) {
	switch {
	case hasWinningLine(&record.Board):
		record.State = entity.Won(record.Players[moverIndex])
	case isBoardFull(&record.Board, legacyScan):
		record.State = entity.Tie()
	default:
		record.Turn++
	}
}
