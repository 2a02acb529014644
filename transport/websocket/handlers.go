package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-ledger/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-ledger/internal/entity"
	"github.com/rocketscienceinc/tictactoe-ledger/internal/repository"
	"github.com/rocketscienceinc/tictactoe-ledger/internal/usecase"
)

var clientErrors = []error{
	repository.ErrGameNotFound,
	repository.ErrTooManyConflicts,
	apperror.ErrAlreadyStarted,
	apperror.ErrGameAlreadyOver,
	apperror.ErrTileOutOfBounds,
	apperror.ErrTileAlreadySet,
	apperror.ErrNotPlayersTurn,
	apperror.ErrGameIsNotStarted,
	apperror.ErrNotAPlayer,
	usecase.ErrEmptyIdentity,
}

func (that *Server) handleNewGame(ctx context.Context, c *client, msg *Message) error {
	game, err := that.uGame.CreateGame(ctx)
	if err != nil {
		return that.replyError(c, msg.Action, err)
	}

	return c.sendMessage(msg.Action, Payload{Game: game})
}

func (that *Server) handleStartGame(ctx context.Context, c *client, msg *Message) error {
	var payloadReq Payload
	if err := json.Unmarshal(msg.Payload, &payloadReq); err != nil {
		return c.sendError(msg.Action, "invalid payload")
	}

	if payloadReq.GameID == "" {
		return c.sendError(msg.Action, "game_id is required")
	}

	if payloadReq.Players == nil {
		return c.sendError(msg.Action, "players are required")
	}

	game, err := that.uGame.StartGame(ctx, payloadReq.GameID, c.identity, *payloadReq.Players)
	if err != nil {
		return that.replyError(c, msg.Action, err)
	}

	that.broadcast(c, msg.Action, game)

	return nil
}

func (that *Server) handleGameTurn(ctx context.Context, c *client, msg *Message) error {
	var payloadReq Payload
	if err := json.Unmarshal(msg.Payload, &payloadReq); err != nil {
		return c.sendError(msg.Action, "invalid payload")
	}

	if payloadReq.GameID == "" {
		return c.sendError(msg.Action, "game_id is required")
	}

	if payloadReq.Tile == nil {
		return c.sendError(msg.Action, "tile is required")
	}

	game, err := that.uGame.MakeTurn(ctx, payloadReq.GameID, c.identity, *payloadReq.Tile)
	if err != nil {
		return that.replyError(c, msg.Action, err)
	}

	that.broadcast(c, msg.Action, game)

	return nil
}

func (that *Server) handleGetGame(ctx context.Context, c *client, msg *Message) error {
	var payloadReq Payload
	if err := json.Unmarshal(msg.Payload, &payloadReq); err != nil {
		return c.sendError(msg.Action, "invalid payload")
	}

	game, err := that.uGame.GetGame(ctx, payloadReq.GameID)
	if err != nil {
		return that.replyError(c, msg.Action, err)
	}

	return c.sendMessage(msg.Action, Payload{Game: game})
}

// broadcast - sends the updated record to the sender and to every connected player of the game.
func (that *Server) broadcast(sender *client, action string, game *entity.GameRecord) {
	log := that.logger.With("method", "broadcast", "game_id", game.ID)

	if err := sender.sendMessage(action, Payload{Game: game}); err != nil {
		log.Error("failed to send game update", "identity", sender.identity, "error", err)
	}

	for _, player := range game.Players {
		if player == sender.identity {
			continue
		}

		conn, ok := that.connection(player)
		if !ok {
			continue
		}

		if err := conn.sendMessage(action, Payload{Game: game}); err != nil {
			log.Error("failed to send game update", "identity", player, "error", err)
		}
	}
}

// replyError - rule violations go back to the client verbatim, everything else is hidden.
func (that *Server) replyError(c *client, action string, err error) error {
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return c.sendError(action, err.Error())
		}
	}

	if sendErr := c.sendError(action, "internal error"); sendErr != nil {
		return sendErr
	}

	return fmt.Errorf("%s failed: %w", action, err)
}
