package websocket

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-ledger/internal/entity"
)

const (
	actionGameNew   = "game:new"
	actionGameStart = "game:start"
	actionGameTurn  = "game:turn"
	actionGameGet   = "game:get"

	writeTimeout = 10 * time.Second
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type Payload struct {
	GameID  string              `json:"game_id,omitempty"`
	Players *[2]entity.Identity `json:"players,omitempty"`
	Tile    *entity.Coordinate  `json:"tile,omitempty"`
	Game    *entity.GameRecord  `json:"game,omitempty"`
	Error   string              `json:"error,omitempty"`
}

// client - one authenticated connection. gorilla connections allow a single concurrent writer.
type client struct {
	conn     *websocket.Conn
	identity entity.Identity

	writeMutex sync.Mutex
}

func (that *client) sendMessage(action string, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	that.writeMutex.Lock()
	defer that.writeMutex.Unlock()

	if err = that.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	if err = that.conn.WriteJSON(Message{Action: action, Payload: body}); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

func (that *client) sendError(action, errorMsg string) error {
	if err := that.sendMessage(action, Payload{Error: errorMsg}); err != nil {
		return fmt.Errorf("failed to send error response: %w", err)
	}

	return nil
}
