package entity

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	// BoardSize - number of rows and columns on the board.
	BoardSize = 3

	BorderMin = 0
	BorderMax = BoardSize - 1
)

const (
	StatusActive = "active"
	StatusTie    = "tie"
	StatusWon    = "won"
)

var (
	ErrUnknownMark   = errors.New("unknown mark")
	ErrUnknownStatus = errors.New("unknown game status")
)

// Identity - opaque id of a participant, verified by the caller before it reaches the engine.
type Identity string

// Mark - symbol a player places on the board.
type Mark uint8

const (
	First  Mark = 1
	Second Mark = 2
)

func (that Mark) String() string {
	switch that {
	case First:
		return "X"
	case Second:
		return "O"
	default:
		return ""
	}
}

// Cell - board position, the zero value is empty.
type Cell struct {
	mark Mark
}

func MarkedCell(mark Mark) Cell {
	return Cell{mark: mark}
}

func (that Cell) IsEmpty() bool {
	return that.mark == 0
}

// Mark returns the mark held by the cell, ok is false for an empty cell.
func (that Cell) Mark() (Mark, bool) {
	return that.mark, that.mark != 0
}

func (that Cell) MarshalJSON() ([]byte, error) {
	if that.IsEmpty() {
		return []byte("null"), nil
	}

	return json.Marshal(that.mark.String())
}

func (that *Cell) UnmarshalJSON(data []byte) error {
	var value *string
	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("failed to unmarshal cell: %w", err)
	}

	switch {
	case value == nil, *value == "":
		that.mark = 0
	case *value == First.String():
		that.mark = First
	case *value == Second.String():
		that.mark = Second
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMark, *value)
	}

	return nil
}

// Coordinate - (row, column) pair addressing a cell.
type Coordinate struct {
	Row    uint32 `json:"row"`
	Column uint32 `json:"column"`
}

func (that Coordinate) InBounds() bool {
	return that.Row <= BorderMax && that.Column <= BorderMax
}

func (that Coordinate) String() string {
	return fmt.Sprintf("(%d,%d)", that.Row, that.Column)
}

// Board - fixed 3x3 grid indexed by [row][column].
type Board [BoardSize][BoardSize]Cell

func (that *Board) At(tile Coordinate) Cell {
	return that[tile.Row][tile.Column]
}

func (that *Board) Set(tile Coordinate, mark Mark) {
	that[tile.Row][tile.Column] = MarkedCell(mark)
}

// GameState - Active, Tie or Won. Winner is set only for Won.
type GameState struct {
	Status string    `json:"status"`
	Winner *Identity `json:"winner,omitempty"`
}

func Active() GameState {
	return GameState{Status: StatusActive}
}

func Tie() GameState {
	return GameState{Status: StatusTie}
}

func Won(winner Identity) GameState {
	return GameState{Status: StatusWon, Winner: &winner}
}

func (that GameState) IsActive() bool {
	// the zero value of a fresh record counts as active
	return that.Status == StatusActive || that.Status == ""
}

func (that GameState) IsTie() bool {
	return that.Status == StatusTie
}

// WinnerOf returns the winner when the game was won.
func (that GameState) WinnerOf() (Identity, bool) {
	if that.Status != StatusWon || that.Winner == nil {
		return "", false
	}

	return *that.Winner, true
}

// UnmarshalJSON rejects stored states that no sequence of moves can produce.
func (that *GameState) UnmarshalJSON(data []byte) error {
	type rawState GameState

	var state rawState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("failed to unmarshal game state: %w", err)
	}

	if err := GameState(state).Validate(); err != nil {
		return err
	}

	*that = GameState(state)

	return nil
}

func (that GameState) Validate() error {
	switch that.Status {
	case "", StatusActive, StatusTie:
		if that.Winner != nil {
			return fmt.Errorf("%w: winner set on %q", ErrUnknownStatus, that.Status)
		}
		return nil
	case StatusWon:
		if that.Winner == nil {
			return fmt.Errorf("%w: won without winner", ErrUnknownStatus)
		}
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnknownStatus, that.Status)
	}
}

// GameRecord - persisted game. Turn is the 1-based move counter, 0 means not started.
type GameRecord struct {
	ID      string      `json:"id"`
	Players [2]Identity `json:"players"`
	Turn    uint32      `json:"turn"`
	Board   Board       `json:"board"`
	State   GameState   `json:"state"`
}

// NewGameRecord - creates an uninitialized record.
func NewGameRecord(id string) *GameRecord {
	return &GameRecord{
		ID:    id,
		State: Active(),
	}
}

func (that *GameRecord) IsStarted() bool {
	return that.Turn != 0
}

func (that *GameRecord) IsFinished() bool {
	return !that.State.IsActive()
}

// CurrentPlayerIndex - index of the player to move, (turn-1) mod 2.
func (that *GameRecord) CurrentPlayerIndex() int {
	if that.Turn == 0 {
		return 0
	}

	return int((that.Turn - 1) % 2)
}

func (that *GameRecord) CurrentPlayer() Identity {
	return that.Players[that.CurrentPlayerIndex()]
}

func (that *GameRecord) HasPlayer(id Identity) bool {
	return that.Players[0] == id || that.Players[1] == id
}

// MarkFor - mark placed by the player with the given index.
func MarkFor(playerIndex int) Mark {
	if playerIndex == 0 {
		return First
	}

	return Second
}

func (that *GameRecord) Clone() *GameRecord {
	clone := *that
	if winner, ok := that.State.WinnerOf(); ok {
		clone.State = Won(winner)
	}

	return &clone
}
