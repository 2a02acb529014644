package apperror

import "errors"

var (
	ErrAlreadyStarted  = errors.New("game is already started")
	ErrGameAlreadyOver = errors.New("game is already over")
	ErrTileOutOfBounds = errors.New("tile is out of bounds")
	ErrTileAlreadySet  = errors.New("tile is already set")
	ErrNotPlayersTurn  = errors.New("it's not your turn")

	ErrGameIsNotStarted = errors.New("game is not started")
	ErrNotAPlayer       = errors.New("identity is not a player of this game")
	ErrInvalidToken     = errors.New("invalid auth token")
)
