package service

import (
	"errors"
	"math/rand"

	"github.com/rocketscienceinc/tictactoe-ledger/internal/entity"
)

var ErrNoAvailableMoves = errors.New("no available moves")

// BotService - picks a tile for a computer controlled player.
type BotService interface {
	ChooseTile(board *entity.Board) (entity.Coordinate, error)
}

type botService struct{}

func NewBotService() BotService {
	return &botService{}
}

func (that *botService) ChooseTile(board *entity.Board) (entity.Coordinate, error) {
	availableTiles := make([]entity.Coordinate, 0, entity.BoardSize*entity.BoardSize)
	for row := range entity.BoardSize {
		for column := range entity.BoardSize {
			tile := entity.Coordinate{Row: uint32(row), Column: uint32(column)}
			if board.At(tile).IsEmpty() {
				availableTiles = append(availableTiles, tile)
			}
		}
	}

	if len(availableTiles) == 0 {
		return entity.Coordinate{}, ErrNoAvailableMoves
	}

	return availableTiles[rand.Intn(len(availableTiles))], nil //nolint: gosec // it's ok
}
