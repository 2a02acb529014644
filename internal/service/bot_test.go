package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-ledger/internal/entity"
)

func TestBotService_ChooseTile(t *testing.T) {
	bot := NewBotService()

	t.Run("Picks the only empty tile", func(t *testing.T) {
		// Given: a board with (2,1) left
		var board entity.Board
		for row := range uint32(entity.BoardSize) {
			for column := range uint32(entity.BoardSize) {
				board.Set(entity.Coordinate{Row: row, Column: column}, entity.First)
			}
		}
		board[2][1] = entity.Cell{}

		// When: the bot chooses
		tile, err := bot.ChooseTile(&board)

		// Then: it takes (2,1)
		require.NoError(t, err)
		assert.Equal(t, entity.Coordinate{Row: 2, Column: 1}, tile)
	})

	t.Run("Always picks an empty tile", func(t *testing.T) {
		var board entity.Board
		board.Set(entity.Coordinate{Row: 1, Column: 1}, entity.Second)

		for range 50 {
			tile, err := bot.ChooseTile(&board)
			require.NoError(t, err)
			assert.True(t, board.At(tile).IsEmpty())
		}
	})

	t.Run("Full board", func(t *testing.T) {
		var board entity.Board
		for row := range uint32(entity.BoardSize) {
			for column := range uint32(entity.BoardSize) {
				board.Set(entity.Coordinate{Row: row, Column: column}, entity.Second)
			}
		}

		_, err := bot.ChooseTile(&board)

		require.ErrorIs(t, err, ErrNoAvailableMoves)
	})
}
