package tictactoe

import "github.com/rocketscienceinc/tictactoe-ledger/internal/entity"

// WinLines - rows, then columns, then both diagonals.
var WinLines = [8][3]entity.Coordinate{
	{{Row: 0, Column: 0}, {Row: 0, Column: 1}, {Row: 0, Column: 2}},
	{{Row: 1, Column: 0}, {Row: 1, Column: 1}, {Row: 1, Column: 2}},
	{{Row: 2, Column: 0}, {Row: 2, Column: 1}, {Row: 2, Column: 2}},
	{{Row: 0, Column: 0}, {Row: 1, Column: 0}, {Row: 2, Column: 0}},
	{{Row: 0, Column: 1}, {Row: 1, Column: 1}, {Row: 2, Column: 1}},
	{{Row: 0, Column: 2}, {Row: 1, Column: 2}, {Row: 2, Column: 2}},
	{{Row: 0, Column: 0}, {Row: 1, Column: 1}, {Row: 2, Column: 2}},
	{{Row: 0, Column: 2}, {Row: 1, Column: 1}, {Row: 2, Column: 0}},
}

// legacyScanColumns - columns inspected by the legacy full-board scan.
const legacyScanColumns = 2

// WinningLine returns the first completed line and its mark.
func WinningLine(board *entity.Board) ([3]entity.Coordinate, entity.Mark, bool) {
	for _, line := range WinLines {
		a, ok := board.At(line[0]).Mark()
		if !ok {
			continue
		}

		b, _ := board.At(line[1]).Mark()
		c, _ := board.At(line[2]).Mark()
		if a == b && b == c {
			return line, a, true
		}
	}

	return [3]entity.Coordinate{}, 0, false
}

func hasWinningLine(board *entity.Board) bool {
	_, _, ok := WinningLine(board)
	return ok
}

// isBoardFull - with legacy set, the last column is never inspected.
func isBoardFull(board *entity.Board, legacy bool) bool {
	columns := entity.BoardSize
	if legacy {
		columns = legacyScanColumns
	}

	for row := range entity.BoardSize {
		for column := range columns {
			if board[row][column].IsEmpty() {
				return false
			}
		}
	}

	return true
}
