// Package cli runs a hot-seat game in the terminal.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/muesli/termenv"

	"github.com/rocketscienceinc/tictactoe-ledger/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-ledger/internal/entity"
)

var (
	ErrAborted   = errors.New("input ended before the game finished")
	errBadFormat = errors.New(`expected "row column", for example "1 2"`)
)

type bot interface {
	ChooseTile(board *entity.Board) (entity.Coordinate, error)
}

type gameManager interface {
	CreateGame(ctx context.Context) (*entity.GameRecord, error)
	StartGame(ctx context.Context, gameID string, caller entity.Identity, players [2]entity.Identity) (*entity.GameRecord, error)
	MakeTurn(ctx context.Context, gameID string, caller entity.Identity, tile entity.Coordinate) (*entity.GameRecord, error)
}

// Session - one game between two people sharing a terminal.
type Session struct {
	manager gameManager
	in      *bufio.Scanner
	out     *termenv.Output

	bot         bot
	botIdentity entity.Identity
}

func NewSession(manager gameManager, in io.Reader, out *termenv.Output) *Session {
	return &Session{
		manager: manager,
		in:      bufio.NewScanner(in),
		out:     out,
	}
}

// WithBot - lets the bot answer for identity instead of reading input.
func (that *Session) WithBot(bot bot, identity entity.Identity) *Session {
	that.bot = bot
	that.botIdentity = identity

	return that
}

// Play - runs the game until it is won, tied or the input ends.
func (that *Session) Play(ctx context.Context, players [2]entity.Identity) (*entity.GameRecord, error) {
	record, err := that.manager.CreateGame(ctx)
	if err != nil {
		return nil, err
	}

	record, err = that.manager.StartGame(ctx, record.ID, players[0], players)
	if err != nil {
		return nil, err
	}

	for !record.IsFinished() {
		fmt.Fprint(that.out, RenderBoard(that.out, &record.Board))

		player := record.CurrentPlayer()
		mark := entity.MarkFor(record.CurrentPlayerIndex())
		fmt.Fprintf(that.out, "%s (%s) > ", player, that.styleMark(mark))

		tile, err := that.nextTile(record, player)
		if errors.Is(err, errBadFormat) {
			fmt.Fprintln(that.out, that.out.String(err.Error()).Faint())
			continue
		}

		if err != nil {
			fmt.Fprintln(that.out)
			return record, err
		}

		next, err := that.manager.MakeTurn(ctx, record.ID, player, tile)
		if err != nil {
			if !isRuleViolation(err) {
				return record, err
			}

			fmt.Fprintln(that.out, that.out.String(err.Error()).Faint())
			continue
		}

		record = next
	}

	fmt.Fprint(that.out, RenderBoard(that.out, &record.Board))
	fmt.Fprintln(that.out, that.outcome(record))

	return record, nil
}

func (that *Session) nextTile(record *entity.GameRecord, player entity.Identity) (entity.Coordinate, error) {
	if that.bot != nil && player == that.botIdentity {
		tile, err := that.bot.ChooseTile(&record.Board)
		if err != nil {
			return entity.Coordinate{}, fmt.Errorf("bot failed to choose a tile: %w", err)
		}

		fmt.Fprintln(that.out, tile.String())

		return tile, nil
	}

	if !that.in.Scan() {
		return entity.Coordinate{}, ErrAborted
	}

	return ParseCoordinate(that.in.Text())
}

func (that *Session) outcome(record *entity.GameRecord) string {
	if winner, ok := record.State.WinnerOf(); ok {
		return that.out.String(fmt.Sprintf("%s wins on turn %d", winner, record.Turn)).Bold().String()
	}

	return that.out.String("tie").Bold().String()
}

func (that *Session) styleMark(mark entity.Mark) string {
	return styleMark(that.out, mark)
}

// RenderBoard - the board with row and column indexes, empty tiles shown as dots.
func RenderBoard(out *termenv.Output, board *entity.Board) string {
	var sb strings.Builder

	sb.WriteString("  ")
	for column := range entity.BoardSize {
		fmt.Fprintf(&sb, " %d", column)
	}
	sb.WriteString("\n")

	for row := range entity.BoardSize {
		fmt.Fprintf(&sb, "%d ", row)

		for column := range entity.BoardSize {
			cell := board.At(entity.Coordinate{Row: uint32(row), Column: uint32(column)})

			sb.WriteString(" ")
			if mark, ok := cell.Mark(); ok {
				sb.WriteString(styleMark(out, mark))
			} else {
				sb.WriteString(out.String(".").Faint().String())
			}
		}

		sb.WriteString("\n")
	}

	return sb.String()
}

func styleMark(out *termenv.Output, mark entity.Mark) string {
	color := "4"
	if mark == entity.First {
		color = "1"
	}

	return out.String(mark.String()).Foreground(out.Color(color)).Bold().String()
}

// ParseCoordinate - reads "row column" separated by spaces or a comma.
func ParseCoordinate(line string) (entity.Coordinate, error) {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t'
	})
	if len(fields) != 2 {
		return entity.Coordinate{}, errBadFormat
	}

	row, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil {
		return entity.Coordinate{}, errBadFormat
	}

	column, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return entity.Coordinate{}, errBadFormat
	}

	return entity.Coordinate{Row: uint32(row), Column: uint32(column)}, nil
}

func isRuleViolation(err error) bool {
	return errors.Is(err, apperror.ErrTileOutOfBounds) ||
		errors.Is(err, apperror.ErrTileAlreadySet) ||
		errors.Is(err, apperror.ErrNotPlayersTurn) ||
		errors.Is(err, apperror.ErrGameAlreadyOver)
}
