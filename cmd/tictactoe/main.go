package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/muesli/termenv"

	"github.com/rocketscienceinc/tictactoe-ledger/internal/cli"
	"github.com/rocketscienceinc/tictactoe-ledger/internal/entity"
	"github.com/rocketscienceinc/tictactoe-ledger/internal/metrics"
	"github.com/rocketscienceinc/tictactoe-ledger/internal/repository/storage/sqlite"
	"github.com/rocketscienceinc/tictactoe-ledger/internal/service"
	"github.com/rocketscienceinc/tictactoe-ledger/internal/tictactoe"
	"github.com/rocketscienceinc/tictactoe-ledger/internal/usecase"
)

func main() {
	dbPath := flag.String("db", filepath.Join(os.TempDir(), "tictactoe-cli.db"), "sqlite file holding the game records")
	first := flag.String("x", "player-x", "name of the first player")
	second := flag.String("o", "player-o", "name of the second player")
	skipTurnOrder := flag.Bool("skip-turn-order-check", false, "accept moves regardless of whose turn it is")
	legacyScan := flag.Bool("legacy-full-board-scan", false, "detect full boards by scanning the first two columns only")
	withBot := flag.Bool("bot", false, "let the computer play the second player")
	verbose := flag.Bool("v", false, "log game events to stderr")
	flag.Parse()

	players := [2]entity.Identity{entity.Identity(*first), entity.Identity(*second)}
	rules := tictactoe.Rules{
		EnforceTurnOrder:    !*skipTurnOrder,
		LegacyFullBoardScan: *legacyScan,
	}

	if err := run(*dbPath, players, rules, *withBot, *verbose); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(dbPath string, players [2]entity.Identity, rules tictactoe.Rules, withBot, verbose bool) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	st, err := sqlite.New(dbPath)
	if err != nil {
		return fmt.Errorf("could not open sqlite storage: %w", err)
	}
	defer st.Close()

	if err = st.Init(ctx); err != nil {
		return fmt.Errorf("could not init sqlite storage: %w", err)
	}

	manager := usecase.NewGameManager(logger, st, tictactoe.NewGameController(rules), metrics.NewCollector(""))
	session := cli.NewSession(manager, os.Stdin, termenv.NewOutput(os.Stdout))
	if withBot {
		session.WithBot(service.NewBotService(), players[1])
	}

	if _, err = session.Play(ctx, players); err != nil && !errors.Is(err, cli.ErrAborted) {
		return err
	}

	return nil
}
