package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/rocketscienceinc/tictactoe-ledger/internal/config"
	"github.com/rocketscienceinc/tictactoe-ledger/internal/metrics"
	"github.com/rocketscienceinc/tictactoe-ledger/internal/repository"
	"github.com/rocketscienceinc/tictactoe-ledger/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-ledger/internal/repository/storage/sqlite"
	"github.com/rocketscienceinc/tictactoe-ledger/internal/service"
	"github.com/rocketscienceinc/tictactoe-ledger/internal/tictactoe"
	"github.com/rocketscienceinc/tictactoe-ledger/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-ledger/transport/rest"
	"github.com/rocketscienceinc/tictactoe-ledger/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	gameRepo, closer, err := OpenGameRepository(ctx, conf)
	if err != nil {
		return err
	}

	defer func() {
		if err = closer.Close(); err != nil {
			log.Error("could not close storage", "error", err)
		}
	}()

	authService, err := service.NewAuthService(conf.JWTSecretKey, conf.TokenTTL)
	if err != nil {
		return fmt.Errorf("could not create auth service: %w", err)
	}

	collector := metrics.NewCollector("")
	gameController := tictactoe.NewGameController(RulesFrom(conf))
	gameUseCase := usecase.NewGameManager(logger, gameRepo, gameController, collector)

	restServer := rest.New(logger, gameUseCase, authService, collector.Handler())
	wsServer := websocket.New(logger, gameUseCase, authService)

	// the store is closed by the deferred call only after both servers returned
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		if httpErr := restServer.Start(groupCtx, conf.HTTPPort); httpErr != nil {
			return fmt.Errorf("HTTP server error: %w", httpErr)
		}

		return nil
	})

	group.Go(func() error {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		if wsErr := wsServer.Start(groupCtx, conf.SocketPort); wsErr != nil {
			return fmt.Errorf("WebSocket server error: %w", wsErr)
		}

		return nil
	})

	if err = group.Wait(); err != nil {
		return err
	}

	log.Info("Servers stopped, shutting down")

	return nil
}

// OpenGameRepository - connects the record store selected by storage.driver.
func OpenGameRepository(ctx context.Context, conf *config.Config) (repository.GameRepository, io.Closer, error) {
	switch conf.Storage.Driver {
	case config.DriverSQLite:
		sqliteStorage, err := sqlite.New(conf.SQLiteStoragePath)
		if err != nil {
			return nil, nil, fmt.Errorf("could not open sqlite storage: %w", err)
		}

		if err = sqliteStorage.Init(ctx); err != nil {
			_ = sqliteStorage.Close()
			return nil, nil, fmt.Errorf("could not init sqlite storage: %w", err)
		}

		return sqliteStorage, sqliteStorage, nil
	default:
		redisAddrString := conf.Redis.GetRedisAddr()
		if redisAddrString == "" {
			return nil, nil, ErrAddrNotFound
		}

		redisStorage, err := storage.NewRedisStorage(ctx, redisAddrString)
		if err != nil {
			return nil, nil, fmt.Errorf("could not connect to redis storage: %w", err)
		}

		return repository.NewGameRepository(redisStorage.Connection), redisStorage, nil
	}
}

func RulesFrom(conf *config.Config) tictactoe.Rules {
	return tictactoe.Rules{
		EnforceTurnOrder:    !conf.Rules.SkipTurnOrderCheck,
		LegacyFullBoardScan: conf.Rules.LegacyFullBoardScan,
	}
}
