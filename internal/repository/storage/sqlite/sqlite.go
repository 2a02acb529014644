package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	// import the SQLite driver to register it with the database/sql package.
	_ "modernc.org/sqlite"

	"github.com/rocketscienceinc/tictactoe-ledger/internal/entity"
	"github.com/rocketscienceinc/tictactoe-ledger/internal/repository"
)

const pragmas = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"

var ErrEmptyPath = errors.New("storage path is required")

// Storage - SQLite-backed game record store. A single connection serializes every write.
type Storage struct {
	Connection *sql.DB
}

var _ repository.GameRepository = (*Storage)(nil)

func New(path string) (*Storage, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrEmptyPath
	}

	conn, err := sql.Open("sqlite", filepath.Clean(path)+pragmas)
	if err != nil {
		return nil, fmt.Errorf("can't open database: %w", err)
	}

	conn.SetMaxOpenConns(1)

	if err = conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("can't connect to database: %w", err)
	}

	return &Storage{Connection: conn}, nil
}

func (that *Storage) Init(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS games (
		id     TEXT PRIMARY KEY,
		record TEXT NOT NULL
	)`

	_, err := that.Connection.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("can't create table: %w", err)
	}

	return nil
}

func (that *Storage) Close() error {
	if that == nil || that.Connection == nil {
		return nil
	}

	return that.Connection.Close()
}

func (that *Storage) Create(ctx context.Context, record *entity.GameRecord) error {
	recordJSON, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("could not marshal game: %w", err)
	}

	query := `INSERT INTO games (id, record) VALUES (?, ?) ON CONFLICT (id) DO NOTHING`

	result, err := that.Connection.ExecContext(ctx, query, record.ID, string(recordJSON))
	if err != nil {
		return fmt.Errorf("can't save game: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("can't save game: %w", err)
	}

	if inserted == 0 {
		return fmt.Errorf("%w: %s", repository.ErrGameAlreadyExists, record.ID)
	}

	return nil
}

func (that *Storage) GetByID(ctx context.Context, id string) (*entity.GameRecord, error) {
	return findGame(ctx, that.Connection, id)
}

// Update - runs fn inside a transaction, the row is written only when fn succeeds.
func (that *Storage) Update(ctx context.Context, id string, fn repository.UpdateFunc) (*entity.GameRecord, error) {
	tx, err := that.Connection.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("can't begin transaction: %w", err)
	}

	defer func() {
		// no-op after a successful commit
		_ = tx.Rollback()
	}()

	record, err := findGame(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err = fn(record); err != nil {
		return nil, err
	}

	recordJSON, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("could not marshal game: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `UPDATE games SET record = ? WHERE id = ?`, string(recordJSON), id); err != nil {
		return nil, fmt.Errorf("can't update game: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("can't commit game update: %w", err)
	}

	return record, nil
}

func (that *Storage) DeleteByID(ctx context.Context, id string) error {
	result, err := that.Connection.ExecContext(ctx, `DELETE FROM games WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("can't delete game: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("can't delete game: %w", err)
	}

	if deleted == 0 {
		return repository.ErrGameNotFound
	}

	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func findGame(ctx context.Context, conn queryer, id string) (*entity.GameRecord, error) {
	var recordJSON string

	err := conn.QueryRowContext(ctx, `SELECT record FROM games WHERE id = ?`, id).Scan(&recordJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("can't find game: %w", err)
	}

	var record entity.GameRecord
	if err = json.Unmarshal([]byte(recordJSON), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game: %w", err)
	}

	return &record, nil
}
