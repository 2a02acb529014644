package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-ledger/internal/entity"
)

// maxUpdateRetries - attempts of an optimistic transaction before giving up.
const maxUpdateRetries = 10

var (
	ErrGameNotFound      = errors.New("game not found")
	ErrGameAlreadyExists = errors.New("game already exists")
	ErrTooManyConflicts  = errors.New("too many concurrent updates")
)

// UpdateFunc mutates a loaded record, a non-nil error discards the change.
type UpdateFunc func(record *entity.GameRecord) error

type GameRepository interface {
	Create(ctx context.Context, record *entity.GameRecord) error
	GetByID(ctx context.Context, id string) (*entity.GameRecord, error)
	Update(ctx context.Context, id string, fn UpdateFunc) (*entity.GameRecord, error)
	DeleteByID(ctx context.Context, id string) error
}

// NewGameID - generates a unique identifier for a game record.
func NewGameID() string {
	return uuid.NewString()
}

type dbGame struct {
	client *redis.Client
}

func NewGameRepository(client *redis.Client) GameRepository {
	return &dbGame{
		client: client,
	}
}

func gameKey(id string) string {
	return "game:" + id
}

func (that *dbGame) Create(ctx context.Context, record *entity.GameRecord) error {
	gameJSON, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("could not marshal game: %w", err)
	}

	created, err := that.client.SetNX(ctx, gameKey(record.ID), gameJSON, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to create game: %w", err)
	}

	if !created {
		return fmt.Errorf("%w: %s", ErrGameAlreadyExists, record.ID)
	}

	return nil
}

func (that *dbGame) GetByID(ctx context.Context, id string) (*entity.GameRecord, error) {
	return getGame(ctx, that.client, id)
}

// Update - loads the record under WATCH and writes it back in a MULTI block,
// a concurrent write to the same key aborts the transaction and it is retried.
func (that *dbGame) Update(ctx context.Context, id string, fn UpdateFunc) (*entity.GameRecord, error) {
	key := gameKey(id)

	var updated *entity.GameRecord

	txf := func(tx *redis.Tx) error {
		record, err := getGame(ctx, tx, id)
		if err != nil {
			return err
		}

		if err = fn(record); err != nil {
			return err
		}

		gameJSON, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("could not marshal game: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, gameJSON, 0)
			return nil
		})
		if err != nil {
			return err
		}

		updated = record

		return nil
	}

	for range maxUpdateRetries {
		err := that.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}

		if err != nil {
			return nil, err
		}

		return updated, nil
	}

	return nil, fmt.Errorf("%w: game %s", ErrTooManyConflicts, id)
}

func (that *dbGame) DeleteByID(ctx context.Context, id string) error {
	deleted, err := that.client.Del(ctx, gameKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete game by ID: %w", err)
	}

	if deleted == 0 {
		return ErrGameNotFound
	}

	return nil
}

// getter - satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func getGame(ctx context.Context, client getter, id string) (*entity.GameRecord, error) {
	response, err := client.Get(ctx, gameKey(id)).Result()

	if errors.Is(err, redis.Nil) {
		return nil, ErrGameNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get game by id: %w", err)
	}

	var existingGame entity.GameRecord
	if err = json.Unmarshal([]byte(response), &existingGame); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game: %w", err)
	}

	return &existingGame, nil
}
