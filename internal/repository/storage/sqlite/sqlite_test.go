package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-ledger/internal/entity"
	"github.com/rocketscienceinc/tictactoe-ledger/internal/repository"
)

var errRejected = errors.New("rejected")

func newStorage(t *testing.T) (context.Context, *Storage) {
	t.Helper()

	ctx := context.Background()

	st, err := New(filepath.Join(t.TempDir(), "games.db"))
	require.NoError(t, err)
	require.NoError(t, st.Init(ctx))

	t.Cleanup(func() {
		_ = st.Close()
	})

	return ctx, st
}

func TestNew(t *testing.T) {
	t.Run("Empty path is rejected", func(t *testing.T) {
		st, err := New("  ")

		require.ErrorIs(t, err, ErrEmptyPath)
		assert.Nil(t, st)
	})

	t.Run("Init is idempotent", func(t *testing.T) {
		ctx, st := newStorage(t)

		require.NoError(t, st.Init(ctx))
	})
}

func TestStorage_Create(t *testing.T) {
	t.Run("Stores an uninitialized record", func(t *testing.T) {
		ctx, st := newStorage(t)

		// Given: a new record
		record := entity.NewGameRecord("123")

		// When: it is created
		err := st.Create(ctx, record)

		// Then: it can be read back unchanged
		require.NoError(t, err)

		stored, err := st.GetByID(ctx, "123")
		require.NoError(t, err)
		require.Equal(t, record, stored)
	})

	t.Run("Duplicate id is rejected", func(t *testing.T) {
		ctx, st := newStorage(t)
		require.NoError(t, st.Create(ctx, entity.NewGameRecord("123")))

		err := st.Create(ctx, entity.NewGameRecord("123"))

		require.ErrorIs(t, err, repository.ErrGameAlreadyExists)
	})
}

func TestStorage_GetByID(t *testing.T) {
	t.Run("Missing record", func(t *testing.T) {
		ctx, st := newStorage(t)

		// When: a missing id is requested
		record, err := st.GetByID(ctx, "missing")

		// Then: ErrGameNotFound is returned
		require.ErrorIs(t, err, repository.ErrGameNotFound)
		assert.Nil(t, record)
	})

	corrupt := map[string]string{
		"Won without winner": `{"id":"g1","players":["p1","p2"],"turn":5,"board":[[null,null,null],[null,null,null],[null,null,null]],"state":{"status":"won"}}`,
		"Unknown status":     `{"id":"g1","players":["p1","p2"],"turn":5,"board":[[null,null,null],[null,null,null],[null,null,null]],"state":{"status":"finished"}}`,
		"Tie with winner":    `{"id":"g1","players":["p1","p2"],"turn":9,"board":[[null,null,null],[null,null,null],[null,null,null]],"state":{"status":"tie","winner":"p1"}}`,
	}

	for name, row := range corrupt {
		t.Run(name, func(t *testing.T) {
			ctx, st := newStorage(t)

			// Given: a row holding an impossible state
			_, err := st.Connection.ExecContext(ctx, `INSERT INTO games (id, record) VALUES (?, ?)`, "g1", row)
			require.NoError(t, err)

			// When: it is read or updated
			record, err := st.GetByID(ctx, "g1")
			_, updateErr := st.Update(ctx, "g1", func(*entity.GameRecord) error {
				return nil
			})

			// Then: both fail instead of treating the game as finished
			require.ErrorIs(t, err, entity.ErrUnknownStatus)
			assert.Nil(t, record)
			require.ErrorIs(t, updateErr, entity.ErrUnknownStatus)
		})
	}
}

func TestStorage_Update(t *testing.T) {
	t.Run("Committed change is persisted", func(t *testing.T) {
		ctx, st := newStorage(t)
		require.NoError(t, st.Create(ctx, entity.NewGameRecord("123")))

		// When: the update function starts the game and places a mark
		updated, err := st.Update(ctx, "123", func(record *entity.GameRecord) error {
			record.Players = [2]entity.Identity{"p1", "p2"}
			record.Turn = 2
			record.Board.Set(entity.Coordinate{Row: 1, Column: 1}, entity.First)
			return nil
		})
		require.NoError(t, err)

		// Then: the stored record equals the returned one
		stored, err := st.GetByID(ctx, "123")
		require.NoError(t, err)
		require.Equal(t, updated, stored)

		mark, ok := stored.Board.At(entity.Coordinate{Row: 1, Column: 1}).Mark()
		require.True(t, ok)
		assert.Equal(t, entity.First, mark)
	})

	t.Run("Failed update is discarded", func(t *testing.T) {
		ctx, st := newStorage(t)
		original := entity.NewGameRecord("123")
		require.NoError(t, st.Create(ctx, original))

		_, err := st.Update(ctx, "123", func(record *entity.GameRecord) error {
			record.Turn = 9
			return errRejected
		})

		require.ErrorIs(t, err, errRejected)

		stored, err := st.GetByID(ctx, "123")
		require.NoError(t, err)
		require.Equal(t, original, stored)
	})

	t.Run("Missing record", func(t *testing.T) {
		ctx, st := newStorage(t)

		_, err := st.Update(ctx, "missing", func(*entity.GameRecord) error { return nil })

		require.ErrorIs(t, err, repository.ErrGameNotFound)
	})

	t.Run("Concurrent updates are serialized", func(t *testing.T) {
		ctx, st := newStorage(t)
		require.NoError(t, st.Create(ctx, entity.NewGameRecord("123")))

		const workers = 8

		var wg sync.WaitGroup
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()

				_, err := st.Update(ctx, "123", func(record *entity.GameRecord) error {
					record.Turn++
					return nil
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		stored, err := st.GetByID(ctx, "123")
		require.NoError(t, err)
		assert.Equal(t, uint32(workers), stored.Turn)
	})
}

func TestStorage_DeleteByID(t *testing.T) {
	t.Run("Existing record is removed", func(t *testing.T) {
		ctx, st := newStorage(t)
		require.NoError(t, st.Create(ctx, entity.NewGameRecord("123")))

		require.NoError(t, st.DeleteByID(ctx, "123"))

		_, err := st.GetByID(ctx, "123")
		require.ErrorIs(t, err, repository.ErrGameNotFound)
	})

	t.Run("Missing record", func(t *testing.T) {
		ctx, st := newStorage(t)

		err := st.DeleteByID(ctx, "missing")

		require.ErrorIs(t, err, repository.ErrGameNotFound)
	})
}
