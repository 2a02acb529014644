package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-ledger/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-ledger/internal/entity"
	"github.com/rocketscienceinc/tictactoe-ledger/internal/metrics"
	"github.com/rocketscienceinc/tictactoe-ledger/internal/repository/storage/sqlite"
	"github.com/rocketscienceinc/tictactoe-ledger/internal/service"
	"github.com/rocketscienceinc/tictactoe-ledger/internal/tictactoe"
	"github.com/rocketscienceinc/tictactoe-ledger/internal/usecase"
)

type testServer struct {
	t    *testing.T
	url  string
	auth service.AuthService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	st, err := sqlite.New(filepath.Join(t.TempDir(), "games.db"))
	require.NoError(t, err)
	require.NoError(t, st.Init(context.Background()))

	auth, err := service.NewAuthService("secret", time.Hour)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := usecase.NewGameManager(logger, st, tictactoe.NewGameController(tictactoe.DefaultRules()), metrics.NewCollector(""))

	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(New(logger, manager, auth).Handler(ctx))

	t.Cleanup(func() {
		cancel()
		srv.Close()
		_ = st.Close()
	})

	return &testServer{
		t:    t,
		url:  "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
		auth: auth,
	}
}

func (that *testServer) dial(identity entity.Identity) *websocket.Conn {
	that.t.Helper()

	token, err := that.auth.GenerateToken(identity)
	require.NoError(that.t, err)

	conn, resp, err := websocket.DefaultDialer.Dial(that.url+"?token="+token, nil)
	require.NoError(that.t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	that.t.Cleanup(func() {
		conn.Close()
	})

	// a round trip guarantees the server registered the connection
	send(that.t, conn, actionGameGet, Payload{GameID: "warmup"})
	reply := receive(that.t, conn)
	require.NotEmpty(that.t, reply.Error)

	return conn
}

func send(t *testing.T, conn *websocket.Conn, action string, payload Payload) {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(Message{Action: action, Payload: body}))
}

func receive(t *testing.T, conn *websocket.Conn) Payload {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))

	var payload Payload
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))

	return payload
}

func TestServer_RejectsMissingToken(t *testing.T) {
	ts := newTestServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(ts.url, nil)

	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServer_GameFlow(t *testing.T) {
	// Given: both players are connected
	ts := newTestServer(t)
	p1 := ts.dial("p1")
	p2 := ts.dial("p2")

	// When: p1 creates and starts a game
	send(t, p1, actionGameNew, Payload{})
	created := receive(t, p1)
	require.NotNil(t, created.Game)
	gameID := created.Game.ID

	send(t, p1, actionGameStart, Payload{GameID: gameID, Players: &[2]entity.Identity{"p1", "p2"}})

	// Then: both players see the started game
	for _, conn := range []*websocket.Conn{p1, p2} {
		started := receive(t, conn)
		require.NotNil(t, started.Game)
		assert.Equal(t, uint32(1), started.Game.Turn)
	}

	// When: p2 tries to move out of turn
	send(t, p2, actionGameTurn, Payload{GameID: gameID, Tile: &entity.Coordinate{Row: 1, Column: 1}})

	// Then: only p2 gets the rejection
	rejected := receive(t, p2)
	assert.NotEmpty(t, rejected.Error)
	assert.Nil(t, rejected.Game)

	// When: p1 moves
	send(t, p1, actionGameTurn, Payload{GameID: gameID, Tile: &entity.Coordinate{Row: 1, Column: 1}})

	// Then: both players receive the board with p1's mark
	for _, conn := range []*websocket.Conn{p1, p2} {
		update := receive(t, conn)
		require.NotNil(t, update.Game)
		assert.Equal(t, uint32(2), update.Game.Turn)

		mark, ok := update.Game.Board.At(entity.Coordinate{Row: 1, Column: 1}).Mark()
		require.True(t, ok)
		assert.Equal(t, entity.First, mark)
	}

	// And: the record can be fetched
	send(t, p2, actionGameGet, Payload{GameID: gameID})
	fetched := receive(t, p2)
	require.NotNil(t, fetched.Game)
	assert.Equal(t, gameID, fetched.Game.ID)
}

func TestServer_BadMessages(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial("p1")

	t.Run("Malformed message", func(t *testing.T) {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))

		assert.Equal(t, "malformed message", receive(t, conn).Error)
	})

	t.Run("Unknown action", func(t *testing.T) {
		send(t, conn, "game:leave", Payload{})

		assert.Equal(t, "unknown action", receive(t, conn).Error)
	})

	t.Run("Turn without tile", func(t *testing.T) {
		send(t, conn, actionGameTurn, Payload{GameID: "g1"})

		assert.Equal(t, "tile is required", receive(t, conn).Error)
	})

	t.Run("Start without players", func(t *testing.T) {
		send(t, conn, actionGameStart, Payload{GameID: "g1"})

		assert.Equal(t, "players are required", receive(t, conn).Error)
	})

	t.Run("Start for other players", func(t *testing.T) {
		send(t, conn, actionGameNew, Payload{})
		created := receive(t, conn)
		require.NotNil(t, created.Game)

		send(t, conn, actionGameStart, Payload{GameID: created.Game.ID, Players: &[2]entity.Identity{"p2", "p3"}})

		reply := receive(t, conn)
		assert.Nil(t, reply.Game)
		assert.Equal(t, apperror.ErrNotAPlayer.Error(), reply.Error)
	})
}

func TestServer_ServeClosesSessionsOnShutdown(t *testing.T) {
	// Given: a served websocket with one open session
	st, err := sqlite.New(filepath.Join(t.TempDir(), "games.db"))
	require.NoError(t, err)
	require.NoError(t, st.Init(context.Background()))
	t.Cleanup(func() {
		_ = st.Close()
	})

	auth, err := service.NewAuthService("secret", time.Hour)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := usecase.NewGameManager(logger, st, tictactoe.NewGameController(tictactoe.DefaultRules()), metrics.NewCollector(""))
	server := New(logger, manager, auth)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	served := make(chan error, 1)
	go func() {
		served <- server.Serve(ctx, ln)
	}()

	ts := &testServer{t: t, url: "ws://" + ln.Addr().String() + "/ws", auth: auth}
	conn := ts.dial("p1")

	// When: the context is canceled
	cancel()

	// Then: Serve returns after the session is closed
	select {
	case err = <-served:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
}
