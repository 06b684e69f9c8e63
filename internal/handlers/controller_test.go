package handlers

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"absorb-chess/internal/agent"
	"absorb-chess/internal/game"
	"absorb-chess/internal/lobby"
	"absorb-chess/internal/matchmaking"
)

// fakeMessenger records every frame per client so tests can assert on the
// exact outbound protocol.
type fakeMessenger struct {
	mu      sync.Mutex
	frames  map[string][]any
	offline map[string]bool
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{
		frames:  make(map[string][]any),
		offline: make(map[string]bool),
	}
}

func (f *fakeMessenger) Send(clientID string, payload any) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames[clientID] = append(f.frames[clientID], payload)
	return !f.offline[clientID]
}

func (f *fakeMessenger) IsConnected(clientID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.offline[clientID]
}

func (f *fakeMessenger) setOffline(clientID string, off bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offline[clientID] = off
}

// lastFrame returns the most recent frame of type T sent to the client.
func lastFrame[T any](f *fakeMessenger, clientID string) (T, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	frames := f.frames[clientID]
	for i := len(frames) - 1; i >= 0; i-- {
		if v, ok := frames[i].(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func countFrames[T any](f *fakeMessenger, clientID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, frame := range f.frames[clientID] {
		if _, ok := frame.(T); ok {
			n++
		}
	}
	return n
}

func testConfig() ControllerConfig {
	return ControllerConfig{
		DisconnectGrace:        50 * time.Millisecond,
		BotMoveDelay:           10 * time.Millisecond,
		PromotionCancelAllowed: true,
	}
}

func newTestController(engine agent.Engine, cfg ControllerConfig) (*Controller, *fakeMessenger) {
	fm := newFakeMessenger()
	c := NewController(lobby.NewRegistry(), matchmaking.NewQueue(), NoSnapshot{}, engine, fm, cfg)
	return c, fm
}

func createLobby(t *testing.T, c *Controller, fm *fakeMessenger, clientID, name, settings string) string {
	t.Helper()
	c.Dispatch(clientID, "create_lobby", []byte(fmt.Sprintf(
		`{"type":"create_lobby","player_name":%q,"settings":%s}`, name, settings)))
	msg, ok := lastFrame[lobbyCreatedMsg](fm, clientID)
	require.True(t, ok, "expected lobby_created")
	return msg.LobbyCode
}

// startedPair creates a two-human lobby and starts the game. Alice owns the
// lobby and plays white.
func startedPair(t *testing.T, c *Controller, fm *fakeMessenger, settings string) string {
	t.Helper()
	code := createLobby(t, c, fm, "alice", "Alice", settings)
	c.Dispatch("bob", "join_lobby", []byte(fmt.Sprintf(
		`{"type":"join_lobby","lobby_code":%q,"player_name":"Bob"}`, code)))
	c.Dispatch("alice", "start_game", []byte(`{"type":"start_game"}`))

	started, ok := lastFrame[gameStartedMsg](fm, "alice")
	require.True(t, ok, "expected game_started")
	require.Equal(t, code, started.LobbyCode)
	return code
}

func moveFrame(from, to game.Square) []byte {
	return []byte(fmt.Sprintf(`{"type":"move_piece","from":[%d,%d],"to":[%d,%d]}`,
		from.Row, from.Col, to.Row, to.Col))
}

func TestCreateLobbyAssignsWhiteOwner(t *testing.T) {
	c, fm := newTestController(nil, testConfig())

	code := createLobby(t, c, fm, "alice", "Alice", `{"time_minutes":10}`)
	msg, _ := lastFrame[lobbyCreatedMsg](fm, "alice")

	assert.Equal(t, code, msg.LobbyCode)
	assert.Equal(t, game.White, msg.PlayerColor)
	assert.Equal(t, "alice", msg.Lobby.OwnerID)
	require.Len(t, msg.Lobby.Players, 1)
}

func TestJoinLobbyNotifiesBothSeats(t *testing.T) {
	c, fm := newTestController(nil, testConfig())
	code := createLobby(t, c, fm, "alice", "Alice", `{"time_minutes":10}`)

	c.Dispatch("bob", "join_lobby", []byte(fmt.Sprintf(
		`{"type":"join_lobby","lobby_code":%q,"player_name":"Bob"}`, code)))

	joined, ok := lastFrame[lobbyJoinedMsg](fm, "bob")
	require.True(t, ok)
	assert.Equal(t, game.Black, joined.PlayerColor)
	require.Len(t, joined.Lobby.Players, 2)

	update, ok := lastFrame[lobbyUpdateMsg](fm, "alice")
	require.True(t, ok)
	require.Len(t, update.Lobby.Players, 2)
}

func TestJoinUnknownLobbyRejected(t *testing.T) {
	c, fm := newTestController(nil, testConfig())

	c.Dispatch("bob", "join_lobby", []byte(`{"type":"join_lobby","lobby_code":"ZZZZZZ","player_name":"Bob"}`))

	_, ok := lastFrame[errorMsg](fm, "bob")
	assert.True(t, ok)
}

func TestStartGameOwnerOnly(t *testing.T) {
	c, fm := newTestController(nil, testConfig())
	code := createLobby(t, c, fm, "alice", "Alice", `{"time_minutes":10}`)
	c.Dispatch("bob", "join_lobby", []byte(fmt.Sprintf(
		`{"type":"join_lobby","lobby_code":%q,"player_name":"Bob"}`, code)))

	c.Dispatch("bob", "start_game", []byte(`{"type":"start_game"}`))
	_, ok := lastFrame[gameStartedMsg](fm, "bob")
	assert.False(t, ok, "non-owner must not start the game")

	c.Dispatch("alice", "start_game", []byte(`{"type":"start_game"}`))
	white, ok := lastFrame[gameStartedMsg](fm, "alice")
	require.True(t, ok)
	black, ok := lastFrame[gameStartedMsg](fm, "bob")
	require.True(t, ok)

	assert.Equal(t, game.White, white.PlayerColor)
	assert.Equal(t, game.Black, black.PlayerColor)

	// Only the side to move carries the legal-move map.
	assert.NotEmpty(t, white.GameState.ValidMoves)
	assert.Empty(t, black.GameState.ValidMoves)
}

func TestMoveRejectedOffTurn(t *testing.T) {
	c, fm := newTestController(nil, testConfig())
	startedPair(t, c, fm, `{"time_minutes":10}`)

	c.Dispatch("bob", "move_piece", moveFrame(game.Sq(1, 4), game.Sq(3, 4)))

	rej, ok := lastFrame[invalidMoveMsg](fm, "bob")
	require.True(t, ok)
	assert.Equal(t, string(game.ReasonWrongTurn), rej.Reason)
}

func TestMoveBroadcastsPerSeatState(t *testing.T) {
	c, fm := newTestController(nil, testConfig())
	startedPair(t, c, fm, `{"time_minutes":10}`)

	c.Dispatch("alice", "move_piece", moveFrame(game.Sq(6, 4), game.Sq(4, 4)))

	aliceState, ok := lastFrame[moveMadeMsg](fm, "alice")
	require.True(t, ok)
	bobState, ok := lastFrame[moveMadeMsg](fm, "bob")
	require.True(t, ok)

	assert.Equal(t, game.Black, aliceState.GameState.Turn)
	assert.Empty(t, aliceState.GameState.ValidMoves)
	assert.NotEmpty(t, bobState.GameState.ValidMoves, "side to move gets its legal moves")
}

func TestPromotionDispatchFlow(t *testing.T) {
	c, fm := newTestController(nil, testConfig())
	code := startedPair(t, c, fm, `{"time_minutes":10}`)

	l, ok := c.Registry().Get(code)
	require.True(t, ok)
	l.Mu.Lock()
	l.Game = promotionReadyGame(true)
	l.Mu.Unlock()

	c.Dispatch("alice", "move_piece", moveFrame(game.Sq(1, 0), game.Sq(0, 0)))

	pending, ok := lastFrame[promotionPendingMsg](fm, "alice")
	require.True(t, ok)
	require.NotNil(t, pending.Pending)
	assert.Equal(t, game.White, pending.Pending.Color)
	assert.Equal(t, 0, countFrames[moveMadeMsg](fm, "bob"), "opponent learns nothing until resolution")

	// The opponent stays frozen out while the promotion is unresolved.
	c.Dispatch("bob", "move_piece", moveFrame(game.Sq(0, 7), game.Sq(1, 7)))
	rej, ok := lastFrame[invalidMoveMsg](fm, "bob")
	require.True(t, ok)
	assert.Equal(t, string(game.ReasonWrongTurn), rej.Reason)

	c.Dispatch("alice", "promotion_choice", []byte(`{"type":"promotion_choice","choice":"queen"}`))

	applied, ok := lastFrame[promotionAppliedMsg](fm, "alice")
	require.True(t, ok)
	promoted := applied.GameState.Board[0][0]
	require.NotNil(t, promoted)
	assert.Equal(t, game.Queen, promoted.Kind)
	assert.True(t, promoted.Abilities.Has(game.Pawn), "pawn ability survives promotion")

	bobApplied, ok := lastFrame[promotionAppliedMsg](fm, "bob")
	require.True(t, ok)
	assert.Equal(t, game.Black, bobApplied.GameState.Turn)
}

func TestPromotionCancelDispatch(t *testing.T) {
	c, fm := newTestController(nil, testConfig())
	code := startedPair(t, c, fm, `{"time_minutes":10}`)

	l, ok := c.Registry().Get(code)
	require.True(t, ok)
	l.Mu.Lock()
	l.Game = promotionReadyGame(true)
	l.Mu.Unlock()

	c.Dispatch("alice", "move_piece", moveFrame(game.Sq(1, 0), game.Sq(0, 0)))
	c.Dispatch("alice", "promotion_choice", []byte(`{"type":"promotion_choice","choice":"cancel"}`))

	canceled, ok := lastFrame[promotionCanceledMsg](fm, "alice")
	require.True(t, ok)
	assert.Equal(t, game.White, canceled.GameState.Turn)
	pawn := canceled.GameState.Board[1][0]
	require.NotNil(t, pawn)
	assert.Equal(t, game.Pawn, pawn.Kind)
}

// promotionReadyGame builds a live game with a white pawn one step from
// promotion.
func promotionReadyGame(cancelAllowed bool) *game.Game {
	s := &game.State{
		Turn:          game.White,
		CancelAllowed: cancelAllowed,
		Clock: game.Clock{
			WhiteMs:       300_000,
			BlackMs:       300_000,
			LastTurnStart: time.Now().UnixMilli(),
		},
	}
	place := func(kind game.PieceKind, color game.Color, row, col int) {
		s.Board[row][col] = &game.PieceState{
			Kind:      kind,
			Color:     color,
			Abilities: game.NewAbilitySet(kind),
			Position:  game.Sq(row, col),
			HasMoved:  true,
		}
	}
	place(game.King, game.White, 7, 7)
	place(game.Pawn, game.White, 1, 0)
	place(game.King, game.Black, 0, 7)
	return game.Load(s)
}

func TestMatchmakingPairsAndStarts(t *testing.T) {
	c, fm := newTestController(nil, testConfig())

	c.Dispatch("alice", "search_game", []byte(`{"type":"search_game","player_name":"Alice"}`))
	_, ok := lastFrame[searchStartedMsg](fm, "alice")
	require.True(t, ok)

	c.Dispatch("bob", "search_game", []byte(`{"type":"search_game","player_name":"Bob"}`))

	aliceFound, ok := lastFrame[searchGameFoundMsg](fm, "alice")
	require.True(t, ok)
	bobFound, ok := lastFrame[searchGameFoundMsg](fm, "bob")
	require.True(t, ok)

	assert.Equal(t, game.White, aliceFound.PlayerColor, "first searcher plays white")
	assert.Equal(t, game.Black, bobFound.PlayerColor)
	assert.Equal(t, "Bob", aliceFound.OpponentName)
	assert.Equal(t, "Alice", bobFound.OpponentName)
	assert.Equal(t, aliceFound.LobbyCode, bobFound.LobbyCode)

	// The matched game starts without a start_game frame.
	_, ok = lastFrame[gameStartedMsg](fm, "alice")
	assert.True(t, ok)
	_, ok = lastFrame[gameStartedMsg](fm, "bob")
	assert.True(t, ok)
}

func TestCancelSearch(t *testing.T) {
	c, fm := newTestController(nil, testConfig())

	c.Dispatch("alice", "search_game", []byte(`{"type":"search_game","player_name":"Alice"}`))
	c.Dispatch("alice", "cancel_search", []byte(`{"type":"cancel_search"}`))

	_, ok := lastFrame[searchCancelledMsg](fm, "alice")
	require.True(t, ok)

	// Bob now queues instead of matching.
	c.Dispatch("bob", "search_game", []byte(`{"type":"search_game","player_name":"Bob"}`))
	_, ok = lastFrame[searchGameFoundMsg](fm, "bob")
	assert.False(t, ok)
}

func TestDrawOfferRateLimit(t *testing.T) {
	c, fm := newTestController(nil, testConfig())
	startedPair(t, c, fm, `{"time_minutes":10}`)

	for i := 0; i < 3; i++ {
		c.Dispatch("alice", "offer_draw", []byte(`{"type":"offer_draw"}`))
		_, ok := lastFrame[drawOfferAckMsg](fm, "alice")
		require.True(t, ok, "offer %d should be accepted", i+1)
	}
	assert.Equal(t, 3, countFrames[drawOfferedMsg](fm, "bob"))

	c.Dispatch("alice", "offer_draw", []byte(`{"type":"offer_draw"}`))

	limited, ok := lastFrame[drawRateLimitedMsg](fm, "alice")
	require.True(t, ok, "fourth offer inside the window is rate limited")
	assert.GreaterOrEqual(t, limited.RetryAfter, 1)
	assert.Equal(t, 3, countFrames[drawOfferedMsg](fm, "bob"), "opponent sees no fourth offer")
}

func TestAcceptDrawEndsGame(t *testing.T) {
	c, fm := newTestController(nil, testConfig())
	startedPair(t, c, fm, `{"time_minutes":10}`)

	// Accept with nothing pending fails.
	c.Dispatch("bob", "accept_draw", []byte(`{"type":"accept_draw"}`))
	_, ok := lastFrame[gameOverMsg](fm, "bob")
	require.False(t, ok)

	c.Dispatch("alice", "offer_draw", []byte(`{"type":"offer_draw"}`))
	c.Dispatch("bob", "accept_draw", []byte(`{"type":"accept_draw"}`))

	over, ok := lastFrame[gameOverMsg](fm, "alice")
	require.True(t, ok)
	assert.Equal(t, "draw", over.Reason)
	assert.Nil(t, over.Winner)
	assert.True(t, over.GameState.GameOver)
}

func TestDeclineDrawNotifiesOfferer(t *testing.T) {
	c, fm := newTestController(nil, testConfig())
	startedPair(t, c, fm, `{"time_minutes":10}`)

	c.Dispatch("alice", "offer_draw", []byte(`{"type":"offer_draw"}`))
	c.Dispatch("bob", "decline_draw", []byte(`{"type":"decline_draw"}`))

	_, ok := lastFrame[drawDeclinedMsg](fm, "alice")
	require.True(t, ok)

	// The offer is spent; accepting afterwards fails.
	c.Dispatch("bob", "accept_draw", []byte(`{"type":"accept_draw"}`))
	_, ok = lastFrame[gameOverMsg](fm, "bob")
	assert.False(t, ok)
}

func TestMoveExpiresDrawOffer(t *testing.T) {
	c, fm := newTestController(nil, testConfig())
	startedPair(t, c, fm, `{"time_minutes":10}`)

	c.Dispatch("alice", "offer_draw", []byte(`{"type":"offer_draw"}`))
	c.Dispatch("alice", "move_piece", moveFrame(game.Sq(6, 4), game.Sq(4, 4)))

	c.Dispatch("bob", "accept_draw", []byte(`{"type":"accept_draw"}`))
	_, ok := lastFrame[gameOverMsg](fm, "bob")
	assert.False(t, ok, "offers do not survive a move")
}

func TestResignEndsGame(t *testing.T) {
	c, fm := newTestController(nil, testConfig())
	startedPair(t, c, fm, `{"time_minutes":10}`)

	c.Dispatch("bob", "resign", []byte(`{"type":"resign"}`))

	over, ok := lastFrame[gameOverMsg](fm, "alice")
	require.True(t, ok)
	assert.Equal(t, "resign", over.Reason)
	require.NotNil(t, over.Winner)
	assert.Equal(t, game.White, *over.Winner)

	_, ok = lastFrame[gameOverMsg](fm, "bob")
	assert.True(t, ok)
}

func TestClockScannerFlagsExpiredGame(t *testing.T) {
	c, fm := newTestController(nil, testConfig())
	startedPair(t, c, fm, `{"time_minutes":0}`)

	scanner := NewClockScanner(c)
	scanner.scan()

	over, ok := lastFrame[gameOverMsg](fm, "alice")
	require.True(t, ok)
	assert.Equal(t, "timeout", over.Reason)
	require.NotNil(t, over.Winner)
	assert.Equal(t, game.Black, *over.Winner, "white flagged, black wins")
}

func TestGetValidMoves(t *testing.T) {
	c, fm := newTestController(nil, testConfig())
	startedPair(t, c, fm, `{"time_minutes":10}`)

	c.Dispatch("alice", "get_valid_moves", []byte(`{"type":"get_valid_moves"}`))

	msg, ok := lastFrame[validMovesMsg](fm, "alice")
	require.True(t, ok)
	assert.Len(t, msg.ValidMoves, 10, "8 pawns and 2 knights can move")
}

func TestLeaveDestroyedLobbySendsClosed(t *testing.T) {
	c, fm := newTestController(nil, testConfig())
	code := createLobby(t, c, fm, "alice", "Alice", `{"time_minutes":10}`)

	c.Dispatch("alice", "leave_lobby", []byte(`{"type":"leave_lobby"}`))

	closed, ok := lastFrame[lobbyClosedMsg](fm, "alice")
	require.True(t, ok)
	assert.Equal(t, code, closed.LobbyCode)

	_, ok = c.Registry().Get(code)
	assert.False(t, ok)
}

func TestLeaveRunningGameResigns(t *testing.T) {
	c, fm := newTestController(nil, testConfig())
	startedPair(t, c, fm, `{"time_minutes":10}`)

	c.Dispatch("bob", "leave_lobby", []byte(`{"type":"leave_lobby"}`))

	over, ok := lastFrame[gameOverMsg](fm, "alice")
	require.True(t, ok)
	assert.Equal(t, "resign", over.Reason)
	require.NotNil(t, over.Winner)
	assert.Equal(t, game.White, *over.Winner)
}

func TestDisconnectGraceCancelledOnReconnect(t *testing.T) {
	c, fm := newTestController(nil, testConfig())
	startedPair(t, c, fm, `{"time_minutes":10}`)

	c.OnDisconnect("bob")

	disc, ok := lastFrame[playerDisconnectedMsg](fm, "alice")
	require.True(t, ok)
	assert.Equal(t, game.Black, disc.PlayerColor)
	assert.Greater(t, disc.AbortTime, disc.DisconnectTime)

	c.OnConnect("bob")

	rec, ok := lastFrame[playerReconnectedMsg](fm, "alice")
	require.True(t, ok)
	assert.Equal(t, game.Black, rec.PlayerColor)

	resync, ok := lastFrame[gameStartedMsg](fm, "bob")
	require.True(t, ok)
	assert.Equal(t, game.Black, resync.PlayerColor)

	// The grace timer was stopped; no forfeit after it would have fired.
	time.Sleep(150 * time.Millisecond)
	_, ok = lastFrame[gameOverMsg](fm, "alice")
	assert.False(t, ok)
}

func TestDisconnectGraceExpiryForfeits(t *testing.T) {
	c, fm := newTestController(nil, testConfig())
	startedPair(t, c, fm, `{"time_minutes":10}`)

	fm.setOffline("bob", true)
	c.OnDisconnect("bob")

	require.Eventually(t, func() bool {
		over, ok := lastFrame[gameOverMsg](fm, "alice")
		return ok && over.Reason == "disconnect"
	}, 2*time.Second, 10*time.Millisecond)

	over, _ := lastFrame[gameOverMsg](fm, "alice")
	require.NotNil(t, over.Winner)
	assert.Equal(t, game.White, *over.Winner)
}

func TestBotLobbyPlaysReply(t *testing.T) {
	c, fm := newTestController(agent.NewBuiltin(), testConfig())

	code := createLobby(t, c, fm, "alice", "Alice", `{"time_minutes":10,"with_bot":true}`)
	c.Dispatch("alice", "start_game", []byte(`{"type":"start_game"}`))

	started, ok := lastFrame[gameStartedMsg](fm, "alice")
	require.True(t, ok)
	require.Equal(t, code, started.LobbyCode)

	c.Dispatch("alice", "move_piece", moveFrame(game.Sq(6, 4), game.Sq(4, 4)))
	require.Equal(t, 1, countFrames[moveMadeMsg](fm, "alice"))

	// The bot answers on its own schedule.
	require.Eventually(t, func() bool {
		return countFrames[moveMadeMsg](fm, "alice") >= 2
	}, 5*time.Second, 20*time.Millisecond)

	reply, _ := lastFrame[moveMadeMsg](fm, "alice")
	assert.Equal(t, game.White, reply.GameState.Turn, "turn is back with the human")
}

func TestBotDeclinesDrawOffers(t *testing.T) {
	c, fm := newTestController(nil, testConfig())

	createLobby(t, c, fm, "alice", "Alice", `{"time_minutes":10,"with_bot":true}`)
	c.Dispatch("alice", "start_game", []byte(`{"type":"start_game"}`))
	c.Dispatch("alice", "offer_draw", []byte(`{"type":"offer_draw"}`))

	_, ok := lastFrame[drawDeclinedMsg](fm, "alice")
	assert.True(t, ok)
}

func TestPromotionChoiceAfterFlagFall(t *testing.T) {
	c, fm := newTestController(nil, testConfig())
	code := startedPair(t, c, fm, `{"time_minutes":10}`)

	l, ok := c.Registry().Get(code)
	require.True(t, ok)
	l.Mu.Lock()
	l.Game = promotionReadyGame(true)
	l.Mu.Unlock()

	c.Dispatch("alice", "move_piece", moveFrame(game.Sq(1, 0), game.Sq(0, 0)))
	_, ok = lastFrame[promotionPendingMsg](fm, "alice")
	require.True(t, ok)

	// The promoter's clock keeps running and expires before the choice.
	l.Mu.Lock()
	clk := l.Game.Clock()
	clk.WhiteMs = 0
	clk.LastTurnStart = time.Now().UnixMilli() - 1_000
	l.Mu.Unlock()

	c.Dispatch("alice", "promotion_choice", []byte(`{"type":"promotion_choice","choice":"queen"}`))

	assert.Equal(t, 0, countFrames[promotionAppliedMsg](fm, "alice"), "expired clock must not resolve")
	over, ok := lastFrame[gameOverMsg](fm, "alice")
	require.True(t, ok)
	assert.Equal(t, "timeout", over.Reason)
	require.NotNil(t, over.Winner)
	assert.Equal(t, game.Black, *over.Winner)
}

func TestSearchSilentlyVacatesEndedLobby(t *testing.T) {
	c, fm := newTestController(nil, testConfig())
	startedPair(t, c, fm, `{"time_minutes":10}`)
	c.Dispatch("bob", "resign", []byte(`{"type":"resign"}`))

	updatesBefore := countFrames[lobbyUpdateMsg](fm, "bob")

	c.Dispatch("alice", "search_game", []byte(`{"type":"search_game","player_name":"Alice"}`))

	_, ok := lastFrame[searchStartedMsg](fm, "alice")
	require.True(t, ok)
	assert.Equal(t, 0, countFrames[lobbyClosedMsg](fm, "alice"))
	assert.Equal(t, updatesBefore, countFrames[lobbyUpdateMsg](fm, "bob"), "shedding the ended seat is silent")
}

func TestValidateServer(t *testing.T) {
	c, fm := newTestController(nil, testConfig())

	c.Dispatch("alice", "validate_server", []byte(`{"type":"validate_server"}`))

	msg, ok := lastFrame[validateServerResponse](fm, "alice")
	require.True(t, ok)
	assert.True(t, msg.IsChessServer)
}

func TestUnknownMessageType(t *testing.T) {
	c, fm := newTestController(nil, testConfig())

	c.Dispatch("alice", "teleport_king", []byte(`{"type":"teleport_king"}`))

	msg, ok := lastFrame[errorMsg](fm, "alice")
	require.True(t, ok)
	assert.Contains(t, msg.Message, "unknown message type")
}
