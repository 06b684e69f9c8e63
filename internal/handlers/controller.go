package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"absorb-chess/internal/agent"
	"absorb-chess/internal/game"
	"absorb-chess/internal/lobby"
	"absorb-chess/internal/matchmaking"
	"absorb-chess/internal/models"
)

const (
	drawOfferLimit  = 3
	drawOfferWindow = 60 * time.Second
	botName         = "Chess Bot"
	botBudget       = 2 * time.Second
)

// Messenger delivers frames to clients. Sends are best-effort; a false
// return means the client has no live session.
type Messenger interface {
	Send(clientID string, payload any) bool
	IsConnected(clientID string) bool
}

// Snapshot is the durable store. All writes are best-effort from the
// controller's perspective; implementations log failures and continue.
type Snapshot interface {
	SaveLobby(ctx context.Context, rec *models.LobbyRecord)
	DeleteLobby(ctx context.Context, code string)
	SaveClientLobby(ctx context.Context, cl *models.ClientLobby)
	DeleteClientLobby(ctx context.Context, clientID string)
	SaveSearcher(ctx context.Context, entry *models.SearchEntry)
	DeleteSearcher(ctx context.Context, clientID string)
	LogDrawOffer(ctx context.Context, offer *models.DrawOffer)
	LoadLobbies(ctx context.Context) ([]*models.LobbyRecord, error)
}

// NoSnapshot is the store used when no database is configured.
type NoSnapshot struct{}

func (NoSnapshot) SaveLobby(context.Context, *models.LobbyRecord)    {}
func (NoSnapshot) DeleteLobby(context.Context, string)               {}
func (NoSnapshot) SaveClientLobby(context.Context, *models.ClientLobby) {}
func (NoSnapshot) DeleteClientLobby(context.Context, string)         {}
func (NoSnapshot) SaveSearcher(context.Context, *models.SearchEntry) {}
func (NoSnapshot) DeleteSearcher(context.Context, string)            {}
func (NoSnapshot) LogDrawOffer(context.Context, *models.DrawOffer)   {}
func (NoSnapshot) LoadLobbies(context.Context) ([]*models.LobbyRecord, error) {
	return nil, nil
}

// ControllerConfig carries the deployment knobs.
type ControllerConfig struct {
	DisconnectGrace        time.Duration
	BotMoveDelay           time.Duration
	PromotionCancelAllowed bool
}

// Controller owns every lobby state transition. Each inbound message is
// dispatched under the target lobby's mutex, so a single game is never
// mutated concurrently.
type Controller struct {
	registry *lobby.Registry
	queue    *matchmaking.Queue
	snap     Snapshot
	engine   agent.Engine
	msgr     Messenger
	cfg      ControllerConfig

	mu          sync.Mutex
	graceTimers map[string]*time.Timer // client id -> pending auto-resign
	drawTimes   map[string][]time.Time // offerer id -> recent offer times
	pendingDraw map[string]string      // lobby code -> offerer id
	botPending  map[string]bool        // lobby code -> outstanding engine call
}

func NewController(registry *lobby.Registry, queue *matchmaking.Queue, snap Snapshot, engine agent.Engine, msgr Messenger, cfg ControllerConfig) *Controller {
	if snap == nil {
		snap = NoSnapshot{}
	}
	return &Controller{
		registry:    registry,
		queue:       queue,
		snap:        snap,
		engine:      engine,
		msgr:        msgr,
		cfg:         cfg,
		graceTimers: make(map[string]*time.Timer),
		drawTimes:   make(map[string][]time.Time),
		pendingDraw: make(map[string]string),
		botPending:  make(map[string]bool),
	}
}

func (c *Controller) Registry() *lobby.Registry { return c.registry }

// Dispatch routes one inbound frame. Unknown types get an error reply and
// the session stays open.
func (c *Controller) Dispatch(clientID, msgType string, data []byte) {
	switch msgType {
	case "validate_server":
		c.msgr.Send(clientID, validateServerResponse{Type: "validate_server_response", IsChessServer: true})
	case "create_lobby":
		c.handleCreateLobby(clientID, data)
	case "join_lobby":
		c.handleJoinLobby(clientID, data)
	case "leave_lobby":
		c.handleLeaveLobby(clientID)
	case "swap_colors":
		c.handleColorChange(clientID, false)
	case "randomize_colors":
		c.handleColorChange(clientID, true)
	case "start_game":
		c.handleStartGame(clientID)
	case "search_game":
		c.handleSearchGame(clientID, data)
	case "cancel_search":
		c.handleCancelSearch(clientID)
	case "move_piece":
		c.handleMovePiece(clientID, data)
	case "promotion_choice":
		c.handlePromotionChoice(clientID, data)
	case "resign":
		c.handleResign(clientID)
	case "offer_draw":
		c.handleOfferDraw(clientID)
	case "accept_draw":
		c.handleAcceptDraw(clientID)
	case "decline_draw":
		c.handleDeclineDraw(clientID)
	case "get_valid_moves":
		c.handleGetValidMoves(clientID)
	default:
		c.msgr.Send(clientID, newError(fmt.Sprintf("unknown message type: %s", msgType)))
	}
}

func (c *Controller) handleCreateLobby(clientID string, data []byte) {
	var msg createLobbyMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		c.msgr.Send(clientID, newError("malformed create_lobby"))
		return
	}
	if msg.Settings.TimeMinutes < 0 || msg.Settings.TimeIncrementSeconds < 0 {
		c.msgr.Send(clientID, newError("invalid time settings"))
		return
	}

	l, err := c.registry.Create(clientID, msg.PlayerName, msg.Settings)
	if err != nil {
		c.msgr.Send(clientID, newError(err.Error()))
		return
	}
	if msg.Settings.WithBot {
		c.registry.AddBotSeat(l, botName)
	}

	c.saveLobby(l)
	c.saveClientSeat(clientID, l)
	c.msgr.Send(clientID, lobbyCreatedMsg{
		Type:        "lobby_created",
		LobbyCode:   l.Code,
		PlayerColor: game.White,
		Lobby:       lobbySummary(l.Code, l.OwnerID, l.Players, l.Settings, l.Status),
	})
	log.Printf("Controller: lobby %s created by %s", l.Code, clientID)
}

func (c *Controller) handleJoinLobby(clientID string, data []byte) {
	var msg joinLobbyMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		c.msgr.Send(clientID, newError("malformed join_lobby"))
		return
	}

	l, err := c.registry.Join(msg.LobbyCode, clientID, msg.PlayerName)
	if err != nil {
		c.msgr.Send(clientID, newError(err.Error()))
		return
	}

	l.Mu.Lock()
	defer l.Mu.Unlock()

	seat, _ := l.Seat(clientID)
	info := lobbySummary(l.Code, l.OwnerID, l.Players, l.Settings, l.Status)
	c.msgr.Send(clientID, lobbyJoinedMsg{
		Type:        "lobby_joined",
		LobbyCode:   l.Code,
		PlayerColor: seat.Color,
		Lobby:       info,
	})
	for _, p := range l.Players {
		if p.ID != clientID && !p.IsBot {
			c.msgr.Send(p.ID, lobbyUpdateMsg{Type: "lobby_update", Lobby: info})
		}
	}
	c.saveLobby(l)
	c.saveClientSeat(clientID, l)
	log.Printf("Controller: %s joined lobby %s", clientID, l.Code)
}

func (c *Controller) handleLeaveLobby(clientID string) {
	l, ok := c.registry.LobbyFor(clientID)
	if !ok {
		c.msgr.Send(clientID, newError("not in a lobby"))
		return
	}
	l.Mu.Lock()
	defer l.Mu.Unlock()
	c.vacateSeatLocked(l, clientID, true)
}

// vacateSeatLocked removes the client's seat, resigning first when a game
// is running. notify controls the lobby_closed/lobby_update frames; silent
// removals (a searcher shedding an ended lobby) skip them. Caller holds
// l.Mu.
func (c *Controller) vacateSeatLocked(l *lobby.Lobby, clientID string, notify bool) {
	if l.Status == models.LobbyRunning && l.Game != nil && !l.Game.Over() {
		if seat, ok := l.Seat(clientID); ok {
			winner := seat.Color.Opponent()
			c.endGameLocked(l, &winner, "resign")
		}
	}

	_, closed, err := c.registry.Leave(clientID)
	if err != nil {
		return
	}
	c.deleteClientSeat(clientID)

	if closed {
		c.deleteLobbySnapshot(l.Code)
		if notify {
			c.msgr.Send(clientID, lobbyClosedMsg{Type: "lobby_closed", LobbyCode: l.Code})
		}
		log.Printf("Controller: lobby %s destroyed", l.Code)
		return
	}

	if notify {
		info := lobbySummary(l.Code, l.OwnerID, l.Players, l.Settings, l.Status)
		for _, p := range l.Players {
			if !p.IsBot {
				c.msgr.Send(p.ID, lobbyUpdateMsg{Type: "lobby_update", Lobby: info})
			}
		}
	}
	c.saveLobby(l)
}

func (c *Controller) handleColorChange(clientID string, randomize bool) {
	l, ok := c.registry.LobbyFor(clientID)
	if !ok {
		c.msgr.Send(clientID, newError("not in a lobby"))
		return
	}
	l.Mu.Lock()
	defer l.Mu.Unlock()

	if l.OwnerID != clientID {
		c.msgr.Send(clientID, newError("only the lobby owner can change colors"))
		return
	}
	if l.Status != models.LobbyForming {
		c.msgr.Send(clientID, newError("colors can only change before the game starts"))
		return
	}

	if randomize {
		l.RandomizeColors()
	} else {
		l.SwapColors()
	}

	info := lobbySummary(l.Code, l.OwnerID, l.Players, l.Settings, l.Status)
	for _, p := range l.Players {
		if !p.IsBot {
			c.msgr.Send(p.ID, lobbyUpdateMsg{Type: "lobby_update", Lobby: info})
		}
	}
	c.saveLobby(l)
	for _, p := range l.Players {
		if !p.IsBot {
			c.saveClientSeat(p.ID, l)
		}
	}
}

func (c *Controller) handleStartGame(clientID string) {
	l, ok := c.registry.LobbyFor(clientID)
	if !ok {
		c.msgr.Send(clientID, newError("not in a lobby"))
		return
	}
	l.Mu.Lock()
	defer l.Mu.Unlock()

	if l.OwnerID != clientID {
		c.msgr.Send(clientID, newError("only the lobby owner can start the game"))
		return
	}
	if l.Status != models.LobbyForming {
		c.msgr.Send(clientID, newError("game already started"))
		return
	}
	if len(l.Players) != 2 {
		c.msgr.Send(clientID, newError("two players are required to start"))
		return
	}

	c.startGameLocked(l)
}

// startGameLocked constructs the game, stamps the clocks, and notifies both
// seats. Caller holds l.Mu.
func (c *Controller) startGameLocked(l *lobby.Lobby) {
	l.Game = game.New(l.Settings.BaseMs(), l.Settings.IncrementMs(), c.cfg.PromotionCancelAllowed)
	l.Status = models.LobbyRunning

	c.saveLobby(l)
	for _, p := range l.Players {
		if p.IsBot {
			continue
		}
		c.msgr.Send(p.ID, gameStartedMsg{
			Type:        "game_started",
			LobbyCode:   l.Code,
			PlayerColor: p.Color,
			GameState:   c.stateFor(l.Game, p.Color),
		})
	}
	log.Printf("Controller: game started in lobby %s", l.Code)

	c.scheduleBotLocked(l)
}

func (c *Controller) handleSearchGame(clientID string, data []byte) {
	var msg searchGameMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		c.msgr.Send(clientID, newError("malformed search_game"))
		return
	}

	if l, ok := c.registry.LobbyFor(clientID); ok {
		l.Mu.Lock()
		if l.Status != models.LobbyEnded {
			l.Mu.Unlock()
			c.msgr.Send(clientID, newError("already in an active lobby"))
			return
		}
		// Seats in ended lobbies are silently vacated.
		c.vacateSeatLocked(l, clientID, false)
		l.Mu.Unlock()
	}

	partner, queued := c.queue.Search(clientID, msg.PlayerName)
	if queued {
		c.saveSearcher(clientID, msg.PlayerName)
		c.msgr.Send(clientID, searchStartedMsg{Type: "search_started"})
		return
	}
	if partner == nil {
		// Already queued; treat as an idempotent re-request.
		c.msgr.Send(clientID, searchStartedMsg{Type: "search_started"})
		return
	}

	c.deleteSearcher(partner.ClientID)

	// First searcher gets white and the lobby ownership.
	l, err := c.registry.Create(partner.ClientID, partner.Name, models.DefaultSettings())
	if err != nil {
		c.msgr.Send(clientID, newError(err.Error()))
		return
	}
	if _, err := c.registry.Join(l.Code, clientID, msg.PlayerName); err != nil {
		c.registry.Remove(l.Code)
		c.msgr.Send(clientID, newError(err.Error()))
		return
	}

	l.Mu.Lock()
	defer l.Mu.Unlock()

	c.msgr.Send(partner.ClientID, searchGameFoundMsg{
		Type:         "search_game_found",
		LobbyCode:    l.Code,
		OpponentName: msg.PlayerName,
		PlayerColor:  game.White,
	})
	c.msgr.Send(clientID, searchGameFoundMsg{
		Type:         "search_game_found",
		LobbyCode:    l.Code,
		OpponentName: partner.Name,
		PlayerColor:  game.Black,
	})
	c.saveClientSeat(partner.ClientID, l)
	c.saveClientSeat(clientID, l)
	log.Printf("Controller: matched %s with %s in lobby %s", partner.ClientID, clientID, l.Code)

	c.startGameLocked(l)
}

func (c *Controller) handleCancelSearch(clientID string) {
	c.queue.Cancel(clientID)
	c.deleteSearcher(clientID)
	c.msgr.Send(clientID, searchCancelledMsg{Type: "search_game_cancelled"})
}

// runningSeat resolves the client to its lobby and seat when a game is
// running. Caller must not hold l.Mu; the returned lobby is locked.
func (c *Controller) runningSeat(clientID string) (*lobby.Lobby, *models.Player, bool) {
	l, ok := c.registry.LobbyFor(clientID)
	if !ok {
		c.msgr.Send(clientID, newError("not in a lobby"))
		return nil, nil, false
	}
	l.Mu.Lock()
	if l.Status != models.LobbyRunning || l.Game == nil {
		l.Mu.Unlock()
		c.msgr.Send(clientID, newError("no active game"))
		return nil, nil, false
	}
	seat, ok := l.Seat(clientID)
	if !ok {
		l.Mu.Unlock()
		c.msgr.Send(clientID, newError("not seated in this lobby"))
		return nil, nil, false
	}
	return l, seat, true
}

func (c *Controller) handleMovePiece(clientID string, data []byte) {
	var msg movePieceMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		c.msgr.Send(clientID, newError("malformed move_piece"))
		return
	}

	l, seat, ok := c.runningSeat(clientID)
	if !ok {
		return
	}
	defer l.Mu.Unlock()

	g := l.Game
	if g.Over() {
		c.msgr.Send(clientID, invalidMoveMsg{Type: "invalid_move", Reason: string(game.ReasonGameOver)})
		return
	}

	// Flag check before anything else.
	now := time.Now().UnixMilli()
	if g.Clock().RemainingAt(g.Turn(), g.Turn(), now) <= 0 {
		winner := g.Turn().Opponent()
		c.endGameLocked(l, &winner, "timeout")
		return
	}

	if seat.Color != g.Turn() {
		c.msgr.Send(clientID, invalidMoveMsg{Type: "invalid_move", Reason: string(game.ReasonWrongTurn)})
		return
	}

	if merr := g.ApplyMove(msg.From, msg.To); merr != nil {
		c.msgr.Send(clientID, invalidMoveMsg{Type: "invalid_move", Reason: string(merr.Reason), Details: merr.Details})
		return
	}

	c.clearDrawOfferLocked(l)
	c.finishMoveLocked(l, seat.Color, now)
}

// finishMoveLocked completes a successfully applied half-move: promotion
// branch or clock charge, snapshot, broadcast, terminal check, bot turn.
func (c *Controller) finishMoveLocked(l *lobby.Lobby, mover game.Color, nowMs int64) {
	g := l.Game

	if g.PromotionPending() != nil {
		// Only the promoter learns of the move; the clock keeps running.
		c.saveLobby(l)
		if seat, ok := l.SeatByColor(mover); ok && !seat.IsBot {
			c.msgr.Send(seat.ID, promotionPendingMsg{
				Type:      "promotion_pending",
				Pending:   g.PromotionPending(),
				GameState: c.stateFor(g, mover),
			})
		}
		return
	}

	g.Clock().Charge(mover, nowMs)

	c.saveLobby(l)
	for _, p := range l.Players {
		if !p.IsBot {
			c.msgr.Send(p.ID, moveMadeMsg{Type: "move_made", GameState: c.stateFor(g, p.Color)})
		}
	}

	if g.Over() {
		reason := "stalemate"
		var winner *game.Color
		if w, ok := g.Winner(); ok {
			reason = "checkmate"
			win := w
			winner = &win
		}
		c.endGameLocked(l, winner, reason)
		return
	}

	c.scheduleBotLocked(l)
}

func (c *Controller) handlePromotionChoice(clientID string, data []byte) {
	var msg promotionChoiceMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		c.msgr.Send(clientID, newError("malformed promotion_choice"))
		return
	}

	l, seat, ok := c.runningSeat(clientID)
	if !ok {
		return
	}
	defer l.Mu.Unlock()

	g := l.Game

	// A pending promotion keeps the promoter's clock running; flag check
	// before resolving, exactly as on the move path.
	now := time.Now().UnixMilli()
	if !g.Over() && g.Clock().RemainingAt(g.Turn(), g.Turn(), now) <= 0 {
		winner := g.Turn().Opponent()
		c.endGameLocked(l, &winner, "timeout")
		return
	}

	pending := g.PromotionPending()
	if pending == nil || pending.Color != seat.Color {
		c.msgr.Send(clientID, newError("no promotion pending for you"))
		return
	}

	if msg.Choice == "cancel" {
		if merr := g.CancelPromotion(); merr != nil {
			c.msgr.Send(clientID, invalidMoveMsg{Type: "invalid_move", Reason: string(merr.Reason), Details: merr.Details})
			return
		}
		c.saveLobby(l)
		c.msgr.Send(clientID, promotionCanceledMsg{
			Type:      "promotion_canceled",
			GameState: c.stateFor(g, seat.Color),
		})
		return
	}

	kind, err := game.ParseKind(msg.Choice)
	if err != nil {
		c.msgr.Send(clientID, newError(err.Error()))
		return
	}
	if merr := g.ApplyPromotion(kind); merr != nil {
		c.msgr.Send(clientID, invalidMoveMsg{Type: "invalid_move", Reason: string(merr.Reason), Details: merr.Details})
		return
	}

	g.Clock().Charge(seat.Color, now)
	c.saveLobby(l)
	for _, p := range l.Players {
		if !p.IsBot {
			c.msgr.Send(p.ID, promotionAppliedMsg{Type: "promotion_applied", GameState: c.stateFor(g, p.Color)})
		}
	}

	if g.Over() {
		reason := "stalemate"
		var winner *game.Color
		if w, ok := g.Winner(); ok {
			reason = "checkmate"
			win := w
			winner = &win
		}
		c.endGameLocked(l, winner, reason)
		return
	}
	c.scheduleBotLocked(l)
}

func (c *Controller) handleResign(clientID string) {
	l, seat, ok := c.runningSeat(clientID)
	if !ok {
		return
	}
	defer l.Mu.Unlock()

	winner := seat.Color.Opponent()
	c.endGameLocked(l, &winner, "resign")
}

func (c *Controller) handleOfferDraw(clientID string) {
	l, seat, ok := c.runningSeat(clientID)
	if !ok {
		return
	}
	defer l.Mu.Unlock()

	now := time.Now()
	c.mu.Lock()
	recent := c.drawTimes[clientID][:0]
	for _, t := range c.drawTimes[clientID] {
		if now.Sub(t) < drawOfferWindow {
			recent = append(recent, t)
		}
	}
	if len(recent) >= drawOfferLimit {
		retry := int(drawOfferWindow.Seconds() - now.Sub(recent[0]).Seconds())
		if retry < 1 {
			retry = 1
		}
		c.drawTimes[clientID] = recent
		c.mu.Unlock()
		c.msgr.Send(clientID, drawRateLimitedMsg{Type: "draw_offer_rate_limited", RetryAfter: retry})
		return
	}
	c.drawTimes[clientID] = append(recent, now)
	c.pendingDraw[l.Code] = clientID
	c.mu.Unlock()

	c.logDrawOffer(clientID)

	opponent, ok := l.Opponent(clientID)
	if ok && opponent.IsBot {
		// The bot plays on.
		c.mu.Lock()
		delete(c.pendingDraw, l.Code)
		c.mu.Unlock()
		c.msgr.Send(clientID, drawDeclinedMsg{Type: "draw_declined"})
		return
	}
	if ok {
		c.msgr.Send(opponent.ID, drawOfferedMsg{Type: "draw_offered", From: seat.Name})
	}
	c.msgr.Send(clientID, drawOfferAckMsg{Type: "draw_offer_ack"})
}

func (c *Controller) handleAcceptDraw(clientID string) {
	l, _, ok := c.runningSeat(clientID)
	if !ok {
		return
	}
	defer l.Mu.Unlock()

	c.mu.Lock()
	offerer, exists := c.pendingDraw[l.Code]
	c.mu.Unlock()
	if !exists || offerer == clientID {
		c.msgr.Send(clientID, newError("no draw offer to accept"))
		return
	}

	c.endGameLocked(l, nil, "draw")
}

func (c *Controller) handleDeclineDraw(clientID string) {
	l, _, ok := c.runningSeat(clientID)
	if !ok {
		return
	}
	defer l.Mu.Unlock()

	c.mu.Lock()
	offerer, exists := c.pendingDraw[l.Code]
	if exists && offerer != clientID {
		delete(c.pendingDraw, l.Code)
	}
	c.mu.Unlock()
	if !exists || offerer == clientID {
		c.msgr.Send(clientID, newError("no draw offer to decline"))
		return
	}

	c.msgr.Send(offerer, drawDeclinedMsg{Type: "draw_declined"})
}

func (c *Controller) handleGetValidMoves(clientID string) {
	l, _, ok := c.runningSeat(clientID)
	if !ok {
		return
	}
	defer l.Mu.Unlock()

	c.msgr.Send(clientID, validMovesMsg{Type: "valid_moves", ValidMoves: l.Game.LegalMoves()})
}

// clearDrawOfferLocked expires the lobby's pending offer; offers do not
// survive a move by either player.
func (c *Controller) clearDrawOfferLocked(l *lobby.Lobby) {
	c.mu.Lock()
	delete(c.pendingDraw, l.Code)
	c.mu.Unlock()
}

// endGameLocked finalizes the game and notifies both seats. A nil winner
// means a draw. Caller holds l.Mu.
func (c *Controller) endGameLocked(l *lobby.Lobby, winner *game.Color, reason string) {
	g := l.Game
	if g != nil && !g.Over() {
		if winner != nil {
			g.End(*winner)
		} else {
			g.EndDraw()
		}
	}
	l.Status = models.LobbyEnded

	c.mu.Lock()
	delete(c.pendingDraw, l.Code)
	delete(c.botPending, l.Code)
	c.mu.Unlock()

	c.saveLobby(l)

	var state *game.State
	if g != nil {
		state = g.Serialize(false)
	}
	msg := gameOverMsg{Type: "game_over", Reason: reason, Winner: winner, GameState: state}
	for _, p := range l.Players {
		if !p.IsBot {
			c.msgr.Send(p.ID, msg)
		}
	}
	log.Printf("Controller: game over in lobby %s: reason=%s", l.Code, reason)
}

// scheduleBotLocked queues an engine move when a bot holds the turn. At
// most one outstanding request per game; the result is applied back on the
// lobby's dispatch lock.
func (c *Controller) scheduleBotLocked(l *lobby.Lobby) {
	g := l.Game
	if g == nil || g.Over() || l.Status != models.LobbyRunning || c.engine == nil {
		return
	}
	bot, ok := l.SeatByColor(g.Turn())
	if !ok || !bot.IsBot {
		return
	}

	c.mu.Lock()
	if c.botPending[l.Code] {
		c.mu.Unlock()
		return
	}
	c.botPending[l.Code] = true
	c.mu.Unlock()

	botColor := bot.Color
	searchState := g.Serialize(false)

	time.AfterFunc(c.cfg.BotMoveDelay, func() {
		mv, found := c.engine.BestMove(game.Load(searchState), 0, botBudget)

		l.Mu.Lock()
		defer l.Mu.Unlock()

		c.mu.Lock()
		delete(c.botPending, l.Code)
		c.mu.Unlock()

		if !found || l.Status != models.LobbyRunning || l.Game == nil || l.Game.Over() {
			return
		}
		if l.Game.Turn() != botColor {
			return
		}
		c.applyBotMoveLocked(l, botColor, mv)
	})
}

func (c *Controller) applyBotMoveLocked(l *lobby.Lobby, botColor game.Color, mv *agent.Move) {
	g := l.Game
	now := time.Now().UnixMilli()

	if merr := g.ApplyMove(mv.From, mv.To); merr != nil {
		log.Printf("Controller: bot move rejected in lobby %s: %s", l.Code, merr.Reason)
		return
	}
	if g.PromotionPending() != nil {
		choice := game.Queen
		if mv.Promotion != nil {
			choice = *mv.Promotion
		}
		if merr := g.ApplyPromotion(choice); merr != nil {
			log.Printf("Controller: bot promotion rejected in lobby %s: %s", l.Code, merr.Reason)
			return
		}
	}

	c.clearDrawOfferLocked(l)
	c.finishMoveLocked(l, botColor, now)
}

// OnConnect resumes a client's lobby when it reconnects inside the grace
// window; brand-new clients are a no-op.
func (c *Controller) OnConnect(clientID string) {
	c.mu.Lock()
	if t, ok := c.graceTimers[clientID]; ok {
		t.Stop()
		delete(c.graceTimers, clientID)
	}
	c.mu.Unlock()

	l, ok := c.registry.LobbyFor(clientID)
	if !ok {
		return
	}
	l.Mu.Lock()
	defer l.Mu.Unlock()

	seat, ok := l.Seat(clientID)
	if !ok {
		return
	}

	for _, p := range l.Players {
		if p.ID != clientID && !p.IsBot {
			c.msgr.Send(p.ID, playerReconnectedMsg{Type: "player_reconnected", PlayerColor: seat.Color})
		}
	}
	if l.Status == models.LobbyRunning && l.Game != nil {
		// Resync the rejoining client with the live game.
		c.msgr.Send(clientID, gameStartedMsg{
			Type:        "game_started",
			LobbyCode:   l.Code,
			PlayerColor: seat.Color,
			GameState:   c.stateFor(l.Game, seat.Color),
		})
	}
	log.Printf("Controller: %s reconnected to lobby %s", clientID, l.Code)
}

// OnDisconnect handles a dead socket: queue removal, Forming-seat vacate,
// or the Running-game grace protocol.
func (c *Controller) OnDisconnect(clientID string) {
	if c.queue.Cancel(clientID) {
		c.deleteSearcher(clientID)
	}

	l, ok := c.registry.LobbyFor(clientID)
	if !ok {
		return
	}
	l.Mu.Lock()
	defer l.Mu.Unlock()

	seat, ok := l.Seat(clientID)
	if !ok {
		return
	}

	switch l.Status {
	case models.LobbyForming, models.LobbyEnded:
		c.vacateSeatLocked(l, clientID, true)
	case models.LobbyRunning:
		now := time.Now()
		abort := now.Add(c.cfg.DisconnectGrace)
		for _, p := range l.Players {
			if p.ID != clientID && !p.IsBot {
				c.msgr.Send(p.ID, playerDisconnectedMsg{
					Type:           "player_disconnected",
					PlayerColor:    seat.Color,
					DisconnectTime: now.UnixMilli(),
					AbortTime:      abort.UnixMilli(),
				})
			}
		}
		c.scheduleAutoResign(clientID, l.Code)
		log.Printf("Controller: %s disconnected from running lobby %s, grace until %s", clientID, l.Code, abort.Format(time.RFC3339))
	}
}

// scheduleAutoResign arms the cancellable grace timer for a disconnected
// seat.
func (c *Controller) scheduleAutoResign(clientID, code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.graceTimers[clientID]; ok {
		t.Stop()
	}
	c.graceTimers[clientID] = time.AfterFunc(c.cfg.DisconnectGrace, func() {
		c.autoResign(clientID, code)
	})
}

func (c *Controller) autoResign(clientID, code string) {
	c.mu.Lock()
	delete(c.graceTimers, clientID)
	c.mu.Unlock()

	if c.msgr.IsConnected(clientID) {
		return
	}
	l, ok := c.registry.Get(code)
	if !ok {
		return
	}
	l.Mu.Lock()
	defer l.Mu.Unlock()

	seat, ok := l.Seat(clientID)
	if !ok || l.Status != models.LobbyRunning || l.Game == nil || l.Game.Over() {
		return
	}

	winner := seat.Color.Opponent()
	c.endGameLocked(l, &winner, "disconnect")
	log.Printf("Controller: %s forfeited lobby %s by disconnect", clientID, code)
}

// RestoreFromSnapshot rebuilds the registry on cold start. Every human seat
// of a running game gets a grace-window auto-resign until it re-attaches.
func (c *Controller) RestoreFromSnapshot(ctx context.Context) {
	records, err := c.snap.LoadLobbies(ctx)
	if err != nil {
		log.Printf("Controller: snapshot restore failed: %v", err)
		return
	}
	for _, rec := range records {
		l := c.registry.Restore(rec)
		if l.Status != models.LobbyRunning {
			continue
		}
		for _, p := range l.Players {
			if !p.IsBot {
				c.scheduleAutoResign(p.ID, l.Code)
			}
		}
	}
	if len(records) > 0 {
		log.Printf("Controller: restored %d lobbies from snapshot", len(records))
	}
}

// stateFor serializes the game for one recipient; only the side to move
// receives the legal-move map.
func (c *Controller) stateFor(g *game.Game, recipient game.Color) *game.State {
	return g.Serialize(recipient == g.Turn())
}

// Snapshot write helpers. All best-effort with a short deadline.

func (c *Controller) snapCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func (c *Controller) saveLobby(l *lobby.Lobby) {
	ctx, cancel := c.snapCtx()
	defer cancel()
	c.snap.SaveLobby(ctx, l.Record())
}

func (c *Controller) deleteLobbySnapshot(code string) {
	ctx, cancel := c.snapCtx()
	defer cancel()
	c.snap.DeleteLobby(ctx, code)
}

func (c *Controller) saveClientSeat(clientID string, l *lobby.Lobby) {
	seat, ok := l.Seat(clientID)
	if !ok {
		return
	}
	ctx, cancel := c.snapCtx()
	defer cancel()
	c.snap.SaveClientLobby(ctx, &models.ClientLobby{
		ClientID:  clientID,
		LobbyCode: l.Code,
		Color:     seat.Color,
	})
}

func (c *Controller) deleteClientSeat(clientID string) {
	ctx, cancel := c.snapCtx()
	defer cancel()
	c.snap.DeleteClientLobby(ctx, clientID)
}

func (c *Controller) saveSearcher(clientID, name string) {
	ctx, cancel := c.snapCtx()
	defer cancel()
	c.snap.SaveSearcher(ctx, &models.SearchEntry{ClientID: clientID, Name: name, JoinedAt: time.Now()})
}

func (c *Controller) deleteSearcher(clientID string) {
	ctx, cancel := c.snapCtx()
	defer cancel()
	c.snap.DeleteSearcher(ctx, clientID)
}

func (c *Controller) logDrawOffer(clientID string) {
	ctx, cancel := c.snapCtx()
	defer cancel()
	c.snap.LogDrawOffer(ctx, &models.DrawOffer{OffererID: clientID, CreatedAt: time.Now()})
}
