package handlers

import (
	"absorb-chess/internal/game"
	"absorb-chess/internal/models"
)

// Envelope is the required shape of every inbound frame. Handlers decode
// the full frame into their own payload struct.
type Envelope struct {
	Type string `json:"type"`
}

// Inbound payloads.

type createLobbyMsg struct {
	PlayerName string          `json:"player_name"`
	Settings   models.Settings `json:"settings"`
}

type joinLobbyMsg struct {
	LobbyCode  string `json:"lobby_code"`
	PlayerName string `json:"player_name"`
}

type searchGameMsg struct {
	PlayerName string `json:"player_name"`
}

type movePieceMsg struct {
	From game.Square `json:"from"`
	To   game.Square `json:"to"`
}

type promotionChoiceMsg struct {
	Choice string `json:"choice"`
}

// Outbound payloads. Every type field matches the wire protocol exactly.

type sessionMsg struct {
	Type     string `json:"type"`
	ClientID string `json:"client_id"`
	Token    string `json:"token,omitempty"`
}

type validateServerResponse struct {
	Type          string `json:"type"`
	IsChessServer bool   `json:"isChessServer"`
}

// lobbyInfo is the lobby summary included in lobby lifecycle messages.
type lobbyInfo struct {
	LobbyCode string             `json:"lobby_code"`
	OwnerID   string             `json:"owner_id"`
	Players   []models.Player    `json:"players"`
	Settings  models.Settings    `json:"settings"`
	Status    models.LobbyStatus `json:"status"`
}

type lobbyCreatedMsg struct {
	Type        string     `json:"type"`
	LobbyCode   string     `json:"lobby_code"`
	PlayerColor game.Color `json:"player_color"`
	Lobby       lobbyInfo  `json:"lobby"`
}

type lobbyJoinedMsg struct {
	Type        string     `json:"type"`
	LobbyCode   string     `json:"lobby_code"`
	PlayerColor game.Color `json:"player_color"`
	Lobby       lobbyInfo  `json:"lobby"`
}

type lobbyUpdateMsg struct {
	Type  string    `json:"type"`
	Lobby lobbyInfo `json:"lobby"`
}

type lobbyClosedMsg struct {
	Type      string `json:"type"`
	LobbyCode string `json:"lobby_code"`
}

type gameStartedMsg struct {
	Type        string      `json:"type"`
	LobbyCode   string      `json:"lobby_code"`
	PlayerColor game.Color  `json:"player_color"`
	GameState   *game.State `json:"game_state"`
}

type moveMadeMsg struct {
	Type      string      `json:"type"`
	GameState *game.State `json:"game_state"`
}

type invalidMoveMsg struct {
	Type    string   `json:"type"`
	Reason  string   `json:"reason"`
	Details []string `json:"details,omitempty"`
}

type promotionPendingMsg struct {
	Type      string                 `json:"type"`
	Pending   *game.PromotionPending `json:"promotion_pending"`
	GameState *game.State            `json:"game_state"`
}

type promotionAppliedMsg struct {
	Type      string      `json:"type"`
	GameState *game.State `json:"game_state"`
}

type promotionCanceledMsg struct {
	Type      string      `json:"type"`
	GameState *game.State `json:"game_state"`
}

type validMovesMsg struct {
	Type       string                   `json:"type"`
	ValidMoves map[string][]game.Square `json:"valid_moves"`
}

type gameOverMsg struct {
	Type      string      `json:"type"`
	Reason    string      `json:"reason"`
	Winner    *game.Color `json:"winner,omitempty"`
	GameState *game.State `json:"game_state"`
}

type drawOfferedMsg struct {
	Type string `json:"type"`
	From string `json:"from"`
}

type drawOfferAckMsg struct {
	Type string `json:"type"`
}

type drawDeclinedMsg struct {
	Type string `json:"type"`
}

type drawRateLimitedMsg struct {
	Type       string `json:"type"`
	RetryAfter int    `json:"retry_after"`
}

type playerDisconnectedMsg struct {
	Type           string     `json:"type"`
	PlayerColor    game.Color `json:"player_color"`
	DisconnectTime int64      `json:"disconnect_time"`
	AbortTime      int64      `json:"abort_time"`
}

type playerReconnectedMsg struct {
	Type        string     `json:"type"`
	PlayerColor game.Color `json:"player_color"`
}

type searchStartedMsg struct {
	Type string `json:"type"`
}

type searchGameFoundMsg struct {
	Type         string     `json:"type"`
	LobbyCode    string     `json:"lobby_code"`
	OpponentName string     `json:"opponent_name"`
	PlayerColor  game.Color `json:"player_color"`
}

type searchCancelledMsg struct {
	Type string `json:"type"`
}

type errorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func newError(message string) errorMsg {
	return errorMsg{Type: "error", Message: message}
}

func lobbySummary(code, ownerID string, players []models.Player, settings models.Settings, status models.LobbyStatus) lobbyInfo {
	return lobbyInfo{
		LobbyCode: code,
		OwnerID:   ownerID,
		Players:   append([]models.Player(nil), players...),
		Settings:  settings,
		Status:    status,
	}
}
