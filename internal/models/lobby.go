package models

import (
	"time"

	"absorb-chess/internal/game"
)

// LobbyStatus is the lobby lifecycle phase.
type LobbyStatus string

const (
	LobbyForming LobbyStatus = "forming" // Waiting for seats / start
	LobbyRunning LobbyStatus = "running" // Game in progress
	LobbyEnded   LobbyStatus = "ended"   // Game finished
)

// Settings are the per-lobby game settings supplied at creation.
type Settings struct {
	TimeMinutes          int  `json:"time_minutes" bson:"time_minutes"`
	TimeIncrementSeconds int  `json:"time_increment_seconds" bson:"time_increment_seconds"`
	WithBot              bool `json:"with_bot,omitempty" bson:"with_bot"`
}

// DefaultSettings are the matchmaking defaults: 10 minutes, no increment.
func DefaultSettings() Settings {
	return Settings{TimeMinutes: 10, TimeIncrementSeconds: 0}
}

func (s Settings) BaseMs() int64 {
	return int64(s.TimeMinutes) * 60_000
}

func (s Settings) IncrementMs() int64 {
	return int64(s.TimeIncrementSeconds) * 1_000
}

// Player is one lobby seat.
type Player struct {
	ID    string     `json:"id" bson:"id"`
	Name  string     `json:"name" bson:"name"`
	Color game.Color `json:"color" bson:"color"`
	IsBot bool       `json:"is_bot,omitempty" bson:"is_bot,omitempty"`
}

// LobbyRecord is the durable snapshot of one lobby.
type LobbyRecord struct {
	Code      string      `json:"lobby_code" bson:"_id"`
	OwnerID   string      `json:"owner_id" bson:"owner_id"`
	Players   []Player    `json:"players" bson:"players"`
	Settings  Settings    `json:"settings" bson:"settings"`
	Status    LobbyStatus `json:"status" bson:"status"`
	GameState *game.State `json:"game_state,omitempty" bson:"game_state,omitempty"`
	CreatedAt time.Time   `json:"created_at" bson:"created_at"`
}

// ClientLobby maps a client id to the lobby and color it occupies.
type ClientLobby struct {
	ClientID  string     `json:"client_id" bson:"_id"`
	LobbyCode string     `json:"lobby_code" bson:"lobby_code"`
	Color     game.Color `json:"player_color" bson:"player_color"`
}

// SearchEntry is one matchmaking queue entry.
type SearchEntry struct {
	ClientID string    `json:"client_id" bson:"_id"`
	Name     string    `json:"name" bson:"name"`
	JoinedAt time.Time `json:"joined_at" bson:"joined_at"`
}

// DrawOffer is one logged draw offer, used for rate limiting.
type DrawOffer struct {
	OffererID string    `json:"offerer_id" bson:"offerer_id"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
