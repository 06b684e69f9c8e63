package lobby

import (
	cryptorand "crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"math/rand"
	"sync"
	"time"

	"absorb-chess/internal/game"
	"absorb-chess/internal/models"
)

var (
	ErrNotFound       = errors.New("lobby not found")
	ErrFull           = errors.New("lobby is full")
	ErrAlreadyInLobby = errors.New("client is already in a lobby")
	ErrNotInLobby     = errors.New("client is not in a lobby")
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const codeLength = 6

// Lobby is one live lobby: seats, settings, lifecycle status and the game
// once started. The controller holds Mu across every dispatch that touches
// the lobby, so the fields need no locking of their own.
type Lobby struct {
	Mu sync.Mutex

	Code      string
	OwnerID   string
	Players   []models.Player
	Settings  models.Settings
	Status    models.LobbyStatus
	Game      *game.Game
	CreatedAt time.Time
}

// Seat returns the seat occupied by the client.
func (l *Lobby) Seat(clientID string) (*models.Player, bool) {
	for i := range l.Players {
		if l.Players[i].ID == clientID {
			return &l.Players[i], true
		}
	}
	return nil, false
}

// SeatByColor returns the seat holding the given color.
func (l *Lobby) SeatByColor(c game.Color) (*models.Player, bool) {
	for i := range l.Players {
		if l.Players[i].Color == c {
			return &l.Players[i], true
		}
	}
	return nil, false
}

// Opponent returns the other seat.
func (l *Lobby) Opponent(clientID string) (*models.Player, bool) {
	for i := range l.Players {
		if l.Players[i].ID != clientID {
			return &l.Players[i], true
		}
	}
	return nil, false
}

// SwapColors exchanges the two seats' colors.
func (l *Lobby) SwapColors() {
	for i := range l.Players {
		l.Players[i].Color = l.Players[i].Color.Opponent()
	}
}

// RandomizeColors shuffles which seat holds white.
func (l *Lobby) RandomizeColors() {
	if len(l.Players) == 2 && rand.Intn(2) == 1 {
		l.SwapColors()
	}
}

// Record converts the lobby to its durable snapshot form.
func (l *Lobby) Record() *models.LobbyRecord {
	rec := &models.LobbyRecord{
		Code:      l.Code,
		OwnerID:   l.OwnerID,
		Players:   append([]models.Player(nil), l.Players...),
		Settings:  l.Settings,
		Status:    l.Status,
		CreatedAt: l.CreatedAt,
	}
	if l.Game != nil {
		rec.GameState = l.Game.Serialize(false)
	}
	return rec
}

// Registry is the in-memory lobby index: code to lobby plus client to code.
// It is shared by every session goroutine and guarded by one mutex; the
// per-lobby dispatch lock is separate.
type Registry struct {
	mu          sync.RWMutex
	lobbies     map[string]*Lobby
	clientIndex map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		lobbies:     make(map[string]*Lobby),
		clientIndex: make(map[string]string),
	}
}

// generateCode draws 6-char uppercase alphanumeric codes until one is
// unused. Caller holds r.mu.
func (r *Registry) generateCode() (string, error) {
	for {
		buf := make([]byte, codeLength)
		for i := range buf {
			n, err := cryptorand.Int(cryptorand.Reader, big.NewInt(int64(len(codeAlphabet))))
			if err != nil {
				return "", fmt.Errorf("failed to generate lobby code: %w", err)
			}
			buf[i] = codeAlphabet[n.Int64()]
		}
		code := string(buf)
		if _, exists := r.lobbies[code]; !exists {
			return code, nil
		}
	}
}

// Create makes a new Forming lobby with the creator seated as white owner.
func (r *Registry) Create(ownerID, ownerName string, settings models.Settings) (*Lobby, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clientIndex[ownerID]; ok {
		return nil, ErrAlreadyInLobby
	}

	code, err := r.generateCode()
	if err != nil {
		return nil, err
	}

	l := &Lobby{
		Code:    code,
		OwnerID: ownerID,
		Players: []models.Player{
			{ID: ownerID, Name: ownerName, Color: game.White},
		},
		Settings:  settings,
		Status:    models.LobbyForming,
		CreatedAt: time.Now(),
	}
	r.lobbies[code] = l
	r.clientIndex[ownerID] = code
	return l, nil
}

// AddBotSeat fills the second chair with a bot playing black.
func (r *Registry) AddBotSeat(l *Lobby, name string) models.Player {
	bot := models.Player{
		ID:    "bot_" + l.Code,
		Name:  name,
		Color: game.Black,
		IsBot: true,
	}
	l.Players = append(l.Players, bot)
	return bot
}

// Join seats the client in the lobby as the opposite color of the first
// seat.
func (r *Registry) Join(code, clientID, name string) (*Lobby, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clientIndex[clientID]; ok {
		return nil, ErrAlreadyInLobby
	}
	l, ok := r.lobbies[code]
	if !ok {
		return nil, ErrNotFound
	}
	if len(l.Players) >= 2 {
		return nil, ErrFull
	}

	color := game.Black
	if len(l.Players) == 1 {
		color = l.Players[0].Color.Opponent()
	}
	l.Players = append(l.Players, models.Player{ID: clientID, Name: name, Color: color})
	r.clientIndex[clientID] = code
	return l, nil
}

// Leave vacates the client's seat. Ownership transfers to the first
// remaining seat; an empty lobby is destroyed. closed reports destruction.
func (r *Registry) Leave(clientID string) (l *Lobby, closed bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	code, ok := r.clientIndex[clientID]
	if !ok {
		return nil, false, ErrNotInLobby
	}
	l = r.lobbies[code]
	delete(r.clientIndex, clientID)

	for i := range l.Players {
		if l.Players[i].ID == clientID {
			l.Players = append(l.Players[:i], l.Players[i+1:]...)
			break
		}
	}

	humans := 0
	for _, p := range l.Players {
		if !p.IsBot {
			humans++
		}
	}
	if humans == 0 {
		delete(r.lobbies, code)
		return l, true, nil
	}
	if l.OwnerID == clientID {
		for _, p := range l.Players {
			if !p.IsBot {
				l.OwnerID = p.ID
				break
			}
		}
	}
	return l, false, nil
}

// Get returns the lobby by code.
func (r *Registry) Get(code string) (*Lobby, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.lobbies[code]
	return l, ok
}

// LobbyFor returns the lobby the client is seated in.
func (r *Registry) LobbyFor(clientID string) (*Lobby, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	code, ok := r.clientIndex[clientID]
	if !ok {
		return nil, false
	}
	l, ok := r.lobbies[code]
	return l, ok
}

// Remove destroys the lobby and clears every client mapping into it.
func (r *Registry) Remove(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lobbies[code]
	if !ok {
		return
	}
	for _, p := range l.Players {
		delete(r.clientIndex, p.ID)
	}
	delete(r.lobbies, code)
}

// Restore re-registers a lobby rebuilt from a snapshot record on cold
// start.
func (r *Registry) Restore(rec *models.LobbyRecord) *Lobby {
	r.mu.Lock()
	defer r.mu.Unlock()

	l := &Lobby{
		Code:      rec.Code,
		OwnerID:   rec.OwnerID,
		Players:   append([]models.Player(nil), rec.Players...),
		Settings:  rec.Settings,
		Status:    rec.Status,
		CreatedAt: rec.CreatedAt,
	}
	if rec.GameState != nil {
		l.Game = game.Load(rec.GameState)
	}
	r.lobbies[rec.Code] = l
	for _, p := range l.Players {
		if !p.IsBot {
			r.clientIndex[p.ID] = rec.Code
		}
	}
	return l
}

// All returns every live lobby.
func (r *Registry) All() []*Lobby {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Lobby, 0, len(r.lobbies))
	for _, l := range r.lobbies {
		out = append(out, l)
	}
	return out
}
