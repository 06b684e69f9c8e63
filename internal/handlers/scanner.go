package handlers

import (
	"log"
	"sync"
	"time"

	"absorb-chess/internal/lobby"
	"absorb-chess/internal/models"
)

const scanInterval = 100 * time.Millisecond

// ClockScanner is the single loop that adjudicates flag falls. It wakes
// every 100 ms, computes the side to move's remaining time for every
// running game, and routes timeouts through the controller. A per-game
// in-flight guard keeps adjudication idempotent.
type ClockScanner struct {
	controller *Controller
	stopCh     chan struct{}
	stopOnce   sync.Once

	mu       sync.Mutex
	inFlight map[string]bool
}

func NewClockScanner(controller *Controller) *ClockScanner {
	return &ClockScanner{
		controller: controller,
		stopCh:     make(chan struct{}),
		inFlight:   make(map[string]bool),
	}
}

func (s *ClockScanner) Start() {
	go s.run()
	log.Println("Clock scanner started")
}

func (s *ClockScanner) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

func (s *ClockScanner) run() {
	ticker := time.NewTicker(scanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.scan()
		}
	}
}

func (s *ClockScanner) scan() {
	for _, l := range s.controller.Registry().All() {
		s.checkLobby(l)
	}
}

func (s *ClockScanner) checkLobby(l *lobby.Lobby) {
	s.mu.Lock()
	if s.inFlight[l.Code] {
		s.mu.Unlock()
		return
	}
	s.inFlight[l.Code] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.inFlight, l.Code)
		s.mu.Unlock()
	}()

	l.Mu.Lock()
	defer l.Mu.Unlock()

	if l.Status != models.LobbyRunning || l.Game == nil || l.Game.Over() {
		return
	}

	g := l.Game
	turn := g.Turn()
	now := time.Now().UnixMilli()
	if g.Clock().RemainingAt(turn, turn, now) > 0 {
		return
	}

	winner := turn.Opponent()
	s.controller.endGameLocked(l, &winner, "timeout")
	log.Printf("Clock scanner: %s flagged in lobby %s", turn, l.Code)
}
