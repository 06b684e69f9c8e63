package matchmaking

import (
	"sync"
	"time"

	"absorb-chess/internal/models"
)

// Queue is the FIFO matchmaking queue. A searcher is paired with the
// longest-waiting other searcher the moment one exists; there is no rating
// or range logic.
type Queue struct {
	mu      sync.Mutex
	entries []*models.SearchEntry
	byID    map[string]*models.SearchEntry
}

func NewQueue() *Queue {
	return &Queue{
		byID: make(map[string]*models.SearchEntry),
	}
}

// Search enqueues the client or, when someone else is already waiting,
// pops the longest-waiting entry and returns it as the partner. The caller
// creates the lobby and starts the game.
func (q *Queue) Search(clientID, name string) (partner *models.SearchEntry, queued bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.byID[clientID]; ok {
		return nil, false
	}

	for i, entry := range q.entries {
		if entry.ClientID == clientID {
			continue
		}
		q.entries = append(q.entries[:i], q.entries[i+1:]...)
		delete(q.byID, entry.ClientID)
		return entry, false
	}

	entry := &models.SearchEntry{
		ClientID: clientID,
		Name:     name,
		JoinedAt: time.Now(),
	}
	q.entries = append(q.entries, entry)
	q.byID[clientID] = entry
	return nil, true
}

// Cancel removes the client from the queue.
func (q *Queue) Cancel(clientID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.byID[clientID]; !ok {
		return false
	}
	delete(q.byID, clientID)
	for i, entry := range q.entries {
		if entry.ClientID == clientID {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			break
		}
	}
	return true
}

// Contains reports whether the client is currently queued.
func (q *Queue) Contains(clientID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.byID[clientID]
	return ok
}

// Len returns the number of waiting searchers.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}
