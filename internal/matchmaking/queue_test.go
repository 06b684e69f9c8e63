package matchmaking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchQueuesFirstClient(t *testing.T) {
	q := NewQueue()

	partner, queued := q.Search("alice", "Alice")
	assert.Nil(t, partner)
	assert.True(t, queued)
	assert.True(t, q.Contains("alice"))
	assert.Equal(t, 1, q.Len())
}

func TestSearchPairsWithLongestWaiting(t *testing.T) {
	q := NewQueue()

	_, queued := q.Search("alice", "Alice")
	require.True(t, queued)
	_, queued = q.Search("bob", "Bob")
	require.True(t, queued)

	partner, queued := q.Search("carol", "Carol")
	require.NotNil(t, partner)
	assert.False(t, queued)
	assert.Equal(t, "alice", partner.ClientID, "FIFO order")

	assert.False(t, q.Contains("alice"))
	assert.True(t, q.Contains("bob"))
	assert.False(t, q.Contains("carol"), "the matcher is never enqueued")
	assert.Equal(t, 1, q.Len())
}

func TestDuplicateSearchIgnored(t *testing.T) {
	q := NewQueue()

	_, queued := q.Search("alice", "Alice")
	require.True(t, queued)

	partner, queued := q.Search("alice", "Alice")
	assert.Nil(t, partner)
	assert.False(t, queued)
	assert.Equal(t, 1, q.Len())
}

func TestCancel(t *testing.T) {
	q := NewQueue()

	assert.False(t, q.Cancel("alice"))

	_, queued := q.Search("alice", "Alice")
	require.True(t, queued)
	assert.True(t, q.Cancel("alice"))
	assert.False(t, q.Contains("alice"))
	assert.Equal(t, 0, q.Len())

	// A cancelled searcher can requeue.
	_, queued = q.Search("alice", "Alice")
	assert.True(t, queued)
}
