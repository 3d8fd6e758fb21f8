package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, ix *Index, entries ...Entry) {
	t.Helper()
	for _, e := range entries {
		require.NoError(t, ix.Upsert(context.Background(), e))
	}
}

func TestQueryEmptyCollection(t *testing.T) {
	ix := NewMemory()
	matches, err := ix.Query(context.Background(), "u", []float32{1, 0, 0}, 5, "")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestQueryClampsAndOrders(t *testing.T) {
	ix := NewMemory()
	seed(t, ix,
		Entry{ID: "a", UserID: "u", Domain: "work", Priority: "LEAF", Content: "a", Embedding: []float32{1, 0, 0}},
		Entry{ID: "b", UserID: "u", Domain: "work", Priority: "LEAF", Content: "b", Embedding: []float32{0.8, 0.6, 0}},
	)

	matches, err := ix.Query(context.Background(), "u", []float32{1, 0, 0}, 5, "")
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].ID)
	assert.InDelta(t, 0.0, matches[0].Distance, 1e-5)
	assert.Equal(t, "work", matches[0].Domain)
	assert.InDelta(t, 0.4, matches[1].Distance, 1e-5)
}

func TestQueryPriorityFilter(t *testing.T) {
	ix := NewMemory()
	seed(t, ix,
		Entry{ID: "stem", UserID: "u", Priority: "STEM", Content: "s", Embedding: []float32{1, 0}},
		Entry{ID: "leaf", UserID: "u", Priority: "LEAF", Content: "l", Embedding: []float32{0, 1}},
	)

	matches, err := ix.Query(context.Background(), "u", []float32{1, 0}, 2, "LEAF")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "leaf", matches[0].ID)
}

func TestUsersAreIsolated(t *testing.T) {
	ix := NewMemory()
	seed(t, ix,
		Entry{ID: "mine", UserID: "alice", Priority: "LEAF", Content: "x", Embedding: []float32{1, 0}},
		Entry{ID: "theirs", UserID: "bob", Priority: "LEAF", Content: "y", Embedding: []float32{1, 0}},
	)

	matches, err := ix.Query(context.Background(), "alice", []float32{1, 0}, 5, "")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "mine", matches[0].ID)
	assert.Equal(t, 1, ix.Count("bob"))
}

func TestSetPriority(t *testing.T) {
	ix := NewMemory()
	seed(t, ix, Entry{ID: "n", UserID: "u", Domain: "fitness", Priority: "LEAF", Content: "runs", Embedding: []float32{1, 0}})

	require.NoError(t, ix.SetPriority(context.Background(), "u", "n", "BRANCH"))

	leaves, err := ix.Query(context.Background(), "u", []float32{1, 0}, 1, "LEAF")
	require.NoError(t, err)
	assert.Empty(t, leaves)

	branches, err := ix.Query(context.Background(), "u", []float32{1, 0}, 1, "BRANCH")
	require.NoError(t, err)
	require.Len(t, branches, 1)
	assert.Equal(t, "fitness", branches[0].Domain)
	assert.Equal(t, "runs", branches[0].Content)
}

func TestSetPriorityMissing(t *testing.T) {
	ix := NewMemory()
	assert.Error(t, ix.SetPriority(context.Background(), "u", "ghost", "STEM"))
}

func TestDelete(t *testing.T) {
	ix := NewMemory()
	seed(t, ix,
		Entry{ID: "a", UserID: "u", Priority: "LEAF", Content: "a", Embedding: []float32{1, 0}},
		Entry{ID: "b", UserID: "u", Priority: "LEAF", Content: "b", Embedding: []float32{0, 1}},
	)

	require.NoError(t, ix.Delete(context.Background(), "u", "a"))
	require.NoError(t, ix.Delete(context.Background(), "u"))
	assert.Equal(t, 1, ix.Count("u"))
}

func TestUpsertRejectsEmptyEmbedding(t *testing.T) {
	ix := NewMemory()
	err := ix.Upsert(context.Background(), Entry{ID: "x", UserID: "u"})
	assert.Error(t, err)
}

func TestPersistentReopen(t *testing.T) {
	dir := t.TempDir()
	ix, err := Open(dir, false)
	require.NoError(t, err)
	seed(t, ix, Entry{ID: "p", UserID: "u", Priority: "STEM", Content: "persisted", Embedding: []float32{0, 1}})

	reopened, err := Open(dir, false)
	require.NoError(t, err)
	matches, err := reopened.Query(context.Background(), "u", []float32{0, 1}, 1, "")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "persisted", matches[0].Content)
}

func TestDistance(t *testing.T) {
	assert.InDelta(t, 0.0, Distance(1), 1e-9)
	assert.InDelta(t, 2.0, Distance(0), 1e-9)
	assert.InDelta(t, 0.0, Distance(1.0000001), 1e-9)
}
