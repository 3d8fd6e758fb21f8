package engine

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/lazypower/rooted/internal/config"
	"github.com/lazypower/rooted/internal/index"
	"github.com/lazypower/rooted/internal/llm"
	"github.com/lazypower/rooted/internal/store"
)

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// testEngine wires an engine over in-memory SQLite and chromem with the
// hashing embedder. client may be nil.
func testEngine(t *testing.T, client llm.Client) *Engine {
	t.Helper()
	e := New(testDB(t), client, index.NewMemory(), NewHashEmbedder(256), DefaultSettings(), nil)
	t.Cleanup(e.Stop)
	return e
}

// fakeLLM answers each prompt kind the engine sends.
type fakeLLM struct {
	analysis  string // JSON for Analyze
	root      string // JSON for the root gate
	alignment string // root_alignment value
	reply     string
}

func (f *fakeLLM) client() *llm.MockClient {
	return &llm.MockClient{Handler: f.handle}
}

func (f *fakeLLM) handle(req llm.Request) (string, error) {
	switch {
	case req.Schema != nil:
		return f.analysis, nil
	case strings.Contains(req.Prompt, "root profile gatekeeper"):
		if f.root == "" {
			return `{"is_eligible": false}`, nil
		}
		return f.root, nil
	case strings.Contains(req.Prompt, "root alignment engine"):
		a := f.alignment
		if a == "" {
			a = "neutral"
		}
		return `{"root_alignment": "` + a + `", "reasoning": "test"}`, nil
	default:
		return f.reply, nil
	}
}

func analysisJSON(t *testing.T, ac AnalyzedContext) string {
	t.Helper()
	b, err := json.Marshal(ac)
	require.NoError(t, err)
	return string(b)
}

func TestNewDefaults(t *testing.T) {
	e := New(testDB(t), nil, index.NewMemory(), NewHashEmbedder(64), DefaultSettings(), nil)
	defer e.Stop()

	assert.NotNil(t, e.log)
	assert.Equal(t, 48*time.Hour, e.Settings().LeafTTL)
	assert.Equal(t, 0.25, e.Settings().ReinforceDistance)
}

func TestSettingsFrom(t *testing.T) {
	s := SettingsFrom(config.MemoryConfig{
		LeafTTL:           "24h",
		BranchStaleAfter:  "bogus",
		DecayInterval:     "10m",
		ReinforceDistance: 0,
		LeafResults:       3,
		HistoryTurns:      -1,
	})

	assert.Equal(t, 24*time.Hour, s.LeafTTL)
	assert.Equal(t, 7*24*time.Hour, s.BranchStaleAfter)
	assert.Equal(t, 10*time.Minute, s.DecayInterval)
	assert.Equal(t, 0.25, s.ReinforceDistance)
	assert.Equal(t, 3, s.LeafResults)
	assert.Equal(t, 6, s.HistoryTurns)
}

func TestDecayTimerStops(t *testing.T) {
	defer goleak.VerifyNone(t,
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
		goleak.IgnoreCurrent(),
	)

	db, err := store.OpenMemory()
	require.NoError(t, err)
	defer db.Close()

	settings := DefaultSettings()
	settings.DecayInterval = 10 * time.Millisecond
	e := New(db, nil, index.NewMemory(), NewHashEmbedder(64), settings, nil)

	e.StartDecayTimer()
	time.Sleep(30 * time.Millisecond)
	e.Stop()
	e.Stop() // idempotent
}

func TestDecayTimerSweepsOnStart(t *testing.T) {
	e := testEngine(t, nil)
	old := time.Now().Add(-72 * time.Hour).UnixMilli()
	require.NoError(t, e.DB.CreateNode(&store.MemoryNode{
		UserID: "u1", Priority: store.PriorityLeaf, NodeType: "event",
		Content: "went to the dentist", Confidence: 0.5, ReinforcementCount: 1, CreatedAt: old,
	}))

	e.StartDecayTimer()
	e.Stop()

	nodes, err := e.DB.ListNodes("u1", store.NodeFilter{})
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func TestStoreCandidateRollsBackOnIndexFailure(t *testing.T) {
	e := testEngine(t, nil)
	e.Index = failingIndex{}

	_, err := e.ProcessCandidates(context.Background(), "u1", []Candidate{{
		Content: "I run every morning before work", Domain: "fitness",
		Category: CategoryHabit, TimeScale: TimeRepeated, Importance: ImportanceMedium, Confidence: 0.8,
	}})
	require.Error(t, err)

	nodes, err := e.DB.ListNodes("u1", store.NodeFilter{})
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

type failingIndex struct{}

func (failingIndex) Upsert(context.Context, index.Entry) error { return assert.AnError }
func (failingIndex) Query(context.Context, string, []float32, int, string) ([]index.Match, error) {
	return nil, nil
}
func (failingIndex) SetPriority(context.Context, string, string, string) error { return nil }
func (failingIndex) Delete(context.Context, string, ...string) error           { return nil }
