package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lazypower/rooted/internal/config"
	"github.com/lazypower/rooted/internal/index"
	"github.com/lazypower/rooted/internal/llm"
	"github.com/lazypower/rooted/internal/store"
)

var (
	// ErrEmptyMessage is returned by Chat for blank input.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrNotFound is returned when a memory node does not exist for the caller.
	ErrNotFound = errors.New("memory not found")
	// ErrNoLLM is returned when a reply is needed but no LLM is configured.
	ErrNoLLM = llm.ErrNoLLM
)

// VectorIndex is the nearest-neighbour store the engine writes node
// embeddings to.
type VectorIndex interface {
	Upsert(ctx context.Context, e index.Entry) error
	Query(ctx context.Context, userID string, embedding []float32, n int, priority string) ([]index.Match, error)
	SetPriority(ctx context.Context, userID, id, priority string) error
	Delete(ctx context.Context, userID string, ids ...string) error
}

// Settings tunes lifecycle and retrieval.
type Settings struct {
	LeafTTL           time.Duration
	BranchStaleAfter  time.Duration
	DecayInterval     time.Duration
	ReinforceDistance float64
	LeafResults       int
	HistoryTurns      int
}

// DefaultSettings matches config.Default.
func DefaultSettings() Settings {
	return Settings{
		LeafTTL:           48 * time.Hour,
		BranchStaleAfter:  7 * 24 * time.Hour,
		DecayInterval:     time.Hour,
		ReinforceDistance: 0.25,
		LeafResults:       5,
		HistoryTurns:      6,
	}
}

// SettingsFrom converts the memory section of the config.
func SettingsFrom(cfg config.MemoryConfig) Settings {
	d := DefaultSettings()
	s := Settings{
		LeafTTL:           config.Duration(cfg.LeafTTL, d.LeafTTL),
		BranchStaleAfter:  config.Duration(cfg.BranchStaleAfter, d.BranchStaleAfter),
		DecayInterval:     config.Duration(cfg.DecayInterval, d.DecayInterval),
		ReinforceDistance: cfg.ReinforceDistance,
		LeafResults:       cfg.LeafResults,
		HistoryTurns:      cfg.HistoryTurns,
	}
	if s.ReinforceDistance <= 0 {
		s.ReinforceDistance = d.ReinforceDistance
	}
	if s.LeafResults <= 0 {
		s.LeafResults = d.LeafResults
	}
	if s.HistoryTurns < 0 {
		s.HistoryTurns = d.HistoryTurns
	}
	return s
}

// Engine owns the memory tree: classification, storage, lifecycle and retrieval.
type Engine struct {
	DB       *store.DB
	LLM      llm.Client
	Index    VectorIndex
	Embedder Embedder

	settings Settings
	log      *zap.Logger
	now      func() time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates an Engine. A nil logger discards output.
func New(db *store.DB, client llm.Client, ix VectorIndex, emb Embedder, settings Settings, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		DB:       db,
		LLM:      client,
		Index:    ix,
		Embedder: emb,
		settings: settings,
		log:      logger.Named("engine"),
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Settings returns the engine's tuning.
func (e *Engine) Settings() Settings {
	return e.settings
}

// StartDecayTimer sweeps every user once at startup and then on the
// configured interval until Stop.
func (e *Engine) StartDecayTimer() {
	e.sweep()

	interval := e.settings.DecayInterval
	if interval <= 0 {
		interval = time.Hour
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				e.sweep()
			case <-e.stopCh:
				return
			}
		}
	}()
}

func (e *Engine) sweep() {
	res, err := e.DecayAll(context.Background())
	if err != nil {
		e.log.Error("decay sweep failed", zap.Error(err))
		return
	}
	if res.Expired > 0 || res.Demoted > 0 {
		e.log.Info("decay sweep", zap.Int("expired", res.Expired), zap.Int("demoted", res.Demoted))
	}
}

// Stop shuts down the engine's background goroutines and waits for them.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
	e.wg.Wait()
}

func (e *Engine) nowMillis() int64 {
	return e.now().UnixMilli()
}
