package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/lazypower/rooted/internal/engine"
	"github.com/lazypower/rooted/internal/index"
	"github.com/lazypower/rooted/internal/llm"
	"github.com/lazypower/rooted/internal/store"
)

// app is a fully wired local engine.
type app struct {
	db       *store.DB
	engine   *engine.Engine
	embedder *engine.CachedEmbedder
}

// openApp opens the store and vector index from cfg and builds an engine.
// A missing LLM is not fatal: analysis falls back to defaults and chat
// reports ErrNoLLM.
func openApp() (*app, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	ix, err := index.Open(cfg.Vector.Path, cfg.Vector.Compress)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open vector index: %w", err)
	}

	emb, err := engine.NewEmbedder(cfg.LLM.OllamaURL, cfg.LLM.EmbeddingModel, cfg.Memory.EmbeddingDims, cfg.Memory.CacheSize)
	if err != nil {
		db.Close()
		return nil, err
	}

	var client llm.Client
	if c, err := llm.NewClient(cfg.LLM); err != nil {
		logger.Warn("LLM not configured, replies disabled", zap.Error(err))
	} else {
		client = c
	}

	eng := engine.New(db, client, ix, emb, engine.SettingsFrom(cfg.Memory), logger)
	logger.Debug("engine ready",
		zap.String("db", cfg.Database.Path),
		zap.String("vectors", cfg.Vector.Path),
		zap.String("embedder", emb.Model()),
		zap.String("llm", cfg.LLM.Provider))

	return &app{db: db, engine: eng, embedder: emb}, nil
}

func (a *app) Close() {
	a.engine.Stop()
	a.embedder.Close()
	a.db.Close()
}
