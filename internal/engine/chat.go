package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/lazypower/rooted/internal/llm"
	"github.com/lazypower/rooted/internal/store"
	"github.com/lazypower/rooted/internal/transcript"
)

// ChatResponse is a generated reply and the memories that informed it.
type ChatResponse struct {
	Response   string    `json:"response"`
	MemoryUsed MemoryMap `json:"memory_used"`
}

// Chat runs one conversational turn: decay, analyze, store, retrieve,
// generate, record.
func (e *Engine) Chat(ctx context.Context, userID, message string) (*ChatResponse, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	log := e.log.With(zap.String("user", userID))

	if res, err := e.Decay(ctx, userID); err != nil {
		log.Warn("decay before chat failed", zap.Error(err))
	} else if res.Expired > 0 || res.Demoted > 0 {
		log.Debug("decayed", zap.Int("expired", res.Expired), zap.Int("demoted", res.Demoted))
	}

	ac := e.Analyze(ctx, message)

	stored, err := e.Ingest(ctx, userID, ac)
	if err != nil {
		return nil, fmt.Errorf("store memory: %w", err)
	}
	log.Debug("ingested",
		zap.Strings("domains", ac.Domains),
		zap.Int("new", stored.NewMemories),
		zap.Int("reinforced", stored.Reinforced),
		zap.Int("root_updates", stored.RootUpdates))

	memory, err := e.Retrieve(ctx, userID, message, ac.Domains)
	if err != nil {
		return nil, err
	}

	history, err := e.history(userID)
	if err != nil {
		log.Warn("load history failed", zap.Error(err))
	}

	reply, err := e.generate(ctx, memory, history, message)
	if err != nil {
		return nil, err
	}

	used, err := json.Marshal(memory)
	if err != nil {
		return nil, fmt.Errorf("encode memory map: %w", err)
	}
	if err := e.DB.AddExchange(userID, message, reply, string(used)); err != nil {
		log.Warn("record exchange failed", zap.Error(err))
	}

	return &ChatResponse{Response: reply, MemoryUsed: memory}, nil
}

func (e *Engine) generate(ctx context.Context, memory MemoryMap, history, message string) (string, error) {
	if e.LLM == nil {
		return "", ErrNoLLM
	}
	resp, err := e.LLM.Complete(ctx, llm.Request{
		System:      llm.ResponseSystemPrompt(FormatContext(memory), history),
		Prompt:      message,
		MaxTokens:   1000,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("generate reply: %w", err)
	}
	reply := strings.TrimSpace(resp.Content)
	if reply == "" {
		return "", fmt.Errorf("generate reply: empty response from %s", resp.Provider)
	}
	return reply, nil
}

// history condenses the last HistoryTurns exchanges into prompt text.
func (e *Engine) history(userID string) (string, error) {
	if e.settings.HistoryTurns == 0 {
		return "", nil
	}
	exchanges, err := e.DB.RecentExchanges(userID, e.settings.HistoryTurns)
	if err != nil {
		return "", err
	}
	return transcript.Condense(exchangeEntries(exchanges)), nil
}

func exchangeEntries(exchanges []store.Exchange) []transcript.ParsedEntry {
	entries := make([]transcript.ParsedEntry, 0, 2*len(exchanges))
	for _, x := range exchanges {
		entries = append(entries,
			transcript.ParsedEntry{Type: "user", Role: "user", Text: x.Message},
			transcript.ParsedEntry{Type: "assistant", Role: "assistant", Text: x.Response},
		)
	}
	return entries
}
