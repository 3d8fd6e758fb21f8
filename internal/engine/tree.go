package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lazypower/rooted/internal/store"
)

// Tree is a user's whole memory laid out by tier, with branches grouped
// by domain.
type Tree struct {
	Root     RootSummary                   `json:"root"`
	Stem     []store.MemoryNode            `json:"stem"`
	Branches map[string][]store.MemoryNode `json:"branches"`
	Leaf     []store.MemoryNode            `json:"leaf"`
	Counts   map[string]int                `json:"counts"`
}

// Tree returns the user's memory tree.
func (e *Engine) Tree(userID string) (*Tree, error) {
	profile, err := e.DB.GetProfile(userID)
	if err != nil {
		return nil, err
	}
	nodes, err := e.DB.ListNodes(userID, store.NodeFilter{})
	if err != nil {
		return nil, err
	}
	counts, err := e.DB.CountByPriority(userID)
	if err != nil {
		return nil, err
	}

	t := &Tree{
		Root:     rootSummaryOf(profile),
		Stem:     []store.MemoryNode{},
		Branches: map[string][]store.MemoryNode{},
		Leaf:     []store.MemoryNode{},
		Counts:   counts,
	}
	for _, n := range nodes {
		switch n.Priority {
		case store.PriorityStem:
			t.Stem = append(t.Stem, n)
		case store.PriorityBranch:
			t.Branches[n.Domain] = append(t.Branches[n.Domain], n)
		default:
			t.Leaf = append(t.Leaf, n)
		}
	}
	return t, nil
}

// ListMemories returns the user's nodes, newest first. Empty priority or
// domain match everything.
func (e *Engine) ListMemories(userID, priority, domain string, limit int) ([]store.MemoryNode, error) {
	f := store.NodeFilter{Limit: limit}
	if priority != "" {
		p, ok := ParsePriority(priority)
		if !ok {
			return nil, fmt.Errorf("unknown priority %q", priority)
		}
		f.Priority = string(p)
	}
	if d := sanitizeDomain(domain); d != "" {
		f.Domains = []string{d}
	}
	nodes, err := e.DB.ListNodes(userID, f)
	if err != nil {
		return nil, err
	}
	if nodes == nil {
		nodes = []store.MemoryNode{}
	}
	return nodes, nil
}

// DeleteMemory removes one of the user's nodes from the store and the index.
func (e *Engine) DeleteMemory(ctx context.Context, userID, id string) error {
	node, err := e.DB.GetNode(id)
	if err != nil {
		return err
	}
	if node == nil || node.UserID != userID {
		return ErrNotFound
	}
	if _, err := e.DB.DeleteNode(id); err != nil {
		return err
	}
	if err := e.Index.Delete(ctx, userID, id); err != nil {
		e.log.Warn("index delete failed", zap.String("id", id), zap.Error(err))
	}
	return nil
}

// Profile returns the user's root profile, or nil if none exists yet.
func (e *Engine) Profile(userID string) (*store.RootProfile, error) {
	return e.DB.GetProfile(userID)
}

// History returns the user's latest exchanges, oldest first.
func (e *Engine) History(userID string, limit int) ([]store.Exchange, error) {
	xs, err := e.DB.RecentExchanges(userID, limit)
	if err != nil {
		return nil, err
	}
	if xs == nil {
		xs = []store.Exchange{}
	}
	return xs, nil
}
