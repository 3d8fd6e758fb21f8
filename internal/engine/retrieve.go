package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lazypower/rooted/internal/store"
)

// Retrieve builds the memory map for a turn. The four tiers are fetched
// concurrently and independently:
//
//   - root: the user's profile
//   - stem: every STEM node
//   - branch: BRANCH nodes in one of domains (none when domains is empty)
//   - leaf: nearest LEAF nodes to query that still exist as LEAF rows
//
// STEM and BRANCH nodes returned are marked as used.
func (e *Engine) Retrieve(ctx context.Context, userID, query string, domains []string) (MemoryMap, error) {
	var (
		m        MemoryMap
		stems    []store.MemoryNode
		branches []store.MemoryNode
	)

	domains = sanitizeDomains(domains)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		p, err := e.DB.GetProfile(userID)
		if err != nil {
			return fmt.Errorf("root: %w", err)
		}
		m.Root = rootSummaryOf(p)
		return nil
	})

	g.Go(func() error {
		nodes, err := e.DB.ListNodes(userID, store.NodeFilter{Priority: store.PriorityStem})
		if err != nil {
			return fmt.Errorf("stem: %w", err)
		}
		stems = nodes
		return nil
	})

	g.Go(func() error {
		if len(domains) == 0 {
			return nil
		}
		nodes, err := e.DB.ListNodes(userID, store.NodeFilter{Priority: store.PriorityBranch, Domains: domains})
		if err != nil {
			return fmt.Errorf("branch: %w", err)
		}
		branches = nodes
		return nil
	})

	g.Go(func() error {
		leaves, err := e.searchLeaves(gctx, userID, query)
		if err != nil {
			return fmt.Errorf("leaf: %w", err)
		}
		m.Leaf = leaves
		return nil
	})

	if err := g.Wait(); err != nil {
		return MemoryMap{}, fmt.Errorf("retrieve: %w", err)
	}

	m.Stem = contents(stems)
	m.Branch = contents(branches)

	touched := make([]string, 0, len(stems)+len(branches))
	for _, n := range stems {
		touched = append(touched, n.ID)
	}
	for _, n := range branches {
		touched = append(touched, n.ID)
	}
	if err := e.DB.TouchNodes(touched, e.nowMillis()); err != nil {
		e.log.Warn("retrieve: touch failed", zap.Error(err))
	}

	return m, nil
}

func (e *Engine) searchLeaves(ctx context.Context, userID, query string) ([]string, error) {
	if query == "" {
		return []string{}, nil
	}
	vec, err := e.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	matches, err := e.Index.Query(ctx, userID, vec, e.settings.LeafResults, string(PriorityLeaf))
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		node, err := e.DB.GetNode(m.ID)
		if err != nil {
			return nil, fmt.Errorf("load leaf %s: %w", m.ID, err)
		}
		if node != nil && node.UserID == userID && node.Priority == store.PriorityLeaf {
			out = append(out, node.Content)
			continue
		}
		e.resyncEntry(ctx, userID, m.ID, node)
	}
	return out, nil
}

// resyncEntry repairs an index entry that disagrees with the store: it is
// dropped when the row is gone, otherwise its priority is rewritten.
func (e *Engine) resyncEntry(ctx context.Context, userID, id string, node *store.MemoryNode) {
	var err error
	if node != nil && node.UserID == userID {
		err = e.Index.SetPriority(ctx, userID, id, node.Priority)
	} else {
		err = e.Index.Delete(ctx, userID, id)
	}
	if err != nil {
		e.log.Warn("retrieve: resync index entry", zap.String("id", id), zap.Error(err))
	}
}

func contents(nodes []store.MemoryNode) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Content)
	}
	return out
}
