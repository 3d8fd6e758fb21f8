package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// DecayResult counts lifecycle changes.
type DecayResult struct {
	Expired int `json:"expired"`
	Demoted int `json:"demoted"`
}

// Decay expires the user's old LEAF nodes and demotes unused BRANCH nodes
// to LEAF. Leaves expire when their leaf-since time is older than the leaf
// TTL, so a freshly demoted branch gets a full TTL before it is removed.
func (e *Engine) Decay(ctx context.Context, userID string) (DecayResult, error) {
	var res DecayResult
	now := e.now()

	expired, err := e.DB.ExpiredLeaves(userID, now.Add(-e.settings.LeafTTL).UnixMilli())
	if err != nil {
		return res, fmt.Errorf("find expired leaves: %w", err)
	}
	if len(expired) > 0 {
		n, err := e.DB.DeleteNodes(expired)
		if err != nil {
			return res, fmt.Errorf("delete expired leaves: %w", err)
		}
		res.Expired = n
		if err := e.Index.Delete(ctx, userID, expired...); err != nil {
			e.log.Warn("decay: index delete failed", zap.String("user", userID), zap.Error(err))
		}
	}

	stale, err := e.DB.StaleBranches(userID, now.Add(-e.settings.BranchStaleAfter).UnixMilli())
	if err != nil {
		return res, fmt.Errorf("find stale branches: %w", err)
	}
	if len(stale) > 0 {
		n, err := e.DB.DemoteToLeaf(stale, now.UnixMilli())
		if err != nil {
			return res, fmt.Errorf("demote stale branches: %w", err)
		}
		res.Demoted = n
		for _, id := range stale {
			if err := e.Index.SetPriority(ctx, userID, id, string(PriorityLeaf)); err != nil {
				e.log.Warn("decay: index demote failed", zap.String("id", id), zap.Error(err))
			}
		}
	}

	return res, nil
}

// DecayAll runs Decay for every user that owns memories.
func (e *Engine) DecayAll(ctx context.Context) (DecayResult, error) {
	var total DecayResult

	users, err := e.DB.UserIDs()
	if err != nil {
		return total, fmt.Errorf("list users: %w", err)
	}
	for _, u := range users {
		res, err := e.Decay(ctx, u)
		if err != nil {
			return total, fmt.Errorf("decay %s: %w", u, err)
		}
		total.Expired += res.Expired
		total.Demoted += res.Demoted
	}
	return total, nil
}
