package engine

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/lazypower/rooted/internal/index"
	"github.com/lazypower/rooted/internal/store"
)

// Results counts what happened to a batch of candidates.
type Results struct {
	Processed   int `json:"processed"`
	RootUpdates int `json:"root_updates"`
	NewMemories int `json:"new_memories"`
	Reinforced  int `json:"reinforced"`
	Discarded   int `json:"discarded"`
}

const (
	promoteToBranchCount = 3
	promoteToStemConf    = 0.95
	reinforceStep        = 0.1
)

// Ingest stores a single analysed message.
func (e *Engine) Ingest(ctx context.Context, userID string, ac AnalyzedContext) (Results, error) {
	return e.ProcessCandidates(ctx, userID, []Candidate{ac.Candidate()})
}

// ProcessCandidates runs each candidate through the root gate, the noise
// gate, alignment and classification, then reinforces a near-identical
// existing memory or inserts a new one. The root profile is read once per
// batch and carried forward as it changes.
func (e *Engine) ProcessCandidates(ctx context.Context, userID string, candidates []Candidate) (Results, error) {
	var res Results

	profile, err := e.DB.GetProfile(userID)
	if err != nil {
		return res, fmt.Errorf("load root profile: %w", err)
	}

	for _, raw := range candidates {
		res.Processed++
		c := raw.normalize()
		log := e.log.With(zap.String("user", userID), zap.String("domain", c.Domain))

		if rootCandidate(c) {
			verdict, err := e.checkRootEligibility(ctx, c, profile)
			if err != nil {
				log.Warn("root gate skipped", zap.Error(err))
			} else if verdict.IsEligible {
				profile = mergeRoot(userID, profile, verdict)
				if err := e.DB.SaveProfile(profile); err != nil {
					return res, fmt.Errorf("save root profile: %w", err)
				}
				log.Info("root profile updated", zap.String("summary", profile.PersonaSummary))
				res.RootUpdates++
				continue
			}
		}

		if reason := storageEligible(c); reason != "" {
			log.Debug("candidate discarded", zap.String("reason", reason))
			res.Discarded++
			continue
		}

		alignment := e.checkAlignment(ctx, c.Content, profile)
		priority := Classify(c)

		if priority == PriorityLeaf && c.Importance == ImportanceLow && c.Category == CategoryEvent {
			log.Debug("candidate discarded", zap.String("reason", "low importance event"))
			res.Discarded++
			continue
		}
		if alignment == AlignmentContradictory {
			priority = PriorityLeaf
		}

		reinforced, err := e.storeCandidate(ctx, userID, c, priority, alignment)
		if err != nil {
			return res, err
		}
		if reinforced {
			res.Reinforced++
		} else {
			res.NewMemories++
		}
	}

	return res, nil
}

// storeCandidate reinforces the nearest existing node when it is close
// enough, otherwise inserts a new node. It reports whether it reinforced.
func (e *Engine) storeCandidate(ctx context.Context, userID string, c Candidate, priority Priority, alignment Alignment) (bool, error) {
	vec, err := e.Embedder.Embed(ctx, c.Content)
	if err != nil {
		return false, fmt.Errorf("embed candidate: %w", err)
	}

	// featureless text embeds to a constant vector and would match every
	// other featureless memory
	var matches []index.Match
	if len(tokenize(c.Content)) > 0 {
		matches, err = e.Index.Query(ctx, userID, vec, 1, "")
		if err != nil {
			return false, fmt.Errorf("nearest memory: %w", err)
		}
	}

	if len(matches) > 0 && matches[0].Distance < e.settings.ReinforceDistance {
		node, err := e.DB.GetNode(matches[0].ID)
		if err != nil {
			return false, fmt.Errorf("load matched node: %w", err)
		}
		if node != nil {
			return true, e.reinforce(ctx, node, c, alignment)
		}
		// index entry without a row; drop it and store fresh
		e.log.Warn("orphaned index entry", zap.String("id", matches[0].ID))
		if err := e.Index.Delete(ctx, userID, matches[0].ID); err != nil {
			return false, fmt.Errorf("drop orphaned entry: %w", err)
		}
	}

	node := &store.MemoryNode{
		UserID:             userID,
		Domain:             c.Domain,
		Priority:           string(priority),
		NodeType:           string(c.Category),
		Content:            c.Content,
		Confidence:         c.Confidence,
		ReinforcementCount: 1,
		RootAlignment:      string(alignment),
		CreatedAt:          e.nowMillis(),
	}
	if err := e.DB.CreateNode(node); err != nil {
		return false, err
	}
	if err := e.Index.Upsert(ctx, index.Entry{
		ID:        node.ID,
		UserID:    userID,
		Domain:    node.Domain,
		Priority:  node.Priority,
		Content:   node.Content,
		Embedding: vec,
	}); err != nil {
		if _, derr := e.DB.DeleteNode(node.ID); derr != nil {
			e.log.Error("rollback node insert", zap.String("id", node.ID), zap.Error(derr))
		}
		return false, fmt.Errorf("index node: %w", err)
	}

	e.log.Debug("memory stored", zap.String("id", node.ID), zap.String("priority", node.Priority))
	return false, nil
}

// reinforce bumps count and confidence and applies promotions. Promotions
// are judged on the priority the node had before this reinforcement, so a
// node climbs at most one level per call.
func (e *Engine) reinforce(ctx context.Context, node *store.MemoryNode, c Candidate, alignment Alignment) error {
	before := Priority(node.Priority)

	node.ReinforcementCount++
	node.Confidence = math.Min(1, node.Confidence+reinforceStep)
	node.LastUsedAt = e.nowMillis()
	node.RootAlignment = string(alignment)

	after := before
	switch {
	case before == PriorityLeaf && node.ReinforcementCount >= promoteToBranchCount && alignment != AlignmentContradictory:
		after = PriorityBranch
	case before == PriorityBranch && node.Confidence > promoteToStemConf && c.TimeScale == TimeLongTerm:
		after = PriorityStem
	}
	if after != before {
		node.Priority = string(after)
		node.LeafSince = nil
	}

	if err := e.DB.UpdateNode(node); err != nil {
		return fmt.Errorf("reinforce %s: %w", node.ID, err)
	}
	if after != before {
		if err := e.Index.SetPriority(ctx, node.UserID, node.ID, node.Priority); err != nil {
			return fmt.Errorf("reindex %s: %w", node.ID, err)
		}
		e.log.Info("memory promoted",
			zap.String("id", node.ID),
			zap.String("from", string(before)),
			zap.String("to", string(after)))
	}
	return nil
}
