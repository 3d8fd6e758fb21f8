package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lazypower/rooted/internal/llm"
	"github.com/lazypower/rooted/internal/store"
)

// rootVerdict is the model's answer to "does this belong in the root profile".
type rootVerdict struct {
	IsEligible      bool           `json:"is_eligible"`
	SummaryUpdate   string         `json:"summary_update"`
	ExtractedTraits map[string]any `json:"extracted_traits"`
	ExtractedValues []string       `json:"extracted_values"`
}

// rootCandidate reports whether a candidate is offered to the root gate at all.
func rootCandidate(c Candidate) bool {
	return c.Category == CategoryIdentity || c.TimeScale == TimeLongTerm
}

// checkRootEligibility asks the model whether c should be absorbed into the
// root profile. Failures are treated as "not eligible".
func (e *Engine) checkRootEligibility(ctx context.Context, c Candidate, profile *store.RootProfile) (rootVerdict, error) {
	if e.LLM == nil {
		return rootVerdict{}, nil
	}

	resp, err := e.LLM.Complete(ctx, llm.Request{
		Prompt:    llm.RootEligibilityPrompt(c.Content, string(c.Category), string(c.TimeScale), describeProfile(profile)),
		JSON:      true,
		MaxTokens: 400,
	})
	if err != nil {
		return rootVerdict{}, fmt.Errorf("root eligibility: %w", err)
	}

	var v rootVerdict
	if err := json.Unmarshal([]byte(llm.ExtractJSONObject(resp.Content)), &v); err != nil {
		return rootVerdict{}, fmt.Errorf("decode root eligibility: %w", err)
	}
	v.SummaryUpdate = strings.TrimSpace(v.SummaryUpdate)
	return v, nil
}

// mergeRoot folds a verdict into profile, creating the profile when nil.
// Traits are overwritten key by key, values are a set union in first-seen
// order and the summary grows by the new sentence unless already present.
func mergeRoot(userID string, profile *store.RootProfile, v rootVerdict) *store.RootProfile {
	if profile == nil {
		p := &store.RootProfile{
			UserID:          userID,
			PersonaSummary:  v.SummaryUpdate,
			Traits:          map[string]any{},
			Values:          mergeValues(nil, v.ExtractedValues),
			ConfidenceScore: 1.0,
		}
		for k, val := range v.ExtractedTraits {
			p.Traits[k] = val
		}
		return p
	}

	if profile.Traits == nil {
		profile.Traits = map[string]any{}
	}
	for k, val := range v.ExtractedTraits {
		profile.Traits[k] = val
	}
	profile.Values = mergeValues(profile.Values, v.ExtractedValues)
	profile.PersonaSummary = appendSummary(profile.PersonaSummary, v.SummaryUpdate)
	return profile
}

func mergeValues(existing, added []string) []string {
	seen := make(map[string]bool, len(existing)+len(added))
	out := make([]string, 0, len(existing)+len(added))
	for _, list := range [][]string{existing, added} {
		for _, v := range list {
			v = strings.TrimSpace(v)
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func appendSummary(current, update string) string {
	current = strings.TrimSpace(current)
	if update == "" || strings.Contains(current, update) {
		return current
	}
	if current == "" {
		return update
	}
	return strings.TrimSuffix(current, ".") + ". " + update
}

// describeProfile renders a profile for prompts. Nil renders as "".
func describeProfile(p *store.RootProfile) string {
	if p == nil {
		return ""
	}
	traits, _ := json.Marshal(p.Traits)
	return fmt.Sprintf("Summary: %s\nTraits: %s\nValues: %s",
		p.PersonaSummary, traits, strings.Join(p.Values, ", "))
}
