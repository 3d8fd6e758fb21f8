package engine

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/lazypower/rooted/internal/llm"
	"github.com/lazypower/rooted/internal/store"
)

const (
	minContentChars = 4
	minConfidence   = 0.3
)

var smallTalk = map[string]bool{
	"hi": true, "hello": true, "hey": true, "ok": true, "okay": true, "k": true,
	"thanks": true, "thank you": true, "thx": true, "ty": true, "cool": true,
	"nice": true, "lol": true, "yes": true, "no": true, "yep": true, "nope": true,
	"sure": true, "bye": true, "goodbye": true, "hmm": true, "good morning": true,
	"good night": true, "how are you": true, "what's up": true,
}

// storageEligible filters noise before anything is written. It returns the
// reason for rejection, or "" when the candidate may be stored.
func storageEligible(c Candidate) string {
	content := strings.TrimSpace(c.Content)
	if len([]rune(content)) < minContentChars {
		return "too short"
	}
	if smallTalk[strings.Trim(strings.ToLower(content), " .!?,")] {
		return "small talk"
	}
	if c.Importance == ImportanceLow && c.Domain == "general" {
		return "low importance, general domain"
	}
	if c.Confidence < minConfidence {
		return "low confidence"
	}
	return ""
}

// checkAlignment asks how content relates to the root profile. Without a
// profile, or on any failure, the answer is neutral.
func (e *Engine) checkAlignment(ctx context.Context, content string, profile *store.RootProfile) Alignment {
	if profile == nil || e.LLM == nil {
		return AlignmentNeutral
	}

	resp, err := e.LLM.Complete(ctx, llm.Request{
		Prompt:    llm.AlignmentPrompt(content, profile.PersonaSummary, profile.Traits, profile.Values),
		JSON:      true,
		MaxTokens: 200,
	})
	if err != nil {
		e.log.Warn("alignment check failed", zap.Error(err))
		return AlignmentNeutral
	}

	var out struct {
		RootAlignment string `json:"root_alignment"`
	}
	if err := json.Unmarshal([]byte(llm.ExtractJSONObject(resp.Content)), &out); err != nil {
		e.log.Warn("alignment reply unusable", zap.Error(err))
		return AlignmentNeutral
	}
	return ParseAlignment(out.RootAlignment)
}
