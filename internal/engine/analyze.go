package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/lazypower/rooted/internal/llm"
)

// AnalyzedContext is the structured reading of a single user message.
type AnalyzedContext struct {
	Domains     []string   `json:"domains"`
	Category    Category   `json:"category"`
	TimeScale   TimeScale  `json:"time_scale"`
	Importance  Importance `json:"importance"`
	CoreContent string     `json:"core_content"`
	Confidence  float64    `json:"confidence"`
}

// analysisReply is the wire shape requested from the model.
type analysisReply struct {
	Domains     []string `json:"domains" jsonschema:"description=Life domains the message touches, lower case"`
	Category    string   `json:"category" jsonschema:"enum=identity,enum=habit,enum=emotion,enum=event"`
	TimeScale   string   `json:"time_scale" jsonschema:"enum=one_time,enum=repeated,enum=long_term"`
	Importance  string   `json:"importance" jsonschema:"enum=low,enum=medium,enum=high"`
	CoreContent string   `json:"core_content" jsonschema:"description=Summarized fact to store in memory"`
	Confidence  float64  `json:"confidence" jsonschema:"description=Confidence between 0 and 1"`
}

var analysisSchema = llm.SchemaFor[analysisReply]()

// DefaultAnalysis is the safe reading used whenever analysis fails.
func DefaultAnalysis(message string) AnalyzedContext {
	return AnalyzedContext{
		Domains:     []string{"general"},
		Category:    CategoryEvent,
		TimeScale:   TimeOneTime,
		Importance:  ImportanceLow,
		CoreContent: message,
		Confidence:  0.5,
	}
}

// Analyze extracts domains, category, time scale, importance and a core
// fact from message. It never fails: transport or parse errors yield
// DefaultAnalysis.
func (e *Engine) Analyze(ctx context.Context, message string) AnalyzedContext {
	if e.LLM == nil {
		return DefaultAnalysis(message)
	}

	resp, err := e.LLM.Complete(ctx, llm.Request{
		System:     llm.AnalyzeSystemPrompt,
		Prompt:     message,
		Schema:     analysisSchema,
		SchemaName: "analyzed_context",
		MaxTokens:  500,
	})
	if err != nil {
		e.log.Warn("analyze: llm call failed", zap.Error(err))
		return DefaultAnalysis(message)
	}

	ac, err := parseAnalysis(resp.Content, message)
	if err != nil {
		e.log.Warn("analyze: unusable reply", zap.Error(err))
		return DefaultAnalysis(message)
	}
	return ac
}

func parseAnalysis(content, message string) (AnalyzedContext, error) {
	content = llm.ExtractJSONObject(content)
	if content == "" {
		return AnalyzedContext{}, fmt.Errorf("empty reply")
	}

	var reply analysisReply
	if err := json.Unmarshal([]byte(content), &reply); err != nil {
		return AnalyzedContext{}, fmt.Errorf("decode analysis: %w", err)
	}

	ac := AnalyzedContext{
		Domains:     normalizeDomains(reply.Domains),
		Category:    ParseCategory(reply.Category),
		TimeScale:   ParseTimeScale(reply.TimeScale),
		Importance:  ParseImportance(reply.Importance),
		CoreContent: strings.TrimSpace(reply.CoreContent),
		Confidence:  clamp01(reply.Confidence),
	}
	if ac.CoreContent == "" {
		ac.CoreContent = message
	}
	return ac, nil
}

// normalizeDomains sanitizes and de-duplicates, keeping order.
// An empty result becomes ["general"].
func normalizeDomains(domains []string) []string {
	out := sanitizeDomains(domains)
	if len(out) == 0 {
		return []string{"general"}
	}
	return out
}

// sanitizeDomains is normalizeDomains without the fallback; it may return
// an empty slice.
func sanitizeDomains(domains []string) []string {
	seen := make(map[string]bool, len(domains))
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		d = sanitizeDomain(d)
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}

// Candidate converts the analysis into a single memory candidate using the
// first domain as the primary one.
func (ac AnalyzedContext) Candidate() Candidate {
	domain := "general"
	if len(ac.Domains) > 0 {
		domain = ac.Domains[0]
	}
	return Candidate{
		Content:    ac.CoreContent,
		Domain:     domain,
		Category:   ac.Category,
		TimeScale:  ac.TimeScale,
		Importance: ac.Importance,
		Confidence: ac.Confidence,
	}
}
