package llm

import (
	"fmt"
	"sort"
	"strings"
)

// AnalyzeSystemPrompt instructs the model to extract structured metadata
// from a single user message.
const AnalyzeSystemPrompt = `You are the context extraction engine for a memory-backed assistant.
Analyze the user's message and extract structured metadata.

OUTPUT FORMAT (JSON):
{
  "domains": ["education", "health", "fitness", "work", "general", ...],
  "category": "identity" | "habit" | "emotion" | "event",
  "time_scale": "one_time" | "repeated" | "long_term",
  "importance": "low" | "medium" | "high",
  "core_content": "summarized fact to store in memory",
  "confidence": 0.0 to 1.0
}

DEFINITIONS:
- identity: core beliefs, personality traits, long-term goals, roles.
- habit: recurring actions or routines.
- emotion: temporary feelings or states.
- event: specific occurrences.

NOISE FILTERING:
If the message is small talk (hi, ok, thanks) or filler, set domains to ["general"] and importance to "low".`

// RootEligibilityPrompt asks whether a candidate describes the user's core
// identity strongly enough to be folded into the root profile.
func RootEligibilityPrompt(content, category, timeScale string, profile string) string {
	if profile == "" {
		profile = "No root profile exists yet."
	}
	return fmt.Sprintf(`You are the root profile gatekeeper. The root profile is the persona anchor
for a user: a short summary, a map of traits and a list of values.

CURRENT ROOT PROFILE:
%s

CANDIDATE:
"%s"
(category: %s, time scale: %s)

Decide whether this candidate states a durable fact about who the user IS
(identity, role, defining trait, core value). Passing feelings, plans and events are NOT eligible.

OUTPUT JSON:
{
  "is_eligible": true | false,
  "summary_update": "one sentence to add to the persona summary, or empty",
  "extracted_traits": {"trait": "value"},
  "extracted_values": ["value"]
}`, profile, content, category, timeScale)
}

// AlignmentPrompt asks how a candidate relates to the root persona.
func AlignmentPrompt(content, summary string, traits map[string]any, values []string) string {
	var t []string
	for k, v := range traits {
		t = append(t, fmt.Sprintf("%s=%v", k, v))
	}
	sort.Strings(t)
	return fmt.Sprintf(`You are the root alignment engine.

ROOT PERSONA:
Summary: %s
Traits: %s
Values: %s

NEW MEMORY CANDIDATE:
"%s"

Determine the alignment of the candidate with the root persona.
- "aligned": supports or exemplifies existing root traits or values.
- "contradictory": directly opposes specific root traits or values.
- "neutral": unrelated or does not strongly interact with the root.
- "redefining": a major, explicit life change stated by the user (rare).

OUTPUT JSON:
{
  "root_alignment": "aligned" | "contradictory" | "neutral" | "redefining",
  "reasoning": "brief explanation"
}`, summary, strings.Join(t, ", "), strings.Join(values, ", "), content)
}

// ResponseSystemPrompt wraps retrieved memory and recent history for reply generation.
func ResponseSystemPrompt(memoryContext, history string) string {
	var b strings.Builder
	b.WriteString(`You are a deeply contextual companion with a tree-structured memory of the user.

RETRIEVED MEMORY:
`)
	b.WriteString(memoryContext)
	if history != "" {
		b.WriteString("\nRECENT CONVERSATION:\n")
		b.WriteString(history)
	}
	b.WriteString(`

INSTRUCTIONS:
1. ROOT is the user's core identity and your primary truth.
2. STEM, BRANCH and LEAF are context. If a LEAF contradicts ROOT, ignore the LEAF.
3. Match the tone to the user's root traits.
4. Be helpful and grounded. Do not mention the memory system.`)
	return b.String()
}
