package engine

import "strings"

// Belief statements are opinions, not facts about who the user is, unless
// they also state a role.
var (
	beliefMarkers = []string{"i believe", "i think", "i value", "important to me", "should", "opinion"}
	roleMarkers   = []string{"i am a", "i work as", "i live in", "my role is"}
)

// Candidate is a memory proposed for storage.
type Candidate struct {
	Content    string     `json:"core_content"`
	Domain     string     `json:"domain"`
	Category   Category   `json:"category"`
	TimeScale  TimeScale  `json:"time_scale"`
	Importance Importance `json:"importance"`
	Confidence float64    `json:"confidence"`
}

// normalize applies the same defaults the analyzer uses to a candidate
// submitted from outside.
func (c Candidate) normalize() Candidate {
	c.Content = truncateClean(strings.TrimSpace(c.Content), maxContentChars)
	c.Domain = sanitizeDomain(c.Domain)
	if c.Domain == "" {
		c.Domain = "general"
	}
	c.Category = ParseCategory(string(c.Category))
	c.TimeScale = ParseTimeScale(string(c.TimeScale))
	c.Importance = ParseImportance(string(c.Importance))
	c.Confidence = clamp01(c.Confidence)
	return c
}

// Classify assigns a tree priority to a candidate. Rules are evaluated in order.
func Classify(c Candidate) Priority {
	content := strings.ToLower(c.Content)
	if containsAny(content, beliefMarkers) && !containsAny(content, roleMarkers) {
		return PriorityLeaf
	}

	switch {
	case c.Category == CategoryIdentity || c.TimeScale == TimeLongTerm:
		return PriorityStem
	case c.Category == CategoryHabit || c.TimeScale == TimeRepeated:
		return PriorityBranch
	case c.Confidence > 0.9 && c.Importance == ImportanceHigh:
		return PriorityStem
	}
	return PriorityLeaf
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
