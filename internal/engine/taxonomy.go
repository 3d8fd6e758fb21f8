package engine

import (
	"strings"

	"github.com/lazypower/rooted/internal/store"
)

// Priority is a node's position in the memory tree.
type Priority string

const (
	PriorityStem   Priority = store.PriorityStem   // identity
	PriorityBranch Priority = store.PriorityBranch // habits and patterns
	PriorityLeaf   Priority = store.PriorityLeaf   // episodic events
)

// Category is the kind of fact a candidate describes.
type Category string

const (
	CategoryIdentity Category = "identity"
	CategoryHabit    Category = "habit"
	CategoryEmotion  Category = "emotion"
	CategoryEvent    Category = "event"
)

// TimeScale is how long a fact is expected to hold.
type TimeScale string

const (
	TimeOneTime  TimeScale = "one_time"
	TimeRepeated TimeScale = "repeated"
	TimeLongTerm TimeScale = "long_term"
)

// Importance is the model's estimate of how much a fact matters.
type Importance string

const (
	ImportanceLow    Importance = "low"
	ImportanceMedium Importance = "medium"
	ImportanceHigh   Importance = "high"
)

// Alignment is how a candidate relates to the user's root profile.
type Alignment string

const (
	AlignmentAligned       Alignment = "aligned"
	AlignmentContradictory Alignment = "contradictory"
	AlignmentNeutral       Alignment = "neutral"
	AlignmentRedefining    Alignment = "redefining"
)

func clean(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ParsePriority returns the priority for s, or false if s is not one.
func ParsePriority(s string) (Priority, bool) {
	switch p := Priority(strings.ToUpper(strings.TrimSpace(s))); p {
	case PriorityStem, PriorityBranch, PriorityLeaf:
		return p, true
	}
	return "", false
}

// ParseCategory normalises s; unknown values become event.
func ParseCategory(s string) Category {
	switch c := Category(clean(s)); c {
	case CategoryIdentity, CategoryHabit, CategoryEmotion, CategoryEvent:
		return c
	}
	return CategoryEvent
}

// ParseTimeScale normalises s; unknown values become one_time.
func ParseTimeScale(s string) TimeScale {
	v := strings.ReplaceAll(clean(s), "-", "_")
	v = strings.ReplaceAll(v, " ", "_")
	switch ts := TimeScale(v); ts {
	case TimeOneTime, TimeRepeated, TimeLongTerm:
		return ts
	}
	return TimeOneTime
}

// ParseImportance normalises s; unknown values become low.
func ParseImportance(s string) Importance {
	switch i := Importance(clean(s)); i {
	case ImportanceLow, ImportanceMedium, ImportanceHigh:
		return i
	}
	return ImportanceLow
}

// ParseAlignment normalises s; unknown values become neutral.
func ParseAlignment(s string) Alignment {
	switch a := Alignment(clean(s)); a {
	case AlignmentAligned, AlignmentContradictory, AlignmentNeutral, AlignmentRedefining:
		return a
	}
	return AlignmentNeutral
}
