package engine

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/lazypower/rooted/internal/store"
)

// RootSummary is the part of the root profile shown to the model and the caller.
type RootSummary struct {
	PersonaSummary string         `json:"persona_summary,omitempty"`
	Traits         map[string]any `json:"traits,omitempty"`
	Values         []string       `json:"values,omitempty"`
}

// Empty reports whether there is no root profile.
func (r RootSummary) Empty() bool {
	return r.PersonaSummary == "" && len(r.Traits) == 0 && len(r.Values) == 0
}

func rootSummaryOf(p *store.RootProfile) RootSummary {
	if p == nil {
		return RootSummary{}
	}
	return RootSummary{PersonaSummary: p.PersonaSummary, Traits: p.Traits, Values: p.Values}
}

// MemoryMap is the explanation of which memories informed a reply.
type MemoryMap struct {
	Root   RootSummary `json:"root"`
	Stem   []string    `json:"stem"`
	Branch []string    `json:"branch"`
	Leaf   []string    `json:"leaf"`
}

// MarshalJSON never emits null arrays.
func (m MemoryMap) MarshalJSON() ([]byte, error) {
	type plain MemoryMap
	out := plain(m)
	for _, s := range []*[]string{&out.Stem, &out.Branch, &out.Leaf} {
		if *s == nil {
			*s = []string{}
		}
	}
	return json.Marshal(out)
}

// Empty reports whether nothing was retrieved.
func (m MemoryMap) Empty() bool {
	return m.Root.Empty() && len(m.Stem) == 0 && len(m.Branch) == 0 && len(m.Leaf) == 0
}

// FormatContext renders a memory map as the prompt block given to the model.
func FormatContext(m MemoryMap) string {
	var b strings.Builder

	b.WriteString("ROOT (Persona Anchor):\n")
	if m.Root.Empty() {
		b.WriteString("  (none yet)\n")
	} else {
		if m.Root.PersonaSummary != "" {
			fmt.Fprintf(&b, "  Summary: %s\n", m.Root.PersonaSummary)
		}
		if len(m.Root.Traits) > 0 {
			keys := make([]string, 0, len(m.Root.Traits))
			for k := range m.Root.Traits {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			parts := make([]string, len(keys))
			for i, k := range keys {
				parts[i] = fmt.Sprintf("%s: %v", k, m.Root.Traits[k])
			}
			fmt.Fprintf(&b, "  Traits: %s\n", strings.Join(parts, ", "))
		}
		if len(m.Root.Values) > 0 {
			fmt.Fprintf(&b, "  Values: %s\n", strings.Join(m.Root.Values, ", "))
		}
	}

	section(&b, "STEM (Core Identity)", m.Stem)
	section(&b, "BRANCH (Habits/Patterns)", m.Branch)
	section(&b, "LEAF (Recent Events)", m.Leaf)
	return strings.TrimRight(b.String(), "\n")
}

func section(b *strings.Builder, title string, items []string) {
	b.WriteString(title)
	b.WriteString(":\n")
	if len(items) == 0 {
		b.WriteString("  (none)\n")
		return
	}
	for _, it := range items {
		b.WriteString("  - ")
		b.WriteString(it)
		b.WriteByte('\n')
	}
}
