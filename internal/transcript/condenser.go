package transcript

import (
	"strings"
	"unicode/utf8"
)

const (
	firstLastAssistantMax = 1000
	midAssistantMax       = 200
)

// Condense reduces a conversation to the text worth putting in a prompt,
// keeping turn order:
//   - user messages are kept whole
//   - the first and last assistant replies keep up to 1000 chars
//   - other assistant replies keep up to 200 chars
func Condense(entries []ParsedEntry) string {
	if len(entries) == 0 {
		return ""
	}

	assistants := 0
	for _, e := range entries {
		if e.Type == "assistant" {
			assistants++
		}
	}

	var b strings.Builder
	seen := 0
	for _, e := range entries {
		switch e.Type {
		case "user":
			b.WriteString("[USER] ")
			b.WriteString(e.Text)
		case "assistant":
			limit := midAssistantMax
			if seen == 0 || seen == assistants-1 {
				limit = firstLastAssistantMax
			}
			seen++
			b.WriteString("[ASSISTANT] ")
			b.WriteString(truncate(e.Text, limit))
		default:
			continue
		}
		b.WriteString("\n\n")
	}

	return strings.TrimSpace(b.String())
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max] + "..."
}
