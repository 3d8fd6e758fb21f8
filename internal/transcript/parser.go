// Package transcript reads chat transcripts for import and condenses
// conversation history for prompts.
package transcript

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// Entry is a single JSONL line. Two shapes are accepted: envelope lines
// ({"type":"user","message":{"role":..,"content":..}}) and flat chat
// lines ({"role":"user","content":..}).
type Entry struct {
	Type    string          `json:"type"`
	Message json.RawMessage `json:"message"`
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// Message is the parsed message content.
type Message struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"` // string or []ContentItem
}

// ContentItem represents a single content block.
type ContentItem struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ParsedEntry holds a fully parsed transcript entry.
type ParsedEntry struct {
	Type string // "user", "assistant", "system"
	Role string
	Text string
}

var systemReminderRe = regexp.MustCompile(`<system-reminder>[\s\S]*?</system-reminder>`)

// ParseFile reads a JSONL transcript file and returns parsed entries.
func ParseFile(path string) ([]ParsedEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads JSONL from r. Malformed lines are skipped.
func Parse(r io.Reader) ([]ParsedEntry, error) {
	var entries []ParsedEntry
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024) // 1MB line buffer

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		entry, err := parseLine(line)
		if err != nil {
			continue
		}
		if entry != nil {
			entries = append(entries, *entry)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan transcript: %w", err)
	}
	return entries, nil
}

// ParseLines parses transcript content from a string.
func ParseLines(content string) ([]ParsedEntry, error) {
	return Parse(strings.NewReader(content))
}

func parseLine(line []byte) (*ParsedEntry, error) {
	var entry Entry
	if err := json.Unmarshal(line, &entry); err != nil {
		return nil, err
	}

	var msg Message
	switch {
	case entry.Type != "" && entry.Message != nil:
		if err := json.Unmarshal(entry.Message, &msg); err != nil {
			return nil, err
		}
	case entry.Role != "" && entry.Content != nil:
		entry.Type = entry.Role
		msg = Message{Role: entry.Role, Content: entry.Content}
	default:
		return nil, nil
	}

	text := extractText(msg.Content)
	text = systemReminderRe.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)

	if len(text) < 5 {
		return nil, nil
	}
	if strings.HasPrefix(text, "{") {
		return nil, nil
	}

	return &ParsedEntry{
		Type: entry.Type,
		Role: msg.Role,
		Text: text,
	}, nil
}

// extractText handles the polymorphic content field.
// It may be a plain string or an array of ContentItem.
func extractText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var items []ContentItem
	if err := json.Unmarshal(raw, &items); err == nil {
		var texts []string
		for _, item := range items {
			if item.Type == "text" && item.Text != "" {
				texts = append(texts, item.Text)
			}
		}
		return strings.Join(texts, "\n")
	}

	return ""
}

// UserMessages returns the text of every user entry, in order.
func UserMessages(entries []ParsedEntry) []string {
	var out []string
	for _, e := range entries {
		if e.Type == "user" {
			out = append(out, e.Text)
		}
	}
	return out
}
