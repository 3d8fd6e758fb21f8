package transcript

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestParseLinesEnvelope(t *testing.T) {
	lines := `{"type":"user","message":{"role":"user","content":"I just moved to Lisbon for work"}}
{"type":"assistant","message":{"role":"assistant","content":"Congratulations on the move!"}}
{"type":"user","message":{"role":"user","content":"Any tips for learning Portuguese?"}}`

	entries, err := ParseLines(lines)
	if err != nil {
		t.Fatalf("ParseLines: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Type != "user" || entries[0].Text != "I just moved to Lisbon for work" {
		t.Errorf("entry[0] = %+v", entries[0])
	}
	if entries[1].Type != "assistant" {
		t.Errorf("entry[1].Type = %q, want assistant", entries[1].Type)
	}
}

func TestParseLinesFlatChat(t *testing.T) {
	lines := `{"role":"user","content":"I am a nurse working nights"}
{"role":"assistant","content":"That sounds demanding."}
{"role":"system","content":""}`

	entries, err := ParseLines(lines)
	if err != nil {
		t.Fatalf("ParseLines: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Type != "user" || entries[0].Role != "user" {
		t.Errorf("entry[0] = %+v", entries[0])
	}
}

func TestParseLinesContentBlocks(t *testing.T) {
	lines := `{"role":"assistant","content":[{"type":"text","text":"Here is a plan:"},{"type":"image","text":""},{"type":"text","text":"walk daily"}]}`

	entries, err := ParseLines(lines)
	if err != nil {
		t.Fatalf("ParseLines: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Text != "Here is a plan:\nwalk daily" {
		t.Errorf("text = %q", entries[0].Text)
	}
}

func TestParseLinesSkipsNoise(t *testing.T) {
	lines := `{"role":"user","content":"ok"}
{"role":"user","content":"{\"json\":\"payload\"}"}
not json at all
{broken json
{"unrelated":"shape"}
{"role":"user","content":"I adopted a rescue dog"}`

	entries, err := ParseLines(lines)
	if err != nil {
		t.Fatalf("ParseLines: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d: %+v", len(entries), entries)
	}
	if entries[0].Text != "I adopted a rescue dog" {
		t.Errorf("text = %q", entries[0].Text)
	}
}

func TestParseLinesStripsSystemReminder(t *testing.T) {
	lines := `{"role":"user","content":"Remind me <system-reminder>hidden</system-reminder> to call mom"}`

	entries, err := ParseLines(lines)
	if err != nil {
		t.Fatalf("ParseLines: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Text != "Remind me  to call mom" {
		t.Errorf("text = %q", entries[0].Text)
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.jsonl")
	if err := os.WriteFile(path, []byte(`{"role":"user","content":"Training for a half marathon"}`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	entries, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.jsonl")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestUserMessages(t *testing.T) {
	entries := []ParsedEntry{
		{Type: "user", Text: "hello"},
		{Type: "assistant", Text: "hi"},
		{Type: "user", Text: "world"},
	}

	got := UserMessages(entries)
	if len(got) != 2 || got[0] != "hello" || got[1] != "world" {
		t.Errorf("UserMessages = %v", got)
	}
}

func TestCondenseKeepsOrder(t *testing.T) {
	entries := []ParsedEntry{
		{Type: "user", Text: "first question"},
		{Type: "assistant", Text: "first answer"},
		{Type: "user", Text: "second question"},
		{Type: "system", Text: "ignored"},
	}

	want := "[USER] first question\n\n[ASSISTANT] first answer\n\n[USER] second question"
	if got := Condense(entries); got != want {
		t.Errorf("Condense = %q, want %q", got, want)
	}
}

func TestCondenseTruncation(t *testing.T) {
	long := strings.Repeat("x", 2000)

	entries := []ParsedEntry{
		{Type: "assistant", Text: long}, // first → 1000
		{Type: "assistant", Text: long}, // mid → 200
		{Type: "assistant", Text: long}, // last → 1000
	}

	blocks := strings.Split(Condense(entries), "\n\n")
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(blocks))
	}
	wantLens := []int{1000, 200, 1000}
	for i, b := range blocks {
		text := strings.TrimSuffix(strings.TrimPrefix(b, "[ASSISTANT] "), "...")
		if len(text) != wantLens[i] {
			t.Errorf("block %d kept %d chars, want %d", i, len(text), wantLens[i])
		}
	}
}

func TestCondenseTruncationKeepsRunes(t *testing.T) {
	long := strings.Repeat("экзамен", 300) // 2-byte runes

	entries := []ParsedEntry{
		{Type: "assistant", Text: long},
		{Type: "assistant", Text: long},
		{Type: "assistant", Text: long},
	}
	for i, b := range strings.Split(Condense(entries), "\n\n") {
		if !utf8.ValidString(b) {
			t.Errorf("block %d is not valid UTF-8", i)
		}
		text := strings.TrimSuffix(strings.TrimPrefix(b, "[ASSISTANT] "), "...")
		if !strings.HasPrefix(long, text) {
			t.Errorf("block %d is not a prefix of the reply", i)
		}
	}
}

func TestCondenseUserNotTruncated(t *testing.T) {
	long := strings.Repeat("y", 3000)
	got := Condense([]ParsedEntry{{Type: "user", Text: long}})
	if got != "[USER] "+long {
		t.Errorf("user message was altered, len %d", len(got))
	}
}

func TestCondenseEmpty(t *testing.T) {
	if result := Condense(nil); result != "" {
		t.Errorf("expected empty string for nil, got %q", result)
	}
}
