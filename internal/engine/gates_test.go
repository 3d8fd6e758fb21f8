package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lazypower/rooted/internal/llm"
	"github.com/lazypower/rooted/internal/store"
)

func TestStorageEligible(t *testing.T) {
	ok := Candidate{Content: "started a new job", Domain: "work", Importance: ImportanceMedium, Confidence: 0.7}

	tests := []struct {
		name   string
		mutate func(c *Candidate)
		want   string
	}{
		{"eligible", func(c *Candidate) {}, ""},
		{"too short", func(c *Candidate) { c.Content = "ok." }, "too short"},
		{"small talk", func(c *Candidate) { c.Content = "Thanks!" }, "small talk"},
		{"low importance general", func(c *Candidate) { c.Importance = ImportanceLow; c.Domain = "general" }, "low importance, general domain"},
		{"low importance elsewhere", func(c *Candidate) { c.Importance = ImportanceLow }, ""},
		{"low confidence", func(c *Candidate) { c.Confidence = 0.1 }, "low confidence"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ok
			tt.mutate(&c)
			assert.Equal(t, tt.want, storageEligible(c))
		})
	}
}

func TestCheckAlignment(t *testing.T) {
	profile := &store.RootProfile{
		UserID:         "u1",
		PersonaSummary: "Vegetarian who loves animals",
		Traits:         map[string]any{"diet": "vegetarian"},
		Values:         []string{"compassion"},
	}

	tests := []struct {
		name    string
		client  llm.Client
		profile *store.RootProfile
		want    Alignment
	}{
		{"no profile", &llm.MockClient{Responses: []string{`{"root_alignment": "aligned"}`}}, nil, AlignmentNeutral},
		{"no llm", nil, profile, AlignmentNeutral},
		{"aligned", &llm.MockClient{Responses: []string{`{"root_alignment": "aligned"}`}}, profile, AlignmentAligned},
		{"contradictory", &llm.MockClient{Responses: []string{`{"root_alignment": "Contradictory", "reasoning": "ate steak"}`}}, profile, AlignmentContradictory},
		{"unknown label", &llm.MockClient{Responses: []string{`{"root_alignment": "sideways"}`}}, profile, AlignmentNeutral},
		{"error", &llm.MockClient{Err: errors.New("down")}, profile, AlignmentNeutral},
		{"garbage", &llm.MockClient{Responses: []string{"no idea"}}, profile, AlignmentNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := testEngine(t, tt.client)
			got := e.checkAlignment(context.Background(), "had a steak dinner", tt.profile)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckAlignmentPrompt(t *testing.T) {
	mock := &llm.MockClient{Responses: []string{`{"root_alignment": "aligned"}`}}
	e := testEngine(t, mock)

	e.checkAlignment(context.Background(), "volunteered at the shelter", &store.RootProfile{
		PersonaSummary: "Loves animals",
		Traits:         map[string]any{},
	})

	if assert.Equal(t, 1, mock.CallCount()) {
		assert.Contains(t, mock.Calls[0].Prompt, "volunteered at the shelter")
		assert.Contains(t, mock.Calls[0].Prompt, "Loves animals")
		assert.True(t, mock.Calls[0].JSON)
	}
}
