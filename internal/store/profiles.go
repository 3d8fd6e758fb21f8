package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// RootProfile is the persona anchor that sits above a user's memory tree.
type RootProfile struct {
	UserID          string         `json:"user_id"`
	PersonaSummary  string         `json:"persona_summary"`
	Traits          map[string]any `json:"traits"`
	Values          []string       `json:"values"`
	ConfidenceScore float64        `json:"confidence_score"`
	CreatedAt       int64          `json:"created_at"`
	LastUpdatedAt   int64          `json:"last_updated_at"`
}

// GetProfile returns the user's root profile. Returns nil, nil if none exists.
func (db *DB) GetProfile(userID string) (*RootProfile, error) {
	var p RootProfile
	var traits, values string
	err := db.QueryRow(`
		SELECT user_id, persona_summary, traits, core_values, confidence_score, created_at, last_updated_at
		FROM root_profiles WHERE user_id = ?
	`, userID).Scan(&p.UserID, &p.PersonaSummary, &traits, &values, &p.ConfidenceScore, &p.CreatedAt, &p.LastUpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	if err := json.Unmarshal([]byte(traits), &p.Traits); err != nil {
		return nil, fmt.Errorf("decode traits: %w", err)
	}
	if err := json.Unmarshal([]byte(values), &p.Values); err != nil {
		return nil, fmt.Errorf("decode values: %w", err)
	}
	if p.Traits == nil {
		p.Traits = map[string]any{}
	}
	if p.Values == nil {
		p.Values = []string{}
	}
	return &p, nil
}

// SaveProfile inserts or replaces the user's root profile.
func (db *DB) SaveProfile(p *RootProfile) error {
	if p.Traits == nil {
		p.Traits = map[string]any{}
	}
	if p.Values == nil {
		p.Values = []string{}
	}
	traits, err := json.Marshal(p.Traits)
	if err != nil {
		return fmt.Errorf("encode traits: %w", err)
	}
	values, err := json.Marshal(p.Values)
	if err != nil {
		return fmt.Errorf("encode values: %w", err)
	}

	now := time.Now().UnixMilli()
	if p.CreatedAt == 0 {
		p.CreatedAt = now
	}
	p.LastUpdatedAt = now

	_, err = db.Exec(`
		INSERT INTO root_profiles (user_id, persona_summary, traits, core_values, confidence_score, created_at, last_updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			persona_summary = excluded.persona_summary,
			traits = excluded.traits,
			core_values = excluded.core_values,
			confidence_score = excluded.confidence_score,
			last_updated_at = excluded.last_updated_at
	`, p.UserID, p.PersonaSummary, string(traits), string(values), p.ConfidenceScore, p.CreatedAt, p.LastUpdatedAt)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}
