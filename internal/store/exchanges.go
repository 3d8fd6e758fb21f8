package store

import (
	"fmt"
	"time"
)

// maxExchangeTextSize caps stored message and response bodies.
const maxExchangeTextSize = 16 * 1024

// Exchange is one user message and the assistant's reply.
type Exchange struct {
	ID         int64  `json:"id"`
	UserID     string `json:"user_id"`
	Message    string `json:"message"`
	Response   string `json:"response"`
	MemoryUsed string `json:"memory_used"` // JSON memory map
	CreatedAt  int64  `json:"created_at"`
}

// AddExchange records a chat turn. Message and response are truncated to 16KB.
func (db *DB) AddExchange(userID, message, response, memoryUsed string) error {
	if len(message) > maxExchangeTextSize {
		message = message[:maxExchangeTextSize]
	}
	if len(response) > maxExchangeTextSize {
		response = response[:maxExchangeTextSize]
	}
	if memoryUsed == "" {
		memoryUsed = "{}"
	}

	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO exchanges (user_id, message, response, memory_used, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, userID, message, response, memoryUsed, now)
	if err != nil {
		return fmt.Errorf("add exchange: %w", err)
	}
	return nil
}

// RecentExchanges returns up to limit of the user's latest exchanges, oldest first.
func (db *DB) RecentExchanges(userID string, limit int) ([]Exchange, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`
		SELECT id, user_id, message, response, memory_used, created_at
		FROM exchanges WHERE user_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent exchanges: %w", err)
	}
	defer rows.Close()

	var out []Exchange
	for rows.Next() {
		var e Exchange
		if err := rows.Scan(&e.ID, &e.UserID, &e.Message, &e.Response, &e.MemoryUsed, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan exchange: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// CountExchanges returns the number of recorded exchanges for a user.
func (db *DB) CountExchanges(userID string) (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM exchanges WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count exchanges: %w", err)
	}
	return n, nil
}
