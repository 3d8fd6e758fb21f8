package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Node priorities as stored in memory_nodes.priority.
const (
	PriorityStem   = "STEM"
	PriorityBranch = "BRANCH"
	PriorityLeaf   = "LEAF"
)

// MemoryNode is a single memory in the user's tree.
type MemoryNode struct {
	ID                 string  `json:"id"`
	UserID             string  `json:"user_id"`
	Domain             string  `json:"domain"`
	Priority           string  `json:"priority"`  // STEM, BRANCH, LEAF
	NodeType           string  `json:"node_type"` // identity, habit, emotion, event
	Content            string  `json:"content"`
	Confidence         float64 `json:"confidence"`
	ReinforcementCount int     `json:"reinforcement_count"`
	RootAlignment      string  `json:"root_alignment"`
	CreatedAt          int64   `json:"created_at"`
	UpdatedAt          int64   `json:"updated_at"`
	LastUsedAt         int64   `json:"last_used_at"`
	LeafSince          *int64  `json:"leaf_since,omitempty"`
}

// NodeFilter narrows ListNodes. Zero values match everything.
type NodeFilter struct {
	Priority string
	Domains  []string
	Limit    int
}

const nodeColumns = `id, user_id, domain, priority, node_type, content, confidence,
	reinforcement_count, root_alignment, created_at, updated_at, last_used_at, leaf_since`

// CreateNode inserts a new memory node. An empty ID gets a fresh uuid and
// zero timestamps default to now. LEAF nodes start their leaf-since clock
// at creation.
func (db *DB) CreateNode(node *MemoryNode) error {
	if node.ID == "" {
		node.ID = uuid.NewString()
	}
	now := time.Now().UnixMilli()
	if node.CreatedAt == 0 {
		node.CreatedAt = now
	}
	if node.LastUsedAt == 0 {
		node.LastUsedAt = node.CreatedAt
	}
	node.UpdatedAt = node.CreatedAt
	if node.Domain == "" {
		node.Domain = "general"
	}
	if node.RootAlignment == "" {
		node.RootAlignment = "neutral"
	}
	if node.Priority == PriorityLeaf && node.LeafSince == nil {
		since := node.CreatedAt
		node.LeafSince = &since
	}

	_, err := db.Exec(`
		INSERT INTO memory_nodes (`+nodeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, node.ID, node.UserID, node.Domain, node.Priority, node.NodeType, node.Content,
		node.Confidence, node.ReinforcementCount, node.RootAlignment,
		node.CreatedAt, node.UpdatedAt, node.LastUsedAt, nullInt(node.LeafSince))
	if err != nil {
		return fmt.Errorf("create node: %w", err)
	}
	return nil
}

// GetNode retrieves a node by id. Returns nil, nil if not found.
func (db *DB) GetNode(id string) (*MemoryNode, error) {
	row := db.QueryRow(`SELECT `+nodeColumns+` FROM memory_nodes WHERE id = ?`, id)
	n, err := scanNode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get node: %w", err)
	}
	return n, nil
}

// UpdateNode writes back the mutable fields of a node: priority, confidence,
// reinforcement count, alignment, last use and leaf-since.
func (db *DB) UpdateNode(node *MemoryNode) error {
	now := time.Now().UnixMilli()
	res, err := db.Exec(`
		UPDATE memory_nodes
		SET priority = ?, confidence = ?, reinforcement_count = ?, root_alignment = ?,
			last_used_at = ?, leaf_since = ?, updated_at = ?
		WHERE id = ?
	`, node.Priority, node.Confidence, node.ReinforcementCount, node.RootAlignment,
		node.LastUsedAt, nullInt(node.LeafSince), now, node.ID)
	if err != nil {
		return fmt.Errorf("update node: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update node %s: not found", node.ID)
	}
	node.UpdatedAt = now
	return nil
}

// ListNodes returns a user's nodes, newest first.
func (db *DB) ListNodes(userID string, f NodeFilter) ([]MemoryNode, error) {
	query := `SELECT ` + nodeColumns + ` FROM memory_nodes WHERE user_id = ?`
	args := []any{userID}

	if f.Priority != "" {
		query += ` AND priority = ?`
		args = append(args, f.Priority)
	}
	if len(f.Domains) > 0 {
		in, domainArgs := inClause(f.Domains)
		query += ` AND domain IN ` + in
		args = append(args, domainArgs...)
	}
	query += ` ORDER BY created_at DESC, id`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	defer rows.Close()
	return scanNodes(rows)
}

// TouchNodes sets last_used_at for the given ids.
func (db *DB) TouchNodes(ids []string, at int64) error {
	if len(ids) == 0 {
		return nil
	}
	in, args := inClause(ids)
	args = append([]any{at}, args...)
	_, err := db.Exec(`UPDATE memory_nodes SET last_used_at = ? WHERE id IN `+in, args...)
	if err != nil {
		return fmt.Errorf("touch nodes: %w", err)
	}
	return nil
}

// DeleteNode removes a single node. Returns false if it did not exist.
func (db *DB) DeleteNode(id string) (bool, error) {
	res, err := db.Exec(`DELETE FROM memory_nodes WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete node: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// DeleteNodes removes the given ids and returns how many rows went away.
func (db *DB) DeleteNodes(ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	in, args := inClause(ids)
	res, err := db.Exec(`DELETE FROM memory_nodes WHERE id IN `+in, args...)
	if err != nil {
		return 0, fmt.Errorf("delete nodes: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// ExpiredLeaves returns ids of LEAF nodes whose leaf-since time is before cutoff.
// An empty userID matches every user.
func (db *DB) ExpiredLeaves(userID string, cutoff int64) ([]string, error) {
	return db.selectIDs(`
		SELECT id FROM memory_nodes
		WHERE priority = 'LEAF' AND COALESCE(leaf_since, created_at) < ?
	`, userID, cutoff)
}

// StaleBranches returns ids of BRANCH nodes not used since cutoff.
// An empty userID matches every user.
func (db *DB) StaleBranches(userID string, cutoff int64) ([]string, error) {
	return db.selectIDs(`
		SELECT id FROM memory_nodes
		WHERE priority = 'BRANCH' AND last_used_at < ?
	`, userID, cutoff)
}

func (db *DB) selectIDs(query, userID string, cutoff int64) ([]string, error) {
	args := []any{cutoff}
	if userID != "" {
		query += ` AND user_id = ?`
		args = append(args, userID)
	}
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("select ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DemoteToLeaf turns the given nodes into LEAF and restarts their leaf-since clock.
func (db *DB) DemoteToLeaf(ids []string, at int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	in, args := inClause(ids)
	args = append([]any{at, at}, args...)
	res, err := db.Exec(`
		UPDATE memory_nodes SET priority = 'LEAF', leaf_since = ?, updated_at = ?
		WHERE id IN `+in, args...)
	if err != nil {
		return 0, fmt.Errorf("demote nodes: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// CountByPriority returns node counts per priority for a user.
func (db *DB) CountByPriority(userID string) (map[string]int, error) {
	rows, err := db.Query(`
		SELECT priority, COUNT(*) FROM memory_nodes WHERE user_id = ? GROUP BY priority
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("count nodes: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{PriorityStem: 0, PriorityBranch: 0, PriorityLeaf: 0}
	for rows.Next() {
		var p string
		var n int
		if err := rows.Scan(&p, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[p] = n
	}
	return counts, rows.Err()
}

// UserIDs returns every user that owns at least one node.
func (db *DB) UserIDs() ([]string, error) {
	rows, err := db.Query(`SELECT DISTINCT user_id FROM memory_nodes ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func nullInt(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNode(s scanner) (*MemoryNode, error) {
	var n MemoryNode
	var leafSince sql.NullInt64
	err := s.Scan(&n.ID, &n.UserID, &n.Domain, &n.Priority, &n.NodeType, &n.Content,
		&n.Confidence, &n.ReinforcementCount, &n.RootAlignment,
		&n.CreatedAt, &n.UpdatedAt, &n.LastUsedAt, &leafSince)
	if err != nil {
		return nil, err
	}
	if leafSince.Valid {
		v := leafSince.Int64
		n.LeafSince = &v
	}
	n.Content = strings.TrimSpace(n.Content)
	return &n, nil
}

func scanNodes(rows *sql.Rows) ([]MemoryNode, error) {
	var nodes []MemoryNode
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		nodes = append(nodes, *n)
	}
	return nodes, rows.Err()
}
