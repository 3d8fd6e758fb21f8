// Package index keeps memory embeddings in an embedded chromem-go vector
// database, one collection per user.
package index

import (
	"context"
	"fmt"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

// Entry is a memory node as seen by the vector index.
type Entry struct {
	ID        string
	UserID    string
	Domain    string
	Priority  string
	Content   string
	Embedding []float32
}

// Match is a nearest-neighbour hit.
type Match struct {
	ID         string
	Domain     string
	Priority   string
	Content    string
	Similarity float32 // cosine similarity
	Distance   float64 // squared L2 distance of the unit vectors
}

// Index wraps a chromem DB.
type Index struct {
	db          *chromem.DB
	collections map[string]*chromem.Collection
	mu          sync.RWMutex
}

// NewMemory returns an index that lives only in memory.
func NewMemory() *Index {
	return &Index{db: chromem.NewDB(), collections: make(map[string]*chromem.Collection)}
}

// Open returns an index persisted under dir. Existing collections are loaded.
func Open(dir string, compress bool) (*Index, error) {
	db, err := chromem.NewPersistentDB(dir, compress)
	if err != nil {
		return nil, fmt.Errorf("open vector db %s: %w", dir, err)
	}
	return &Index{db: db, collections: make(map[string]*chromem.Collection)}, nil
}

func collectionName(userID string) string {
	return "user_" + userID
}

func (ix *Index) collection(userID string) (*chromem.Collection, error) {
	ix.mu.RLock()
	col, ok := ix.collections[userID]
	ix.mu.RUnlock()
	if ok {
		return col, nil
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if col, ok := ix.collections[userID]; ok {
		return col, nil
	}

	// embeddings are always supplied by the caller
	col, err := ix.db.GetOrCreateCollection(collectionName(userID), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("collection for %s: %w", userID, err)
	}
	ix.collections[userID] = col
	return col, nil
}

// Upsert adds or replaces an entry.
func (ix *Index) Upsert(ctx context.Context, e Entry) error {
	if len(e.Embedding) == 0 {
		return fmt.Errorf("upsert %s: empty embedding", e.ID)
	}
	col, err := ix.collection(e.UserID)
	if err != nil {
		return err
	}
	doc := chromem.Document{
		ID:        e.ID,
		Content:   e.Content,
		Embedding: e.Embedding,
		Metadata: map[string]string{
			"user_id":  e.UserID,
			"domain":   e.Domain,
			"priority": e.Priority,
		},
	}
	if err := col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add document %s: %w", e.ID, err)
	}
	return nil
}

// Query returns up to n nearest entries for the user. A non-empty priority
// restricts the search to that tier.
func (ix *Index) Query(ctx context.Context, userID string, embedding []float32, n int, priority string) ([]Match, error) {
	col, err := ix.collection(userID)
	if err != nil {
		return nil, err
	}

	// chromem-go rejects nResults above the collection size
	if count := col.Count(); n > count {
		n = count
	}
	if n <= 0 {
		return nil, nil
	}

	where := map[string]string{"user_id": userID}
	if priority != "" {
		where["priority"] = priority
	}

	results, err := col.QueryEmbedding(ctx, embedding, n, where, nil)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", userID, err)
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		matches = append(matches, Match{
			ID:         r.ID,
			Domain:     r.Metadata["domain"],
			Priority:   r.Metadata["priority"],
			Content:    r.Content,
			Similarity: r.Similarity,
			Distance:   Distance(r.Similarity),
		})
	}
	return matches, nil
}

// SetPriority rewrites the priority metadata of an existing entry.
func (ix *Index) SetPriority(ctx context.Context, userID, id, priority string) error {
	col, err := ix.collection(userID)
	if err != nil {
		return err
	}
	doc, err := col.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get document %s: %w", id, err)
	}

	meta := make(map[string]string, len(doc.Metadata))
	for k, v := range doc.Metadata {
		meta[k] = v
	}
	meta["priority"] = priority
	doc.Metadata = meta

	if err := col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("update document %s: %w", id, err)
	}
	return nil
}

// Delete removes entries by id. Unknown ids are ignored.
func (ix *Index) Delete(ctx context.Context, userID string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	col, err := ix.collection(userID)
	if err != nil {
		return err
	}
	if err := col.Delete(ctx, nil, nil, ids...); err != nil {
		return fmt.Errorf("delete from %s: %w", userID, err)
	}
	return nil
}

// Count returns the number of entries stored for the user.
func (ix *Index) Count(userID string) int {
	col, err := ix.collection(userID)
	if err != nil {
		return 0
	}
	return col.Count()
}

// Distance converts a cosine similarity of unit vectors into squared L2
// distance: |a-b|^2 = 2 - 2cos.
func Distance(similarity float32) float64 {
	d := 2 - 2*float64(similarity)
	if d < 0 {
		return 0
	}
	return d
}
