package memory

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Entry is one remembered item with optional metadata.
type Entry struct {
	ID       string
	Content  string
	Metadata map[string]any
}

// Store is the minimal memory interface consumed by agents.
type Store interface {
	// Remember persists an entry and returns its identifier.
	Remember(content string, metadata map[string]any) (string, error)

	// Recall returns up to limit entries relevant to the query.
	Recall(query string, limit int) ([]Entry, error)
}

// InMemoryStore is a naive process-local Store. Recall is a linear scan with
// case-insensitive word matching against stored content. Suitable for tests
// and demos; swap for a vector index for production retrieval.
//
// Concurrency: protected by RWMutex.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewInMemoryStore creates a new in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// Remember implements Store.
func (s *InMemoryStore) Remember(content string, metadata map[string]any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	meta := make(map[string]any, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}
	s.entries = append(s.entries, Entry{ID: id, Content: content, Metadata: meta})
	return id, nil
}

// Recall implements Store. An entry matches when any whitespace-separated
// word of the query appears in its content. Entries are returned in insertion
// order up to the provided limit.
func (s *InMemoryStore) Recall(query string, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	words := strings.Fields(strings.ToLower(query))
	results := make([]Entry, 0, limit)

	for _, e := range s.entries {
		if limit > 0 && len(results) >= limit {
			break
		}
		content := strings.ToLower(e.Content)
		for _, w := range words {
			if strings.Contains(content, w) {
				results = append(results, e)
				break
			}
		}
	}

	return results, nil
}

// Len returns the number of stored entries.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
