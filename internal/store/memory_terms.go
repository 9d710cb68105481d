package store

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/serroba/speedsearch/internal/search"
)

// MemoryTermIndex is an in-memory ordered-set term index. Entries are kept
// sorted by search.Entry.Compare, so a term's prefix node sits directly
// before its complete form.
type MemoryTermIndex struct {
	mu      sync.RWMutex
	entries []search.Entry
}

// NewMemoryTermIndex creates an empty in-memory term index.
func NewMemoryTermIndex() *MemoryTermIndex {
	return &MemoryTermIndex{}
}

// Load merges entries into the index. A string present as both a prefix node
// and a complete term keeps only the complete form.
func (m *MemoryTermIndex) Load(_ context.Context, entries []search.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	merged := make(map[string]bool, len(m.entries)+len(entries))
	for _, e := range m.entries {
		merged[e.Term] = merged[e.Term] || e.Complete
	}

	for _, e := range entries {
		merged[e.Term] = merged[e.Term] || e.Complete
	}

	m.entries = m.entries[:0]
	for term, complete := range merged {
		m.entries = append(m.entries, search.Entry{Term: term, Complete: complete})
	}

	slices.SortFunc(m.entries, search.Entry.Compare)

	return nil
}

func (m *MemoryTermIndex) PrefixSearch(_ context.Context, query string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rank := sort.Search(len(m.entries), func(i int) bool {
		return m.entries[i].Term >= query
	})

	results := []string{}
	last := min(rank+search.MaxResults+1, len(m.entries))

	for _, e := range m.entries[rank:last] {
		if !strings.HasPrefix(e.Term, query) {
			break
		}

		if e.Complete {
			results = append(results, e.Term)
		}

		if len(results) == search.MaxResults {
			break
		}
	}

	return results, nil
}
