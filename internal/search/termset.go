package search

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/tchap/go-patricia/v2/patricia"
)

// TermSet collects complete terms and the prefix nodes leading to them.
// Each string is stored once; a complete term always wins over a prefix node.
type TermSet struct {
	trie *patricia.Trie
	size int
}

// NewTermSet creates an empty term set.
func NewTermSet() *TermSet {
	return &TermSet{trie: patricia.NewTrie()}
}

// Add records word as a complete term along with all of its proper prefixes.
// It reports false when the word is empty or contains the completeness marker.
func (s *TermSet) Add(word string) bool {
	term := Normalize(word)
	if term == "" || strings.Contains(term, CompleteMarker) {
		return false
	}

	if s.trie.Get(patricia.Prefix(term)) == nil {
		s.size++
	}

	s.trie.Set(patricia.Prefix(term), true)

	// Byte offsets from range land on rune boundaries.
	for i := range term {
		if i == 0 {
			continue
		}

		if s.trie.Insert(patricia.Prefix(term[:i]), false) {
			s.size++
		}
	}

	return true
}

// Len returns the number of distinct strings in the set.
func (s *TermSet) Len() int {
	return s.size
}

// Entries returns every entry sorted by term, prefix node first.
func (s *TermSet) Entries() []Entry {
	entries := make([]Entry, 0, s.size)

	_ = s.trie.Visit(func(prefix patricia.Prefix, item patricia.Item) error {
		complete, _ := item.(bool)
		entries = append(entries, Entry{Term: string(prefix), Complete: complete})

		return nil
	})

	slices.SortFunc(entries, Entry.Compare)

	return entries
}

// ReadTermSet builds a term set from a word list with one term per line.
// Blank lines and lines starting with '#' are skipped.
func ReadTermSet(r io.Reader) (*TermSet, error) {
	set := NewTermSet()
	scanner := bufio.NewScanner(r)
	line := 0

	for scanner.Scan() {
		line++

		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		if !set.Add(text) {
			return nil, fmt.Errorf("line %d: invalid term %q", line, text)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read word list: %w", err)
	}

	return set, nil
}
