package search

import (
	"context"
	"strings"
)

const (
	// CompleteMarker is appended to ordered-set members that are complete terms.
	CompleteMarker = "*"

	// MaxResults caps how many terms a prefix search returns.
	MaxResults = 80

	// AnonymousClient is the identity used when a request carries no origin headers.
	AnonymousClient = "anonymous"
)

// Normalize trims surrounding whitespace and upper-cases the query.
// Normalize(Normalize(q)) == Normalize(q) for every q.
func Normalize(q string) string {
	return strings.ToUpper(strings.TrimSpace(q))
}

// Index answers prefix queries against one term-storage backend.
// Queries passed in are already normalized.
type Index interface {
	PrefixSearch(ctx context.Context, query string) ([]string, error)
}

// Entry is a single string in the term index, tagged with its completeness.
type Entry struct {
	Term     string
	Complete bool
}

// Member returns the ordered-set encoding of the entry.
func (e Entry) Member() string {
	if e.Complete {
		return e.Term + CompleteMarker
	}

	return e.Term
}

// Compare orders entries by term, placing a prefix node directly before
// the complete term with the same string.
func (e Entry) Compare(other Entry) int {
	if c := strings.Compare(e.Term, other.Term); c != 0 {
		return c
	}

	switch {
	case e.Complete == other.Complete:
		return 0
	case other.Complete:
		return -1
	default:
		return 1
	}
}

// StripMarker removes a trailing completeness marker if present.
func StripMarker(member string) string {
	return strings.TrimSuffix(member, CompleteMarker)
}
