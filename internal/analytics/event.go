package analytics

import "time"

// TopicSearchPerformed carries one event per search request, whatever its outcome.
const TopicSearchPerformed = "search.performed"

// Outcome classifies how a search request ended.
type Outcome string

const (
	OutcomeOK          Outcome = "ok"
	OutcomeInvalid     Outcome = "invalid"
	OutcomeRateLimited Outcome = "rate_limited"
	OutcomeError       Outcome = "error"
)

// SearchPerformedEvent represents a search request answered by the service.
type SearchPerformedEvent struct {
	RequestID  string    `json:"requestId"`
	Client     string    `json:"client"`
	Query      string    `json:"query"`
	Engine     string    `json:"engine"`
	Results    int       `json:"results"`
	DurationMs float64   `json:"durationMs"`
	Outcome    Outcome   `json:"outcome"`
	At         time.Time `json:"at"`
}
