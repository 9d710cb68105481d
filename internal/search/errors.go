package search

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is the parent of every client-side input error.
	ErrValidation = errors.New("validation error")

	// ErrEmptyQuery is returned when the query is empty after normalization.
	ErrEmptyQuery = fmt.Errorf("%w: invalid search query", ErrValidation)

	// ErrUnknownEngine is returned for a backend selector outside the known set.
	ErrUnknownEngine = fmt.Errorf("%w: unknown search engine", ErrValidation)

	// ErrRateLimited is returned when the client exhausted its request budget.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrBackend hides storage and limiter failures from callers.
	ErrBackend = errors.New("search backend failure")
)
