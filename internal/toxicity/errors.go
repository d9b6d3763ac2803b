package toxicity

import (
	"errors"
	"fmt"
)

var (
	// ErrTooShort means the curated text carries too little signal to classify.
	ErrTooShort = errors.New("text too short to classify")
	// ErrUnavailable means the moderation model could not produce a verdict.
	ErrUnavailable = errors.New("moderation classifier unavailable")
	// ErrNoCategories means the trigger configuration defines no categories.
	ErrNoCategories = errors.New("trigger configuration has no categories")
)

// APIError is a non-200 answer from the moderation model.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
