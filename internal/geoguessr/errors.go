package geoguessr

import (
	"errors"
	"fmt"
)

// ErrFeedRunaway is returned when the feed has not ended after the configured
// maximum number of pages.
var ErrFeedRunaway = errors.New("geoguessr: feed did not end within the page limit")

// ErrUnsupportedActivity is returned when asked to resolve an activity type that
// has no detail fetcher.
var ErrUnsupportedActivity = errors.New("geoguessr: unsupported activity type")

// TransportError is a failed request, either a network error or any response
// status other than 200. Transport errors are fatal for a run.
type TransportError struct {
	Method string
	Url    string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("geoguessr: %s %s: %v", e.Method, e.Url, e.Err)
	}
	return fmt.Sprintf("geoguessr: %s %s: unexpected status %d", e.Method, e.Url, e.Status)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError is a 200 response whose body did not decode into the expected
// json shape.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("geoguessr: decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ExtractionError means the game json of one activity could not be pulled out
// of its results page or scores response.
type ExtractionError struct {
	GameID string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("geoguessr: extract game %s: %v", e.GameID, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// MarkerNotFoundError is returned by MarkerExtractor when a marker is absent from the page.
type MarkerNotFoundError struct {
	Marker string
}

func (e *MarkerNotFoundError) Error() string {
	return fmt.Sprintf("marker %q not found", e.Marker)
}

// LookupMiss means the authenticated user is not part of the scores window
// returned for a challenge.
type LookupMiss struct {
	GameID string
	UserID string
	Window int
}

func (e *LookupMiss) Error() string {
	return fmt.Sprintf(
		"geoguessr: user %s not found in the first %d scores of challenge %s",
		e.UserID, e.Window, e.GameID,
	)
}
