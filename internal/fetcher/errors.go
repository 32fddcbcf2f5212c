package fetcher

import (
	"errors"
	"fmt"
)

// ErrFetchFailure is matched by every FetchError
var ErrFetchFailure = errors.New("fetch failure")

// ErrNoCSRFToken is returned when the adapter did not set a csrf_token cookie
var ErrNoCSRFToken = errors.New("no csrf_token cookie")

// FetchError describes a failed request to one adapter endpoint
type FetchError struct {
	Host     string `json:"host"`
	Endpoint string `json:"endpoint"`
	Status   int    `json:"status,omitempty"`
	Cause    error  `json:"cause,omitempty"`
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s from %s: HTTP %d", e.Endpoint, e.Host, e.Status)
	}
	return fmt.Sprintf("fetch %s from %s: %v", e.Endpoint, e.Host, e.Cause)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// Is reports every FetchError as ErrFetchFailure.
func (e *FetchError) Is(target error) bool {
	return target == ErrFetchFailure
}
