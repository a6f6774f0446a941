package domain

import (
	"fmt"
)

// FetchError reports a failed weather provider request. The district is
// skipped for the cycle and nothing is written for it.
type FetchError struct {
	Lat        float64
	Lon        float64
	StatusCode int // 0 when the request never produced a response
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch weather (%.4f,%.4f): status %d: %v", e.Lat, e.Lon, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch weather (%.4f,%.4f): %v", e.Lat, e.Lon, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// PersistenceError reports a store read or write failure.
type PersistenceError struct {
	Op  string // e.g. "append update", "recent alerts"
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// BaselineLoadError aborts a whole cycle: without baselines there is nothing to compare against.
type BaselineLoadError struct {
	Err error
}

func (e *BaselineLoadError) Error() string {
	return fmt.Sprintf("load baselines: %v", e.Err)
}

func (e *BaselineLoadError) Unwrap() error { return e.Err }

// MalformedResponseError marks a provider payload that could not be decoded.
// It arrives wrapped in a FetchError, so the district is skipped.
type MalformedResponseError struct {
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed weather response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }
