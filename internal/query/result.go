package query

import "time"

// Status is the externally visible state of a cache entry. Staleness is
// an internal scheduling concern and never appears here.
type Status int

const (
	// StatusLoading means no value has ever been produced for the key.
	StatusLoading Status = iota
	// StatusError means the initial fetch failed and no value exists.
	StatusError
	// StatusSuccess means a value exists. Err may still be set when the
	// most recent background refetch failed; the value is the last good
	// one.
	StatusSuccess
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusError:
		return "error"
	case StatusSuccess:
		return "success"
	}
	return "unknown"
}

// Result is what subscribers observe for a key.
type Result[T any] struct {
	Status    Status
	Data      T
	Err       error
	UpdatedAt time.Time
}
