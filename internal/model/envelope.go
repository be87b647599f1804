package model

import (
	"encoding/json"
	"time"

	"github.com/casescope/casescope/internal/apierr"
)

// Envelope is the fixed wrapper every backend response uses.
type Envelope struct {
	Data      json.RawMessage `json:"data"`
	Success   bool            `json:"success"`
	Message   string          `json:"message,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Pagination is carried alongside the envelope on paginated responses.
type Pagination struct {
	Page       int `json:"page"`
	Size       int `json:"size"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// PaginatedEnvelope is the wrapper for list responses.
type PaginatedEnvelope struct {
	Envelope
	Pagination Pagination `json:"pagination"`
}

// PageOf pairs a decoded page of items with its pagination metadata. It is
// what list queries cache and hand to subscribers.
type PageOf[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// Decode unmarshals the envelope payload into T. A payload that does not
// match its documented shape surfaces as an unknown error, not a panic
// or a zero value.
func Decode[T any](env Envelope) (T, error) {
	var v T
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return v, nil
	}
	if err := json.Unmarshal(env.Data, &v); err != nil {
		return v, apierr.Unknown("response payload does not match expected shape", err)
	}
	return v, nil
}

// DecodePage unmarshals a paginated envelope into a page of T.
func DecodePage[T any](env PaginatedEnvelope) (PageOf[T], error) {
	items, err := Decode[[]T](env.Envelope)
	if err != nil {
		return PageOf[T]{}, err
	}
	return PageOf[T]{Items: items, Pagination: env.Pagination}, nil
}
