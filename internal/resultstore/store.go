// Package resultstore keeps rendered pagination results until clients fetch them.
package resultstore

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("result not found")
	// ErrUnavailable wraps backend failures that may succeed on retry.
	ErrUnavailable = errors.New("result store unavailable")
)

// Result is one finished pagination run.
type Result struct {
	JobID       string    `json:"job_id"`
	HTML        string    `json:"html"`
	Pages       int       `json:"pages"`
	Items       int       `json:"items"`
	Splits      int       `json:"splits"`
	Diagnostics []string  `json:"diagnostics,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store persists results by job id.
type Store interface {
	Put(ctx context.Context, id string, r *Result) error
	Get(ctx context.Context, id string) (*Result, error)
	Delete(ctx context.Context, id string) error
	Close() error
}
