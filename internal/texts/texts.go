// Package texts persists generated artifacts, their approval lifecycle,
// and the aggregate statistics counters.
package texts

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound indicates the requested text does not exist.
var ErrNotFound = errors.New("text not found")

// ErrInvalidStatus indicates a status value outside the approval model.
var ErrInvalidStatus = errors.New("invalid status")

// Status is the approval state of a generated text.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
)

// ParseStatus validates a status string from an external caller.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusApproved, StatusDenied:
		return Status(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

// Text is a generated artifact and its approval state.
type Text struct {
	ID              uuid.UUID
	Topic           string
	Content         string
	Platform        string
	Tone            string
	Creativity      string
	Provider        string
	Model           string
	WordCount       int
	TargetWords     int
	WithinTolerance bool
	Status          Status
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Statistics are the aggregate lifecycle counters. A single row backs
// them; all increments happen in SQL so concurrent updates cannot lose
// writes.
type Statistics struct {
	Generated int64
	Approved  int64
	Denied    int64
	UpdatedAt time.Time
}
