// Package submission tracks configuration updates sent to the API. The PUT
// runs in the background so the console can show the waiting, succeeded and
// failed states of a submission while the operator's page refreshes.
package submission

import (
	"context"
	"errors"
	"time"

	"github.com/goliatone/go-configadmin/pkg/functional"
)

// ErrNotFound is returned for unknown or expired submission ids.
var ErrNotFound = errors.New("submission: not found")

type State string

const (
	StateWaiting   State = "waiting"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Submission is one update request and its outcome.
type Submission struct {
	ID      string              `json:"id"`
	Profile string              `json:"profile"`
	Actor   string              `json:"actor,omitempty"`
	State   State               `json:"state"`
	Message string              `json:"message,omitempty"`
	Changes []functional.Change `json:"changes,omitempty"`
	// Values are the submitted form values, kept so a failed submission
	// can be edited again.
	Values map[string]any `json:"values,omitempty"`
	// Errors holds the path keyed messages of a rejected update, as the API
	// reported them.
	Errors      map[string][]string `json:"errors,omitempty"`
	CreatedAt   time.Time           `json:"createdAt"`
	CompletedAt time.Time           `json:"completedAt,omitempty"`
}

// Done reports whether the API answered.
func (s Submission) Done() bool {
	return s.State == StateSucceeded || s.State == StateFailed
}

// Store keeps submissions for a limited time.
type Store interface {
	Save(ctx context.Context, sub Submission) error
	Get(ctx context.Context, id string) (Submission, error)
}
