// Package store records sampled trials in SQLite so they can be listed and
// re-created from their seed later.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrTrialNotFound is returned when no trial has the requested id.
var ErrTrialNotFound = errors.New("trial not found")

// Trial is one recorded sample.
type Trial struct {
	ID    string
	Study string
	// Seed and Index locate the sample: re-sampling the same space with
	// Seed and taking result Index reproduces Params.
	Seed     uint64
	Index    int
	Identity string
	// Params holds the nested sample. Numbers decode as json.Number so
	// integers and floats keep their literal form.
	Params map[string]any
	// Variables are the values supplied for declared variables, needed to
	// sample the same configuration again.
	Variables map[string]any
	CreatedAt time.Time
}

// Store is the trial persistence contract.
type Store interface {
	SaveTrials(ctx context.Context, trials []*Trial) error
	GetTrial(ctx context.Context, id string) (*Trial, error)
	ListTrials(ctx context.Context, study string) ([]*Trial, error)
	FindByIdentity(ctx context.Context, study, identity string) ([]*Trial, error)
	Close() error
}

var _ Store = (*SQLiteStore)(nil)
