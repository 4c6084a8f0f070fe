// Package optimistic runs local-first mutations: apply locally, confirm
// remotely, and on failure revert before resynchronizing from the server.
package optimistic

import (
	"context"
	"errors"
	"fmt"
)

// Action describes one optimistic mutation. Apply and Confirm are required.
type Action struct {
	// Apply performs the local change and its device-side persistence.
	Apply func() error
	// Confirm issues the remote mutation.
	Confirm func(ctx context.Context) error
	// Revert restores the pre-Apply local state.
	Revert func() error
	// Resync refetches server truth after a revert.
	Resync func(ctx context.Context) error
}

// Outcome reports how an action settled.
type Outcome struct {
	Confirmed bool
	Reverted  bool
	// Cause is the remote error that triggered the revert.
	Cause error
	// ResyncErr is set when the post-revert refetch failed too.
	ResyncErr error
}

var errIncomplete = errors.New("optimistic: Apply and Confirm are required")

// Run executes a. A remote failure is recovered (reverted and resynced) and
// reported through Outcome; only local failures are returned as errors.
func Run(ctx context.Context, a Action) (Outcome, error) {
	if a.Apply == nil || a.Confirm == nil {
		return Outcome{}, errIncomplete
	}
	if err := a.Apply(); err != nil {
		return Outcome{}, fmt.Errorf("optimistic: apply: %w", err)
	}

	cause := a.Confirm(ctx)
	if cause == nil {
		return Outcome{Confirmed: true}, nil
	}

	out := Outcome{Reverted: true, Cause: cause}
	if a.Revert != nil {
		if err := a.Revert(); err != nil {
			return out, fmt.Errorf("optimistic: revert after %v: %w", cause, err)
		}
	}
	if a.Resync != nil {
		out.ResyncErr = a.Resync(ctx)
	}
	return out, nil
}
