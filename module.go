package flowline

import (
	"context"
	"errors"
)

// Module is the user-supplied unit of work the scheduler drives. The
// scheduler holds a non-owning reference; the module must outlive the
// scheduler.
type Module interface {
	// Relations enumerates the provides and views the module owns, in
	// declaration order.
	Relations() []Relation

	// FD returns a file descriptor whose readability gates the module's
	// execution, or -1 when execution is gated by edges alone. The value
	// must not change during the module's lifetime.
	FD() int

	// Execute performs one unit of work. Returning an error marks the
	// module's direct successors to skip their next round; returning an
	// error that wraps ErrStopModule permanently deactivates the module
	// instead.
	Execute(ctx context.Context) error
}

// ErrStopModule is the distinguished stop signal. A module returns it (or an
// error wrapping it) from Execute to remove itself from the pipeline without
// stalling anyone else.
var ErrStopModule = errors.New("module requested deactivation")

// Base is an embeddable default Module implementation. It collects
// relations as they are constructed, reports no gating descriptor, and does
// nothing per round; embedders override what they need.
type Base struct {
	rels []Relation
}

// AddRelation records a relation. Called by the relation constructors.
func (b *Base) AddRelation(r Relation) {
	b.rels = append(b.rels, r)
}

// Relations returns the recorded relations in registration order.
func (b *Base) Relations() []Relation {
	return b.rels
}

// FD reports that execution is gated by edges alone.
func (b *Base) FD() int {
	return -1
}

// Execute does nothing.
func (b *Base) Execute(context.Context) error {
	return nil
}
