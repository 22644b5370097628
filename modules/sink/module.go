// Package sink provides a collecting module: a multi-valued view over a
// name pattern whose per-round snapshots are kept for inspection.
package sink

import (
	"context"
	"sync"

	"github.com/vk/flowline"
	"github.com/vk/flowline/internal/ctxlog"
)

// Sink gathers everything matching its pattern, one snapshot per round.
type Sink struct {
	flowline.Base
	in *flowline.Requires[any]

	mu   sync.Mutex
	seen [][]any
}

// New creates a sink collecting provides whose name matches the anchored
// pattern, whatever their type.
func New(pattern string) *Sink {
	s := &Sink{}
	s.in = flowline.NewRequires[any](&s.Base, pattern)
	return s
}

// Execute snapshots the current values of every bound provide.
func (s *Sink) Execute(ctx context.Context) error {
	vals := s.in.All()
	s.mu.Lock()
	s.seen = append(s.seen, vals)
	s.mu.Unlock()
	ctxlog.FromContext(ctx).Debug("sink collected", "values", len(vals))
	return nil
}

// Inputs returns the names of the provides the sink bound to.
func (s *Sink) Inputs() []string {
	return s.in.Names()
}

// Seen returns all snapshots collected so far, one slice per round.
func (s *Sink) Seen() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]any, len(s.seen))
	copy(out, s.seen)
	return out
}
