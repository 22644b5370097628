// Package source provides a minimal producing module: an int counter
// incremented once per round under a caller-chosen provide name.
package source

import (
	"context"

	"github.com/vk/flowline"
)

// Source counts its own rounds and publishes the count.
type Source struct {
	flowline.Base
	count *flowline.Provide[int]
}

// New creates a source publishing under the given provide name.
func New(name string) *Source {
	s := &Source{}
	s.count = flowline.NewProvide(&s.Base, name, 0)
	return s
}

// Execute bumps the published counter.
func (s *Source) Execute(context.Context) error {
	s.count.Set(s.count.Get() + 1)
	return nil
}

// Count returns the value published last round.
func (s *Source) Count() int {
	return s.count.Get()
}
