// Package testutil holds helpers shared by the package tests: an execution
// recorder that linearizes marks from concurrently running modules, and a
// logger factory.
package testutil

import (
	"fmt"
	"sync"
	"time"
)

// Mark kinds recorded around a module's body.
const (
	Start = "start"
	End   = "end"
)

// Mark is one recorded point in a module's execution.
type Mark struct {
	Module string
	Kind   string
	Round  int64
}

// Recorder collects marks behind one mutex, so the stored order is a valid
// linearization of what actually happened across workers.
type Recorder struct {
	mu    sync.Mutex
	marks []Mark
}

// Record appends a mark.
func (r *Recorder) Record(module, kind string, round int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.marks = append(r.marks, Mark{Module: module, Kind: kind, Round: round})
}

// Marks returns a snapshot of everything recorded so far.
func (r *Recorder) Marks() []Mark {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Mark, len(r.marks))
	copy(out, r.marks)
	return out
}

// Rounds returns how many End marks the named module has recorded.
func (r *Recorder) Rounds(module string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.marks {
		if m.Module == module && m.Kind == End {
			n++
		}
	}
	return n
}

// Index returns the position of the first mark matching (module, kind,
// round), or -1.
func (r *Recorder) Index(module, kind string, round int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, m := range r.marks {
		if m.Module == module && m.Kind == kind && m.Round == round {
			return i
		}
	}
	return -1
}

// WaitUntil polls cond until it holds or the timeout elapses. It returns an
// error rather than failing the test directly so callers can add context.
func WaitUntil(timeout time.Duration, cond func() bool) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return nil
		}
		time.Sleep(2 * time.Millisecond)
	}
	return fmt.Errorf("condition not reached within %v", timeout)
}
