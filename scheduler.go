package flowline

import (
	"context"

	"github.com/hashicorp/go-multierror"
	"github.com/vk/flowline/poller"
)

// Poller is the readiness multiplexer the scheduler registers its nodes
// with. *poller.Epoll implements it; the scheduler never drives the poller
// itself and owns no threads.
type Poller interface {
	AddFD(fd int, cb poller.Callback, events poller.Events, label string) error
	ModFD(fd int, events poller.Events) error
	RmFD(fd int, wait bool) error
}

// Edge describes one wiring decision made during construction, for
// visualization and debugging. From runs before To within the ordering the
// originating view requested.
type Edge struct {
	From     Module
	To       Module
	FromName string
	ToName   string
	Provide  string
	View     string
}

// Scheduler owns the dependency nodes built from a module set and their
// registrations with the poller. It is constructed by New and torn down by
// Close; all scheduling in between happens through the poller's dispatch.
type Scheduler struct {
	poller   Poller
	nodes    []*depNode
	edgeList []Edge
}

// register hooks one node into the poller. Nodes without an input
// descriptor execute straight off their event. Nodes with one keep the
// descriptor disarmed until the event fires, then arm it one-shot: the
// module runs only when its edges are satisfied AND its input is readable.
func (s *Scheduler) register(n *depNode) error {
	exec := func(ctx context.Context) error {
		return n.execute(ctx)
	}

	if n.inputFD < 0 {
		if err := s.poller.AddFD(n.ev.FD(), exec, poller.EdgeTriggered, n.name); err != nil {
			return err
		}
		n.eventRegistered = true
		return nil
	}

	if err := s.poller.AddFD(n.inputFD, exec, poller.Disarmed, n.name); err != nil {
		return err
	}
	n.inputRegistered = true

	trampoline := func(context.Context) error {
		return s.poller.ModFD(n.inputFD, poller.OneShot)
	}
	if err := s.poller.AddFD(n.ev.FD(), trampoline, poller.EdgeTriggered, n.name+" (gate)"); err != nil {
		return err
	}
	n.eventRegistered = true
	return nil
}

// Edges returns the wiring report: one entry per resolved (provide, view)
// pairing, in resolution order.
func (s *Scheduler) Edges() []Edge {
	out := make([]Edge, len(s.edgeList))
	copy(out, s.edgeList)
	return out
}

// Close unregisters every node from the poller, waiting out in-flight
// callbacks, and releases the node events. It must not be called while any
// worker is inside the poller on the scheduler's behalf.
func (s *Scheduler) Close() error {
	var result *multierror.Error
	for _, n := range s.nodes {
		if n.inputRegistered {
			if err := s.poller.RmFD(n.inputFD, true); err != nil {
				result = multierror.Append(result, err)
			}
			n.inputRegistered = false
		}
		if n.eventRegistered {
			if err := s.poller.RmFD(n.ev.FD(), true); err != nil {
				result = multierror.Append(result, err)
			}
			n.eventRegistered = false
		}
		if err := n.ev.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	s.nodes = nil
	return result.ErrorOrNil()
}
