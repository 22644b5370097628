package flowline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/vk/flowline/event"
	"github.com/vk/flowline/internal/ctxlog"
)

// depNode is the per-module runtime state. The adjacency maps and edge
// totals are written by the builder and, afterwards, only by deactivation
// surgery; both are guarded by mu. edgesToGo is the only counter touched on
// the hot path and is lock-free.
type depNode struct {
	module Module
	name   string

	mu sync.Mutex
	// modulesAfter maps each direct successor to the number of parallel
	// relations between the pair.
	modulesAfter map[*depNode]int
	// modulesBefore is the symmetric map of direct predecessors.
	modulesBefore map[*depNode]int
	beforeEdges   int
	afterEdges    int

	// edgesToGo is decremented by neighbors as they complete; a transition
	// to zero makes this node ready.
	edgesToGo   atomic.Int64
	skipFlag    atomic.Bool
	deactivated atomic.Bool

	ev      *event.Event
	inputFD int

	// registration bookkeeping for Close
	eventRegistered bool
	inputRegistered bool
}

type neighbor struct {
	node   *depNode
	weight int
}

func newDepNode(m Module, name string) (*depNode, error) {
	ev, err := event.New()
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", name, err)
	}
	return &depNode{
		module:        m,
		name:          name,
		modulesAfter:  make(map[*depNode]int),
		modulesBefore: make(map[*depNode]int),
		ev:            ev,
		inputFD:       m.FD(),
	}, nil
}

// linkAfter records one relation making succ run after n within each round.
// Repeated calls for the same pair accumulate weight. Builder-only; not
// concurrency-safe.
func (n *depNode) linkAfter(succ *depNode) {
	n.modulesAfter[succ]++
	n.afterEdges++
	succ.modulesBefore[n]++
	succ.beforeEdges++
}

// execute runs one round of the node's module and performs the signalling
// protocol that keeps the graph moving. It is invoked by the poller when the
// node's event fires (and, for fd-gated modules, the input descriptor is
// readable too).
func (n *depNode) execute(ctx context.Context) error {
	if n.deactivated.Load() {
		return nil
	}

	// Reset for the next round before any neighbor can signal: the counter
	// now awaits both predecessors (producing again) and successors
	// (acknowledging this round's output).
	n.mu.Lock()
	n.edgesToGo.Store(int64(n.beforeEdges + n.afterEdges))
	n.mu.Unlock()

	logger := ctxlog.FromContext(ctx).With("module", n.name)

	skipped := n.skipFlag.Swap(false)
	var execErr error
	stopped := false

	if !skipped {
		if err := n.module.Execute(ctx); err != nil {
			if errors.Is(err, ErrStopModule) {
				stopped = true
				execErr = fmt.Errorf("%s: %w", n.name, err)
			} else {
				execErr = fmt.Errorf("executing %s: %w", n.name, err)
			}
		}
	}

	if skipped || (execErr != nil && !stopped) {
		// Taint direct successors: they sit out their next round. The taint
		// sweeps forward one hop per round, at the dataflow rate.
		for _, succ := range n.snapshot(after) {
			succ.node.skipFlag.Store(true)
		}
		if skipped {
			logger.Debug("round skipped after upstream failure")
		} else {
			logger.Warn("module failed, successors will skip their next round", "error", execErr)
		}
	}

	if stopped {
		n.deactivated.Store(true)
		logger.Info("module deactivated, severing its edges")
		n.sever()
	}

	// Signal every neighbor that this round is over. Successors get their
	// "produced" half, predecessors their "consumed" half.
	for _, nb := range n.snapshot(both) {
		n.signal(nb.node, nb.weight)
	}

	// Consume the token that scheduled this round.
	if _, err := n.ev.Get(); err != nil {
		logger.Error("event get failed", "error", err)
	}

	// A node related to nobody re-arms itself.
	if !n.deactivated.Load() && n.isolated() {
		if err := n.ev.Put(1); err != nil {
			logger.Error("event put failed", "error", err)
		}
	}

	return execErr
}

// signal subtracts w from nb's readiness counter and wakes it on the
// transition to zero.
func (n *depNode) signal(nb *depNode, w int) {
	if nb.edgesToGo.Add(-int64(w)) == 0 && !nb.deactivated.Load() {
		_ = nb.ev.Put(1)
	}
}

type snapshotSet int

const (
	after snapshotSet = iota
	both
)

// snapshot copies the requested adjacency entries under the node's lock so
// signalling can proceed without holding it.
func (n *depNode) snapshot(set snapshotSet) []neighbor {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]neighbor, 0, len(n.modulesAfter)+len(n.modulesBefore))
	for nd, w := range n.modulesAfter {
		out = append(out, neighbor{nd, w})
	}
	if set == both {
		for nd, w := range n.modulesBefore {
			out = append(out, neighbor{nd, w})
		}
	}
	return out
}

// sever removes every edge touching this node, in both directions. Each
// severed edge hands its one-round decrement to the affected neighbor, so
// rounds that are already in flight stay balanced, and shrinks the
// neighbor's totals so later resets no longer wait on this node.
func (n *depNode) sever() {
	n.mu.Lock()
	before := n.modulesBefore
	afterM := n.modulesAfter
	n.modulesBefore = make(map[*depNode]int)
	n.modulesAfter = make(map[*depNode]int)
	n.beforeEdges = 0
	n.afterEdges = 0
	n.mu.Unlock()

	for pred, w := range before {
		pred.mu.Lock()
		delete(pred.modulesAfter, n)
		pred.afterEdges -= w
		pred.mu.Unlock()
		n.signal(pred, w)
	}
	for succ, w := range afterM {
		succ.mu.Lock()
		delete(succ.modulesBefore, n)
		succ.beforeEdges -= w
		succ.mu.Unlock()
		n.signal(succ, w)
	}
}

func (n *depNode) isolated() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.modulesAfter) == 0 && len(n.modulesBefore) == 0
}
