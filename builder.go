package flowline

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/vk/flowline/internal/ctxlog"
)

// moduleEntry pairs a module with its display name during construction.
type moduleEntry struct {
	mod  Module
	name string
}

// New wires the given modules into a scheduler registered with p. The map
// value is the module's display name, used in error messages and the edge
// report. Construction resolves every view against every other module's
// provides, validates provide uniqueness, and arms the initially ready
// nodes; after New returns, driving the poller runs the pipeline.
func New(ctx context.Context, p Poller, modules map[Module]string) (*Scheduler, error) {
	logger := ctxlog.FromContext(ctx)

	// Stable node order: sorted by display name. Map iteration order must
	// not leak into error messages or the edge report.
	ordered := make([]moduleEntry, 0, len(modules))
	for m, name := range modules {
		ordered = append(ordered, moduleEntry{mod: m, name: name})
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].name < ordered[j].name })

	if err := checkDuplicateProvides(ordered); err != nil {
		return nil, err
	}

	nodes := make([]*depNode, 0, len(ordered))
	for _, e := range ordered {
		n, err := newDepNode(e.mod, e.name)
		if err != nil {
			for _, prev := range nodes {
				prev.ev.Close()
			}
			return nil, err
		}
		nodes = append(nodes, n)
	}
	logger.Debug("nodes allocated", "count", len(nodes))

	edges := resolveEdges(ctx, nodes)
	logger.Debug("edge resolution complete", "edges", len(edges))

	// Only inbound edges gate the first round; the consumed-output half of
	// the counter joins at each node's first reset.
	for _, n := range nodes {
		n.edgesToGo.Store(int64(n.beforeEdges))
	}

	s := &Scheduler{poller: p, nodes: nodes, edgeList: edges}

	for _, n := range nodes {
		if err := s.register(n); err != nil {
			s.Close()
			return nil, err
		}
	}

	// Initial kick for every node that waits on nobody.
	for _, n := range nodes {
		if n.edgesToGo.Load() == 0 {
			if err := n.ev.Put(1); err != nil {
				s.Close()
				return nil, err
			}
		}
	}

	logger.Debug("scheduler constructed", "modules", len(nodes), "edges", len(edges))
	return s, nil
}

// checkDuplicateProvides fails construction when two distinct modules expose
// provides with identical name and value type. All offending pairs are
// reported at once.
func checkDuplicateProvides(ordered []moduleEntry) error {
	var result *multierror.Error
	for i, a := range ordered {
		for _, ra := range a.mod.Relations() {
			pa, ok := ra.(provider)
			if !ok {
				continue
			}
			for _, b := range ordered[i+1:] {
				for _, rb := range b.mod.Relations() {
					pb, ok := rb.(provider)
					if !ok {
						continue
					}
					if pa.Name() == pb.Name() && pa.valueType() == pb.valueType() {
						result = multierror.Append(result, fmt.Errorf(
							"duplicate provide %s@%s ⇄ %s@%s",
							pa.Name(), a.name, pb.Name(), b.name))
					}
				}
			}
		}
	}
	return result.ErrorOrNil()
}

// resolveEdges offers every other module's provides to every view and draws
// one edge per accepted pairing. Regardless of view kind, the provider node
// becomes the holder's predecessor: the bidirectional round barrier then
// yields require ordering through the inbound half and recycle ordering
// through the outbound half. The view kind decides only the direction the
// edge report shows.
func resolveEdges(ctx context.Context, nodes []*depNode) []Edge {
	logger := ctxlog.FromContext(ctx)
	var edges []Edge
	for _, holder := range nodes {
		for _, rel := range holder.module.Relations() {
			v, ok := rel.(viewer)
			if !ok {
				continue
			}
			for _, producer := range nodes {
				if producer == holder {
					continue // no self-binding
				}
				for _, prel := range producer.module.Relations() {
					pr, ok := prel.(provider)
					if !ok {
						continue
					}
					if !v.accept(pr) {
						continue
					}
					producer.linkAfter(holder)
					e := Edge{Provide: pr.Name(), View: v.describe()}
					if v.runsAfter() {
						e.From, e.FromName = producer.module, producer.name
						e.To, e.ToName = holder.module, holder.name
					} else {
						e.From, e.FromName = holder.module, holder.name
						e.To, e.ToName = producer.module, producer.name
					}
					edges = append(edges, e)
					logger.Debug("edge resolved",
						"from", e.FromName, "to", e.ToName,
						"provide", e.Provide, "view", e.View)
				}
			}
		}
	}
	return edges
}
