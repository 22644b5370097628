// Package flowline wires user modules into a dataflow DAG and drives their
// repeated execution from a readiness poller.
//
// A module declares named, typed Provides and matches other modules'
// provides through regex-named views: Require/Requires run the holder after
// the provider each round, Recycle/Recycles run the holder before the
// provider's next round. New resolves those relations into a graph of
// dependency nodes, each owning an event descriptor registered with the
// poller; whenever a node's remaining-edge counter hits zero its event
// fires, a worker driving the poller picks it up, the module runs, and the
// node signals its neighbors. Modules gated on a file descriptor of their
// own run only when that descriptor is readable as well.
//
// Failures propagate along edges at the dataflow rate: a failing module
// makes its direct successors skip one round. A module that returns
// ErrStopModule deactivates itself and its edges are severed so the rest of
// the graph keeps running. Cycles are not detected and will deadlock.
package flowline
