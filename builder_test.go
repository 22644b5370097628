package flowline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/flowline/poller"
)

// fakePoller records registrations without touching epoll.
type fakePoller struct {
	added   map[int]poller.Events
	labels  map[int]string
	modded  []int
	removed []int
}

func newFakePoller() *fakePoller {
	return &fakePoller{
		added:  make(map[int]poller.Events),
		labels: make(map[int]string),
	}
}

func (f *fakePoller) AddFD(fd int, _ poller.Callback, events poller.Events, label string) error {
	f.added[fd] = events
	f.labels[fd] = label
	return nil
}

func (f *fakePoller) ModFD(fd int, _ poller.Events) error {
	f.modded = append(f.modded, fd)
	return nil
}

func (f *fakePoller) RmFD(fd int, _ bool) error {
	f.removed = append(f.removed, fd)
	return nil
}

// plainModule is a no-op module for wiring-only tests.
type plainModule struct {
	Base
}

func buildChain(t *testing.T) (a, b, c *plainModule, mods map[Module]string) {
	t.Helper()
	a, b, c = &plainModule{}, &plainModule{}, &plainModule{}
	NewProvide(a, "x", 0)
	NewRequire[int](b, "x")
	NewProvide(b, "y", 0)
	NewRequire[int](c, "y")
	mods = map[Module]string{a: "a", b: "b", c: "c"}
	return a, b, c, mods
}

func TestDuplicateProvides(t *testing.T) {
	left, right := &plainModule{}, &plainModule{}
	NewProvide(left, "counter", 0)
	NewProvide(right, "counter", 0)

	fp := newFakePoller()
	s, err := New(context.Background(), fp, map[Module]string{left: "left", right: "right"})
	require.Error(t, err)
	assert.Nil(t, s)
	assert.Contains(t, err.Error(), "counter@left")
	assert.Contains(t, err.Error(), "counter@right")
	// no partial construction
	assert.Empty(t, fp.added)
}

func TestDuplicateProvidesNeedMatchingType(t *testing.T) {
	left, right := &plainModule{}, &plainModule{}
	NewProvide(left, "counter", 0)
	NewProvide(right, "counter", "a string this time")

	s, err := New(context.Background(), newFakePoller(), map[Module]string{left: "left", right: "right"})
	require.NoError(t, err)
	defer s.Close()
}

func TestChainWiring(t *testing.T) {
	a, b, c, mods := buildChain(t)
	s, err := New(context.Background(), newFakePoller(), mods)
	require.NoError(t, err)
	defer s.Close()

	edges := s.Edges()
	require.Len(t, edges, 2)
	assert.Same(t, Module(a), edges[0].From)
	assert.Same(t, Module(b), edges[0].To)
	assert.Equal(t, "x", edges[0].Provide)
	assert.Equal(t, "require(x)", edges[0].View)
	assert.Same(t, Module(b), edges[1].From)
	assert.Same(t, Module(c), edges[1].To)
	assert.Equal(t, "y", edges[1].Provide)

	// counters: only a is initially ready
	require.Len(t, s.nodes, 3)
	byName := map[string]*depNode{}
	for _, n := range s.nodes {
		byName[n.name] = n
	}
	assert.EqualValues(t, 0, byName["a"].edgesToGo.Load())
	assert.EqualValues(t, 1, byName["b"].edgesToGo.Load())
	assert.EqualValues(t, 1, byName["c"].edgesToGo.Load())

	// adjacency symmetry
	for _, n := range s.nodes {
		for succ, w := range n.modulesAfter {
			assert.Equal(t, w, succ.modulesBefore[n])
		}
		for pred, w := range n.modulesBefore {
			assert.Equal(t, w, pred.modulesAfter[n])
		}
	}
}

func TestRecycleEdgeDirectionInReport(t *testing.T) {
	p, r := &plainModule{}, &plainModule{}
	NewProvide(p, "buf", 0)
	NewRecycle[int](r, "buf")

	s, err := New(context.Background(), newFakePoller(), map[Module]string{p: "producer", r: "recycler"})
	require.NoError(t, err)
	defer s.Close()

	edges := s.Edges()
	require.Len(t, edges, 1)
	// the report shows the ordering constraint: recycler before producer's rerun
	assert.Equal(t, "recycler", edges[0].FromName)
	assert.Equal(t, "producer", edges[0].ToName)
	assert.Equal(t, "recycle(buf)", edges[0].View)

	// scheduling still leaves the producer unblocked for round one
	byName := map[string]*depNode{}
	for _, n := range s.nodes {
		byName[n.name] = n
	}
	assert.EqualValues(t, 0, byName["producer"].edgesToGo.Load())
	assert.EqualValues(t, 1, byName["recycler"].edgesToGo.Load())
}

func TestNoSelfBinding(t *testing.T) {
	m := &plainModule{}
	NewProvide(m, "x", 0)
	req := NewRequire[int](m, "x")

	s, err := New(context.Background(), newFakePoller(), map[Module]string{m: "solo"})
	require.NoError(t, err)
	defer s.Close()

	assert.Empty(t, s.Edges())
	assert.False(t, req.Valid())
}

func TestMultiViewFansIn(t *testing.T) {
	p1, p2, sink := &plainModule{}, &plainModule{}, &plainModule{}
	NewProvide(p1, "in0", 0)
	NewProvide(p2, "in1", 0)
	view := NewRequires[int](sink, "in[0-9]")

	s, err := New(context.Background(), newFakePoller(), map[Module]string{p1: "p1", p2: "p2", sink: "sink"})
	require.NoError(t, err)
	defer s.Close()

	assert.Len(t, s.Edges(), 2)
	assert.Equal(t, 2, view.Len())

	byName := map[string]*depNode{}
	for _, n := range s.nodes {
		byName[n.name] = n
	}
	assert.EqualValues(t, 2, byName["sink"].edgesToGo.Load())
}

// fdModule pretends to be gated on an input descriptor.
type fdModule struct {
	Base
	fd int
}

func (m *fdModule) FD() int { return m.fd }

func TestFdGatedRegistration(t *testing.T) {
	m := &fdModule{fd: 1234}
	fp := newFakePoller()
	s, err := New(context.Background(), fp, map[Module]string{m: "gated"})
	require.NoError(t, err)
	defer s.Close()

	require.Len(t, s.nodes, 1)
	n := s.nodes[0]

	// the input descriptor starts disarmed; the event drives the trampoline
	assert.Equal(t, poller.Disarmed, fp.added[1234])
	assert.Equal(t, poller.EdgeTriggered, fp.added[n.ev.FD()])
	assert.Equal(t, "gated (gate)", fp.labels[n.ev.FD()])
}

func TestCloseUnregistersEverything(t *testing.T) {
	_, _, _, mods := buildChain(t)
	fp := newFakePoller()
	s, err := New(context.Background(), fp, mods)
	require.NoError(t, err)

	require.NoError(t, s.Close())
	assert.Len(t, fp.removed, 3)
	assert.Nil(t, s.nodes)
}
