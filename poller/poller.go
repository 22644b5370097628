//go:build linux

package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// Events selects how a registered descriptor is armed.
type Events uint32

const (
	// Disarmed registers the descriptor without waiting for anything. Use
	// ModFD to arm it later.
	Disarmed Events = 0
	// EdgeTriggered delivers the callback on every readability edge.
	EdgeTriggered Events = unix.EPOLLIN | unix.EPOLLET
	// OneShot delivers the callback once, then disarms the descriptor until
	// the next ModFD.
	OneShot Events = unix.EPOLLIN | unix.EPOLLONESHOT
)

// Callback is invoked from whatever goroutine called Work when the
// descriptor it was registered for becomes ready.
type Callback func(ctx context.Context) error

// ErrClosed is returned by Work once the poller has been closed.
var ErrClosed = errors.New("poller closed")

// waitInterval bounds how long a single epoll_wait blocks, so Work can
// notice context cancellation.
const waitInterval = 100 // milliseconds

type handler struct {
	cb    Callback
	label string
	// wg tracks in-flight callback invocations so RmFD can wait them out.
	wg sync.WaitGroup
}

// Epoll multiplexes file descriptors and dispatches their callbacks on the
// goroutines that drive Work. Any number of goroutines may call Work
// concurrently; a single readiness edge is delivered to exactly one of them.
type Epoll struct {
	epfd int

	mu       sync.Mutex
	handlers map[int]*handler
	closed   bool
}

// New creates an empty poller.
func New() (*Epoll, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	return &Epoll{
		epfd:     epfd,
		handlers: make(map[int]*handler),
	}, nil
}

// AddFD registers a descriptor with the given arming mode. The label is used
// in error messages only.
func (p *Epoll) AddFD(fd int, cb Callback, events Events, label string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if _, ok := p.handlers[fd]; ok {
		return fmt.Errorf("fd %d (%s) already registered", fd, label)
	}
	ev := unix.EpollEvent{Events: uint32(events), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("epoll add %s: %w", label, err)
	}
	p.handlers[fd] = &handler{cb: cb, label: label}
	return nil
}

// ModFD re-arms a registered descriptor. It is safe to call from inside a
// callback, which is how one-shot descriptors are re-armed.
func (p *Epoll) ModFD(fd int, events Events) error {
	ev := unix.EpollEvent{Events: uint32(events), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return fmt.Errorf("epoll mod fd %d: %w", fd, err)
	}
	return nil
}

// RmFD unregisters a descriptor. With wait set, it blocks until every
// in-flight callback for that descriptor has returned.
func (p *Epoll) RmFD(fd int, wait bool) error {
	p.mu.Lock()
	h, ok := p.handlers[fd]
	if ok {
		delete(p.handlers, fd)
		// Removal failure is harmless here: the fd may already be closed.
		_ = unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	}
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("fd %d not registered", fd)
	}
	if wait {
		h.wg.Wait()
	}
	return nil
}

// Work blocks until one registered descriptor becomes ready, runs its
// callback, and returns the callback's error. It returns early with the
// context's error when ctx is cancelled, and ErrClosed after Close.
func (p *Epoll) Work(ctx context.Context) error {
	var evs [1]unix.EpollEvent
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := unix.EpollWait(p.epfd, evs[:], waitInterval)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			if p.isClosed() {
				return ErrClosed
			}
			return fmt.Errorf("epoll wait: %w", err)
		}
		if n == 0 {
			continue
		}

		fd := int(evs[0].Fd)
		p.mu.Lock()
		h, ok := p.handlers[fd]
		if ok {
			h.wg.Add(1)
		}
		p.mu.Unlock()
		if !ok {
			// Removed between the wait and the lookup.
			continue
		}
		err = h.cb(ctx)
		h.wg.Done()
		return err
	}
}

func (p *Epoll) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Close unregisters everything and releases the epoll descriptor. Callers
// must ensure no goroutine is inside Work for this poller.
func (p *Epoll) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.handlers = make(map[int]*handler)
	p.mu.Unlock()
	return unix.Close(p.epfd)
}
