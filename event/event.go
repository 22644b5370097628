//go:build linux

// Package event provides a counting semaphore exposed as a readable file
// descriptor, built on eventfd(2). The descriptor becomes readable whenever
// the counter is non-zero, which lets the semaphore be multiplexed by an
// epoll-based poller alongside ordinary file descriptors.
package event

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"
)

// Event is a non-blocking counting semaphore backed by an eventfd in
// semaphore mode. Put and Get are safe to call from multiple goroutines.
type Event struct {
	fd int
}

// New creates a semaphore with an initial count of zero.
func New() (*Event, error) {
	fd, err := unix.Eventfd(0, unix.EFD_SEMAPHORE|unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("eventfd: %w", err)
	}
	return &Event{fd: fd}, nil
}

// FD returns the underlying file descriptor for registration with a poller.
func (e *Event) FD() int {
	return e.fd
}

// Put adds n units to the counter, waking any poller watching the descriptor.
func (e *Event) Put(n uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], n)
	for {
		_, err := unix.Write(e.fd, buf[:])
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fmt.Errorf("event put: %w", err)
		}
		return nil
	}
}

// Get consumes one unit of the counter. It reports false without blocking
// when the counter is zero.
func (e *Event) Get() (bool, error) {
	var buf [8]byte
	for {
		_, err := unix.Read(e.fd, buf[:])
		switch err {
		case unix.EINTR:
			continue
		case unix.EAGAIN:
			return false, nil
		case nil:
			return true, nil
		default:
			return false, fmt.Errorf("event get: %w", err)
		}
	}
}

// Close releases the file descriptor. The semaphore must not be used afterwards.
func (e *Event) Close() error {
	return unix.Close(e.fd)
}
