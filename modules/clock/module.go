//go:build linux

// Package clock provides an fd-gated module: a timerfd paces execution, and
// the cumulative expiration count is published as a provide. It is the
// canonical example of combining edge readiness with input readiness.
package clock

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/vk/flowline"
)

// Clock ticks on a monotonic timer and publishes the total tick count.
type Clock struct {
	flowline.Base
	fd    int
	ticks *flowline.Provide[uint64]
}

// New creates a clock firing at the given interval and publishing its tick
// count under the given provide name.
func New(name string, interval time.Duration) (*Clock, error) {
	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_NONBLOCK|unix.TFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("timerfd create: %w", err)
	}
	spec := unix.ItimerSpec{
		Interval: unix.NsecToTimespec(interval.Nanoseconds()),
		Value:    unix.NsecToTimespec(interval.Nanoseconds()),
	}
	if err := unix.TimerfdSettime(fd, 0, &spec, nil); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("timerfd settime: %w", err)
	}
	c := &Clock{fd: fd}
	c.ticks = flowline.NewProvide(&c.Base, name, uint64(0))
	return c, nil
}

// FD gates execution on the timer becoming readable.
func (c *Clock) FD() int {
	return c.fd
}

// Execute drains the expiration count and republishes the running total.
func (c *Clock) Execute(context.Context) error {
	var buf [8]byte
	n, err := unix.Read(c.fd, buf[:])
	if err == unix.EAGAIN {
		return nil
	}
	if err != nil {
		return fmt.Errorf("timerfd read: %w", err)
	}
	if n == 8 {
		c.ticks.Set(c.ticks.Get() + binary.LittleEndian.Uint64(buf[:]))
	}
	return nil
}

// Ticks returns the published total.
func (c *Clock) Ticks() uint64 {
	return c.ticks.Get()
}

// Close releases the timer descriptor. Close the scheduler first.
func (c *Clock) Close() error {
	return unix.Close(c.fd)
}
