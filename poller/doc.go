// Package poller is an epoll reactor. Descriptors are registered with a
// callback and an arming mode; goroutines that call Work pull one readiness
// event at a time and run the matching callback in place. The poller owns no
// goroutines of its own, which leaves worker count and error policy to the
// caller.
package poller
