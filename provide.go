package flowline

import "reflect"

// Provide is a named, typed output slot. The owning module updates it with
// Set during Execute; modules bound to it through views observe the current
// value on every read. The scheduler's ordering protocol is what makes those
// cross-module reads safe: a consumer only runs while its producers are
// parked.
type Provide[T any] struct {
	name string
	val  T
}

// NewProvide creates a provide carrying an initial value and registers it
// with its owning module.
func NewProvide[T any](owner RelationHolder, name string, initial T) *Provide[T] {
	p := &Provide[T]{name: name, val: initial}
	owner.AddRelation(p)
	return p
}

func (p *Provide[T]) isRelation() {}

// Name returns the provide's name, the string views match against.
func (p *Provide[T]) Name() string {
	return p.name
}

// Set replaces the exposed value.
func (p *Provide[T]) Set(v T) {
	p.val = v
}

// Get returns the exposed value.
func (p *Provide[T]) Get() T {
	return p.val
}

func (p *Provide[T]) valueType() reflect.Type {
	return targetType[T]()
}

func (p *Provide[T]) currentValue() any {
	return p.val
}
