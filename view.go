package flowline

import "regexp"

// viewCore carries what every view variant shares: the anchored name
// pattern and the edge direction tag.
type viewCore struct {
	raw     string
	pattern *regexp.Regexp
	after   bool
	kind    string
}

// newViewCore compiles the pattern anchored to the full provide name. An
// empty pattern matches every name. Invalid patterns panic, mirroring
// regexp.MustCompile; patterns are almost always literals at the call site.
func newViewCore(pattern string, after bool, kind string) viewCore {
	if pattern == "" {
		pattern = ".+"
	}
	return viewCore{
		raw:     pattern,
		pattern: regexp.MustCompile(`\A(?:` + pattern + `)\z`),
		after:   after,
		kind:    kind,
	}
}

func (v *viewCore) isRelation() {}

func (v *viewCore) runsAfter() bool {
	return v.after
}

func (v *viewCore) describe() string {
	return v.kind + "(" + v.raw + ")"
}

// assignable reports whether a provide's value type can be read as T:
// either the exact type or an interface it satisfies.
func assignable[T any](p provider) bool {
	return p.valueType().AssignableTo(targetType[T]())
}

// singleView binds to the first matching provide and rejects the rest.
type singleView[T any] struct {
	viewCore
	src provider
}

func (v *singleView[T]) accept(p provider) bool {
	if v.src != nil {
		// only the first successful assignment sticks
		return false
	}
	if !v.pattern.MatchString(p.Name()) {
		return false
	}
	if !assignable[T](p) {
		return false
	}
	v.src = p
	return true
}

// Valid reports whether the view was bound during graph construction.
func (v *singleView[T]) Valid() bool {
	return v.src != nil
}

// Get reads the bound provide's current value. Unbound views return the
// zero value.
func (v *singleView[T]) Get() T {
	var zero T
	if v.src == nil {
		return zero
	}
	val, ok := v.src.currentValue().(T)
	if !ok {
		return zero
	}
	return val
}

// ProviderName returns the name of the bound provide, or "" when unbound.
func (v *singleView[T]) ProviderName() string {
	if v.src == nil {
		return ""
	}
	return v.src.Name()
}

// multiView binds to every matching provide.
type multiView[T any] struct {
	viewCore
	srcs []provider
}

func (v *multiView[T]) accept(p provider) bool {
	if !v.pattern.MatchString(p.Name()) {
		return false
	}
	if !assignable[T](p) {
		// name matched but the type cannot serve this view; the builder
		// draws no edge for the pairing
		return false
	}
	v.srcs = append(v.srcs, p)
	return true
}

// Len returns the number of bound provides.
func (v *multiView[T]) Len() int {
	return len(v.srcs)
}

// All returns a snapshot of every bound provide's current value, in binding
// order.
func (v *multiView[T]) All() []T {
	out := make([]T, 0, len(v.srcs))
	for _, src := range v.srcs {
		if val, ok := src.currentValue().(T); ok {
			out = append(out, val)
		}
	}
	return out
}

// Names returns the bound provide names, in binding order.
func (v *multiView[T]) Names() []string {
	out := make([]string, 0, len(v.srcs))
	for _, src := range v.srcs {
		out = append(out, src.Name())
	}
	return out
}

// Require is a single-valued after-view: the owning module runs after the
// provider, every round.
type Require[T any] struct {
	singleView[T]
}

// NewRequire creates a require view for provides whose name matches the
// anchored pattern and whose value is readable as T.
func NewRequire[T any](owner RelationHolder, pattern string) *Require[T] {
	r := &Require[T]{singleView[T]{viewCore: newViewCore(pattern, true, "require")}}
	owner.AddRelation(r)
	return r
}

// Requires is a multi-valued after-view.
type Requires[T any] struct {
	multiView[T]
}

// NewRequires creates a require view binding to every matching provide.
func NewRequires[T any](owner RelationHolder, pattern string) *Requires[T] {
	r := &Requires[T]{multiView[T]{viewCore: newViewCore(pattern, true, "requires")}}
	owner.AddRelation(r)
	return r
}

// Recycle is a single-valued before-view: the owning module runs before the
// provider's next round, typically to release whatever the provider produced.
type Recycle[T any] struct {
	singleView[T]
}

// NewRecycle creates a recycle view for provides whose name matches the
// anchored pattern and whose value is readable as T.
func NewRecycle[T any](owner RelationHolder, pattern string) *Recycle[T] {
	r := &Recycle[T]{singleView[T]{viewCore: newViewCore(pattern, false, "recycle")}}
	owner.AddRelation(r)
	return r
}

// Recycles is a multi-valued before-view.
type Recycles[T any] struct {
	multiView[T]
}

// NewRecycles creates a recycle view binding to every matching provide.
func NewRecycles[T any](owner RelationHolder, pattern string) *Recycles[T] {
	r := &Recycles[T]{multiView[T]{viewCore: newViewCore(pattern, false, "recycles")}}
	owner.AddRelation(r)
	return r
}
