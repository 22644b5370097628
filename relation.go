package flowline

import "reflect"

// Relation is the common interface of provides and views. Every relation is
// owned by exactly one module and is registered with it at construction.
type Relation interface {
	isRelation()
}

// RelationHolder receives relations as they are constructed. Base implements
// it; modules that manage their own relation list can implement it directly.
type RelationHolder interface {
	AddRelation(Relation)
}

// provider is the builder-facing surface of a Provide of any value type.
type provider interface {
	Relation
	Name() string
	valueType() reflect.Type
	currentValue() any
}

// viewer is the builder-facing surface of a view of any target type.
type viewer interface {
	Relation
	// accept offers a provide to the view. It reports whether the pairing
	// produced a binding, which is also the builder's cue to draw an edge.
	accept(p provider) bool
	// runsAfter distinguishes after-views (require) from before-views (recycle).
	runsAfter() bool
	describe() string
}

// targetType resolves the reflect.Type of a view's type parameter. It works
// for interface types as well, including any.
func targetType[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
