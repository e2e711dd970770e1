package basket

// Ref keeps a resolved collaborator next to its durable identifier. After a
// restore only the identifier is known until the caller rehydrates the
// value.
type Ref[T any] struct {
	value    T
	id       string
	resolved bool
}

func resolvedRef[T any](v T, id string) Ref[T] {
	return Ref[T]{value: v, id: id, resolved: true}
}

func unresolvedRef[T any](id string) Ref[T] {
	return Ref[T]{id: id}
}

// Get returns the resolved value, if any.
func (r Ref[T]) Get() (T, bool) {
	return r.value, r.resolved
}

// ID returns the durable identifier. It is empty when nothing is selected.
func (r Ref[T]) ID() string { return r.id }

// IsResolved reports whether the live value is available.
func (r Ref[T]) IsResolved() bool { return r.resolved }

// IsZero reports whether nothing is selected.
func (r Ref[T]) IsZero() bool { return !r.resolved && r.id == "" }
