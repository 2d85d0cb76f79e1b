// Package event provides a minimal typed publish/subscribe primitive.
// Subjects are owned by the component that emits on them; subscribers are
// responsible for unsubscribing on teardown.
package event

// Subject is a multicast event stream of T.
// Not safe for concurrent use; the engine core is event-loop-cooperative
// and all emission happens on a single goroutine.
type Subject[T any] struct {
	nextID int
	subs   map[int]func(T)
	closed bool
}

// NewSubject creates an empty subject.
func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{subs: make(map[int]func(T))}
}

// Subscribe registers fn and returns an unsubscribe function.
// Unsubscribing twice is harmless.
func (s *Subject[T]) Subscribe(fn func(T)) func() {
	if s.closed {
		return func() {}
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		delete(s.subs, id)
	}
}

// Emit delivers v to every current subscriber in subscription order.
func (s *Subject[T]) Emit(v T) {
	if s.closed {
		return
	}
	// Snapshot ids so a subscriber may unsubscribe (or subscribe) during
	// delivery without corrupting the iteration.
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sortInts(ids)
	for _, id := range ids {
		if fn, ok := s.subs[id]; ok {
			fn(v)
		}
	}
}

// Len returns the number of live subscribers.
func (s *Subject[T]) Len() int {
	return len(s.subs)
}

// Close drops all subscribers; further Subscribe/Emit calls are no-ops.
func (s *Subject[T]) Close() {
	s.closed = true
	s.subs = nil
}

func sortInts(a []int) {
	for i := 0; i < len(a)-1; i++ {
		for j := i + 1; j < len(a); j++ {
			if a[i] > a[j] {
				a[i], a[j] = a[j], a[i]
			}
		}
	}
}
