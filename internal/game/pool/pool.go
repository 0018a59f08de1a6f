// Package pool recycles frequently churned entities (food, particles).
package pool

// Pool is an explicit free list. Unlike sync.Pool it never discards
// released objects, so Size always equals released-minus-reacquired.
//
// Not safe for concurrent use; the simulation owns its pools.
type Pool[T any] struct {
	free    []T
	factory func() T
	reset   func(T)

	created uint64
	reused  uint64
}

// New creates a pool. factory builds a fresh object when the free list is
// empty; reset (optional) reinitializes a recycled one.
func New[T any](factory func() T, reset func(T)) *Pool[T] {
	return &Pool[T]{
		free:    make([]T, 0, 64),
		factory: factory,
		reset:   reset,
	}
}

// Acquire returns a recycled object (after reset) or a new one.
func (p *Pool[T]) Acquire() T {
	if n := len(p.free); n > 0 {
		obj := p.free[n-1]
		var zero T
		p.free[n-1] = zero
		p.free = p.free[:n-1]
		if p.reset != nil {
			p.reset(obj)
		}
		p.reused++
		return obj
	}
	p.created++
	return p.factory()
}

// Release pushes obj back onto the free list. The pool does not validate
// state; callers mark the object dead before releasing it.
func (p *Pool[T]) Release(obj T) {
	p.free = append(p.free, obj)
}

// Size returns the number of objects waiting on the free list.
func (p *Pool[T]) Size() int {
	return len(p.free)
}

// Stats reports how many objects were built versus recycled.
func (p *Pool[T]) Stats() (created, reused uint64) {
	return p.created, p.reused
}
