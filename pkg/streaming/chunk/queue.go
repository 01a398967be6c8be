package chunk

const minQueueCap = 8

// Queue is a growable FIFO ring buffer that tracks the accumulated size of
// its elements. It is not safe for concurrent use; owners guard it with
// their own lock.
type Queue[T any] struct {
	buffer []T
	head   int
	tail   int
	count  int
	size   int
	sizeOf func(T) int
}

// NewQueue creates a queue measuring elements with sizeOf.
func NewQueue[T any](sizeOf func(T) int) *Queue[T] {
	return &Queue[T]{
		buffer: make([]T, minQueueCap),
		sizeOf: sizeOf,
	}
}

// Push appends v.
func (q *Queue[T]) Push(v T) {
	if q.count == len(q.buffer) {
		q.grow()
	}
	q.buffer[q.tail] = v
	q.tail = (q.tail + 1) % len(q.buffer)
	q.count++
	q.size += q.sizeOf(v)
}

// Pop removes and returns the oldest element.
func (q *Queue[T]) Pop() (T, bool) {
	var zero T
	if q.count == 0 {
		return zero, false
	}
	v := q.buffer[q.head]
	q.buffer[q.head] = zero // Clear reference
	q.head = (q.head + 1) % len(q.buffer)
	q.count--
	q.size -= q.sizeOf(v)
	return v, true
}

// Peek returns the oldest element without removing it.
func (q *Queue[T]) Peek() (T, bool) {
	if q.count == 0 {
		var zero T
		return zero, false
	}
	return q.buffer[q.head], true
}

// ReplaceFront swaps the oldest element for v, adjusting the size.
// It is used when a consumer takes part of the head chunk.
func (q *Queue[T]) ReplaceFront(v T) {
	if q.count == 0 {
		return
	}
	q.size += q.sizeOf(v) - q.sizeOf(q.buffer[q.head])
	q.buffer[q.head] = v
}

// Drain removes and returns every element in FIFO order.
func (q *Queue[T]) Drain() []T {
	out := make([]T, 0, q.count)
	for q.count > 0 {
		v, _ := q.Pop()
		out = append(out, v)
	}
	return out
}

// Each calls fn on every element in FIFO order without removing them.
func (q *Queue[T]) Each(fn func(T)) {
	for i := 0; i < q.count; i++ {
		fn(q.buffer[(q.head+i)%len(q.buffer)])
	}
}

// Len returns the number of elements.
func (q *Queue[T]) Len() int { return q.count }

// Size returns the accumulated size of all elements.
func (q *Queue[T]) Size() int { return q.size }

func (q *Queue[T]) grow() {
	next := make([]T, len(q.buffer)*2)
	for i := 0; i < q.count; i++ {
		next[i] = q.buffer[(q.head+i)%len(q.buffer)]
	}
	q.buffer = next
	q.head = 0
	q.tail = q.count
}
