package renderer

// Queue is an append-only sequence with a read cursor.
//
// Items appended while the queue is being drained are visited by the same
// drain loop, after everything that was already queued. The tracer relies
// on this to expand the wavefront breadth first without a separate frontier:
// every ray of generation d is read before any ray of generation d+1.
type Queue[T any] struct {
	items []T
	pos   int // index of the next item Next returns; never exceeds len(items)
}

// NewQueue creates an empty queue
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Put appends an item
func (q *Queue[T]) Put(item T) {
	q.items = append(q.items, item)
}

// Next returns the item under the cursor and advances it.
// It returns false once the cursor has caught up with the end of the sequence.
func (q *Queue[T]) Next() (T, bool) {
	if q.pos >= len(q.items) {
		var zero T
		return zero, false
	}
	item := q.items[q.pos]
	q.pos++
	return item, true
}

// Len returns the total number of items ever appended
func (q *Queue[T]) Len() int {
	return len(q.items)
}

// Pos returns the cursor position
func (q *Queue[T]) Pos() int {
	return q.pos
}

// Pending returns the number of items not yet read
func (q *Queue[T]) Pending() int {
	return len(q.items) - q.pos
}

// Reset rewinds the cursor so the full sequence can be read again
func (q *Queue[T]) Reset() {
	q.pos = 0
}

// Items returns a copy of the full sequence in insertion order
func (q *Queue[T]) Items() []T {
	items := make([]T, len(q.items))
	copy(items, q.items)
	return items
}
