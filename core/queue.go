package core

// NoDeadline is returned by NextExpiration when nothing is pending.
const NoDeadline = ^uint64(0)

// Waker is notified once its deadline has passed.
type Waker interface {
	Wake()
}

// WakerFunc adapts a plain function to Waker.
type WakerFunc func()

func (f WakerFunc) Wake() { f() }

type wakeEntry struct {
	at    uint64 // counter units
	waker Waker
	next  *wakeEntry
}

// WakeQueue holds pending wakes sorted by deadline. Equal deadlines keep
// insertion order. Not safe for concurrent use: callers hold the critical
// section.
type WakeQueue struct {
	head *wakeEntry
	free *wakeEntry
	n    int
}

// Len returns the number of pending wakes.
func (q *WakeQueue) Len() int { return q.n }

// Peek returns the nearest deadline, or NoDeadline.
func (q *WakeQueue) Peek() uint64 {
	if q.head == nil {
		return NoDeadline
	}
	return q.head.at
}

// Schedule inserts a wake at counter value at and reports whether the nearest
// deadline changed (the compare register must be re-armed).
func (q *WakeQueue) Schedule(at uint64, w Waker) bool {
	e := q.alloc()
	e.at = at
	e.waker = w
	q.n++

	if q.head == nil || at < q.head.at {
		e.next = q.head
		q.head = e
		return true
	}

	current := q.head
	for current.next != nil && current.next.at <= at {
		current = current.next
	}
	e.next = current.next
	current.next = e
	return false
}

// NextExpiration wakes, in deadline order, every entry due at or before now
// and returns the next pending deadline (NoDeadline if none).
func (q *WakeQueue) NextExpiration(now uint64) uint64 {
	for q.head != nil && q.head.at <= now {
		e := q.head
		q.head = e.next
		q.n--

		w := e.waker
		q.release(e)
		w.Wake()
	}
	return q.Peek()
}

func (q *WakeQueue) alloc() *wakeEntry {
	if e := q.free; e != nil {
		q.free = e.next
		e.next = nil
		return e
	}
	return &wakeEntry{}
}

func (q *WakeQueue) release(e *wakeEntry) {
	e.waker = nil
	e.next = q.free
	q.free = e
}
