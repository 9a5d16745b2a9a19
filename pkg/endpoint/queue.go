package endpoint

import (
	"fmt"
	"sync"
)

// OverflowPolicy selects what Push does when the queue is full.
type OverflowPolicy uint8

const (
	// DropOldest evicts the head to make room. Default: one slow consumer
	// must never stall the rest of the router.
	DropOldest OverflowPolicy = iota
	// Block makes Push wait for space, for links where loss is
	// unacceptable and backpressure on the producer is preferred.
	Block
)

func (p OverflowPolicy) String() string {
	switch p {
	case Block:
		return "block"
	default:
		return "drop_oldest"
	}
}

// ParseOverflowPolicy parses the configuration spelling of a policy.
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch s {
	case "", "drop_oldest":
		return DropOldest, nil
	case "block":
		return Block, nil
	default:
		return 0, fmt.Errorf("endpoint: unknown overflow policy %q", s)
	}
}

// Queue is the bounded outbound buffer between the router's read pumps (many
// producers) and one endpoint's write pump (single consumer). FIFO order is
// what preserves per-source frame ordering end to end.
type Queue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond
	buf      [][]byte
	capacity int
	policy   OverflowPolicy
	closed   bool
	dropped  uint64
}

// NewQueue returns a queue holding at most capacity buffers.
func NewQueue(capacity int, policy OverflowPolicy) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	q := &Queue{capacity: capacity, policy: policy}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)
	return q
}

// Push appends b. Under DropOldest a full queue evicts its head and reports
// evicted=true; under Block, Push waits for space. ok is false only after
// Close.
func (q *Queue) Push(b []byte) (ok, evicted bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.policy == Block && len(q.buf) >= q.capacity && !q.closed {
		q.notFull.Wait()
	}
	if q.closed {
		return false, false
	}
	if len(q.buf) >= q.capacity {
		copy(q.buf, q.buf[1:])
		q.buf = q.buf[:len(q.buf)-1]
		q.dropped++
		evicted = true
	}
	q.buf = append(q.buf, b)
	q.notEmpty.Signal()
	return true, evicted
}

// Pop removes and returns the head, blocking until an item is available.
// After Close it drains the remaining items, then reports ok=false.
func (q *Queue) Pop() ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.buf) == 0 && !q.closed {
		q.notEmpty.Wait()
	}
	if len(q.buf) == 0 {
		return nil, false
	}
	b := q.buf[0]
	q.buf[0] = nil
	q.buf = q.buf[1:]
	q.notFull.Signal()
	return b, true
}

// Close wakes all blocked producers and the consumer. Queued items remain
// poppable.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}

// Len returns the current depth.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}

// Dropped returns how many buffers were evicted since creation.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
