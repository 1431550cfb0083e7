package gc

import (
	"math/bits"

	"github.com/rogpeppe/hashcons/hcons"
)

// queue is a FIFO ring of objects waiting to be scanned.
// The zero value is an empty queue.
type queue struct {
	// buf holds the backing slice. Its length
	// is always a power of two or zero.
	buf []*hcons.Object

	// i0 is the index of the first element.
	i0  int
	len int
}

func (q *queue) Len() int {
	return q.len
}

func (q *queue) Push(o *hcons.Object) {
	if q.len == len(q.buf) {
		q.grow()
	}
	q.buf[q.mod(q.i0+q.len)] = o
	q.len++
}

// Pop removes and returns the element at the start of the queue.
// It panics if the queue is empty.
func (q *queue) Pop() *hcons.Object {
	if q.len == 0 {
		panic("gc: pop from empty queue")
	}
	o := q.buf[q.i0]
	q.buf[q.i0] = nil
	q.i0 = q.mod(q.i0 + 1)
	q.len--
	return o
}

func (q *queue) grow() {
	newCap := 1 << bits.Len(uint(max(2*len(q.buf), 16)-1))
	buf := make([]*hcons.Object, newCap)
	n := copy(buf, q.buf[q.i0:])
	copy(buf[n:], q.buf[:q.i0])
	q.i0 = 0
	q.buf = buf
}

// mod returns x modulo the buffer capacity.
func (q *queue) mod(x int) int {
	return x & (len(q.buf) - 1)
}
