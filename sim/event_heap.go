package sim

import "container/heap"

// injection is an external input queued by the driver for a root input port.
type injection struct {
	time  Time
	seq   uint64
	port  string
	value any
}

// injectionHeap orders injections deterministically.
// Ordering: time → sequence number (injection order)
type injectionHeap struct {
	items   []*injection
	nextSeq uint64
}

func newInjectionHeap() *injectionHeap {
	h := &injectionHeap{items: make([]*injection, 0)}
	heap.Init(h)
	return h
}

// Len implements heap.Interface
func (h *injectionHeap) Len() int {
	return len(h.items)
}

// Less implements heap.Interface
func (h *injectionHeap) Less(i, j int) bool {
	a, b := h.items[i], h.items[j]
	if a.time != b.time {
		return a.time < b.time
	}
	return a.seq < b.seq
}

// Swap implements heap.Interface
func (h *injectionHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
}

// Push implements heap.Interface
func (h *injectionHeap) Push(x interface{}) {
	h.items = append(h.items, x.(*injection))
}

// Pop implements heap.Interface
func (h *injectionHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[0 : n-1]
	return item
}

// schedule queues a new injection, assigning the next sequence number.
func (h *injectionHeap) schedule(t Time, port string, value any) {
	h.nextSeq++
	heap.Push(h, &injection{time: t, seq: h.nextSeq, port: port, value: value})
}

// requeue puts back an injection popped earlier, keeping its original order.
func (h *injectionHeap) requeue(inj *injection) {
	heap.Push(h, inj)
}

// popDue removes and returns every injection at time t, in order.
func (h *injectionHeap) popDue(t Time) []*injection {
	var due []*injection
	for h.Len() > 0 && h.items[0].time == t {
		due = append(due, heap.Pop(h).(*injection))
	}
	return due
}

// peekTime returns the earliest injection time, or Infinity when empty.
func (h *injectionHeap) peekTime() Time {
	if h.Len() == 0 {
		return Infinity
	}
	return h.items[0].time
}
