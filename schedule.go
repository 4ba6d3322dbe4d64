package timerq

import "container/heap"

// bucket is the set of timers sharing an identical expiry tick,
// in insertion order.
type bucket struct {
	tick    Tick
	handles []handle
}

// expiryIndex is an ordered mapping from expiry tick to the bucket of
// timers due at that tick. Buckets are consumed and removed once their
// tick has passed. The index holds weak handles only, never strong
// references, so cancellation never has to touch it.
//
// It is not safe for concurrent use, the manager guards it with its mutex.
type expiryIndex struct {
	buckets map[Tick]*bucket
	heap    bucketHeap
}

func newExpiryIndex() *expiryIndex {
	return &expiryIndex{buckets: make(map[Tick]*bucket)}
}

// add inserts h into the bucket for tick, creating the bucket if needed.
func (x *expiryIndex) add(tick Tick, h handle) {
	b := x.buckets[tick]
	if b == nil {
		b = &bucket{tick: tick}
		x.buckets[tick] = b
		heap.Push(&x.heap, b)
	}
	b.handles = append(b.handles, h)
}

// min returns the smallest expiry tick in the index.
func (x *expiryIndex) min() (Tick, bool) {
	if len(x.heap) == 0 {
		return 0, false
	}
	return x.heap[0].tick, true
}

// popDue removes and returns all buckets whose tick is <= now,
// in ascending tick order.
func (x *expiryIndex) popDue(now Tick) []*bucket {
	var due []*bucket
	for len(x.heap) > 0 && x.heap[0].tick <= now {
		b := heap.Pop(&x.heap).(*bucket)
		delete(x.buckets, b.tick)
		due = append(due, b)
	}
	return due
}

func (x *expiryIndex) len() int { return len(x.heap) }

type bucketHeap []*bucket

func (h bucketHeap) Len() int           { return len(h) }
func (h bucketHeap) Less(i, j int) bool { return h[i].tick < h[j].tick }
func (h bucketHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *bucketHeap) Push(v any) {
	*h = append(*h, v.(*bucket))
}

func (h *bucketHeap) Pop() any {
	old := *h
	n := len(old)
	b := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return b
}
