package util

import (
	"container/heap"
	"strconv"
)

// item is one entry of the queue, identified by Key and ordered by Deadline
type item struct {
	Key      string // Unique identifier for the item (a file path)
	Deadline int64  // Point in time the item was last refreshed (unix nanos)
	index    int    // Index in the heap, maintained by heap package
}

func (i *item) String() string {
	return "{Key: " + i.Key + ", Deadline: " + strconv.FormatInt(i.Deadline, 10) + "}"
}

// ExpiryQueue is a min-heap of keys ordered by their deadline with O(1) access
// by key. It answers "which keys have not been refreshed since t" in
// O(k log n) for k expired keys.
//
// Time Complexity:
//   - O(log n) for Set, Remove and PopBefore per popped item
//
// Concurrency: not thread-safe.
type ExpiryQueue struct {
	items    []*item          // The actual heap slice
	itemsMap map[string]*item // Map for O(1) access by key
}

// NewExpiryQueue creates an empty queue
func NewExpiryQueue() *ExpiryQueue {
	q := &ExpiryQueue{
		items:    make([]*item, 0),
		itemsMap: make(map[string]*item),
	}
	heap.Init((*expiryHeap)(q))
	return q
}

// size returns the number of keys in the queue
func (q *ExpiryQueue) size() int { return len(q.items) }

// Set adds key with the given deadline or moves an existing key to it
func (q *ExpiryQueue) Set(key string, deadline int64) {
	if it, exists := q.itemsMap[key]; exists {
		it.Deadline = deadline
		heap.Fix((*expiryHeap)(q), it.index)
		return
	}
	heap.Push((*expiryHeap)(q), &item{Key: key, Deadline: deadline})
}

// Remove removes key and returns its deadline
func (q *ExpiryQueue) Remove(key string) (int64, bool) {
	it, exists := q.itemsMap[key]
	if !exists {
		return 0, false
	}
	heap.Remove((*expiryHeap)(q), it.index)
	return it.Deadline, true
}

// peek returns the key with the smallest deadline without removing it
func (q *ExpiryQueue) peek() (string, int64, bool) {
	if len(q.items) == 0 {
		return "", 0, false
	}
	return q.items[0].Key, q.items[0].Deadline, true
}

// contains checks if a key is in the queue
func (q *ExpiryQueue) contains(key string) bool {
	_, exists := q.itemsMap[key]
	return exists
}

// deadline returns the deadline of key
func (q *ExpiryQueue) deadline(key string) (int64, bool) {
	it, exists := q.itemsMap[key]
	if !exists {
		return 0, false
	}
	return it.Deadline, true
}

// PopBefore removes and returns every key whose deadline is strictly before
// cutoff, oldest first
func (q *ExpiryQueue) PopBefore(cutoff int64) []string {
	var expired []string
	for len(q.items) > 0 && q.items[0].Deadline < cutoff {
		it := heap.Pop((*expiryHeap)(q)).(*item)
		expired = append(expired, it.Key)
	}
	return expired
}

// --------------------------------------------------------------------------
// heap.Interface
// --------------------------------------------------------------------------

// expiryHeap implements heap.Interface, kept separate so the queue does not
// expose Push and Pop with interface{} arguments
type expiryHeap ExpiryQueue

func (h *expiryHeap) Len() int { return len(h.items) }

func (h *expiryHeap) Less(i, j int) bool {
	return h.items[i].Deadline < h.items[j].Deadline
}

func (h *expiryHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].index = i
	h.items[j].index = j
}

func (h *expiryHeap) Push(x interface{}) {
	it := x.(*item)
	it.index = len(h.items)
	h.items = append(h.items, it)
	h.itemsMap[it.Key] = it
}

func (h *expiryHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	it := old[n-1]
	old[n-1] = nil // Avoid memory leak
	it.index = -1
	h.items = old[:n-1]
	delete(h.itemsMap, it.Key)
	return it
}
