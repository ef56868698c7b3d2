package util

import (
	"math/rand"
	"sort"
	"strconv"
	"testing"
)

// TestNewExpiryQueue tests the creation of a new queue
func TestNewExpiryQueue(t *testing.T) {
	q := NewExpiryQueue()

	if q.size() != 0 {
		t.Errorf("New queue should be empty, but has length %d", q.size())
	}

	if _, _, ok := q.peek(); ok {
		t.Error("peek on empty queue should return ok=false")
	}

	if got := q.PopBefore(1 << 62); len(got) != 0 {
		t.Errorf("PopBefore on empty queue returned %v", got)
	}
}

// TestSet tests adding and updating keys
func TestSet(t *testing.T) {
	q := NewExpiryQueue()

	q.Set("/docs/a", 100)
	q.Set("/docs/b", 200)
	q.Set("/docs/c", 50)

	if q.size() != 3 {
		t.Errorf("Queue should have 3 items, but has %d", q.size())
	}

	key, deadline, ok := q.peek()
	if !ok || key != "/docs/c" || deadline != 50 {
		t.Errorf("Expected min item to be (/docs/c,50), got (%s,%d)", key, deadline)
	}

	// moving the oldest key forward exposes the next one
	q.Set("/docs/c", 300)
	if q.size() != 3 {
		t.Errorf("Update must not add a second item, length is %d", q.size())
	}
	key, _, _ = q.peek()
	if key != "/docs/a" {
		t.Errorf("Min item should now be /docs/a, got %s", key)
	}

	if d, ok := q.deadline("/docs/c"); !ok || d != 300 {
		t.Errorf("deadline returned (%d,%v), want (300,true)", d, ok)
	}
}

// TestRemove tests removing keys
func TestRemove(t *testing.T) {
	q := NewExpiryQueue()
	q.Set("a", 1)
	q.Set("b", 2)
	q.Set("c", 3)

	deadline, ok := q.Remove("b")
	if !ok || deadline != 2 {
		t.Fatalf("Remove returned (%d,%v), want (2,true)", deadline, ok)
	}
	if q.contains("b") {
		t.Error("Queue should not contain b after removal")
	}
	if _, ok := q.Remove("b"); ok {
		t.Error("Removing a missing key should return false")
	}
	if q.size() != 2 {
		t.Errorf("Queue should have 2 items, has %d", q.size())
	}
}

// TestPopBefore tests that expired keys come out oldest first and the rest stays
func TestPopBefore(t *testing.T) {
	q := NewExpiryQueue()

	deadlines := rand.Perm(100)
	for i, d := range deadlines {
		q.Set(strconv.Itoa(i), int64(d))
	}

	expired := q.PopBefore(40)
	if len(expired) != 40 {
		t.Fatalf("Expected 40 expired keys, got %d", len(expired))
	}

	got := make([]int, len(expired))
	for i, key := range expired {
		idx, _ := strconv.Atoi(key)
		got[i] = deadlines[idx]
	}
	if !sort.IntsAreSorted(got) {
		t.Errorf("Expired keys are not ordered by deadline: %v", got)
	}
	for _, d := range got {
		if d >= 40 {
			t.Errorf("Key with deadline %d must not expire before 40", d)
		}
	}

	if q.size() != 60 {
		t.Errorf("Queue should keep 60 items, has %d", q.size())
	}
	_, min, _ := q.peek()
	if min != 40 {
		t.Errorf("Oldest remaining deadline should be 40, got %d", min)
	}
}
