package geocache

import (
	"strconv"
	"testing"
	"time"
)

func TestInsertGetRoundTrip(t *testing.T) {
	m := New[string](10, time.Minute, time.Millisecond)
	m.Insert("a", "hello")

	got, ok := m.Get("a")
	if !ok || got != "hello" {
		t.Fatalf("Get(a) = %q, %v; want hello, true", got, ok)
	}
}

func TestCapacityEviction(t *testing.T) {
	// S5: capacity 5, ttl 5s; insert keys 0..=5 -> len == 5, key 0 absent.
	m := New[int](5, 5*time.Second, time.Millisecond)
	for i := 0; i <= 5; i++ {
		m.Insert(strconv.Itoa(i), i)
	}

	if got := m.Len(); got != 5 {
		t.Fatalf("Len() = %d, want 5", got)
	}
	if _, ok := m.Get("0"); ok {
		t.Fatalf("key 0 should have been evicted")
	}
	if _, ok := m.Get("5"); !ok {
		t.Fatalf("key 5 should be present")
	}
}

func TestExpirySweep(t *testing.T) {
	// S6: capacity 4, ttl 2s; insert 0,1,2; wait 1s; insert 3; len == 4;
	// wait 1s; insert 4 -> len == 2 (0,1,2 expired, 3 and 4 remain).
	m := New[int](4, 2*time.Second, time.Millisecond)
	m.Insert("0", 0)
	m.Insert("1", 1)
	m.Insert("2", 2)

	time.Sleep(1100 * time.Millisecond)
	m.Insert("3", 3)

	if got := m.Len(); got != 4 {
		t.Fatalf("Len() after inserting 3 = %d, want 4", got)
	}

	time.Sleep(1100 * time.Millisecond)
	m.Insert("4", 4)

	if got := m.Len(); got != 2 {
		t.Fatalf("Len() after inserting 4 = %d, want 2", got)
	}
	if _, ok := m.Get("3"); !ok {
		t.Fatalf("key 3 should still be present")
	}
	if _, ok := m.Get("4"); !ok {
		t.Fatalf("key 4 should still be present")
	}
}

func TestNeverExceedsCapacity(t *testing.T) {
	m := New[int](3, time.Hour, time.Millisecond)
	for i := 0; i < 100; i++ {
		m.Insert(strconv.Itoa(i), i)
		if got := m.Len(); got > 3 {
			t.Fatalf("Len() = %d exceeds capacity 3 after %d inserts", got, i)
		}
	}
}

func TestGetAbsentAfterTTL(t *testing.T) {
	m := New[string](10, 50*time.Millisecond, time.Millisecond)
	m.Insert("k", "v")
	time.Sleep(80 * time.Millisecond)

	if _, ok := m.Get("k"); ok {
		t.Fatalf("expected key to be expired")
	}
}

func TestContainsDoesNotPromote(t *testing.T) {
	m := New[int](2, time.Hour, time.Millisecond)
	m.Insert("old", 1)
	m.Insert("new", 2)

	if !m.Contains("old") {
		t.Fatalf("expected old to be present before eviction")
	}

	// Inserting a third key evicts the least recently touched entry.
	// Contains must not have promoted "old", so it should be evicted
	// instead of "new".
	m.Insert("third", 3)

	if m.Contains("old") {
		t.Fatalf("old should have been evicted; Contains must not promote")
	}
	if !m.Contains("new") {
		t.Fatalf("new should still be present")
	}
}
