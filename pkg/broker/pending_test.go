package broker

import (
	"fmt"
	"testing"
	"time"
)

func TestPendingResolve(t *testing.T) {
	tr := NewPendingTracker(time.Minute, 10)
	defer tr.Close()

	tr.Add("req-1")
	if !tr.Resolve("req-1") {
		t.Error("expected resolve to find req-1")
	}
	if tr.Resolve("req-1") {
		t.Error("expected second resolve to miss")
	}
	if tr.Resolve("never-issued") {
		t.Error("expected unknown ID to miss")
	}
}

func TestPendingCapEvictsOldest(t *testing.T) {
	tr := NewPendingTracker(time.Minute, 3)
	defer tr.Close()

	for i := 0; i < 5; i++ {
		tr.Add(fmt.Sprintf("req-%d", i))
	}

	if tr.Len() != 3 {
		t.Fatalf("expected cap of 3, got %d", tr.Len())
	}
	if tr.Resolve("req-0") || tr.Resolve("req-1") {
		t.Error("oldest entries should have been evicted")
	}
	if !tr.Resolve("req-4") {
		t.Error("newest entry should still be tracked")
	}
}

func TestPendingExpire(t *testing.T) {
	tr := NewPendingTracker(time.Minute, 10)
	defer tr.Close()

	tr.Add("old")
	tr.Add("fresh")

	tr.mu.Lock()
	tr.pending["old"].issuedAt = time.Now().Add(-2 * time.Minute)
	tr.mu.Unlock()

	tr.expire()

	if tr.Resolve("old") {
		t.Error("expired entry should be gone")
	}
	if !tr.Resolve("fresh") {
		t.Error("fresh entry should survive the sweep")
	}
}

func TestPendingCloseTwice(t *testing.T) {
	tr := NewPendingTracker(time.Minute, 10)
	tr.Close()
	tr.Close() // must not panic
}
