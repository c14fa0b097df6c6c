package queue

import (
	"testing"
	"time"
)

func TestLineQueue_PutGetOrder(t *testing.T) {
	q := NewLineQueue()
	q.Put("ok")
	q.Put("Error: Wrong checksum")

	first, err := q.Get(time.Second)
	if err != nil || first != "ok" {
		t.Fatalf("first Get() = %q, %v", first, err)
	}
	second, err := q.Get(time.Second)
	if err != nil || second != "Error: Wrong checksum" {
		t.Fatalf("second Get() = %q, %v", second, err)
	}
}

func TestLineQueue_GetTimesOutWhenEmpty(t *testing.T) {
	q := NewLineQueue()
	if _, err := q.Get(20 * time.Millisecond); err != ErrEmpty {
		t.Errorf("Get on empty queue = %v, want ErrEmpty", err)
	}
}

func TestLineQueue_NeverBlocksOnPut(t *testing.T) {
	q := NewLineQueue()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10000; i++ {
			q.Put("line")
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Put blocked unexpectedly on an unbounded queue")
	}
	if q.Len() != 10000 {
		t.Errorf("Len() = %d, want 10000", q.Len())
	}
}

func TestLineQueue_CloseDrainsThenErrors(t *testing.T) {
	q := NewLineQueue()
	q.Put("wait")
	q.Close()

	item, err := q.Get(time.Second)
	if err != nil || item != "wait" {
		t.Fatalf("Get after close = %q, %v", item, err)
	}
	if _, err := q.Get(time.Second); err != ErrClosed {
		t.Errorf("Get on drained closed queue = %v, want ErrClosed", err)
	}
	if err := q.Put("late"); err != ErrClosed {
		t.Errorf("Put on closed queue = %v, want ErrClosed", err)
	}
}
