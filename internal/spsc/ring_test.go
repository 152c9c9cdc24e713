package spsc

import (
	"sync"
	"testing"
)

func TestRingFIFOAndCapacity(t *testing.T) {
	r := New[int](10)
	if r.Cap() != 10 {
		t.Fatalf("expected capacity 10, got %d", r.Cap())
	}
	for i := 0; i < 10; i++ {
		if !r.Push(i) {
			t.Fatalf("push %d rejected before capacity reached", i)
		}
	}
	if r.Push(10) {
		t.Fatalf("expected push to fail on full ring")
	}
	if r.Len() != 10 {
		t.Fatalf("expected len 10, got %d", r.Len())
	}
	for i := 0; i < 10; i++ {
		v, ok := r.Pop()
		if !ok || v != i {
			t.Fatalf("pop %d: got=%d ok=%v", i, v, ok)
		}
	}
	if _, ok := r.Pop(); ok {
		t.Fatalf("expected empty ring")
	}
}

func TestRingWrapsAround(t *testing.T) {
	r := New[string](3)
	for round := 0; round < 20; round++ {
		if !r.Push("a") || !r.Push("b") {
			t.Fatalf("round %d: push rejected", round)
		}
		a, _ := r.Pop()
		b, _ := r.Pop()
		if a != "a" || b != "b" {
			t.Fatalf("round %d: got %q %q", round, a, b)
		}
	}
}

func TestRingConcurrentProducerConsumer(t *testing.T) {
	const n = 20000
	r := New[int](8)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; {
			if r.Push(i) {
				i++
			}
		}
	}()

	next := 0
	for next < n {
		v, ok := r.Pop()
		if !ok {
			continue
		}
		if v != next {
			t.Fatalf("out of order: got=%d want=%d", v, next)
		}
		next++
	}
	wg.Wait()
}
