package engine

import (
	"sync"
	"testing"
)

func TestRingFIFO(t *testing.T) {
	r := NewRing[int](8)
	for i := 0; i < 5; i++ {
		if !r.Push(i) {
			t.Fatalf("push %d reported a drop", i)
		}
	}
	if r.Len() != 5 {
		t.Errorf("len = %d, want 5", r.Len())
	}
	for i := 0; i < 5; i++ {
		v, ok := r.Pop()
		if !ok || v != i {
			t.Fatalf("pop %d: got %d ok=%v", i, v, ok)
		}
	}
	if _, ok := r.Pop(); ok {
		t.Error("pop on empty ring returned ok")
	}
}

func TestRingDropsOldestWhenFull(t *testing.T) {
	r := NewRing[int](4)
	for i := 0; i < 6; i++ {
		r.Push(i)
	}
	if r.Dropped() != 2 {
		t.Errorf("dropped = %d, want 2", r.Dropped())
	}
	// The two oldest elements made room for the newest.
	want := []int{2, 3, 4, 5}
	for _, w := range want {
		v, ok := r.Pop()
		if !ok || v != w {
			t.Fatalf("got %d ok=%v, want %d", v, ok, w)
		}
	}
}

func TestRingCapacityRoundsUp(t *testing.T) {
	r := NewRing[int](5)
	if r.Cap() != 8 {
		t.Errorf("cap = %d, want 8", r.Cap())
	}
	if c := NewRing[int](0).Cap(); c != 2 {
		t.Errorf("min cap = %d, want 2", c)
	}
}

func TestRingConcurrentProducers(t *testing.T) {
	const producers = 4
	const perProducer = 2000
	r := NewRing[int](producers * perProducer)

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				r.Push(j)
			}
		}()
	}
	wg.Wait()

	count := 0
	for {
		if _, ok := r.Pop(); !ok {
			break
		}
		count++
	}
	if count != producers*perProducer {
		t.Errorf("popped %d, want %d", count, producers*perProducer)
	}
	if r.Dropped() != 0 {
		t.Errorf("dropped = %d, want 0", r.Dropped())
	}
}

func TestRingConcurrentProducerConsumer(t *testing.T) {
	r := NewRing[uint64](64)
	const total = 10000

	prodDone := make(chan struct{})
	done := make(chan uint64)
	go func() {
		var received, last uint64
		drain := false
		for {
			v, ok := r.Pop()
			if !ok {
				if drain {
					break
				}
				select {
				case <-prodDone:
					drain = true
				default:
				}
				continue
			}
			// Drop-oldest keeps arrival order for the survivors.
			if v <= last {
				t.Errorf("order violated: %d after %d", v, last)
				break
			}
			last = v
			received++
		}
		done <- received
	}()

	for i := uint64(1); i <= total; i++ {
		r.Push(i)
	}
	close(prodDone)

	received := <-done
	if received+r.Dropped() != total {
		t.Errorf("received %d + dropped %d != %d", received, r.Dropped(), total)
	}
}
