package shoplock

import (
	"sync"
	"testing"
)

func TestDoSerializesSameDomain(t *testing.T) {
	k := New()

	const goroutines = 8
	const iterations = 200
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				_ = k.Do("foo.example.com", func() error {
					counter++
					return nil
				})
			}
		}()
	}
	wg.Wait()

	if counter != goroutines*iterations {
		t.Fatalf("counter = %d, want %d", counter, goroutines*iterations)
	}
}

func TestDifferentDomainsDoNotBlock(t *testing.T) {
	k := New()
	k.Lock("a.example.com")
	defer k.Unlock("a.example.com")

	done := make(chan struct{})
	go func() {
		k.Lock("b.example.com")
		k.Unlock("b.example.com")
		close(done)
	}()

	<-done
}

func TestEntriesAreReleased(t *testing.T) {
	k := New()
	k.Lock("foo.example.com")
	k.Unlock("foo.example.com")

	k.mu.Lock()
	defer k.mu.Unlock()
	if len(k.locks) != 0 {
		t.Fatalf("expected empty lock map, got %d entries", len(k.locks))
	}
}
