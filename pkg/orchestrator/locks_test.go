package orchestrator

import (
	"sync"
	"testing"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	k := newKeyedMutex()

	var mu sync.Mutex
	active := 0
	maxActive := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("sb_1")
			defer unlock()

			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if maxActive != 1 {
		t.Errorf("observed %d concurrent holders for one key, want 1", maxActive)
	}
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	k := newKeyedMutex()

	unlockA := k.Lock("sb_a")
	defer unlockA()

	// A different key must not block behind sb_a.
	done := make(chan struct{})
	go func() {
		unlockB := k.Lock("sb_b")
		unlockB()
		close(done)
	}()
	<-done
}

func TestKeyedMutexReleasesEntries(t *testing.T) {
	k := newKeyedMutex()

	unlock := k.Lock("sb_1")
	unlock()

	k.mu.Lock()
	n := len(k.entries)
	k.mu.Unlock()

	if n != 0 {
		t.Errorf("lock table holds %d entries after release, want 0", n)
	}
}
