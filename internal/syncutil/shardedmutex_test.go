package syncutil

import (
	"sync"
	"testing"
)

func TestShardedMutex_SerializesSameKey(t *testing.T) {
	sm := NewShardedMutex()

	var counter int
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := sm.Lock("0xsender")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	if counter != 100 {
		t.Fatalf("counter = %d, want 100", counter)
	}
}

func TestShardedMutex_DifferentKeysIndependent(t *testing.T) {
	sm := NewShardedMutex()

	a := "0xaaaa000000000000000000000000000000000001"
	b := "0xbbbb000000000000000000000000000000000002"
	if sm.shard(a) == sm.shard(b) {
		t.Skip("keys hash to the same shard")
	}

	unlockA := sm.Lock(a)
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := sm.Lock(b)
		unlockB()
		close(done)
	}()
	<-done
}
