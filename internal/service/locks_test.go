package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyLocks_OppositeOrderDoesNotDeadlock(t *testing.T) {
	locks := NewKeyLocks()
	var wg sync.WaitGroup
	done := make(chan struct{})

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("a", "b")
			unlock()
		}()
		go func() {
			defer wg.Done()
			unlock := locks.Lock("b", "a")
			unlock()
		}()
	}
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("lock acquisition deadlocked")
	}
	assert.Equal(t, 0, locks.size())
}

func TestKeyLocks_Exclusive(t *testing.T) {
	locks := NewKeyLocks()
	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("user")
			counter++
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, counter)
}

func TestKeyLocks_DuplicateKeys(t *testing.T) {
	locks := NewKeyLocks()
	unlock := locks.Lock("a", "a")
	assert.Equal(t, 1, locks.size())
	unlock()
	assert.Equal(t, 0, locks.size())
}
