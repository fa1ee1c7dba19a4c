package concurrency

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLockManagerSameKey(t *testing.T) {
	lm := NewLockManager()
	assert.Same(t, lm.GetLock("a"), lm.GetLock("a"))
	assert.NotSame(t, lm.GetLock("a"), lm.GetLock("b"))
}

func TestGuardSerializesUser(t *testing.T) {
	g := NewGuard()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = g.WithUsers([]int64{2, 1, 2}, func() error {
				counter++
				return nil
			})
		}()
	}
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = g.WithUser(1, func() error {
				counter++
				return nil
			})
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = g.Exclusive(func() error {
			counter++
			return nil
		})
	}()
	wg.Wait()

	assert.Equal(t, 101, counter)
}
