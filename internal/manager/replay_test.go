package manager

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReplayGuardMonotonicNonces(t *testing.T) {
	g := NewReplayGuard()

	assert.True(t, g.Check("key-a", 1))
	assert.True(t, g.Consume("key-a", 1))
	assert.False(t, g.Consume("key-a", 1)) // replay
	assert.False(t, g.Consume("key-a", 0))
	assert.True(t, g.Consume("key-a", 5)) // gaps allowed
	assert.False(t, g.Consume("key-a", 3))

	// Independent counters per signer
	assert.True(t, g.Consume("key-b", 1))
}

func TestReplayGuardReset(t *testing.T) {
	g := NewReplayGuard()
	assert.True(t, g.Consume("key-a", 10))
	g.Reset("key-a")
	assert.True(t, g.Consume("key-a", 1))
}

func TestReplayGuardConcurrentConsume(t *testing.T) {
	g := NewReplayGuard()

	var wg sync.WaitGroup
	accepted := make(chan struct{}, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.Consume("key-a", 42) {
				accepted <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(accepted)

	count := 0
	for range accepted {
		count++
	}
	assert.Equal(t, 1, count, "the same nonce must be consumable exactly once")
}
