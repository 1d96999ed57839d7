package refresh

import (
	"context"
	"sync"
	"testing"
	"time"
)

type countingTarget struct {
	mu    sync.Mutex
	calls int
}

func (c *countingTarget) RefreshStations(ctx context.Context) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
}

func (c *countingTarget) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestRefresherHonorsSubMinuteInterval(t *testing.T) {
	target := &countingTarget{}
	r := New(target, 50*time.Millisecond, nil)
	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer r.Stop()

	deadline := time.Now().Add(3 * time.Second)
	for target.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("a 50ms interval never triggered a refresh")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
