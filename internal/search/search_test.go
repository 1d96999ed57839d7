package search

import (
	"context"
	"sync"
	"testing"
	"time"

	"skycast/internal/types"
)

type fetchRecorder struct {
	mu      sync.Mutex
	queries []string
	results map[string][]types.Location
	delay   time.Duration
}

func (f *fetchRecorder) fetch(ctx context.Context, query string) []types.Location {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.results[query]
}

func (f *fetchRecorder) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.queries))
	copy(out, f.queries)
	return out
}

type resultRecorder struct {
	mu      sync.Mutex
	queries []string
}

func (r *resultRecorder) record(query string, locs []types.Location) {
	r.mu.Lock()
	r.queries = append(r.queries, query)
	r.mu.Unlock()
}

func (r *resultRecorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.queries))
	copy(out, r.queries)
	return out
}

func TestDebouncerCollapsesKeystrokes(t *testing.T) {
	f := &fetchRecorder{results: map[string][]types.Location{}}
	r := &resultRecorder{}
	d := NewDebouncer(f.fetch, r.record, QuietOption(30*time.Millisecond))

	// "Lon" typed, then "London" within the quiet period: exactly one
	// fetch happens, for "London".
	d.Input("Lon")
	time.Sleep(10 * time.Millisecond)
	d.Input("London")

	time.Sleep(100 * time.Millisecond)

	if got := f.seen(); len(got) != 1 || got[0] != "London" {
		t.Errorf("fetches = %v, want exactly [London]", got)
	}
	if got := r.seen(); len(got) != 1 || got[0] != "London" {
		t.Errorf("results delivered = %v, want exactly [London]", got)
	}
}

func TestDebouncerShortQueryClears(t *testing.T) {
	f := &fetchRecorder{}
	r := &resultRecorder{}
	cleared := make(chan struct{}, 2)
	d := NewDebouncer(f.fetch, r.record,
		QuietOption(10*time.Millisecond),
		OnClearOption(func() { cleared <- struct{}{} }))

	d.Input(" L ") // trims to one rune
	select {
	case <-cleared:
	case <-time.After(time.Second):
		t.Fatal("short query did not clear suggestions")
	}

	time.Sleep(50 * time.Millisecond)
	if got := f.seen(); len(got) != 0 {
		t.Errorf("short query scheduled a fetch: %v", got)
	}
}

func TestDebouncerShortQueryCancelsPending(t *testing.T) {
	f := &fetchRecorder{}
	r := &resultRecorder{}
	d := NewDebouncer(f.fetch, r.record, QuietOption(30*time.Millisecond),
		OnClearOption(func() {}))

	d.Input("London")
	d.Input("L") // backspaced below the threshold before the timer fired

	time.Sleep(100 * time.Millisecond)
	if got := f.seen(); len(got) != 0 {
		t.Errorf("pending fetch survived a short-query input: %v", got)
	}
}

func TestDebouncerStaleCompletionDiscarded(t *testing.T) {
	f := &fetchRecorder{delay: 50 * time.Millisecond}
	r := &resultRecorder{}
	d := NewDebouncer(f.fetch, r.record, QuietOption(5*time.Millisecond))

	d.Input("Paris")
	// Let the "Paris" fetch start, then type again while it is in flight.
	time.Sleep(20 * time.Millisecond)
	d.Input("Berlin")

	time.Sleep(200 * time.Millisecond)

	got := r.seen()
	if len(got) != 1 || got[0] != "Berlin" {
		t.Errorf("delivered = %v, want only the newer query Berlin", got)
	}
}

func TestNavigatorWrapsCircularly(t *testing.T) {
	n := NewNavigator()
	n.Reset(3)

	if got := n.Next(); got != 0 {
		t.Errorf("first Next = %d, want 0", got)
	}
	n.Next()
	n.Next()
	if got := n.Next(); got != 0 {
		t.Errorf("Next past the end = %d, want wrap to 0", got)
	}
	if got := n.Prev(); got != 2 {
		t.Errorf("Prev from 0 = %d, want wrap to 2", got)
	}
}

func TestNavigatorPrevFromIdleStartsAtBottom(t *testing.T) {
	n := NewNavigator()
	n.Reset(4)
	if got := n.Prev(); got != 3 {
		t.Errorf("Prev with nothing highlighted = %d, want 3", got)
	}
}

func TestNavigatorCommitAndDismiss(t *testing.T) {
	n := NewNavigator()
	n.Reset(2)
	n.Next()

	if got := n.Commit(); got != 0 {
		t.Errorf("Commit = %d, want 0", got)
	}
	if got := n.Index(); got != -1 {
		t.Errorf("index after commit = %d, want -1", got)
	}
	if got := n.Next(); got != -1 {
		t.Errorf("Next on dismissed dropdown = %d, want -1", got)
	}
}

func TestNavigatorEmptyList(t *testing.T) {
	n := NewNavigator()
	n.Reset(0)
	if n.Next() != -1 || n.Prev() != -1 || n.Commit() != -1 {
		t.Error("empty list should never highlight anything")
	}
}
